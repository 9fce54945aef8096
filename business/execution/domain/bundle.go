// Package domain contains the core domain types for the execution context.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// CallKind labels what a bundle call does.
type CallKind string

const (
	CallExecuteTrade CallKind = "execute_trade"
	CallWithdraw     CallKind = "withdraw"
)

// Call is one contract call inside a bundle.
type Call struct {
	Kind CallKind
	To   common.Address
	Data []byte
	// GasLimit is used when estimation is impossible, e.g. a withdraw whose
	// balance only exists after the preceding trade.
	GasLimit uint64
}

// Bundle is an ordered, atomic list of calls: the trade first, an optional
// withdraw second. ReplacementID lets the relay deduplicate resubmissions.
type Bundle struct {
	Calls         []Call
	ReplacementID string
}

// HasWithdraw reports whether the bundle moves profits out of the contract.
func (b Bundle) HasWithdraw() bool {
	for _, c := range b.Calls {
		if c.Kind == CallWithdraw {
			return true
		}
	}
	return false
}

// PendingBundle is a signed, submitted bundle awaiting inclusion.
type PendingBundle struct {
	Bundle      Bundle
	Txs         []*types.Transaction
	TxHashes    []common.Hash
	BundleHash  string
	TargetBlock uint64
	// TargetBound bundles are only valid for TargetBlock; once it passes
	// without inclusion they are dead.
	TargetBound bool
	FeeCap      *big.Int
	TipCap      *big.Int
	SubmittedAt time.Time
	Submitter   string
}
