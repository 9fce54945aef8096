// Package di contains dependency injection tokens for the accounting context.
package di

import (
	"github.com/fd1az/arbitrage-executor/business/accounting/domain"
	"github.com/fd1az/arbitrage-executor/internal/di"
)

var (
	Ledger         = di.NewToken[*domain.Ledger]("accounting.Ledger")
	WithdrawPolicy = di.NewToken[domain.WithdrawPolicy]("accounting.WithdrawPolicy")
)

func GetLedger(c di.ServiceRegistry) *domain.Ledger {
	return di.GetToken(c, Ledger)
}

func GetWithdrawPolicy(c di.ServiceRegistry) domain.WithdrawPolicy {
	return di.GetToken(c, WithdrawPolicy)
}
