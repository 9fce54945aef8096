package domain

import (
	"fmt"

	"github.com/fd1az/arbitrage-executor/internal/apperror"
)

// WithdrawPolicy decides what happens to profit held by the strategy contract.
type WithdrawPolicy string

const (
	// PolicyAlertOnly alerts and resets on threshold. Moving funds needs an
	// explicit withdraw run.
	PolicyAlertOnly WithdrawPolicy = "alert_only"
	// PolicyEveryTrade appends the withdraw call to every trade bundle.
	PolicyEveryTrade WithdrawPolicy = "every_trade"
	// PolicyOnThreshold sends a withdraw-only bundle in the tick that
	// crossed the threshold.
	PolicyOnThreshold WithdrawPolicy = "on_threshold"
)

// ParseWithdrawPolicy validates s. Empty means PolicyAlertOnly.
func ParseWithdrawPolicy(s string) (WithdrawPolicy, error) {
	switch p := WithdrawPolicy(s); p {
	case "":
		return PolicyAlertOnly, nil
	case PolicyAlertOnly, PolicyEveryTrade, PolicyOnThreshold:
		return p, nil
	default:
		return "", apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf("unknown withdraw policy %q", s)))
	}
}

// BundleWithTrade reports whether the trade bundle carries the withdraw call.
func (p WithdrawPolicy) BundleWithTrade() bool {
	return p == PolicyEveryTrade
}

// WithdrawOnCrossing reports whether a threshold crossing sends a separate
// withdraw bundle.
func (p WithdrawPolicy) WithdrawOnCrossing() bool {
	return p == PolicyOnThreshold
}
