// Package accounting implements the accounting bounded context: the
// in-memory profit ledger and the withdraw policy.
package accounting

import (
	"context"

	accountingDI "github.com/fd1az/arbitrage-executor/business/accounting/di"
	"github.com/fd1az/arbitrage-executor/business/accounting/domain"
	"github.com/fd1az/arbitrage-executor/internal/asset"
	"github.com/fd1az/arbitrage-executor/internal/config"
	"github.com/fd1az/arbitrage-executor/internal/di"
	"github.com/fd1az/arbitrage-executor/internal/monolith"
)

// Module implements the accounting bounded context.
type Module struct{}

// RegisterServices validates the policy and threshold up front so a bad
// value fails before the loop starts.
func (m *Module) RegisterServices(c di.Container) error {
	cfg := c.Get("config").(*config.Config)

	policy, err := domain.ParseWithdrawPolicy(string(cfg.Strategy.WithdrawPolicy))
	if err != nil {
		return err
	}
	amounts, err := cfg.Amounts()
	if err != nil {
		return err
	}
	ledger, err := domain.NewLedger(amounts.WithdrawThreshold)
	if err != nil {
		return err
	}

	di.RegisterToken(c, accountingDI.WithdrawPolicy, func(di.ServiceRegistry) domain.WithdrawPolicy {
		return policy
	})
	di.RegisterToken(c, accountingDI.Ledger, func(di.ServiceRegistry) *domain.Ledger {
		return ledger
	})
	return nil
}

// Startup logs the accounting parameters.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	ledger := accountingDI.GetLedger(mono.Services())
	mono.Logger().Info(ctx, "accounting module started",
		"withdraw_policy", string(accountingDI.GetWithdrawPolicy(mono.Services())),
		"withdraw_threshold", asset.FormatUnits(ledger.Threshold(), mono.Config().Strategy.TokenInDecimals),
	)
	return nil
}
