// Package main prints the V2 pair state the executor trades against.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/arbitrage-executor/business/blockchain"
	"github.com/fd1az/arbitrage-executor/business/pricing"
	pricingApp "github.com/fd1az/arbitrage-executor/business/pricing/app"
	pricingDI "github.com/fd1az/arbitrage-executor/business/pricing/di"
	"github.com/fd1az/arbitrage-executor/internal/asset"
	"github.com/fd1az/arbitrage-executor/internal/config"
	"github.com/fd1az/arbitrage-executor/internal/logger"
	"github.com/fd1az/arbitrage-executor/internal/monolith"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	amounts, err := cfg.Amounts()
	if err != nil {
		return err
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name+"-inspect", nil)

	mono := monolith.New(cfg, log)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mono.Close(closeCtx)
	}()

	if err := mono.RegisterModules(&blockchain.Module{}, &pricing.Module{}); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	venues := []pricingApp.Venue{{Name: "A", Factory: cfg.Contracts.FactoryAAddress()}}
	if cfg.Contracts.FactoryB != "" {
		venues = append(venues, pricingApp.Venue{Name: "B", Factory: cfg.Contracts.FactoryBAddress()})
	}

	inspector := pricingDI.GetInspector(mono.Services())
	tokenIn, tokenOut := cfg.Contracts.TokenInAddress(), cfg.Contracts.TokenOutAddress()
	s := cfg.Strategy

	fmt.Printf("network %s (chain %d)\n", cfg.Network.Name, cfg.Network.ChainID)
	fmt.Printf("pair    %s/%s  trade size %s %s\n\n",
		s.TokenInSymbol, s.TokenOutSymbol, asset.FormatUnits(amounts.TradeSize, s.TokenInDecimals), s.TokenInSymbol)

	var failed int
	for _, v := range venues {
		report, err := inspector.Inspect(ctx, v, tokenIn, tokenOut, amounts.TradeSize)
		if err != nil {
			failed++
			fmt.Printf("venue %s  factory %s\n  error: %v\n\n", v.Name, v.Factory.Hex(), err)
			continue
		}
		printReport(report, s)
	}

	if failed == len(venues) {
		return fmt.Errorf("no venue could be inspected")
	}
	return nil
}

func printReport(r pricingApp.PoolReport, s config.StrategyConfig) {
	fmt.Printf("venue %s  factory %s\n", r.Venue.Name, r.Venue.Factory.Hex())
	fmt.Printf("  pair        %s\n", r.Reserves.Pair.Hex())
	fmt.Printf("  token0      %s\n", r.Reserves.Token0.Hex())
	fmt.Printf("  token1      %s\n", r.Reserves.Token1.Hex())
	fmt.Printf("  reserve in  %s %s\n", asset.FormatUnits(r.ReserveIn, s.TokenInDecimals), s.TokenInSymbol)
	fmt.Printf("  reserve out %s %s\n", asset.FormatUnits(r.ReserveOut, s.TokenOutDecimals), s.TokenOutSymbol)
	if r.Reserves.BlockTimestampLast != 0 {
		fmt.Printf("  updated     %s\n", time.Unix(int64(r.Reserves.BlockTimestampLast), 0).UTC().Format(time.RFC3339))
	}
	fmt.Printf("  quote       %s %s -> %s %s\n\n",
		asset.FormatUnits(r.AmountIn, s.TokenInDecimals), s.TokenInSymbol,
		asset.FormatUnits(r.AmountOut, s.TokenOutDecimals), s.TokenOutSymbol)
}
