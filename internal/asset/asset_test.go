package asset_test

import (
	"errors"
	"testing"

	"github.com/fd1az/arbitrage-executor/internal/asset"
)

func TestUnits_SignedRoundTrip(t *testing.T) {
	tests := []struct {
		in       string
		decimals uint8
		raw      string
	}{
		{"0.0003", 18, "300000000000000"},
		{"-0.0007", 18, "-700000000000000"},
		{"0.2", 18, "200000000000000000"},
		{"1.5", 6, "1500000"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			raw, err := asset.ParseUnits(tt.in, tt.decimals)
			if err != nil {
				t.Fatalf("ParseUnits: %v", err)
			}
			if raw.String() != tt.raw {
				t.Errorf("raw = %s, want %s", raw, tt.raw)
			}
			if got := asset.FormatUnits(raw, tt.decimals); got != tt.in {
				t.Errorf("FormatUnits = %s, want %s", got, tt.in)
			}
		})
	}

	if _, err := asset.ParseUnits("0.1234567", 6); !errors.Is(err, asset.ErrTooManyDecimals) {
		t.Errorf("expected ErrTooManyDecimals, got %v", err)
	}
}

func TestAssetID_Identity(t *testing.T) {
	a := asset.NewTokenAssetID(asset.ChainIDArbitrum, asset.AddrWETHArbitrum)
	b := asset.NewTokenAssetID(asset.ChainIDArbitrum, asset.AddrWETHArbitrum)
	if !a.Equals(b) {
		t.Error("same token should have equal IDs")
	}

	other := asset.NewTokenAssetID(asset.ChainIDSepolia, asset.AddrWETHArbitrum)
	if a.Equals(other) {
		t.Error("different chains should have different IDs")
	}
}

func TestRegistry(t *testing.T) {
	r := asset.DefaultRegistry()

	eth, ok := r.GetNative(asset.ChainIDArbitrum)
	if !ok || eth.Symbol() != "ETH" {
		t.Fatalf("arbitrum ETH not found: %v", eth)
	}

	usdc, ok := r.GetBySymbolAndChain("USDC", asset.ChainIDArbitrum)
	if !ok || usdc.Decimals() != 6 {
		t.Fatalf("USDC lookup failed: %v", usdc)
	}

	before := r.Count()
	known := r.Ensure(asset.ChainIDArbitrum, asset.AddrWETHArbitrum, "IGNORED", 0)
	if known != asset.WETHArbitrum || r.Count() != before {
		t.Error("Ensure should return the existing token")
	}

	custom := r.Ensure(asset.ChainIDHardhat, asset.AddrWETHSepolia, "TKA", 18)
	if custom.Symbol() != "TKA" || r.Count() != before+1 {
		t.Error("Ensure should register unknown tokens")
	}

	native := asset.NativeFor(r, asset.ChainIDHardhat)
	if !native.IsNative() || native.Decimals() != 18 {
		t.Errorf("unexpected native asset %v", native)
	}
	if !asset.IsTestnet(asset.ChainIDHardhat) || asset.IsTestnet(asset.ChainIDArbitrum) {
		t.Error("IsTestnet misclassifies chains")
	}
}

func TestWrappedNative(t *testing.T) {
	if got, ok := asset.WrappedNative(asset.ChainIDArbitrum); !ok || got != asset.AddrWETHArbitrum {
		t.Errorf("arbitrum = %s, %v", got.Hex(), ok)
	}
	if got, ok := asset.WrappedNative(asset.ChainIDSepolia); !ok || got != asset.AddrWETHSepolia {
		t.Errorf("sepolia = %s, %v", got.Hex(), ok)
	}
	if _, ok := asset.WrappedNative(asset.ChainIDHardhat); ok {
		t.Error("hardhat has no canonical wrapped native")
	}
}
