package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	arbDomain "github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/asset"
)

func units(s string) *big.Int {
	return asset.MustParseUnits(s, 18)
}

func sim(profit string) arbDomain.SimulationResult {
	return arbDomain.SimulationResult{EstimatedProfit: units(profit), Source: arbDomain.SourceOnchain, OK: true}
}

func receipt(hashByte byte, gasUsed uint64, price *big.Int) arbDomain.ExecutionReceipt {
	return arbDomain.ExecutionReceipt{
		GasUsed:           gasUsed,
		EffectiveGasPrice: price,
		Success:           true,
		TxHashes:          []common.Hash{{hashByte}},
	}
}

func newLedger(t *testing.T, threshold string) *Ledger {
	t.Helper()
	l, err := NewLedger(units(threshold))
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	return l
}

// Scenario B: 0.0003 profit, 100000 gas at 1e-8 token units per gas.
func TestLedger_RecordNetProfitExact(t *testing.T) {
	l := newLedger(t, "0.2")

	entry, err := l.RecordEntry(sim("0.0003"), receipt(1, 100_000, units("0.00000001")))
	if err != nil {
		t.Fatalf("RecordEntry: %v", err)
	}

	if got, want := entry.GasCost.String(), units("0.001").String(); got != want {
		t.Errorf("gas cost = %s, want %s", got, want)
	}
	if got, want := entry.NetProfit.String(), units("-0.0007").String(); got != want {
		t.Errorf("net profit = %s, want %s", got, want)
	}
	if entry.Index != 1 || entry.DidWithdraw {
		t.Errorf("entry = %+v", entry)
	}

	st := l.State()
	if st.TradeCount != 1 {
		t.Errorf("trade count = %d, want 1", st.TradeCount)
	}
	if st.CumulativeNetProfit.Cmp(units("-0.0007")) != 0 {
		t.Errorf("cumulative = %s", st.CumulativeNetProfit)
	}
}

// Scenario C: cumulative 0.19 plus 0.02 crosses 0.2.
func TestLedger_ThresholdResets(t *testing.T) {
	l := newLedger(t, "0.2")

	if _, did, err := l.Record(sim("0.19"), receipt(1, 0, big.NewInt(0))); err != nil || did {
		t.Fatalf("first record: did=%v err=%v", did, err)
	}
	net, did, err := l.Record(sim("0.02"), receipt(2, 0, big.NewInt(0)))
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if !did {
		t.Error("expected threshold crossing")
	}
	if net.Cmp(units("0.02")) != 0 {
		t.Errorf("net = %s", net)
	}

	st := l.State()
	if st.CumulativeNetProfit.Sign() != 0 {
		t.Errorf("cumulative = %s, want 0", st.CumulativeNetProfit)
	}
	if st.TradeCount != 2 || st.Withdrawals != 1 {
		t.Errorf("state = %+v", st)
	}
}

func TestLedger_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		receipt arbDomain.ExecutionReceipt
		code    apperror.Code
	}{
		{
			name:    "unconfirmed",
			receipt: arbDomain.ExecutionReceipt{TxHashes: []common.Hash{{9}}},
			code:    apperror.CodeUnconfirmedRecord,
		},
		{
			name:    "no hash",
			receipt: arbDomain.ExecutionReceipt{Success: true},
			code:    apperror.CodeUnconfirmedRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t, "1")
			_, _, err := l.Record(sim("0.1"), tt.receipt)
			if !apperror.HasCode(err, tt.code) {
				t.Fatalf("err = %v, want %s", err, tt.code)
			}
			if l.State().TradeCount != 0 {
				t.Error("rejected record must not count")
			}
		})
	}
}

func TestLedger_NoDoubleRecord(t *testing.T) {
	l := newLedger(t, "1")
	r := receipt(7, 21_000, big.NewInt(1))

	if _, _, err := l.Record(sim("0.1"), r); err != nil {
		t.Fatalf("first record: %v", err)
	}
	before := l.State()

	_, _, err := l.Record(sim("0.1"), r)
	if !apperror.HasCode(err, apperror.CodeDuplicateRecord) {
		t.Fatalf("err = %v, want duplicate", err)
	}

	after := l.State()
	if after.TradeCount != before.TradeCount || after.CumulativeNetProfit.Cmp(before.CumulativeNetProfit) != 0 {
		t.Errorf("state changed on duplicate: %+v -> %+v", before, after)
	}
}

func TestLedger_ReplayMatchesRecording(t *testing.T) {
	profits := []string{"0.05", "0.07", "-0.01", "0.1", "0.03", "0.15", "0.04", "-0.02", "0.01"}
	threshold := units("0.2")

	l, err := NewLedger(threshold)
	if err != nil {
		t.Fatal(err)
	}
	var nets []*big.Int
	withdrawals := 0
	for i, p := range profits {
		net, did, err := l.Record(sim(p), receipt(byte(i+1), 0, big.NewInt(0)))
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		nets = append(nets, net)
		if did {
			withdrawals++
		}
	}

	final, resets := Replay(threshold, nets)
	if final.Cmp(l.State().CumulativeNetProfit) != 0 {
		t.Errorf("replay = %s, ledger = %s", final, l.State().CumulativeNetProfit)
	}
	if resets != withdrawals {
		t.Errorf("replay resets = %d, ledger withdrawals = %d", resets, withdrawals)
	}
	// 0.05+0.07-0.01+0.1 = 0.21 resets; 0.03+0.15+0.04 = 0.22 resets; -0.02+0.01
	if want := units("-0.01"); final.Cmp(want) != 0 {
		t.Errorf("final = %s, want %s", final, want)
	}
	if resets != 2 {
		t.Errorf("resets = %d, want 2", resets)
	}
}

func TestApply_IsPure(t *testing.T) {
	tests := []struct {
		cumulative, net, threshold string
		want                       string
		crossed                    bool
	}{
		{"0.19", "0.02", "0.2", "0", true},
		{"0.1", "0.1", "0.2", "0", true},
		{"0.1", "0.05", "0.2", "0.15", false},
		{"0.1", "-0.3", "0.2", "-0.2", false},
	}

	for _, tt := range tests {
		c, n, th := units(tt.cumulative), units(tt.net), units(tt.threshold)
		got, crossed := Apply(c, n, th)
		if got.Cmp(units(tt.want)) != 0 || crossed != tt.crossed {
			t.Errorf("Apply(%s, %s, %s) = %s, %v", tt.cumulative, tt.net, tt.threshold, got, crossed)
		}
		if c.Cmp(units(tt.cumulative)) != 0 || n.Cmp(units(tt.net)) != 0 {
			t.Errorf("Apply mutated its inputs")
		}
	}
}

func TestNewLedger_ThresholdMustBePositive(t *testing.T) {
	for _, th := range []*big.Int{nil, big.NewInt(0), big.NewInt(-1)} {
		if _, err := NewLedger(th); !apperror.HasCode(err, apperror.CodeConfigurationError) {
			t.Errorf("NewLedger(%v) err = %v", th, err)
		}
	}
}

func TestWithdrawPolicy(t *testing.T) {
	tests := []struct {
		in         string
		want       WithdrawPolicy
		withTrade  bool
		onCrossing bool
		wantErr    bool
	}{
		{in: "", want: PolicyAlertOnly},
		{in: "alert_only", want: PolicyAlertOnly},
		{in: "every_trade", want: PolicyEveryTrade, withTrade: true},
		{in: "on_threshold", want: PolicyOnThreshold, onCrossing: true},
		{in: "sometimes", wantErr: true},
	}

	for _, tt := range tests {
		p, err := ParseWithdrawPolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseWithdrawPolicy(%q) err = %v", tt.in, err)
			continue
		}
		if tt.wantErr {
			continue
		}
		if p != tt.want || p.BundleWithTrade() != tt.withTrade || p.WithdrawOnCrossing() != tt.onCrossing {
			t.Errorf("ParseWithdrawPolicy(%q) = %q", tt.in, p)
		}
	}
}
