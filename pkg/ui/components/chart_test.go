package components

import (
	"testing"
	"unicode/utf8"
)

func TestProfitChart_Sparkline(t *testing.T) {
	tests := []struct {
		name   string
		points []float64
		want   string
	}{
		{"empty", nil, ""},
		{"flat", []float64{1, 1, 1}, "▁▁▁"},
		{"rising", []float64{0, 0.5, 1}, "▁▄█"},
		{"negative", []float64{-1, 1}, "▁█"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewProfitChart(10, "WETH")
			for _, p := range tt.points {
				c.Push(p)
			}
			if got := c.Sparkline(); got != tt.want {
				t.Errorf("Sparkline() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProfitChart_KeepsWidth(t *testing.T) {
	c := NewProfitChart(4, "WETH")
	for i := 0; i < 10; i++ {
		c.Push(float64(i))
	}
	if got := len(c.Points()); got != 4 {
		t.Fatalf("len(Points()) = %d, want 4", got)
	}
	if c.Points()[0] != 6 {
		t.Errorf("oldest point = %v, want 6", c.Points()[0])
	}
	if n := utf8.RuneCountInString(c.Sparkline()); n != 4 {
		t.Errorf("sparkline runes = %d, want 4", n)
	}
}

func TestTradesComponent_KeepsMaxRows(t *testing.T) {
	c := NewTradesComponent(2)
	for i := uint64(1); i <= 3; i++ {
		c.Add(TradeRow{Index: i, TxHash: "0x1234567890abcdef1234"})
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if c.rows[0].Index != 3 {
		t.Errorf("newest first: got %d", c.rows[0].Index)
	}
	if got := shortHash("0x1234567890abcdef1234"); got != "0x123456…1234" {
		t.Errorf("shortHash = %q", got)
	}
}
