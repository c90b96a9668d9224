package idhash

import (
	"testing"
)

func TestComputeTradeID(t *testing.T) {
	tests := []struct {
		name      string
		marketID  string
		walletID  string
		side      string
		direction string
		timestamp int64
		size      float64
		wantLen   int // hash length should be 64
	}{
		{
			name:      "yes open",
			marketID:  "mkt-election-2024",
			walletID:  "0xabc123",
			side:      "yes",
			direction: "open",
			timestamp: 1704067234567,
			size:      150.5,
			wantLen:   64,
		},
		{
			name:      "no close",
			marketID:  "mkt-rates-dec",
			walletID:  "0xdef456",
			side:      "no",
			direction: "close",
			timestamp: 1704067300000,
			size:      42,
			wantLen:   64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTradeID(tt.marketID, tt.walletID, tt.side, tt.direction, tt.timestamp, tt.size)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeTradeID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeTradeID(tt.marketID, tt.walletID, tt.side, tt.direction, tt.timestamp, tt.size)
			if got != got2 {
				t.Errorf("ComputeTradeID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeTradeID_DifferentInputs(t *testing.T) {
	base := ComputeTradeID("market", "wallet", "yes", "open", 1000, 1)

	diffMarket := ComputeTradeID("other_market", "wallet", "yes", "open", 1000, 1)
	if base == diffMarket {
		t.Error("Different market should produce different hash")
	}

	diffWallet := ComputeTradeID("market", "other_wallet", "yes", "open", 1000, 1)
	if base == diffWallet {
		t.Error("Different wallet should produce different hash")
	}

	diffSide := ComputeTradeID("market", "wallet", "no", "open", 1000, 1)
	if base == diffSide {
		t.Error("Different side should produce different hash")
	}

	diffTime := ComputeTradeID("market", "wallet", "yes", "open", 2000, 1)
	if base == diffTime {
		t.Error("Different timestamp should produce different hash")
	}

	diffSize := ComputeTradeID("market", "wallet", "yes", "open", 1000, 2)
	if base == diffSize {
		t.Error("Different size should produce different hash")
	}
}
