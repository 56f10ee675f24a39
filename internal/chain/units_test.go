package chain

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSplitShares(t *testing.T) {
	tests := []struct {
		percent     int
		client      int
		beneficiary int
		wantErr     bool
	}{
		{40, 40, 60, false},
		{0, 0, 100, false},
		{100, 100, 0, false},
		{-1, 0, 0, true},
		{101, 0, 0, true},
	}

	for _, tt := range tests {
		client, beneficiary, err := SplitShares(tt.percent)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidPercent) {
				t.Errorf("SplitShares(%d) error = %v, want ErrInvalidPercent", tt.percent, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("SplitShares(%d) unexpected error: %v", tt.percent, err)
			continue
		}
		if client != tt.client || beneficiary != tt.beneficiary {
			t.Errorf("SplitShares(%d) = (%d, %d), want (%d, %d)", tt.percent, client, beneficiary, tt.client, tt.beneficiary)
		}
	}
}

func TestWeiConversion(t *testing.T) {
	oneAndHalf := decimal.RequireFromString("1.5")
	wei := ToWei(oneAndHalf)
	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	if wei.Cmp(want) != 0 {
		t.Fatalf("ToWei(1.5) = %s, want %s", wei, want)
	}
	if back := FromWei(wei); !back.Equal(oneAndHalf) {
		t.Errorf("FromWei = %s, want 1.5", back)
	}

	// Dust below one wei is truncated.
	tiny := decimal.RequireFromString("0.0000000000000000019")
	if got := ToWei(tiny); got.Cmp(big.NewInt(1)) != 0 {
		t.Errorf("ToWei(%s) = %s, want 1", tiny, got)
	}

	if !FromWei(nil).IsZero() {
		t.Error("FromWei(nil) should be zero")
	}
}
