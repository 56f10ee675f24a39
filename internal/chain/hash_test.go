package chain

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeHash(t *testing.T) {
	lower := strings.Repeat("ab", 32)
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"lowercase", lower, lower, false},
		{"uppercase", strings.ToUpper(lower), lower, false},
		{"0x prefix", "0x" + lower, lower, false},
		{"0X prefix mixed case", "0X" + strings.Repeat("aB", 32), lower, false},
		{"surrounding spaces", "  " + lower + " ", lower, false},
		{"too short", lower[:62], "", true},
		{"too long", lower + "00", "", true},
		{"non hex", strings.Repeat("zz", 32), "", true},
		{"empty", "", "", true},
		{"prefix only", "0x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeHash(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidHash) {
					t.Fatalf("NormalizeHash(%q) error = %v, want ErrInvalidHash", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeHash(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeHash(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeOptionalHash(t *testing.T) {
	got, err := NormalizeOptionalHash("   ")
	if err != nil || got != "" {
		t.Fatalf("empty back-reference: got %q, %v", got, err)
	}
	if _, err := NormalizeOptionalHash("0x1234"); !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}
