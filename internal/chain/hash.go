package chain

import (
	"encoding/hex"
	"strings"
)

const sha256HexLen = 64

// NormalizeHash validates a SHA-256 digest given as hex (any case, optional 0x
// prefix) and returns it lowercase without prefix.
func NormalizeHash(raw string) (string, error) {
	h := strings.TrimSpace(raw)
	if strings.HasPrefix(h, "0x") || strings.HasPrefix(h, "0X") {
		h = h[2:]
	}
	if len(h) != sha256HexLen {
		return "", ErrInvalidHash
	}
	h = strings.ToLower(h)
	if _, err := hex.DecodeString(h); err != nil {
		return "", ErrInvalidHash
	}
	return h, nil
}

// NormalizeOptionalHash is NormalizeHash for back-references: empty input stays empty.
func NormalizeOptionalHash(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return NormalizeHash(raw)
}
