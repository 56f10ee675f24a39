package chain

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

// offlineClient has no backend: any network call panics and fails the test.
func offlineClient(t *testing.T) *EscrowClient {
	t.Helper()
	c, err := NewEscrowClient(nil, Options{ChainID: 31337}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestValidationHappensBeforeNetwork(t *testing.T) {
	c := offlineClient(t)
	ctx := context.Background()
	escrow := "0x00000000000000000000000000000000000000aa"

	_, err := c.Split(ctx, escrow, testKey, 101)
	assert.ErrorIs(t, err, ErrInvalidPercent)

	_, err = c.Split(ctx, escrow, testKey, -5)
	assert.ErrorIs(t, err, ErrInvalidPercent)

	_, err = c.AnchorDraftProof(ctx, escrow, testKey, "submit", "not-a-hash", "")
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = c.AnchorDraftProof(ctx, escrow, testKey, "revise", strings.Repeat("a", 64), "0x12")
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = c.Release(ctx, "not-an-address", testKey)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = c.Refund(ctx, escrow, "zz")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = c.FundDeposit(ctx, escrow, testKey, big.NewInt(0))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = c.SendValue(ctx, testKey, escrow, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, _, err = c.DeployEscrow(ctx, testKey, DeployParams{})
	assert.ErrorIs(t, err, ErrNoBytecode)
}

func TestDecodeLog(t *testing.T) {
	c := offlineClient(t)
	beneficiary := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	amount, _ := new(big.Int).SetString("2000000000000000000000", 10)

	released := c.abi.Events["Released"]
	data, err := released.Inputs.NonIndexed().Pack(amount)
	require.NoError(t, err)

	lg := types.Log{
		Topics:      []common.Hash{released.ID, common.BytesToHash(beneficiary.Bytes())},
		Data:        data,
		BlockNumber: 12,
		TxHash:      common.HexToHash("0xabc"),
		Index:       3,
	}

	ev, ok, err := c.DecodeLog(lg)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Released", ev.Name)
	assert.Equal(t, uint64(12), ev.BlockNumber)
	assert.Equal(t, uint(3), ev.LogIndex)
	assert.Equal(t, lg.TxHash.Hex(), ev.TxHash)
	assert.Equal(t, beneficiary, ev.Args["beneficiary"])
	assert.Equal(t, 0, amount.Cmp(ev.Args["amount"].(*big.Int)))

	payload := NormalizePayload(ev.Args)
	assert.Equal(t, "2000000000000000000000", payload["amount"])
	assert.Equal(t, beneficiary.Hex(), payload["beneficiary"])
}

func TestDecodeLogSkipsForeignTopics(t *testing.T) {
	c := offlineClient(t)

	_, ok, err := c.DecodeLog(types.Log{Topics: []common.Hash{common.HexToHash("0xdeadbeef")}})
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.DecodeLog(types.Log{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnconfirmedErrorIs(t *testing.T) {
	var err error = &UnconfirmedError{Op: "release", TxHash: "0x01", Err: context.DeadlineExceeded}
	assert.True(t, errors.Is(err, ErrUnconfirmed))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	var ue *UnconfirmedError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "0x01", ue.TxHash)
}

func TestLoadBytecode(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"hardhat", `{"abi": [], "bytecode": "0x6080"}`, false},
		{"foundry", `{"abi": [], "bytecode": {"object": "0x6080"}}`, false},
		{"bare hex", "6080\n", false},
		{"missing", `{"abi": []}`, true},
		{"empty", `{"bytecode": "0x"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := LoadBytecode(write(tt.name+".json", tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []byte{0x60, 0x80}, code)
		})
	}
}

func TestWalletKeys(t *testing.T) {
	w, err := GenerateWallet()
	require.NoError(t, err)
	assert.True(t, common.IsHexAddress(w.Address))

	addr, err := AddressFromKey(w.PrivateKeyHex)
	require.NoError(t, err)
	assert.Equal(t, w.Address, addr)

	_, err = ParsePrivateKey("")
	assert.ErrorIs(t, err, ErrInvalidKey)
}
