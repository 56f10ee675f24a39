package chain

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type ConnectOptions struct {
	RPCURL         string
	ChainID        int64
	ConfirmTimeout time.Duration
	ArtifactPath   string // empty disables deployment
}

// Connect dials the ledger and builds an escrow client on top of it. A missing
// or unreadable artifact only disables deployment. The returned func closes
// the connection.
func Connect(ctx context.Context, opts ConnectOptions, log *zap.Logger) (*EscrowClient, func(), error) {
	rpc, err := Dial(ctx, opts.RPCURL, opts.ChainID, log)
	if err != nil {
		return nil, nil, err
	}

	var bytecode []byte
	if opts.ArtifactPath != "" {
		bytecode, err = LoadBytecode(opts.ArtifactPath)
		if err != nil {
			log.Warn("escrow artifact not loaded, deployment disabled", zap.Error(err))
		}
	}

	client, err := NewEscrowClient(rpc, Options{
		ChainID:        opts.ChainID,
		ConfirmTimeout: opts.ConfirmTimeout,
		Bytecode:       bytecode,
	}, log)
	if err != nil {
		rpc.Close()
		return nil, nil, err
	}
	return client, rpc.Close, nil
}
