package chain

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const (
	draftProofPrefix = "escrow-draft-proof:v1"
	readRetries      = 3
)

// Backend is the subset of the JSON-RPC client the escrow client needs.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Receipt is a confirmed ledger transaction.
type Receipt struct {
	TxHash          string `json:"tx_hash"`
	BlockNumber     uint64 `json:"block_number"`
	GasUsed         uint64 `json:"gas_used"`
	ContractAddress string `json:"contract_address,omitempty"`
}

// DeployParams are the constructor arguments of a project escrow.
type DeployParams struct {
	Client      string
	Beneficiary string
	Admin       string
	DepositWei  *big.Int
	BalanceWei  *big.Int
}

// Event is a decoded escrow contract log.
type Event struct {
	Name        string
	TxHash      string
	BlockNumber uint64
	LogIndex    uint
	Args        map[string]any
}

// EscrowClient performs typed operations against escrow contracts. Every
// mutating call submits a transaction and blocks until its receipt is mined or
// the confirmation timeout elapses.
type EscrowClient struct {
	backend        Backend
	abi            abi.ABI
	bytecode       []byte
	chainID        *big.Int
	confirmTimeout time.Duration
	log            *zap.Logger
}

type Options struct {
	ChainID        int64
	ConfirmTimeout time.Duration
	Bytecode       []byte
}

func NewEscrowClient(backend Backend, opts Options, log *zap.Logger) (*EscrowClient, error) {
	parsed, err := ParseEscrowABI()
	if err != nil {
		return nil, fmt.Errorf("parse escrow abi: %w", err)
	}
	timeout := opts.ConfirmTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &EscrowClient{
		backend:        backend,
		abi:            parsed,
		bytecode:       opts.Bytecode,
		chainID:        big.NewInt(opts.ChainID),
		confirmTimeout: timeout,
		log:            log,
	}, nil
}

// Dial connects to the JSON-RPC endpoint and verifies the chain identifier.
func Dial(ctx context.Context, rpcURL string, chainID int64, log *zap.Logger) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("connect to ledger %s: %w", rpcURL, err)
	}
	remote, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("query chain id: %w", err)
	}
	if remote.Int64() != chainID {
		client.Close()
		return nil, fmt.Errorf("chain id mismatch: configured %d, endpoint reports %s", chainID, remote)
	}
	log.Info("ledger connected", zap.String("rpc", rpcURL), zap.Int64("chain_id", chainID))
	return client, nil
}

// --- escrow operations ---

func (c *EscrowClient) DeployEscrow(ctx context.Context, deployerKey string, p DeployParams) (string, *Receipt, error) {
	if len(c.bytecode) == 0 {
		return "", nil, ErrNoBytecode
	}
	for _, a := range []string{p.Client, p.Beneficiary, p.Admin} {
		if !common.IsHexAddress(a) {
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidAddress, a)
		}
	}
	if p.DepositWei == nil || p.BalanceWei == nil || p.DepositWei.Sign() < 0 || p.BalanceWei.Sign() < 0 {
		return "", nil, ErrInvalidAmount
	}
	opts, err := c.transactOpts(ctx, deployerKey, nil)
	if err != nil {
		return "", nil, err
	}

	addr, tx, _, err := bind.DeployContract(opts, c.abi, c.bytecode, c.backend,
		common.HexToAddress(p.Client),
		common.HexToAddress(p.Beneficiary),
		common.HexToAddress(p.Admin),
		p.DepositWei,
		p.BalanceWei,
	)
	if err != nil {
		return "", nil, fmt.Errorf("deploy escrow: submit: %w", err)
	}
	c.log.Info("escrow deployment submitted",
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.String("address", addr.Hex()),
	)

	receipt, err := c.waitConfirmed(ctx, "deploy", tx)
	if err != nil {
		return "", nil, err
	}
	if receipt.ContractAddress == "" {
		receipt.ContractAddress = addr.Hex()
	}
	return receipt.ContractAddress, receipt, nil
}

func (c *EscrowClient) FundDeposit(ctx context.Context, address, payerKey string, amountWei *big.Int) (*Receipt, error) {
	if amountWei == nil || amountWei.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	return c.transact(ctx, address, payerKey, amountWei, "fundDeposit")
}

func (c *EscrowClient) FundBalance(ctx context.Context, address, payerKey string, amountWei *big.Int) (*Receipt, error) {
	if amountWei == nil || amountWei.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	return c.transact(ctx, address, payerKey, amountWei, "fundBalance")
}

func (c *EscrowClient) RecordDepositFiat(ctx context.Context, address, adminKey string) (*Receipt, error) {
	return c.transact(ctx, address, adminKey, nil, "recordDepositFiat")
}

func (c *EscrowClient) RecordBalanceFiat(ctx context.Context, address, adminKey string) (*Receipt, error) {
	return c.transact(ctx, address, adminKey, nil, "recordBalanceFiat")
}

func (c *EscrowClient) Release(ctx context.Context, address, adminKey string) (*Receipt, error) {
	return c.transact(ctx, address, adminKey, nil, "release")
}

func (c *EscrowClient) Refund(ctx context.Context, address, adminKey string) (*Receipt, error) {
	return c.transact(ctx, address, adminKey, nil, "refund")
}

func (c *EscrowClient) Split(ctx context.Context, address, adminKey string, clientPercent int) (*Receipt, error) {
	if _, _, err := SplitShares(clientPercent); err != nil {
		return nil, err
	}
	return c.transact(ctx, address, adminKey, nil, "split", uint8(clientPercent))
}

func (c *EscrowClient) Pause(ctx context.Context, address, adminKey string) (*Receipt, error) {
	return c.transact(ctx, address, adminKey, nil, "pause")
}

func (c *EscrowClient) Unpause(ctx context.Context, address, adminKey string) (*Receipt, error) {
	return c.transact(ctx, address, adminKey, nil, "unpause")
}

type draftProof struct {
	Escrow   string `json:"escrow"`
	Action   string `json:"action"`
	Hash     string `json:"hash"`
	Previous string `json:"prev,omitempty"`
}

// AnchorDraftProof timestamps a document revision with a zero-value
// self-transaction from the actor whose calldata carries the content hash and an
// optional back-reference. Hashes are validated before anything is sent.
func (c *EscrowClient) AnchorDraftProof(ctx context.Context, address, actorKey, action, draftHash, previousHash string) (*Receipt, error) {
	hash, err := NormalizeHash(draftHash)
	if err != nil {
		return nil, err
	}
	prev, err := NormalizeOptionalHash(previousHash)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, fmt.Errorf("draft proof action is required")
	}

	key, err := ParsePrivateKey(actorKey)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(draftProof{
		Escrow:   common.HexToAddress(address).Hex(),
		Action:   action,
		Hash:     hash,
		Previous: prev,
	})
	if err != nil {
		return nil, err
	}
	data := append([]byte(draftProofPrefix), body...)

	self := crypto.PubkeyToAddress(key.PublicKey)
	return c.sendRaw(ctx, "anchorDraftProof", key, self, big.NewInt(0), data)
}

// --- wallet primitives ---

// BalanceAt returns the confirmed balance of an account in wei.
func (c *EscrowClient) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	var balance *big.Int
	err := c.retryRead(ctx, func() error {
		var err error
		balance, err = c.backend.BalanceAt(ctx, common.HexToAddress(address), nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", address, err)
	}
	return balance, nil
}

// SendValue transfers base currency and waits for confirmation.
func (c *EscrowClient) SendValue(ctx context.Context, fromKey, to string, amountWei *big.Int) (*Receipt, error) {
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, to)
	}
	if amountWei == nil || amountWei.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	key, err := ParsePrivateKey(fromKey)
	if err != nil {
		return nil, err
	}
	return c.sendRaw(ctx, "sendValue", key, common.HexToAddress(to), amountWei, nil)
}

// --- event log ---

// HeadBlock returns the current chain head.
func (c *EscrowClient) HeadBlock(ctx context.Context) (uint64, error) {
	var head uint64
	err := c.retryRead(ctx, func() error {
		var err error
		head, err = c.backend.BlockNumber(ctx)
		return err
	})
	return head, err
}

// FetchEvents returns decoded escrow events emitted by address in [from, to].
// Logs whose signature is not part of the escrow interface are skipped.
func (c *EscrowClient) FetchEvents(ctx context.Context, address string, from, to uint64) ([]Event, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{common.HexToAddress(address)},
	}

	var logs []types.Log
	err := c.retryRead(ctx, func() error {
		var err error
		logs, err = c.backend.FilterLogs(ctx, query)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("filter logs of %s: %w", address, err)
	}

	events := make([]Event, 0, len(logs))
	for _, lg := range logs {
		ev, ok, err := c.DecodeLog(lg)
		if err != nil {
			c.log.Warn("failed to decode escrow log",
				zap.String("tx_hash", lg.TxHash.Hex()),
				zap.Uint("log_index", lg.Index),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// DecodeLog decodes a single escrow log. ok is false for foreign signatures.
func (c *EscrowClient) DecodeLog(lg types.Log) (Event, bool, error) {
	if len(lg.Topics) == 0 {
		return Event{}, false, nil
	}
	abiEvent, err := c.abi.EventByID(lg.Topics[0])
	if err != nil {
		return Event{}, false, nil
	}

	args := make(map[string]any)
	if len(lg.Data) > 0 {
		if err := abiEvent.Inputs.UnpackIntoMap(args, lg.Data); err != nil {
			return Event{}, false, fmt.Errorf("unpack %s data: %w", abiEvent.Name, err)
		}
	}
	var indexed abi.Arguments
	for _, in := range abiEvent.Inputs {
		if in.Indexed {
			indexed = append(indexed, in)
		}
	}
	if len(indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(args, indexed, lg.Topics[1:]); err != nil {
			return Event{}, false, fmt.Errorf("parse %s topics: %w", abiEvent.Name, err)
		}
	}

	return Event{
		Name:        abiEvent.Name,
		TxHash:      lg.TxHash.Hex(),
		BlockNumber: lg.BlockNumber,
		LogIndex:    lg.Index,
		Args:        args,
	}, true, nil
}

// --- helpers ---

func (c *EscrowClient) transact(ctx context.Context, address, keyHex string, value *big.Int, method string, args ...any) (*Receipt, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	opts, err := c.transactOpts(ctx, keyHex, value)
	if err != nil {
		return nil, err
	}

	contract := bind.NewBoundContract(common.HexToAddress(address), c.abi, c.backend, c.backend, c.backend)
	tx, err := contract.Transact(opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: submit: %w", method, err)
	}
	c.log.Info("escrow transaction submitted",
		zap.String("method", method),
		zap.String("escrow", address),
		zap.String("tx_hash", tx.Hash().Hex()),
	)
	return c.waitConfirmed(ctx, method, tx)
}

func (c *EscrowClient) transactOpts(ctx context.Context, keyHex string, value *big.Int) (*bind.TransactOpts, error) {
	key, err := ParsePrivateKey(keyHex)
	if err != nil {
		return nil, err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx
	opts.Value = value
	return opts, nil
}

func (c *EscrowClient) sendRaw(ctx context.Context, op string, key *ecdsa.PrivateKey, to common.Address, value *big.Int, data []byte) (*Receipt, error) {
	from := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("%s: nonce: %w", op, err)
	}
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%s: estimate gas: %w", op, err)
	}
	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: head: %w", op, err)
	}

	var txData types.TxData
	if head.BaseFee != nil {
		tip, err := c.backend.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: gas tip: %w", op, err)
		}
		feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
		txData = &types.DynamicFeeTx{
			ChainID:   c.chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gas,
			To:        &to,
			Value:     value,
			Data:      data,
		}
	} else {
		price, err := c.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: gas price: %w", op, err)
		}
		txData = &types.LegacyTx{Nonce: nonce, GasPrice: price, Gas: gas, To: &to, Value: value, Data: data}
	}

	signed, err := types.SignTx(types.NewTx(txData), types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return nil, fmt.Errorf("%s: sign: %w", op, err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("%s: submit: %w", op, err)
	}
	c.log.Info("ledger transaction submitted",
		zap.String("op", op),
		zap.String("from", from.Hex()),
		zap.String("to", to.Hex()),
		zap.String("tx_hash", signed.Hash().Hex()),
	)
	return c.waitConfirmed(ctx, op, signed)
}

// waitConfirmed blocks until the receipt is mined. A missing receipt at the
// deadline yields *UnconfirmedError: the transaction may still land.
func (c *EscrowClient) waitConfirmed(ctx context.Context, op string, tx *types.Transaction) (*Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	rcpt, err := bind.WaitMined(waitCtx, c.backend, tx)
	if err != nil {
		if waitCtx.Err() != nil {
			c.log.Warn("ledger confirmation timed out, outcome unknown",
				zap.String("op", op),
				zap.String("tx_hash", tx.Hash().Hex()),
				zap.Duration("timeout", c.confirmTimeout),
			)
			return nil, &UnconfirmedError{Op: op, TxHash: tx.Hash().Hex(), Err: err}
		}
		return nil, fmt.Errorf("%s: wait for receipt: %w", op, err)
	}
	if rcpt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s tx %s", ErrReverted, op, tx.Hash().Hex())
	}

	r := &Receipt{
		TxHash:  rcpt.TxHash.Hex(),
		GasUsed: rcpt.GasUsed,
	}
	if rcpt.BlockNumber != nil {
		r.BlockNumber = rcpt.BlockNumber.Uint64()
	}
	if rcpt.ContractAddress != (common.Address{}) {
		r.ContractAddress = rcpt.ContractAddress.Hex()
	}
	return r, nil
}

func (c *EscrowClient) retryRead(ctx context.Context, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), readRetries), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && errors.Is(err, context.Canceled) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}
