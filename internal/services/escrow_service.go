package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/milestone-escrow/backend/internal/chain"
	"github.com/milestone-escrow/backend/internal/events"
	"github.com/milestone-escrow/backend/internal/metrics"
	"github.com/milestone-escrow/backend/internal/models"
	"github.com/milestone-escrow/backend/internal/repositories"
	"go.uber.org/zap"
)

type ProjectStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	SetEscrowAddress(ctx context.Context, projectID uuid.UUID, address string, entry models.TimelineEntry) error
	SetPaused(ctx context.Context, projectID uuid.UUID, paused bool, entry models.TimelineEntry) error
	MarkDraftSubmitted(ctx context.Context, projectID uuid.UUID, reviewDueAt time.Time) error
	ApplyTransition(ctx context.Context, t *models.Transition) error
	RecordPayment(ctx context.Context, payment *models.Payment, entry *models.TimelineEntry) error
}

type TimelineStore interface {
	Append(ctx context.Context, e *models.TimelineEntry) error
}

// EscrowLedger is the escrow control interface. *chain.EscrowClient implements it.
type EscrowLedger interface {
	DeployEscrow(ctx context.Context, deployerKey string, p chain.DeployParams) (string, *chain.Receipt, error)
	FundDeposit(ctx context.Context, address, payerKey string, amountWei *big.Int) (*chain.Receipt, error)
	FundBalance(ctx context.Context, address, payerKey string, amountWei *big.Int) (*chain.Receipt, error)
	RecordDepositFiat(ctx context.Context, address, adminKey string) (*chain.Receipt, error)
	RecordBalanceFiat(ctx context.Context, address, adminKey string) (*chain.Receipt, error)
	Release(ctx context.Context, address, adminKey string) (*chain.Receipt, error)
	Refund(ctx context.Context, address, adminKey string) (*chain.Receipt, error)
	Split(ctx context.Context, address, adminKey string, clientPercent int) (*chain.Receipt, error)
	Pause(ctx context.Context, address, adminKey string) (*chain.Receipt, error)
	Unpause(ctx context.Context, address, adminKey string) (*chain.Receipt, error)
	AnchorDraftProof(ctx context.Context, address, actorKey, action, draftHash, previousHash string) (*chain.Receipt, error)
}

type Wallets interface {
	EnsureWallet(ctx context.Context, userID uuid.UUID) (*models.CustodialWallet, error)
	SigningKey(ctx context.Context, userID uuid.UUID) (*models.CustodialWallet, error)
	EnsureFunded(w *models.CustodialWallet)
}

type EscrowOptions struct {
	FunderKey    string // deploys contracts
	CompanyKey   string // its address is the beneficiary
	FiatPayments bool
	ReviewPeriod time.Duration
}

// DraftSubmitAction opens the review window when anchored on an in-progress project.
const DraftSubmitAction = "submit"

// EscrowService drives the project escrow lifecycle. Every transition is
// written locally only after the ledger confirmed it.
type EscrowService struct {
	projects  ProjectStore
	timeline  TimelineStore
	ledger    EscrowLedger
	wallets   Wallets
	gateway   *PaymentGateway
	publisher events.Publisher
	opts      EscrowOptions
	now       func() time.Time
	log       *zap.Logger
}

func NewEscrowService(
	projects ProjectStore,
	timeline TimelineStore,
	ledger EscrowLedger,
	wallets Wallets,
	gateway *PaymentGateway,
	publisher events.Publisher,
	opts EscrowOptions,
	log *zap.Logger,
) *EscrowService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if opts.ReviewPeriod <= 0 {
		opts.ReviewPeriod = 7 * 24 * time.Hour
	}
	return &EscrowService{
		projects:  projects,
		timeline:  timeline,
		ledger:    ledger,
		wallets:   wallets,
		gateway:   gateway,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
		log:       log,
	}
}

// settlement describes one terminal transition.
type settlement struct {
	to           string
	op           string
	paymentType  string
	timelineType string
	message      string
	notifyTitle  string
	notifyBody   string
	call         func(ctx context.Context, address, adminKey string) (*chain.Receipt, error)
}

func (s *EscrowService) Release(ctx context.Context, projectID, actorID uuid.UUID) (*models.Project, *chain.Receipt, error) {
	p, err := s.loadForAdmin(ctx, projectID, actorID)
	if err != nil {
		return nil, nil, err
	}
	return s.settle(ctx, p, &actorID, nil, settlement{
		to:           models.ProjectStatusReleased,
		op:           "release",
		paymentType:  models.PaymentTypeRelease,
		timelineType: models.TimelineFundsReleased,
		message:      "Escrow released to the beneficiary",
		notifyTitle:  "Funds released",
		notifyBody:   "The escrowed funds for your project were released.",
		call:         s.ledger.Release,
	})
}

func (s *EscrowService) Refund(ctx context.Context, projectID, actorID uuid.UUID) (*models.Project, *chain.Receipt, error) {
	p, err := s.loadForAdmin(ctx, projectID, actorID)
	if err != nil {
		return nil, nil, err
	}
	return s.settle(ctx, p, &actorID, nil, settlement{
		to:           models.ProjectStatusRefunded,
		op:           "refund",
		paymentType:  models.PaymentTypeRefund,
		timelineType: models.TimelineFundsRefunded,
		message:      "Escrow refunded to the client",
		notifyTitle:  "Funds refunded",
		notifyBody:   "The escrowed funds for your project were refunded to you.",
		call:         s.ledger.Refund,
	})
}

func (s *EscrowService) Split(ctx context.Context, projectID, actorID uuid.UUID, clientPercent int) (*models.Project, *chain.Receipt, error) {
	client, beneficiary, err := chain.SplitShares(clientPercent)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.loadForAdmin(ctx, projectID, actorID)
	if err != nil {
		return nil, nil, err
	}
	return s.settle(ctx, p, &actorID, nil, settlement{
		to:           models.ProjectStatusSplit,
		op:           "split",
		paymentType:  models.PaymentTypeSplit,
		timelineType: models.TimelineFundsSplit,
		message:      fmt.Sprintf("Escrow split: %d%% to the client, %d%% to the beneficiary", client, beneficiary),
		notifyTitle:  "Funds split",
		notifyBody:   fmt.Sprintf("The dispute was settled: %d%% of the escrow was returned to you.", client),
		call: func(ctx context.Context, address, adminKey string) (*chain.Receipt, error) {
			return s.ledger.Split(ctx, address, adminKey, clientPercent)
		},
	})
}

// AutoRelease releases an overdue project on behalf of the system, signing with
// the project administrator's wallet.
func (s *EscrowService) AutoRelease(ctx context.Context, p *models.Project, admin *models.CustodialWallet) (*chain.Receipt, error) {
	if !p.ReviewExpired(s.now()) {
		return nil, fmt.Errorf("review of project %s has not expired", p.ID)
	}
	_, receipt, err := s.settle(ctx, p, nil, admin, settlement{
		to:           models.ProjectStatusReleased,
		op:           "auto_release",
		paymentType:  models.PaymentTypeRelease,
		timelineType: models.TimelineReviewExpiredReleased,
		message:      "Review period expired, escrow released automatically",
		notifyTitle:  "Funds released",
		notifyBody:   "The review period ended without a response, so the escrowed funds were released.",
		call:         s.ledger.Release,
	})
	return receipt, err
}

func (s *EscrowService) settle(ctx context.Context, p *models.Project, actorID *uuid.UUID, admin *models.CustodialWallet, st settlement) (*models.Project, *chain.Receipt, error) {
	if err := checkMutable(p); err != nil {
		return nil, nil, err
	}
	if !models.IsValidTransition(p.Status, st.to) {
		return nil, nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, st.to)
	}

	if admin == nil {
		w, err := s.wallets.SigningKey(ctx, p.AdminID)
		if err != nil {
			return nil, nil, err
		}
		admin = w
	}
	s.wallets.EnsureFunded(admin)

	receipt, err := st.call(ctx, *p.EscrowAddress, admin.PrivateKeyHex)
	if err != nil {
		s.ledgerFailed(st.op, p, err)
		return nil, nil, fmt.Errorf("%s escrow: %w: %w", st.op, ErrLedger, err)
	}
	metrics.LedgerOperations.WithLabelValues(st.op, "confirmed").Inc()

	txHash := receipt.TxHash
	t := &models.Transition{
		ProjectID:  p.ID,
		FromStatus: p.Status,
		ToStatus:   st.to,
		Payment: models.Payment{
			ProjectID: p.ID,
			Type:      st.paymentType,
			Status:    models.PaymentStatusConfirmed,
			Amount:    p.EscrowTotal(),
			TxHash:    &txHash,
		},
		Timeline: models.TimelineEntry{
			ProjectID: p.ID,
			ActorID:   actorID,
			EventType: st.timelineType,
			Message:   st.message,
			TxHash:    &txHash,
		},
		Notification: models.Notification{
			UserID:    p.ClientID,
			ProjectID: &p.ID,
			Title:     st.notifyTitle,
			Body:      st.notifyBody,
		},
	}

	if err := s.projects.ApplyTransition(ctx, t); err != nil {
		// Ledger is final here; the record store must be reconciled from the tx hash.
		s.log.Error("escrow settled on ledger but local transition failed",
			zap.String("project_id", p.ID.String()),
			zap.String("op", st.op),
			zap.String("tx_hash", txHash),
			zap.Error(err),
		)
		return nil, receipt, fmt.Errorf("persist %s: %w", st.op, err)
	}

	from := p.Status
	updated := *p
	updated.Status = st.to

	s.log.Info("escrow settled",
		zap.String("project_id", p.ID.String()),
		zap.String("op", st.op),
		zap.String("from", from),
		zap.String("to", st.to),
		zap.String("tx_hash", txHash),
	)

	s.publishTransition(ctx, t)
	return &updated, receipt, nil
}

func (s *EscrowService) Pause(ctx context.Context, projectID, actorID uuid.UUID) (*models.Project, *chain.Receipt, error) {
	return s.setPaused(ctx, projectID, actorID, true)
}

func (s *EscrowService) Unpause(ctx context.Context, projectID, actorID uuid.UUID) (*models.Project, *chain.Receipt, error) {
	return s.setPaused(ctx, projectID, actorID, false)
}

func (s *EscrowService) setPaused(ctx context.Context, projectID, actorID uuid.UUID, paused bool) (*models.Project, *chain.Receipt, error) {
	p, err := s.loadForAdmin(ctx, projectID, actorID)
	if err != nil {
		return nil, nil, err
	}
	if models.IsTerminalStatus(p.Status) {
		return nil, nil, ErrTerminalStatus
	}
	if !p.HasEscrow() {
		return nil, nil, ErrNoEscrow
	}
	if paused && p.EscrowPaused {
		return nil, nil, ErrEscrowPaused
	}
	if !paused && !p.EscrowPaused {
		return nil, nil, ErrEscrowNotPaused
	}

	w, err := s.wallets.SigningKey(ctx, p.AdminID)
	if err != nil {
		return nil, nil, err
	}
	s.wallets.EnsureFunded(w)

	op, call, eventType, message := "pause", s.ledger.Pause, models.TimelineEscrowPaused, "Escrow paused"
	if !paused {
		op, call, eventType, message = "unpause", s.ledger.Unpause, models.TimelineEscrowUnpaused, "Escrow unpaused"
	}

	receipt, err := call(ctx, *p.EscrowAddress, w.PrivateKeyHex)
	if err != nil {
		s.ledgerFailed(op, p, err)
		return nil, nil, fmt.Errorf("%s escrow: %w: %w", op, ErrLedger, err)
	}
	metrics.LedgerOperations.WithLabelValues(op, "confirmed").Inc()

	txHash := receipt.TxHash
	entry := models.TimelineEntry{ProjectID: p.ID, ActorID: &actorID, EventType: eventType, Message: message, TxHash: &txHash}
	if err := s.projects.SetPaused(ctx, p.ID, paused, entry); err != nil {
		s.log.Error("escrow pause state changed on ledger but not locally",
			zap.String("project_id", p.ID.String()),
			zap.Bool("paused", paused),
			zap.String("tx_hash", txHash),
			zap.Error(err),
		)
		return nil, receipt, fmt.Errorf("persist %s: %w", op, err)
	}
	p.EscrowPaused = paused

	_ = s.publisher.Publish(ctx, events.StreamProject, events.Event{
		Type: events.EventEscrowPaused,
		Payload: map[string]any{
			"project_id": p.ID.String(),
			"paused":     paused,
			"tx_hash":    txHash,
		},
	})
	return p, receipt, nil
}

// DeployEscrow deploys the project contract with the client and admin custodial
// wallets and the company beneficiary, then stores the address once.
func (s *EscrowService) DeployEscrow(ctx context.Context, projectID, actorID uuid.UUID) (*models.Project, *chain.Receipt, error) {
	p, err := s.loadForAdmin(ctx, projectID, actorID)
	if err != nil {
		return nil, nil, err
	}
	if models.IsTerminalStatus(p.Status) {
		return nil, nil, ErrTerminalStatus
	}
	if p.HasEscrow() {
		return nil, nil, ErrAlreadyDeployed
	}
	if s.opts.FunderKey == "" || s.opts.CompanyKey == "" {
		return nil, nil, fmt.Errorf("%w: deployer or beneficiary key is not configured", ErrMissingSigningKey)
	}
	beneficiary, err := chain.AddressFromKey(s.opts.CompanyKey)
	if err != nil {
		return nil, nil, fmt.Errorf("company key: %w", err)
	}

	clientWallet, err := s.wallets.EnsureWallet(ctx, p.ClientID)
	if err != nil {
		return nil, nil, err
	}
	adminWallet, err := s.wallets.EnsureWallet(ctx, p.AdminID)
	if err != nil {
		return nil, nil, err
	}
	s.wallets.EnsureFunded(clientWallet)
	s.wallets.EnsureFunded(adminWallet)

	address, receipt, err := s.ledger.DeployEscrow(ctx, s.opts.FunderKey, chain.DeployParams{
		Client:      clientWallet.Address,
		Beneficiary: beneficiary,
		Admin:       adminWallet.Address,
		DepositWei:  chain.ToWei(p.DepositAmount),
		BalanceWei:  chain.ToWei(p.BalanceAmount),
	})
	if err != nil {
		s.ledgerFailed("deploy", p, err)
		return nil, nil, fmt.Errorf("deploy escrow: %w: %w", ErrLedger, err)
	}
	metrics.LedgerOperations.WithLabelValues("deploy", "confirmed").Inc()

	txHash := receipt.TxHash
	entry := models.TimelineEntry{
		ProjectID: p.ID,
		ActorID:   &actorID,
		EventType: models.TimelineEscrowDeployed,
		Message:   "Escrow contract deployed at " + address,
		TxHash:    &txHash,
	}
	if err := s.projects.SetEscrowAddress(ctx, p.ID, address, entry); err != nil {
		if errors.Is(err, repositories.ErrEscrowAssigned) {
			s.log.Warn("concurrent escrow deployment, keeping the first address",
				zap.String("project_id", p.ID.String()),
				zap.String("orphan_address", address),
			)
			return nil, receipt, ErrAlreadyDeployed
		}
		return nil, receipt, fmt.Errorf("persist escrow address: %w", err)
	}
	p.EscrowAddress = &address

	s.log.Info("escrow deployed",
		zap.String("project_id", p.ID.String()),
		zap.String("address", address),
		zap.String("tx_hash", txHash),
	)
	return p, receipt, nil
}

func (s *EscrowService) PayDeposit(ctx context.Context, projectID, payerID uuid.UUID, rawMethod string) (*models.Payment, error) {
	return s.pay(ctx, projectID, payerID, rawMethod, models.PaymentTypeDeposit)
}

func (s *EscrowService) PayBalance(ctx context.Context, projectID, payerID uuid.UUID, rawMethod string) (*models.Payment, error) {
	return s.pay(ctx, projectID, payerID, rawMethod, models.PaymentTypeBalance)
}

// pay funds one milestone. In fiat mode the charge goes through the gateway
// and the admin records it in the contract; otherwise the client's wallet
// funds the contract directly.
func (s *EscrowService) pay(ctx context.Context, projectID, payerID uuid.UUID, rawMethod, paymentType string) (*models.Payment, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.ClientID != payerID {
		return nil, ErrForbidden
	}
	if err := checkMutable(p); err != nil {
		return nil, err
	}

	amount, eventType, op := p.DepositAmount, models.TimelineDepositFunded, "fund_deposit"
	if paymentType == models.PaymentTypeBalance {
		amount, eventType, op = p.BalanceAmount, models.TimelineBalanceFunded, "fund_balance"
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%s amount of project %s is not set", strings.ToLower(paymentType), p.ID)
	}

	var (
		receipt     *chain.Receipt
		method      PaymentMethod
		providerRef *string
	)
	if s.opts.FiatPayments {
		var ok bool
		method, ok = ParseMethod(rawMethod)
		if !ok {
			return nil, ErrInvalidPaymentMethod
		}
		admin, err := s.wallets.SigningKey(ctx, p.AdminID)
		if err != nil {
			return nil, err
		}
		s.wallets.EnsureFunded(admin)

		ack, err := s.gateway.Charge(ctx, ChargeRequest{
			Method:    method,
			Amount:    amount,
			ProjectID: p.ID,
			UserID:    payerID,
			Purpose:   strings.ToLower(paymentType),
		})
		if err != nil {
			return nil, err
		}
		providerRef = &ack.Reference

		record := s.ledger.RecordDepositFiat
		if paymentType == models.PaymentTypeBalance {
			record = s.ledger.RecordBalanceFiat
		}
		receipt, err = record(ctx, *p.EscrowAddress, admin.PrivateKeyHex)
		if err != nil {
			// The charge succeeded; the provider reference is kept in the log for reconciliation.
			s.ledgerFailed(op, p, err, zap.String("provider_ref", ack.Reference))
			return nil, fmt.Errorf("record fiat payment: %w: %w", ErrLedger, err)
		}
	} else {
		method = MethodLedger
		payer, err := s.wallets.EnsureWallet(ctx, payerID)
		if err != nil {
			return nil, err
		}
		s.wallets.EnsureFunded(payer)
		fund := s.ledger.FundDeposit
		if paymentType == models.PaymentTypeBalance {
			fund = s.ledger.FundBalance
		}
		receipt, err = fund(ctx, *p.EscrowAddress, payer.PrivateKeyHex, chain.ToWei(amount))
		if err != nil {
			s.ledgerFailed(op, p, err)
			return nil, fmt.Errorf("fund escrow: %w: %w", ErrLedger, err)
		}
	}
	metrics.LedgerOperations.WithLabelValues(op, "confirmed").Inc()

	txHash := receipt.TxHash
	methodName := string(method)
	payment := &models.Payment{
		ProjectID:   p.ID,
		Type:        paymentType,
		Status:      models.PaymentStatusConfirmed,
		Amount:      amount,
		TxHash:      &txHash,
		Method:      &methodName,
		ProviderRef: providerRef,
	}
	entry := &models.TimelineEntry{
		ProjectID: p.ID,
		ActorID:   &payerID,
		EventType: eventType,
		Message:   fmt.Sprintf("%s of %s paid by %s", strings.ToLower(paymentType), amount.StringFixed(2), methodName),
		TxHash:    &txHash,
	}
	if err := s.projects.RecordPayment(ctx, payment, entry); err != nil {
		s.log.Error("payment confirmed on ledger but not recorded",
			zap.String("project_id", p.ID.String()),
			zap.String("type", paymentType),
			zap.String("tx_hash", txHash),
			zap.Error(err),
		)
		return nil, fmt.Errorf("record payment: %w", err)
	}
	return payment, nil
}

// DraftProof is the result of anchoring a document revision.
type DraftProof struct {
	Hash         string          `json:"hash"`
	PreviousHash string          `json:"previous_hash,omitempty"`
	Receipt      *chain.Receipt  `json:"receipt"`
	Project      *models.Project `json:"project"`
}

// AnchorDraftProof timestamps a draft revision on the ledger from the actor's
// wallet. Anchoring the submit action on an in-progress project opens the
// review window.
func (s *EscrowService) AnchorDraftProof(ctx context.Context, projectID, actorID uuid.UUID, action, draftHash, previousHash string) (*DraftProof, error) {
	hash, err := chain.NormalizeHash(draftHash)
	if err != nil {
		return nil, err
	}
	prev, err := chain.NormalizeOptionalHash(previousHash)
	if err != nil {
		return nil, err
	}
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" {
		action = DraftSubmitAction
	}

	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if actorID != p.ClientID && actorID != p.AdminID {
		return nil, ErrForbidden
	}
	if models.IsTerminalStatus(p.Status) {
		return nil, ErrTerminalStatus
	}
	if !p.HasEscrow() {
		return nil, ErrNoEscrow
	}

	actor, err := s.wallets.EnsureWallet(ctx, actorID)
	if err != nil {
		return nil, err
	}
	s.wallets.EnsureFunded(actor)

	receipt, err := s.ledger.AnchorDraftProof(ctx, *p.EscrowAddress, actor.PrivateKeyHex, action, hash, prev)
	if err != nil {
		s.ledgerFailed("anchor_draft_proof", p, err)
		return nil, fmt.Errorf("anchor draft proof: %w: %w", ErrLedger, err)
	}
	metrics.LedgerOperations.WithLabelValues("anchor_draft_proof", "confirmed").Inc()

	txHash := receipt.TxHash
	message := fmt.Sprintf("Draft %s anchored (sha256 %s)", action, hash)
	if prev != "" {
		message += ", supersedes " + prev
	}
	if err := s.timeline.Append(ctx, &models.TimelineEntry{
		ProjectID: p.ID,
		ActorID:   &actorID,
		EventType: models.TimelineDraftProofAnchored,
		Message:   message,
		TxHash:    &txHash,
	}); err != nil {
		return nil, fmt.Errorf("record draft proof: %w", err)
	}

	if action == DraftSubmitAction && p.Status == models.ProjectStatusInProgress {
		due := s.now().Add(s.opts.ReviewPeriod)
		if err := s.projects.MarkDraftSubmitted(ctx, p.ID, due); err != nil {
			return nil, fmt.Errorf("open review window: %w", err)
		}
		p.Status = models.ProjectStatusDraftSubmitted
		p.ReviewDueAt = &due

		_ = s.publisher.Publish(ctx, events.StreamProject, events.Event{
			Type: events.EventProjectStatusChanged,
			Payload: map[string]any{
				"project_id": p.ID.String(),
				"old_status": models.ProjectStatusInProgress,
				"new_status": models.ProjectStatusDraftSubmitted,
				"tx_hash":    txHash,
			},
		})
	}

	return &DraftProof{Hash: hash, PreviousHash: prev, Receipt: receipt, Project: p}, nil
}

func (s *EscrowService) loadForAdmin(ctx context.Context, projectID, actorID uuid.UUID) (*models.Project, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.AdminID != actorID {
		return nil, ErrForbidden
	}
	return p, nil
}

// checkMutable rejects escrow mutations on settled, paused or undeployed projects.
func checkMutable(p *models.Project) error {
	switch {
	case models.IsTerminalStatus(p.Status):
		return ErrTerminalStatus
	case p.EscrowPaused:
		return ErrEscrowPaused
	case !p.HasEscrow():
		return ErrNoEscrow
	}
	return nil
}

func (s *EscrowService) ledgerFailed(op string, p *models.Project, err error, fields ...zap.Field) {
	result := "error"
	var unconfirmed *chain.UnconfirmedError
	if errors.As(err, &unconfirmed) {
		result = "unconfirmed"
		fields = append(fields, zap.String("tx_hash", unconfirmed.TxHash))
	}
	metrics.LedgerOperations.WithLabelValues(op, result).Inc()

	fields = append(fields,
		zap.String("project_id", p.ID.String()),
		zap.String("op", op),
		zap.String("result", result),
		zap.Error(err),
	)
	s.log.Warn("escrow ledger operation failed", fields...)
}

func (s *EscrowService) publishTransition(ctx context.Context, t *models.Transition) {
	_ = s.publisher.Publish(ctx, events.StreamProject, events.Event{
		Type: events.EventProjectStatusChanged,
		Payload: map[string]any{
			"project_id": t.ProjectID.String(),
			"old_status": t.FromStatus,
			"new_status": t.ToStatus,
			"tx_hash":    derefString(t.Payment.TxHash),
			"amount":     t.Payment.Amount.String(),
		},
	})
	_ = s.publisher.Publish(ctx, events.StreamNotifications, events.Event{
		Type: events.EventNotification,
		Payload: map[string]any{
			"notification_id": t.Notification.ID.String(),
			"user_id":         t.Notification.UserID.String(),
			"project_id":      t.ProjectID.String(),
			"title":           t.Notification.Title,
			"body":            t.Notification.Body,
		},
	})
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
