package services

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/milestone-escrow/backend/internal/chain"
	"github.com/milestone-escrow/backend/internal/events"
	"github.com/milestone-escrow/backend/internal/mail"
	"github.com/milestone-escrow/backend/internal/models"
	"github.com/milestone-escrow/backend/internal/repositories"
)

// memStore is an in-memory record store covering projects, payments,
// timeline entries and notifications.
type memStore struct {
	mu            sync.Mutex
	projects      map[uuid.UUID]*models.Project
	payments      []models.Payment
	timeline      []models.TimelineEntry
	notifications []models.Notification
	listErr       error
}

func newMemStore(projects ...*models.Project) *memStore {
	s := &memStore{projects: make(map[uuid.UUID]*models.Project)}
	for _, p := range projects {
		s.projects[p.ID] = p
	}
	return s
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) Create(_ context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.New()
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *memStore) ListPayments(_ context.Context, projectID uuid.UUID) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Payment
	for _, p := range s.payments {
		if p.ProjectID == projectID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) list(match func(p *models.Project) bool) []models.Project {
	var out []models.Project
	for _, p := range s.projects {
		if match(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (s *memStore) ListWithEscrow(context.Context) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.list(func(p *models.Project) bool { return p.HasEscrow() }), nil
}

func (s *memStore) ListReviewOverdue(_ context.Context, now time.Time) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.list(func(p *models.Project) bool {
		return p.Status == models.ProjectStatusDraftSubmitted && p.ReviewExpired(now) && !p.EscrowPaused && p.HasEscrow()
	}), nil
}

func (s *memStore) SetEscrowAddress(_ context.Context, id uuid.UUID, address string, entry models.TimelineEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.projects[id]
	if p.HasEscrow() {
		return repositories.ErrEscrowAssigned
	}
	p.EscrowAddress = &address
	s.timeline = append(s.timeline, entry)
	return nil
}

func (s *memStore) SetPaused(_ context.Context, id uuid.UUID, paused bool, entry models.TimelineEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.projects[id]
	if models.IsTerminalStatus(p.Status) {
		return repositories.ErrStaleTransition
	}
	p.EscrowPaused = paused
	s.timeline = append(s.timeline, entry)
	return nil
}

func (s *memStore) MarkDraftSubmitted(_ context.Context, id uuid.UUID, due time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.projects[id]
	if p.Status != models.ProjectStatusInProgress {
		return repositories.ErrStaleTransition
	}
	p.Status = models.ProjectStatusDraftSubmitted
	p.ReviewDueAt = &due
	return nil
}

func (s *memStore) ApplyTransition(_ context.Context, t *models.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.projects[t.ProjectID]
	if p.Status != t.FromStatus || p.EscrowPaused {
		return repositories.ErrStaleTransition
	}
	p.Status = t.ToStatus
	t.Notification.ID = uuid.New()
	s.payments = append(s.payments, t.Payment)
	s.timeline = append(s.timeline, t.Timeline)
	s.notifications = append(s.notifications, t.Notification)
	return nil
}

func (s *memStore) RecordPayment(_ context.Context, payment *models.Payment, entry *models.TimelineEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = append(s.payments, *payment)
	s.timeline = append(s.timeline, *entry)
	return nil
}

func (s *memStore) Append(_ context.Context, e *models.TimelineEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeline = append(s.timeline, *e)
	return nil
}

func (s *memStore) timelineOfType(eventType string) []models.TimelineEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TimelineEntry
	for _, e := range s.timeline {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (s *memStore) paymentsOfType(paymentType string) []models.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Payment
	for _, p := range s.payments {
		if p.Type == paymentType {
			out = append(out, p)
		}
	}
	return out
}

type ledgerCall struct {
	op      string
	address string
	key     string
	percent int
	amount  *big.Int
	hash    string
}

// fakeLedger confirms every call unless err is set.
type fakeLedger struct {
	mu    sync.Mutex
	calls []ledgerCall
	err   error
	seq   int
}

func (l *fakeLedger) record(c ledgerCall) (*chain.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, c)
	if l.err != nil {
		return nil, l.err
	}
	l.seq++
	return &chain.Receipt{TxHash: fmt.Sprintf("0x%064x", l.seq), BlockNumber: uint64(l.seq)}, nil
}

func (l *fakeLedger) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func (l *fakeLedger) lastCall() ledgerCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[len(l.calls)-1]
}

func (l *fakeLedger) DeployEscrow(_ context.Context, key string, p chain.DeployParams) (string, *chain.Receipt, error) {
	r, err := l.record(ledgerCall{op: "deploy", key: key, amount: p.DepositWei})
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("0x%040x", l.seq), r, nil
}

func (l *fakeLedger) FundDeposit(_ context.Context, address, key string, amount *big.Int) (*chain.Receipt, error) {
	return l.record(ledgerCall{op: "fundDeposit", address: address, key: key, amount: amount})
}

func (l *fakeLedger) FundBalance(_ context.Context, address, key string, amount *big.Int) (*chain.Receipt, error) {
	return l.record(ledgerCall{op: "fundBalance", address: address, key: key, amount: amount})
}

func (l *fakeLedger) RecordDepositFiat(_ context.Context, address, key string) (*chain.Receipt, error) {
	return l.record(ledgerCall{op: "recordDepositFiat", address: address, key: key})
}

func (l *fakeLedger) RecordBalanceFiat(_ context.Context, address, key string) (*chain.Receipt, error) {
	return l.record(ledgerCall{op: "recordBalanceFiat", address: address, key: key})
}

func (l *fakeLedger) Release(_ context.Context, address, key string) (*chain.Receipt, error) {
	return l.record(ledgerCall{op: "release", address: address, key: key})
}

func (l *fakeLedger) Refund(_ context.Context, address, key string) (*chain.Receipt, error) {
	return l.record(ledgerCall{op: "refund", address: address, key: key})
}

func (l *fakeLedger) Split(_ context.Context, address, key string, percent int) (*chain.Receipt, error) {
	if _, _, err := chain.SplitShares(percent); err != nil {
		return nil, err
	}
	return l.record(ledgerCall{op: "split", address: address, key: key, percent: percent})
}

func (l *fakeLedger) Pause(_ context.Context, address, key string) (*chain.Receipt, error) {
	return l.record(ledgerCall{op: "pause", address: address, key: key})
}

func (l *fakeLedger) Unpause(_ context.Context, address, key string) (*chain.Receipt, error) {
	return l.record(ledgerCall{op: "unpause", address: address, key: key})
}

func (l *fakeLedger) AnchorDraftProof(_ context.Context, address, key, action, hash, prev string) (*chain.Receipt, error) {
	return l.record(ledgerCall{op: "anchor:" + action, address: address, key: key, hash: hash})
}

// fakeWallets hands out deterministic wallets and counts top-up requests.
type fakeWallets struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*models.CustodialWallet
	funded  int
}

func newFakeWallets() *fakeWallets {
	return &fakeWallets{wallets: make(map[uuid.UUID]*models.CustodialWallet)}
}

func (w *fakeWallets) add(userID uuid.UUID) *models.CustodialWallet {
	w.mu.Lock()
	defer w.mu.Unlock()
	wallet := &models.CustodialWallet{
		ID:            uuid.New(),
		UserID:        userID,
		Address:       fmt.Sprintf("0x%040x", len(w.wallets)+1),
		PrivateKeyHex: "key-" + userID.String(),
	}
	w.wallets[userID] = wallet
	return wallet
}

func (w *fakeWallets) EnsureWallet(_ context.Context, userID uuid.UUID) (*models.CustodialWallet, error) {
	w.mu.Lock()
	existing, ok := w.wallets[userID]
	w.mu.Unlock()
	if ok {
		return existing, nil
	}
	return w.add(userID), nil
}

func (w *fakeWallets) SigningKey(_ context.Context, userID uuid.UUID) (*models.CustodialWallet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	wallet, ok := w.wallets[userID]
	if !ok || !wallet.HasKey() {
		return nil, ErrMissingSigningKey
	}
	return wallet, nil
}

func (w *fakeWallets) EnsureFunded(*models.CustodialWallet) {
	w.mu.Lock()
	w.funded++
	w.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) ofType(t string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type captureMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (a *recordingAuditor) Log(_ context.Context, e models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

func (a *recordingAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}
