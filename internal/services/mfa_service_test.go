package services

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/milestone-escrow/backend/internal/models"
	"github.com/milestone-escrow/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memMfaStore struct {
	mu    sync.Mutex
	codes []*models.MfaCode
}

func (s *memMfaStore) Create(_ context.Context, c *models.MfaCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now().Add(time.Duration(len(s.codes)) * time.Millisecond)
	cp := *c
	s.codes = append(s.codes, &cp)
	return nil
}

func (s *memMfaStore) FindLatestValid(_ context.Context, userID uuid.UUID, purpose string, now time.Time) (*models.MfaCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []*models.MfaCode
	for _, c := range s.codes {
		if c.UserID == userID && c.Usable(now) && c.MatchesPurpose(purpose) {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return nil, repositories.ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.After(matches[j].CreatedAt) })
	cp := *matches[0]
	return &cp, nil
}

func (s *memMfaStore) MarkUsed(_ context.Context, id uuid.UUID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.ID == id {
			if c.UsedAt != nil {
				return repositories.ErrCodeConsumed
			}
			c.UsedAt = &now
			return nil
		}
	}
	return repositories.ErrNotFound
}

type staticUsers map[uuid.UUID]*models.User

func (u staticUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, repositories.ErrNotFound
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

type mfaFixture struct {
	store  *memMfaStore
	mailer *captureMailer
	clock  *fixedClock
	svc    *MfaService
	userID uuid.UUID
}

func newMfaFixture(override string) *mfaFixture {
	userID := uuid.New()
	f := &mfaFixture{
		store:  &memMfaStore{},
		mailer: &captureMailer{},
		clock:  &fixedClock{now: testNow},
		userID: userID,
	}
	users := staticUsers{userID: {ID: userID, Email: "admin@escrow.test", Role: models.UserRoleAdmin}}
	f.svc = NewMfaService(f.store, users, f.mailer, MfaOptions{
		Secret:       "test-secret",
		TTL:          10 * time.Minute,
		OverrideCode: override,
	}, zap.NewNop())
	f.svc.now = f.clock.Now
	return f
}

// issue returns the plaintext code delivered by email.
func (f *mfaFixture) issue(t *testing.T, purpose string) string {
	t.Helper()
	expires, err := f.svc.Issue(context.Background(), f.userID, purpose)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(10*time.Minute), expires)

	f.mailer.mu.Lock()
	defer f.mailer.mu.Unlock()
	require.NotEmpty(t, f.mailer.sent)
	last := f.mailer.sent[len(f.mailer.sent)-1]
	assert.Equal(t, "admin@escrow.test", last.To)
	code := codePattern.FindString(last.HTML)
	require.Len(t, code, 6)
	return code
}

func TestMfaCodeIsSingleUse(t *testing.T) {
	f := newMfaFixture("")
	ctx := context.Background()
	code := f.issue(t, PurposeEscrowRelease)

	require.NoError(t, f.svc.Verify(ctx, f.userID, code, PurposeEscrowRelease))
	assert.ErrorIs(t, f.svc.Verify(ctx, f.userID, code, PurposeEscrowRelease), ErrInvalidCode)
}

func TestMfaCodeStoresOnlyHash(t *testing.T) {
	f := newMfaFixture("")
	code := f.issue(t, "")

	require.Len(t, f.store.codes, 1)
	assert.NotContains(t, f.store.codes[0].CodeHash, code)
	assert.Len(t, f.store.codes[0].CodeHash, 64)
	assert.Nil(t, f.store.codes[0].Purpose)
}

func TestMfaCodeExpires(t *testing.T) {
	f := newMfaFixture("")
	code := f.issue(t, "")

	f.clock.Advance(10*time.Minute + time.Second)
	assert.ErrorIs(t, f.svc.Verify(context.Background(), f.userID, code, ""), ErrInvalidCode)
}

func TestMfaCodeWrongValue(t *testing.T) {
	f := newMfaFixture("")
	ctx := context.Background()
	code := f.issue(t, "")

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	tests := []string{wrong, "12345", "abcdef", ""}
	for _, input := range tests {
		assert.ErrorIs(t, f.svc.Verify(ctx, f.userID, input, ""), ErrInvalidCode, "input %q", input)
	}
	// Failed attempts do not consume the code.
	require.NoError(t, f.svc.Verify(ctx, f.userID, code, ""))
}

func TestMfaCodeOtherUser(t *testing.T) {
	f := newMfaFixture("")
	code := f.issue(t, "")
	assert.ErrorIs(t, f.svc.Verify(context.Background(), uuid.New(), code, ""), ErrInvalidCode)
}

func TestMfaCodePurposeScope(t *testing.T) {
	ctx := context.Background()

	t.Run("scoped code rejects other purpose", func(t *testing.T) {
		f := newMfaFixture("")
		code := f.issue(t, PurposeEscrowRelease)
		assert.ErrorIs(t, f.svc.Verify(ctx, f.userID, code, PurposeEscrowRefund), ErrInvalidCode)
		require.NoError(t, f.svc.Verify(ctx, f.userID, code, PurposeEscrowRelease))
	})

	t.Run("unscoped code matches any purpose", func(t *testing.T) {
		f := newMfaFixture("")
		code := f.issue(t, "")
		require.NoError(t, f.svc.Verify(ctx, f.userID, code, PurposeEscrowSplit))
	})
}

func TestMfaCodeNormalization(t *testing.T) {
	f := newMfaFixture("")
	code := f.issue(t, "")
	spaced := code[:3] + " - " + code[3:]
	require.NoError(t, f.svc.Verify(context.Background(), f.userID, spaced, ""))
}

func TestMfaOverrideCode(t *testing.T) {
	f := newMfaFixture("987-654")
	audit := &recordingAuditor{}
	f.svc.WithAuditor(audit)
	ctx := context.Background()

	require.NoError(t, f.svc.Verify(ctx, f.userID, "987654", PurposeEscrowRelease))
	require.NoError(t, f.svc.Verify(ctx, f.userID, " 987 654 ", ""))
	assert.Empty(t, f.store.codes, "override does not touch stored codes")
	assert.Equal(t, []string{models.AuditMfaOverrideUse, models.AuditMfaOverrideUse}, audit.actions())

	assert.ErrorIs(t, f.svc.VerifyIssued(ctx, f.userID, "987654", PurposeLogin), ErrInvalidCode)

	noOverride := newMfaFixture("")
	assert.ErrorIs(t, noOverride.svc.Verify(ctx, noOverride.userID, "987654", ""), ErrInvalidCode)
}

func TestMfaIssueDeliveryFailure(t *testing.T) {
	f := newMfaFixture("")
	f.mailer.err = errors.New("smtp down")

	_, err := f.svc.Issue(context.Background(), f.userID, "")
	assert.Error(t, err)
}

func TestGenerateCodeFormat(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Regexp(t, `^\d{6}$`, code)
	}
}
