package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/milestone-escrow/backend/internal/auth"
	"github.com/milestone-escrow/backend/internal/models"
	"github.com/milestone-escrow/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uuid.New()
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, repositories.ErrNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type authFixture struct {
	users  *memUsers
	mailer *captureMailer
	audit  *recordingAuditor
	svc    *AuthService
}

func newAuthFixture(override string) *authFixture {
	f := &authFixture{
		users:  &memUsers{users: make(map[uuid.UUID]*models.User)},
		mailer: &captureMailer{},
		audit:  &recordingAuditor{},
	}
	codes := NewMfaService(&memMfaStore{}, f.users, f.mailer, MfaOptions{Secret: "s", OverrideCode: override}, zap.NewNop())
	f.svc = NewAuthService(f.users, codes, "jwt-secret", time.Hour, zap.NewNop()).WithAuditor(f.audit)
	return f
}

func (f *authFixture) lastCode(t *testing.T) string {
	t.Helper()
	f.mailer.mu.Lock()
	defer f.mailer.mu.Unlock()
	require.NotEmpty(t, f.mailer.sent)
	return codePattern.FindString(f.mailer.sent[len(f.mailer.sent)-1].HTML)
}

func TestLoginWithEmailedCode(t *testing.T) {
	f := newAuthFixture("")
	ctx := context.Background()

	user, err := f.svc.Invite(ctx, uuid.New(), " Admin@Escrow.Test ", models.UserRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "admin@escrow.test", user.Email)

	require.NoError(t, f.svc.RequestCode(ctx, "admin@escrow.test"))
	code := f.lastCode(t)

	token, got, err := f.svc.Login(ctx, "ADMIN@escrow.test", code)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	claims, err := auth.ParseJWT("jwt-secret", token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.UserRoleAdmin, claims.Role)

	_, _, err = f.svc.Login(ctx, "admin@escrow.test", code)
	assert.ErrorIs(t, err, ErrInvalidCode)

	assert.Equal(t, []string{models.AuditUserInvited, models.AuditSignIn}, f.audit.actions())
}

func TestRequestCodeUnknownEmailIsSilent(t *testing.T) {
	f := newAuthFixture("")
	require.NoError(t, f.svc.RequestCode(context.Background(), "nobody@escrow.test"))
	assert.Empty(t, f.mailer.sent)

	_, _, err := f.svc.Login(context.Background(), "nobody@escrow.test", "123456")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestLoginIgnoresOverrideCode(t *testing.T) {
	f := newAuthFixture("424242")
	ctx := context.Background()
	_, err := f.svc.Invite(ctx, uuid.New(), "client@escrow.test", models.UserRoleClient)
	require.NoError(t, err)

	_, _, err = f.svc.Login(ctx, "client@escrow.test", "424242")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestInviteValidation(t *testing.T) {
	f := newAuthFixture("")
	tests := []struct{ email, role string }{
		{"not-an-email", models.UserRoleClient},
		{"ok@escrow.test", "owner"},
		{"", models.UserRoleAdmin},
	}
	for _, tt := range tests {
		_, err := f.svc.Invite(context.Background(), uuid.New(), tt.email, tt.role)
		assert.ErrorIs(t, err, ErrInvalidUser, "%q/%q", tt.email, tt.role)
	}
}
