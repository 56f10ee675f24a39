package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/milestone-escrow/backend/internal/auth"
	"github.com/milestone-escrow/backend/internal/models"
	"github.com/milestone-escrow/backend/internal/repositories"
	"go.uber.org/zap"
)

var ErrInvalidUser = errors.New("invalid user")

type UserDirectory interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// CodeVerifier issues and checks sign-in codes.
type CodeVerifier interface {
	Issue(ctx context.Context, userID uuid.UUID, purpose string) (time.Time, error)
	VerifyIssued(ctx context.Context, userID uuid.UUID, code, purpose string) error
}

// AuthService signs users in with an emailed one-time code and issues API tokens.
type AuthService struct {
	users     UserDirectory
	codes     CodeVerifier
	jwtSecret string
	jwtTTL    time.Duration
	audit     Auditor
	log       *zap.Logger
}

func NewAuthService(users UserDirectory, codes CodeVerifier, jwtSecret string, jwtTTL time.Duration, log *zap.Logger) *AuthService {
	return &AuthService{users: users, codes: codes, jwtSecret: jwtSecret, jwtTTL: jwtTTL, audit: nopAuditor{}, log: log}
}

// WithAuditor records sign-ins and invitations in a.
func (s *AuthService) WithAuditor(a Auditor) *AuthService {
	s.audit = a
	return s
}

// RequestCode emails a sign-in code. Unknown addresses succeed silently.
func (s *AuthService) RequestCode(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.log.Debug("sign-in code requested for unknown email")
			return nil
		}
		return err
	}
	_, err = s.codes.Issue(ctx, user.ID, PurposeLogin)
	return err
}

// Login exchanges a sign-in code for a bearer token.
func (s *AuthService) Login(ctx context.Context, email, code string) (string, *models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", nil, ErrInvalidCode
		}
		return "", nil, err
	}
	if err := s.codes.VerifyIssued(ctx, user.ID, code, PurposeLogin); err != nil {
		return "", nil, err
	}

	token, err := auth.GenerateJWT(s.jwtSecret, user.ID, user.Role, s.jwtTTL)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &user.ID,
		ActorType:   user.Role,
		Action:      models.AuditSignIn,
		EntityType:  "user",
		EntityID:    &user.ID,
	})
	s.log.Info("user signed in", zap.String("user_id", user.ID.String()), zap.String("role", user.Role))
	return token, user, nil
}

// Invite registers a user so they can sign in.
func (s *AuthService) Invite(ctx context.Context, inviterID uuid.UUID, email, role string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: bad email", ErrInvalidUser)
	}
	switch role {
	case models.UserRoleAdmin, models.UserRoleClient, models.UserRoleBeneficiary:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidUser, role)
	}

	u := &models.User{Email: email, Role: role}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &inviterID,
		ActorType:   models.UserRoleAdmin,
		Action:      models.AuditUserInvited,
		EntityType:  "user",
		EntityID:    &u.ID,
		Meta:        map[string]any{"role": role},
	})
	return u, nil
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}
