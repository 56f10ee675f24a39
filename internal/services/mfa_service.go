package services

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/milestone-escrow/backend/internal/mail"
	"github.com/milestone-escrow/backend/internal/metrics"
	"github.com/milestone-escrow/backend/internal/models"
	"github.com/milestone-escrow/backend/internal/repositories"
	"go.uber.org/zap"
)

const codeDigits = 6

// Code purposes
const (
	PurposeLogin         = "login"
	PurposeEscrowDeploy  = "escrow_deploy"
	PurposeEscrowRelease = "escrow_release"
	PurposeEscrowRefund  = "escrow_refund"
	PurposeEscrowSplit   = "escrow_split"
	PurposeEscrowPause   = "escrow_pause"
	PurposeEscrowUnpause = "escrow_unpause"
)

type MfaStore interface {
	Create(ctx context.Context, c *models.MfaCode) error
	FindLatestValid(ctx context.Context, userID uuid.UUID, purpose string, now time.Time) (*models.MfaCode, error)
	MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) error
}

type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type MfaOptions struct {
	Secret       string
	TTL          time.Duration
	OverrideCode string
}

// MfaService issues and verifies one-time codes that gate irreversible admin actions.
// Only an HMAC of each code is stored.
type MfaService struct {
	store    MfaStore
	users    UserLookup
	mailer   mail.Sender
	secret   []byte
	ttl      time.Duration
	override string
	audit    Auditor
	now      func() time.Time
	log      *zap.Logger
}

func NewMfaService(store MfaStore, users UserLookup, mailer mail.Sender, opts MfaOptions, log *zap.Logger) *MfaService {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MfaService{
		store:    store,
		users:    users,
		mailer:   mailer,
		secret:   []byte(opts.Secret),
		ttl:      ttl,
		override: normalizeCode(opts.OverrideCode),
		audit:    nopAuditor{},
		now:      time.Now,
		log:      log,
	}
}

// WithAuditor records override use in a.
func (s *MfaService) WithAuditor(a Auditor) *MfaService {
	s.audit = a
	return s
}

// Issue creates a code for the user, optionally scoped to purpose, and emails it.
func (s *MfaService) Issue(ctx context.Context, userID uuid.UUID, purpose string) (time.Time, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("load user: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return time.Time{}, err
	}

	record := &models.MfaCode{
		UserID:    userID,
		CodeHash:  s.hash(userID, code),
		ExpiresAt: s.now().Add(s.ttl),
	}
	if purpose = strings.TrimSpace(purpose); purpose != "" {
		record.Purpose = &purpose
	}
	if err := s.store.Create(ctx, record); err != nil {
		return time.Time{}, fmt.Errorf("store code: %w", err)
	}

	msg := mail.VerificationCodeMessage(user.Email, code, purpose, int(s.ttl/time.Minute))
	if err := s.mailer.Send(ctx, msg); err != nil {
		return time.Time{}, fmt.Errorf("deliver code: %w", err)
	}

	s.log.Info("verification code issued",
		zap.String("user_id", userID.String()),
		zap.String("purpose", purpose),
		zap.Time("expires_at", record.ExpiresAt),
	)
	return record.ExpiresAt, nil
}

// Verify consumes a matching code. Every rejection is ErrInvalidCode.
func (s *MfaService) Verify(ctx context.Context, userID uuid.UUID, code, purpose string) error {
	return s.verify(ctx, userID, code, purpose, true)
}

// VerifyIssued is Verify without the override code. Used for sign-in.
func (s *MfaService) VerifyIssued(ctx context.Context, userID uuid.UUID, code, purpose string) error {
	return s.verify(ctx, userID, code, purpose, false)
}

func (s *MfaService) verify(ctx context.Context, userID uuid.UUID, code, purpose string, allowOverride bool) error {
	code = normalizeCode(code)
	purpose = strings.TrimSpace(purpose)

	if allowOverride && s.override != "" && subtle.ConstantTimeCompare([]byte(code), []byte(s.override)) == 1 {
		metrics.MfaOverrideUsed.Inc()
		s.log.Warn("verification satisfied by override code",
			zap.String("user_id", userID.String()),
			zap.String("purpose", purpose),
		)
		_ = s.audit.Log(ctx, models.AuditLog{
			ActorUserID: &userID,
			ActorType:   "user",
			Action:      models.AuditMfaOverrideUse,
			EntityType:  "user",
			EntityID:    &userID,
			Meta:        map[string]any{"purpose": purpose},
		})
		return nil
	}

	if len(code) != codeDigits {
		return ErrInvalidCode
	}

	now := s.now()
	record, err := s.store.FindLatestValid(ctx, userID, purpose, now)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.log.Error("verification code lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
		}
		return ErrInvalidCode
	}
	if !record.Usable(now) || !record.MatchesPurpose(purpose) {
		return ErrInvalidCode
	}

	expected, err := hex.DecodeString(record.CodeHash)
	if err != nil {
		return ErrInvalidCode
	}
	actual, _ := hex.DecodeString(s.hash(userID, code))
	if !hmac.Equal(expected, actual) {
		return ErrInvalidCode
	}

	if err := s.store.MarkUsed(ctx, record.ID, now); err != nil {
		if !errors.Is(err, repositories.ErrCodeConsumed) {
			s.log.Error("verification code consume failed", zap.String("user_id", userID.String()), zap.Error(err))
		}
		return ErrInvalidCode
	}
	return nil
}

func (s *MfaService) hash(userID uuid.UUID, code string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(userID.String()))
	mac.Write([]byte{'|'})
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func normalizeCode(code string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(code))
}
