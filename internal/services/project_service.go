package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/milestone-escrow/backend/internal/models"
	"github.com/milestone-escrow/backend/internal/rbac"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrInvalidProject = errors.New("invalid project")

type ProjectRecords interface {
	Create(ctx context.Context, p *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListPayments(ctx context.Context, projectID uuid.UUID) ([]models.Payment, error)
}

type TimelineReader interface {
	ListByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]models.TimelineEntry, error)
}

type ChainEventReader interface {
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ChainEvent, error)
}

type NotificationStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
}

// Viewer identifies the caller of a read.
type Viewer struct {
	UserID uuid.UUID
	Role   string
}

type CreateProjectInput struct {
	Title         string
	ClientID      uuid.UUID
	DepositAmount decimal.Decimal
	BalanceAmount decimal.Decimal
}

// ProjectService serves project records and the read side of the escrow history.
type ProjectService struct {
	projects      ProjectRecords
	users         UserLookup
	timeline      TimelineReader
	chainEvents   ChainEventReader
	notifications NotificationStore
	log           *zap.Logger
}

func NewProjectService(
	projects ProjectRecords,
	users UserLookup,
	timeline TimelineReader,
	chainEvents ChainEventReader,
	notifications NotificationStore,
	log *zap.Logger,
) *ProjectService {
	return &ProjectService{
		projects:      projects,
		users:         users,
		timeline:      timeline,
		chainEvents:   chainEvents,
		notifications: notifications,
		log:           log,
	}
}

func (s *ProjectService) Create(ctx context.Context, adminID uuid.UUID, in CreateProjectInput) (*models.Project, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidProject)
	}
	if !in.DepositAmount.IsPositive() {
		return nil, fmt.Errorf("%w: deposit must be positive", ErrInvalidProject)
	}
	if in.BalanceAmount.IsNegative() {
		return nil, fmt.Errorf("%w: balance must not be negative", ErrInvalidProject)
	}

	client, err := s.users.GetByID(ctx, in.ClientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown client", ErrInvalidProject)
		}
		return nil, err
	}
	if client.Role != models.UserRoleClient {
		return nil, fmt.Errorf("%w: user %s is not a client", ErrInvalidProject, client.ID)
	}

	p := &models.Project{
		Title:         title,
		Status:        models.ProjectStatusInProgress,
		QuotedAmount:  in.DepositAmount.Add(in.BalanceAmount),
		DepositAmount: in.DepositAmount,
		BalanceAmount: in.BalanceAmount,
		AdminID:       adminID,
		ClientID:      client.ID,
	}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	s.log.Info("project created",
		zap.String("project_id", p.ID.String()),
		zap.String("admin_id", adminID.String()),
		zap.String("client_id", client.ID.String()),
	)
	return p, nil
}

// Get returns the project when the viewer participates in it or may view any project.
func (s *ProjectService) Get(ctx context.Context, projectID uuid.UUID, v Viewer) (*models.Project, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.AdminID == v.UserID || p.ClientID == v.UserID || rbac.HasPermission(v.Role, rbac.PermViewAnyProject) {
		return p, nil
	}
	return nil, ErrForbidden
}

func (s *ProjectService) Timeline(ctx context.Context, projectID uuid.UUID, v Viewer, limit, offset int) ([]models.TimelineEntry, error) {
	if _, err := s.Get(ctx, projectID, v); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.timeline.ListByProject(ctx, projectID, limit, offset)
}

func (s *ProjectService) ChainEvents(ctx context.Context, projectID uuid.UUID, v Viewer) ([]models.ChainEvent, error) {
	if _, err := s.Get(ctx, projectID, v); err != nil {
		return nil, err
	}
	return s.chainEvents.ListByProject(ctx, projectID)
}

func (s *ProjectService) Payments(ctx context.Context, projectID uuid.UUID, v Viewer) ([]models.Payment, error) {
	if _, err := s.Get(ctx, projectID, v); err != nil {
		return nil, err
	}
	return s.projects.ListPayments(ctx, projectID)
}

func (s *ProjectService) Notifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	return s.notifications.ListByUser(ctx, userID, unreadOnly, limit)
}

func (s *ProjectService) MarkNotificationRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.notifications.MarkRead(ctx, userID, notificationID)
}
