package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/milestone-escrow/backend/internal/chain"
	"github.com/milestone-escrow/backend/internal/events"
	"github.com/milestone-escrow/backend/internal/metrics"
	"github.com/milestone-escrow/backend/internal/models"
	"go.uber.org/zap"
)

type EscrowProjectLister interface {
	ListWithEscrow(ctx context.Context) ([]models.Project, error)
}

type EventSource interface {
	HeadBlock(ctx context.Context) (uint64, error)
	FetchEvents(ctx context.Context, address string, from, to uint64) ([]chain.Event, error)
}

type ChainEventStore interface {
	Exists(ctx context.Context, projectID uuid.UUID, txHash, eventName string) (bool, error)
	Insert(ctx context.Context, e *models.ChainEvent) (bool, error)
}

// IndexerService copies escrow contract events into the record store. It is
// safe to run repeatedly and concurrently: an event is keyed by project,
// transaction and name.
type IndexerService struct {
	projects  EscrowProjectLister
	source    EventSource
	store     ChainEventStore
	publisher events.Publisher
	log       *zap.Logger
}

func NewIndexerService(projects EscrowProjectLister, source EventSource, store ChainEventStore, publisher events.Publisher, log *zap.Logger) *IndexerService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &IndexerService{
		projects:  projects,
		source:    source,
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

// IndexAll scans every deployed escrow from genesis to head and returns the
// number of newly stored events. A failing project is logged and skipped.
func (s *IndexerService) IndexAll(ctx context.Context) (int, error) {
	projects, err := s.projects.ListWithEscrow(ctx)
	if err != nil {
		return 0, fmt.Errorf("list escrow projects: %w", err)
	}
	if len(projects) == 0 {
		return 0, nil
	}

	head, err := s.source.HeadBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("read chain head: %w", err)
	}

	total := 0
	for i := range projects {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		p := &projects[i]
		n, err := s.indexProject(ctx, p, head)
		total += n
		if err != nil {
			metrics.IndexerProjectFailures.Inc()
			s.log.Warn("indexing project failed",
				zap.String("project_id", p.ID.String()),
				zap.String("escrow", *p.EscrowAddress),
				zap.Error(err),
			)
		}
	}

	if total > 0 {
		metrics.EventsIndexed.Add(float64(total))
		s.log.Info("chain events indexed", zap.Int("count", total), zap.Uint64("head", head))
	}
	return total, nil
}

func (s *IndexerService) indexProject(ctx context.Context, p *models.Project, head uint64) (int, error) {
	if !p.HasEscrow() {
		return 0, nil
	}
	evs, err := s.source.FetchEvents(ctx, *p.EscrowAddress, 0, head)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, ev := range evs {
		exists, err := s.store.Exists(ctx, p.ID, ev.TxHash, ev.Name)
		if err != nil {
			return inserted, fmt.Errorf("check %s %s: %w", ev.Name, ev.TxHash, err)
		}
		if exists {
			continue
		}

		record := &models.ChainEvent{
			ProjectID:   p.ID,
			EventName:   ev.Name,
			TxHash:      ev.TxHash,
			BlockNumber: ev.BlockNumber,
			LogIndex:    ev.LogIndex,
			Payload:     chain.NormalizePayload(ev.Args),
		}
		ok, err := s.store.Insert(ctx, record)
		if err != nil {
			return inserted, fmt.Errorf("insert %s %s: %w", ev.Name, ev.TxHash, err)
		}
		if !ok {
			continue
		}
		inserted++

		_ = s.publisher.Publish(ctx, events.StreamProject, events.Event{
			Type: events.EventChainEventIndexed,
			Payload: map[string]any{
				"project_id":   p.ID.String(),
				"event_name":   ev.Name,
				"tx_hash":      ev.TxHash,
				"block_number": ev.BlockNumber,
			},
		})
	}
	return inserted, nil
}
