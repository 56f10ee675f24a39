package models

import (
	"time"

	"github.com/google/uuid"
)

// ChainEvent is an observed escrow contract event. Created only by the indexer,
// never updated. (ProjectID, TxHash, EventName) is unique.
type ChainEvent struct {
	ID          uuid.UUID      `json:"id"`
	ProjectID   uuid.UUID      `json:"project_id"`
	EventName   string         `json:"event_name"`
	TxHash      string         `json:"tx_hash"`
	BlockNumber uint64         `json:"block_number"`
	LogIndex    uint           `json:"log_index"`
	Payload     map[string]any `json:"payload"`
	CreatedAt   time.Time      `json:"created_at"`
}
