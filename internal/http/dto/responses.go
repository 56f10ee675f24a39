package dto

import "github.com/milestone-escrow/backend/internal/models"

type AuthResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type CodeIssuedResponse struct {
	ExpiresAt string `json:"expires_at"`
}

// EscrowActionResponse reports a confirmed ledger operation.
type EscrowActionResponse struct {
	Project     *models.Project `json:"project"`
	TxHash      string          `json:"tx_hash"`
	BlockNumber uint64          `json:"block_number"`
}

// PendingResponse reports a submitted transaction whose outcome is not known yet.
type PendingResponse struct {
	Error  string `json:"error"`
	TxHash string `json:"tx_hash"`
}

type IndexRunResponse struct {
	Indexed int `json:"indexed"`
}
