package dto

type RequestCodeRequest struct {
	Email string `json:"email"`
}

type LoginRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type InviteUserRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"` // admin / client / beneficiary
}

type IssueCodeRequest struct {
	Purpose string `json:"purpose,omitempty"`
}

type CreateProjectRequest struct {
	Title         string `json:"title"`
	ClientID      string `json:"client_id"`
	DepositAmount string `json:"deposit_amount"`
	BalanceAmount string `json:"balance_amount"`
}

// EscrowActionRequest carries the verification code that gates every
// irreversible escrow action.
type EscrowActionRequest struct {
	Code string `json:"code"`
}

type SplitRequest struct {
	Code          string `json:"code"`
	ClientPercent *int   `json:"client_percent"`
}

type PaymentRequest struct {
	Method string `json:"method,omitempty"` // CARD / BANK_TRANSFER / ACH / WIRE, ignored in ledger mode
}

type DraftProofRequest struct {
	Action       string `json:"action"` // submit / revision
	Hash         string `json:"hash"`
	PreviousHash string `json:"previous_hash,omitempty"`
}
