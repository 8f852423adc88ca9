package dto

import (
	"time"

	"github.com/ignatzorin/escrow-backend/internal/models"
)

// CreateEscrowRequest represents the request to create an escrow
type CreateEscrowRequest struct {
	JobID            string    `json:"job_id" binding:"required"`
	ClientID         string    `json:"client_id" binding:"required"`
	FreelancerID     string    `json:"freelancer_id" binding:"required"`
	PaymentGatewayID string    `json:"payment_gateway_id" binding:"required"`
	PaymentMethod    string    `json:"payment_method"`
	Amount           float64   `json:"amount" binding:"required"`
	Currency         string    `json:"currency"`
	ExpiryDate       time.Time `json:"expiry_date" binding:"required"`

	ReleaseConditions []ReleaseConditionRequest `json:"release_conditions"`

	DisableAutoRelease         bool `json:"disable_auto_release"`
	AutoReleaseDays            int  `json:"auto_release_days"`
	RequireMilestoneCompletion bool `json:"require_milestone_completion"`
}

// ReleaseConditionRequest represents a release condition for an escrow
type ReleaseConditionRequest struct {
	Type        string  `json:"type" binding:"required"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// FundEscrowRequest represents the request to fund an escrow
type FundEscrowRequest struct {
	TransactionID string `json:"transaction_id"`
}

// ReleaseEscrowRequest represents the request to release escrow funds
type ReleaseEscrowRequest struct {
	Amount float64 `json:"amount"`
	Notes  string  `json:"notes"`
}

// RefundEscrowRequest represents the request to refund an escrow
type RefundEscrowRequest struct {
	Notes string `json:"notes"`
}

// ResolveEscrowDisputeRequest represents the admin request to resolve an escrow dispute
type ResolveEscrowDisputeRequest struct {
	Outcome string  `json:"outcome" binding:"required"`
	Amount  float64 `json:"amount"`
	Notes   string  `json:"notes"`
}

// OpenDisputeRequest represents the request to open a dispute
type OpenDisputeRequest struct {
	EscrowID      string `json:"escrow_id"`
	JobID         string `json:"job_id"`
	ContractID    string `json:"contract_id"`
	MilestoneID   string `json:"milestone_id"`
	TransactionID string `json:"transaction_id"`

	RespondentID   string `json:"respondent_id" binding:"required"`
	RespondentRole string `json:"respondent_role" binding:"required"`
	InitiatorRole  string `json:"initiator_role" binding:"required"`

	Type           string `json:"type" binding:"required"`
	Priority       string `json:"priority"`
	Title          string `json:"title" binding:"required"`
	Description    string `json:"description" binding:"required"`
	DesiredOutcome string `json:"desired_outcome"`
}

// AddDisputeMessageRequest represents the request to post a message into a dispute thread
type AddDisputeMessageRequest struct {
	Message     string   `json:"message" binding:"required"`
	Role        string   `json:"role" binding:"required"`
	Attachments []string `json:"attachments"`
	Visibility  string   `json:"visibility"`
}

// AddDisputeEvidenceRequest represents the request to attach evidence to a dispute
type AddDisputeEvidenceRequest struct {
	Type        string `json:"type" binding:"required"`
	URL         string `json:"url" binding:"required"`
	Description string `json:"description"`
}

// UpdateDisputeStatusRequest represents the admin request to change dispute status
type UpdateDisputeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ResolveDisputeRequest represents the admin request to resolve a dispute
type ResolveDisputeRequest struct {
	Outcome string  `json:"outcome" binding:"required"`
	Amount  float64 `json:"amount"`
	Notes   string  `json:"notes"`
}

// EscalateDisputeRequest represents the request to escalate a dispute
type EscalateDisputeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CalculateFeesRequest represents the request to estimate fees for an amount
type CalculateFeesRequest struct {
	Amount float64 `json:"amount" binding:"required"`
	Type   string  `json:"type"`
}

// CreateTransactionRequest represents the request to record a ledger entry
type CreateTransactionRequest struct {
	Type          string                 `json:"type" binding:"required"`
	SenderID      string                 `json:"sender_id"`
	SenderType    string                 `json:"sender_type"`
	RecipientID   string                 `json:"recipient_id" binding:"required"`
	RecipientType string                 `json:"recipient_type" binding:"required"`
	Amount        float64                `json:"amount" binding:"required"`
	Currency      string                 `json:"currency"`
	Fees          models.TransactionFees `json:"fees"`
	Description   string                 `json:"description"`
}

// UpdateTransactionStatusRequest represents the request to change transaction status
type UpdateTransactionStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// RecordProcessingAttemptRequest represents a gateway processing attempt report
type RecordProcessingAttemptRequest struct {
	Gateway string `json:"gateway" binding:"required"`
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
