package dto

import (
	"github.com/ignatzorin/escrow-backend/internal/fees"
	"github.com/ignatzorin/escrow-backend/internal/models"
)

// EscrowResponse represents an escrow with its ledger entries
type EscrowResponse struct {
	*models.Escrow
	Transactions []models.Transaction `json:"transactions,omitempty"`
}

// NewEscrowResponse creates an EscrowResponse from components
func NewEscrowResponse(escrow *models.Escrow, transactions []models.Transaction) *EscrowResponse {
	return &EscrowResponse{
		Escrow:       escrow,
		Transactions: transactions,
	}
}

// DisputeResponse represents a dispute with its linked escrow
type DisputeResponse struct {
	*models.Dispute
	Escrow *models.Escrow `json:"escrow,omitempty"`
}

// NewDisputeResponse creates a DisputeResponse from components
func NewDisputeResponse(dispute *models.Dispute, escrow *models.Escrow) *DisputeResponse {
	return &DisputeResponse{
		Dispute: dispute,
		Escrow:  escrow,
	}
}

// FeeEstimateResponse represents fee calculations for a single amount
type FeeEstimateResponse struct {
	Amount    float64                  `json:"amount"`
	Estimates map[string]fees.Estimate `json:"estimates"`
	Savings   *fees.Savings            `json:"savings,omitempty"`
}

// EscrowStatsResponse represents per-status escrow aggregates for a user
type EscrowStatsResponse struct {
	Stats []models.EscrowStat `json:"stats"`
}

// DisputeStatsResponse represents per-status dispute aggregates
type DisputeStatsResponse struct {
	Stats []models.DisputeStat `json:"stats"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
