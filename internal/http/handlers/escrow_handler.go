package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/dto"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers/common"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/objectid"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// EscrowHandler обрабатывает HTTP запросы к эскроу.
type EscrowHandler struct {
	escrows      *service.EscrowService
	transactions *service.TransactionService
}

func NewEscrowHandler(escrows *service.EscrowService, transactions *service.TransactionService) *EscrowHandler {
	return &EscrowHandler{escrows: escrows, transactions: transactions}
}

// CreateEscrow POST /escrows
func (h *EscrowHandler) CreateEscrow(c *gin.Context) {
	var req dto.CreateEscrowRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	conditions := make([]models.ReleaseCondition, 0, len(req.ReleaseConditions))
	for _, rc := range req.ReleaseConditions {
		conditions = append(conditions, models.ReleaseCondition{
			Type:        rc.Type,
			Description: rc.Description,
			Amount:      rc.Amount,
		})
	}

	escrow, err := h.escrows.CreateEscrow(c.Request.Context(), service.CreateEscrowParams{
		JobID:                      req.JobID,
		ClientID:                   req.ClientID,
		FreelancerID:               req.FreelancerID,
		PaymentGatewayID:           req.PaymentGatewayID,
		PaymentMethod:              req.PaymentMethod,
		Amount:                     req.Amount,
		Currency:                   req.Currency,
		ExpiryDate:                 req.ExpiryDate,
		ReleaseConditions:          conditions,
		DisableAutoRelease:         req.DisableAutoRelease,
		AutoReleaseDays:            req.AutoReleaseDays,
		RequireMilestoneCompletion: req.RequireMilestoneCompletion,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, escrow)
}

// GetEscrow GET /escrows/:id
func (h *EscrowHandler) GetEscrow(c *gin.Context) {
	escrowID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.GetEscrow(c.Request.Context(), escrowID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	transactions, err := h.transactions.GetEscrowTransactions(c.Request.Context(), escrowID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewEscrowResponse(escrow, transactions))
}

// GetEscrowByJob GET /jobs/:id/escrow
func (h *EscrowHandler) GetEscrowByJob(c *gin.Context) {
	jobID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.GetEscrowByJob(c.Request.Context(), jobID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, escrow)
}

// FundEscrow POST /escrows/:id/fund
func (h *EscrowHandler) FundEscrow(c *gin.Context) {
	escrowID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.FundEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		common.RespondBadRequest(c, err.Error())
		return
	}

	transactionID := objectid.Nil
	if req.TransactionID != "" {
		transactionID, err = objectid.Parse(req.TransactionID)
		if err != nil {
			common.RespondBadRequest(c, "неверный формат transaction_id")
			return
		}
	}

	escrow, err := h.escrows.FundEscrow(c.Request.Context(), escrowID, transactionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, escrow)
}

// ReleaseEscrow POST /escrows/:id/release
func (h *EscrowHandler) ReleaseEscrow(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	escrowID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ReleaseEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.ReleaseEscrow(c.Request.Context(), escrowID, userID, req.Amount, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, escrow)
}

// RefundEscrow POST /escrows/:id/refund
func (h *EscrowHandler) RefundEscrow(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	escrowID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.RefundEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.RefundEscrow(c.Request.Context(), escrowID, userID, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, escrow)
}

// ResolveEscrowDispute POST /escrows/:id/resolve-dispute (только администратор)
func (h *EscrowHandler) ResolveEscrowDispute(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	escrowID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ResolveEscrowDisputeRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.ResolveEscrowDispute(c.Request.Context(), escrowID, req.Outcome, req.Amount, adminID, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, escrow)
}

// CompleteCondition POST /escrows/:id/conditions/:index/complete
func (h *EscrowHandler) CompleteCondition(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	escrowID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		common.RespondBadRequest(c, "параметр index должен быть неотрицательным числом")
		return
	}

	escrow, err := h.escrows.CompleteReleaseCondition(c.Request.Context(), escrowID, index, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, escrow)
}

// CheckAutoRelease POST /escrows/:id/check-auto-release
func (h *EscrowHandler) CheckAutoRelease(c *gin.Context) {
	escrowID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	released, err := h.escrows.CheckAutoRelease(c.Request.Context(), escrowID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"released": released})
}

// GetActiveEscrows GET /escrows/active
func (h *EscrowHandler) GetActiveEscrows(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	escrows, err := h.escrows.GetActiveEscrows(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, escrows)
}

// GetEscrowStats GET /escrows/stats
func (h *EscrowHandler) GetEscrowStats(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	stats, err := h.escrows.GetEscrowStats(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.EscrowStatsResponse{Stats: stats})
}
