package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/dto"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers/common"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// DisputeHandler обрабатывает HTTP запросы к спорам.
type DisputeHandler struct {
	disputes *service.DisputeService
	escrows  *service.EscrowService
}

func NewDisputeHandler(disputes *service.DisputeService, escrows *service.EscrowService) *DisputeHandler {
	return &DisputeHandler{disputes: disputes, escrows: escrows}
}

// OpenDispute POST /disputes
func (h *DisputeHandler) OpenDispute(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.OpenDisputeRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.OpenDispute(c.Request.Context(), service.OpenDisputeParams{
		EscrowID:       req.EscrowID,
		JobID:          req.JobID,
		ContractID:     req.ContractID,
		MilestoneID:    req.MilestoneID,
		TransactionID:  req.TransactionID,
		InitiatorID:    userID,
		InitiatorRole:  req.InitiatorRole,
		RespondentID:   req.RespondentID,
		RespondentRole: req.RespondentRole,
		Type:           req.Type,
		Priority:       req.Priority,
		Title:          req.Title,
		Description:    req.Description,
		DesiredOutcome: req.DesiredOutcome,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dispute)
}

// GetDispute GET /disputes/:id
func (h *DisputeHandler) GetDispute(c *gin.Context) {
	disputeID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.GetDispute(c.Request.Context(), disputeID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if dispute.EscrowID != nil {
		escrow, err := h.escrows.GetEscrow(c.Request.Context(), *dispute.EscrowID)
		if err == nil {
			c.JSON(http.StatusOK, dto.NewDisputeResponse(dispute, escrow))
			return
		}
	}
	c.JSON(http.StatusOK, dispute)
}

// ListMyDisputes GET /disputes
func (h *DisputeHandler) ListMyDisputes(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	disputes, err := h.disputes.GetUserDisputes(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, disputes)
}

// AddMessage POST /disputes/:id/messages
func (h *DisputeHandler) AddMessage(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	disputeID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.AddDisputeMessageRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.AddMessage(c.Request.Context(), disputeID, userID, req.Role, req.Message, req.Attachments, req.Visibility)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dispute)
}

// AddEvidence POST /disputes/:id/evidence
func (h *DisputeHandler) AddEvidence(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	disputeID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.AddDisputeEvidenceRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.AddEvidence(c.Request.Context(), disputeID, userID, req.Type, req.URL, req.Description)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dispute)
}

// UpdateStatus PATCH /admin/disputes/:id/status (только администратор)
func (h *DisputeHandler) UpdateStatus(c *gin.Context) {
	disputeID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.UpdateDisputeStatusRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.UpdateStatus(c.Request.Context(), disputeID, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

// ResolveDispute POST /admin/disputes/:id/resolve (только администратор)
func (h *DisputeHandler) ResolveDispute(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	disputeID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ResolveDisputeRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.ResolveDispute(c.Request.Context(), disputeID, req.Outcome, req.Amount, adminID, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

// EscalateDispute POST /disputes/:id/escalate
func (h *DisputeHandler) EscalateDispute(c *gin.Context) {
	disputeID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.EscalateDisputeRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.EscalateDispute(c.Request.Context(), disputeID, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

// ListRequiringAttention GET /admin/disputes/attention (только администратор)
func (h *DisputeHandler) ListRequiringAttention(c *gin.Context) {
	limit := common.ParseIntQuery(c, "limit", 50)
	disputes, err := h.disputes.GetDisputesRequiringAttention(c.Request.Context(), limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, disputes)
}

// GetDisputeStats GET /admin/disputes/stats (только администратор)
func (h *DisputeHandler) GetDisputeStats(c *gin.Context) {
	stats, err := h.disputes.GetDisputeStats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DisputeStatsResponse{Stats: stats})
}
