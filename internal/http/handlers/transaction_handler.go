package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/dto"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers/common"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// TransactionHandler обрабатывает HTTP запросы к леджеру.
type TransactionHandler struct {
	transactions *service.TransactionService
}

func NewTransactionHandler(transactions *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

// CreateTransaction POST /admin/transactions (только администратор)
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateTransactionRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	tx, err := h.transactions.CreateTransaction(c.Request.Context(), service.CreateTransactionParams{
		Type:          req.Type,
		SenderID:      req.SenderID,
		SenderType:    req.SenderType,
		RecipientID:   req.RecipientID,
		RecipientType: req.RecipientType,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Fees:          req.Fees,
		Description:   req.Description,
	}, models.UserActor(adminID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// GetTransaction GET /transactions/:id
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	txID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	tx, err := h.transactions.GetTransaction(c.Request.Context(), txID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// GetTransactionByReference GET /transactions/reference/:reference
func (h *TransactionHandler) GetTransactionByReference(c *gin.Context) {
	reference := c.Param("reference")
	if reference == "" {
		common.RespondBadRequest(c, "параметр reference обязателен")
		return
	}

	tx, err := h.transactions.GetTransactionByReference(c.Request.Context(), reference)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// ListMyTransactions GET /transactions
func (h *TransactionHandler) ListMyTransactions(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	transactions, err := h.transactions.GetUserTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}

// GetMyVolume GET /transactions/volume
func (h *TransactionHandler) GetMyVolume(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	volume, err := h.transactions.GetUserVolume(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"volume": volume})
}

// UpdateTransactionStatus PATCH /admin/transactions/:id/status (только администратор)
func (h *TransactionHandler) UpdateTransactionStatus(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	txID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.UpdateTransactionStatusRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	tx, err := h.transactions.UpdateTransactionStatus(c.Request.Context(), txID, req.Status, req.Reason, models.UserActor(adminID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// RecordProcessingAttempt POST /admin/transactions/:id/attempts (только администратор)
func (h *TransactionHandler) RecordProcessingAttempt(c *gin.Context) {
	txID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.RecordProcessingAttemptRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	tx, err := h.transactions.RecordProcessingAttempt(c.Request.Context(), txID, req.Gateway, req.Success, req.Error)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}
