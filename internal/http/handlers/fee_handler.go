package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/dto"
	"github.com/ignatzorin/escrow-backend/internal/fees"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers/common"
)

// FeeHandler отдаёт расчёты комиссий. Расчёт чистый, состояния нет.
type FeeHandler struct{}

func NewFeeHandler() *FeeHandler {
	return &FeeHandler{}
}

// CalculateFees POST /fees/calculate
func (h *FeeHandler) CalculateFees(c *gin.Context) {
	var req dto.CalculateFeesRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	feeType := req.Type
	if feeType == "" {
		feeType = fees.TypeEscrow
	}

	breakdown, err := fees.Calculate(req.Amount, feeType)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

// EstimateFees GET /fees/estimate?amount=100
// Возвращает оценку по всем тарифам плюс эффект объёмной скидки.
func (h *FeeHandler) EstimateFees(c *gin.Context) {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil || amount <= 0 {
		common.RespondBadRequest(c, "параметр amount должен быть положительным числом")
		return
	}

	estimates := make(map[string]fees.Estimate, 3)
	for _, feeType := range []string{fees.TypeEscrow, fees.TypeMilestone, fees.TypeHourly} {
		result, err := fees.Estimates([]float64{amount}, feeType)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		estimates[feeType] = result[0]
	}

	savings, err := fees.CalculateSavings(amount, fees.TypeEscrow)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FeeEstimateResponse{
		Amount:    amount,
		Estimates: estimates,
		Savings:   savings,
	})
}
