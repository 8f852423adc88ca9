package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/pkg/objectid"
	"github.com/ignatzorin/escrow-backend/internal/repository"
)

func TestTransactionService_CreateTransaction(t *testing.T) {
	txRepo := new(mockTransactionRepo)
	svc := NewTransactionService(txRepo)
	ctx := context.Background()

	txRepo.On("Create", ctx, mock.Anything).Return(nil)

	recipient := objectid.New()
	tx, err := svc.CreateTransaction(ctx, CreateTransactionParams{
		Type:          models.TransactionTypeDeposit,
		RecipientID:   recipient.String(),
		RecipientType: models.PartyTypeClient,
		Amount:        250,
		Fees:          models.TransactionFees{Platform: 12.5, Processing: 7.55},
		Description:   "пополнение",
	}, models.SystemActor())
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusPending, tx.Status)
	assert.Equal(t, 250+12.5+7.55, tx.Total)
	assert.Equal(t, objectid.Nil, tx.SenderID)
	assert.Equal(t, recipient, tx.RecipientID)
	assert.NotEmpty(t, tx.Reference)
	require.Len(t, tx.StatusHistory, 1)
}

func TestTransactionService_CreateTransaction_Invalid(t *testing.T) {
	svc := NewTransactionService(new(mockTransactionRepo))
	ctx := context.Background()

	_, err := svc.CreateTransaction(ctx, CreateTransactionParams{
		Type:        "teleport",
		RecipientID: objectid.New().String(),
		Amount:      100,
	}, models.SystemActor())
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.CreateTransaction(ctx, CreateTransactionParams{
		Type:        models.TransactionTypeDeposit,
		RecipientID: objectid.New().String(),
		Amount:      -5,
	}, models.SystemActor())
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.CreateTransaction(ctx, CreateTransactionParams{
		Type:        models.TransactionTypeDeposit,
		RecipientID: "bogus",
		Amount:      100,
	}, models.SystemActor())
	assert.True(t, apperror.IsValidation(err))
}

func TestTransactionService_UpdateTransactionStatus(t *testing.T) {
	txRepo := new(mockTransactionRepo)
	svc := NewTransactionService(txRepo)
	ctx := context.Background()

	tx, err := models.NewTransaction(models.TransactionTypePayment,
		objectid.New(), models.PartyTypeClient, objectid.New(), models.PartyTypeFreelancer,
		100, "USD", models.TransactionFees{}, models.SystemActor(), time.Now())
	require.NoError(t, err)

	txRepo.On("GetByID", ctx, tx.ID).Return(tx, nil)
	txRepo.On("Update", ctx, tx).Return(nil)

	updated, err := svc.UpdateTransactionStatus(ctx, tx.ID, models.TransactionStatusCompleted, "оплата прошла", models.SystemActor())
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, updated.Status)
	assert.NotNil(t, updated.CompletedAt)
	require.Len(t, updated.StatusHistory, 2)
	assert.Equal(t, "оплата прошла", updated.StatusHistory[1].Reason)
}

func TestTransactionService_RecordProcessingAttempt(t *testing.T) {
	txRepo := new(mockTransactionRepo)
	svc := NewTransactionService(txRepo)
	ctx := context.Background()

	tx, err := models.NewTransaction(models.TransactionTypePayment,
		objectid.New(), models.PartyTypeClient, objectid.New(), models.PartyTypeFreelancer,
		100, "USD", models.TransactionFees{}, models.SystemActor(), time.Now())
	require.NoError(t, err)

	txRepo.On("GetByID", ctx, tx.ID).Return(tx, nil)
	txRepo.On("Update", ctx, tx).Return(nil)

	updated, err := svc.RecordProcessingAttempt(ctx, tx.ID, "stripe", false, "card declined")
	require.NoError(t, err)
	require.Len(t, updated.ProcessingAttempts, 1)
	assert.Equal(t, 1, updated.ProcessingAttempts[0].Attempt)
	assert.False(t, updated.ProcessingAttempts[0].Success)
	assert.Equal(t, "card declined", updated.ProcessingAttempts[0].Error)
}

func TestTransactionService_GetTransaction_NotFound(t *testing.T) {
	txRepo := new(mockTransactionRepo)
	svc := NewTransactionService(txRepo)
	ctx := context.Background()

	id := objectid.New()
	txRepo.On("GetByID", ctx, id).Return(nil, repository.ErrTransactionNotFound)

	_, err := svc.GetTransaction(ctx, id)
	assert.ErrorIs(t, err, apperror.ErrTransactionNotFound)
}

func TestTransactionService_GetUserTransactions_ClampsPagination(t *testing.T) {
	txRepo := new(mockTransactionRepo)
	svc := NewTransactionService(txRepo)
	ctx := context.Background()

	userID := objectid.New()
	txRepo.On("ListByUser", ctx, userID, 20, 0).Return([]models.Transaction{}, nil)

	_, err := svc.GetUserTransactions(ctx, userID, -1, -1)
	require.NoError(t, err)
	txRepo.AssertExpectations(t)
}
