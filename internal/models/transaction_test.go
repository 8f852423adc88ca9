package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/pkg/objectid"
)

func newTestTransaction(t *testing.T) *Transaction {
	t.Helper()
	tx, err := NewTransaction(TransactionTypeEscrowFund,
		objectid.New(), PartyTypeClient,
		objectid.New(), PartyTypePlatform,
		500, "USD",
		TransactionFees{Platform: 25, Processing: 14.8},
		SystemActor(), time.Now())
	require.NoError(t, err)
	return tx
}

func TestNewTransaction_TotalInvariant(t *testing.T) {
	tx := newTestTransaction(t)
	assert.Equal(t, tx.Amount+tx.Fees.Sum(), tx.Total)
	assert.Equal(t, 539.8, tx.Total)
	assert.Equal(t, TransactionStatusPending, tx.Status)
	require.Len(t, tx.StatusHistory, 1)
}

func TestNewTransaction_Validation(t *testing.T) {
	_, err := NewTransaction("teleport", objectid.New(), PartyTypeClient,
		objectid.New(), PartyTypePlatform, 100, "USD", TransactionFees{}, SystemActor(), time.Now())
	assert.True(t, apperror.IsValidation(err))

	_, err = NewTransaction(TransactionTypePayment, objectid.New(), PartyTypeClient,
		objectid.New(), PartyTypePlatform, 0, "USD", TransactionFees{}, SystemActor(), time.Now())
	assert.True(t, apperror.IsValidation(err))
}

func TestTransactionReference_Format(t *testing.T) {
	ref := NewTransactionReference(time.Now())
	assert.True(t, strings.HasPrefix(ref, "TXN-"))
	parts := strings.Split(ref, "-")
	require.Len(t, parts, 3)
	assert.Len(t, parts[2], 8)
}

func TestTransaction_UpdateStatus_AppendsHistory(t *testing.T) {
	tx := newTestTransaction(t)
	now := time.Now()

	require.NoError(t, tx.UpdateStatus(TransactionStatusProcessing, "отправлена в шлюз", SystemActor(), now))
	require.NoError(t, tx.UpdateStatus(TransactionStatusCompleted, "шлюз подтвердил", SystemActor(), now))

	require.Len(t, tx.StatusHistory, 3)
	assert.Equal(t, TransactionStatusPending, tx.StatusHistory[0].Status)
	assert.Equal(t, TransactionStatusProcessing, tx.StatusHistory[1].Status)
	assert.Equal(t, TransactionStatusCompleted, tx.StatusHistory[2].Status)
	assert.Equal(t, TransactionStatusCompleted, tx.Status)
	require.NotNil(t, tx.CompletedAt)
}

func TestTransaction_UpdateStatus_Unknown(t *testing.T) {
	tx := newTestTransaction(t)
	err := tx.UpdateStatus("vanished", "", SystemActor(), time.Now())
	assert.True(t, apperror.IsValidation(err))
	assert.Len(t, tx.StatusHistory, 1)
}

func TestTransaction_AddProcessingAttempt(t *testing.T) {
	tx := newTestTransaction(t)
	now := time.Now()

	tx.AddProcessingAttempt("stripe", false, "card_declined", now)
	tx.AddProcessingAttempt("stripe", true, "", now)

	require.Len(t, tx.ProcessingAttempts, 2)
	assert.Equal(t, 1, tx.ProcessingAttempts[0].Attempt)
	assert.Equal(t, 2, tx.ProcessingAttempts[1].Attempt)
	assert.True(t, tx.ProcessingAttempts[1].Success)
}
