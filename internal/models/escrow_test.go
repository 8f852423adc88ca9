package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/pkg/objectid"
)

func newTestEscrow(t *testing.T, amount float64) *Escrow {
	t.Helper()
	now := time.Now()
	return NewEscrow(objectid.New(), objectid.New(), objectid.New(), objectid.New(),
		amount, "USD", "card", now.Add(30*24*time.Hour), now)
}

func TestNewEscrow_Defaults(t *testing.T) {
	e := newTestEscrow(t, 500)

	assert.Equal(t, EscrowStatusPending, e.Status)
	assert.True(t, e.AutoReleaseEnabled)
	assert.Equal(t, DefaultAutoReleaseDays, e.AutoReleaseDays)
	assert.Equal(t, "USD", e.Currency)
	// Создание не оставляет следа в журнале.
	assert.Empty(t, e.History)
}

func TestEscrow_Fund(t *testing.T) {
	e := newTestEscrow(t, 500)
	now := time.Now()
	txID := objectid.New()

	err := e.Fund(txID, SystemActor(), now)
	assert.NoError(t, err)
	assert.Equal(t, EscrowStatusFunded, e.Status)
	require.NotNil(t, e.FundedAt)
	assert.Contains(t, e.TransactionIDs, txID)
	require.Len(t, e.History, 1)
	assert.Equal(t, EscrowActionFunded, e.History[0].Action)
	assert.Equal(t, ActorTypeSystem, e.History[0].PerformedBy.Type)

	// повторное финансирование запрещено
	err = e.Fund(objectid.New(), SystemActor(), now)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestEscrow_Release_FullAmount(t *testing.T) {
	e := newTestEscrow(t, 500)
	now := time.Now()
	require.NoError(t, e.Fund(objectid.New(), SystemActor(), now))

	released, err := e.Release(UserActor(e.ClientID), 0, "работа принята", now)
	assert.NoError(t, err)
	assert.Equal(t, 500.0, released)
	assert.Equal(t, EscrowStatusReleased, e.Status)
	assert.NotNil(t, e.ReleasedAt)
}

func TestEscrow_History_FundThenRelease(t *testing.T) {
	e := newTestEscrow(t, 500)
	now := time.Now()
	require.NoError(t, e.Fund(objectid.New(), SystemActor(), now))
	_, err := e.Release(UserActor(e.ClientID), 0, "", now)
	require.NoError(t, err)

	// Полный цикл создание -> финансирование -> выплата оставляет
	// ровно две записи журнала.
	require.Len(t, e.History, 2)
	assert.Equal(t, EscrowActionFunded, e.History[0].Action)
	assert.Equal(t, EscrowActionReleased, e.History[1].Action)
}

func TestEscrow_Release_NoDoubleRelease(t *testing.T) {
	e := newTestEscrow(t, 500)
	now := time.Now()
	require.NoError(t, e.Fund(objectid.New(), SystemActor(), now))

	_, err := e.Release(UserActor(e.ClientID), 0, "", now)
	require.NoError(t, err)
	historyLen := len(e.History)
	releasedAt := *e.ReleasedAt

	_, err = e.Release(UserActor(e.ClientID), 0, "", now.Add(time.Hour))
	assert.True(t, apperror.IsInvalidState(err))
	assert.Len(t, e.History, historyLen)
	assert.Equal(t, releasedAt, *e.ReleasedAt)
}

func TestEscrow_Release_AmountExceedsEscrow(t *testing.T) {
	e := newTestEscrow(t, 500)
	now := time.Now()
	require.NoError(t, e.Fund(objectid.New(), SystemActor(), now))

	_, err := e.Release(UserActor(e.ClientID), 600, "", now)
	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, EscrowStatusFunded, e.Status)
}

func TestEscrow_Release_RequiresFunded(t *testing.T) {
	e := newTestEscrow(t, 500)

	_, err := e.Release(UserActor(e.ClientID), 0, "", time.Now())
	assert.True(t, apperror.IsInvalidState(err))
}

func TestEscrow_Refund(t *testing.T) {
	e := newTestEscrow(t, 200)
	now := time.Now()
	require.NoError(t, e.Fund(objectid.New(), SystemActor(), now))

	err := e.Refund(UserActor(e.ClientID), "заказ отменён", now)
	assert.NoError(t, err)
	assert.Equal(t, EscrowStatusRefunded, e.Status)

	err = e.Refund(UserActor(e.ClientID), "", now)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestEscrow_Dispute(t *testing.T) {
	e := newTestEscrow(t, 200)
	now := time.Now()
	require.NoError(t, e.Fund(objectid.New(), SystemActor(), now))

	disputeID := objectid.New()
	err := e.MarkDisputed(UserActor(e.ClientID), disputeID, "работа не сдана", now)
	assert.NoError(t, err)
	assert.Equal(t, EscrowStatusDisputed, e.Status)
	assert.True(t, e.IsDisputed)
	require.NotNil(t, e.DisputeID)
	assert.Equal(t, disputeID, *e.DisputeID)

	// после спора прямая выплата запрещена
	_, err = e.Release(UserActor(e.ClientID), 0, "", now)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestEscrow_Dispute_RequiresFunded(t *testing.T) {
	e := newTestEscrow(t, 200)

	err := e.MarkDisputed(UserActor(e.ClientID), objectid.New(), "причина", time.Now())
	assert.True(t, apperror.IsInvalidState(err))
}

func TestEscrow_UnmarkDisputed(t *testing.T) {
	e := newTestEscrow(t, 200)
	now := time.Now()
	require.NoError(t, e.Fund(objectid.New(), SystemActor(), now))
	require.NoError(t, e.MarkDisputed(UserActor(e.ClientID), objectid.New(), "спор", now))

	err := e.UnmarkDisputed(now)
	assert.NoError(t, err)
	assert.Equal(t, EscrowStatusFunded, e.Status)
	assert.False(t, e.IsDisputed)
	assert.Nil(t, e.DisputeID)
	assert.Nil(t, e.DisputedAt)

	// Вне спора снимать нечего.
	err = e.UnmarkDisputed(now)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestEscrow_ResolveDispute(t *testing.T) {
	cases := []struct {
		outcome    string
		wantStatus string
	}{
		{EscrowResolutionReleased, EscrowStatusReleased},
		{EscrowResolutionSplit, EscrowStatusReleased},
		{EscrowResolutionRefunded, EscrowStatusRefunded},
	}
	for _, tc := range cases {
		e := newTestEscrow(t, 200)
		now := time.Now()
		require.NoError(t, e.Fund(objectid.New(), SystemActor(), now))
		require.NoError(t, e.MarkDisputed(UserActor(e.ClientID), objectid.New(), "спор", now))

		err := e.ResolveDispute(tc.outcome, 0, SystemActor(), "решение админа", now)
		assert.NoError(t, err)
		assert.Equal(t, tc.wantStatus, e.Status)
		assert.False(t, e.IsDisputed)
		require.NotNil(t, e.DisputeResolution)
		assert.Equal(t, tc.outcome, *e.DisputeResolution)
	}
}

func TestEscrow_ResolveDispute_OnlyFromDisputed(t *testing.T) {
	e := newTestEscrow(t, 200)
	now := time.Now()
	require.NoError(t, e.Fund(objectid.New(), SystemActor(), now))

	err := e.ResolveDispute(EscrowResolutionReleased, 0, SystemActor(), "", now)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestEscrow_AutoReleaseDue(t *testing.T) {
	e := newTestEscrow(t, 500)
	now := time.Now()
	fundedAt := now.Add(-15 * 24 * time.Hour)
	require.NoError(t, e.Fund(objectid.New(), SystemActor(), fundedAt))

	assert.True(t, e.AutoReleaseDue(now))

	// срок ещё не наступил
	recent := newTestEscrow(t, 500)
	require.NoError(t, recent.Fund(objectid.New(), SystemActor(), now.Add(-24*time.Hour)))
	assert.False(t, recent.AutoReleaseDue(now))

	// авто-выплата выключена
	e.AutoReleaseEnabled = false
	assert.False(t, e.AutoReleaseDue(now))
}

func TestEscrow_AutoReleaseDue_MilestoneGating(t *testing.T) {
	e := newTestEscrow(t, 500)
	now := time.Now()
	e.RequireMilestoneCompletion = true
	e.ReleaseConditions = ReleaseConditions{
		{Type: ReleaseConditionMilestone, Description: "этап 1", Completed: true},
		{Type: ReleaseConditionMilestone, Description: "этап 2", Completed: false},
	}
	require.NoError(t, e.Fund(objectid.New(), SystemActor(), now.Add(-30*24*time.Hour)))

	// срок давно прошёл, но этап 2 не закрыт
	assert.False(t, e.AutoReleaseDue(now))

	require.NoError(t, e.CompleteCondition(1, now))
	assert.True(t, e.AutoReleaseDue(now))
}

func TestEscrow_AutoReleaseDue_TerminalNoOp(t *testing.T) {
	e := newTestEscrow(t, 500)
	now := time.Now()
	require.NoError(t, e.Fund(objectid.New(), SystemActor(), now.Add(-100*24*time.Hour)))
	_, err := e.Release(SystemActor(), 0, "Auto-released", now)
	require.NoError(t, err)

	// сколько бы времени ни прошло, released эскроу не трогаем
	assert.False(t, e.AutoReleaseDue(now.Add(365*24*time.Hour)))
}

func TestEscrow_CompleteCondition_BadIndex(t *testing.T) {
	e := newTestEscrow(t, 500)
	err := e.CompleteCondition(0, time.Now())
	assert.True(t, apperror.IsValidation(err))
}
