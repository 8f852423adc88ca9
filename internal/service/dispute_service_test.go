package service

import (
	"context"
	"errors"
	"strings"
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

type mockDisputeRepo struct {
	mock.Mock
}

func (m *mockDisputeRepo) Create(ctx context.Context, d *models.Dispute) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDisputeRepo) GetByID(ctx context.Context, id objectid.ID) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) GetByEscrowID(ctx context.Context, escrowID objectid.ID) (*models.Dispute, error) {
	args := m.Called(ctx, escrowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) Update(ctx context.Context, d *models.Dispute) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDisputeRepo) ListByUser(ctx context.Context, userID objectid.ID, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) ListRequiringAttention(ctx context.Context, now time.Time, limit int) ([]models.Dispute, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) Stats(ctx context.Context) ([]models.DisputeStat, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.DisputeStat), args.Error(1)
}

func newDisputeServices(disputeRepo *mockDisputeRepo, escrowRepo *mockEscrowRepo, txRepo *mockTransactionRepo) *DisputeService {
	escrows := NewEscrowService(escrowRepo, txRepo, nil)
	return NewDisputeService(disputeRepo, escrows, nil)
}

func newTestDispute(initiatorID, respondentID objectid.ID) *models.Dispute {
	return models.NewDispute(initiatorID, models.DisputeRoleClient, respondentID, models.DisputeRoleFreelancer,
		models.DisputeTypeQuality, "", "Работа не соответствует ТЗ", "Результат существенно расходится с согласованным заданием", "", time.Now())
}

func TestDisputeService_OpenDispute_WithEscrow(t *testing.T) {
	disputeRepo := new(mockDisputeRepo)
	escrowRepo := new(mockEscrowRepo)
	svc := newDisputeServices(disputeRepo, escrowRepo, new(mockTransactionRepo))
	ctx := context.Background()

	e := newTestEscrow(models.EscrowStatusFunded)
	disputeRepo.On("GetByEscrowID", ctx, e.ID).Return(nil, repository.ErrDisputeNotFound)
	escrowRepo.On("GetByID", ctx, e.ID).Return(e, nil)
	escrowRepo.On("UpdateFromStatus", ctx, e, models.EscrowStatusFunded).Return(nil)
	disputeRepo.On("Create", ctx, mock.Anything).Return(nil)

	now := time.Now()
	d, err := svc.OpenDispute(ctx, OpenDisputeParams{
		EscrowID:       e.ID.String(),
		InitiatorID:    e.ClientID,
		InitiatorRole:  models.DisputeRoleClient,
		RespondentID:   e.FreelancerID.String(),
		RespondentRole: models.DisputeRoleFreelancer,
		Type:           models.DisputeTypeQuality,
		Title:          "Работа не принята",
		Description:    "Результат существенно расходится с заданием",
	})
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusOpened, d.Status)
	assert.Equal(t, models.DisputePriorityMedium, d.Priority)
	require.NotNil(t, d.EscrowID)
	assert.Equal(t, e.ID, *d.EscrowID)

	// Дедлайны выставлены от момента создания.
	assert.WithinDuration(t, now.Add(models.DisputeResponseDeadline), d.ResponseDeadline, time.Minute)
	assert.WithinDuration(t, now.Add(models.DisputeEscalationDeadline), d.EscalationDeadline, time.Minute)
	require.NotNil(t, d.NextActionAt)
	assert.Equal(t, d.ResponseDeadline, *d.NextActionAt)

	// Эскроу заблокирован спором.
	assert.Equal(t, models.EscrowStatusDisputed, e.Status)
	require.NotNil(t, e.DisputeID)
	assert.Equal(t, d.ID, *e.DisputeID)
	disputeRepo.AssertExpectations(t)
	escrowRepo.AssertExpectations(t)
}

func TestDisputeService_OpenDispute_DuplicateEscrowDispute(t *testing.T) {
	disputeRepo := new(mockDisputeRepo)
	escrowRepo := new(mockEscrowRepo)
	svc := newDisputeServices(disputeRepo, escrowRepo, new(mockTransactionRepo))
	ctx := context.Background()

	e := newTestEscrow(models.EscrowStatusFunded)
	existing := newTestDispute(e.ClientID, e.FreelancerID)
	disputeRepo.On("GetByEscrowID", ctx, e.ID).Return(existing, nil)

	_, err := svc.OpenDispute(ctx, OpenDisputeParams{
		EscrowID:       e.ID.String(),
		InitiatorID:    e.ClientID,
		InitiatorRole:  models.DisputeRoleClient,
		RespondentID:   e.FreelancerID.String(),
		RespondentRole: models.DisputeRoleFreelancer,
		Type:           models.DisputeTypeQuality,
		Title:          "Повторный спор",
		Description:    "Попытка открыть второй спор по тому же эскроу",
	})
	assert.True(t, apperror.IsInvalidState(err))
	disputeRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDisputeService_OpenDispute_Validation(t *testing.T) {
	svc := newDisputeServices(new(mockDisputeRepo), new(mockEscrowRepo), new(mockTransactionRepo))
	ctx := context.Background()
	initiator := objectid.New()

	base := OpenDisputeParams{
		InitiatorID:    initiator,
		InitiatorRole:  models.DisputeRoleClient,
		RespondentID:   objectid.New().String(),
		RespondentRole: models.DisputeRoleFreelancer,
		Type:           models.DisputeTypeQuality,
		Title:          "Нормальный заголовок",
		Description:    "Достаточно длинное описание проблемы",
	}

	p := base
	p.Type = "unknown"
	_, err := svc.OpenDispute(ctx, p)
	assert.True(t, apperror.IsValidation(err))

	p = base
	p.Title = "ab"
	_, err = svc.OpenDispute(ctx, p)
	assert.True(t, apperror.IsValidation(err))

	p = base
	p.Description = "коротко"
	_, err = svc.OpenDispute(ctx, p)
	assert.True(t, apperror.IsValidation(err))

	p = base
	p.Description = strings.Repeat("а", 5001)
	_, err = svc.OpenDispute(ctx, p)
	assert.True(t, apperror.IsValidation(err))

	p = base
	p.RespondentID = initiator.String()
	_, err = svc.OpenDispute(ctx, p)
	assert.True(t, apperror.IsValidation(err))

	p = base
	p.Priority = "extreme"
	_, err = svc.OpenDispute(ctx, p)
	assert.True(t, apperror.IsValidation(err))
}

func TestDisputeService_AddMessage(t *testing.T) {
	disputeRepo := new(mockDisputeRepo)
	svc := newDisputeServices(disputeRepo, new(mockEscrowRepo), new(mockTransactionRepo))
	ctx := context.Background()

	d := newTestDispute(objectid.New(), objectid.New())
	disputeRepo.On("GetByID", ctx, d.ID).Return(d, nil)
	disputeRepo.On("Update", ctx, d).Return(nil)

	updated, err := svc.AddMessage(ctx, d.ID, d.RespondentID, models.DisputeRoleFreelancer, "Готов доработать", nil, "")
	require.NoError(t, err)
	require.Len(t, updated.Thread, 1)
	assert.Equal(t, d.RespondentID, updated.Thread[0].Sender)
	assert.Equal(t, models.VisibilityAll, updated.Thread[0].Visibility)
}

func TestDisputeService_AddMessage_NotParticipant(t *testing.T) {
	disputeRepo := new(mockDisputeRepo)
	svc := newDisputeServices(disputeRepo, new(mockEscrowRepo), new(mockTransactionRepo))
	ctx := context.Background()

	d := newTestDispute(objectid.New(), objectid.New())
	disputeRepo.On("GetByID", ctx, d.ID).Return(d, nil)

	_, err := svc.AddMessage(ctx, d.ID, objectid.New(), models.DisputeRoleClient, "Я посторонний", nil, "")
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestDisputeService_AddEvidence(t *testing.T) {
	disputeRepo := new(mockDisputeRepo)
	svc := newDisputeServices(disputeRepo, new(mockEscrowRepo), new(mockTransactionRepo))
	ctx := context.Background()

	d := newTestDispute(objectid.New(), objectid.New())
	disputeRepo.On("GetByID", ctx, d.ID).Return(d, nil)
	disputeRepo.On("Update", ctx, d).Return(nil)

	updated, err := svc.AddEvidence(ctx, d.ID, d.InitiatorID, "screenshot", "https://files.example.com/proof.png", "скриншот переписки")
	require.NoError(t, err)
	require.Len(t, updated.Evidence, 1)
	assert.Equal(t, models.EvidencePending, updated.Evidence[0].VerificationStatus)
	assert.False(t, updated.Evidence[0].UploadedAt.IsZero())
}

func TestDisputeService_AddEvidence_BadURL(t *testing.T) {
	svc := newDisputeServices(new(mockDisputeRepo), new(mockEscrowRepo), new(mockTransactionRepo))
	ctx := context.Background()

	_, err := svc.AddEvidence(ctx, objectid.New(), objectid.New(), "screenshot", "ftp://host/file", "")
	assert.True(t, apperror.IsValidation(err))
}

func TestDisputeService_UpdateStatus_NextAction(t *testing.T) {
	disputeRepo := new(mockDisputeRepo)
	svc := newDisputeServices(disputeRepo, new(mockEscrowRepo), new(mockTransactionRepo))
	ctx := context.Background()

	d := newTestDispute(objectid.New(), objectid.New())
	disputeRepo.On("GetByID", ctx, d.ID).Return(d, nil)
	disputeRepo.On("Update", ctx, d).Return(nil)

	now := time.Now()
	updated, err := svc.UpdateStatus(ctx, d.ID, models.DisputeStatusUnderReview)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusUnderReview, updated.Status)
	require.NotNil(t, updated.NextActionAt)
	assert.WithinDuration(t, now.Add(48*time.Hour), *updated.NextActionAt, time.Minute)
}

func TestDisputeService_OpenDispute_UnlocksEscrowWhenCreateFails(t *testing.T) {
	disputeRepo := new(mockDisputeRepo)
	escrowRepo := new(mockEscrowRepo)
	svc := newDisputeServices(disputeRepo, escrowRepo, new(mockTransactionRepo))
	ctx := context.Background()

	e := newTestEscrow(models.EscrowStatusFunded)
	disputeRepo.On("GetByEscrowID", ctx, e.ID).Return(nil, repository.ErrDisputeNotFound)
	escrowRepo.On("GetByID", ctx, e.ID).Return(e, nil)
	escrowRepo.On("UpdateFromStatus", ctx, e, models.EscrowStatusFunded).Return(nil)
	escrowRepo.On("UpdateFromStatus", ctx, e, models.EscrowStatusDisputed).Return(nil)
	disputeRepo.On("Create", ctx, mock.Anything).Return(errors.New("insert failed"))

	_, err := svc.OpenDispute(ctx, OpenDisputeParams{
		EscrowID:       e.ID.String(),
		InitiatorID:    e.ClientID,
		InitiatorRole:  models.DisputeRoleClient,
		RespondentID:   e.FreelancerID.String(),
		RespondentRole: models.DisputeRoleFreelancer,
		Type:           models.DisputeTypeQuality,
		Title:          "Работа не принята",
		Description:    "Результат существенно расходится с заданием",
	})
	require.Error(t, err)

	// Блокировка снята, эскроу не ссылается на несохранённый спор.
	assert.Equal(t, models.EscrowStatusFunded, e.Status)
	assert.False(t, e.IsDisputed)
	assert.Nil(t, e.DisputeID)
	escrowRepo.AssertExpectations(t)
}

func TestDisputeService_ResolveDispute_InFavorOfFreelancer(t *testing.T) {
	disputeRepo := new(mockDisputeRepo)
	escrowRepo := new(mockEscrowRepo)
	txRepo := new(mockTransactionRepo)
	svc := newDisputeServices(disputeRepo, escrowRepo, txRepo)
	ctx := context.Background()

	e := newTestEscrow(models.EscrowStatusDisputed)
	d := newTestDispute(e.ClientID, e.FreelancerID)
	escrowID := e.ID
	d.EscrowID = &escrowID

	disputeRepo.On("GetByID", ctx, d.ID).Return(d, nil)
	disputeRepo.On("Update", ctx, d).Return(nil)
	escrowRepo.On("GetByID", ctx, e.ID).Return(e, nil)
	escrowRepo.On("UpdateFromStatus", ctx, e, models.EscrowStatusDisputed).Return(nil)

	var ledger *models.Transaction
	txRepo.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		ledger = args.Get(1).(*models.Transaction)
	}).Return(nil)

	admin := objectid.New()
	resolved, err := svc.ResolveDispute(ctx, d.ID, models.ResolutionInFavorOfFreelancer, 0, admin, "доводы фрилансера подтверждены")
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusResolved, resolved.Status)
	assert.Equal(t, admin, resolved.Resolution.ResolvedBy)
	require.NotNil(t, resolved.Resolution.ResolvedAt)
	assert.Nil(t, resolved.NextActionAt)

	// Эскроу завершён выплатой фрилансеру.
	assert.Equal(t, models.EscrowStatusReleased, e.Status)
	require.NotNil(t, ledger)
	assert.Equal(t, e.FreelancerID, ledger.RecipientID)
	assert.Equal(t, models.TransactionTypeEscrowRelease, ledger.Type)
}

func TestDisputeService_ResolveDispute_ReopensWhenEscrowFails(t *testing.T) {
	disputeRepo := new(mockDisputeRepo)
	escrowRepo := new(mockEscrowRepo)
	svc := newDisputeServices(disputeRepo, escrowRepo, new(mockTransactionRepo))
	ctx := context.Background()

	e := newTestEscrow(models.EscrowStatusDisputed)
	d := newTestDispute(e.ClientID, e.FreelancerID)
	escrowID := e.ID
	d.EscrowID = &escrowID

	disputeRepo.On("GetByID", ctx, d.ID).Return(d, nil)
	var updates []models.Dispute
	disputeRepo.On("Update", ctx, mock.Anything).Run(func(args mock.Arguments) {
		updates = append(updates, *args.Get(1).(*models.Dispute))
	}).Return(nil)
	escrowRepo.On("GetByID", ctx, e.ID).Return(e, nil)
	escrowRepo.On("UpdateFromStatus", ctx, e, models.EscrowStatusDisputed).Return(errors.New("db down"))

	_, err := svc.ResolveDispute(ctx, d.ID, models.ResolutionInFavorOfFreelancer, 0, objectid.New(), "")
	require.Error(t, err)

	// Спор сперва закрывается, а после сбоя эскроу откатывается в исходный статус.
	require.Len(t, updates, 2)
	assert.Equal(t, models.DisputeStatusResolved, updates[0].Status)
	assert.Equal(t, models.DisputeStatusOpened, updates[1].Status)
	assert.Nil(t, updates[1].Resolution.ResolvedAt)
}

func TestDisputeService_ResolveDispute_CancelledLeavesEscrow(t *testing.T) {
	disputeRepo := new(mockDisputeRepo)
	escrowRepo := new(mockEscrowRepo)
	svc := newDisputeServices(disputeRepo, escrowRepo, new(mockTransactionRepo))
	ctx := context.Background()

	e := newTestEscrow(models.EscrowStatusDisputed)
	d := newTestDispute(e.ClientID, e.FreelancerID)
	escrowID := e.ID
	d.EscrowID = &escrowID

	disputeRepo.On("GetByID", ctx, d.ID).Return(d, nil)
	disputeRepo.On("Update", ctx, d).Return(nil)

	resolved, err := svc.ResolveDispute(ctx, d.ID, models.ResolutionCancelled, 0, objectid.New(), "")
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusResolved, resolved.Status)
	// Эскроу не затронут.
	assert.Equal(t, models.EscrowStatusDisputed, e.Status)
	escrowRepo.AssertNotCalled(t, "UpdateFromStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestDisputeService_ResolveDispute_UnknownOutcome(t *testing.T) {
	disputeRepo := new(mockDisputeRepo)
	svc := newDisputeServices(disputeRepo, new(mockEscrowRepo), new(mockTransactionRepo))
	ctx := context.Background()

	d := newTestDispute(objectid.New(), objectid.New())
	disputeRepo.On("GetByID", ctx, d.ID).Return(d, nil)

	_, err := svc.ResolveDispute(ctx, d.ID, "whatever", 0, objectid.New(), "")
	assert.True(t, apperror.IsValidation(err))
}

func TestDisputeService_ResolveDispute_AlreadyClosed(t *testing.T) {
	disputeRepo := new(mockDisputeRepo)
	svc := newDisputeServices(disputeRepo, new(mockEscrowRepo), new(mockTransactionRepo))
	ctx := context.Background()

	d := newTestDispute(objectid.New(), objectid.New())
	require.NoError(t, d.Resolve(models.Resolution{Outcome: models.ResolutionCancelled}, objectid.New(), time.Now()))
	disputeRepo.On("GetByID", ctx, d.ID).Return(d, nil)

	_, err := svc.ResolveDispute(ctx, d.ID, models.ResolutionMutual, 0, objectid.New(), "")
	assert.True(t, apperror.IsInvalidState(err))
}

func TestDisputeService_EscalateDispute(t *testing.T) {
	disputeRepo := new(mockDisputeRepo)
	svc := newDisputeServices(disputeRepo, new(mockEscrowRepo), new(mockTransactionRepo))
	ctx := context.Background()

	d := newTestDispute(objectid.New(), objectid.New())
	disputeRepo.On("GetByID", ctx, d.ID).Return(d, nil)
	disputeRepo.On("Update", ctx, d).Return(nil)

	updated, err := svc.EscalateDispute(ctx, d.ID, "стороны не пришли к соглашению")
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusEscalated, updated.Status)
	assert.True(t, updated.MediationRequired)
	assert.Nil(t, updated.NextActionAt)
	require.NotEmpty(t, updated.Thread)
	assert.Equal(t, models.PartyTypeSystem, updated.Thread[len(updated.Thread)-1].Role)
}

func TestDisputeService_GetUserDisputes_ClampsPagination(t *testing.T) {
	disputeRepo := new(mockDisputeRepo)
	svc := newDisputeServices(disputeRepo, new(mockEscrowRepo), new(mockTransactionRepo))
	ctx := context.Background()

	userID := objectid.New()
	disputeRepo.On("ListByUser", ctx, userID, 20, 0).Return([]models.Dispute{}, nil)

	_, err := svc.GetUserDisputes(ctx, userID, 1000, -5)
	require.NoError(t, err)
	disputeRepo.AssertExpectations(t)
}

func TestDisputeService_GetDisputeStats_Cached(t *testing.T) {
	disputeRepo := new(mockDisputeRepo)
	escrows := NewEscrowService(new(mockEscrowRepo), new(mockTransactionRepo), nil)
	svc := NewDisputeService(disputeRepo, escrows, NewCacheService())
	ctx := context.Background()

	stats := []models.DisputeStat{{Status: models.DisputeStatusOpened, Count: 3}}
	disputeRepo.On("Stats", ctx).Return(stats, nil).Once()

	got, err := svc.GetDisputeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats, got)

	got, err = svc.GetDisputeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats, got)
	disputeRepo.AssertExpectations(t)
}
