package service

import (
	"context"
	"errors"
	"time"

	"github.com/ignatzorin/escrow-backend/internal/fees"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/pkg/objectid"
	"github.com/ignatzorin/escrow-backend/internal/repository"
	"github.com/ignatzorin/escrow-backend/internal/validation"
)

// AutoReleaseNotes помечает в журнале авто-выплаты планировщика.
const AutoReleaseNotes = "Auto-released"

const escrowStatsCacheTTL = time.Minute

type EscrowRepo interface {
	Create(ctx context.Context, e *models.Escrow) error
	GetByID(ctx context.Context, id objectid.ID) (*models.Escrow, error)
	GetByJobID(ctx context.Context, jobID objectid.ID) (*models.Escrow, error)
	UpdateFromStatus(ctx context.Context, e *models.Escrow, fromStatus string) error
	ListActiveByUser(ctx context.Context, userID objectid.ID) ([]models.Escrow, error)
	ListAutoReleaseDue(ctx context.Context, now time.Time, limit int) ([]models.Escrow, error)
	StatsByUser(ctx context.Context, userID objectid.ID) ([]models.EscrowStat, error)
}

type TransactionRepo interface {
	Create(ctx context.Context, t *models.Transaction) error
	GetByID(ctx context.Context, id objectid.ID) (*models.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)
	Update(ctx context.Context, t *models.Transaction) error
	ListByUser(ctx context.Context, userID objectid.ID, limit, offset int) ([]models.Transaction, error)
	ListByEscrow(ctx context.Context, escrowID objectid.ID) ([]models.Transaction, error)
	VolumeByUser(ctx context.Context, userID objectid.ID) (float64, error)
}

// EscrowService реализует машину состояний эскроу поверх плоских моделей
// и репозитория. Каждый переход выполняется одной условной записью в хранилище.
type EscrowService struct {
	escrows      EscrowRepo
	transactions TransactionRepo
	cache        *CacheService
}

func NewEscrowService(er EscrowRepo, tr TransactionRepo, cache *CacheService) *EscrowService {
	return &EscrowService{escrows: er, transactions: tr, cache: cache}
}

// CreateEscrowParams содержит входные данные создания эскроу.
type CreateEscrowParams struct {
	JobID            string
	ClientID         string
	FreelancerID     string
	PaymentGatewayID string
	PaymentMethod    string
	Amount           float64
	Currency         string
	ExpiryDate       time.Time

	ReleaseConditions []models.ReleaseCondition

	DisableAutoRelease         bool
	AutoReleaseDays            int
	RequireMilestoneCompletion bool
}

// CreateEscrow создаёт эскроу в статусе pending.
func (s *EscrowService) CreateEscrow(ctx context.Context, p CreateEscrowParams) (*models.Escrow, error) {
	if err := validation.ValidateAmount(p.Amount); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	jobID, err := parseIDField(p.JobID, "job_id")
	if err != nil {
		return nil, err
	}
	clientID, err := parseIDField(p.ClientID, "client_id")
	if err != nil {
		return nil, err
	}
	freelancerID, err := parseIDField(p.FreelancerID, "freelancer_id")
	if err != nil {
		return nil, err
	}
	gatewayID, err := parseIDField(p.PaymentGatewayID, "payment_gateway_id")
	if err != nil {
		return nil, err
	}
	if p.ExpiryDate.IsZero() {
		return nil, apperror.Validation("expiry_date обязателен")
	}

	now := time.Now()
	e := models.NewEscrow(jobID, clientID, freelancerID, gatewayID,
		p.Amount, p.Currency, p.PaymentMethod, p.ExpiryDate, now)
	e.ReleaseConditions = p.ReleaseConditions

	if p.DisableAutoRelease {
		e.AutoReleaseEnabled = false
	}
	if p.AutoReleaseDays > 0 {
		e.AutoReleaseDays = p.AutoReleaseDays
	}
	e.RequireMilestoneCompletion = p.RequireMilestoneCompletion

	feeBreakdown, err := fees.Calculate(p.Amount, fees.TypeEscrow)
	if err != nil {
		return nil, err
	}
	e.FeeAmount = feeBreakdown.Total

	if err := s.escrows.Create(ctx, e); err != nil {
		return nil, err
	}
	s.invalidateStats(e)
	return e, nil
}

// FundEscrow переводит эскроу pending -> funded. Если транзакция оплаты не
// передана, сервис сам создаёт леджер-запись escrow_fund от клиента к платформе.
func (s *EscrowService) FundEscrow(ctx context.Context, escrowID, transactionID objectid.ID) (*models.Escrow, error) {
	e, err := s.getEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	now := time.Now()

	var fundTx *models.Transaction
	if transactionID.IsZero() {
		fundTx, err = s.newFundLedgerEntry(e, now)
		if err != nil {
			return nil, err
		}
		transactionID = fundTx.ID
	}

	if err := e.Fund(transactionID, models.SystemActor(), now); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, e, models.EscrowStatusPending); err != nil {
		return nil, err
	}
	if fundTx != nil {
		s.recordLedgerEntry(ctx, fundTx)
	}
	s.invalidateStats(e)
	return e, nil
}

// ReleaseEscrow выплачивает средства фрилансеру. amount <= 0 означает полную сумму.
func (s *EscrowService) ReleaseEscrow(ctx context.Context, escrowID, actingUserID objectid.ID, amount float64, notes string) (*models.Escrow, error) {
	e, err := s.getEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	return s.release(ctx, e, models.UserActor(actingUserID), amount, notes)
}

// release завершает эскроу выплатой: условная запись статуса + журнала,
// затем проводка в леджер.
func (s *EscrowService) release(ctx context.Context, e *models.Escrow, actor models.Actor, amount float64, notes string) (*models.Escrow, error) {
	now := time.Now()
	released, err := e.Release(actor, amount, notes, now)
	if err != nil {
		return nil, err
	}

	tx, err := s.newLedgerEntry(models.TransactionTypeEscrowRelease, e, e.FreelancerID, models.PartyTypeFreelancer, released, actor, now)
	if err != nil {
		return nil, err
	}
	e.TransactionIDs = append(e.TransactionIDs, tx.ID)

	if err := s.commit(ctx, e, models.EscrowStatusFunded); err != nil {
		return nil, err
	}
	s.recordLedgerEntry(ctx, tx)
	s.invalidateStats(e)
	return e, nil
}

// RefundEscrow возвращает средства клиенту из статуса funded.
func (s *EscrowService) RefundEscrow(ctx context.Context, escrowID, actingUserID objectid.ID, notes string) (*models.Escrow, error) {
	e, err := s.getEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	actor := models.UserActor(actingUserID)
	if err := e.Refund(actor, notes, now); err != nil {
		return nil, err
	}

	tx, err := s.newLedgerEntry(models.TransactionTypeEscrowRefund, e, e.ClientID, models.PartyTypeClient, e.Amount, actor, now)
	if err != nil {
		return nil, err
	}
	e.TransactionIDs = append(e.TransactionIDs, tx.ID)

	if err := s.commit(ctx, e, models.EscrowStatusFunded); err != nil {
		return nil, err
	}
	s.recordLedgerEntry(ctx, tx)
	s.invalidateStats(e)
	return e, nil
}

// DisputeEscrow переводит эскроу funded -> disputed. Оспорить сделку может
// только её сторона.
func (s *EscrowService) DisputeEscrow(ctx context.Context, escrowID, actingUserID, disputeID objectid.ID, reason string) (*models.Escrow, error) {
	e, err := s.getEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if e.ClientID != actingUserID && e.FreelancerID != actingUserID {
		return nil, apperror.ErrForbidden
	}
	now := time.Now()
	if err := e.MarkDisputed(models.UserActor(actingUserID), disputeID, reason, now); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, e, models.EscrowStatusFunded); err != nil {
		return nil, err
	}
	s.invalidateStats(e)
	return e, nil
}

// ReleaseDisputeHold возвращает эскроу из disputed в funded. Вызывается,
// когда спор по эскроу не удалось сохранить и блокировку нужно снять.
func (s *EscrowService) ReleaseDisputeHold(ctx context.Context, escrowID objectid.ID) error {
	e, err := s.getEscrow(ctx, escrowID)
	if err != nil {
		return err
	}
	if err := e.UnmarkDisputed(time.Now()); err != nil {
		return err
	}
	if err := s.commit(ctx, e, models.EscrowStatusDisputed); err != nil {
		return err
	}
	s.invalidateStats(e)
	return nil
}

// ResolveEscrowDispute закрывает спор по эскроу: released/split завершает
// сделку выплатой (split дополнительно возвращает остаток клиенту),
// а refunded полным возвратом.
func (s *EscrowService) ResolveEscrowDispute(ctx context.Context, escrowID objectid.ID, outcome string, amount float64, adminID objectid.ID, notes string) (*models.Escrow, error) {
	e, err := s.getEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	actor := models.UserActor(adminID)
	if err := e.ResolveDispute(outcome, amount, actor, notes, now); err != nil {
		return nil, err
	}

	var ledger []*models.Transaction
	switch outcome {
	case models.EscrowResolutionReleased:
		tx, err := s.newLedgerEntry(models.TransactionTypeEscrowRelease, e, e.FreelancerID, models.PartyTypeFreelancer, e.Amount, actor, now)
		if err != nil {
			return nil, err
		}
		ledger = append(ledger, tx)
	case models.EscrowResolutionRefunded:
		tx, err := s.newLedgerEntry(models.TransactionTypeEscrowRefund, e, e.ClientID, models.PartyTypeClient, e.Amount, actor, now)
		if err != nil {
			return nil, err
		}
		ledger = append(ledger, tx)
	case models.EscrowResolutionSplit:
		if amount <= 0 || amount > e.Amount {
			amount = e.Amount
		}
		releaseTx, err := s.newLedgerEntry(models.TransactionTypeEscrowRelease, e, e.FreelancerID, models.PartyTypeFreelancer, amount, actor, now)
		if err != nil {
			return nil, err
		}
		ledger = append(ledger, releaseTx)
		if remainder := e.Amount - amount; remainder > 0 {
			refundTx, err := s.newLedgerEntry(models.TransactionTypeEscrowRefund, e, e.ClientID, models.PartyTypeClient, remainder, actor, now)
			if err != nil {
				return nil, err
			}
			ledger = append(ledger, refundTx)
		}
	}
	for _, tx := range ledger {
		e.TransactionIDs = append(e.TransactionIDs, tx.ID)
	}

	if err := s.commit(ctx, e, models.EscrowStatusDisputed); err != nil {
		return nil, err
	}
	for _, tx := range ledger {
		s.recordLedgerEntry(ctx, tx)
	}
	s.invalidateStats(e)
	return e, nil
}

// CompleteReleaseCondition отмечает условие выплаты выполненным.
func (s *EscrowService) CompleteReleaseCondition(ctx context.Context, escrowID objectid.ID, index int, actingUserID objectid.ID) (*models.Escrow, error) {
	e, err := s.getEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if e.ClientID != actingUserID && e.FreelancerID != actingUserID {
		return nil, apperror.ErrForbidden
	}
	fromStatus := e.Status
	if err := e.CompleteCondition(index, time.Now()); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, e, fromStatus); err != nil {
		return nil, err
	}
	return e, nil
}

// CheckAutoRelease выполняет авто-выплату, если наступил срок. Повторные
// вызовы безопасны: любой статус, кроме funded, даёт false без записи.
func (s *EscrowService) CheckAutoRelease(ctx context.Context, escrowID objectid.ID) (bool, error) {
	e, err := s.getEscrow(ctx, escrowID)
	if err != nil {
		return false, err
	}
	if !e.AutoReleaseDue(time.Now()) {
		return false, nil
	}
	if _, err := s.release(ctx, e, models.SystemActor(), 0, AutoReleaseNotes); err != nil {
		// Конкурентный тик планировщика успел раньше, это не ошибка.
		if apperror.IsInvalidState(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RunAutoReleaseSweep обходит всех кандидатов на авто-выплату.
// Возвращает количество выполненных выплат.
func (s *EscrowService) RunAutoReleaseSweep(ctx context.Context, batchSize int) (int, error) {
	due, err := s.escrows.ListAutoReleaseDue(ctx, time.Now(), batchSize)
	if err != nil {
		return 0, err
	}
	released := 0
	for i := range due {
		ok, err := s.CheckAutoRelease(ctx, due[i].ID)
		if err != nil {
			logger.Log.WithField("escrow_id", due[i].ID).
				WithError(err).Error("авто-выплата не выполнена")
			continue
		}
		if ok {
			released++
		}
	}
	return released, nil
}

// GetEscrow возвращает эскроу по идентификатору.
func (s *EscrowService) GetEscrow(ctx context.Context, escrowID objectid.ID) (*models.Escrow, error) {
	return s.getEscrow(ctx, escrowID)
}

// GetEscrowByJob возвращает эскроу по заказу.
func (s *EscrowService) GetEscrowByJob(ctx context.Context, jobID objectid.ID) (*models.Escrow, error) {
	e, err := s.escrows.GetByJobID(ctx, jobID)
	if errors.Is(err, repository.ErrEscrowNotFound) {
		return nil, apperror.ErrEscrowNotFound
	}
	return e, err
}

// GetActiveEscrows возвращает действующие эскроу пользователя (funded и disputed).
func (s *EscrowService) GetActiveEscrows(ctx context.Context, userID objectid.ID) ([]models.Escrow, error) {
	return s.escrows.ListActiveByUser(ctx, userID)
}

// GetEscrowStats возвращает агрегаты по статусам с коротким кешем.
func (s *EscrowService) GetEscrowStats(ctx context.Context, userID objectid.ID) ([]models.EscrowStat, error) {
	if s.cache == nil {
		return s.escrows.StatsByUser(ctx, userID)
	}
	value, err := s.cache.GetOrSet(ctx, EscrowStatsCacheKey(userID), escrowStatsCacheTTL, func() (interface{}, error) {
		return s.escrows.StatsByUser(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return value.([]models.EscrowStat), nil
}

func (s *EscrowService) getEscrow(ctx context.Context, escrowID objectid.ID) (*models.Escrow, error) {
	e, err := s.escrows.GetByID(ctx, escrowID)
	if errors.Is(err, repository.ErrEscrowNotFound) {
		return nil, apperror.ErrEscrowNotFound
	}
	return e, err
}

// commit записывает переход условным обновлением; конфликт статуса
// транслируется в InvalidState для вызывающего.
func (s *EscrowService) commit(ctx context.Context, e *models.Escrow, fromStatus string) error {
	err := s.escrows.UpdateFromStatus(ctx, e, fromStatus)
	if errors.Is(err, repository.ErrEscrowStateConflict) {
		return apperror.InvalidState("статус эскроу изменился, операция отклонена")
	}
	return err
}

// newFundLedgerEntry создаёт запись escrow_fund: клиент вносит сумму сделки
// плюс комиссии на счёт платформы.
func (s *EscrowService) newFundLedgerEntry(e *models.Escrow, now time.Time) (*models.Transaction, error) {
	feeBreakdown, err := fees.Calculate(e.Amount, fees.TypeEscrow)
	if err != nil {
		return nil, err
	}
	tx, err := models.NewTransaction(models.TransactionTypeEscrowFund,
		e.ClientID, models.PartyTypeClient,
		models.PlatformAccountID, models.PartyTypePlatform,
		e.Amount, e.Currency,
		models.TransactionFees{Platform: feeBreakdown.Platform, Processing: feeBreakdown.Processing},
		models.UserActor(e.ClientID), now)
	if err != nil {
		return nil, err
	}
	escrowID := e.ID
	jobID := e.JobID
	tx.EscrowID = &escrowID
	tx.JobID = &jobID
	return tx, nil
}

func (s *EscrowService) newLedgerEntry(txType string, e *models.Escrow, recipientID objectid.ID, recipientType string, amount float64, actor models.Actor, now time.Time) (*models.Transaction, error) {
	feeBreakdown, err := fees.Calculate(amount, fees.TypeEscrow)
	if err != nil {
		return nil, err
	}
	tx, err := models.NewTransaction(txType,
		models.PlatformAccountID, models.PartyTypePlatform,
		recipientID, recipientType,
		amount, e.Currency,
		models.TransactionFees{Platform: feeBreakdown.Platform, Processing: feeBreakdown.Processing},
		actor, now)
	if err != nil {
		return nil, err
	}
	escrowID := e.ID
	jobID := e.JobID
	tx.EscrowID = &escrowID
	tx.JobID = &jobID
	return tx, nil
}

// recordLedgerEntry проводит запись в леджер после фиксации перехода.
// Сбой записи не откатывает переход: он виден в логах и в расхождении
// transaction_ids с содержимым леджера.
func (s *EscrowService) recordLedgerEntry(ctx context.Context, tx *models.Transaction) {
	if err := tx.UpdateStatus(models.TransactionStatusCompleted, "эскроу-проводка", models.SystemActor(), time.Now()); err != nil {
		logger.Log.WithError(err).Error("не удалось завершить леджер-запись")
		return
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		logger.Log.WithFields(map[string]interface{}{
			"transaction_id": tx.ID,
			"reference":      tx.Reference,
		}).WithError(err).Error("не удалось записать транзакцию в леджер")
	}
}

func (s *EscrowService) invalidateStats(e *models.Escrow) {
	if s.cache != nil {
		s.cache.InvalidateEscrowCache(e.ClientID, e.FreelancerID)
	}
}

func parseIDField(raw, field string) (objectid.ID, error) {
	id, err := objectid.Parse(raw)
	if err != nil {
		return objectid.Nil, apperror.Validation("неверный формат " + field)
	}
	return id, nil
}
