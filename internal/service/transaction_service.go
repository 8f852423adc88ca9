package service

import (
	"context"
	"errors"
	"time"

	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/pkg/objectid"
	"github.com/ignatzorin/escrow-backend/internal/repository"
)

// TransactionService выполняет операции над леджером. Записи создаются переходами
// эскроу и внешними платежами, здесь доступны чтение и смена статуса.
type TransactionService struct {
	transactions TransactionRepo
}

func NewTransactionService(tr TransactionRepo) *TransactionService {
	return &TransactionService{transactions: tr}
}

// CreateTransactionParams содержит входные данные ручного создания записи.
type CreateTransactionParams struct {
	Type          string
	SenderID      string
	SenderType    string
	RecipientID   string
	RecipientType string
	Amount        float64
	Currency      string
	Fees          models.TransactionFees
	Description   string
}

// CreateTransaction создаёт запись леджера в статусе pending.
func (s *TransactionService) CreateTransaction(ctx context.Context, p CreateTransactionParams, actor models.Actor) (*models.Transaction, error) {
	// Без явного отправителя проводка идёт со счёта платформы.
	senderID := models.PlatformAccountID
	if p.SenderID != "" {
		id, err := parseIDField(p.SenderID, "sender_id")
		if err != nil {
			return nil, err
		}
		senderID = id
	}
	recipientID, err := parseIDField(p.RecipientID, "recipient_id")
	if err != nil {
		return nil, err
	}
	t, err := models.NewTransaction(p.Type, senderID, p.SenderType, recipientID, p.RecipientType,
		p.Amount, p.Currency, p.Fees, actor, time.Now())
	if err != nil {
		return nil, err
	}
	t.Description = p.Description
	if err := s.transactions.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTransaction возвращает запись по идентификатору.
func (s *TransactionService) GetTransaction(ctx context.Context, id objectid.ID) (*models.Transaction, error) {
	t, err := s.transactions.GetByID(ctx, id)
	if errors.Is(err, repository.ErrTransactionNotFound) {
		return nil, apperror.ErrTransactionNotFound
	}
	return t, err
}

// GetTransactionByReference возвращает запись по внешнему номеру.
func (s *TransactionService) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	t, err := s.transactions.GetByReference(ctx, reference)
	if errors.Is(err, repository.ErrTransactionNotFound) {
		return nil, apperror.ErrTransactionNotFound
	}
	return t, err
}

// GetUserTransactions возвращает историю операций пользователя.
func (s *TransactionService) GetUserTransactions(ctx context.Context, userID objectid.ID, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.transactions.ListByUser(ctx, userID, limit, offset)
}

// GetEscrowTransactions возвращает все проводки по эскроу.
func (s *TransactionService) GetEscrowTransactions(ctx context.Context, escrowID objectid.ID) ([]models.Transaction, error) {
	return s.transactions.ListByEscrow(ctx, escrowID)
}

// UpdateTransactionStatus меняет статус записи с пометкой в журнале.
func (s *TransactionService) UpdateTransactionStatus(ctx context.Context, id objectid.ID, status, reason string, actor models.Actor) (*models.Transaction, error) {
	t, err := s.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.UpdateStatus(status, reason, actor, time.Now()); err != nil {
		return nil, err
	}
	if err := s.transactions.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// RecordProcessingAttempt фиксирует попытку проведения через платёжный шлюз.
func (s *TransactionService) RecordProcessingAttempt(ctx context.Context, id objectid.ID, gateway string, success bool, attemptErr string) (*models.Transaction, error) {
	t, err := s.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	t.AddProcessingAttempt(gateway, success, attemptErr, time.Now())
	if err := s.transactions.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetUserVolume возвращает суммарный объём завершённых операций пользователя.
func (s *TransactionService) GetUserVolume(ctx context.Context, userID objectid.ID) (float64, error) {
	return s.transactions.VolumeByUser(ctx, userID)
}
