package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/objectid"
	"github.com/ignatzorin/escrow-backend/internal/repository/common"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// TransactionRepository хранит финансовые записи. Метода удаления нет
// намеренно: финансовые записи хранятся бессрочно.
type TransactionRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, reference, sender_id, sender_type, recipient_id, recipient_type,
			type, sub_type, amount, currency, fees, total,
			status, status_history, processing_attempts,
			escrow_id, job_id, description,
			created_at, updated_at, completed_at
		) VALUES (
			:id, :reference, :sender_id, :sender_type, :recipient_id, :recipient_type,
			:type, :sub_type, :amount, :currency, :fees, :total,
			:status, :status_history, :processing_attempts,
			:escrow_id, :job_id, :description,
			:created_at, :updated_at, :completed_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("transaction repository: create %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id objectid.ID) (*models.Transaction, error) {
	return common.GetByID[models.Transaction](ctx, r.db, "transactions", id, ErrTransactionNotFound)
}

func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return common.GetByField[models.Transaction](ctx, r.db, "transactions", "reference", reference, ErrTransactionNotFound)
}

// Update перезаписывает статус и журналы. Сама запись о движении средств
// (суммы, стороны) неизменяема после создания.
func (r *TransactionRepository) Update(ctx context.Context, t *models.Transaction) error {
	query := `
		UPDATE transactions SET
			status = :status,
			status_history = :status_history,
			processing_attempts = :processing_attempts,
			completed_at = :completed_at,
			updated_at = NOW()
		WHERE id = :id
	`
	res, err := r.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return fmt.Errorf("transaction repository: update %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transaction repository: rows affected %w", err)
	}
	if affected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) ListByUser(ctx context.Context, userID objectid.ID, limit, offset int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT * FROM transactions
		WHERE sender_id = $1 OR recipient_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("transaction repository: list by user %w", err)
	}
	return transactions, nil
}

func (r *TransactionRepository) ListByEscrow(ctx context.Context, escrowID objectid.ID) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT * FROM transactions
		WHERE escrow_id = $1
		ORDER BY created_at ASC
	`, escrowID)
	if err != nil {
		return nil, fmt.Errorf("transaction repository: list by escrow %w", err)
	}
	return transactions, nil
}

// VolumeByUser возвращает суммарный оборот завершённых транзакций пользователя.
func (r *TransactionRepository) VolumeByUser(ctx context.Context, userID objectid.ID) (float64, error) {
	var volume float64
	err := r.db.GetContext(ctx, &volume, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE (sender_id = $1 OR recipient_id = $1) AND status = 'completed'
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("transaction repository: volume %w", err)
	}
	return volume, nil
}
