package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/objectid"
	"github.com/ignatzorin/escrow-backend/internal/repository/common"
)

var (
	ErrEscrowNotFound = errors.New("escrow not found")

	// ErrEscrowStateConflict: условное обновление не сработало, статус эскроу
	// сменился между чтением и записью.
	ErrEscrowStateConflict = fmt.Errorf("escrow: %w", common.ErrStateConflict)
)

type EscrowRepository struct {
	db *sqlx.DB
}

func NewEscrowRepository(db *sqlx.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

func (r *EscrowRepository) Create(ctx context.Context, e *models.Escrow) error {
	query := `
		INSERT INTO escrows (
			id, job_id, client_id, freelancer_id, payment_gateway_id, payment_method,
			amount, currency, fee_amount, status,
			transaction_ids, release_conditions,
			auto_release_enabled, auto_release_days, require_milestone_completion,
			is_disputed, history, expiry_date, created_at, updated_at
		) VALUES (
			:id, :job_id, :client_id, :freelancer_id, :payment_gateway_id, :payment_method,
			:amount, :currency, :fee_amount, :status,
			:transaction_ids, :release_conditions,
			:auto_release_enabled, :auto_release_days, :require_milestone_completion,
			:is_disputed, :history, :expiry_date, :created_at, :updated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("escrow repository: create %w", err)
	}
	return nil
}

func (r *EscrowRepository) GetByID(ctx context.Context, id objectid.ID) (*models.Escrow, error) {
	return common.GetByID[models.Escrow](ctx, r.db, "escrows", id, ErrEscrowNotFound)
}

func (r *EscrowRepository) GetByJobID(ctx context.Context, jobID objectid.ID) (*models.Escrow, error) {
	return common.GetByField[models.Escrow](ctx, r.db, "escrows", "job_id", jobID, ErrEscrowNotFound)
}

// UpdateFromStatus записывает изменённый эскроу одним условным UPDATE:
// строка обновляется только если статус в базе всё ещё равен fromStatus.
// Статус и журнал пишутся атомарно; конкурентный дубликат перехода
// получает ErrEscrowStateConflict, а не вторую выплату.
func (r *EscrowRepository) UpdateFromStatus(ctx context.Context, e *models.Escrow, fromStatus string) error {
	query := `
		UPDATE escrows SET
			status = $3,
			fee_amount = $4,
			transaction_ids = $5,
			release_conditions = $6,
			is_disputed = $7,
			dispute_id = $8,
			disputed_at = $9,
			dispute_resolved_at = $10,
			dispute_resolution = $11,
			history = $12,
			funded_at = $13,
			released_at = $14,
			updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	res, err := r.db.ExecContext(ctx, query,
		e.ID, fromStatus,
		e.Status, e.FeeAmount, e.TransactionIDs, e.ReleaseConditions,
		e.IsDisputed, e.DisputeID, e.DisputedAt, e.DisputeResolvedAt, e.DisputeResolution,
		e.History, e.FundedAt, e.ReleasedAt,
	)
	if err != nil {
		return fmt.Errorf("escrow repository: update %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("escrow repository: rows affected %w", err)
	}
	if affected == 0 {
		return ErrEscrowStateConflict
	}
	return nil
}

// ListActiveByUser возвращает эскроу в статусах funded/disputed,
// где пользователь является любой из сторон.
func (r *EscrowRepository) ListActiveByUser(ctx context.Context, userID objectid.ID) ([]models.Escrow, error) {
	var escrows []models.Escrow
	err := r.db.SelectContext(ctx, &escrows, `
		SELECT * FROM escrows
		WHERE status IN ('funded', 'disputed') AND (client_id = $1 OR freelancer_id = $1)
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: list active %w", err)
	}
	return escrows, nil
}

// ListAutoReleaseDue возвращает кандидатов на авто-выплату: funded эскроу
// с включённой авто-выплатой, у которых срок удержания истёк.
func (r *EscrowRepository) ListAutoReleaseDue(ctx context.Context, now time.Time, limit int) ([]models.Escrow, error) {
	if limit <= 0 {
		limit = 100
	}
	var escrows []models.Escrow
	err := r.db.SelectContext(ctx, &escrows, `
		SELECT * FROM escrows
		WHERE status = 'funded'
		  AND auto_release_enabled
		  AND funded_at IS NOT NULL
		  AND funded_at + make_interval(days => auto_release_days) <= $1
		ORDER BY funded_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: list auto release due %w", err)
	}
	return escrows, nil
}

// StatsByUser возвращает количество и суммы эскроу пользователя по статусам.
func (r *EscrowRepository) StatsByUser(ctx context.Context, userID objectid.ID) ([]models.EscrowStat, error) {
	var stats []models.EscrowStat
	err := r.db.SelectContext(ctx, &stats, `
		SELECT status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total_amount
		FROM escrows
		WHERE client_id = $1 OR freelancer_id = $1
		GROUP BY status
		ORDER BY status
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: stats %w", err)
	}
	return stats, nil
}
