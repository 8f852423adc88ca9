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

var ErrDisputeNotFound = errors.New("dispute not found")

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

func (r *DisputeRepository) Create(ctx context.Context, d *models.Dispute) error {
	query := `
		INSERT INTO disputes (
			id, escrow_id, job_id, contract_id, milestone_id, transaction_id,
			initiator_id, initiator_role, respondent_id, respondent_role,
			type, priority, status, title, description, desired_outcome,
			evidence, thread, resolution,
			response_deadline, escalation_deadline, next_action_at,
			mediation_required, created_at, updated_at
		) VALUES (
			:id, :escrow_id, :job_id, :contract_id, :milestone_id, :transaction_id,
			:initiator_id, :initiator_role, :respondent_id, :respondent_role,
			:type, :priority, :status, :title, :description, :desired_outcome,
			:evidence, :thread, :resolution,
			:response_deadline, :escalation_deadline, :next_action_at,
			:mediation_required, :created_at, :updated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("dispute repository: create %w", err)
	}
	return nil
}

func (r *DisputeRepository) GetByID(ctx context.Context, id objectid.ID) (*models.Dispute, error) {
	return common.GetByID[models.Dispute](ctx, r.db, "disputes", id, ErrDisputeNotFound)
}

func (r *DisputeRepository) GetByEscrowID(ctx context.Context, escrowID objectid.ID) (*models.Dispute, error) {
	return common.GetByField[models.Dispute](ctx, r.db, "disputes", "escrow_id", escrowID, ErrDisputeNotFound)
}

// Update перезаписывает изменяемые поля спора. Тред и доказательства только
// дополняются на уровне модели, поэтому полная перезапись JSONB безопасна.
func (r *DisputeRepository) Update(ctx context.Context, d *models.Dispute) error {
	query := `
		UPDATE disputes SET
			status = :status,
			priority = :priority,
			evidence = :evidence,
			thread = :thread,
			resolution = :resolution,
			next_action_at = :next_action_at,
			mediation_required = :mediation_required,
			updated_at = NOW()
		WHERE id = :id
	`
	res, err := r.db.NamedExecContext(ctx, query, d)
	if err != nil {
		return fmt.Errorf("dispute repository: update %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("dispute repository: rows affected %w", err)
	}
	if affected == 0 {
		return ErrDisputeNotFound
	}
	return nil
}

func (r *DisputeRepository) ListByUser(ctx context.Context, userID objectid.ID, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT * FROM disputes
		WHERE initiator_id = $1 OR respondent_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: list by user %w", err)
	}
	return disputes, nil
}

// ListRequiringAttention возвращает незакрытые споры, чей срок следующего
// действия уже наступил: сначала по убыванию приоритета, затем по сроку.
func (r *DisputeRepository) ListRequiringAttention(ctx context.Context, now time.Time, limit int) ([]models.Dispute, error) {
	if limit <= 0 {
		limit = 50
	}
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT * FROM disputes
		WHERE status NOT IN ('resolved', 'cancelled')
		  AND next_action_at IS NOT NULL
		  AND next_action_at <= $1
		ORDER BY
			CASE priority
				WHEN 'urgent' THEN 4
				WHEN 'high' THEN 3
				WHEN 'medium' THEN 2
				WHEN 'low' THEN 1
				ELSE 0
			END DESC,
			next_action_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: list requiring attention %w", err)
	}
	return disputes, nil
}

// Stats возвращает количество споров и суммы по разрешениям, сгруппированные по статусу.
func (r *DisputeRepository) Stats(ctx context.Context) ([]models.DisputeStat, error) {
	var stats []models.DisputeStat
	err := r.db.SelectContext(ctx, &stats, `
		SELECT status,
		       COUNT(*) AS count,
		       COALESCE(SUM((resolution->>'amount')::float8), 0) AS total_amount
		FROM disputes
		GROUP BY status
		ORDER BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: stats %w", err)
	}
	return stats, nil
}
