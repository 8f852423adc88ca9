package service

import (
	"context"
	"errors"
	"time"

	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/pkg/objectid"
	"github.com/ignatzorin/escrow-backend/internal/repository"
	"github.com/ignatzorin/escrow-backend/internal/validation"
)

const disputeStatsCacheTTL = time.Minute

type DisputeRepo interface {
	Create(ctx context.Context, d *models.Dispute) error
	GetByID(ctx context.Context, id objectid.ID) (*models.Dispute, error)
	GetByEscrowID(ctx context.Context, escrowID objectid.ID) (*models.Dispute, error)
	Update(ctx context.Context, d *models.Dispute) error
	ListByUser(ctx context.Context, userID objectid.ID, limit, offset int) ([]models.Dispute, error)
	ListRequiringAttention(ctx context.Context, now time.Time, limit int) ([]models.Dispute, error)
	Stats(ctx context.Context) ([]models.DisputeStat, error)
}

// DisputeService ведёт жизненный цикл споров. Спор по эскроу дополнительно
// блокирует сам эскроу до разрешения.
type DisputeService struct {
	disputes DisputeRepo
	escrows  *EscrowService
	cache    *CacheService
}

func NewDisputeService(dr DisputeRepo, es *EscrowService, cache *CacheService) *DisputeService {
	return &DisputeService{disputes: dr, escrows: es, cache: cache}
}

// OpenDisputeParams содержит входные данные открытия спора.
type OpenDisputeParams struct {
	EscrowID      string
	JobID         string
	ContractID    string
	MilestoneID   string
	TransactionID string

	InitiatorID    objectid.ID
	InitiatorRole  string
	RespondentID   string
	RespondentRole string

	Type           string
	Priority       string
	Title          string
	Description    string
	DesiredOutcome string
}

// OpenDispute создаёт спор. Если указан эскроу, он переводится в disputed;
// по одному эскроу допускается не более одного открытого спора.
func (s *DisputeService) OpenDispute(ctx context.Context, p OpenDisputeParams) (*models.Dispute, error) {
	if _, ok := models.ValidDisputeTypes[p.Type]; !ok {
		return nil, apperror.Validation("неизвестный тип спора: " + p.Type)
	}
	if p.Priority != "" {
		if _, ok := models.ValidDisputePriorities[p.Priority]; !ok {
			return nil, apperror.Validation("неизвестный приоритет спора: " + p.Priority)
		}
	}
	if err := validation.ValidateDisputeTitle(p.Title); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := validation.ValidateDisputeDescription(p.Description); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := validation.ValidateDesiredOutcome(p.DesiredOutcome); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	respondentID, err := parseIDField(p.RespondentID, "respondent_id")
	if err != nil {
		return nil, err
	}
	if respondentID == p.InitiatorID {
		return nil, apperror.Validation("нельзя открыть спор против самого себя")
	}

	now := time.Now()
	d := models.NewDispute(p.InitiatorID, p.InitiatorRole, respondentID, p.RespondentRole,
		p.Type, p.Priority, p.Title, p.Description, p.DesiredOutcome, now)

	if err := s.attachOptionalIDs(&p, d); err != nil {
		return nil, err
	}

	if d.EscrowID != nil {
		if existing, err := s.disputes.GetByEscrowID(ctx, *d.EscrowID); err == nil && !existing.IsTerminal() {
			return nil, apperror.InvalidState("по этому эскроу уже открыт спор")
		} else if err != nil && !errors.Is(err, repository.ErrDisputeNotFound) {
			return nil, err
		}
		if _, err := s.escrows.DisputeEscrow(ctx, *d.EscrowID, p.InitiatorID, d.ID, p.Title); err != nil {
			return nil, err
		}
	}

	if err := s.disputes.Create(ctx, d); err != nil {
		if d.EscrowID != nil {
			// Эскроу уже заблокирован, снимаем блокировку, иначе он
			// навсегда останется в disputed со ссылкой на несуществующий спор.
			if undoErr := s.escrows.ReleaseDisputeHold(ctx, *d.EscrowID); undoErr != nil {
				logger.Log.WithFields(map[string]interface{}{
					"escrow_id":  *d.EscrowID,
					"dispute_id": d.ID,
				}).WithError(undoErr).Error("не удалось снять блокировку эскроу после сбоя создания спора")
			}
		}
		return nil, err
	}
	s.invalidateStats()
	return d, nil
}

func (s *DisputeService) attachOptionalIDs(p *OpenDisputeParams, d *models.Dispute) error {
	set := func(raw, field string, dst **objectid.ID) error {
		if raw == "" {
			return nil
		}
		id, err := parseIDField(raw, field)
		if err != nil {
			return err
		}
		*dst = &id
		return nil
	}
	if err := set(p.EscrowID, "escrow_id", &d.EscrowID); err != nil {
		return err
	}
	if err := set(p.JobID, "job_id", &d.JobID); err != nil {
		return err
	}
	if err := set(p.ContractID, "contract_id", &d.ContractID); err != nil {
		return err
	}
	if err := set(p.MilestoneID, "milestone_id", &d.MilestoneID); err != nil {
		return err
	}
	return set(p.TransactionID, "transaction_id", &d.TransactionID)
}

// AddMessage добавляет сообщение в тред спора от имени его участника.
func (s *DisputeService) AddMessage(ctx context.Context, disputeID, senderID objectid.ID, role, message string, attachments []string, visibility string) (*models.Dispute, error) {
	if err := validation.ValidateMessageContent(message); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	d, err := s.getDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !d.IsParticipant(senderID) {
		return nil, apperror.ErrForbidden
	}
	if _, err := d.AddMessage(senderID, role, message, attachments, visibility, time.Now()); err != nil {
		return nil, err
	}
	if err := s.disputes.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// AddEvidence прикладывает доказательство к спору.
func (s *DisputeService) AddEvidence(ctx context.Context, disputeID, uploaderID objectid.ID, evidenceType, evidenceURL, description string) (*models.Dispute, error) {
	if err := validation.ValidateEvidenceURL(evidenceURL); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := validation.ValidateEvidenceDescription(description); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	d, err := s.getDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !d.IsParticipant(uploaderID) {
		return nil, apperror.ErrForbidden
	}
	ev := models.Evidence{
		Type:        evidenceType,
		URL:         evidenceURL,
		Description: description,
		UploadedBy:  uploaderID,
	}
	if _, err := d.AddEvidence(ev, time.Now()); err != nil {
		return nil, err
	}
	if err := s.disputes.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateStatus переводит спор в новый статус (операция администратора).
func (s *DisputeService) UpdateStatus(ctx context.Context, disputeID objectid.ID, status string) (*models.Dispute, error) {
	d, err := s.getDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := d.SetStatus(status, time.Now()); err != nil {
		return nil, err
	}
	if err := s.disputes.Update(ctx, d); err != nil {
		return nil, err
	}
	s.invalidateStats()
	return d, nil
}

// ResolveDispute закрывает спор с итогом и при необходимости завершает
// связанный эскроу: исход в пользу фрилансера выплачивает средства,
// возвраты отдают их клиенту, частичные исходы делят сумму.
func (s *DisputeService) ResolveDispute(ctx context.Context, disputeID objectid.ID, outcome string, amount float64, adminID objectid.ID, notes string) (*models.Dispute, error) {
	if err := validation.ValidateNotes(notes); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	d, err := s.getDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	prev := *d
	res := models.Resolution{Outcome: outcome, Amount: amount}
	if err := d.Resolve(res, adminID, now); err != nil {
		return nil, err
	}

	// Сначала фиксируется спор, затем эскроу. Если эскроу завершить
	// не удалось, спор откатывается и остаётся открытым для повтора.
	if err := s.disputes.Update(ctx, d); err != nil {
		return nil, err
	}

	if d.EscrowID != nil {
		if escrowOutcome, ok := escrowOutcomeFor(outcome); ok {
			if _, err := s.escrows.ResolveEscrowDispute(ctx, *d.EscrowID, escrowOutcome, amount, adminID, notes); err != nil {
				if undoErr := s.disputes.Update(ctx, &prev); undoErr != nil {
					logger.Log.WithFields(map[string]interface{}{
						"dispute_id": d.ID,
						"escrow_id":  *d.EscrowID,
					}).WithError(undoErr).Error("не удалось откатить разрешение спора после сбоя эскроу")
				}
				return nil, err
			}
		}
	}
	s.invalidateStats()
	return d, nil
}

// escrowOutcomeFor сопоставляет исход спора действию над эскроу.
// Исходы cancelled и other эскроу не трогают.
func escrowOutcomeFor(outcome string) (string, bool) {
	switch outcome {
	case models.ResolutionInFavorOfFreelancer:
		return models.EscrowResolutionReleased, true
	case models.ResolutionInFavorOfClient, models.ResolutionFullRefund:
		return models.EscrowResolutionRefunded, true
	case models.ResolutionPartialRefund, models.ResolutionMutual:
		return models.EscrowResolutionSplit, true
	default:
		return "", false
	}
}

// EscalateDispute поднимает спор до обязательной медиации.
func (s *DisputeService) EscalateDispute(ctx context.Context, disputeID objectid.ID, reason string) (*models.Dispute, error) {
	if err := validation.ValidateReason(reason); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	d, err := s.getDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := d.Escalate(reason, time.Now()); err != nil {
		return nil, err
	}
	if err := s.disputes.Update(ctx, d); err != nil {
		return nil, err
	}
	s.invalidateStats()
	return d, nil
}

// GetDispute возвращает спор по идентификатору.
func (s *DisputeService) GetDispute(ctx context.Context, disputeID objectid.ID) (*models.Dispute, error) {
	return s.getDispute(ctx, disputeID)
}

// GetUserDisputes возвращает споры, где пользователь является стороной.
func (s *DisputeService) GetUserDisputes(ctx context.Context, userID objectid.ID, limit, offset int) ([]models.Dispute, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.disputes.ListByUser(ctx, userID, limit, offset)
}

// GetDisputesRequiringAttention возвращает споры с наступившим сроком
// следующего действия в порядке приоритета.
func (s *DisputeService) GetDisputesRequiringAttention(ctx context.Context, limit int) ([]models.Dispute, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.disputes.ListRequiringAttention(ctx, time.Now(), limit)
}

// GetDisputeStats возвращает агрегаты по статусам споров с коротким кешем.
func (s *DisputeService) GetDisputeStats(ctx context.Context) ([]models.DisputeStat, error) {
	if s.cache == nil {
		return s.disputes.Stats(ctx)
	}
	value, err := s.cache.GetOrSet(ctx, DisputeStatsCacheKey(), disputeStatsCacheTTL, func() (interface{}, error) {
		return s.disputes.Stats(ctx)
	})
	if err != nil {
		return nil, err
	}
	return value.([]models.DisputeStat), nil
}

func (s *DisputeService) getDispute(ctx context.Context, disputeID objectid.ID) (*models.Dispute, error) {
	d, err := s.disputes.GetByID(ctx, disputeID)
	if errors.Is(err, repository.ErrDisputeNotFound) {
		return nil, apperror.ErrDisputeNotFound
	}
	return d, err
}

func (s *DisputeService) invalidateStats() {
	if s.cache != nil {
		s.cache.InvalidateDisputeCache()
	}
}
