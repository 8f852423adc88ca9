package models

import (
	"database/sql/driver"
	"time"

	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/pkg/objectid"
)

// Сроки спора: дедлайн ответа и дедлайн эскалации фиксируются один раз при создании.
const (
	DisputeResponseDeadline   = 5 * 24 * time.Hour
	DisputeEscalationDeadline = 14 * 24 * time.Hour
)

// Evidence представляет доказательство, приложенное к спору.
type Evidence struct {
	Type               string      `json:"type"`
	URL                string      `json:"url"`
	Description        string      `json:"description,omitempty"`
	UploadedBy         objectid.ID `json:"uploaded_by"`
	UploadedAt         time.Time   `json:"uploaded_at"`
	VerificationStatus string      `json:"verification_status"`
}

// EvidenceList хранится в JSONB.
type EvidenceList []Evidence

func (l EvidenceList) Value() (driver.Value, error) { return jsonbValue(l) }
func (l *EvidenceList) Scan(src interface{}) error  { return jsonbScan(l, src) }

// DisputeMessage представляет сообщение в треде спора. Тред только дополняется и
// служит аудиторским журналом переговоров.
type DisputeMessage struct {
	Sender      objectid.ID `json:"sender"`
	Role        string      `json:"role"`
	Message     string      `json:"message"`
	Attachments []string    `json:"attachments,omitempty"`
	Visibility  string      `json:"visibility"`
	Timestamp   time.Time   `json:"timestamp"`
}

// DisputeThread хранится в JSONB.
type DisputeThread []DisputeMessage

func (t DisputeThread) Value() (driver.Value, error) { return jsonbValue(t) }
func (t *DisputeThread) Scan(src interface{}) error  { return jsonbScan(t, src) }

// Resolution содержит итог разрешения спора. Пустой Outcome означает, что спор ещё не разрешён.
type Resolution struct {
	Outcome            string      `json:"outcome,omitempty"`
	Amount             float64     `json:"amount,omitempty"`
	ResolvedBy         objectid.ID `json:"resolved_by,omitempty"`
	ResolvedAt         *time.Time  `json:"resolved_at,omitempty"`
	InitiatorAccepted  bool        `json:"initiator_accepted"`
	RespondentAccepted bool        `json:"respondent_accepted"`
}

func (r Resolution) Value() (driver.Value, error) {
	if r.Outcome == "" {
		return nil, nil
	}
	return jsonbValue(r)
}
func (r *Resolution) Scan(src interface{}) error { return jsonbScan(r, src) }

// Dispute представляет спор между клиентом и фрилансером по сделке.
type Dispute struct {
	ID objectid.ID `db:"id" json:"id"`

	EscrowID      *objectid.ID `db:"escrow_id" json:"escrow_id,omitempty"`
	JobID         *objectid.ID `db:"job_id" json:"job_id,omitempty"`
	ContractID    *objectid.ID `db:"contract_id" json:"contract_id,omitempty"`
	MilestoneID   *objectid.ID `db:"milestone_id" json:"milestone_id,omitempty"`
	TransactionID *objectid.ID `db:"transaction_id" json:"transaction_id,omitempty"`

	InitiatorID    objectid.ID `db:"initiator_id" json:"initiator_id"`
	InitiatorRole  string      `db:"initiator_role" json:"initiator_role"`
	RespondentID   objectid.ID `db:"respondent_id" json:"respondent_id"`
	RespondentRole string      `db:"respondent_role" json:"respondent_role"`

	Type     string `db:"type" json:"type"`
	Priority string `db:"priority" json:"priority"`
	Status   string `db:"status" json:"status"`

	Title          string `db:"title" json:"title"`
	Description    string `db:"description" json:"description"`
	DesiredOutcome string `db:"desired_outcome" json:"desired_outcome"`

	Evidence   EvidenceList  `db:"evidence" json:"evidence"`
	Thread     DisputeThread `db:"thread" json:"thread"`
	Resolution Resolution    `db:"resolution" json:"resolution"`

	ResponseDeadline   time.Time  `db:"response_deadline" json:"response_deadline"`
	EscalationDeadline time.Time  `db:"escalation_deadline" json:"escalation_deadline"`
	NextActionAt       *time.Time `db:"next_action_at" json:"next_action_at,omitempty"`

	MediationRequired bool `db:"mediation_required" json:"mediation_required"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DisputeStat агрегирует споры по статусу.
type DisputeStat struct {
	Status      string  `db:"status" json:"status"`
	Count       int     `db:"count" json:"count"`
	TotalAmount float64 `db:"total_amount" json:"total_amount"`
}

// NewDispute создаёт спор в статусе opened. Дедлайны выставляются один раз
// и далее не пересчитываются.
func NewDispute(initiatorID objectid.ID, initiatorRole string, respondentID objectid.ID, respondentRole, disputeType, priority, title, description, desiredOutcome string, now time.Time) *Dispute {
	if priority == "" {
		priority = DisputePriorityMedium
	}
	responseDeadline := now.Add(DisputeResponseDeadline)
	d := &Dispute{
		ID:                 objectid.New(),
		InitiatorID:        initiatorID,
		InitiatorRole:      initiatorRole,
		RespondentID:       respondentID,
		RespondentRole:     respondentRole,
		Type:               disputeType,
		Priority:           priority,
		Status:             DisputeStatusOpened,
		Title:              title,
		Description:        description,
		DesiredOutcome:     desiredOutcome,
		ResponseDeadline:   responseDeadline,
		EscalationDeadline: now.Add(DisputeEscalationDeadline),
		NextActionAt:       &responseDeadline,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	return d
}

// IsTerminal сообщает, закрыт ли спор.
func (d *Dispute) IsTerminal() bool {
	return d.Status == DisputeStatusResolved || d.Status == DisputeStatusCancelled
}

// SetStatus меняет статус и пересчитывает nextActionAt относительно момента смены:
// opened -> дедлайн ответа, under_review -> +48ч, evidence_needed -> +72ч,
// mediation -> +7д, терминальные и escalated -> нет следующего действия.
func (d *Dispute) SetStatus(status string, now time.Time) error {
	if _, ok := ValidDisputeStatuses[status]; !ok {
		return apperror.Validation("неизвестный статус спора: " + status)
	}
	if d.IsTerminal() {
		return apperror.InvalidState("спор уже закрыт")
	}
	d.Status = status
	d.NextActionAt = nextActionAt(status, now, d.ResponseDeadline)
	d.UpdatedAt = now
	return nil
}

func nextActionAt(status string, now time.Time, responseDeadline time.Time) *time.Time {
	var next time.Time
	switch status {
	case DisputeStatusOpened:
		next = responseDeadline
	case DisputeStatusUnderReview:
		next = now.Add(48 * time.Hour)
	case DisputeStatusEvidenceNeeded:
		next = now.Add(72 * time.Hour)
	case DisputeStatusMediation:
		next = now.Add(7 * 24 * time.Hour)
	default:
		return nil
	}
	return &next
}

// AddMessage дополняет тред. Закрытый спор новых сообщений не принимает.
func (d *Dispute) AddMessage(sender objectid.ID, role, message string, attachments []string, visibility string, now time.Time) (*DisputeMessage, error) {
	if d.IsTerminal() {
		return nil, apperror.InvalidState("спор закрыт, новые сообщения не принимаются")
	}
	if visibility == "" {
		visibility = VisibilityAll
	}
	entry := DisputeMessage{
		Sender:      sender,
		Role:        role,
		Message:     message,
		Attachments: attachments,
		Visibility:  visibility,
		Timestamp:   now,
	}
	d.Thread = append(d.Thread, entry)
	d.UpdatedAt = now
	return &d.Thread[len(d.Thread)-1], nil
}

// AddEvidence дополняет список доказательств со статусом проверки pending.
func (d *Dispute) AddEvidence(ev Evidence, now time.Time) (*Evidence, error) {
	if d.IsTerminal() {
		return nil, apperror.InvalidState("спор закрыт, доказательства не принимаются")
	}
	ev.UploadedAt = now
	if ev.VerificationStatus == "" {
		ev.VerificationStatus = EvidencePending
	}
	d.Evidence = append(d.Evidence, ev)
	d.UpdatedAt = now
	return &d.Evidence[len(d.Evidence)-1], nil
}

// Resolve фиксирует итог и переводит спор в терминальный статус resolved.
func (d *Dispute) Resolve(res Resolution, adminID objectid.ID, now time.Time) error {
	if d.IsTerminal() {
		return apperror.InvalidState("спор уже закрыт")
	}
	if _, ok := ValidResolutionOutcomes[res.Outcome]; !ok {
		return apperror.Validation("неизвестный исход спора: " + res.Outcome)
	}
	res.ResolvedBy = adminID
	res.ResolvedAt = &now
	d.Resolution = res
	return d.SetStatus(DisputeStatusResolved, now)
}

// Escalate переводит спор в escalated и включает обязательную медиацию.
func (d *Dispute) Escalate(reason string, now time.Time) error {
	if d.IsTerminal() {
		return apperror.InvalidState("спор уже закрыт")
	}
	d.MediationRequired = true
	d.Thread = append(d.Thread, DisputeMessage{
		Role:       PartyTypeSystem,
		Message:    "Спор эскалирован: " + reason,
		Visibility: VisibilityAll,
		Timestamp:  now,
	})
	return d.SetStatus(DisputeStatusEscalated, now)
}

// IsParticipant сообщает, является ли пользователь стороной спора.
func (d *Dispute) IsParticipant(userID objectid.ID) bool {
	return d.InitiatorID == userID || d.RespondentID == userID
}
