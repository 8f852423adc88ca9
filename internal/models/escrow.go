package models

import (
	"database/sql/driver"
	"time"

	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/pkg/objectid"
)

// DefaultAutoReleaseDays задаёт срок удержания по умолчанию до авто-выплаты.
const DefaultAutoReleaseDays = 14

// ReleaseCondition описывает условие выплаты; Amount опционально ограничивает частичную выплату.
type ReleaseCondition struct {
	Type        string     `json:"type"`
	Description string     `json:"description,omitempty"`
	Amount      float64    `json:"amount,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ReleaseConditions хранится в JSONB.
type ReleaseConditions []ReleaseCondition

func (c ReleaseConditions) Value() (driver.Value, error) { return jsonbValue(c) }
func (c *ReleaseConditions) Scan(src interface{}) error  { return jsonbScan(c, src) }

// EscrowHistoryEntry представляет запись аудиторского журнала эскроу. Журнал только дополняется.
type EscrowHistoryEntry struct {
	Action      string    `json:"action"`
	PerformedBy Actor     `json:"performed_by"`
	Amount      float64   `json:"amount,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Notes       string    `json:"notes,omitempty"`
}

// EscrowHistory хранится в JSONB.
type EscrowHistory []EscrowHistoryEntry

func (h EscrowHistory) Value() (driver.Value, error) { return jsonbValue(h) }
func (h *EscrowHistory) Scan(src interface{}) error  { return jsonbScan(h, src) }

// IDList хранит список идентификаторов в JSONB.
type IDList []objectid.ID

func (l IDList) Value() (driver.Value, error) { return jsonbValue(l) }
func (l *IDList) Scan(src interface{}) error  { return jsonbScan(l, src) }

// Escrow представляет защищённую сделку: средства клиента удерживаются
// до выплаты фрилансеру. Переходы статусов только через методы ниже.
type Escrow struct {
	ID               objectid.ID `db:"id" json:"id"`
	JobID            objectid.ID `db:"job_id" json:"job_id"`
	ClientID         objectid.ID `db:"client_id" json:"client_id"`
	FreelancerID     objectid.ID `db:"freelancer_id" json:"freelancer_id"`
	PaymentGatewayID objectid.ID `db:"payment_gateway_id" json:"payment_gateway_id"`
	PaymentMethod    string      `db:"payment_method" json:"payment_method"`

	Amount    float64 `db:"amount" json:"amount"`
	Currency  string  `db:"currency" json:"currency"`
	FeeAmount float64 `db:"fee_amount" json:"fee_amount"`
	Status    string  `db:"status" json:"status"`

	TransactionIDs    IDList            `db:"transaction_ids" json:"transaction_ids"`
	ReleaseConditions ReleaseConditions `db:"release_conditions" json:"release_conditions"`

	AutoReleaseEnabled         bool `db:"auto_release_enabled" json:"auto_release_enabled"`
	AutoReleaseDays            int  `db:"auto_release_days" json:"auto_release_days"`
	RequireMilestoneCompletion bool `db:"require_milestone_completion" json:"require_milestone_completion"`

	IsDisputed        bool         `db:"is_disputed" json:"is_disputed"`
	DisputeID         *objectid.ID `db:"dispute_id" json:"dispute_id,omitempty"`
	DisputedAt        *time.Time   `db:"disputed_at" json:"disputed_at,omitempty"`
	DisputeResolvedAt *time.Time   `db:"dispute_resolved_at" json:"dispute_resolved_at,omitempty"`
	DisputeResolution *string      `db:"dispute_resolution" json:"dispute_resolution,omitempty"`

	History EscrowHistory `db:"history" json:"history"`

	ExpiryDate time.Time  `db:"expiry_date" json:"expiry_date"`
	FundedAt   *time.Time `db:"funded_at" json:"funded_at,omitempty"`
	ReleasedAt *time.Time `db:"released_at" json:"released_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// EscrowStat агрегирует эскроу по статусу для статистики пользователя.
type EscrowStat struct {
	Status      string  `db:"status" json:"status"`
	Count       int     `db:"count" json:"count"`
	TotalAmount float64 `db:"total_amount" json:"total_amount"`
}

// NewEscrow создаёт эскроу в статусе pending. Журнал пуст до первого
// перехода: создание в него не записывается.
func NewEscrow(jobID, clientID, freelancerID, gatewayID objectid.ID, amount float64, currency, paymentMethod string, expiry time.Time, now time.Time) *Escrow {
	if currency == "" {
		currency = "USD"
	}
	e := &Escrow{
		ID:                 objectid.New(),
		JobID:              jobID,
		ClientID:           clientID,
		FreelancerID:       freelancerID,
		PaymentGatewayID:   gatewayID,
		PaymentMethod:      paymentMethod,
		Amount:             amount,
		Currency:           currency,
		Status:             EscrowStatusPending,
		AutoReleaseEnabled: true,
		AutoReleaseDays:    DefaultAutoReleaseDays,
		ExpiryDate:         expiry,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	return e
}

// Fund переводит эскроу pending -> funded, привязывая транзакцию оплаты.
func (e *Escrow) Fund(transactionID objectid.ID, actor Actor, now time.Time) error {
	if e.Status != EscrowStatusPending {
		return apperror.InvalidState("эскроу можно профинансировать только из статуса pending")
	}
	e.Status = EscrowStatusFunded
	e.FundedAt = &now
	if !transactionID.IsZero() {
		e.TransactionIDs = append(e.TransactionIDs, transactionID)
	}
	e.appendHistory(EscrowActionFunded, actor, e.Amount, "", now)
	e.UpdatedAt = now
	return nil
}

// Release переводит эскроу funded -> released. amount <= 0 означает полную сумму.
func (e *Escrow) Release(actor Actor, amount float64, notes string, now time.Time) (float64, error) {
	if e.Status != EscrowStatusFunded {
		return 0, apperror.InvalidState("средства можно выплатить только из статуса funded")
	}
	if amount <= 0 {
		amount = e.Amount
	}
	if amount > e.Amount {
		return 0, apperror.Validation("сумма выплаты не может превышать сумму эскроу")
	}
	e.Status = EscrowStatusReleased
	e.ReleasedAt = &now
	e.appendHistory(EscrowActionReleased, actor, amount, notes, now)
	e.UpdatedAt = now
	return amount, nil
}

// Refund переводит эскроу funded -> refunded (возврат клиенту).
func (e *Escrow) Refund(actor Actor, notes string, now time.Time) error {
	if e.Status != EscrowStatusFunded {
		return apperror.InvalidState("возврат возможен только из статуса funded")
	}
	e.Status = EscrowStatusRefunded
	e.ReleasedAt = &now
	e.appendHistory(EscrowActionRefunded, actor, e.Amount, notes, now)
	e.UpdatedAt = now
	return nil
}

// MarkDisputed переводит эскроу funded -> disputed и замораживает авто-выплату.
func (e *Escrow) MarkDisputed(actor Actor, disputeID objectid.ID, reason string, now time.Time) error {
	if e.Status != EscrowStatusFunded {
		return apperror.InvalidState("оспорить можно только эскроу в статусе funded")
	}
	e.Status = EscrowStatusDisputed
	e.IsDisputed = true
	e.DisputedAt = &now
	if !disputeID.IsZero() {
		e.DisputeID = &disputeID
	}
	e.appendHistory(EscrowActionDisputed, actor, e.Amount, reason, now)
	e.UpdatedAt = now
	return nil
}

// UnmarkDisputed возвращает эскроу disputed -> funded и снимает привязку
// к спору. Применяется, когда запись спора так и не была создана.
func (e *Escrow) UnmarkDisputed(now time.Time) error {
	if e.Status != EscrowStatusDisputed {
		return apperror.InvalidState("эскроу не находится в споре")
	}
	e.Status = EscrowStatusFunded
	e.IsDisputed = false
	e.DisputeID = nil
	e.DisputedAt = nil
	e.UpdatedAt = now
	return nil
}

// ResolveDispute закрывает спор: исход released/split завершает эскроу выплатой,
// refunded закрывает его возвратом. Легально только из статуса disputed.
func (e *Escrow) ResolveDispute(outcome string, amount float64, actor Actor, notes string, now time.Time) error {
	if e.Status != EscrowStatusDisputed {
		return apperror.InvalidState("разрешить спор можно только для эскроу в статусе disputed")
	}
	switch outcome {
	case EscrowResolutionReleased, EscrowResolutionSplit:
		e.Status = EscrowStatusReleased
	case EscrowResolutionRefunded:
		e.Status = EscrowStatusRefunded
	default:
		return apperror.Validation("неизвестный исход разрешения спора: " + outcome)
	}
	if amount <= 0 || amount > e.Amount {
		amount = e.Amount
	}
	e.IsDisputed = false
	e.DisputeResolvedAt = &now
	resolution := outcome
	e.DisputeResolution = &resolution
	e.ReleasedAt = &now
	e.appendHistory(EscrowActionResolved, actor, amount, notes, now)
	e.UpdatedAt = now
	return nil
}

// CompleteCondition отмечает условие выплаты выполненным.
func (e *Escrow) CompleteCondition(index int, now time.Time) error {
	if index < 0 || index >= len(e.ReleaseConditions) {
		return apperror.Validation("условие выплаты с таким индексом не существует")
	}
	if e.Status == EscrowStatusReleased || e.Status == EscrowStatusRefunded {
		return apperror.InvalidState("эскроу уже закрыт")
	}
	e.ReleaseConditions[index].Completed = true
	e.ReleaseConditions[index].CompletedAt = &now
	e.UpdatedAt = now
	return nil
}

// AllConditionsCompleted сообщает, выполнены ли все условия выплаты.
func (e *Escrow) AllConditionsCompleted() bool {
	for _, c := range e.ReleaseConditions {
		if !c.Completed {
			return false
		}
	}
	return true
}

// AutoReleaseDue сообщает, наступил ли срок авто-выплаты. Любой статус,
// кроме funded, делает проверку no-op, поэтому повторные вызовы безопасны.
func (e *Escrow) AutoReleaseDue(now time.Time) bool {
	if !e.AutoReleaseEnabled || e.Status != EscrowStatusFunded || e.FundedAt == nil {
		return false
	}
	daysHeld := now.Sub(*e.FundedAt).Hours() / 24
	if daysHeld < float64(e.AutoReleaseDays) {
		return false
	}
	if e.RequireMilestoneCompletion && !e.AllConditionsCompleted() {
		return false
	}
	return true
}

// IsTerminal сообщает, находится ли эскроу в конечном статусе.
func (e *Escrow) IsTerminal() bool {
	return e.Status == EscrowStatusReleased || e.Status == EscrowStatusRefunded
}

func (e *Escrow) appendHistory(action string, actor Actor, amount float64, notes string, now time.Time) {
	e.History = append(e.History, EscrowHistoryEntry{
		Action:      action,
		PerformedBy: actor,
		Amount:      amount,
		Timestamp:   now,
		Notes:       notes,
	})
}
