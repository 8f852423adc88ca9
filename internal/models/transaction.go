package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/pkg/objectid"
)

// TransactionFees содержит разбивку комиссий; Total обязан равняться Amount + сумма комиссий.
type TransactionFees struct {
	Platform   float64 `json:"platform"`
	Processing float64 `json:"processing"`
	Tax        float64 `json:"tax"`
}

func (f TransactionFees) Value() (driver.Value, error) { return jsonbValue(f) }
func (f *TransactionFees) Scan(src interface{}) error  { return jsonbScan(f, src) }

// Sum возвращает суммарную комиссию.
func (f TransactionFees) Sum() float64 {
	return f.Platform + f.Processing + f.Tax
}

// TransactionStatusChange фиксирует смену статуса. Журнал только дополняется.
type TransactionStatusChange struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
	Actor     Actor     `json:"actor"`
}

// StatusHistory хранится в JSONB.
type StatusHistory []TransactionStatusChange

func (h StatusHistory) Value() (driver.Value, error) { return jsonbValue(h) }
func (h *StatusHistory) Scan(src interface{}) error  { return jsonbScan(h, src) }

// ProcessingAttempt фиксирует попытку проведения через платёжный шлюз.
type ProcessingAttempt struct {
	Attempt   int       `json:"attempt"`
	Timestamp time.Time `json:"timestamp"`
	Gateway   string    `json:"gateway,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// ProcessingAttempts хранится в JSONB.
type ProcessingAttempts []ProcessingAttempt

func (a ProcessingAttempts) Value() (driver.Value, error) { return jsonbValue(a) }
func (a *ProcessingAttempts) Scan(src interface{}) error  { return jsonbScan(a, src) }

// Transaction представляет неизменяемую запись о движении средств. Записи никогда
// не удаляются; изменяется только статус через UpdateStatus.
type Transaction struct {
	ID        objectid.ID `db:"id" json:"id"`
	Reference string      `db:"reference" json:"reference"`

	SenderID      objectid.ID `db:"sender_id" json:"sender_id"`
	SenderType    string      `db:"sender_type" json:"sender_type"`
	RecipientID   objectid.ID `db:"recipient_id" json:"recipient_id"`
	RecipientType string      `db:"recipient_type" json:"recipient_type"`

	Type    string  `db:"type" json:"type"`
	SubType *string `db:"sub_type" json:"sub_type,omitempty"`

	Amount   float64         `db:"amount" json:"amount"`
	Currency string          `db:"currency" json:"currency"`
	Fees     TransactionFees `db:"fees" json:"fees"`
	Total    float64         `db:"total" json:"total"`

	Status             string             `db:"status" json:"status"`
	StatusHistory      StatusHistory      `db:"status_history" json:"status_history"`
	ProcessingAttempts ProcessingAttempts `db:"processing_attempts" json:"processing_attempts"`

	EscrowID *objectid.ID `db:"escrow_id" json:"escrow_id,omitempty"`
	JobID    *objectid.ID `db:"job_id" json:"job_id,omitempty"`

	Description string `db:"description" json:"description"`

	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// NewTransactionReference генерирует внешний номер транзакции:
// метка времени + случайный суффикс.
func NewTransactionReference(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("TXN-%d-%s", now.UnixMilli(), strings.ToUpper(suffix))
}

// NewTransaction создаёт транзакцию в статусе pending с первой записью журнала.
// Total вычисляется как Amount + сумма комиссий.
func NewTransaction(txType string, senderID objectid.ID, senderType string, recipientID objectid.ID, recipientType string, amount float64, currency string, fees TransactionFees, actor Actor, now time.Time) (*Transaction, error) {
	if _, ok := ValidTransactionTypes[txType]; !ok {
		return nil, apperror.Validation("неизвестный тип транзакции: " + txType)
	}
	if amount <= 0 {
		return nil, apperror.Validation("сумма транзакции должна быть положительной")
	}
	if currency == "" {
		currency = "USD"
	}
	t := &Transaction{
		ID:            objectid.New(),
		Reference:     NewTransactionReference(now),
		SenderID:      senderID,
		SenderType:    senderType,
		RecipientID:   recipientID,
		RecipientType: recipientType,
		Type:          txType,
		Amount:        amount,
		Currency:      currency,
		Fees:          fees,
		Total:         amount + fees.Sum(),
		Status:        TransactionStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	t.StatusHistory = append(t.StatusHistory, TransactionStatusChange{
		Status:    TransactionStatusPending,
		Timestamp: now,
		Reason:    "создана",
		Actor:     actor,
	})
	return t, nil
}

// UpdateStatus меняет статус и дополняет журнал. Журнал никогда не переписывается.
func (t *Transaction) UpdateStatus(status, reason string, actor Actor, now time.Time) error {
	if _, ok := ValidTransactionStatuses[status]; !ok {
		return apperror.Validation("неизвестный статус транзакции: " + status)
	}
	t.Status = status
	if status == TransactionStatusCompleted {
		t.CompletedAt = &now
	}
	t.StatusHistory = append(t.StatusHistory, TransactionStatusChange{
		Status:    status,
		Timestamp: now,
		Reason:    reason,
		Actor:     actor,
	})
	t.UpdatedAt = now
	return nil
}

// AddProcessingAttempt фиксирует попытку проведения через шлюз.
func (t *Transaction) AddProcessingAttempt(gateway string, success bool, attemptErr string, now time.Time) {
	t.ProcessingAttempts = append(t.ProcessingAttempts, ProcessingAttempt{
		Attempt:   len(t.ProcessingAttempts) + 1,
		Timestamp: now,
		Gateway:   gateway,
		Success:   success,
		Error:     attemptErr,
	})
	t.UpdatedAt = now
}
