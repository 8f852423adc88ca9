package models

import "github.com/ignatzorin/escrow-backend/internal/pkg/objectid"

// EscrowStatus константы статусов эскроу
const (
	EscrowStatusPending  = "pending"
	EscrowStatusFunded   = "funded"
	EscrowStatusReleased = "released"
	EscrowStatusRefunded = "refunded"
	EscrowStatusDisputed = "disputed"
)

// Действия в журнале эскроу
const (
	EscrowActionFunded   = "funded"
	EscrowActionReleased = "released"
	EscrowActionDisputed = "disputed"
	EscrowActionResolved = "resolved"
	EscrowActionRefunded = "refunded"
)

// Типы условий выплаты
const (
	ReleaseConditionMilestone = "milestone"
	ReleaseConditionTime      = "time"
	ReleaseConditionManual    = "manual"
)

// Исходы разрешения спора на стороне эскроу
const (
	EscrowResolutionReleased = "released"
	EscrowResolutionRefunded = "refunded"
	EscrowResolutionSplit    = "split"
)

// Типы транзакций
const (
	TransactionTypePayment       = "payment"
	TransactionTypeRefund        = "refund"
	TransactionTypeWithdrawal    = "withdrawal"
	TransactionTypeDeposit       = "deposit"
	TransactionTypeFee           = "fee"
	TransactionTypeBonus         = "bonus"
	TransactionTypeAdjustment    = "adjustment"
	TransactionTypeEscrowFund    = "escrow_fund"
	TransactionTypeEscrowRelease = "escrow_release"
	TransactionTypeEscrowRefund  = "escrow_refund"
)

// Статусы транзакций
const (
	TransactionStatusPending    = "pending"
	TransactionStatusProcessing = "processing"
	TransactionStatusCompleted  = "completed"
	TransactionStatusFailed     = "failed"
	TransactionStatusCancelled  = "cancelled"
	TransactionStatusRefunded   = "refunded"
	TransactionStatusDisputed   = "disputed"
)

// Типы сторон транзакции
const (
	PartyTypeClient     = "client"
	PartyTypeFreelancer = "freelancer"
	PartyTypePlatform   = "platform"
	PartyTypeSystem     = "system"
)

// PlatformAccountID идентифицирует счёт платформы в проводках леджера.
// Пустой идентификатор для CHAR(24)-колонок не годится.
const PlatformAccountID objectid.ID = "000000000000000000000000"

// DisputeStatus константы статусов споров
const (
	DisputeStatusOpened         = "opened"
	DisputeStatusUnderReview    = "under_review"
	DisputeStatusEvidenceNeeded = "evidence_needed"
	DisputeStatusMediation      = "mediation"
	DisputeStatusResolved       = "resolved"
	DisputeStatusCancelled      = "cancelled"
	DisputeStatusEscalated      = "escalated"
)

// Типы споров
const (
	DisputeTypePayment       = "payment"
	DisputeTypeDelivery      = "delivery"
	DisputeTypeQuality       = "quality"
	DisputeTypeCommunication = "communication"
	DisputeTypeScope         = "scope"
	DisputeTypeCancellation  = "cancellation"
	DisputeTypeRefund        = "refund"
	DisputeTypeOther         = "other"
)

// Приоритеты споров
const (
	DisputePriorityLow    = "low"
	DisputePriorityMedium = "medium"
	DisputePriorityHigh   = "high"
	DisputePriorityUrgent = "urgent"
)

// Исходы разрешения спора
const (
	ResolutionMutual              = "resolved_mutually"
	ResolutionInFavorOfClient     = "in_favor_of_client"
	ResolutionInFavorOfFreelancer = "in_favor_of_freelancer"
	ResolutionPartialRefund       = "partial_refund"
	ResolutionFullRefund          = "full_refund"
	ResolutionCancelled           = "cancelled"
	ResolutionOther               = "other"
)

// Роли сторон спора
const (
	DisputeRoleClient     = "client"
	DisputeRoleFreelancer = "freelancer"
)

// Статусы проверки доказательств
const (
	EvidencePending  = "pending"
	EvidenceVerified = "verified"
	EvidenceRejected = "rejected"
)

// Видимость сообщений в треде спора
const (
	VisibilityAll       = "all"
	VisibilityAdminOnly = "admin_only"
)

// ValidTransactionTypes список валидных типов транзакций
var ValidTransactionTypes = map[string]struct{}{
	TransactionTypePayment:       {},
	TransactionTypeRefund:        {},
	TransactionTypeWithdrawal:    {},
	TransactionTypeDeposit:       {},
	TransactionTypeFee:           {},
	TransactionTypeBonus:         {},
	TransactionTypeAdjustment:    {},
	TransactionTypeEscrowFund:    {},
	TransactionTypeEscrowRelease: {},
	TransactionTypeEscrowRefund:  {},
}

// ValidTransactionStatuses список валидных статусов транзакций
var ValidTransactionStatuses = map[string]struct{}{
	TransactionStatusPending:    {},
	TransactionStatusProcessing: {},
	TransactionStatusCompleted:  {},
	TransactionStatusFailed:     {},
	TransactionStatusCancelled:  {},
	TransactionStatusRefunded:   {},
	TransactionStatusDisputed:   {},
}

// ValidDisputeStatuses список валидных статусов споров
var ValidDisputeStatuses = map[string]struct{}{
	DisputeStatusOpened:         {},
	DisputeStatusUnderReview:    {},
	DisputeStatusEvidenceNeeded: {},
	DisputeStatusMediation:      {},
	DisputeStatusResolved:       {},
	DisputeStatusCancelled:      {},
	DisputeStatusEscalated:      {},
}

// ValidDisputeTypes список валидных типов споров
var ValidDisputeTypes = map[string]struct{}{
	DisputeTypePayment:       {},
	DisputeTypeDelivery:      {},
	DisputeTypeQuality:       {},
	DisputeTypeCommunication: {},
	DisputeTypeScope:         {},
	DisputeTypeCancellation:  {},
	DisputeTypeRefund:        {},
	DisputeTypeOther:         {},
}

// ValidDisputePriorities список валидных приоритетов
var ValidDisputePriorities = map[string]struct{}{
	DisputePriorityLow:    {},
	DisputePriorityMedium: {},
	DisputePriorityHigh:   {},
	DisputePriorityUrgent: {},
}

// ValidResolutionOutcomes список валидных исходов спора
var ValidResolutionOutcomes = map[string]struct{}{
	ResolutionMutual:              {},
	ResolutionInFavorOfClient:     {},
	ResolutionInFavorOfFreelancer: {},
	ResolutionPartialRefund:       {},
	ResolutionFullRefund:          {},
	ResolutionCancelled:           {},
	ResolutionOther:               {},
}
