package models

import (
	"time"

	"gorm.io/datatypes"
)

// Ledger audit actions.
const (
	ActionPaymentRecorded   = "payment.recorded"
	ActionCreditNoteIssued  = "credit_note.issued"
	ActionStudentDeleted    = "student.deleted"
	ActionGuardianDeleted   = "guardian.deleted"
	ActionGuardianInactive  = "guardian.deactivated"
	ActionEnrollmentCreated = "enrollment.created"
)

// ActivityLog captures auditable ledger events triggered by staff.
type ActivityLog struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ActorID       uint              `gorm:"not null" json:"actor_id"`
	ActorRole     string            `gorm:"size:32;not null" json:"actor_role"`
	Action        string            `gorm:"size:64;not null;index" json:"action"`
	EntityType    string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID      *uint             `json:"entity_id"`
	CorrelationID string            `gorm:"size:64" json:"correlation_id"`
	Metadata      datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt     time.Time         `json:"created_at"`
}

// LedgerModels lists every table owned by the ledger, in migration order.
func LedgerModels() []interface{} {
	return []interface{}{
		&Guardian{},
		&Student{},
		&AcademicYear{},
		&Enrollment{},
		&Confirmation{},
		&ServiceType{},
		&PrimaryPayment{},
		&PaymentDetail{},
		&VoucherClaim{},
		&CreditNote{},
		&ServiceAssignment{},
		&Transfer{},
		&ActivityLog{},
	}
}
