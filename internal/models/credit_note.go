package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditNote cancels one payment of one student. At most one note may exist
// per (invoice, student); manual notes carry no invoice reference.
type CreditNote struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Designation    string          `gorm:"size:255;not null" json:"designation"`
	InvoiceRef     *uint           `gorm:"uniqueIndex:idx_credit_note_invoice_student" json:"invoice_ref"`
	PaymentKind    PaymentKind     `gorm:"size:16" json:"payment_kind,omitempty"`
	Description    string          `gorm:"type:text" json:"description"`
	Amount         decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"amount"`
	ReversedAmount decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"reversed_amount"`
	StudentID      uint            `gorm:"uniqueIndex:idx_credit_note_invoice_student;index;not null" json:"student_id"`
	DocumentID     string          `gorm:"size:64" json:"document_id"`
	OperationDate  time.Time       `json:"operation_date"`
	CreatedAt      time.Time       `json:"created_at"`
}
