package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/escola-ledger-api/internal/models"
)

// CreditNoteRequest asks for a credit note, optionally reversing a payment.
type CreditNoteRequest struct {
	StudentID     uint            `json:"student_id" validate:"required"`
	InvoiceID     *uint           `json:"invoice_id" validate:"omitempty,min=1"`
	Designation   string          `json:"designation" validate:"required,max=255"`
	Description   string          `json:"description" validate:"omitempty,max=2000"`
	Amount        decimal.Decimal `json:"amount"`
	DocumentID    string          `json:"document_id" validate:"omitempty,max=64"`
	OperationDate *time.Time      `json:"operation_date"`
}

// CreditNoteResponse serialises an issued credit note.
type CreditNoteResponse struct {
	ID             uint               `json:"id"`
	StudentID      uint               `json:"student_id"`
	InvoiceID      *uint              `json:"invoice_id"`
	PaymentKind    models.PaymentKind `json:"payment_kind,omitempty"`
	Designation    string             `json:"designation"`
	Description    string             `json:"description"`
	Amount         decimal.Decimal    `json:"amount"`
	ReversedAmount decimal.Decimal    `json:"reversed_amount"`
	DocumentID     string             `json:"document_id"`
	OperationDate  time.Time          `json:"operation_date"`
	CreatedAt      time.Time          `json:"created_at"`
}

// NewCreditNoteResponse maps a credit note model.
func NewCreditNoteResponse(note models.CreditNote) CreditNoteResponse {
	return CreditNoteResponse{
		ID:             note.ID,
		StudentID:      note.StudentID,
		InvoiceID:      note.InvoiceRef,
		PaymentKind:    note.PaymentKind,
		Designation:    note.Designation,
		Description:    note.Description,
		Amount:         note.Amount,
		ReversedAmount: note.ReversedAmount,
		DocumentID:     note.DocumentID,
		OperationDate:  note.OperationDate,
		CreatedAt:      note.CreatedAt,
	}
}
