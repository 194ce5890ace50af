package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/escola-ledger-api/internal/models"
)

// PaymentLineRequest is one paid service inside a payment event.
type PaymentLineRequest struct {
	ServiceTypeID uint            `json:"service_type_id" validate:"required"`
	Month         string          `json:"month" validate:"omitempty,max=32"`
	Year          *int            `json:"year" validate:"omitempty,min=1900,max=3000"`
	Price         decimal.Decimal `json:"price"`
}

// PaymentRequest records a payment event with its line items.
type PaymentRequest struct {
	StudentID       uint                 `json:"student_id" validate:"required"`
	Voucher         string               `json:"voucher" validate:"required,max=64"`
	PaymentMethod   string               `json:"payment_method" validate:"omitempty,max=64"`
	AmountDelivered decimal.Decimal      `json:"amount_delivered"`
	PaidAt          *time.Time           `json:"paid_at"`
	Lines           []PaymentLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// PaymentLineResponse serialises a stored line item.
type PaymentLineResponse struct {
	ID            uint            `json:"id"`
	ServiceTypeID uint            `json:"service_type_id"`
	Month         string          `json:"month"`
	Year          *int            `json:"year"`
	Price         decimal.Decimal `json:"price"`
}

// PaymentResponse serialises a recorded payment event.
type PaymentResponse struct {
	InvoiceID       uint                  `json:"invoice_id"`
	StudentID       uint                  `json:"student_id"`
	Voucher         string                `json:"voucher"`
	Total           decimal.Decimal       `json:"total"`
	AmountDelivered decimal.Decimal       `json:"amount_delivered"`
	Hash            string                `json:"hash"`
	PaidAt          time.Time             `json:"paid_at"`
	Lines           []PaymentLineResponse `json:"lines"`
}

// NewPaymentResponse maps an invoice and its lines.
func NewPaymentResponse(invoice models.PrimaryPayment, lines []models.PaymentDetail) PaymentResponse {
	items := make([]PaymentLineResponse, 0, len(lines))
	for _, line := range lines {
		items = append(items, PaymentLineResponse{
			ID:            line.ID,
			ServiceTypeID: line.ServiceTypeID,
			Month:         line.Month,
			Year:          line.Year,
			Price:         line.Price,
		})
	}
	return PaymentResponse{
		InvoiceID:       invoice.ID,
		StudentID:       invoice.StudentID,
		Voucher:         invoice.Voucher,
		Total:           invoice.Total,
		AmountDelivered: invoice.AmountDelivered,
		Hash:            invoice.Hash,
		PaidAt:          invoice.PaidAt,
		Lines:           items,
	}
}
