package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PrimaryPayment is the invoice-level record of one payment event.
type PrimaryPayment struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	StudentID       uint            `gorm:"index;not null" json:"student_id"`
	Voucher         string          `gorm:"column:borderoux;size:64;index" json:"voucher"`
	Total           decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total"`
	AmountDelivered decimal.Decimal `gorm:"column:valor_entregue;type:numeric(14,2);not null;default:0" json:"amount_delivered"`
	ReversedLines   decimal.Decimal `gorm:"column:valor_estornado;type:numeric(14,2);not null;default:0" json:"reversed_lines"`
	PaymentMethod   string          `gorm:"size:64" json:"payment_method"`
	Hash            string          `gorm:"size:128" json:"hash"`
	PaidAt          time.Time       `json:"paid_at"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TableName keeps the legacy table name.
func (PrimaryPayment) TableName() string {
	return "pagamentoi"
}

// PaymentDetail is one paid service line. Month is either a bare month name
// (with Year set) or the combined "MONTH-YEAR" form.
type PaymentDetail struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	StudentID        uint            `gorm:"index;not null" json:"student_id"`
	PrimaryPaymentID *uint           `gorm:"index" json:"primary_payment_id"`
	ServiceTypeID    uint            `gorm:"index;not null" json:"service_type_id"`
	ServiceType      ServiceType     `gorm:"foreignKey:ServiceTypeID" json:"-"`
	Voucher          string          `gorm:"column:n_bordoro;size:64;index" json:"voucher"`
	Month            string          `gorm:"size:32" json:"month"`
	Year             *int            `json:"year"`
	Price            decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"price"`
	GrandTotal       decimal.Decimal `gorm:"column:total_geral;type:numeric(14,2);not null;default:0" json:"grand_total"`
	CreatedAt        time.Time       `json:"created_at"`
}

// TableName keeps the legacy table name.
func (PaymentDetail) TableName() string {
	return "pagamentos"
}

// VoucherClaim reserves a voucher number for exactly one payment. The unique
// index on Number is what makes voucher uniqueness hold under concurrency.
type VoucherClaim struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Number           string    `gorm:"size:64;uniqueIndex;not null" json:"number"`
	StudentID        uint      `gorm:"index;not null" json:"student_id"`
	PrimaryPaymentID *uint     `gorm:"index" json:"primary_payment_id"`
	PaymentDetailID  *uint     `gorm:"index" json:"payment_detail_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// PaymentKind tells which ledger table a payment lives in.
type PaymentKind string

const (
	PaymentKindInvoice  PaymentKind = "invoice"
	PaymentKindLineItem PaymentKind = "line_item"
)

// PaymentRef is a single view over both payment tables.
type PaymentRef struct {
	Kind      PaymentKind
	ID        uint
	StudentID uint
	Invoice   *PrimaryPayment
	LineItem  *PaymentDetail
}

// InvoiceRef wraps an invoice-level payment.
func InvoiceRef(p PrimaryPayment) PaymentRef {
	return PaymentRef{Kind: PaymentKindInvoice, ID: p.ID, StudentID: p.StudentID, Invoice: &p}
}

// LineItemRef wraps a line-item payment.
func LineItemRef(d PaymentDetail) PaymentRef {
	return PaymentRef{Kind: PaymentKindLineItem, ID: d.ID, StudentID: d.StudentID, LineItem: &d}
}

// Voucher returns the voucher number regardless of the backing table.
func (p PaymentRef) Voucher() string {
	switch p.Kind {
	case PaymentKindInvoice:
		return p.Invoice.Voucher
	case PaymentKindLineItem:
		return p.LineItem.Voucher
	}
	return ""
}

// InvoiceID returns the invoice the payment belongs to. Line items without an
// invoice report their own id.
func (p PaymentRef) InvoiceID() uint {
	if p.Kind == PaymentKindLineItem && p.LineItem.PrimaryPaymentID != nil {
		return *p.LineItem.PrimaryPaymentID
	}
	return p.ID
}

// ReversalAmount is the amount returned to the student's balance when the
// payment is cancelled: price (or grand total) for a line item, total (or
// amount delivered) for an invoice less what its lines already gave back.
func (p PaymentRef) ReversalAmount() decimal.Decimal {
	switch p.Kind {
	case PaymentKindInvoice:
		paid := p.Invoice.Total
		if !paid.IsPositive() {
			paid = p.Invoice.AmountDelivered
		}
		return decimal.Max(paid.Sub(p.Invoice.ReversedLines), decimal.Zero)
	case PaymentKindLineItem:
		if p.LineItem.Price.IsPositive() {
			return p.LineItem.Price
		}
		return p.LineItem.GrandTotal
	}
	return decimal.Zero
}
