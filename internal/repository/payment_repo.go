package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/escola-ledger-api/internal/models"
)

// PaymentRepository reads and writes both ledger tables: invoices
// (pagamentoi) and line items (pagamentos). Callers work with
// models.PaymentRef and never branch on the table themselves.
type PaymentRepository interface {
	FindInvoiceByVoucher(ctx context.Context, voucher string, excludeInvoiceID *uint) (*models.PrimaryPayment, error)
	FindLineItemByVoucher(ctx context.Context, voucher string, excludeInvoiceID *uint) (*models.PaymentDetail, error)
	Resolve(ctx context.Context, id uint) (*models.PaymentRef, error)
	Delete(ctx context.Context, ref models.PaymentRef) error
	ListTuitionLineItems(ctx context.Context, studentID uint) ([]models.PaymentDetail, error)
	CreateInvoice(ctx context.Context, invoice *models.PrimaryPayment) error
	CreateLineItems(ctx context.Context, items []models.PaymentDetail) error
	InvoiceIDsByStudent(ctx context.Context, studentID uint) ([]uint, error)
	DeleteLineItems(ctx context.Context, studentID uint, invoiceIDs []uint) (int64, error)
	DeleteInvoiceLines(ctx context.Context, invoiceID uint) (int64, error)
	AddLineReversal(ctx context.Context, invoiceID uint, amount decimal.Decimal) error
	DeleteInvoices(ctx context.Context, ids []uint) (int64, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository constructs the payment repository.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) FindInvoiceByVoucher(ctx context.Context, voucher string, excludeInvoiceID *uint) (*models.PrimaryPayment, error) {
	query := r.db.WithContext(ctx).Where("borderoux = ?", voucher)
	if excludeInvoiceID != nil {
		query = query.Where("id <> ?", *excludeInvoiceID)
	}

	var invoice models.PrimaryPayment
	if err := query.Order("id ASC").First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

// FindLineItemByVoucher ignores the lines of the excluded invoice: they share
// its voucher by construction.
func (r *paymentRepository) FindLineItemByVoucher(ctx context.Context, voucher string, excludeInvoiceID *uint) (*models.PaymentDetail, error) {
	query := r.db.WithContext(ctx).Where("n_bordoro = ?", voucher)
	if excludeInvoiceID != nil {
		query = query.Where("primary_payment_id IS NULL OR primary_payment_id <> ?", *excludeInvoiceID)
	}

	var item models.PaymentDetail
	if err := query.Order("id ASC").First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// Resolve looks the id up as a line item first, then as an invoice. It returns
// nil when neither table has the row.
func (r *paymentRepository) Resolve(ctx context.Context, id uint) (*models.PaymentRef, error) {
	var item models.PaymentDetail
	err := r.db.WithContext(ctx).First(&item, id).Error
	switch {
	case err == nil:
		ref := models.LineItemRef(item)
		return &ref, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var invoice models.PrimaryPayment
	err = r.db.WithContext(ctx).First(&invoice, id).Error
	switch {
	case err == nil:
		ref := models.InvoiceRef(invoice)
		return &ref, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, err
	}
}

func (r *paymentRepository) Delete(ctx context.Context, ref models.PaymentRef) error {
	var result *gorm.DB
	switch ref.Kind {
	case models.PaymentKindInvoice:
		result = r.db.WithContext(ctx).Delete(&models.PrimaryPayment{}, ref.ID)
	case models.PaymentKindLineItem:
		result = r.db.WithContext(ctx).Delete(&models.PaymentDetail{}, ref.ID)
	default:
		return fmt.Errorf("unknown payment kind %q", ref.Kind)
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListTuitionLineItems returns every line item of the student whose service is
// categorised as tuition, oldest first.
func (r *paymentRepository) ListTuitionLineItems(ctx context.Context, studentID uint) ([]models.PaymentDetail, error) {
	var items []models.PaymentDetail
	err := r.db.WithContext(ctx).
		Model(&models.PaymentDetail{}).
		Joins("JOIN service_types ON service_types.id = pagamentos.service_type_id").
		Where("pagamentos.student_id = ?", studentID).
		Where("service_types.category = ?", models.ServiceCategoryTuition).
		Order("pagamentos.id ASC").
		Find(&items).Error
	return items, err
}

func (r *paymentRepository) CreateInvoice(ctx context.Context, invoice *models.PrimaryPayment) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *paymentRepository) CreateLineItems(ctx context.Context, items []models.PaymentDetail) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&items).Error
}

func (r *paymentRepository) InvoiceIDsByStudent(ctx context.Context, studentID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.PrimaryPayment{}).
		Where("student_id = ?", studentID).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// DeleteLineItems removes the student's lines and any line attached to one of
// the given invoices.
func (r *paymentRepository) DeleteLineItems(ctx context.Context, studentID uint, invoiceIDs []uint) (int64, error) {
	query := r.db.WithContext(ctx).Where("student_id = ?", studentID)
	if len(invoiceIDs) > 0 {
		query = query.Or("primary_payment_id IN ?", invoiceIDs)
	}
	result := query.Delete(&models.PaymentDetail{})
	return result.RowsAffected, result.Error
}

func (r *paymentRepository) DeleteInvoiceLines(ctx context.Context, invoiceID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("primary_payment_id = ?", invoiceID).Delete(&models.PaymentDetail{})
	return result.RowsAffected, result.Error
}

// AddLineReversal records that one of the invoice's lines was refunded. A
// missing invoice is not an error: the line may have outlived it.
func (r *paymentRepository) AddLineReversal(ctx context.Context, invoiceID uint, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.PrimaryPayment{}).
		Where("id = ?", invoiceID).
		Update("valor_estornado", gorm.Expr("valor_estornado + ?", amount)).Error
}

func (r *paymentRepository) DeleteInvoices(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.PrimaryPayment{})
	return result.RowsAffected, result.Error
}
