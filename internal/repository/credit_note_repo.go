package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/models"
)

// CreditNoteRepository persists credit notes.
type CreditNoteRepository interface {
	Create(ctx context.Context, note *models.CreditNote) error
	ExistsForInvoice(ctx context.Context, invoiceRef, studentID uint) (bool, error)
	DeleteForStudent(ctx context.Context, studentID uint, invoiceIDs []uint) (int64, error)
}

type creditNoteRepository struct {
	db *gorm.DB
}

// NewCreditNoteRepository constructs the credit note repository.
func NewCreditNoteRepository(db *gorm.DB) CreditNoteRepository {
	return &creditNoteRepository{db: db}
}

func (r *creditNoteRepository) Create(ctx context.Context, note *models.CreditNote) error {
	return translateInsertError(r.db.WithContext(ctx).Create(note).Error)
}

func (r *creditNoteRepository) ExistsForInvoice(ctx context.Context, invoiceRef, studentID uint) (bool, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.CreditNote{}).
		Where("invoice_ref = ? AND student_id = ?", invoiceRef, studentID).
		Count(&total).Error
	return total > 0, err
}

// DeleteForStudent removes notes issued to the student and notes that reference
// one of the given invoices.
func (r *creditNoteRepository) DeleteForStudent(ctx context.Context, studentID uint, invoiceIDs []uint) (int64, error) {
	query := r.db.WithContext(ctx).Where("student_id = ?", studentID)
	if len(invoiceIDs) > 0 {
		query = query.Or("payment_kind = ? AND invoice_ref IN ?", models.PaymentKindInvoice, invoiceIDs)
	}
	result := query.Delete(&models.CreditNote{})
	return result.RowsAffected, result.Error
}
