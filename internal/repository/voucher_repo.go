package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/models"
)

// VoucherRepository maintains the voucher claim registry.
type VoucherRepository interface {
	Claim(ctx context.Context, claim *models.VoucherClaim) error
	FindByNumber(ctx context.Context, number string) (*models.VoucherClaim, error)
	ReleaseFor(ctx context.Context, ref models.PaymentRef) (int64, error)
	ReleaseForStudent(ctx context.Context, studentID uint) (int64, error)
}

type voucherRepository struct {
	db *gorm.DB
}

// NewVoucherRepository constructs the voucher claim repository.
func NewVoucherRepository(db *gorm.DB) VoucherRepository {
	return &voucherRepository{db: db}
}

// Claim inserts the claim; ErrDuplicate means another payment owns the number.
func (r *voucherRepository) Claim(ctx context.Context, claim *models.VoucherClaim) error {
	return translateInsertError(r.db.WithContext(ctx).Create(claim).Error)
}

func (r *voucherRepository) FindByNumber(ctx context.Context, number string) (*models.VoucherClaim, error) {
	var claim models.VoucherClaim
	err := r.db.WithContext(ctx).Where("number = ?", number).First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// ReleaseFor frees the voucher held by the payment, if it holds one.
func (r *voucherRepository) ReleaseFor(ctx context.Context, ref models.PaymentRef) (int64, error) {
	query := r.db.WithContext(ctx)
	switch ref.Kind {
	case models.PaymentKindInvoice:
		query = query.Where("primary_payment_id = ?", ref.ID)
	case models.PaymentKindLineItem:
		query = query.Where("payment_detail_id = ?", ref.ID)
	default:
		return 0, nil
	}
	result := query.Delete(&models.VoucherClaim{})
	return result.RowsAffected, result.Error
}

func (r *voucherRepository) ReleaseForStudent(ctx context.Context, studentID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("student_id = ?", studentID).Delete(&models.VoucherClaim{})
	return result.RowsAffected, result.Error
}
