package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/escola-ledger-api/internal/apperror"
	"github.com/noah-isme/escola-ledger-api/internal/models"
	"github.com/noah-isme/escola-ledger-api/internal/repository"
)

const unknownStudentName = "N/A"

// VoucherService checks that a voucher number is not used by any payment.
type VoucherService interface {
	Validate(ctx context.Context, voucher string, excludeInvoiceID *uint) error
}

type voucherService struct {
	repos  repository.Repositories
	logger zerolog.Logger
}

// NewVoucherService constructs the voucher validator.
func NewVoucherService(repos repository.Repositories, logger zerolog.Logger) VoucherService {
	return &voucherService{
		repos:  repos,
		logger: logger.With().Str("component", "voucher_service").Logger(),
	}
}

// Validate looks the voucher up in both payment tables and in the claim
// registry. This is a read-only check; uniqueness under concurrent writers is
// held by the voucher_claims unique index at insert time.
func (s *voucherService) Validate(ctx context.Context, voucher string, excludeInvoiceID *uint) error {
	return checkVoucher(ctx, s.repos, s.logger, voucher, excludeInvoiceID)
}

func normalizeVoucher(voucher string) (string, error) {
	voucher = strings.TrimSpace(voucher)
	if voucher == "" {
		return "", apperror.MissingVoucher()
	}
	return voucher, nil
}

func checkVoucher(ctx context.Context, repos repository.Repositories, logger zerolog.Logger, voucher string, excludeInvoiceID *uint) error {
	voucher, err := normalizeVoucher(voucher)
	if err != nil {
		return err
	}

	invoice, err := repos.Payments.FindInvoiceByVoucher(ctx, voucher, excludeInvoiceID)
	if err != nil {
		return err
	}
	if invoice != nil {
		return apperror.DuplicateVoucher(voucher, invoice.ID, studentName(ctx, repos, logger, invoice.StudentID))
	}

	line, err := repos.Payments.FindLineItemByVoucher(ctx, voucher, excludeInvoiceID)
	if err != nil {
		return err
	}
	if line != nil {
		ref := models.LineItemRef(*line)
		return apperror.DuplicateVoucher(ref.Voucher(), ref.InvoiceID(), studentName(ctx, repos, logger, line.StudentID))
	}

	claim, err := repos.Vouchers.FindByNumber(ctx, voucher)
	if err != nil {
		return err
	}
	if claim != nil {
		owner := claim.PrimaryPaymentID
		if owner == nil {
			owner = claim.PaymentDetailID
		}
		if owner != nil && excludeInvoiceID != nil && *owner == *excludeInvoiceID {
			return nil
		}
		var invoiceID uint
		if owner != nil {
			invoiceID = *owner
		}
		return apperror.DuplicateVoucher(voucher, invoiceID, studentName(ctx, repos, logger, claim.StudentID))
	}

	return nil
}

// studentName is only used to enrich conflict messages, so any lookup failure
// degrades to a placeholder.
func studentName(ctx context.Context, repos repository.Repositories, logger zerolog.Logger, studentID uint) string {
	student, err := repos.Students.GetByID(ctx, studentID)
	if err != nil {
		logger.Debug().Err(err).Uint("student_id", studentID).Msg("student name lookup failed")
		return unknownStudentName
	}
	if strings.TrimSpace(student.Name) == "" {
		return unknownStudentName
	}
	return student.Name
}
