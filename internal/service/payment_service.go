package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/apperror"
	"github.com/noah-isme/escola-ledger-api/internal/calendar"
	"github.com/noah-isme/escola-ledger-api/internal/dto"
	"github.com/noah-isme/escola-ledger-api/internal/models"
	"github.com/noah-isme/escola-ledger-api/internal/observability"
	"github.com/noah-isme/escola-ledger-api/internal/repository"
)

// PaymentService records payment events against the ledger.
type PaymentService interface {
	Record(ctx context.Context, req dto.PaymentRequest) (dto.PaymentResponse, error)
}

// PaymentOptions configures the payment transaction.
type PaymentOptions struct {
	Tx          repository.TxOptions
	MaxAttempts int
}

// PaymentDependencies groups the collaborators notified after a payment commits.
type PaymentDependencies struct {
	Cache    LedgerCache
	Activity ActivityRecorder
	Events   LedgerPublisher
}

type paymentService struct {
	repos     repository.Repositories
	uow       repository.UnitOfWork
	opts      PaymentOptions
	validator *validator.Validate
	cache     LedgerCache
	activity  ActivityRecorder
	events    LedgerPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewPaymentService constructs the payment recorder.
func NewPaymentService(repos repository.Repositories, uow repository.UnitOfWork, opts PaymentOptions, validate *validator.Validate, deps PaymentDependencies, logger zerolog.Logger) PaymentService {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if deps.Cache == nil {
		deps.Cache = noopLedgerCache{}
	}
	return &paymentService{
		repos:     repos,
		uow:       uow,
		opts:      opts,
		validator: validate,
		cache:     deps.Cache,
		activity:  deps.Activity,
		events:    deps.Events,
		logger:    logger.With().Str("component", "payment_service").Logger(),
		now:       time.Now,
	}
}

func (s *paymentService) Record(ctx context.Context, req dto.PaymentRequest) (dto.PaymentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.PaymentResponse{}, apperror.Wrap(err, apperror.KindInvalidInput, "invalid payment request")
	}

	voucher, err := normalizeVoucher(req.Voucher)
	if err != nil {
		return dto.PaymentResponse{}, err
	}
	if err := checkVoucher(ctx, s.repos, s.logger, voucher, nil); err != nil {
		return dto.PaymentResponse{}, err
	}

	lines, total, err := s.buildLines(ctx, req.Lines)
	if err != nil {
		return dto.PaymentResponse{}, err
	}

	paidAt := s.now().UTC()
	if req.PaidAt != nil && !req.PaidAt.IsZero() {
		paidAt = req.PaidAt.UTC()
	}
	delivered := req.AmountDelivered
	if delivered.IsZero() {
		delivered = total
	}

	var (
		invoice models.PrimaryPayment
		stored  []models.PaymentDetail
	)
	for attempt := 1; ; attempt++ {
		invoice = models.PrimaryPayment{
			StudentID:       req.StudentID,
			Voucher:         voucher,
			Total:           total,
			AmountDelivered: delivered,
			PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
			Hash:            paymentHash(req.StudentID, voucher, total, paidAt),
			PaidAt:          paidAt,
		}
		stored = cloneLines(lines)

		err = s.uow.Do(ctx, s.opts.Tx, func(ctx context.Context, tx repository.Repositories) error {
			return s.persist(ctx, tx, &invoice, stored)
		})
		if err == nil || !repository.IsRetryable(err) || attempt >= s.opts.MaxAttempts {
			break
		}

		observability.PaymentRetries().Inc()
		s.logger.Warn().Err(err).Int("attempt", attempt).Str("voucher", voucher).Msg("retrying payment after serialization failure")
	}
	if err != nil {
		return dto.PaymentResponse{}, err
	}

	s.logger.Info().
		Uint("invoice_id", invoice.ID).
		Uint("student_id", invoice.StudentID).
		Str("total", invoice.Total.StringFixed(2)).
		Msg("payment recorded")

	s.cache.InvalidateStudent(ctx, invoice.StudentID)
	metadata := map[string]interface{}{
		"student_id": invoice.StudentID,
		"voucher":    invoice.Voucher,
		"total":      invoice.Total.StringFixed(2),
		"lines":      len(stored),
	}
	recordActivity(ctx, s.activity, s.logger, models.ActionPaymentRecorded, "payment", &invoice.ID, metadata)
	publishEvent(ctx, s.events, s.logger, LedgerEvent{
		Type:      EventPaymentRecorded,
		StudentID: invoice.StudentID,
		EntityID:  &invoice.ID,
		Payload:   metadata,
	})

	return dto.NewPaymentResponse(invoice, stored), nil
}

// persist writes the invoice, its lines and the voucher claim, and charges the
// student, all inside one transaction.
func (s *paymentService) persist(ctx context.Context, tx repository.Repositories, invoice *models.PrimaryPayment, lines []models.PaymentDetail) error {
	if _, err := tx.Students.GetByID(ctx, invoice.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.StudentNotFound(invoice.StudentID)
		}
		return err
	}

	if err := checkVoucher(ctx, tx, s.logger, invoice.Voucher, nil); err != nil {
		return err
	}

	if err := tx.Payments.CreateInvoice(ctx, invoice); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}

	claim := models.VoucherClaim{
		Number:           invoice.Voucher,
		StudentID:        invoice.StudentID,
		PrimaryPaymentID: &invoice.ID,
	}
	if err := tx.Vouchers.Claim(ctx, &claim); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperror.New(apperror.KindConflict, fmt.Sprintf("voucher %s was claimed by a concurrent payment", invoice.Voucher)).
				WithDetail("voucher", invoice.Voucher)
		}
		return fmt.Errorf("claim voucher: %w", err)
	}

	for idx := range lines {
		lines[idx].StudentID = invoice.StudentID
		lines[idx].PrimaryPaymentID = &invoice.ID
		lines[idx].Voucher = invoice.Voucher
	}
	if err := tx.Payments.CreateLineItems(ctx, lines); err != nil {
		return fmt.Errorf("create payment lines: %w", err)
	}

	if invoice.Total.IsPositive() {
		if err := tx.Students.AdjustBalance(ctx, invoice.StudentID, invoice.Total.Neg()); err != nil {
			return fmt.Errorf("charge student balance: %w", err)
		}
	}
	return nil
}

// buildLines resolves service types, normalises tuition months and totals
// the line prices. Tuition lines must name an academic month and a year.
func (s *paymentService) buildLines(ctx context.Context, requested []dto.PaymentLineRequest) ([]models.PaymentDetail, decimal.Decimal, error) {
	ids := make([]uint, 0, len(requested))
	for _, line := range requested {
		ids = append(ids, line.ServiceTypeID)
	}
	serviceTypes, err := s.repos.ServiceTypes.GetByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, err
	}

	total := decimal.Zero
	lines := make([]models.PaymentDetail, 0, len(requested))
	for _, line := range requested {
		serviceType, ok := serviceTypes[line.ServiceTypeID]
		if !ok {
			return nil, decimal.Zero, apperror.New(apperror.KindInvalidInput, fmt.Sprintf("unknown service type %d", line.ServiceTypeID)).
				WithDetail("service_type_id", line.ServiceTypeID)
		}
		if line.Price.IsNegative() {
			return nil, decimal.Zero, apperror.New(apperror.KindInvalidInput, "line price must not be negative")
		}

		price := line.Price
		if price.IsZero() {
			price = serviceType.Price
		}

		detail := models.PaymentDetail{
			ServiceTypeID: serviceType.ID,
			Month:         strings.TrimSpace(line.Month),
			Year:          line.Year,
			Price:         price,
			GrandTotal:    price,
		}

		if serviceType.IsTuition() {
			month, year, err := calendar.ParsePaymentMonth(line.Month, line.Year)
			if err != nil {
				return nil, decimal.Zero, err
			}
			if !calendar.IsAcademic(month) {
				return nil, decimal.Zero, apperror.New(apperror.KindInvalidInput, fmt.Sprintf("%s is not an academic month", month)).
					WithDetail("month", string(month))
			}
			detail.Month = string(month)
			detail.Year = &year
		}

		total = total.Add(price)
		lines = append(lines, detail)
	}

	return lines, total, nil
}

func cloneLines(lines []models.PaymentDetail) []models.PaymentDetail {
	cloned := make([]models.PaymentDetail, len(lines))
	copy(cloned, lines)
	return cloned
}

func paymentHash(studentID uint, voucher string, total decimal.Decimal, paidAt time.Time) string {
	hasher := sha256.New()
	hasher.Write([]byte(fmt.Sprintf("%d|%s|%s|%s", studentID, voucher, total.StringFixed(2), paidAt.Format(time.RFC3339Nano))))
	return hex.EncodeToString(hasher.Sum(nil))
}
