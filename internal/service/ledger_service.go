package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/escola-ledger-api/internal/apperror"
	"github.com/noah-isme/escola-ledger-api/internal/dto"
	"github.com/noah-isme/escola-ledger-api/internal/observability"
)

// LedgerService is the entry point HTTP handlers use for ledger operations.
// Domain errors reach the caller unchanged; anything else is reported as an
// internal error with the cause attached.
type LedgerService interface {
	ReconcileTuition(ctx context.Context, studentID uint, academicYearID *uint) (dto.TuitionLedgerResult, error)
	AggregateHistoricalDebt(ctx context.Context, studentID, currentAcademicYearID uint) ([]dto.DebtRecord, error)
	ValidateVoucher(ctx context.Context, voucher string, excludeInvoiceID *uint) error
	ReverseViaCreditNote(ctx context.Context, req dto.CreditNoteRequest) (dto.CreditNoteResponse, error)
	DeleteStudentCascade(ctx context.Context, studentID uint) (dto.DeletionSummary, error)
	RecordPayment(ctx context.Context, req dto.PaymentRequest) (dto.PaymentResponse, error)
}

// LedgerComponents are the services the façade sequences.
type LedgerComponents struct {
	Tuition     TuitionService
	Vouchers    VoucherService
	CreditNotes CreditNoteService
	Deletions   StudentDeletionService
	Payments    PaymentService
}

type ledgerService struct {
	components LedgerComponents
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewLedgerService constructs the ledger façade.
func NewLedgerService(components LedgerComponents, logger zerolog.Logger) LedgerService {
	return &ledgerService{
		components: components,
		tracer:     otel.Tracer("github.com/noah-isme/escola-ledger-api/internal/service/ledger"),
		logger:     logger.With().Str("component", "ledger_service").Logger(),
	}
}

func (s *ledgerService) ReconcileTuition(ctx context.Context, studentID uint, academicYearID *uint) (dto.TuitionLedgerResult, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.reconcile_tuition", trace.WithAttributes(attribute.Int64("student.id", int64(studentID))))
	defer span.End()
	start := time.Now()

	result, err := s.components.Tuition.Reconcile(ctx, studentID, academicYearID)
	if err = s.finish(ctx, span, "reconcile_tuition", start, err); err != nil {
		return dto.TuitionLedgerResult{}, err
	}
	span.SetAttributes(attribute.Int("ledger.pending_months", result.PendingCount))
	return result, nil
}

func (s *ledgerService) AggregateHistoricalDebt(ctx context.Context, studentID, currentAcademicYearID uint) ([]dto.DebtRecord, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.aggregate_historical_debt", trace.WithAttributes(
		attribute.Int64("student.id", int64(studentID)),
		attribute.Int64("academic_year.id", int64(currentAcademicYearID)),
	))
	defer span.End()
	start := time.Now()

	records, err := s.components.Tuition.AggregateHistoricalDebt(ctx, studentID, currentAcademicYearID)
	if err = s.finish(ctx, span, "aggregate_historical_debt", start, err); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("ledger.debt_years", len(records)))
	return records, nil
}

func (s *ledgerService) ValidateVoucher(ctx context.Context, voucher string, excludeInvoiceID *uint) error {
	ctx, span := s.tracer.Start(ctx, "ledger.validate_voucher")
	defer span.End()
	start := time.Now()

	err := s.components.Vouchers.Validate(ctx, voucher, excludeInvoiceID)
	return s.finish(ctx, span, "validate_voucher", start, err)
}

func (s *ledgerService) ReverseViaCreditNote(ctx context.Context, req dto.CreditNoteRequest) (dto.CreditNoteResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.reverse_via_credit_note", trace.WithAttributes(attribute.Int64("student.id", int64(req.StudentID))))
	defer span.End()
	start := time.Now()

	note, err := s.components.CreditNotes.Issue(ctx, req)
	if err = s.finish(ctx, span, "reverse_via_credit_note", start, err); err != nil {
		return dto.CreditNoteResponse{}, err
	}
	return note, nil
}

func (s *ledgerService) DeleteStudentCascade(ctx context.Context, studentID uint) (dto.DeletionSummary, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.delete_student_cascade", trace.WithAttributes(attribute.Int64("student.id", int64(studentID))))
	defer span.End()
	start := time.Now()

	summary, err := s.components.Deletions.Delete(ctx, studentID)
	if err = s.finish(ctx, span, "delete_student_cascade", start, err); err != nil {
		return dto.DeletionSummary{}, err
	}
	return summary, nil
}

func (s *ledgerService) RecordPayment(ctx context.Context, req dto.PaymentRequest) (dto.PaymentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.record_payment", trace.WithAttributes(attribute.Int64("student.id", int64(req.StudentID))))
	defer span.End()
	start := time.Now()

	payment, err := s.components.Payments.Record(ctx, req)
	if err = s.finish(ctx, span, "record_payment", start, err); err != nil {
		return dto.PaymentResponse{}, err
	}
	return payment, nil
}

// finish classifies err once, records metrics and span status, and returns
// the error callers should see.
func (s *ledgerService) finish(ctx context.Context, span trace.Span, operation string, start time.Time, err error) error {
	elapsed := time.Since(start)
	if err == nil {
		span.SetStatus(codes.Ok, "")
		observability.ObserveLedgerOperation(operation, "ok", elapsed)
		return nil
	}

	switch {
	case apperror.IsDomain(err):
	case errors.Is(err, context.DeadlineExceeded):
		err = apperror.Wrap(err, apperror.KindTimeout, "operation timed out")
	default:
		s.logger.Error().
			Err(err).
			Str("operation", operation).
			Str("correlation_id", CorrelationIDFromContext(ctx)).
			Msg("ledger operation failed")
		err = apperror.Wrap(err, apperror.KindInternal, "ledger operation failed")
	}

	kind := apperror.KindOf(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, string(kind))
	observability.ObserveLedgerOperation(operation, string(kind), elapsed)
	return err
}
