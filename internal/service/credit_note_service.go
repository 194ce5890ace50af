package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/apperror"
	"github.com/noah-isme/escola-ledger-api/internal/dto"
	"github.com/noah-isme/escola-ledger-api/internal/models"
	"github.com/noah-isme/escola-ledger-api/internal/repository"
)

// CreditNoteService issues credit notes and reverses the payment they cancel.
type CreditNoteService interface {
	Issue(ctx context.Context, req dto.CreditNoteRequest) (dto.CreditNoteResponse, error)
}

// CreditNoteDependencies groups the collaborators notified after a credit note commits.
type CreditNoteDependencies struct {
	Cache    LedgerCache
	Activity ActivityRecorder
	Events   LedgerPublisher
}

type creditNoteService struct {
	uow       repository.UnitOfWork
	txOptions repository.TxOptions
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	cache     LedgerCache
	activity  ActivityRecorder
	events    LedgerPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCreditNoteService constructs the credit note service.
func NewCreditNoteService(uow repository.UnitOfWork, txOptions repository.TxOptions, validate *validator.Validate, deps CreditNoteDependencies, logger zerolog.Logger) CreditNoteService {
	if deps.Cache == nil {
		deps.Cache = noopLedgerCache{}
	}
	return &creditNoteService{
		uow:       uow,
		txOptions: txOptions,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		cache:     deps.Cache,
		activity:  deps.Activity,
		events:    deps.Events,
		logger:    logger.With().Str("component", "credit_note_service").Logger(),
		now:       time.Now,
	}
}

func (s *creditNoteService) Issue(ctx context.Context, req dto.CreditNoteRequest) (dto.CreditNoteResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.CreditNoteResponse{}, apperror.Wrap(err, apperror.KindInvalidInput, "invalid credit note request")
	}

	designation := s.plainText(req.Designation)
	if designation == "" {
		return dto.CreditNoteResponse{}, apperror.New(apperror.KindInvalidInput, "designation is required")
	}
	if req.Amount.IsNegative() {
		return dto.CreditNoteResponse{}, apperror.New(apperror.KindInvalidInput, "amount must not be negative")
	}

	note := models.CreditNote{
		Designation:   designation,
		InvoiceRef:    req.InvoiceID,
		Description:   s.plainText(req.Description),
		Amount:        req.Amount,
		StudentID:     req.StudentID,
		DocumentID:    strings.TrimSpace(req.DocumentID),
		OperationDate: s.operationDate(req.OperationDate),
	}
	if note.DocumentID == "" {
		note.DocumentID = uuid.NewString()
	}

	var payment *models.PaymentRef
	err := s.uow.Do(ctx, s.txOptions, func(ctx context.Context, tx repository.Repositories) error {
		var err error
		payment, err = s.reverse(ctx, tx, &note)
		return err
	})
	if err != nil {
		return dto.CreditNoteResponse{}, err
	}

	s.logger.Info().
		Uint("credit_note_id", note.ID).
		Uint("student_id", note.StudentID).
		Str("reversed_amount", note.ReversedAmount.StringFixed(2)).
		Msg("credit note issued")

	s.cache.InvalidateStudent(ctx, note.StudentID)
	metadata := map[string]interface{}{
		"student_id":      note.StudentID,
		"document_id":     note.DocumentID,
		"reversed_amount": note.ReversedAmount.StringFixed(2),
	}
	if payment != nil {
		metadata["invoice_id"] = payment.InvoiceID()
		metadata["payment_id"] = payment.ID
		metadata["payment_kind"] = string(payment.Kind)
		metadata["voucher"] = payment.Voucher()
	}
	recordActivity(ctx, s.activity, s.logger, models.ActionCreditNoteIssued, "credit_note", &note.ID, metadata)
	publishEvent(ctx, s.events, s.logger, LedgerEvent{
		Type:      EventCreditNoteIssued,
		StudentID: note.StudentID,
		EntityID:  &note.ID,
		Payload:   metadata,
	})

	return dto.NewCreditNoteResponse(note), nil
}

// reverse runs inside the transaction: insert the note, give the payment's
// amount back to the student and remove the payment. It returns the reversed
// payment, or nil for a manual note.
func (s *creditNoteService) reverse(ctx context.Context, tx repository.Repositories, note *models.CreditNote) (*models.PaymentRef, error) {
	if _, err := tx.Students.GetByID(ctx, note.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.StudentNotFound(note.StudentID)
		}
		return nil, err
	}

	var payment *models.PaymentRef
	if note.InvoiceRef != nil {
		// A reversed payment is deleted, so the note table is checked before
		// the payment tables to report a repeat as a conflict.
		exists, err := tx.CreditNotes.ExistsForInvoice(ctx, *note.InvoiceRef, note.StudentID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperror.DuplicateCreditNote(*note.InvoiceRef, note.StudentID)
		}

		ref, err := tx.Payments.Resolve(ctx, *note.InvoiceRef)
		if err != nil {
			return nil, err
		}
		if ref == nil {
			return nil, apperror.PaymentNotFound(*note.InvoiceRef)
		}
		if ref.StudentID != note.StudentID {
			return nil, apperror.New(apperror.KindInvalidInput, fmt.Sprintf("payment %d does not belong to student %d", ref.ID, note.StudentID)).
				WithDetail("invoice_id", ref.ID).
				WithDetail("student_id", note.StudentID)
		}

		payment = ref
		note.PaymentKind = ref.Kind
		note.ReversedAmount = ref.ReversalAmount()
		if note.Amount.IsZero() {
			note.Amount = note.ReversedAmount
		}
	}

	if err := tx.CreditNotes.Create(ctx, note); err != nil {
		if errors.Is(err, repository.ErrDuplicate) && note.InvoiceRef != nil {
			return nil, apperror.DuplicateCreditNote(*note.InvoiceRef, note.StudentID)
		}
		return nil, fmt.Errorf("create credit note: %w", err)
	}

	if payment == nil {
		return nil, nil
	}

	if note.ReversedAmount.IsPositive() {
		if err := tx.Students.AdjustBalance(ctx, note.StudentID, note.ReversedAmount); err != nil {
			return nil, fmt.Errorf("restore student balance: %w", err)
		}
	}

	if _, err := tx.Vouchers.ReleaseFor(ctx, *payment); err != nil {
		return nil, fmt.Errorf("release voucher: %w", err)
	}
	switch {
	case payment.Kind == models.PaymentKindInvoice:
		if _, err := tx.Payments.DeleteInvoiceLines(ctx, payment.ID); err != nil {
			return nil, fmt.Errorf("delete invoice lines: %w", err)
		}
	case payment.LineItem.PrimaryPaymentID != nil && note.ReversedAmount.IsPositive():
		if err := tx.Payments.AddLineReversal(ctx, *payment.LineItem.PrimaryPaymentID, note.ReversedAmount); err != nil {
			return nil, fmt.Errorf("record line reversal on invoice: %w", err)
		}
	}
	if err := tx.Payments.Delete(ctx, *payment); err != nil {
		return nil, fmt.Errorf("delete reversed payment: %w", err)
	}

	return payment, nil
}

// plainText strips markup but keeps the text itself unescaped.
func (s *creditNoteService) plainText(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(value)))
}

func (s *creditNoteService) operationDate(requested *time.Time) time.Time {
	if requested != nil && !requested.IsZero() {
		return requested.UTC()
	}
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
