package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/apperror"
	"github.com/noah-isme/escola-ledger-api/internal/dto"
	"github.com/noah-isme/escola-ledger-api/internal/models"
	"github.com/noah-isme/escola-ledger-api/internal/repository"
)

// StudentDeletionService removes a student together with every dependent row.
type StudentDeletionService interface {
	Delete(ctx context.Context, studentID uint) (dto.DeletionSummary, error)
}

// StudentDeletionDependencies groups the collaborators notified after a deletion commits.
type StudentDeletionDependencies struct {
	Cache    LedgerCache
	Activity ActivityRecorder
	Events   LedgerPublisher
}

type studentDeletionService struct {
	uow       repository.UnitOfWork
	txOptions repository.TxOptions
	cache     LedgerCache
	activity  ActivityRecorder
	events    LedgerPublisher
	logger    zerolog.Logger
}

// NewStudentDeletionService constructs the cascade deletion orchestrator.
// txOptions bounds both the wait for a connection and the transaction body.
func NewStudentDeletionService(uow repository.UnitOfWork, txOptions repository.TxOptions, deps StudentDeletionDependencies, logger zerolog.Logger) StudentDeletionService {
	if deps.Cache == nil {
		deps.Cache = noopLedgerCache{}
	}
	return &studentDeletionService{
		uow:       uow,
		txOptions: txOptions,
		cache:     deps.Cache,
		activity:  deps.Activity,
		events:    deps.Events,
		logger:    logger.With().Str("component", "student_deletion_service").Logger(),
	}
}

func (s *studentDeletionService) Delete(ctx context.Context, studentID uint) (dto.DeletionSummary, error) {
	var summary dto.DeletionSummary
	err := s.uow.Do(ctx, s.txOptions, func(ctx context.Context, tx repository.Repositories) error {
		var err error
		summary, err = cascadeDelete(ctx, tx, studentID)
		return err
	})
	if err != nil {
		return dto.DeletionSummary{}, err
	}

	s.logger.Info().
		Uint("student_id", studentID).
		Int64("payment_details", summary.PaymentDetails).
		Int64("primary_payments", summary.PrimaryPayments).
		Int64("credit_notes", summary.CreditNotes).
		Bool("guardian_removed", summary.GuardianRemoved).
		Msg("student deleted")

	s.cache.InvalidateStudent(ctx, studentID)
	metadata := map[string]interface{}{
		"confirmations":       summary.Confirmations,
		"credit_notes":        summary.CreditNotes,
		"payment_details":     summary.PaymentDetails,
		"primary_payments":    summary.PrimaryPayments,
		"voucher_claims":      summary.VoucherClaims,
		"service_assignments": summary.ServiceAssignments,
		"transfers":           summary.Transfers,
		"guardian_removed":    summary.GuardianRemoved,
	}
	recordActivity(ctx, s.activity, s.logger, models.ActionStudentDeleted, "student", &studentID, metadata)
	if summary.GuardianRemoved && summary.GuardianID != nil {
		recordActivity(ctx, s.activity, s.logger, models.ActionGuardianDeleted, "guardian", summary.GuardianID, map[string]interface{}{"student_id": studentID})
	}
	publishEvent(ctx, s.events, s.logger, LedgerEvent{
		Type:      EventStudentDeleted,
		StudentID: studentID,
		EntityID:  &studentID,
		Payload:   metadata,
	})

	return summary, nil
}

// cascadeDelete removes rows child-first so no step leaves a reference to a
// row that is already gone. Any failure aborts the surrounding transaction.
func cascadeDelete(ctx context.Context, tx repository.Repositories, studentID uint) (dto.DeletionSummary, error) {
	summary := dto.DeletionSummary{StudentID: studentID}

	student, err := tx.Students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return summary, apperror.StudentNotFound(studentID)
		}
		return summary, err
	}
	summary.GuardianID = student.GuardianID

	enrollment, err := tx.Enrollments.FindByStudent(ctx, studentID)
	if err != nil {
		return summary, fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment != nil {
		if summary.Confirmations, err = tx.Confirmations.DeleteByEnrollment(ctx, enrollment.ID); err != nil {
			return summary, fmt.Errorf("delete confirmations: %w", err)
		}
	}

	invoiceIDs, err := tx.Payments.InvoiceIDsByStudent(ctx, studentID)
	if err != nil {
		return summary, fmt.Errorf("collect invoices: %w", err)
	}

	if summary.CreditNotes, err = tx.CreditNotes.DeleteForStudent(ctx, studentID, invoiceIDs); err != nil {
		return summary, fmt.Errorf("delete credit notes: %w", err)
	}
	if summary.PaymentDetails, err = tx.Payments.DeleteLineItems(ctx, studentID, invoiceIDs); err != nil {
		return summary, fmt.Errorf("delete payment details: %w", err)
	}
	if summary.VoucherClaims, err = tx.Vouchers.ReleaseForStudent(ctx, studentID); err != nil {
		return summary, fmt.Errorf("release voucher claims: %w", err)
	}
	if summary.PrimaryPayments, err = tx.Payments.DeleteInvoices(ctx, invoiceIDs); err != nil {
		return summary, fmt.Errorf("delete primary payments: %w", err)
	}
	if summary.ServiceAssignments, err = tx.StudentRecords.DeleteServiceAssignments(ctx, studentID); err != nil {
		return summary, fmt.Errorf("delete service assignments: %w", err)
	}
	if summary.Transfers, err = tx.StudentRecords.DeleteTransfers(ctx, studentID); err != nil {
		return summary, fmt.Errorf("delete transfers: %w", err)
	}
	if enrollment != nil {
		if summary.Enrollments, err = tx.Enrollments.Delete(ctx, enrollment.ID); err != nil {
			return summary, fmt.Errorf("delete enrollment: %w", err)
		}
	}

	deleted, err := tx.Students.Delete(ctx, studentID)
	if err != nil {
		return summary, fmt.Errorf("delete student: %w", err)
	}
	if deleted == 0 {
		return summary, fmt.Errorf("delete student: student %d disappeared during deletion", studentID)
	}

	if student.GuardianID == nil {
		return summary, nil
	}
	remaining, err := tx.Students.CountByGuardian(ctx, *student.GuardianID)
	if err != nil {
		return summary, fmt.Errorf("count guardian students: %w", err)
	}
	if remaining > 0 {
		return summary, nil
	}
	removed, err := tx.Guardians.Delete(ctx, *student.GuardianID)
	if err != nil {
		return summary, fmt.Errorf("delete guardian: %w", err)
	}
	summary.GuardianRemoved = removed > 0

	return summary, nil
}
