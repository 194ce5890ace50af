package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/apperror"
	"github.com/noah-isme/escola-ledger-api/internal/dto"
	"github.com/noah-isme/escola-ledger-api/internal/repository"
)

type stubTuitionService struct {
	err error
}

func (s stubTuitionService) Reconcile(ctx context.Context, studentID uint, academicYearID *uint) (dto.TuitionLedgerResult, error) {
	return dto.TuitionLedgerResult{}, s.err
}

func (s stubTuitionService) AggregateHistoricalDebt(ctx context.Context, studentID, currentAcademicYearID uint) ([]dto.DebtRecord, error) {
	return nil, s.err
}

func TestLedgerServiceWrapsStoreFailuresAsInternal(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	storeErr := errors.New("connection reset by peer")
	mock.ExpectQuery(`SELECT \* FROM "students"`).WillReturnError(storeErr)

	repos := repository.NewRepositories(db)
	facade := NewLedgerService(LedgerComponents{
		Tuition: NewTuitionService(repos, nil, 1, testLogger()),
	}, testLogger())

	_, err = facade.ReconcileTuition(context.Background(), 1, nil)
	require.Error(t, err)
	require.True(t, apperror.Is(err, apperror.KindInternal))
	require.ErrorIs(t, err, storeErr)
	require.Equal(t, "internal server error", apperror.PublicMessage(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerServicePassesDomainErrorsThrough(t *testing.T) {
	domainErr := fmt.Errorf("lookup: %w", apperror.StudentNotFound(7))
	facade := NewLedgerService(LedgerComponents{Tuition: stubTuitionService{err: domainErr}}, testLogger())

	_, err := facade.AggregateHistoricalDebt(context.Background(), 7, 1)
	require.Same(t, domainErr, err)
	require.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestLedgerServiceMapsDeadlineToTimeout(t *testing.T) {
	facade := NewLedgerService(LedgerComponents{Tuition: stubTuitionService{err: fmt.Errorf("query: %w", context.DeadlineExceeded)}}, testLogger())

	_, err := facade.ReconcileTuition(context.Background(), 1, nil)
	require.True(t, apperror.Is(err, apperror.KindTimeout))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLedgerServiceEndToEnd(t *testing.T) {
	db := setupLedgerDB(t)
	fx := newLedgerFixture(t, db)
	repos, uow := newTestRepositories(db)
	validate := testValidator()

	facade := NewLedgerService(LedgerComponents{
		Tuition:     NewTuitionService(repos, nil, 1, testLogger()),
		Vouchers:    NewVoucherService(repos, testLogger()),
		CreditNotes: NewCreditNoteService(uow, repository.TxOptions{}, validate, CreditNoteDependencies{}, testLogger()),
		Deletions:   NewStudentDeletionService(uow, cascadeTxOptions(), StudentDeletionDependencies{}, testLogger()),
		Payments:    NewPaymentService(repos, uow, PaymentOptions{}, validate, PaymentDependencies{}, testLogger()),
	}, testLogger())

	year := fx.academicYear(2024)
	student := fx.student("Elisa", nil)
	fx.enroll(student.ID, year)
	tuition := fx.tuitionService()
	ctx := context.Background()

	require.NoError(t, facade.ValidateVoucher(ctx, "BRD-900", nil))
	payment, err := facade.RecordPayment(ctx, dto.PaymentRequest{
		StudentID: student.ID,
		Voucher:   "BRD-900",
		Lines:     []dto.PaymentLineRequest{{ServiceTypeID: tuition.ID, Month: "SETEMBRO-2024"}},
	})
	require.NoError(t, err)
	require.True(t, apperror.Is(facade.ValidateVoucher(ctx, "BRD-900", nil), apperror.KindConflict))
	require.NoError(t, facade.ValidateVoucher(ctx, "BRD-900", &payment.InvoiceID))

	ledger, err := facade.ReconcileTuition(ctx, student.ID, nil)
	require.NoError(t, err)
	require.Equal(t, 10, ledger.PendingCount)

	_, err = facade.ReverseViaCreditNote(ctx, dto.CreditNoteRequest{StudentID: student.ID, InvoiceID: &payment.Lines[0].ID, Designation: "Estorno"})
	require.NoError(t, err)

	ledger, err = facade.ReconcileTuition(ctx, student.ID, nil)
	require.NoError(t, err)
	require.Equal(t, 11, ledger.PendingCount)

	summary, err := facade.DeleteStudentCascade(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), summary.PrimaryPayments)

	_, err = facade.ReconcileTuition(ctx, student.ID, nil)
	require.True(t, apperror.Is(err, apperror.KindNotFound))
}
