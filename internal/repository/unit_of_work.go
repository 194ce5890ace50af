package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/apperror"
)

// TxOptions bounds a transaction. MaxWait limits how long the caller waits for
// a pooled connection, Timeout limits the transaction body.
type TxOptions struct {
	MaxWait   time.Duration
	Timeout   time.Duration
	Isolation sql.IsolationLevel
}

// Repositories groups every repository bound to the same connection or transaction.
type Repositories struct {
	Students       StudentRepository
	Guardians      GuardianRepository
	Enrollments    EnrollmentRepository
	Confirmations  ConfirmationRepository
	AcademicYears  AcademicYearRepository
	ServiceTypes   ServiceTypeRepository
	Payments       PaymentRepository
	Vouchers       VoucherRepository
	CreditNotes    CreditNoteRepository
	StudentRecords StudentRecordRepository
	Activity       ActivityLogRepository
}

// NewRepositories binds all repositories to db.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Students:       NewStudentRepository(db),
		Guardians:      NewGuardianRepository(db),
		Enrollments:    NewEnrollmentRepository(db),
		Confirmations:  NewConfirmationRepository(db),
		AcademicYears:  NewAcademicYearRepository(db),
		ServiceTypes:   NewServiceTypeRepository(db),
		Payments:       NewPaymentRepository(db),
		Vouchers:       NewVoucherRepository(db),
		CreditNotes:    NewCreditNoteRepository(db),
		StudentRecords: NewStudentRecordRepository(db),
		Activity:       NewActivityLogRepository(db),
	}
}

// UnitOfWork runs a function against repositories sharing one transaction.
// Any error returned by fn rolls back every write made through repos.
type UnitOfWork interface {
	Do(ctx context.Context, opts TxOptions, fn func(ctx context.Context, repos Repositories) error) error
}

type gormUnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork constructs a gorm backed unit of work.
func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

func (u *gormUnitOfWork) Do(ctx context.Context, opts TxOptions, fn func(ctx context.Context, repos Repositories) error) error {
	waitCtx, cancelWait := withOptionalTimeout(ctx, opts.MaxWait)
	defer cancelWait()

	var txOptions *sql.TxOptions
	if opts.Isolation != sql.LevelDefault {
		txOptions = &sql.TxOptions{Isolation: opts.Isolation}
	}

	var execCtx context.Context
	err := u.db.WithContext(waitCtx).Connection(func(conn *gorm.DB) error {
		var cancelExec context.CancelFunc
		execCtx, cancelExec = withOptionalTimeout(ctx, opts.Timeout)
		defer cancelExec()

		run := func(tx *gorm.DB) error {
			return fn(execCtx, NewRepositories(tx))
		}
		if txOptions != nil {
			return conn.WithContext(execCtx).Transaction(run, txOptions)
		}
		return conn.WithContext(execCtx).Transaction(run)
	})
	if err == nil {
		return nil
	}

	if apperror.IsDomain(err) {
		return err
	}
	acquireTimedOut := execCtx == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded)
	bodyTimedOut := execCtx != nil && errors.Is(execCtx.Err(), context.DeadlineExceeded)
	if acquireTimedOut || bodyTimedOut || errors.Is(err, context.DeadlineExceeded) {
		return apperror.Wrap(err, apperror.KindTimeout, "transaction exceeded its time budget")
	}
	return err
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
