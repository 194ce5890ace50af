package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/models"
	"github.com/noah-isme/escola-ledger-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// setupLedgerDB opens a private in-memory database per test so fixtures and
// injected callbacks never leak between tests.
func setupLedgerDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.LedgerModels()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

type ledgerFixture struct {
	t  *testing.T
	db *gorm.DB
}

func newLedgerFixture(t *testing.T, db *gorm.DB) *ledgerFixture {
	return &ledgerFixture{t: t, db: db}
}

func (f *ledgerFixture) create(value interface{}) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(value).Error)
}

func (f *ledgerFixture) guardian(name string) models.Guardian {
	guardian := models.Guardian{Name: name, Active: true}
	f.create(&guardian)
	return guardian
}

func (f *ledgerFixture) student(name string, guardianID *uint) models.Student {
	student := models.Student{Name: name, Balance: decimal.NewFromInt(1000), GuardianID: guardianID}
	f.create(&student)
	return student
}

func (f *ledgerFixture) academicYear(start int) models.AcademicYear {
	year := models.AcademicYear{StartYear: start, EndYear: start + 1, CreatedAt: time.Date(start, time.August, 1, 0, 0, 0, 0, time.UTC)}
	f.create(&year)
	return year
}

func (f *ledgerFixture) enroll(studentID uint, years ...models.AcademicYear) models.Enrollment {
	enrollment := models.Enrollment{StudentID: studentID, CourseID: 1}
	f.create(&enrollment)
	for _, year := range years {
		f.create(&models.Confirmation{EnrollmentID: enrollment.ID, AcademicYearID: year.ID, ClassName: "7A", StartedAt: time.Date(year.StartYear, time.September, 1, 0, 0, 0, 0, time.UTC)})
	}
	return enrollment
}

func (f *ledgerFixture) tuitionService() models.ServiceType {
	serviceType := models.ServiceType{Designation: "Propina", Category: models.ServiceCategoryTuition, Price: decimal.NewFromInt(50)}
	f.create(&serviceType)
	return serviceType
}

func (f *ledgerFixture) otherService(designation string) models.ServiceType {
	serviceType := models.ServiceType{Designation: designation, Category: models.ServiceCategoryOther, Price: decimal.NewFromInt(20)}
	f.create(&serviceType)
	return serviceType
}

func (f *ledgerFixture) invoice(studentID uint, voucher string, total int64) models.PrimaryPayment {
	invoice := models.PrimaryPayment{
		StudentID:       studentID,
		Voucher:         voucher,
		Total:           decimal.NewFromInt(total),
		AmountDelivered: decimal.NewFromInt(total),
		PaidAt:          time.Now().UTC(),
	}
	f.create(&invoice)
	return invoice
}

func (f *ledgerFixture) line(studentID uint, invoiceID *uint, serviceTypeID uint, voucher, month string, year *int, price int64) models.PaymentDetail {
	line := models.PaymentDetail{
		StudentID:        studentID,
		PrimaryPaymentID: invoiceID,
		ServiceTypeID:    serviceTypeID,
		Voucher:          voucher,
		Month:            month,
		Year:             year,
		Price:            decimal.NewFromInt(price),
		GrandTotal:       decimal.NewFromInt(price),
	}
	require.NoError(f.t, f.db.Omit("ServiceType").Create(&line).Error)
	return line
}

func (f *ledgerFixture) count(model interface{}, query string, args ...interface{}) int64 {
	f.t.Helper()
	var total int64
	require.NoError(f.t, f.db.Model(model).Where(query, args...).Count(&total).Error)
	return total
}

func (f *ledgerFixture) balance(studentID uint) decimal.Decimal {
	f.t.Helper()
	var student models.Student
	require.NoError(f.t, f.db.First(&student, studentID).Error)
	return student.Balance
}

func newTestRepositories(db *gorm.DB) (repository.Repositories, repository.UnitOfWork) {
	return repository.NewRepositories(db), repository.NewUnitOfWork(db)
}

func intPtr(v int) *int {
	return &v
}
