package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/config"
	"github.com/noah-isme/escola-ledger-api/internal/handler"
	"github.com/noah-isme/escola-ledger-api/internal/middleware"
	"github.com/noah-isme/escola-ledger-api/internal/models"
	"github.com/noah-isme/escola-ledger-api/internal/repository"
	"github.com/noah-isme/escola-ledger-api/internal/router"
	"github.com/noah-isme/escola-ledger-api/internal/service"
)

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data"`
	Meta    map[string]interface{} `json:"meta"`
	Details map[string]interface{} `json:"details"`
}

type ledgerAPI struct {
	t   *testing.T
	app *fiber.App
	db  *gorm.DB
}

// newLedgerAPI wires the full HTTP stack over a private in-memory database.
// Requests authenticate through the X-Test-Role header.
func newLedgerAPI(t *testing.T) *ledgerAPI {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.LedgerModels()...))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	logger := zerolog.Nop()
	validate := validator.New(validator.WithRequiredStructEnabled())
	repos := repository.NewRepositories(db)
	uow := repository.NewUnitOfWork(db)
	txOptions := repository.TxOptions{MaxWait: 5 * time.Second, Timeout: 5 * time.Second}
	cache := service.NewLedgerCache(nil, 0, logger)
	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)

	ledger := service.NewLedgerService(service.LedgerComponents{
		Tuition:  service.NewTuitionService(repos, cache, 2, logger),
		Vouchers: service.NewVoucherService(repos, logger),
		CreditNotes: service.NewCreditNoteService(uow, txOptions, validate, service.CreditNoteDependencies{
			Cache:    cache,
			Activity: activity,
		}, logger),
		Deletions: service.NewStudentDeletionService(uow, txOptions, service.StudentDeletionDependencies{
			Cache:    cache,
			Activity: activity,
		}, logger),
		Payments: service.NewPaymentService(repos, uow, service.PaymentOptions{Tx: txOptions}, validate, service.PaymentDependencies{
			Cache:    cache,
			Activity: activity,
		}, logger),
	}, logger)

	app := fiber.New()
	app.Use(middleware.CorrelationID())
	router.Register(app, config.Config{AppName: "escola-test", AppEnv: "test"}, router.Dependencies{
		LedgerHandler:     handler.NewLedgerHandler(ledger, logger),
		PaymentHandler:    handler.NewPaymentHandler(ledger, logger),
		CreditNoteHandler: handler.NewCreditNoteHandler(ledger, logger),
		EnrollmentHandler: handler.NewEnrollmentHandler(service.NewEnrollmentService(repos, validate, cache, activity, logger), logger),
		GuardianHandler:   handler.NewGuardianHandler(service.NewGuardianService(uow, activity, logger), logger),
		ActivityHandler:   handler.NewAdminActivityHandler(activity, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			role := c.Get("X-Test-Role")
			if role == "" {
				return fiber.ErrUnauthorized
			}
			c.Locals("user_id", uint(1))
			c.Locals("user_role", role)
			return c.Next()
		},
	})

	return &ledgerAPI{t: t, app: app, db: db}
}

func (a *ledgerAPI) create(value interface{}) {
	a.t.Helper()
	require.NoError(a.t, a.db.Create(value).Error)
}

func (a *ledgerAPI) do(method, path, role string, body interface{}) (int, envelope) {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var payload envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(a.t, json.Unmarshal(raw, &payload))
	}
	return resp.StatusCode, payload
}

type seededLedger struct {
	guardian models.Guardian
	student  models.Student
	year     models.AcademicYear
	tuition  models.ServiceType
}

func (a *ledgerAPI) seed() seededLedger {
	guardian := models.Guardian{Name: "Maria", Active: true}
	a.create(&guardian)
	student := models.Student{Name: "Ana", Balance: decimal.NewFromInt(500), GuardianID: &guardian.ID}
	a.create(&student)
	year := models.AcademicYear{StartYear: 2024, EndYear: 2025, CreatedAt: time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC)}
	a.create(&year)
	enrollment := models.Enrollment{StudentID: student.ID, CourseID: 3}
	a.create(&enrollment)
	a.create(&models.Confirmation{EnrollmentID: enrollment.ID, AcademicYearID: year.ID, ClassName: "8B", StartedAt: time.Date(2024, time.September, 2, 0, 0, 0, 0, time.UTC)})
	tuition := models.ServiceType{Designation: "Propina", Category: models.ServiceCategoryTuition, Price: decimal.NewFromInt(40)}
	a.create(&tuition)
	return seededLedger{guardian: guardian, student: student, year: year, tuition: tuition}
}

func TestLedgerAPIRequiresAuthentication(t *testing.T) {
	api := newLedgerAPI(t)

	status, _ := api.do(http.MethodGet, "/api/v1/students/1/tuition", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, status)

	status, payload := api.do(http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.True(t, payload.Success)
}

func TestLedgerAPIPaymentThenTuition(t *testing.T) {
	api := newLedgerAPI(t)
	seed := api.seed()

	paymentBody := map[string]interface{}{
		"student_id": seed.student.ID,
		"voucher":    "BRD-77",
		"lines": []map[string]interface{}{
			{"service_type_id": seed.tuition.ID, "month": "SETEMBRO-2024"},
			{"service_type_id": seed.tuition.ID, "month": "outubro", "year": 2024},
		},
	}
	status, payload := api.do(http.MethodPost, "/api/v1/payments", "cashier", paymentBody)
	require.Equal(t, fiber.StatusCreated, status, payload.Message)

	var payment struct {
		InvoiceID uint            `json:"invoice_id"`
		Total     decimal.Decimal `json:"total"`
	}
	require.NoError(t, json.Unmarshal(payload.Data, &payment))
	require.NotZero(t, payment.InvoiceID)
	require.True(t, decimal.NewFromInt(80).Equal(payment.Total))

	path := fmt.Sprintf("/api/v1/students/%d/tuition?academic_year_id=%d", seed.student.ID, seed.year.ID)
	status, payload = api.do(http.MethodGet, path, "cashier", nil)
	require.Equal(t, fiber.StatusOK, status)

	var ledger struct {
		Enrolled     bool     `json:"enrolled"`
		PaidMonths   []string `json:"paid_months"`
		PendingCount int      `json:"pending_count"`
	}
	require.NoError(t, json.Unmarshal(payload.Data, &ledger))
	require.True(t, ledger.Enrolled)
	require.Equal(t, []string{"SETEMBRO", "OUTUBRO"}, ledger.PaidMonths)
	require.Equal(t, 9, ledger.PendingCount)

	status, payload = api.do(http.MethodPost, "/api/v1/payments", "cashier", paymentBody)
	require.Equal(t, fiber.StatusConflict, status)
	require.False(t, payload.Success)
	require.Equal(t, "BRD-77", payload.Details["voucher"])
	require.Equal(t, "Ana", payload.Details["student_name"])

	status, _ = api.do(http.MethodGet, "/api/v1/payments/vouchers/BRD-77/validate", "cashier", nil)
	require.Equal(t, fiber.StatusConflict, status)

	status, _ = api.do(http.MethodGet, fmt.Sprintf("/api/v1/payments/vouchers/BRD-77/validate?exclude_invoice_id=%d", payment.InvoiceID), "cashier", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, payload = api.do(http.MethodGet, "/api/v1/payments/vouchers/BRD-NEW/validate", "cashier", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "voucher available", payload.Message)
}

func TestLedgerAPITuitionErrors(t *testing.T) {
	api := newLedgerAPI(t)
	seed := api.seed()

	status, payload := api.do(http.MethodGet, "/api/v1/students/999/tuition", "cashier", nil)
	require.Equal(t, fiber.StatusNotFound, status)
	require.Equal(t, "student 999 not found", payload.Message)

	status, _ = api.do(http.MethodGet, "/api/v1/students/abc/tuition", "cashier", nil)
	require.Equal(t, fiber.StatusBadRequest, status)

	status, payload = api.do(http.MethodGet, fmt.Sprintf("/api/v1/students/%d/debts", seed.student.ID), "cashier", nil)
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "current_academic_year_id", payload.Details["field"])

	status, payload = api.do(http.MethodGet, fmt.Sprintf("/api/v1/students/%d/debts?current_academic_year_id=%d", seed.student.ID, seed.year.ID), "cashier", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, float64(0), payload.Meta["years_in_debt"])
}

func TestLedgerAPICreditNoteIsAdminOnly(t *testing.T) {
	api := newLedgerAPI(t)
	seed := api.seed()

	invoice := models.PrimaryPayment{StudentID: seed.student.ID, Voucher: "BRD-9", Total: decimal.NewFromInt(40), AmountDelivered: decimal.NewFromInt(40), PaidAt: time.Now().UTC()}
	api.create(&invoice)

	body := map[string]interface{}{
		"student_id":  seed.student.ID,
		"invoice_id":  invoice.ID,
		"designation": "Estorno <b>propina</b>",
	}
	status, _ := api.do(http.MethodPost, "/api/v1/credit-notes", "cashier", body)
	require.Equal(t, fiber.StatusForbidden, status)

	status, payload := api.do(http.MethodPost, "/api/v1/credit-notes", "admin", body)
	require.Equal(t, fiber.StatusCreated, status, payload.Message)

	var note struct {
		Designation    string          `json:"designation"`
		ReversedAmount decimal.Decimal `json:"reversed_amount"`
	}
	require.NoError(t, json.Unmarshal(payload.Data, &note))
	require.Equal(t, "Estorno propina", note.Designation)
	require.True(t, decimal.NewFromInt(40).Equal(note.ReversedAmount))

	status, _ = api.do(http.MethodPost, "/api/v1/credit-notes", "admin", body)
	require.Equal(t, fiber.StatusConflict, status)

	status, payload = api.do(http.MethodGet, "/api/v1/activities?entity_type=credit_note", "admin", nil)
	require.Equal(t, fiber.StatusOK, status)
	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal(payload.Data, &entries))
	require.Len(t, entries, 1)
	require.Equal(t, "admin", entries[0]["actor_role"])
	require.NotEmpty(t, entries[0]["correlation_id"])
}

func TestLedgerAPIStudentAndGuardianDeletion(t *testing.T) {
	api := newLedgerAPI(t)
	seed := api.seed()
	guardianPath := fmt.Sprintf("/api/v1/guardians/%d", seed.guardian.ID)

	status, payload := api.do(http.MethodDelete, guardianPath, "admin", nil)
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, float64(1), payload.Details["students"])

	studentPath := fmt.Sprintf("/api/v1/students/%d", seed.student.ID)
	status, _ = api.do(http.MethodDelete, studentPath, "cashier", nil)
	require.Equal(t, fiber.StatusForbidden, status)

	status, payload = api.do(http.MethodDelete, studentPath, "admin", nil)
	require.Equal(t, fiber.StatusOK, status, payload.Message)
	var summary struct {
		Confirmations   int64 `json:"confirmations"`
		GuardianRemoved bool  `json:"guardian_removed"`
	}
	require.NoError(t, json.Unmarshal(payload.Data, &summary))
	require.Equal(t, int64(1), summary.Confirmations)
	require.True(t, summary.GuardianRemoved)

	status, _ = api.do(http.MethodGet, studentPath+"/tuition", "admin", nil)
	require.Equal(t, fiber.StatusNotFound, status)

	status, _ = api.do(http.MethodDelete, guardianPath, "admin", nil)
	require.Equal(t, fiber.StatusNotFound, status)
}

func TestLedgerAPIEnrollmentFlow(t *testing.T) {
	api := newLedgerAPI(t)
	student := models.Student{Name: "Rui", Balance: decimal.Zero}
	api.create(&student)
	year := models.AcademicYear{StartYear: 2025, EndYear: 2026}
	api.create(&year)

	status, payload := api.do(http.MethodPost, "/api/v1/enrollments", "cashier", map[string]interface{}{"student_id": student.ID, "course_id": 2})
	require.Equal(t, fiber.StatusCreated, status, payload.Message)
	var enrollment struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(payload.Data, &enrollment))

	status, _ = api.do(http.MethodPost, "/api/v1/enrollments", "cashier", map[string]interface{}{"student_id": student.ID, "course_id": 2})
	require.Equal(t, fiber.StatusConflict, status)

	confirmPath := fmt.Sprintf("/api/v1/enrollments/%d/confirmations", enrollment.ID)
	confirmation := map[string]interface{}{"academic_year_id": year.ID, "class_name": "9C"}
	status, payload = api.do(http.MethodPost, confirmPath, "cashier", confirmation)
	require.Equal(t, fiber.StatusCreated, status, payload.Message)

	status, _ = api.do(http.MethodPost, confirmPath, "cashier", confirmation)
	require.Equal(t, fiber.StatusConflict, status)

	status, payload = api.do(http.MethodPost, "/api/v1/enrollments", "cashier", map[string]interface{}{"course_id": 2})
	require.Equal(t, fiber.StatusBadRequest, status)
	require.False(t, payload.Success)
}
