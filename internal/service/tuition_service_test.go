package service

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/escola-ledger-api/internal/apperror"
	"github.com/noah-isme/escola-ledger-api/internal/calendar"
)

func TestTuitionReconcileConcreteScenario(t *testing.T) {
	db := setupLedgerDB(t)
	fx := newLedgerFixture(t, db)
	repos, _ := newTestRepositories(db)

	year := fx.academicYear(2024)
	student := fx.student("Ana Silva", nil)
	fx.enroll(student.ID, year)
	tuition := fx.tuitionService()
	fx.line(student.ID, nil, tuition.ID, "B-1", "SETEMBRO-2024", nil, 50)
	fx.line(student.ID, nil, tuition.ID, "B-2", "OUTUBRO-2024", nil, 50)
	fx.line(student.ID, nil, tuition.ID, "B-3", "JANEIRO-2025", nil, 50)

	svc := NewTuitionService(repos, nil, 1, testLogger())
	result, err := svc.Reconcile(context.Background(), student.ID, &year.ID)
	require.NoError(t, err)

	require.True(t, result.Enrolled)
	require.Equal(t, []string{"SETEMBRO", "OUTUBRO", "JANEIRO"}, result.PaidMonths)
	require.Equal(t, []string{"NOVEMBRO", "DEZEMBRO", "FEVEREIRO", "MARÇO", "ABRIL", "MAIO", "JUNHO", "JULHO"}, result.PendingMonths)
	require.Equal(t, []string{"SETEMBRO-2024", "OUTUBRO-2024", "JANEIRO-2025"}, result.PaidDetails)
	require.Equal(t, 11, result.TotalMonths)
	require.Equal(t, 3, result.PaidCount)
	require.Equal(t, 8, result.PendingCount)
	require.NotNil(t, result.NextDueMonth)
	require.Equal(t, "NOVEMBRO", *result.NextDueMonth)
	require.True(t, result.HasOutstanding)
}

func TestTuitionReconcileRejectsMismatchedYear(t *testing.T) {
	db := setupLedgerDB(t)
	fx := newLedgerFixture(t, db)
	repos, _ := newTestRepositories(db)

	year2023 := fx.academicYear(2023)
	year2024 := fx.academicYear(2024)
	student := fx.student("Bruno Costa", nil)
	fx.enroll(student.ID, year2023, year2024)
	tuition := fx.tuitionService()
	fx.line(student.ID, nil, tuition.ID, "B-1", "SETEMBRO", intPtr(2023), 50)
	fx.line(student.ID, nil, tuition.ID, "B-2", "JANEIRO", intPtr(2023), 50)

	svc := NewTuitionService(repos, nil, 1, testLogger())

	result, err := svc.Reconcile(context.Background(), student.ID, &year2024.ID)
	require.NoError(t, err)
	require.Empty(t, result.PaidMonths)
	require.Equal(t, 11, result.PendingCount)

	result, err = svc.Reconcile(context.Background(), student.ID, &year2023.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"SETEMBRO"}, result.PaidMonths)
	require.Equal(t, []string{"SETEMBRO-2023"}, result.PaidDetails)
}

func TestTuitionReconcilePartitionIsComplete(t *testing.T) {
	db := setupLedgerDB(t)
	fx := newLedgerFixture(t, db)
	repos, _ := newTestRepositories(db)

	year := fx.academicYear(2024)
	tuition := fx.tuitionService()
	empty := fx.student("Sem Pagamentos", nil)
	fx.enroll(empty.ID, year)
	full := fx.student("Tudo Pago", nil)
	fx.enroll(full.ID, year)
	for _, month := range calendar.AcademicMonths() {
		calendarYear, err := calendar.ExpectedCalendarYear(month, year.Span())
		require.NoError(t, err)
		fx.line(full.ID, nil, tuition.ID, "", string(month), intPtr(calendarYear), 50)
	}
	// duplicate payment of one month must not change the split
	fx.line(full.ID, nil, tuition.ID, "", "setembro-2024", nil, 50)

	svc := NewTuitionService(repos, nil, 1, testLogger())
	canonical := monthNames(calendar.AcademicMonths())

	for _, studentID := range []uint{empty.ID, full.ID} {
		result, err := svc.Reconcile(context.Background(), studentID, &year.ID)
		require.NoError(t, err)

		union := append(append([]string{}, result.PaidMonths...), result.PendingMonths...)
		require.ElementsMatch(t, canonical, union)
		require.Len(t, union, calendar.MonthsPerYear)
		require.Equal(t, calendar.MonthsPerYear, result.PaidCount+result.PendingCount)
	}

	result, err := svc.Reconcile(context.Background(), empty.ID, &year.ID)
	require.NoError(t, err)
	require.Equal(t, canonical, result.PendingMonths)
	require.Equal(t, "SETEMBRO", *result.NextDueMonth)

	result, err = svc.Reconcile(context.Background(), full.ID, &year.ID)
	require.NoError(t, err)
	require.Empty(t, result.PendingMonths)
	require.Nil(t, result.NextDueMonth)
	require.False(t, result.HasOutstanding)
}

func TestTuitionReconcileNotEnrolledAndFallback(t *testing.T) {
	db := setupLedgerDB(t)
	fx := newLedgerFixture(t, db)
	repos, _ := newTestRepositories(db)

	year := fx.academicYear(2024)
	tuition := fx.tuitionService()
	absent := fx.student("Nunca Veio", nil)
	legacy := fx.student("Sem Confirmacao", nil)
	fx.line(legacy.ID, nil, tuition.ID, "", "MARCO-2025", nil, 50)

	svc := NewTuitionService(repos, nil, 1, testLogger())

	result, err := svc.Reconcile(context.Background(), absent.ID, &year.ID)
	require.NoError(t, err)
	require.False(t, result.Enrolled)
	require.Empty(t, result.PaidMonths)
	require.Empty(t, result.PendingMonths)
	require.Zero(t, result.TotalMonths)
	require.Zero(t, result.PendingCount)
	require.Nil(t, result.NextDueMonth)
	require.NotEmpty(t, result.Message)

	result, err = svc.Reconcile(context.Background(), legacy.ID, &year.ID)
	require.NoError(t, err)
	require.True(t, result.Enrolled)
	require.Equal(t, []string{"MARÇO"}, result.PaidMonths)
	require.Equal(t, 10, result.PendingCount)
}

func TestTuitionReconcileIgnoresOtherServicesAndMalformedRows(t *testing.T) {
	db := setupLedgerDB(t)
	fx := newLedgerFixture(t, db)
	repos, _ := newTestRepositories(db)

	year := fx.academicYear(2024)
	student := fx.student("Carla Dias", nil)
	fx.enroll(student.ID, year)
	tuition := fx.tuitionService()
	material := fx.otherService("Propina de Material")
	fx.line(student.ID, nil, material.ID, "", "OUTUBRO-2024", nil, 20)
	fx.line(student.ID, nil, tuition.ID, "", "OUTUBRO", nil, 50)
	fx.line(student.ID, nil, tuition.ID, "", "NOVEMBRO-2024", nil, 50)

	svc := NewTuitionService(repos, nil, 1, testLogger())
	result, err := svc.Reconcile(context.Background(), student.ID, &year.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"NOVEMBRO"}, result.PaidMonths)
	require.Equal(t, 1, result.IgnoredEntries)
}

func TestTuitionReconcileDefaultsToLatestYearAndReportsMissing(t *testing.T) {
	db := setupLedgerDB(t)
	fx := newLedgerFixture(t, db)
	repos, _ := newTestRepositories(db)
	svc := NewTuitionService(repos, nil, 1, testLogger())

	student := fx.student("Dario Reis", nil)

	_, err := svc.Reconcile(context.Background(), student.ID, nil)
	require.True(t, apperror.Is(err, apperror.KindNotFound))

	missing := uint(99)
	_, err = svc.Reconcile(context.Background(), student.ID, &missing)
	require.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = svc.Reconcile(context.Background(), 404, nil)
	require.True(t, apperror.Is(err, apperror.KindNotFound))

	fx.academicYear(2023)
	latest := fx.academicYear(2024)
	result, err := svc.Reconcile(context.Background(), student.ID, nil)
	require.NoError(t, err)
	require.Equal(t, latest.ID, result.AcademicYear.ID)
	require.Equal(t, "2024/2025", result.AcademicYear.Label)
}

func TestTuitionReconcileUsesCacheUntilInvalidated(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()
	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	db := setupLedgerDB(t)
	fx := newLedgerFixture(t, db)
	repos, _ := newTestRepositories(db)

	year := fx.academicYear(2024)
	student := fx.student("Eva Lima", nil)
	fx.enroll(student.ID, year)
	tuition := fx.tuitionService()

	cache := NewLedgerCache(redisClient, 0, testLogger())
	svc := NewTuitionService(repos, cache, 1, testLogger())

	first, err := svc.Reconcile(context.Background(), student.ID, &year.ID)
	require.NoError(t, err)
	require.Equal(t, 11, first.PendingCount)
	require.True(t, mini.Exists(tuitionCacheKey(student.ID, year.ID)))

	fx.line(student.ID, nil, tuition.ID, "", "SETEMBRO-2024", nil, 50)

	cached, err := svc.Reconcile(context.Background(), student.ID, &year.ID)
	require.NoError(t, err)
	require.Equal(t, 11, cached.PendingCount)

	cache.InvalidateStudent(context.Background(), student.ID)
	require.False(t, mini.Exists(tuitionCacheKey(student.ID, year.ID)))

	fresh, err := svc.Reconcile(context.Background(), student.ID, &year.ID)
	require.NoError(t, err)
	require.Equal(t, 10, fresh.PendingCount)
}

func TestAggregateHistoricalDebtSkipsYearsWithoutAttendance(t *testing.T) {
	db := setupLedgerDB(t)
	fx := newLedgerFixture(t, db)
	repos, _ := newTestRepositories(db)

	fx.academicYear(2021)
	year2022 := fx.academicYear(2022)
	year2023 := fx.academicYear(2023)
	current := fx.academicYear(2024)
	student := fx.student("Filipe Mota", nil)
	fx.enroll(student.ID, year2022, current)
	tuition := fx.tuitionService()
	for _, month := range calendar.AcademicMonths() {
		calendarYear, err := calendar.ExpectedCalendarYear(month, year2022.Span())
		require.NoError(t, err)
		fx.line(student.ID, nil, tuition.ID, "", string(month), intPtr(calendarYear), 50)
	}
	// unconfirmed year attended according to a legacy payment
	fx.line(student.ID, nil, tuition.ID, "", "FEVEREIRO-2024", nil, 50)

	svc := NewTuitionService(repos, nil, 2, testLogger())
	records, err := svc.AggregateHistoricalDebt(context.Background(), student.ID, current.ID)
	require.NoError(t, err)

	require.Len(t, records, 1)
	require.Equal(t, year2023.ID, records[0].AcademicYear.ID)
	require.Equal(t, []string{"FEVEREIRO"}, records[0].PaidMonths)
	require.Equal(t, 10, records[0].TotalPending)
	require.Len(t, records[0].PendingMonths, 10)

	_, err = svc.AggregateHistoricalDebt(context.Background(), student.ID, 999)
	require.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestAggregateHistoricalDebtOrdersYearsDescending(t *testing.T) {
	db := setupLedgerDB(t)
	fx := newLedgerFixture(t, db)
	repos, _ := newTestRepositories(db)

	year2022 := fx.academicYear(2022)
	year2023 := fx.academicYear(2023)
	current := fx.academicYear(2024)
	student := fx.student("Gil Nunes", nil)
	fx.enroll(student.ID, year2022, year2023, current)

	svc := NewTuitionService(repos, nil, 2, testLogger())
	records, err := svc.AggregateHistoricalDebt(context.Background(), student.ID, current.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, year2023.ID, records[0].AcademicYear.ID)
	require.Equal(t, year2022.ID, records[1].AcademicYear.ID)
	require.Equal(t, 11, records[1].TotalPending)
}
