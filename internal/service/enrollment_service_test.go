package service

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/escola-ledger-api/internal/apperror"
	"github.com/noah-isme/escola-ledger-api/internal/dto"
)

func TestEnrollmentServiceUniqueness(t *testing.T) {
	db := setupLedgerDB(t)
	fx := newLedgerFixture(t, db)
	repos, _ := newTestRepositories(db)
	svc := NewEnrollmentService(repos, testValidator(), nil, nil, testLogger())

	student := fx.student("Abel", nil)
	year := fx.academicYear(2024)

	enrollment, err := svc.Create(context.Background(), dto.EnrollmentRequest{StudentID: student.ID, CourseID: 3})
	require.NoError(t, err)
	require.Equal(t, student.ID, enrollment.StudentID)

	_, err = svc.Create(context.Background(), dto.EnrollmentRequest{StudentID: student.ID, CourseID: 4})
	require.True(t, apperror.Is(err, apperror.KindConflict))

	_, err = svc.Create(context.Background(), dto.EnrollmentRequest{StudentID: 999, CourseID: 4})
	require.True(t, apperror.Is(err, apperror.KindNotFound))

	confirmation, err := svc.Confirm(context.Background(), enrollment.ID, dto.ConfirmationRequest{AcademicYearID: year.ID, ClassName: " 8B "})
	require.NoError(t, err)
	require.Equal(t, "8B", confirmation.ClassName)
	require.False(t, confirmation.StartedAt.IsZero())

	_, err = svc.Confirm(context.Background(), enrollment.ID, dto.ConfirmationRequest{AcademicYearID: year.ID, ClassName: "8C"})
	require.True(t, apperror.Is(err, apperror.KindConflict))

	_, err = svc.Confirm(context.Background(), enrollment.ID, dto.ConfirmationRequest{AcademicYearID: 999, ClassName: "8C"})
	require.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = svc.Confirm(context.Background(), 999, dto.ConfirmationRequest{AcademicYearID: year.ID, ClassName: "8C"})
	require.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = svc.Confirm(context.Background(), enrollment.ID, dto.ConfirmationRequest{AcademicYearID: year.ID})
	require.True(t, apperror.Is(err, apperror.KindInvalidInput))
}

func TestConfirmationInvalidatesCachedLedger(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()
	cache := NewLedgerCache(redis.NewClient(&redis.Options{Addr: mini.Addr()}), 0, testLogger())

	db := setupLedgerDB(t)
	fx := newLedgerFixture(t, db)
	repos, _ := newTestRepositories(db)
	tuition := NewTuitionService(repos, cache, 1, testLogger())
	enrollments := NewEnrollmentService(repos, testValidator(), cache, nil, testLogger())

	student := fx.student("Berta", nil)
	year := fx.academicYear(2024)

	before, err := tuition.Reconcile(context.Background(), student.ID, &year.ID)
	require.NoError(t, err)
	require.False(t, before.Enrolled)

	enrollment, err := enrollments.Create(context.Background(), dto.EnrollmentRequest{StudentID: student.ID, CourseID: 1})
	require.NoError(t, err)
	_, err = enrollments.Confirm(context.Background(), enrollment.ID, dto.ConfirmationRequest{AcademicYearID: year.ID, ClassName: "5A"})
	require.NoError(t, err)

	after, err := tuition.Reconcile(context.Background(), student.ID, &year.ID)
	require.NoError(t, err)
	require.True(t, after.Enrolled)
	require.Equal(t, 11, after.PendingCount)
}
