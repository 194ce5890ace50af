package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/apperror"
	"github.com/noah-isme/escola-ledger-api/internal/dto"
	"github.com/noah-isme/escola-ledger-api/internal/models"
	"github.com/noah-isme/escola-ledger-api/internal/repository"
)

// EnrollmentService registers students in courses and confirms them per academic year.
type EnrollmentService interface {
	Create(ctx context.Context, req dto.EnrollmentRequest) (dto.EnrollmentResponse, error)
	Confirm(ctx context.Context, enrollmentID uint, req dto.ConfirmationRequest) (dto.ConfirmationResponse, error)
}

type enrollmentService struct {
	repos     repository.Repositories
	validator *validator.Validate
	cache     LedgerCache
	activity  ActivityRecorder
	logger    zerolog.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repos repository.Repositories, validate *validator.Validate, cache LedgerCache, activity ActivityRecorder, logger zerolog.Logger) EnrollmentService {
	if cache == nil {
		cache = noopLedgerCache{}
	}
	return &enrollmentService{
		repos:     repos,
		validator: validate,
		cache:     cache,
		activity:  activity,
		logger:    logger.With().Str("component", "enrollment_service").Logger(),
		now:       time.Now,
	}
}

func (s *enrollmentService) Create(ctx context.Context, req dto.EnrollmentRequest) (dto.EnrollmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EnrollmentResponse{}, apperror.Wrap(err, apperror.KindInvalidInput, "invalid enrollment request")
	}

	if _, err := s.repos.Students.GetByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EnrollmentResponse{}, apperror.StudentNotFound(req.StudentID)
		}
		return dto.EnrollmentResponse{}, err
	}

	existing, err := s.repos.Enrollments.FindByStudent(ctx, req.StudentID)
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}
	if existing != nil {
		return dto.EnrollmentResponse{}, apperror.DuplicateEnrollment(req.StudentID)
	}

	enrollment := models.Enrollment{StudentID: req.StudentID, CourseID: req.CourseID}
	if err := s.repos.Enrollments.Create(ctx, &enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.EnrollmentResponse{}, apperror.DuplicateEnrollment(req.StudentID)
		}
		return dto.EnrollmentResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, models.ActionEnrollmentCreated, "enrollment", &enrollment.ID, map[string]interface{}{
		"student_id": enrollment.StudentID,
		"course_id":  enrollment.CourseID,
	})

	return dto.EnrollmentResponse{
		ID:        enrollment.ID,
		StudentID: enrollment.StudentID,
		CourseID:  enrollment.CourseID,
		CreatedAt: enrollment.CreatedAt,
	}, nil
}

func (s *enrollmentService) Confirm(ctx context.Context, enrollmentID uint, req dto.ConfirmationRequest) (dto.ConfirmationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ConfirmationResponse{}, apperror.Wrap(err, apperror.KindInvalidInput, "invalid confirmation request")
	}

	enrollment, err := s.repos.Enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ConfirmationResponse{}, apperror.EnrollmentNotFound(enrollmentID)
		}
		return dto.ConfirmationResponse{}, err
	}

	if _, err := s.repos.AcademicYears.GetByID(ctx, req.AcademicYearID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ConfirmationResponse{}, apperror.AcademicYearNotFound(&req.AcademicYearID)
		}
		return dto.ConfirmationResponse{}, err
	}

	exists, err := s.repos.Confirmations.Exists(ctx, enrollmentID, req.AcademicYearID)
	if err != nil {
		return dto.ConfirmationResponse{}, err
	}
	if exists {
		return dto.ConfirmationResponse{}, apperror.DuplicateConfirmation(enrollmentID, req.AcademicYearID)
	}

	startedAt := s.now().UTC()
	if req.StartedAt != nil && !req.StartedAt.IsZero() {
		startedAt = req.StartedAt.UTC()
	}

	confirmation := models.Confirmation{
		EnrollmentID:   enrollmentID,
		AcademicYearID: req.AcademicYearID,
		ClassName:      strings.TrimSpace(req.ClassName),
		Section:        strings.TrimSpace(req.Section),
		StartedAt:      startedAt,
	}
	if err := s.repos.Confirmations.Create(ctx, &confirmation); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.ConfirmationResponse{}, apperror.DuplicateConfirmation(enrollmentID, req.AcademicYearID)
		}
		return dto.ConfirmationResponse{}, err
	}

	// Attendance changed, so cached "not enrolled" results are stale.
	s.cache.InvalidateStudent(ctx, enrollment.StudentID)

	return dto.ConfirmationResponse{
		ID:             confirmation.ID,
		EnrollmentID:   confirmation.EnrollmentID,
		AcademicYearID: confirmation.AcademicYearID,
		ClassName:      confirmation.ClassName,
		Section:        confirmation.Section,
		StartedAt:      confirmation.StartedAt,
	}, nil
}
