package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/models"
)

// EnrollmentRepository persists enrollments.
type EnrollmentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Enrollment, error)
	FindByStudent(ctx context.Context, studentID uint) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id uint) (int64, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository constructs the enrollment repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) GetByID(ctx context.Context, id uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.db.WithContext(ctx).First(&enrollment, id).Error; err != nil {
		return models.Enrollment{}, err
	}
	return enrollment, nil
}

// FindByStudent returns nil when the student has no enrollment.
func (r *enrollmentRepository) FindByStudent(ctx context.Context, studentID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := r.db.WithContext(ctx).Where("student_id = ?", studentID).First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	return translateInsertError(r.db.WithContext(ctx).Create(enrollment).Error)
}

func (r *enrollmentRepository) Delete(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Enrollment{}, id)
	return result.RowsAffected, result.Error
}

// ConfirmationRepository persists per-year enrollment confirmations.
type ConfirmationRepository interface {
	Exists(ctx context.Context, enrollmentID, academicYearID uint) (bool, error)
	Create(ctx context.Context, confirmation *models.Confirmation) error
	DeleteByEnrollment(ctx context.Context, enrollmentID uint) (int64, error)
}

type confirmationRepository struct {
	db *gorm.DB
}

// NewConfirmationRepository constructs the confirmation repository.
func NewConfirmationRepository(db *gorm.DB) ConfirmationRepository {
	return &confirmationRepository{db: db}
}

func (r *confirmationRepository) Exists(ctx context.Context, enrollmentID, academicYearID uint) (bool, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Confirmation{}).
		Where("enrollment_id = ? AND academic_year_id = ?", enrollmentID, academicYearID).
		Count(&total).Error
	return total > 0, err
}

func (r *confirmationRepository) Create(ctx context.Context, confirmation *models.Confirmation) error {
	return translateInsertError(r.db.WithContext(ctx).Create(confirmation).Error)
}

func (r *confirmationRepository) DeleteByEnrollment(ctx context.Context, enrollmentID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("enrollment_id = ?", enrollmentID).Delete(&models.Confirmation{})
	return result.RowsAffected, result.Error
}
