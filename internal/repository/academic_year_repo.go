package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/models"
)

// AcademicYearRepository reads academic years.
type AcademicYearRepository interface {
	GetByID(ctx context.Context, id uint) (models.AcademicYear, error)
	Latest(ctx context.Context) (models.AcademicYear, error)
	ListBefore(ctx context.Context, id uint) ([]models.AcademicYear, error)
	Create(ctx context.Context, year *models.AcademicYear) error
}

type academicYearRepository struct {
	db *gorm.DB
}

// NewAcademicYearRepository constructs the academic year repository.
func NewAcademicYearRepository(db *gorm.DB) AcademicYearRepository {
	return &academicYearRepository{db: db}
}

func (r *academicYearRepository) GetByID(ctx context.Context, id uint) (models.AcademicYear, error) {
	var year models.AcademicYear
	if err := r.db.WithContext(ctx).First(&year, id).Error; err != nil {
		return models.AcademicYear{}, err
	}
	return year, nil
}

// Latest returns the most recently created academic year.
func (r *academicYearRepository) Latest(ctx context.Context) (models.AcademicYear, error) {
	var year models.AcademicYear
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		First(&year).Error
	if err != nil {
		return models.AcademicYear{}, err
	}
	return year, nil
}

// ListBefore returns the academic years with an id lower than id, newest first.
func (r *academicYearRepository) ListBefore(ctx context.Context, id uint) ([]models.AcademicYear, error) {
	var years []models.AcademicYear
	err := r.db.WithContext(ctx).
		Where("id < ?", id).
		Order("id DESC").
		Find(&years).Error
	return years, err
}

func (r *academicYearRepository) Create(ctx context.Context, year *models.AcademicYear) error {
	return r.db.WithContext(ctx).Create(year).Error
}
