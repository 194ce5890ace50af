package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/models"
)

// StudentRepository provides access to student records.
type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	AdjustBalance(ctx context.Context, id uint, delta decimal.Decimal) error
	CountByGuardian(ctx context.Context, guardianID uint) (int64, error)
	Delete(ctx context.Context, id uint) (int64, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

// AdjustBalance adds delta to the stored balance in a single statement so
// concurrent payments and reversals never overwrite each other.
func (r *studentRepository) AdjustBalance(ctx context.Context, id uint, delta decimal.Decimal) error {
	result := r.db.WithContext(ctx).Model(&models.Student{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *studentRepository) CountByGuardian(ctx context.Context, guardianID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Student{}).
		Where("guardian_id = ?", guardianID).
		Count(&total).Error
	return total, err
}

func (r *studentRepository) Delete(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Student{}, id)
	return result.RowsAffected, result.Error
}
