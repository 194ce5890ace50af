package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/models"
)

// GuardianRepository persists guardians.
type GuardianRepository interface {
	GetByID(ctx context.Context, id uint) (models.Guardian, error)
	Create(ctx context.Context, guardian *models.Guardian) error
	Deactivate(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) (int64, error)
}

type guardianRepository struct {
	db *gorm.DB
}

// NewGuardianRepository constructs the guardian repository.
func NewGuardianRepository(db *gorm.DB) GuardianRepository {
	return &guardianRepository{db: db}
}

func (r *guardianRepository) GetByID(ctx context.Context, id uint) (models.Guardian, error) {
	var guardian models.Guardian
	if err := r.db.WithContext(ctx).First(&guardian, id).Error; err != nil {
		return models.Guardian{}, err
	}
	return guardian, nil
}

func (r *guardianRepository) Create(ctx context.Context, guardian *models.Guardian) error {
	return r.db.WithContext(ctx).Create(guardian).Error
}

func (r *guardianRepository) Deactivate(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.Guardian{}).
		Where("id = ?", id).
		Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *guardianRepository) Delete(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Guardian{}, id)
	return result.RowsAffected, result.Error
}
