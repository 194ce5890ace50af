package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/models"
)

// ServiceTypeRepository manages the service catalog.
type ServiceTypeRepository interface {
	GetByIDs(ctx context.Context, ids []uint) (map[uint]models.ServiceType, error)
	Create(ctx context.Context, serviceType *models.ServiceType) error
	BackfillCategories(ctx context.Context) (int64, error)
}

type serviceTypeRepository struct {
	db *gorm.DB
}

// NewServiceTypeRepository constructs the service type repository.
func NewServiceTypeRepository(db *gorm.DB) ServiceTypeRepository {
	return &serviceTypeRepository{db: db}
}

func (r *serviceTypeRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]models.ServiceType, error) {
	result := make(map[uint]models.ServiceType, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var items []models.ServiceType
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		result[item.ID] = item
	}
	return result, nil
}

func (r *serviceTypeRepository) Create(ctx context.Context, serviceType *models.ServiceType) error {
	if serviceType.Category == "" {
		serviceType.Category = models.ServiceCategoryOther
	}
	return r.db.WithContext(ctx).Create(serviceType).Error
}

// BackfillCategories classifies rows created before the category column
// existed, using the legacy designation heuristic. Rows that already carry a
// category are left alone.
func (r *serviceTypeRepository) BackfillCategories(ctx context.Context) (int64, error) {
	var pending []models.ServiceType
	err := r.db.WithContext(ctx).
		Where("category IS NULL OR category = ''").
		Find(&pending).Error
	if err != nil {
		return 0, err
	}

	var updated int64
	for _, item := range pending {
		result := r.db.WithContext(ctx).Model(&models.ServiceType{}).
			Where("id = ?", item.ID).
			Update("category", models.ClassifyDesignation(item.Designation))
		if result.Error != nil {
			return updated, result.Error
		}
		updated += result.RowsAffected
	}
	return updated, nil
}
