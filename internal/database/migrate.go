package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/models"
	"github.com/noah-isme/escola-ledger-api/internal/repository"
)

// Migrate creates the ledger schema and classifies legacy service types.
func Migrate(ctx context.Context, db *gorm.DB) (int64, error) {
	if err := db.WithContext(ctx).AutoMigrate(models.LedgerModels()...); err != nil {
		return 0, fmt.Errorf("failed to migrate database: %w", err)
	}

	updated, err := repository.NewServiceTypeRepository(db).BackfillCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill service categories: %w", err)
	}

	return updated, nil
}
