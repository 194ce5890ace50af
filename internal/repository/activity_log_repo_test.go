package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/models"
)

func TestActivityLogRepositoryFiltersAndPages(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:activity_log_repo?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ActivityLog{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	repo := NewActivityLogRepository(db)
	ctx := context.Background()
	base := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	studentID := uint(7)

	entries := []models.ActivityLog{
		{ActorID: 1, ActorRole: "cashier", Action: models.ActionPaymentRecorded, EntityType: "payment", CorrelationID: "req-1", CreatedAt: base},
		{ActorID: 1, ActorRole: "admin", Action: models.ActionStudentDeleted, EntityType: "student", EntityID: &studentID, CorrelationID: "req-2", CreatedAt: base.Add(time.Minute)},
		{ActorID: 2, ActorRole: "admin", Action: models.ActionGuardianDeleted, EntityType: "guardian", CorrelationID: "req-2", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range entries {
		require.NoError(t, repo.Create(ctx, &entries[i]))
	}

	found, total, err := repo.List(ctx, ActivityLogFilter{CorrelationID: "req-2"})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, models.ActionGuardianDeleted, found[0].Action)

	found, total, err = repo.List(ctx, ActivityLogFilter{EntityType: "student", EntityID: &studentID})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, models.ActionStudentDeleted, found[0].Action)

	found, total, err = repo.List(ctx, ActivityLogFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, found, 1)
	require.Equal(t, models.ActionPaymentRecorded, found[0].Action)

	found, total, err = repo.List(ctx, ActivityLogFilter{Action: "missing"})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, found)
}
