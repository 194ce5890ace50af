package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/escola-ledger-api/internal/dto"
	"github.com/noah-isme/escola-ledger-api/internal/models"
	"github.com/noah-isme/escola-ledger-api/internal/repository"
)

type memoryActivityRepo struct {
	entries []models.ActivityLog
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func TestActivityServiceRecordMasksPhone(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    1,
		ActorRole:  "Admin",
		Action:     "Guardian.Deactivated",
		EntityType: "guardian",
		EntityID:   ptrUint(5),
		Metadata: map[string]interface{}{
			"guardian_phone": "+244 900 000 000",
			"field":          "active",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", entry.Metadata["guardian_phone"])
	require.Equal(t, "active", entry.Metadata["field"])
	require.Equal(t, "guardian.deactivated", entry.Action)
	require.Equal(t, "admin", entry.ActorRole)
}

func TestRecordActivityUsesActorFromContext(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())

	ctx := WithActor(context.Background(), ActivityActor{ID: 9, Role: "Admin"})
	ctx = WithCorrelationID(ctx, "corr-123")
	recordActivity(ctx, svc, testLogger(), models.ActionPaymentRecorded, "payment", ptrUint(3), nil)

	require.Len(t, repo.entries, 1)
	require.Equal(t, uint(9), repo.entries[0].ActorID)
	require.Equal(t, "corr-123", repo.entries[0].CorrelationID)

	recordActivity(context.Background(), svc, testLogger(), models.ActionPaymentRecorded, "payment", nil, nil)
	require.Equal(t, "system", repo.entries[1].ActorRole)

	list, err := svc.List(context.Background(), dto.ActivityListRequest{Page: 1, PageSize: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), list.Pagination.TotalItems)
	require.Equal(t, 2, list.Pagination.TotalPages)
}

func ptrUint(v uint) *uint {
	return &v
}
