package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/models"
)

// StudentRecordRepository handles the per-student rows with no ledger logic
// of their own: service assignments and transfers.
type StudentRecordRepository interface {
	DeleteServiceAssignments(ctx context.Context, studentID uint) (int64, error)
	DeleteTransfers(ctx context.Context, studentID uint) (int64, error)
}

type studentRecordRepository struct {
	db *gorm.DB
}

// NewStudentRecordRepository constructs the repository.
func NewStudentRecordRepository(db *gorm.DB) StudentRecordRepository {
	return &studentRecordRepository{db: db}
}

func (r *studentRecordRepository) DeleteServiceAssignments(ctx context.Context, studentID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("student_id = ?", studentID).Delete(&models.ServiceAssignment{})
	return result.RowsAffected, result.Error
}

func (r *studentRecordRepository) DeleteTransfers(ctx context.Context, studentID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("student_id = ?", studentID).Delete(&models.Transfer{})
	return result.RowsAffected, result.Error
}
