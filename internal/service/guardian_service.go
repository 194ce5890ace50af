package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/apperror"
	"github.com/noah-isme/escola-ledger-api/internal/dto"
	"github.com/noah-isme/escola-ledger-api/internal/models"
	"github.com/noah-isme/escola-ledger-api/internal/repository"
)

// GuardianService manages guardian lifecycle. A guardian with students can
// only be deactivated.
type GuardianService interface {
	Deactivate(ctx context.Context, id uint) (dto.GuardianResponse, error)
	Delete(ctx context.Context, id uint) error
}

type guardianService struct {
	uow      repository.UnitOfWork
	activity ActivityRecorder
	logger   zerolog.Logger
}

// NewGuardianService constructs the guardian service.
func NewGuardianService(uow repository.UnitOfWork, activity ActivityRecorder, logger zerolog.Logger) GuardianService {
	return &guardianService{
		uow:      uow,
		activity: activity,
		logger:   logger.With().Str("component", "guardian_service").Logger(),
	}
}

func (s *guardianService) Deactivate(ctx context.Context, id uint) (dto.GuardianResponse, error) {
	var guardian models.Guardian
	err := s.uow.Do(ctx, repository.TxOptions{}, func(ctx context.Context, tx repository.Repositories) error {
		if err := tx.Guardians.Deactivate(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.GuardianNotFound(id)
			}
			return err
		}
		var err error
		guardian, err = tx.Guardians.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return dto.GuardianResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, models.ActionGuardianInactive, "guardian", &guardian.ID, nil)
	return dto.GuardianResponse{ID: guardian.ID, Name: guardian.Name, Active: guardian.Active}, nil
}

func (s *guardianService) Delete(ctx context.Context, id uint) error {
	err := s.uow.Do(ctx, repository.TxOptions{}, func(ctx context.Context, tx repository.Repositories) error {
		if _, err := tx.Guardians.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.GuardianNotFound(id)
			}
			return err
		}

		students, err := tx.Students.CountByGuardian(ctx, id)
		if err != nil {
			return err
		}
		if students > 0 {
			return apperror.GuardianHasStudents(id, students)
		}

		_, err = tx.Guardians.Delete(ctx, id)
		return err
	})
	if err != nil {
		return err
	}

	recordActivity(ctx, s.activity, s.logger, models.ActionGuardianDeleted, "guardian", &id, nil)
	return nil
}
