package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/noah-isme/escola-ledger-api/internal/apperror"
	"github.com/noah-isme/escola-ledger-api/internal/calendar"
	"github.com/noah-isme/escola-ledger-api/internal/dto"
	"github.com/noah-isme/escola-ledger-api/internal/models"
	"github.com/noah-isme/escola-ledger-api/internal/repository"
)

// TuitionService reconciles tuition payments against the academic calendar.
type TuitionService interface {
	Reconcile(ctx context.Context, studentID uint, academicYearID *uint) (dto.TuitionLedgerResult, error)
	AggregateHistoricalDebt(ctx context.Context, studentID, currentAcademicYearID uint) ([]dto.DebtRecord, error)
}

type tuitionService struct {
	repos       repository.Repositories
	cache       LedgerCache
	concurrency int
	logger      zerolog.Logger
}

// NewTuitionService constructs the tuition reconciler. concurrency bounds how
// many past academic years are evaluated in parallel.
func NewTuitionService(repos repository.Repositories, cache LedgerCache, concurrency int, logger zerolog.Logger) TuitionService {
	if cache == nil {
		cache = noopLedgerCache{}
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &tuitionService{
		repos:       repos,
		cache:       cache,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "tuition_service").Logger(),
	}
}

// tuitionEntry is a tuition line whose month field decoded cleanly.
type tuitionEntry struct {
	lineID uint
	month  calendar.Month
	year   int
}

// tuitionHistory is every tuition line of a student, decoded once and shared
// by all academic years evaluated in the same request.
type tuitionHistory struct {
	entries []tuitionEntry
	ignored int
}

// yearLedger is the paid/pending split of one academic year.
type yearLedger struct {
	enrolled bool
	paid     []calendar.Month
	details  []string
	pending  []calendar.Month
}

func (s *tuitionService) Reconcile(ctx context.Context, studentID uint, academicYearID *uint) (dto.TuitionLedgerResult, error) {
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return dto.TuitionLedgerResult{}, err
	}

	year, err := s.resolveYear(ctx, academicYearID)
	if err != nil {
		return dto.TuitionLedgerResult{}, err
	}

	if cached, ok := s.cache.GetTuition(ctx, studentID, year.ID); ok {
		return cached, nil
	}
	generation := s.cache.Generation(ctx, studentID)

	history, err := s.loadHistory(ctx, studentID)
	if err != nil {
		return dto.TuitionLedgerResult{}, err
	}
	enrollment, err := s.repos.Enrollments.FindByStudent(ctx, studentID)
	if err != nil {
		return dto.TuitionLedgerResult{}, err
	}

	ledger, err := s.evaluateYear(ctx, enrollment, year, history)
	if err != nil {
		return dto.TuitionLedgerResult{}, err
	}

	result := buildTuitionResult(studentID, year, ledger, history.ignored)
	s.cache.SetTuition(ctx, result, generation)
	return result, nil
}

func (s *tuitionService) AggregateHistoricalDebt(ctx context.Context, studentID, currentAcademicYearID uint) ([]dto.DebtRecord, error) {
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return nil, err
	}
	current, err := s.resolveYear(ctx, &currentAcademicYearID)
	if err != nil {
		return nil, err
	}

	years, err := s.repos.AcademicYears.ListBefore(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	if len(years) == 0 {
		return []dto.DebtRecord{}, nil
	}

	history, err := s.loadHistory(ctx, studentID)
	if err != nil {
		return nil, err
	}
	enrollment, err := s.repos.Enrollments.FindByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	ledgers := make([]yearLedger, len(years))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for idx := range years {
		idx := idx
		group.Go(func() error {
			ledger, err := s.evaluateYear(groupCtx, enrollment, years[idx], history)
			if err != nil {
				return fmt.Errorf("evaluate academic year %d: %w", years[idx].ID, err)
			}
			ledgers[idx] = ledger
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	records := make([]dto.DebtRecord, 0, len(years))
	for idx, year := range years {
		ledger := ledgers[idx]
		if !ledger.enrolled {
			s.logger.Debug().Uint("student_id", studentID).Uint("academic_year_id", year.ID).Msg("skipping year without attendance")
			continue
		}
		if len(ledger.pending) == 0 {
			continue
		}
		records = append(records, dto.DebtRecord{
			AcademicYear:  dto.NewAcademicYearSummary(year),
			PendingMonths: monthNames(ledger.pending),
			PaidMonths:    monthNames(ledger.paid),
			TotalPending:  len(ledger.pending),
		})
	}

	return records, nil
}

func (s *tuitionService) ensureStudent(ctx context.Context, studentID uint) error {
	if _, err := s.repos.Students.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.StudentNotFound(studentID)
		}
		return err
	}
	return nil
}

func (s *tuitionService) resolveYear(ctx context.Context, academicYearID *uint) (models.AcademicYear, error) {
	var (
		year models.AcademicYear
		err  error
	)
	if academicYearID == nil {
		year, err = s.repos.AcademicYears.Latest(ctx)
	} else {
		year, err = s.repos.AcademicYears.GetByID(ctx, *academicYearID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AcademicYear{}, apperror.AcademicYearNotFound(academicYearID)
		}
		return models.AcademicYear{}, err
	}
	return year, nil
}

func (s *tuitionService) loadHistory(ctx context.Context, studentID uint) (tuitionHistory, error) {
	lines, err := s.repos.Payments.ListTuitionLineItems(ctx, studentID)
	if err != nil {
		return tuitionHistory{}, err
	}

	history := tuitionHistory{entries: make([]tuitionEntry, 0, len(lines))}
	for _, line := range lines {
		month, year, err := calendar.ParsePaymentMonth(line.Month, line.Year)
		if err != nil {
			history.ignored++
			s.logger.Warn().
				Uint("student_id", studentID).
				Uint("payment_detail_id", line.ID).
				Str("month", line.Month).
				Msg("ignoring tuition line with malformed month")
			continue
		}
		history.entries = append(history.entries, tuitionEntry{lineID: line.ID, month: month, year: year})
	}
	return history, nil
}

// evaluateYear splits the academic months into paid and pending. A year counts
// as attended when the enrollment was confirmed for it or, for records that
// predate confirmations, when at least one tuition line falls inside it.
func (s *tuitionService) evaluateYear(ctx context.Context, enrollment *models.Enrollment, year models.AcademicYear, history tuitionHistory) (yearLedger, error) {
	span := year.Span()

	paidSet := make(map[calendar.Month]struct{})
	detailSet := make(map[string]tuitionEntry)
	for _, entry := range history.entries {
		if !calendar.Consistent(entry.month, entry.year, span) {
			continue
		}
		paidSet[entry.month] = struct{}{}
		detailSet[calendar.Label(entry.month, entry.year)] = entry
	}

	confirmed := false
	if enrollment != nil {
		exists, err := s.repos.Confirmations.Exists(ctx, enrollment.ID, year.ID)
		if err != nil {
			return yearLedger{}, err
		}
		confirmed = exists
	}
	if !confirmed && len(paidSet) == 0 {
		return yearLedger{}, nil
	}

	ledger := yearLedger{enrolled: true}
	for _, month := range calendar.AcademicMonths() {
		if _, ok := paidSet[month]; ok {
			ledger.paid = append(ledger.paid, month)
		} else {
			ledger.pending = append(ledger.pending, month)
		}
	}

	details := make([]tuitionEntry, 0, len(detailSet))
	for _, entry := range detailSet {
		details = append(details, entry)
	}
	position := monthPositions()
	sort.Slice(details, func(i, j int) bool {
		if details[i].month != details[j].month {
			return position[details[i].month] < position[details[j].month]
		}
		return details[i].year < details[j].year
	})
	for _, entry := range details {
		ledger.details = append(ledger.details, calendar.Label(entry.month, entry.year))
	}

	return ledger, nil
}

func buildTuitionResult(studentID uint, year models.AcademicYear, ledger yearLedger, ignored int) dto.TuitionLedgerResult {
	result := dto.TuitionLedgerResult{
		StudentID:      studentID,
		AcademicYear:   dto.NewAcademicYearSummary(year),
		Enrolled:       ledger.enrolled,
		PaidMonths:     monthNames(ledger.paid),
		PaidDetails:    append([]string{}, ledger.details...),
		PendingMonths:  monthNames(ledger.pending),
		IgnoredEntries: ignored,
	}

	if !ledger.enrolled {
		result.Message = fmt.Sprintf("student %d has no confirmation or tuition payment in academic year %s", studentID, year.DisplayLabel())
		return result
	}

	result.TotalMonths = calendar.MonthsPerYear
	result.PaidCount = len(ledger.paid)
	result.PendingCount = len(ledger.pending)
	result.HasOutstanding = result.PendingCount > 0
	if result.HasOutstanding {
		next := string(ledger.pending[0])
		result.NextDueMonth = &next
	}
	return result
}

func monthNames(months []calendar.Month) []string {
	names := make([]string, 0, len(months))
	for _, month := range months {
		names = append(names, string(month))
	}
	return names
}

func monthPositions() map[calendar.Month]int {
	months := calendar.AcademicMonths()
	positions := make(map[calendar.Month]int, len(months))
	for idx, month := range months {
		positions[month] = idx
	}
	return positions
}
