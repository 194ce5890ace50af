package models

import (
	"time"

	"github.com/noah-isme/escola-ledger-api/internal/calendar"
)

// AcademicYear spans SETEMBRO of StartYear to JULHO of EndYear.
type AcademicYear struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StartYear int       `gorm:"not null" json:"start_year"`
	EndYear   int       `gorm:"not null" json:"end_year"`
	Label     string    `gorm:"size:16" json:"label"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Span returns the calendar years the academic year covers.
func (y AcademicYear) Span() calendar.Year {
	return calendar.Year{Start: y.StartYear, End: y.EndYear}
}

// DisplayLabel returns the stored label or "start/end" when none was set.
func (y AcademicYear) DisplayLabel() string {
	if y.Label != "" {
		return y.Label
	}
	return y.Span().String()
}
