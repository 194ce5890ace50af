// Package calendar maps academic-year vocabulary onto calendar time.
//
// An academic year runs from SETEMBRO of its start year to JULHO of its end
// year. AGOSTO is a holiday month and never belongs to the academic calendar.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/noah-isme/escola-ledger-api/internal/apperror"
)

// Month is an upper-case Portuguese month name as stored in the ledger.
type Month string

const (
	September Month = "SETEMBRO"
	October   Month = "OUTUBRO"
	November  Month = "NOVEMBRO"
	December  Month = "DEZEMBRO"
	January   Month = "JANEIRO"
	February  Month = "FEVEREIRO"
	March     Month = "MARÇO"
	April     Month = "ABRIL"
	May       Month = "MAIO"
	June      Month = "JUNHO"
	July      Month = "JULHO"
	August    Month = "AGOSTO"
)

// MonthsPerYear is the number of academic months in one academic year.
const MonthsPerYear = 11

var academicMonths = [MonthsPerYear]Month{
	September, October, November, December,
	January, February, March, April, May, June, July,
}

// startYearMonths are the months billed against the academic year's start year.
var startYearMonths = map[Month]struct{}{
	September: {}, October: {}, November: {}, December: {},
}

// knownMonths is keyed by the accent-folded spelling.
var knownMonths = map[string]Month{
	"SETEMBRO":  September,
	"OUTUBRO":   October,
	"NOVEMBRO":  November,
	"DEZEMBRO":  December,
	"JANEIRO":   January,
	"FEVEREIRO": February,
	"MARCO":     March,
	"ABRIL":     April,
	"MAIO":      May,
	"JUNHO":     June,
	"JULHO":     July,
	"AGOSTO":    August,
}

// Year identifies the two calendar years an academic year spans.
type Year struct {
	Start int
	End   int
}

// String renders the year as "2024/2025".
func (y Year) String() string {
	return fmt.Sprintf("%d/%d", y.Start, y.End)
}

// AcademicMonths returns the canonical ordered academic months.
func AcademicMonths() []Month {
	months := make([]Month, MonthsPerYear)
	copy(months, academicMonths[:])
	return months
}

// IsAcademic reports whether the month belongs to the academic calendar.
func IsAcademic(month Month) bool {
	for _, m := range academicMonths {
		if m == month {
			return true
		}
	}
	return false
}

// ExpectedCalendarYear returns the calendar year in which the month falls for
// the given academic year.
func ExpectedCalendarYear(month Month, year Year) (int, error) {
	if !IsAcademic(month) {
		return 0, apperror.New(apperror.KindInvalidInput, fmt.Sprintf("%q is not an academic month", month)).
			WithDetail("month", string(month))
	}
	if _, ok := startYearMonths[month]; ok {
		return year.Start, nil
	}
	return year.End, nil
}

// Consistent reports whether a payment tagged (month, calendarYear) settles
// that month of the academic year.
func Consistent(month Month, calendarYear int, year Year) bool {
	expected, err := ExpectedCalendarYear(month, year)
	if err != nil {
		return false
	}
	return expected == calendarYear
}

// Label renders the "MONTH-YEAR" encoding used for payment lines.
func Label(month Month, calendarYear int) string {
	return fmt.Sprintf("%s-%d", month, calendarYear)
}

// ParseMonth normalises a month name. Case and accents are ignored.
func ParseMonth(raw string) (Month, bool) {
	month, ok := knownMonths[foldMonth(raw)]
	return month, ok
}

// ParsePaymentMonth decodes the two legacy encodings of a payment month: a
// combined "MONTH-YEAR" string, or a bare month name with a separate year.
// When both carry a year the combined string wins.
func ParsePaymentMonth(rawMonth string, rawYear *int) (Month, int, error) {
	trimmed := strings.TrimSpace(rawMonth)
	if trimmed == "" {
		return "", 0, apperror.MalformedMonthField(rawMonth)
	}

	if idx := strings.LastIndex(trimmed, "-"); idx >= 0 {
		month, ok := ParseMonth(trimmed[:idx])
		if !ok {
			return "", 0, apperror.MalformedMonthField(rawMonth)
		}
		year, err := strconv.Atoi(strings.TrimSpace(trimmed[idx+1:]))
		if err != nil || year <= 0 {
			return "", 0, apperror.MalformedMonthField(rawMonth)
		}
		return month, year, nil
	}

	month, ok := ParseMonth(trimmed)
	if !ok || rawYear == nil || *rawYear <= 0 {
		return "", 0, apperror.MalformedMonthField(rawMonth)
	}
	return month, *rawYear, nil
}

func foldMonth(raw string) string {
	upper := cases.Upper(language.BrazilianPortuguese).String(strings.TrimSpace(raw))
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, upper)
	if err != nil {
		return upper
	}
	return folded
}
