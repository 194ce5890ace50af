package dto

import "github.com/noah-isme/escola-ledger-api/internal/models"

// AcademicYearSummary identifies the academic year a ledger result refers to.
type AcademicYearSummary struct {
	ID        uint   `json:"id"`
	Label     string `json:"label"`
	StartYear int    `json:"start_year"`
	EndYear   int    `json:"end_year"`
}

// NewAcademicYearSummary maps an academic year model.
func NewAcademicYearSummary(year models.AcademicYear) AcademicYearSummary {
	return AcademicYearSummary{
		ID:        year.ID,
		Label:     year.DisplayLabel(),
		StartYear: year.StartYear,
		EndYear:   year.EndYear,
	}
}

// TuitionLedgerResult describes which academic months a student has paid.
type TuitionLedgerResult struct {
	StudentID      uint                `json:"student_id"`
	AcademicYear   AcademicYearSummary `json:"academic_year"`
	Enrolled       bool                `json:"enrolled"`
	PaidMonths     []string            `json:"paid_months"`
	PaidDetails    []string            `json:"paid_details"`
	PendingMonths  []string            `json:"pending_months"`
	TotalMonths    int                 `json:"total_months"`
	PaidCount      int                 `json:"paid_count"`
	PendingCount   int                 `json:"pending_count"`
	NextDueMonth   *string             `json:"next_due_month"`
	HasOutstanding bool                `json:"has_outstanding"`
	IgnoredEntries int                 `json:"ignored_entries"`
	Message        string              `json:"message,omitempty"`
}

// DebtRecord lists the months left unpaid in a past academic year.
type DebtRecord struct {
	AcademicYear  AcademicYearSummary `json:"academic_year"`
	PendingMonths []string            `json:"pending_months"`
	PaidMonths    []string            `json:"paid_months"`
	TotalPending  int                 `json:"total_pending"`
}

// VoucherValidationResponse reports a voucher that is free to use.
type VoucherValidationResponse struct {
	Voucher   string `json:"voucher"`
	Available bool   `json:"available"`
}
