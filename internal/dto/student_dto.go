package dto

import "time"

// DeletionSummary reports what a student cascade deletion removed.
type DeletionSummary struct {
	StudentID          uint  `json:"student_id"`
	Confirmations      int64 `json:"confirmations"`
	CreditNotes        int64 `json:"credit_notes"`
	PaymentDetails     int64 `json:"payment_details"`
	PrimaryPayments    int64 `json:"primary_payments"`
	VoucherClaims      int64 `json:"voucher_claims"`
	ServiceAssignments int64 `json:"service_assignments"`
	Transfers          int64 `json:"transfers"`
	Enrollments        int64 `json:"enrollments"`
	GuardianID         *uint `json:"guardian_id,omitempty"`
	GuardianRemoved    bool  `json:"guardian_removed"`
}

// EnrollmentRequest enrols a student in a course.
type EnrollmentRequest struct {
	StudentID uint `json:"student_id" validate:"required"`
	CourseID  uint `json:"course_id" validate:"required"`
}

// EnrollmentResponse serialises an enrollment.
type EnrollmentResponse struct {
	ID        uint      `json:"id"`
	StudentID uint      `json:"student_id"`
	CourseID  uint      `json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ConfirmationRequest activates an enrollment for an academic year.
type ConfirmationRequest struct {
	AcademicYearID uint       `json:"academic_year_id" validate:"required"`
	ClassName      string     `json:"class_name" validate:"required,max=64"`
	Section        string     `json:"section" validate:"omitempty,max=32"`
	StartedAt      *time.Time `json:"started_at"`
}

// ConfirmationResponse serialises a confirmation.
type ConfirmationResponse struct {
	ID             uint      `json:"id"`
	EnrollmentID   uint      `json:"enrollment_id"`
	AcademicYearID uint      `json:"academic_year_id"`
	ClassName      string    `json:"class_name"`
	Section        string    `json:"section"`
	StartedAt      time.Time `json:"started_at"`
}

// GuardianResponse serialises a guardian.
type GuardianResponse struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}
