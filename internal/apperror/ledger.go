package apperror

import "fmt"

// MalformedMonthField reports a payment month that matches neither the
// "MONTH-YEAR" nor the bare month encoding.
func MalformedMonthField(rawMonth string) *Error {
	return New(KindInvalidInput, fmt.Sprintf("malformed payment month %q", rawMonth)).
		WithDetail("month", rawMonth)
}

// MissingVoucher reports an empty voucher number.
func MissingVoucher() *Error {
	return New(KindInvalidInput, "voucher number is required")
}

// DuplicateVoucher reports a voucher already used by another payment.
func DuplicateVoucher(voucher string, invoiceID uint, studentName string) *Error {
	return New(KindConflict, fmt.Sprintf("voucher %s is already used by invoice %d (student: %s)", voucher, invoiceID, studentName)).
		WithDetail("voucher", voucher).
		WithDetail("invoice_id", invoiceID).
		WithDetail("student_name", studentName)
}

// DuplicateCreditNote reports a second credit note for the same invoice and student.
func DuplicateCreditNote(invoiceID, studentID uint) *Error {
	return New(KindConflict, fmt.Sprintf("a credit note already exists for invoice %d and student %d", invoiceID, studentID)).
		WithDetail("invoice_id", invoiceID).
		WithDetail("student_id", studentID)
}

// AcademicYearNotFound reports a missing academic year.
func AcademicYearNotFound(id *uint) *Error {
	if id == nil {
		return New(KindNotFound, "no academic year is registered")
	}
	return New(KindNotFound, fmt.Sprintf("academic year %d not found", *id)).WithDetail("academic_year_id", *id)
}

// StudentNotFound reports a missing student.
func StudentNotFound(id uint) *Error {
	return New(KindNotFound, fmt.Sprintf("student %d not found", id)).WithDetail("student_id", id)
}

// PaymentNotFound reports an invoice reference that resolves to no payment row.
func PaymentNotFound(id uint) *Error {
	return New(KindNotFound, fmt.Sprintf("payment %d not found", id)).WithDetail("invoice_id", id)
}

// GuardianNotFound reports a missing guardian.
func GuardianNotFound(id uint) *Error {
	return New(KindNotFound, fmt.Sprintf("guardian %d not found", id)).WithDetail("guardian_id", id)
}

// EnrollmentNotFound reports a missing enrollment.
func EnrollmentNotFound(id uint) *Error {
	return New(KindNotFound, fmt.Sprintf("enrollment %d not found", id)).WithDetail("enrollment_id", id)
}

// GuardianHasStudents reports a guardian deletion blocked by dependents.
func GuardianHasStudents(id uint, students int64) *Error {
	return New(KindDependency, fmt.Sprintf("guardian %d still has %d student(s)", id, students)).
		WithDetail("guardian_id", id).
		WithDetail("students", students)
}

// DuplicateEnrollment reports a second enrollment for the same student.
func DuplicateEnrollment(studentID uint) *Error {
	return New(KindConflict, fmt.Sprintf("student %d is already enrolled", studentID)).WithDetail("student_id", studentID)
}

// DuplicateConfirmation reports a second confirmation for one enrollment and academic year.
func DuplicateConfirmation(enrollmentID, academicYearID uint) *Error {
	return New(KindConflict, fmt.Sprintf("enrollment %d is already confirmed for academic year %d", enrollmentID, academicYearID)).
		WithDetail("enrollment_id", enrollmentID).
		WithDetail("academic_year_id", academicYearID)
}
