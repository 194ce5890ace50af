package models

import "time"

// Enrollment registers a student in a course. A student has at most one.
type Enrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StudentID uint      `gorm:"uniqueIndex;not null" json:"student_id"`
	CourseID  uint      `gorm:"not null" json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Confirmation activates an enrollment for a class section in one academic year.
type Confirmation struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	EnrollmentID   uint      `gorm:"uniqueIndex:idx_confirmation_enrollment_year;not null" json:"enrollment_id"`
	AcademicYearID uint      `gorm:"uniqueIndex:idx_confirmation_enrollment_year;not null" json:"academic_year_id"`
	ClassName      string    `gorm:"size:64" json:"class_name"`
	Section        string    `gorm:"size:32" json:"section"`
	StartedAt      time.Time `json:"started_at"`
	CreatedAt      time.Time `json:"created_at"`
}
