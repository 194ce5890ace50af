package models

import "time"

// ServiceAssignment subscribes a student to a catalog service.
type ServiceAssignment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	StudentID     uint      `gorm:"index;not null" json:"student_id"`
	ServiceTypeID uint      `gorm:"not null" json:"service_type_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// Transfer records a student moving between schools.
type Transfer struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	StudentID     uint      `gorm:"index;not null" json:"student_id"`
	FromSchool    string    `gorm:"size:255" json:"from_school"`
	ToSchool      string    `gorm:"size:255" json:"to_school"`
	TransferredAt time.Time `json:"transferred_at"`
}
