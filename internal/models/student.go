package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Guardian is the person responsible for one or more students.
type Guardian struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Phone     string    `gorm:"size:32" json:"phone"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Student is a learner whose tuition ledger is tracked by the system. Balance
// decreases when tuition is paid and increases when a payment is reversed.
type Student struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Name       string          `gorm:"size:255;not null" json:"name"`
	Balance    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"balance"`
	GuardianID *uint           `gorm:"index" json:"guardian_id"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
