package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ServiceCategory classifies a catalog service.
type ServiceCategory string

const (
	ServiceCategoryTuition ServiceCategory = "tuition"
	ServiceCategoryOther   ServiceCategory = "other"
)

// LegacyTuitionKeyword marks tuition services in designations written before
// categories existed.
const LegacyTuitionKeyword = "propina"

// ServiceType is a catalog entry a student can pay for.
type ServiceType struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Designation string          `gorm:"size:255;not null" json:"designation"`
	Category    ServiceCategory `gorm:"size:16;index" json:"category"`
	Price       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
}

// IsTuition reports whether the service is billed per academic month.
func (s ServiceType) IsTuition() bool {
	return s.Category == ServiceCategoryTuition
}

// ClassifyDesignation applies the legacy substring heuristic. It is only used
// to backfill rows that predate the category column.
func ClassifyDesignation(designation string) ServiceCategory {
	if strings.Contains(strings.ToLower(designation), LegacyTuitionKeyword) {
		return ServiceCategoryTuition
	}
	return ServiceCategoryOther
}
