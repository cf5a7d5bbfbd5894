package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EventTypeView       = "view"
	EventTypeClick      = "click"
	EventTypeConversion = "conversion"
	EventTypePurchase   = "purchase"
)

// Event is append-only; the core never mutates or deletes rows.
type Event struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ExperimentID uuid.UUID      `gorm:"type:uuid;not null;index" json:"experiment_id"`
	Experiment   *Experiment    `gorm:"constraint:OnDelete:CASCADE;foreignKey:ExperimentID;references:ID" json:"experiment,omitempty"`
	VariantID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"variant_id"`
	Variant      *Variant       `gorm:"constraint:OnDelete:CASCADE;foreignKey:VariantID;references:ID" json:"variant,omitempty"`
	AssignmentID uuid.UUID      `gorm:"type:uuid;not null;index" json:"assignment_id"`
	Assignment   *Assignment    `gorm:"constraint:OnDelete:CASCADE;foreignKey:AssignmentID;references:ID" json:"assignment,omitempty"`
	Type         string         `gorm:"column:type;not null;index" json:"type"`
	Data         datatypes.JSON `gorm:"type:jsonb" json:"data,omitempty"`
	Value        float64        `gorm:"not null;default:0" json:"value"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (Event) TableName() string { return "experiment_event" }

func ValidEventType(t string) bool {
	switch t {
	case EventTypeView, EventTypeClick, EventTypeConversion, EventTypePurchase:
		return true
	}
	return false
}
