package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	ExperimentStatusDraft     = "draft"
	ExperimentStatusRunning   = "running"
	ExperimentStatusPaused    = "paused"
	ExperimentStatusCompleted = "completed"
)

type Experiment struct {
	ID                uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name              string     `gorm:"not null;uniqueIndex" json:"name"`
	Description       string     `gorm:"type:text" json:"description,omitempty"`
	Status            string     `gorm:"not null;default:'draft';index" json:"status"`
	TrafficPercentage float64    `gorm:"not null;default:100" json:"traffic_percentage"`
	StartDate         *time.Time `json:"start_date,omitempty"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	CreatedAt         time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Experiment) TableName() string { return "experiment" }

func ValidExperimentStatus(s string) bool {
	switch s {
	case ExperimentStatusDraft, ExperimentStatusRunning, ExperimentStatusPaused, ExperimentStatusCompleted:
		return true
	}
	return false
}
