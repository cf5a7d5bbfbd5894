package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Variant struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ExperimentID uuid.UUID      `gorm:"type:uuid;not null;index" json:"experiment_id"`
	Experiment   *Experiment    `gorm:"constraint:OnDelete:CASCADE;foreignKey:ExperimentID;references:ID" json:"experiment,omitempty"`
	Name         string         `gorm:"not null" json:"name"`
	Description  string         `gorm:"type:text" json:"description,omitempty"`
	TrafficSplit float64        `gorm:"not null" json:"traffic_split"`
	Config       datatypes.JSON `gorm:"type:jsonb" json:"config"`
	IsControl    bool           `gorm:"not null;default:false" json:"is_control"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Variant) TableName() string { return "experiment_variant" }
