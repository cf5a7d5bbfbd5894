package types

import (
	"time"

	"github.com/google/uuid"
)

// Assignment binds one visitor session to one variant of one experiment.
// Rows are immutable once created; the composite unique index closes the
// concurrent first-request race at the store layer.
type Assignment struct {
	ID            uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ExperimentID  uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:uniq_experiment_session,priority:1" json:"experiment_id"`
	Experiment    *Experiment `gorm:"constraint:OnDelete:CASCADE;foreignKey:ExperimentID;references:ID" json:"experiment,omitempty"`
	VariantID     uuid.UUID   `gorm:"type:uuid;not null;index" json:"variant_id"`
	Variant       *Variant    `gorm:"constraint:OnDelete:CASCADE;foreignKey:VariantID;references:ID" json:"variant,omitempty"`
	UserID        *int64      `gorm:"index" json:"user_id,omitempty"`
	SessionID     string      `gorm:"not null;uniqueIndex:uniq_experiment_session,priority:2" json:"session_id"`
	IPHash        *string     `json:"ip_hash,omitempty"`
	UserAgentHash *string     `json:"user_agent_hash,omitempty"`
	CreatedAt     time.Time   `gorm:"not null;default:now()" json:"created_at"`
}

func (Assignment) TableName() string { return "experiment_assignment" }
