package db

import (
	"gorm.io/gorm"

	"github.com/narsimha-film/abtest-backend/internal/types"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Experiment{},
		&types.Variant{},
		&types.Assignment{},
		&types.Event{},
	)
}
