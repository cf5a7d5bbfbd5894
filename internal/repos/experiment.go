package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/narsimha-film/abtest-backend/internal/logger"
	"github.com/narsimha-film/abtest-backend/internal/types"
)

type ExperimentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, exp *types.Experiment) (*types.Experiment, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Experiment, error)
	GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.Experiment, error)
	ListRunning(ctx context.Context, tx *gorm.DB) ([]*types.Experiment, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) (*types.Experiment, error)
}

type experimentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExperimentRepo(db *gorm.DB, baseLog *logger.Logger) ExperimentRepo {
	repoLog := baseLog.With("repo", "ExperimentRepo")
	return &experimentRepo{db: db, log: repoLog}
}

func (r *experimentRepo) Create(ctx context.Context, tx *gorm.DB, exp *types.Experiment) (*types.Experiment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if exp.ID == uuid.Nil {
		exp.ID = uuid.New()
	}
	if exp.Status == "" {
		exp.Status = types.ExperimentStatusDraft
	}

	if err := transaction.WithContext(ctx).Create(exp).Error; err != nil {
		return nil, err
	}
	return exp, nil
}

func (r *experimentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Experiment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Experiment
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *experimentRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.Experiment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Experiment
	if err := transaction.WithContext(ctx).
		Where("name = ?", name).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *experimentRepo) ListRunning(ctx context.Context, tx *gorm.DB) ([]*types.Experiment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Experiment
	if err := transaction.WithContext(ctx).
		Where("status = ? AND traffic_percentage > 0", types.ExperimentStatusRunning).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateStatus moves an experiment through its lifecycle. Start and end
// dates are stamped exactly once, on the first transition into running and
// completed respectively.
func (r *experimentRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) (*types.Experiment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if !types.ValidExperimentStatus(status) {
		return nil, fmt.Errorf("invalid experiment status %q", status)
	}

	var exp types.Experiment
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&exp).Error; err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	if status == types.ExperimentStatusRunning && exp.StartDate == nil {
		updates["start_date"] = now
	}
	if status == types.ExperimentStatusCompleted && exp.EndDate == nil {
		updates["end_date"] = now
	}

	if err := transaction.WithContext(ctx).
		Model(&types.Experiment{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	var updated types.Experiment
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&updated).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}
