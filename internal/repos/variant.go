package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/narsimha-film/abtest-backend/internal/logger"
	"github.com/narsimha-film/abtest-backend/internal/types"
)

type VariantRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, variants []*types.Variant) ([]*types.Variant, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Variant, error)
	GetByExperimentID(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID) ([]*types.Variant, error)
}

type variantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVariantRepo(db *gorm.DB, baseLog *logger.Logger) VariantRepo {
	repoLog := baseLog.With("repo", "VariantRepo")
	return &variantRepo{db: db, log: repoLog}
}

func (r *variantRepo) CreateBatch(ctx context.Context, tx *gorm.DB, variants []*types.Variant) ([]*types.Variant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(variants) == 0 {
		return []*types.Variant{}, nil
	}

	for _, v := range variants {
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
	}

	if err := transaction.WithContext(ctx).Create(&variants).Error; err != nil {
		return nil, err
	}
	return variants, nil
}

func (r *variantRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Variant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Variant
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

// GetByExperimentID returns variants in assignment-walk order: control
// flagged first, then creation time ascending.
func (r *variantRepo) GetByExperimentID(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID) ([]*types.Variant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Variant
	if err := transaction.WithContext(ctx).
		Where("experiment_id = ?", experimentID).
		Order("is_control DESC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
