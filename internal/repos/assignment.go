package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/narsimha-film/abtest-backend/internal/logger"
	"github.com/narsimha-film/abtest-backend/internal/types"
)

type AssignmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, a *types.Assignment) (*types.Assignment, error)
	GetBySession(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID, sessionID string, userID *int64) (*types.Assignment, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Assignment, error)
	CountByExperimentID(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID) (int64, error)
}

type assignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	repoLog := baseLog.With("repo", "AssignmentRepo")
	return &assignmentRepo{db: db, log: repoLog}
}

// Create inserts an assignment, or returns the existing row when another
// request won the (experiment_id, session_id) race. The unique index plus
// insert-or-ignore makes concurrent first requests converge on one row.
func (r *assignmentRepo) Create(ctx context.Context, tx *gorm.DB, a *types.Assignment) (*types.Assignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "experiment_id"}, {Name: "session_id"}},
			DoNothing: true,
		}).
		Create(a)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		existing, err := r.GetBySession(ctx, transaction, a.ExperimentID, a.SessionID, a.UserID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, gorm.ErrRecordNotFound
		}
		return existing, nil
	}
	return a, nil
}

// GetBySession resolves the visitor's assignment, preferring a row carrying
// a matching non-null user id over a pure session match. Returns nil when
// no row exists.
func (r *assignmentRepo) GetBySession(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID, sessionID string, userID *int64) (*types.Assignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Assignment
	if userID != nil {
		err := transaction.WithContext(ctx).
			Where("experiment_id = ? AND user_id = ?", experimentID, *userID).
			Order("created_at ASC").
			First(&result).Error
		if err == nil {
			return &result, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	err := transaction.WithContext(ctx).
		Where("experiment_id = ? AND session_id = ?", experimentID, sessionID).
		Order("created_at ASC").
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *assignmentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Assignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Assignment
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *assignmentRepo) CountByExperimentID(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Assignment{}).
		Where("experiment_id = ?", experimentID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
