package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/narsimha-film/abtest-backend/internal/repos/testutil"
	"github.com/narsimha-film/abtest-backend/internal/types"
)

func seedExperimentWithVariants(t *testing.T, tx *gorm.DB, name string, variantNames ...string) (*types.Experiment, []*types.Variant) {
	t.Helper()
	ctx := context.Background()

	exp := &types.Experiment{
		ID:                uuid.New(),
		Name:              name,
		Status:            types.ExperimentStatusRunning,
		TrafficPercentage: 100,
	}
	if err := tx.WithContext(ctx).Create(exp).Error; err != nil {
		t.Fatalf("seed experiment: %v", err)
	}

	variants := make([]*types.Variant, 0, len(variantNames))
	split := 100 / float64(len(variantNames))
	for i, vn := range variantNames {
		v := &types.Variant{
			ID:           uuid.New(),
			ExperimentID: exp.ID,
			Name:         vn,
			TrafficSplit: split,
			Config:       []byte(`{}`),
			IsControl:    i == 0,
		}
		if err := tx.WithContext(ctx).Create(v).Error; err != nil {
			t.Fatalf("seed variant %s: %v", vn, err)
		}
		variants = append(variants, v)
	}
	return exp, variants
}

func TestAssignmentRepoCreateIsIdempotentPerSession(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewAssignmentRepo(db, testutil.Logger(t))
	exp, variants := seedExperimentWithVariants(t, tx, "assignment-idempotent", "control", "challenger")

	sid := uuid.NewString()
	first, err := repo.Create(ctx, tx, &types.Assignment{
		ExperimentID: exp.ID,
		VariantID:    variants[0].ID,
		SessionID:    sid,
	})
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}

	// A losing concurrent writer would attempt a different variant; the
	// unique index must hand it the existing row instead.
	second, err := repo.Create(ctx, tx, &types.Assignment{
		ExperimentID: exp.ID,
		VariantID:    variants[1].ID,
		SessionID:    sid,
	})
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if second.ID != first.ID || second.VariantID != first.VariantID {
		t.Fatalf("duplicate create must return the original row: first=%v second=%v", first.ID, second.ID)
	}

	count, err := repo.CountByExperimentID(ctx, tx, exp.ID)
	if err != nil {
		t.Fatalf("CountByExperimentID: %v", err)
	}
	if count != 1 {
		t.Fatalf("assignment rows = %d, want 1", count)
	}
}

func TestAssignmentRepoGetBySessionPrefersUser(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewAssignmentRepo(db, testutil.Logger(t))
	exp, variants := seedExperimentWithVariants(t, tx, "assignment-user-pref", "control")

	userID := int64(4711)
	withUser, err := repo.Create(ctx, tx, &types.Assignment{
		ExperimentID: exp.ID,
		VariantID:    variants[0].ID,
		UserID:       &userID,
		SessionID:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Same user on a new device: the user-bound row wins over a session miss.
	got, err := repo.GetBySession(ctx, tx, exp.ID, uuid.NewString(), &userID)
	if err != nil {
		t.Fatalf("GetBySession: %v", err)
	}
	if got == nil || got.ID != withUser.ID {
		t.Fatalf("user-matching row must be preferred, got %v", got)
	}

	if got, err := repo.GetBySession(ctx, tx, exp.ID, uuid.NewString(), nil); err != nil || got != nil {
		t.Fatalf("unknown session without user must yield nil, got=%v err=%v", got, err)
	}
}

func TestAssignmentRepoGetByIDUnknown(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewAssignmentRepo(db, testutil.Logger(t))
	got, err := repo.GetByID(context.Background(), tx, uuid.New())
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Fatalf("unknown assignment must yield nil, got %v", got)
	}
}
