package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/narsimha-film/abtest-backend/internal/repos/testutil"
	"github.com/narsimha-film/abtest-backend/internal/types"
)

func TestExperimentRepoLifecycle(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewExperimentRepo(db, testutil.Logger(t))

	exp, err := repo.Create(ctx, tx, &types.Experiment{
		Name:              "experiment-lifecycle",
		TrafficPercentage: 100,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if exp.Status != types.ExperimentStatusDraft {
		t.Fatalf("new experiment status = %q, want draft", exp.Status)
	}

	if got, err := repo.GetByName(ctx, tx, "experiment-lifecycle"); err != nil || got.ID != exp.ID {
		t.Fatalf("GetByName: got=%v err=%v", got, err)
	}

	started, err := repo.UpdateStatus(ctx, tx, exp.ID, types.ExperimentStatusRunning)
	if err != nil {
		t.Fatalf("UpdateStatus(running): %v", err)
	}
	if started.StartDate == nil {
		t.Fatal("start_date must be stamped on first transition into running")
	}
	firstStart := *started.StartDate

	// Pausing and resuming must not move the original start date.
	if _, err := repo.UpdateStatus(ctx, tx, exp.ID, types.ExperimentStatusPaused); err != nil {
		t.Fatalf("UpdateStatus(paused): %v", err)
	}
	resumed, err := repo.UpdateStatus(ctx, tx, exp.ID, types.ExperimentStatusRunning)
	if err != nil {
		t.Fatalf("UpdateStatus(running again): %v", err)
	}
	if resumed.StartDate == nil || !resumed.StartDate.Equal(firstStart) {
		t.Fatalf("start_date moved on re-run: %v, want %v", resumed.StartDate, firstStart)
	}

	completed, err := repo.UpdateStatus(ctx, tx, exp.ID, types.ExperimentStatusCompleted)
	if err != nil {
		t.Fatalf("UpdateStatus(completed): %v", err)
	}
	if completed.EndDate == nil {
		t.Fatal("end_date must be stamped on first transition into completed")
	}

	if _, err := repo.UpdateStatus(ctx, tx, exp.ID, "archived"); err == nil {
		t.Fatal("invalid status must be rejected")
	}
	if _, err := repo.UpdateStatus(ctx, tx, uuid.New(), types.ExperimentStatusRunning); err == nil {
		t.Fatal("unknown experiment must error")
	}
}

func TestExperimentRepoListRunning(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewExperimentRepo(db, testutil.Logger(t))

	seed := []*types.Experiment{
		{Name: "running-full", Status: types.ExperimentStatusRunning, TrafficPercentage: 100},
		{Name: "running-zero", Status: types.ExperimentStatusRunning, TrafficPercentage: 0},
		{Name: "still-draft", Status: types.ExperimentStatusDraft, TrafficPercentage: 100},
		{Name: "done", Status: types.ExperimentStatusCompleted, TrafficPercentage: 100},
	}
	for _, e := range seed {
		if _, err := repo.Create(ctx, tx, e); err != nil {
			t.Fatalf("seed %s: %v", e.Name, err)
		}
	}

	running, err := repo.ListRunning(ctx, tx)
	if err != nil {
		t.Fatalf("ListRunning: %v", err)
	}
	if len(running) != 1 || running[0].Name != "running-full" {
		t.Fatalf("ListRunning must return only running experiments with traffic, got %v", running)
	}
}
