package repos

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/narsimha-film/abtest-backend/internal/repos/testutil"
	"github.com/narsimha-film/abtest-backend/internal/types"
)

func TestEventRepoMetricsAggregation(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	eventRepo := NewEventRepo(db, testutil.Logger(t))
	assignmentRepo := NewAssignmentRepo(db, testutil.Logger(t))

	exp, variants := seedExperimentWithVariants(t, tx, "metrics-aggregation", "control", "lower_price")
	control, lower := variants[0], variants[1]

	a, err := assignmentRepo.Create(ctx, tx, &types.Assignment{
		ExperimentID: exp.ID,
		VariantID:    control.ID,
		SessionID:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("seed assignment: %v", err)
	}

	seed := []struct {
		typ   string
		value float64
	}{
		{types.EventTypeView, 0},
		{types.EventTypeView, 0},
		{types.EventTypeView, 0},
		{types.EventTypeClick, 0},
		{types.EventTypeConversion, 0},
		{types.EventTypePurchase, 49},
		{types.EventTypePurchase, 99},
	}
	for _, e := range seed {
		if _, err := eventRepo.Create(ctx, tx, &types.Event{
			ExperimentID: exp.ID,
			VariantID:    control.ID,
			AssignmentID: a.ID,
			Type:         e.typ,
			Value:        e.value,
		}); err != nil {
			t.Fatalf("seed event %s: %v", e.typ, err)
		}
	}

	metrics, err := eventRepo.MetricsByExperimentID(ctx, tx, exp.ID)
	if err != nil {
		t.Fatalf("MetricsByExperimentID: %v", err)
	}
	if len(metrics) != 2 {
		t.Fatalf("expected one metrics row per variant, got %d", len(metrics))
	}

	// Control-first ordering puts the seeded arm in front.
	got := metrics[0]
	if got.VariantID != control.ID || !got.IsControl {
		t.Fatalf("first row must be the control, got %+v", got)
	}
	if got.Views != 3 || got.Clicks != 1 || got.Conversions != 1 || got.Purchases != 2 {
		t.Fatalf("counts off: %+v", got)
	}
	if got.Revenue != 148 {
		t.Fatalf("revenue = %v, want 148", got.Revenue)
	}
	if math.Abs(got.ConversionRate-100.0/3) > 1e-9 {
		t.Fatalf("conversion rate = %v, want %v", got.ConversionRate, 100.0/3)
	}
	if math.Abs(got.ClickThroughRate-100.0/3) > 1e-9 {
		t.Fatalf("click-through rate = %v, want %v", got.ClickThroughRate, 100.0/3)
	}
	if got.AvgOrderValue != 74 {
		t.Fatalf("avg order value = %v, want 74", got.AvgOrderValue)
	}

	// The untouched arm still shows up, zeroed, with zero-division guards.
	empty := metrics[1]
	if empty.VariantID != lower.ID {
		t.Fatalf("second row must be the untouched variant, got %+v", empty)
	}
	if empty.Views != 0 || empty.ConversionRate != 0 || empty.ClickThroughRate != 0 || empty.AvgOrderValue != 0 {
		t.Fatalf("untouched variant must be fully zeroed, got %+v", empty)
	}
}
