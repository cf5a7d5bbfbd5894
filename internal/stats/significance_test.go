package stats

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/narsimha-film/abtest-backend/internal/types"
)

func metrics(views, conversions int64) types.VariantMetrics {
	m := types.VariantMetrics{
		VariantID:   uuid.New(),
		Views:       views,
		Conversions: conversions,
	}
	if views > 0 {
		m.ConversionRate = float64(conversions) / float64(views) * 100
	}
	return m
}

func TestCompareSampleTooSmall(t *testing.T) {
	variant := metrics(29, 20)
	control := metrics(29, 1)

	got := Compare(variant, control)
	if got.Confidence != 0 || got.Significant {
		t.Fatalf("under 30 views per arm must report zero confidence, got %+v", got)
	}
}

func TestCompareClearWinner(t *testing.T) {
	variant := metrics(1000, 200) // 20%
	control := metrics(1000, 100) // 10%

	got := Compare(variant, control)
	if !got.Significant {
		t.Fatalf("10%% vs 20%% at n=1000 must be significant, got %+v", got)
	}
	if got.Confidence < 95 {
		t.Fatalf("confidence %.2f, want >= 95", got.Confidence)
	}
	if got.ZScore <= 0 {
		t.Fatalf("z-score must be positive, got %.4f", got.ZScore)
	}
}

func TestCompareSelfComparison(t *testing.T) {
	control := metrics(5000, 500)

	got := Compare(control, control)
	if got.Confidence != 0 || got.Significant {
		t.Fatalf("control against itself must be zero confidence, got %+v", got)
	}
}

func TestCompareNoConversionsEither(t *testing.T) {
	got := Compare(metrics(500, 0), metrics(500, 0))
	if got.Significant || got.Confidence != 0 {
		t.Fatalf("identical zero-conversion arms must not be significant, got %+v", got)
	}
}

func TestComparePValueBounds(t *testing.T) {
	got := Compare(metrics(1000, 101), metrics(1000, 100))
	if got.PValue <= 0 || got.PValue > 1 {
		t.Fatalf("p-value out of range: %v", got.PValue)
	}
	if got.Significant {
		t.Fatalf("10.0%% vs 10.1%% at n=1000 should not be significant, got %+v", got)
	}
}

func TestPickControlPrefersFlag(t *testing.T) {
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	flagged := &types.Variant{ID: uuid.New(), Name: "control", IsControl: true, CreatedAt: base}
	other := &types.Variant{ID: uuid.New(), Name: "challenger", CreatedAt: base.Add(time.Second)}

	// The challenger has more views; the flag must still win.
	ms := []types.VariantMetrics{
		{VariantID: flagged.ID, VariantName: flagged.Name, IsControl: true, Views: 10},
		{VariantID: other.ID, VariantName: other.Name, Views: 10000},
	}

	got := PickControl(ms, []*types.Variant{flagged, other})
	if got == nil || got.VariantID != flagged.ID {
		t.Fatalf("flagged control must be the baseline, got %+v", got)
	}
}

func TestPickControlFallsBackToMaxViews(t *testing.T) {
	a := types.VariantMetrics{VariantID: uuid.New(), VariantName: "a", Views: 50}
	b := types.VariantMetrics{VariantID: uuid.New(), VariantName: "b", Views: 500}

	got := PickControl([]types.VariantMetrics{a, b}, nil)
	if got == nil || got.VariantID != b.VariantID {
		t.Fatalf("without a flag the max-views arm is the baseline, got %+v", got)
	}
}

func TestPickControlEmpty(t *testing.T) {
	if got := PickControl(nil, nil); got != nil {
		t.Fatalf("no metrics must yield no baseline, got %+v", got)
	}
}
