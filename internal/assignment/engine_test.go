package assignment

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/narsimha-film/abtest-backend/internal/types"
)

func makeVariants(splits []float64, controlIdx int) []*types.Variant {
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	variants := make([]*types.Variant, len(splits))
	for i, split := range splits {
		variants[i] = &types.Variant{
			ID:           uuid.New(),
			Name:         fmt.Sprintf("variant_%d", i),
			TrafficSplit: split,
			IsControl:    i == controlIdx,
			CreatedAt:    base.Add(time.Duration(i) * time.Second),
		}
	}
	return variants
}

func syntheticHash(i int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("user-%d", i)))
	return hex.EncodeToString(sum[:])
}

func TestAssignDeterminism(t *testing.T) {
	variants := makeVariants([]float64{50, 50}, 0)
	hash := syntheticHash(42)

	first := Assign(variants, hash, 100)
	if first == nil {
		t.Fatal("expected a variant at 100% traffic")
	}
	for i := 0; i < 1000; i++ {
		got := Assign(variants, hash, 100)
		if got == nil || got.ID != first.ID {
			t.Fatalf("assignment changed between calls: got %v, want %v", got, first)
		}
	}
}

func TestAssignSingleVariant(t *testing.T) {
	variants := makeVariants([]float64{100}, 0)
	for i := 0; i < 100; i++ {
		if got := Assign(variants, syntheticHash(i), 100); got == nil {
			t.Fatal("single variant at full traffic must always be selected")
		}
	}
}

func TestAssignSamplingGateExcludesEveryone(t *testing.T) {
	variants := makeVariants([]float64{100}, 0)
	for i := 0; i < 100; i++ {
		if got := Assign(variants, syntheticHash(i), 0); got != nil {
			t.Fatal("0% traffic must exclude every visitor")
		}
	}
}

func TestAssignSplitConservation(t *testing.T) {
	variants := makeVariants([]float64{50, 30, 20}, 0)
	const samples = 100000

	counts := map[string]int{}
	for i := 0; i < samples; i++ {
		v := Assign(variants, syntheticHash(i), 100)
		if v == nil {
			t.Fatal("no visitor should be excluded at 100% traffic")
		}
		counts[v.Name]++
	}

	for i, v := range variants {
		got := float64(counts[v.Name]) / samples * 100
		want := variants[i].TrafficSplit
		if math.Abs(got-want) > 3 {
			t.Fatalf("variant %s: empirical share %.2f%% deviates more than 3%% from split %.0f%%", v.Name, got, want)
		}
	}
}

func TestAssignSamplingFraction(t *testing.T) {
	variants := makeVariants([]float64{100}, 0)
	const samples = 100000
	const traffic = 60.0

	excluded := 0
	for i := 0; i < samples; i++ {
		if Assign(variants, syntheticHash(i), traffic) == nil {
			excluded++
		}
	}
	got := float64(excluded) / samples * 100
	if math.Abs(got-(100-traffic)) > 3 {
		t.Fatalf("excluded fraction %.2f%% deviates more than 3%% from %.0f%%", got, 100-traffic)
	}
}

func TestAssignGateIndependentOfArm(t *testing.T) {
	// The same visitor must keep their arm when only the sampling gate
	// widens: arm selection uses an independent percentile.
	variants := makeVariants([]float64{50, 50}, 0)
	for i := 0; i < 1000; i++ {
		hash := syntheticHash(i)
		narrow := Assign(variants, hash, 50)
		wide := Assign(variants, hash, 100)
		if narrow == nil {
			continue
		}
		if wide == nil || wide.ID != narrow.ID {
			t.Fatalf("visitor %d changed arm when traffic widened", i)
		}
	}
}

func TestAssignInconsistentWeightsFallsBackToControl(t *testing.T) {
	variants := makeVariants([]float64{0, 0}, 1)
	got := Assign(variants, syntheticHash(7), 100)
	if got == nil || !got.IsControl {
		t.Fatalf("zero weights must fall back to control, got %v", got)
	}
}

func TestAssignEmptyVariants(t *testing.T) {
	if got := Assign(nil, syntheticHash(1), 100); got != nil {
		t.Fatalf("empty variant list must yield nil, got %v", got)
	}
}
