package stats

import (
	"math"

	"github.com/narsimha-film/abtest-backend/internal/types"
)

// MinSampleSize is the per-arm view count below which no significance is
// reported.
const MinSampleSize = 30

// SignificanceThreshold is the two-tailed p-value bound for calling a
// difference significant (95% confidence).
const SignificanceThreshold = 0.05

type Significance struct {
	ZScore      float64 `json:"z_score"`
	PValue      float64 `json:"p_value"`
	Confidence  float64 `json:"confidence"`
	Significant bool    `json:"significant"`
}

// Compare runs a pooled two-proportion z-test of a variant's conversion
// rate against the control's. Self-comparison and under-sampled arms yield
// zero confidence rather than an error.
func Compare(variant, control types.VariantMetrics) Significance {
	if variant.VariantID == control.VariantID {
		return Significance{}
	}
	if variant.Views < MinSampleSize || control.Views < MinSampleSize {
		return Significance{}
	}

	p1 := float64(variant.Conversions) / float64(variant.Views)
	p2 := float64(control.Conversions) / float64(control.Views)
	n1 := float64(variant.Views)
	n2 := float64(control.Views)

	pooled := (float64(variant.Conversions) + float64(control.Conversions)) / (n1 + n2)
	se := math.Sqrt(pooled * (1 - pooled) * (1/n1 + 1/n2))
	if se == 0 {
		return Significance{}
	}

	z := math.Abs(p1-p2) / se
	p := 2 * (1 - normalCDF(z))

	return Significance{
		ZScore:      z,
		PValue:      p,
		Confidence:  round2((1 - p) * 100),
		Significant: p < SignificanceThreshold,
	}
}

// PickControl selects the baseline for pairwise comparisons: the
// earliest-created variant flagged as control, else the variant with the
// most views so legacy experiments without the flag still get a baseline.
func PickControl(metrics []types.VariantMetrics, variants []*types.Variant) *types.VariantMetrics {
	if len(metrics) == 0 {
		return nil
	}

	byID := make(map[string]int, len(metrics))
	for i, m := range metrics {
		byID[m.VariantID.String()] = i
	}
	var control *types.VariantMetrics
	for _, v := range variants {
		if !v.IsControl {
			continue
		}
		if i, ok := byID[v.ID.String()]; ok {
			if control == nil {
				control = &metrics[i]
			}
		}
	}
	if control != nil {
		return control
	}

	maxIdx := 0
	for i := 1; i < len(metrics); i++ {
		if metrics[i].Views > metrics[maxIdx].Views {
			maxIdx = i
		}
	}
	return &metrics[maxIdx]
}

func normalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
