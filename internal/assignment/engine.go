package assignment

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"

	"github.com/narsimha-film/abtest-backend/internal/types"
)

// DefaultTrafficPercentage enrolls every eligible visitor.
const DefaultTrafficPercentage = 100

// Assign deterministically selects at most one variant for a visitor.
//
// The first percentile derived from userHash gates overall enrollment
// against trafficPercentage; a second, independent percentile (from a
// rehash with a fixed prefix) walks the cumulative traffic-split table.
// For fixed inputs the result never changes, so a returning visitor lands
// on the same arm even before their stored assignment is consulted.
//
// Callers must not pass an empty variant list.
func Assign(variants []*types.Variant, userHash string, trafficPercentage float64) *types.Variant {
	if len(variants) == 0 {
		return nil
	}

	if hashPercentile(userHash) >= trafficPercentage {
		return nil
	}

	ordered := orderVariants(variants)

	var totalWeight float64
	cumulative := make([]float64, len(ordered))
	for i, v := range ordered {
		totalWeight += v.TrafficSplit
		cumulative[i] = totalWeight
	}

	scaled := hashPercentile(rehash(userHash)) / 100 * totalWeight
	for i, cum := range cumulative {
		if cum >= scaled {
			return ordered[i]
		}
	}

	// Only reachable with inconsistent weights (e.g. all zero).
	for _, v := range ordered {
		if v.IsControl {
			return v
		}
	}
	return ordered[0]
}

// hashPercentile maps the first 8 hex characters of a digest onto [0,100).
func hashPercentile(hash string) float64 {
	if len(hash) > 8 {
		hash = hash[:8]
	}
	n, err := strconv.ParseUint(hash, 16, 64)
	if err != nil {
		return 0
	}
	return float64(n%10000) / 100
}

// rehash derives an arm-selection digest independent of the sampling gate.
func rehash(userHash string) string {
	sum := sha256.Sum256([]byte("variant:" + userHash))
	return hex.EncodeToString(sum[:])
}

// orderVariants returns a stable copy: control-flagged variants first, then
// creation time ascending. The walk order must match the repo read order so
// the cumulative table is identical everywhere.
func orderVariants(variants []*types.Variant) []*types.Variant {
	ordered := make([]*types.Variant, len(variants))
	copy(ordered, variants)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].IsControl != ordered[j].IsControl {
			return ordered[i].IsControl
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	return ordered
}
