package types

import "github.com/google/uuid"

// VariantMetrics is the per-variant aggregate over the event table.
// Rates are percentages; AvgOrderValue is revenue per purchase event.
type VariantMetrics struct {
	VariantID        uuid.UUID `json:"variant_id"`
	VariantName      string    `json:"variant_name"`
	IsControl        bool      `json:"is_control"`
	Views            int64     `json:"views"`
	Clicks           int64     `json:"clicks"`
	Conversions      int64     `json:"conversions"`
	Purchases        int64     `json:"purchases"`
	Revenue          float64   `json:"revenue"`
	ConversionRate   float64   `json:"conversion_rate"`
	ClickThroughRate float64   `json:"click_through_rate"`
	AvgOrderValue    float64   `json:"avg_order_value"`
}
