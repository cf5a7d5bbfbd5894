package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/narsimha-film/abtest-backend/internal/logger"
	"github.com/narsimha-film/abtest-backend/internal/types"
)

type EventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, event *types.Event) (*types.Event, error)
	MetricsByExperimentID(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID) ([]types.VariantMetrics, error)
}

type eventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	repoLog := baseLog.With("repo", "EventRepo")
	return &eventRepo{db: db, log: repoLog}
}

func (r *eventRepo) Create(ctx context.Context, tx *gorm.DB, event *types.Event) (*types.Event, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	if err := transaction.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

type metricsRow struct {
	VariantID   uuid.UUID `gorm:"column:variant_id"`
	VariantName string    `gorm:"column:variant_name"`
	IsControl   bool      `gorm:"column:is_control"`
	Views       int64     `gorm:"column:views"`
	Clicks      int64     `gorm:"column:clicks"`
	Conversions int64     `gorm:"column:conversions"`
	Purchases   int64     `gorm:"column:purchases"`
	Revenue     float64   `gorm:"column:revenue"`
}

// MetricsByExperimentID aggregates the event table per variant. Variants
// with no events yet still appear, zeroed, so a fresh experiment renders a
// complete dashboard row set.
func (r *eventRepo) MetricsByExperimentID(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID) ([]types.VariantMetrics, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var rows []metricsRow
	if err := transaction.WithContext(ctx).Raw(`
		SELECT
			v.id   AS variant_id,
			v.name AS variant_name,
			v.is_control,
			COALESCE(SUM(CASE WHEN e.type = 'view' THEN 1 ELSE 0 END), 0)       AS views,
			COALESCE(SUM(CASE WHEN e.type = 'click' THEN 1 ELSE 0 END), 0)      AS clicks,
			COALESCE(SUM(CASE WHEN e.type = 'conversion' THEN 1 ELSE 0 END), 0) AS conversions,
			COALESCE(SUM(CASE WHEN e.type = 'purchase' THEN 1 ELSE 0 END), 0)   AS purchases,
			COALESCE(SUM(CASE WHEN e.type = 'purchase' THEN e.value ELSE 0 END), 0) AS revenue
		FROM experiment_variant v
		LEFT JOIN experiment_event e ON e.variant_id = v.id
		WHERE v.experiment_id = ?
		GROUP BY v.id, v.name, v.is_control, v.created_at
		ORDER BY v.is_control DESC, v.created_at ASC
	`, experimentID).Scan(&rows).Error; err != nil {
		return nil, err
	}

	metrics := make([]types.VariantMetrics, 0, len(rows))
	for _, row := range rows {
		m := types.VariantMetrics{
			VariantID:   row.VariantID,
			VariantName: row.VariantName,
			IsControl:   row.IsControl,
			Views:       row.Views,
			Clicks:      row.Clicks,
			Conversions: row.Conversions,
			Purchases:   row.Purchases,
			Revenue:     row.Revenue,
		}
		if m.Views > 0 {
			m.ConversionRate = float64(m.Conversions) / float64(m.Views) * 100
			m.ClickThroughRate = float64(m.Clicks) / float64(m.Views) * 100
		}
		if m.Purchases > 0 {
			m.AvgOrderValue = m.Revenue / float64(m.Purchases)
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}
