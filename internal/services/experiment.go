package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/narsimha-film/abtest-backend/internal/assignment"
	"github.com/narsimha-film/abtest-backend/internal/identity"
	"github.com/narsimha-film/abtest-backend/internal/logger"
	"github.com/narsimha-film/abtest-backend/internal/repos"
	"github.com/narsimha-film/abtest-backend/internal/stats"
	"github.com/narsimha-film/abtest-backend/internal/types"
)

// splitTolerance absorbs float error in traffic splits like 33.3/33.3/33.4.
const splitTolerance = 0.01

// AssignOptions carries the optional request signals for an assignment.
type AssignOptions struct {
	UserID    *int64
	IP        string
	UserAgent string
}

// VariantAssignment is the consumer-facing view of a persisted assignment.
type VariantAssignment struct {
	ExperimentID   uuid.UUID       `json:"experiment_id"`
	ExperimentName string          `json:"experiment_name"`
	VariantID      uuid.UUID       `json:"variant_id"`
	VariantName    string          `json:"variant_name"`
	Config         json.RawMessage `json:"config"`
	AssignmentID   uuid.UUID       `json:"assignment_id"`
}

type VariantInput struct {
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	TrafficSplit float64        `json:"traffic_split"`
	Config       map[string]any `json:"config"`
	IsControl    bool           `json:"is_control,omitempty"`
}

type CreateExperimentInput struct {
	Name              string         `json:"name"`
	Description       string         `json:"description,omitempty"`
	TrafficPercentage *float64       `json:"traffic_percentage,omitempty"`
	Variants          []VariantInput `json:"variants"`
}

type VariantResult struct {
	types.VariantMetrics
	Significance stats.Significance `json:"significance"`
}

type ResultsSummary struct {
	TotalViews        int64   `json:"total_views"`
	TotalConversions  int64   `json:"total_conversions"`
	TotalRevenue      float64 `json:"total_revenue"`
	AvgConversionRate float64 `json:"avg_conversion_rate"`
}

type ExperimentResults struct {
	Experiment       *types.Experiment `json:"experiment"`
	Results          []VariantResult   `json:"results"`
	TotalAssignments int64             `json:"total_assignments"`
	Summary          ResultsSummary    `json:"summary"`
}

type ExperimentService interface {
	AssignUser(ctx context.Context, tx *gorm.DB, experimentName, sessionID string, opts AssignOptions) (*VariantAssignment, error)
	UserExperiments(ctx context.Context, tx *gorm.DB, sessionID string, opts AssignOptions) ([]*VariantAssignment, error)
	TrackEvent(ctx context.Context, tx *gorm.DB, assignmentID uuid.UUID, eventType string, data map[string]any, value float64) (bool, error)
	CreateExperiment(ctx context.Context, tx *gorm.DB, input CreateExperimentInput) (uuid.UUID, error)
	StartExperiment(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Experiment, error)
	PauseExperiment(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Experiment, error)
	StopExperiment(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Experiment, error)
	GetResults(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*ExperimentResults, error)
}

type experimentService struct {
	db             *gorm.DB
	log            *logger.Logger
	hasher         *identity.Hasher
	experimentRepo repos.ExperimentRepo
	variantRepo    repos.VariantRepo
	assignmentRepo repos.AssignmentRepo
	eventRepo      repos.EventRepo
}

func NewExperimentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	hasher *identity.Hasher,
	experimentRepo repos.ExperimentRepo,
	variantRepo repos.VariantRepo,
	assignmentRepo repos.AssignmentRepo,
	eventRepo repos.EventRepo,
) ExperimentService {
	return &experimentService{
		db:             db,
		log:            baseLog.With("service", "ExperimentService"),
		hasher:         hasher,
		experimentRepo: experimentRepo,
		variantRepo:    variantRepo,
		assignmentRepo: assignmentRepo,
		eventRepo:      eventRepo,
	}
}

// AssignUser resolves or creates the visitor's assignment for one named
// experiment. A nil result with nil error means "show the default
// experience": the experiment is missing or not running, the visitor is a
// bot, the experiment has no variants, or the sampling gate excluded them.
// Repeated calls with the same session never create duplicate rows.
func (s *experimentService) AssignUser(ctx context.Context, tx *gorm.DB, experimentName, sessionID string, opts AssignOptions) (*VariantAssignment, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, nil
	}
	if opts.UserAgent != "" && identity.IsBot(opts.UserAgent) {
		return nil, nil
	}

	exp, err := s.experimentRepo.GetByName(ctx, tx, experimentName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if exp.Status != types.ExperimentStatusRunning {
		return nil, nil
	}

	return s.assignToExperiment(ctx, tx, exp, sessionID, opts)
}

// UserExperiments evaluates every currently running experiment for this
// visitor.
func (s *experimentService) UserExperiments(ctx context.Context, tx *gorm.DB, sessionID string, opts AssignOptions) ([]*VariantAssignment, error) {
	running, err := s.experimentRepo.ListRunning(ctx, tx)
	if err != nil {
		return nil, err
	}

	assignments := make([]*VariantAssignment, 0, len(running))
	for _, exp := range running {
		va, err := s.AssignUser(ctx, tx, exp.Name, sessionID, opts)
		if err != nil {
			return nil, err
		}
		if va != nil {
			assignments = append(assignments, va)
		}
	}
	return assignments, nil
}

func (s *experimentService) assignToExperiment(ctx context.Context, tx *gorm.DB, exp *types.Experiment, sessionID string, opts AssignOptions) (*VariantAssignment, error) {
	existing, err := s.assignmentRepo.GetBySession(ctx, tx, exp.ID, sessionID, opts.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.assignmentView(ctx, tx, exp, existing)
	}

	variants, err := s.variantRepo.GetByExperimentID(ctx, tx, exp.ID)
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, nil
	}

	userHash := s.hasher.UserHash(sessionID, opts.IP, opts.UserAgent)
	selected := assignment.Assign(variants, userHash, exp.TrafficPercentage)
	if selected == nil {
		// Sampled out; persist nothing so the visitor stays unenrolled.
		return nil, nil
	}

	row := &types.Assignment{
		ExperimentID: exp.ID,
		VariantID:    selected.ID,
		UserID:       opts.UserID,
		SessionID:    sessionID,
	}
	if opts.IP != "" {
		ipHash := s.hasher.HashIP(opts.IP)
		row.IPHash = &ipHash
	}
	if opts.UserAgent != "" {
		uaHash := s.hasher.HashUserAgent(opts.UserAgent)
		row.UserAgentHash = &uaHash
	}

	created, err := s.assignmentRepo.Create(ctx, tx, row)
	if err != nil {
		return nil, err
	}
	s.log.Debug("Assigned visitor to variant",
		"experiment", exp.Name,
		"variant", selected.Name,
		"assignment_id", created.ID.String(),
	)
	return s.assignmentView(ctx, tx, exp, created)
}

func (s *experimentService) assignmentView(ctx context.Context, tx *gorm.DB, exp *types.Experiment, a *types.Assignment) (*VariantAssignment, error) {
	variant, err := s.variantRepo.GetByID(ctx, tx, a.VariantID)
	if err != nil {
		return nil, fmt.Errorf("resolve assigned variant: %w", err)
	}
	return &VariantAssignment{
		ExperimentID:   exp.ID,
		ExperimentName: exp.Name,
		VariantID:      variant.ID,
		VariantName:    variant.Name,
		Config:         json.RawMessage(variant.Config),
		AssignmentID:   a.ID,
	}, nil
}

// TrackEvent appends one event against an assignment. An unknown
// assignment id yields (false, nil) because tracking is best-effort
// telemetry; store errors still propagate.
func (s *experimentService) TrackEvent(ctx context.Context, tx *gorm.DB, assignmentID uuid.UUID, eventType string, data map[string]any, value float64) (bool, error) {
	if !types.ValidEventType(eventType) {
		return false, fmt.Errorf("invalid event type %q", eventType)
	}

	a, err := s.assignmentRepo.GetByID(ctx, tx, assignmentID)
	if err != nil {
		return false, err
	}
	if a == nil {
		return false, nil
	}

	event := &types.Event{
		ExperimentID: a.ExperimentID,
		VariantID:    a.VariantID,
		AssignmentID: a.ID,
		Type:         eventType,
	}
	if eventType == types.EventTypePurchase {
		event.Value = value
	}
	if len(data) > 0 {
		raw, err := json.Marshal(data)
		if err != nil {
			return false, fmt.Errorf("marshal event data: %w", err)
		}
		event.Data = datatypes.JSON(raw)
	}

	if _, err := s.eventRepo.Create(ctx, tx, event); err != nil {
		return false, err
	}
	return true, nil
}

// CreateExperiment creates an experiment and its variants as one unit.
// Variant traffic splits must sum to 100.
func (s *experimentService) CreateExperiment(ctx context.Context, tx *gorm.DB, input CreateExperimentInput) (uuid.UUID, error) {
	if strings.TrimSpace(input.Name) == "" {
		return uuid.Nil, fmt.Errorf("experiment name is required")
	}
	if err := validateSplits(input.Variants); err != nil {
		return uuid.Nil, err
	}

	trafficPercentage := float64(assignment.DefaultTrafficPercentage)
	if input.TrafficPercentage != nil {
		trafficPercentage = *input.TrafficPercentage
	}
	if trafficPercentage < 0 || trafficPercentage > 100 {
		return uuid.Nil, fmt.Errorf("traffic percentage must be within [0,100], got %v", trafficPercentage)
	}

	exp := &types.Experiment{
		Name:              strings.TrimSpace(input.Name),
		Description:       input.Description,
		Status:            types.ExperimentStatusDraft,
		TrafficPercentage: trafficPercentage,
	}
	if _, err := s.experimentRepo.Create(ctx, tx, exp); err != nil {
		return uuid.Nil, err
	}

	now := time.Now().UTC()
	variants := make([]*types.Variant, 0, len(input.Variants))
	for i, in := range input.Variants {
		config := in.Config
		if config == nil {
			config = map[string]any{}
		}
		raw, err := json.Marshal(config)
		if err != nil {
			return uuid.Nil, fmt.Errorf("marshal variant config %q: %w", in.Name, err)
		}
		variants = append(variants, &types.Variant{
			ExperimentID: exp.ID,
			Name:         in.Name,
			Description:  in.Description,
			TrafficSplit: in.TrafficSplit,
			Config:       datatypes.JSON(raw),
			IsControl:    in.IsControl,
			// Spaced timestamps keep creation order observable in the
			// control-first/created-asc read path.
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
			UpdatedAt: now,
		})
	}
	if _, err := s.variantRepo.CreateBatch(ctx, tx, variants); err != nil {
		return uuid.Nil, err
	}

	s.log.Info("Created experiment", "experiment", exp.Name, "variants", len(variants))
	return exp.ID, nil
}

func validateSplits(variants []VariantInput) error {
	if len(variants) == 0 {
		return fmt.Errorf("at least one variant is required")
	}
	var total float64
	for _, v := range variants {
		if strings.TrimSpace(v.Name) == "" {
			return fmt.Errorf("variant name is required")
		}
		if v.TrafficSplit < 0 {
			return fmt.Errorf("variant %q has negative traffic split", v.Name)
		}
		total += v.TrafficSplit
	}
	if math.Abs(total-100) > splitTolerance {
		return fmt.Errorf("variant traffic splits must sum to 100, got %v", total)
	}
	return nil
}

func (s *experimentService) StartExperiment(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Experiment, error) {
	return s.experimentRepo.UpdateStatus(ctx, tx, id, types.ExperimentStatusRunning)
}

func (s *experimentService) PauseExperiment(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Experiment, error) {
	return s.experimentRepo.UpdateStatus(ctx, tx, id, types.ExperimentStatusPaused)
}

func (s *experimentService) StopExperiment(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Experiment, error) {
	return s.experimentRepo.UpdateStatus(ctx, tx, id, types.ExperimentStatusCompleted)
}

// GetResults loads the full experiment summary and enriches every
// variant's metrics with significance against the control baseline.
func (s *experimentService) GetResults(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*ExperimentResults, error) {
	exp, err := s.experimentRepo.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	variants, err := s.variantRepo.GetByExperimentID(ctx, tx, exp.ID)
	if err != nil {
		return nil, err
	}
	metrics, err := s.eventRepo.MetricsByExperimentID(ctx, tx, exp.ID)
	if err != nil {
		return nil, err
	}
	totalAssignments, err := s.assignmentRepo.CountByExperimentID(ctx, tx, exp.ID)
	if err != nil {
		return nil, err
	}

	control := stats.PickControl(metrics, variants)

	results := make([]VariantResult, 0, len(metrics))
	var summary ResultsSummary
	for _, m := range metrics {
		result := VariantResult{VariantMetrics: m}
		if control != nil {
			result.Significance = stats.Compare(m, *control)
		}
		results = append(results, result)

		summary.TotalViews += m.Views
		summary.TotalConversions += m.Conversions
		summary.TotalRevenue += m.Revenue
		summary.AvgConversionRate += m.ConversionRate
	}
	if len(metrics) > 0 {
		summary.AvgConversionRate /= float64(len(metrics))
	}

	return &ExperimentResults{
		Experiment:       exp,
		Results:          results,
		TotalAssignments: totalAssignments,
		Summary:          summary,
	}, nil
}
