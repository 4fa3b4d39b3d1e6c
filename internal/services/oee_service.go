package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shopfloorlabs/oee-engine/internal/engine"
	"github.com/shopfloorlabs/oee-engine/internal/metrics"
	"github.com/shopfloorlabs/oee-engine/internal/models"
	"github.com/shopfloorlabs/oee-engine/internal/utils"
)

// Report wraps an analysis output with its delivery metadata. Report identity
// and wall-clock time live here, never inside the deterministic engine.
type Report[T any] struct {
	ReportID  string
	CreatedAt time.Time
	Payload   T
}

// OeeService fronts the pipeline: it stamps reports, observes latency and
// counts outcomes. All computation stays in the engine.
type OeeService struct {
	pipeline *engine.Pipeline
	logger   *slog.Logger
	latency  *utils.LatencyTracker
	now      func() time.Time
	newID    func() string
}

func NewOeeService(pipeline *engine.Pipeline, logger *slog.Logger) *OeeService {
	return &OeeService{
		pipeline: pipeline,
		logger:   logger,
		latency:  utils.NewLatencyTracker(4096),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Latency exposes the service-side latency tracker.
func (s *OeeService) Latency() *utils.LatencyTracker { return s.latency }

func (s *OeeService) Calculate(ctx context.Context, in models.OeeInput, thresholds models.ThresholdConfiguration) (Report[models.OeeResult], error) {
	started := s.now()
	result, err := s.pipeline.Calculate(ctx, in, thresholds)
	s.observe("calculate", started, err)
	if err != nil {
		return Report[models.OeeResult]{}, err
	}
	s.countIssues(result.Validation)
	return stamp(s, result), nil
}

func (s *OeeService) CalculateWithEconomics(ctx context.Context, in models.OeeInput, thresholds models.ThresholdConfiguration, params models.EconomicParameters) (Report[models.OeeResult], error) {
	started := s.now()
	result, err := s.pipeline.CalculateWithEconomics(ctx, in, thresholds, params)
	s.observe("calculate_with_economics", started, err)
	if err != nil {
		return Report[models.OeeResult]{}, err
	}
	s.countIssues(result.Validation)
	return stamp(s, result), nil
}

func (s *OeeService) CalculateFull(ctx context.Context, in models.OeeInput, thresholds models.ThresholdConfiguration, opts engine.FullOptions) (Report[models.FullResult], error) {
	started := s.now()
	result, err := s.pipeline.CalculateFull(ctx, in, thresholds, opts)
	s.observe("calculate_full", started, err)
	if err != nil {
		return Report[models.FullResult]{}, err
	}
	s.countIssues(result.Result.Validation)
	return stamp(s, result), nil
}

func (s *OeeService) AnalyzeSensitivity(ctx context.Context, in models.OeeInput, variationPercent float64) (Report[models.SensitivityAnalysis], error) {
	started := s.now()
	analysis, err := s.pipeline.AnalyzeSensitivity(ctx, in, variationPercent)
	s.observe("analyze_sensitivity", started, err)
	if err != nil {
		return Report[models.SensitivityAnalysis]{}, err
	}
	return stamp(s, analysis), nil
}

func (s *OeeService) AnalyzeLeverage(ctx context.Context, in models.OeeInput, thresholds models.ThresholdConfiguration, variationPercent float64) (Report[models.LeverageAnalysis], error) {
	started := s.now()
	analysis, err := s.pipeline.AnalyzeLeverage(ctx, in, thresholds, variationPercent)
	s.observe("analyze_leverage", started, err)
	if err != nil {
		return Report[models.LeverageAnalysis]{}, err
	}
	return stamp(s, analysis), nil
}

func (s *OeeService) AggregateSystem(ctx context.Context, machines []models.MachineOeeData, method models.AggregationMethod) (Report[models.SystemOeeAnalysis], error) {
	started := s.now()
	analysis, err := s.pipeline.AggregateSystem(ctx, machines, method)
	s.observe("aggregate_system", started, err)
	if err != nil {
		return Report[models.SystemOeeAnalysis]{}, err
	}
	return stamp(s, analysis), nil
}

func (s *OeeService) CompareAggregationMethods(ctx context.Context, machines []models.MachineOeeData) (Report[models.AggregationComparison], error) {
	started := s.now()
	comparison, err := s.pipeline.CompareAggregationMethods(ctx, machines)
	s.observe("compare_aggregation_methods", started, err)
	if err != nil {
		return Report[models.AggregationComparison]{}, err
	}
	return stamp(s, comparison), nil
}

func stamp[T any](s *OeeService, payload T) Report[T] {
	return Report[T]{
		ReportID:  s.newID(),
		CreatedAt: s.now().UTC(),
		Payload:   payload,
	}
}

func (s *OeeService) observe(operation string, started time.Time, err error) {
	elapsed := s.now().Sub(started)
	s.latency.Observe(elapsed)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		s.logger.Warn("calculation failed",
			slog.String("operation", operation),
			slog.Any("error", err))
	}
	metrics.ObserveCalculation(operation, outcome, elapsed)
}

func (s *OeeService) countIssues(v models.ValidationResult) {
	for _, issue := range v.Issues {
		metrics.ValidationIssuesTotal.WithLabelValues(string(issue.Severity)).Inc()
	}
}
