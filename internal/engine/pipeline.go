package engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shopfloorlabs/oee-engine/internal/models"
	"github.com/shopfloorlabs/oee-engine/internal/utils"
)

// Pipeline composes the pure stages behind the engine's entry points. Every
// stage is deterministic and side-effect-free; identical inputs always yield
// identical results.
type Pipeline struct {
	logger     *slog.Logger
	tolerances Tolerances
}

// NewPipeline constructs the calculation pipeline.
func NewPipeline(logger *slog.Logger, tolerances Tolerances) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{logger: logger, tolerances: tolerances}
}

// FullOptions selects the optional stages of CalculateFull.
type FullOptions struct {
	Economics            *models.EconomicParameters
	IncludeSensitivity   bool
	SensitivityVariation float64
	// TemporalScrapWindow enables the startup-vs-steady scrap split when
	// positive. There is no default window.
	TemporalScrapWindow time.Duration
}

// DefaultFullOptions enables sensitivity at the stock variation.
func DefaultFullOptions() FullOptions {
	return FullOptions{
		IncludeSensitivity:   true,
		SensitivityVariation: DefaultVariationPercent,
	}
}

// Calculate runs the core pipeline: validation, metrics, loss tree and
// ledger. Validation issues never block; only structural errors do.
func (p *Pipeline) Calculate(ctx context.Context, in models.OeeInput, thresholds models.ThresholdConfiguration) (models.OeeResult, error) {
	return p.calculate(ctx, in, thresholds, nil)
}

// CalculateWithEconomics runs the core pipeline plus the economic stage.
func (p *Pipeline) CalculateWithEconomics(ctx context.Context, in models.OeeInput, thresholds models.ThresholdConfiguration, params models.EconomicParameters) (models.OeeResult, error) {
	return p.calculate(ctx, in, thresholds, &params)
}

func (p *Pipeline) calculate(_ context.Context, in models.OeeInput, thresholds models.ThresholdConfiguration, params *models.EconomicParameters) (models.OeeResult, error) {
	if err := in.CheckStructural(); err != nil {
		return models.OeeResult{}, utils.NewStructuralError("engine.calculate", err)
	}

	validation := Validate(in, p.tolerances)
	if !validation.IsValid {
		p.logger.Debug("input has fatal consistency issues, result is best-effort",
			slog.String("machine_id", in.Machine.MachineID),
			slog.Int("issues", len(validation.Issues)))
	}

	core := ComputeCoreMetrics(in)
	extended := ComputeExtendedMetrics(in, core)
	tree := BuildLossTree(in, thresholds)
	ledger := BuildLedger(in, validation, thresholds, in.Window.End)

	result := models.OeeResult{
		Core:       core,
		Extended:   extended,
		LossTree:   tree,
		Ledger:     ledger,
		Validation: validation,
	}
	if params != nil {
		economics := AnalyzeEconomics(in, tree, *params)
		result.Economics = &economics
	}
	return result, nil
}

// CalculateFull runs the core pipeline and the selected optional stages.
// The optional stages are independent given the same input and run
// concurrently before the join.
func (p *Pipeline) CalculateFull(ctx context.Context, in models.OeeInput, thresholds models.ThresholdConfiguration, opts FullOptions) (models.FullResult, error) {
	if err := in.CheckStructural(); err != nil {
		return models.FullResult{}, utils.NewStructuralError("engine.calculate_full", err)
	}

	validation := Validate(in, p.tolerances)
	core := ComputeCoreMetrics(in)
	extended := ComputeExtendedMetrics(in, core)
	tree := BuildLossTree(in, thresholds)

	full := models.FullResult{
		Result: models.OeeResult{
			Core:       core,
			Extended:   extended,
			LossTree:   tree,
			Validation: validation,
		},
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		full.Result.Ledger = BuildLedger(in, validation, thresholds, in.Window.End)
		return nil
	})
	if opts.Economics != nil {
		g.Go(func() error {
			economics := AnalyzeEconomics(in, tree, *opts.Economics)
			full.Result.Economics = &economics
			return nil
		})
	}
	if opts.IncludeSensitivity {
		g.Go(func() error {
			sensitivity := AnalyzeSensitivity(in, opts.SensitivityVariation)
			full.Sensitivity = &sensitivity
			return nil
		})
	}
	if opts.TemporalScrapWindow > 0 {
		g.Go(func() error {
			scrap, err := AnalyzeTemporalScrap(in, opts.TemporalScrapWindow)
			if err != nil {
				return err
			}
			full.TemporalScrap = &scrap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.FullResult{}, utils.NewAppError("engine.calculate_full", "optional stage failed", err)
	}

	return full, nil
}

// AnalyzeSensitivity perturbs each input dimension and reports OEE deltas.
func (p *Pipeline) AnalyzeSensitivity(_ context.Context, in models.OeeInput, variationPercent float64) (models.SensitivityAnalysis, error) {
	if err := in.CheckStructural(); err != nil {
		return models.SensitivityAnalysis{}, utils.NewStructuralError("engine.analyze_sensitivity", err)
	}
	return AnalyzeSensitivity(in, variationPercent), nil
}

// AnalyzeLeverage ranks loss categories by elimination impact.
func (p *Pipeline) AnalyzeLeverage(_ context.Context, in models.OeeInput, thresholds models.ThresholdConfiguration, variationPercent float64) (models.LeverageAnalysis, error) {
	if err := in.CheckStructural(); err != nil {
		return models.LeverageAnalysis{}, utils.NewStructuralError("engine.analyze_leverage", err)
	}
	return AnalyzeLeverage(in, thresholds, variationPercent), nil
}

// AggregateSystem combines single-unit results under one method.
func (p *Pipeline) AggregateSystem(_ context.Context, machines []models.MachineOeeData, method models.AggregationMethod) (models.SystemOeeAnalysis, error) {
	analysis, err := AggregateSystem(machines, method)
	if err != nil {
		return models.SystemOeeAnalysis{}, utils.NewStructuralError("engine.aggregate_system", err)
	}
	return analysis, nil
}

// CompareAggregationMethods computes every aggregation method and recommends one.
func (p *Pipeline) CompareAggregationMethods(_ context.Context, machines []models.MachineOeeData) (models.AggregationComparison, error) {
	comparison, err := CompareAggregationMethods(machines)
	if err != nil {
		return models.AggregationComparison{}, utils.NewStructuralError("engine.compare_aggregation_methods", err)
	}
	return comparison, nil
}
