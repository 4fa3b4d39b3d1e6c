package engine

import (
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shopfloorlabs/oee-engine/internal/models"
	"github.com/shopfloorlabs/oee-engine/internal/utils"
)

// DefaultVariationPercent is the stock perturbation size for sensitivity and
// leverage analysis.
const DefaultVariationPercent = 10.0

// dimension is one independently perturbable input.
type dimension struct {
	name  string
	apply func(models.OeeInput, float64) models.OeeInput
}

func sensitivityDimensions() []dimension {
	return []dimension{
		{name: "planned_time", apply: scalePlanned},
		{name: "total_units", apply: scaleTotalUnits},
		{name: "good_units", apply: scaleGoodUnits},
		{name: "ideal_cycle_time", apply: scaleIdealCycle},
		{name: "running_time", apply: scaleAllocations(true)},
		{name: "downtime", apply: scaleAllocations(false)},
	}
}

// AnalyzeSensitivity perturbs each independent input by ±variationPercent,
// recomputes OEE, and records the delta per dimension: a finite-difference
// elasticity estimate, not a closed-form derivative. Perturbations are
// independent and run concurrently, bounded by the dimension count.
func AnalyzeSensitivity(in models.OeeInput, variationPercent float64) models.SensitivityAnalysis {
	if variationPercent <= 0 {
		variationPercent = DefaultVariationPercent
	}
	factor := variationPercent / 100.0

	base := ComputeCoreMetrics(in).OEE.Value
	dims := sensitivityDimensions()
	results := make([]models.SensitivityResult, len(dims))

	var g errgroup.Group
	for i, dim := range dims {
		g.Go(func() error {
			minus := ComputeCoreMetrics(dim.apply(in, 1-factor)).OEE.Value
			plus := ComputeCoreMetrics(dim.apply(in, 1+factor)).OEE.Value
			results[i] = models.SensitivityResult{
				Dimension: dim.name,
				OEEMinus:  minus,
				OEEPlus:   plus,
				Delta:     (math.Abs(plus-base) + math.Abs(minus-base)) / 2,
			}
			return nil
		})
	}
	_ = g.Wait()

	return models.SensitivityAnalysis{
		BaselineOEE:      base,
		VariationPercent: variationPercent,
		Results:          results,
	}
}

// AnalyzeLeverage computes, per loss category, the hypothetical OEE and
// good-unit gain if that category's duration were eliminated entirely, paired
// with a stability score for the gain estimate. Ranking is by opportunity
// points descending, ties broken by the more stable estimate.
func AnalyzeLeverage(in models.OeeInput, thresholds models.ThresholdConfiguration, variationPercent float64) models.LeverageAnalysis {
	if variationPercent <= 0 {
		variationPercent = DefaultVariationPercent
	}
	factor := variationPercent / 100.0

	base := ComputeCoreMetrics(in)
	tree := BuildLossTree(in, thresholds)

	impacts := make([]models.LeverageImpact, 0, 8)
	for _, branch := range tree.Root.Children {
		if branch.Category == models.LossEffective {
			continue
		}
		targets := branch.Children
		if len(targets) == 0 {
			targets = []models.LossNode{branch}
		}
		for _, node := range targets {
			if node.Duration <= 0 {
				continue
			}
			hyp, unitGain := hypotheticalOEE(in, base, node.Category, node.Key, node.Duration)
			gain := hyp - base.OEE.Value

			score := stabilityScore(func(d time.Duration) float64 {
				oee, _ := hypotheticalOEE(in, base, node.Category, node.Key, d)
				return oee - base.OEE.Value
			}, node.Duration, factor)

			impacts = append(impacts, models.LeverageImpact{
				Category:             node.Category,
				NodeKey:              node.Key,
				Duration:             node.Duration,
				HypotheticalOEE:      hyp,
				OeeOpportunityPoints: gain * 100,
				ThroughputUnitGain:   unitGain,
				SensitivityScore:     score,
			})
		}
	}

	sort.SliceStable(impacts, func(i, j int) bool {
		if math.Abs(impacts[i].OeeOpportunityPoints-impacts[j].OeeOpportunityPoints) > 1e-9 {
			return impacts[i].OeeOpportunityPoints > impacts[j].OeeOpportunityPoints
		}
		if impacts[i].SensitivityScore != impacts[j].SensitivityScore {
			return impacts[i].SensitivityScore < impacts[j].SensitivityScore
		}
		return impacts[i].NodeKey < impacts[j].NodeKey
	})

	return models.LeverageAnalysis{BaselineOEE: base.OEE.Value, Impacts: impacts}
}

// hypotheticalOEE recomputes OEE with one loss category's duration handed
// back: availability losses become operating time producing at the current
// quality rate, performance losses become ideal-rate output, quality
// time-equivalents become good units again.
func hypotheticalOEE(in models.OeeInput, base models.CoreMetrics, category models.LossCategory, nodeKey string, d time.Duration) (float64, float64) {
	planned := in.Time.Planned.Value().Seconds()
	operating := base.OperatingTime.Seconds()
	ideal := in.CycleTime.Ideal.Value().Seconds()
	total := float64(in.Production.Total.Value())
	good := float64(in.Production.Good.Value())
	qualityRate := utils.SafeDiv(good, total)

	switch category {
	case models.LossAvailability:
		extra := utils.SafeDiv(d.Seconds(), ideal)
		newOperating := operating + d.Seconds()
		a := utils.SafeDiv(newOperating, planned)
		p := utils.SafeDiv(ideal*(total+extra), newOperating)
		q := utils.SafeDiv(good+extra*qualityRate, total+extra)
		return a * p * q, extra * qualityRate

	case models.LossPerformance:
		extra := utils.SafeDiv(d.Seconds(), ideal)
		a := utils.SafeDiv(operating, planned)
		p := utils.SafeDiv(ideal*(total+extra), operating)
		q := utils.SafeDiv(good+extra*qualityRate, total+extra)
		return a * p * q, extra * qualityRate

	case models.LossQuality:
		recovered := utils.SafeDiv(d.Seconds(), ideal)
		a := utils.SafeDiv(operating, planned)
		p := utils.SafeDiv(ideal*total, operating)
		q := utils.SafeDiv(good+recovered, total)
		return a * p * q, recovered

	default:
		return base.OEE.Value, 0
	}
}

// stabilityScore probes the gain estimate at ±factor around the category
// duration. A proportional first-order response is expected and scores zero;
// only asymmetric or nonlinear movement marks the estimate as fragile.
func stabilityScore(gainAt func(time.Duration) float64, d time.Duration, factor float64) float64 {
	baseGain := gainAt(d)
	if math.Abs(baseGain) < 1e-12 {
		return 0
	}
	plus := gainAt(utils.ScaleDuration(d, 1+factor))
	minus := gainAt(utils.ScaleDuration(d, 1-factor))

	relPlus := (plus - baseGain) / baseGain
	relMinus := (minus - baseGain) / baseGain
	return utils.Clamp(math.Abs(relPlus+relMinus)/(2*factor), 0, 1)
}

func scalePlanned(in models.OeeInput, factor float64) models.OeeInput {
	out := in.Clone()
	planned := in.Time.Planned
	out.Time.Planned = models.Derived(utils.ScaleDuration(planned.Value(), factor), planned.Source())
	return out
}

func scaleTotalUnits(in models.OeeInput, factor float64) models.OeeInput {
	out := in.Clone()
	total := in.Production.Total
	out.Production.Total = models.Derived(scaleCount(total.Value(), factor), total.Source())
	return out
}

func scaleGoodUnits(in models.OeeInput, factor float64) models.OeeInput {
	out := in.Clone()
	good := in.Production.Good
	out.Production.Good = models.Derived(scaleCount(good.Value(), factor), good.Source())
	return out
}

func scaleIdealCycle(in models.OeeInput, factor float64) models.OeeInput {
	out := in.Clone()
	ideal := in.CycleTime.Ideal
	out.CycleTime.Ideal = models.Derived(utils.ScaleDuration(ideal.Value(), factor), ideal.Source())
	return out
}

// scaleAllocations perturbs either the running allocations or everything else.
func scaleAllocations(running bool) func(models.OeeInput, float64) models.OeeInput {
	return func(in models.OeeInput, factor float64) models.OeeInput {
		out := in.Clone()
		for i, alloc := range out.Time.Allocations {
			if (alloc.State == models.StateRunning) != running {
				continue
			}
			out.Time.Allocations[i].Duration = models.Derived(
				utils.ScaleDuration(alloc.Duration.Value(), factor), alloc.Duration.Source())
		}
		return out
	}
}

func scaleCount(v uint64, factor float64) uint64 {
	scaled := math.Round(float64(v) * factor)
	if scaled < 0 {
		return 0
	}
	return uint64(scaled)
}
