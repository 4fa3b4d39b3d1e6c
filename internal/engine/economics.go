package engine

import (
	"time"

	"github.com/shopfloorlabs/oee-engine/internal/models"
	"github.com/shopfloorlabs/oee-engine/internal/utils"
)

// Economic note codes.
const (
	NoteNegativeMargin = "negative_margin_implied"
	NoteWideRange      = "wide_range_uncertainty"
)

// AnalyzeEconomics maps loss durations and three-point unit economics into
// uncertainty-bounded impact estimates. Every figure is an estimate carried
// as a range, with the literal assumption keys it consumed.
func AnalyzeEconomics(in models.OeeInput, tree models.LossTree, params models.EconomicParameters) models.EconomicAnalysis {
	idealSec := in.CycleTime.Ideal.Value().Seconds()
	availLoss := branchDuration(tree, "availability")
	perfLoss := branchDuration(tree, "performance")

	scrapUnits := float64(in.Production.Scrap.Value())
	reworkUnits := float64(in.Production.Reworked.Value())

	// Additional units achievable at ideal rate if availability and
	// performance losses were zero.
	additionalUnits := utils.SafeDiv((availLoss + perfLoss).Seconds(), idealSec)
	throughputLoss := models.EconomicImpact{
		Range:    params.MarginalContribution.Scale(additionalUnits),
		Currency: params.Currency,
		AssumptionKeys: []string{
			"time.allocations", "cycle.ideal", "production.total",
			"economics.marginal_contribution",
		},
	}

	materialWaste := models.EconomicImpact{
		Range:          params.MaterialCost.Scale(scrapUnits),
		Currency:       params.Currency,
		AssumptionKeys: []string{"production.scrap", "economics.material_cost"},
	}

	laborPerUnit := params.LaborCostPerHour.Scale(idealSec / 3600.0)
	reworkCost := models.EconomicImpact{
		Range:    params.MaterialCost.Add(laborPerUnit).Scale(reworkUnits),
		Currency: params.Currency,
		AssumptionKeys: []string{
			"production.reworked", "cycle.ideal",
			"economics.material_cost", "economics.labor_cost_per_hour",
		},
	}

	var allocated time.Duration
	for _, alloc := range in.Time.Allocations {
		allocated += alloc.Duration.Value()
	}
	unallocated := in.Time.Planned.Value() - allocated
	if unallocated < 0 {
		unallocated = 0
	}
	unallocatedUnits := utils.SafeDiv(unallocated.Seconds(), idealSec)
	opportunityCost := models.EconomicImpact{
		Range:    params.UnitPrice.Scale(unallocatedUnits),
		Currency: params.Currency,
		AssumptionKeys: []string{
			"time.planned", "time.allocations", "cycle.ideal",
			"economics.unit_price",
		},
	}

	total := models.EconomicImpact{
		Range: throughputLoss.Range.Add(materialWaste.Range).
			Add(reworkCost.Range).Add(opportunityCost.Range),
		Currency: params.Currency,
		AssumptionKeys: mergeKeys(
			throughputLoss.AssumptionKeys, materialWaste.AssumptionKeys,
			reworkCost.AssumptionKeys, opportunityCost.AssumptionKeys,
		),
	}

	return models.EconomicAnalysis{
		ThroughputLoss:  throughputLoss,
		MaterialWaste:   materialWaste,
		ReworkCost:      reworkCost,
		OpportunityCost: opportunityCost,
		TotalImpact:     total,
		Notes:           economicNotes(params),
	}
}

// economicNotes raises non-blocking plausibility hints about the supplied
// parameters, never about the result itself.
func economicNotes(params models.EconomicParameters) []models.EconomicNote {
	notes := make([]models.EconomicNote, 0, 2)

	if params.MaterialCost.Central > params.UnitPrice.Central {
		notes = append(notes, models.EconomicNote{
			Code: NoteNegativeMargin,
			Message: models.Message{Key: "economics." + NoteNegativeMargin, Params: map[string]any{
				"material_cost_central": params.MaterialCost.Central,
				"unit_price_central":    params.UnitPrice.Central,
			}},
		})
	}

	ranges := map[string]models.EconomicRange{
		"unit_price":            params.UnitPrice,
		"marginal_contribution": params.MarginalContribution,
		"material_cost":         params.MaterialCost,
		"labor_cost_per_hour":   params.LaborCostPerHour,
	}
	for _, name := range []string{"unit_price", "marginal_contribution", "material_cost", "labor_cost_per_hour"} {
		r := ranges[name]
		if spread := utils.SafeDiv(r.High-r.Low, r.Central); spread > 1.0 {
			notes = append(notes, models.EconomicNote{
				Code: NoteWideRange,
				Message: models.Message{Key: "economics." + NoteWideRange, Params: map[string]any{
					"parameter":       name,
					"relative_spread": spread,
				}},
			})
		}
	}

	return notes
}

func branchDuration(tree models.LossTree, key string) time.Duration {
	for _, child := range tree.Root.Children {
		if child.Key == key {
			return child.Duration
		}
	}
	return 0
}

func mergeKeys(lists ...[]string) []string {
	seen := make(map[string]struct{})
	merged := make([]string, 0, 8)
	for _, list := range lists {
		for _, key := range list {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, key)
		}
	}
	return merged
}
