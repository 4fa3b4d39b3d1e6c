package engine

import (
	"fmt"
	"time"

	"github.com/shopfloorlabs/oee-engine/internal/models"
	"github.com/shopfloorlabs/oee-engine/internal/utils"
)

// AggregateSystem combines several single-unit results into a system-level
// figure under the selected method.
func AggregateSystem(machines []models.MachineOeeData, method models.AggregationMethod) (models.SystemOeeAnalysis, error) {
	if len(machines) == 0 {
		return models.SystemOeeAnalysis{}, fmt.Errorf("no machines supplied")
	}

	switch method {
	case models.AggregateWeightedAverage:
		return aggregateWeighted(machines), nil
	case models.AggregateWorstPerformer:
		return aggregateWorst(machines), nil
	case models.AggregateMultiplicative:
		return aggregateMultiplicative(machines), nil
	default:
		return models.SystemOeeAnalysis{}, fmt.Errorf("unknown aggregation method %q", method)
	}
}

func aggregateWeighted(machines []models.MachineOeeData) models.SystemOeeAnalysis {
	var totalPlanned time.Duration
	for _, m := range machines {
		totalPlanned += m.PlannedTime
	}

	weighted := 0.0
	contributions := make([]models.MachineContribution, 0, len(machines))
	for _, m := range machines {
		weight := utils.SafeDiv(m.PlannedTime.Seconds(), totalPlanned.Seconds())
		weighted += m.OEE * weight
		contributions = append(contributions, machineContribution(m, weight))
	}

	return models.SystemOeeAnalysis{
		Method:        models.AggregateWeightedAverage,
		SystemOEE:     weighted,
		MachineCount:  len(machines),
		Contributions: contributions,
	}
}

func aggregateWorst(machines []models.MachineOeeData) models.SystemOeeAnalysis {
	worst := 0
	for i, m := range machines {
		if m.OEE < machines[worst].OEE {
			worst = i
		}
	}

	contributions := make([]models.MachineContribution, 0, len(machines))
	for i, m := range machines {
		weight := 0.0
		if i == worst {
			weight = 1.0
		}
		contributions = append(contributions, machineContribution(m, weight))
	}

	return models.SystemOeeAnalysis{
		Method:        models.AggregateWorstPerformer,
		SystemOEE:     machines[worst].OEE,
		MachineCount:  len(machines),
		Contributions: contributions,
	}
}

func aggregateMultiplicative(machines []models.MachineOeeData) models.SystemOeeAnalysis {
	product := 1.0
	contributions := make([]models.MachineContribution, 0, len(machines))
	weight := utils.SafeDiv(1, float64(len(machines)))
	for _, m := range machines {
		product *= m.OEE
		contributions = append(contributions, machineContribution(m, weight))
	}

	return models.SystemOeeAnalysis{
		Method:        models.AggregateMultiplicative,
		SystemOEE:     product,
		MachineCount:  len(machines),
		Contributions: contributions,
	}
}

// CompareAggregationMethods computes every method and recommends one with a
// fixed heuristic. The recommendation is advisory, never a hidden default.
func CompareAggregationMethods(machines []models.MachineOeeData) (models.AggregationComparison, error) {
	if len(machines) == 0 {
		return models.AggregationComparison{}, fmt.Errorf("no machines supplied")
	}

	methods := []models.AggregationMethod{
		models.AggregateWeightedAverage,
		models.AggregateWorstPerformer,
		models.AggregateMultiplicative,
	}
	comparisons := make([]models.SystemOeeAnalysis, 0, len(methods))
	for _, method := range methods {
		analysis, err := AggregateSystem(machines, method)
		if err != nil {
			return models.AggregationComparison{}, err
		}
		comparisons = append(comparisons, analysis)
	}

	recommended, rationale := recommendMethod(machines)
	return models.AggregationComparison{
		Comparisons:       comparisons,
		RecommendedMethod: recommended,
		Rationale:         rationale,
	}, nil
}

// recommendMethod: worst-performer when a single unit dominates planned time,
// multiplicative when every unit reports the same line (strictly serial),
// weighted average otherwise.
func recommendMethod(machines []models.MachineOeeData) (models.AggregationMethod, models.Message) {
	var totalPlanned time.Duration
	maxIdx := 0
	for i, m := range machines {
		totalPlanned += m.PlannedTime
		if m.PlannedTime > machines[maxIdx].PlannedTime {
			maxIdx = i
		}
	}

	dominantShare := utils.SafeDiv(machines[maxIdx].PlannedTime.Seconds(), totalPlanned.Seconds())
	if len(machines) > 1 && dominantShare > 0.5 {
		return models.AggregateWorstPerformer, models.Message{
			Key: "aggregation.recommend_worst_performer",
			Params: map[string]any{
				"dominant_machine": machines[maxIdx].Context.MachineID,
				"planned_share":    dominantShare,
			},
		}
	}

	if sameLine(machines) {
		return models.AggregateMultiplicative, models.Message{
			Key: "aggregation.recommend_multiplicative",
			Params: map[string]any{
				"line_id": machines[0].Context.LineID,
			},
		}
	}

	return models.AggregateWeightedAverage, models.Message{
		Key:    "aggregation.recommend_weighted_average",
		Params: map[string]any{"machine_count": len(machines)},
	}
}

func sameLine(machines []models.MachineOeeData) bool {
	line := machines[0].Context.LineID
	if line == "" {
		return false
	}
	for _, m := range machines[1:] {
		if m.Context.LineID != line {
			return false
		}
	}
	return true
}

func machineContribution(m models.MachineOeeData, weight float64) models.MachineContribution {
	return models.MachineContribution{
		MachineID:   m.Context.MachineID,
		PlannedTime: m.PlannedTime,
		OEE:         m.OEE,
		Weight:      weight,
	}
}
