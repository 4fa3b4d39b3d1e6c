package engine

import (
	"math"
	"time"

	"github.com/shopfloorlabs/oee-engine/internal/models"
	"github.com/shopfloorlabs/oee-engine/internal/utils"
)

// Machine-checkable issue codes. Message keys mirror them under the
// "validation." namespace; parameters carry the conflicting figures so the
// presentation layer can localize without touching the engine.
const (
	CodeProductionMismatch     = "production_counts_mismatch"
	CodeGoodExceedsTotal       = "good_exceeds_total"
	CodeAllocationOverrun      = "allocated_exceeds_planned"
	CodeUnallocatedTime        = "unallocated_time"
	CodeDowntimeOverrun        = "downtime_exceeds_planned"
	CodeDowntimeDominant       = "downtime_dominates_planned"
	CodeIdealCycleNonPositive  = "ideal_cycle_non_positive"
	CodeIdealCycleBelowBand    = "ideal_cycle_below_band"
	CodeIdealCycleAboveBand    = "ideal_cycle_above_band"
	CodeObservedCycleDeviation = "observed_cycle_deviates"
	CodeCycleFasterThanIdeal   = "cycle_faster_than_ideal"
	CodeAllTimeBelowPlanned    = "all_time_below_planned"
	CodeLowUtilization         = "low_utilization"
	CodeScrapRateSevere        = "scrap_rate_severe"
	CodeScrapRateHigh          = "scrap_rate_high"
	CodeScrapRateElevated      = "scrap_rate_elevated"
)

// Plausible numeric band for ideal cycle time.
const (
	idealCycleBandLow  = 100 * time.Millisecond
	idealCycleBandHigh = time.Hour
)

// Tolerances tune the validator's non-blocking checks.
type Tolerances struct {
	// AllocationRelative is the relative gap between allocated and planned
	// time below which no unallocated-time warning is raised.
	AllocationRelative float64
	// ObservedCycleRelative is the permitted deviation between observed and
	// implied cycle time.
	ObservedCycleRelative float64
	// CycleFastMargin is the margin by which the actual cycle may undercut
	// the ideal before the >100% performance warning.
	CycleFastMargin float64
	// DowntimeDominantShare is the downtime share of planned time above
	// which a warning is raised.
	DowntimeDominantShare float64
	// LowUtilizationShare is the utilization below which an info issue is
	// raised when all time is supplied.
	LowUtilizationShare float64
}

// DefaultTolerances returns the stock validator tuning.
func DefaultTolerances() Tolerances {
	return Tolerances{
		AllocationRelative:    0.01,
		ObservedCycleRelative: 0.20,
		CycleFastMargin:       0.02,
		DowntimeDominantShare: 0.80,
		LowUtilizationShare:   0.20,
	}
}

// Validate checks the input for internal mathematical coherence only. It
// never judges real-world plausibility and never blocks computation: even a
// fatal issue is reported alongside a best-effort result.
func Validate(in models.OeeInput, tol Tolerances) models.ValidationResult {
	issues := make([]models.ValidationIssue, 0, 8)

	total := in.Production.Total.Value()
	good := in.Production.Good.Value()
	scrap := in.Production.Scrap.Value()
	reworked := in.Production.Reworked.Value()

	if good+scrap+reworked != total {
		issues = append(issues, issue(models.SeverityFatal, CodeProductionMismatch, "production", map[string]any{
			"total":    total,
			"good":     good,
			"scrap":    scrap,
			"reworked": reworked,
			"sum":      good + scrap + reworked,
		}))
	}
	if good > total {
		issues = append(issues, issue(models.SeverityFatal, CodeGoodExceedsTotal, "production.good", map[string]any{
			"good":  good,
			"total": total,
		}))
	}

	planned := in.Time.Planned.Value()
	var allocated time.Duration
	for _, alloc := range in.Time.Allocations {
		allocated += alloc.Duration.Value()
	}
	if allocated > planned {
		issues = append(issues, issue(models.SeverityFatal, CodeAllocationOverrun, "time.allocations", map[string]any{
			"allocated_seconds": allocated.Seconds(),
			"planned_seconds":   planned.Seconds(),
		}))
	} else if unallocated := planned - allocated; unallocated.Seconds() > tol.AllocationRelative*planned.Seconds() {
		issues = append(issues, issue(models.SeverityWarning, CodeUnallocatedTime, "time.allocations", map[string]any{
			"unallocated_seconds": unallocated.Seconds(),
			"tolerance":           tol.AllocationRelative,
		}))
	}

	var downtime time.Duration
	for _, rec := range in.Downtime {
		downtime += rec.Duration.Value()
	}
	if downtime > planned {
		issues = append(issues, issue(models.SeverityFatal, CodeDowntimeOverrun, "downtime", map[string]any{
			"downtime_seconds": downtime.Seconds(),
			"planned_seconds":  planned.Seconds(),
		}))
	} else if planned > 0 && downtime.Seconds() > tol.DowntimeDominantShare*planned.Seconds() {
		issues = append(issues, issue(models.SeverityWarning, CodeDowntimeDominant, "downtime", map[string]any{
			"downtime_seconds": downtime.Seconds(),
			"planned_seconds":  planned.Seconds(),
			"share":            utils.SafeDiv(downtime.Seconds(), planned.Seconds()),
		}))
	}

	ideal := in.CycleTime.Ideal.Value()
	switch {
	case ideal <= 0:
		issues = append(issues, issue(models.SeverityFatal, CodeIdealCycleNonPositive, "cycle_time.ideal", map[string]any{
			"ideal_seconds": ideal.Seconds(),
		}))
	case ideal < idealCycleBandLow:
		issues = append(issues, issue(models.SeverityWarning, CodeIdealCycleBelowBand, "cycle_time.ideal", map[string]any{
			"ideal_seconds": ideal.Seconds(),
			"band_low":      idealCycleBandLow.Seconds(),
		}))
	case ideal > idealCycleBandHigh:
		issues = append(issues, issue(models.SeverityInfo, CodeIdealCycleAboveBand, "cycle_time.ideal", map[string]any{
			"ideal_seconds": ideal.Seconds(),
			"band_high":     idealCycleBandHigh.Seconds(),
		}))
	}

	operating, _ := OperatingTime(in)
	implied := utils.SafeDiv(operating.Seconds(), float64(total))
	if in.CycleTime.Observed != nil && implied > 0 {
		observed := in.CycleTime.Observed.Value().Seconds()
		if deviation := math.Abs(observed-implied) / implied; deviation > tol.ObservedCycleRelative {
			issues = append(issues, issue(models.SeverityWarning, CodeObservedCycleDeviation, "cycle_time.observed", map[string]any{
				"observed_seconds": observed,
				"implied_seconds":  implied,
				"deviation":        deviation,
			}))
		}
	}
	if ideal > 0 && implied > 0 && implied < ideal.Seconds()*(1-tol.CycleFastMargin) {
		issues = append(issues, issue(models.SeverityWarning, CodeCycleFasterThanIdeal, "cycle_time.ideal", map[string]any{
			"implied_seconds": implied,
			"ideal_seconds":   ideal.Seconds(),
		}))
	}

	if in.Time.AllTime != nil {
		allTime := in.Time.AllTime.Value()
		if allTime < planned {
			issues = append(issues, issue(models.SeverityFatal, CodeAllTimeBelowPlanned, "time.all_time", map[string]any{
				"all_time_seconds": allTime.Seconds(),
				"planned_seconds":  planned.Seconds(),
			}))
		} else if utilization := utils.SafeDiv(planned.Seconds(), allTime.Seconds()); utilization < tol.LowUtilizationShare {
			issues = append(issues, issue(models.SeverityInfo, CodeLowUtilization, "time.all_time", map[string]any{
				"utilization": utilization,
			}))
		}
	}

	scrapRate := utils.SafeDiv(float64(scrap), float64(total))
	switch {
	case scrapRate > 0.50:
		issues = append(issues, issue(models.SeverityFatal, CodeScrapRateSevere, "production.scrap", map[string]any{"scrap_rate": scrapRate}))
	case scrapRate > 0.20:
		issues = append(issues, issue(models.SeverityWarning, CodeScrapRateHigh, "production.scrap", map[string]any{"scrap_rate": scrapRate}))
	case scrapRate > 0.10:
		issues = append(issues, issue(models.SeverityInfo, CodeScrapRateElevated, "production.scrap", map[string]any{"scrap_rate": scrapRate}))
	}

	isValid := true
	for _, iss := range issues {
		if iss.Severity == models.SeverityFatal {
			isValid = false
			break
		}
	}
	return models.ValidationResult{IsValid: isValid, Issues: issues}
}

func issue(severity models.IssueSeverity, code, fieldPath string, params map[string]any) models.ValidationIssue {
	return models.ValidationIssue{
		Severity:  severity,
		Code:      code,
		Message:   models.Message{Key: "validation." + code, Params: params},
		FieldPath: fieldPath,
	}
}
