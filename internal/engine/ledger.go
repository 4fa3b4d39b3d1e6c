package engine

import (
	"fmt"
	"time"

	"github.com/shopfloorlabs/oee-engine/internal/models"
	"github.com/shopfloorlabs/oee-engine/internal/utils"
)

// Ledger warning codes.
const (
	WarnScrapRateElevated = "scrap_rate_elevated"
	WarnSpeedLossHigh     = "speed_loss_high"
	WarnLowUtilization    = "low_utilization_window"
	WarnDefaultHeavyInput = "default_heavy_input"
	WarnNoObservedCycle   = "no_observed_cycle"
	WarnFatalIssuesFound  = "fatal_validation_issues"
)

// BuildLedger walks every InputValue reachable in the input and emits one
// AssumptionEntry per value. The ledger is the system's trust anchor: a
// missing entry is a correctness defect. Entries are stamped with asOf so
// identical inputs yield identical ledgers.
func BuildLedger(in models.OeeInput, validation models.ValidationResult, thresholds models.ThresholdConfiguration, asOf time.Time) models.AssumptionLedger {
	entries := make([]models.AssumptionEntry, 0, 10+len(in.Time.Allocations)+len(in.Downtime))

	add := func(key, value string, src models.Source, impact models.ImpactTier, related ...string) {
		entries = append(entries, models.AssumptionEntry{
			Key:            key,
			DescriptionKey: "assumption." + key,
			Value:          value,
			Source:         src,
			RecordedAt:     asOf,
			Impact:         impact,
			RelatedKeys:    related,
		})
	}

	planned := in.Time.Planned
	add("time.planned", durationValue(planned.Value()), planned.Source(), models.ImpactCritical)

	if in.Time.AllTime != nil {
		allTime := *in.Time.AllTime
		add("time.all_time", durationValue(allTime.Value()), allTime.Source(), models.ImpactMedium, "time.planned")
	}

	for i, alloc := range in.Time.Allocations {
		key := fmt.Sprintf("time.allocations[%d].duration", i)
		impact := models.ImpactMedium
		if alloc.Reason != nil && alloc.Reason.IsFailure {
			impact = models.ImpactHigh
		}
		add(key, durationValue(alloc.Duration.Value()), alloc.Duration.Source(), impact, "time.planned")
	}

	add("production.total", countValue(in.Production.Total.Value()), in.Production.Total.Source(), models.ImpactCritical)
	add("production.good", countValue(in.Production.Good.Value()), in.Production.Good.Source(), models.ImpactHigh, "production.total")
	add("production.scrap", countValue(in.Production.Scrap.Value()), in.Production.Scrap.Source(), models.ImpactHigh, "production.total")
	add("production.reworked", countValue(in.Production.Reworked.Value()), in.Production.Reworked.Source(), models.ImpactHigh, "production.total")

	add("cycle.ideal", durationValue(in.CycleTime.Ideal.Value()), in.CycleTime.Ideal.Source(), models.ImpactHigh)
	if in.CycleTime.Observed != nil {
		observed := *in.CycleTime.Observed
		add("cycle.observed", durationValue(observed.Value()), observed.Source(), models.ImpactMedium, "cycle.ideal")
	}

	for i, rec := range in.Downtime {
		key := fmt.Sprintf("downtime[%d].duration", i)
		impact := models.ImpactMedium
		if rec.Reason.IsFailure {
			impact = models.ImpactHigh
		}
		add(key, durationValue(rec.Duration.Value()), rec.Duration.Source(), impact, "time.planned")
	}

	stats := sourceStatistics(entries)
	warnings := ledgerWarnings(in, validation, thresholds, stats)

	return models.AssumptionLedger{Entries: entries, Statistics: stats, Warnings: warnings}
}

func sourceStatistics(entries []models.AssumptionEntry) models.SourceStatistics {
	stats := models.SourceStatistics{Total: len(entries)}
	for _, entry := range entries {
		switch entry.Source {
		case models.SourceExplicit:
			stats.Explicit++
		case models.SourceInferred:
			stats.Inferred++
		default:
			stats.Default++
		}
	}
	total := float64(stats.Total)
	stats.ExplicitShare = utils.SafeDiv(float64(stats.Explicit), total)
	stats.InferredShare = utils.SafeDiv(float64(stats.Inferred), total)
	stats.DefaultShare = utils.SafeDiv(float64(stats.Default), total)
	return stats
}

// ledgerWarnings applies non-blocking business rules, distinct from the
// validator's purely mathematical checks.
func ledgerWarnings(in models.OeeInput, validation models.ValidationResult, thresholds models.ThresholdConfiguration, stats models.SourceStatistics) []models.LedgerWarning {
	warnings := make([]models.LedgerWarning, 0, 3)

	scrapRate := utils.SafeDiv(float64(in.Production.Scrap.Value()), float64(in.Production.Total.Value()))
	if scrapRate > thresholds.HighScrapRate {
		warnings = append(warnings, models.LedgerWarning{
			Code: WarnScrapRateElevated,
			Message: models.Message{Key: "ledger." + WarnScrapRateElevated, Params: map[string]any{
				"scrap_rate": scrapRate,
				"threshold":  thresholds.HighScrapRate,
			}},
		})
	}

	operating, _ := OperatingTime(in)
	theoretical := time.Duration(float64(in.CycleTime.Ideal.Value()) * float64(in.Production.Total.Value()))
	if gap := operating - theoretical; gap > 0 && operating > 0 {
		if share := utils.SafeDiv(gap.Seconds(), operating.Seconds()); share > thresholds.SpeedLossRatio {
			warnings = append(warnings, models.LedgerWarning{
				Code: WarnSpeedLossHigh,
				Message: models.Message{Key: "ledger." + WarnSpeedLossHigh, Params: map[string]any{
					"speed_loss_share": share,
					"threshold":        thresholds.SpeedLossRatio,
				}},
			})
		}
	}

	if in.Time.AllTime != nil {
		utilization := utils.SafeDiv(in.Time.Planned.Value().Seconds(), in.Time.AllTime.Value().Seconds())
		if utilization > 0 && utilization < thresholds.LowUtilization {
			warnings = append(warnings, models.LedgerWarning{
				Code: WarnLowUtilization,
				Message: models.Message{Key: "ledger." + WarnLowUtilization, Params: map[string]any{
					"utilization": utilization,
					"threshold":   thresholds.LowUtilization,
				}},
			})
		}
	}

	if stats.DefaultShare > 0.5 {
		warnings = append(warnings, models.LedgerWarning{
			Code: WarnDefaultHeavyInput,
			Message: models.Message{Key: "ledger." + WarnDefaultHeavyInput, Params: map[string]any{
				"default_share": stats.DefaultShare,
			}},
		})
	}

	if in.CycleTime.Observed == nil {
		warnings = append(warnings, models.LedgerWarning{
			Code:    WarnNoObservedCycle,
			Message: models.Message{Key: "ledger." + WarnNoObservedCycle, Params: map[string]any{}},
		})
	}

	if !validation.IsValid {
		warnings = append(warnings, models.LedgerWarning{
			Code: WarnFatalIssuesFound,
			Message: models.Message{Key: "ledger." + WarnFatalIssuesFound, Params: map[string]any{
				"issue_count": len(validation.Issues),
			}},
		})
	}

	return warnings
}

func durationValue(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}

func countValue(n uint64) string {
	return fmt.Sprintf("%d", n)
}
