package engine

import (
	"time"

	"github.com/shopfloorlabs/oee-engine/internal/models"
	"github.com/shopfloorlabs/oee-engine/internal/utils"
)

// OperatingTime sums the durations of Running allocations and reports the
// weakest provenance among them.
func OperatingTime(in models.OeeInput) (time.Duration, models.Source) {
	var total time.Duration
	sources := make([]models.Source, 0, len(in.Time.Allocations))
	for _, alloc := range in.Time.Allocations {
		if alloc.State == models.StateRunning {
			total += alloc.Duration.Value()
			sources = append(sources, alloc.Duration.Source())
		}
	}
	return total, models.WeakestSource(sources...)
}

// ComputeCoreMetrics derives Availability, Performance, Quality and OEE from
// a structurally sound input. Deterministic and side-effect-free.
func ComputeCoreMetrics(in models.OeeInput) models.CoreMetrics {
	operating, operatingSrc := OperatingTime(in)
	planned := in.Time.Planned
	ideal := in.CycleTime.Ideal
	total := in.Production.Total
	good := in.Production.Good

	availability := models.TrackedMetric{
		Value:   utils.SafeDiv(operating.Seconds(), planned.Value().Seconds()),
		Unit:    "fraction",
		Formula: "operating_time / planned_time",
		Params: map[string]float64{
			"operating_time_seconds": operating.Seconds(),
			"planned_time_seconds":   planned.Value().Seconds(),
		},
		Confidence: models.ConfidenceFrom(operatingSrc, planned.Source()),
	}

	performance := models.TrackedMetric{
		Value:   utils.SafeDiv(ideal.Value().Seconds()*float64(total.Value()), operating.Seconds()),
		Unit:    "fraction",
		Formula: "ideal_cycle_time * total_units / operating_time",
		Params: map[string]float64{
			"ideal_cycle_time_seconds": ideal.Value().Seconds(),
			"total_units":              float64(total.Value()),
			"operating_time_seconds":   operating.Seconds(),
		},
		Confidence: models.ConfidenceFrom(ideal.Source(), total.Source(), operatingSrc),
	}

	quality := models.TrackedMetric{
		Value:   utils.SafeDiv(float64(good.Value()), float64(total.Value())),
		Unit:    "fraction",
		Formula: "good_units / total_units",
		Params: map[string]float64{
			"good_units":  float64(good.Value()),
			"total_units": float64(total.Value()),
		},
		Confidence: models.ConfidenceFrom(good.Source(), total.Source()),
	}

	oee := models.TrackedMetric{
		Value:   availability.Value * performance.Value * quality.Value,
		Unit:    "fraction",
		Formula: "availability * performance * quality",
		Params: map[string]float64{
			"availability": availability.Value,
			"performance":  performance.Value,
			"quality":      quality.Value,
		},
		Confidence: models.ConfidenceFrom(
			operatingSrc, planned.Source(), ideal.Source(),
			total.Source(), good.Source(),
		),
	}

	return models.CoreMetrics{
		OperatingTime: operating,
		Availability:  availability,
		Performance:   performance,
		Quality:       quality,
		OEE:           oee,
	}
}

// ComputeExtendedMetrics derives the secondary figures. TEEP and Utilization
// are absent without calendar time; MTBF and MTTR are absent without failures.
func ComputeExtendedMetrics(in models.OeeInput, core models.CoreMetrics) models.ExtendedMetrics {
	_, operatingSrc := OperatingTime(in)
	planned := in.Time.Planned
	total := in.Production.Total

	var out models.ExtendedMetrics

	if in.Time.AllTime != nil {
		allTime := *in.Time.AllTime
		utilization := models.TrackedMetric{
			Value:   utils.SafeDiv(planned.Value().Seconds(), allTime.Value().Seconds()),
			Unit:    "fraction",
			Formula: "planned_time / all_time",
			Params: map[string]float64{
				"planned_time_seconds": planned.Value().Seconds(),
				"all_time_seconds":     allTime.Value().Seconds(),
			},
			Confidence: models.ConfidenceFrom(planned.Source(), allTime.Source()),
		}
		teep := models.TrackedMetric{
			Value:   core.OEE.Value * utilization.Value,
			Unit:    "fraction",
			Formula: "oee * (planned_time / all_time)",
			Params: map[string]float64{
				"oee":         core.OEE.Value,
				"utilization": utilization.Value,
			},
			Confidence: models.ConfidenceFrom(
				operatingSrc, planned.Source(), allTime.Source(),
				in.CycleTime.Ideal.Source(), total.Source(), in.Production.Good.Source(),
			),
		}
		out.Utilization = &utilization
		out.TEEP = &teep
	}

	failureCount, failureTotal, failureSources := failureStats(in)
	if failureCount > 0 {
		mtbf := models.TrackedMetric{
			Value:   utils.SafeDiv(core.OperatingTime.Seconds(), float64(failureCount)),
			Unit:    "seconds",
			Formula: "operating_time / failure_count",
			Params: map[string]float64{
				"operating_time_seconds": core.OperatingTime.Seconds(),
				"failure_count":          float64(failureCount),
			},
			Confidence: models.ConfidenceFrom(append(failureSources, operatingSrc)...),
		}
		mttr := models.TrackedMetric{
			Value:   utils.SafeDiv(failureTotal.Seconds(), float64(failureCount)),
			Unit:    "seconds",
			Formula: "failure_downtime / failure_count",
			Params: map[string]float64{
				"failure_downtime_seconds": failureTotal.Seconds(),
				"failure_count":            float64(failureCount),
			},
			Confidence: models.ConfidenceFrom(failureSources...),
		}
		out.MTBF = &mtbf
		out.MTTR = &mttr
	}

	out.ScrapRate = models.TrackedMetric{
		Value:   utils.SafeDiv(float64(in.Production.Scrap.Value()), float64(total.Value())),
		Unit:    "fraction",
		Formula: "scrap_units / total_units",
		Params: map[string]float64{
			"scrap_units": float64(in.Production.Scrap.Value()),
			"total_units": float64(total.Value()),
		},
		Confidence: models.ConfidenceFrom(in.Production.Scrap.Source(), total.Source()),
	}
	out.ReworkRate = models.TrackedMetric{
		Value:   utils.SafeDiv(float64(in.Production.Reworked.Value()), float64(total.Value())),
		Unit:    "fraction",
		Formula: "reworked_units / total_units",
		Params: map[string]float64{
			"reworked_units": float64(in.Production.Reworked.Value()),
			"total_units":    float64(total.Value()),
		},
		Confidence: models.ConfidenceFrom(in.Production.Reworked.Source(), total.Source()),
	}

	return out
}

func failureStats(in models.OeeInput) (int, time.Duration, []models.Source) {
	count := 0
	var total time.Duration
	sources := make([]models.Source, 0, len(in.Downtime))
	for _, rec := range in.Downtime {
		if !rec.Reason.IsFailure {
			continue
		}
		count++
		total += rec.Duration.Value()
		sources = append(sources, rec.Duration.Source())
	}
	return count, total, sources
}
