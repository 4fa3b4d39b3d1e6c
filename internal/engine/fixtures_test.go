package engine

import (
	"math"
	"testing"
	"time"

	"github.com/shopfloorlabs/oee-engine/internal/models"
)

// shiftInput is an eight-hour shift with one hour of bearing-failure downtime,
// a consistent production count and an exactly met ideal rate during the
// remaining seven hours.
func shiftInput() models.OeeInput {
	reason := models.ReasonCode{Path: []string{"Mechanical", "Bearing Failure"}, IsFailure: true}
	return models.OeeInput{
		Window: models.AnalysisWindow{
			Start: time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC),
		},
		Machine: models.MachineContext{MachineID: "press-07", LineID: "line-2", ShiftID: "early"},
		Time: models.TimeModel{
			Planned: models.Explicit(8 * time.Hour),
			Allocations: []models.TimeAllocation{
				{State: models.StateRunning, Duration: models.Explicit(7 * time.Hour)},
				{State: models.StateStopped, Duration: models.Explicit(time.Hour), Reason: &reason},
			},
		},
		Production: models.ProductionSummary{
			Total:    models.Explicit[uint64](1000),
			Good:     models.Explicit[uint64](950),
			Scrap:    models.Explicit[uint64](30),
			Reworked: models.Explicit[uint64](20),
		},
		CycleTime: models.CycleTimeModel{
			Ideal: models.Explicit(25200 * time.Millisecond),
		},
		Downtime: []models.DowntimeRecord{
			{Duration: models.Explicit(time.Hour), Reason: reason},
		},
	}
}

func approx(t *testing.T, name string, got, want, eps float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Fatalf("%s = %v, want %v (eps %v)", name, got, want, eps)
	}
}
