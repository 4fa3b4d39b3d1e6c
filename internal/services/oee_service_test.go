package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopfloorlabs/oee-engine/internal/engine"
	"github.com/shopfloorlabs/oee-engine/internal/models"
	"github.com/shopfloorlabs/oee-engine/internal/utils"
)

func testService() *OeeService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewOeeService(engine.NewPipeline(logger, engine.DefaultTolerances()), logger)
	svc.newID = func() string { return "report-1" }
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 14, 0, 5, 0, time.UTC) }
	return svc
}

func serviceInput() models.OeeInput {
	return models.OeeInput{
		Window: models.AnalysisWindow{
			Start: time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC),
		},
		Machine: models.MachineContext{MachineID: "press-07"},
		Time: models.TimeModel{
			Planned: models.Explicit(8 * time.Hour),
			Allocations: []models.TimeAllocation{
				{State: models.StateRunning, Duration: models.Explicit(7 * time.Hour)},
				{State: models.StateStopped, Duration: models.Explicit(time.Hour)},
			},
		},
		Production: models.ProductionSummary{
			Total:    models.Explicit[uint64](1000),
			Good:     models.Explicit[uint64](950),
			Scrap:    models.Explicit[uint64](30),
			Reworked: models.Explicit[uint64](20),
		},
		CycleTime: models.CycleTimeModel{Ideal: models.Explicit(25200 * time.Millisecond)},
	}
}

func TestServiceStampsReports(t *testing.T) {
	svc := testService()
	report, err := svc.Calculate(context.Background(), serviceInput(), models.DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	if report.ReportID != "report-1" {
		t.Fatalf("report id = %s", report.ReportID)
	}
	if !report.CreatedAt.Equal(time.Date(2024, 3, 1, 14, 0, 5, 0, time.UTC)) {
		t.Fatalf("created at = %s", report.CreatedAt)
	}
	if report.Payload.Core.OEE.Value <= 0 {
		t.Fatal("payload missing")
	}
	if svc.Latency().Count() != 1 {
		t.Fatalf("latency samples = %d, want 1", svc.Latency().Count())
	}
}

func TestServicePropagatesStructuralErrors(t *testing.T) {
	svc := testService()
	in := serviceInput()
	in.Time.Planned = models.Explicit(time.Duration(0))

	_, err := svc.Calculate(context.Background(), in, models.DefaultThresholds())
	if !errors.Is(err, utils.ErrStructural) {
		t.Fatalf("error = %v, want structural", err)
	}
	if svc.Latency().Count() != 1 {
		t.Fatal("failed calculations are still observed")
	}
}

func TestServiceLedgerStampIsWindowEnd(t *testing.T) {
	svc := testService()
	in := serviceInput()
	report, err := svc.Calculate(context.Background(), in, models.DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	// The ledger stays deterministic against the input; only the report
	// envelope carries wall-clock time.
	for _, entry := range report.Payload.Ledger.Entries {
		if !entry.RecordedAt.Equal(in.Window.End) {
			t.Fatalf("entry %s stamped %s", entry.Key, entry.RecordedAt)
		}
	}
}
