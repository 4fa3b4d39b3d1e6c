package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopfloorlabs/oee-engine/internal/models"
)

const shiftJSON = `{
  "window": {"start": "2024-03-01T06:00:00Z", "end": "2024-03-01T14:00:00Z"},
  "machine": {"machine_id": "press-07", "line_id": "line-2", "shift_id": "early"},
  "time": {
    "planned": {"seconds": 28800, "source": "explicit"},
    "allocations": [
      {"state": "running", "duration": {"seconds": 25200, "source": "explicit"}},
      {"state": "stopped", "duration": {"seconds": 3600, "source": "explicit"},
       "reason": {"path": ["Mechanical", "Bearing Failure"], "is_failure": true}}
    ]
  },
  "production": {
    "total": {"value": 1000, "source": "explicit"},
    "good": {"value": 950, "source": "explicit"},
    "scrap": {"value": 30, "source": "explicit"},
    "reworked": {"value": 20, "source": "explicit"}
  },
  "cycle_time": {"ideal": {"seconds": 25.2, "source": "explicit"}},
  "downtime": [
    {"duration": {"seconds": 3600, "source": "explicit"},
     "reason": {"path": ["Mechanical", "Bearing Failure"], "is_failure": true},
     "timestamp": "2024-03-01T09:30:00Z"}
  ]
}`

func decodeShift(t *testing.T) models.OeeInput {
	t.Helper()
	var w wireInput
	if err := json.Unmarshal([]byte(shiftJSON), &w); err != nil {
		t.Fatal(err)
	}
	in, err := decodeInput(w)
	if err != nil {
		t.Fatal(err)
	}
	return in
}

func TestDecodeInput(t *testing.T) {
	in := decodeShift(t)

	if in.Machine.MachineID != "press-07" {
		t.Fatalf("machine = %s", in.Machine.MachineID)
	}
	if in.Time.Planned.Value() != 8*time.Hour {
		t.Fatalf("planned = %s", in.Time.Planned.Value())
	}
	if in.Time.Planned.Source() != models.SourceExplicit {
		t.Fatalf("planned source = %s", in.Time.Planned.Source())
	}
	if len(in.Time.Allocations) != 2 {
		t.Fatalf("allocations = %d", len(in.Time.Allocations))
	}
	if in.Time.Allocations[1].Reason == nil || !in.Time.Allocations[1].Reason.IsFailure {
		t.Fatal("failure reason lost in decoding")
	}
	if in.CycleTime.Ideal.Value() != 25200*time.Millisecond {
		t.Fatalf("ideal = %s", in.CycleTime.Ideal.Value())
	}
	if len(in.Downtime) != 1 || in.Downtime[0].Timestamp == nil {
		t.Fatal("downtime record lost in decoding")
	}
	if err := in.CheckStructural(); err != nil {
		t.Fatalf("decoded input must be structurally sound: %v", err)
	}
}

func TestDecodeInputRejectsUnknownSource(t *testing.T) {
	var w wireInput
	if err := json.Unmarshal([]byte(shiftJSON), &w); err != nil {
		t.Fatal(err)
	}
	w.Time.Planned.Source = "guessed"

	if _, err := decodeInput(w); err == nil {
		t.Fatal("unknown provenance tag must be rejected")
	}
}

func TestDecodeInputRejectsBadTimestamp(t *testing.T) {
	var w wireInput
	if err := json.Unmarshal([]byte(shiftJSON), &w); err != nil {
		t.Fatal(err)
	}
	w.Window.Start = "yesterday"

	if _, err := decodeInput(w); err == nil {
		t.Fatal("malformed timestamp must be rejected")
	}
}

func TestDecodeEconomics(t *testing.T) {
	params, err := decodeEconomics(wireEconomicParams{
		UnitPrice:            wireRange{Low: 9, Central: 10, High: 11},
		MarginalContribution: wireRange{Low: 3, Central: 4, High: 5},
		MaterialCost:         wireRange{Low: 1, Central: 2, High: 3},
		LaborCostPerHour:     wireRange{Low: 30, Central: 36, High: 42},
		Currency:             "EUR",
	})
	if err != nil {
		t.Fatal(err)
	}
	if params.UnitPrice.Central != 10 || params.Currency != "EUR" {
		t.Fatalf("params = %+v", params)
	}

	_, err = decodeEconomics(wireEconomicParams{
		UnitPrice: wireRange{Low: 11, Central: 10, High: 9},
		Currency:  "EUR",
	})
	if err == nil {
		t.Fatal("inverted range must be rejected")
	}

	_, err = decodeEconomics(wireEconomicParams{})
	if err == nil {
		t.Fatal("missing currency must be rejected")
	}
}

func TestRenderResultShapes(t *testing.T) {
	in := decodeShift(t)

	result := models.OeeResult{
		Core: models.CoreMetrics{
			OperatingTime: 7 * time.Hour,
			OEE:           models.TrackedMetric{Value: 0.83125, Unit: "fraction", Confidence: models.ConfidenceHigh},
		},
		LossTree: models.LossTree{
			PlannedTime: in.Time.Planned.Value(),
			Root: models.LossNode{
				Key:      "planned",
				Duration: in.Time.Planned.Value(),
				Children: []models.LossNode{{Key: "availability", Duration: time.Hour}},
			},
		},
	}

	wire := renderResult(result)
	if wire.Core.OperatingSeconds != 25200 {
		t.Fatalf("operating seconds = %v", wire.Core.OperatingSeconds)
	}
	if wire.LossTree.PlannedSeconds != 28800 {
		t.Fatalf("planned seconds = %v", wire.LossTree.PlannedSeconds)
	}
	if len(wire.LossTree.Root.Children) != 1 || wire.LossTree.Root.Children[0].Seconds != 3600 {
		t.Fatalf("loss tree children = %+v", wire.LossTree.Root.Children)
	}
	if wire.Economics != nil {
		t.Fatal("absent economics must render as absent")
	}

	data, err := json.Marshal(wire)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["economics"]; ok {
		t.Fatal("nil economics must be omitted from the payload")
	}
}
