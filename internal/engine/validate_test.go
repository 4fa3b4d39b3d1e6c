package engine

import (
	"testing"
	"time"

	"github.com/shopfloorlabs/oee-engine/internal/models"
)

func hasIssue(result models.ValidationResult, code string, severity models.IssueSeverity) bool {
	for _, issue := range result.Issues {
		if issue.Code == code && issue.Severity == severity {
			return true
		}
	}
	return false
}

func TestValidateCleanInput(t *testing.T) {
	result := Validate(shiftInput(), DefaultTolerances())
	if !result.IsValid {
		t.Fatalf("clean input flagged invalid: %+v", result.Issues)
	}
	if len(result.Issues) != 0 {
		t.Fatalf("clean input raised %d issues: %+v", len(result.Issues), result.Issues)
	}
}

func TestValidateProductionMismatch(t *testing.T) {
	in := shiftInput()
	in.Production.Good = models.Explicit[uint64](980)

	result := Validate(in, DefaultTolerances())
	if result.IsValid {
		t.Fatal("count mismatch must be fatal")
	}
	if !hasIssue(result, CodeProductionMismatch, models.SeverityFatal) {
		t.Fatalf("missing %s issue: %+v", CodeProductionMismatch, result.Issues)
	}
	issue := result.Issues[0]
	if issue.Message.Key != "validation."+CodeProductionMismatch {
		t.Fatalf("message key = %q", issue.Message.Key)
	}
	if issue.Message.Params["sum"] != uint64(1030) {
		t.Fatalf("params must carry the conflicting sum, got %v", issue.Message.Params["sum"])
	}
}

func TestValidateAllocationOverrun(t *testing.T) {
	in := shiftInput()
	in.Time.Allocations[0].Duration = models.Explicit(9 * time.Hour)

	result := Validate(in, DefaultTolerances())
	if result.IsValid {
		t.Fatal("allocation overrun must be fatal")
	}
	if !hasIssue(result, CodeAllocationOverrun, models.SeverityFatal) {
		t.Fatalf("missing %s: %+v", CodeAllocationOverrun, result.Issues)
	}
}

func TestValidateUnallocatedTime(t *testing.T) {
	in := shiftInput()
	in.Time.Allocations = in.Time.Allocations[:1]

	result := Validate(in, DefaultTolerances())
	if !result.IsValid {
		t.Fatal("unallocated time is a warning, not fatal")
	}
	if !hasIssue(result, CodeUnallocatedTime, models.SeverityWarning) {
		t.Fatalf("missing %s: %+v", CodeUnallocatedTime, result.Issues)
	}
}

func TestValidateCycleConflicts(t *testing.T) {
	in := shiftInput()
	in.CycleTime.Ideal = models.Explicit(30 * time.Second)
	observed := models.Explicit(36 * time.Second)
	in.CycleTime.Observed = &observed

	result := Validate(in, DefaultTolerances())
	if !result.IsValid {
		t.Fatal("cycle conflicts are warnings, not fatal")
	}
	// Implied cycle is 25.2s: faster than the 30s ideal and far from the
	// observed 36s.
	if !hasIssue(result, CodeCycleFasterThanIdeal, models.SeverityWarning) {
		t.Fatalf("missing %s: %+v", CodeCycleFasterThanIdeal, result.Issues)
	}
	if !hasIssue(result, CodeObservedCycleDeviation, models.SeverityWarning) {
		t.Fatalf("missing %s: %+v", CodeObservedCycleDeviation, result.Issues)
	}
}

func TestValidateIdealCycleBand(t *testing.T) {
	in := shiftInput()
	in.CycleTime.Ideal = models.Explicit(10 * time.Millisecond)
	if !hasIssue(Validate(in, DefaultTolerances()), CodeIdealCycleBelowBand, models.SeverityWarning) {
		t.Fatal("sub-band ideal cycle must warn")
	}

	in.CycleTime.Ideal = models.Explicit(2 * time.Hour)
	if !hasIssue(Validate(in, DefaultTolerances()), CodeIdealCycleAboveBand, models.SeverityInfo) {
		t.Fatal("above-band ideal cycle must raise info")
	}
}

func TestValidateScrapRateTiers(t *testing.T) {
	cases := []struct {
		scrap    uint64
		code     string
		severity models.IssueSeverity
	}{
		{150, CodeScrapRateElevated, models.SeverityInfo},
		{250, CodeScrapRateHigh, models.SeverityWarning},
		{600, CodeScrapRateSevere, models.SeverityFatal},
	}
	for _, tc := range cases {
		in := shiftInput()
		in.Production.Scrap = models.Explicit(tc.scrap)
		in.Production.Good = models.Explicit(1000 - tc.scrap - 20)

		result := Validate(in, DefaultTolerances())
		if !hasIssue(result, tc.code, tc.severity) {
			t.Fatalf("scrap=%d: missing %s/%s: %+v", tc.scrap, tc.code, tc.severity, result.Issues)
		}
	}
}

func TestValidateAllTime(t *testing.T) {
	in := shiftInput()
	allTime := models.Explicit(4 * time.Hour)
	in.Time.AllTime = &allTime

	result := Validate(in, DefaultTolerances())
	if result.IsValid {
		t.Fatal("calendar time below planned must be fatal")
	}
	if !hasIssue(result, CodeAllTimeBelowPlanned, models.SeverityFatal) {
		t.Fatalf("missing %s: %+v", CodeAllTimeBelowPlanned, result.Issues)
	}

	allTime = models.Explicit(48 * time.Hour)
	in.Time.AllTime = &allTime
	if !hasIssue(Validate(in, DefaultTolerances()), CodeLowUtilization, models.SeverityInfo) {
		t.Fatal("utilization below threshold must raise info")
	}
}

func TestValidateDowntimeDominant(t *testing.T) {
	in := shiftInput()
	in.Downtime = []models.DowntimeRecord{
		{Duration: models.Explicit(7 * time.Hour), Reason: models.ReasonCode{Path: []string{"Mechanical"}, IsFailure: true}},
	}
	if !hasIssue(Validate(in, DefaultTolerances()), CodeDowntimeDominant, models.SeverityWarning) {
		t.Fatal("dominant downtime must warn")
	}

	in.Downtime[0].Duration = models.Explicit(9 * time.Hour)
	result := Validate(in, DefaultTolerances())
	if !hasIssue(result, CodeDowntimeOverrun, models.SeverityFatal) {
		t.Fatalf("downtime beyond planned must be fatal: %+v", result.Issues)
	}
}
