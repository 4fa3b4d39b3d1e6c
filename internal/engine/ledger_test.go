package engine

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/shopfloorlabs/oee-engine/internal/models"
)

func TestLedgerCompleteness(t *testing.T) {
	in := shiftInput()
	asOf := in.Window.End
	validation := Validate(in, DefaultTolerances())
	ledger := BuildLedger(in, validation, models.DefaultThresholds(), asOf)

	// planned + 2 allocations + 4 production counts + ideal cycle + 1 downtime.
	if len(ledger.Entries) != 9 {
		t.Fatalf("entries = %d, want 9", len(ledger.Entries))
	}

	byKey := map[string]models.AssumptionEntry{}
	for _, entry := range ledger.Entries {
		byKey[entry.Key] = entry
		if !entry.RecordedAt.Equal(asOf) {
			t.Fatalf("entry %s stamped %s, want window end %s", entry.Key, entry.RecordedAt, asOf)
		}
		if entry.DescriptionKey != "assumption."+entry.Key {
			t.Fatalf("entry %s description key = %s", entry.Key, entry.DescriptionKey)
		}
	}

	if byKey["time.planned"].Impact != models.ImpactCritical {
		t.Fatalf("planned time impact = %s, want critical", byKey["time.planned"].Impact)
	}
	if byKey["production.total"].Impact != models.ImpactCritical {
		t.Fatalf("total units impact = %s, want critical", byKey["production.total"].Impact)
	}
	if byKey["time.allocations[1].duration"].Impact != models.ImpactHigh {
		t.Fatal("failure-tagged allocation must carry high impact")
	}
	if byKey["time.allocations[0].duration"].Impact != models.ImpactMedium {
		t.Fatal("plain allocation must carry medium impact")
	}

	if ledger.Statistics.Total != 9 || ledger.Statistics.Explicit != 9 {
		t.Fatalf("statistics = %+v, want all explicit", ledger.Statistics)
	}
	approx(t, "explicit share", ledger.Statistics.ExplicitShare, 1.0, 1e-9)
}

func TestLedgerDeterminism(t *testing.T) {
	in := shiftInput()
	validation := Validate(in, DefaultTolerances())
	first := BuildLedger(in, validation, models.DefaultThresholds(), in.Window.End)
	second := BuildLedger(in, validation, models.DefaultThresholds(), in.Window.End)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("identical inputs produced differing ledgers (-first +second):\n%s", diff)
	}
}

func hasWarning(ledger models.AssumptionLedger, code string) bool {
	for _, w := range ledger.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

func TestLedgerWarnings(t *testing.T) {
	in := shiftInput()
	validation := Validate(in, DefaultTolerances())
	ledger := BuildLedger(in, validation, models.DefaultThresholds(), in.Window.End)

	if !hasWarning(ledger, WarnNoObservedCycle) {
		t.Fatal("missing no-observed-cycle warning")
	}
	if hasWarning(ledger, WarnFatalIssuesFound) {
		t.Fatal("valid input must not carry the fatal-issues warning")
	}

	in.Production.Good = models.Explicit[uint64](980)
	validation = Validate(in, DefaultTolerances())
	ledger = BuildLedger(in, validation, models.DefaultThresholds(), in.Window.End)
	if !hasWarning(ledger, WarnFatalIssuesFound) {
		t.Fatal("invalid input must carry the fatal-issues warning")
	}
}

func TestLedgerDefaultHeavyWarning(t *testing.T) {
	in := shiftInput()
	in.Time.Planned = models.Default(8 * time.Hour)
	in.Time.Allocations[0].Duration = models.Default(7 * time.Hour)
	in.Time.Allocations[1].Duration = models.Default(time.Hour)
	in.Production.Total = models.Default[uint64](1000)
	in.Production.Good = models.Default[uint64](950)
	in.Production.Scrap = models.Default[uint64](30)
	in.CycleTime.Ideal = models.Default(25200 * time.Millisecond)

	validation := Validate(in, DefaultTolerances())
	ledger := BuildLedger(in, validation, models.DefaultThresholds(), in.Window.End)
	if !hasWarning(ledger, WarnDefaultHeavyInput) {
		t.Fatalf("7 of 9 defaulted entries must trigger the default-heavy warning: %+v", ledger.Warnings)
	}
	if ledger.Statistics.Default != 7 {
		t.Fatalf("default count = %d, want 7", ledger.Statistics.Default)
	}
}

func TestLedgerSpeedLossWarning(t *testing.T) {
	in := shiftInput()
	// 800 units in 7h of running: a 20% gap below the ideal rate.
	in.Production.Total = models.Explicit[uint64](800)
	in.Production.Good = models.Explicit[uint64](750)

	validation := Validate(in, DefaultTolerances())
	ledger := BuildLedger(in, validation, models.DefaultThresholds(), in.Window.End)
	if !hasWarning(ledger, WarnSpeedLossHigh) {
		t.Fatalf("20%% speed loss must exceed the 15%% threshold: %+v", ledger.Warnings)
	}
}

func TestLedgerLowUtilizationWarning(t *testing.T) {
	in := shiftInput()
	allTime := models.Explicit(7 * 24 * time.Hour)
	in.Time.AllTime = &allTime

	validation := Validate(in, DefaultTolerances())
	ledger := BuildLedger(in, validation, models.DefaultThresholds(), in.Window.End)
	if !hasWarning(ledger, WarnLowUtilization) {
		t.Fatalf("an 8h window in a 168h week must warn: %+v", ledger.Warnings)
	}
}

func TestLedgerScrapWarning(t *testing.T) {
	in := shiftInput()
	in.Production.Scrap = models.Explicit[uint64](80)
	in.Production.Good = models.Explicit[uint64](900)

	validation := Validate(in, DefaultTolerances())
	ledger := BuildLedger(in, validation, models.DefaultThresholds(), in.Window.End)
	if !hasWarning(ledger, WarnScrapRateElevated) {
		t.Fatal("8% scrap must exceed the 5% business threshold")
	}
}
