package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/shopfloorlabs/oee-engine/internal/models"
	"github.com/shopfloorlabs/oee-engine/internal/utils"
)

func testPipeline() *Pipeline {
	return NewPipeline(nil, DefaultTolerances())
}

func TestCalculateDeterminism(t *testing.T) {
	p := testPipeline()
	ctx := context.Background()

	first, err := p.Calculate(ctx, shiftInput(), models.DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Calculate(ctx, shiftInput(), models.DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("identical inputs produced differing results (-first +second):\n%s", diff)
	}
}

func TestCalculateStructuralRejection(t *testing.T) {
	p := testPipeline()
	in := shiftInput()
	in.Time.Planned = models.Explicit(time.Duration(0))

	_, err := p.Calculate(context.Background(), in, models.DefaultThresholds())
	if err == nil {
		t.Fatal("zero planned time must be rejected")
	}
	if !errors.Is(err, utils.ErrStructural) {
		t.Fatalf("error %v must wrap the structural sentinel", err)
	}
}

func TestCalculateBestEffortOnFatalIssues(t *testing.T) {
	p := testPipeline()
	in := shiftInput()
	in.Production.Good = models.Explicit[uint64](980)

	result, err := p.Calculate(context.Background(), in, models.DefaultThresholds())
	if err != nil {
		t.Fatalf("fatal validation issues must not block: %v", err)
	}
	if result.Validation.IsValid {
		t.Fatal("result must carry the fatal issue")
	}
	if result.Core.OEE.Value <= 0 {
		t.Fatal("best-effort metrics must still be computed")
	}
	found := false
	for _, w := range result.Ledger.Warnings {
		if w.Code == WarnFatalIssuesFound {
			found = true
		}
	}
	if !found {
		t.Fatal("ledger must flag the fatal issues")
	}
}

func TestCalculateWithEconomics(t *testing.T) {
	p := testPipeline()
	result, err := p.CalculateWithEconomics(context.Background(), shiftInput(), models.DefaultThresholds(), shiftEconomics())
	if err != nil {
		t.Fatal(err)
	}
	if result.Economics == nil {
		t.Fatal("economics stage missing")
	}
	if result.Economics.TotalImpact.Range.Central <= 0 {
		t.Fatal("a lossy shift must carry a positive central impact")
	}
}

func TestCalculateFullStages(t *testing.T) {
	p := testPipeline()
	params := shiftEconomics()
	opts := FullOptions{
		Economics:           &params,
		IncludeSensitivity:  true,
		TemporalScrapWindow: time.Hour,
	}

	full, err := p.CalculateFull(context.Background(), shiftInput(), models.DefaultThresholds(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if full.Result.Economics == nil {
		t.Fatal("economics stage missing")
	}
	if full.Sensitivity == nil {
		t.Fatal("sensitivity stage missing")
	}
	if full.TemporalScrap == nil {
		t.Fatal("temporal scrap stage missing")
	}
	if len(full.Result.Ledger.Entries) == 0 {
		t.Fatal("ledger missing from full result")
	}
	if full.Sensitivity.VariationPercent != DefaultVariationPercent {
		t.Fatalf("unset variation must fall back to the stock %v", DefaultVariationPercent)
	}
}

func TestCalculateFullOptionalStagesOff(t *testing.T) {
	p := testPipeline()
	full, err := p.CalculateFull(context.Background(), shiftInput(), models.DefaultThresholds(), FullOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if full.Result.Economics != nil || full.Sensitivity != nil || full.TemporalScrap != nil {
		t.Fatal("optional stages must stay off unless requested")
	}
}

func TestPipelineLedgerStampedWithWindowEnd(t *testing.T) {
	p := testPipeline()
	in := shiftInput()
	result, err := p.Calculate(context.Background(), in, models.DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range result.Ledger.Entries {
		if !entry.RecordedAt.Equal(in.Window.End) {
			t.Fatalf("entry %s stamped %s, want the window end", entry.Key, entry.RecordedAt)
		}
	}
}

func TestPipelineAggregation(t *testing.T) {
	p := testPipeline()
	ctx := context.Background()

	analysis, err := p.AggregateSystem(ctx, lineMachines(), models.AggregateWeightedAverage)
	if err != nil {
		t.Fatal(err)
	}
	approx(t, "system oee", analysis.SystemOEE, 0.8, 1e-9)

	if _, err := p.AggregateSystem(ctx, nil, models.AggregateWeightedAverage); !errors.Is(err, utils.ErrStructural) {
		t.Fatalf("empty machine set must map to a structural error, got %v", err)
	}

	comparison, err := p.CompareAggregationMethods(ctx, lineMachines())
	if err != nil {
		t.Fatal(err)
	}
	if comparison.RecommendedMethod == "" {
		t.Fatal("comparison must recommend a method")
	}
}

func TestPipelineSensitivityEntryPoints(t *testing.T) {
	p := testPipeline()
	ctx := context.Background()

	sens, err := p.AnalyzeSensitivity(ctx, shiftInput(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(sens.Results) != 6 {
		t.Fatalf("results = %d", len(sens.Results))
	}

	lev, err := p.AnalyzeLeverage(ctx, shiftInput(), models.DefaultThresholds(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(lev.Impacts) == 0 {
		t.Fatal("leverage impacts missing")
	}

	bad := shiftInput()
	bad.CycleTime.Ideal = models.Explicit(time.Duration(0))
	if _, err := p.AnalyzeSensitivity(ctx, bad, 10); !errors.Is(err, utils.ErrStructural) {
		t.Fatalf("structural defect must be rejected, got %v", err)
	}
}
