package engine

import (
	"testing"
	"time"

	"github.com/shopfloorlabs/oee-engine/internal/models"
)

// checkSums verifies the structural invariant: every parent with children is
// exactly the sum of them, to the nanosecond.
func checkSums(t *testing.T, node models.LossNode) {
	t.Helper()
	if len(node.Children) == 0 {
		return
	}
	var sum time.Duration
	for _, child := range node.Children {
		sum += child.Duration
		checkSums(t, child)
	}
	if sum != node.Duration {
		t.Fatalf("node %s: children sum %s != duration %s", node.Key, sum, node.Duration)
	}
}

func TestLossTreeExactPartition(t *testing.T) {
	in := shiftInput()
	tree := BuildLossTree(in, models.DefaultThresholds())

	if tree.PlannedTime != 8*time.Hour {
		t.Fatalf("planned = %s", tree.PlannedTime)
	}
	if tree.Root.Duration != tree.PlannedTime {
		t.Fatalf("root duration = %s, want planned", tree.Root.Duration)
	}
	checkSums(t, tree.Root)

	branches := map[string]time.Duration{}
	for _, child := range tree.Root.Children {
		branches[child.Key] = child.Duration
	}
	if branches["availability"] != time.Hour {
		t.Fatalf("availability = %s, want 1h", branches["availability"])
	}
	if branches["performance"] != 0 {
		t.Fatalf("performance = %s, want 0 at ideal rate", branches["performance"])
	}
	// 50 defective units at 25.2s each.
	if branches["quality"] != 1260*time.Second {
		t.Fatalf("quality = %s, want 21m0s", branches["quality"])
	}
	if branches["effective"] != 8*time.Hour-time.Hour-1260*time.Second {
		t.Fatalf("effective = %s", branches["effective"])
	}
}

func TestLossTreePercentages(t *testing.T) {
	tree := BuildLossTree(shiftInput(), models.DefaultThresholds())

	if tree.Root.PercentOfParent != nil {
		t.Fatal("root must have no parent percentage")
	}
	approx(t, "root percent of planned", tree.Root.PercentOfPlanned, 1.0, 1e-9)

	for _, child := range tree.Root.Children {
		if child.PercentOfParent == nil {
			t.Fatalf("%s missing percent of parent", child.Key)
		}
		approx(t, child.Key+" percent", *child.PercentOfParent, child.PercentOfPlanned, 1e-9)
	}
}

func TestLossTreeReasonHierarchy(t *testing.T) {
	tree := BuildLossTree(shiftInput(), models.DefaultThresholds())

	var availability models.LossNode
	for _, child := range tree.Root.Children {
		if child.Key == "availability" {
			availability = child
		}
	}
	if len(availability.Children) != 1 {
		t.Fatalf("availability children = %d, want 1", len(availability.Children))
	}
	stops := availability.Children[0]
	if stops.Key != "availability.unplanned_stops" {
		t.Fatalf("child key = %s", stops.Key)
	}
	if len(stops.Children) != 1 || stops.Children[0].Key != "availability.unplanned_stops.mechanical" {
		t.Fatalf("reason level missing: %+v", stops.Children)
	}
	leaf := stops.Children[0].Children
	if len(leaf) != 1 || leaf[0].Key != "availability.unplanned_stops.mechanical.bearing_failure" {
		t.Fatalf("leaf level missing: %+v", leaf)
	}
	if leaf[0].Duration != time.Hour {
		t.Fatalf("leaf duration = %s", leaf[0].Duration)
	}
}

func TestLossTreeMicroStoppageSplit(t *testing.T) {
	in := shiftInput()
	// 900 units leave a 2520s gap below the ideal rate; a 60s downtime
	// record sits under the micro-stoppage threshold.
	in.Production.Total = models.Explicit[uint64](900)
	in.Production.Good = models.Explicit[uint64](850)
	in.Downtime = append(in.Downtime, models.DowntimeRecord{
		Duration: models.Explicit(60 * time.Second),
		Reason:   models.ReasonCode{Path: []string{"Jam"}},
	})

	tree := BuildLossTree(in, models.DefaultThresholds())
	checkSums(t, tree.Root)

	var perf models.LossNode
	for _, child := range tree.Root.Children {
		if child.Key == "performance" {
			perf = child
		}
	}
	if perf.Duration != 2520*time.Second {
		t.Fatalf("performance loss = %s, want 42m0s", perf.Duration)
	}
	if len(perf.Children) != 2 {
		t.Fatalf("performance children = %d, want micro and speed", len(perf.Children))
	}
	if perf.Children[0].Duration != 60*time.Second {
		t.Fatalf("micro stoppages = %s, want 1m0s", perf.Children[0].Duration)
	}
	if perf.Children[1].Duration != 2460*time.Second {
		t.Fatalf("speed loss = %s, want 41m0s", perf.Children[1].Duration)
	}
}

func TestLossTreeSmallStopSplit(t *testing.T) {
	in := shiftInput()
	in.Production.Total = models.Explicit[uint64](900)
	in.Production.Good = models.Explicit[uint64](850)
	in.Downtime = append(in.Downtime,
		models.DowntimeRecord{
			Duration: models.Explicit(60 * time.Second),
			Reason:   models.ReasonCode{Path: []string{"Jam"}},
		},
		models.DowntimeRecord{
			Duration: models.Explicit(5 * time.Minute),
			Reason:   models.ReasonCode{Path: []string{"Label Change"}},
		},
	)

	tree := BuildLossTree(in, models.DefaultThresholds())
	checkSums(t, tree.Root)

	var perf models.LossNode
	for _, child := range tree.Root.Children {
		if child.Key == "performance" {
			perf = child
		}
	}
	durations := map[string]time.Duration{}
	for _, child := range perf.Children {
		durations[child.Key] = child.Duration
	}
	if durations["performance.micro_stoppages"] != 60*time.Second {
		t.Fatalf("micro = %s", durations["performance.micro_stoppages"])
	}
	if durations["performance.small_stops"] != 5*time.Minute {
		t.Fatalf("small stops = %s", durations["performance.small_stops"])
	}
	if durations["performance.speed_loss"] != 2520*time.Second-60*time.Second-5*time.Minute {
		t.Fatalf("speed loss = %s", durations["performance.speed_loss"])
	}
}

func TestLossTreePerformanceFloor(t *testing.T) {
	in := shiftInput()
	// More units than the ideal rate allows: the loss is floored, never negative.
	in.Production.Total = models.Explicit[uint64](1200)
	in.Production.Good = models.Explicit[uint64](1150)

	tree := BuildLossTree(in, models.DefaultThresholds())
	checkSums(t, tree.Root)

	for _, child := range tree.Root.Children {
		if child.Key == "performance" {
			if child.Duration != 0 {
				t.Fatalf("performance loss = %s, want 0", child.Duration)
			}
			if len(child.Children) != 0 {
				t.Fatal("zero loss must not be subdivided")
			}
		}
	}
}
