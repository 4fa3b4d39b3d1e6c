package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/shopfloorlabs/oee-engine/internal/models"
	"github.com/shopfloorlabs/oee-engine/internal/utils"
)

// contribution is one duration feeding a loss node, with its reason path and
// provenance.
type contribution struct {
	path []string
	dur  time.Duration
	src  models.Source
}

// BuildLossTree partitions planned time into availability, performance and
// quality branches plus a residual fully-productive node. The partition is
// strictly arithmetic: children always sum to their parent by construction,
// and any input discrepancy is the validator's to report, never the tree's
// to correct.
func BuildLossTree(in models.OeeInput, thresholds models.ThresholdConfiguration) models.LossTree {
	planned := in.Time.Planned.Value()
	operating, operatingSrc := OperatingTime(in)

	availability := buildAvailabilityBranch(in)
	performance := buildPerformanceBranch(in, thresholds, operating, operatingSrc)
	quality := buildQualityBranch(in)

	residual := planned - availability.Duration - performance.Duration - quality.Duration
	effective := models.LossNode{
		Key:      "effective",
		LabelKey: "loss.fully_productive_time",
		Category: models.LossEffective,
		Duration: residual,
		Source: models.WeakestSource(in.Time.Planned.Source(), availability.Source,
			performance.Source, quality.Source),
		Derived: true,
	}

	root := models.LossNode{
		Key:      "planned",
		LabelKey: "loss.planned_time",
		Duration: planned,
		Source:   in.Time.Planned.Source(),
		Children: []models.LossNode{availability, performance, quality, effective},
	}
	setPercentages(&root, planned, nil)

	return models.LossTree{PlannedTime: planned, Root: root}
}

func buildAvailabilityBranch(in models.OeeInput) models.LossNode {
	byCategory := make(map[string][]contribution)
	for _, alloc := range in.Time.Allocations {
		if alloc.State == models.StateRunning {
			continue
		}
		c := contribution{dur: alloc.Duration.Value(), src: alloc.Duration.Source()}
		if alloc.Reason != nil {
			c.path = alloc.Reason.Path
		}
		category := stateCategory(alloc.State)
		byCategory[category] = append(byCategory[category], c)
	}

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	node := models.LossNode{
		Key:      "availability",
		LabelKey: "loss.availability",
		Category: models.LossAvailability,
		Source:   models.SourceExplicit,
	}
	for _, category := range categories {
		contribs := byCategory[category]
		child := models.LossNode{
			Key:      node.Key + "." + category,
			LabelKey: "loss." + category,
			Category: models.LossAvailability,
			Duration: sumContributions(contribs),
			Source:   weakestContribution(contribs),
			Children: reasonChildren(node.Key+"."+category, models.LossAvailability, contribs, 0),
		}
		node.Duration += child.Duration
		node.Source = models.WeakestSource(node.Source, child.Source)
		node.Children = append(node.Children, child)
	}
	return node
}

// reasonChildren recursively groups contributions by successive segments of
// their reason-code path. Contributions whose path ends at this depth stay in
// an explicit unspecified leaf so that sums remain exact.
func reasonChildren(key string, category models.LossCategory, contribs []contribution, depth int) []models.LossNode {
	groups := make(map[string][]contribution)
	var terminal []contribution
	for _, c := range contribs {
		if len(c.path) > depth {
			groups[c.path[depth]] = append(groups[c.path[depth]], c)
		} else {
			terminal = append(terminal, c)
		}
	}
	if len(groups) == 0 {
		return nil
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	children := make([]models.LossNode, 0, len(names)+1)
	if len(terminal) > 0 {
		children = append(children, models.LossNode{
			Key:      key + ".unspecified",
			LabelKey: "loss.unspecified",
			Category: category,
			Duration: sumContributions(terminal),
			Source:   weakestContribution(terminal),
		})
	}
	for _, name := range names {
		sub := groups[name]
		childKey := key + "." + slug(name)
		children = append(children, models.LossNode{
			Key:      childKey,
			LabelKey: name,
			Category: category,
			Duration: sumContributions(sub),
			Source:   weakestContribution(sub),
			Children: reasonChildren(childKey, category, sub, depth+1),
		})
	}
	return children
}

// buildPerformanceBranch holds the derived gap between operating time and
// theoretical ideal time, split into micro-stoppages backed by short downtime
// records and the remaining speed loss.
func buildPerformanceBranch(in models.OeeInput, thresholds models.ThresholdConfiguration, operating time.Duration, operatingSrc models.Source) models.LossNode {
	ideal := in.CycleTime.Ideal
	total := in.Production.Total
	theoretical := time.Duration(float64(ideal.Value()) * float64(total.Value()))

	loss := operating - theoretical
	if loss < 0 {
		// Faster than ideal: the residual node absorbs the excess and the
		// validator reports the >100% performance conflict.
		loss = 0
	}

	src := models.WeakestSource(operatingSrc, ideal.Source(), total.Source())
	node := models.LossNode{
		Key:      "performance",
		LabelKey: "loss.performance",
		Category: models.LossPerformance,
		Duration: loss,
		Source:   src,
		Derived:  true,
	}
	if loss == 0 {
		return node
	}

	var micro, small time.Duration
	microSrc, smallSrc := src, src
	for _, rec := range in.Downtime {
		d := rec.Duration.Value()
		switch {
		case d < thresholds.MicroStoppage:
			micro += d
			microSrc = models.WeakestSource(microSrc, rec.Duration.Source())
		case d < thresholds.SmallStop:
			small += d
			smallSrc = models.WeakestSource(smallSrc, rec.Duration.Source())
		}
	}
	if micro > loss {
		micro = loss
	}
	if small > loss-micro {
		small = loss - micro
	}

	node.Children = []models.LossNode{{
		Key:      "performance.micro_stoppages",
		LabelKey: "loss.micro_stoppages",
		Category: models.LossPerformance,
		Duration: micro,
		Source:   microSrc,
	}}
	if small > 0 {
		node.Children = append(node.Children, models.LossNode{
			Key:      "performance.small_stops",
			LabelKey: "loss.small_stops",
			Category: models.LossPerformance,
			Duration: small,
			Source:   smallSrc,
		})
	}
	node.Children = append(node.Children, models.LossNode{
		Key:      "performance.speed_loss",
		LabelKey: "loss.speed_loss",
		Category: models.LossPerformance,
		Duration: loss - micro - small,
		Source:   src,
		Derived:  true,
	})
	return node
}

// buildQualityBranch converts defective units into a time-equivalent at the
// ideal rate, split into scrap and rework leaves.
func buildQualityBranch(in models.OeeInput) models.LossNode {
	ideal := in.CycleTime.Ideal
	scrap := in.Production.Scrap
	rework := in.Production.Reworked

	scrapTime := time.Duration(float64(ideal.Value()) * float64(scrap.Value()))
	reworkTime := time.Duration(float64(ideal.Value()) * float64(rework.Value()))

	children := []models.LossNode{
		{
			Key:      "quality.scrap",
			LabelKey: "loss.scrap_time",
			Category: models.LossQuality,
			Duration: scrapTime,
			Source:   models.WeakestSource(scrap.Source(), ideal.Source()),
			Derived:  true,
		},
		{
			Key:      "quality.rework",
			LabelKey: "loss.rework_time",
			Category: models.LossQuality,
			Duration: reworkTime,
			Source:   models.WeakestSource(rework.Source(), ideal.Source()),
			Derived:  true,
		},
	}
	return models.LossNode{
		Key:      "quality",
		LabelKey: "loss.quality",
		Category: models.LossQuality,
		Duration: scrapTime + reworkTime,
		Source:   models.WeakestSource(children[0].Source, children[1].Source),
		Derived:  true,
		Children: children,
	}
}

// setPercentages walks top-down, passing the parent duration so ownership
// stays acyclic.
func setPercentages(node *models.LossNode, planned time.Duration, parent *time.Duration) {
	node.PercentOfPlanned = utils.SafeDiv(node.Duration.Seconds(), planned.Seconds())
	if parent != nil {
		p := utils.SafeDiv(node.Duration.Seconds(), parent.Seconds())
		node.PercentOfParent = &p
	}
	for i := range node.Children {
		setPercentages(&node.Children[i], planned, &node.Duration)
	}
}

func stateCategory(state models.MachineState) string {
	switch state {
	case models.StateStopped:
		return "unplanned_stops"
	case models.StateSetup:
		return "setup"
	case models.StateStarved:
		return "starvation"
	case models.StateBlocked:
		return "blockage"
	case models.StateMaintenance:
		return "maintenance"
	default:
		return "unknown"
	}
}

func sumContributions(contribs []contribution) time.Duration {
	var total time.Duration
	for _, c := range contribs {
		total += c.dur
	}
	return total
}

func weakestContribution(contribs []contribution) models.Source {
	sources := make([]models.Source, 0, len(contribs))
	for _, c := range contribs {
		sources = append(sources, c.src)
	}
	return models.WeakestSource(sources...)
}

func slug(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, lowered)
}
