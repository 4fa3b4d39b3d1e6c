package models

import "time"

// Message is a renderable key plus substitution parameters. The engine never
// formats user-facing prose; presentation layers localize from the key.
type Message struct {
	Key    string
	Params map[string]any
}

// IssueSeverity grades validation issues.
type IssueSeverity string

const (
	SeverityFatal   IssueSeverity = "fatal"
	SeverityWarning IssueSeverity = "warning"
	SeverityInfo    IssueSeverity = "info"
)

// ValidationIssue reports one internal-coherence finding. Issues state
// implications and conflicts, never corrective instructions, and never block
// computation.
type ValidationIssue struct {
	Severity  IssueSeverity
	Code      string
	Message   Message
	FieldPath string
}

// ValidationResult carries every issue found. IsValid means no fatal issue
// was present; the result is still best-effort computed either way.
type ValidationResult struct {
	IsValid bool
	Issues  []ValidationIssue
}

// Confidence grades a metric by the provenance of everything it consumed.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ConfidenceFrom derives a confidence tier: High only when every consumed
// value was explicit, Low as soon as any default was consumed.
func ConfidenceFrom(sources ...Source) Confidence {
	confidence := ConfidenceHigh
	for _, s := range sources {
		switch s {
		case SourceDefault:
			return ConfidenceLow
		case SourceInferred:
			confidence = ConfidenceMedium
		}
	}
	return confidence
}

// TrackedMetric is a metric value plus everything needed to audit it: the
// formula identifier, the concrete parameters substituted into it, and the
// confidence tier implied by its inputs' provenance.
type TrackedMetric struct {
	Value      float64
	Unit       string
	Formula    string
	Params     map[string]float64
	Confidence Confidence
}

// CoreMetrics are the four headline ratios.
type CoreMetrics struct {
	OperatingTime time.Duration
	Availability  TrackedMetric
	Performance   TrackedMetric
	Quality       TrackedMetric
	OEE           TrackedMetric
}

// ExtendedMetrics are the secondary figures. TEEP, Utilization, MTBF and
// MTTR are absent when their preconditions do not hold.
type ExtendedMetrics struct {
	TEEP        *TrackedMetric
	Utilization *TrackedMetric
	MTBF        *TrackedMetric
	MTTR        *TrackedMetric
	ScrapRate   TrackedMetric
	ReworkRate  TrackedMetric
}

// LossCategory names the first-level branches of the loss tree.
type LossCategory string

const (
	LossAvailability LossCategory = "availability"
	LossPerformance  LossCategory = "performance"
	LossQuality      LossCategory = "quality"
	LossEffective    LossCategory = "effective"
)

// LossNode is one node of the arithmetic partition of planned time. Children
// are owned; there are no parent pointers. PercentOfParent is nil at the root.
type LossNode struct {
	Key              string
	LabelKey         string
	Category         LossCategory
	Duration         time.Duration
	PercentOfPlanned float64
	PercentOfParent  *float64
	Source           Source
	Derived          bool
	Children         []LossNode
}

// LossTree partitions planned time into loss categories. Every node states
// time allocated to a category, never time lost because of it.
type LossTree struct {
	PlannedTime time.Duration
	Root        LossNode
}

// ImpactTier grades how much an assumption can move the result.
type ImpactTier string

const (
	ImpactCritical ImpactTier = "critical"
	ImpactHigh     ImpactTier = "high"
	ImpactMedium   ImpactTier = "medium"
	ImpactLow      ImpactTier = "low"
	ImpactInfo     ImpactTier = "info"
)

// AssumptionEntry records one input value in the audit trail.
type AssumptionEntry struct {
	Key            string
	DescriptionKey string
	Value          string
	Source         Source
	RecordedAt     time.Time
	Impact         ImpactTier
	RelatedKeys    []string
}

// SourceStatistics counts ledger entries per provenance tag.
type SourceStatistics struct {
	Total         int
	Explicit      int
	Inferred      int
	Default       int
	ExplicitShare float64
	InferredShare float64
	DefaultShare  float64
}

// LedgerWarning is a non-fatal business-rule note, distinct from the
// validator's purely mathematical issues.
type LedgerWarning struct {
	Code    string
	Message Message
}

// AssumptionLedger is the complete audit trail of every input value.
type AssumptionLedger struct {
	Entries    []AssumptionEntry
	Statistics SourceStatistics
	Warnings   []LedgerWarning
}

// EconomicImpact is one uncertainty-bounded estimate plus the literal
// assumption keys it consumed.
type EconomicImpact struct {
	Range          EconomicRange
	Currency       string
	AssumptionKeys []string
}

// EconomicNote is an advisory, non-blocking hint about the estimates.
type EconomicNote struct {
	Code    string
	Message Message
}

// EconomicAnalysis maps losses into impact estimates. Everything here is an
// estimate, never accounting-grade truth.
type EconomicAnalysis struct {
	ThroughputLoss  EconomicImpact
	MaterialWaste   EconomicImpact
	ReworkCost      EconomicImpact
	OpportunityCost EconomicImpact
	TotalImpact     EconomicImpact
	Notes           []EconomicNote
}

// SensitivityResult records the OEE response to perturbing one dimension.
type SensitivityResult struct {
	Dimension string
	OEEMinus  float64
	OEEPlus   float64
	// Delta is the mean absolute OEE change across the two perturbations.
	Delta float64
}

// SensitivityAnalysis is a finite-difference elasticity estimate of OEE
// against each independent input dimension.
type SensitivityAnalysis struct {
	BaselineOEE      float64
	VariationPercent float64
	Results          []SensitivityResult
}

// LeverageImpact is the hypothetical gain from eliminating one loss category
// entirely, paired with a stability score for that estimate.
type LeverageImpact struct {
	Category             LossCategory
	NodeKey              string
	Duration             time.Duration
	HypotheticalOEE      float64
	OeeOpportunityPoints float64
	ThroughputUnitGain   float64
	// SensitivityScore is 0..1: low means the gain estimate is stable under
	// input perturbation, high means it is fragile.
	SensitivityScore float64
}

// LeverageAnalysis ranks loss categories by elimination impact.
type LeverageAnalysis struct {
	BaselineOEE float64
	Impacts     []LeverageImpact
}

// TemporalScrapAnalysis splits scrap between a startup window and steady
// state. The split is proportional to running time and is an estimate.
type TemporalScrapAnalysis struct {
	StartupWindow      time.Duration
	StartupRunningTime time.Duration
	SteadyRunningTime  time.Duration
	StartupScrapUnits  float64
	SteadyScrapUnits   float64
	StartupScrapRate   float64
	SteadyScrapRate    float64
	AssumptionKeys     []string
}

// AggregationMethod enumerates the supported multi-unit combinations.
type AggregationMethod string

const (
	AggregateWeightedAverage AggregationMethod = "weighted_average"
	AggregateWorstPerformer  AggregationMethod = "worst_performer"
	AggregateMultiplicative  AggregationMethod = "multiplicative"
)

// MachineOeeData is one unit's contribution to a system-level figure.
type MachineOeeData struct {
	Context      MachineContext
	PlannedTime  time.Duration
	Availability float64
	Performance  float64
	Quality      float64
	OEE          float64
}

// MachineContribution explains one machine's weight in the system figure.
type MachineContribution struct {
	MachineID   string
	PlannedTime time.Duration
	OEE         float64
	Weight      float64
}

// SystemOeeAnalysis is a system-level OEE under one aggregation method.
type SystemOeeAnalysis struct {
	Method        AggregationMethod
	SystemOEE     float64
	MachineCount  int
	Contributions []MachineContribution
}

// AggregationComparison runs every method and recommends one. The
// recommendation is advisory text, not a hidden default.
type AggregationComparison struct {
	Comparisons       []SystemOeeAnalysis
	RecommendedMethod AggregationMethod
	Rationale         Message
}

// OeeResult is the complete, self-contained output of one calculation. It
// owns no reference back to the input.
type OeeResult struct {
	Core       CoreMetrics
	Extended   ExtendedMetrics
	LossTree   LossTree
	Economics  *EconomicAnalysis
	Ledger     AssumptionLedger
	Validation ValidationResult
}

// FullResult bundles the core result with the optional analysis stages.
type FullResult struct {
	Result        OeeResult
	Sensitivity   *SensitivityAnalysis
	TemporalScrap *TemporalScrapAnalysis
}
