package api

import (
	"github.com/shopfloorlabs/oee-engine/internal/models"
	"github.com/shopfloorlabs/oee-engine/internal/utils"
)

type wireMessage struct {
	Key    string         `json:"key"`
	Params map[string]any `json:"params,omitempty"`
}

type wireIssue struct {
	Severity  string      `json:"severity"`
	Code      string      `json:"code"`
	Message   wireMessage `json:"message"`
	FieldPath string      `json:"field_path"`
}

type wireValidation struct {
	IsValid bool        `json:"is_valid"`
	Issues  []wireIssue `json:"issues"`
}

type wireMetric struct {
	Value      float64            `json:"value"`
	Unit       string             `json:"unit"`
	Formula    string             `json:"formula"`
	Params     map[string]float64 `json:"params,omitempty"`
	Confidence string             `json:"confidence"`
}

type wireCoreMetrics struct {
	OperatingSeconds float64    `json:"operating_seconds"`
	Availability     wireMetric `json:"availability"`
	Performance      wireMetric `json:"performance"`
	Quality          wireMetric `json:"quality"`
	OEE              wireMetric `json:"oee"`
}

type wireExtendedMetrics struct {
	TEEP        *wireMetric `json:"teep,omitempty"`
	Utilization *wireMetric `json:"utilization,omitempty"`
	MTBF        *wireMetric `json:"mtbf,omitempty"`
	MTTR        *wireMetric `json:"mttr,omitempty"`
	ScrapRate   wireMetric  `json:"scrap_rate"`
	ReworkRate  wireMetric  `json:"rework_rate"`
}

type wireLossNode struct {
	Key              string         `json:"key"`
	LabelKey         string         `json:"label_key"`
	Category         string         `json:"category"`
	Seconds          float64        `json:"seconds"`
	PercentOfPlanned float64        `json:"percent_of_planned"`
	PercentOfParent  *float64       `json:"percent_of_parent,omitempty"`
	Source           string         `json:"source"`
	Derived          bool           `json:"derived"`
	Children         []wireLossNode `json:"children,omitempty"`
}

type wireLossTree struct {
	PlannedSeconds float64      `json:"planned_seconds"`
	Root           wireLossNode `json:"root"`
}

type wireLedgerEntry struct {
	Key            string   `json:"key"`
	DescriptionKey string   `json:"description_key"`
	Value          string   `json:"value"`
	Source         string   `json:"source"`
	RecordedAt     string   `json:"recorded_at"`
	Impact         string   `json:"impact"`
	RelatedKeys    []string `json:"related_keys,omitempty"`
}

type wireSourceStats struct {
	Total         int     `json:"total"`
	Explicit      int     `json:"explicit"`
	Inferred      int     `json:"inferred"`
	Default       int     `json:"default"`
	ExplicitShare float64 `json:"explicit_share"`
	InferredShare float64 `json:"inferred_share"`
	DefaultShare  float64 `json:"default_share"`
}

type wireLedgerWarning struct {
	Code    string      `json:"code"`
	Message wireMessage `json:"message"`
}

type wireLedger struct {
	Entries    []wireLedgerEntry   `json:"entries"`
	Statistics wireSourceStats     `json:"statistics"`
	Warnings   []wireLedgerWarning `json:"warnings,omitempty"`
}

type wireEconomicImpact struct {
	Range          wireRange `json:"range"`
	Currency       string    `json:"currency"`
	AssumptionKeys []string  `json:"assumption_keys"`
}

type wireEconomicNote struct {
	Code    string      `json:"code"`
	Message wireMessage `json:"message"`
}

type wireEconomicAnalysis struct {
	ThroughputLoss  wireEconomicImpact `json:"throughput_loss"`
	MaterialWaste   wireEconomicImpact `json:"material_waste"`
	ReworkCost      wireEconomicImpact `json:"rework_cost"`
	OpportunityCost wireEconomicImpact `json:"opportunity_cost"`
	TotalImpact     wireEconomicImpact `json:"total_impact"`
	Notes           []wireEconomicNote `json:"notes,omitempty"`
}

type wireResult struct {
	Core       wireCoreMetrics       `json:"core"`
	Extended   wireExtendedMetrics   `json:"extended"`
	LossTree   wireLossTree          `json:"loss_tree"`
	Economics  *wireEconomicAnalysis `json:"economics,omitempty"`
	Ledger     wireLedger            `json:"ledger"`
	Validation wireValidation        `json:"validation"`
}

type wireSensitivityResult struct {
	Dimension string  `json:"dimension"`
	OEEMinus  float64 `json:"oee_minus"`
	OEEPlus   float64 `json:"oee_plus"`
	Delta     float64 `json:"delta"`
}

type wireSensitivityAnalysis struct {
	BaselineOEE      float64                 `json:"baseline_oee"`
	VariationPercent float64                 `json:"variation_percent"`
	Results          []wireSensitivityResult `json:"results"`
}

type wireLeverageImpact struct {
	Category             string  `json:"category"`
	NodeKey              string  `json:"node_key"`
	Seconds              float64 `json:"seconds"`
	HypotheticalOEE      float64 `json:"hypothetical_oee"`
	OeeOpportunityPoints float64 `json:"oee_opportunity_points"`
	ThroughputUnitGain   float64 `json:"throughput_unit_gain"`
	SensitivityScore     float64 `json:"sensitivity_score"`
}

type wireLeverageAnalysis struct {
	BaselineOEE float64              `json:"baseline_oee"`
	Impacts     []wireLeverageImpact `json:"impacts"`
}

type wireTemporalScrap struct {
	StartupWindowSeconds  float64  `json:"startup_window_seconds"`
	StartupRunningSeconds float64  `json:"startup_running_seconds"`
	SteadyRunningSeconds  float64  `json:"steady_running_seconds"`
	StartupScrapUnits     float64  `json:"startup_scrap_units"`
	SteadyScrapUnits      float64  `json:"steady_scrap_units"`
	StartupScrapRate      float64  `json:"startup_scrap_rate"`
	SteadyScrapRate       float64  `json:"steady_scrap_rate"`
	AssumptionKeys        []string `json:"assumption_keys"`
}

type wireFullResult struct {
	Result        wireResult               `json:"result"`
	Sensitivity   *wireSensitivityAnalysis `json:"sensitivity,omitempty"`
	TemporalScrap *wireTemporalScrap       `json:"temporal_scrap,omitempty"`
}

type wireContribution struct {
	MachineID      string  `json:"machine_id"`
	PlannedSeconds float64 `json:"planned_seconds"`
	OEE            float64 `json:"oee"`
	Weight         float64 `json:"weight"`
}

type wireSystemAnalysis struct {
	Method        string             `json:"method"`
	SystemOEE     float64            `json:"system_oee"`
	MachineCount  int                `json:"machine_count"`
	Contributions []wireContribution `json:"contributions"`
}

type wireComparison struct {
	Comparisons       []wireSystemAnalysis `json:"comparisons"`
	RecommendedMethod string               `json:"recommended_method"`
	Rationale         wireMessage          `json:"rationale"`
}

func renderMessage(m models.Message) wireMessage {
	return wireMessage{Key: m.Key, Params: m.Params}
}

func renderValidation(v models.ValidationResult) wireValidation {
	issues := make([]wireIssue, 0, len(v.Issues))
	for _, issue := range v.Issues {
		issues = append(issues, wireIssue{
			Severity:  string(issue.Severity),
			Code:      issue.Code,
			Message:   renderMessage(issue.Message),
			FieldPath: issue.FieldPath,
		})
	}
	return wireValidation{IsValid: v.IsValid, Issues: issues}
}

func renderMetric(m models.TrackedMetric) wireMetric {
	return wireMetric{
		Value:      m.Value,
		Unit:       m.Unit,
		Formula:    m.Formula,
		Params:     m.Params,
		Confidence: string(m.Confidence),
	}
}

func renderOptionalMetric(m *models.TrackedMetric) *wireMetric {
	if m == nil {
		return nil
	}
	rendered := renderMetric(*m)
	return &rendered
}

func renderLossNode(n models.LossNode) wireLossNode {
	children := make([]wireLossNode, 0, len(n.Children))
	for _, child := range n.Children {
		children = append(children, renderLossNode(child))
	}
	return wireLossNode{
		Key:              n.Key,
		LabelKey:         n.LabelKey,
		Category:         string(n.Category),
		Seconds:          utils.Seconds(n.Duration),
		PercentOfPlanned: n.PercentOfPlanned,
		PercentOfParent:  n.PercentOfParent,
		Source:           string(n.Source),
		Derived:          n.Derived,
		Children:         children,
	}
}

func renderLedger(l models.AssumptionLedger) wireLedger {
	entries := make([]wireLedgerEntry, 0, len(l.Entries))
	for _, e := range l.Entries {
		entries = append(entries, wireLedgerEntry{
			Key:            e.Key,
			DescriptionKey: e.DescriptionKey,
			Value:          e.Value,
			Source:         string(e.Source),
			RecordedAt:     utils.FormatRFC3339(e.RecordedAt),
			Impact:         string(e.Impact),
			RelatedKeys:    e.RelatedKeys,
		})
	}
	warnings := make([]wireLedgerWarning, 0, len(l.Warnings))
	for _, w := range l.Warnings {
		warnings = append(warnings, wireLedgerWarning{Code: w.Code, Message: renderMessage(w.Message)})
	}
	return wireLedger{
		Entries: entries,
		Statistics: wireSourceStats{
			Total:         l.Statistics.Total,
			Explicit:      l.Statistics.Explicit,
			Inferred:      l.Statistics.Inferred,
			Default:       l.Statistics.Default,
			ExplicitShare: l.Statistics.ExplicitShare,
			InferredShare: l.Statistics.InferredShare,
			DefaultShare:  l.Statistics.DefaultShare,
		},
		Warnings: warnings,
	}
}

func renderRange(r models.EconomicRange) wireRange {
	return wireRange{Low: r.Low, Central: r.Central, High: r.High}
}

func renderImpact(i models.EconomicImpact) wireEconomicImpact {
	return wireEconomicImpact{
		Range:          renderRange(i.Range),
		Currency:       i.Currency,
		AssumptionKeys: i.AssumptionKeys,
	}
}

func renderEconomics(e *models.EconomicAnalysis) *wireEconomicAnalysis {
	if e == nil {
		return nil
	}
	notes := make([]wireEconomicNote, 0, len(e.Notes))
	for _, n := range e.Notes {
		notes = append(notes, wireEconomicNote{Code: n.Code, Message: renderMessage(n.Message)})
	}
	return &wireEconomicAnalysis{
		ThroughputLoss:  renderImpact(e.ThroughputLoss),
		MaterialWaste:   renderImpact(e.MaterialWaste),
		ReworkCost:      renderImpact(e.ReworkCost),
		OpportunityCost: renderImpact(e.OpportunityCost),
		TotalImpact:     renderImpact(e.TotalImpact),
		Notes:           notes,
	}
}

func renderResult(r models.OeeResult) wireResult {
	return wireResult{
		Core: wireCoreMetrics{
			OperatingSeconds: utils.Seconds(r.Core.OperatingTime),
			Availability:     renderMetric(r.Core.Availability),
			Performance:      renderMetric(r.Core.Performance),
			Quality:          renderMetric(r.Core.Quality),
			OEE:              renderMetric(r.Core.OEE),
		},
		Extended: wireExtendedMetrics{
			TEEP:        renderOptionalMetric(r.Extended.TEEP),
			Utilization: renderOptionalMetric(r.Extended.Utilization),
			MTBF:        renderOptionalMetric(r.Extended.MTBF),
			MTTR:        renderOptionalMetric(r.Extended.MTTR),
			ScrapRate:   renderMetric(r.Extended.ScrapRate),
			ReworkRate:  renderMetric(r.Extended.ReworkRate),
		},
		LossTree: wireLossTree{
			PlannedSeconds: utils.Seconds(r.LossTree.PlannedTime),
			Root:           renderLossNode(r.LossTree.Root),
		},
		Economics:  renderEconomics(r.Economics),
		Ledger:     renderLedger(r.Ledger),
		Validation: renderValidation(r.Validation),
	}
}

func renderFullResult(f models.FullResult) wireFullResult {
	out := wireFullResult{Result: renderResult(f.Result)}
	if f.Sensitivity != nil {
		out.Sensitivity = renderSensitivity(*f.Sensitivity)
	}
	if f.TemporalScrap != nil {
		out.TemporalScrap = renderTemporalScrap(*f.TemporalScrap)
	}
	return out
}

func renderSensitivity(s models.SensitivityAnalysis) *wireSensitivityAnalysis {
	results := make([]wireSensitivityResult, 0, len(s.Results))
	for _, r := range s.Results {
		results = append(results, wireSensitivityResult{
			Dimension: r.Dimension,
			OEEMinus:  r.OEEMinus,
			OEEPlus:   r.OEEPlus,
			Delta:     r.Delta,
		})
	}
	return &wireSensitivityAnalysis{
		BaselineOEE:      s.BaselineOEE,
		VariationPercent: s.VariationPercent,
		Results:          results,
	}
}

func renderLeverage(l models.LeverageAnalysis) wireLeverageAnalysis {
	impacts := make([]wireLeverageImpact, 0, len(l.Impacts))
	for _, i := range l.Impacts {
		impacts = append(impacts, wireLeverageImpact{
			Category:             string(i.Category),
			NodeKey:              i.NodeKey,
			Seconds:              utils.Seconds(i.Duration),
			HypotheticalOEE:      i.HypotheticalOEE,
			OeeOpportunityPoints: i.OeeOpportunityPoints,
			ThroughputUnitGain:   i.ThroughputUnitGain,
			SensitivityScore:     i.SensitivityScore,
		})
	}
	return wireLeverageAnalysis{BaselineOEE: l.BaselineOEE, Impacts: impacts}
}

func renderTemporalScrap(t models.TemporalScrapAnalysis) *wireTemporalScrap {
	return &wireTemporalScrap{
		StartupWindowSeconds:  utils.Seconds(t.StartupWindow),
		StartupRunningSeconds: utils.Seconds(t.StartupRunningTime),
		SteadyRunningSeconds:  utils.Seconds(t.SteadyRunningTime),
		StartupScrapUnits:     t.StartupScrapUnits,
		SteadyScrapUnits:      t.SteadyScrapUnits,
		StartupScrapRate:      t.StartupScrapRate,
		SteadyScrapRate:       t.SteadyScrapRate,
		AssumptionKeys:        t.AssumptionKeys,
	}
}

func renderSystemAnalysis(a models.SystemOeeAnalysis) wireSystemAnalysis {
	contributions := make([]wireContribution, 0, len(a.Contributions))
	for _, c := range a.Contributions {
		contributions = append(contributions, wireContribution{
			MachineID:      c.MachineID,
			PlannedSeconds: utils.Seconds(c.PlannedTime),
			OEE:            c.OEE,
			Weight:         c.Weight,
		})
	}
	return wireSystemAnalysis{
		Method:        string(a.Method),
		SystemOEE:     a.SystemOEE,
		MachineCount:  a.MachineCount,
		Contributions: contributions,
	}
}

func renderComparison(c models.AggregationComparison) wireComparison {
	comparisons := make([]wireSystemAnalysis, 0, len(c.Comparisons))
	for _, analysis := range c.Comparisons {
		comparisons = append(comparisons, renderSystemAnalysis(analysis))
	}
	return wireComparison{
		Comparisons:       comparisons,
		RecommendedMethod: string(c.RecommendedMethod),
		Rationale:         renderMessage(c.Rationale),
	}
}
