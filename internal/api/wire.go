package api

import (
	"fmt"
	"time"

	"github.com/shopfloorlabs/oee-engine/internal/models"
	"github.com/shopfloorlabs/oee-engine/internal/utils"
)

// Wire types are the JSON boundary. Durations travel as float seconds,
// timestamps as RFC3339, ratios as 0..1 fractions. Domain models never carry
// JSON tags; all mapping happens here.

type durationValue struct {
	Seconds float64 `json:"seconds"`
	Source  string  `json:"source"`
}

type countValue struct {
	Value  uint64 `json:"value"`
	Source string `json:"source"`
}

type wireWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type wireMachine struct {
	MachineID string `json:"machine_id"`
	LineID    string `json:"line_id,omitempty"`
	ProductID string `json:"product_id,omitempty"`
	ShiftID   string `json:"shift_id,omitempty"`
}

type wireReason struct {
	Path      []string `json:"path"`
	IsFailure bool     `json:"is_failure"`
}

type wireAllocation struct {
	State    string        `json:"state"`
	Duration durationValue `json:"duration"`
	Reason   *wireReason   `json:"reason,omitempty"`
	Notes    string        `json:"notes,omitempty"`
}

type wireTimeModel struct {
	Planned     durationValue    `json:"planned"`
	Allocations []wireAllocation `json:"allocations"`
	AllTime     *durationValue   `json:"all_time,omitempty"`
}

type wireProduction struct {
	Total    countValue `json:"total"`
	Good     countValue `json:"good"`
	Scrap    countValue `json:"scrap"`
	Reworked countValue `json:"reworked"`
}

type wireCycleTime struct {
	Ideal    durationValue  `json:"ideal"`
	Observed *durationValue `json:"observed,omitempty"`
}

type wireDowntime struct {
	Duration  durationValue `json:"duration"`
	Reason    wireReason    `json:"reason"`
	Timestamp *string       `json:"timestamp,omitempty"`
	Notes     string        `json:"notes,omitempty"`
}

type wireInput struct {
	Window     wireWindow     `json:"window"`
	Machine    wireMachine    `json:"machine"`
	Time       wireTimeModel  `json:"time"`
	Production wireProduction `json:"production"`
	CycleTime  wireCycleTime  `json:"cycle_time"`
	Downtime   []wireDowntime `json:"downtime,omitempty"`
}

type wireRange struct {
	Low     float64 `json:"low"`
	Central float64 `json:"central"`
	High    float64 `json:"high"`
}

type wireEconomicParams struct {
	UnitPrice            wireRange `json:"unit_price"`
	MarginalContribution wireRange `json:"marginal_contribution"`
	MaterialCost         wireRange `json:"material_cost"`
	LaborCostPerHour     wireRange `json:"labor_cost_per_hour"`
	Currency             string    `json:"currency"`
}

type wireMachineData struct {
	Machine        wireMachine `json:"machine"`
	PlannedSeconds float64     `json:"planned_seconds"`
	Availability   float64     `json:"availability"`
	Performance    float64     `json:"performance"`
	Quality        float64     `json:"quality"`
	OEE            float64     `json:"oee"`
}

type calculateRequest struct {
	Input           wireInput           `json:"input"`
	ThresholdPreset string              `json:"threshold_preset,omitempty"`
	Economics       *wireEconomicParams `json:"economics,omitempty"`
}

type calculateFullRequest struct {
	Input           wireInput           `json:"input"`
	ThresholdPreset string              `json:"threshold_preset,omitempty"`
	Economics       *wireEconomicParams `json:"economics,omitempty"`
	// IncludeSensitivity is a pointer so an absent field keeps the stock
	// default (on) instead of decoding to false.
	IncludeSensitivity   *bool   `json:"include_sensitivity,omitempty"`
	VariationPercent     float64 `json:"variation_percent,omitempty"`
	StartupWindowSeconds float64 `json:"startup_window_seconds,omitempty"`
}

type sensitivityRequest struct {
	Input            wireInput `json:"input"`
	VariationPercent float64   `json:"variation_percent,omitempty"`
}

type leverageRequest struct {
	Input            wireInput `json:"input"`
	ThresholdPreset  string    `json:"threshold_preset,omitempty"`
	VariationPercent float64   `json:"variation_percent,omitempty"`
}

type aggregateRequest struct {
	Machines []wireMachineData `json:"machines"`
	Method   string            `json:"method"`
}

type compareRequest struct {
	Machines []wireMachineData `json:"machines"`
}

func decodeDuration(v durationValue, field string) (models.InputValue[time.Duration], error) {
	src := models.Source(v.Source)
	if !src.Valid() {
		return models.InputValue[time.Duration]{}, fmt.Errorf("%s: unknown source %q", field, v.Source)
	}
	return models.Tagged(utils.DurationSeconds(v.Seconds), src), nil
}

func decodeCount(v countValue, field string) (models.InputValue[uint64], error) {
	src := models.Source(v.Source)
	if !src.Valid() {
		return models.InputValue[uint64]{}, fmt.Errorf("%s: unknown source %q", field, v.Source)
	}
	return models.Tagged(v.Value, src), nil
}

func decodeReason(r wireReason) models.ReasonCode {
	return models.ReasonCode{Path: append([]string(nil), r.Path...), IsFailure: r.IsFailure}
}

func decodeInput(w wireInput) (models.OeeInput, error) {
	start, err := utils.ParseRFC3339(w.Window.Start)
	if err != nil {
		return models.OeeInput{}, fmt.Errorf("window.start: %w", err)
	}
	end, err := utils.ParseRFC3339(w.Window.End)
	if err != nil {
		return models.OeeInput{}, fmt.Errorf("window.end: %w", err)
	}

	in := models.OeeInput{
		Window: models.AnalysisWindow{Start: start, End: end},
		Machine: models.MachineContext{
			MachineID: w.Machine.MachineID,
			LineID:    w.Machine.LineID,
			ProductID: w.Machine.ProductID,
			ShiftID:   w.Machine.ShiftID,
		},
	}

	if in.Time.Planned, err = decodeDuration(w.Time.Planned, "time.planned"); err != nil {
		return models.OeeInput{}, err
	}
	in.Time.Allocations = make([]models.TimeAllocation, 0, len(w.Time.Allocations))
	for i, alloc := range w.Time.Allocations {
		dur, err := decodeDuration(alloc.Duration, fmt.Sprintf("time.allocations[%d].duration", i))
		if err != nil {
			return models.OeeInput{}, err
		}
		decoded := models.TimeAllocation{
			State:    models.MachineState(alloc.State),
			Duration: dur,
			Notes:    alloc.Notes,
		}
		if alloc.Reason != nil {
			reason := decodeReason(*alloc.Reason)
			decoded.Reason = &reason
		}
		in.Time.Allocations = append(in.Time.Allocations, decoded)
	}
	if w.Time.AllTime != nil {
		allTime, err := decodeDuration(*w.Time.AllTime, "time.all_time")
		if err != nil {
			return models.OeeInput{}, err
		}
		in.Time.AllTime = &allTime
	}

	if in.Production.Total, err = decodeCount(w.Production.Total, "production.total"); err != nil {
		return models.OeeInput{}, err
	}
	if in.Production.Good, err = decodeCount(w.Production.Good, "production.good"); err != nil {
		return models.OeeInput{}, err
	}
	if in.Production.Scrap, err = decodeCount(w.Production.Scrap, "production.scrap"); err != nil {
		return models.OeeInput{}, err
	}
	if in.Production.Reworked, err = decodeCount(w.Production.Reworked, "production.reworked"); err != nil {
		return models.OeeInput{}, err
	}

	if in.CycleTime.Ideal, err = decodeDuration(w.CycleTime.Ideal, "cycle_time.ideal"); err != nil {
		return models.OeeInput{}, err
	}
	if w.CycleTime.Observed != nil {
		observed, err := decodeDuration(*w.CycleTime.Observed, "cycle_time.observed")
		if err != nil {
			return models.OeeInput{}, err
		}
		in.CycleTime.Observed = &observed
	}

	in.Downtime = make([]models.DowntimeRecord, 0, len(w.Downtime))
	for i, rec := range w.Downtime {
		dur, err := decodeDuration(rec.Duration, fmt.Sprintf("downtime[%d].duration", i))
		if err != nil {
			return models.OeeInput{}, err
		}
		decoded := models.DowntimeRecord{
			Duration: dur,
			Reason:   decodeReason(rec.Reason),
			Notes:    rec.Notes,
		}
		if rec.Timestamp != nil {
			ts, err := utils.ParseRFC3339(*rec.Timestamp)
			if err != nil {
				return models.OeeInput{}, fmt.Errorf("downtime[%d].timestamp: %w", i, err)
			}
			decoded.Timestamp = &ts
		}
		in.Downtime = append(in.Downtime, decoded)
	}

	return in, nil
}

func decodeRange(r wireRange) models.EconomicRange {
	return models.EconomicRange{Low: r.Low, Central: r.Central, High: r.High}
}

func decodeEconomics(p wireEconomicParams) (models.EconomicParameters, error) {
	if p.Currency == "" {
		return models.EconomicParameters{}, fmt.Errorf("economics.currency must not be empty")
	}
	ranges := map[string]wireRange{
		"unit_price":            p.UnitPrice,
		"marginal_contribution": p.MarginalContribution,
		"material_cost":         p.MaterialCost,
		"labor_cost_per_hour":   p.LaborCostPerHour,
	}
	for name, r := range ranges {
		if r.Low > r.Central || r.Central > r.High {
			return models.EconomicParameters{}, fmt.Errorf("economics.%s: range must satisfy low <= central <= high", name)
		}
	}
	return models.EconomicParameters{
		UnitPrice:            decodeRange(p.UnitPrice),
		MarginalContribution: decodeRange(p.MarginalContribution),
		MaterialCost:         decodeRange(p.MaterialCost),
		LaborCostPerHour:     decodeRange(p.LaborCostPerHour),
		Currency:             p.Currency,
	}, nil
}

func decodeMachines(list []wireMachineData) []models.MachineOeeData {
	machines := make([]models.MachineOeeData, 0, len(list))
	for _, m := range list {
		machines = append(machines, models.MachineOeeData{
			Context: models.MachineContext{
				MachineID: m.Machine.MachineID,
				LineID:    m.Machine.LineID,
				ProductID: m.Machine.ProductID,
				ShiftID:   m.Machine.ShiftID,
			},
			PlannedTime:  utils.DurationSeconds(m.PlannedSeconds),
			Availability: m.Availability,
			Performance:  m.Performance,
			Quality:      m.Quality,
			OEE:          m.OEE,
		})
	}
	return machines
}
