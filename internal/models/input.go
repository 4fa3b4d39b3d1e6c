package models

import (
	"fmt"
	"time"
)

// AnalysisWindow bounds the shift or period under analysis.
type AnalysisWindow struct {
	Start time.Time
	End   time.Time
}

// MachineContext identifies the unit under analysis. Descriptive only,
// never consumed by the math.
type MachineContext struct {
	MachineID string
	LineID    string
	ProductID string
	ShiftID   string
}

// MachineState enumerates what a slice of planned time was spent on.
type MachineState string

const (
	StateRunning     MachineState = "running"
	StateStopped     MachineState = "stopped"
	StateSetup       MachineState = "setup"
	StateStarved     MachineState = "starved"
	StateBlocked     MachineState = "blocked"
	StateMaintenance MachineState = "maintenance"
	StateUnknown     MachineState = "unknown"
)

// ReasonCode is an ordered category path, e.g. ["Mechanical","Bearing Failure"].
type ReasonCode struct {
	Path      []string
	IsFailure bool
}

// TimeAllocation assigns a duration of the planned window to a machine state.
type TimeAllocation struct {
	State    MachineState
	Duration InputValue[time.Duration]
	Reason   *ReasonCode
	Notes    string
}

// TimeModel describes how the planned window was spent. AllTime is the 24/7
// calendar time and is only required for TEEP/utilization.
type TimeModel struct {
	Planned     InputValue[time.Duration]
	Allocations []TimeAllocation
	AllTime     *InputValue[time.Duration]
}

// ProductionSummary carries the unit counts for the window.
// good + scrap + reworked == total is checked by the validator, not enforced.
type ProductionSummary struct {
	Total    InputValue[uint64]
	Good     InputValue[uint64]
	Scrap    InputValue[uint64]
	Reworked InputValue[uint64]
}

// CycleTimeModel holds the ideal cycle time (required) and the observed
// average cycle time (optional), both per unit.
type CycleTimeModel struct {
	Ideal    InputValue[time.Duration]
	Observed *InputValue[time.Duration]
}

// DowntimeRecord is a finer-grained companion to TimeAllocation, used for
// MTBF/MTTR and loss-tree leaf attribution.
type DowntimeRecord struct {
	Duration  InputValue[time.Duration]
	Reason    ReasonCode
	Timestamp *time.Time
	Notes     string
}

// OeeInput is the sole input to every pure stage. It is treated as immutable
// for the lifetime of one calculation.
type OeeInput struct {
	Window     AnalysisWindow
	Machine    MachineContext
	Time       TimeModel
	Production ProductionSummary
	CycleTime  CycleTimeModel
	Downtime   []DowntimeRecord
}

// CheckStructural reports construction-time failures: malformed or missing
// required fields that make a calculation meaningless. These are distinct
// from validation issues, which never block computation.
func (in OeeInput) CheckStructural() error {
	if in.Window.End.Before(in.Window.Start) {
		return fmt.Errorf("analysis window end %s precedes start %s",
			in.Window.End.Format(time.RFC3339), in.Window.Start.Format(time.RFC3339))
	}
	if in.Time.Planned.Value() <= 0 {
		return fmt.Errorf("planned production time must be positive, got %s", in.Time.Planned.Value())
	}
	if in.CycleTime.Ideal.Value() <= 0 {
		return fmt.Errorf("ideal cycle time must be positive, got %s", in.CycleTime.Ideal.Value())
	}
	for i, alloc := range in.Time.Allocations {
		if alloc.Duration.Value() < 0 {
			return fmt.Errorf("allocation %d has negative duration %s", i, alloc.Duration.Value())
		}
	}
	for i, rec := range in.Downtime {
		if rec.Duration.Value() < 0 {
			return fmt.Errorf("downtime record %d has negative duration %s", i, rec.Duration.Value())
		}
	}
	return nil
}

// Clone returns a deep copy safe to mutate, used by the perturbation stages.
func (in OeeInput) Clone() OeeInput {
	out := in
	out.Time.Allocations = make([]TimeAllocation, len(in.Time.Allocations))
	for i, alloc := range in.Time.Allocations {
		copied := alloc
		if alloc.Reason != nil {
			reason := ReasonCode{Path: append([]string(nil), alloc.Reason.Path...), IsFailure: alloc.Reason.IsFailure}
			copied.Reason = &reason
		}
		out.Time.Allocations[i] = copied
	}
	if in.Time.AllTime != nil {
		allTime := *in.Time.AllTime
		out.Time.AllTime = &allTime
	}
	if in.CycleTime.Observed != nil {
		observed := *in.CycleTime.Observed
		out.CycleTime.Observed = &observed
	}
	out.Downtime = make([]DowntimeRecord, len(in.Downtime))
	for i, rec := range in.Downtime {
		copied := rec
		copied.Reason.Path = append([]string(nil), rec.Reason.Path...)
		if rec.Timestamp != nil {
			ts := *rec.Timestamp
			copied.Timestamp = &ts
		}
		out.Downtime[i] = copied
	}
	return out
}

// EconomicRange is a three-point estimate: nothing in the economic stage is
// ever a point value.
type EconomicRange struct {
	Low     float64
	Central float64
	High    float64
}

// Add returns the element-wise sum of two ranges.
func (r EconomicRange) Add(o EconomicRange) EconomicRange {
	return EconomicRange{Low: r.Low + o.Low, Central: r.Central + o.Central, High: r.High + o.High}
}

// Scale multiplies each point by a non-negative quantity.
func (r EconomicRange) Scale(q float64) EconomicRange {
	return EconomicRange{Low: r.Low * q, Central: r.Central * q, High: r.High * q}
}

// EconomicParameters supplies the three-point unit economics for the
// optional economic stage.
type EconomicParameters struct {
	UnitPrice            EconomicRange
	MarginalContribution EconomicRange
	MaterialCost         EconomicRange
	LaborCostPerHour     EconomicRange
	Currency             string
}
