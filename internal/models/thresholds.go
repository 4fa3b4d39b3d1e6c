package models

import "time"

// ThresholdConfiguration tunes warning and leaf categorisation behaviour.
// Thresholds never block validation; they only shape advisory output.
type ThresholdConfiguration struct {
	// MicroStoppage is the cutoff below which an individual stoppage counts
	// as a micro-stop under the performance branch.
	MicroStoppage time.Duration
	// SmallStop is the cutoff below which a stoppage is labelled a small stop.
	SmallStop time.Duration
	// SpeedLossRatio is the performance-loss share of operating time above
	// which a speed-loss warning is raised.
	SpeedLossRatio float64
	// HighScrapRate is the scrap fraction above which the ledger warns.
	HighScrapRate float64
	// LowUtilization is the utilization fraction below which an info issue
	// is raised when all time is supplied.
	LowUtilization float64
}

// DefaultThresholds is the baseline preset.
func DefaultThresholds() ThresholdConfiguration {
	return ThresholdConfiguration{
		MicroStoppage:  2 * time.Minute,
		SmallStop:      10 * time.Minute,
		SpeedLossRatio: 0.15,
		HighScrapRate:  0.05,
		LowUtilization: 0.20,
	}
}

// StrictThresholds flags earlier than the default preset.
func StrictThresholds() ThresholdConfiguration {
	return ThresholdConfiguration{
		MicroStoppage:  5 * time.Minute,
		SmallStop:      15 * time.Minute,
		SpeedLossRatio: 0.10,
		HighScrapRate:  0.02,
		LowUtilization: 0.40,
	}
}

// LenientThresholds flags later than the default preset.
func LenientThresholds() ThresholdConfiguration {
	return ThresholdConfiguration{
		MicroStoppage:  1 * time.Minute,
		SmallStop:      5 * time.Minute,
		SpeedLossRatio: 0.25,
		HighScrapRate:  0.10,
		LowUtilization: 0.10,
	}
}
