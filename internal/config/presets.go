package config

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shopfloorlabs/oee-engine/internal/models"
)

// thresholdSpec is the YAML shape of one preset. Zero fields inherit from
// the default preset so files only need to state what differs.
type thresholdSpec struct {
	MicroStoppage  time.Duration `yaml:"micro_stoppage"`
	SmallStop      time.Duration `yaml:"small_stop"`
	SpeedLossRatio float64       `yaml:"speed_loss_ratio"`
	HighScrapRate  float64       `yaml:"high_scrap_rate"`
	LowUtilization float64       `yaml:"low_utilization"`
}

// PresetStore holds named threshold configurations and supports replacing
// the file-backed ones at runtime.
type PresetStore struct {
	mu      sync.RWMutex
	presets map[string]models.ThresholdConfiguration
}

// NewPresetStore seeds the store with the built-in presets.
func NewPresetStore() *PresetStore {
	return &PresetStore{
		presets: map[string]models.ThresholdConfiguration{
			"default": models.DefaultThresholds(),
			"strict":  models.StrictThresholds(),
			"lenient": models.LenientThresholds(),
		},
	}
}

// Get returns the named preset.
func (s *PresetStore) Get(name string) (models.ThresholdConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	preset, ok := s.presets[name]
	if !ok {
		return models.ThresholdConfiguration{}, fmt.Errorf("unknown threshold preset %q", name)
	}
	return preset, nil
}

// Names lists the available presets in sorted order.
func (s *PresetStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.presets))
	for name := range s.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFile merges the presets in the YAML file into the store. Built-in
// presets can be shadowed but never removed; a reload with fewer entries
// leaves earlier file presets in place.
func (s *PresetStore) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read presets %s: %w", path, err)
	}

	var specs map[string]thresholdSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return fmt.Errorf("parse presets %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, spec := range specs {
		s.presets[name] = materialize(spec)
	}
	return nil
}

func materialize(spec thresholdSpec) models.ThresholdConfiguration {
	out := models.DefaultThresholds()
	if spec.MicroStoppage > 0 {
		out.MicroStoppage = spec.MicroStoppage
	}
	if spec.SmallStop > 0 {
		out.SmallStop = spec.SmallStop
	}
	if spec.SpeedLossRatio > 0 {
		out.SpeedLossRatio = spec.SpeedLossRatio
	}
	if spec.HighScrapRate > 0 {
		out.HighScrapRate = spec.HighScrapRate
	}
	if spec.LowUtilization > 0 {
		out.LowUtilization = spec.LowUtilization
	}
	return out
}
