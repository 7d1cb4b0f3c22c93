package config

import "fmt"

// MonitorConfig configures the polling loop cadence. Every delay is a range
// so the loop never runs on a fixed, fingerprintable clock.
type MonitorConfig struct {
	// CycleDelay is applied after a full pass over all targets.
	CycleDelay RangeSec `yaml:"cycle_delay"`

	// TargetDelay is applied between targets within one cycle.
	TargetDelay RangeSec `yaml:"target_delay"`

	// TaskDelay is applied between fan-out tasks when more than one
	// account responds to the same target.
	TaskDelay RangeSec `yaml:"task_delay"`

	// FetchTimeout bounds one profile snapshot fetch, in seconds.
	FetchTimeout float64 `yaml:"fetch_timeout"`

	// MaxFetchPerMin caps profile fetches regardless of randomized
	// cadence. Zero disables the limiter.
	MaxFetchPerMin float64 `yaml:"max_fetch_per_min"`

	// PauseFile: while this file exists, all behavior-engine activity is
	// suspended. Removing it resumes.
	PauseFile string `yaml:"pause_file"`
}

// DefaultMonitorConfig returns the default loop cadence.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		CycleDelay:     RangeSec{Min: 120, Max: 300},
		TargetDelay:    RangeSec{Min: 10, Max: 30},
		TaskDelay:      RangeSec{Min: 45, Max: 120},
		FetchTimeout:   45,
		MaxFetchPerMin: 10,
		PauseFile:      ".engagemon/pause",
	}
}

// Validate checks the delay ranges.
func (m MonitorConfig) Validate() error {
	for name, r := range map[string]RangeSec{
		"cycle_delay":  m.CycleDelay,
		"target_delay": m.TargetDelay,
		"task_delay":   m.TaskDelay,
	} {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if m.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive")
	}
	return nil
}
