package config

import (
	"fmt"
	"time"
)

// AccountConfig describes one responding account. Immutable during a run.
type AccountConfig struct {
	Username string `yaml:"username"`

	// Password is resolved from PasswordEnv when set; the literal field
	// exists for local testing only.
	Password    string `yaml:"password,omitempty"`
	PasswordEnv string `yaml:"password_env,omitempty"`

	Enabled bool `yaml:"enabled"`

	// PromptHint is passed to the AI generator to steer comment tone.
	PromptHint string `yaml:"prompt_hint,omitempty"`

	// Targets this account responds to. Set semantics; order irrelevant.
	Targets []string `yaml:"targets"`

	// TaskDelay overrides monitor.task_delay for this account.
	TaskDelay *RangeSec `yaml:"task_delay,omitempty"`
}

// SubscribedTo reports whether the account responds to the given target.
func (a AccountConfig) SubscribedTo(target string) bool {
	for _, t := range a.Targets {
		if t == target {
			return true
		}
	}
	return false
}

// RangeSec is an inclusive [Min, Max] interval in seconds.
type RangeSec struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Validate enforces 0 <= Min <= Max.
func (r RangeSec) Validate() error {
	if r.Min < 0 {
		return fmt.Errorf("min %v is negative", r.Min)
	}
	if r.Min > r.Max {
		return fmt.Errorf("min %v exceeds max %v", r.Min, r.Max)
	}
	return nil
}

// MinDuration returns Min as a duration.
func (r RangeSec) MinDuration() time.Duration {
	return time.Duration(r.Min * float64(time.Second))
}

// MaxDuration returns Max as a duration.
func (r RangeSec) MaxDuration() time.Duration {
	return time.Duration(r.Max * float64(time.Second))
}

// RangeMs is an inclusive [Min, Max] interval in milliseconds.
type RangeMs struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Validate enforces 0 <= Min <= Max.
func (r RangeMs) Validate() error {
	if r.Min < 0 {
		return fmt.Errorf("min %d is negative", r.Min)
	}
	if r.Min > r.Max {
		return fmt.Errorf("min %d exceeds max %d", r.Min, r.Max)
	}
	return nil
}

// MinDuration returns Min as a duration.
func (r RangeMs) MinDuration() time.Duration {
	return time.Duration(r.Min) * time.Millisecond
}

// MaxDuration returns Max as a duration.
func (r RangeMs) MaxDuration() time.Duration {
	return time.Duration(r.Max) * time.Millisecond
}
