package config

import "fmt"

// BehaviorConfig tunes the human-behavior emulation engine. These parameters
// control typing rhythm, error simulation and pointer choreography; they are
// the system's "personality" knobs.
type BehaviorConfig struct {
	// TypingDelay is the per-character delay range.
	TypingDelay RangeMs `yaml:"typing_delay"`

	// Typo probabilities per input kind. Usernames are typed sloppier
	// than passwords on purpose: people type their own password from
	// muscle memory.
	UsernameTypoChance float64 `yaml:"username_typo_chance"`
	PasswordTypoChance float64 `yaml:"password_typo_chance"`
	CommentTypoChance  float64 `yaml:"comment_typo_chance"`

	// TypoNoticeDelay is the pause between mistyping a character and
	// deleting it.
	TypoNoticeDelay RangeMs `yaml:"typo_notice_delay"`

	// PreClickPause is the hesitation before committing a click.
	PreClickPause RangeMs `yaml:"pre_click_pause"`

	// ReviewPause is the "reading the post" pause before the comment is
	// generated and typed.
	ReviewPause RangeMs `yaml:"review_pause"`

	// PostSubmitWait is base/variance applied after submitting a comment,
	// before verification.
	PostSubmitWait RangeMs `yaml:"post_submit_wait"`

	// MouseSteps bounds the number of waypoints in one pointer path.
	MouseStepsMin int `yaml:"mouse_steps_min"`
	MouseStepsMax int `yaml:"mouse_steps_max"`

	// MouseJitterPx is the maximum random offset applied to waypoints.
	MouseJitterPx float64 `yaml:"mouse_jitter_px"`
}

// DefaultBehaviorConfig returns conservative human-like defaults.
func DefaultBehaviorConfig() BehaviorConfig {
	return BehaviorConfig{
		TypingDelay:        RangeMs{Min: 60, Max: 220},
		UsernameTypoChance: 0.08,
		PasswordTypoChance: 0.02,
		CommentTypoChance:  0.05,
		TypoNoticeDelay:    RangeMs{Min: 150, Max: 500},
		PreClickPause:      RangeMs{Min: 200, Max: 900},
		ReviewPause:        RangeMs{Min: 800, Max: 2500},
		PostSubmitWait:     RangeMs{Min: 2000, Max: 5000},
		MouseStepsMin:      3,
		MouseStepsMax:      7,
		MouseJitterPx:      18,
	}
}

// Validate checks ranges and probabilities.
func (b BehaviorConfig) Validate() error {
	for name, r := range map[string]RangeMs{
		"typing_delay":      b.TypingDelay,
		"typo_notice_delay": b.TypoNoticeDelay,
		"pre_click_pause":   b.PreClickPause,
		"review_pause":      b.ReviewPause,
		"post_submit_wait":  b.PostSubmitWait,
	} {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	for name, p := range map[string]float64{
		"username_typo_chance": b.UsernameTypoChance,
		"password_typo_chance": b.PasswordTypoChance,
		"comment_typo_chance":  b.CommentTypoChance,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s %v outside [0,1]", name, p)
		}
	}
	if b.MouseStepsMin < 1 || b.MouseStepsMin > b.MouseStepsMax {
		return fmt.Errorf("mouse steps range %d..%d invalid", b.MouseStepsMin, b.MouseStepsMax)
	}
	return nil
}
