// Package config holds all engagemon configuration. The config file is YAML;
// secrets (API keys, account passwords) are taken from the environment and are
// never written back to disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all engagemon configuration.
type Config struct {
	// Accounts that respond to new content.
	Accounts []AccountConfig `yaml:"accounts"`

	// Monitor loop cadence and pause control.
	Monitor MonitorConfig `yaml:"monitor"`

	// Human-behavior emulation tuning.
	Behavior BehaviorConfig `yaml:"behavior"`

	// Browser/driver settings.
	Browser BrowserConfig `yaml:"browser"`

	// AI comment generation.
	AI AIConfig `yaml:"ai"`

	// On-disk state and diagnostics.
	Storage StorageConfig `yaml:"storage"`

	// Logging.
	Logging LoggingConfig `yaml:"logging"`
}

// AIConfig configures the comment generator.
type AIConfig struct {
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	MaxChars int    `yaml:"max_chars"`
}

// StorageConfig configures persisted state locations. All paths are relative
// to DataDir unless absolute.
type StorageConfig struct {
	DataDir         string `yaml:"data_dir"`
	SnapshotFile    string `yaml:"snapshot_file"`
	InteractionLog  string `yaml:"interaction_log"`
	FingerprintDir  string `yaml:"fingerprint_dir"`
	SessionStateDir string `yaml:"session_state_dir"`
	ScreenshotDir   string `yaml:"screenshot_dir"`
}

// LoggingConfig configures zap output.
type LoggingConfig struct {
	Level   string `yaml:"level"` // debug, info, warn, error
	File    string `yaml:"file"`  // empty = stderr only
	Console bool   `yaml:"console"`
}

// DefaultConfig returns a config with sensible defaults and no accounts.
func DefaultConfig() Config {
	return Config{
		Monitor:  DefaultMonitorConfig(),
		Behavior: DefaultBehaviorConfig(),
		Browser:  DefaultBrowserConfig(),
		AI: AIConfig{
			Model:    "gemini-2.0-flash",
			MaxChars: 140,
		},
		Storage: StorageConfig{
			DataDir:         ".engagemon",
			SnapshotFile:    "snapshots.csv",
			InteractionLog:  "interactions.csv",
			FingerprintDir:  "fingerprints",
			SessionStateDir: "sessions",
			ScreenshotDir:   "screenshots",
		},
		Logging: LoggingConfig{
			Level:   "info",
			File:    "engagemon.log",
			Console: true,
		},
	}
}

// Load reads a config file, applies env overrides and validates.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the config as YAML. Secrets resolved from the environment are
// blanked first so they never land on disk.
func (c Config) Save(path string) error {
	clean := c
	clean.AI.APIKey = ""
	for i := range clean.Accounts {
		if clean.Accounts[i].PasswordEnv != "" {
			clean.Accounts[i].Password = ""
		}
	}

	data, err := yaml.Marshal(clean)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// applyEnvOverrides pulls secrets from the environment.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.AI.APIKey = key
	}
	for i := range c.Accounts {
		acct := &c.Accounts[i]
		if acct.PasswordEnv != "" {
			if pw := os.Getenv(acct.PasswordEnv); pw != "" {
				acct.Password = pw
			}
		}
	}
}

// Validate checks ranges and account uniqueness.
func (c Config) Validate() error {
	seen := make(map[string]bool, len(c.Accounts))
	for _, acct := range c.Accounts {
		if acct.Username == "" {
			return fmt.Errorf("account with empty username")
		}
		if seen[acct.Username] {
			return fmt.Errorf("duplicate account %q", acct.Username)
		}
		seen[acct.Username] = true
		if acct.TaskDelay != nil {
			if err := acct.TaskDelay.Validate(); err != nil {
				return fmt.Errorf("account %s task_delay: %w", acct.Username, err)
			}
		}
	}
	if err := c.Monitor.Validate(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	if err := c.Behavior.Validate(); err != nil {
		return fmt.Errorf("behavior: %w", err)
	}
	return nil
}

// Path resolves a storage path against DataDir.
func (s StorageConfig) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.DataDir, name)
}
