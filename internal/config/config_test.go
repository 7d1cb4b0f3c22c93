package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.AI.Model != "gemini-2.0-flash" {
		t.Errorf("expected Model=gemini-2.0-flash, got %s", cfg.AI.Model)
	}
	if cfg.Monitor.CycleDelay.Min != 120 {
		t.Errorf("expected CycleDelay.Min=120, got %v", cfg.Monitor.CycleDelay.Min)
	}
	if cfg.Behavior.UsernameTypoChance <= 0 {
		t.Error("expected a positive username typo chance")
	}
	if cfg.Storage.DataDir != ".engagemon" {
		t.Errorf("expected DataDir=.engagemon, got %s", cfg.Storage.DataDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Accounts = []AccountConfig{
		{Username: "ember_k", Password: "literal-pw", Enabled: true, Targets: []string{"paws_of_oslo"}},
	}
	cfg.Monitor.CycleDelay = RangeSec{Min: 5, Max: 9}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, RangeSec{Min: 5, Max: 9}, loaded.Monitor.CycleDelay)
	require.Len(t, loaded.Accounts, 1)
	assert.Equal(t, "ember_k", loaded.Accounts[0].Username)
	assert.True(t, loaded.Accounts[0].SubscribedTo("paws_of_oslo"))
	assert.False(t, loaded.Accounts[0].SubscribedTo("someone_else"))
}

func TestConfig_SaveBlanksSecrets(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.AI.APIKey = "sk-live-secret"
	cfg.Accounts = []AccountConfig{
		{Username: "ember_k", Password: "resolved-pw", PasswordEnv: "EMBER_PW", Enabled: true},
		{Username: "juno.rae", Password: "literal-pw", Enabled: true},
	}
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-live-secret")
	assert.NotContains(t, string(data), "resolved-pw",
		"env-resolved passwords never land on disk")
	assert.Contains(t, string(data), "literal-pw",
		"explicitly configured literal passwords are kept")
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-gemini-key")
	t.Setenv("EMBER_PW", "env-pw")

	cfg := DefaultConfig()
	cfg.Accounts = []AccountConfig{
		{Username: "ember_k", PasswordEnv: "EMBER_PW", Enabled: true},
	}
	cfg.applyEnvOverrides()

	assert.Equal(t, "env-gemini-key", cfg.AI.APIKey)
	assert.Equal(t, "env-pw", cfg.Accounts[0].Password)
}

func TestConfig_Validate(t *testing.T) {
	t.Run("duplicate account", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Accounts = []AccountConfig{
			{Username: "ember_k", Enabled: true},
			{Username: "ember_k", Enabled: true},
		}
		require.Error(t, cfg.Validate())
	})

	t.Run("empty username", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Accounts = []AccountConfig{{Username: ""}}
		require.Error(t, cfg.Validate())
	})

	t.Run("inverted range", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Monitor.TargetDelay = RangeSec{Min: 30, Max: 10}
		require.Error(t, cfg.Validate())
	})

	t.Run("negative typo chance", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Behavior.CommentTypoChance = -0.1
		require.Error(t, cfg.Validate())
	})

	t.Run("per-account task delay", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Accounts = []AccountConfig{
			{Username: "ember_k", Enabled: true, TaskDelay: &RangeSec{Min: 9, Max: 3}},
		}
		require.Error(t, cfg.Validate())
	})
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestStoragePath(t *testing.T) {
	s := StorageConfig{DataDir: "/var/lib/engagemon"}
	assert.Equal(t, filepath.Join("/var/lib/engagemon", "snapshots.csv"), s.Path("snapshots.csv"))
	assert.Equal(t, "/abs/other.csv", s.Path("/abs/other.csv"))
}

func TestRangeValidate(t *testing.T) {
	require.NoError(t, RangeSec{Min: 1, Max: 2}.Validate())
	require.NoError(t, RangeMs{Min: 5, Max: 5}.Validate())
	require.Error(t, RangeSec{Min: -1, Max: 2}.Validate())
	require.Error(t, RangeMs{Min: 7, Max: 3}.Validate())
}
