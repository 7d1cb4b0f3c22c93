// Session construction shared by the monitor, task and session commands.
package main

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"engagemon/internal/ai"
	"engagemon/internal/config"
	"engagemon/internal/driver"
	"engagemon/internal/fingerprint"
	"engagemon/internal/humanoid"
	"engagemon/internal/session"
	"engagemon/internal/store"
)

// openOrchestrator opens a fingerprinted browser session for the account and
// wires the behavior engine and orchestrator around it. The caller owns the
// returned orchestrator and must Close it.
func openOrchestrator(ctx context.Context, br *driver.Browser, gate *humanoid.PauseGate,
	gen ai.Generator, ilog *store.InteractionLog, acct config.AccountConfig,
	log *zap.Logger) (*session.Orchestrator, error) {

	fp, err := fingerprint.LoadOrCreate(cfg.Storage.Path(cfg.Storage.FingerprintDir), acct.Username)
	if err != nil {
		return nil, fmt.Errorf("fingerprint for %s: %w", acct.Username, err)
	}

	statePath := filepath.Join(cfg.Storage.Path(cfg.Storage.SessionStateDir), acct.Username+".json")
	shotDir := cfg.Storage.Path(cfg.Storage.ScreenshotDir)

	sess, err := br.NewSession(ctx, acct.Username, fp, statePath, shotDir)
	if err != nil {
		return nil, fmt.Errorf("session for %s: %w", acct.Username, err)
	}

	engine := humanoid.New(sess, gate, cfg.Behavior, log)
	return session.New(sess, engine, gen, ilog, acct, cfg.Browser, cfg.Behavior, shotDir, log), nil
}

// findAccount resolves a --account flag value. Empty picks the first enabled
// account.
func findAccount(username string) (config.AccountConfig, error) {
	for _, acct := range cfg.Accounts {
		if username == "" && acct.Enabled {
			return acct, nil
		}
		if acct.Username == username {
			return acct, nil
		}
	}
	if username == "" {
		return config.AccountConfig{}, fmt.Errorf("no enabled accounts configured")
	}
	return config.AccountConfig{}, fmt.Errorf("account %q not in config", username)
}

// startPauseWatcher arms the pause-file watcher for the lifetime of ctx.
func startPauseWatcher(ctx context.Context, gate *humanoid.PauseGate, log *zap.Logger) {
	path := cfg.Monitor.PauseFile
	if path == "" {
		return
	}
	go func() {
		if err := humanoid.WatchPauseFile(ctx, path, gate, log); err != nil && ctx.Err() == nil {
			log.Warn("pause file watcher stopped", zap.Error(err))
		}
	}()
}
