// Package monitor runs the polling loop: fetch each watched target's public
// counters, diff against the persisted snapshot, and fan reaction tasks out
// to the subscribed accounts one at a time. A new snapshot is committed only
// when every fanned-out task ended in success or an explicit skip; a failed
// task withholds the commit so the next cycle retries the same observation.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"engagemon/internal/config"
	"engagemon/internal/humanoid"
	"engagemon/internal/session"
	"engagemon/internal/store"
)

// Fetcher reads a target's current public counters.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, target string) (store.Snapshot, error)
}

// TaskSession is one account's reaction capability, created per fan-out.
type TaskSession interface {
	Init(ctx context.Context) error
	RunTask(ctx context.Context, target, hint string) session.Result
	Close() error
}

// SessionFactory opens a fresh task session for an account. Factory and Init
// failures count as failed tasks; they never kill the loop.
type SessionFactory func(ctx context.Context, acct config.AccountConfig) (TaskSession, error)

// Loop is the monitor. Strictly sequential: one fetch or one task at a time.
type Loop struct {
	cfg      config.MonitorConfig
	accounts []config.AccountConfig
	fetch    Fetcher
	sessions SessionFactory
	snaps    *store.SnapshotStore
	gate     *humanoid.PauseGate
	limiter  *rate.Limiter
	log      *zap.Logger
	rng      *rand.Rand
}

// New wires a monitor loop.
func New(cfg config.MonitorConfig, accounts []config.AccountConfig, fetch Fetcher,
	sessions SessionFactory, snaps *store.SnapshotStore, gate *humanoid.PauseGate,
	log *zap.Logger) *Loop {

	limit := rate.Inf
	if cfg.MaxFetchPerMin > 0 {
		limit = rate.Limit(cfg.MaxFetchPerMin / 60.0)
	}
	return &Loop{
		cfg:      cfg,
		accounts: accounts,
		fetch:    fetch,
		sessions: sessions,
		snaps:    snaps,
		gate:     gate,
		limiter:  rate.NewLimiter(limit, 1),
		log:      log,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithRand replaces the random source. Used by tests for determinism.
func (l *Loop) WithRand(rng *rand.Rand) *Loop {
	l.rng = rng
	return l
}

// Targets returns the deduplicated, sorted union of all enabled accounts'
// targets.
func (l *Loop) Targets() []string {
	seen := make(map[string]bool)
	for _, acct := range l.accounts {
		if !acct.Enabled {
			continue
		}
		for _, t := range acct.Targets {
			seen[t] = true
		}
	}
	targets := make([]string, 0, len(seen))
	for t := range seen {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// Run cycles until the context ends. Context cancellation is the one clean
// way out and is not reported as an error.
func (l *Loop) Run(ctx context.Context) error {
	targets := l.Targets()
	l.log.Info("monitor started",
		zap.Int("targets", len(targets)),
		zap.Int("accounts", len(l.accounts)))
	if len(targets) == 0 {
		return errors.New("no enabled account has any targets")
	}

	for {
		if err := l.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if err := l.wait(ctx, l.cfg.CycleDelay); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// RunOnce performs a single pass over all targets. Per-target fetch failures
// are logged and skipped for the cycle; only context errors propagate.
func (l *Loop) RunOnce(ctx context.Context) error {
	for i, target := range l.Targets() {
		if i > 0 {
			if err := l.wait(ctx, l.cfg.TargetDelay); err != nil {
				return err
			}
		}
		if err := l.checkTarget(ctx, target); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.log.Warn("target check failed, skipping until next cycle",
				zap.String("target", target), zap.Error(err))
		}
	}
	return nil
}

// checkTarget fetches one target and reacts to the diff against the persisted
// snapshot.
func (l *Loop) checkTarget(ctx context.Context, target string) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := l.gate.Wait(ctx); err != nil {
		return err
	}

	fctx, cancel := context.WithTimeout(ctx, time.Duration(l.cfg.FetchTimeout*float64(time.Second)))
	snap, err := l.fetch.FetchSnapshot(fctx, target)
	cancel()
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}

	prev, known := l.snaps.Get(target)
	switch {
	case !known:
		// First observation is the baseline. Reacting here would comment
		// on arbitrarily old content.
		l.log.Info("baseline recorded",
			zap.String("target", target),
			zap.Int("posts", snap.PostCount),
			zap.Int("followers", snap.FollowerCount))
		return l.snaps.Put(target, snap)

	case snap.PostCount > prev.PostCount:
		l.log.Info("new post detected",
			zap.String("target", target),
			zap.Int("posts", snap.PostCount),
			zap.Int("prev_posts", prev.PostCount))
		allOK, err := l.fanOut(ctx, target)
		if err != nil {
			return err
		}
		if !allOK {
			l.log.Warn("withholding snapshot commit, will retry next cycle",
				zap.String("target", target))
			return nil
		}
		return l.snaps.Put(target, snap)

	case snap != prev:
		// Post deletions and follower drift are recorded without reacting.
		l.log.Info("counters changed without new post",
			zap.String("target", target),
			zap.Int("posts", snap.PostCount),
			zap.Int("followers", snap.FollowerCount))
		return l.snaps.Put(target, snap)

	default:
		return nil
	}
}

// fanOut runs one reaction task per subscribed account, sequentially, with a
// randomized delay between tasks. Reports whether every task ended in success
// or skip.
func (l *Loop) fanOut(ctx context.Context, target string) (bool, error) {
	allOK := true
	ran := 0
	for _, acct := range l.accounts {
		if !acct.Enabled || !acct.SubscribedTo(target) {
			continue
		}
		if ran > 0 {
			delay := l.cfg.TaskDelay
			if acct.TaskDelay != nil {
				delay = *acct.TaskDelay
			}
			if err := l.wait(ctx, delay); err != nil {
				return false, err
			}
		}
		ran++

		res := l.runAccountTask(ctx, acct, target)
		l.log.Info("task finished",
			zap.String("account", acct.Username),
			zap.String("target", target),
			zap.Stringer("result", res))
		if res == session.Failed {
			allOK = false
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
	}
	if ran == 0 {
		l.log.Warn("no enabled account subscribes to target", zap.String("target", target))
	}
	return allOK, nil
}

// runAccountTask opens a session for the account, runs the task, and closes
// the session. Bootstrap failures come back as Failed so the commit is
// withheld and the observation retried.
func (l *Loop) runAccountTask(ctx context.Context, acct config.AccountConfig, target string) session.Result {
	ts, err := l.sessions(ctx, acct)
	if err != nil {
		l.log.Warn("session open failed",
			zap.String("account", acct.Username), zap.Error(err))
		return session.Failed
	}
	defer func() {
		if err := ts.Close(); err != nil {
			l.log.Warn("session close failed",
				zap.String("account", acct.Username), zap.Error(err))
		}
	}()

	if err := ts.Init(ctx); err != nil {
		l.log.Warn("session init failed",
			zap.String("account", acct.Username), zap.Error(err))
		return session.Failed
	}
	return ts.RunTask(ctx, target, acct.PromptHint)
}

// wait sleeps a uniform sample from r, honoring pause and cancellation on
// both sides of the sleep.
func (l *Loop) wait(ctx context.Context, r config.RangeSec) error {
	if err := l.gate.Wait(ctx); err != nil {
		return err
	}
	d := r.MinDuration()
	if span := r.MaxDuration() - d; span > 0 {
		d += time.Duration(l.rng.Int63n(int64(span) + 1))
	}
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return l.gate.Wait(ctx)
}
