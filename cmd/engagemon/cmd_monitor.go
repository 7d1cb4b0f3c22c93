// Monitor command: the continuous watch-and-react loop.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"engagemon/internal/ai"
	"engagemon/internal/config"
	"engagemon/internal/driver"
	"engagemon/internal/humanoid"
	"engagemon/internal/monitor"
	"engagemon/internal/store"
)

var monitorOnce bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch all configured targets and react to new posts",
	Long: `Polls every target of every enabled account on a randomized cadence.
When a target's post count rises, each subscribed account opens its own
browser session and comments on the newest post, one account at a time.

The first observation of a target only records a baseline. Snapshots are
committed only when every reaction succeeded or was deliberately skipped,
so a failed reaction is retried on the next cycle.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorOnce, "once", false, "Run a single pass over all targets and exit")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.With(zap.String("run_id", uuid.NewString()))

	gate := humanoid.NewPauseGate()
	startPauseWatcher(ctx, gate, log)

	br := driver.NewBrowser(cfg.Browser, log)
	if err := br.Start(ctx); err != nil {
		return err
	}
	defer br.Close()

	gen, err := ai.NewGemini(ctx, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.MaxChars)
	if err != nil {
		return err
	}
	ilog, err := store.OpenInteractionLog(cfg.Storage.Path(cfg.Storage.InteractionLog))
	if err != nil {
		return err
	}
	snaps, err := store.OpenSnapshotStore(cfg.Storage.Path(cfg.Storage.SnapshotFile))
	if err != nil {
		return err
	}

	// The first enabled account doubles as the reader for snapshot fetches;
	// reaction sessions are opened per task.
	fetchAcct, err := findAccount("")
	if err != nil {
		return err
	}
	fetcher, err := openOrchestrator(ctx, br, gate, gen, ilog, fetchAcct, log)
	if err != nil {
		return err
	}
	defer fetcher.Close()
	if err := fetcher.Init(ctx); err != nil {
		return errors.Join(errors.New("monitor session bootstrap failed"), err)
	}

	factory := func(ctx context.Context, acct config.AccountConfig) (monitor.TaskSession, error) {
		return openOrchestrator(ctx, br, gate, gen, ilog, acct, log)
	}

	loop := monitor.New(cfg.Monitor, cfg.Accounts, fetcher, factory, snaps, gate, log)
	if monitorOnce {
		return loop.RunOnce(ctx)
	}
	return loop.Run(ctx)
}
