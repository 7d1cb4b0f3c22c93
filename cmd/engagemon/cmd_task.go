// Task command: run one reaction task outside the monitor loop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"engagemon/internal/ai"
	"engagemon/internal/driver"
	"engagemon/internal/humanoid"
	"engagemon/internal/session"
	"engagemon/internal/store"
)

var taskAccount string

var taskCmd = &cobra.Command{
	Use:   "task [target]",
	Short: "React to a target's newest post once, right now",
	Long: `Runs a single reaction task against the target's newest post without
consulting or updating snapshots. Useful for verifying selectors,
credentials and comment generation before letting the monitor loose.

Example:
  engagemon task paws_of_oslo --account ember_k`,
	Args: cobra.ExactArgs(1),
	RunE: runTask,
}

func init() {
	taskCmd.Flags().StringVar(&taskAccount, "account", "", "Account to react from (default: first enabled)")
	rootCmd.AddCommand(taskCmd)
}

func runTask(cmd *cobra.Command, args []string) error {
	target := args[0]
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	acct, err := findAccount(taskAccount)
	if err != nil {
		return err
	}
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

	orc, err := openOrchestrator(ctx, br, gate, gen, ilog, acct, log)
	if err != nil {
		return err
	}
	defer orc.Close()
	if err := orc.Init(ctx); err != nil {
		return err
	}

	res := orc.RunTask(ctx, target, acct.PromptHint)
	fmt.Printf("task %s: %s\n", target, res)
	if res == session.Failed {
		return fmt.Errorf("task against %s failed", target)
	}
	return nil
}
