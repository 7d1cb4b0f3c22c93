// Session commands: verify and reset persisted per-account login state.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"engagemon/internal/ai"
	"engagemon/internal/driver"
	"engagemon/internal/humanoid"
	"engagemon/internal/store"
)

var (
	sessionAccount string
	sessionHold    bool
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage per-account browser session state",
}

var sessionCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Log an account in and persist its session state",
	Long: `Opens a browser session for the account, restores persisted login state
if present, and logs in when needed. On success the account's cookies
are saved so later runs skip the credential flow.`,
	RunE: runSessionCheck,
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete an account's persisted session state",
	Long: `Removes the saved cookies so the next run performs a fresh login. The
account's device fingerprint is kept; it must never change once issued.`,
	RunE: runSessionReset,
}

func init() {
	sessionCmd.PersistentFlags().StringVar(&sessionAccount, "account", "", "Account (default: first enabled)")
	sessionCheckCmd.Flags().BoolVar(&sessionHold, "hold", false, "Keep the session open for inspection until Enter is pressed")
	sessionCmd.AddCommand(sessionCheckCmd)
	sessionCmd.AddCommand(sessionResetCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	acct, err := findAccount(sessionAccount)
	if err != nil {
		return err
	}

	gate := humanoid.NewPauseGate()
	startPauseWatcher(ctx, gate, logger)

	br := driver.NewBrowser(cfg.Browser, logger)
	if err := br.Start(ctx); err != nil {
		return err
	}
	defer br.Close()

	// Init never generates a comment; the generator is wired only when a
	// key is configured.
	var gen ai.Generator
	if cfg.AI.APIKey != "" {
		gen, err = ai.NewGemini(ctx, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.MaxChars)
		if err != nil {
			return err
		}
	}
	ilog, err := store.OpenInteractionLog(cfg.Storage.Path(cfg.Storage.InteractionLog))
	if err != nil {
		return err
	}

	orc, err := openOrchestrator(ctx, br, gate, gen, ilog, acct, logger)
	if err != nil {
		return err
	}
	defer orc.Close()

	if err := orc.Init(ctx); err != nil {
		return err
	}
	fmt.Printf("session for %s is ready; login state saved\n", acct.Username)

	if sessionHold {
		// Pairs with headless: false for inspecting the live session.
		fmt.Println("holding session open; press Enter to close")
		_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
	}
	return nil
}

func runSessionReset(cmd *cobra.Command, args []string) error {
	acct, err := findAccount(sessionAccount)
	if err != nil {
		return err
	}

	statePath := filepath.Join(cfg.Storage.Path(cfg.Storage.SessionStateDir), acct.Username+".json")
	if err := os.Remove(statePath); err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("no saved session state for %s\n", acct.Username)
			return nil
		}
		return err
	}
	fmt.Printf("session state for %s removed; next run logs in fresh\n", acct.Username)
	return nil
}
