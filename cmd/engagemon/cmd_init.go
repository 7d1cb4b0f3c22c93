// Init command: write a starter config file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"engagemon/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Writes the default configuration, with one example account, to the path
given by --config. Secrets are referenced via environment variable names
and never stored in the file itself.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(cfgPath); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	}

	starter := config.DefaultConfig()
	starter.Accounts = []config.AccountConfig{{
		Username:    "your_account",
		PasswordEnv: "ENGAGEMON_PASSWORD_YOUR_ACCOUNT",
		Enabled:     false,
		PromptHint:  "friendly, one short sentence",
		Targets:     []string{"target_profile"},
	}}

	if err := starter.Save(cfgPath); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", cfgPath)
	fmt.Println("Set GEMINI_API_KEY and your account password env vars, then enable the account.")
	return nil
}
