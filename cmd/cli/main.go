package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &clientOptions{}

	rootCmd := &cobra.Command{
		Use:           "loanledger-cli",
		Short:         "LoanLedger CLI tool",
		Long:          `A command line interface for interacting with the LoanLedger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", envOr("LOANLEDGER_URL", "http://localhost:8080"), "Base URL of the LoanLedger API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("LOANLEDGER_TOKEN"), "Bearer token for authenticated servers")
	rootCmd.PersistentFlags().StringVar(&opts.idempotencyKey, "idempotency-key", "", "Idempotency-Key header for mutating requests")

	rootCmd.AddCommand(
		customerCmd(opts),
		depositCmd(opts),
		loanCmd(opts),
		fundCmd(opts),
		ledgerCmd(opts),
		tokenCmd(),
		migrateCmd(),
	)

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
