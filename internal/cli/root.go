package cli

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Odiabackend099/voxanne-console/internal/adapters/secondary/backend"
)

// Global flags shared by every subcommand.
var (
	backendURL string
	authToken  string
	timeout    time.Duration
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "voxctl",
	Short: "Operator console for the Voxanne voice backend",
	Long: `voxctl talks to the same voice backend the dashboard gateway fronts.
It validates organization access, reads the call log, and tails the
live-call event stream from a terminal.`,
	SilenceUsage: true,
}

// ExecuteContext runs the root command with the given context.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend-url", "http://localhost:3000", "voice backend base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "bearer token for authenticated calls")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON instead of styled output")
}

// newBackendClient builds a client from the global flags. CLI runs are
// short-lived, so client logging goes nowhere.
func newBackendClient() *backend.Client {
	return backend.NewClient(backendURL, timeout, discardLogger())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
