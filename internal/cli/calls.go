package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	callsLimit int
	callsOrgID string
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	missedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "Show the recent call log for an organization",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newBackendClient()
		calls, err := client.DashboardCalls(cmd.Context(), authToken, callsOrgID, callsLimit)
		if err != nil {
			return fmt.Errorf("fetching call log: %w", err)
		}

		if jsonOutput {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(calls)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%-22s %-16s %-10s %8s  %s",
			"STARTED", "CALLER", "STATUS", "SECONDS", "SUMMARY")))

		for _, call := range calls {
			line := fmt.Sprintf("%-22s %-16s %-10s %8.0f  %s",
				call.StartedAt.Local().Format(time.DateTime),
				call.CallerNumber,
				call.Status,
				call.DurationSec,
				call.Summary,
			)
			if call.Status == "missed" || call.Status == "failed" {
				line = missedStyle.Render(line)
			}
			fmt.Fprintln(out, line)
		}

		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%d call(s)", len(calls))))
		return nil
	},
}

func init() {
	callsCmd.Flags().IntVar(&callsLimit, "limit", 50, "maximum number of calls to fetch")
	callsCmd.Flags().StringVar(&callsOrgID, "org", "", "organization id (defaults to the token's organization)")
	rootCmd.AddCommand(callsCmd)
}
