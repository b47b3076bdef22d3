package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
	"github.com/Odiabackend099/voxanne-console/internal/core/services"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// plannedRedirect captures where the access guard would send the
// dashboard on failure.
type plannedRedirect struct {
	ch chan string
}

func (n *plannedRedirect) Redirect(path string) {
	select {
	case n.ch <- path:
	default:
	}
}

var validateCmd = &cobra.Command{
	Use:   "validate <org-id>",
	Short: "Run the dashboard's organization access check against a token",
	Long: `validate feeds the organization id through the same access guard the
dashboard runs: claim format check, backend confirmation, and on
failure the redirect the dashboard would issue.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orgID := args[0]

		// The guard delays its redirects so a user can read the failure
		// message. Driving it on a fake clock resolves the redirect
		// immediately instead of stalling the terminal.
		clock := clockwork.NewFakeClock()
		nav := &plannedRedirect{ch: make(chan string, 1)}
		guard := services.NewOrgAccessGuard(newBackendClient(), nav, clock, discardLogger())

		access := guard.Apply(cmd.Context(), domain.Session{
			Authenticated: true,
			OrgClaim:      orgID,
			Token:         authToken,
		})

		if jsonOutput {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(access)
		}

		if access.Valid {
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("✓ organization validated"))
			fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("  org: "+access.OrgID))
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), failStyle.Render("✗ "+access.Err))

		clock.Advance(3 * time.Second)
		select {
		case target := <-nav.ch:
			fmt.Fprintln(cmd.OutOrStdout(),
				dimStyle.Render("  dashboard would redirect to "+target))
		case <-time.After(100 * time.Millisecond):
			// Not every failure redirects; a missing session is left to
			// the caller.
		}

		return errors.New(access.Err)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
