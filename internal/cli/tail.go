package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
	"github.com/Odiabackend099/voxanne-console/internal/realtime"
)

var tailTrackingID string

var (
	agentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	customerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	interimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Stream live-call events to the terminal",
	Long: `tail connects to the backend's live-call stream and prints events as
they arrive. It reconnects with backoff on drops and exits once the
retry budget is exhausted or the command is interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bus, err := realtime.New(realtime.Config{
			BackendURL: backendURL,
			TrackingID: tailTrackingID,
			Policy:     realtime.DefaultRetryPolicy(),
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		cancel := bus.Subscribe(domain.KindAny, func(ev domain.StreamEvent) {
			if jsonOutput {
				fmt.Fprintln(out, string(ev.Frame))
				return
			}
			renderEvent(out, ev)
		})
		defer cancel()

		err = bus.Run(cmd.Context())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if !bus.Available() {
			return errors.New("gave up reconnecting to the event stream")
		}
		return err
	},
}

// renderEvent prints one stream event in a human-readable form.
func renderEvent(out io.Writer, ev domain.StreamEvent) {
	switch ev.Kind {
	case domain.KindTranscript:
		t := ev.Transcript
		style := customerStyle
		if t.Speaker == "agent" {
			style = agentStyle
		}
		line := fmt.Sprintf("%-9s %s", t.Speaker+":", t.Text)
		if !t.IsFinal {
			line = interimStyle.Render(line)
		} else {
			line = style.Render(line)
		}
		fmt.Fprintln(out, line)

	case domain.KindCallStatus:
		s := ev.CallStatus
		fmt.Fprintln(out, statusStyle.Render(
			fmt.Sprintf("── call %s: %s", s.CallID, s.Status)))

	case domain.KindMetricsUpdate:
		m := ev.Metrics
		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf(
			"metrics: active=%d total=%d success=%.1f%% p95=%.0fms",
			m.ActiveCalls, m.TotalCalls, m.SuccessRate*100, m.P95LatencyMS)))

	case domain.KindConnected:
		fmt.Fprintln(out, dimStyle.Render("connected to live-call stream"))

	case domain.KindError:
		fmt.Fprintln(out, failStyle.Render("stream error: "+ev.Error.Message))

	case domain.KindPong:
		// Keep-alive noise, skip

	default:
		fmt.Fprintln(out, dimStyle.Render(string(ev.Frame)))
	}
}

func init() {
	tailCmd.Flags().StringVar(&tailTrackingID, "tracking-id", "", "follow a single call by tracking id")
	rootCmd.AddCommand(tailCmd)
}
