package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/jobcrawl/internal/auth"
	"github.com/law-makers/jobcrawl/internal/engine/dynamic"
	"github.com/law-makers/jobcrawl/internal/ui"
)

var (
	captureURL          string
	waitSelector        string
	captureTimeout      time.Duration
	remoteDebuggingPort int
)

var sessionsCaptureCmd = &cobra.Command{
	Use:   "capture <session-name>",
	Short: "Pass verification in a visible browser and save its cookies",
	Long: `Opens a visible browser on the search results. Solve any verification
challenge by hand, then press Enter (or let --wait detect the results) and the
browser's cookies are saved under the given name.

For headless environments (dev containers), use --remote-debug to reach the
browser through chrome://inspect on a forwarded port, or import cookies from
another browser with 'jobcrawl sessions import'.`,
	Example: `  # Capture a session and wait for the result cards to appear
  jobcrawl sessions capture indeed --wait ".job_seen_beacon"

  # Capture in a dev container with remote debugging
  jobcrawl sessions capture indeed --remote-debug 9222

  # Use the saved session
  jobcrawl scrape --session indeed`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionsCapture,
}

func init() {
	sessionsCmd.AddCommand(sessionsCaptureCmd)

	sessionsCaptureCmd.Flags().StringVarP(&captureURL, "url", "u", "", "Page to open (default: the configured start URL)")
	sessionsCaptureCmd.Flags().StringVarP(&waitSelector, "wait", "w", "", "CSS selector that ends the capture once visible")
	sessionsCaptureCmd.Flags().DurationVar(&captureTimeout, "capture-timeout", 10*time.Minute, "Time allowed for the whole capture")
	sessionsCaptureCmd.Flags().IntVar(&remoteDebuggingPort, "remote-debug", 0, "Enable Chrome remote debugging on this port (e.g., 9222)")
}

func runSessionsCapture(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	cfg := a.Config
	name := args[0]

	url := captureURL
	if url == "" {
		url = cfg.StartURL
	}
	execPath := cfg.ChromePath
	if execPath == "" {
		execPath = dynamic.FindChrome(a.Logger)
	}

	fmt.Printf("\n%s\n%s\n", ui.Bold("Session capture"), ui.Rule)
	fmt.Println(ui.Field("Session", 9, name))
	fmt.Println(ui.Field("URL", 9, url))
	if waitSelector != "" {
		fmt.Println(ui.Field("Waiting", 9, waitSelector))
	}
	fmt.Println(ui.Field("Timeout", 9, captureTimeout))
	fmt.Println()

	session, err := auth.Capture(cmd.Context(), auth.CaptureOptions{
		Name:                name,
		URL:                 url,
		ExecPath:            execPath,
		WaitSelector:        waitSelector,
		Timeout:             captureTimeout,
		Headers:             cfg.Headers,
		UserAgent:           cfg.UserAgent,
		RemoteDebuggingPort: remoteDebuggingPort,
		In:                  a.In,
		Out:                 a.Out,
		Logger:              a.Logger,
	})
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}

	log.Info().Str("backend", a.Sessions.Backend()).Msg("Saving session")
	if err := a.Sessions.Save(session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	printSessionSaved(session)
	return nil
}

func printSessionSaved(session *auth.SessionData) {
	fmt.Println(ui.Success(fmt.Sprintf("\n✓ Session '%s' saved (%d cookies)", session.Name, len(session.Cookies))))
	if !session.ExpiresAt.IsZero() {
		fmt.Printf("  Expires: %s\n", session.ExpiresAt.Format(time.RFC1123))
	}
	fmt.Printf("\n%s\n", ui.Bold("Use it with:"))
	fmt.Printf("  %s%s\n\n", ui.ColorCyan+"jobcrawl scrape --session "+ui.ColorReset, ui.ColorWhite+session.Name+ui.ColorReset)
}
