package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/law-makers/jobcrawl/internal/ui"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved operator sessions",
	Long: `Capture, import, list, view and delete operator sessions.

A session holds the cookies of a browser that already passed verification.
Scrapes started with --session reuse them so challenges appear less often.
Sessions live in the OS keyring, or in ~/.jobcrawl/sessions when no keyring
is available.`,
	Example: `  # List all saved sessions
  jobcrawl sessions list

  # View details of a specific session
  jobcrawl sessions view indeed

  # Delete a session
  jobcrawl sessions delete indeed`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsViewCmd = &cobra.Command{
	Use:   "view <session-name>",
	Short: "View details of a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsView,
}

var deleteYes bool

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-name>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsViewCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)

	sessionsDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Delete without asking")
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	store := GetAppFromCmd(cmd).Sessions
	names, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(names) == 0 {
		fmt.Println("\nNo saved sessions found.")
		fmt.Println("\nCreate a session with:")
		fmt.Println("  jobcrawl sessions capture <name>")
		fmt.Println()
		return nil
	}

	fmt.Printf("\n%s %s\n%s\n\n", ui.Bold(fmt.Sprintf("Saved sessions (%d)", len(names))), ui.Dim("["+store.Backend()+"]"), ui.Rule)
	now := time.Now()
	for i, name := range names {
		fmt.Printf("%d. %s\n", i+1, ui.Bold(name))

		session, err := store.Load(name)
		if err != nil {
			fmt.Printf("   %s\n", ui.Warn("Unavailable: "+err.Error()))
			continue
		}
		fmt.Printf("   URL:     %s\n", session.URL)
		fmt.Printf("   Cookies: %d\n", len(session.Cookies))
		fmt.Printf("   Created: %s\n", session.CreatedAt.Format(time.RFC1123))
		if !session.ExpiresAt.IsZero() {
			fmt.Printf("   Expires: %s (in %s)\n",
				session.ExpiresAt.Format(time.RFC1123),
				session.ExpiresAt.Sub(now).Round(time.Hour))
		}
		if i < len(names)-1 {
			fmt.Println()
		}
	}
	fmt.Println()
	return nil
}

func runSessionsView(cmd *cobra.Command, args []string) error {
	name := args[0]
	session, err := GetAppFromCmd(cmd).Sessions.Load(name)
	if err != nil {
		return fmt.Errorf("failed to load session '%s': %w", name, err)
	}

	fmt.Printf("\n%s\n%s\n\n", ui.Bold("Session: "+name), ui.Rule)
	fmt.Println(ui.Field("URL", 10, session.URL))
	fmt.Println(ui.Field("Created", 10, session.CreatedAt.Format(time.RFC1123)))
	if !session.ExpiresAt.IsZero() {
		fmt.Println(ui.Field("Expires", 10, fmt.Sprintf("%s (in %s)",
			session.ExpiresAt.Format(time.RFC1123), time.Until(session.ExpiresAt).Round(time.Hour))))
	}
	if session.UserAgent != "" {
		fmt.Println(ui.Field("UA", 10, session.UserAgent))
	}

	fmt.Printf("\nCookies (%d):\n", len(session.Cookies))
	for i, cookie := range session.Cookies {
		if i >= 10 {
			fmt.Printf("  ... and %d more\n", len(session.Cookies)-10)
			break
		}
		fmt.Printf("  • %s (domain: %s)\n", cookie.Name, cookie.Domain)
	}

	if len(session.Headers) > 0 {
		fmt.Printf("\nHeaders (%d):\n", len(session.Headers))
		for key, value := range session.Headers {
			fmt.Printf("  • %s: %s\n", key, value)
		}
	}
	fmt.Println()
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	a := GetAppFromCmd(cmd)

	if !deleteYes {
		fmt.Fprintf(os.Stderr, "\n%s ", ui.Warn(fmt.Sprintf("Delete session '%s'? [y/N]:", name)))
		answer, _ := bufio.NewReader(a.In).ReadString('\n')
		if reply := strings.ToLower(strings.TrimSpace(answer)); reply != "y" && reply != "yes" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := a.Sessions.Delete(name); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	fmt.Println(ui.Success(fmt.Sprintf("\n✓ Session '%s' deleted.\n", name)))
	return nil
}
