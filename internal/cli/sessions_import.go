package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/law-makers/jobcrawl/internal/auth"
	"github.com/law-makers/jobcrawl/internal/ui"
)

var (
	importURL    string
	importFormat string
)

var sessionsImportCmd = &cobra.Command{
	Use:   "import <session-name>",
	Short: "Import cookies from your browser to create a session",
	Long: `Import cookies from a browser that already passed verification.

This is useful in headless environments (servers, dev containers) where the
capture browser cannot be shown.

Steps:
1. Open cr.indeed.com in your regular browser and clear any challenge
2. Open DevTools (F12) → Application → Cookies
3. Copy the cookies, or export them with a cookies.txt extension
4. Use this command to import them`,
	Example: `  # Paste cookies one at a time
  jobcrawl sessions import indeed

  # Import a Netscape/curl cookies.txt export
  jobcrawl sessions import indeed --format netscape < cookies.txt

  # Import a JSON cookie export
  jobcrawl sessions import indeed --format json < cookies.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionsImport,
}

func init() {
	sessionsCmd.AddCommand(sessionsImportCmd)

	sessionsImportCmd.Flags().StringVar(&importURL, "url", "https://cr.indeed.com/", "Site the cookies belong to")
	sessionsImportCmd.Flags().StringVar(&importFormat, "format", "interactive", "Import format: interactive, json, netscape")
}

func runSessionsImport(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	name := args[0]

	var (
		cookies []auth.Cookie
		err     error
	)
	switch importFormat {
	case "interactive":
		fmt.Fprintf(a.Out, "\n%s\n%s\n\n", ui.Bold("Import session: "+name), ui.Rule)
		cookies, err = importInteractive(a.In, a.Out, auth.CookieDomain(importURL))
	case "json":
		cookies, err = auth.ParseJSONCookies(a.In)
	case "netscape":
		cookies, err = auth.ParseNetscapeCookies(a.In)
	default:
		return usageError{fmt.Errorf("unsupported format: %s (use: interactive, json, netscape)", importFormat)}
	}
	if err != nil {
		return fmt.Errorf("failed to import cookies: %w", err)
	}

	session, err := auth.NewImportedSession(name, importURL, cookies, time.Now())
	if err != nil {
		return err
	}
	session.UserAgent = a.Config.UserAgent
	if err := a.Sessions.Save(session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	printSessionSaved(session)
	return nil
}

// importInteractive asks for cookies one at a time until an empty name.
func importInteractive(in io.Reader, out io.Writer, domain string) ([]auth.Cookie, error) {
	fmt.Fprintln(out, "For each cookie, copy the Name and Value from DevTools.")
	fmt.Fprintln(out, ui.Info("The cf_clearance cookie set after the challenge matters most."))

	var cookies []auth.Cookie
	scanner := bufio.NewScanner(in)
	prompt := func(label string) (string, bool) {
		fmt.Fprint(out, label)
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	for {
		fmt.Fprintf(out, "\n%s\n", ui.Rule)
		name, ok := prompt("Cookie Name (or press Enter to finish): ")
		if !ok || name == "" {
			break
		}
		value, ok := prompt("Cookie Value: ")
		if !ok {
			break
		}
		if value == "" {
			fmt.Fprintln(out, ui.Warn("Skipping cookie with empty value"))
			continue
		}
		cookieDomain, ok := prompt(fmt.Sprintf("Domain [%s]: ", domain))
		if !ok {
			break
		}
		if cookieDomain == "" {
			cookieDomain = domain
		}

		cookies = append(cookies, auth.Cookie{
			Name:     name,
			Value:    value,
			Domain:   cookieDomain,
			Path:     "/",
			Secure:   true,
			HTTPOnly: true,
		})
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("✓ Added: %s (domain: %s)", name, cookieDomain)))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cookies, nil
}
