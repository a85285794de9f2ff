package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/jobcrawl/internal/app"
	"github.com/law-makers/jobcrawl/internal/config"
	"github.com/law-makers/jobcrawl/internal/engine"
	"github.com/law-makers/jobcrawl/internal/ui"
)

// Exit codes returned by Execute.
const (
	ExitOK             = 0
	ExitError          = 1
	ExitUsage          = 2
	ExitSessionFailure = 3
	ExitInterrupted    = 130
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jobcrawl",
	Short: "Collect job postings from Indeed Costa Rica",
	Long: `jobcrawl walks the Indeed Costa Rica search results, waits out bot
verification, and saves every posting it finds as CSV, JSON, JSONL, SQLite or
Postgres rows.

Runs are paced like a person reading the page. When a verification challenge
will not clear on its own, jobcrawl asks the operator to solve it in the
browser window and carries on.`,
	Version:       "0.1.0",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err == nil {
		return ExitOK
	}
	code := exitCode(ctx, err)
	if code == ExitInterrupted {
		fmt.Fprintln(os.Stderr, ui.Warn("Interrupted; records saved so far are kept."))
		return code
	}
	fmt.Fprintf(os.Stderr, "%s %v\n", ui.Error("Error:"), err)
	if code == ExitUsage {
		_ = cmd.Usage()
	}
	return code
}

// usageError marks bad flags or configuration.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

func exitCode(ctx context.Context, err error) int {
	switch {
	case err == nil:
		return ExitOK
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, new(usageError)):
		return ExitUsage
	case engine.IsSessionFailure(err):
		return ExitSessionFailure
	default:
		return ExitError
	}
}

func init() {
	// The application is built lazily so -h and --version never start it.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if GetAppFromCmd(cmd) != nil {
			return nil
		}
		cfg, err := config.Load(cmd)
		if err != nil {
			return usageError{err}
		}
		if err := adjustConfig(cmd, cfg); err != nil {
			return usageError{err}
		}
		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		log.Debug().Str("command", cmd.CommandPath()).Msg("Configuration loaded")
		SetApp(cmd, a)
		return nil
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		a := GetAppFromCmd(cmd)
		if a == nil {
			return
		}
		_ = a.Close(cmd.Context())
	}

	config.RegisterFlags(rootCmd)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	rootCmd.Flags().BoolP("help", "h", false, "Help for jobcrawl")
	rootCmd.Flags().Bool("version", false, "Version for jobcrawl")

	// Disable the default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.SetHelpFunc(customHelpFunc)
	rootCmd.SetUsageFunc(customUsageFunc)
}

// commandAdjusters let a subcommand change defaults after the configuration
// is loaded but before the application is built.
var commandAdjusters = map[string]func(cmd *cobra.Command, cfg *config.Config) error{}

func adjustConfig(cmd *cobra.Command, cfg *config.Config) error {
	if fn, ok := commandAdjusters[cmd.CommandPath()]; ok {
		return fn(cmd, cfg)
	}
	return nil
}

func customHelpFunc(cmd *cobra.Command, args []string) {
	writeHelp(os.Stdout, cmd, true)
}

func customUsageFunc(cmd *cobra.Command) error {
	writeHelp(os.Stderr, cmd, false)
	return nil
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorBold+ui.ColorWhite, title, ui.ColorReset)
}

// writeHelp prints colorized help. The short form used after a usage error
// leaves out the descriptions, examples and inherited flags.
func writeHelp(w io.Writer, cmd *cobra.Command, full bool) {
	if full {
		fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorBold+ui.ColorCyan, strings.ToUpper(cmd.Name()), ui.ColorReset)
		if cmd.Short != "" {
			fmt.Fprintln(w, cmd.Short)
		}
		if cmd.Long != "" && cmd.Long != cmd.Short {
			fmt.Fprintf(w, "\n%s\n", wrapText(cmd.Long, 80))
		}
	}

	section(w, "Usage")
	if cmd.Runnable() {
		fmt.Fprintf(w, "  %s%s%s\n", ui.ColorCyan, cmd.UseLine(), ui.ColorReset)
	}
	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "  %s%s%s %s<command>%s %s[flags]%s\n",
			ui.ColorCyan, cmd.CommandPath(), ui.ColorReset,
			ui.ColorYellow, ui.ColorReset,
			ui.ColorDim, ui.ColorReset)
	}

	if full && cmd.HasExample() {
		section(w, "Examples")
		writeExamples(w, cmd.Example)
	}

	if cmd.HasAvailableSubCommands() {
		section(w, "Commands")
		writeCommands(w, cmd)
	}

	if cmd.HasAvailableLocalFlags() {
		section(w, "Flags")
		printFlagsTo(w, cmd.LocalFlags().FlagUsages())
	}
	if full && cmd.HasAvailableInheritedFlags() {
		section(w, "Global Flags")
		printFlagsTo(w, cmd.InheritedFlags().FlagUsages())
	}

	hint := cmd.CommandPath()
	if cmd.HasAvailableSubCommands() {
		hint += " " + ui.ColorYellow + "<command>" + ui.ColorReset + ui.ColorDim
	}
	fmt.Fprintf(w, "\n%sUse \"%s%s%s %s--help%s\" for more information.%s\n",
		ui.ColorDim,
		ui.ColorCyan, hint, ui.ColorReset+ui.ColorDim,
		ui.ColorGreen, ui.ColorReset+ui.ColorDim,
		ui.ColorReset)
	if full {
		fmt.Fprintln(w)
	}
}

// writeExamples prints comment lines dimmed and command lines as prompts,
// with a blank line before each comment that follows a command.
func writeExamples(w io.Writer, example string) {
	afterCommand := false
	for _, line := range strings.Split(example, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, "#"):
			if afterCommand {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "  %s%s%s\n", ui.ColorDim, line, ui.ColorReset)
			afterCommand = false
		default:
			fmt.Fprintf(w, "  %s$ %s%s\n", ui.ColorGreen, strings.TrimPrefix(line, "$ "), ui.ColorReset)
			afterCommand = true
		}
	}
}

func writeCommands(w io.Writer, cmd *cobra.Command) {
	var cmds []*cobra.Command
	width := 0
	for _, c := range cmd.Commands() {
		if c.IsAvailableCommand() && c.Name() != "help" {
			cmds = append(cmds, c)
			width = max(width, len(c.Name()))
		}
	}
	for _, c := range cmds {
		fmt.Fprintf(w, "  %s%-*s%s  %s%s%s\n",
			ui.ColorCyan, width, c.Name(), ui.ColorReset,
			ui.ColorDim, c.Short, ui.ColorReset)
	}
}

// printFlagsTo re-renders pflag's usage text with the flag names colored
// and descriptions aligned.
func printFlagsTo(w io.Writer, flagUsages string) {
	lines := strings.Split(flagUsages, "\n")

	width := 28
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if strings.HasPrefix(trimmed, "-") {
			flagPart, _, _ := strings.Cut(trimmed, "  ")
			width = max(width, len(strings.TrimSpace(flagPart)))
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "-") {
			// Continuation of the previous description.
			fmt.Fprintf(w, "%s%s%s%s\n", strings.Repeat(" ", width+4), ui.ColorDim, trimmed, ui.ColorReset)
			continue
		}
		flagPart, desc, ok := strings.Cut(trimmed, "  ")
		if !ok {
			fmt.Fprintf(w, "  %s%s%s\n", ui.ColorGreen, trimmed, ui.ColorReset)
			continue
		}
		fmt.Fprintf(w, "  %s%-*s%s  %s%s%s\n",
			ui.ColorGreen, width, strings.TrimSpace(flagPart), ui.ColorReset,
			ui.ColorDim, strings.TrimSpace(desc), ui.ColorReset)
	}
}

// wrapText reflows each paragraph of text to width. Lines that start a list
// item ("-", "•", "*" or "1.") keep their own line.
func wrapText(text string, width int) string {
	var paragraphs []string
	for _, para := range strings.Split(text, "\n\n") {
		var out, words []string
		flush := func() {
			out = append(out, wrapWords(words, width)...)
			words = nil
		}
		for _, line := range strings.Split(para, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if isListItem(line) {
				flush()
			}
			words = append(words, strings.Fields(line)...)
		}
		flush()
		if len(out) > 0 {
			paragraphs = append(paragraphs, strings.Join(out, "\n"))
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

func isListItem(line string) bool {
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "• ") || strings.HasPrefix(line, "* ") {
		return true
	}
	num, _, ok := strings.Cut(line, ". ")
	if !ok || num == "" {
		return false
	}
	for _, r := range num {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func wrapWords(words []string, width int) []string {
	var lines []string
	var b strings.Builder
	for _, word := range words {
		if b.Len() > 0 && b.Len()+1+len(word) > width {
			lines = append(lines, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
	}
	if b.Len() > 0 {
		lines = append(lines, b.String())
	}
	return lines
}
