package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/law-makers/jobcrawl/internal/config"
)

var replayCmd = &cobra.Command{
	Use:   "replay <debug-dir>",
	Short: "Re-run extraction over captured debug pages",
	Long: `Reads the debug_page*.html captures written by earlier runs and extracts
postings from them without a browser or network access.

Use it after changing selectors to check them against the pages that failed.
Detail enrichment is off and output goes to <output-name>_replay unless those
flags are set.`,
	Example: `  # Check new selectors against yesterday's captures
  jobcrawl replay debug --selectors selectors.yaml

  # Write the replayed records as JSON Lines
  jobcrawl replay debug --format jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	config.RegisterScrapeFlags(replayCmd)

	commandAdjusters["jobcrawl replay"] = func(cmd *cobra.Command, cfg *config.Config) error {
		if !cmd.Flags().Changed("enrich") {
			cfg.Enrich = false
		}
		if !cmd.Flags().Changed("output-name") {
			cfg.OutputBase += "_replay"
		}
		cfg.OperatorPrompt = false
		return nil
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	res, err := a.Replay(cmd.Context(), args[0])
	if !a.Config.Quiet {
		printSummary(os.Stdout, "Replay", res)
	}
	return err
}
