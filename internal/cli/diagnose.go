package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/law-makers/jobcrawl/internal/app"
	"github.com/law-makers/jobcrawl/internal/ui"
)

var diagnoseFile string

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose [url]",
	Short: "Inspect one results page and report what the selectors see",
	Long: `Loads a single page, lets the verification gate inspect it and writes the
raw HTML, a screenshot and a pretty-printed copy to the debug directory.

The report lists how many listings each selector matched, the job links found
on the page, and any challenge or block wording present. With --file a saved
page is analyzed instead and nothing is fetched.`,
	Example: `  # Diagnose the default search page
  jobcrawl diagnose

  # Analyze a page saved by a previous run
  jobcrawl diagnose --file debug/debug_page3.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiagnose,
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
	diagnoseCmd.Flags().StringVar(&diagnoseFile, "file", "", "Analyze a saved HTML file instead of fetching")
	diagnoseCmd.Flags().String("debug-dir", "", "Directory for the captured page")
	diagnoseCmd.Flags().String("selectors", "", "YAML file overriding the built-in selector tables")
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	ctx := cmd.Context()

	var (
		d   *app.Diagnosis
		err error
	)
	if diagnoseFile != "" {
		d, err = a.DiagnoseFile(diagnoseFile)
	} else {
		url := a.Config.StartURL
		if len(args) == 1 {
			url = args[0]
		}
		run := a.NewRun()
		s, _, openErr := a.OpenSession(ctx, run.Logger)
		if openErr != nil {
			return openErr
		}
		defer s.Close()
		d, err = a.Diagnose(ctx, s, run, url)
	}
	if err != nil {
		return err
	}

	d.Report.Write(os.Stdout)
	if d.GateErr != nil {
		fmt.Println(ui.Warn("Gate: " + d.GateErr.Error()))
	}
	if d.Files.HTML != "" {
		fmt.Printf("\n%s\n", ui.Bold("Saved"))
		for _, path := range []string{d.Files.HTML, d.Files.Screenshot, d.Files.Meta} {
			if path != "" {
				fmt.Printf("  %s\n", path)
			}
		}
	}
	fmt.Println()
	return nil
}
