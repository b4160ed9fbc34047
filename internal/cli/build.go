package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/malcamp/internal/scenario"
)

var (
	buildOutputDir string
	buildSweep     bool
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build <scenario.yaml>",
	Short: "Write engine input files for a scenario",
	Long: `Build renders config.json, campaign.json and, when reports are
requested, custom_reports.json for a scenario.

With --sweep every variant of the scenario's sweep is written to its own
numbered subdirectory.

Example:
  malcamp build scenario.yaml
  malcamp build scenario.yaml --output-dir ./inputs --sweep`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildOutputDir, "output-dir", "o", "./malcamp-inputs", "output directory")
	buildCmd.Flags().BoolVar(&buildSweep, "sweep", false, "write one directory per sweep variant")
}

func runBuild(cmd *cobra.Command, args []string) error {
	sc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}

	if !buildSweep {
		cb, err := sc.Build()
		if err != nil {
			return fmt.Errorf("build %s: %w", sc.Name, err)
		}
		paths, err := cb.WriteFiles(buildOutputDir)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", p)
		}
		fmt.Fprintf(os.Stderr, "✓ %s: %d campaign events\n", sc.Name, cb.EventCount())
		return nil
	}

	variants := sc.Variants()
	for i, v := range variants {
		cb, err := sc.BuildVariant(v)
		if err != nil {
			return fmt.Errorf("build variant %d: %w", i, err)
		}
		dir := filepath.Join(buildOutputDir, fmt.Sprintf("%04d", i))
		if _, err := cb.WriteFiles(dir); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", dir)
	}
	fmt.Fprintf(os.Stderr, "✓ %s: %d variants\n", sc.Name, len(variants))
	return nil
}
