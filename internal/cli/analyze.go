package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/malcamp/internal/analyze"
	"github.com/ppiankov/malcamp/internal/cache"
	"github.com/ppiankov/malcamp/internal/registry"
	"github.com/ppiankov/malcamp/internal/remote"
)

var (
	analyzeSites     []string
	analyzeVariables []string
	analyzeFormat    string
	analyzeOutput    string
	analyzeNoCache   bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [experiment-id]",
	Short: "Compare end-of-run PfPR(2-10) across coverage levels",
	Long: `Analyze downloads each succeeded simulation's summary report per site,
takes the last complete PfPR(2-10) value and compares every intervention
coverage level with its coverage-0 baseline.

Example:
  malcamp analyze --site Namawala
  malcamp analyze 5f0c... --site Namawala --site Matsari --format markdown -o report.md`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringSliceVar(&analyzeSites, "site", nil, "summary report description to read (repeatable)")
	analyzeCmd.Flags().StringSliceVar(&analyzeVariables, "var", nil, "sweep tag to carry into samples (default Run_Number)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "output format (json, markdown)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "output path (default stdout)")
	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "disable output cache (force fresh download)")
	_ = analyzeCmd.MarkFlagRequired("site")
}

func runAnalyze(cmd *cobra.Command, args []string) (err error) {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signalContext()
	defer cancel()

	id, err := experimentID(ctx, cfg, args)
	if err != nil {
		return err
	}
	store, err := registry.Open(cfg.Registry.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	exp, err := store.Experiment(ctx, id)
	if err != nil {
		return fmt.Errorf("experiment %s: %w", id, err)
	}
	sims, err := store.Simulations(ctx, id)
	if err != nil {
		return err
	}

	client, err := remote.NewClient(cfg.Service, cfg.RateLimiting, logger)
	if err != nil {
		return err
	}
	if analyzeNoCache {
		cfg.Cache.Enabled = false
	}

	outputs := cache.New(cfg.Cache)
	analyzer := analyze.NewPfPRAnalyzer(client, outputs, analyze.Options{
		Sites:          analyzeSites,
		SweepVariables: analyzeVariables,
		Concurrency:    cfg.Concurrency.Downloads,
		CacheTTL:       cfg.Cache.DiskTTL,
		Logger:         logger,
	})

	fmt.Fprintf(os.Stderr, "⚙️  Analyzing %d simulations of %s...\n", len(sims), exp.Name)
	report, err := analyzer.Analyze(ctx, exp, sims)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if analyzeOutput != "" {
		f, err := os.Create(analyzeOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output: %w", closeErr)
			}
		}()
		w = f
	}
	if err := analyze.Render(w, report, analyze.Format(analyzeFormat)); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "✓ %d samples, %d comparisons, %d skipped\n",
		len(report.Samples), len(report.Comparisons), len(report.Skipped))
	if stats, ok := cache.StatsOf(outputs); ok {
		logger.Debug("output cache",
			zap.Int64("memory_hits", stats.MemoryHits),
			zap.Int64("disk_hits", stats.DiskHits),
			zap.Int64("misses", stats.Misses))
	}
	return nil
}
