package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/malcamp/internal/experiment"
	"github.com/ppiankov/malcamp/internal/model"
	"github.com/ppiankov/malcamp/internal/registry"
)

var (
	statusRefresh bool
	statusWait    bool
	statusTimeout time.Duration
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status [experiment-id]",
	Short: "Show the state of an experiment's simulations",
	Long: `Status prints simulation state counts for an experiment from the local
registry. Without an ID the most recent experiment is used.

Example:
  malcamp status
  malcamp status 5f0c... --refresh
  malcamp status --wait --timeout 2h`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusRefresh, "refresh", false, "poll the service once before printing")
	statusCmd.Flags().BoolVar(&statusWait, "wait", false, "poll until every simulation finishes")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 0, "give up waiting after this long (0 waits indefinitely)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signalContext()
	defer cancel()

	manager, closeFn, err := newManager(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	id, err := experimentID(ctx, cfg, args)
	if err != nil {
		return err
	}
	if _, err := manager.Resume(ctx, id); err != nil {
		return err
	}

	if statusWait {
		return waitAndReport(cmd, manager, statusTimeout)
	}
	if statusRefresh {
		if _, err := manager.Refresh(ctx); err != nil {
			return err
		}
	}
	printStatus(cmd, manager)
	return nil
}

// experimentID returns the ID argument or the latest registered experiment.
func experimentID(ctx context.Context, cfg *model.Config, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	store, err := registry.Open(cfg.Registry.Path)
	if err != nil {
		return "", err
	}
	defer func() { _ = store.Close() }()

	exp, err := store.LatestExperiment(ctx)
	if err != nil {
		return "", fmt.Errorf("latest experiment: %w", err)
	}
	return exp.ID, nil
}

var displayStates = []model.SimulationState{
	model.StateCreated,
	model.StateCommissioned,
	model.StateRunning,
	model.StateSucceeded,
	model.StateFailed,
	model.StateCanceled,
}

func printStatus(cmd *cobra.Command, manager *experiment.Manager) {
	exp, _ := manager.Experiment()
	counts := manager.StatusCounts()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Experiment %s (%s)\n", exp.ID, exp.Name)
	for _, state := range displayStates {
		if n := counts[state]; n > 0 {
			fmt.Fprintf(out, "  %-13s %d\n", state, n)
		}
	}
	fmt.Fprintf(out, "  %-13s %d\n", "Total", len(manager.Simulations()))
	if manager.Succeeded() {
		fmt.Fprintf(os.Stderr, "✓ All simulations succeeded\n")
	}
}
