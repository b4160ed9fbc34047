package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/malcamp/internal/experiment"
	"github.com/ppiankov/malcamp/internal/model"
	"github.com/ppiankov/malcamp/internal/registry"
	"github.com/ppiankov/malcamp/internal/remote"
	"github.com/ppiankov/malcamp/internal/scenario"
)

var (
	runName    string
	runWait    bool
	runTimeout time.Duration
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Submit a scenario sweep as an experiment",
	Long: `Run expands the scenario's sweep, submits one simulation per variant
to the execution service and records the experiment in the local registry.

Example:
  malcamp run scenario.yaml
  malcamp run scenario.yaml --name burnin --wait --timeout 12h`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runName, "name", "", "experiment name (default: scenario name)")
	runCmd.Flags().BoolVar(&runWait, "wait", false, "wait until every simulation finishes")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "give up waiting after this long (0 waits indefinitely)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	sc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}
	name := runName
	if name == "" {
		name = sc.Name
	}

	ctx, cancel := signalContext()
	defer cancel()

	manager, closeFn, err := newManager(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	variants := sc.Variants()
	banner("malcamp run")
	fmt.Fprintf(os.Stderr, "  Scenario:     %s\n", sc.Name)
	fmt.Fprintf(os.Stderr, "  Experiment:   %s\n", name)
	fmt.Fprintf(os.Stderr, "  Simulations:  %d\n", len(variants))
	fmt.Fprintf(os.Stderr, "  Service:      %s\n", cfg.Service.URL)
	fmt.Fprintf(os.Stderr, "\n")

	exp, err := manager.RunVariants(ctx, name, variants, sc.BuildVariant)
	if err != nil && !errors.Is(err, experiment.ErrSubmitFailed) {
		return err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", exp.ID)

	if !runWait {
		return err
	}
	return waitAndReport(cmd, manager, runTimeout)
}

// newManager wires the remote client and registry into an experiment
// manager. The returned func closes the registry.
func newManager(cfg *model.Config, logger *zap.Logger) (*experiment.Manager, func(), error) {
	client, err := remote.NewClient(cfg.Service, cfg.RateLimiting, logger)
	if err != nil {
		return nil, nil, err
	}
	store, err := registry.Open(cfg.Registry.Path)
	if err != nil {
		return nil, nil, err
	}
	manager := experiment.NewManager(client, store, experiment.Options{
		Workers:      cfg.Concurrency.Workers,
		PollInterval: cfg.Polling.Interval,
		Logger:       logger,
	})
	return manager, func() {
		if err := store.Close(); err != nil {
			logger.Warn("close registry", zap.Error(err))
		}
	}, nil
}

func waitAndReport(cmd *cobra.Command, manager *experiment.Manager, timeout time.Duration) error {
	ctx, cancel := signalContext()
	defer cancel()
	if timeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, timeout)
		defer stop()
	}

	fmt.Fprintf(os.Stderr, "⚙️  Waiting for simulations...\n")
	waitErr := manager.WaitForFinished(ctx)
	printStatus(cmd, manager)
	if waitErr != nil {
		return fmt.Errorf("wait: %w", waitErr)
	}
	if !manager.Succeeded() {
		return fmt.Errorf("experiment finished with failed simulations")
	}
	return nil
}
