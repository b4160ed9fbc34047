package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/malcamp/internal/builder"
	"github.com/ppiankov/malcamp/internal/model"
	"github.com/ppiankov/malcamp/internal/worker"
)

var (
	// ErrNoExperiment is returned when waiting before anything was submitted.
	ErrNoExperiment = errors.New("no experiment submitted")
	// ErrSubmitFailed wraps the submissions the service rejected.
	ErrSubmitFailed = errors.New("simulation submission failed")
)

// Service is the execution service an experiment runs on.
type Service interface {
	CreateExperiment(ctx context.Context, exp model.Experiment) error
	worker.Submitter
	worker.Poller
}

// Registry records experiments locally. *registry.Store implements it.
type Registry interface {
	SaveExperiment(ctx context.Context, exp model.Experiment) error
	SaveSimulations(ctx context.Context, sims []model.Simulation) error
	UpdateState(ctx context.Context, simulationID string, state model.SimulationState) error
	Experiment(ctx context.Context, id string) (model.Experiment, error)
	Simulations(ctx context.Context, experimentID string) ([]model.Simulation, error)
}

// BuildFunc produces the simulation inputs of one sweep variant.
type BuildFunc func(v Variant) (*builder.ConfigBuilder, error)

// Options tune a Manager.
type Options struct {
	Workers      int
	PollInterval time.Duration
	Logger       *zap.Logger
}

// Manager submits one experiment and tracks its simulations. It is not safe
// for concurrent use.
type Manager struct {
	service      Service
	registry     Registry
	batch        *worker.Batch
	pollInterval time.Duration
	logger       *zap.Logger
	newID        func() string
	now          func() time.Time

	experiment *model.Experiment
	sims       []model.Simulation
}

// NewManager creates a manager. registry may be nil.
func NewManager(service Service, registry Registry, opts Options) *Manager {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		service:      service,
		registry:     registry,
		batch:        worker.NewBatch(opts.Workers),
		pollInterval: opts.PollInterval,
		logger:       opts.Logger.Named("experiment"),
		newID:        uuid.NewString,
		now:          time.Now,
	}
}

// RunSimulations submits one simulation per sweep variant, each a clone of
// cb with the variant's values set as engine parameters.
func (m *Manager) RunSimulations(ctx context.Context, cb *builder.ConfigBuilder, name string, sweep Sweep) (model.Experiment, error) {
	if err := sweep.Validate(); err != nil {
		return model.Experiment{}, err
	}
	return m.RunVariants(ctx, name, sweep.Variants(), func(v Variant) (*builder.ConfigBuilder, error) {
		variant := cb.Clone()
		variant.UpdateParams(v.Params)
		return variant, nil
	})
}

// RunVariants creates an experiment and submits one simulation per variant
// built by build. Each simulation is tagged with the builder's tags and the
// variant's values. Simulations whose submission failed are marked Failed
// and reported through an error wrapping ErrSubmitFailed; the experiment is
// still returned.
func (m *Manager) RunVariants(ctx context.Context, name string, variants []Variant, build BuildFunc) (model.Experiment, error) {
	if len(variants) == 0 {
		return model.Experiment{}, fmt.Errorf("experiment %q: no variants", name)
	}

	subs := make([]worker.Submission, 0, len(variants))
	exp := model.Experiment{ID: m.newID(), Name: name, CreatedAt: m.now().UTC()}
	for i, v := range variants {
		cb, err := build(v)
		if err != nil {
			return model.Experiment{}, fmt.Errorf("build variant %d: %w", i, err)
		}
		files, err := cb.Files()
		if err != nil {
			return model.Experiment{}, fmt.Errorf("render variant %d: %w", i, err)
		}
		tags := cb.Tags()
		for k, val := range v.Params {
			tags[k] = val
		}
		subs = append(subs, worker.Submission{
			Simulation: model.Simulation{
				ID:           m.newID(),
				ExperimentID: exp.ID,
				Tags:         tags,
				State:        model.StateCreated,
				UpdatedAt:    exp.CreatedAt,
			},
			Files: files,
		})
	}

	if err := m.service.CreateExperiment(ctx, exp); err != nil {
		return model.Experiment{}, fmt.Errorf("create experiment: %w", err)
	}
	sims := make([]model.Simulation, len(subs))
	for i, sub := range subs {
		sims[i] = sub.Simulation
	}
	if m.registry != nil {
		if err := m.registry.SaveExperiment(ctx, exp); err != nil {
			return model.Experiment{}, err
		}
		if err := m.registry.SaveSimulations(ctx, sims); err != nil {
			return model.Experiment{}, err
		}
	}
	m.experiment = &exp
	m.sims = sims

	m.logger.Info("submitting simulations",
		zap.String("experiment_id", exp.ID),
		zap.String("name", name),
		zap.Int("count", len(subs)))

	results := m.batch.Submit(ctx, m.service, subs)
	var errs []error
	for i := range m.sims {
		sim := &m.sims[i]
		r, ok := results[sim.ID]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("%s: not submitted: %w", sim.ID, ctx.Err()))
		case r.Err() != nil:
			errs = append(errs, fmt.Errorf("%s: %w", sim.ID, r.Err()))
		default:
			continue
		}
		m.setState(ctx, sim, model.StateFailed)
	}
	if len(errs) > 0 {
		return exp, fmt.Errorf("%w: %d of %d: %w", ErrSubmitFailed, len(errs), len(m.sims), errors.Join(errs...))
	}
	return exp, nil
}

// Resume loads a previously submitted experiment from the registry.
func (m *Manager) Resume(ctx context.Context, experimentID string) (model.Experiment, error) {
	if m.registry == nil {
		return model.Experiment{}, fmt.Errorf("resume %s: no registry configured", experimentID)
	}
	exp, err := m.registry.Experiment(ctx, experimentID)
	if err != nil {
		return model.Experiment{}, fmt.Errorf("resume %s: %w", experimentID, err)
	}
	sims, err := m.registry.Simulations(ctx, experimentID)
	if err != nil {
		return model.Experiment{}, fmt.Errorf("resume %s: %w", experimentID, err)
	}
	m.experiment = &exp
	m.sims = sims
	return exp, nil
}

// Refresh polls every unfinished simulation once and reports whether all
// are finished.
func (m *Manager) Refresh(ctx context.Context) (bool, error) {
	if m.experiment == nil {
		return false, ErrNoExperiment
	}

	pending := make([]string, 0, len(m.sims))
	index := make(map[string]int, len(m.sims))
	for i, sim := range m.sims {
		if !sim.State.IsTerminal() {
			pending = append(pending, sim.ID)
			index[sim.ID] = i
		}
	}
	if len(pending) == 0 {
		return true, nil
	}

	for id, r := range m.batch.Poll(ctx, m.service, pending) {
		sim := &m.sims[index[id]]
		if err := r.Err(); err != nil {
			m.logger.Warn("poll failed", zap.String("simulation_id", id), zap.Error(err))
			continue
		}
		if r.State != sim.State {
			m.setState(ctx, sim, r.State)
		}
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return len(m.unfinished()) == 0, nil
}

// WaitForFinished polls at the configured interval until every simulation
// is in a terminal state or ctx is done.
func (m *Manager) WaitForFinished(ctx context.Context) error {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		done, err := m.Refresh(ctx)
		if err != nil {
			return err
		}
		counts := m.StatusCounts()
		m.logger.Info("experiment status",
			zap.String("experiment_id", m.experiment.ID),
			zap.Int("succeeded", counts[model.StateSucceeded]),
			zap.Int("failed", counts[model.StateFailed]),
			zap.Int("unfinished", len(m.unfinished())))
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Succeeded reports whether every simulation succeeded.
func (m *Manager) Succeeded() bool {
	if len(m.sims) == 0 {
		return false
	}
	for _, sim := range m.sims {
		if sim.State != model.StateSucceeded {
			return false
		}
	}
	return true
}

// StatusCounts counts simulations per state.
func (m *Manager) StatusCounts() map[model.SimulationState]int {
	counts := make(map[model.SimulationState]int)
	for _, sim := range m.sims {
		counts[sim.State]++
	}
	return counts
}

// Experiment returns the current experiment, if any.
func (m *Manager) Experiment() (model.Experiment, bool) {
	if m.experiment == nil {
		return model.Experiment{}, false
	}
	return *m.experiment, true
}

// Simulations returns the tracked simulations in submission order.
func (m *Manager) Simulations() []model.Simulation {
	return append([]model.Simulation(nil), m.sims...)
}

func (m *Manager) unfinished() []string {
	var ids []string
	for _, sim := range m.sims {
		if !sim.State.IsTerminal() {
			ids = append(ids, sim.ID)
		}
	}
	return ids
}

func (m *Manager) setState(ctx context.Context, sim *model.Simulation, state model.SimulationState) {
	sim.State = state
	sim.UpdatedAt = m.now().UTC()
	if m.registry == nil {
		return
	}
	if err := m.registry.UpdateState(ctx, sim.ID, state); err != nil {
		m.logger.Warn("registry update failed", zap.String("simulation_id", sim.ID), zap.Error(err))
	}
}
