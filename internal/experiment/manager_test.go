package experiment

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ppiankov/malcamp/internal/builder"
	"github.com/ppiankov/malcamp/internal/model"
	"github.com/ppiankov/malcamp/internal/registry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeService advances each simulation one state per poll along its script.
type fakeService struct {
	mu          sync.Mutex
	experiments []model.Experiment
	files       map[string]map[string][]byte
	tags        map[string]map[string]any
	polls       map[string]int
	script      []model.SimulationState
	reject      map[string]bool
	createErr   error
}

func newFakeService() *fakeService {
	return &fakeService{
		files:  make(map[string]map[string][]byte),
		tags:   make(map[string]map[string]any),
		polls:  make(map[string]int),
		reject: make(map[string]bool),
		script: []model.SimulationState{model.StateRunning, model.StateSucceeded},
	}
}

func (f *fakeService) CreateExperiment(_ context.Context, exp model.Experiment) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.experiments = append(f.experiments, exp)
	return nil
}

func (f *fakeService) SubmitSimulation(_ context.Context, sim model.Simulation, files map[string][]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject[sim.ID] {
		return errors.New("quota exceeded")
	}
	f.files[sim.ID] = files
	f.tags[sim.ID] = sim.Tags
	return nil
}

func (f *fakeService) SimulationState(_ context.Context, id string) (model.SimulationState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[id]; !ok {
		return "", fmt.Errorf("%s: unknown", id)
	}
	n := f.polls[id]
	f.polls[id]++
	if n >= len(f.script) {
		n = len(f.script) - 1
	}
	return f.script[n], nil
}

func newTestManager(svc Service, reg Registry) *Manager {
	m := NewManager(svc, reg, Options{Workers: 2, PollInterval: time.Millisecond})
	n := 0
	m.newID = func() string {
		id := fmt.Sprintf("id-%d", n)
		n++
		return id
	}
	m.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return m
}

func buildFor(v Variant) (*builder.ConfigBuilder, error) {
	cb := builder.New("MALARIA_SIM")
	cb.UpdateParams(v.Params)
	cb.SetTag("drug_campaign.coverage", 0.7)
	return cb, nil
}

func TestManager_RunAndWait(t *testing.T) {
	svc := newFakeService()
	m := newTestManager(svc, nil)
	ctx := context.Background()

	sweep := Sweep{Runs: 2, Parameters: map[string][]any{"Base_Infectivity": {1, 2}}}
	base := builder.New("MALARIA_SIM")
	base.SetTag("drug_campaign.coverage", 0.7)
	exp, err := m.RunSimulations(ctx, base, "burnin", sweep)
	require.NoError(t, err)
	assert.Equal(t, "id-0", exp.ID)
	assert.Equal(t, "burnin", exp.Name)
	require.Len(t, svc.experiments, 1)

	sims := m.Simulations()
	require.Len(t, sims, 4)
	assert.Equal(t, "id-1", sims[0].ID)
	assert.Equal(t, exp.ID, sims[0].ExperimentID)
	assert.Equal(t, 1, sims[0].Tags["Base_Infectivity"])
	assert.Equal(t, 0, sims[0].Tags[RunNumberKey])
	assert.Equal(t, 0.7, sims[0].Tags["drug_campaign.coverage"])
	assert.Contains(t, svc.files["id-1"], builder.ConfigFile)
	assert.Contains(t, svc.files["id-1"], builder.CampaignFile)

	assert.False(t, m.Succeeded())
	require.NoError(t, m.WaitForFinished(ctx))
	assert.True(t, m.Succeeded())
	assert.Equal(t, map[model.SimulationState]int{model.StateSucceeded: 4}, m.StatusCounts())
}

func TestManager_RunSimulationsClonesBuilder(t *testing.T) {
	svc := newFakeService()
	m := newTestManager(svc, nil)
	base := builder.New("MALARIA_SIM")

	_, err := m.RunSimulations(context.Background(), base, "x", Sweep{Parameters: map[string][]any{"Base_Infectivity": {5}}})
	require.NoError(t, err)
	_, ok := base.Param("Base_Infectivity")
	assert.False(t, ok)
	assert.Contains(t, string(svc.files["id-1"][builder.ConfigFile]), `"Base_Infectivity": 5`)

	_, err = m.RunSimulations(context.Background(), base, "x", Sweep{Runs: -1})
	assert.Error(t, err)
}

func TestManager_FailedSubmission(t *testing.T) {
	svc := newFakeService()
	svc.reject["id-2"] = true
	m := newTestManager(svc, nil)

	_, err := m.RunVariants(context.Background(), "x", Sweep{Runs: 3}.Variants(), buildFor)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmitFailed)
	assert.Contains(t, err.Error(), "quota exceeded")

	counts := m.StatusCounts()
	assert.Equal(t, 1, counts[model.StateFailed])
	assert.Equal(t, 2, counts[model.StateCreated])

	require.NoError(t, m.WaitForFinished(context.Background()))
	assert.False(t, m.Succeeded())
}

func TestManager_FailedSimulation(t *testing.T) {
	svc := newFakeService()
	svc.script = []model.SimulationState{model.StateRunning, model.StateFailed}
	m := newTestManager(svc, nil)

	_, err := m.RunVariants(context.Background(), "x", Sweep{}.Variants(), buildFor)
	require.NoError(t, err)
	require.NoError(t, m.WaitForFinished(context.Background()))
	assert.False(t, m.Succeeded())
	assert.Equal(t, 1, m.StatusCounts()[model.StateFailed])
}

func TestManager_CreateExperimentError(t *testing.T) {
	svc := newFakeService()
	svc.createErr = errors.New("unauthorized")
	m := newTestManager(svc, nil)

	_, err := m.RunVariants(context.Background(), "x", Sweep{}.Variants(), buildFor)
	require.Error(t, err)
	assert.Empty(t, svc.files)
	_, ok := m.Experiment()
	assert.False(t, ok)
}

func TestManager_BuildError(t *testing.T) {
	m := newTestManager(newFakeService(), nil)
	_, err := m.RunVariants(context.Background(), "x", Sweep{}.Variants(), func(Variant) (*builder.ConfigBuilder, error) {
		return nil, errors.New("bad scenario")
	})
	assert.ErrorContains(t, err, "bad scenario")
}

func TestManager_NoVariants(t *testing.T) {
	m := newTestManager(newFakeService(), nil)
	_, err := m.RunVariants(context.Background(), "x", nil, buildFor)
	assert.Error(t, err)
}

func TestManager_WaitWithoutExperiment(t *testing.T) {
	m := newTestManager(newFakeService(), nil)
	assert.ErrorIs(t, m.WaitForFinished(context.Background()), ErrNoExperiment)
}

func TestManager_WaitCanceled(t *testing.T) {
	svc := newFakeService()
	svc.script = []model.SimulationState{model.StateRunning}
	m := newTestManager(svc, nil)
	m.pollInterval = time.Hour

	_, err := m.RunVariants(context.Background(), "x", Sweep{}.Variants(), buildFor)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.WaitForFinished(ctx), context.DeadlineExceeded)
}

func TestManager_RegistryResume(t *testing.T) {
	reg, err := registry.Open(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	defer reg.Close()

	svc := newFakeService()
	ctx := context.Background()
	first := newTestManager(svc, reg)
	exp, err := first.RunVariants(ctx, "resumable", Sweep{Runs: 2}.Variants(), buildFor)
	require.NoError(t, err)

	second := newTestManager(svc, reg)
	resumed, err := second.Resume(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, "resumable", resumed.Name)
	require.Len(t, second.Simulations(), 2)

	require.NoError(t, second.WaitForFinished(ctx))
	assert.True(t, second.Succeeded())

	stored, err := reg.Simulations(ctx, exp.ID)
	require.NoError(t, err)
	for _, sim := range stored {
		assert.Equal(t, model.StateSucceeded, sim.State)
	}
}

func TestManager_ResumeWithoutRegistry(t *testing.T) {
	_, err := newTestManager(newFakeService(), nil).Resume(context.Background(), "e")
	assert.Error(t, err)
}
