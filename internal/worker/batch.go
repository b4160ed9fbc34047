package worker

import (
	"context"

	"github.com/ppiankov/malcamp/internal/model"
)

// Submitter uploads one simulation's input files to the execution service.
type Submitter interface {
	SubmitSimulation(ctx context.Context, sim model.Simulation, files map[string][]byte) error
}

// Poller reads a simulation's current state from the execution service.
type Poller interface {
	SimulationState(ctx context.Context, simulationID string) (model.SimulationState, error)
}

// Submission is a simulation ready to be submitted.
type Submission struct {
	Simulation model.Simulation
	Files      map[string][]byte
}

// SubmitJob submits one simulation
type SubmitJob struct {
	Submission Submission
	Submitter  Submitter
}

// Execute submits the simulation
func (j *SubmitJob) Execute(ctx context.Context) Result {
	err := j.Submitter.SubmitSimulation(ctx, j.Submission.Simulation, j.Submission.Files)
	return &SubmitResult{SimulationID: j.Submission.Simulation.ID, Error: err}
}

// SubmitResult is the outcome of a SubmitJob
type SubmitResult struct {
	SimulationID string
	Error        error
}

func (r *SubmitResult) Err() error {
	return r.Error
}

// PollJob reads the state of one simulation
type PollJob struct {
	SimulationID string
	Poller       Poller
}

// Execute polls the simulation
func (j *PollJob) Execute(ctx context.Context) Result {
	state, err := j.Poller.SimulationState(ctx, j.SimulationID)
	return &PollResult{SimulationID: j.SimulationID, State: state, Error: err}
}

// PollResult is the outcome of a PollJob
type PollResult struct {
	SimulationID string
	State        model.SimulationState
	Error        error
}

func (r *PollResult) Err() error {
	return r.Error
}

// Batch runs submissions and polls with bounded concurrency
type Batch struct {
	concurrency int
}

// NewBatch creates a batch runner with the given number of workers
func NewBatch(concurrency int) *Batch {
	return &Batch{concurrency: concurrency}
}

// Submit submits every simulation and returns one result per submission
// that ran, keyed by simulation ID.
func (b *Batch) Submit(ctx context.Context, s Submitter, subs []Submission) map[string]*SubmitResult {
	jobs := make([]Job, len(subs))
	for i, sub := range subs {
		jobs[i] = &SubmitJob{Submission: sub, Submitter: s}
	}

	out := make(map[string]*SubmitResult, len(subs))
	for _, r := range Run(ctx, b.concurrency, jobs) {
		sr := r.(*SubmitResult)
		out[sr.SimulationID] = sr
	}
	return out
}

// Poll reads the state of every simulation, keyed by simulation ID.
func (b *Batch) Poll(ctx context.Context, p Poller, ids []string) map[string]*PollResult {
	jobs := make([]Job, len(ids))
	for i, id := range ids {
		jobs[i] = &PollJob{SimulationID: id, Poller: p}
	}

	out := make(map[string]*PollResult, len(ids))
	for _, r := range Run(ctx, b.concurrency, jobs) {
		pr := r.(*PollResult)
		out[pr.SimulationID] = pr
	}
	return out
}
