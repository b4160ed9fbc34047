package model

import "time"

// PfPRSample is the end-of-run PfPR(2-10) of one simulation at one site.
type PfPRSample struct {
	SimulationID string         `json:"simulation_id"`
	Site         string         `json:"site"`
	PfPR         float64        `json:"pfpr"`
	Variables    map[string]any `json:"variables"`
}

// PfPRComparison summarises one site/intervention/coverage cell against the
// coverage-0 baseline of the same site and intervention.
type PfPRComparison struct {
	Site         string  `json:"site"`
	Intervention string  `json:"intervention"`
	Coverage     float64 `json:"coverage"`
	Samples      int     `json:"samples"`
	MeanPfPR     float64 `json:"mean_pfpr"`
	BaselinePfPR float64 `json:"baseline_pfpr"`
	// RelativeReduction is 1 - mean/baseline; zero when the baseline is zero.
	RelativeReduction float64 `json:"relative_reduction"`
	HasBaseline       bool    `json:"has_baseline"`
}

// AnalysisReport is the rendered output of an analysis run.
type AnalysisReport struct {
	ExperimentID string           `json:"experiment_id"`
	GeneratedAt  time.Time        `json:"generated_at"`
	Samples      []PfPRSample     `json:"samples"`
	Comparisons  []PfPRComparison `json:"comparisons"`
	Skipped      []string         `json:"skipped,omitempty"`
}
