// Package analyze reads simulation outputs and summarizes intervention
// impact on parasite prevalence.
package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/malcamp/internal/cache"
	"github.com/ppiankov/malcamp/internal/model"
)

// ErrShortSeries is returned when a report has fewer than two PfPR values.
var ErrShortSeries = errors.New("PfPR series too short")

// Tags read by the analyzer.
const (
	DefaultInterventionTag = "drug_campaign.type"
	DefaultCoverageTag     = "drug_campaign.coverage"
	noIntervention         = "none"
)

// FileSource downloads simulation output files. *remote.Client implements it.
type FileSource interface {
	SimulationFile(ctx context.Context, simulationID, path string) ([]byte, error)
}

// Options tune a PfPRAnalyzer.
type Options struct {
	// Sites are the summary report descriptions to read, one file each.
	Sites []string
	// SweepVariables are tags copied onto every sample besides coverage tags.
	SweepVariables  []string
	InterventionTag string
	CoverageTag     string
	Concurrency     int
	CacheTTL        time.Duration
	Logger          *zap.Logger
}

// PfPRAnalyzer collects end-of-run PfPR(2-10) per simulation and site.
type PfPRAnalyzer struct {
	source FileSource
	cache  cache.Cache
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// NewPfPRAnalyzer creates an analyzer. A nil cache disables caching.
func NewPfPRAnalyzer(source FileSource, c cache.Cache, opts Options) *PfPRAnalyzer {
	if c == nil {
		c = cache.Nop{}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.InterventionTag == "" {
		opts.InterventionTag = DefaultInterventionTag
	}
	if opts.CoverageTag == "" {
		opts.CoverageTag = DefaultCoverageTag
	}
	if len(opts.SweepVariables) == 0 {
		opts.SweepVariables = []string{"Run_Number"}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &PfPRAnalyzer{
		source: source,
		cache:  c,
		opts:   opts,
		logger: opts.Logger.Named("analyze"),
		now:    time.Now,
	}
}

type summaryReport struct {
	DataByTime struct {
		PfPR2to10 []float64 `json:"PfPR_2to10"`
	} `json:"DataByTime"`
}

// SummaryReportPath is the output file of a site's summary report.
func SummaryReportPath(site string) string {
	return model.MalariaSummaryReport{Description: site}.OutputFile()
}

// ReadPfPR returns the second-to-last PfPR_2to10 value of a summary report.
// The last value covers a partial reporting interval.
func ReadPfPR(data []byte) (float64, error) {
	var r summaryReport
	if err := json.Unmarshal(data, &r); err != nil {
		return 0, fmt.Errorf("decode summary report: %w", err)
	}
	series := r.DataByTime.PfPR2to10
	if len(series) < 2 {
		return 0, fmt.Errorf("%w: %d values", ErrShortSeries, len(series))
	}
	return series[len(series)-2], nil
}

// Analyze reads every succeeded simulation and compares each coverage level
// with the coverage-0 baseline. Simulations that did not succeed or whose
// output could not be read are listed in Skipped.
func (a *PfPRAnalyzer) Analyze(ctx context.Context, exp model.Experiment, sims []model.Simulation) (*model.AnalysisReport, error) {
	if len(a.opts.Sites) == 0 {
		return nil, fmt.Errorf("analyze: no sites")
	}

	var (
		mu      sync.Mutex
		samples []model.PfPRSample
		skipped []string
	)
	skip := func(msg string) {
		mu.Lock()
		skipped = append(skipped, msg)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)
	for _, sim := range sims {
		if sim.State != model.StateSucceeded {
			skip(fmt.Sprintf("%s: state %s", sim.ID, sim.State))
			continue
		}
		for _, site := range a.opts.Sites {
			g.Go(func() error {
				pfpr, err := a.load(gctx, sim.ID, site)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					a.logger.Warn("skipping output", zap.String("simulation_id", sim.ID), zap.String("site", site), zap.Error(err))
					skip(fmt.Sprintf("%s/%s: %v", sim.ID, site, err))
					return nil
				}
				sample := model.PfPRSample{
					SimulationID: sim.ID,
					Site:         site,
					PfPR:         pfpr,
					Variables:    a.variables(sim),
				}
				mu.Lock()
				samples = append(samples, sample)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze %s: %w", exp.ID, err)
	}

	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Site != samples[j].Site {
			return samples[i].Site < samples[j].Site
		}
		return samples[i].SimulationID < samples[j].SimulationID
	})
	sort.Strings(skipped)

	return &model.AnalysisReport{
		ExperimentID: exp.ID,
		GeneratedAt:  a.now().UTC(),
		Samples:      samples,
		Comparisons:  a.Compare(samples),
		Skipped:      skipped,
	}, nil
}

func (a *PfPRAnalyzer) load(ctx context.Context, simulationID, site string) (float64, error) {
	path := SummaryReportPath(site)
	data, _, err := cache.GetOrLoad(a.cache, cache.Key(simulationID, path), a.opts.CacheTTL, func() ([]byte, error) {
		return a.source.SimulationFile(ctx, simulationID, path)
	})
	if err != nil {
		if data == nil {
			return 0, err
		}
		a.logger.Warn("cache write failed", zap.String("simulation_id", simulationID), zap.Error(err))
	}
	return ReadPfPR(data)
}

// variables copies the sweep variables, the intervention tag and every tag
// whose name contains "coverage".
func (a *PfPRAnalyzer) variables(sim model.Simulation) map[string]any {
	vars := make(map[string]any)
	for _, name := range a.opts.SweepVariables {
		if v, ok := sim.Tag(name); ok {
			vars[name] = v
		}
	}
	if v, ok := sim.Tag(a.opts.InterventionTag); ok {
		vars[a.opts.InterventionTag] = v
	}
	for k, v := range sim.Tags {
		if strings.Contains(k, "coverage") {
			vars[k] = v
		}
	}
	return vars
}

type cellKey struct {
	site         string
	intervention string
	coverage     float64
}

// Compare groups samples by site, intervention and coverage. Each cell's
// baseline is the mean of the same site and intervention at coverage 0.
func (a *PfPRAnalyzer) Compare(samples []model.PfPRSample) []model.PfPRComparison {
	sums := make(map[cellKey]float64)
	counts := make(map[cellKey]int)
	for _, s := range samples {
		key := cellKey{
			site:         s.Site,
			intervention: a.intervention(s.Variables),
			coverage:     a.coverage(s.Variables),
		}
		sums[key] += s.PfPR
		counts[key]++
	}

	keys := make([]cellKey, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].site != keys[j].site {
			return keys[i].site < keys[j].site
		}
		if keys[i].intervention != keys[j].intervention {
			return keys[i].intervention < keys[j].intervention
		}
		return keys[i].coverage < keys[j].coverage
	})

	out := make([]model.PfPRComparison, 0, len(keys))
	for _, k := range keys {
		c := model.PfPRComparison{
			Site:         k.site,
			Intervention: k.intervention,
			Coverage:     k.coverage,
			Samples:      counts[k],
			MeanPfPR:     sums[k] / float64(counts[k]),
		}
		base := cellKey{site: k.site, intervention: k.intervention}
		if n := counts[base]; n > 0 {
			c.HasBaseline = true
			c.BaselinePfPR = sums[base] / float64(n)
			if c.BaselinePfPR > 0 {
				c.RelativeReduction = 1 - c.MeanPfPR/c.BaselinePfPR
			}
		}
		out = append(out, c)
	}
	return out
}

func (a *PfPRAnalyzer) intervention(vars map[string]any) string {
	if v, ok := vars[a.opts.InterventionTag]; ok {
		if s := fmt.Sprint(v); s != "" {
			return s
		}
	}
	return noIntervention
}

func (a *PfPRAnalyzer) coverage(vars map[string]any) float64 {
	f, _ := toFloat(vars[a.opts.CoverageTag])
	return f
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
