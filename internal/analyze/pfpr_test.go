package analyze

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/malcamp/internal/cache"
	"github.com/ppiankov/malcamp/internal/model"
)

type fakeSource struct {
	mu    sync.Mutex
	files map[string]string
	calls int
}

func (f *fakeSource) SimulationFile(_ context.Context, id, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	data, ok := f.files[id+"/"+path]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(data), nil
}

func summary(values ...float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return `{"DataByTime":{"PfPR_2to10":[` + strings.Join(parts, ",") + `]}}`
}

func sim(id string, state model.SimulationState, typ string, coverage float64, run int) model.Simulation {
	return model.Simulation{
		ID:    id,
		State: state,
		Tags: map[string]any{
			"drug_campaign.type":     typ,
			"drug_campaign.coverage": coverage,
			"Run_Number":             run,
			"scenario":               "Namawala",
		},
	}
}

func TestReadPfPR(t *testing.T) {
	v, err := ReadPfPR([]byte(summary(0.5, 0.4, 0.1)))
	require.NoError(t, err)
	assert.Equal(t, 0.4, v)

	_, err = ReadPfPR([]byte(summary(0.5)))
	assert.ErrorIs(t, err, ErrShortSeries)

	_, err = ReadPfPR([]byte("{"))
	assert.Error(t, err)
}

func TestSummaryReportPath(t *testing.T) {
	assert.Equal(t, "output/MalariaSummaryReport_Namawala.json", SummaryReportPath("Namawala"))
}

func TestAnalyze(t *testing.T) {
	path := SummaryReportPath("Namawala")
	src := &fakeSource{files: map[string]string{
		"b0/" + path: summary(0.5, 0.40, 0.1),
		"b1/" + path: summary(0.5, 0.20, 0.1),
		"m0/" + path: summary(0.5, 0.15, 0.1),
		"m1/" + path: summary(0.5, 0.05, 0.1),
		"bad/" + path: summary(0.5),
	}}
	sims := []model.Simulation{
		sim("b0", model.StateSucceeded, "MDA", 0, 0),
		sim("b1", model.StateSucceeded, "MDA", 0, 1),
		sim("m0", model.StateSucceeded, "MDA", 0.8, 0),
		sim("m1", model.StateSucceeded, "MDA", 0.8, 1),
		sim("bad", model.StateSucceeded, "MDA", 0.8, 2),
		sim("f0", model.StateFailed, "MDA", 0.8, 3),
	}

	a := NewPfPRAnalyzer(src, nil, Options{Sites: []string{"Namawala"}, Concurrency: 2})
	a.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	report, err := a.Analyze(context.Background(), model.Experiment{ID: "exp"}, sims)
	require.NoError(t, err)

	assert.Equal(t, "exp", report.ExperimentID)
	require.Len(t, report.Samples, 4)
	assert.Equal(t, "b0", report.Samples[0].SimulationID)
	assert.Equal(t, 0, report.Samples[0].Variables["Run_Number"])
	assert.Equal(t, 0.0, report.Samples[0].Variables["drug_campaign.coverage"])
	assert.NotContains(t, report.Samples[0].Variables, "scenario")

	require.Len(t, report.Skipped, 2)
	assert.Contains(t, report.Skipped[0], "bad/Namawala")
	assert.Contains(t, report.Skipped[1], "f0: state Failed")

	require.Len(t, report.Comparisons, 2)
	base, treated := report.Comparisons[0], report.Comparisons[1]
	assert.Equal(t, 0.0, base.Coverage)
	assert.InDelta(t, 0.30, base.MeanPfPR, 1e-9)
	assert.InDelta(t, 0.0, base.RelativeReduction, 1e-9)
	assert.Equal(t, 0.8, treated.Coverage)
	assert.Equal(t, 2, treated.Samples)
	assert.InDelta(t, 0.10, treated.MeanPfPR, 1e-9)
	assert.True(t, treated.HasBaseline)
	assert.InDelta(t, 0.30, treated.BaselinePfPR, 1e-9)
	assert.InDelta(t, 2.0/3.0, treated.RelativeReduction, 1e-9)
}

func TestAnalyze_NoBaseline(t *testing.T) {
	a := NewPfPRAnalyzer(&fakeSource{}, nil, Options{Sites: []string{"s"}})
	comps := a.Compare([]model.PfPRSample{
		{Site: "s", PfPR: 0.2, Variables: map[string]any{"drug_campaign.type": "MSAT", "drug_campaign.coverage": 0.5}},
		{Site: "s", PfPR: 0.3, Variables: map[string]any{}},
	})
	require.Len(t, comps, 2)
	assert.Equal(t, "MSAT", comps[0].Intervention)
	assert.False(t, comps[0].HasBaseline)
	assert.Equal(t, noIntervention, comps[1].Intervention)
	assert.True(t, comps[1].HasBaseline)
}

func TestAnalyze_UsesCache(t *testing.T) {
	path := SummaryReportPath("s")
	src := &fakeSource{files: map[string]string{"a/" + path: summary(0.3, 0.2, 0.1)}}
	c := cache.NewDiskCache(t.TempDir(), time.Hour)
	a := NewPfPRAnalyzer(src, c, Options{Sites: []string{"s"}, CacheTTL: time.Hour})
	sims := []model.Simulation{sim("a", model.StateSucceeded, "MDA", 1, 0)}

	for i := 0; i < 2; i++ {
		report, err := a.Analyze(context.Background(), model.Experiment{ID: "e"}, sims)
		require.NoError(t, err)
		require.Len(t, report.Samples, 1)
		assert.Equal(t, 0.2, report.Samples[0].PfPR)
	}
	assert.Equal(t, 1, src.calls)
}

func TestAnalyze_NoSites(t *testing.T) {
	_, err := NewPfPRAnalyzer(&fakeSource{}, nil, Options{}).Analyze(context.Background(), model.Experiment{}, nil)
	assert.Error(t, err)
}

func TestAnalyze_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := NewPfPRAnalyzer(&fakeSource{}, nil, Options{Sites: []string{"s"}})
	_, err := a.Analyze(ctx, model.Experiment{ID: "e"}, []model.Simulation{sim("a", model.StateSucceeded, "MDA", 1, 0)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRender(t *testing.T) {
	report := &model.AnalysisReport{
		ExperimentID: "exp",
		GeneratedAt:  time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Samples:      []model.PfPRSample{{SimulationID: "a", Site: "s", PfPR: 0.1}},
		Comparisons: []model.PfPRComparison{
			{Site: "s", Intervention: "MDA", Coverage: 0.8, Samples: 1, MeanPfPR: 0.1, BaselinePfPR: 0.4, RelativeReduction: 0.75, HasBaseline: true},
			{Site: "s", Intervention: "MSAT", Coverage: 0.5, Samples: 1, MeanPfPR: 0.2},
		},
		Skipped: []string{"f0: state Failed"},
	}

	var md bytes.Buffer
	require.NoError(t, Render(&md, report, FormatMarkdown))
	out := md.String()
	assert.Contains(t, out, "# PfPR analysis: exp")
	assert.Contains(t, out, "| s | MDA | 0.80 | 1 | 0.1000 | 0.4000 | 75.0% |")
	assert.Contains(t, out, "| s | MSAT | 0.50 | 1 | 0.2000 | n/a | n/a |")
	assert.Contains(t, out, "- f0: state Failed")

	var js bytes.Buffer
	require.NoError(t, Render(&js, report, FormatJSON))
	assert.Contains(t, js.String(), `"relative_reduction": 0.75`)

	assert.Error(t, Render(&js, report, "csv"))
}
