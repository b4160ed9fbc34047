package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/malcamp/internal/experiment"
	"github.com/ppiankov/malcamp/internal/model"
)

const sampleScenario = `
name: Namawala
start_date: "2025-01-01"
parameters:
  Simulation_Duration: 3650
  Base_Population_Scale_Factor: 0.5
listed_events: [Bednet_Got_New_One]
interventions:
  - type: health_seeking
    start_day: 30
  - type: drug_campaign
    campaign_type: MDA
    drug_code: DP
    start_days: [100, 465]
    coverage: 0.7
    repetitions: 1
reports:
  - type: summary
  - type: event_counter
    duration: 730
sweep:
  runs: 2
  parameters:
    interventions.1.coverage: [0, 0.5]
`

func mustParse(t *testing.T, data string) *Scenario {
	t.Helper()
	sc, err := Parse([]byte(data), t.TempDir())
	require.NoError(t, err)
	return sc
}

func TestParse(t *testing.T) {
	sc := mustParse(t, sampleScenario)
	assert.Equal(t, "Namawala", sc.Name)
	assert.Equal(t, "MALARIA_SIM", sc.SimulationType)
	require.Len(t, sc.Interventions, 2)
	assert.Equal(t, StepDrugCampaign, sc.Interventions[1].Type)
	assert.Equal(t, 4, sc.Sweep.Size())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing name", "interventions: []"},
		{"bad start date", "name: x\nstart_date: 01/02/2025"},
		{"step without type", "name: x\ninterventions:\n  - coverage: 1"},
		{"step not a mapping", "name: x\ninterventions:\n  - health_seeking"},
		{"negative runs", "name: x\nsweep:\n  runs: -1"},
		{"malformed yaml", "name: [x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "")
			assert.Error(t, err)
		})
	}
}

func TestBuild(t *testing.T) {
	cb, err := mustParse(t, sampleScenario).Build()
	require.NoError(t, err)

	// two health seeking targets, one MDA event per start day
	assert.Equal(t, 4, cb.EventCount())
	assert.Equal(t, 100.0, cb.Events()[2].StartDay)
	assert.Equal(t, 465.0, cb.Events()[3].StartDay)

	tags := cb.Tags()
	assert.Equal(t, "Namawala", tags["scenario"])
	assert.Equal(t, "MDA", tags["drug_campaign.type"])
	assert.Equal(t, 0.7, tags["drug_campaign.coverage"])

	v, ok := cb.Param("Simulation_Duration")
	require.True(t, ok)
	assert.Equal(t, 3650, v)
	assert.Contains(t, cb.ListedEvents(), "Bednet_Got_New_One")
	assert.Contains(t, cb.ListedEvents(), "Received_Campaign_Drugs")

	reports := cb.Reports()
	require.Len(t, reports, 2)
	summary, ok := reports[0].(model.MalariaSummaryReport)
	require.True(t, ok)
	assert.Equal(t, "Namawala", summary.Description)
	counter, ok := reports[1].(model.ReportEventCounter)
	require.True(t, ok)
	assert.Equal(t, []string{"Received_Treatment"}, counter.EventTriggerList)
}

func TestBuild_UnknownStep(t *testing.T) {
	sc := mustParse(t, "name: x\ninterventions:\n  - type: bednets\n")
	_, err := sc.Build()
	assert.ErrorIs(t, err, ErrUnknownStep)

	sc = mustParse(t, "name: x\nreports:\n  - type: histogram\n")
	_, err = sc.Build()
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestBuild_InvalidCampaign(t *testing.T) {
	sc := mustParse(t, "name: x\ninterventions:\n  - type: drug_campaign\n    campaign_type: IRS\n")
	_, err := sc.Build()
	assert.Error(t, err)
}

func TestBuildVariant(t *testing.T) {
	sc := mustParse(t, sampleScenario)
	variants := sc.Variants()
	require.Len(t, variants, 4)

	cb, err := sc.BuildVariant(variants[2])
	require.NoError(t, err)
	assert.Equal(t, 0.5, cb.Tags()["drug_campaign.coverage"])
	run, ok := cb.Param(experiment.RunNumberKey)
	require.True(t, ok)
	assert.Equal(t, 0, run)
	_, ok = cb.Param("interventions.1.coverage")
	assert.False(t, ok)

	base, err := sc.Build()
	require.NoError(t, err)
	assert.Equal(t, 0.7, base.Tags()["drug_campaign.coverage"])
}

func TestBuildVariant_AddsMissingField(t *testing.T) {
	sc := mustParse(t, "name: x\ninterventions:\n  - type: drug_campaign\n    campaign_type: MDA\n    drug_code: DP\n")
	cb, err := sc.BuildVariant(experiment.Variant{Params: map[string]any{"interventions.0.coverage": 0.25}})
	require.NoError(t, err)
	assert.Equal(t, 0.25, cb.Tags()["drug_campaign.coverage"])
}

func TestBuildVariant_BadOverride(t *testing.T) {
	sc := mustParse(t, sampleScenario)
	for _, name := range []string{
		"interventions.9.coverage",
		"interventions.x.coverage",
		"interventions.0",
		"interventions.0.type",
	} {
		_, err := sc.BuildVariant(experiment.Variant{Params: map[string]any{name: 1}})
		assert.ErrorIs(t, err, ErrInvalidScenario, name)
	}
}

func TestLoad_NodeCoverageFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hscov.json"),
		[]byte(`{"hscov":[{"coverage":0.4,"nodes":[1,2]},{"coverage":0.8,"nodes":[3]}]}`), 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path,
		[]byte("name: cov\ninterventions:\n  - type: node_coverage\n    file: hscov.json\n    start_day: 10\n"), 0o644))

	sc, err := Load(path)
	require.NoError(t, err)
	cb, err := sc.Build()
	require.NoError(t, err)
	assert.Equal(t, 6, cb.EventCount())
	assert.Equal(t, 10.0, cb.Events()[0].StartDay)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestStep_MarshalRoundTrip(t *testing.T) {
	sc := mustParse(t, sampleScenario)
	out, err := yaml.Marshal(sc)
	require.NoError(t, err)

	again, err := Parse(out, "")
	require.NoError(t, err)
	assert.Equal(t, sc.Interventions[1].Type, again.Interventions[1].Type)
	assert.Equal(t, sc.Sweep.Size(), again.Sweep.Size())
}
