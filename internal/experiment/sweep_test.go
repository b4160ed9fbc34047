package experiment

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestSweep_ZeroValueIsOneRun(t *testing.T) {
	variants := Sweep{}.Variants()
	want := []Variant{{Params: map[string]any{RunNumberKey: 0}}}
	if diff := cmp.Diff(want, variants); diff != "" {
		t.Errorf("variants mismatch (-want +got):\n%s", diff)
	}
}

func TestSweep_CartesianOrder(t *testing.T) {
	s := Sweep{
		Runs: 2,
		Parameters: map[string][]any{
			"x_Temporary_Larval_Habitat": {0.5, 1.0},
			"Base_Infectivity":           {"low", "high"},
		},
	}
	assert.Equal(t, 8, s.Size())

	variants := s.Variants()
	want := []map[string]any{
		{"Base_Infectivity": "low", "x_Temporary_Larval_Habitat": 0.5, RunNumberKey: 0},
		{"Base_Infectivity": "low", "x_Temporary_Larval_Habitat": 0.5, RunNumberKey: 1},
		{"Base_Infectivity": "low", "x_Temporary_Larval_Habitat": 1.0, RunNumberKey: 0},
		{"Base_Infectivity": "low", "x_Temporary_Larval_Habitat": 1.0, RunNumberKey: 1},
		{"Base_Infectivity": "high", "x_Temporary_Larval_Habitat": 0.5, RunNumberKey: 0},
		{"Base_Infectivity": "high", "x_Temporary_Larval_Habitat": 0.5, RunNumberKey: 1},
		{"Base_Infectivity": "high", "x_Temporary_Larval_Habitat": 1.0, RunNumberKey: 0},
		{"Base_Infectivity": "high", "x_Temporary_Larval_Habitat": 1.0, RunNumberKey: 1},
	}
	got := make([]map[string]any, len(variants))
	for i, v := range variants {
		got[i] = v.Params
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("variants mismatch (-want +got):\n%s", diff)
	}
}

func TestSweep_RunNumberParameterIgnored(t *testing.T) {
	s := Sweep{Runs: 3, Parameters: map[string][]any{RunNumberKey: {7, 8}}}
	variants := s.Variants()
	assert.Len(t, variants, 3)
	assert.Equal(t, 2, variants[2].Params[RunNumberKey])
}

func TestSweep_Validate(t *testing.T) {
	assert.NoError(t, Sweep{Runs: 1}.Validate())
	assert.Error(t, Sweep{Runs: -1}.Validate())
	assert.Error(t, Sweep{Parameters: map[string][]any{"a": {}}}.Validate())
}

func TestVariant_TagsIsCopy(t *testing.T) {
	v := Variant{Params: map[string]any{"a": 1}}
	tags := v.Tags()
	tags["a"] = 2
	assert.Equal(t, 1, v.Params["a"])
}
