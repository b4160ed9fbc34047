package campaign

import (
	"encoding/json"
	"testing"

	"github.com/ppiankov/malcamp/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestResolveTargetingAges(t *testing.T) {
	m := asMap(t, ResolveTargeting(0.5, AgeGroup(0, 5), Restrictions{}, 0))
	assert.Equal(t, "ExplicitAgeRanges", m["Target_Demographic"])
	assert.Equal(t, 0.0, m["Target_Age_Min"])
	assert.Equal(t, 5.0, m["Target_Age_Max"])

	m = asMap(t, ResolveTargeting(0.5, Everyone, Restrictions{}, 0))
	assert.Equal(t, "Everyone", m["Target_Demographic"])
	assert.NotContains(t, m, "Target_Age_Min")
	assert.NotContains(t, m, "Target_Age_Max")

	m = asMap(t, ResolveTargeting(0.5, TargetGroup{}, Restrictions{}, 0))
	assert.NotContains(t, m, "Target_Demographic")
	assert.NotContains(t, m, "Property_Restrictions_Within_Node")
}

func TestTargetAgesNeedBothBounds(t *testing.T) {
	assert.Nil(t, Target{AgeMin: model.Float(15)}.Ages())
	assert.Nil(t, Target{AgeMax: model.Float(15)}.Ages())
	assert.Equal(t, &AgeRange{Min: 1, Max: 2}, Target{AgeMin: model.Float(1), AgeMax: model.Float(2)}.Ages())
}

func TestResolveTargetingDrugStatus(t *testing.T) {
	in := []model.PropertyRestriction{{"Place": "Urban"}, {"Place": "Rural"}}
	got := ResolveTargeting(1, Everyone, Restrictions{Individual: in}, 14)

	assert.Equal(t, []model.PropertyRestriction{
		{"Place": "Urban", "DrugStatus": "None"},
		{"Place": "Rural", "DrugStatus": "None"},
	}, got.PropertyRestrictions)
	assert.Equal(t, []model.PropertyRestriction{{"Place": "Urban"}, {"Place": "Rural"}}, in, "input restrictions modified")

	got = ResolveTargeting(1, Everyone, Restrictions{}, 14)
	assert.Equal(t, []model.PropertyRestriction{{"DrugStatus": "None"}}, got.PropertyRestrictions)
}

func TestTargetGroupDecoding(t *testing.T) {
	var v struct {
		G TargetGroup `yaml:"g"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("g: Everyone\n"), &v))
	assert.Equal(t, Everyone, v.G)

	require.NoError(t, yaml.Unmarshal([]byte("g: {agemin: 3, agemax: 11}\n"), &v))
	assert.Equal(t, AgeGroup(3, 11), v.G)

	err := yaml.Unmarshal([]byte("g: {agemin: 3}\n"), &v)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	var g TargetGroup
	require.NoError(t, json.Unmarshal([]byte(`{"agemin": 0.5, "agemax": 5}`), &g))
	assert.Equal(t, AgeGroup(0.5, 5), g)
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"agemax": 5}`), &g), ErrInvalidTarget)
}

func TestTargetValidate(t *testing.T) {
	ok := Target{Trigger: EventNewClinicalCase, Coverage: 1, Seek: 0.5, Rate: 0.3}
	require.NoError(t, ok.Validate())

	for name, tgt := range map[string]Target{
		"no trigger":    {Coverage: 1, Seek: 1},
		"coverage > 1":  {Trigger: "x", Coverage: 1.2, Seek: 1},
		"negative seek": {Trigger: "x", Coverage: 1, Seek: -0.1},
		"negative rate": {Trigger: "x", Coverage: 1, Seek: 1, Rate: -1},
		"inverted ages": {Trigger: "x", Coverage: 1, Seek: 1, AgeMin: model.Float(10), AgeMax: model.Float(5)},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, tgt.Validate(), ErrInvalidTarget)
		})
	}
}

func TestIndividualRestrictionsKeepsCallerDrugStatus(t *testing.T) {
	in := []model.PropertyRestriction{{"DrugStatus": "RecentDrug", "Risk": "High"}, {"Risk": "Low"}}

	got := IndividualRestrictions(in, 14)
	assert.Equal(t, []model.PropertyRestriction{
		{"DrugStatus": "RecentDrug", "Risk": "High"},
		{"DrugStatus": "None", "Risk": "Low"},
	}, got)

	got = EligibleOnly(in, 14)
	assert.Equal(t, []model.PropertyRestriction{
		{"DrugStatus": "None", "Risk": "High"},
		{"DrugStatus": "None", "Risk": "Low"},
	}, got)

	assert.Equal(t, "RecentDrug", in[0]["DrugStatus"], "caller restrictions modified")
	assert.NotContains(t, in[1], "DrugStatus")
	assert.Equal(t, in, IndividualRestrictions(in, 0))
}
