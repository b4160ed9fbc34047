package campaign

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ppiankov/malcamp/internal/model"
	"gopkg.in/yaml.v3"
)

// Target demographics understood by the engine.
const (
	DemographicEveryone     = "Everyone"
	DemographicExplicitAges = "ExplicitAgeRanges"
)

// Target describes who seeks treatment after a trigger event.
type Target struct {
	Trigger  string   `yaml:"trigger" json:"trigger"`
	Coverage float64  `yaml:"coverage" json:"coverage"`
	AgeMin   *float64 `yaml:"agemin,omitempty" json:"agemin,omitempty"`
	AgeMax   *float64 `yaml:"agemax,omitempty" json:"agemax,omitempty"`
	Seek     float64  `yaml:"seek" json:"seek"`
	Rate     float64  `yaml:"rate" json:"rate"`
}

// DemographicCoverage is the fraction of triggered individuals treated.
func (t Target) DemographicCoverage() float64 {
	return t.Coverage * t.Seek
}

// Ages returns the age range when both bounds are set.
func (t Target) Ages() *AgeRange {
	if t.AgeMin == nil || t.AgeMax == nil {
		return nil
	}
	return &AgeRange{Min: *t.AgeMin, Max: *t.AgeMax}
}

// Validate checks coverage, seek, rate and age bounds.
func (t Target) Validate() error {
	if t.Trigger == "" {
		return fmt.Errorf("%w: missing trigger", ErrInvalidTarget)
	}
	if err := checkCoverage("coverage", t.Coverage); err != nil {
		return err
	}
	if err := checkCoverage("seek", t.Seek); err != nil {
		return err
	}
	if t.Rate < 0 {
		return fmt.Errorf("%w: rate %v is negative", ErrInvalidTarget, t.Rate)
	}
	for _, age := range []*float64{t.AgeMin, t.AgeMax} {
		if age != nil && *age < 0 {
			return fmt.Errorf("%w: age %v is negative", ErrInvalidTarget, *age)
		}
	}
	if ages := t.Ages(); ages != nil {
		return ages.Validate()
	}
	return nil
}

// AgeRange is an explicit [Min, Max] age band in years.
type AgeRange struct {
	Min float64 `yaml:"agemin" json:"agemin"`
	Max float64 `yaml:"agemax" json:"agemax"`
}

// Validate requires non-negative bounds with Min <= Max.
func (a AgeRange) Validate() error {
	if a.Min < 0 || a.Max < 0 {
		return fmt.Errorf("%w: age range [%v, %v] is negative", ErrInvalidTarget, a.Min, a.Max)
	}
	if a.Min > a.Max {
		return fmt.Errorf("%w: agemin %v > agemax %v", ErrInvalidTarget, a.Min, a.Max)
	}
	return nil
}

// TargetGroup is either a named demographic such as "Everyone" or an explicit
// age range. The zero value leaves the engine default in place.
type TargetGroup struct {
	Demographic string
	Ages        *AgeRange
}

// Everyone targets all ages.
var Everyone = TargetGroup{Demographic: DemographicEveryone}

// AgeGroup targets ages in [min, max].
func AgeGroup(min, max float64) TargetGroup {
	return TargetGroup{Ages: &AgeRange{Min: min, Max: max}}
}

// IsZero reports whether the group sets nothing.
func (g TargetGroup) IsZero() bool {
	return g.Demographic == "" && g.Ages == nil
}

// Validate checks the age range, if any.
func (g TargetGroup) Validate() error {
	if g.Ages != nil {
		return g.Ages.Validate()
	}
	return nil
}

func (g TargetGroup) apply(t *model.Targeting) {
	if g.Ages != nil {
		t.TargetDemographic = DemographicExplicitAges
		t.TargetAgeMin = model.Float(g.Ages.Min)
		t.TargetAgeMax = model.Float(g.Ages.Max)
		return
	}
	if g.Demographic != "" {
		t.TargetDemographic = g.Demographic
	}
}

// UnmarshalYAML accepts a demographic name or a mapping with agemin and agemax.
func (g *TargetGroup) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*g = TargetGroup{Demographic: node.Value}
		return nil
	case yaml.MappingNode:
		var raw struct {
			AgeMin *float64 `yaml:"agemin"`
			AgeMax *float64 `yaml:"agemax"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		if raw.AgeMin == nil || raw.AgeMax == nil {
			return fmt.Errorf("%w: target group needs both agemin and agemax (line %d)", ErrInvalidTarget, node.Line)
		}
		*g = AgeGroup(*raw.AgeMin, *raw.AgeMax)
		return nil
	}
	return fmt.Errorf("%w: target group at line %d", ErrInvalidTarget, node.Line)
}

// UnmarshalJSON accepts a demographic name or an object with agemin and agemax.
func (g *TargetGroup) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*g = TargetGroup{Demographic: name}
		return nil
	}
	var raw struct {
		AgeMin *float64 `json:"agemin"`
		AgeMax *float64 `json:"agemax"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if raw.AgeMin == nil || raw.AgeMax == nil {
		return fmt.Errorf("%w: target group needs both agemin and agemax", ErrInvalidTarget)
	}
	*g = AgeGroup(*raw.AgeMin, *raw.AgeMax)
	return nil
}

// ResolveTargeting builds the targeting fragment for a coordinator or listener.
//
// Explicit age keys are emitted only for an age-range group. When
// ineligibilityDays > 0 every individual restriction without a DrugStatus of
// its own also requires DrugStatus None, or that single restriction is used
// when none are given. The caller's restrictions are never modified.
func ResolveTargeting(coverage float64, group TargetGroup, r Restrictions, ineligibilityDays float64) model.Targeting {
	t := model.Targeting{
		DemographicCoverage:      model.Float(coverage),
		PropertyRestrictions:     IndividualRestrictions(r.Individual, ineligibilityDays),
		NodePropertyRestrictions: cloneRestrictions(r.Node),
	}
	group.apply(&t)
	return t
}

// IndividualRestrictions returns a copy of in, merged with DrugStatus None
// when ineligibilityDays > 0. A DrugStatus given by the caller is kept.
func IndividualRestrictions(in []model.PropertyRestriction, ineligibilityDays float64) []model.PropertyRestriction {
	return withDrugStatusNone(in, ineligibilityDays, false)
}

// EligibleOnly is IndividualRestrictions for drug campaigns: every
// restriction requires DrugStatus None, replacing any caller value.
func EligibleOnly(in []model.PropertyRestriction, ineligibilityDays float64) []model.PropertyRestriction {
	return withDrugStatusNone(in, ineligibilityDays, true)
}

func withDrugStatusNone(in []model.PropertyRestriction, ineligibilityDays float64, replace bool) []model.PropertyRestriction {
	out := cloneRestrictions(in)
	if ineligibilityDays <= 0 {
		return out
	}
	if len(out) == 0 {
		return []model.PropertyRestriction{{DrugStatusKey: DrugStatusNone}}
	}
	for _, r := range out {
		if _, ok := r[DrugStatusKey]; ok && !replace {
			continue
		}
		r[DrugStatusKey] = DrugStatusNone
	}
	return out
}
