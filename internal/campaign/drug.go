package campaign

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/malcamp/internal/model"
	"gopkg.in/yaml.v3"
)

// DrugStatus property used to keep recently treated individuals out of campaigns.
const (
	DrugStatusKey        = "DrugStatus"
	DrugStatusNone       = "None"
	DrugStatusRecentDrug = "RecentDrug"
)

// DrugSpec names the drugs to distribute: either one drug, given alone, or a
// list of drugs bundled with bookkeeping interventions. The zero value is not
// a valid spec.
type DrugSpec struct {
	names []string
	list  bool
	set   bool
}

// SingleDrug specifies one drug distributed on its own.
func SingleDrug(name string) DrugSpec {
	return DrugSpec{names: []string{name}, set: true}
}

// DrugList specifies a bundle of drugs. An empty list is valid and yields only
// the bookkeeping interventions.
func DrugList(names ...string) DrugSpec {
	return DrugSpec{names: append([]string{}, names...), list: true, set: true}
}

// Names returns the drug names.
func (s DrugSpec) Names() []string {
	return append([]string(nil), s.names...)
}

// IsList reports whether the spec is a drug list.
func (s DrugSpec) IsList() bool {
	return s.list
}

func (s DrugSpec) String() string {
	if !s.set {
		return "<unset>"
	}
	if !s.list {
		return s.names[0]
	}
	return "[" + strings.Join(s.names, ",") + "]"
}

// UnmarshalYAML accepts a scalar drug name or a sequence of names.
func (s *DrugSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = SingleDrug(node.Value)
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDrug, err)
		}
		*s = DrugList(names...)
		return nil
	}
	return fmt.Errorf("%w: line %d", ErrInvalidDrug, node.Line)
}

// MarshalYAML writes the spec back in the form it was given.
func (s DrugSpec) MarshalYAML() (any, error) {
	if !s.set {
		return nil, nil
	}
	if !s.list {
		return s.names[0], nil
	}
	return s.names, nil
}

// UnmarshalJSON accepts a string or an array of strings.
func (s *DrugSpec) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ErrInvalidDrug
	}
	switch data[0] {
	case '"':
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDrug, err)
		}
		*s = SingleDrug(name)
		return nil
	case '[':
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDrug, err)
		}
		*s = DrugList(names...)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidDrug, data)
}

// MarshalJSON writes the spec back in the form it was given.
func (s DrugSpec) MarshalJSON() ([]byte, error) {
	v, _ := s.MarshalYAML()
	return json.Marshal(v)
}

// ResolveDrugs turns a drug spec into the intervention handed to a patient and
// the flat list a delayed wrapper distributes.
//
// A single drug resolves to one AntimalarialDrug and the one-element list
// holding it. A list resolves to a MultiInterventionDistributor of the drugs,
// a broadcast of broadcastEvent and, when ineligibilityDays > 0, a marker
// that flags the recipient as recently treated for that many days.
func ResolveDrugs(spec DrugSpec, dosing, broadcastEvent string, ineligibilityDays float64) (model.Intervention, []model.Intervention, error) {
	if !spec.set {
		return nil, nil, ErrInvalidDrug
	}
	for _, name := range spec.names {
		if strings.TrimSpace(name) == "" {
			return nil, nil, fmt.Errorf("%w: empty drug name", ErrInvalidDrug)
		}
	}

	if !spec.list {
		drug := newDrug(spec.names[0], dosing)
		return drug, []model.Intervention{drug}, nil
	}

	drugs := make([]model.Intervention, 0, len(spec.names)+2)
	for _, name := range spec.names {
		drugs = append(drugs, newDrug(name, dosing))
	}
	drugs = append(drugs, model.BroadcastEvent{Event: broadcastEvent})
	if ineligibilityDays > 0 {
		drugs = append(drugs, ExpireRecentDrugs(ineligibilityDays))
	}
	return model.MultiInterventionDistributor{InterventionList: drugs}, drugs, nil
}

// ExpireRecentDrugs marks the recipient RecentDrug and reverts the mark after days.
func ExpireRecentDrugs(days float64) model.PropertyValueChanger {
	return model.PropertyValueChanger{
		TargetPropertyKey:   DrugStatusKey,
		TargetPropertyValue: DrugStatusRecentDrug,
		DailyProbability:    1.0,
		MaximumDuration:     0,
		Revert:              days,
	}
}

func newDrug(name, dosing string) model.AntimalarialDrug {
	return model.AntimalarialDrug{
		CostToConsumer: 1,
		DrugType:       name,
		DosingType:     dosing,
	}
}
