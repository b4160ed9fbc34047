// Package scenario loads YAML scenario files describing a simulation's
// parameters, interventions, reports and parameter sweep.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/malcamp/internal/builder"
	"github.com/ppiankov/malcamp/internal/experiment"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownStep is returned for an intervention or report of unknown type.
	ErrUnknownStep = errors.New("unknown step type")
	// ErrInvalidScenario is returned for a scenario missing required settings.
	ErrInvalidScenario = errors.New("invalid scenario")
)

// Scenario is a parsed scenario file.
type Scenario struct {
	Name           string           `yaml:"name"`
	SimulationType string           `yaml:"simulation_type"`
	StartDate      string           `yaml:"start_date,omitempty"`
	Parameters     map[string]any   `yaml:"parameters,omitempty"`
	ListedEvents   []string         `yaml:"listed_events,omitempty"`
	Interventions  []Step           `yaml:"interventions"`
	Reports        []Step           `yaml:"reports,omitempty"`
	Sweep          experiment.Sweep `yaml:"sweep,omitempty"`

	// dir resolves relative file references.
	dir string
}

// Step is one typed entry of the interventions or reports list. Its
// remaining keys are decoded onto the defaults of that type.
type Step struct {
	Type string
	node *yaml.Node
}

// UnmarshalYAML keeps the mapping for later decoding.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: step at line %d is not a mapping", ErrInvalidScenario, node.Line)
	}
	var head struct {
		Type string `yaml:"type"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}
	if head.Type == "" {
		return fmt.Errorf("%w: step at line %d has no type", ErrInvalidScenario, node.Line)
	}
	s.Type = head.Type
	s.node = node
	return nil
}

// MarshalYAML writes the step back unchanged.
func (s Step) MarshalYAML() (any, error) {
	if s.node == nil {
		return map[string]string{"type": s.Type}, nil
	}
	return s.node, nil
}

// decode overlays the step's keys onto v.
func (s Step) decode(v any) error {
	if s.node == nil {
		return nil
	}
	if err := s.node.Decode(v); err != nil {
		return fmt.Errorf("%s at line %d: %w", s.Type, s.node.Line, err)
	}
	return nil
}

// Parse decodes a scenario. Relative file references resolve against dir.
func Parse(data []byte, dir string) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if sc.SimulationType == "" {
		sc.SimulationType = "MALARIA_SIM"
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalidScenario)
	}
	if _, err := sc.start(); err != nil {
		return nil, err
	}
	if err := sc.Sweep.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	sc.dir = dir
	return &sc, nil
}

// Load reads and parses the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Build returns a builder holding the scenario's parameters, campaign and reports.
func (sc *Scenario) Build() (*builder.ConfigBuilder, error) {
	cb := builder.New(sc.SimulationType)
	cb.SetCampaignName(sc.Name)
	cb.UpdateParams(sc.Parameters)
	for _, name := range sc.ListedEvents {
		cb.ListEvent(name)
	}
	cb.SetTag("scenario", sc.Name)
	if err := sc.Apply(cb); err != nil {
		return nil, err
	}
	return cb, nil
}

// Apply adds every intervention and report of the scenario to cb. Tags
// returned by intervention builders are recorded on cb.
func (sc *Scenario) Apply(cb *builder.ConfigBuilder) error {
	for i, step := range sc.Interventions {
		if err := sc.applyIntervention(cb, step); err != nil {
			return fmt.Errorf("intervention %d: %w", i, err)
		}
	}
	for i, step := range sc.Reports {
		if err := sc.applyReport(cb, step); err != nil {
			return fmt.Errorf("report %d: %w", i, err)
		}
	}
	return nil
}

func (sc *Scenario) path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(sc.dir, name)
}

func (sc *Scenario) start() (time.Time, error) {
	if sc.StartDate == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", sc.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: start_date: %v", ErrInvalidScenario, err)
	}
	return t, nil
}
