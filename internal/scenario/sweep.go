package scenario

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/malcamp/internal/builder"
	"github.com/ppiankov/malcamp/internal/experiment"
)

const interventionPrefix = "interventions."

// BuildVariant builds the scenario with one sweep variant applied. A sweep
// parameter named interventions.<index>.<field> overrides that field of the
// indexed intervention step; any other name sets an engine parameter.
func (sc *Scenario) BuildVariant(v experiment.Variant) (*builder.ConfigBuilder, error) {
	variant := *sc
	variant.Interventions = append([]Step(nil), sc.Interventions...)

	params := make(map[string]any, len(v.Params))
	for name, value := range v.Params {
		if !strings.HasPrefix(name, interventionPrefix) {
			params[name] = value
			continue
		}
		index, field, err := parseOverride(name)
		if err != nil {
			return nil, err
		}
		if index >= len(variant.Interventions) {
			return nil, fmt.Errorf("%w: sweep parameter %q: no intervention %d", ErrInvalidScenario, name, index)
		}
		step, err := variant.Interventions[index].with(field, value)
		if err != nil {
			return nil, fmt.Errorf("sweep parameter %q: %w", name, err)
		}
		variant.Interventions[index] = step
	}

	cb, err := variant.Build()
	if err != nil {
		return nil, err
	}
	cb.UpdateParams(params)
	return cb, nil
}

// Variants expands the scenario's sweep.
func (sc *Scenario) Variants() []experiment.Variant {
	return sc.Sweep.Variants()
}

func parseOverride(name string) (int, string, error) {
	rest := strings.TrimPrefix(name, interventionPrefix)
	idx, field, ok := strings.Cut(rest, ".")
	if !ok || field == "" {
		return 0, "", fmt.Errorf("%w: sweep parameter %q needs interventions.<index>.<field>", ErrInvalidScenario, name)
	}
	index, err := strconv.Atoi(idx)
	if err != nil || index < 0 {
		return 0, "", fmt.Errorf("%w: sweep parameter %q has a bad index", ErrInvalidScenario, name)
	}
	if field == "type" {
		return 0, "", fmt.Errorf("%w: sweep parameter %q cannot change the step type", ErrInvalidScenario, name)
	}
	return index, field, nil
}

// with returns a copy of the step with key set to value. The original
// mapping node is left untouched.
func (s Step) with(key string, value any) (Step, error) {
	var valueNode yaml.Node
	if err := valueNode.Encode(value); err != nil {
		return Step{}, err
	}

	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if s.node != nil {
		copied := *s.node
		node = &copied
	}
	content := make([]*yaml.Node, 0, len(node.Content)+2)
	replaced := false
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if k.Value == key {
			v = &valueNode
			replaced = true
		}
		content = append(content, k, v)
	}
	if !replaced {
		content = append(content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, &valueNode)
	}
	node.Content = content
	return Step{Type: s.Type, node: node}, nil
}
