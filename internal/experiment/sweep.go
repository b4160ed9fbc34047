// Package experiment expands parameter sweeps into simulations, submits them
// to the execution service and follows them to completion.
package experiment

import (
	"fmt"
	"sort"
)

// RunNumberKey is the engine parameter seeding each run, also used as a tag.
const RunNumberKey = "Run_Number"

// Sweep is a Cartesian product of parameter values repeated over runs.
type Sweep struct {
	Runs       int              `yaml:"runs,omitempty"`
	Parameters map[string][]any `yaml:"parameters,omitempty"`
}

// Variant is one point of a sweep.
type Variant struct {
	// Params maps sweep parameter names to values, Run_Number included.
	Params map[string]any
}

// Tags returns the variant's values as simulation tags.
func (v Variant) Tags() map[string]any {
	out := make(map[string]any, len(v.Params))
	for k, val := range v.Params {
		out[k] = val
	}
	return out
}

// Validate rejects negative runs and parameters without values.
func (s Sweep) Validate() error {
	if s.Runs < 0 {
		return fmt.Errorf("sweep: runs %d is negative", s.Runs)
	}
	for name, values := range s.Parameters {
		if len(values) == 0 {
			return fmt.Errorf("sweep: parameter %q has no values", name)
		}
	}
	return nil
}

// Size is the number of variants the sweep expands to.
func (s Sweep) Size() int {
	n := s.runs()
	for name, values := range s.Parameters {
		if name != RunNumberKey {
			n *= len(values)
		}
	}
	return n
}

func (s Sweep) runs() int {
	if s.Runs <= 0 {
		return 1
	}
	return s.Runs
}

// Variants expands the sweep. Parameter names are iterated in sorted order
// with the last name varying fastest, and runs vary fastest of all. A zero
// sweep yields a single run.
func (s Sweep) Variants() []Variant {
	names := make([]string, 0, len(s.Parameters))
	for name := range s.Parameters {
		if name == RunNumberKey {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	combos := []map[string]any{{}}
	for _, name := range names {
		next := make([]map[string]any, 0, len(combos)*len(s.Parameters[name]))
		for _, combo := range combos {
			for _, value := range s.Parameters[name] {
				c := make(map[string]any, len(combo)+1)
				for k, v := range combo {
					c[k] = v
				}
				c[name] = value
				next = append(next, c)
			}
		}
		combos = next
	}

	variants := make([]Variant, 0, len(combos)*s.runs())
	for _, combo := range combos {
		for run := 0; run < s.runs(); run++ {
			params := make(map[string]any, len(combo)+1)
			for k, v := range combo {
				params[k] = v
			}
			params[RunNumberKey] = run
			variants = append(variants, Variant{Params: params})
		}
	}
	return variants
}
