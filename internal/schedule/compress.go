package schedule

import (
	"fmt"
	"math"
	"sort"
)

// Default bin widths for values and start days.
const (
	ValueFidelity = 0.1
	DayFidelity   = 10
)

// RoundNearest rounds x to the nearest multiple of a, half to even, and
// trims the result to the decimal places of a.
func RoundNearest(x, a float64) float64 {
	v := math.RoundToEven(x/a) * a
	p := math.Pow(10, -math.Floor(math.Log10(a)))
	return math.RoundToEven(v*p) / p
}

// Group is a set of nodes sharing a binned start day and field values.
type Group struct {
	SimDay float64
	Values map[string]float64
	Nodes  []int
}

// Compress bins the start day and each field, then groups rows with equal
// bins. Groups are ordered by start day and then by field values, and each
// node list is sorted without duplicates.
func Compress(t Table, fields []string, valueFidelity, dayFidelity float64) ([]Group, error) {
	for _, f := range fields {
		if !t.HasColumn(f) {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, f)
		}
	}

	type key struct {
		day    float64
		values string
	}
	groups := make(map[key]*Group)
	var order []key

	for i, row := range t.Rows {
		g := Group{
			SimDay: RoundNearest(row.SimDay, dayFidelity),
			Values: make(map[string]float64, len(fields)),
		}
		sig := make([]float64, len(fields))
		for j, f := range fields {
			v, ok := row.Values[f]
			if !ok {
				return nil, fmt.Errorf("row %d: %s is not numeric", i+1, f)
			}
			g.Values[f] = RoundNearest(v, valueFidelity)
			sig[j] = g.Values[f]
		}

		k := key{day: g.SimDay, values: fmt.Sprint(sig)}
		existing, ok := groups[k]
		if !ok {
			existing = &g
			groups[k] = existing
			order = append(order, k)
		}
		existing.Nodes = append(existing.Nodes, row.Node)
	}

	out := make([]Group, 0, len(order))
	for _, k := range order {
		g := groups[k]
		g.Nodes = uniqueSorted(g.Nodes)
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SimDay != out[j].SimDay {
			return out[i].SimDay < out[j].SimDay
		}
		for _, f := range fields {
			if out[i].Values[f] != out[j].Values[f] {
				return out[i].Values[f] < out[j].Values[f]
			}
		}
		return false
	})
	return out, nil
}

func uniqueSorted(nodes []int) []int {
	sort.Ints(nodes)
	out := nodes[:0]
	for i, n := range nodes {
		if i == 0 || n != nodes[i-1] {
			out = append(out, n)
		}
	}
	return out
}
