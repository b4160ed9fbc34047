package campaign

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/ppiankov/malcamp/internal/model"
)

// NodeCoverage is the adult treatment-seeking probability shared by a set of nodes.
type NodeCoverage struct {
	Coverage float64 `json:"coverage" yaml:"coverage"`
	Nodes    []int   `json:"nodes" yaml:"nodes"`
}

// CoverageTable is a node coverage file: {"hscov": [{"coverage": .., "nodes": [..]}]}.
type CoverageTable struct {
	Entries []NodeCoverage `json:"hscov" yaml:"hscov"`
}

// Validate requires coverages in [0,1] and at least one node per entry.
func (t CoverageTable) Validate() error {
	for i, e := range t.Entries {
		if err := checkCoverage("coverage", e.Coverage); err != nil {
			return fmt.Errorf("hscov entry %d: %w", i, err)
		}
		if len(e.Nodes) == 0 {
			return fmt.Errorf("hscov entry %d: %w: no nodes", i, ErrInvalidTarget)
		}
	}
	return nil
}

// ParseNodeCoverage decodes and validates a coverage table.
func ParseNodeCoverage(data []byte) (CoverageTable, error) {
	var t CoverageTable
	if err := json.Unmarshal(data, &t); err != nil {
		return CoverageTable{}, fmt.Errorf("parse node coverage: %w", err)
	}
	if err := t.Validate(); err != nil {
		return CoverageTable{}, fmt.Errorf("parse node coverage: %w", err)
	}
	return t, nil
}

// LoadNodeCoverage reads a coverage table from path.
func LoadNodeCoverage(path string) (CoverageTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CoverageTable{}, fmt.Errorf("load node coverage: %w", err)
	}
	return ParseNodeCoverage(data)
}

// childSeek is the under-15 seek probability for an adult coverage.
func childSeek(adult float64) float64 {
	return math.Min(1, adult*1.5)
}

func nodeCoverageTargets(adult, child, severe float64) []Target {
	return []Target{
		{Trigger: EventNewClinicalCase, Coverage: 1, AgeMin: model.Float(15), AgeMax: model.Float(200), Seek: adult, Rate: 0.3},
		{Trigger: EventNewClinicalCase, Coverage: 1, AgeMin: model.Float(0), AgeMax: model.Float(15), Seek: child, Rate: 0.3},
		{Trigger: EventNewSevereCase, Coverage: 1, Seek: severe, Rate: 0.5},
	}
}

// AddHealthSeekingByNodeCoverage adds health seeking per table entry. Children
// seek at 1.5 times the adult coverage, capped at 1, and severe cases at 0.8.
func AddHealthSeekingByNodeCoverage(cb Builder, table CoverageTable, start float64) error {
	if err := table.Validate(); err != nil {
		return fmt.Errorf("node coverage: %w", err)
	}
	return Staged(cb, func(cb Builder) error {
		for _, e := range table.Entries {
			h := DefaultHealthSeeking()
			h.StartDay = start
			h.NodeIDs = e.Nodes
			h.Targets = nodeCoverageTargets(e.Coverage, childSeek(e.Coverage), 0.8)
			if err := AddHealthSeeking(cb, h); err != nil {
				return fmt.Errorf("node coverage: %w", err)
			}
		}
		return nil
	})
}

// SeasonalHealthSeeking scales node coverage month by month. Month m starts
// after the first m+1 entries of DaysInMonth and lasts DaysInMonth[m+1] days,
// so DaysInMonth needs one more entry than ScaleByMonth.
type SeasonalHealthSeeking struct {
	StartDay     float64   `yaml:"start_day"`
	DaysInMonth  []float64 `yaml:"days_in_month"`
	ScaleByMonth []float64 `yaml:"scale_by_month"`
}

// Validate checks the month table lengths and values.
func (s SeasonalHealthSeeking) Validate() error {
	if len(s.DaysInMonth) < len(s.ScaleByMonth)+1 {
		return fmt.Errorf("%w: %d month lengths for %d scales", ErrInvalidSchedule, len(s.DaysInMonth), len(s.ScaleByMonth))
	}
	for _, d := range s.DaysInMonth {
		if err := checkNonNegative("days in month", d); err != nil {
			return err
		}
	}
	for _, v := range s.ScaleByMonth {
		if v < 0 {
			return fmt.Errorf("%w: scale %v is negative", ErrInvalidTarget, v)
		}
	}
	return nil
}

// AddSeasonalHealthSeeking adds one health-seeking block per node entry and
// month, repeating yearly and excluding individuals treated in the last 14 days.
func AddSeasonalHealthSeeking(cb Builder, table CoverageTable, s SeasonalHealthSeeking) error {
	if err := table.Validate(); err != nil {
		return fmt.Errorf("seasonal node coverage: %w", err)
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("seasonal node coverage: %w", err)
	}

	return Staged(cb, func(cb Builder) error {
		for _, e := range table.Entries {
			kid := childSeek(e.Coverage)
			offset := 0.0
			for m, scale := range s.ScaleByMonth {
				offset += s.DaysInMonth[m]
				h := DefaultHealthSeeking()
				h.StartDay = s.StartDay + offset
				h.Duration = s.DaysInMonth[m+1]
				h.Repetitions = -1
				h.DrugIneligibilityDays = 14
				h.NodeIDs = e.Nodes
				h.Targets = nodeCoverageTargets(
					math.Min(1, e.Coverage*scale),
					math.Min(1, kid*scale),
					math.Min(1, math.Max(0.8*scale, kid*scale)),
				)
				if err := AddHealthSeeking(cb, h); err != nil {
					return fmt.Errorf("seasonal node coverage: %w", err)
				}
			}
		}
		return nil
	})
}
