package schedule

import (
	"fmt"
	"time"

	"github.com/ppiankov/malcamp/internal/campaign"
	"github.com/ppiankov/malcamp/internal/model"
)

// Kind names a table layout and the campaign built from it.
//
// Only drug and treatment tables are supported. Bednet and spraying tables
// belong to the engine's vector control builders.
type Kind string

const (
	// KindHealthSeeking tables give per-age clinical and severe coverage.
	KindHealthSeeking Kind = "hs"
	// KindMDA tables give mass drug administration coverage.
	KindMDA Kind = "mda"
	// KindRCD tables give reactive case detection coverage and duration.
	KindRCD Kind = "rcd"
)

// Fields binned and grouped for each kind.
var (
	HealthSeekingFields = []string{"cov_newclin_youth", "cov_newclin_adult", "cov_severe_youth", "cov_severe_adult", "duration"}
	MDAFields           = []string{"cov_all"}
	RCDFields           = []string{"coverage", "trigger_coverage", "interval"}
)

// Apply loads the table at path and adds the campaigns of its kind. Tags
// returned by drug campaigns are merged into the result. A table that fails
// part way adds nothing.
func Apply(cb campaign.Builder, kind Kind, path string, start time.Time) (campaign.Tags, error) {
	t, err := LoadTable(path, start)
	if err != nil {
		return nil, err
	}

	var tags campaign.Tags
	err = campaign.Staged(cb, func(cb campaign.Builder) error {
		var err error
		switch kind {
		case KindHealthSeeking:
			err = ApplyHealthSeeking(cb, t)
		case KindMDA:
			tags, err = ApplyMDA(cb, t)
		case KindRCD:
			tags, err = ApplyRCD(cb, t)
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownKind, kind)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// ApplyHealthSeeking adds artemether-lumefantrine health seeking per group,
// with under-5 and 5-100 targets for clinical and severe cases.
func ApplyHealthSeeking(cb campaign.Builder, t Table) error {
	groups, err := Compress(t, HealthSeekingFields, ValueFidelity, DayFidelity)
	if err != nil {
		return fmt.Errorf("health seeking table: %w", err)
	}
	for _, g := range groups {
		h := campaign.DefaultHealthSeeking()
		h.StartDay = g.SimDay
		h.NodeIDs = g.Nodes
		h.Duration = g.Values["duration"]
		h.Targets = []campaign.Target{
			ageTarget(campaign.EventNewClinicalCase, g.Values["cov_newclin_youth"], 0, 5, 0.3),
			ageTarget(campaign.EventNewClinicalCase, g.Values["cov_newclin_adult"], 5, 100, 0.3),
			ageTarget(campaign.EventNewSevereCase, g.Values["cov_severe_youth"], 0, 5, 0.5),
			ageTarget(campaign.EventNewSevereCase, g.Values["cov_severe_adult"], 5, 100, 0.5),
		}
		if err := campaign.AddHealthSeeking(cb, h); err != nil {
			return fmt.Errorf("health seeking table day %v: %w", g.SimDay, err)
		}
	}
	return nil
}

func ageTarget(trigger string, coverage, ageMin, ageMax, rate float64) campaign.Target {
	return campaign.Target{
		Trigger:  trigger,
		Coverage: coverage,
		AgeMin:   model.Float(ageMin),
		AgeMax:   model.Float(ageMax),
		Seek:     1,
		Rate:     rate,
	}
}

// ApplyMDA adds a single-round DP campaign per group.
func ApplyMDA(cb campaign.Builder, t Table) (campaign.Tags, error) {
	groups, err := Compress(t, MDAFields, ValueFidelity, DayFidelity)
	if err != nil {
		return nil, fmt.Errorf("mda table: %w", err)
	}
	tags := campaign.Tags{}
	for _, g := range groups {
		c := campaign.DefaultDrugCampaign(campaign.MDA, "DP")
		c.StartDays = []float64{g.SimDay}
		c.Coverage = g.Values["cov_all"]
		c.Repetitions = 1
		c.Interval = 60
		c.NodeIDs = g.Nodes
		got, err := campaign.AddDrugCampaign(cb, c)
		if err != nil {
			return nil, fmt.Errorf("mda table day %v: %w", g.SimDay, err)
		}
		mergeTags(tags, got)
	}
	return tags, nil
}

// ApplyRCD adds a reactive MSAT response with AL per group, testing by
// blood smear.
func ApplyRCD(cb campaign.Builder, t Table) (campaign.Tags, error) {
	groups, err := Compress(t, RCDFields, ValueFidelity, DayFidelity)
	if err != nil {
		return nil, fmt.Errorf("rcd table: %w", err)
	}
	tags := campaign.Tags{}
	for _, g := range groups {
		c := campaign.DefaultDrugCampaign(campaign.RFMSAT, "AL")
		c.DiagnosticType = campaign.DiagnosticBloodSmear
		c.DiagnosticThreshold = 0
		c.StartDays = []float64{g.SimDay}
		c.Coverage = g.Values["coverage"]
		c.TriggerCoverage = g.Values["trigger_coverage"]
		c.Interval = g.Values["interval"]
		c.NodeIDs = g.Nodes
		got, err := campaign.AddDrugCampaign(cb, c)
		if err != nil {
			return nil, fmt.Errorf("rcd table day %v: %w", g.SimDay, err)
		}
		mergeTags(tags, got)
	}
	return tags, nil
}

func mergeTags(dst, src campaign.Tags) {
	for k, v := range src {
		dst[k] = v
	}
}
