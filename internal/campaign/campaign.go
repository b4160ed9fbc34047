// Package campaign builds malaria intervention campaign events: treatment
// seeking, drug campaigns and diagnostic surveys.
//
// Every builder validates its input first and stages multi-event builds with
// Staged, so a rejected call leaves the campaign unchanged.
package campaign

import (
	"errors"
	"fmt"

	"github.com/ppiankov/malcamp/internal/model"
)

// Builder receives campaign events and declares custom broadcast events.
type Builder interface {
	AddEvent(event model.CampaignEvent)
	ListEvent(name string)
	EventCount() int
}

var (
	// ErrInvalidDrug is returned for a drug specification that is neither a
	// single name nor a list of names.
	ErrInvalidDrug = errors.New("invalid drug input")
	// ErrInvalidTarget is returned when coverage, age or seek values are out of range.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrInvalidSchedule is returned for negative intervals or missing start days.
	ErrInvalidSchedule = errors.New("invalid schedule")
	// ErrUnknownCampaignType is returned by AddDrugCampaign for an unrecognised type.
	ErrUnknownCampaignType = errors.New("unknown campaign type")
	// ErrUnknownDrugCode is returned for a drug code missing from the regimen table.
	ErrUnknownDrugCode = errors.New("unknown drug code")
)

// Engine event names used across builders.
const (
	EventReceivedTreatment = "Received_Treatment"
	EventReceivedTest      = "Received_Test"
	EventTestedPositive    = "TestedPositive"
	EventTestedNegative    = "TestedNegative"
	EventCHWGiveDrugs      = "CHW_Give_Drugs"
	EventNewClinicalCase   = "NewClinicalCase"
	EventNewSevereCase     = "NewSevereCase"
)

// staging holds the events and names a build adds until it is committed.
type staging struct {
	base   Builder
	events []model.CampaignEvent
	listed []string
}

func (s *staging) AddEvent(e model.CampaignEvent) { s.events = append(s.events, e) }
func (s *staging) ListEvent(name string)          { s.listed = append(s.listed, name) }
func (s *staging) EventCount() int                { return s.base.EventCount() + len(s.events) }

// Staged runs add against a staging Builder and hands what it added to cb
// only when add succeeds. Event counts seen by add include the events of cb,
// so generated names match an unstaged build.
func Staged(cb Builder, add func(Builder) error) error {
	s := &staging{base: cb}
	if err := add(s); err != nil {
		return err
	}
	for _, name := range s.listed {
		cb.ListEvent(name)
	}
	for _, e := range s.events {
		cb.AddEvent(e)
	}
	return nil
}

// Restrictions scopes an intervention by node and individual properties.
type Restrictions struct {
	Node       []model.PropertyRestriction `yaml:"node_property_restrictions" json:"node_property_restrictions,omitempty"`
	Individual []model.PropertyRestriction `yaml:"ind_property_restrictions" json:"ind_property_restrictions,omitempty"`
}

func checkCoverage(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%w: %s %v outside [0,1]", ErrInvalidTarget, name, v)
	}
	return nil
}

func checkRepetitions(n int) error {
	if n < -1 {
		return fmt.Errorf("%w: repetitions %d (use -1 for unlimited)", ErrInvalidSchedule, n)
	}
	return nil
}

func checkNonNegative(name string, v float64) error {
	if v < 0 {
		return fmt.Errorf("%w: %s %v is negative", ErrInvalidSchedule, name, v)
	}
	return nil
}

func checkDuration(name string, v float64) error {
	if v < 0 && v != -1 {
		return fmt.Errorf("%w: %s %v (use -1 for indefinitely)", ErrInvalidSchedule, name, v)
	}
	return nil
}

func cloneRestrictions(in []model.PropertyRestriction) []model.PropertyRestriction {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.PropertyRestriction, len(in))
	for i, r := range in {
		c := make(model.PropertyRestriction, len(r))
		for k, v := range r {
			c[k] = v
		}
		out[i] = c
	}
	return out
}
