package campaign

import (
	"fmt"
	"strings"

	"github.com/ppiankov/malcamp/internal/model"
)

// CampaignType selects a drug campaign archetype.
type CampaignType string

const (
	// MDA gives drugs to everyone reached.
	MDA CampaignType = "MDA"
	// SMC is seasonal malaria chemoprevention, distributed like MDA.
	SMC CampaignType = "SMC"
	// MSAT tests everyone reached and treats positives.
	MSAT CampaignType = "MSAT"
	// MTAT is distributed like MSAT.
	MTAT CampaignType = "MTAT"
	// FMDA tests everyone reached and treats the households of positives.
	FMDA CampaignType = "fMDA"
	// RFMSAT tests and treats around passively detected cases.
	RFMSAT CampaignType = "rfMSAT"
	// RFMDA treats everyone around passively detected cases.
	RFMDA CampaignType = "rfMDA"
)

// Receipt events broadcast by campaign drugs.
const (
	EventReceivedCampaignDrugs = "Received_Campaign_Drugs"
	EventReceivedVehicle       = "Received_Vehicle"
	EventReceivedRCDDrugs      = "Received_RCD_Drugs"
)

// IsReactive reports whether the campaign responds to detected cases.
func (t CampaignType) IsReactive() bool {
	return strings.HasPrefix(string(t), "r")
}

// tests reports whether the campaign runs a diagnostic survey.
func (t CampaignType) tests() bool {
	switch t {
	case MSAT, MTAT, FMDA, RFMSAT:
		return true
	}
	return false
}

// Valid reports whether t is a known archetype.
func (t CampaignType) Valid() bool {
	switch t {
	case MDA, SMC, MSAT, MTAT, FMDA, RFMSAT, RFMDA:
		return true
	}
	return false
}

// Tags are simulation tags describing what a builder added.
type Tags map[string]any

// DrugCampaign configures a mass, focal or reactive drug campaign.
//
// With TriggerConditionList set, MDA, MSAT and fMDA start listening on the
// first start day instead of running on each start day. For reactive
// campaigns Interval is how long the response stays active and
// TreatmentDelay separates the index case from the response.
type DrugCampaign struct {
	Type                   CampaignType `yaml:"campaign_type"`
	DrugCode               string       `yaml:"drug_code"`
	StartDays              []float64    `yaml:"start_days"`
	Coverage               float64      `yaml:"coverage"`
	Repetitions            int          `yaml:"repetitions"`
	Interval               float64      `yaml:"interval"`
	DiagnosticType         string       `yaml:"diagnostic_type"`
	DiagnosticThreshold    float64      `yaml:"diagnostic_threshold"`
	FMDARadius             string       `yaml:"fmda_radius"`
	NodeSelectionType      string       `yaml:"node_selection_type"`
	TriggerCoverage        float64      `yaml:"trigger_coverage"`
	Snowballs              int          `yaml:"snowballs"`
	TreatmentDelay         float64      `yaml:"treatment_delay"`
	TriggeredCampaignDelay float64      `yaml:"triggered_campaign_delay"`
	NodeIDs                []int        `yaml:"nodes"`
	TargetGroup            TargetGroup  `yaml:"target_group"`
	Dosing                 string       `yaml:"dosing"`
	DrugIneligibilityDays  float64      `yaml:"drug_ineligibility_duration"`
	Restrictions           `yaml:",inline"`
	TriggerConditionList   []string             `yaml:"trigger_condition_list"`
	ListeningDuration      float64              `yaml:"listening_duration"`
	AdherentDrugConfigs    []model.Intervention `yaml:"-"`
	TargetResidentsOnly    int                  `yaml:"target_residents_only"`
}

// DefaultDrugCampaign returns three rounds sixty days apart on day 0 at full
// coverage, with household-level focal responses.
func DefaultDrugCampaign(t CampaignType, drugCode string) DrugCampaign {
	return DrugCampaign{
		Type:                t,
		DrugCode:            drugCode,
		StartDays:           []float64{0},
		Coverage:            1.0,
		Repetitions:         3,
		Interval:            60,
		DiagnosticType:      DiagnosticTrueParasiteDensity,
		DiagnosticThreshold: 40,
		FMDARadius:          "hh",
		NodeSelectionType:   NodeSelectionDistanceOnly,
		TriggerCoverage:     1.0,
		TargetGroup:         Everyone,
		ListeningDuration:   -1,
		TargetResidentsOnly: 1,
	}
}

// Validate checks type, coverage and schedule.
func (c DrugCampaign) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCampaignType, c.Type)
	}
	if len(c.StartDays) == 0 {
		return fmt.Errorf("%w: no start days", ErrInvalidSchedule)
	}
	if err := checkCoverage("coverage", c.Coverage); err != nil {
		return err
	}
	if err := checkCoverage("trigger coverage", c.TriggerCoverage); err != nil {
		return err
	}
	if err := checkRepetitions(c.Repetitions); err != nil {
		return err
	}
	if c.Type == FMDA || len(c.TriggerConditionList) > 0 {
		if c.Repetitions < 1 {
			return fmt.Errorf("%w: %s needs at least one repetition", ErrInvalidSchedule, c.Type)
		}
	}
	if c.Snowballs < 0 {
		return fmt.Errorf("%w: snowballs %d is negative", ErrInvalidSchedule, c.Snowballs)
	}
	for name, v := range map[string]float64{
		"interval":                    c.Interval,
		"treatment delay":             c.TreatmentDelay,
		"triggered campaign delay":    c.TriggeredCampaignDelay,
		"drug ineligibility duration": c.DrugIneligibilityDays,
	} {
		if err := checkNonNegative(name, v); err != nil {
			return err
		}
	}
	if err := checkDuration("listening duration", c.ListeningDuration); err != nil {
		return err
	}
	if c.Type.tests() && c.DiagnosticType == "" {
		return fmt.Errorf("%w: %s needs a diagnostic type", ErrInvalidTarget, c.Type)
	}
	return c.TargetGroup.Validate()
}

// drugPlan holds the pieces every archetype distributes.
type drugPlan struct {
	drugs     []model.Intervention
	receiving model.BroadcastEvent
	expire    *model.PropertyValueChanger
}

// interventions returns drugs, the receipt broadcast and the expiry marker.
func (p drugPlan) interventions() []model.Intervention {
	out := make([]model.Intervention, 0, len(p.drugs)+2)
	out = append(out, p.drugs...)
	out = append(out, p.receiving)
	if p.expire != nil {
		out = append(out, *p.expire)
	}
	return out
}

// individualRestrictions merges DrugStatus None into restrictions when the
// expiry marker is in use.
func (p drugPlan) individualRestrictions(in []model.PropertyRestriction) []model.PropertyRestriction {
	if p.expire == nil {
		return cloneRestrictions(in)
	}
	return EligibleOnly(in, p.expire.Revert)
}

// positiveRestrictions restricts treatment of positives to eligible individuals.
func (p drugPlan) positiveRestrictions() []model.PropertyRestriction {
	if p.expire == nil {
		return nil
	}
	return []model.PropertyRestriction{{DrugStatusKey: DrugStatusNone}}
}

// AddDrugCampaign adds the events of the campaign archetype and returns tags
// describing it. An unknown type is an error and adds nothing.
func AddDrugCampaign(cb Builder, c DrugCampaign) (Tags, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("drug campaign: %w", err)
	}

	plan := drugPlan{receiving: model.BroadcastEvent{Event: EventReceivedCampaignDrugs}}
	if c.DrugIneligibilityDays > 0 {
		expire := ExpireRecentDrugs(c.DrugIneligibilityDays)
		plan.expire = &expire
	}
	if c.DrugCode != "" {
		drugs, err := DrugConfigsFromCode(c.DrugCode, c.Dosing)
		if err != nil {
			return nil, fmt.Errorf("drug campaign: %w", err)
		}
		plan.drugs = drugs
		if c.Dosing != "" && strings.Contains(c.DrugCode, "Vehicle") {
			plan.receiving.Event = EventReceivedVehicle
		}
	}
	plan.drugs = append(plan.drugs, c.AdherentDrugConfigs...)
	if c.Type.IsReactive() {
		plan.receiving.Event = EventReceivedRCDDrugs
	}

	err := Staged(cb, func(cb Builder) error {
		cb.ListEvent(plan.receiving.Event)
		switch c.Type {
		case MDA, SMC:
			addMDA(cb, c, plan)
		case MSAT, MTAT:
			return addMSAT(cb, c, plan)
		case FMDA:
			return addFMDA(cb, c, plan)
		case RFMSAT:
			return addRFMSAT(cb, c, plan)
		case RFMDA:
			addRFMDA(cb, c, plan)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return Tags{
		"drug_campaign.type":             string(c.Type),
		"drug_campaign.drugs":            c.DrugCode,
		"drug_campaign.trigger_coverage": c.TriggerCoverage,
		"drug_campaign.coverage":         c.Coverage,
	}, nil
}

// targetGroupOrEveryone returns Everyone for an unset group.
func targetGroupOrEveryone(g TargetGroup) TargetGroup {
	if g.IsZero() {
		return Everyone
	}
	return g
}

// survey returns the diagnostic survey settings shared by test-based archetypes.
func (c DrugCampaign) survey(coverage float64, ind []model.PropertyRestriction) DiagnosticSurvey {
	s := DefaultDiagnosticSurvey()
	s.Coverage = coverage
	s.Repetitions = c.Repetitions
	s.TimestepsBetweenRepetitions = c.Interval
	s.Target = targetGroupOrEveryone(c.TargetGroup)
	s.DiagnosticType = c.DiagnosticType
	s.DiagnosticThreshold = c.DiagnosticThreshold
	s.NodeIDs = c.NodeIDs
	s.Restrictions = Restrictions{Node: c.Node, Individual: ind}
	s.ListeningDuration = c.ListeningDuration
	return s
}
