package campaign

import (
	"fmt"

	"github.com/ppiankov/malcamp/internal/model"
)

// HealthSeeking configures treatment of individuals who seek care after a
// clinical or severe case.
type HealthSeeking struct {
	StartDay                    float64  `yaml:"start_day"`
	Targets                     []Target `yaml:"targets"`
	Drug                        DrugSpec `yaml:"drug"`
	Dosing                      string   `yaml:"dosing"`
	NodeIDs                     []int    `yaml:"nodes"`
	Restrictions                `yaml:",inline"`
	DisqualifyingProperties     []string `yaml:"disqualifying_properties"`
	DrugIneligibilityDays       float64  `yaml:"drug_ineligibility_duration"`
	Duration                    float64  `yaml:"duration"`
	Repetitions                 int      `yaml:"repetitions"`
	TimestepsBetweenRepetitions float64  `yaml:"tsteps_btwn_repetitions"`
	BroadcastEvent              string   `yaml:"broadcast_event_name"`
}

// DefaultTargets are adult clinical cases and severe cases.
func DefaultTargets() []Target {
	return []Target{
		{Trigger: EventNewClinicalCase, Coverage: 0.8, AgeMin: model.Float(15), AgeMax: model.Float(70), Seek: 0.4, Rate: 0.3},
		{Trigger: EventNewSevereCase, Coverage: 0.8, Seek: 0.6, Rate: 0.5},
	}
}

// DefaultHealthSeeking returns artemether-lumefantrine treatment of the
// default targets, listening indefinitely on every node.
func DefaultHealthSeeking() HealthSeeking {
	return HealthSeeking{
		Targets:                     DefaultTargets(),
		Drug:                        DrugList("Artemether", "Lumefantrine"),
		Dosing:                      "FullTreatmentNewDetectionTech",
		Duration:                    -1,
		Repetitions:                 1,
		TimestepsBetweenRepetitions: 365,
		BroadcastEvent:              EventReceivedTreatment,
	}
}

// Validate checks every target and the schedule.
func (h HealthSeeking) Validate() error {
	for i, t := range h.Targets {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("target %d: %w", i, err)
		}
	}
	if err := checkRepetitions(h.Repetitions); err != nil {
		return err
	}
	if err := checkNonNegative("timesteps between repetitions", h.TimestepsBetweenRepetitions); err != nil {
		return err
	}
	if err := checkNonNegative("drug ineligibility duration", h.DrugIneligibilityDays); err != nil {
		return err
	}
	return checkDuration("duration", h.Duration)
}

// AddHealthSeeking adds one listener event per target. The broadcast event is
// declared in Listed_Events.
func AddHealthSeeking(cb Builder, h HealthSeeking) error {
	events, err := healthSeekingEvents(h)
	if err != nil {
		return err
	}
	cb.ListEvent(h.BroadcastEvent)
	for _, e := range events {
		cb.AddEvent(e)
	}
	return nil
}

func healthSeekingEvents(h HealthSeeking) ([]model.CampaignEvent, error) {
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("health seeking: %w", err)
	}
	drugCfg, drugs, err := ResolveDrugs(h.Drug, h.Dosing, h.BroadcastEvent, h.DrugIneligibilityDays)
	if err != nil {
		return nil, fmt.Errorf("health seeking: %w", err)
	}

	nodes := model.NewNodeSet(h.NodeIDs)
	events := make([]model.CampaignEvent, 0, len(h.Targets))
	for _, t := range h.Targets {
		actual := WithDisqualifying(TreatmentConfig(t.Rate, drugCfg, drugs), h.DisqualifyingProperties)

		var group TargetGroup
		if ages := t.Ages(); ages != nil {
			group.Ages = ages
		}
		listener := model.NodeLevelHealthTriggeredIV{
			TriggerConditionList: []string{t.Trigger},
			Duration:             h.Duration,
			Targeting:            ResolveTargeting(t.DemographicCoverage(), group, h.Restrictions, h.DrugIneligibilityDays),
			Actual:               actual,
		}
		events = append(events, model.CampaignEvent{
			StartDay:      h.StartDay,
			NodesetConfig: nodes,
			EventCoordinatorConfig: model.StandardEventCoordinator{
				NumberRepetitions:           model.Int(h.Repetitions),
				TimestepsBetweenRepetitions: model.Float(h.TimestepsBetweenRepetitions),
				InterventionConfig:          listener,
			},
		})
	}
	return events, nil
}
