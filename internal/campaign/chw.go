package campaign

import (
	"fmt"

	"github.com/ppiankov/malcamp/internal/model"
)

// CHWHealthSeeking routes care seekers to a community health worker who
// treats them from a limited stock.
type CHWHealthSeeking struct {
	StartDay              float64  `yaml:"start_day"`
	Targets               []Target `yaml:"targets"`
	Drug                  DrugSpec `yaml:"drug"`
	Dosing                string   `yaml:"dosing"`
	NodeIDs               []int    `yaml:"nodes"`
	Restrictions          `yaml:",inline"`
	DrugIneligibilityDays float64                   `yaml:"drug_ineligibility_duration"`
	Duration              float64                   `yaml:"duration"`
	Coordinator           model.CHWEventCoordinator `yaml:"chw"`
}

// DefaultCHWHealthSeeking uses the default targets and stock settings.
func DefaultCHWHealthSeeking() CHWHealthSeeking {
	hs := DefaultHealthSeeking()
	return CHWHealthSeeking{
		Targets:     hs.Targets,
		Drug:        hs.Drug,
		Dosing:      hs.Dosing,
		Duration:    100000,
		Coordinator: model.DefaultCHWCoordinator(),
	}
}

// AddHealthSeekingByCHW adds a listener per target that broadcasts
// CHW_Give_Drugs, and the health worker event that answers the broadcast with
// treatment. A coordinator Duration of zero takes the listening duration.
func AddHealthSeekingByCHW(cb Builder, h CHWHealthSeeking) error {
	if err := checkNonNegative("drug ineligibility duration", h.DrugIneligibilityDays); err != nil {
		return fmt.Errorf("chw health seeking: %w", err)
	}
	if err := checkCoverage("chw demographic coverage", h.Coordinator.DemographicCoverage); err != nil {
		return fmt.Errorf("chw health seeking: %w", err)
	}

	listener := HealthSeeking{
		StartDay:                    h.StartDay,
		Targets:                     h.Targets,
		Drug:                        DrugList(),
		Dosing:                      h.Dosing,
		NodeIDs:                     h.NodeIDs,
		Restrictions:                h.Restrictions,
		Duration:                    h.Duration,
		Repetitions:                 1,
		TimestepsBetweenRepetitions: 365,
		BroadcastEvent:              EventCHWGiveDrugs,
	}
	listeners, err := healthSeekingEvents(listener)
	if err != nil {
		return fmt.Errorf("chw %w", err)
	}

	drugCfg, drugs, err := ResolveDrugs(h.Drug, h.Dosing, EventReceivedTreatment, h.DrugIneligibilityDays)
	if err != nil {
		return fmt.Errorf("chw health seeking: %w", err)
	}

	chw := h.Coordinator
	if chw.Duration == 0 {
		chw.Duration = h.Duration
	}
	chw.TriggerConditionList = append([]string(nil), chw.TriggerConditionList...)
	chw.PropertyRestrictions = cloneRestrictions(chw.PropertyRestrictions)
	if h.DrugIneligibilityDays > 0 {
		chw.PropertyRestrictions = append(chw.PropertyRestrictions, model.PropertyRestriction{DrugStatusKey: DrugStatusNone})
	}
	if len(h.Node) > 0 {
		chw.NodePropertyRestrictions = cloneRestrictions(h.Node)
	}
	chw.InterventionConfig = TreatmentConfig(0, drugCfg, drugs)

	cb.ListEvent(EventCHWGiveDrugs)
	cb.ListEvent(EventReceivedTreatment)
	for _, e := range listeners {
		cb.AddEvent(e)
	}
	cb.AddEvent(model.CampaignEvent{
		StartDay:               h.StartDay,
		NodesetConfig:          model.NewNodeSet(h.NodeIDs),
		EventCoordinatorConfig: chw,
	})
	return nil
}
