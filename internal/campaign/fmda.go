package campaign

import (
	"fmt"
	"strconv"

	"github.com/ppiankov/malcamp/internal/model"
)

// Node selection types of BroadcastEventToOtherNodes.
const (
	NodeSelectionDistanceOnly         = "DISTANCE_ONLY"
	NodeSelectionMigration            = "MIGRATION_NODES_ONLY"
	NodeSelectionDistanceAndMigration = "DISTANCE_AND_MIGRATION"
)

// Events relayed by focal campaigns.
const (
	EventGiveDrugsFMDA  = "Give_Drugs_fMDA"
	EventGiveDrugsRFMDA = "Give_Drugs_rfMDA"
	EventFMDABlackout   = "fMDA_Blackout_Event_Trigger"
)

// FMDAConfig relays trigger to the recipient's node and to nodes within
// radius kilometres. A radius that is not a number, such as "hh", limits the
// relay to the recipient's household. An empty selection uses DISTANCE_ONLY.
func FMDAConfig(radius, selection, trigger string) model.BroadcastEventToOtherNodes {
	if selection == "" {
		selection = NodeSelectionDistanceOnly
	}
	km, err := strconv.ParseFloat(radius, 64)
	if err != nil {
		km = 0
	}
	return model.BroadcastEventToOtherNodes{
		EventTrigger:              trigger,
		IncludeMyNode:             1,
		NodeSelectionType:         selection,
		MaxDistanceToOtherNodesKm: km,
	}
}

// addFMDA tests everyone reached and, for each positive, treats everyone in
// the surrounding nodes.
func addFMDA(cb Builder, c DrugCampaign, plan drugPlan) error {
	setup := []model.Intervention{
		FMDAConfig(c.FMDARadius, c.NodeSelectionType, EventGiveDrugsFMDA),
	}
	if c.TreatmentDelay > 0 {
		setup = []model.Intervention{FixedDelay(c.TreatmentDelay, setup)}
	}
	ind := plan.individualRestrictions(c.Individual)
	treat := model.MultiInterventionDistributor{InterventionList: plan.interventions()}
	nodes := model.NewNodeSet(c.NodeIDs)
	cb.ListEvent(EventGiveDrugsFMDA)

	cb.ListEvent(EventFMDABlackout)

	// Each distribution ignores repeat triggers for a day, so an individual
	// near several positives is treated once.
	distribute := func(day, duration float64) {
		listener := model.NodeLevelHealthTriggeredIV{
			TriggerConditionList:      []string{EventGiveDrugsFMDA},
			Duration:                  duration,
			TargetResidentsOnly:       model.Int(1),
			BlackoutEventTrigger:      EventFMDABlackout,
			BlackoutPeriod:            model.Float(1),
			BlackoutOnFirstOccurrence: model.Int(0),
			Targeting: model.Targeting{
				DemographicCoverage:      model.Float(c.Coverage),
				PropertyRestrictions:     cloneRestrictions(ind),
				NodePropertyRestrictions: cloneRestrictions(c.Node),
			},
			Actual: treat,
		}
		cb.AddEvent(model.CampaignEvent{
			StartDay:      day,
			EventName:     "Distribute fMDA",
			NodesetConfig: nodes,
			EventCoordinatorConfig: model.StandardEventCoordinator{
				InterventionConfig: listener,
			},
		})
	}

	if len(c.TriggerConditionList) > 0 {
		s := c.survey(c.TriggerCoverage, ind)
		s.StartDay = c.StartDays[0]
		s.PositiveConfigs = setup
		s.TriggerConditionList = c.TriggerConditionList
		s.TriggeredCampaignDelay = c.TriggeredCampaignDelay
		if err := AddDiagnosticSurvey(cb, s); err != nil {
			return fmt.Errorf("fmda: %w", err)
		}
		distribute(c.StartDays[0], c.ListeningDuration)
		return nil
	}

	for _, day := range c.StartDays {
		for rep := 0; rep < c.Repetitions; rep++ {
			at := day + c.Interval*float64(rep)
			s := c.survey(c.TriggerCoverage, ind)
			s.StartDay = at
			s.Repetitions = 1
			s.PositiveConfigs = setup
			if err := AddDiagnosticSurvey(cb, s); err != nil {
				return fmt.Errorf("fmda: %w", err)
			}
			distribute(at+c.TreatmentDelay, 2)
		}
	}
	return nil
}
