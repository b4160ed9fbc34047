package campaign

import (
	"fmt"

	"github.com/ppiankov/malcamp/internal/model"
)

const snowballTrigger = "Diagnostic_Survey_"

func snowballEvent(level int) string {
	return fmt.Sprintf("%s%d", snowballTrigger, level)
}

// addRFMSAT responds to each treated case by testing the surrounding nodes
// and treating positives. With Snowballs > 0 every positive at level n starts
// a further survey at level n+1.
func addRFMSAT(cb Builder, c DrugCampaign, plan drugPlan) error {
	start := c.StartDays[0]
	nodes := model.NewNodeSet(c.NodeIDs)
	snowball := func(level int) model.BroadcastEventToOtherNodes {
		return FMDAConfig(c.FMDARadius, c.NodeSelectionType, snowballEvent(level))
	}

	cb.ListEvent(EventReceivedTreatment)
	for level := 0; level <= c.Snowballs; level++ {
		cb.ListEvent(snowballEvent(level))
	}
	cb.AddEvent(model.CampaignEvent{
		StartDay:      start,
		EventName:     "Trigger RCD MSAT",
		NodesetConfig: nodes,
		EventCoordinatorConfig: model.StandardEventCoordinator{
			InterventionConfig: model.NodeLevelHealthTriggeredIV{
				TriggerConditionList: []string{EventReceivedTreatment},
				Duration:             c.Interval,
				Targeting: model.Targeting{
					DemographicCoverage:      model.Float(c.TriggerCoverage),
					NodePropertyRestrictions: cloneRestrictions(c.Node),
				},
				Actual: FixedDelay(0, []model.Intervention{snowball(0)}),
			},
		},
	})

	survey := func(name, trigger string, positive []model.Intervention) error {
		s := DefaultDiagnosticSurvey()
		s.StartDay = start
		s.Coverage = c.Coverage
		s.DiagnosticType = c.DiagnosticType
		s.DiagnosticThreshold = c.DiagnosticThreshold
		s.NodeIDs = c.NodeIDs
		s.TriggerConditionList = []string{trigger}
		s.EventName = name
		s.PositiveConfigs = positive
		s.Restrictions = Restrictions{Node: c.Node, Individual: c.Individual}
		s.PositiveRestrictions = plan.positiveRestrictions()
		if err := AddDiagnosticSurvey(cb, s); err != nil {
			return fmt.Errorf("rfmsat: %w", err)
		}
		return nil
	}

	if err := survey("Reactive MSAT level 0", snowballEvent(0), plan.interventions()); err != nil {
		return err
	}
	for level := 0; level < c.Snowballs; level++ {
		positive := []model.Intervention{snowball(level + 1), plan.receiving}
		positive = append(positive, plan.drugs...)
		if err := survey(fmt.Sprintf("Snowball level %d", level), snowballEvent(level), positive); err != nil {
			return err
		}
	}
	return nil
}

// addRFMDA responds to each treated case by treating everyone in the
// surrounding nodes after TreatmentDelay days. Interval is how long the
// response stays active.
func addRFMDA(cb Builder, c DrugCampaign, plan drugPlan) {
	start := c.StartDays[0]
	nodes := model.NewNodeSet(c.NodeIDs)

	cb.ListEvent(EventReceivedTreatment)
	cb.ListEvent(EventGiveDrugsRFMDA)
	cb.AddEvent(model.CampaignEvent{
		StartDay:      start,
		EventName:     "Trigger RCD MDA",
		NodesetConfig: nodes,
		EventCoordinatorConfig: model.StandardEventCoordinator{
			InterventionConfig: model.NodeLevelHealthTriggeredIV{
				TriggerConditionList: []string{EventReceivedTreatment},
				Duration:             c.Interval,
				Targeting: model.Targeting{
					DemographicCoverage:      model.Float(c.TriggerCoverage),
					PropertyRestrictions:     cloneRestrictions(c.Individual),
					NodePropertyRestrictions: cloneRestrictions(c.Node),
				},
				Actual: FixedDelay(c.TreatmentDelay, []model.Intervention{
					FMDAConfig(c.FMDARadius, c.NodeSelectionType, EventGiveDrugsRFMDA),
				}),
			},
		},
	})
	cb.AddEvent(model.CampaignEvent{
		StartDay:      start,
		EventName:     "Distribute fMDA",
		NodesetConfig: nodes,
		EventCoordinatorConfig: model.StandardEventCoordinator{
			InterventionConfig: model.NodeLevelHealthTriggeredIV{
				TriggerConditionList: []string{EventGiveDrugsRFMDA},
				Duration:             c.Interval,
				Targeting: model.Targeting{
					DemographicCoverage:      model.Float(c.Coverage),
					PropertyRestrictions:     plan.individualRestrictions(c.Individual),
					NodePropertyRestrictions: cloneRestrictions(c.Node),
				},
				Actual: model.MultiInterventionDistributor{InterventionList: plan.interventions()},
			},
		},
	})
}
