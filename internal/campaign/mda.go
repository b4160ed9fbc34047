package campaign

import "github.com/ppiankov/malcamp/internal/model"

// addMDA distributes drugs to everyone reached, on each start day or in
// response to the campaign triggers.
func addMDA(cb Builder, c DrugCampaign, plan drugPlan) {
	nodes := model.NewNodeSet(c.NodeIDs)
	group := targetGroupOrEveryone(c.TargetGroup)
	targeting := ResolveTargeting(c.Coverage, group, Restrictions{Node: c.Node}, 0)
	targeting.PropertyRestrictions = plan.individualRestrictions(c.Individual)
	treat := model.MultiInterventionDistributor{InterventionList: plan.interventions()}

	if len(c.TriggerConditionList) > 0 {
		triggers := append([]string(nil), c.TriggerConditionList...)
		if c.Repetitions > 1 || c.TriggeredCampaignDelay > 0 {
			triggers = delayedTriggers(cb, DelayEvent{
				StartDay:          c.StartDays[0],
				NodeIDs:           c.NodeIDs,
				Delay:             c.TriggeredCampaignDelay,
				Triggers:          c.TriggerConditionList,
				ListeningDuration: c.ListeningDuration,
				NodeRestrictions:  c.Node,
			}, c.Repetitions, c.Interval)
		}
		cb.AddEvent(model.CampaignEvent{
			StartDay:      c.StartDays[0],
			NodesetConfig: nodes,
			EventCoordinatorConfig: model.StandardEventCoordinator{
				InterventionConfig: model.NodeLevelHealthTriggeredIV{
					TriggerConditionList: triggers,
					Duration:             c.ListeningDuration,
					TargetResidentsOnly:  model.Int(c.TargetResidentsOnly),
					Targeting:            targeting,
					Actual:               treat,
				},
			},
		})
		return
	}

	for _, day := range c.StartDays {
		cb.AddEvent(model.CampaignEvent{
			StartDay:      day,
			NodesetConfig: nodes,
			EventCoordinatorConfig: model.StandardEventCoordinator{
				NumberRepetitions:           model.Int(c.Repetitions),
				TimestepsBetweenRepetitions: model.Float(c.Interval),
				Targeting:                   targeting,
				InterventionConfig:          treat,
			},
		})
	}
}
