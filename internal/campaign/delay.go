package campaign

import (
	"fmt"

	"github.com/ppiankov/malcamp/internal/model"
)

// DelayEvent configures a listener that re-broadcasts its triggers as a new
// event after a fixed delay.
type DelayEvent struct {
	StartDay          float64
	NodeIDs           []int
	Delay             float64
	Triggers          []string
	ListeningDuration float64
	NodeRestrictions  []model.PropertyRestriction
}

// TriggeredCampaignDelayEvent adds the delay listener and returns the name of
// the event it broadcasts. Names are numbered by the builder's event count so
// repeated builds produce identical documents.
func TriggeredCampaignDelayEvent(cb Builder, d DelayEvent) string {
	name := fmt.Sprintf("Campaign_Delay_Trigger_%d", cb.EventCount())

	listener := model.NodeLevelHealthTriggeredIV{
		TriggerConditionList: append([]string(nil), d.Triggers...),
		Duration:             d.ListeningDuration,
		TargetResidentsOnly:  model.Int(1),
		Targeting: model.Targeting{
			DemographicCoverage:      model.Float(1),
			NodePropertyRestrictions: cloneRestrictions(d.NodeRestrictions),
		},
		Actual: FixedDelay(d.Delay, []model.Intervention{model.BroadcastEvent{Event: name}}),
	}

	cb.ListEvent(name)
	cb.AddEvent(model.CampaignEvent{
		StartDay:      d.StartDay,
		NodesetConfig: model.NewNodeSet(d.NodeIDs),
		EventCoordinatorConfig: model.StandardEventCoordinator{
			InterventionConfig: listener,
		},
	})
	return name
}

// delayedTriggers adds one delay listener per repetition, the x-th firing
// baseDelay + x*interval days after a trigger, and returns their event names.
func delayedTriggers(cb Builder, base DelayEvent, repetitions int, interval float64) []string {
	if repetitions < 1 {
		repetitions = 1
	}
	names := make([]string, 0, repetitions)
	baseDelay := base.Delay
	for x := 0; x < repetitions; x++ {
		d := base
		d.Delay = baseDelay + float64(x)*interval
		names = append(names, TriggeredCampaignDelayEvent(cb, d))
	}
	return names
}
