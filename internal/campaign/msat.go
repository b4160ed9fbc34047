package campaign

import (
	"fmt"

	"github.com/ppiankov/malcamp/internal/model"
)

// addMSAT tests everyone reached and treats those who test positive, after
// TreatmentDelay days when set.
func addMSAT(cb Builder, c DrugCampaign, plan drugPlan) error {
	treat := plan.interventions()
	if c.TreatmentDelay > 0 {
		treat = []model.Intervention{FixedDelay(c.TreatmentDelay, treat)}
	}

	s := c.survey(c.Coverage, c.Individual)
	s.PositiveConfigs = treat
	s.PositiveRestrictions = plan.positiveRestrictions()

	if len(c.TriggerConditionList) > 0 {
		s.StartDay = c.StartDays[0]
		s.TriggerConditionList = c.TriggerConditionList
		s.TriggeredCampaignDelay = c.TriggeredCampaignDelay
		if err := AddDiagnosticSurvey(cb, s); err != nil {
			return fmt.Errorf("msat: %w", err)
		}
		return nil
	}

	for _, day := range c.StartDays {
		s.StartDay = day
		if err := AddDiagnosticSurvey(cb, s); err != nil {
			return fmt.Errorf("msat: %w", err)
		}
	}
	return nil
}
