package campaign

import (
	"testing"

	"github.com/ppiankov/malcamp/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDiagnosticSurveyScheduled(t *testing.T) {
	s := DefaultDiagnosticSurvey()
	s.StartDay = 20
	s.Coverage = 0.9
	s.NodeIDs = []int{4}

	r := &recorder{}
	require.NoError(t, AddDiagnosticSurvey(r, s))
	require.Len(t, r.events, 1)
	assert.Equal(t, "Diagnostic Survey", r.events[0].EventName)

	m := asMap(t, r.events[0])
	ec := m["Event_Coordinator_Config"].(map[string]any)
	assert.Equal(t, "StandardInterventionDistributionEventCoordinator", ec["class"])
	assert.Equal(t, -1.0, ec["Number_Distributions"])
	assert.Equal(t, 0.9, ec["Demographic_Coverage"])
	assert.Equal(t, "Everyone", ec["Target_Demographic"])

	test := r.standard(t, 0).InterventionConfig.(model.MultiInterventionDistributor)
	assert.Equal(t, model.BroadcastEvent{Event: EventReceivedTest}, test.InterventionList[0])
	diag := test.InterventionList[1].(model.MalariaDiagnostic)
	assert.Equal(t, 40.0, diag.DetectionThreshold)
	assert.Equal(t, []model.Intervention{model.BroadcastEvent{Event: EventTestedNegative}}, diag.Negative.InterventionList)
	assert.ElementsMatch(t, []string{EventReceivedTest, EventTestedPositive, EventTestedNegative}, r.listed)
}

func TestAddDiagnosticSurveyTrueInfectionStatus(t *testing.T) {
	s := DefaultDiagnosticSurvey()
	s.DiagnosticType = DiagnosticTrueInfectionStatus
	diag, ok := s.Diagnostic().(model.StandardDiagnostic)
	require.True(t, ok)
	assert.Equal(t, 1.0, diag.BaseSensitivity)
	assert.Equal(t, 1.0, diag.BaseSpecificity)
	assert.Equal(t, "Config", diag.EventOrConfig)
}

func TestAddDiagnosticSurveyTriggeredWithDelay(t *testing.T) {
	s := DefaultDiagnosticSurvey()
	s.TriggerConditionList = []string{"Case_Found"}
	s.TriggeredCampaignDelay = 7
	s.ListeningDuration = 50

	r := &recorder{}
	require.NoError(t, AddDiagnosticSurvey(r, s))
	require.Len(t, r.events, 2)

	delay := r.listener(t, 0)
	assert.Equal(t, []string{"Case_Found"}, delay.TriggerConditionList)
	assert.Equal(t, 50.0, delay.Duration)
	assert.Equal(t, 7.0, delay.Actual.(model.DelayedIntervention).DelayPeriod)

	survey := r.listener(t, 1)
	assert.Equal(t, []string{"Campaign_Delay_Trigger_0"}, survey.TriggerConditionList)
	assert.Equal(t, -1, *r.standard(t, 1).NumberDistributions)
}

func TestAddDiagnosticSurveyInvalid(t *testing.T) {
	s := DefaultDiagnosticSurvey()
	s.Target = AgeGroup(5, 1)
	r := &recorder{}
	assert.ErrorIs(t, AddDiagnosticSurvey(r, s), ErrInvalidTarget)
	assert.Empty(t, r.events)
}

func TestTriggeredCampaignDelayEventNames(t *testing.T) {
	r := &recorder{}
	first := TriggeredCampaignDelayEvent(r, DelayEvent{Delay: 3, Triggers: []string{"A"}, ListeningDuration: -1})
	second := TriggeredCampaignDelayEvent(r, DelayEvent{Delay: 3, Triggers: []string{"A"}, ListeningDuration: -1})
	assert.Equal(t, "Campaign_Delay_Trigger_0", first)
	assert.Equal(t, "Campaign_Delay_Trigger_1", second)

	l := r.listener(t, 0)
	assert.Equal(t, 1, *l.TargetResidentsOnly)
	assert.Equal(t, []model.Intervention{model.BroadcastEvent{Event: first}}, l.Actual.(model.DelayedIntervention).Configs)
}
