package campaign

import (
	"fmt"

	"github.com/ppiankov/malcamp/internal/model"
)

// Diagnostic types. TRUE_INFECTION_STATUS uses a perfect StandardDiagnostic;
// every other type is a MalariaDiagnostic with a detection threshold.
const (
	DiagnosticTrueInfectionStatus = "TRUE_INFECTION_STATUS"
	DiagnosticTrueParasiteDensity = "TRUE_PARASITE_DENSITY"
	DiagnosticBloodSmear          = "BLOOD_SMEAR_PARASITES"
	DiagnosticPCR                 = "PCR_PARASITES"
	DiagnosticPfHRP2              = "PF_HRP2"
	DiagnosticFever               = "FEVER"
)

// DiagnosticSurvey tests a population and distributes follow-up interventions
// on the result. With TriggerConditionList set it listens for those events
// instead of running on a schedule.
type DiagnosticSurvey struct {
	StartDay                    float64              `yaml:"start_day"`
	Coverage                    float64              `yaml:"coverage"`
	Repetitions                 int                  `yaml:"repetitions"`
	TimestepsBetweenRepetitions float64              `yaml:"tsteps_btwn"`
	Target                      TargetGroup          `yaml:"target"`
	DiagnosticType              string               `yaml:"diagnostic_type"`
	DiagnosticThreshold         float64              `yaml:"diagnostic_threshold"`
	EventName                   string               `yaml:"event_name"`
	NodeIDs                     []int                `yaml:"nodes"`
	PositiveConfigs             []model.Intervention `yaml:"-"`
	NegativeConfigs             []model.Intervention `yaml:"-"`
	ReceivedTestEvent           string               `yaml:"received_test_event"`
	Restrictions                `yaml:",inline"`
	PositiveRestrictions        []model.PropertyRestriction `yaml:"pos_diag_IP_restrictions"`
	NegativeRestrictions        []model.PropertyRestriction `yaml:"neg_diag_IP_restrictions"`
	TriggerConditionList        []string                    `yaml:"trigger_condition_list"`
	ListeningDuration           float64                     `yaml:"listening_duration"`
	TriggeredCampaignDelay      float64                     `yaml:"triggered_campaign_delay"`
}

// DefaultDiagnosticSurvey is a yearly parasite-density survey of everyone.
func DefaultDiagnosticSurvey() DiagnosticSurvey {
	return DiagnosticSurvey{
		Coverage:                    1,
		Repetitions:                 1,
		TimestepsBetweenRepetitions: 365,
		Target:                      Everyone,
		DiagnosticType:              DiagnosticTrueParasiteDensity,
		DiagnosticThreshold:         40,
		EventName:                   "Diagnostic Survey",
		ReceivedTestEvent:           EventReceivedTest,
		ListeningDuration:           -1,
	}
}

// Validate checks coverage, schedule and target group.
func (s DiagnosticSurvey) Validate() error {
	if err := checkCoverage("coverage", s.Coverage); err != nil {
		return err
	}
	if err := checkRepetitions(s.Repetitions); err != nil {
		return err
	}
	if err := checkNonNegative("timesteps between repetitions", s.TimestepsBetweenRepetitions); err != nil {
		return err
	}
	if err := checkNonNegative("triggered campaign delay", s.TriggeredCampaignDelay); err != nil {
		return err
	}
	if err := checkDuration("listening duration", s.ListeningDuration); err != nil {
		return err
	}
	if s.DiagnosticType == "" {
		return fmt.Errorf("%w: missing diagnostic type", ErrInvalidTarget)
	}
	return s.Target.Validate()
}

// Diagnostic builds the diagnostic intervention with both result branches.
func (s DiagnosticSurvey) Diagnostic() model.Intervention {
	outcome := model.DiagnosisOutcome{
		EventOrConfig: "Config",
		Positive: model.MultiInterventionDistributor{
			InterventionList:     appendIntervention(s.PositiveConfigs, model.BroadcastEvent{Event: EventTestedPositive}),
			PropertyRestrictions: cloneRestrictions(s.PositiveRestrictions),
		},
		Negative: model.MultiInterventionDistributor{
			InterventionList:     appendIntervention(s.NegativeConfigs, model.BroadcastEvent{Event: EventTestedNegative}),
			PropertyRestrictions: cloneRestrictions(s.NegativeRestrictions),
		},
	}

	if s.DiagnosticType == DiagnosticTrueInfectionStatus {
		return model.StandardDiagnostic{
			BaseSensitivity:   1.0,
			BaseSpecificity:   1.0,
			DaysToDiagnosis:   0.0,
			TreatmentFraction: 1,
			DiagnosisOutcome:  outcome,
		}
	}
	return model.MalariaDiagnostic{
		DiagnosticType:     s.DiagnosticType,
		DetectionThreshold: s.DiagnosticThreshold,
		DiagnosisOutcome:   outcome,
	}
}

// AddDiagnosticSurvey adds the survey event. A triggered survey with more than
// one repetition or a delay listens to delay events, one per repetition,
// rather than to its triggers directly.
func AddDiagnosticSurvey(cb Builder, s DiagnosticSurvey) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("diagnostic survey: %w", err)
	}

	received := s.ReceivedTestEvent
	if received == "" {
		received = EventReceivedTest
	}
	test := model.MultiInterventionDistributor{
		InterventionList: []model.Intervention{
			model.BroadcastEvent{Event: received},
			s.Diagnostic(),
		},
	}
	nodes := model.NewNodeSet(s.NodeIDs)

	cb.ListEvent(received)
	cb.ListEvent(EventTestedPositive)
	cb.ListEvent(EventTestedNegative)

	if len(s.TriggerConditionList) > 0 {
		triggers := append([]string(nil), s.TriggerConditionList...)
		if s.Repetitions > 1 || s.TriggeredCampaignDelay > 0 {
			triggers = delayedTriggers(cb, DelayEvent{
				StartDay:          s.StartDay,
				NodeIDs:           s.NodeIDs,
				Delay:             s.TriggeredCampaignDelay,
				Triggers:          s.TriggerConditionList,
				ListeningDuration: s.ListeningDuration,
				NodeRestrictions:  s.Node,
			}, s.Repetitions, s.TimestepsBetweenRepetitions)
		}

		listener := model.NodeLevelHealthTriggeredIV{
			TriggerConditionList: triggers,
			Duration:             s.ListeningDuration,
			TargetResidentsOnly:  model.Int(1),
			Targeting:            ResolveTargeting(s.Coverage, s.Target, s.Restrictions, 0),
			Actual:               test,
		}
		cb.AddEvent(model.CampaignEvent{
			StartDay:      s.StartDay,
			EventName:     s.EventName,
			NodesetConfig: nodes,
			EventCoordinatorConfig: model.StandardEventCoordinator{
				NumberDistributions: model.Int(-1),
				InterventionConfig:  listener,
			},
		})
		return nil
	}

	target := s.Target
	if target.IsZero() {
		target = Everyone
	}
	cb.AddEvent(model.CampaignEvent{
		StartDay:      s.StartDay,
		EventName:     s.EventName,
		NodesetConfig: nodes,
		EventCoordinatorConfig: model.StandardEventCoordinator{
			NumberDistributions:         model.Int(-1),
			NumberRepetitions:           model.Int(s.Repetitions),
			TimestepsBetweenRepetitions: model.Float(s.TimestepsBetweenRepetitions),
			Targeting:                   ResolveTargeting(s.Coverage, target, s.Restrictions, 0),
			InterventionConfig:          test,
		},
	})
	return nil
}

func appendIntervention(list []model.Intervention, iv ...model.Intervention) []model.Intervention {
	out := make([]model.Intervention, 0, len(list)+len(iv))
	out = append(out, list...)
	return append(out, iv...)
}
