package scenario

import (
	"fmt"

	"github.com/ppiankov/malcamp/internal/builder"
	"github.com/ppiankov/malcamp/internal/campaign"
	"github.com/ppiankov/malcamp/internal/model"
	"github.com/ppiankov/malcamp/internal/schedule"
)

// Intervention step types.
const (
	StepHealthSeeking        = "health_seeking"
	StepHealthSeekingCHW     = "health_seeking_chw"
	StepDrugCampaign         = "drug_campaign"
	StepDiagnosticSurvey     = "diagnostic_survey"
	StepNodeCoverage         = "node_coverage"
	StepSeasonalNodeCoverage = "seasonal_node_coverage"
	StepEventTable           = "event_table"
)

// Report step types.
const (
	ReportSummary      = "summary"
	ReportEventCounter = "event_counter"
	ReportFiltered     = "filtered"
	ReportSpatial      = "spatial"
)

type nodeCoverageStep struct {
	File         string                  `yaml:"file"`
	Entries      []campaign.NodeCoverage `yaml:"hscov"`
	StartDay     float64                 `yaml:"start_day"`
	DaysInMonth  []float64               `yaml:"days_in_month"`
	ScaleByMonth []float64               `yaml:"scale_by_month"`
}

func (s nodeCoverageStep) table(sc *Scenario) (campaign.CoverageTable, error) {
	if s.File == "" {
		return campaign.CoverageTable{Entries: s.Entries}, nil
	}
	return campaign.LoadNodeCoverage(sc.path(s.File))
}

type eventTableStep struct {
	Kind schedule.Kind `yaml:"kind"`
	File string        `yaml:"file"`
}

func (sc *Scenario) applyIntervention(cb *builder.ConfigBuilder, step Step) error {
	switch step.Type {
	case StepHealthSeeking:
		h := campaign.DefaultHealthSeeking()
		if err := step.decode(&h); err != nil {
			return err
		}
		return campaign.AddHealthSeeking(cb, h)

	case StepHealthSeekingCHW:
		h := campaign.DefaultCHWHealthSeeking()
		if err := step.decode(&h); err != nil {
			return err
		}
		return campaign.AddHealthSeekingByCHW(cb, h)

	case StepDrugCampaign:
		c := campaign.DefaultDrugCampaign("", "")
		if err := step.decode(&c); err != nil {
			return err
		}
		tags, err := campaign.AddDrugCampaign(cb, c)
		if err != nil {
			return err
		}
		setTags(cb, tags)
		return nil

	case StepDiagnosticSurvey:
		s := campaign.DefaultDiagnosticSurvey()
		if err := step.decode(&s); err != nil {
			return err
		}
		return campaign.AddDiagnosticSurvey(cb, s)

	case StepNodeCoverage, StepSeasonalNodeCoverage:
		var s nodeCoverageStep
		if err := step.decode(&s); err != nil {
			return err
		}
		table, err := s.table(sc)
		if err != nil {
			return err
		}
		if step.Type == StepNodeCoverage {
			return campaign.AddHealthSeekingByNodeCoverage(cb, table, s.StartDay)
		}
		return campaign.AddSeasonalHealthSeeking(cb, table, campaign.SeasonalHealthSeeking{
			StartDay:     s.StartDay,
			DaysInMonth:  s.DaysInMonth,
			ScaleByMonth: s.ScaleByMonth,
		})

	case StepEventTable:
		var s eventTableStep
		if err := step.decode(&s); err != nil {
			return err
		}
		start, err := sc.start()
		if err != nil {
			return err
		}
		tags, err := schedule.Apply(cb, s.Kind, sc.path(s.File), start)
		if err != nil {
			return err
		}
		setTags(cb, tags)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownStep, step.Type)
}

func (sc *Scenario) applyReport(cb *builder.ConfigBuilder, step Step) error {
	var r model.Report
	switch step.Type {
	case ReportSummary:
		s := model.DefaultSummaryReport(sc.Name)
		if err := step.decode(&s); err != nil {
			return err
		}
		r = s
	case ReportEventCounter:
		s := model.ReportEventCounter{DurationDays: 100000, EventTriggerList: []string{campaign.EventReceivedTreatment}}
		if err := step.decode(&s); err != nil {
			return err
		}
		r = s
	case ReportFiltered:
		s := model.ReportMalariaFiltered{EndDay: 100000}
		if err := step.decode(&s); err != nil {
			return err
		}
		r = s
	case ReportSpatial:
		s := model.SpatialReportMalariaFiltered{EndDay: 100000, Channels: []string{"Population", "True_Prevalence"}}
		if err := step.decode(&s); err != nil {
			return err
		}
		r = s
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStep, step.Type)
	}
	cb.AddReport(r)
	return nil
}

func setTags(cb *builder.ConfigBuilder, tags map[string]any) {
	for k, v := range tags {
		cb.SetTag(k, v)
	}
}
