package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Intervention is a campaign fragment the engine hands to an individual
// (drugs, diagnostics, broadcasts) or installs on a node (listeners).
// The set of implementations is closed.
type Intervention interface {
	Class() string
	isIntervention()
}

// PropertyRestriction is one {"Property": "Value"} entry of a restriction list.
type PropertyRestriction map[string]string

// Delay distributions understood by DelayedIntervention.
const (
	DelayFixed       = "FIXED_DURATION"
	DelayExponential = "EXPONENTIAL_DURATION"
)

// AntimalarialDrug is a single drug given with a dosing regimen.
type AntimalarialDrug struct {
	CostToConsumer          float64  `json:"Cost_To_Consumer"`
	DrugType                string   `json:"Drug_Type"`
	DosingType              string   `json:"Dosing_Type,omitempty"`
	DisqualifyingProperties []string `json:"Disqualifying_Properties,omitempty"`
}

func (AntimalarialDrug) Class() string  { return "AntimalarialDrug" }
func (AntimalarialDrug) isIntervention() {}

// MarshalJSON writes the engine dictionary with its class tag.
func (d AntimalarialDrug) MarshalJSON() ([]byte, error) {
	type wire AntimalarialDrug
	return withClass(d.Class(), wire(d))
}

// MultiInterventionDistributor hands every listed intervention to the recipient.
type MultiInterventionDistributor struct {
	InterventionList        []Intervention        `json:"Intervention_List"`
	PropertyRestrictions    []PropertyRestriction `json:"Property_Restrictions_Within_Node,omitempty"`
	DisqualifyingProperties []string              `json:"Disqualifying_Properties,omitempty"`
}

func (MultiInterventionDistributor) Class() string  { return "MultiInterventionDistributor" }
func (MultiInterventionDistributor) isIntervention() {}

func (m MultiInterventionDistributor) MarshalJSON() ([]byte, error) {
	type wire MultiInterventionDistributor
	if m.InterventionList == nil {
		m.InterventionList = []Intervention{}
	}
	return withClass(m.Class(), wire(m))
}

// BroadcastEvent makes the recipient broadcast a named event.
type BroadcastEvent struct {
	Event string `json:"Broadcast_Event"`
}

func (BroadcastEvent) Class() string  { return "BroadcastEvent" }
func (BroadcastEvent) isIntervention() {}

func (b BroadcastEvent) MarshalJSON() ([]byte, error) {
	type wire BroadcastEvent
	return withClass(b.Class(), wire(b))
}

// PropertyValueChanger sets an individual property, optionally reverting it.
type PropertyValueChanger struct {
	TargetPropertyKey   string  `json:"Target_Property_Key"`
	TargetPropertyValue string  `json:"Target_Property_Value"`
	DailyProbability    float64 `json:"Daily_Probability"`
	MaximumDuration     float64 `json:"Maximum_Duration"`
	Revert              float64 `json:"Revert"`
}

func (PropertyValueChanger) Class() string  { return "PropertyValueChanger" }
func (PropertyValueChanger) isIntervention() {}

func (p PropertyValueChanger) MarshalJSON() ([]byte, error) {
	type wire PropertyValueChanger
	return withClass(p.Class(), wire(p))
}

// DelayedIntervention distributes its configs after a sampled delay.
type DelayedIntervention struct {
	Coverage                *float64       `json:"Coverage,omitempty"`
	DelayDistribution       string         `json:"Delay_Distribution"`
	DelayPeriod             float64        `json:"Delay_Period"`
	Configs                 []Intervention `json:"Actual_IndividualIntervention_Configs"`
	DisqualifyingProperties []string       `json:"Disqualifying_Properties,omitempty"`
}

func (DelayedIntervention) Class() string  { return "DelayedIntervention" }
func (DelayedIntervention) isIntervention() {}

func (d DelayedIntervention) MarshalJSON() ([]byte, error) {
	type wire DelayedIntervention
	if d.Configs == nil {
		d.Configs = []Intervention{}
	}
	return withClass(d.Class(), wire(d))
}

// DiagnosisOutcome holds the branches a diagnostic distributes on its result.
type DiagnosisOutcome struct {
	EventOrConfig string                       `json:"Event_Or_Config"`
	Positive      MultiInterventionDistributor `json:"Positive_Diagnosis_Config"`
	Negative      MultiInterventionDistributor `json:"Negative_Diagnosis_Config"`
}

// StandardDiagnostic reports the true infection status.
type StandardDiagnostic struct {
	BaseSensitivity   float64 `json:"Base_Sensitivity"`
	BaseSpecificity   float64 `json:"Base_Specificity"`
	DaysToDiagnosis   float64 `json:"Days_To_Diagnosis"`
	TreatmentFraction float64 `json:"Treatment_Fraction"`
	DiagnosisOutcome
}

func (StandardDiagnostic) Class() string  { return "StandardDiagnostic" }
func (StandardDiagnostic) isIntervention() {}

func (s StandardDiagnostic) MarshalJSON() ([]byte, error) {
	type wire StandardDiagnostic
	return withClass(s.Class(), wire(s))
}

// MalariaDiagnostic tests against a detection threshold whose unit depends on the type.
type MalariaDiagnostic struct {
	DiagnosticType     string  `json:"MalariaDiagnostic_Type"`
	DetectionThreshold float64 `json:"Detection_Threshold"`
	DiagnosisOutcome
}

func (MalariaDiagnostic) Class() string  { return "MalariaDiagnostic" }
func (MalariaDiagnostic) isIntervention() {}

func (m MalariaDiagnostic) MarshalJSON() ([]byte, error) {
	type wire MalariaDiagnostic
	return withClass(m.Class(), wire(m))
}

// BroadcastEventToOtherNodes relays an event to the recipient's household or
// to nodes within a radius.
type BroadcastEventToOtherNodes struct {
	EventTrigger              string  `json:"Event_Trigger"`
	IncludeMyNode             int     `json:"Include_My_Node"`
	NodeSelectionType         string  `json:"Node_Selection_Type"`
	MaxDistanceToOtherNodesKm float64 `json:"Max_Distance_To_Other_Nodes_Km"`
}

func (BroadcastEventToOtherNodes) Class() string  { return "BroadcastEventToOtherNodes" }
func (BroadcastEventToOtherNodes) isIntervention() {}

func (b BroadcastEventToOtherNodes) MarshalJSON() ([]byte, error) {
	type wire BroadcastEventToOtherNodes
	return withClass(b.Class(), wire(b))
}

// NodeLevelHealthTriggeredIV listens for events on a node and distributes its
// actual config to the individuals that broadcast them.
type NodeLevelHealthTriggeredIV struct {
	TriggerConditionList      []string `json:"Trigger_Condition_List"`
	Duration                  float64  `json:"Duration"`
	TargetResidentsOnly       *int     `json:"Target_Residents_Only,omitempty"`
	BlackoutEventTrigger      string   `json:"Blackout_Event_Trigger,omitempty"`
	BlackoutPeriod            *float64 `json:"Blackout_Period,omitempty"`
	BlackoutOnFirstOccurrence *int     `json:"Blackout_On_First_Occurrence,omitempty"`
	Targeting
	Actual Intervention `json:"Actual_IndividualIntervention_Config"`
}

func (NodeLevelHealthTriggeredIV) Class() string  { return "NodeLevelHealthTriggeredIV" }
func (NodeLevelHealthTriggeredIV) isIntervention() {}

func (n NodeLevelHealthTriggeredIV) MarshalJSON() ([]byte, error) {
	type wire NodeLevelHealthTriggeredIV
	if n.TriggerConditionList == nil {
		n.TriggerConditionList = []string{}
	}
	return withClass(n.Class(), wire(n))
}

// Targeting carries the demographic and property filters shared by event
// coordinators and node-level listeners.
type Targeting struct {
	DemographicCoverage      *float64              `json:"Demographic_Coverage,omitempty"`
	TargetDemographic        string                `json:"Target_Demographic,omitempty"`
	TargetAgeMin             *float64              `json:"Target_Age_Min,omitempty"`
	TargetAgeMax             *float64              `json:"Target_Age_Max,omitempty"`
	PropertyRestrictions     []PropertyRestriction `json:"Property_Restrictions_Within_Node,omitempty"`
	NodePropertyRestrictions []PropertyRestriction `json:"Node_Property_Restrictions,omitempty"`
}

// Float returns a pointer to v, for optional numeric fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// withClass marshals v and prepends the engine class tag to the object.
func withClass(class string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", class, err)
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("marshal %s: expected object, got %s", class, body)
	}
	name, err := json.Marshal(class)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + len(name) + 10)
	buf.WriteString(`{"class":`)
	buf.Write(name)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}
