package model

// NodeSet selects the nodes a campaign event applies to.
type NodeSet interface {
	Class() string
	isNodeSet()
}

// NodeSetAll targets every node in the simulation.
type NodeSetAll struct{}

func (NodeSetAll) Class() string { return "NodeSetAll" }
func (NodeSetAll) isNodeSet()    {}

func (n NodeSetAll) MarshalJSON() ([]byte, error) {
	type wire NodeSetAll
	return withClass(n.Class(), wire(n))
}

// NodeSetNodeList targets an explicit list of node IDs.
type NodeSetNodeList struct {
	NodeList []int `json:"Node_List"`
}

func (NodeSetNodeList) Class() string { return "NodeSetNodeList" }
func (NodeSetNodeList) isNodeSet()    {}

func (n NodeSetNodeList) MarshalJSON() ([]byte, error) {
	type wire NodeSetNodeList
	if n.NodeList == nil {
		n.NodeList = []int{}
	}
	return withClass(n.Class(), wire(n))
}

// NewNodeSet returns NodeSetAll for an empty list and a copied node list otherwise.
func NewNodeSet(ids []int) NodeSet {
	if len(ids) == 0 {
		return NodeSetAll{}
	}
	return NodeSetNodeList{NodeList: append([]int(nil), ids...)}
}

// EventCoordinator decides who receives an event's intervention and when.
type EventCoordinator interface {
	Class() string
	isEventCoordinator()
}

// StandardEventCoordinator is the engine's
// StandardInterventionDistributionEventCoordinator.
type StandardEventCoordinator struct {
	NumberDistributions         *int     `json:"Number_Distributions,omitempty"`
	NumberRepetitions           *int     `json:"Number_Repetitions,omitempty"`
	TimestepsBetweenRepetitions *float64 `json:"Timesteps_Between_Repetitions,omitempty"`
	Targeting
	InterventionConfig Intervention `json:"Intervention_Config"`
}

func (StandardEventCoordinator) Class() string {
	return "StandardInterventionDistributionEventCoordinator"
}
func (StandardEventCoordinator) isEventCoordinator() {}

func (s StandardEventCoordinator) MarshalJSON() ([]byte, error) {
	type wire StandardEventCoordinator
	return withClass(s.Class(), wire(s))
}

// CHWEventCoordinator is the engine's CommunityHealthWorkerEventCoordinator:
// a stock of interventions handed out at a daily rate to individuals that
// broadcast one of its triggers. Field names double as YAML keys so scenario
// files can overlay engine settings directly.
type CHWEventCoordinator struct {
	Duration                      float64               `json:"Duration" yaml:"Duration"`
	DistributionRate              float64               `json:"Distribution_Rate" yaml:"Distribution_Rate"`
	WaitingPeriod                 float64               `json:"Waiting_Period" yaml:"Waiting_Period"`
	DaysBetweenShipments          float64               `json:"Days_Between_Shipments" yaml:"Days_Between_Shipments"`
	AmountInShipment              int                   `json:"Amount_In_Shipment" yaml:"Amount_In_Shipment"`
	MaxStock                      int                   `json:"Max_Stock" yaml:"Max_Stock"`
	InitialAmountDistributionType string                `json:"Initial_Amount_Distribution_Type" yaml:"Initial_Amount_Distribution_Type"`
	InitialAmount                 float64               `json:"Initial_Amount" yaml:"Initial_Amount"`
	TargetDemographic             string                `json:"Target_Demographic" yaml:"Target_Demographic"`
	TargetAgeMin                  *float64              `json:"Target_Age_Min,omitempty" yaml:"Target_Age_Min"`
	TargetAgeMax                  *float64              `json:"Target_Age_Max,omitempty" yaml:"Target_Age_Max"`
	TargetResidentsOnly           int                   `json:"Target_Residents_Only" yaml:"Target_Residents_Only"`
	DemographicCoverage           float64               `json:"Demographic_Coverage" yaml:"Demographic_Coverage"`
	TriggerConditionList          []string              `json:"Trigger_Condition_List" yaml:"Trigger_Condition_List"`
	PropertyRestrictions          []PropertyRestriction `json:"Property_Restrictions_Within_Node" yaml:"Property_Restrictions_Within_Node"`
	NodePropertyRestrictions      []PropertyRestriction `json:"Node_Property_Restrictions,omitempty" yaml:"Node_Property_Restrictions"`
	InterventionConfig            Intervention          `json:"Intervention_Config" yaml:"-"`
}

func (CHWEventCoordinator) Class() string      { return "CommunityHealthWorkerEventCoordinator" }
func (CHWEventCoordinator) isEventCoordinator() {}

func (c CHWEventCoordinator) MarshalJSON() ([]byte, error) {
	type wire CHWEventCoordinator
	if c.PropertyRestrictions == nil {
		c.PropertyRestrictions = []PropertyRestriction{}
	}
	if c.TriggerConditionList == nil {
		c.TriggerConditionList = []string{}
	}
	return withClass(c.Class(), wire(c))
}

// DefaultCHWCoordinator returns the stock and shipment settings used when a
// scenario does not override them. Duration is left unset so the caller's
// listening duration applies.
func DefaultCHWCoordinator() CHWEventCoordinator {
	return CHWEventCoordinator{
		DistributionRate:              5,
		WaitingPeriod:                 7,
		DaysBetweenShipments:          90,
		AmountInShipment:              1000,
		MaxStock:                      1000,
		InitialAmountDistributionType: DelayFixed,
		InitialAmount:                 1000,
		TargetDemographic:             "Everyone",
		TargetResidentsOnly:           0,
		DemographicCoverage:           1,
		TriggerConditionList:          []string{"CHW_Give_Drugs"},
		PropertyRestrictions:          []PropertyRestriction{},
	}
}

// CampaignEvent is one entry of a campaign document.
type CampaignEvent struct {
	StartDay               float64          `json:"Start_Day"`
	EventName              string           `json:"Event_Name,omitempty"`
	NodesetConfig          NodeSet          `json:"Nodeset_Config"`
	EventCoordinatorConfig EventCoordinator `json:"Event_Coordinator_Config"`
}

func (CampaignEvent) Class() string { return "CampaignEvent" }

func (e CampaignEvent) MarshalJSON() ([]byte, error) {
	type wire CampaignEvent
	if e.NodesetConfig == nil {
		e.NodesetConfig = NodeSetAll{}
	}
	return withClass(e.Class(), wire(e))
}

// CampaignDocument is the campaign file consumed by the engine.
type CampaignDocument struct {
	CampaignName string          `json:"Campaign_Name,omitempty"`
	Events       []CampaignEvent `json:"Events"`
	UseDefaults  int             `json:"Use_Defaults"`
}
