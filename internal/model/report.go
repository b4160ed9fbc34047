package model

import "fmt"

// Report is an engine output report requested through custom_reports.json.
type Report interface {
	Class() string
	isReport()
}

// MalariaSummaryReport aggregates prevalence and incidence by age bin into
// output/MalariaSummaryReport_<Description>.json.
type MalariaSummaryReport struct {
	StartDay           float64   `json:"Start_Day" yaml:"start_day"`
	ReportingInterval  float64   `json:"Reporting_Interval" yaml:"interval"`
	MaxNumberReports   int       `json:"Max_Number_Reports" yaml:"nreports"`
	AgeBins            []float64 `json:"Age_Bins" yaml:"age_bins"`
	ParasitemiaBins    []float64 `json:"Parasitemia_Bins" yaml:"parasitemia_bins"`
	InfectiousnessBins []float64 `json:"Infectiousness_Bins" yaml:"infection_bins"`
	Description        string    `json:"Description" yaml:"description"`
	NodeIDs            []int     `json:"-" yaml:"nodes"`
	IPFilter           string    `json:"Individual_Property_Filter,omitempty" yaml:"ipfilter"`
}

func (MalariaSummaryReport) Class() string { return "MalariaSummaryReport" }
func (MalariaSummaryReport) isReport()     {}

func (r MalariaSummaryReport) MarshalJSON() ([]byte, error) {
	type wire MalariaSummaryReport
	return withClass(r.Class(), struct {
		wire
		Nodes NodeSet `json:"Nodeset_Config"`
	}{wire(r), NewNodeSet(r.NodeIDs)})
}

// OutputFile is the path of the report inside a simulation's working directory.
func (r MalariaSummaryReport) OutputFile() string {
	return fmt.Sprintf("output/MalariaSummaryReport_%s.json", r.Description)
}

// DefaultSummaryReport returns an annual summary report over all ages.
func DefaultSummaryReport(description string) MalariaSummaryReport {
	if description == "" {
		description = "Annual_Report"
	}
	return MalariaSummaryReport{
		StartDay:           1,
		ReportingInterval:  365,
		MaxNumberReports:   2000,
		AgeBins:            []float64{1000},
		ParasitemiaBins:    []float64{0, 50, 500, 5000, 5000000},
		InfectiousnessBins: []float64{0, 5, 20, 50, 80, 100},
		Description:        description,
	}
}

// ReportEventCounter counts broadcasts of the listed events per day.
type ReportEventCounter struct {
	StartDay         float64  `json:"Start_Day" yaml:"start_day"`
	DurationDays     float64  `json:"Duration_Days" yaml:"duration"`
	EventTriggerList []string `json:"Event_Trigger_List" yaml:"events"`
	Description      string   `json:"Report_Description,omitempty" yaml:"description"`
	NodeIDs          []int    `json:"-" yaml:"nodes"`
}

func (ReportEventCounter) Class() string { return "ReportEventCounter" }
func (ReportEventCounter) isReport()     {}

func (r ReportEventCounter) MarshalJSON() ([]byte, error) {
	type wire ReportEventCounter
	if r.EventTriggerList == nil {
		r.EventTriggerList = []string{}
	}
	return withClass(r.Class(), struct {
		wire
		Nodes NodeSet `json:"Nodeset_Config"`
	}{wire(r), NewNodeSet(r.NodeIDs)})
}

// ReportMalariaFiltered is the standard inset chart restricted to a node subset.
type ReportMalariaFiltered struct {
	StartDay    float64 `json:"Start_Day" yaml:"start_day"`
	EndDay      float64 `json:"End_Day" yaml:"end_day"`
	NodeIDs     []int   `json:"Node_IDs_Of_Interest" yaml:"nodes"`
	Description string  `json:"Report_Description,omitempty" yaml:"description"`
}

func (ReportMalariaFiltered) Class() string { return "ReportMalariaFiltered" }
func (ReportMalariaFiltered) isReport()     {}

func (r ReportMalariaFiltered) MarshalJSON() ([]byte, error) {
	type wire ReportMalariaFiltered
	if r.NodeIDs == nil {
		r.NodeIDs = []int{}
	}
	return withClass(r.Class(), wire(r))
}

// SpatialReportMalariaFiltered writes per-node channels for a node subset.
type SpatialReportMalariaFiltered struct {
	StartDay    float64  `json:"Start_Day" yaml:"start_day"`
	EndDay      float64  `json:"End_Day" yaml:"end_day"`
	NodeIDs     []int    `json:"Node_IDs_Of_Interest" yaml:"nodes"`
	Channels    []string `json:"Spatial_Output_Channels" yaml:"channels"`
	Description string   `json:"Report_Description,omitempty" yaml:"description"`
}

func (SpatialReportMalariaFiltered) Class() string { return "SpatialReportMalariaFiltered" }
func (SpatialReportMalariaFiltered) isReport()     {}

func (r SpatialReportMalariaFiltered) MarshalJSON() ([]byte, error) {
	type wire SpatialReportMalariaFiltered
	if r.NodeIDs == nil {
		r.NodeIDs = []int{}
	}
	if r.Channels == nil {
		r.Channels = []string{}
	}
	return withClass(r.Class(), wire(r))
}

// ReportsDocument is the custom_reports.json file.
type ReportsDocument struct {
	Reports     []Report `json:"Reports"`
	UseDefaults int      `json:"Use_Defaults"`
}
