// Package builder accumulates the engine configuration, campaign and report
// documents for one simulation.
package builder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ppiankov/malcamp/internal/model"
)

// File names written for each simulation.
const (
	ConfigFile   = "config.json"
	CampaignFile = "campaign.json"
	ReportsFile  = "custom_reports.json"
)

const listedEventsKey = "Listed_Events"

// ConfigBuilder holds simulation parameters, the ordered campaign event list
// and requested reports. It is not safe for concurrent use; Clone it per
// simulation.
type ConfigBuilder struct {
	params       map[string]any
	listedEvents []string
	listed       map[string]bool
	events       []model.CampaignEvent
	reports      []model.Report
	tags         map[string]any
	campaignName string
}

// New creates a builder for the given engine simulation type.
func New(simulationType string) *ConfigBuilder {
	cb := &ConfigBuilder{
		params: make(map[string]any),
		listed: make(map[string]bool),
		tags:   make(map[string]any),
	}
	if simulationType != "" {
		cb.params["Simulation_Type"] = simulationType
	}
	cb.params["Enable_Interventions"] = 1
	cb.params["Campaign_Filename"] = CampaignFile
	return cb
}

// AddEvent appends a campaign event.
func (cb *ConfigBuilder) AddEvent(event model.CampaignEvent) {
	cb.events = append(cb.events, event)
}

// EventCount returns the number of campaign events added so far.
func (cb *ConfigBuilder) EventCount() int {
	return len(cb.events)
}

// Events returns a copy of the campaign event list.
func (cb *ConfigBuilder) Events() []model.CampaignEvent {
	return append([]model.CampaignEvent(nil), cb.events...)
}

// ListEvent declares a custom broadcast event in Listed_Events.
// Duplicates and empty names are ignored.
func (cb *ConfigBuilder) ListEvent(name string) {
	if name == "" || cb.listed[name] {
		return
	}
	cb.listed[name] = true
	cb.listedEvents = append(cb.listedEvents, name)
}

// ListedEvents returns the declared events in declaration order.
func (cb *ConfigBuilder) ListedEvents() []string {
	return append([]string(nil), cb.listedEvents...)
}

// SetParam sets one engine parameter.
func (cb *ConfigBuilder) SetParam(key string, value any) {
	if key == listedEventsKey {
		cb.listValues(value)
		return
	}
	cb.params[key] = value
}

// UpdateParams merges engine parameters. A Listed_Events entry is appended to
// the declared events rather than replacing them.
func (cb *ConfigBuilder) UpdateParams(params map[string]any) {
	for k, v := range params {
		cb.SetParam(k, v)
	}
}

// Param returns an engine parameter.
func (cb *ConfigBuilder) Param(key string) (any, bool) {
	if key == listedEventsKey {
		return cb.ListedEvents(), true
	}
	v, ok := cb.params[key]
	return v, ok
}

func (cb *ConfigBuilder) listValues(value any) {
	switch v := value.(type) {
	case []string:
		for _, name := range v {
			cb.ListEvent(name)
		}
	case []any:
		for _, name := range v {
			if s, ok := name.(string); ok {
				cb.ListEvent(s)
			}
		}
	case string:
		cb.ListEvent(v)
	}
}

// AddReport requests a custom engine report.
func (cb *ConfigBuilder) AddReport(r model.Report) {
	cb.reports = append(cb.reports, r)
}

// Reports returns the requested reports.
func (cb *ConfigBuilder) Reports() []model.Report {
	return append([]model.Report(nil), cb.reports...)
}

// SetTag records a simulation tag, typically returned by a campaign builder.
func (cb *ConfigBuilder) SetTag(key string, value any) {
	cb.tags[key] = value
}

// Tags returns a copy of the recorded tags.
func (cb *ConfigBuilder) Tags() map[string]any {
	out := make(map[string]any, len(cb.tags))
	for k, v := range cb.tags {
		out[k] = v
	}
	return out
}

// SetCampaignName sets the Campaign_Name of the campaign document.
func (cb *ConfigBuilder) SetCampaignName(name string) {
	cb.campaignName = name
}

// Clone returns an independent copy. Events and reports are immutable values
// and are shared.
func (cb *ConfigBuilder) Clone() *ConfigBuilder {
	out := &ConfigBuilder{
		params:       make(map[string]any, len(cb.params)),
		listedEvents: append([]string(nil), cb.listedEvents...),
		listed:       make(map[string]bool, len(cb.listed)),
		events:       append([]model.CampaignEvent(nil), cb.events...),
		reports:      append([]model.Report(nil), cb.reports...),
		tags:         cb.Tags(),
		campaignName: cb.campaignName,
	}
	for k, v := range cb.params {
		out.params[k] = v
	}
	for k := range cb.listed {
		out.listed[k] = true
	}
	return out
}

// Campaign returns the campaign document.
func (cb *ConfigBuilder) Campaign() model.CampaignDocument {
	events := cb.Events()
	if events == nil {
		events = []model.CampaignEvent{}
	}
	return model.CampaignDocument{
		CampaignName: cb.campaignName,
		Events:       events,
		UseDefaults:  1,
	}
}

// ConfigJSON renders config.json.
func (cb *ConfigBuilder) ConfigJSON() ([]byte, error) {
	params := make(map[string]any, len(cb.params)+1)
	for k, v := range cb.params {
		params[k] = v
	}
	listed := cb.ListedEvents()
	if listed == nil {
		listed = []string{}
	}
	params[listedEventsKey] = listed
	if len(cb.reports) > 0 {
		params["Custom_Reports_Filename"] = ReportsFile
	}

	data, err := json.MarshalIndent(map[string]any{"parameters": params}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// CampaignJSON renders campaign.json.
func (cb *ConfigBuilder) CampaignJSON() ([]byte, error) {
	data, err := json.MarshalIndent(cb.Campaign(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal campaign: %w", err)
	}
	return data, nil
}

// ReportsJSON renders custom_reports.json.
func (cb *ConfigBuilder) ReportsJSON() ([]byte, error) {
	reports := cb.Reports()
	if reports == nil {
		reports = []model.Report{}
	}
	data, err := json.MarshalIndent(model.ReportsDocument{Reports: reports, UseDefaults: 1}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal reports: %w", err)
	}
	return data, nil
}

// Files renders every input file of the simulation keyed by file name.
// custom_reports.json is only present when reports were requested.
func (cb *ConfigBuilder) Files() (map[string][]byte, error) {
	files := make(map[string][]byte, 3)

	config, err := cb.ConfigJSON()
	if err != nil {
		return nil, err
	}
	files[ConfigFile] = config

	campaign, err := cb.CampaignJSON()
	if err != nil {
		return nil, err
	}
	files[CampaignFile] = campaign

	if len(cb.reports) > 0 {
		reports, err := cb.ReportsJSON()
		if err != nil {
			return nil, err
		}
		files[ReportsFile] = reports
	}
	return files, nil
}

// WriteFiles writes the simulation input files into dir and returns their paths.
func (cb *ConfigBuilder) WriteFiles(dir string) ([]string, error) {
	files, err := cb.Files()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, files[name], 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
