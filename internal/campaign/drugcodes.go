package campaign

import (
	"fmt"
	"sort"

	"github.com/ppiankov/malcamp/internal/model"
)

// DefaultCampaignDosing is the dosing of campaign drugs unless overridden.
const DefaultCampaignDosing = "FullTreatmentCourse"

var drugRegimens = map[string][]string{
	"AL":      {"Artemether", "Lumefantrine"},
	"ALP":     {"Artemether", "Lumefantrine", "Primaquine"},
	"AS":      {"Artesunate"},
	"ASA":     {"Artesunate", "Amodiaquine"},
	"ASAQ":    {"Artesunate", "Amodiaquine"},
	"CQ":      {"Chloroquine"},
	"DP":      {"DHA", "Piperaquine"},
	"DPP":     {"DHA", "Piperaquine", "Primaquine"},
	"PMQ":     {"Primaquine"},
	"PPQ":     {"Piperaquine"},
	"QN":      {"Quinine"},
	"SP":      {"Sulfadoxine", "Pyrimethamine"},
	"SPA":     {"Sulfadoxine", "Pyrimethamine", "Amodiaquine"},
	"Vehicle": {"Vehicle"},
}

// DrugCodes lists the known regimen codes, sorted.
func DrugCodes() []string {
	codes := make([]string, 0, len(drugRegimens))
	for code := range drugRegimens {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// DrugConfigsFromCode returns one AntimalarialDrug per drug of the regimen.
// An empty dosing uses DefaultCampaignDosing.
func DrugConfigsFromCode(code, dosing string) ([]model.Intervention, error) {
	names, ok := drugRegimens[code]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDrugCode, code)
	}
	if dosing == "" {
		dosing = DefaultCampaignDosing
	}
	out := make([]model.Intervention, 0, len(names))
	for _, name := range names {
		out = append(out, newDrug(name, dosing))
	}
	return out, nil
}
