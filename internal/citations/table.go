// -----------------------------------------------------------------------
// Reporter table - embedded YAML describing every reporter series the
// extractor recognizes, plus neutral court codes and statute patterns
// -----------------------------------------------------------------------

package citations

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed reporters.yaml
var reportersYAML []byte

// Pattern classes in overlap-priority order. When two patterns match
// overlapping spans of equal length, the higher class wins.
const (
	classNeutral    = "neutral"
	classOfficial   = "official"
	classRegional   = "regional"
	classCommercial = "commercial"
)

var classPriority = map[string]int{
	classNeutral:    400,
	classOfficial:   300,
	classRegional:   200,
	classCommercial: 100,
}

// FamilyNeutral is the reporter family shared by all neutral citations.
// A case carries at most one neutral citation, so neutral citations are
// never parallel to each other.
const FamilyNeutral = "neutral"

// FamilyWestlaw is the reporter family for Westlaw weekly citations.
const FamilyWestlaw = "westlaw"

type reporterTable struct {
	Families      []familySpec        `yaml:"families"`
	Westlaw       reporterSpec        `yaml:"westlaw"`
	NeutralCourts map[string]string   `yaml:"neutral_courts"`
	Aliases       map[string][]string `yaml:"jurisdiction_aliases"`
	Statutes      []statuteSpec       `yaml:"statutes"`
}

type familySpec struct {
	Family       string         `yaml:"family"`
	Class        string         `yaml:"class"`
	Jurisdiction string         `yaml:"jurisdiction"`
	Reporters    []reporterSpec `yaml:"reporters"`
}

type reporterSpec struct {
	Tag   string `yaml:"tag"`
	Match string `yaml:"match"`
}

type statuteSpec struct {
	Name  string `yaml:"name"`
	Match string `yaml:"match"`
}

// loadReporterTable parses and sanity-checks the embedded table.
func loadReporterTable() (*reporterTable, error) {
	var table reporterTable
	if err := yaml.Unmarshal(reportersYAML, &table); err != nil {
		return nil, fmt.Errorf("failed to parse reporter table: %w", err)
	}

	if len(table.Families) == 0 {
		return nil, fmt.Errorf("reporter table has no families")
	}
	seen := make(map[string]bool)
	for _, fam := range table.Families {
		if fam.Family == "" {
			return nil, fmt.Errorf("reporter family with empty name")
		}
		if seen[fam.Family] {
			return nil, fmt.Errorf("duplicate reporter family %q", fam.Family)
		}
		seen[fam.Family] = true
		if _, ok := classPriority[fam.Class]; !ok {
			return nil, fmt.Errorf("family %q has unknown class %q", fam.Family, fam.Class)
		}
		if len(fam.Reporters) == 0 {
			return nil, fmt.Errorf("family %q has no reporters", fam.Family)
		}
		for _, rep := range fam.Reporters {
			if rep.Tag == "" || rep.Match == "" {
				return nil, fmt.Errorf("family %q has a reporter with empty tag or match", fam.Family)
			}
		}
	}
	if table.Westlaw.Tag == "" || table.Westlaw.Match == "" {
		return nil, fmt.Errorf("reporter table is missing the westlaw entry")
	}
	if len(table.NeutralCourts) == 0 {
		return nil, fmt.Errorf("reporter table has no neutral court codes")
	}

	// Court codes are matched case-sensitively by the neutral patterns but
	// looked up uppercase, so normalize the map keys once here.
	courts := make(map[string]string, len(table.NeutralCourts))
	for code, jurisdiction := range table.NeutralCourts {
		courts[strings.ToUpper(code)] = jurisdiction
	}
	table.NeutralCourts = courts

	// Alias keys must name a jurisdiction the table can actually emit, so
	// a renamed jurisdiction cannot silently strand its aliases.
	emitted := table.emittedJurisdictions()
	for jurisdiction := range table.Aliases {
		if !emitted[strings.ToLower(jurisdiction)] {
			return nil, fmt.Errorf("jurisdiction_aliases entry %q matches no reporter family or neutral court", jurisdiction)
		}
	}

	return &table, nil
}

// emittedJurisdictions collects every state jurisdiction hint the table can
// put on a citation, lowercased.
func (t *reporterTable) emittedJurisdictions() map[string]bool {
	emitted := make(map[string]bool)
	for _, fam := range t.Families {
		if fam.Jurisdiction != "" && !strings.EqualFold(fam.Jurisdiction, "federal") {
			emitted[strings.ToLower(fam.Jurisdiction)] = true
		}
	}
	for _, jurisdiction := range t.NeutralCourts {
		emitted[strings.ToLower(jurisdiction)] = true
	}
	return emitted
}
