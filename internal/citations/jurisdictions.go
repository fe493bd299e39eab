// -----------------------------------------------------------------------
// Jurisdiction tokens - alias tokens the verification filter uses to
// recognize a jurisdiction's courts in authority court strings
// -----------------------------------------------------------------------

package citations

import (
	"strings"
	"sync"
)

var (
	jurisdictionOnce   sync.Once
	jurisdictionTokens map[string][]string
)

// JurisdictionTokens returns the alias tokens identifying a jurisdiction's
// courts, beyond its full name: the neutral court codes and the table's
// jurisdiction_aliases, so every jurisdiction the table can emit as a hint
// has tokens without a second list to keep in sync. Lookup is
// case-insensitive; unknown jurisdictions return nil.
func JurisdictionTokens(jurisdiction string) []string {
	jurisdictionOnce.Do(buildJurisdictionTokens)
	return jurisdictionTokens[strings.ToLower(jurisdiction)]
}

// buildJurisdictionTokens derives the token map from the embedded table. A
// table that fails to parse leaves the map empty; the extractor loads the
// same table at startup and surfaces the error there.
func buildJurisdictionTokens() {
	jurisdictionTokens = make(map[string][]string)
	table, err := loadReporterTable()
	if err != nil {
		return
	}

	seen := make(map[string]map[string]bool)
	add := func(jurisdiction, token string) {
		key := strings.ToLower(jurisdiction)
		token = strings.ToLower(token)
		if token == "" {
			return
		}
		if seen[key] == nil {
			seen[key] = make(map[string]bool)
		}
		if seen[key][token] {
			return
		}
		seen[key][token] = true
		jurisdictionTokens[key] = append(jurisdictionTokens[key], token)
	}

	for code, jurisdiction := range table.NeutralCourts {
		add(jurisdiction, code)
	}
	for jurisdiction, aliases := range table.Aliases {
		for _, alias := range aliases {
			add(jurisdiction, alias)
		}
	}
}
