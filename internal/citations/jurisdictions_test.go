package citations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Neutral court codes double as verification-filter tokens, so every
// jurisdiction the codes can emit must resolve to at least its own code.
func TestJurisdictionTokensCoverNeutralCourts(t *testing.T) {
	table, err := loadReporterTable()
	require.NoError(t, err)

	for code, jurisdiction := range table.NeutralCourts {
		tokens := JurisdictionTokens(jurisdiction)
		assert.Contains(t, tokens, strings.ToLower(code),
			"jurisdiction %q must carry its neutral code %q", jurisdiction, code)
	}
}

func TestJurisdictionTokensIncludeAliases(t *testing.T) {
	assert.Contains(t, JurisdictionTokens("Washington"), "wn")
	assert.Contains(t, JurisdictionTokens("washington"), "wash")
	assert.Contains(t, JurisdictionTokens("New Mexico"), "nmca")
}

func TestJurisdictionTokensUnknownJurisdiction(t *testing.T) {
	assert.Empty(t, JurisdictionTokens("Atlantis"))
}

func TestAliasKeysMatchEmittedJurisdictions(t *testing.T) {
	table, err := loadReporterTable()
	require.NoError(t, err)

	emitted := table.emittedJurisdictions()
	for jurisdiction := range table.Aliases {
		assert.True(t, emitted[strings.ToLower(jurisdiction)],
			"alias key %q names no emitted jurisdiction", jurisdiction)
	}
}
