package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/shepard/internal/authority"
	"github.com/ternarybob/shepard/internal/models"
)

func washingtonCitation() *models.Citation {
	return &models.Citation{
		Text:              "183 Wn.2d 649",
		Reporter:          "Wn.2d",
		ReporterFamily:    "washington_official",
		Volume:            183,
		Page:              649,
		JurisdictionHint:  "Washington",
		ExtractedCaseName: "Lopez Demetrio v. Sakuma Bros. Farms",
		ExtractedDate:     "2015",
		Verified:          models.VerifiedNone,
	}
}

func TestAcceptCandidateHappyPath(t *testing.T) {
	cit := washingtonCitation()
	cands := []authority.CaseCandidate{
		{
			NameSnake:  "Lopez Demetrio v. Sakuma Brothers Farms, Inc.",
			FiledSnake: "2015-07-16",
			Court:      "Washington Supreme Court",
		},
	}

	cand, fail := acceptCandidate(cit, cands)
	require.Nil(t, fail)
	require.NotNil(t, cand)
	assert.Equal(t, "Lopez Demetrio v. Sakuma Brothers Farms, Inc.", cand.Name())
}

func TestAcceptCandidateJurisdictionGate(t *testing.T) {
	cit := washingtonCitation()
	cit.ExtractedCaseName = "Lopez Demetrio v. Sakuma Bros. Farms"

	cands := []authority.CaseCandidate{
		{
			NameSnake:  "Lopez Demetrio v. Sakuma Brothers Farms, Inc.",
			FiledSnake: "2015-07-16",
			Court:      "Oregon Court of Appeals",
		},
	}

	cand, fail := acceptCandidate(cit, cands)
	assert.Nil(t, cand)
	require.NotNil(t, fail)
	assert.Equal(t, models.FailureJurisdictionMismatch, fail.Kind)
}

func TestAcceptCandidateNameGate(t *testing.T) {
	cit := washingtonCitation()
	cands := []authority.CaseCandidate{
		{
			NameSnake:  "State v. Gregory",
			FiledSnake: "2015-02-01",
			Court:      "Washington Supreme Court",
		},
	}

	cand, fail := acceptCandidate(cit, cands)
	assert.Nil(t, cand)
	require.NotNil(t, fail)
	assert.Equal(t, models.FailureNameMismatch, fail.Kind)
}

func TestAcceptCandidateYearGate(t *testing.T) {
	cit := washingtonCitation()
	cands := []authority.CaseCandidate{
		{
			NameSnake:  "Lopez Demetrio v. Sakuma Brothers Farms, Inc.",
			FiledSnake: "2009-07-16", // six years off
			Court:      "Washington Supreme Court",
		},
	}

	cand, fail := acceptCandidate(cit, cands)
	assert.Nil(t, cand)
	require.NotNil(t, fail)
	assert.Equal(t, models.FailureDateMismatch, fail.Kind)

	// Two years off is still inside the window.
	cands[0].FiledSnake = "2013-07-16"
	cand, fail = acceptCandidate(cit, cands)
	assert.Nil(t, fail)
	require.NotNil(t, cand)
}

func TestAcceptCandidateNoNameRequiresSoleCandidate(t *testing.T) {
	cit := washingtonCitation()
	cit.ExtractedCaseName = ""

	two := []authority.CaseCandidate{
		{NameSnake: "Case A v. B", Court: "Washington Supreme Court"},
		{NameSnake: "Case C v. D", Court: "Washington Supreme Court"},
	}
	cand, fail := acceptCandidate(cit, two)
	assert.Nil(t, cand)
	require.NotNil(t, fail)

	one := two[:1]
	one[0].FiledSnake = "2015-01-01"
	cand, fail = acceptCandidate(cit, one)
	assert.Nil(t, fail)
	require.NotNil(t, cand)

	// Sole candidate still fails on jurisdiction.
	one[0].Court = "Supreme Court of Texas"
	cand, fail = acceptCandidate(cit, one)
	assert.Nil(t, cand)
	require.NotNil(t, fail)
	assert.Equal(t, models.FailureJurisdictionMismatch, fail.Kind)
}

func TestAcceptCandidateRanksBySimilarity(t *testing.T) {
	cit := washingtonCitation()
	cands := []authority.CaseCandidate{
		{
			NameSnake:  "Lopez v. Sakuma", // passes, but fewer shared tokens
			FiledSnake: "2015-07-16",
			Court:      "Washington Supreme Court",
		},
		{
			NameSnake:  "Lopez Demetrio v. Sakuma Brothers Farms",
			FiledSnake: "2015-07-16",
			Court:      "Washington Supreme Court",
		},
	}

	cand, fail := acceptCandidate(cit, cands)
	require.Nil(t, fail)
	require.NotNil(t, cand)
	assert.Equal(t, "Lopez Demetrio v. Sakuma Brothers Farms", cand.Name())
}

func TestAcceptCandidateEmptyCourtPasses(t *testing.T) {
	cit := washingtonCitation()
	cands := []authority.CaseCandidate{
		{
			NameSnake:  "Lopez Demetrio v. Sakuma Brothers Farms",
			FiledSnake: "2015-07-16",
		},
	}
	cand, fail := acceptCandidate(cit, cands)
	assert.Nil(t, fail)
	require.NotNil(t, cand, "a candidate with no court information is not a known mismatch")
}

func TestAcceptCandidateNeutralCitationHomeCourt(t *testing.T) {
	cit := &models.Citation{
		Text:              "2021 ND 123",
		Reporter:          "ND",
		ReporterFamily:    "neutral",
		Volume:            2021,
		Page:              123,
		JurisdictionHint:  "North Dakota",
		ExtractedCaseName: "Smith v. Jones",
		Verified:          models.VerifiedNone,
	}
	cands := []authority.CaseCandidate{
		{NameSnake: "Smith v. Jones", Court: "North Dakota Supreme Court"},
	}

	cand, fail := acceptCandidate(cit, cands)
	require.Nil(t, fail)
	require.NotNil(t, cand)
	assert.Equal(t, "Smith v. Jones", cand.Name())
}

// Every jurisdiction a neutral court code can put on a citation must accept
// that state's own courts; the gate rejecting a home-state court strands the
// citation unverified on both the batch and search paths.
func TestJurisdictionCompatibleCoversNeutralCourtStates(t *testing.T) {
	tests := []struct {
		hint  string
		court string
	}{
		{"New Mexico", "New Mexico Court of Appeals"},
		{"North Dakota", "North Dakota Supreme Court"},
		{"South Dakota", "South Dakota Supreme Court"},
		{"Utah", "Utah Supreme Court"},
		{"Vermont", "Vermont Supreme Court"},
		{"Wisconsin", "Wisconsin Supreme Court"},
		{"Wyoming", "Wyoming Supreme Court"},
		{"Montana", "Montana Supreme Court"},
		{"Oklahoma", "Oklahoma Court of Criminal Appeals"},
		{"Ohio", "Supreme Court of Ohio"},
		{"Arkansas", "Arkansas Supreme Court"},
		{"Maine", "Maine Supreme Judicial Court"},
		{"Mississippi", "Mississippi Supreme Court"},
		{"Louisiana", "Louisiana Supreme Court"},
		{"Colorado", "Colorado Supreme Court"},
	}

	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			assert.True(t, jurisdictionCompatible(tt.hint, tt.court),
				"%s must accept %q", tt.hint, tt.court)
		})
	}
}

func TestJurisdictionCompatibleNeutralCourtCodes(t *testing.T) {
	// Authority court ids are often just the code.
	assert.True(t, jurisdictionCompatible("North Dakota", "nd"))
	assert.True(t, jurisdictionCompatible("Wisconsin", "wi"))
	assert.True(t, jurisdictionCompatible("Louisiana", "la"))
}

func TestJurisdictionCompatibleDakotasStaySeparate(t *testing.T) {
	assert.False(t, jurisdictionCompatible("North Dakota", "South Dakota Supreme Court"))
	assert.False(t, jurisdictionCompatible("South Dakota", "North Dakota Supreme Court"))
}

func TestJurisdictionCompatible(t *testing.T) {
	tests := []struct {
		name  string
		hint  string
		court string
		want  bool
	}{
		{"no hint accepts anything", "", "Supreme Court of Texas", true},
		{"washington full name", "Washington", "Washington Supreme Court", true},
		{"washington court id", "Washington", "wash", true},
		{"washington vs oregon", "Washington", "Oregon Supreme Court", false},
		{"federal scotus", "federal", "Supreme Court of the United States scotus", true},
		{"federal circuit", "federal", "Court of Appeals for the Ninth Circuit", true},
		{"federal court id", "federal", "ca9", true},
		{"federal cafc", "federal", "cafc", true},
		{"federal vs state", "federal", "Washington Supreme Court", false},
		{"cal court id not federal", "federal", "cal", false},
		{"new mexico id", "New Mexico", "nm", true},
		{"new mexico name", "New Mexico", "Supreme Court of New Mexico", true},
		{"nm token must not fire inside words", "New Mexico", "government printing office", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, jurisdictionCompatible(tt.hint, tt.court))
		})
	}
}
