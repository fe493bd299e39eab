package citations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanCaseName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "whitespace collapsed",
			in:   "  Lopez   Demetrio v.  Sakuma Bros. Farms ",
			want: "Lopez Demetrio v. Sakuma Bros. Farms",
		},
		{
			name: "leading see stripped",
			in:   "See Lopez v. Smith",
			want: "Lopez v. Smith",
		},
		{
			name: "see also stripped with trailing comma",
			in:   "see also Lopez v. Smith,",
			want: "Lopez v. Smith",
		},
		{
			name: "quoting stripped",
			in:   "quoting Am. Legion Post No. 32 v. City of Walla Walla,",
			want: "Am. Legion Post No. 32 v. City of Walla Walla",
		},
		{
			name: "see eg stripped",
			in:   "See, e.g., Smith v. Jones",
			want: "Smith v. Jones",
		},
		{
			name: "but cf stripped",
			in:   "but cf. Smith v. Jones",
			want: "Smith v. Jones",
		},
		{
			name: "open paren before signal stripped",
			in:   "(quoting Smith v. Jones",
			want: "Smith v. Jones",
		},
		{
			name: "signal prefix of a real name kept",
			in:   "Seegmiller v. Jones",
			want: "Seegmiller v. Jones",
		},
		{
			name: "abbreviation period kept",
			in:   "State v. M.Y.G.",
			want: "State v. M.Y.G.",
		},
		{
			name: "sentence period stripped",
			in:   "Smith v. Jones.",
			want: "Smith v. Jones",
		},
		{
			name: "short corporate suffix period kept",
			in:   "Smith v. Jones, Inc.",
			want: "Smith v. Jones, Inc.",
		},
		{
			name: "trailing separators trimmed",
			in:   "Smith v. Jones, ;",
			want: "Smith v. Jones",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanCaseName(tt.in))
		})
	}
}

func TestNamesAgree(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{"identical", "State v. M.Y.G.", "State v. M.Y.G.", true},
		{"case insensitive", "STATE V. M.Y.G.", "State v. M.Y.G.", true},
		{"signal word ignored", "See Lopez v. Smith", "Lopez v. Smith", true},
		{"different cases", "Lopez v. Smith", "Roe v. Wade", false},
		{"one empty", "Lopez v. Smith", "", false},
		{"both empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NamesAgree(tt.a, tt.b))
			assert.Equal(t, tt.want, NamesAgree(tt.b, tt.a))
		})
	}
}

func TestTokenSetSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{
			name: "identical names",
			a:    "Miranda v. Arizona",
			b:    "Miranda v. Arizona",
			want: 1.0,
		},
		{
			name: "abbreviations and suffixes normalized away",
			a:    "Lopez Demetrio v. Sakuma Bros. Farms",
			b:    "Lopez Demetrio v. Sakuma Brothers Farms, Inc.",
			want: 1.0,
		},
		{
			name: "extra noise token only",
			a:    "Miranda v. Arizona",
			b:    "Miranda v. State of Arizona",
			want: 2.0 / 3.0,
		},
		{
			name: "unrelated names",
			a:    "Roe v. Wade",
			b:    "Brown v. Board of Education",
			want: 0,
		},
		{
			name: "empty side scores zero",
			a:    "",
			b:    "Roe v. Wade",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TokenSetSimilarity(tt.a, tt.b), 0.001)
			assert.InDelta(t, tt.want, TokenSetSimilarity(tt.b, tt.a), 0.001)
		})
	}
}

func TestFindCaseName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hamaatsa, Inc. v. Pueblo of San Felipe :: 2017-NM-007", "Hamaatsa, Inc. v. Pueblo of San Felipe"},
		{"State v. M.Y.G., 199 Wn.2d 528 - CourtListener", "State v. M.Y.G."},
		{"See Lopez v. Smith", "Lopez v. Smith"},
		{"no case name here", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FindCaseName(tt.in), "input %q", tt.in)
	}
}

func TestTokenSetSimilarityThreshold(t *testing.T) {
	// The verification filter accepts candidates at 0.6; these pairs sit
	// on either side of that line.
	accept := TokenSetSimilarity(
		"Lopez Demetrio v. Sakuma Bros. Farms",
		"Lopez Demetrio v. Sakuma Brothers Farms LLC",
	)
	assert.GreaterOrEqual(t, accept, 0.6)

	reject := TokenSetSimilarity(
		"Lopez Demetrio v. Sakuma Bros. Farms",
		"Demetrio Holdings v. Cascade Orchards",
	)
	assert.Less(t, reject, 0.6)
}
