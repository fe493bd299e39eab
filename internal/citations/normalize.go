// -----------------------------------------------------------------------
// Case-name normalization and similarity - shared by the extractor,
// the proximity clusterer, and the verification acceptance filter
// -----------------------------------------------------------------------

package citations

import (
	"strings"
	"unicode"
)

// signalWords are legal-writing introducers stripped from the left edge of
// extracted case names and ignored during similarity scoring. Longer
// phrases come first so "see also" is consumed before "see".
var signalWords = []string{
	"see generally",
	"see, e.g.,",
	"see also",
	"but see",
	"see",
	"e.g.",
	"accord",
	"cf.",
	"but cf.",
	"quoting",
	"citing",
	"compare",
	"contra",
}

// noiseTokens never contribute to name similarity: party connectives,
// procedural markers, honorifics, and corporate suffixes.
var noiseTokens = map[string]bool{
	"v": true, "vs": true, "of": true, "the": true, "and": true, "for": true,
	"a": true, "an": true, "in": true, "re": true, "ex": true, "rel": true,
	"et": true, "al": true, "ux": true,
	"mr": true, "mrs": true, "ms": true, "dr": true, "hon": true, "esq": true,
	"inc": true, "llc": true, "llp": true, "ltd": true, "corp": true,
	"co": true, "lp": true, "plc": true, "pllc": true, "ps": true, "na": true,
}

// tokenAliases folds common abbreviations onto the forms authorities tend
// to return, so "Sakuma Bros." still scores against "Sakuma Brothers".
var tokenAliases = map[string]string{
	"bros":  "brothers",
	"am":    "american",
	"amer":  "american",
	"assn":  "association",
	"ass'n": "association",
	"dept":  "department",
	"dep't": "department",
	"natl":  "national",
	"nat'l": "national",
	"intl":  "international",
	"int'l": "international",
	"univ":  "university",
	"cty":   "county",
	"mfg":   "manufacturing",
	"bd":    "board",
	"comm":  "commission",
	"sch":   "school",
	"dist":  "district",
	"hosp":  "hospital",
	"ins":   "insurance",
}

// NormalizeCaseName collapses internal whitespace (including line breaks
// introduced by wrapped text) to single spaces and trims the ends.
func NormalizeCaseName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// StripSignalWords removes leading signal words ("see", "quoting", ...)
// from a case name, repeating until none remain.
func StripSignalWords(name string) string {
	name = strings.TrimLeft(name, " \t([,")
	for {
		lower := strings.ToLower(name)
		stripped := false
		for _, sig := range signalWords {
			if strings.HasPrefix(lower, sig) {
				rest := name[len(sig):]
				// Only strip when the signal is a whole word, not a
				// prefix of a party name ("Seegmiller").
				if rest == "" || rest[0] == ' ' || rest[0] == ',' || rest[0] == '\t' {
					name = strings.TrimLeft(rest, " \t,")
					stripped = true
					break
				}
			}
		}
		if !stripped {
			return name
		}
	}
}

// CleanCaseName applies the full cleanup used on extracted names:
// whitespace normalization, signal stripping, and trailing punctuation
// removal. Trailing periods survive when they terminate an abbreviation
// ("State v. M.Y.G." keeps its period, "Smith v. Jones." loses it).
func CleanCaseName(name string) string {
	name = NormalizeCaseName(name)
	name = StripSignalWords(name)
	name = strings.TrimRight(name, " \t,;:")
	if strings.HasSuffix(name, ".") {
		last := name
		if idx := strings.LastIndex(name, " "); idx >= 0 {
			last = name[idx+1:]
		}
		bare := strings.TrimSuffix(last, ".")
		if !strings.Contains(bare, ".") && len(bare) > 3 {
			name = strings.TrimSuffix(name, ".")
		}
	}
	return name
}

// NamesAgree reports whether two extracted case names refer to the same
// caption: case-insensitive equality after signal stripping and whitespace
// normalization. Used by the proximity clusterer, which must not guess
// beyond what the document says.
func NamesAgree(a, b string) bool {
	na := strings.ToLower(CleanCaseName(a))
	nb := strings.ToLower(CleanCaseName(b))
	return na != "" && na == nb
}

// nameTokens splits a case name into its scoring token set: lowercased,
// punctuation removed, noise tokens dropped, abbreviations expanded.
func nameTokens(name string) map[string]bool {
	name = strings.ToLower(StripSignalWords(NormalizeCaseName(name)))
	tokens := make(map[string]bool)
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		tok := b.String()
		b.Reset()
		if alias, ok := tokenAliases[tok]; ok {
			tok = alias
		}
		if noiseTokens[tok] || tok == "" {
			return
		}
		tokens[tok] = true
	}
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// TokenSetSimilarity scores two case names in [0,1] as the Jaccard overlap
// of their token sets. The verification filter accepts candidates at 0.6
// and above.
func TokenSetSimilarity(a, b string) float64 {
	ta := nameTokens(a)
	tb := nameTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	intersection := 0
	for tok := range ta {
		if tb[tok] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
