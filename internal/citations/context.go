// -----------------------------------------------------------------------
// Context extraction - recovers case names and years from the text
// surrounding a citation without leaking adjacent material
// -----------------------------------------------------------------------

package citations

import (
	"regexp"

	"github.com/ternarybob/shepard/internal/models"
)

const (
	// Left context window: up to 200 bytes ending at the citation start.
	contextLeftWindow = 200
	// Right context window: up to 50 bytes from the citation end.
	contextRightWindow = 50
	// Bare years (outside parentheses) are only trusted this close to
	// the citation end.
	bareYearScan = 15
)

// Case-name grammar: capitalized tokens joined by whitespace, with the
// lowercase connectives and numbered parties legal captions carry, on both
// sides of "v." or "vs.". Corporate designators may follow a comma
// ("Hamaatsa, Inc."). Commas otherwise end a party, which keeps trailing
// citations out of captured names.
const (
	partyToken  = `(?:[A-Z][A-Za-z0-9&'.\-]*|&|of|the|and|for|van|von|de|del|la|ex|rel\.|et|al\.|\d+(?:st|nd|rd|th)?)`
	partySuffix = `(?:,\s?(?:Inc|Corp|Co|LLC|L\.L\.C|Ltd|LLP|L\.P|P\.S|P\.C|N\.A)\.?)*`
	partyExpr   = partyToken + `(?:\s+` + partyToken + `)*` + partySuffix
)

var (
	caseNameRe   = regexp.MustCompile(partyExpr + `\s+vs?\.\s+` + partyExpr)
	parenGroupRe = regexp.MustCompile(`\(([^()]*)\)`)
	yearRe       = regexp.MustCompile(`\b(1[6-9]\d{2}|20\d{2})\b`)
)

// applyContext fills ExtractedCaseName and ExtractedDate from the windows
// around the citation span. Indices are always into the original text.
func (e *Extractor) applyContext(text string, c *models.Citation) {
	lo, hi := leftWindow(text, c.Span.Start)
	if name := e.caseNameFromWindow(text[lo:hi]); name != "" {
		c.ExtractedCaseName = name
	}
	rlo, rhi := rightWindow(text, c.Span.End)
	if year := yearFromWindow(text[rlo:rhi]); year != "" {
		c.ExtractedDate = year
	}
}

// leftWindow returns the [lo,hi) bounds of the left context window,
// clipped at the last sentence terminator. Only a terminator preceded by
// whitespace ends a sentence here: abbreviation periods ("v.", "Bros.")
// attach to their word and must not clip the window.
func leftWindow(text string, start int) (int, int) {
	lo := start - contextLeftWindow
	if lo < 0 {
		lo = 0
	}
	for i := start - 1; i >= lo; i-- {
		if isTerminator(text[i]) && i > 0 && isSpaceByte(text[i-1]) {
			return i + 1, start
		}
	}
	return lo, start
}

// rightWindow returns the [lo,hi) bounds of the right context window,
// clipped at the first standalone sentence terminator.
func rightWindow(text string, end int) (int, int) {
	hi := end + contextRightWindow
	if hi > len(text) {
		hi = len(text)
	}
	for j := end; j < hi; j++ {
		if isTerminator(text[j]) && j > 0 && isSpaceByte(text[j-1]) {
			return end, j
		}
	}
	return end, hi
}

// FindCaseName returns the first case-name expression in s, cleaned of
// leading signal words and trailing punctuation, or "" when none matches.
// Used by the fallback verifier to read names out of fetched page titles.
func FindCaseName(s string) string {
	loc := caseNameRe.FindStringIndex(s)
	if loc == nil {
		return ""
	}
	return CleanCaseName(s[loc[0]:loc[1]])
}

// caseNameFromWindow picks the "… v. …" candidate closest to the citation
// (largest start within the left window) and cleans it up.
func (e *Extractor) caseNameFromWindow(window string) string {
	matches := caseNameRe.FindAllStringIndex(window, -1)
	if len(matches) == 0 {
		return ""
	}
	last := matches[len(matches)-1]
	return e.cleanExtractedName(window[last[0]:last[1]])
}

// cleanExtractedName normalizes a captured case name and cuts off any
// citation token that leaked into it. A name that no longer has the
// "… v. …" form after cleanup is discarded.
func (e *Extractor) cleanExtractedName(raw string) string {
	name := CleanCaseName(raw)
	if name == "" {
		return ""
	}
	if cut := e.earliestCitationMatch(name); cut >= 0 {
		name = CleanCaseName(name[:cut])
	}
	if name == "" || !caseNameRe.MatchString(name) {
		return ""
	}
	return name
}

// earliestCitationMatch returns the start of the first citation pattern
// match inside s, or -1 when none match.
func (e *Extractor) earliestCitationMatch(s string) int {
	earliest := -1
	for _, pat := range e.patterns {
		if loc := pat.re.FindStringIndex(s); loc != nil {
			if earliest < 0 || loc[0] < earliest {
				earliest = loc[0]
			}
		}
	}
	return earliest
}

// yearFromWindow extracts the decision year from the right window: the
// first parenthesized four-digit year wins ("(2015)", "(Wash. 2015)"),
// falling back to a bare year starting within 15 bytes of the citation.
func yearFromWindow(window string) string {
	for _, m := range parenGroupRe.FindAllStringSubmatch(window, -1) {
		if y := yearRe.FindString(m[1]); y != "" {
			return y
		}
	}
	region := window
	if len(region) > bareYearScan+4 {
		region = region[:bareYearScan+4]
	}
	if loc := yearRe.FindStringIndex(region); loc != nil && loc[0] < bareYearScan {
		return region[loc[0]:loc[1]]
	}
	return ""
}

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
