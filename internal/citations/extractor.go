// -----------------------------------------------------------------------
// Citation extractor - scans raw text for legal citations and returns
// span-accurate models.Citation values in document order
// -----------------------------------------------------------------------

package citations

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ternarybob/shepard/internal/models"
)

// Extractor holds the compiled reporter, neutral and statute patterns.
// It is stateless after construction and safe for concurrent use.
type Extractor struct {
	patterns []*citationPattern
	statutes []*statutePattern
	courts   map[string]string
}

// NewExtractor compiles the embedded reporter table.
func NewExtractor() (*Extractor, error) {
	table, err := loadReporterTable()
	if err != nil {
		return nil, err
	}
	patterns, statutes, err := compilePatterns(table)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		patterns: patterns,
		statutes: statutes,
		courts:   table.NeutralCourts,
	}, nil
}

// candidate is a raw pattern match before overlap resolution.
type candidate struct {
	span         models.Span
	pat          *citationPattern
	reporter     string
	jurisdiction string
	volume       int
	page         int
	pincite      int
	pinciteStart int
}

// Extract scans text and returns every recognized citation, sorted by
// span start, with positional IDs cit_1..cit_N. Extraction never fails:
// text without citations yields an empty slice.
func (e *Extractor) Extract(text string) []*models.Citation {
	candidates := e.scan(text)
	candidates = e.dropStatuteOverlaps(text, candidates)
	kept := dedupeCandidates(candidates)

	sort.Slice(kept, func(i, j int) bool { return kept[i].span.Start < kept[j].span.Start })

	// A trailing ", N" after a page is usually a pincite, but when N is
	// where the next citation starts it was really that citation's
	// volume ("116 Wn.2d 1, 802 P.2d 784").
	starts := make(map[int]bool, len(kept))
	for _, c := range kept {
		starts[c.span.Start] = true
	}

	citations := make([]*models.Citation, 0, len(kept))
	for i, c := range kept {
		pincite := c.pincite
		if c.pinciteStart >= 0 && starts[c.pinciteStart] {
			pincite = 0
		}
		cit := &models.Citation{
			ID:               fmt.Sprintf("cit_%d", i+1),
			Text:             text[c.span.Start:c.span.End],
			Span:             c.span,
			Reporter:         c.reporter,
			ReporterFamily:   c.pat.family,
			Volume:           c.volume,
			Page:             c.page,
			Pincite:          pincite,
			JurisdictionHint: c.jurisdiction,
			Verified:         models.VerifiedNone,
		}
		e.applyContext(text, cit)
		citations = append(citations, cit)
	}
	return citations
}

func (e *Extractor) scan(text string) []candidate {
	var candidates []candidate
	for _, pat := range e.patterns {
		for _, m := range pat.re.FindAllStringSubmatchIndex(text, -1) {
			if c, ok := e.candidateFromMatch(text, pat, m); ok {
				candidates = append(candidates, c)
			}
		}
	}
	return candidates
}

// candidateFromMatch converts one regexp match into a candidate. Matches
// that fail semantic checks (unknown neutral court, zero sequence) are
// dropped here rather than surfaced as errors.
func (e *Extractor) candidateFromMatch(text string, pat *citationPattern, m []int) (candidate, bool) {
	c := candidate{pat: pat, reporter: pat.tag, jurisdiction: pat.jurisdiction, pinciteStart: -1}

	switch pat.kind {
	case kindReporter:
		c.volume = mustAtoi(text[m[2]:m[3]])
		c.page = mustAtoi(text[m[4]:m[5]])
		c.span = models.Span{Start: m[0], End: m[5]}
		if len(m) >= 8 && m[6] >= 0 {
			c.pincite = mustAtoi(text[m[6]:m[7]])
			c.pinciteStart = m[6]
		}

	case kindWestlaw:
		// 2020 WL 5639203: the year stands in for the volume and the
		// serial number for the page.
		c.volume = mustAtoi(text[m[2]:m[3]])
		c.page = mustAtoi(text[m[4]:m[5]])
		c.span = models.Span{Start: m[0], End: m[1]}

	case kindNeutralYearFirst:
		return e.neutralCandidate(pat, m, text[m[2]:m[3]], text[m[4]:m[5]], text[m[6]:m[7]])

	case kindNeutralCourtFirst:
		return e.neutralCandidate(pat, m, text[m[4]:m[5]], text[m[2]:m[3]], text[m[6]:m[7]])

	case kindNeutralSpaced:
		return e.neutralCandidate(pat, m, text[m[2]:m[3]], text[m[4]:m[5]], text[m[6]:m[7]])

	default:
		return candidate{}, false
	}

	if c.volume < 1 || c.page < 1 {
		return candidate{}, false
	}
	return c, true
}

// neutralCandidate validates the court code against the known vendor-
// neutral courts and normalizes year/sequence into volume/page.
func (e *Extractor) neutralCandidate(pat *citationPattern, m []int, year, court, seq string) (candidate, bool) {
	jurisdiction, ok := e.courts[strings.ToUpper(court)]
	if !ok {
		return candidate{}, false
	}
	c := candidate{
		pat:          pat,
		reporter:     court,
		jurisdiction: jurisdiction,
		volume:       mustAtoi(year),
		page:         mustAtoi(seq),
		pinciteStart: -1,
		span:         models.Span{Start: m[0], End: m[1]},
	}
	if c.volume < 1 || c.page < 1 {
		return candidate{}, false
	}
	return c, true
}

// dropStatuteOverlaps removes case-law candidates whose span overlaps a
// statute reference. Statutes are recognized so they can be excluded,
// never emitted.
func (e *Extractor) dropStatuteOverlaps(text string, candidates []candidate) []candidate {
	var statuteSpans []models.Span
	for _, sp := range e.statutes {
		for _, loc := range sp.re.FindAllStringIndex(text, -1) {
			statuteSpans = append(statuteSpans, models.Span{Start: loc[0], End: loc[1]})
		}
	}
	if len(statuteSpans) == 0 {
		return candidates
	}
	kept := candidates[:0]
	for _, c := range candidates {
		overlaps := false
		for _, s := range statuteSpans {
			if c.span.Overlaps(s) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}
	return kept
}

// dedupeCandidates resolves overlapping matches: longer spans win, then
// higher reporter-class priority, then the earlier start. Survivors never
// overlap each other.
func dedupeCandidates(candidates []candidate) []candidate {
	ordered := make([]candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].span.Len() != ordered[j].span.Len() {
			return ordered[i].span.Len() > ordered[j].span.Len()
		}
		if ordered[i].pat.priority != ordered[j].pat.priority {
			return ordered[i].pat.priority > ordered[j].pat.priority
		}
		return ordered[i].span.Start < ordered[j].span.Start
	})

	var kept []candidate
	for _, c := range ordered {
		overlaps := false
		for _, k := range kept {
			if c.span.Overlaps(k.span) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}
	return kept
}

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
