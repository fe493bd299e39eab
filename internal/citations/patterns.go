// -----------------------------------------------------------------------
// Pattern compilation - turns the reporter table into the RE2 patterns
// the extractor scans with. Compiled once at startup, read-only after.
// -----------------------------------------------------------------------

package citations

import (
	"fmt"
	"regexp"
)

type patternKind int

const (
	// kindReporter matches volume-reporter-page citations ("183 Wn.2d 649").
	kindReporter patternKind = iota
	// kindWestlaw matches Westlaw weekly citations ("2021 WL 50123").
	kindWestlaw
	// kindNeutralYearFirst matches "2017-NM-007".
	kindNeutralYearFirst
	// kindNeutralCourtFirst matches "NM-2017-007".
	kindNeutralCourtFirst
	// kindNeutralSpaced matches "2017 UT 21".
	kindNeutralSpaced
)

// Volume, page, and pincite sub-patterns. Published reporters top out below
// a thousand volumes, so a three-digit cap rejects year-like volumes
// ("2020 A.D. 15" is not a citation). Word boundaries keep series suffixes
// out of the page ("Wn. App." never swallows the "2" of "Wn. App. 2d").
const (
	volumeGroup  = `([1-9]\d{0,2})`
	pageGroup    = `([1-9]\d{0,4})`
	pinciteGroup = `(?:,\s?([1-9]\d{0,4})\b)?`
	yearGroup    = `(19\d{2}|20\d{2})`
	courtGroup   = `((?:[A-Z]{2,4}|Ohio))`
)

// citationPattern is one compiled matcher plus the metadata the extractor
// attaches to its matches.
type citationPattern struct {
	kind         patternKind
	tag          string
	family       string
	class        string
	priority     int
	jurisdiction string
	re           *regexp.Regexp
}

type statutePattern struct {
	name string
	re   *regexp.Regexp
}

// compilePatterns expands the reporter table into scan-ready patterns.
func compilePatterns(table *reporterTable) ([]*citationPattern, []*statutePattern, error) {
	var patterns []*citationPattern

	for _, fam := range table.Families {
		for _, rep := range fam.Reporters {
			expr := `\b` + volumeGroup + `\s+` + rep.Match + `\s+` + pageGroup + `\b` + pinciteGroup
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, nil, fmt.Errorf("reporter %q in family %q: %w", rep.Tag, fam.Family, err)
			}
			patterns = append(patterns, &citationPattern{
				kind:         kindReporter,
				tag:          rep.Tag,
				family:       fam.Family,
				class:        fam.Class,
				priority:     classPriority[fam.Class],
				jurisdiction: fam.Jurisdiction,
				re:           re,
			})
		}
	}

	wlExpr := `\b` + yearGroup + `\s+` + table.Westlaw.Match + `\s+([1-9]\d{0,9})\b`
	wlRe, err := regexp.Compile(wlExpr)
	if err != nil {
		return nil, nil, fmt.Errorf("westlaw pattern: %w", err)
	}
	patterns = append(patterns, &citationPattern{
		kind:     kindWestlaw,
		tag:      table.Westlaw.Tag,
		family:   FamilyWestlaw,
		class:    classCommercial,
		priority: classPriority[classCommercial],
		re:       wlRe,
	})

	// Neutral citations carry the court code in the text itself; tag and
	// jurisdiction are resolved per match against the neutral_courts map.
	neutralExprs := []struct {
		kind patternKind
		expr string
	}{
		{kindNeutralYearFirst, `\b` + yearGroup + `-` + courtGroup + `-(\d{1,6})\b`},
		{kindNeutralCourtFirst, `\b` + courtGroup + `-` + yearGroup + `-(\d{1,6})\b`},
		{kindNeutralSpaced, `\b` + yearGroup + ` ([A-Z]{2,4}) ([1-9]\d{0,5})\b`},
	}
	for _, n := range neutralExprs {
		re, err := regexp.Compile(n.expr)
		if err != nil {
			return nil, nil, fmt.Errorf("neutral pattern: %w", err)
		}
		patterns = append(patterns, &citationPattern{
			kind:     n.kind,
			family:   FamilyNeutral,
			class:    classNeutral,
			priority: classPriority[classNeutral],
			re:       re,
		})
	}

	var statutes []*statutePattern
	for _, st := range table.Statutes {
		re, err := regexp.Compile(st.Match)
		if err != nil {
			return nil, nil, fmt.Errorf("statute pattern %q: %w", st.Name, err)
		}
		statutes = append(statutes, &statutePattern{name: st.Name, re: re})
	}

	return patterns, statutes, nil
}
