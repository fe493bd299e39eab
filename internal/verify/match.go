// -----------------------------------------------------------------------
// Match acceptance filter - decides whether an authority candidate may
// become a citation's canonical data
// -----------------------------------------------------------------------

package verify

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/ternarybob/shepard/internal/authority"
	"github.com/ternarybob/shepard/internal/citations"
	"github.com/ternarybob/shepard/internal/models"
)

// NameSimilarityMin is the token-set similarity floor for accepting a
// candidate against an extracted case name.
const NameSimilarityMin = 0.6

// YearDistanceMax is the largest gap between the extracted year and a
// candidate's filing year that still passes the filter.
const YearDistanceMax = 2

// federalTokens identify federal courts in authority court strings. Any
// federal court satisfies a federal reporter hint.
var federalTokens = []string{
	"scotus", "federal", "circuit", "fed",
}

// acceptCandidate applies the acceptance filter to every candidate and
// returns the best passing one. All three gates must hold per candidate:
// jurisdiction compatibility, name similarity when the citation has an
// extracted name, and year distance when it has an extracted year.
// Citations without an extracted name accept only a sole candidate.
// Multiple passing candidates rank by name similarity, ties by response
// order. A nil candidate comes back with the typed failure of the first
// rejected candidate.
func acceptCandidate(cit *models.Citation, cands []authority.CaseCandidate) (*authority.CaseCandidate, *models.VerificationFailure) {
	if len(cands) == 0 {
		return nil, models.NewFailure(models.FailureNotFound, cit.Text, "no candidates returned")
	}
	if cit.ExtractedCaseName == "" && len(cands) > 1 {
		return nil, models.NewFailure(models.FailureNameMismatch, cit.Text,
			"multiple candidates but no extracted case name to pick by")
	}

	var best *authority.CaseCandidate
	var bestScore float64
	var firstFailure *models.VerificationFailure

	for i := range cands {
		cand := &cands[i]
		if fail := rejectCandidate(cit, cand); fail != nil {
			if firstFailure == nil {
				firstFailure = fail
			}
			continue
		}
		score := 1.0
		if cit.ExtractedCaseName != "" {
			score = citations.TokenSetSimilarity(cit.ExtractedCaseName, cand.Name())
		}
		if best == nil || score > bestScore {
			best = cand
			bestScore = score
		}
	}

	if best == nil {
		if firstFailure == nil {
			firstFailure = models.NewFailure(models.FailureNotFound, cit.Text, "no candidate passed the filter")
		}
		return nil, firstFailure
	}
	return best, nil
}

// rejectCandidate returns the typed failure for one candidate, or nil when
// all gates pass.
func rejectCandidate(cit *models.Citation, cand *authority.CaseCandidate) *models.VerificationFailure {
	if !jurisdictionCompatible(cit.JurisdictionHint, cand.CourtString()) {
		return models.NewFailure(models.FailureJurisdictionMismatch, cit.Text,
			"candidate court "+cand.CourtString()+" incompatible with "+cit.JurisdictionHint)
	}
	if cit.ExtractedCaseName != "" {
		if sim := citations.TokenSetSimilarity(cit.ExtractedCaseName, cand.Name()); sim < NameSimilarityMin {
			return models.NewFailure(models.FailureNameMismatch, cit.Text,
				"similarity "+strconv.FormatFloat(sim, 'f', 2, 64)+" below threshold for "+cand.Name())
		}
	}
	if cit.ExtractedDate != "" {
		extracted, err := strconv.Atoi(cit.ExtractedDate)
		if err == nil && extracted > 0 {
			if year := cand.Year(); year > 0 {
				if diff := year - extracted; diff > YearDistanceMax || diff < -YearDistanceMax {
					return models.NewFailure(models.FailureDateMismatch, cit.Text,
						"candidate year "+strconv.Itoa(year)+" too far from extracted "+cit.ExtractedDate)
				}
			}
		}
	}
	return nil
}

// jurisdictionCompatible reports whether an authority court string satisfies
// a citation's jurisdiction hint. Regional reporters and Westlaw citations
// carry no hint and accept anything; a candidate with no court information
// is not a known mismatch and passes. A state hint matches when the court
// string carries every word of the state name ("North Dakota Supreme Court"
// for North Dakota, never South Dakota) or one of the reporter table's alias
// tokens for it (neutral court codes plus jurisdiction_aliases, so every
// jurisdiction the table can emit is covered). Matching is by token, not
// substring: a bare "nm" token must not fire on "government".
func jurisdictionCompatible(hint, court string) bool {
	if hint == "" || court == "" {
		return true
	}
	tokens := courtTokens(court)
	if strings.EqualFold(hint, "federal") {
		return hasFederalToken(tokens, court)
	}
	if hasAllWords(tokens, hint) {
		return true
	}
	for _, want := range citations.JurisdictionTokens(hint) {
		if tokens[want] {
			return true
		}
	}
	return false
}

// hasAllWords reports whether every word of the hint appears as a token.
func hasAllWords(tokens map[string]bool, hint string) bool {
	for _, word := range strings.Fields(strings.ToLower(hint)) {
		if !tokens[word] {
			return false
		}
	}
	return true
}

// hasFederalToken recognizes federal courts by token or by the "united
// states" phrase, which tokenizes to two words.
func hasFederalToken(tokens map[string]bool, court string) bool {
	for _, t := range federalTokens {
		if tokens[t] {
			return true
		}
	}
	lower := strings.ToLower(court)
	if strings.Contains(lower, "united states") || strings.Contains(lower, "u.s.") {
		return true
	}
	// Court ids like ca9, ca11, cafc, cadc.
	for tok := range tokens {
		if strings.HasPrefix(tok, "ca") && len(tok) <= 4 && tok != "cal" {
			rest := tok[2:]
			if rest == "" {
				continue
			}
			if isDigits(rest) || rest == "fc" || rest == "dc" {
				return true
			}
		}
	}
	return false
}

// courtTokens lowercases and splits a court string on non-alphanumerics.
func courtTokens(court string) map[string]bool {
	tokens := make(map[string]bool)
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens[b.String()] = true
			b.Reset()
		}
	}
	for _, r := range strings.ToLower(court) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
