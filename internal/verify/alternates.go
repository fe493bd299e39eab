// -----------------------------------------------------------------------
// Alternate public sources - last-resort verification when the primary
// authority cannot confirm a citation (or is rate limited)
// -----------------------------------------------------------------------

package verify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/shepard/internal/citations"
	"github.com/ternarybob/shepard/internal/models"
)

// AlternateSource is one configured public fallback. The URL template
// supports {citation}, {volume}, {reporter} and {page} placeholders; the
// reporter placeholder is slug-formed for path use ("Wn.2d" -> "wn2d").
type AlternateSource struct {
	Name        string
	URLTemplate string
}

// alternate pages larger than this are not buffered.
const maxAlternateBytes = 2 << 20

var caseHeadingRe = regexp.MustCompile(`[A-Z][^()\n]{0,120}\sv\.?\s[A-Z][^()\n]{0,120}`)

// alternateFallback tries each configured source once for the citation, in
// order, stopping at the first confirmation.
func (v *Verifier) alternateFallback(ctx context.Context, cit *models.Citation, stats *Stats) bool {
	for _, alt := range v.alternates {
		ok, err := v.tryAlternate(ctx, alt, cit)
		if err != nil {
			v.logger.Debug().Err(err).Str("source", alt.Name).Str("citation", cit.Text).
				Msg("Alternate source failed")
			continue
		}
		if ok {
			stats.addVerified(models.AlternateSourceName(alt.Name))
			return true
		}
	}
	return false
}

// tryAlternate fetches the source's page for the citation and confirms the
// match from the page itself: the page must quote the citation, and when we
// extracted a case name the page's heading must score against it. Alternate
// pages rarely expose a filing date, so CanonicalDate stays empty rather
// than guessing a partial one.
func (v *Verifier) tryAlternate(ctx context.Context, alt AlternateSource, cit *models.Citation) (bool, error) {
	pageURL := alt.Expand(cit)
	if pageURL == "" {
		return false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("alternate fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAlternateBytes))
	if err != nil {
		return false, fmt.Errorf("alternate read failed: %w", err)
	}

	heading, pageText, err := parseAlternatePage(string(body), pageURL)
	if err != nil {
		return false, err
	}

	if !pageQuotesCitation(pageText, cit.Text) {
		return false, nil
	}

	name := alternateCaseName(heading, pageText)
	if name == "" {
		return false, nil
	}
	if cit.ExtractedCaseName != "" {
		if citations.TokenSetSimilarity(cit.ExtractedCaseName, name) < NameSimilarityMin {
			return false, nil
		}
	}
	if cit.ExtractedDate != "" {
		if year := yearNear(pageText, cit.Text); year > 0 {
			extracted, _ := strconv.Atoi(cit.ExtractedDate)
			if extracted > 0 {
				if diff := year - extracted; diff > YearDistanceMax || diff < -YearDistanceMax {
					return false, nil
				}
			}
		}
	}

	cit.CanonicalName = citations.NormalizeCaseName(name)
	cit.CanonicalURL = pageURL
	cit.VerificationSource = models.AlternateSourceName(alt.Name)
	cit.Verified = models.VerifiedDirect
	return true, nil
}

// Expand fills the URL template from the citation. Unknown placeholders
// survive untouched, which makes the template unusable and skips the source.
func (a AlternateSource) Expand(cit *models.Citation) string {
	u := a.URLTemplate
	u = strings.ReplaceAll(u, "{citation}", strings.ReplaceAll(cit.Text, " ", "+"))
	u = strings.ReplaceAll(u, "{volume}", strconv.Itoa(cit.Volume))
	u = strings.ReplaceAll(u, "{page}", strconv.Itoa(cit.Page))
	u = strings.ReplaceAll(u, "{reporter}", reporterSlug(cit.Reporter))
	if strings.ContainsAny(u, "{}") {
		return ""
	}
	return u
}

// reporterSlug makes a reporter tag path-safe: "Wn.2d" -> "wn2d",
// "F. Supp. 3d" -> "f-supp-3d".
func reporterSlug(tag string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(tag) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r == ' ':
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// parseAlternatePage pulls the case heading (h1, else title) with goquery
// and flattens the page body to scannable text via markdown conversion.
func parseAlternatePage(html, baseURL string) (heading, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse alternate page: %w", err)
	}

	heading = strings.TrimSpace(doc.Find("h1").First().Text())
	if heading == "" {
		heading = strings.TrimSpace(doc.Find("title").First().Text())
	}

	converter := md.NewConverter(baseURL, true, nil)
	text, err = converter.ConvertString(html)
	if err != nil {
		// Plain node text still lets the citation scan run.
		text = doc.Text()
	}
	return heading, text, nil
}

// pageQuotesCitation reports whether the page text contains the citation,
// ignoring whitespace differences introduced by markup.
func pageQuotesCitation(pageText, citation string) bool {
	squash := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(s)), " ")
	}
	return strings.Contains(squash(pageText), squash(citation))
}

// alternateCaseName returns the page's case caption: the heading when it
// looks like one, otherwise the first "X v. Y" form in the body.
func alternateCaseName(heading, pageText string) string {
	if m := caseHeadingRe.FindString(heading); m != "" {
		return citations.CleanCaseName(m)
	}
	if m := caseHeadingRe.FindString(pageText); m != "" {
		return citations.CleanCaseName(m)
	}
	return ""
}

// yearNear finds a four-digit year within a short window after the
// citation's first occurrence in the page text. Zero when absent.
func yearNear(pageText, citation string) int {
	squashed := strings.Join(strings.Fields(pageText), " ")
	idx := strings.Index(strings.ToLower(squashed), strings.ToLower(strings.Join(strings.Fields(citation), " ")))
	if idx < 0 {
		return 0
	}
	tail := squashed[idx:]
	if len(tail) > 120 {
		tail = tail[:120]
	}
	m := regexp.MustCompile(`\((\d{4})\)`).FindStringSubmatch(tail)
	if m == nil {
		return 0
	}
	year, _ := strconv.Atoi(m[1])
	return year
}
