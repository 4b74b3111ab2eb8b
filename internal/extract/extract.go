// Package extract derives circular metadata from detail-page URLs and
// content using ordered matcher chains. Extraction is best-effort: unmatched
// fields stay empty and no matcher ever returns an error.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/regdesk/circular-cli/internal/model"
)

// matcher returns the extracted value, or "" when the input does not match.
// Matchers run in priority order; the first non-empty result wins.
type matcher func(string) string

var (
	dateMatchers = []matcher{matchLabeledDate, matchBareDate}
	refMatchers  = []matcher{matchAuthorityRef, matchLabeledCircularNo}
)

// Extract derives metadata from the URL first, then overlays anything found
// in the page content. Content-derived fields win field-by-field.
func Extract(pageURL, content string) model.ExtractedMetadata {
	return FromURL(pageURL).Merge(FromContent(content))
}

// FromURL derives metadata from the detail-page URL alone. URL-derived
// values are the low-priority fallbacks in every chain.
func FromURL(pageURL string) model.ExtractedMetadata {
	return model.ExtractedMetadata{
		CircularDate:      matchURLMonthYear(pageURL),
		CircularReference: matchURLTrailingID(pageURL),
	}
}

// FromContent derives metadata from detail-page HTML or text. The embedded
// frame flag records whether the page hosts its document in an iframe.
func FromContent(content string) model.ExtractedMetadata {
	if content == "" {
		return model.ExtractedMetadata{}
	}
	return model.ExtractedMetadata{
		CircularDate:      firstMatch(dateMatchers, content),
		CircularReference: firstMatch(refMatchers, content),
		HasEmbeddedFrame:  hasEmbeddedFrame(content),
	}
}

func firstMatch(chain []matcher, s string) string {
	for _, m := range chain {
		if v := m(s); v != "" {
			return v
		}
	}
	return ""
}

var labeledDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)dated?\s*[:\-]?\s*(\d{1,2}(?:st|nd|rd|th)?\s+[A-Za-z]+,?\s+\d{4})`),
	regexp.MustCompile(`(?i)dated?\s*[:\-]?\s*([A-Za-z]+\s+\d{1,2},?\s+\d{4})`),
	regexp.MustCompile(`(?i)dated?\s*[:\-]?\s*(\d{1,2}[/.\-]\d{1,2}[/.\-]\d{4})`),
}

// matchLabeledDate finds a date introduced by a "date"/"dated" label.
// Labeled dates outrank any bare date elsewhere in the page.
func matchLabeledDate(s string) string {
	for _, re := range labeledDatePatterns {
		if m := re.FindStringSubmatch(s); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

var bareDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`),
	regexp.MustCompile(`\b[A-Z][a-z]+\s+\d{1,2},\s+\d{4}\b`),
	regexp.MustCompile(`\b\d{1,2}\s+[A-Z][a-z]+,?\s+\d{4}\b`),
}

// matchBareDate finds the first unlabeled date in any of the common
// DD/MM/YYYY, "Month DD, YYYY" or "DD Month YYYY" shapes.
func matchBareDate(s string) string {
	for _, re := range bareDatePatterns {
		if m := re.FindString(s); m != "" {
			return m
		}
	}
	return ""
}

var (
	authorityRefPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b[A-Z]{2,}/HO(?:/\s*[A-Za-z0-9&\-]+)+`),
		regexp.MustCompile(`\b[A-Z]{2,}(?:/\s*[A-Za-z0-9&\-]+){4,}`),
	}
	slashSpaceRE = regexp.MustCompile(`/\s+`)
	refTailRE    = regexp.MustCompile(`/\d{4}/\d+$`)
)

// matchAuthorityRef finds a structured issuing-authority reference such as
// SEBI/HO/MIRSD/TPD/P/CIR/2025/118. The source occasionally inserts
// whitespace after slashes; matches are normalized before the year/serial
// tail is validated.
func matchAuthorityRef(s string) string {
	for _, re := range authorityRefPatterns {
		for _, m := range re.FindAllString(s, -1) {
			ref := slashSpaceRE.ReplaceAllString(m, "/")
			if refTailRE.MatchString(ref) {
				return ref
			}
		}
	}
	return ""
}

var labeledCircularNoRE = regexp.MustCompile(`(?i)circular\s+no\.?\s*[:\-]?\s*([A-Za-z0-9][A-Za-z0-9/\-]*)`)

// matchLabeledCircularNo finds a reference introduced by a "Circular No."
// label. Ranked below the structured authority pattern.
func matchLabeledCircularNo(s string) string {
	if m := labeledCircularNoRE.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

var (
	urlMonthYearRE = regexp.MustCompile(`/(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)-(\d{4})/`)

	monthNames = map[string]string{
		"jan": "January", "feb": "February", "mar": "March",
		"apr": "April", "may": "May", "jun": "June",
		"jul": "July", "aug": "August", "sep": "September",
		"oct": "October", "nov": "November", "dec": "December",
	}
)

// matchURLMonthYear derives a coarse "Month YYYY" date from the archive
// segment of the URL, e.g. /aug-2025/ -> "August 2025".
func matchURLMonthYear(pageURL string) string {
	m := urlMonthYearRE.FindStringSubmatch(strings.ToLower(pageURL))
	if m == nil {
		return ""
	}
	return monthNames[m[1]] + " " + m[2]
}

var urlTrailingIDRE = regexp.MustCompile(`_(\d+)\.html$`)

// matchURLTrailingID derives a numeric document id from the URL's trailing
// _NNNNN.html segment.
func matchURLTrailingID(pageURL string) string {
	if m := urlTrailingIDRE.FindStringSubmatch(pageURL); m != nil {
		return m[1]
	}
	return ""
}

// hasEmbeddedFrame reports whether the page hosts its document inside an
// iframe. Unparseable content counts as no frame.
func hasEmbeddedFrame(content string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return false
	}
	return doc.Find("iframe").Length() > 0
}
