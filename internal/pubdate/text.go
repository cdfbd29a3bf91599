package pubdate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

const monthPattern = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

var (
	labelRe = regexp.MustCompile(`(?i)\b(?:date published|publication date|published(?: on)?|posted(?: on)?|updated(?: on)?|last updated|last review(?:ed)?(?: date)?|released?(?: on)?|date)\s*:?\s*`)
	mdyRe   = regexp.MustCompile(`(?i)\b` + monthPattern + `\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	dmyRe   = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthPattern + `\.?,?\s+(\d{4})\b`)
	isoRe   = regexp.MustCompile(`\b(\d{4})[-/](\d{1,2})[-/](\d{1,2})\b`)
	slashRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
)

// labelWindow is how far past a "Published:"-style label a date may start.
const labelWindow = 48

// FindInText returns the first date found in free text. Dates introduced by a
// label such as "Published:" or "Last review date:" are preferred; after that
// month-name dates (month-day-year, then day-month-year), ISO dates and
// numeric slash dates are tried in turn. Matches that are not real calendar
// dates are skipped.
func FindInText(text string) (Date, bool) {
	text = norm.NFKC.String(text)
	for _, loc := range labelRe.FindAllStringIndex(text, -1) {
		end := loc[1] + labelWindow
		if end > len(text) {
			end = len(text)
		}
		if d, ok := findUnlabelled(text[loc[1]:end]); ok {
			return d, true
		}
	}
	return findUnlabelled(text)
}

func findUnlabelled(text string) (Date, bool) {
	for _, m := range mdyRe.FindAllStringSubmatch(text, -1) {
		if d, ok := monthNameDate(m[3], m[1], m[2]); ok {
			return d, true
		}
	}
	for _, m := range dmyRe.FindAllStringSubmatch(text, -1) {
		if d, ok := monthNameDate(m[3], m[2], m[1]); ok {
			return d, true
		}
	}
	for _, m := range isoRe.FindAllStringSubmatch(text, -1) {
		if d, ok := dateFromParts(m[1], m[2], m[3]); ok {
			return d, true
		}
	}
	for _, m := range slashRe.FindAllStringSubmatch(text, -1) {
		if d, ok := slashDate(m[1], m[2], m[3]); ok {
			return d, true
		}
	}
	return Date{}, false
}

// slashDate reads a/b/yyyy as month/day first and only falls back to
// day/month when that is not a valid date. 03/04/2025 is therefore always
// March 4th, even on a page written for a day-first locale.
func slashDate(a, b, y string) (Date, bool) {
	if d, ok := dateFromParts(y, a, b); ok {
		return d, true
	}
	return dateFromParts(y, b, a)
}

func monthNameDate(year, month, day string) (Date, bool) {
	m, ok := monthByPrefix(month)
	if !ok {
		return Date{}, false
	}
	y, err1 := strconv.Atoi(year)
	d, err2 := strconv.Atoi(day)
	if err1 != nil || err2 != nil {
		return Date{}, false
	}
	return NewDate(y, m, d)
}

func monthByPrefix(s string) (time.Month, bool) {
	s = strings.ToLower(s)
	if len(s) < 3 {
		return 0, false
	}
	for m := time.January; m <= time.December; m++ {
		if strings.HasPrefix(strings.ToLower(m.String()), s[:3]) {
			return m, true
		}
	}
	return 0, false
}
