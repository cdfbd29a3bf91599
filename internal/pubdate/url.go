package pubdate

import (
	"net/url"
	"regexp"
	"strconv"
	"time"
)

var (
	urlYMD = regexp.MustCompile(`/((?:19|20)\d{2})/(\d{1,2})/(\d{1,2})(?:/|$|[-_.])`)
	urlYM  = regexp.MustCompile(`/((?:19|20)\d{2})/(\d{1,2})(?:/|$)`)
)

// MidMonthDay is the day assumed when a URL only carries year and month.
const MidMonthDay = 15

// FromURL reads a /YYYY/MM/DD/ or /YYYY/MM/ path convention. A year and month
// without a day resolve to the 15th of that month.
func FromURL(raw string) (Date, bool) {
	path := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		path = u.Path
	}
	for _, m := range urlYMD.FindAllStringSubmatch(path, -1) {
		if d, ok := dateFromParts(m[1], m[2], m[3]); ok {
			return d, true
		}
	}
	for _, m := range urlYM.FindAllStringSubmatch(path, -1) {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		if d, ok := NewDate(y, time.Month(mo), MidMonthDay); ok {
			return d, true
		}
	}
	return Date{}, false
}
