package pubdate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Date is a calendar date without time of day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate validates y-m-d against the calendar. Month 13 or 31 April fail.
func NewDate(y int, m time.Month, d int) (Date, bool) {
	if y < 1 || y > 9999 || m < time.January || m > time.December || d < 1 || d > 31 {
		return Date{}, false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || t.Month() != m || t.Day() != d {
		return Date{}, false
	}
	return Date{Year: y, Month: m, Day: d}, true
}

// FromTime takes the calendar date of t in t's own location.
func FromTime(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// ParseISO parses exactly YYYY-MM-DD.
func ParseISO(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return FromTime(t), nil
}

var (
	isoPrefix     = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:$|[T\s])`)
	numYearMonth  = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})$`)
	nameYearMonth = regexp.MustCompile(`(?i)^` + monthPattern + `\.?,?\s+(\d{4})$`)
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2006/01/02",
	"20060102",
}

// ParseDate parses a single timestamp value such as a meta tag content, a
// JSON-LD field or a provider-supplied date. The calendar date is taken as
// written, without converting between zones. A value carrying only a year and
// month ("2024-03", "March 2024") resolves to MidMonthDay, as URL dates do.
// Years before 1900, such as a marshalled zero time.Time, are rejected.
func ParseDate(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 64 || !strings.ContainsAny(s, "0123456789") {
		return Date{}, false
	}
	if m := isoPrefix.FindStringSubmatch(s); m != nil {
		d, ok := dateFromParts(m[1], m[2], m[3])
		if !ok {
			return Date{}, false
		}
		return validYear(d)
	}
	if m := numYearMonth.FindStringSubmatch(s); m != nil {
		return midMonth(m[1], m[2])
	}
	if m := nameYearMonth.FindStringSubmatch(s); m != nil {
		mo, ok := monthByPrefix(m[1])
		if !ok {
			return Date{}, false
		}
		return midMonth(m[2], strconv.Itoa(int(mo)))
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return validYear(FromTime(t))
		}
	}
	// Bare numbers are epoch seconds to dateparse; a year or a version is not a date.
	if _, err := strconv.Atoi(s); err == nil {
		return Date{}, false
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return Date{}, false
	}
	return validYear(FromTime(t))
}

func validYear(d Date) (Date, bool) {
	if d.Year < 1900 {
		return Date{}, false
	}
	return d, true
}

func midMonth(ys, ms string) (Date, bool) {
	d, ok := dateFromParts(ys, ms, strconv.Itoa(MidMonthDay))
	if !ok {
		return Date{}, false
	}
	return validYear(d)
}

func dateFromParts(ys, ms, ds string) (Date, bool) {
	y, err1 := strconv.Atoi(ys)
	m, err2 := strconv.Atoi(ms)
	d, err3 := strconv.Atoi(ds)
	if err1 != nil || err2 != nil || err3 != nil {
		return Date{}, false
	}
	return NewDate(y, time.Month(m), d)
}
