// Package rangefilter holds the single keep/drop rule applied to every item,
// whether it was resolved normally or left over by the deadline fallback.
package rangefilter

import (
	"fmt"

	"github.com/hyperifyio/pubfilter/internal/pubdate"
	"github.com/hyperifyio/pubfilter/internal/resolve"
)

// Range is inclusive on both ends. Start <= End is the caller's
// responsibility; an inverted range is not corrected and matches nothing.
type Range struct {
	Start pubdate.Date
	End   pubdate.Date
}

// ParseRange parses two YYYY-MM-DD strings.
func ParseRange(start, end string) (Range, error) {
	s, err := pubdate.ParseISO(start)
	if err != nil {
		return Range{}, fmt.Errorf("range start: %w", err)
	}
	e, err := pubdate.ParseISO(end)
	if err != nil {
		return Range{}, fmt.Errorf("range end: %w", err)
	}
	return Range{Start: s, End: e}, nil
}

func (r Range) Contains(d pubdate.Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r Range) String() string { return r.Start.String() + ".." + r.End.String() }

type Decision bool

const (
	Drop Decision = false
	Keep Decision = true
)

func (d Decision) String() string {
	if d == Keep {
		return "keep"
	}
	return "drop"
}

// Decide keeps a dated outcome iff its date lies in r, and an undated one iff
// strict is false.
func Decide(o resolve.Outcome, r Range, strict bool) Decision {
	if o.Dated() {
		return Decision(r.Contains(o.Date))
	}
	return DecideUnprocessed(strict)
}

// DecideUnprocessed is the decision for an item with no resolved date,
// including items never attempted before the deadline.
func DecideUnprocessed(strict bool) Decision {
	return Decision(!strict)
}
