// Package resolve determines a best-effort publication date for one search
// result, trusting a parseable provider date before touching the network.
package resolve

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperifyio/pubfilter/internal/fetch"
	"github.com/hyperifyio/pubfilter/internal/pubdate"
	"github.com/hyperifyio/pubfilter/internal/search"
	"github.com/hyperifyio/pubfilter/internal/trace"
)

// Fetcher retrieves one document within timeout. *fetch.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (fetch.Response, error)
}

// Extractor runs the date cascade over a fetched document. A call may outlive
// the Resolve that started it when the timeout wins the race.
type Extractor interface {
	Extract(doc pubdate.Document) (pubdate.Result, bool)
}

// Outcome is the resolution of a single item. Date is meaningful only when
// Source is provided or scraped.
type Outcome struct {
	Item     *search.Result
	Date     pubdate.Date
	Source   search.DateSource
	Strategy string
}

// Dated reports whether the outcome carries a resolved date.
func (o Outcome) Dated() bool {
	return (o.Source == search.DateSourceProvided || o.Source == search.DateSourceScraped) && !o.Date.IsZero()
}

// Resolver turns items into outcomes. Resolve never panics and never returns
// an error: every failure path degrades to an unknown outcome.
type Resolver struct {
	Fetcher Fetcher
	// Extractor defaults to pubdate.Parser{}.
	Extractor Extractor
	Sink      trace.Sink
}

// Provided resolves item from its provider date alone. ok is false when the
// date is missing or does not parse; the item is left untouched in that case.
func (r *Resolver) Provided(item *search.Result) (Outcome, bool) {
	if item == nil {
		return Outcome{}, false
	}
	d, ok := pubdate.ParseDate(item.PublishedDate)
	if !ok {
		return Outcome{}, false
	}
	item.DateSource = search.DateSourceProvided
	r.emit(trace.Event{Kind: trace.KindProvided, URL: item.URL, Date: d.String(), Source: search.DateSourceProvided.String()})
	return Outcome{Item: item, Date: d, Source: search.DateSourceProvided}, true
}

// Resolve resolves item, fetching and parsing its URL when the provider date
// is unusable. Fetch and parse together race against timeout and ctx: when
// either expires first the outcome is unknown, the late work is abandoned and
// only DateSource is updated on item.
func (r *Resolver) Resolve(ctx context.Context, item *search.Result, timeout time.Duration) (out Outcome) {
	out = Outcome{Item: item, Source: search.DateSourceUnknown}
	if item == nil {
		return out
	}
	defer func() {
		if rec := recover(); rec != nil {
			out = r.panicked(item, rec)
		}
	}()

	if o, ok := r.Provided(item); ok {
		return o
	}
	if r.Fetcher == nil {
		return r.unknown(item, "no fetcher")
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	done := make(chan attempt, 1)
	go r.scrape(ctx, item.URL, timeout, done)

	select {
	case <-ctx.Done():
		return r.unknown(item, "timed out")
	case a := <-done:
		switch {
		case a.recovered != nil:
			return r.panicked(item, a.recovered)
		case a.err != nil:
			r.emit(trace.Event{Kind: trace.KindFetchFailed, URL: item.URL, Err: a.err})
			return r.unknown(item, "fetch failed")
		case !a.ok:
			return r.unknown(item, "no date found")
		case ctx.Err() != nil:
			return r.unknown(item, "timed out")
		}
		item.PublishedDate = a.res.Date.String()
		item.DateSource = search.DateSourceScraped
		r.emit(trace.Event{Kind: trace.KindScraped, URL: item.URL, Date: item.PublishedDate, Source: search.DateSourceScraped.String(), Strategy: a.res.Strategy})
		return Outcome{Item: item, Date: a.res.Date, Source: search.DateSourceScraped, Strategy: a.res.Strategy}
	}
}

// attempt is what scrape hands back. It never touches the item itself.
type attempt struct {
	res       pubdate.Result
	ok        bool
	err       error
	recovered any
}

// scrape fetches and parses url and always sends exactly one attempt on done,
// which must have room for it.
func (r *Resolver) scrape(ctx context.Context, url string, timeout time.Duration, done chan<- attempt) {
	var a attempt
	defer func() {
		if rec := recover(); rec != nil {
			a = attempt{recovered: rec}
		}
		done <- a
	}()
	resp, err := r.Fetcher.Fetch(ctx, url, timeout)
	if err != nil {
		a.err = err
		return
	}
	a.res, a.ok = r.extractor().Extract(resp.Document())
}

func (r *Resolver) panicked(item *search.Result, rec any) Outcome {
	item.DateSource = search.DateSourceUnknown
	r.emit(trace.Event{Kind: trace.KindPanic, URL: item.URL, Err: fmt.Errorf("resolve panic: %v", rec)})
	return Outcome{Item: item, Source: search.DateSourceUnknown}
}

func (r *Resolver) unknown(item *search.Result, reason string) Outcome {
	item.DateSource = search.DateSourceUnknown
	r.emit(trace.Event{Kind: trace.KindUnknown, URL: item.URL, Source: search.DateSourceUnknown.String(), Reason: reason})
	return Outcome{Item: item, Source: search.DateSourceUnknown}
}

func (r *Resolver) extractor() Extractor {
	if r.Extractor == nil {
		return pubdate.Parser{}
	}
	return r.Extractor
}

func (r *Resolver) emit(e trace.Event) {
	if r.Sink != nil {
		r.Sink.Emit(e)
	}
}
