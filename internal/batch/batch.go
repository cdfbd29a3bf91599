// Package batch filters a collection of search results by publication date.
//
// Items whose provider date already parses are decided without I/O. The rest
// are resolved in waves of at most Policy.Concurrency parallel fetches. Before
// each wave the global deadline is checked; once it has passed, every item
// not yet attempted is decided by the undated rule and no further fetch is
// issued. Fetches already running in a wave are never aborted by the global
// deadline, only by their own clamped timeout.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/pubfilter/internal/budget"
	"github.com/hyperifyio/pubfilter/internal/rangefilter"
	"github.com/hyperifyio/pubfilter/internal/resolve"
	"github.com/hyperifyio/pubfilter/internal/search"
	"github.com/hyperifyio/pubfilter/internal/trace"
)

const (
	DefaultConcurrency       = 5
	DefaultOverallDeadline   = 25 * time.Second
	DefaultPerRequestTimeout = 8 * time.Second
)

// Policy bounds one filtering run.
type Policy struct {
	Concurrency       int
	OverallDeadline   time.Duration
	PerRequestTimeout time.Duration
	// Strict drops items whose date cannot be determined instead of keeping them.
	Strict bool
}

func DefaultPolicy() Policy {
	return Policy{
		Concurrency:       DefaultConcurrency,
		OverallDeadline:   DefaultOverallDeadline,
		PerRequestTimeout: DefaultPerRequestTimeout,
	}
}

// Scheduler runs the resolver over a batch. It holds no per-run state and may
// be reused and called concurrently.
type Scheduler struct {
	Resolver *resolve.Resolver
	// Sink receives decision events. When nil, the resolver's sink is used.
	Sink trace.Sink
	// Now defaults to time.Now. The deadline clock starts when FilterByRange is called.
	Now func() time.Time
}

// FilterByRange returns the items to keep. Dropped items are omitted; the
// order of the result is unspecified. Kept and dropped items alike may have
// their PublishedDate and DateSource updated in place.
func (s *Scheduler) FilterByRange(ctx context.Context, items []*search.Result, rng rangefilter.Range, p Policy) []*search.Result {
	r := resolve.Resolver{}
	if s.Resolver != nil {
		r = *s.Resolver
	}
	base := s.Sink
	if base == nil {
		base = r.Sink
	}
	run := &run{
		sink:     trace.WithRunID(base, uuid.NewString()),
		rng:      rng,
		policy:   p,
		deadline: budget.Start(p.OverallDeadline, s.Now),
		out:      make([]*search.Result, 0, len(items)),
	}
	r.Sink = run.sink
	run.resolver = &r

	pending := make([]*search.Result, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if o, ok := r.Provided(it); ok {
			run.decide(o)
			continue
		}
		pending = append(pending, it)
	}
	run.waves(ctx, pending)
	return run.out
}

type run struct {
	resolver *resolve.Resolver
	sink     trace.Sink
	rng      rangefilter.Range
	policy   Policy
	deadline *budget.Deadline
	out      []*search.Result
}

func (r *run) waves(ctx context.Context, pending []*search.Result) {
	size := r.policy.Concurrency
	if size <= 0 {
		size = DefaultConcurrency
	}
	for wave, start := 1, 0; start < len(pending); wave, start = wave+1, start+size {
		if r.deadline.Exceeded() || ctx.Err() != nil {
			r.fallback(pending[start:])
			return
		}
		end := start + size
		if end > len(pending) {
			end = len(pending)
		}
		chunk := pending[start:end]
		timeout := r.deadline.Clamp(r.policy.PerRequestTimeout)
		r.sink.Emit(trace.Event{Kind: trace.KindWaveStart, Wave: wave, Items: len(chunk)})

		outcomes := make([]resolve.Outcome, len(chunk))
		var g errgroup.Group
		for i, item := range chunk {
			i, item := i, item
			g.Go(func() error {
				defer func() {
					if rec := recover(); rec != nil {
						r.sink.Emit(trace.Event{Kind: trace.KindPanic, URL: item.URL, Err: fmt.Errorf("wave %d: %v", wave, rec)})
						outcomes[i] = resolve.Outcome{Item: item, Source: search.DateSourceUnknown}
					}
				}()
				outcomes[i] = r.resolver.Resolve(ctx, item, timeout)
				return nil
			})
		}
		_ = g.Wait()
		for _, o := range outcomes {
			r.decide(o)
		}
	}
}

// fallback decides items that were never attempted.
func (r *run) fallback(rest []*search.Result) {
	r.sink.Emit(trace.Event{Kind: trace.KindDeadlineFallback, Items: len(rest), Reason: fmt.Sprintf("elapsed %s", r.deadline.Elapsed().Round(time.Millisecond))})
	for _, it := range rest {
		r.apply(it, rangefilter.DecideUnprocessed(r.policy.Strict), trace.Event{URL: it.URL, Reason: "deadline"})
	}
}

func (r *run) decide(o resolve.Outcome) {
	if o.Item == nil {
		return
	}
	ev := trace.Event{URL: o.Item.URL, Source: o.Source.String(), Strategy: o.Strategy, Reason: "undated"}
	if o.Dated() {
		ev.Date = o.Date.String()
		ev.Reason = "out of range"
		if r.rng.Contains(o.Date) {
			ev.Reason = "in range"
		}
	}
	r.apply(o.Item, rangefilter.Decide(o, r.rng, r.policy.Strict), ev)
}

func (r *run) apply(item *search.Result, d rangefilter.Decision, ev trace.Event) {
	ev.Kind = trace.KindDrop
	if d == rangefilter.Keep {
		ev.Kind = trace.KindKeep
		r.out = append(r.out, item)
	}
	r.sink.Emit(ev)
}
