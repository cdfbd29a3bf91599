package batch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/pubfilter/internal/fetch"
	"github.com/hyperifyio/pubfilter/internal/pubdate"
	"github.com/hyperifyio/pubfilter/internal/rangefilter"
	"github.com/hyperifyio/pubfilter/internal/resolve"
	"github.com/hyperifyio/pubfilter/internal/search"
	"github.com/hyperifyio/pubfilter/internal/trace"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeFetcher serves pages from a map and counts calls. Unknown URLs fail.
type fakeFetcher struct {
	pages    map[string]string
	calls    int32
	inflight int32
	maxSeen  int32
	delay    time.Duration
	onFetch  func(url string, timeout time.Duration)
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (fetch.Response, error) {
	atomic.AddInt32(&f.calls, 1)
	n := atomic.AddInt32(&f.inflight, 1)
	defer atomic.AddInt32(&f.inflight, -1)
	for {
		m := atomic.LoadInt32(&f.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxSeen, m, n) {
			break
		}
	}
	if f.onFetch != nil {
		f.onFetch(url, timeout)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return fetch.Response{}, ctx.Err()
		}
	}
	body, ok := f.pages[url]
	if !ok {
		return fetch.Response{}, errors.New("connection refused")
	}
	return fetch.Response{URL: url, Kind: pubdate.KindMarkup, Body: []byte(body)}, nil
}

func metaPage(date string) string {
	return `<html><head><meta property="article:published_time" content="` + date + `"></head><body></body></html>`
}

func urls(items []*search.Result) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.URL)
	}
	return out
}

func mustRange(t *testing.T) rangefilter.Range {
	t.Helper()
	rng, err := rangefilter.ParseRange("2024-01-01", "2024-12-31")
	require.NoError(t, err)
	return rng
}

func newScheduler(f *fakeFetcher, rec *trace.Recorder, now func() time.Time) *Scheduler {
	s := &Scheduler{Resolver: &resolve.Resolver{Fetcher: f}, Now: now}
	if rec != nil {
		s.Sink = rec
	}
	return s
}

func TestFilterByRange_ProvidedDatesNeedNoFetch(t *testing.T) {
	f := &fakeFetcher{}
	items := []*search.Result{
		{URL: "https://a.test/in", PublishedDate: "2024-06-01"},
		{URL: "https://a.test/edge", PublishedDate: "2024-12-31T23:59:00Z"},
		{URL: "https://a.test/old", PublishedDate: "2019-06-01"},
		{URL: "https://a.test/new", PublishedDate: "Jan 5, 2025"},
	}
	got := newScheduler(f, nil, nil).FilterByRange(context.Background(), items, mustRange(t), DefaultPolicy())

	assert.ElementsMatch(t, []string{"https://a.test/in", "https://a.test/edge"}, urls(got))
	assert.Zero(t, atomic.LoadInt32(&f.calls))
	for _, it := range items {
		assert.Equal(t, search.DateSourceProvided, it.DateSource)
	}
}

func TestFilterByRange_UndatedLenientAndStrict(t *testing.T) {
	for _, strict := range []bool{false, true} {
		t.Run(map[bool]string{false: "lenient", true: "strict"}[strict], func(t *testing.T) {
			f := &fakeFetcher{pages: map[string]string{
				"https://a.test/nodate": `<html><body>About us</body></html>`,
			}}
			items := []*search.Result{
				{URL: "https://a.test/nodate"},
				{URL: "https://a.test/down", PublishedDate: "not a date"},
			}
			p := DefaultPolicy()
			p.Strict = strict
			got := newScheduler(f, nil, nil).FilterByRange(context.Background(), items, mustRange(t), p)

			if strict {
				assert.Empty(t, got)
			} else {
				assert.ElementsMatch(t, []string{"https://a.test/nodate", "https://a.test/down"}, urls(got))
			}
			for _, it := range items {
				assert.Equal(t, search.DateSourceUnknown, it.DateSource)
			}
			assert.EqualValues(t, 2, atomic.LoadInt32(&f.calls))
		})
	}
}

func TestFilterByRange_ScrapedDatesAreFiltered(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://a.test/in":  metaPage("2024-07-23"),
		"https://a.test/out": metaPage("2020-01-01"),
	}}
	items := []*search.Result{
		{URL: "https://a.test/in"},
		{URL: "https://a.test/out"},
		{URL: "https://blog.test/2024/03/some-article"},
	}
	f.pages["https://blog.test/2024/03/some-article"] = `<html><body>no signal</body></html>`

	got := newScheduler(f, nil, nil).FilterByRange(context.Background(), items, mustRange(t), Policy{Concurrency: 5, OverallDeadline: time.Minute, PerRequestTimeout: time.Second, Strict: true})

	assert.ElementsMatch(t, []string{"https://a.test/in", "https://blog.test/2024/03/some-article"}, urls(got))
	assert.Equal(t, "2020-01-01", items[1].PublishedDate)
	assert.Equal(t, search.DateSourceScraped, items[1].DateSource)
	assert.Equal(t, "2024-03-15", items[2].PublishedDate)
}

func TestFilterByRange_BoundsConcurrency(t *testing.T) {
	f := &fakeFetcher{delay: 20 * time.Millisecond}
	var rec trace.Recorder
	items := make([]*search.Result, 12)
	for i := range items {
		items[i] = &search.Result{URL: "https://a.test/" + strings.Repeat("x", i+1)}
	}
	got := newScheduler(f, &rec, nil).FilterByRange(context.Background(), items, mustRange(t), DefaultPolicy())

	assert.Len(t, got, 12)
	assert.EqualValues(t, 12, atomic.LoadInt32(&f.calls))
	assert.LessOrEqual(t, atomic.LoadInt32(&f.maxSeen), int32(5))
	assert.Equal(t, 3, rec.Count(trace.KindWaveStart))
}

func TestFilterByRange_DeadlineFallback(t *testing.T) {
	for _, strict := range []bool{false, true} {
		t.Run(map[bool]string{false: "lenient", true: "strict"}[strict], func(t *testing.T) {
			clk := newClock()
			f := &fakeFetcher{pages: map[string]string{}}
			f.onFetch = func(string, time.Duration) { clk.Advance(30 * time.Second) }
			var rec trace.Recorder
			items := make([]*search.Result, 12)
			for i := range items {
				u := "https://a.test/p" + strings.Repeat("x", i)
				items[i] = &search.Result{URL: u}
				f.pages[u] = metaPage("2024-05-05")
			}
			p := DefaultPolicy()
			p.Strict = strict
			got := newScheduler(f, &rec, clk.Now).FilterByRange(context.Background(), items, mustRange(t), p)

			require.EqualValues(t, 5, atomic.LoadInt32(&f.calls), "only the first wave may fetch")
			assert.Equal(t, 1, rec.Count(trace.KindWaveStart))
			assert.Equal(t, 1, rec.Count(trace.KindDeadlineFallback))
			if strict {
				assert.ElementsMatch(t, urls(items[:5]), urls(got))
			} else {
				assert.ElementsMatch(t, urls(items), urls(got))
			}
			for _, it := range items[5:] {
				assert.Equal(t, search.DateSourceNone, it.DateSource, "fallback items are never resolved")
			}
		})
	}
}

func TestFilterByRange_ClampsPerRequestTimeout(t *testing.T) {
	clk := newClock()
	var mu sync.Mutex
	var timeouts []time.Duration
	f := &fakeFetcher{onFetch: func(_ string, timeout time.Duration) {
		mu.Lock()
		timeouts = append(timeouts, timeout)
		mu.Unlock()
		clk.Advance(20 * time.Second)
	}}
	items := []*search.Result{{URL: "https://a.test/1"}, {URL: "https://a.test/2"}}
	p := Policy{Concurrency: 1, OverallDeadline: 25 * time.Second, PerRequestTimeout: 10 * time.Second}

	newScheduler(f, nil, clk.Now).FilterByRange(context.Background(), items, mustRange(t), p)

	assert.Equal(t, []time.Duration{10 * time.Second, 5 * time.Second}, timeouts)
}

func TestFilterByRange_Idempotent(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://a.test/in":     metaPage("2024-02-02"),
		"https://a.test/out":    metaPage("2018-02-02"),
		"https://a.test/nodate": `<html><body>x</body></html>`,
	}}
	items := []*search.Result{
		{URL: "https://a.test/in"},
		{URL: "https://a.test/out"},
		{URL: "https://a.test/nodate"},
		{URL: "https://a.test/gone"},
		{URL: "https://a.test/given", PublishedDate: "2024-09-09"},
	}
	s := newScheduler(f, nil, nil)
	p := DefaultPolicy()

	first := urls(s.FilterByRange(context.Background(), items, mustRange(t), p))
	second := urls(s.FilterByRange(context.Background(), items, mustRange(t), p))

	assert.ElementsMatch(t, first, second)
	assert.ElementsMatch(t, []string{"https://a.test/in", "https://a.test/nodate", "https://a.test/gone", "https://a.test/given"}, first)
}

type panicFetcher struct{ fakeFetcher }

func (p *panicFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (fetch.Response, error) {
	if strings.HasSuffix(url, "/boom") {
		panic("parser exploded")
	}
	return p.fakeFetcher.Fetch(ctx, url, timeout)
}

func TestFilterByRange_IsolatesPanics(t *testing.T) {
	pf := &panicFetcher{fakeFetcher{pages: map[string]string{"https://a.test/ok": metaPage("2024-04-04")}}}
	var rec trace.Recorder
	s := &Scheduler{Resolver: &resolve.Resolver{Fetcher: pf}, Sink: &rec}
	items := []*search.Result{{URL: "https://a.test/boom"}, {URL: "https://a.test/ok"}}
	p := DefaultPolicy()
	p.Strict = true

	got := s.FilterByRange(context.Background(), items, mustRange(t), p)

	assert.Equal(t, []string{"https://a.test/ok"}, urls(got))
	assert.Equal(t, 1, rec.Count(trace.KindPanic))
}

func TestFilterByRange_CancelledContextFallsBack(t *testing.T) {
	f := &fakeFetcher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	items := []*search.Result{{URL: "https://a.test/1"}, {URL: "https://a.test/2", PublishedDate: "2024-01-01"}}

	got := newScheduler(f, nil, nil).FilterByRange(ctx, items, mustRange(t), DefaultPolicy())

	assert.ElementsMatch(t, []string{"https://a.test/1", "https://a.test/2"}, urls(got))
	assert.Zero(t, atomic.LoadInt32(&f.calls))
}

func TestFilterByRange_EventsCarryRunID(t *testing.T) {
	var rec trace.Recorder
	items := []*search.Result{nil, {URL: "https://a.test/x", PublishedDate: "2024-01-01"}}
	got := newScheduler(&fakeFetcher{}, &rec, nil).FilterByRange(context.Background(), items, mustRange(t), DefaultPolicy())

	require.Len(t, got, 1)
	events := rec.Events()
	require.NotEmpty(t, events)
	runID := events[0].RunID
	assert.NotEmpty(t, runID)
	for _, e := range events {
		assert.Equal(t, runID, e.RunID)
	}
}

type blockingExtractor struct{ release chan struct{} }

func (b blockingExtractor) Extract(pubdate.Document) (pubdate.Result, bool) {
	<-b.release
	return pubdate.Result{}, false
}

func TestFilterByRange_SlowParseRespectsOverallDeadline(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{}}
	items := make([]*search.Result, 7)
	for i := range items {
		u := "https://a.test/big" + strings.Repeat("x", i)
		items[i] = &search.Result{URL: u}
		f.pages[u] = `<html><body>no dates at all</body></html>`
	}
	ext := blockingExtractor{release: make(chan struct{})}
	t.Cleanup(func() { close(ext.release) })
	var rec trace.Recorder
	s := &Scheduler{Resolver: &resolve.Resolver{Fetcher: f, Extractor: ext}, Sink: &rec}
	p := Policy{Concurrency: 5, OverallDeadline: 300 * time.Millisecond, PerRequestTimeout: 200 * time.Millisecond}

	start := time.Now()
	got := s.FilterByRange(context.Background(), items, mustRange(t), p)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 2*time.Second)
	assert.Len(t, got, 7, "undated items are kept in lenient mode")
	for _, it := range items {
		assert.Empty(t, it.PublishedDate)
	}
}

func TestFilterByRange_ZeroTimeProviderDateIsScraped(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://a.test/zero": metaPage("2024-05-05"),
	}}
	items := []*search.Result{{URL: "https://a.test/zero", PublishedDate: "0001-01-01T00:00:00Z"}}
	p := DefaultPolicy()
	p.Strict = true

	got := newScheduler(f, nil, nil).FilterByRange(context.Background(), items, mustRange(t), p)

	assert.Equal(t, []string{"https://a.test/zero"}, urls(got))
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.calls))
	assert.Equal(t, search.DateSourceScraped, items[0].DateSource)
	assert.Equal(t, "2024-05-05", items[0].PublishedDate)
}
