// Package trace carries structured decision events out of the filtering
// engine so callers can log them and tests can assert on them.
package trace

import (
	"sync"

	"github.com/rs/zerolog"
)

// Kind names one engine decision.
type Kind int

const (
	KindProvided Kind = iota + 1
	KindScraped
	KindUnknown
	KindFetchFailed
	KindKeep
	KindDrop
	KindWaveStart
	KindDeadlineFallback
	KindPanic
)

var kindNames = map[Kind]string{
	KindProvided:         "provided",
	KindScraped:          "scraped",
	KindUnknown:          "unknown",
	KindFetchFailed:      "fetch_failed",
	KindKeep:             "keep",
	KindDrop:             "drop",
	KindWaveStart:        "wave_start",
	KindDeadlineFallback: "deadline_fallback",
	KindPanic:            "panic",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "invalid"
}

// Event is one decision. Fields that do not apply are left zero.
type Event struct {
	Kind     Kind
	RunID    string
	URL      string
	Date     string
	Source   string
	Strategy string
	Reason   string
	Wave     int
	Items    int
	Err      error
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(Event) {}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}

// Log writes events to a zerolog logger. Per-item events are logged at debug
// level, batch-level events at info and failures at warn.
type Log struct {
	Logger zerolog.Logger
}

func (l Log) Emit(e Event) {
	var ev *zerolog.Event
	switch e.Kind {
	case KindFetchFailed, KindPanic:
		ev = l.Logger.Warn()
	case KindWaveStart, KindDeadlineFallback:
		ev = l.Logger.Info()
	default:
		ev = l.Logger.Debug()
	}
	if e.RunID != "" {
		ev = ev.Str("run", e.RunID)
	}
	if e.URL != "" {
		ev = ev.Str("url", e.URL)
	}
	if e.Date != "" {
		ev = ev.Str("date", e.Date)
	}
	if e.Source != "" {
		ev = ev.Str("source", e.Source)
	}
	if e.Strategy != "" {
		ev = ev.Str("strategy", e.Strategy)
	}
	if e.Reason != "" {
		ev = ev.Str("reason", e.Reason)
	}
	if e.Wave > 0 {
		ev = ev.Int("wave", e.Wave)
	}
	if e.Items > 0 {
		ev = ev.Int("items", e.Items)
	}
	if e.Err != nil {
		ev = ev.Err(e.Err)
	}
	ev.Msg(e.Kind.String())
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Tee fans events out to several sinks.
type Tee []Sink

func (t Tee) Emit(e Event) {
	for _, s := range t {
		if s != nil {
			s.Emit(e)
		}
	}
}

type runSink struct {
	next  Sink
	runID string
}

// WithRunID stamps runID on every event that does not carry one.
func WithRunID(s Sink, runID string) Sink {
	return runSink{next: OrNop(s), runID: runID}
}

func (r runSink) Emit(e Event) {
	if e.RunID == "" {
		e.RunID = r.runID
	}
	r.next.Emit(e)
}
