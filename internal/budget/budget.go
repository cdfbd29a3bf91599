// Package budget tracks a global wall-clock budget shared by every fetch of
// one batch.
package budget

import "time"

// Deadline is a fixed time budget measured from when it was started. The
// zero limit means unbounded.
type Deadline struct {
	start time.Time
	limit time.Duration
	now   func() time.Time
}

// Start begins a budget of limit. now defaults to time.Now.
func Start(limit time.Duration, now func() time.Time) *Deadline {
	if now == nil {
		now = time.Now
	}
	return &Deadline{start: now(), limit: limit, now: now}
}

// Elapsed returns the time spent since Start.
func (d *Deadline) Elapsed() time.Duration {
	return d.now().Sub(d.start)
}

// Remaining returns the budget left, never negative. Unbounded budgets
// report the largest duration.
func (d *Deadline) Remaining() time.Duration {
	if d.limit <= 0 {
		return time.Duration(1<<63 - 1)
	}
	left := d.limit - d.Elapsed()
	if left < 0 {
		return 0
	}
	return left
}

// Exceeded reports whether the budget is used up.
func (d *Deadline) Exceeded() bool {
	return d.limit > 0 && d.Elapsed() >= d.limit
}

// Clamp returns min(timeout, Remaining()). A non-positive timeout means "no
// own limit" and yields Remaining().
func (d *Deadline) Clamp(timeout time.Duration) time.Duration {
	left := d.Remaining()
	if timeout <= 0 || timeout > left {
		return left
	}
	return timeout
}
