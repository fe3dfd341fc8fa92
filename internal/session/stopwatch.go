package session

import "time"

// Stopwatch is a read-only monotonic elapsed-time source for an active
// session. It runs for the session's wall-clock lifetime; there is no pause.
type Stopwatch struct {
	start time.Time
	now   func() time.Time
}

// NewStopwatch starts a stopwatch at the given baseline. A resumed session
// passes its original StartedAt so elapsed time survives restarts.
func NewStopwatch(start time.Time, now func() time.Time) *Stopwatch {
	if now == nil {
		now = time.Now
	}
	return &Stopwatch{start: start, now: now}
}

// Elapsed returns the time since the session started.
func (sw *Stopwatch) Elapsed() time.Duration {
	return sw.now().Sub(sw.start)
}

// ElapsedSeconds returns whole elapsed seconds, never less than one, for the
// finalize payload's duration field.
func (sw *Stopwatch) ElapsedSeconds() int {
	secs := int(sw.Elapsed().Round(time.Second) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
