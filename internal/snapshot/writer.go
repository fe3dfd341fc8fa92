package snapshot

import (
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// Writer debounces snapshot writes for one session. Each scheduled write
// replaces the pending one, so a burst of edits coalesces into a single
// store write carrying the most recent state. Lifecycle events that may
// precede a process freeze call Flush, which writes synchronously because a
// pending timer is not guaranteed to fire once the host is suspended.
type Writer struct {
	store Store
	delay time.Duration
	log   *slog.Logger

	// saveMu serializes store access so a timer save already in flight
	// cannot land after a Flush write or a Discard delete.
	saveMu sync.Mutex

	mu      sync.Mutex
	pending *models.Snapshot
	timer   *time.Timer
	stopped bool
}

// NewWriter creates a debounced writer over the store.
func NewWriter(store Store, delay time.Duration, log *slog.Logger) *Writer {
	return &Writer{store: store, delay: delay, log: log}
}

// Schedule records snap as the latest state and arms the debounce timer.
// The write itself is fire-and-forget; failures are logged, never surfaced
// to the mutation path.
func (w *Writer) Schedule(snap models.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.pending = &snap
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.fire)
}

func (w *Writer) fire() {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()

	w.mu.Lock()
	snap := w.pending
	w.pending = nil
	w.timer = nil
	stopped := w.stopped
	w.mu.Unlock()

	if stopped || snap == nil {
		return
	}
	if err := w.store.Save(*snap); err != nil {
		w.log.Warn("snapshot write failed", "session_id", snap.Session.ID, "error", err)
	}
}

// Flush writes any pending snapshot immediately and synchronously,
// bypassing the debounce window.
func (w *Writer) Flush() error {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()

	w.mu.Lock()
	snap := w.pending
	w.pending = nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	if snap == nil {
		return nil
	}
	return w.store.Save(*snap)
}

// Discard cancels pending work and deletes the stored snapshot for the
// session. Called on explicit exit and after a successful finalize. The
// writer accepts no further schedules.
func (w *Writer) Discard(sessionID string) error {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()

	w.mu.Lock()
	w.pending = nil
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	return w.store.Delete(sessionID)
}
