package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/finalize"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/pr"
	"github.com/claude/liftlog/internal/snapshot"
)

// ErrNoSession reports an operation addressed at a session id with no
// active editor and no recoverable snapshot.
var ErrNoSession = errors.New("no active session")

// RoutineSource loads the routine definition that seeds a session.
type RoutineSource interface {
	GetRoutine(ctx context.Context, id int64) (*models.RoutineDefinition, error)
}

// editor bundles everything owned by one active session.
type editor struct {
	store     *Store
	stopwatch *Stopwatch
	writer    *snapshot.Writer
	detector  *pr.Detector
	pipeline  *finalize.Pipeline
}

// Manager owns all active editors, keyed by session id. The session
// aggregate has exactly one writer at a time: every mutation runs to
// completion under the manager's lock, so there is no partial-mutation
// visibility. Long-running work (baseline fetches, the finalize submission)
// runs outside the lock and never blocks the mutation path.
type Manager struct {
	routines  RoutineSource
	history   pr.HistoryProvider
	gateway   finalize.Gateway
	bus       finalize.Bus
	snapshots snapshot.Store
	debounce  time.Duration
	log       *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	editors map[string]*editor
}

// NewManager creates a manager over the given collaborators.
func NewManager(routines RoutineSource, history pr.HistoryProvider, gateway finalize.Gateway, bus finalize.Bus, snapshots snapshot.Store, debounce time.Duration, log *slog.Logger) *Manager {
	return &Manager{
		routines:  routines,
		history:   history,
		gateway:   gateway,
		bus:       bus,
		snapshots: snapshots,
		debounce:  debounce,
		log:       log,
		now:       time.Now,
		editors:   make(map[string]*editor),
	}
}

// SetClock overrides the manager's clock. Tests only.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// Start seeds a new session from a routine definition and registers its
// editor. A routine that fails to load creates no session.
func (m *Manager) Start(ctx context.Context, routineID int64) (models.WorkoutSession, error) {
	routine, err := m.routines.GetRoutine(ctx, routineID)
	if err != nil {
		return models.WorkoutSession{}, fmt.Errorf("loading routine %d: %w", routineID, err)
	}

	store := Seed(routine, m.now)
	ed := m.newEditor(store)

	m.mu.Lock()
	m.editors[store.ID()] = ed
	m.mu.Unlock()

	session := store.Session()
	ed.writer.Schedule(models.Snapshot{Session: session, Active: true})
	m.log.Info("session started", "session_id", store.ID(), "routine_id", routineID, "exercises", len(session.Exercises))
	return session, nil
}

// Resume rehydrates a previously snapshotted session into a new editor. The
// stopwatch resumes from the original start time. Resuming an already
// active session returns its current state.
func (m *Manager) Resume(ctx context.Context, sessionID string) (models.WorkoutSession, error) {
	m.mu.Lock()
	if ed, ok := m.editors[sessionID]; ok {
		m.mu.Unlock()
		return ed.store.Session(), nil
	}
	m.mu.Unlock()

	snap, err := m.snapshots.Load(sessionID)
	if err != nil {
		return models.WorkoutSession{}, fmt.Errorf("loading snapshot: %w", err)
	}
	if snap == nil || !snap.Active {
		return models.WorkoutSession{}, fmt.Errorf("%w: %s", ErrNoSession, sessionID)
	}

	store := Restore(snap.Session, m.now)
	ed := m.newEditor(store)

	m.mu.Lock()
	m.editors[sessionID] = ed
	m.mu.Unlock()

	m.log.Info("session resumed", "session_id", sessionID)
	return store.Session(), nil
}

// Get returns the current state and derived aggregates for a session.
func (m *Manager) Get(sessionID string) (models.WorkoutSession, models.Aggregates, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ed, ok := m.editors[sessionID]
	if !ok {
		return models.WorkoutSession{}, models.Aggregates{}, fmt.Errorf("%w: %s", ErrNoSession, sessionID)
	}
	return ed.store.Session(), ed.store.Aggregates(), nil
}

// Elapsed returns the session's stopwatch reading.
func (m *Manager) Elapsed(sessionID string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ed, ok := m.editors[sessionID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoSession, sessionID)
	}
	return ed.stopwatch.Elapsed(), nil
}

// Mutate applies one mutation to a session's store and schedules a snapshot
// write reflecting the post-mutation state. The mutation runs synchronously
// under the manager's lock.
func (m *Manager) Mutate(sessionID string, fn func(*Store) error) (models.Aggregates, error) {
	m.mu.Lock()
	ed, ok := m.editors[sessionID]
	if !ok {
		m.mu.Unlock()
		return models.Aggregates{}, fmt.Errorf("%w: %s", ErrNoSession, sessionID)
	}
	if err := fn(ed.store); err != nil {
		m.mu.Unlock()
		return models.Aggregates{}, err
	}
	session := ed.store.Session()
	agg := ed.store.Aggregates()
	m.mu.Unlock()

	ed.writer.Schedule(models.Snapshot{Session: session, Active: true})
	return agg, nil
}

// Suspend flushes the session's pending snapshot immediately and
// synchronously. Called for lifecycle events (backgrounding, shutdown)
// where the debounce timer is not guaranteed to fire.
func (m *Manager) Suspend(sessionID string) error {
	m.mu.Lock()
	ed, ok := m.editors[sessionID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSession, sessionID)
	}
	return ed.writer.Flush()
}

// SuspendAll flushes every active session. Used on process shutdown.
func (m *Manager) SuspendAll() {
	m.mu.Lock()
	editors := make([]*editor, 0, len(m.editors))
	for _, ed := range m.editors {
		editors = append(editors, ed)
	}
	m.mu.Unlock()

	for _, ed := range editors {
		if err := ed.writer.Flush(); err != nil {
			m.log.Warn("suspend flush failed", "session_id", ed.store.ID(), "error", err)
		}
	}
}

// Exit discards a session without saving: the editor is dropped and its
// snapshot deleted. Rejected while a finalize submission is in flight so a
// success racing the exit cannot be lost.
func (m *Manager) Exit(sessionID string) error {
	m.mu.Lock()
	ed, ok := m.editors[sessionID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoSession, sessionID)
	}
	if ed.pipeline.InFlight() {
		m.mu.Unlock()
		return finalize.ErrInFlight
	}
	delete(m.editors, sessionID)
	m.mu.Unlock()

	if err := ed.writer.Discard(sessionID); err != nil {
		m.log.Warn("snapshot discard failed", "session_id", sessionID, "error", err)
	}
	m.log.Info("session discarded", "session_id", sessionID)
	return nil
}

// Finalize runs the session's finalize pipeline with the genuine stopwatch
// elapsed time. On success the editor is torn down and its snapshot
// deleted; on failure the editor and its state remain untouched for a
// manual retry.
func (m *Manager) Finalize(ctx context.Context, sessionID, notes string, effort models.EffortRating) (int64, error) {
	m.mu.Lock()
	ed, ok := m.editors[sessionID]
	if !ok {
		m.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrNoSession, sessionID)
	}
	// The guard is taken under m.mu, so an Exit racing this call either
	// lands before the state read or is rejected as in flight.
	if err := ed.pipeline.Begin(); err != nil {
		m.mu.Unlock()
		return 0, err
	}
	session := ed.store.Session()
	endedAt := m.now()
	duration := ed.stopwatch.ElapsedSeconds()
	m.mu.Unlock()

	id, err := ed.pipeline.Finalize(ctx, session, endedAt, duration, notes, effort)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	delete(m.editors, sessionID)
	m.mu.Unlock()

	if err := ed.writer.Discard(sessionID); err != nil {
		m.log.Warn("snapshot discard failed", "session_id", sessionID, "error", err)
	}
	return id, nil
}

// State returns the session's finalize pipeline state.
func (m *Manager) State(sessionID string) (finalize.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ed, ok := m.editors[sessionID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoSession, sessionID)
	}
	return ed.pipeline.State(), nil
}

// ExerciseBaseline returns the historical PR baseline for one exercise in
// an active session, fetching it on first use.
func (m *Manager) ExerciseBaseline(ctx context.Context, sessionID string, exerciseID int64) (pr.Baseline, error) {
	m.mu.Lock()
	ed, ok := m.editors[sessionID]
	m.mu.Unlock()
	if !ok {
		return pr.Baseline{}, fmt.Errorf("%w: %s", ErrNoSession, sessionID)
	}
	return ed.detector.Baseline(ctx, exerciseID)
}

// ExercisePRs holds the per-set PR classifications for one exercise, in set
// order. Nil results mean the exercise's baseline could not be fetched.
type ExercisePRs struct {
	ExerciseID int64       `json:"exercise_id"`
	Results    []pr.Result `json:"results"`
}

// PRAnnotations classifies every set of every exercise against its
// baseline. Baselines for distinct exercises are fetched concurrently; a
// failed fetch leaves that exercise unannotated and never fails the call.
func (m *Manager) PRAnnotations(ctx context.Context, sessionID string) ([]ExercisePRs, error) {
	m.mu.Lock()
	ed, ok := m.editors[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, sessionID)
	}
	session := ed.store.Session()

	// Warm all baselines concurrently; Baseline dedupes in-flight fetches.
	var wg sync.WaitGroup
	for _, ex := range session.Exercises {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, _ = ed.detector.Baseline(ctx, id)
		}(ex.ExerciseID)
	}
	wg.Wait()

	out := make([]ExercisePRs, 0, len(session.Exercises))
	for _, ex := range session.Exercises {
		entry := ExercisePRs{ExerciseID: ex.ExerciseID}
		baseline, err := ed.detector.Baseline(ctx, ex.ExerciseID)
		if err == nil {
			entry.Results = make([]pr.Result, len(ex.Sets))
			for i, set := range ex.Sets {
				entry.Results[i] = pr.Classify(set, baseline)
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// Active lists the ids of all active sessions.
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.editors))
	for id := range m.editors {
		ids = append(ids, id)
	}
	return ids
}

func (m *Manager) newEditor(store *Store) *editor {
	detector := pr.NewDetector(m.history, m.log)
	detector.Bind(store.ID())
	return &editor{
		store:     store,
		stopwatch: NewStopwatch(store.StartedAt(), m.now),
		writer:    snapshot.NewWriter(m.snapshots, m.debounce, m.log),
		detector:  detector,
		pipeline:  finalize.New(m.gateway, m.bus, m.log),
	}
}
