package finalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// State is the finalize pipeline's position in its lifecycle.
type State string

const (
	StateEditing    State = "editing"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StatePersisted  State = "persisted"
	StateFailed     State = "failed"
)

// ErrInFlight reports a finalize attempt while a submission is already
// running. At most one submission is in flight per session.
var ErrInFlight = errors.New("finalize already in flight")

// Cache scopes invalidated after a successful persist.
const (
	ScopeFinishedWorkouts = "finished-workouts"
	ScopeMonthlyKPIs      = "monthly-kpis"
)

// Gateway is the remote atomic create-session operation. It succeeds or
// fails as a whole; the client performs no partial writes or compensating
// deletes.
type Gateway interface {
	CreateSession(ctx context.Context, payload *models.SessionPayload) (int64, error)
}

// Bus receives tag-scoped cache invalidation signals. Signals are emitted
// only after successful persistence.
type Bus interface {
	Invalidate(scope string)
}

// Pipeline runs the finalize state machine for one session:
// Editing -> Validating -> Submitting -> Persisted or Failed. A failed
// submission releases the single-flight guard so the user can retry
// manually; nothing retries automatically and local state is never cleared
// on failure.
type Pipeline struct {
	gateway Gateway
	bus     Bus
	log     *slog.Logger

	mu       sync.Mutex
	state    State
	inFlight bool
}

// New creates a pipeline in the Editing state.
func New(gateway Gateway, bus Bus, log *slog.Logger) *Pipeline {
	return &Pipeline{gateway: gateway, bus: bus, log: log, state: StateEditing}
}

// State returns the current pipeline state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// InFlight reports whether a submission is currently running.
func (p *Pipeline) InFlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// Begin acquires the single-flight guard and moves the pipeline to
// Validating. The guard stays held until Finalize settles, so once Begin
// returns nil no other observer sees the pipeline idle before the
// submission resolves.
func (p *Pipeline) Begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight {
		return ErrInFlight
	}
	if p.state == StatePersisted {
		return errors.New("session already persisted")
	}
	p.inFlight = true
	p.state = StateValidating
	return nil
}

// Finalize validates the session, submits it atomically, and on success
// signals cache invalidation and returns the persisted session id.
// Validation failures abort before any network call. The caller must hold
// the single-flight guard via Begin.
func (p *Pipeline) Finalize(ctx context.Context, session models.WorkoutSession, endedAt time.Time, durationSeconds int, notes string, effort models.EffortRating) (int64, error) {
	payload, err := BuildPayload(session, endedAt, durationSeconds, notes, effort)
	if err != nil {
		p.settle(StateEditing)
		return 0, err
	}

	p.setState(StateSubmitting)
	id, err := p.gateway.CreateSession(ctx, payload)
	if err != nil {
		p.settle(StateFailed)
		return 0, fmt.Errorf("persisting session: %w", err)
	}

	p.settle(StatePersisted)
	p.log.Info("session persisted",
		"session_id", id,
		"routine_id", payload.RoutineID,
		"sets", len(payload.Sets),
		"total_volume", payload.TotalVolume,
	)

	p.bus.Invalidate(ScopeFinishedWorkouts)
	p.bus.Invalidate(ScopeMonthlyKPIs)
	return id, nil
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// settle records a terminal-or-retry state and releases the single-flight
// guard. A Failed pipeline may finalize again; Persisted may not.
func (p *Pipeline) settle(s State) {
	p.mu.Lock()
	p.state = s
	p.inFlight = false
	p.mu.Unlock()
}
