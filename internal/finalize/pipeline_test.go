package finalize

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/models"
)

type stubGateway struct {
	mu      sync.Mutex
	err     error
	block   chan struct{}
	created int
}

func (g *stubGateway) CreateSession(ctx context.Context, payload *models.SessionPayload) (int64, error) {
	if g.block != nil {
		<-g.block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return 0, g.err
	}
	g.created++
	return int64(g.created), nil
}

type stubBus struct {
	mu     sync.Mutex
	scopes []string
}

func (b *stubBus) Invalidate(scope string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scopes = append(b.scopes, scope)
}

func validSession() models.WorkoutSession {
	return models.WorkoutSession{
		ID:        "sess-1",
		RoutineID: 7,
		StartedAt: time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC),
		Exercises: []models.SessionExercise{
			{ExerciseID: 100, Order: 1, Sets: []models.SessionSet{
				{Index: 1, Weight: "50", Reps: "10", Completed: true},
			}},
		},
	}
}

func newTestPipeline(g Gateway, b Bus) *Pipeline {
	return New(g, b, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// TestPipelineHappyPath verifies the full transition to Persisted with both
// cache scopes invalidated afterwards.
func TestPipelineHappyPath(t *testing.T) {
	gateway := &stubGateway{}
	bus := &stubBus{}
	p := newTestPipeline(gateway, bus)

	if got := p.State(); got != StateEditing {
		t.Fatalf("initial state = %q, want %q", got, StateEditing)
	}

	if err := p.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	id, err := p.Finalize(context.Background(), validSession(), time.Now(), 600, "", models.EffortNone)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if id != 1 {
		t.Errorf("id = %d, want 1", id)
	}
	if got := p.State(); got != StatePersisted {
		t.Errorf("state = %q, want %q", got, StatePersisted)
	}
	if len(bus.scopes) != 2 || bus.scopes[0] != ScopeFinishedWorkouts || bus.scopes[1] != ScopeMonthlyKPIs {
		t.Errorf("scopes = %v, want both history scopes in order", bus.scopes)
	}

	// A persisted session cannot finalize again.
	if err := p.Begin(); err == nil {
		t.Error("expected error beginning finalize on a persisted session")
	}
}

// TestPipelineValidationFailure verifies validation aborts without touching
// the gateway and returns the pipeline to Editing.
func TestPipelineValidationFailure(t *testing.T) {
	gateway := &stubGateway{}
	bus := &stubBus{}
	p := newTestPipeline(gateway, bus)

	empty := validSession()
	empty.Exercises[0].Sets[0].Weight = "abc"

	if err := p.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	_, err := p.Finalize(context.Background(), empty, time.Now(), 600, "", models.EffortNone)
	if !errors.Is(err, ErrNoValidSets) {
		t.Fatalf("err = %v, want ErrNoValidSets", err)
	}
	if gateway.created != 0 {
		t.Error("gateway called despite validation failure")
	}
	if got := p.State(); got != StateEditing {
		t.Errorf("state = %q, want %q", got, StateEditing)
	}
	if len(bus.scopes) != 0 {
		t.Errorf("scopes invalidated on failure: %v", bus.scopes)
	}
}

// TestPipelineSubmitFailure verifies a gateway error lands in Failed, emits
// no invalidation, and still allows a manual retry.
func TestPipelineSubmitFailure(t *testing.T) {
	gateway := &stubGateway{err: errors.New("rpc timeout")}
	bus := &stubBus{}
	p := newTestPipeline(gateway, bus)

	if err := p.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	_, err := p.Finalize(context.Background(), validSession(), time.Now(), 600, "", models.EffortNone)
	if err == nil {
		t.Fatal("expected submit error")
	}
	if got := p.State(); got != StateFailed {
		t.Errorf("state = %q, want %q", got, StateFailed)
	}
	if len(bus.scopes) != 0 {
		t.Errorf("scopes invalidated on failure: %v", bus.scopes)
	}

	gateway.mu.Lock()
	gateway.err = nil
	gateway.mu.Unlock()

	if err := p.Begin(); err != nil {
		t.Fatalf("retry begin: %v", err)
	}
	id, err := p.Finalize(context.Background(), validSession(), time.Now(), 600, "", models.EffortNone)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if id != 1 {
		t.Errorf("retry id = %d, want 1", id)
	}
}

// TestPipelineSingleFlight verifies a second finalize attempt is rejected
// with ErrInFlight from the moment the guard is acquired.
func TestPipelineSingleFlight(t *testing.T) {
	gateway := &stubGateway{block: make(chan struct{})}
	bus := &stubBus{}
	p := newTestPipeline(gateway, bus)

	if err := p.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	done := make(chan error, 1)
	go func() {
		_, err := p.Finalize(context.Background(), validSession(), time.Now(), 600, "", models.EffortNone)
		done <- err
	}()

	// The guard is held from Begin on, before the submission even starts.
	if err := p.Begin(); !errors.Is(err, ErrInFlight) {
		t.Errorf("concurrent begin = %v, want ErrInFlight", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for p.State() != StateSubmitting && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if p.State() != StateSubmitting {
		t.Fatal("first finalize never reached Submitting")
	}

	close(gateway.block)
	if err := <-done; err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if got := p.State(); got != StatePersisted {
		t.Errorf("state = %q, want %q", got, StatePersisted)
	}
}
