package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/cache"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/snapshot"
)

type stubRoutines struct{}

func (stubRoutines) GetRoutine(ctx context.Context, id int64) (*models.RoutineDefinition, error) {
	if id != 7 {
		return nil, fmt.Errorf("routine not found: %d", id)
	}
	reps := 10
	weight := 60.0
	return &models.RoutineDefinition{
		ID:   7,
		Name: "Push Day",
		Exercises: []models.RoutineExercise{
			{ExerciseID: 100, Name: "Bench Press", Series: 3, Reps: &reps, SuggestedWeight: &weight, Order: 1},
		},
	}, nil
}

type stubHistory struct{}

func (stubHistory) ExerciseHistory(ctx context.Context, exerciseID int64) ([]models.HistoricalSet, error) {
	return []models.HistoricalSet{{Weight: 100, Reps: 5}}, nil
}

type stubGateway struct{ fail bool }

func (g *stubGateway) CreateSession(ctx context.Context, payload *models.SessionPayload) (int64, error) {
	if g.fail {
		return 0, fmt.Errorf("rpc timeout")
	}
	return 42, nil
}

func newTestServer(t *testing.T) (*Server, *session.Manager) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	snaps, err := snapshot.Open(t.TempDir())
	if err != nil {
		t.Fatalf("snapshot store: %v", err)
	}
	t.Cleanup(func() { snaps.Close() })

	scopeCache := cache.New(60, log)
	manager := session.NewManager(stubRoutines{}, stubHistory{}, &stubGateway{}, scopeCache, snaps, time.Hour, log)
	return New(manager, nil, scopeCache, log), manager
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func startSession(t *testing.T, srv *Server) models.WorkoutSession {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/sessions", map[string]any{"routine_id": 7})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var sess models.WorkoutSession
	if err := json.NewDecoder(rec.Body).Decode(&sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return sess
}

// TestStartAndGetSession verifies the create endpoint seeds from the routine
// and the read endpoint returns state plus aggregates.
func TestStartAndGetSession(t *testing.T) {
	srv, _ := newTestServer(t)
	sess := startSession(t, srv)

	if len(sess.Exercises) != 1 || len(sess.Exercises[0].Sets) != 3 {
		t.Fatalf("seeded session = %+v, want 1 exercise with 3 sets", sess.Exercises)
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/sessions/"+sess.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Aggregates models.Aggregates `json:"aggregates"`
		State      string            `json:"state"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Aggregates.TotalSets != 3 {
		t.Errorf("total sets = %d, want 3", resp.Aggregates.TotalSets)
	}
	if resp.State != "editing" {
		t.Errorf("state = %q, want editing", resp.State)
	}
}

// TestMutationEndpoints verifies toggle and field updates flow through to
// aggregates, and domain errors map to their HTTP statuses.
func TestMutationEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	sess := startSession(t, srv)
	base := "/api/v1/sessions/" + sess.ID

	rec := doJSON(t, srv, http.MethodPost, base+"/sets/toggle", map[string]any{"exercise_idx": 0, "set_idx": 0})
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d: %s", rec.Code, rec.Body.String())
	}
	var agg models.Aggregates
	if err := json.NewDecoder(rec.Body).Decode(&agg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if agg.CompletedSets != 1 || agg.TotalVolume != 600 {
		t.Errorf("aggregates = %+v, want 1 completed, volume 600", agg)
	}

	rec = doJSON(t, srv, http.MethodPost, base+"/sets/field",
		map[string]any{"exercise_idx": 0, "set_idx": 0, "field": "weight", "value": "65"})
	if rec.Code != http.StatusOK {
		t.Fatalf("field status = %d: %s", rec.Code, rec.Body.String())
	}

	// Unknown field name is a client error.
	rec = doJSON(t, srv, http.MethodPost, base+"/sets/field",
		map[string]any{"exercise_idx": 0, "set_idx": 0, "field": "bogus", "value": "1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad field status = %d, want 400", rec.Code)
	}

	// Out-of-range set addresses are not found.
	rec = doJSON(t, srv, http.MethodPost, base+"/sets/toggle", map[string]any{"exercise_idx": 0, "set_idx": 99})
	if rec.Code != http.StatusNotFound {
		t.Errorf("out-of-range status = %d, want 404", rec.Code)
	}

	// Unknown session id is not found.
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/sessions/nope/sets/toggle", map[string]any{"exercise_idx": 0, "set_idx": 0})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing session status = %d, want 404", rec.Code)
	}
}

// TestFinalizeEndpoint verifies the happy path returns the persisted session
// id and tears the session down, and a session with no valid sets maps to
// 422.
func TestFinalizeEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	sess := startSession(t, srv)
	base := "/api/v1/sessions/" + sess.ID

	rec := doJSON(t, srv, http.MethodPost, base+"/sets/toggle", map[string]any{"exercise_idx": 0, "set_idx": 0})
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: %s", rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, base+"/finalize", map[string]any{"notes": "done", "effort": "hard"})
	if rec.Code != http.StatusOK {
		t.Fatalf("finalize status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		SessionID int64 `json:"session_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID != 42 {
		t.Errorf("session_id = %d, want 42", resp.SessionID)
	}

	// Finalized sessions are gone.
	rec = doJSON(t, srv, http.MethodGet, base, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after finalize = %d, want 404", rec.Code)
	}
}

// TestFinalizeNoValidSets verifies validation failures map to 422 and keep
// the session editable.
func TestFinalizeNoValidSets(t *testing.T) {
	srv, _ := newTestServer(t)
	sess := startSession(t, srv)
	base := "/api/v1/sessions/" + sess.ID

	// Break every set so nothing parses.
	for i := 0; i < 3; i++ {
		rec := doJSON(t, srv, http.MethodPost, base+"/sets/field",
			map[string]any{"exercise_idx": 0, "set_idx": i, "field": "weight", "value": "x"})
		if rec.Code != http.StatusOK {
			t.Fatalf("field: %s", rec.Body.String())
		}
	}

	rec := doJSON(t, srv, http.MethodPost, base+"/finalize", map[string]any{})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("finalize status = %d, want 422: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, base, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("session gone after validation failure: %d", rec.Code)
	}
}

// TestExitEndpoint verifies DELETE discards the session.
func TestExitEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	sess := startSession(t, srv)
	base := "/api/v1/sessions/" + sess.ID

	rec := doJSON(t, srv, http.MethodDelete, base, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("exit status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, srv, http.MethodGet, base, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after exit = %d, want 404", rec.Code)
	}
}

// TestPRAnnotationsEndpoint verifies per-set classifications against the
// stubbed history baseline.
func TestPRAnnotationsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	sess := startSession(t, srv)
	base := "/api/v1/sessions/" + sess.ID

	rec := doJSON(t, srv, http.MethodPost, base+"/sets/field",
		map[string]any{"exercise_idx": 0, "set_idx": 0, "field": "weight", "value": "105"})
	if rec.Code != http.StatusOK {
		t.Fatalf("field: %s", rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, base+"/prs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("prs status = %d: %s", rec.Code, rec.Body.String())
	}
	var annotations []session.ExercisePRs
	if err := json.NewDecoder(rec.Body).Decode(&annotations); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(annotations) != 1 || len(annotations[0].Results) != 3 {
		t.Fatalf("annotations = %+v, want 1 exercise with 3 results", annotations)
	}
	if annotations[0].Results[0].Type != "WEIGHT" {
		t.Errorf("set 1 = %+v, want weight PR (105 > baseline 100)", annotations[0].Results[0])
	}
	if annotations[0].Results[1].Type != "" {
		t.Errorf("set 2 = %+v, want no PR (60x10 under baseline)", annotations[0].Results[1])
	}
}

// TestRequestLoggingMiddleware verifies status codes pass through the
// logging wrapper.
func TestRequestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	handler := RequestLogging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
	if !bytes.Contains(buf.Bytes(), []byte("status=418")) {
		t.Errorf("log output missing status: %s", buf.String())
	}
}
