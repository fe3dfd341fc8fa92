package pr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/claude/liftlog/internal/models"
)

type stubProvider struct {
	mu    sync.Mutex
	sets  []models.HistoricalSet
	err   error
	calls int
}

func (s *stubProvider) ExerciseHistory(ctx context.Context, exerciseID int64) ([]models.HistoricalSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.sets, nil
}

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func set(weight, reps string) models.SessionSet {
	return models.SessionSet{Index: 1, Weight: weight, Reps: reps}
}

// TestEstimated1RM verifies the Epley estimate.
func TestEstimated1RM(t *testing.T) {
	if got := Estimated1RM(100, 1); got < 103.3 || got > 103.4 {
		t.Errorf("1RM(100,1) = %v, want ~103.33", got)
	}
	if got := Estimated1RM(60, 10); got < 79.99 || got > 80.01 {
		t.Errorf("1RM(60,10) = %v, want ~80", got)
	}
}

// TestClassifyPriority verifies weight dominance is checked before the
// estimated 1RM: a set that beats both baselines reports a weight PR.
func TestClassifyPriority(t *testing.T) {
	baseline := Baseline{MaxWeight: 100, MaxEstimated1RM: 120}

	// 105x5 beats max weight (105 > 100) and estimated 1RM (122.5 > 120).
	res := Classify(set("105", "5"), baseline)
	if res.Type != TypeWeight {
		t.Fatalf("type = %q, want %q", res.Type, TypeWeight)
	}
	if res.Value != 105 {
		t.Errorf("value = %v, want 105", res.Value)
	}

	// 95x10 stays below max weight but estimates 126.67 > 120.
	res = Classify(set("95", "10"), baseline)
	if res.Type != Type1RM {
		t.Fatalf("type = %q, want %q", res.Type, Type1RM)
	}
	if res.Value <= 120 {
		t.Errorf("value = %v, want above baseline 120", res.Value)
	}
}

// TestClassifyTiesAndInvalid verifies exact ties never qualify and malformed
// or non-positive inputs are never classified.
func TestClassifyTiesAndInvalid(t *testing.T) {
	baseline := Baseline{MaxWeight: 100, MaxEstimated1RM: 120}

	cases := []struct {
		name   string
		weight string
		reps   string
	}{
		{"weight tie", "100", "1"},
		{"non-numeric weight", "abc", "5"},
		{"comma decimal", "102,5", "5"},
		{"empty reps", "105", ""},
		{"zero weight", "0", "10"},
		{"zero reps", "105", "0"},
	}
	for _, tc := range cases {
		if res := Classify(set(tc.weight, tc.reps), baseline); res.Type != "" {
			t.Errorf("%s: classified as %+v, want no PR", tc.name, res)
		}
	}

	// A 1RM tie does not qualify either: the candidate's estimate equals
	// the baseline bit for bit.
	tied := Baseline{MaxWeight: 100, MaxEstimated1RM: Estimated1RM(90, 10)}
	if res := Classify(set("90", "10"), tied); res.Type != "" {
		t.Errorf("1RM tie classified as %+v, want no PR", res)
	}
}

// TestClassifyEmptyBaseline verifies any positive set is a PR against an
// exercise with no history.
func TestClassifyEmptyBaseline(t *testing.T) {
	res := Classify(set("20", "5"), Baseline{})
	if res.Type != TypeWeight || res.Value != 20 {
		t.Errorf("result = %+v, want weight PR at 20", res)
	}
}

// TestBaselineFetchOnce verifies concurrent callers share one fetch and
// later calls hit the cache.
func TestBaselineFetchOnce(t *testing.T) {
	provider := &stubProvider{sets: []models.HistoricalSet{{Weight: 80, Reps: 8}}}
	d := NewDetector(provider, discardLog())
	d.Bind("session-a")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Baseline(context.Background(), 1); err != nil {
				t.Errorf("baseline: %v", err)
			}
		}()
	}
	wg.Wait()

	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}

	b, err := d.Baseline(context.Background(), 1)
	if err != nil {
		t.Fatalf("baseline: %v", err)
	}
	if b.MaxWeight != 80 {
		t.Errorf("max weight = %v, want 80", b.MaxWeight)
	}
	if b.MaxEstimated1RM != Estimated1RM(80, 8) {
		t.Errorf("max 1RM = %v, want %v", b.MaxEstimated1RM, Estimated1RM(80, 8))
	}
}

// TestBindInvalidatesCache verifies binding a new session id clears cached
// baselines while rebinding the same id keeps them.
func TestBindInvalidatesCache(t *testing.T) {
	provider := &stubProvider{}
	d := NewDetector(provider, discardLog())
	d.Bind("session-a")

	if _, err := d.Baseline(context.Background(), 1); err != nil {
		t.Fatalf("baseline: %v", err)
	}
	d.Bind("session-a")
	if _, err := d.Baseline(context.Background(), 1); err != nil {
		t.Fatalf("baseline: %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("calls after same-session rebind = %d, want 1", provider.calls)
	}

	d.Bind("session-b")
	if _, err := d.Baseline(context.Background(), 1); err != nil {
		t.Fatalf("baseline: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("calls after new session = %d, want 2", provider.calls)
	}
}

// TestBaselineError verifies a failed fetch surfaces the error and
// ClassifySet degrades to no PR.
func TestBaselineError(t *testing.T) {
	provider := &stubProvider{err: errors.New("db down")}
	d := NewDetector(provider, discardLog())
	d.Bind("session-a")

	if _, err := d.Baseline(context.Background(), 1); err == nil {
		t.Fatal("expected fetch error")
	}
	if res := d.ClassifySet(context.Background(), 1, set("100", "5")); res.Type != "" {
		t.Errorf("result = %+v, want no PR on fetch failure", res)
	}
}
