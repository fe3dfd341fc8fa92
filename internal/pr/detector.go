package pr

import (
	"context"
	"log/slog"
	"sync"

	"github.com/claude/liftlog/internal/models"
)

// Type classifies a personal record.
type Type string

const (
	// TypeWeight marks a set whose weight exceeds the historical maximum.
	TypeWeight Type = "WEIGHT"
	// Type1RM marks a set whose estimated one-rep max exceeds the
	// historical maximum.
	Type1RM Type = "1RM"
)

// Result is the PR classification for a candidate set. A zero Result (empty
// Type) means the set is not a PR.
type Result struct {
	Type  Type    `json:"type,omitempty"`
	Value float64 `json:"value,omitempty"`
}

// Baseline is the historical best for one exercise, computed from sets
// completed in sessions persisted before the current one. A zero baseline
// means no history: any positive candidate qualifies.
type Baseline struct {
	MaxWeight       float64 `json:"max_weight"`
	MaxEstimated1RM float64 `json:"max_estimated_1rm"`
}

// HistoryProvider returns prior completed weight/reps pairs for an exercise.
// Only finished, persisted sessions contribute, so the in-progress session
// can never feed its own baseline.
type HistoryProvider interface {
	ExerciseHistory(ctx context.Context, exerciseID int64) ([]models.HistoricalSet, error)
}

// Detector computes and caches per-exercise baselines for one session at a
// time. Fetches run once per exercise per session; concurrent callers for
// the same exercise share a single fetch. Binding a new session id drops the
// cache, so a freshly mounted session never reuses a stale baseline.
type Detector struct {
	provider HistoryProvider
	log      *slog.Logger

	mu        sync.Mutex
	sessionID string
	entries   map[int64]*baselineEntry
}

type baselineEntry struct {
	once     sync.Once
	baseline Baseline
	err      error
}

// NewDetector creates a detector over the given history provider.
func NewDetector(provider HistoryProvider, log *slog.Logger) *Detector {
	return &Detector{
		provider: provider,
		log:      log,
		entries:  make(map[int64]*baselineEntry),
	}
}

// Bind scopes the cache to a session id, invalidating all baselines when the
// id changes.
func (d *Detector) Bind(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sessionID != sessionID {
		d.sessionID = sessionID
		d.entries = make(map[int64]*baselineEntry)
	}
}

// Baseline returns the exercise's historical baseline, fetching it on first
// use. Errors are returned to the caller and cached for the session: a
// failed baseline leaves that exercise without PR annotations but never
// blocks editing or finalize.
func (d *Detector) Baseline(ctx context.Context, exerciseID int64) (Baseline, error) {
	d.mu.Lock()
	entry, ok := d.entries[exerciseID]
	if !ok {
		entry = &baselineEntry{}
		d.entries[exerciseID] = entry
	}
	d.mu.Unlock()

	entry.once.Do(func() {
		history, err := d.provider.ExerciseHistory(ctx, exerciseID)
		if err != nil {
			entry.err = err
			d.log.Warn("baseline fetch failed", "exercise_id", exerciseID, "error", err)
			return
		}
		entry.baseline = buildBaseline(history)
	})
	return entry.baseline, entry.err
}

// Classify decides whether a candidate set beats the baseline. Weight
// dominance is checked first, then estimated 1RM; ties never qualify, and
// sets with non-numeric weight or reps are never classified.
func Classify(set models.SessionSet, baseline Baseline) Result {
	weight, reps, ok := models.ParseSetNumbers(set)
	if !ok || weight <= 0 || reps <= 0 {
		return Result{}
	}
	if weight > baseline.MaxWeight {
		return Result{Type: TypeWeight, Value: weight}
	}
	if est := Estimated1RM(weight, reps); est > baseline.MaxEstimated1RM {
		return Result{Type: Type1RM, Value: est}
	}
	return Result{}
}

// ClassifySet fetches the exercise's baseline and classifies the set against
// it. A fetch error yields a non-PR result.
func (d *Detector) ClassifySet(ctx context.Context, exerciseID int64, set models.SessionSet) Result {
	baseline, err := d.Baseline(ctx, exerciseID)
	if err != nil {
		return Result{}
	}
	return Classify(set, baseline)
}

func buildBaseline(history []models.HistoricalSet) Baseline {
	var b Baseline
	for _, h := range history {
		if h.Weight <= 0 || h.Reps <= 0 {
			continue
		}
		if h.Weight > b.MaxWeight {
			b.MaxWeight = h.Weight
		}
		if est := Estimated1RM(h.Weight, h.Reps); est > b.MaxEstimated1RM {
			b.MaxEstimated1RM = est
		}
	}
	return b
}
