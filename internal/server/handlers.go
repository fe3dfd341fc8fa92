package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/claude/liftlog/internal/finalize"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoutineID int64 `json:"routine_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	sess, err := s.manager.Start(r.Context(), req.RoutineID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Resume(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, agg, err := s.manager.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	elapsed, err := s.manager.Elapsed(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	state, err := s.manager.State(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session":         sess,
		"aggregates":      agg,
		"elapsed_seconds": int(elapsed.Seconds()),
		"state":           state,
	})
}

func (s *Server) handleExitSession(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Exit(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

func (s *Server) handleSuspendSession(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Suspend(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "suspended"})
}

func (s *Server) handleFinalizeSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes  string `json:"notes"`
		Effort string `json:"effort"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	id, err := s.manager.Finalize(r.Context(), chi.URLParam(r, "id"), req.Notes, models.ParseEffort(req.Effort))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id})
}

type setRef struct {
	ExerciseIdx int `json:"exercise_idx"`
	SetIdx      int `json:"set_idx"`
}

func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(*session.Store) error) {
	agg, err := s.manager.Mutate(chi.URLParam(r, "id"), fn)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (s *Server) handleToggleSet(w http.ResponseWriter, r *http.Request) {
	var req setRef
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.mutate(w, r, func(st *session.Store) error {
		return st.ToggleSetCompletion(req.ExerciseIdx, req.SetIdx)
	})
}

func (s *Server) handleUpdateSetField(w http.ResponseWriter, r *http.Request) {
	var req struct {
		setRef
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.mutate(w, r, func(st *session.Store) error {
		return st.UpdateSetField(req.ExerciseIdx, req.SetIdx, req.Field, req.Value)
	})
}

func (s *Server) handleAddSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseIdx int `json:"exercise_idx"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.mutate(w, r, func(st *session.Store) error {
		return st.AddSet(req.ExerciseIdx)
	})
}

func (s *Server) handleRemoveSet(w http.ResponseWriter, r *http.Request) {
	var req setRef
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.mutate(w, r, func(st *session.Store) error {
		return st.RemoveSet(req.ExerciseIdx, req.SetIdx)
	})
}

func (s *Server) handleAddAdHocExercise(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseID int64               `json:"exercise_id"`
		Config     *models.AdHocConfig `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	ex, err := s.db.GetCatalogExercise(r.Context(), req.ExerciseID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	s.mutate(w, r, func(st *session.Store) error {
		return st.AddAdHocExercise(*ex, req.Config)
	})
}

func (s *Server) handleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseIdx int `json:"exercise_idx"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.mutate(w, r, func(st *session.Store) error {
		return st.RemoveExercise(req.ExerciseIdx)
	})
}

func (s *Server) handleReorderExercises(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseIDs []int64 `json:"exercise_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.mutate(w, r, func(st *session.Store) error {
		return st.Reorder(req.ExerciseIDs)
	})
}

func (s *Server) handlePRAnnotations(w http.ResponseWriter, r *http.Request) {
	annotations, err := s.manager.PRAnnotations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, annotations)
}

func (s *Server) handleExerciseBaseline(w http.ResponseWriter, r *http.Request) {
	exerciseID, err := strconv.ParseInt(chi.URLParam(r, "exerciseID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid exercise ID"})
		return
	}
	baseline, err := s.manager.ExerciseBaseline(r.Context(), chi.URLParam(r, "id"), exerciseID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, baseline)
}

func (s *Server) handleGetRoutine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid routine ID"})
		return
	}
	routine, err := s.db.GetRoutine(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routine)
}

func (s *Server) handleFinishedWorkouts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	key := "limit=" + strconv.Itoa(limit)
	if cached, ok := s.cache.Get(finalize.ScopeFinishedWorkouts, key); ok {
		writeJSONBytes(w, http.StatusOK, cached)
		return
	}

	workouts, err := s.db.ListFinishedWorkouts(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	body, err := json.Marshal(workouts)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.cache.Set(finalize.ScopeFinishedWorkouts, key, body)
	writeJSONBytes(w, http.StatusOK, body)
}

func (s *Server) handleMonthlyKPIs(w http.ResponseWriter, r *http.Request) {
	months := queryInt(r, "months", 12)
	key := "months=" + strconv.Itoa(months)
	if cached, ok := s.cache.Get(finalize.ScopeMonthlyKPIs, key); ok {
		writeJSONBytes(w, http.StatusOK, cached)
		return
	}

	kpis, err := s.db.MonthlyKPIs(r.Context(), months)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	body, err := json.Marshal(kpis)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.cache.Set(finalize.ScopeMonthlyKPIs, key, body)
	writeJSONBytes(w, http.StatusOK, body)
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNoSession), errors.Is(err, session.ErrNotFound),
		errors.Is(err, storage.ErrRoutineNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrDuplicateExercise), errors.Is(err, finalize.ErrInFlight):
		status = http.StatusConflict
	case errors.Is(err, finalize.ErrNoValidSets):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrInvalidField):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONBytes(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func queryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
