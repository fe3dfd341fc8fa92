package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/liftlog/internal/cache"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
	"github.com/go-chi/chi/v5"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	manager *session.Manager
	db      *storage.DB
	cache   *cache.ScopeCache
	log     *slog.Logger
	router  chi.Router
}

// New creates a new Server with all routes configured.
func New(manager *session.Manager, db *storage.DB, scopeCache *cache.ScopeCache, log *slog.Logger) *Server {
	s := &Server{
		manager: manager,
		db:      db,
		cache:   scopeCache,
		log:     log,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Live session editor (no auth; tsnet handles access)
	s.router.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", s.handleStartSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleExitSession)
			r.Post("/resume", s.handleResumeSession)
			r.Post("/suspend", s.handleSuspendSession)
			r.Post("/finalize", s.handleFinalizeSession)
			r.Post("/sets/toggle", s.handleToggleSet)
			r.Post("/sets/field", s.handleUpdateSetField)
			r.Post("/sets/add", s.handleAddSet)
			r.Post("/sets/remove", s.handleRemoveSet)
			r.Post("/exercises", s.handleAddAdHocExercise)
			r.Post("/exercises/remove", s.handleRemoveExercise)
			r.Post("/exercises/reorder", s.handleReorderExercises)
			r.Get("/prs", s.handlePRAnnotations)
			r.Get("/baseline/{exerciseID}", s.handleExerciseBaseline)
		})
	})

	// History and aggregates
	s.router.Get("/api/v1/routines/{id}", s.handleGetRoutine)
	s.router.Get("/api/v1/workouts", s.handleFinishedWorkouts)
	s.router.Get("/api/v1/kpis/monthly", s.handleMonthlyKPIs)
}
