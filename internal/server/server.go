package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/liftlog/internal/journal"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes caps import request bodies.
const maxBodyBytes = 10 << 20

// Server holds dependencies for HTTP handlers.
type Server struct {
	journal *journal.Journal
	log     *slog.Logger
	router  chi.Router
}

// New creates a new Server with all routes configured.
func New(j *journal.Journal, log *slog.Logger) *Server {
	s := &Server{
		journal: j,
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
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/import/text", s.handleImportText)
		r.Post("/import/json", s.handleImportJSON)
		r.Post("/import/alpha", s.handleImportAlpha)
		r.Get("/imports", s.handleImportLogs)

		r.Get("/sessions", s.handleExportSessions)
		r.Delete("/sessions", s.handleClearSessions)

		r.Get("/records", s.handleRecords)
		r.Get("/summary", s.handleSummary)
		r.Get("/volume/categories", s.handleVolumeByCategory)
		r.Get("/volume/daily", s.handleDailyVolume)
		r.Get("/progression", s.handleProgression)
		r.Get("/consistency", s.handleConsistency)
		r.Get("/exercises", s.handleExercises)
		r.Get("/exercises/top", s.handleTopExercises)

		r.Get("/classify", s.handleClassify)
		r.Get("/muscles", s.handleMuscleTable)
	})
}

// Mount attaches an extra handler under pattern, such as the MCP endpoint.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Mount(pattern, h)
}
