// Package api provides the REST API for load plans, reports and ULD status.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cargo_loadplan/internal/export"
	"cargo_loadplan/internal/importer"
	"cargo_loadplan/internal/loadplan"
	"cargo_loadplan/internal/logger"
	"cargo_loadplan/internal/reports"
	"cargo_loadplan/internal/status"
	"cargo_loadplan/internal/storage"
)

// maxBodyBytes caps uploaded load plan text.
const maxBodyBytes = 4 << 20

// RunRecorder stores report runs for analytics.
type RunRecorder interface {
	RecordRuns(ctx context.Context, runs []storage.ReportRun) error
}

// Options wires the server's collaborators. Analytics and Metrics are
// optional.
type Options struct {
	Store     storage.Store
	Importer  *importer.Importer
	Tracker   *status.Tracker
	Parser    *loadplan.Parser
	Reports   *reports.Generator
	Exporter  *export.Exporter
	Analytics RunRecorder
	Metrics   http.Handler
	Logger    logger.Logger

	AuthEnabled bool
	APIKeys     []string // Valid API keys when AuthEnabled.
}

// Server serves the load plan API.
type Server struct {
	store     storage.Store
	importer  *importer.Importer
	tracker   *status.Tracker
	parser    *loadplan.Parser
	reports   *reports.Generator
	exporter  *export.Exporter
	analytics RunRecorder
	metrics   http.Handler
	log       logger.Logger

	authEnabled bool
	apiKeys     map[string]bool
}

// NewServer creates a server. Store, Importer and Tracker are required; the
// rest fall back to defaults.
func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	parser := opts.Parser
	if parser == nil {
		parser = loadplan.NewParser(log, nil)
	}
	gen := opts.Reports
	if gen == nil {
		gen = reports.NewGenerator(reports.DefaultCarrier, nil)
	}
	exp := opts.Exporter
	if exp == nil {
		exp = export.New(nil, nil)
	}

	keys := make(map[string]bool)
	for _, k := range opts.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}

	return &Server{
		store:       opts.Store,
		importer:    opts.Importer,
		tracker:     opts.Tracker,
		parser:      parser,
		reports:     gen,
		exporter:    exp,
		analytics:   opts.Analytics,
		metrics:     opts.Metrics,
		log:         log,
		authEnabled: opts.AuthEnabled,
		apiKeys:     keys,
	}
}

// Handler returns the full HTTP handler with middleware and the /api/v1 prefix.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Standard middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS for the mobile and browser clients.
	r.Use(corsMiddleware)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	r.Mount("/api/v1", s.Router())

	return r
}

// Router returns the API routes without the prefix, for embedding and tests.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	// Health check (no auth required).
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.authEnabled {
			r.Use(s.authMiddleware)
		}

		r.Post("/parse", s.handleParse)
		r.Post("/trace", s.handleTrace)
		r.Post("/reports/{kind}", s.handleReportFromText)

		r.Get("/uld/expand", s.handleExpandSection)
		r.Post("/uld/format", s.handleFormatSection)

		r.Route("/loadplans", func(r chi.Router) {
			r.Get("/", s.handleListLoadPlans)
			r.Post("/", s.handleImport)
			r.Get("/{id}", s.handleGetLoadPlan)
			r.Get("/{id}/reports/{kind}", s.handleStoredReport)
			r.Get("/{id}/uld-entries", s.handleListULDEntries)
			r.Put("/{id}/uld-entries", s.handleUpsertULDEntry)
		})

		r.Route("/uld-entries/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetULD)
			r.Post("/status", s.handleAdvanceStatus)
			r.Post("/unmark-loaded", s.handleUnmarkLoaded)
		})
	})

	return r
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check X-API-Key header first.
		apiKey := r.Header.Get("X-API-Key")

		// Fall back to Authorization: Bearer <key>.
		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}
		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
