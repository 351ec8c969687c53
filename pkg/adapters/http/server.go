package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/pmguide"
	"github.com/aretw0/pmguide/internal/logging"
	"github.com/aretw0/pmguide/internal/validator"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/knowledge"
	"github.com/aretw0/pmguide/pkg/ports"
	"github.com/aretw0/pmguide/pkg/progress"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// Engine is the dialogue surface served over HTTP.
type Engine interface {
	Chat(ctx context.Context, sessionID, userID, message string) (*domain.ChatResponse, error)
	Session(ctx context.Context, sessionID string) (*domain.ConversationContext, error)
	Reset(ctx context.Context, sessionID string) error
	AdvanceStep(ctx context.Context, sessionID string) (domain.Progress, *domain.ProgressDelta, error)
	Knowledge() *knowledge.Base
}

// ProgressService manages per-user progress records.
type ProgressService interface {
	Get(ctx context.Context, userID string) (*domain.UserProgress, error)
	Update(ctx context.Context, userID string, patch progress.Patch) (*domain.UserProgress, error)
	AddTask(ctx context.Context, userID string, t progress.NewTask) (domain.Task, error)
	UpdateTask(ctx context.Context, userID, taskID string, status domain.TaskStatus) (domain.Task, error)
}

// Server holds the collaborators of the HTTP handlers.
type Server struct {
	Engine    Engine
	Progress  ProgressService
	Templates ports.TemplateSource

	validator   *validator.Validator
	metrics     http.Handler
	corsOrigins []string
	version     string
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithProgress enables the /api/v1/progress routes.
func WithProgress(p ProgressService) Option {
	return func(s *Server) {
		s.Progress = p
	}
}

// WithTemplates sets the source of template downloads.
func WithTemplates(t ports.TemplateSource) Option {
	return func(s *Server) {
		s.Templates = t
	}
}

// WithValidator replaces the default request validator.
func WithValidator(v *validator.Validator) Option {
	return func(s *Server) {
		s.validator = v
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithCORSOrigins sets the allowed origins (default "*").
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// WithVersion overrides the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithClock sets the time source of /health.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// NewServer creates a Server for engine.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		Engine:      engine,
		validator:   validator.New(),
		corsOrigins: []string{"*"},
		version:     strings.TrimSpace(pmguide.Version),
		logger:      logging.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates the HTTP handler for engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	return NewServer(engine, opts...).Routes()
}

// Routes builds the chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/chat", func(r chi.Router) {
			r.Post("/message", s.postMessage)
			r.Get("/session/{sessionId}", s.getSession)
			r.Delete("/session/{sessionId}", s.deleteSession)
			r.Post("/session/{sessionId}/advance", s.advanceSession)
		})
		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.listDocuments)
			r.Get("/{id}", s.getDocument)
			r.Get("/{id}/download", s.downloadDocument)
		})
		if s.Progress != nil {
			r.Route("/progress/{userId}", func(r chi.Router) {
				r.Get("/", s.getProgress)
				r.Put("/", s.putProgress)
				r.Post("/tasks", s.postTask)
				r.Put("/tasks/{taskId}", s.putTask)
			})
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "リソースが見つかりません")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "許可されていないメソッドです")
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"version":   s.version,
	})
}
