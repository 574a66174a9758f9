package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/gymcoach/internal/events"
	"github.com/claude/gymcoach/internal/genai"
	"github.com/claude/gymcoach/internal/metrics"
	"github.com/claude/gymcoach/internal/models"
	"github.com/claude/gymcoach/internal/notify"
	"github.com/claude/gymcoach/internal/prompt"
	"github.com/claude/gymcoach/internal/restimer"
	"github.com/claude/gymcoach/internal/session"
	"github.com/claude/gymcoach/internal/storage"
)

// Store is the remote persistence used by the handlers. *storage.DB implements it.
type Store interface {
	Ping(ctx context.Context) error
	InsertWorkout(ctx context.Context, userID string, w models.Workout) (models.WorkoutRecord, error)
	GetWorkout(ctx context.Context, id uuid.UUID, userID string) (*models.WorkoutRecord, error)
	DeleteWorkout(ctx context.Context, id uuid.UUID, userID string) error
	ListWorkouts(ctx context.Context, userID string, limit int) ([]models.WorkoutRecord, error)
	RecentHistory(ctx context.Context, userID string, n int) ([]models.HistoryEntry, error)
	VolumeSeries(ctx context.Context, userID, bucket string) ([]storage.VolumePoint, error)
	GetDataStats(ctx context.Context, userID string) (*storage.DataStats, error)
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	UpsertProfile(ctx context.Context, p models.Profile) (models.Profile, error)
	SetLanguage(ctx context.Context, userID string, lang models.Language) error
	SetNotificationPermission(ctx context.Context, userID string, perm models.Permission) error
	InsertGenerationLog(ctx context.Context, log storage.GenerationLog) (int64, error)
	QueryGenerationLogs(ctx context.Context, userID string, limit int) ([]storage.GenerationLog, error)
}

// Coach generates content with the model. *genai.Coach implements it.
type Coach interface {
	Menu(ctx context.Context, req prompt.MenuRequest) (models.Workout, error)
	Alternatives(ctx context.Context, exerciseName string, lang models.Language) ([]string, error)
	Answer(ctx context.Context, exerciseName, question string, lang models.Language) (string, error)
}

// Deps are the collaborators of a Server.
type Deps struct {
	DB       Store
	Coach    Coach
	Models   genai.Models
	Sessions *session.Store
	Timers   *restimer.Registry
	Notifier *notify.Notifier
	Events   events.Publisher
	Metrics  *metrics.Manager
	Log      *slog.Logger

	// Identity attributes requests to a user. Defaults to DevIdentity("local").
	Identity func(http.Handler) http.Handler
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	// MCP serves /mcp when set. It runs behind Identity.
	MCP http.Handler
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       Store
	coach    Coach
	models   genai.Models
	sessions *session.Store
	timers   *restimer.Registry
	notifier *notify.Notifier
	events   events.Publisher
	metrics  *metrics.Manager
	log      *slog.Logger
	identity func(http.Handler) http.Handler
	now      func() time.Time
	locks    userLocks
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(d Deps) *Server {
	s := &Server{
		db:       d.DB,
		coach:    d.Coach,
		models:   d.Models,
		sessions: d.Sessions,
		timers:   d.Timers,
		notifier: d.Notifier,
		events:   d.Events,
		metrics:  d.Metrics,
		log:      d.Log,
		identity: d.Identity,
		now:      time.Now,
		router:   chi.NewRouter(),
	}
	if s.identity == nil {
		s.identity = DevIdentity("local")
	}
	if s.events == nil {
		s.events = events.Noop{}
	}
	if s.models == (genai.Models{}) {
		s.models = genai.DefaultModels
	}
	s.routes(d.MetricsHandler, d.MCP)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes(metricsHandler, mcpHandler http.Handler) {
	s.router.Use(RequestLogging(s.log))
	if s.metrics != nil {
		s.router.Use(RequestMetrics(s.metrics))
	}
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)
	if metricsHandler != nil {
		s.router.Method(http.MethodGet, "/metrics", metricsHandler)
	}
	if mcpHandler != nil {
		s.router.With(s.identity).Handle("/mcp", mcpHandler)
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identity)

		r.Get("/me", s.handleMe)

		r.Get("/profile", s.handleGetProfile)
		r.Put("/profile", s.handlePutProfile)
		r.Put("/profile/language", s.handleSetLanguage)
		r.Put("/notifications/permission", s.handleSetPermission)
		r.Get("/notifications", s.handleNotifications)

		r.Post("/menu", s.handleGenerateMenu)

		r.Route("/draft", func(r chi.Router) {
			r.Get("/", s.handleGetDraft)
			r.Delete("/", s.handleDiscardDraft)
			r.Get("/exists", s.handleDraftExists)
			r.Post("/complete", s.handleCompleteDraft)
			r.Route("/exercises/{exerciseID}", func(r chi.Router) {
				r.Patch("/sets/{setID}", s.handleSetField)
				r.Post("/sets/{setID}/toggle", s.handleToggleSet)
				r.Post("/alternatives", s.handleAlternatives)
				r.Put("/name", s.handleSubstitute)
				r.Post("/questions", s.handleQuestion)
			})
		})

		r.Get("/timer", s.handleGetTimer)
		r.Delete("/timer", s.handleCancelTimer)
		r.Get("/timer/preference", s.handleGetTimerPreference)
		r.Put("/timer/preference", s.handleSetTimerPreference)

		r.Get("/workouts", s.handleListWorkouts)
		r.Get("/workouts/{id}", s.handleGetWorkout)
		r.Delete("/workouts/{id}", s.handleDeleteWorkout)

		r.Get("/dashboard/volume", s.handleVolume)
		r.Get("/stats", s.handleStats)
		r.Get("/generation-logs", s.handleGenerationLogs)
	})
}

// userLocks serializes draft mutations per user so edits apply in arrival order.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
