// Package httpapi exposes the tutoring and pronunciation services over HTTP.
//
// All payloads are JSON wrapped in a common envelope with a top-level
// "success" flag; multipart is used only for audio upload on the speech
// check endpoint.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/lisan-app/lisan/internal/curriculum"
	"github.com/lisan-app/lisan/internal/observe"
	"github.com/lisan-app/lisan/internal/speech"
	"github.com/lisan-app/lisan/internal/tutor"
)

// AgentFactory builds a tutoring agent for a freshly created session.
type AgentFactory func(c *tutor.ConversationContext) (*tutor.Agent, error)

// API bundles the services behind the HTTP surface.
type API struct {
	speech   *speech.Gateway
	sessions *tutor.SessionManager
	newAgent AgentFactory
	lessons  curriculum.Store
	metrics  *observe.Metrics
	checkers []Checker

	corsOrigins []string
}

// APIOption configures an [API] during construction.
type APIOption func(*API)

// WithLessonStore wires the curriculum store used for lesson lookup and
// completion. Without it the lesson endpoints return 501.
func WithLessonStore(s curriculum.Store) APIOption {
	return func(a *API) { a.lessons = s }
}

// WithMetrics wires request metrics. A nil Metrics records nothing.
func WithMetrics(m *observe.Metrics) APIOption {
	return func(a *API) { a.metrics = m }
}

// WithCORSOrigins sets the origins allowed for browser calls. Empty means
// same-origin only.
func WithCORSOrigins(origins []string) APIOption {
	return func(a *API) { a.corsOrigins = origins }
}

// WithReadinessChecks registers dependency probes evaluated by /readyz.
func WithReadinessChecks(checkers ...Checker) APIOption {
	return func(a *API) { a.checkers = append(a.checkers, checkers...) }
}

// New creates the API around the speech gateway, session manager and agent
// factory. All three are required.
func New(gw *speech.Gateway, sessions *tutor.SessionManager, newAgent AgentFactory, opts ...APIOption) *API {
	a := &API{
		speech:   gw,
		sessions: sessions,
		newAgent: newAgent,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Router assembles the HTTP routes.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(observe.Middleware(a.metrics))

	if len(a.corsOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: a.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type"},
		}).Handler)
	}

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/speech", a.handleSpeechCheck)

		r.Route("/agent", func(r chi.Router) {
			r.Post("/sessions", a.handleSessionStart)
			r.Delete("/sessions/{sessionID}", a.handleSessionEnd)
			r.Post("/turn", a.handleTurn)
			r.Post("/analyze", a.handleAnalyze)
		})

		r.Post("/lessons/{lessonID}/complete", a.handleCompleteLesson)
	})

	return r
}
