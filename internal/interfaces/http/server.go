// Package http exposes the heat-score service over JSON HTTP.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/heatsight/heatscore/internal/app"
	"github.com/heatsight/heatscore/internal/interfaces/http/handlers"
)

// requestTimeout bounds one API request.
const requestTimeout = 30 * time.Second

type contextKey string

const requestIDKey contextKey = "request_id"

// Server is the HTTP front of the service.
type Server struct {
	app      *app.App
	router   *mux.Router
	server   *http.Server
	handlers *handlers.Handlers
	metrics  *MetricsRegistry
}

// NewServer wires routes, middleware and metrics over the app.
func NewServer(a *app.App) *Server {
	router := mux.NewRouter()
	metrics := NewMetricsRegistry()

	s := &Server{
		app:      a,
		router:   router,
		handlers: handlers.New(a),
		metrics:  metrics,
	}
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", a.Config.Host, a.Config.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  requestTimeout,
		WriteTimeout: requestTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Router exposes the configured router for tests.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.metricsMiddleware)
	s.router.Use(s.timeoutMiddleware)
	s.router.Use(s.corsMiddleware)

	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(jsonContentTypeMiddleware)

	api.HandleFunc("/health", s.handlers.Health).Methods("GET")
	api.HandleFunc("/health/details", s.handlers.HealthDetails).Methods("GET")
	api.HandleFunc("/health/cache", s.handlers.HealthCache).Methods("GET")

	heat := api.PathPrefix("/heat-score").Subrouter()
	heat.HandleFunc("/scores", s.handlers.Scores).Methods("POST")
	heat.HandleFunc("/detailed-scores", s.handlers.DetailedScores).Methods("POST")
	heat.HandleFunc("/top", s.handlers.Top).Methods("GET")
	heat.HandleFunc("/keywords", s.handlers.Keywords).Methods("GET")
	heat.HandleFunc("/source-weights", s.handlers.SourceWeights).Methods("GET")
	heat.HandleFunc("/update-heat-scores", s.taskEndpoint("heat_update", s.handlers.UpdateHeatScores)).Methods("POST")
	heat.HandleFunc("/update-keyword-heat", s.taskEndpoint("keyword_update", s.handlers.UpdateKeywordHeat)).Methods("POST")
	heat.HandleFunc("/update-source-weights", s.taskEndpoint("source_weight_update", s.handlers.UpdateSourceWeights)).Methods("POST")
	heat.HandleFunc("/update-categories", s.taskEndpoint("category_backfill", s.handlers.UpdateCategories)).Methods("POST")

	news := api.PathPrefix("/news").Subrouter()
	news.HandleFunc("/hot", s.handlers.NewsHot).Methods("GET")
	news.HandleFunc("/unified", s.handlers.NewsUnified).Methods("GET")
	news.HandleFunc("/search", s.handlers.NewsSearch).Methods("GET")
	news.HandleFunc("/sources", s.handlers.NewsSources).Methods("GET")
	news.HandleFunc("/sources/{source_id}", s.handlers.NewsSource).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(s.handlers.NotFound)
}

// taskEndpoint counts accepted background tasks before delegating.
func (s *Server) taskEndpoint(task string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.TasksAccepted.WithLabelValues(task).Inc()
		h(w, r)
	}
}

// Start blocks serving requests until shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("HTTP server shutting down")
	return s.server.Shutdown(ctx)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		requestID, _ := r.Context().Value(requestIDKey).(string)
		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.status).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("Request handled")
	})
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.Observe(route, r.Method, wrapper.status, time.Since(start))
	})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.app.Config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
