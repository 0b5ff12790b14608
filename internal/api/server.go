// Package api provides the HTTP API server for Catchat.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/qcatchat/catchat/internal/agent"
	"github.com/qcatchat/catchat/internal/core"
	"github.com/qcatchat/catchat/internal/llm"
	"github.com/qcatchat/catchat/internal/logging"
	"github.com/qcatchat/catchat/internal/metrics"
	"github.com/qcatchat/catchat/internal/speech"
	"github.com/qcatchat/catchat/internal/storage"
	"github.com/qcatchat/catchat/internal/weather"
)

// DefaultUserID is used by GET /chat/{text} and when a request names no user.
const DefaultUserID = "1"

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server

	// Components
	agent   *agent.Agent
	speech  *speech.Client
	weather weather.Provider
	db      *storage.DB
	llm     *llm.Router

	upgrader       websocket.Upgrader
	allowedOrigins []string
	now            func() time.Time
}

// Config for the server
type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string

	Agent   *agent.Agent
	Speech  *speech.Client
	Weather weather.Provider
	DB      *storage.DB
	LLM     *llm.Router
}

// New creates a new API server
func New(cfg Config) *Server {
	if cfg.Port == 0 {
		cfg.Port = 8001
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		agent:          cfg.Agent,
		speech:         cfg.Speech,
		weather:        cfg.Weather,
		db:             cfg.DB,
		llm:            cfg.LLM,
		allowedOrigins: cfg.AllowedOrigins,
		now:            time.Now,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	s.setupRouter()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRouter configures all routes
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(s.recoverer)
	r.Use(middleware.RealIP)
	r.Use(instrument)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Websocket sessions outlive the request timeout.
	r.Get("/ws", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/", s.handleRoot)
		r.Get("/health", s.handleHealth)
		r.Handle("/metrics", metrics.Handler())

		// Chat
		r.Get("/chat/{text}", s.handleChatGet)
		r.Post("/chat", s.handleChatPost)

		// Speech
		r.Post("/speech-to-text", s.handleSpeechToText)
		r.Post("/text-to-speech", s.handleTextToSpeech)

		// Weather
		r.Route("/api/weather", func(r chi.Router) {
			r.Get("/current/{location}", s.handleCurrentWeather)
			r.Get("/forecast/{location}", s.handleForecast)
			r.Get("/historical/{location}/{date}", s.handleHistorical)
			r.Get("/search", s.handleWeatherSearch)
		})
	})

	s.router = r
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	logging.Info("API server starting on http://%s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// instrument records request counts and latency per route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		metrics.RequestCount.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

		logging.WithFields(map[string]interface{}{
			"request_id": middleware.GetReqID(r.Context()),
			"status":     status,
			"duration":   elapsed.String(),
		}).Debug("%s %s", r.Method, r.URL.Path)
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// --- Response helpers ---

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"detail": message})
}

// recoverer turns a handler panic into a 500 with the usual error envelope.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logging.WithFields(map[string]interface{}{
				"request_id": middleware.GetReqID(r.Context()),
				"path":       r.URL.Path,
			}).Error("panic serving request: %v\n%s", rec, debug.Stack())
			s.respondError(w, http.StatusInternalServerError, fmt.Sprint(rec))
		}()
		next.ServeHTTP(w, r)
	})
}

// respondErr maps a domain error onto a status code.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Error("request failed: %v", err)
	}
	s.respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidInput), errors.Is(err, core.ErrMissingRequired):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoWeatherData), errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrSpeechUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// --- Handlers ---

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Welcome to Catchat!"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	checks := map[string]interface{}{}

	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			checks["database"] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}
	if s.llm != nil {
		providers := map[string]bool{}
		for p, ok := range s.llm.HealthCheck() {
			providers[string(p)] = ok
		}
		checks["llm"] = providers
	}
	if s.speech != nil {
		checks["speech"] = s.speech.IsConfigured()
	}
	if s.agent != nil {
		checks["routes"] = s.agent.GetStats()
	}

	s.respondJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}
