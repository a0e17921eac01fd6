// Package server exposes the chat UI and its JSON API.
package server

import (
	"context"
	"embed"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"visa-rag/internal/config"
	"visa-rag/internal/retriever"
	"visa-rag/internal/rules"
)

//go:embed web/index.html
var webFS embed.FS

// Generator sends a composed prompt to the chat-completion API.
type Generator interface {
	Generate(ctx context.Context, promptText string) (string, error)
}

// Server is the HTTP front-end: one page, a handful of JSON endpoints,
// each request handled end-to-end as one synchronous sequence.
type Server struct {
	rules     *rules.Store
	retriever *retriever.Retriever
	generator Generator
	cfg       *config.Config
	server    *http.Server
}

func New(rulesStore *rules.Store, ret *retriever.Retriever, gen Generator, cfg *config.Config) *Server {
	return &Server{
		rules:     rulesStore,
		retriever: ret,
		generator: gen,
		cfg:       cfg,
	}
}

// Routes builds the router. Split out from Start so tests can drive the
// handlers through httptest.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Get("/api/countries", s.handleCountries)
	r.Get("/api/categories", s.handleCategories)
	r.Get("/api/questions", s.handleQuestions)
	r.Get("/api/rules", s.handleRules)
	r.Post("/api/chat", s.handleChat)
	r.Post("/api/assess", s.handleAssess)
	r.Post("/api/upload", s.handleUpload)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
	}
	log.Info().Str("addr", addr).Msg("Starting server")
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("Request")
	})
}
