// Package http exposes the memory engine over a JSON REST API.
package http

import (
	"net/http"
	"time"

	"github.com/engram-lab/engram/pkg/usecase"
	"github.com/engram-lab/engram/pkg/utils/logging"
	"github.com/engram-lab/engram/pkg/utils/safe"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	router *chi.Mux
	uc     *usecase.UseCases
}

func New(uc *usecase.UseCases) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", s.handleStoreMessage)
		r.Post("/messages/{messageID}/entities", s.handleExtractEntities)
		r.Get("/messages/{messageID}/entities", s.handleListEntities)
		r.Get("/memory", s.handleRetrieve)
		r.Get("/similar", s.handleFindSimilar)
		r.Get("/sessions/{sessionID}", s.handleFetchSession)
		r.Get("/sessions/{sessionID}/summary", s.handleSummarize)
		r.Post("/chat", s.handleChat)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		safe.Write(r.Context(), w, []byte("OK"))
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
