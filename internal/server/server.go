// Package server exposes the ingestion core over an HTTP JSON API.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Sselimkoc/feedTune-sub004/internal/database"
	"github.com/Sselimkoc/feedTune-sub004/internal/domain"
	"github.com/Sselimkoc/feedTune-sub004/internal/feed"
	"github.com/Sselimkoc/feedTune-sub004/internal/feederr"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	db          *database.Database
	svc         *feed.Service
	router      chi.Router
	cronSecret  string
	imageClient *http.Client
	log         *slog.Logger
}

func New(db *database.Database, svc *feed.Service, cronSecret string, log *slog.Logger) *Server {
	s := &Server{
		db:         db,
		svc:        svc,
		cronSecret: strings.TrimSpace(cronSecret),
		imageClient: &http.Client{
			Timeout: imageProxyTimeout,
		},
		log: log,
	}
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/image", s.handleImageProxy)
		r.Post("/cron/refresh", s.handleCronRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.Get("/preview", s.handlePreview)
			r.Get("/feeds", s.handleListFeeds)
			r.Post("/feeds", s.handleAddFeed)
			r.Delete("/feeds/{feedID}", s.handleRemoveFeed)
			r.Post("/feeds/{feedID}/refresh", s.handleRefreshFeed)
			r.Get("/youtube/search", s.handleSearchChannels)
			r.Get("/items", s.handleListItems)
			r.Patch("/items/{itemID}/state", s.handleSetItemState)
			r.Get("/digest", s.handleDigest)
		})
	})

	s.router = r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

type ctxKey int

const userCtxKey ctxKey = iota

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		s.log.InfoContext(r.Context(), "Request is handled",
			"method", r.Method,
			"path", r.URL.Path,
			"durationMs", time.Since(start).Milliseconds())
	})
}

// requireUser resolves the bearer token to a user; absence of a session means
// the operation is forbidden.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			s.writeError(w, r, feederr.New(feederr.Unauthorized, "missing bearer token"))
			return
		}

		user, err := s.db.GetUserByToken(r.Context(), token)
		if err != nil {
			s.writeError(w, r, feederr.Wrap(feederr.Unauthorized, "unknown token", err))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userCtxKey, user)))
	})
}

func userFrom(r *http.Request) *domain.User {
	user, _ := r.Context().Value(userCtxKey).(*domain.User)

	return user
}

func statusForKind(kind feederr.Kind) int {
	switch kind {
	case feederr.InvalidInput, feederr.MissingCredential:
		return http.StatusBadRequest
	case feederr.Unauthorized:
		return http.StatusUnauthorized
	case feederr.NotFound:
		return http.StatusNotFound
	case feederr.Conflict:
		return http.StatusConflict
	case feederr.Timeout:
		return http.StatusGatewayTimeout
	case feederr.FetchFailed, feederr.ParseFailed, feederr.UpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := feederr.KindOf(err)
	status := statusForKind(kind)

	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "Request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
	}

	s.writeJSON(w, r, status, map[string]string{"error": feederr.MessageOf(err)})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.ErrorContext(r.Context(), "Failed to encode response",
			"error", err,
			"path", r.URL.Path)
	}
}
