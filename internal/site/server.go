// Package site hosts the public HTTP surface: the progressive sign-in
// endpoints, the account and summoner endpoints, and the admin refresh path.
package site

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/flairhub/flairhub/internal/linker"
	"github.com/flairhub/flairhub/internal/platform/errors"
	"github.com/flairhub/flairhub/internal/platform/requestctx"
	"github.com/flairhub/flairhub/internal/queue"
	"github.com/flairhub/flairhub/internal/storage"
	"github.com/flairhub/flairhub/internal/token"
)

// Config carries the handler-visible site settings.
type Config struct {
	// PagesOrigin is the static frontend origin, used for CORS and as the
	// post-callback redirect target.
	PagesOrigin string
	// AdminKey guards the bulk refresh endpoint.
	AdminKey string
	// BulkUpdateBatchSize is how many stale summoners one admin refresh
	// enqueues.
	BulkUpdateBatchSize int
}

// Server hosts the site endpoints.
type Server struct {
	config Config
	codec  *token.Codec
	linker *linker.Linker
	store  storage.Store
	queue  *queue.Queue
	clock  func() time.Time
}

// NewServer builds a site server bound to its collaborators.
func NewServer(config Config, codec *token.Codec, l *linker.Linker, store storage.Store, q *queue.Queue) (*Server, error) {
	if codec == nil {
		return nil, fmt.Errorf("token codec is required")
	}
	if l == nil {
		return nil, fmt.Errorf("identity linker is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if q == nil {
		return nil, fmt.Errorf("queue is required")
	}
	if config.BulkUpdateBatchSize <= 0 {
		config.BulkUpdateBatchSize = queue.BatchSize
	}
	return &Server{
		config: config,
		codec:  codec,
		linker: l,
		store:  store,
		queue:  q,
		clock:  time.Now,
	}, nil
}

// RegisterRoutes registers the site endpoints on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("/signin/anonymous", s.withCORS(s.handleSigninAnonymous))
	mux.HandleFunc("/signin/reddit", s.withCORS(s.handleSigninReddit))
	mux.HandleFunc("/signin/upgrade", s.withCORS(s.handleSigninUpgrade))
	mux.HandleFunc("/user/me", s.withCORS(s.withSession(s.handleUserMe)))
	mux.HandleFunc("/user/summoners", s.withCORS(s.withSession(s.handleUserSummoners)))
	mux.HandleFunc("/summoner/", s.withCORS(s.withSession(s.handleSummonerRoutes)))
	mux.HandleFunc("/admin/refresh-stale", s.handleAdminRefreshStale)
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

// withCORS allows the static frontend origin to call the API from the
// browser, including the custom anonymous token header.
func (s *Server) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.config.PagesOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.config.PagesOrigin)
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Anonymous-Token")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

// bearerToken extracts the bearer credential from the Authorization header.
func bearerToken(r *http.Request) string {
	value := r.Header.Get("Authorization")
	if len(value) > 7 && strings.EqualFold(value[:7], "Bearer ") {
		return strings.TrimSpace(value[7:])
	}
	return ""
}

// withSession verifies the bearer session token and stores its account id in
// the request context for the wrapped handler.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeError(w, token.ErrMalformed)
			return
		}
		accountID, err := s.codec.Verify(raw, token.KindSession)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r.WithContext(requestctx.WithAccountID(r.Context(), accountID)))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError maps a domain error to its HTTP status and a stable error code
// payload. Unknown errors collapse to 500 without leaking internals.
func writeError(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)
	message := "internal error"
	if code != errors.CodeUnknown {
		message = err.Error()
	}
	writeJSON(w, code.HTTPStatus(), errorResponse{Error: string(code), Message: message})
}
