package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.requestIDMiddleware(s.Observability.HTTPMiddleware()(s.setupRoutes()))
}

type route struct {
	pattern string
	summary string
	handler http.HandlerFunc
	open    bool // skips rate limit, auth and size limit
	listed  bool
}

func (s *Server) routes() []route {
	hasHistory := s.Services.History != nil
	return []route{
		{"GET /health", "Health check", s.healthHandler, true, true},
		{"GET /stats", "Engine and server statistics", s.statsHandler, true, true},
		{"GET /options", "Stream, course, department and role choices", s.optionsHandler, false, true},
		{"POST /recommend", "Recommend companies", s.recommendHandler, false, true},
		{"POST /score", "Score a resume against a role", s.scoreHandler, false, true},
		{"POST /resume/extract", "Extract text and skills from an uploaded resume", s.extractHandler, false, true},
		{"GET /history", "Recent recommendation runs", s.historyListHandler, false, hasHistory},
		{"GET /history/{id}", "One recorded run", s.historyGetHandler, false, hasHistory},
	}
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	for _, rt := range s.routes() {
		if rt.open {
			mux.HandleFunc(rt.pattern, rt.handler)
			continue
		}
		mux.Handle(rt.pattern, s.rateLimitMiddleware(s.authMiddleware(s.requestSizeLimitMiddleware(rt.handler))))
	}
	return mux
}

// requestIDMiddleware propagates X-Request-ID, generating one when absent
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.APIKeys) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := requestAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorMessage(w, r, http.StatusUnauthorized, "MISSING_API_KEY",
				"X-API-Key header or Authorization Bearer token required")
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorMessage(w, r, http.StatusUnauthorized, "INVALID_API_KEY", "Unauthorized access")
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))
		next.ServeHTTP(w, r)
	})
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.MaxRequestSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
		}
		next(w, r)
	})
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
