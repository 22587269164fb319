package apitest

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/g1appdev/hubbits/internal/client/models"
	"github.com/g1appdev/hubbits/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const claimsKey ctxKey = "claims"

func claimsFrom(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

// statusWriter captures the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(p)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		if s.requests != nil {
			s.requests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		}
		s.log.Info(r.Context(), "http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"dur", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		s.mu.Lock()
		queue := s.failures[key]
		var f *failure
		if len(queue) > 0 {
			f = &queue[0]
			s.failures[key] = queue[1:]
		}
		s.mu.Unlock()

		if f == nil {
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(strings.TrimSpace(f.body), "{") {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.body))
	})
}

// authenticate rejects requests without a valid bearer token of the current
// generation and puts the token claims into the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(auth, common.BearerPrefix)
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			writeMessage(w, http.StatusUnauthorized, "missing token")
			return
		}

		s.mu.Lock()
		now, gen := s.now(), s.gen
		s.mu.Unlock()

		claims, err := parseToken(token, s.secret, now)
		if err != nil || claims.Gen != gen {
			writeMessage(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		s.mu.Lock()
		_, exists := s.users.get(claims.UserID)
		s.mu.Unlock()
		if !exists {
			writeMessage(w, http.StatusUnauthorized, "unknown user")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := claimsFrom(r.Context())
		if c == nil || !models.ParseRoles(c.Role).Has(models.RoleAdmin) {
			writeMessage(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
