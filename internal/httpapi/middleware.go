package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	requestIDHeader    = "X-Request-Id"
	sessionTokenHeader = "X-Session-Token"
)

type contextKey string

const ctxSessionSubject contextKey = "session_subject"

func sessionSubjectFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxSessionSubject).(string)
	return v
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(requestIDHeader) == "" {
			var b [12]byte
			_, _ = rand.Read(b[:])
			r.Header.Set(requestIDHeader, hex.EncodeToString(b[:]))
		}
		w.Header().Set(requestIDHeader, r.Header.Get(requestIDHeader))
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"request_id": r.Header.Get(requestIDHeader),
			"duration":   time.Since(start).String(),
		}).Info("request")
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithField("request_id", r.Header.Get(requestIDHeader)).
					Errorf("recovered panic: %v", rec)
				writeError(w, http.StatusInternalServerError, "panic", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// sessionToken reads the bearer credential. Header names are canonicalized by
// net/http, so any casing of x-session-token matches.
func sessionToken(r *http.Request) string {
	if tok := strings.TrimSpace(r.Header.Get(sessionTokenHeader)); tok != "" {
		return tok
	}
	const prefix = "Bearer "
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, prefix) {
		return strings.TrimSpace(strings.TrimPrefix(auth, prefix))
	}
	return ""
}

func sessionMiddleware(v *sessionVerifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Health checks and anything outside the API are not gated.
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		tok := sessionToken(r)
		if tok == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing session token")
			return
		}

		subject, err := v.Verify(tok)
		if err != nil {
			log.WithField("request_id", r.Header.Get(requestIDHeader)).
				Debugf("session token rejected: %v", err)
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired session")
			return
		}

		ctx := context.WithValue(r.Context(), ctxSessionSubject, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func storeMiddleware(configured bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if configured || !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"success": false,
			"code":    "service_unavailable",
			"error":   "service unavailable",
			"message": "database is not configured; check USERPANEL_DATABASE_URL",
			"debug": map[string]bool{
				"database_url": false,
			},
		})
	})
}
