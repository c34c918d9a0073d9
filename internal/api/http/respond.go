package http

import (
	"encoding/json"
	"errors"
	"log"
	nethttp "net/http"

	"github.com/hankgpa/gpa-live/internal/course"
	"github.com/hankgpa/gpa-live/internal/ratelimit"
)

func writeJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w nethttp.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// storeError maps a Store error to an HTTP response. Persistence failures are
// logged here and surfaced as a generic 500, never echoed to the client.
func storeError(w nethttp.ResponseWriter, err error) {
	switch {
	case course.IsValidation(err):
		writeError(w, nethttp.StatusBadRequest, err.Error())
	case errors.Is(err, course.ErrCourseNotFound):
		writeError(w, nethttp.StatusNotFound, err.Error())
	default:
		log.Printf("store error: %v", err)
		writeError(w, nethttp.StatusInternalServerError, "internal error")
	}
}

// RateLimitMiddleware admits or rejects per authenticated identity. Mounted
// after JWTMiddleware so the subject is always present.
func RateLimitMiddleware(l *ratelimit.Limiter) func(nethttp.Handler) nethttp.Handler {
	return func(next nethttp.Handler) nethttp.Handler {
		return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			if !l.Allow(identityFromRequest(r)) {
				writeError(w, nethttp.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
