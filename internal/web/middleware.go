package web

import (
	"context"
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// routeName is the mux path template of the matched route, used as a
// low-cardinality label.
func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDCtxKey).(string)
	return id
}

// logRequests tags each request with an id and logs it once it completes,
// warning when it took longer than the slow request threshold.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDCtxKey, id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		entry := h.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   duration,
			"remote_ip":  r.RemoteAddr,
			"request_id": id,
		})
		if duration > h.opts.SlowRequest {
			entry.Warn("Slow request detected")
		} else {
			entry.Info("Request completed")
		}
	})
}

func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := routeName(r)
		h.metrics.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		h.metrics.ObserveStatus(route, rec.status)
	})
}

func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// protect wraps next with gorilla/csrf. Plain HTTP requests skip the TLS
// referer check, and the user delete route is exempt unless
// ProtectUserDelete is set.
func (h *Handler) protect(next http.Handler) http.Handler {
	key := sha256.Sum256([]byte(h.opts.SecretKey))
	csrfMW := csrf.Protect(key[:],
		csrf.Secure(h.opts.SecureCookies),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(h.csrfFailure)),
	)
	protected := csrfMW(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			r = csrf.PlaintextHTTPRequest(r)
		}
		if !h.opts.ProtectUserDelete && routeNameIs(r, routeDeleteUser) {
			r = csrf.UnsafeSkipCheck(r)
		}
		protected.ServeHTTP(w, r)
	})
}

func routeNameIs(r *http.Request, name string) bool {
	route := mux.CurrentRoute(r)
	return route != nil && route.GetName() == name
}

func (h *Handler) csrfFailure(w http.ResponseWriter, r *http.Request) {
	h.log.WithFields(logrus.Fields{
		"path":       r.URL.Path,
		"request_id": requestID(r),
		"reason":     csrf.FailureReason(r),
	}).Warn("CSRF check failed")
	http.Error(w, "Forbidden - CSRF token invalid", http.StatusForbidden)
}
