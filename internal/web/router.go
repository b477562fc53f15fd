// Package web is warbler's HTTP surface: the mux router, session handling,
// the auth guard, CSRF protection, the handlers and their templates.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"warbler/internal/metrics"
	"warbler/internal/service"
)

const routeDeleteUser = "delete_user"

type Options struct {
	SecretKey     string
	SessionMaxAge time.Duration
	SecureCookies bool
	CSRFEnabled   bool
	// ProtectUserDelete turns on the CSRF check for POST /users/delete.
	ProtectUserDelete bool
	SlowRequest       time.Duration
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Service  *service.Service
	Logger   *logrus.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Health   Pinger
}

type Handler struct {
	svc      *service.Service
	log      *logrus.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	health   Pinger
	sessions *sessions.CookieStore
	pages    pages
	opts     Options
}

// NewRouter builds the full handler chain.
func NewRouter(d Deps, opts Options) (http.Handler, error) {
	pg, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if opts.SlowRequest <= 0 {
		opts.SlowRequest = 2 * time.Second
	}

	store := sessions.NewCookieStore([]byte(opts.SecretKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}

	h := &Handler{
		svc:      d.Service,
		log:      d.Logger,
		metrics:  d.Metrics,
		gatherer: d.Gatherer,
		health:   d.Health,
		sessions: store,
		pages:    pg,
		opts:     opts,
	}
	return h.routes(), nil
}

func (h *Handler) routes() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = h.chain(http.HandlerFunc(h.notFound))

	r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)

	app := r.NewRoute().Subrouter()
	app.Use(h.instrument, h.withSession)
	if h.opts.CSRFEnabled {
		app.Use(h.protect)
	}
	app.Use(h.guard)

	app.HandleFunc("/", h.homepage).Methods(http.MethodGet)

	app.HandleFunc("/signup", h.signup).Methods(http.MethodGet, http.MethodPost)
	app.HandleFunc("/login", h.login).Methods(http.MethodGet, http.MethodPost)
	app.HandleFunc("/logout", h.logout).Methods(http.MethodGet)

	app.HandleFunc("/users", h.listUsers).Methods(http.MethodGet)
	app.HandleFunc("/users/profile", h.editProfile).Methods(http.MethodGet, http.MethodPost)
	app.HandleFunc("/users/change_password", h.changePassword).Methods(http.MethodPost)
	app.HandleFunc("/users/delete", h.deleteUser).Methods(http.MethodPost).Name(routeDeleteUser)
	app.HandleFunc("/users/follow/{id:[0-9]+}", h.follow).Methods(http.MethodPost)
	app.HandleFunc("/users/stop-following/{id:[0-9]+}", h.stopFollowing).Methods(http.MethodPost)
	app.HandleFunc("/users/{id:[0-9]+}", h.showUser).Methods(http.MethodGet)
	app.HandleFunc("/users/{id:[0-9]+}/following", h.showFollowing).Methods(http.MethodGet)
	app.HandleFunc("/users/{id:[0-9]+}/followers", h.showFollowers).Methods(http.MethodGet)
	app.HandleFunc("/users/{id:[0-9]+}/likes", h.showLikes).Methods(http.MethodGet)
	app.HandleFunc("/users/{id:[0-9]+}/like", h.userLike).Methods(http.MethodPost)

	app.HandleFunc("/messages/new", h.newMessage).Methods(http.MethodGet, http.MethodPost)
	app.HandleFunc("/messages/{id:[0-9]+}", h.showMessage).Methods(http.MethodGet)
	app.HandleFunc("/messages/{id:[0-9]+}/togglelike", h.toggleLike).Methods(http.MethodPost)
	app.HandleFunc("/messages/{id:[0-9]+}/delete", h.deleteMessage).Methods(http.MethodGet, http.MethodPost)

	return h.logRequests(noStore(r))
}

// chain applies the per-request session and guard to handlers that live
// outside the subrouter, so the 404 page still sees the current user.
func (h *Handler) chain(next http.Handler) http.Handler {
	return h.withSession(h.guard(next))
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Ping(r.Context()); err != nil {
		h.log.WithError(err).Error("Health check failed")
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
