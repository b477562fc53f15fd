package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"warbler/internal/models"
	"warbler/internal/service"
)

// guard resolves the current identity from the session before every handler.
// A session pointing at a deleted user is answered with 404 and the stale key
// is dropped so the next request is anonymous.
func (h *Handler) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session(r)
		if sess == nil {
			next.ServeHTTP(w, r)
			return
		}

		id, ok := sess.Values[currUserKey].(uint)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		user, err := h.svc.GetUser(r.Context(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				h.log.WithFields(logrus.Fields{"user_id": id}).Warn("Session user no longer exists")
				// render saves the session with the key removed
				forgetUser(r)
				h.notFound(w, r)
				return
			}
			h.serverError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userCtxKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CurrentUser returns the identity resolved by the guard, or nil.
func CurrentUser(r *http.Request) *models.User {
	u, _ := r.Context().Value(userCtxKey).(*models.User)
	return u
}

// requireUser returns the current user, or flashes and redirects to / and
// returns nil.
func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) *models.User {
	if u := CurrentUser(r); u != nil {
		return u
	}
	h.unauthorized(w, r)
	return nil
}

func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request) {
	flash(r, "danger", "Access unauthorized.")
	h.redirect(w, r, "/")
}
