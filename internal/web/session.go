package web

import (
	"context"
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"

	"warbler/internal/models"
)

const (
	sessionName = "warbler"
	currUserKey = "curr_user"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

func init() {
	gob.Register(Flash{})
}

type ctxKey int

const (
	sessionCtxKey ctxKey = iota
	userCtxKey
	requestIDCtxKey
)

// withSession decodes the session cookie once per request so every handler
// and the renderer share the same *sessions.Session.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.sessions.Get(r, sessionName)
		if err != nil {
			// a cookie signed with an old secret yields a fresh session
			h.log.WithError(err).Debug("Discarding undecodable session")
		}
		ctx := context.WithValue(r.Context(), sessionCtxKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func session(r *http.Request) *sessions.Session {
	sess, _ := r.Context().Value(sessionCtxKey).(*sessions.Session)
	return sess
}

func (h *Handler) saveSession(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	if sess == nil {
		return
	}
	if err := sess.Save(r, w); err != nil {
		h.log.WithError(err).Error("Failed to save session")
	}
}

func flash(r *http.Request, category, msg string) {
	if sess := session(r); sess != nil {
		sess.AddFlash(Flash{Category: category, Message: msg})
	}
}

// takeFlashes pops the pending flashes. The caller must save the session.
func takeFlashes(r *http.Request) []Flash {
	sess := session(r)
	if sess == nil {
		return nil
	}
	var out []Flash
	for _, f := range sess.Flashes() {
		if fl, ok := f.(Flash); ok {
			out = append(out, fl)
		}
	}
	return out
}

// rememberUser records user as the current identity.
func rememberUser(r *http.Request, user *models.User) {
	if sess := session(r); sess != nil {
		sess.Values[currUserKey] = user.ID
	}
}

// forgetUser forgets the current identity. Calling it twice is harmless.
func forgetUser(r *http.Request) {
	if sess := session(r); sess != nil {
		delete(sess.Values, currUserKey)
	}
}
