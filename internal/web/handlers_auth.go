package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"warbler/internal/forms"
	"warbler/internal/service"
)

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var form forms.SignupForm
	if r.Method == http.MethodGet {
		h.render(w, r, http.StatusOK, "signup", &view{Form: form})
		return
	}

	errs, err := decodeForm(r, &form)
	if err != nil {
		http.Error(w, "Invalid form body", http.StatusBadRequest)
		return
	}
	password := form.Password
	form.Password = ""
	if !errs.Valid() {
		h.render(w, r, http.StatusOK, "signup", &view{Form: form, Errors: errs})
		return
	}

	user, err := h.svc.Signup(r.Context(), service.SignupInput{
		Username: form.Username,
		Password: password,
		Email:    form.Email,
		ImageURL: form.ImageURL,
	})
	switch {
	case errors.Is(err, service.ErrDuplicateCredential):
		h.log.WithField("username", form.Username).Warn("Signup with taken credentials")
		flash(r, "danger", "Username already taken")
		h.render(w, r, http.StatusOK, "signup", &view{Form: form})
		return
	case addFieldError(errs, err):
		h.render(w, r, http.StatusOK, "signup", &view{Form: form, Errors: errs})
		return
	case err != nil:
		h.serverError(w, r, err)
		return
	}

	h.metrics.Signups.Inc()
	rememberUser(r, user)
	h.redirect(w, r, "/")
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var form forms.LoginForm
	if r.Method == http.MethodGet {
		h.render(w, r, http.StatusOK, "login", &view{Form: form})
		return
	}

	errs, err := decodeForm(r, &form)
	if err != nil {
		http.Error(w, "Invalid form body", http.StatusBadRequest)
		return
	}
	password := form.Password
	form.Password = ""
	if !errs.Valid() {
		h.render(w, r, http.StatusOK, "login", &view{Form: form, Errors: errs})
		return
	}

	user, err := h.svc.Authenticate(r.Context(), form.Username, password)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if user == nil {
		h.log.WithField("username", form.Username).Warn("Invalid login credentials")
		h.metrics.Logins.WithLabelValues("failure").Inc()
		flash(r, "danger", "Invalid credentials.")
		h.render(w, r, http.StatusOK, "login", &view{Form: form})
		return
	}

	h.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("User logged in successfully")
	h.metrics.Logins.WithLabelValues("success").Inc()
	rememberUser(r, user)
	flash(r, "success", fmt.Sprintf("Hello, %s!", user.Username))
	h.redirect(w, r, "/")
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	forgetUser(r)
	flash(r, "message", "You've been logged out. Have a great day!")
	h.redirect(w, r, "/login")
}
