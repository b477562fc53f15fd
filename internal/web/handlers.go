package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"warbler/internal/forms"
	"warbler/internal/service"
)

// pathID reads the numeric {id} route variable. The route regexp already
// guarantees digits, so a failure means the id overflows.
func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// fail maps service errors onto responses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		h.notFound(w, r)
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, service.ErrForbidden):
		h.unauthorized(w, r)
	default:
		h.serverError(w, r, err)
	}
}

// decodeForm parses the request body into dst and validates it.
func decodeForm(r *http.Request, dst any) (forms.Errors, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	if err := forms.Decode(r.PostForm, dst); err != nil {
		return nil, err
	}
	return forms.Validate(dst), nil
}

// addFieldError records a service-level validation failure on the form.
func addFieldError(errs forms.Errors, err error) bool {
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	errs.Add(verr.Field, verr.Error())
	return true
}

func (h *Handler) homepage(w http.ResponseWriter, r *http.Request) {
	actor := CurrentUser(r)
	if actor == nil {
		h.render(w, r, http.StatusOK, "home_anon", nil)
		return
	}

	feed, err := h.svc.HomeFeed(r.Context(), actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	liked, err := h.svc.LikedMessageIDs(r.Context(), actor.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "home", &view{Messages: feed, Liked: liked})
}
