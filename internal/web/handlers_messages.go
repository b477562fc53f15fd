package web

import (
	"errors"
	"net/http"
	"strconv"

	"warbler/internal/forms"
	"warbler/internal/models"
	"warbler/internal/service"
)

func (h *Handler) newMessage(w http.ResponseWriter, r *http.Request) {
	actor := h.requireUser(w, r)
	if actor == nil {
		return
	}

	var form forms.MessageForm
	if r.Method == http.MethodGet {
		h.render(w, r, http.StatusOK, "messages_new", &view{Form: form})
		return
	}

	errs, err := decodeForm(r, &form)
	if err != nil {
		http.Error(w, "Invalid form body", http.StatusBadRequest)
		return
	}
	if !errs.Valid() {
		h.render(w, r, http.StatusOK, "messages_new", &view{Form: form, Errors: errs})
		return
	}

	msg, err := h.svc.PostMessage(r.Context(), actor, form.Text)
	switch {
	case addFieldError(errs, err):
		h.render(w, r, http.StatusOK, "messages_new", &view{Form: form, Errors: errs})
		return
	case err != nil:
		h.fail(w, r, err)
		return
	}

	h.metrics.MessagesSent.Inc()
	h.log.WithField("message_id", msg.ID).WithField("user_id", actor.ID).Info("Message posted")
	h.redirect(w, r, profileURL(actor))
}

func (h *Handler) showMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}

	msg, err := h.svc.GetMessage(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	v := &view{Message: msg}
	if actor := CurrentUser(r); actor != nil {
		if v.Liked, err = h.svc.LikedMessageIDs(r.Context(), actor.ID); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	h.render(w, r, http.StatusOK, "messages_show", v)
}

func (h *Handler) toggleLike(w http.ResponseWriter, r *http.Request) {
	actor := h.requireUser(w, r)
	if actor == nil {
		return
	}
	if h.applyLike(w, r, actor) {
		h.redirect(w, r, "/")
	}
}

// applyLike toggles the like on the {id} message. It reports false when it
// already wrote a response.
func (h *Handler) applyLike(w http.ResponseWriter, r *http.Request, actor *models.User) bool {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return false
	}

	liked, err := h.svc.ToggleLike(r.Context(), actor, id)
	switch {
	case errors.Is(err, service.ErrSelfLike):
		flash(r, "message", "You can't like your own posts!")
		h.redirect(w, r, "/")
		return false
	case err != nil:
		h.fail(w, r, err)
		return false
	}

	h.metrics.LikesToggled.WithLabelValues(likeState(liked)).Inc()
	return true
}

func likeState(liked bool) string {
	if liked {
		return "liked"
	}
	return "unliked"
}

func (h *Handler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	actor := h.requireUser(w, r)
	if actor == nil {
		return
	}
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}

	if err := h.svc.DeleteMessage(r.Context(), actor, id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.metrics.MessagesDeleted.Inc()
	h.redirect(w, r, profileURL(actor))
}

// messageURL links to a single message page.
func messageURL(id uint) string {
	return "/messages/" + strconv.FormatUint(uint64(id), 10)
}
