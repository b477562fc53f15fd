package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"warbler/internal/forms"
	"warbler/internal/models"
	"warbler/internal/service"
)

func profileURL(u *models.User) string {
	return fmt.Sprintf("/users/%d", u.ID)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	users, err := h.svc.ListUsers(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "users_index", &view{Users: users, Query: q})
}

func (h *Handler) showUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	ctx := r.Context()

	user, err := h.svc.GetUser(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	msgs, err := h.svc.UserMessages(ctx, id, service.FeedLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	stats, err := h.svc.UserStats(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	v := &view{User: user, Messages: msgs, Stats: stats}
	if actor := CurrentUser(r); actor != nil {
		if v.Following, err = h.svc.IsFollowing(ctx, actor.ID, id); err != nil {
			h.fail(w, r, err)
			return
		}
		if v.Liked, err = h.svc.LikedMessageIDs(ctx, actor.ID); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	h.render(w, r, http.StatusOK, "users_show", v)
}

func (h *Handler) showFollowing(w http.ResponseWriter, r *http.Request) {
	h.showEdges(w, r, "users_following", h.svc.Following)
}

func (h *Handler) showFollowers(w http.ResponseWriter, r *http.Request) {
	h.showEdges(w, r, "users_followers", h.svc.Followers)
}

func (h *Handler) showEdges(w http.ResponseWriter, r *http.Request, page string,
	list func(ctx context.Context, userID uint) ([]models.User, error)) {
	if h.requireUser(w, r) == nil {
		return
	}
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}

	user, err := h.svc.GetUser(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	users, err := list(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, page, &view{User: user, Users: users})
}

func (h *Handler) follow(w http.ResponseWriter, r *http.Request) {
	actor := h.requireUser(w, r)
	if actor == nil {
		return
	}
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}

	if err := h.svc.Follow(r.Context(), actor, id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.metrics.FollowRequests.Inc()
	h.log.WithFields(logrus.Fields{"follower_id": actor.ID, "followed_id": id}).Info("User followed")
	h.redirect(w, r, profileURL(actor)+"/following")
}

func (h *Handler) stopFollowing(w http.ResponseWriter, r *http.Request) {
	actor := h.requireUser(w, r)
	if actor == nil {
		return
	}
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}

	if err := h.svc.Unfollow(r.Context(), actor, id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.metrics.UnfollowRequests.Inc()
	h.log.WithFields(logrus.Fields{"follower_id": actor.ID, "followed_id": id}).Info("User unfollowed")
	h.redirect(w, r, profileURL(actor)+"/following")
}

func (h *Handler) editProfile(w http.ResponseWriter, r *http.Request) {
	actor := h.requireUser(w, r)
	if actor == nil {
		return
	}

	form := forms.EditProfileForm{
		Username:       actor.Username,
		Email:          actor.Email,
		ImageURL:       actor.ImageURL,
		HeaderImageURL: actor.HeaderImageURL,
		Bio:            actor.Bio,
		Location:       actor.Location,
	}
	if r.Method == http.MethodGet {
		h.render(w, r, http.StatusOK, "users_edit", &view{Form: form})
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
		h.render(w, r, http.StatusOK, "users_edit", &view{Form: form, Errors: errs})
		return
	}

	_, err = h.svc.EditProfile(r.Context(), actor, service.ProfileInput{
		Username:       form.Username,
		Email:          form.Email,
		ImageURL:       form.ImageURL,
		HeaderImageURL: form.HeaderImageURL,
		Bio:            form.Bio,
		Location:       form.Location,
	}, password)
	switch {
	case errors.Is(err, service.ErrReauthentication):
		h.log.WithField("user_id", actor.ID).Warn("Profile edit with wrong password")
		h.unauthorized(w, r)
		return
	case errors.Is(err, service.ErrDuplicateCredential):
		flash(r, "danger", "Username already taken")
		h.render(w, r, http.StatusOK, "users_edit", &view{Form: form})
		return
	case err != nil:
		h.fail(w, r, err)
		return
	}

	h.redirect(w, r, profileURL(actor))
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	actor := h.requireUser(w, r)
	if actor == nil {
		return
	}

	var form forms.ChangePasswordForm
	errs, err := decodeForm(r, &form)
	if err != nil {
		http.Error(w, "Invalid form body", http.StatusBadRequest)
		return
	}
	rerender := func() {
		profile := forms.EditProfileForm{
			Username:       actor.Username,
			Email:          actor.Email,
			ImageURL:       actor.ImageURL,
			HeaderImageURL: actor.HeaderImageURL,
			Bio:            actor.Bio,
			Location:       actor.Location,
		}
		h.render(w, r, http.StatusOK, "users_edit", &view{Form: profile, Errors: errs})
	}
	if !errs.Valid() {
		rerender()
		return
	}

	err = h.svc.ChangePassword(r.Context(), actor, form.Current, form.NewPassword, form.ConfirmPassword)
	switch {
	case errors.Is(err, service.ErrPasswordMismatch):
		errs.Add("confirm_password", "Passwords must match.")
		rerender()
		return
	case errors.Is(err, service.ErrReauthentication):
		errs.Add("current", "Incorrect password.")
		rerender()
		return
	case addFieldError(errs, err):
		rerender()
		return
	case err != nil:
		h.fail(w, r, err)
		return
	}

	h.log.WithField("user_id", actor.ID).Info("Password changed")
	flash(r, "message", "Password changed successfully!")
	h.redirect(w, r, "/")
}

func (h *Handler) showLikes(w http.ResponseWriter, r *http.Request) {
	actor := h.requireUser(w, r)
	if actor == nil {
		return
	}
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	ctx := r.Context()

	user, err := h.svc.GetUser(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	msgs, err := h.svc.LikedMessages(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	liked, err := h.svc.LikedMessageIDs(ctx, actor.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "users_likes", &view{User: user, Messages: msgs, Liked: liked})
}

// userLike toggles a like from a profile page and returns to the actor's
// own profile.
func (h *Handler) userLike(w http.ResponseWriter, r *http.Request) {
	actor := h.requireUser(w, r)
	if actor == nil {
		return
	}
	if h.applyLike(w, r, actor) {
		h.redirect(w, r, profileURL(actor))
	}
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	actor := h.requireUser(w, r)
	if actor == nil {
		return
	}

	forgetUser(r)
	if err := h.svc.DeleteUser(r.Context(), actor); err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirect(w, r, "/signup")
}
