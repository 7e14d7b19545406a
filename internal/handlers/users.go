package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pliu/chatroom/internal/auth"
	"github.com/pliu/chatroom/internal/common"
	"github.com/pliu/chatroom/internal/httpx"
	"github.com/pliu/chatroom/internal/logging"
	"github.com/pliu/chatroom/internal/models"
	"github.com/pliu/chatroom/internal/users"
)

type userView struct {
	ID       int     `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Bio      string  `json:"bio"`
	Avatar   *string `json:"avatar"`
	IsOnline bool    `json:"is_online"`
}

func newUserView(r *http.Request, urls URLBuilder, u *models.User) userView {
	v := userView{ID: u.ID, Username: u.Username, Email: u.Email, Bio: u.Bio, IsOnline: u.IsOnline}
	if u.HasAvatar() {
		avatar := urls.Absolute(r, u.Avatar)
		v.Avatar = &avatar
	}
	return v
}

// Presence reports live websocket connections.
type Presence interface {
	IsConnected(userID int) bool
}

type UserHandler struct {
	Users          *users.Service
	URLs           URLBuilder
	MaxUploadBytes int64
	// Presence, when set, marks users with an open connection as online
	// regardless of the stored flag.
	Presence Presence
	Logger   logging.Logger
}

func (h *UserHandler) view(r *http.Request, u *models.User) userView {
	v := newUserView(r, h.URLs, u)
	if h.Presence != nil && h.Presence.IsConnected(u.ID) {
		v.IsOnline = true
	}
	return v
}

// targetID resolves {id}, where "me" means the caller.
func targetID(r *http.Request, id auth.Identity) (int, error) {
	if mux.Vars(r)["id"] == "me" {
		return id.UserID, nil
	}
	return pathID(r)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Users.List(r.Context())
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	out := make([]userView, 0, len(list))
	for i := range list {
		out = append(out, h.view(r, &list[i]))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := identity(r)
	id, err := targetID(r, actor)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	u, err := h.Users.Get(r.Context(), actor, id)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.view(r, u))
}

// Update handles PUT and PATCH. Both are partial: absent fields keep their
// values. Multipart bodies may carry an "avatar" file.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := identity(r)
	id, err := targetID(r, actor)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	patch, err := h.parsePatch(r)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}

	u, err := h.Users.Update(r.Context(), actor, id, patch)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.view(r, u))
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := identity(r)
	id, err := targetID(r, actor)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	if err := h.Users.Delete(r.Context(), actor, id); err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type avatarResponse struct {
	Avatar  string `json:"avatar"`
	Message string `json:"message"`
}

// UploadAvatar replaces the avatar from the multipart field "avatar".
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	actor := identity(r)
	id, err := targetID(r, actor)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	var upload *models.Upload
	if isMultipart(r) {
		if err := parseMultipart(r, h.MaxUploadBytes); err != nil {
			fail(w, r, h.Logger, err)
			return
		}
		if upload, err = formFile(r, "avatar"); err != nil {
			fail(w, r, h.Logger, err)
			return
		}
	}

	u, err := h.Users.ReplaceAvatar(r.Context(), actor, id, upload)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, avatarResponse{
		Avatar:  h.URLs.Absolute(r, u.Avatar),
		Message: "Avatar updated successfully",
	})
}

func (h *UserHandler) parsePatch(r *http.Request) (models.UserPatch, error) {
	var patch models.UserPatch

	if isMultipart(r) || isForm(r) {
		if isMultipart(r) {
			if err := parseMultipart(r, h.MaxUploadBytes); err != nil {
				return patch, err
			}
		} else if err := r.ParseForm(); err != nil {
			return patch, formError(err)
		}

		form := r.PostForm
		if r.MultipartForm != nil {
			form = r.MultipartForm.Value
		}
		str := func(key string, dst *models.Optional[string]) {
			if vals, ok := form[key]; ok && len(vals) > 0 {
				*dst = models.Some(vals[0])
			}
		}
		str("username", &patch.Username)
		str("email", &patch.Email)
		str("bio", &patch.Bio)
		if vals, ok := form["is_online"]; ok && len(vals) > 0 {
			b, err := parseFormBool(vals[0])
			if err != nil {
				return patch, err
			}
			patch.IsOnline = models.Some(b)
		}

		// An empty file input arrives as an empty plain value.
		if vals := form["avatar"]; len(vals) > 0 && vals[0] != "" {
			return patch, errAvatarNotFile
		}
		if r.MultipartForm != nil {
			up, err := formFile(r, "avatar")
			if err != nil {
				return patch, err
			}
			patch.Avatar = up
		}
		return patch, nil
	}

	var body fields
	if err := decodeJSON(r, &body); err != nil {
		return patch, err
	}
	if body.has("avatar") && string(body["avatar"]) != "null" {
		return patch, errAvatarNotFile
	}
	for key, dst := range map[string]*models.Optional[string]{
		"username": &patch.Username,
		"email":    &patch.Email,
		"bio":      &patch.Bio,
	} {
		if body.has(key) {
			var s string
			if err := body.decode(key, &s); err != nil {
				return patch, err
			}
			*dst = models.Some(s)
		}
	}
	if body.has("is_online") {
		var b bool
		if err := body.decode("is_online", &b); err != nil {
			return patch, err
		}
		patch.IsOnline = models.Some(b)
	}
	return patch, nil
}

// errAvatarNotFile rejects an avatar sent as a plain value. Files only
// arrive through multipart uploads.
var errAvatarNotFile = common.Validationf("avatar: The submitted data was not a file. Check the encoding type on the form.")

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

func isMultipart(r *http.Request) bool { return mediaType(r) == "multipart/form-data" }

func isForm(r *http.Request) bool { return mediaType(r) == "application/x-www-form-urlencoded" }

func parseMultipart(r *http.Request, maxBytes int64) error {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return formError(err)
	}
	return nil
}

func formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return common.Validationf("file too large, limit is %d bytes", maxErr.Limit)
	}
	return common.Validationf("malformed form data")
}

// formFile reads an optional file field. A missing field yields nil.
func formFile(r *http.Request, field string) (*models.Upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, formError(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, formError(err)
	}
	return &models.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func parseFormBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "yes":
		return true, nil
	case "off", "no", "":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, common.Validationf("is_online: must be a valid boolean")
	}
	return b, nil
}
