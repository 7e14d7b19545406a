package handlers

import (
	"net/http"

	"github.com/pliu/chatroom/internal/httpx"
	"github.com/pliu/chatroom/internal/logging"
	"github.com/pliu/chatroom/internal/users"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthHandler struct {
	Users  *users.Service
	URLs   URLBuilder
	Logger logging.Logger
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req users.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, h.Logger, err)
		return
	}

	u, err := h.Users.Register(r.Context(), req)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, newUserView(r, h.URLs, u))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := decodeJSON(r, &creds); err != nil {
		fail(w, r, h.Logger, err)
		return
	}

	res, err := h.Users.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, res)
}
