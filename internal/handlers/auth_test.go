package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/pliu/chatroom/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	e := newEnv(t)
	handler := &AuthHandler{Users: e.users, URLs: e.urls, Logger: logging.Nop()}

	body := map[string]string{"username": "testuser", "email": "t@example.com", "password": "password123"}
	rr := serve(t, handler.Register, request{method: http.MethodPost, target: "/register", body: jsonBody(t, body)})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "password")

	got := decode[map[string]any](t, rr)
	assert.Equal(t, "testuser", got["username"])
	assert.Nil(t, got["avatar"])
	assert.Equal(t, false, got["is_online"])

	// duplicate user
	rr = serve(t, handler.Register, request{method: http.MethodPost, target: "/register", body: jsonBody(t, body)})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRegister_Invalid(t *testing.T) {
	e := newEnv(t)
	handler := &AuthHandler{Users: e.users, URLs: e.urls, Logger: logging.Nop()}

	cases := map[string]string{
		"empty body":   "",
		"bad json":     "{",
		"no password":  `{"username":"bob"}`,
		"bad username": `{"username":"bad name!","password":"x"}`,
		"bad email":    `{"username":"bob","email":"nope","password":"x"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := serve(t, handler.Register, request{method: http.MethodPost, target: "/register", body: strings.NewReader(body)})
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.NotEmpty(t, errorMessage(t, rr))
		})
	}
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	id := e.register(t, "testuser")
	handler := &AuthHandler{Users: e.users, URLs: e.urls, Logger: logging.Nop()}

	rr := serve(t, handler.Login, request{
		method: http.MethodPost, target: "/login",
		body: jsonBody(t, Credentials{Username: "testuser", Password: "pass1234"}),
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got := decode[map[string]any](t, rr)
	assert.NotEmpty(t, got["token"])
	assert.EqualValues(t, id.UserID, got["user_id"])
	assert.Equal(t, "testuser", got["username"])

	rr = serve(t, handler.Login, request{
		method: http.MethodPost, target: "/login",
		body: jsonBody(t, Credentials{Username: "testuser", Password: "wrong"}),
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Unable to log in with provided credentials.", errorMessage(t, rr))

	rr = serve(t, handler.Login, request{
		method: http.MethodPost, target: "/login",
		body: jsonBody(t, Credentials{Username: "testuser"}),
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
