package app

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pliu/chatroom/internal/config"
	"github.com/pliu/chatroom/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type client struct {
	t     *testing.T
	base  string
	token string
}

func newTestApp(t *testing.T) (*App, *httptest.Server) {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDSN = ":memory:"
	cfg.MediaRoot = t.TempDir()
	cfg.LoginRateLimit = 0
	require.NoError(t, cfg.Validate())

	a, err := New(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go a.hub.Run(ctx)

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return a, srv
}

func (c *client) do(method, path string, body io.Reader, contentType string) (*http.Response, []byte) {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, body)
	require.NoError(c.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, data
}

func (c *client) json(method, path string, v any) (*http.Response, map[string]any) {
	c.t.Helper()
	var body io.Reader
	if v != nil {
		b, err := json.Marshal(v)
		require.NoError(c.t, err)
		body = bytes.NewReader(b)
	}
	resp, data := c.do(method, path, body, "application/json")
	out := map[string]any{}
	if len(data) > 0 && data[0] == '{' {
		require.NoError(c.t, json.Unmarshal(data, &out))
	}
	return resp, out
}

func (c *client) upload(path, field, filename string, data []byte, values map[string]string, method string) (*http.Response, map[string]any) {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range values {
		require.NoError(c.t, mw.WriteField(k, v))
	}
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(c.t, err)
		_, err = fw.Write(data)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, mw.Close())

	resp, raw := c.do(method, path, &buf, mw.FormDataContentType())
	out := map[string]any{}
	require.NoError(c.t, json.Unmarshal(raw, &out), string(raw))
	return resp, out
}

func pngBytes(t *testing.T, size int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, size, size))))
	return buf.Bytes()
}

// signup registers and logs in, returning an authenticated client.
func signup(t *testing.T, srv *httptest.Server, username string) (*client, int) {
	t.Helper()
	c := &client{t: t, base: srv.URL}
	resp, _ := c.json(http.MethodPost, "/register", map[string]string{
		"username": username, "email": username + "@example.com", "password": "pass1234",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := c.json(http.MethodPost, "/login", map[string]string{"username": username, "password": "pass1234"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c.token = body["token"].(string)
	return c, int(body["user_id"].(float64))
}

func TestAvatarReplacementOverHTTP(t *testing.T) {
	_, srv := newTestApp(t)
	alice, _ := signup(t, srv, "alice")

	resp, body := alice.upload("/users/me/upload_avatar", "avatar", "a.png", pngBytes(t, 4), nil, http.MethodPost)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := body["avatar"].(string)

	resp, body = alice.upload("/users/me/upload_avatar", "avatar", "b.png", pngBytes(t, 8), nil, http.MethodPost)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Avatar updated successfully", body["message"])
	second := body["avatar"].(string)
	assert.Regexp(t, regexp.MustCompile("^"+regexp.QuoteMeta(srv.URL)+`/media/avatars/[0-9a-f-]{36}\.png$`), second)
	assert.NotEqual(t, first, second)

	// the new file is served, the old one is gone
	res, err := http.Get(second)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))

	res, err = http.Get(first)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	_, me := alice.json(http.MethodGet, "/users/me/", nil)
	assert.Equal(t, second, me["avatar"])
}

func TestAvatarUpload_Errors(t *testing.T) {
	_, srv := newTestApp(t)
	alice, aliceID := signup(t, srv, "alice")
	bob, _ := signup(t, srv, "bob")

	resp, body := alice.upload("/users/me/upload_avatar", "", "", nil, map[string]string{"bio": "x"}, http.MethodPost)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No avatar file provided", body["error"])

	path := "/users/" + strconv.Itoa(aliceID) + "/upload_avatar"
	resp, _ = bob.upload(path, "avatar", "a.png", pngBytes(t, 4), nil, http.MethodPost)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, me := alice.json(http.MethodGet, "/users/me", nil)
	assert.Nil(t, me["avatar"])
}

func TestPatchWithoutAvatarOverHTTP(t *testing.T) {
	_, srv := newTestApp(t)
	alice, _ := signup(t, srv, "alice")

	resp, body := alice.upload("/users/me", "", "", nil, map[string]string{"bio": "hello"}, http.MethodPatch)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", body["bio"])
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "alice@example.com", body["email"])
	assert.Equal(t, false, body["is_online"])
	assert.Nil(t, body["avatar"])
}

func TestAuthRequired(t *testing.T) {
	_, srv := newTestApp(t)
	anon := &client{t: t, base: srv.URL}

	for _, path := range []string{"/users", "/users/me", "/chats", "/messages", "/images"} {
		resp, body := anon.json(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		assert.NotEmpty(t, body["error"], path)
	}

	anon.token = "garbage"
	resp, _ := anon.json(http.MethodGet, "/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthAndNotFound(t *testing.T) {
	_, srv := newTestApp(t)
	c := &client{t: t, base: srv.URL}

	resp, body := c.json(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, body = c.json(http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not found.", body["error"])

	resp, _ = c.json(http.MethodDelete, "/login", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMessagePushedOverWebsocket(t *testing.T) {
	a, srv := newTestApp(t)
	alice, _ := signup(t, srv, "alice")
	bob, bobID := signup(t, srv, "bob")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + bob.token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return a.hub.IsConnected(bobID) }, time.Second, 10*time.Millisecond)

	_, me := bob.json(http.MethodGet, "/users/me", nil)
	assert.Equal(t, true, me["is_online"], "an open socket counts as online")

	resp, chat := alice.json(http.MethodPost, "/chats", map[string]any{"name": "dm", "participants": []int{bobID}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = alice.json(http.MethodPost, "/messages", map[string]any{"chat": chat["id"], "text": "hello bob"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var types []string
	for len(types) < 2 {
		var ev struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		require.NoError(t, conn.ReadJSON(&ev))
		types = append(types, ev.Type)
		if ev.Type == "message:created" {
			assert.Equal(t, "hello bob", ev.Payload["text"])
		}
	}
	assert.Equal(t, []string{"chat:created", "message:created"}, types)
}
