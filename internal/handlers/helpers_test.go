package handlers

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
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/pliu/chatroom/internal/auth"
	"github.com/pliu/chatroom/internal/filestore"
	"github.com/pliu/chatroom/internal/logging"
	"github.com/pliu/chatroom/internal/models"
	"github.com/pliu/chatroom/internal/store/sqlstore"
	"github.com/pliu/chatroom/internal/users"
	"github.com/stretchr/testify/require"
)

const testBase = "http://chat.test"

type env struct {
	store *sqlstore.SQLStore
	files *filestore.LocalStore
	users *users.Service
	urls  URLBuilder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s, err := sqlstore.Open(context.Background(), "sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	files, err := filestore.NewLocalStore(t.TempDir(), "/media/")
	require.NoError(t, err)

	svc := users.NewService(s, files, logging.Nop(), users.Options{SecretKey: []byte("secret"), TokenTTL: time.Hour})
	return &env{store: s, files: files, users: svc, urls: URLBuilder{Files: files, BaseURL: testBase}}
}

func (e *env) register(t *testing.T, username string) auth.Identity {
	t.Helper()
	u, err := e.users.Register(context.Background(), users.RegisterInput{
		Username: username, Email: username + "@example.com", Password: "pass1234",
	})
	require.NoError(t, err)
	return auth.Identity{UserID: u.ID, Username: u.Username}
}

func (e *env) exists(t *testing.T, key string) bool {
	t.Helper()
	ok, err := e.files.Exists(context.Background(), key)
	require.NoError(t, err)
	return ok
}

// request describes one handler invocation.
type request struct {
	method      string
	target      string
	vars        map[string]string
	as          *auth.Identity
	body        io.Reader
	contentType string
}

func serve(t *testing.T, h http.HandlerFunc, rq request) *httptest.ResponseRecorder {
	t.Helper()
	if rq.target == "" {
		rq.target = "/"
	}
	req := httptest.NewRequest(rq.method, rq.target, rq.body)
	if rq.contentType != "" {
		req.Header.Set("Content-Type", rq.contentType)
	}
	if rq.vars != nil {
		req = mux.SetURLVars(req, rq.vars)
	}
	if rq.as != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), *rq.as))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func pngBytes(t *testing.T, size int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, size, size))))
	return buf.Bytes()
}

// multipartBody builds a form with text fields and an optional file.
func multipartBody(t *testing.T, values map[string]string, fileField, filename string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rr)["error"]
}

func reloadUser(t *testing.T, e *env, id int) *models.User {
	t.Helper()
	u, err := e.store.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	return u
}
