package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pliu/chatroom/internal/auth"
	"github.com/pliu/chatroom/internal/common"
	"github.com/pliu/chatroom/internal/filestore"
	"github.com/pliu/chatroom/internal/httpx"
	"github.com/pliu/chatroom/internal/logging"
)

// URLBuilder turns file store keys into absolute URLs.
type URLBuilder struct {
	Files filestore.FileStore
	// BaseURL overrides the scheme and host taken from the request, e.g.
	// "https://chat.example.com" behind a proxy.
	BaseURL string
}

func (b URLBuilder) Absolute(r *http.Request, key string) string {
	u := b.Files.URL(key)
	if strings.Contains(u, "://") {
		return u
	}
	if b.BaseURL != "" {
		return strings.TrimSuffix(b.BaseURL, "/") + u
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + u
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFrom(r.Context())
	return id
}

// pathID parses the {id} route variable.
func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		return 0, common.NotFoundf("Not found.")
	}
	return id, nil
}

// decodeJSON reads a JSON object body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return common.Validationf("request body too large")
		}
		if errors.Is(err, io.EOF) {
			return common.Validationf("request body is empty")
		}
		return common.Validationf("malformed JSON: %v", err)
	}
	return nil
}

// fail writes err and logs server-side failures with the request context.
func fail(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError && logger != nil {
		logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	httpx.WriteError(w, err)
}

// fields keeps raw JSON values by key so callers can tell absent from zero.
type fields map[string]json.RawMessage

func (f fields) has(key string) bool {
	_, ok := f[key]
	return ok
}

func (f fields) decode(key string, v any) error {
	if err := json.Unmarshal(f[key], v); err != nil {
		return common.Validationf("%s: invalid value", key)
	}
	return nil
}
