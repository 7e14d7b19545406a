package middleware

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pliu/chatroom/internal/auth"
	"github.com/pliu/chatroom/internal/common"
	"github.com/pliu/chatroom/internal/logging"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

type stubAuthenticator map[string]auth.Identity

func (s stubAuthenticator) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	id, ok := s[token]
	if !ok {
		return auth.Identity{}, common.Unauthorizedf("Invalid token.")
	}
	return id, nil
}

func TestAuth(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFrom(r.Context())
		if !ok {
			t.Error("Expected identity in context")
		}
		if id.UserID != 123 {
			t.Errorf("Expected userID 123, got %v", id.UserID)
		}
		w.WriteHeader(http.StatusOK)
	})

	authenticator := stubAuthenticator{"good": {UserID: 123, Username: "alice"}}

	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{"Token scheme", "Token good", http.StatusOK},
		{"Bearer scheme", "Bearer good", http.StatusOK},
		{"Lowercase scheme", "bearer good", http.StatusOK},
		{"Unknown token", "Token bad", http.StatusUnauthorized},
		{"Unknown scheme", "Basic good", http.StatusUnauthorized},
		{"No scheme", "good", http.StatusUnauthorized},
		{"Missing header", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			Auth(authenticator)(nextHandler).ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestLogging(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()

	Logging(logging.Nop())(nextHandler).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusNotFound)
	}
}

// MockHijacker implements http.Hijacker for testing
type MockHijacker struct {
	httptest.ResponseRecorder
	hijacked bool
}

func (m *MockHijacker) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	m.hijacked = true
	return nil, nil, nil
}

func TestLogging_Hijack(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hijacker, ok := w.(http.Hijacker)
		if !ok {
			t.Error("ResponseWriter does not implement http.Hijacker")
			return
		}
		if _, _, err := hijacker.Hijack(); err != nil {
			t.Errorf("Hijack failed: %v", err)
		}
	})

	req := httptest.NewRequest("GET", "/ws", nil)
	mockWriter := &MockHijacker{ResponseRecorder: *httptest.NewRecorder()}

	Logging(logging.Nop())(nextHandler).ServeHTTP(mockWriter, req)
	assert.True(t, mockWriter.hijacked)
}

func TestLogging_HijackUnsupported(t *testing.T) {
	var err error
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, err = w.(http.Hijacker).Hijack()
	})

	Logging(logging.Nop())(nextHandler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assert.Error(t, err)
}

func TestRateLimit(t *testing.T) {
	store := NewLimiterStore(rate.Every(time.Hour), 2, time.Minute)
	h := RateLimit(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var last *httptest.ResponseRecorder
	do := func(addr string) int {
		req := httptest.NewRequest("POST", "/login", nil)
		req.RemoteAddr = addr
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
		return last.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1111"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:3333"))
	assert.Equal(t, "3600", last.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:4444"), "refused requests do not queue")
	assert.Equal(t, http.StatusOK, do("10.0.0.2:1111"), "other clients have their own bucket")
}

func TestLimiterStore_SweepsIdleBuckets(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewLimiterStore(rate.Every(time.Second), 1, time.Minute)
	store.now = func() time.Time { return clock }

	ok, _ := store.Take("a")
	assert.True(t, ok)
	ok, wait := store.Take("a")
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	clock = clock.Add(30 * time.Second)
	store.Take("b")
	assert.Len(t, store.buckets, 2, "no sweep before the idle period")

	clock = clock.Add(45 * time.Second)
	ok, _ = store.Take("b")
	assert.True(t, ok)
	assert.Len(t, store.buckets, 1, "a was idle for 75s and is dropped")
	assert.Contains(t, store.buckets, "b")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "192.0.2.1", ClientIP(req))

	req.RemoteAddr = "weird"
	assert.Equal(t, "weird", ClientIP(req))
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://localhost:4200"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("OPTIONS", "/users", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:4200", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/users", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestTrimSlash(t *testing.T) {
	var seen string
	h := TrimSlash(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { seen = r.URL.Path }))

	for in, want := range map[string]string{"/users/me/": "/users/me", "/": "/", "/chats": "/chats", "/a//": "/a"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", in, nil))
		assert.Equal(t, want, seen, in)
	}
}
