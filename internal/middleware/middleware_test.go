package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S4nzh4r/ya-note/internal/auth"
	"github.com/S4nzh4r/ya-note/internal/models"
	"github.com/S4nzh4r/ya-note/internal/store"
)

type fakeTokens map[string]int64

func (f fakeTokens) Validate(token string) (int64, error) {
	id, ok := f[token]
	if !ok {
		return 0, auth.ErrInvalidToken
	}
	return id, nil
}

type fakeUsers map[int64]*models.User

func (f fakeUsers) Lookup(_ context.Context, id int64) (*models.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

type brokenUsers struct{}

func (brokenUsers) Lookup(context.Context, int64) (*models.User, error) {
	return nil, errors.New("database is locked")
}

func whoami(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.UserFromContext(r.Context()); ok {
		w.Write([]byte(u.Username))
		return
	}
	w.Write([]byte("anonymous"))
}

func TestAuthenticate(t *testing.T) {
	tokens := fakeTokens{"good": 1, "ghost": 99}
	users := fakeUsers{1: {ID: 1, Username: "author"}}
	h := Authenticate(tokens, users, nil)(http.HandlerFunc(whoami))

	cases := map[string]string{
		"":      "anonymous",
		"good":  "author",
		"bad":   "anonymous",
		"ghost": "anonymous",
	}
	for cookie, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/notes/", nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: cookie})
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, want, w.Body.String(), "cookie %q", cookie)
	}
}

func TestAuthenticateLookupFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := Authenticate(fakeTokens{"good": 1}, brokenUsers{}, logger)(http.HandlerFunc(whoami))

	req := httptest.NewRequest(http.MethodGet, "/notes/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "good"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "anonymous")
	assert.NotContains(t, w.Body.String(), "database is locked")
	assert.Contains(t, buf.String(), "user lookup failed")
	assert.Contains(t, buf.String(), "database is locked")
}

func TestRequireLogin(t *testing.T) {
	h := RequireLogin("/auth/login/")(http.HandlerFunc(whoami))

	req := httptest.NewRequest(http.MethodPost, "/add/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login/?next=%2Fadd%2F", w.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodPost, "/add/", nil)
	req = req.WithContext(auth.WithUser(req.Context(), &models.User{ID: 1, Username: "author"}))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "author", w.Body.String())
}

func TestLoggingSetsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/note/missing/", nil))
	id := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, id)
	assert.Contains(t, buf.String(), "request_id="+id)
	assert.Contains(t, buf.String(), "status=404")
	assert.Contains(t, buf.String(), "path=/note/missing/")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}

func TestLoggingPassesFlush(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: hello\n\n"))
		f.Flush()
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, w.Flushed)
	assert.Equal(t, "data: hello\n\n", w.Body.String())
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(NewIPRateLimiter(0.001, 2))(http.HandlerFunc(whoami))

	post := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login/", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, post("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, post("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, post("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, post("10.0.0.2:1000"), "budgets are per address")

	req := httptest.NewRequest(http.MethodGet, "/auth/login/", nil)
	req.RemoteAddr = "10.0.0.1:1003"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "GET is not limited")
}
