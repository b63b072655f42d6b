package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/codekeeper/internal/config"
	"github.com/templui/codekeeper/internal/ctxkeys"
	"github.com/templui/codekeeper/internal/model"
	"github.com/templui/codekeeper/internal/validation"
)

type fakeSessions struct {
	users   map[string]*model.User
	cleared int
}

func (f *fakeSessions) UserFromToken(_ context.Context, token string) (*model.User, error) {
	user, ok := f.users[token]
	if !ok {
		return nil, errors.New("bad token")
	}
	return user, nil
}

func (f *fakeSessions) ClearJWTCookie(http.ResponseWriter) {
	f.cleared++
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// countingReader records how much of a request body was consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// oversizedUpload is a multipart body whose photo part is far past the upload
// limit, with the csrf_token field only after it.
func oversizedUpload(token string) *countingReader {
	head := "--b\r\nContent-Disposition: form-data; name=\"photo\"; filename=\"lock.jpg\"\r\n" +
		"Content-Type: image/jpeg\r\n\r\n"
	tail := "\r\n--b\r\nContent-Disposition: form-data; name=\"csrf_token\"\r\n\r\n" + token + "\r\n--b--\r\n"
	return &countingReader{r: io.MultiReader(
		strings.NewReader(head),
		io.LimitReader(zeros{}, 64<<20),
		strings.NewReader(tail),
	)}
}

func TestAuthMiddleware(t *testing.T) {
	sessions := &fakeSessions{users: map[string]*model.User{"good": {ID: "u1", Email: "a@example.com"}}}

	var seen *model.User
	h := AuthMiddleware(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ctxkeys.User(r.Context())
	}))

	t.Run("valid cookie", func(t *testing.T) {
		seen = nil
		r := httptest.NewRequest(http.MethodGet, "/app", nil)
		r.AddCookie(&http.Cookie{Name: "auth_token", Value: "good"})
		h.ServeHTTP(httptest.NewRecorder(), r)

		require.NotNil(t, seen)
		assert.Equal(t, "u1", seen.ID)
	})

	t.Run("stale cookie is cleared", func(t *testing.T) {
		seen = nil
		r := httptest.NewRequest(http.MethodGet, "/app", nil)
		r.AddCookie(&http.Cookie{Name: "auth_token", Value: "stale"})
		h.ServeHTTP(httptest.NewRecorder(), r)

		assert.Nil(t, seen)
		assert.Equal(t, 1, sessions.cleared)
	})

	t.Run("no cookie", func(t *testing.T) {
		seen = nil
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Nil(t, seen)
	})
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(okHandler)

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/auth", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/app/goal/countdown", nil)
	r.Header.Set("HX-Request", "true")
	h(w, r)
	assert.Equal(t, "/auth", w.Header().Get("HX-Redirect"))

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/app", nil)
	r = r.WithContext(ctxkeys.WithUser(r.Context(), &model.User{ID: "u1"}))
	h(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireGuest(t *testing.T) {
	h := RequireGuest(okHandler)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/auth", nil)
	r = r.WithContext(ctxkeys.WithUser(r.Context(), &model.User{ID: "u1"}))
	h(w, r)
	assert.Equal(t, "/app", w.Header().Get("Location"))
}

type keyMode bool

func (m keyMode) RequiresUserKey() bool { return bool(m) }

type keyLookup map[string]bool

func (k keyLookup) HasKey(_ context.Context, userID string) (bool, error) {
	return k[userID], nil
}

func TestRequireVisionKey(t *testing.T) {
	withUser := func(id string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/app", nil)
		return r.WithContext(ctxkeys.WithUser(r.Context(), &model.User{ID: id}))
	}
	keys := keyLookup{"has": true}

	w := httptest.NewRecorder()
	RequireVisionKey(keyMode(false), keys)(okHandler)(w, withUser("none"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	RequireVisionKey(keyMode(true), keys)(okHandler)(w, withUser("none"))
	assert.Equal(t, "/app/vision-key", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	RequireVisionKey(keyMode(true), keys)(okHandler)(w, withUser("has"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCSRFProtection(t *testing.T) {
	h := CSRFProtection(http.HandlerFunc(okHandler))
	token := generateCSRFToken()

	t.Run("get issues cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Set-Cookie"), csrfCookieName+"=")
	})

	t.Run("post without token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/app/goal", nil)
		r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
		h.ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("post with header", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/app/goal", nil)
		r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
		r.Header.Set(csrfHeader, token)
		h.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("post with form field", func(t *testing.T) {
		form := url.Values{csrfFormField: {token}}
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/app/goal", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
		h.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("oversized multipart body is rejected early", func(t *testing.T) {
		body := oversizedUpload(token)
		var reached bool
		h := CSRFProtection(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			reached = true
		}))

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/app/goal/proof", body)
		r.Header.Set("Content-Type", "multipart/form-data; boundary=b")
		r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
		h.ServeHTTP(w, r)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.False(t, reached)
		assert.LessOrEqual(t, body.n, int64(validation.MaxUploadRequest+1))
	})

	t.Run("post with header leaves body bounded", func(t *testing.T) {
		var readErr error
		h := CSRFProtection(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, readErr = io.Copy(io.Discard, r.Body)
		}))

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/app/goal/proof", io.LimitReader(zeros{}, 64<<20))
		r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
		r.Header.Set(csrfHeader, token)
		h.ServeHTTP(w, r)

		var tooLarge *http.MaxBytesError
		assert.ErrorAs(t, readErr, &tooLarge)
	})

	t.Run("post with mismatched token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/app/goal", nil)
		r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
		r.Header.Set(csrfHeader, generateCSRFToken())
		h.ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	h := rl.Limit(okHandler)
	call := func(addr string) int {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/auth/signin", nil)
		r.RemoteAddr = addr
		h(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:5678"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:9999"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1234"))

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, rl.Cleanup())
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1234"))
}

func TestSecurityHeaders(t *testing.T) {
	cfg := &config.Config{AppEnv: "production", S3Endpoint: "https://minio.example.com:9000/bucket"}
	h := Chain(http.HandlerFunc(okHandler), NonceMiddleware, SecurityHeaders(cfg))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	csp := w.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "'nonce-")
	assert.Contains(t, csp, "img-src 'self' data: blob: https://minio.example.com:9000")
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	Chain(http.HandlerFunc(okHandler), mw("a"), mw("b"), mw("c")).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestConfigAddsPathAndSanitizedConfig(t *testing.T) {
	cfg := &config.Config{AppName: "Codekeeper", JWTSecret: "secret"}

	var seen *config.Config
	var path string
	h := Config(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ctxkeys.Config(r.Context())
		path = ctxkeys.URLPath(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/app/history", nil))

	require.NotNil(t, seen)
	assert.Equal(t, "Codekeeper", seen.AppName)
	assert.Empty(t, seen.JWTSecret)
	assert.Equal(t, "/app/history", path)
}
