package handler

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/codekeeper/internal/config"
	"github.com/templui/codekeeper/internal/ctxkeys"
	"github.com/templui/codekeeper/internal/db"
	"github.com/templui/codekeeper/internal/imagecodec"
	"github.com/templui/codekeeper/internal/lifecycle"
	"github.com/templui/codekeeper/internal/model"
	"github.com/templui/codekeeper/internal/repository"
	"github.com/templui/codekeeper/internal/service"
	"github.com/templui/codekeeper/internal/storage"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type memoryStore struct {
	mu    sync.Mutex
	goals map[string]*model.Goal
}

func newMemoryStore() *memoryStore {
	return &memoryStore{goals: make(map[string]*model.Goal)}
}

func (s *memoryStore) Create(_ context.Context, goal *model.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[goal.UserID] = goal.Clone()
	return nil
}

func (s *memoryStore) Active(_ context.Context, userID string) (*model.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	goal, ok := s.goals[userID]
	if !ok || goal.ArchivedAt != nil {
		return nil, nil
	}
	return goal.Clone(), nil
}

func (s *memoryStore) AttachLock(_ context.Context, goal *model.Goal, lockImage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[goal.UserID].LockImage = &lockImage
	return nil
}

func (s *memoryStore) Complete(_ context.Context, goal *model.Goal, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.goals[goal.UserID]
	stored.Status = model.GoalStatusCompleted
	stored.CompletedAt = &at
	return nil
}

func (s *memoryStore) Archive(_ context.Context, goal *model.Goal, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[goal.UserID].ArchivedAt = &at
	return nil
}

type stubVerifier struct {
	verdict bool
}

func (v *stubVerifier) Verify(context.Context, *model.Goal, string) bool {
	return v.verdict
}

var testNow = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

func newGoalHandler(verifier lifecycle.Verifier) *GoalHandler {
	manager := lifecycle.NewManager(newMemoryStore(), verifier, lifecycle.Policy{},
		lifecycle.WithClock(func() time.Time { return testNow }))
	return NewGoalHandler(manager, &config.Config{})
}

func withUser(r *http.Request, id string) *http.Request {
	return r.WithContext(ctxkeys.WithUser(r.Context(), &model.User{ID: id, Email: id + "@example.com"}))
}

func formRequest(target string, values url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func photoRequest(t *testing.T, target, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("photo", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, target, &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

func TestGoalHandler_FullLifecycle(t *testing.T) {
	verifier := &stubVerifier{}
	h := newGoalHandler(verifier)
	get := func(path string) *http.Request { return withUser(httptest.NewRequest(http.MethodGet, path, nil), "u1") }

	w := serve(h.AppPage, get("/app"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/app/goal"`)

	w = serve(h.SetGoal, withUser(formRequest("/app/goal", url.Values{
		"description": {"Run a 10k"},
		"deadline":    {"2030-06-02T12:00"},
	}), "u1"))
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = serve(h.AppPage, get("/app"))
	assert.Contains(t, w.Body.String(), `action="/app/goal/lock"`)
	assert.Contains(t, w.Body.String(), "Run a 10k")

	w = serve(h.AttachLock, withUser(photoRequest(t, "/app/goal/lock", "lock.png", pngBytes), "u1"))
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = serve(h.AppPage, get("/app"))
	assert.Contains(t, w.Body.String(), `id="countdown"`)
	assert.Contains(t, w.Body.String(), `id="proof-submit"`)

	w = serve(h.Countdown, get("/app/goal/countdown"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `hx-trigger="every 1s"`)

	rejected := withUser(photoRequest(t, "/app/goal/proof", "proof.png", pngBytes), "u1")
	rejected.Header.Set("HX-Request", "true")
	w = serve(h.SubmitProof, rejected)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Verification failed")
	assert.NotContains(t, w.Body.String(), "<html")

	verifier.verdict = true
	accepted := withUser(photoRequest(t, "/app/goal/proof", "proof.png", pngBytes), "u1")
	accepted.Header.Set("HX-Request", "true")
	w = serve(h.SubmitProof, accepted)
	assert.Equal(t, "/app", w.Header().Get("HX-Redirect"))

	w = serve(h.AppPage, get("/app"))
	assert.Contains(t, w.Body.String(), `src="data:image/png;base64,`)

	w = serve(h.Countdown, func() *http.Request {
		r := get("/app/goal/countdown")
		r.Header.Set("HX-Request", "true")
		return r
	}())
	assert.Equal(t, "/app", w.Header().Get("HX-Redirect"))

	w = serve(h.Reset, withUser(formRequest("/app/goal/reset", url.Values{}), "u1"))
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = serve(h.AppPage, get("/app"))
	assert.Contains(t, w.Body.String(), `action="/app/goal"`)
}

func TestGoalHandler_SetGoalValidation(t *testing.T) {
	h := newGoalHandler(&stubVerifier{})

	tests := []struct {
		name        string
		description string
		deadline    string
		message     string
	}{
		{"empty", "", "", "Please fill out both your goal and the deadline."},
		{"bad date", "Read", "tomorrow", "The deadline must be a valid date and time."},
		{"past", "Read", "2030-05-01T12:00", "The deadline must be in the future."},
		{"now", "Read", "2030-06-01T12:00", "The deadline must be in the future."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h.SetGoal, withUser(formRequest("/app/goal", url.Values{
				"description": {tt.description},
				"deadline":    {tt.deadline},
			}), "u1"))

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Contains(t, w.Body.String(), tt.message)
		})
	}
}

func TestGoalHandler_TimezoneOffsetShiftsDeadline(t *testing.T) {
	h := newGoalHandler(&stubVerifier{})

	// 12:30 local at UTC-2 is 14:30 UTC, after the test clock.
	w := serve(h.SetGoal, withUser(formRequest("/app/goal", url.Values{
		"description": {"Read"},
		"deadline":    {"2030-06-01T12:30"},
		"tz_offset":   {"120"},
	}), "u1"))
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestGoalHandler_LockMustBeImage(t *testing.T) {
	h := newGoalHandler(&stubVerifier{})
	_ = serve(h.SetGoal, withUser(formRequest("/app/goal", url.Values{
		"description": {"Read"},
		"deadline":    {"2030-06-02T12:00"},
	}), "u1"))

	w := serve(h.AttachLock, withUser(photoRequest(t, "/app/goal/lock", "notes.txt", []byte("just some text")), "u1"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Please select an image file.")

	w = serve(h.AttachLock, withUser(formRequest("/app/goal/lock", url.Values{}), "u1"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGoalHandler_ActionOutOfStageRedirects(t *testing.T) {
	h := newGoalHandler(&stubVerifier{})

	w := serve(h.SubmitProof, withUser(photoRequest(t, "/app/goal/proof", "proof.png", pngBytes), "u1"))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/app", w.Header().Get("Location"))

	w = serve(h.Reset, withUser(formRequest("/app/goal/reset", url.Values{}), "u1"))
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

type failingStore struct {
	memoryStore
}

func (f *failingStore) Active(context.Context, string) (*model.Goal, error) {
	return nil, errors.New("database is down")
}

func TestGoalHandler_StoreFailure(t *testing.T) {
	manager := lifecycle.NewManager(&failingStore{}, &stubVerifier{}, lifecycle.Policy{})
	h := NewGoalHandler(manager, &config.Config{})

	w := serve(h.AppPage, withUser(httptest.NewRequest(http.MethodGet, "/app", nil), "u1"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	conn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)"
	database, err := db.Init(ctx, "sqlite", conn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, db.RunMigrations(ctx, database.DB, "sqlite"))
	return database
}

func TestAuthHandler_SignUpSignInLogout(t *testing.T) {
	database := newTestDB(t)
	authService := service.NewAuthService(repository.NewUserRepository(database), nil, "test-secret", false, time.Hour)
	manager := lifecycle.NewManager(newMemoryStore(), &stubVerifier{}, lifecycle.Policy{})
	h := NewAuthHandler(authService, manager, &config.Config{})

	creds := url.Values{"email": {"Ada@Example.com"}, "password": {"correct horse battery"}}

	w := serve(h.SignUp, formRequest("/auth/signup", creds))
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/app", w.Header().Get("Location"))
	assert.Contains(t, w.Header().Get("Set-Cookie"), "auth_token=")
	assert.Equal(t, 1, manager.Len())

	w = serve(h.SignUp, formRequest("/auth/signup", creds))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "An account with this email already exists.")

	w = serve(h.SignIn, formRequest("/auth/signin", url.Values{"email": {"ada@example.com"}, "password": {"wrong password!"}}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email or password.")

	w = serve(h.SignIn, formRequest("/auth/signin", creds))
	require.Equal(t, http.StatusSeeOther, w.Code)

	user, err := repository.NewUserRepository(database).ByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)

	r := formRequest("/auth/logout", url.Values{})
	r = r.WithContext(ctxkeys.WithUser(r.Context(), user))
	w = serve(h.Logout, r)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, 0, manager.Len())
	assert.Contains(t, w.Header().Get("Set-Cookie"), "auth_token=;")
}

func TestAuthHandler_WeakPassword(t *testing.T) {
	database := newTestDB(t)
	authService := service.NewAuthService(repository.NewUserRepository(database), nil, "test-secret", false, time.Hour)
	h := NewAuthHandler(authService, lifecycle.NewManager(newMemoryStore(), &stubVerifier{}, lifecycle.Policy{}), &config.Config{})

	w := serve(h.SignUp, formRequest("/auth/signup", url.Values{"email": {"a@example.com"}, "password": {"short"}}))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Password must be at least 12 characters.")

	w = serve(h.SignUp, formRequest("/auth/signup", url.Values{"email": {""}, "password": {""}}))
	assert.Contains(t, w.Body.String(), "Email and password cannot be empty.")
}

func TestAuthHandler_GoogleDisabled(t *testing.T) {
	h := NewAuthHandler(nil, nil, &config.Config{})

	w := serve(h.GoogleAuth, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(h.SignInPage, httptest.NewRequest(http.MethodGet, "/auth", nil))
	assert.NotContains(t, w.Body.String(), "Continue with Google")
}

func TestAuthHandler_GoogleStateMismatch(t *testing.T) {
	h := NewAuthHandler(nil, nil, &config.Config{GoogleClientID: "id", GoogleClientSecret: "secret", AppURL: "http://localhost"})

	w := serve(h.GoogleAuth, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "accounts.google.com")

	r := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=abc&code=x", nil)
	r.AddCookie(&http.Cookie{Name: "oauth_state", Value: "other"})
	w = serve(h.GoogleCallback, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Google sign-in failed.")
}

func TestHelpHandler(t *testing.T) {
	content := fstest.MapFS{
		"help/how-it-works.md": {Data: []byte("---\ntitle: How it works\norder: 1\n---\n\nSet a goal.\n")},
		"help/privacy.md":      {Data: []byte("---\ntitle: Privacy\norder: 2\n---\n\nPhotos go to the model.\n")},
	}
	h := NewHelpHandler(service.NewHelpService(content))

	r := httptest.NewRequest(http.MethodGet, "/help/privacy", nil)
	r.SetPathValue("page", "privacy")
	w := serve(h.ShowPage, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<p>Photos go to the model.</p>")
	assert.Contains(t, w.Body.String(), `href="/help/how-it-works"`)

	r = httptest.NewRequest(http.MethodGet, "/help/missing", nil)
	r.SetPathValue("page", "missing")
	w = serve(h.ShowPage, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFileHandler_ShowAndDelete(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	user := &model.User{ID: "u-files", Email: "files@example.com", CreatedAt: time.Now()}
	require.NoError(t, repository.NewUserRepository(database).Create(ctx, user))

	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	files := service.NewFileService(repository.NewFileRepository(database), local)
	file, err := files.SaveProof(ctx, &model.Goal{ID: "g1", UserID: user.ID}, imagecodec.EncodeBytes(pngBytes, "image/png"), true)
	require.NoError(t, err)

	h := NewFileHandler(files)
	request := func(method, id string) *http.Request {
		r := withUser(httptest.NewRequest(method, "/app/files/"+id, nil), user.ID)
		r.SetPathValue("id", id)
		return r
	}

	w := serve(h.Show, request(http.MethodGet, file.ID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, w.Body.Bytes())

	other := withUser(httptest.NewRequest(http.MethodGet, "/app/files/"+file.ID, nil), "someone-else")
	other.SetPathValue("id", file.ID)
	assert.Equal(t, http.StatusNotFound, serve(h.Show, other).Code)

	w = serve(h.Delete, request(http.MethodDelete, file.ID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `hx-swap-oob="beforeend:#toast-container"`)
	assert.Contains(t, w.Body.String(), "Photo deleted")

	assert.Equal(t, http.StatusNotFound, serve(h.Show, request(http.MethodGet, file.ID)).Code)
}

func TestSEOHandler(t *testing.T) {
	content := fstest.MapFS{
		"help/privacy.md": {Data: []byte("---\ntitle: Privacy\n---\n\nPhotos go to the model.\n")},
	}
	h := NewSEOHandler(service.NewHelpService(content), "https://codekeeper.example")

	w := serve(h.Sitemap, httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/xml; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "https://codekeeper.example/help/privacy")

	w = serve(h.Robots, httptest.NewRequest(http.MethodGet, "/robots.txt", nil))
	assert.Contains(t, w.Body.String(), "Disallow: /app")
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	w := serve(NewHealthHandler(pinger{}).Healthz, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = serve(NewHealthHandler(pinger{err: errors.New("down")}).Healthz, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHomeHandler_NotFound(t *testing.T) {
	w := serve(NewHomeHandler().NotFoundPage, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Page not found")
}
