package service

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/codekeeper/internal/config"
	"github.com/templui/codekeeper/internal/crypto"
	"github.com/templui/codekeeper/internal/db"
	"github.com/templui/codekeeper/internal/model"
	"github.com/templui/codekeeper/internal/repository"
	"github.com/templui/codekeeper/internal/storage"
)

const (
	testLock  = "data:image/png;base64,iVBORw0KGgo="
	testProof = "data:image/jpeg;base64,/9j/4AAQSkZJRg=="
)

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

func newTestSealer(t *testing.T) *crypto.Sealer {
	t.Helper()
	sealer, err := crypto.NewSealer([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return sealer
}

func newTestUser(t *testing.T, database *sqlx.DB) *model.User {
	t.Helper()
	user := &model.User{ID: uuid.New().String(), Email: uuid.New().String() + "@example.com", CreatedAt: time.Now()}
	require.NoError(t, repository.NewUserRepository(database).Create(context.Background(), user))
	return user
}

func newDevEmail() *EmailService {
	return NewEmailService("", "noreply@example.com", "http://localhost:8090", "Codekeeper", true)
}

type fakeVision struct {
	mu      sync.Mutex
	verdict bool
	pingErr error
	calls   int
	goals   []string
}

func (f *fakeVision) Verify(_ context.Context, goal, _ string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.goals = append(f.goals, goal)
	return f.verdict
}

func (f *fakeVision) Ping(context.Context) error {
	return f.pingErr
}

func TestAuthService_SignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	auth := NewAuthService(repository.NewUserRepository(newTestDB(t)), newDevEmail(), "test-secret", false, time.Hour)

	user, err := auth.SignUp(ctx, "  Ada@Example.com ", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)

	signedIn, err := auth.SignIn(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, user.ID, signedIn.ID)

	_, err = auth.SignIn(ctx, "ada@example.com", "wrong horse battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.SignIn(ctx, "nobody@example.com", "correct horse battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.SignUp(ctx, "ada@example.com", "another long passphrase")
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestAuthService_SignUpValidation(t *testing.T) {
	ctx := context.Background()
	auth := NewAuthService(repository.NewUserRepository(newTestDB(t)), nil, "test-secret", false, time.Hour)

	_, err := auth.SignUp(ctx, "not-an-email", "correct horse battery")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = auth.SignUp(ctx, "short@example.com", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = auth.SignUp(ctx, "common@example.com", "mypassword123456")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestAuthService_OAuthAccountIsPasswordless(t *testing.T) {
	ctx := context.Background()
	auth := NewAuthService(repository.NewUserRepository(newTestDB(t)), nil, "test-secret", false, time.Hour)

	first, err := auth.AuthenticateOAuth(ctx, "grace@example.com", "google")
	require.NoError(t, err)
	again, err := auth.AuthenticateOAuth(ctx, "GRACE@example.com", "google")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = auth.SignIn(ctx, "grace@example.com", "anything at all")
	assert.ErrorIs(t, err, ErrPasswordlessAccount)
}

func TestAuthService_Session(t *testing.T) {
	ctx := context.Background()
	auth := NewAuthService(repository.NewUserRepository(newTestDB(t)), nil, "test-secret", false, time.Hour)

	user, err := auth.SignUp(ctx, "linus@example.com", "correct horse battery")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, auth.StartSession(rec, user))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "auth_token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	resolved, err := auth.UserFromToken(ctx, cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
	assert.Nil(t, resolved.PasswordHash)

	other := NewAuthService(repository.NewUserRepository(newTestDB(t)), nil, "other-secret", false, time.Hour)
	_, err = other.UserFromToken(ctx, cookies[0].Value)
	assert.Error(t, err)
}

func TestGoalService_SealsLockImage(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	user := newTestUser(t, database)
	repo := repository.NewGoalRepository(database)
	goals := NewGoalService(repo, nil, newTestSealer(t))

	none, err := goals.Active(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	now := time.Now()
	goal := &model.Goal{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		Description: "write the book",
		Deadline:    now.Add(time.Hour),
		Status:      model.GoalStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, goals.Create(ctx, goal))
	require.NoError(t, goals.AttachLock(ctx, goal, testLock))

	raw, err := repo.ByID(ctx, user.ID, goal.ID)
	require.NoError(t, err)
	require.True(t, raw.HasLock())
	assert.NotEqual(t, testLock, *raw.LockImage)

	active, err := goals.Active(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, testLock, *active.LockImage)

	// Locked goals never reveal the image in history.
	history, err := goals.History(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].Goal.LockImage)

	require.NoError(t, goals.Complete(ctx, goal, now))

	// A completed goal is still current until it is archived.
	current, err := goals.Active(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.True(t, current.IsCompleted())

	history, err = goals.History(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, history[0].Goal.LockImage)
	assert.Equal(t, testLock, *history[0].Goal.LockImage)

	require.NoError(t, goals.Archive(ctx, goal, now))
	none, err = goals.Active(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestFileService_ProofArchive(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	user := newTestUser(t, database)
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	files := NewFileService(repository.NewFileRepository(database), local)

	goal := &model.Goal{ID: uuid.New().String(), UserID: user.ID}
	file, err := files.SaveProof(ctx, goal, testProof, false)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", file.MimeType)
	assert.False(t, file.Verified)

	proofs, err := files.ProofFiles(ctx, goal.ID)
	require.NoError(t, err)
	require.Len(t, proofs, 1)

	download, err := files.Locate(ctx, user.ID, file.ID)
	require.NoError(t, err)
	require.NotNil(t, download.Body)
	data, err := io.ReadAll(download.Body)
	require.NoError(t, err)
	require.NoError(t, download.Body.Close())
	assert.Equal(t, file.Size, int64(len(data)))

	_, err = files.Locate(ctx, "someone-else", file.ID)
	assert.ErrorIs(t, err, repository.ErrFileNotFound)

	require.NoError(t, files.Delete(ctx, user.ID, file.ID))
	_, err = files.Locate(ctx, user.ID, file.ID)
	assert.ErrorIs(t, err, repository.ErrFileNotFound)

	_, err = files.SaveProof(ctx, goal, "not a data uri", true)
	assert.Error(t, err)
}

func TestVisionKeyService(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	user := newTestUser(t, database)

	client := &fakeVision{}
	var seenKeys []string
	factory := func(_ context.Context, apiKey string) (VisionClient, error) {
		seenKeys = append(seenKeys, apiKey)
		return client, nil
	}
	keys := NewVisionKeyService(repository.NewVisionKeyRepository(database), newTestSealer(t), factory)

	has, err := keys.HasKey(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = keys.Client(ctx, user.ID)
	assert.ErrorIs(t, err, ErrVisionKeyMissing)

	client.pingErr = errors.New("API key not valid")
	err = keys.Save(ctx, user.ID, "AIzaSyRejectedKey00000000")
	assert.ErrorIs(t, err, ErrVisionKeyRejected)

	client.pingErr = nil
	require.NoError(t, keys.Save(ctx, user.ID, " AIzaSyAcceptedKey0000wxyz "))

	status, err := keys.Status(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, "wxyz", status.Hint)
	assert.Empty(t, status.SealedKey)

	_, err = keys.Client(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "AIzaSyAcceptedKey0000wxyz", seenKeys[len(seenKeys)-1])

	require.NoError(t, keys.Remove(ctx, user.ID))
	has, err = keys.HasKey(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestVerificationService_DeploymentMode(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	user := newTestUser(t, database)
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	files := NewFileService(repository.NewFileRepository(database), local)

	client := &fakeVision{verdict: true}
	verification := NewVerificationService(config.VisionCredentialsDeployment, client, nil, files)
	assert.False(t, verification.RequiresUserKey())

	goal := &model.Goal{ID: uuid.New().String(), UserID: user.ID, Description: "climb the hill"}
	assert.True(t, verification.Verify(ctx, goal, testProof))
	assert.Equal(t, []string{"climb the hill"}, client.goals)

	proofs, err := files.ProofFiles(ctx, goal.ID)
	require.NoError(t, err)
	require.Len(t, proofs, 1)
	assert.True(t, proofs[0].Verified)
}

func TestVerificationService_UserModeWithoutKey(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	user := newTestUser(t, database)

	client := &fakeVision{verdict: true}
	factory := func(context.Context, string) (VisionClient, error) { return client, nil }
	keys := NewVisionKeyService(repository.NewVisionKeyRepository(database), newTestSealer(t), factory)
	verification := NewVerificationService(config.VisionCredentialsUser, nil, keys, nil)
	assert.True(t, verification.RequiresUserKey())

	goal := &model.Goal{ID: uuid.New().String(), UserID: user.ID, Description: "x"}
	assert.False(t, verification.Verify(ctx, goal, testProof))
	assert.Zero(t, client.calls)

	require.NoError(t, keys.Save(ctx, user.ID, "AIzaSyAcceptedKey00000000"))
	assert.True(t, verification.Verify(ctx, goal, testProof))
	assert.Equal(t, 1, client.calls)
}

func TestVerificationService_MissingDeploymentClient(t *testing.T) {
	verification := NewVerificationService(config.VisionCredentialsDeployment, nil, nil, nil)
	goal := &model.Goal{ID: "g", UserID: "u", Description: "x"}
	assert.False(t, verification.Verify(context.Background(), goal, testProof))
}

func TestDeadlineNotifier_RunOnce(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	user := newTestUser(t, database)
	goals := repository.NewGoalRepository(database)

	now := time.Now()
	expired := &model.Goal{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		Description: "expired",
		Deadline:    now.Add(-time.Minute),
		Status:      model.GoalStatusActive,
		CreatedAt:   now.Add(-time.Hour),
		UpdatedAt:   now.Add(-time.Hour),
	}
	require.NoError(t, goals.Create(ctx, expired))

	notifier := NewDeadlineNotifier(goals, repository.NewUserRepository(database), newDevEmail())

	sent, err := notifier.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	sent, err = notifier.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)

	stored, err := goals.ByID(ctx, user.ID, expired.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.DeadlineNotifiedAt)
}

func TestHelpService(t *testing.T) {
	content := fstest.MapFS{
		"help/how-it-works.md": {Data: []byte("---\ntitle: How it works\norder: 1\n---\nSet a goal.")},
		"help/privacy.md":      {Data: []byte("---\norder: 2\nlastUpdated: 2025-01-15\n---\nPhotos go to the model.")},
		"help/notes.txt":       {Data: []byte("ignored")},
	}
	help := NewHelpService(content)

	page, err := help.Page("how-it-works")
	require.NoError(t, err)
	assert.Equal(t, "How it works", page.Title)
	assert.Contains(t, page.Content, "Set a goal.")

	privacy, err := help.Page("privacy")
	require.NoError(t, err)
	assert.Equal(t, "Privacy", privacy.Title)
	assert.Equal(t, "January 15, 2025", privacy.LastUpdated)

	_, err = help.Page("missing")
	assert.ErrorIs(t, err, ErrHelpPageNotFound)
	_, err = help.Page("../secrets")
	assert.ErrorIs(t, err, ErrHelpPageNotFound)

	pages, err := help.Pages()
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "how-it-works", pages[0].Slug)
	assert.Equal(t, "privacy", pages[1].Slug)
}

func TestSitemapService(t *testing.T) {
	content := fstest.MapFS{
		"help/privacy.md": {Data: []byte("---\ntitle: Privacy\nlastUpdated: 2025-01-15\n---\nPhotos go to the model.")},
	}
	sitemap := NewSitemapService(NewHelpService(content), "https://codekeeper.example/")
	sitemap.now = func() time.Time { return time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC) }

	out, err := sitemap.GenerateSitemap()
	require.NoError(t, err)

	xml := string(out)
	assert.Contains(t, xml, "<loc>https://codekeeper.example/</loc>")
	assert.Contains(t, xml, "<loc>https://codekeeper.example/help/privacy</loc>")
	assert.Contains(t, xml, "<lastmod>2025-01-15</lastmod>")
	assert.Contains(t, xml, "<lastmod>2030-06-01</lastmod>")
	assert.NotContains(t, xml, "/app")

	robots := string(sitemap.Robots())
	assert.Contains(t, robots, "Disallow: /app")
	assert.Contains(t, robots, "Sitemap: https://codekeeper.example/sitemap.xml")
}
