package pages

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/codekeeper/internal/config"
	"github.com/templui/codekeeper/internal/countdown"
	"github.com/templui/codekeeper/internal/ctxkeys"
	"github.com/templui/codekeeper/internal/model"
)

func renderString(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(ctx, &buf))
	return buf.String()
}

func testContext() context.Context {
	ctx := context.Background()
	ctx = ctxkeys.WithConfig(ctx, &config.Config{AppName: "Codekeeper", VisionCredentials: config.VisionCredentialsUser})
	ctx = ctxkeys.WithCSRFToken(ctx, "csrf-123")
	ctx = ctxkeys.WithUser(ctx, &model.User{ID: "u1", Email: "a@example.com"})
	ctx = ctxkeys.WithURLPath(ctx, "/app")
	return templ.WithNonce(ctx, "nonce-abc")
}

func TestGoalSetup_RendersFormInAppLayout(t *testing.T) {
	html := renderString(t, testContext(), GoalSetup(GoalSetupProps{Description: "Run <fast>", Error: "the deadline must be in the future"}))

	assert.Contains(t, html, "<title>Set a goal | Codekeeper</title>")
	assert.Contains(t, html, `name="csrf_token" value="csrf-123"`)
	assert.Contains(t, html, `nonce="nonce-abc"`)
	assert.Contains(t, html, "Run &lt;fast&gt;")
	assert.Contains(t, html, "the deadline must be in the future")
	assert.Contains(t, html, `href="/app/vision-key"`)
}

func TestCountdownFragment(t *testing.T) {
	ctx := testContext()

	running := renderString(t, ctx, Countdown(CountdownProps{
		Remaining: countdown.Remaining{Days: 2, Hours: 3, Minutes: 4, Seconds: 5},
		CanSubmit: true,
	}))
	assert.Contains(t, running, `hx-trigger="every 1s"`)
	assert.Contains(t, running, ">03<")
	assert.Contains(t, running, `hx-swap-oob="true"`)
	assert.NotContains(t, running, "<html")

	over := renderString(t, ctx, Countdown(CountdownProps{Remaining: countdown.Remaining{IsOver: true}}))
	assert.NotContains(t, over, "hx-trigger")
	assert.Contains(t, over, "Time's up.")
	assert.Contains(t, over, "disabled")
}

func TestTracking_NoOOBOnFullPage(t *testing.T) {
	goal := &model.Goal{ID: "g1", Description: "Read a book", Deadline: time.Now().Add(time.Hour)}
	html := renderString(t, testContext(), Tracking(TrackingProps{
		Goal:      goal,
		Countdown: CountdownProps{Remaining: countdown.Until(goal.Deadline, time.Now()), CanSubmit: true},
		Result:    &ProofResultProps{Message: "Verification failed"},
	}))

	assert.NotContains(t, html, "hx-swap-oob")
	assert.Contains(t, html, `id="proof-submit"`)
	assert.Contains(t, html, "Verification failed")
}

func TestUnlocked_ShowsDataURI(t *testing.T) {
	lock := "data:image/png;base64,iVBORw0KGgo="
	html := renderString(t, testContext(), Unlocked(UnlockedProps{
		Goal:      &model.Goal{Description: "Ship it", Status: model.GoalStatusCompleted},
		LockImage: lock,
	}))

	assert.Contains(t, html, `src="`+lock+`"`)
	assert.Contains(t, html, `action="/app/goal/reset"`)
}

func TestHistory_TitleCasesStatus(t *testing.T) {
	html := renderString(t, testContext(), History(HistoryProps{Items: []HistoryItem{
		{Goal: &model.Goal{ID: "g1", Description: "Swim", Status: model.GoalStatusCompleted}, Status: "completed"},
	}}))

	assert.Contains(t, html, "Completed")
	assert.Contains(t, html, "bg-green-100")
}

func TestHome_GuestNavigation(t *testing.T) {
	html := renderString(t, context.Background(), Home())
	assert.Contains(t, html, `href="/auth"`)
	assert.NotContains(t, html, "Sign out")
}

func TestAuth_SignUpVariant(t *testing.T) {
	html := renderString(t, context.Background(), Auth(AuthProps{SignUp: true, Email: "a@example.com", Error: "Invalid email or password."}))

	assert.Contains(t, html, "<title>Create account | Codekeeper</title>")
	assert.Contains(t, html, `action="/auth/signup"`)
	assert.Contains(t, html, `autocomplete="new-password"`)
	assert.Contains(t, html, `value="a@example.com"`)
	assert.Contains(t, html, `role="alert"`)
	assert.NotContains(t, html, "Continue with Google")
}

func TestHelp_RendersTrustedContent(t *testing.T) {
	html := renderString(t, context.Background(), Help(HelpProps{
		Title:   "Privacy",
		Content: "<h2>Photos</h2>",
		Links:   []HelpLink{{Title: "Privacy", Slug: "privacy", Active: true}},
	}))

	assert.Contains(t, html, "<h2>Photos</h2>")
	assert.Contains(t, html, `href="/help/privacy"`)
	assert.NotContains(t, html, "Last updated")
}

func TestVisionKey_ShowsHint(t *testing.T) {
	html := renderString(t, testContext(), VisionKey(VisionKeyProps{
		Key:   &model.VisionKey{Hint: "x9Zq", VerifiedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		Saved: true,
	}))

	assert.Contains(t, html, "<code>x9Zq</code>, verified <time")
	assert.Contains(t, html, "Mar 1, 2026 12:00 UTC")
	assert.Contains(t, html, "Replace key")
	assert.Contains(t, html, "Key saved.")
}
