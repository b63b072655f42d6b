package layouts

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/codekeeper/internal/config"
	"github.com/templui/codekeeper/internal/ctxkeys"
	"github.com/templui/codekeeper/internal/model"
)

func render(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(templ.WithChildren(ctx, templ.Raw("<p>body</p>")), &buf))
	return buf.String()
}

func TestBase_Guest(t *testing.T) {
	html := render(t, templ.WithNonce(context.Background(), "n0nce"), Base(""))

	assert.Contains(t, html, "<title>Codekeeper</title>")
	assert.Contains(t, html, `<script nonce="n0nce" src="/assets/js/app.js" defer>`)
	assert.Contains(t, html, `<main class="mx-auto max-w-3xl px-4 py-10"><p>body</p></main>`)
	assert.Contains(t, html, `href="/auth"`)
	assert.NotContains(t, html, "Sign out")
}

func TestApp_HighlightsCurrentPath(t *testing.T) {
	ctx := context.Background()
	ctx = ctxkeys.WithConfig(ctx, &config.Config{AppName: "Keeper", AppTagline: "Earn it", VisionCredentials: config.VisionCredentialsDeployment})
	ctx = ctxkeys.WithUser(ctx, &model.User{ID: "u1"})
	ctx = ctxkeys.WithURLPath(ctx, "/app/history")
	ctx = ctxkeys.WithCSRFToken(ctx, "t1")

	html := render(t, ctx, App("History"))

	assert.Contains(t, html, "<title>History | Keeper</title>")
	assert.Contains(t, html, `<meta name="description" content="Earn it">`)
	assert.Contains(t, html, `hx-headers="{&#34;X-CSRF-Token&#34;:&#34;t1&#34;}"`)
	assert.Contains(t, html, `href="/app/history" class="`+navClass(ctx, "/app/history")+`"`)
	assert.NotContains(t, html, "/app/vision-key")
	assert.Contains(t, html, "Sign out")
}
