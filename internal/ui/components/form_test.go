package components

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/codekeeper/internal/ctxkeys"
)

func TestCSRFField(t *testing.T) {
	var buf bytes.Buffer
	ctx := ctxkeys.WithCSRFToken(context.Background(), `tok"en`)
	require.NoError(t, CSRFField().Render(ctx, &buf))

	assert.Equal(t, `<input type="hidden" name="csrf_token" value="tok&#34;en">`, buf.String())
}

func TestErrorAlert_EmptyRendersNothing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ErrorAlert("").Render(context.Background(), &buf))
	assert.Empty(t, buf.String())
}

func TestLocalTime(t *testing.T) {
	var buf bytes.Buffer
	at := time.Date(2026, 1, 2, 15, 4, 0, 0, time.FixedZone("CET", 3600))
	require.NoError(t, LocalTime("Deadline", at).Render(context.Background(), &buf))

	assert.Equal(t, `Deadline <time datetime="2026-01-02T14:04:00Z" data-local>Jan 2, 2026 14:04 UTC</time>`, buf.String())
}
