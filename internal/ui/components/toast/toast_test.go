package toast

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToast(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Toast(Props{Title: "Photo deleted", Variant: VariantSuccess, Dismissible: true}).Render(context.Background(), &buf))

	html := buf.String()
	assert.Contains(t, html, "bg-green-50")
	assert.NotContains(t, html, "bg-white")
	assert.Contains(t, html, `<p class="font-semibold">Photo deleted</p>`)
	assert.Contains(t, html, "data-dismiss-toast")
	assert.NotContains(t, html, `class="text-sm">`)
}

func TestToast_UnknownVariantFallsBack(t *testing.T) {
	assert.Contains(t, classes(Variant("loud")), "bg-white")
}
