package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Frontmatter(t *testing.T) {
	source := []byte("---\ntitle: How it works\norder: 2\n---\n\n# Step one\n\nTake a photo.\n")

	doc, err := NewParser().Render(source)
	require.NoError(t, err)

	assert.Equal(t, "How it works", doc.String("title"))
	assert.Equal(t, 2, doc.Int("order"))
	assert.Contains(t, string(doc.HTML), `<h1 id="step-one">Step one</h1>`)
	assert.Contains(t, string(doc.HTML), "<p>Take a photo.</p>")
	assert.NotContains(t, string(doc.HTML), "title:")
}

func TestRender_WithoutFrontmatter(t *testing.T) {
	doc, err := NewParser().Render([]byte("plain *text*"))
	require.NoError(t, err)

	assert.Empty(t, doc.String("title"))
	assert.Zero(t, doc.Int("order"))
	assert.Contains(t, string(doc.HTML), "<em>text</em>")
}
