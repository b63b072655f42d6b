package storage

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_SaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, "private/proofs/a.jpg", strings.NewReader("jpeg bytes"), "image/jpeg"))

	rc, err := s.Open(ctx, "private/proofs/a.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "jpeg bytes", string(data))

	require.NoError(t, s.Delete(ctx, "private/proofs/a.jpg"))
	_, err = s.Open(ctx, "private/proofs/a.jpg")
	assert.ErrorIs(t, err, os.ErrNotExist)

	// Deleting a missing file is not an error.
	assert.NoError(t, s.Delete(ctx, "private/proofs/a.jpg"))
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	err = s.Save(ctx, "../escape.txt", strings.NewReader("x"), "text/plain")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = s.Open(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestLocalStorage_IsNotPresigner(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	var st Storage = s
	_, ok := st.(Presigner)
	assert.False(t, ok)
}
