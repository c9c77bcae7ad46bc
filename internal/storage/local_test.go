package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreSave(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, 1<<20)

	body := strings.NewReader("fake jpeg bytes")
	url, err := store.Save(context.Background(), body, int64(body.Len()), "image/jpeg")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".jpg"))

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, "fake jpeg bytes", string(data))
}

func TestLocalStoreRejectsUnsupportedType(t *testing.T) {
	store := NewLocalStore(t.TempDir(), 1<<20)

	_, err := store.Save(context.Background(), strings.NewReader("%PDF"), 4, "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestLocalStoreRejectsOversizedFile(t *testing.T) {
	store := NewLocalStore(t.TempDir(), 10)

	_, err := store.Save(context.Background(), strings.NewReader("0123456789abcdef"), 16, "image/png")
	assert.ErrorIs(t, err, ErrFileTooLarge)
}
