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

func TestLocalStorageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalStorage(dir, "http://localhost:8480/media/")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := ls.Upload(ctx, "blog-images/123-photo.png", strings.NewReader("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8480/media/blog-images/123-photo.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "blog-images", "123-photo.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, ls.Delete(ctx, "blog-images/123-photo.png"))
	assert.ErrorIs(t, ls.Delete(ctx, "blog-images/123-photo.png"), ErrNotFound)
}

func TestObjectKeyIsPrefixedAndScoped(t *testing.T) {
	key := ObjectKey("blog-images", "../secret/photo.png")
	assert.True(t, strings.HasPrefix(key, "blog-images/"))
	assert.True(t, strings.HasSuffix(key, "-photo.png"), "path components must be stripped from the filename")
}
