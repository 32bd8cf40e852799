package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckImage(t *testing.T) {
	assert.NoError(t, CheckImage("image/png", 1024))
	assert.NoError(t, CheckImage("image/jpeg; charset=binary", 1024))
	assert.NoError(t, CheckImage("IMAGE/JPG", MaxImageSize))
	assert.ErrorIs(t, CheckImage("image/gif", 10), ErrUnsupportedType)
	assert.ErrorIs(t, CheckImage("image/png", MaxImageSize+1), ErrTooLarge)
}

func TestDiskStorePutAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, "/uploads/")
	require.NoError(t, err)

	ctx := context.Background()
	img, err := store.Put(ctx, "blog/blogs", strings.NewReader("png-bytes"), 9, "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(img.PublicID, "blog/blogs/"))
	assert.True(t, strings.HasSuffix(img.PublicID, ".png"))
	assert.Equal(t, "/uploads/"+img.PublicID, img.URL)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(img.PublicID)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Delete(ctx, img.PublicID))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(img.PublicID)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, img.PublicID), "deleting twice is harmless")
}

func TestDiskStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	assert.Error(t, store.Delete(context.Background(), "../../etc/passwd"))
}
