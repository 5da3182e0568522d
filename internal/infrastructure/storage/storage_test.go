package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorageRoundTrip(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir(), "https://media.example.com")
	require.NoError(t, err)
	ctx := context.Background()

	key := "pictures/ab/abcdef.jpg"
	require.NoError(t, fs.Upload(ctx, key, []byte("jpeg-bytes"), "image/jpeg"))

	exists, err := fs.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := fs.Download(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)

	url, err := fs.DownloadURL(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://media.example.com/pictures/ab/abcdef.jpg", url)

	require.NoError(t, fs.Delete(ctx, key))
	exists, err = fs.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = fs.Download(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestFileStorageRejectsTraversal(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir(), "")
	require.NoError(t, err)
	ctx := context.Background()

	assert.Error(t, fs.Upload(ctx, "../outside.txt", []byte("x"), "text/plain"))
	assert.Error(t, fs.Upload(ctx, "/etc/passwd", []byte("x"), "text/plain"))
	assert.Error(t, fs.Upload(ctx, "", []byte("x"), "text/plain"))
}

func TestFileStorageDeleteMissingIsNoop(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir(), "")
	require.NoError(t, err)

	assert.NoError(t, fs.Delete(context.Background(), "missing.bin"))
}
