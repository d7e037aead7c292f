package buildsync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localFiles(paths ...string) []*LocalFile {
	files := make([]*LocalFile, len(paths))
	for i, p := range paths {
		files[i] = &LocalFile{SystemPath: "/src/" + p, RelPath: p, Size: 10}
	}
	return files
}

func TestUploadAll_TransfersNewFiles(t *testing.T) {
	store := newFakeStore()
	signed := &fakeSigned{}

	stats, err := NewFileUploader(store, signed).UploadAll(t.Context(), 1, localFiles("a.bin", "dir/b.bin"))
	require.NoError(t, err)

	assert.Equal(t, UploadStats{Uploaded: 2, Transferred: 2, Bytes: 20}, stats)
	assert.Equal(t, []string{"a.bin", "dir/b.bin"}, store.slotCalls)
	assert.Equal(t, []string{"https://signed.example/a.bin", "https://signed.example/dir/b.bin"}, signed.puts)
}

func TestUploadAll_SkipsAlreadyUploaded(t *testing.T) {
	store := newFakeStore()
	store.uploaded["a.bin"] = true
	signed := &fakeSigned{}

	stats, err := NewFileUploader(store, signed).UploadAll(t.Context(), 1, localFiles("a.bin"))
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Uploaded)
	assert.Equal(t, 0, stats.Transferred)
	assert.Equal(t, 0, signed.calls)
}

func TestUploadAll_MissingSignedURL(t *testing.T) {
	store := newFakeStore()
	store.noSignedURL = true
	signed := &fakeSigned{}

	stats, err := NewFileUploader(store, signed).UploadAll(t.Context(), 1, localFiles("a.bin", "b.bin"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidResponse)

	var invalid *InvalidResponseError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "a.bin", invalid.Path)

	assert.Equal(t, 0, stats.Uploaded)
	assert.Equal(t, 0, signed.calls)
	assert.Equal(t, []string{"a.bin"}, store.slotCalls)
}

func TestUploadAll_TransportFailureStops(t *testing.T) {
	store := newFakeStore()
	signed := &fakeSigned{err: errors.New("connection reset")}

	stats, err := NewFileUploader(store, signed).UploadAll(t.Context(), 1, localFiles("a.bin", "b.bin"))
	require.Error(t, err)
	assert.ErrorContains(t, err, `upload "a.bin"`)
	assert.Equal(t, 0, stats.Uploaded)
	assert.Len(t, store.slotCalls, 1)
}

func TestUploadAll_Cancelled(t *testing.T) {
	store := newFakeStore()
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := NewFileUploader(store, &fakeSigned{}).UploadAll(ctx, 1, localFiles("a.bin"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.slotCalls)
}
