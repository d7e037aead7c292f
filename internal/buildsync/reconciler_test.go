package buildsync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteEntries(paths ...string) []*RemoteFileEntry {
	entries := make([]*RemoteFileEntry, len(paths))
	for i, p := range paths {
		entries[i] = &RemoteFileEntry{Path: p}
	}
	return entries
}

func TestStale(t *testing.T) {
	r := NewStaleFileReconciler(newFakeStore())

	stale := r.Stale(localFiles("a", "b", "c"), remoteEntries("d", "b", "old/e"))
	paths := make([]string, len(stale))
	for i, e := range stale {
		paths[i] = e.Path
	}
	assert.Equal(t, []string{"d", "old/e"}, paths)

	assert.Empty(t, r.Stale(localFiles("a"), nil))
	assert.Len(t, r.Stale(nil, remoteEntries("a", "b")), 2)
}

func TestReconcile_DeletesStale(t *testing.T) {
	store := newFakeStore()
	r := NewStaleFileReconciler(store)

	deleted, err := r.Reconcile(t.Context(), 1, localFiles("keep"), remoteEntries("keep", "z-gone", "a-gone"))
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Equal(t, []string{"a-gone", "z-gone"}, store.deleteCalls)
}

func TestReconcile_FailureStops(t *testing.T) {
	store := newFakeStore()
	store.deleteErr = errors.New("boom")
	r := NewStaleFileReconciler(store)

	deleted, err := r.Reconcile(t.Context(), 1, nil, remoteEntries("a", "b"))
	require.Error(t, err)
	assert.Equal(t, 0, deleted)
	assert.Len(t, store.deleteCalls, 1)
}
