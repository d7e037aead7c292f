package buildsync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// StaleFileReconciler removes remote files that no longer exist locally
type StaleFileReconciler struct {
	store BuildStore
}

func NewStaleFileReconciler(store BuildStore) *StaleFileReconciler {
	return &StaleFileReconciler{store: store}
}

// Stale returns the remote entries whose path is not among the local files,
// sorted by path
func (r *StaleFileReconciler) Stale(local []*LocalFile, remote []*RemoteFileEntry) []*RemoteFileEntry {
	localPaths := mapset.NewThreadUnsafeSetWithSize[string](len(local))
	for _, f := range local {
		localPaths.Add(f.RelPath)
	}

	byPath := make(map[string]*RemoteFileEntry, len(remote))
	remotePaths := mapset.NewThreadUnsafeSetWithSize[string](len(remote))
	for _, e := range remote {
		byPath[e.Path] = e
		remotePaths.Add(e.Path)
	}

	stalePaths := remotePaths.Difference(localPaths).ToSlice()
	sort.Strings(stalePaths)

	stale := make([]*RemoteFileEntry, 0, len(stalePaths))
	for _, p := range stalePaths {
		stale = append(stale, byPath[p])
	}
	return stale
}

// Reconcile deletes every stale entry in order. The first failure stops it;
// the returned count covers the deletes that succeeded.
func (r *StaleFileReconciler) Reconcile(ctx context.Context, buildID int64, local []*LocalFile, remote []*RemoteFileEntry) (int, error) {
	deleted := 0
	for _, e := range r.Stale(local, remote) {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if err := r.store.DeleteFileByPath(ctx, buildID, e.Path); err != nil {
			return deleted, fmt.Errorf("delete remote file %q: %w", e.Path, err)
		}
		slog.Info("deleted remote file", "path", e.Path)
		deleted++
	}
	return deleted, nil
}
