package buildserver

import (
	"sort"
	"sync"
	"time"

	"github.com/buildsync/buildsync/internal/buildsdk"
)

type fileState struct {
	meta     buildsdk.BuildFile
	content  []byte
	token    string
	uploaded bool
	pinned   bool // seeded as already uploaded; slot requests answer uploaded=true
}

type buildState struct {
	build    buildsdk.Build
	files    map[string]*fileState
	versions []*buildsdk.BuildVersion
}

// store is the in-memory state of the fake backend
type store struct {
	mu      sync.Mutex
	builds  map[int64]*buildState
	uploads map[string]*fileState // token -> file
}

func newStore() *store {
	return &store{
		builds:  make(map[int64]*buildState),
		uploads: make(map[string]*fileState),
	}
}

func (s *store) addBuild(b buildsdk.Build) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.SyncStatus == "" {
		b.SyncStatus = buildsdk.SyncStatusSynced
	}
	if b.Updated.IsZero() {
		b.Updated = time.Now().UTC()
	}
	s.builds[b.ID] = &buildState{
		build: b,
		files: make(map[string]*fileState),
	}
}

func (s *store) get(id int64) (*buildState, bool) {
	b, ok := s.builds[id]
	return b, ok
}

func (b *buildState) sortedPaths() []string {
	paths := make([]string, 0, len(b.files))
	for p := range b.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// pending reports whether a slot was issued for a file that never got its PUT
func (b *buildState) pending() []string {
	var paths []string
	for _, p := range b.sortedPaths() {
		if !b.files[p].uploaded {
			paths = append(paths, p)
		}
	}
	return paths
}
