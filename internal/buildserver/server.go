// Package buildserver is an in-memory build storage backend speaking the same
// REST dialect as the hosted service. It backs the sdk and engine tests and the
// buildserver dev binary.
package buildserver

import (
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/buildsync/buildsync/internal/buildsdk"
)

// Faults switches on failure modes of the fake backend
type Faults struct {
	ListConflict        bool // listing answers 409 Conflict
	CommitTransient     int  // number of commits answered with 400 before one succeeds
	CommitValidation    bool // commits answer 422 with field details
	OmitSignedURL       bool // slot replies carry uploaded=false and no url
	FailDeletes         bool // deletes answer 500
	RejectUploadsStatus int  // signed url PUTs answer with this status when non-zero
}

// Stats counts the requests the backend has served
type Stats struct {
	Builds  int64
	Slots   int64
	Uploads int64
	Lists   int64
	Deletes int64
	Commits int64
}

type Option func(*Server)

// WithAccessToken requires `Authorization: Bearer <token>` on api routes
func WithAccessToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithFaults starts the server with the given failure modes
func WithFaults(f Faults) Option {
	return func(s *Server) { s.faults = f }
}

type Server struct {
	store   *store
	token   string
	handler http.Handler

	muFaults sync.Mutex
	faults   Faults

	builds, slots, uploads, lists, deletes, commits atomic.Int64
}

func New(opts ...Option) *Server {
	s := &Server{store: newStore()}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.setupRoutes()
	return s
}

// Handler is the http handler serving both the api and the signed upload urls
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) SetFaults(f Faults) {
	s.muFaults.Lock()
	defer s.muFaults.Unlock()
	s.faults = f
}

func (s *Server) getFaults() Faults {
	s.muFaults.Lock()
	defer s.muFaults.Unlock()
	return s.faults
}

// consumeCommitFault reports whether this commit should fail transiently
func (s *Server) consumeCommitFault() bool {
	s.muFaults.Lock()
	defer s.muFaults.Unlock()
	if s.faults.CommitTransient > 0 {
		s.faults.CommitTransient--
		return true
	}
	return false
}

// AddBuild registers a build
func (s *Server) AddBuild(b buildsdk.Build) {
	s.store.addBuild(b)
}

// SeedFile puts a file into a build as if it had been uploaded earlier.
// With pinned set, slot requests for the path answer uploaded=true.
func (s *Server) SeedFile(buildID int64, path string, content []byte, pinned bool) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	b, ok := s.store.get(buildID)
	if !ok {
		return
	}
	b.files[path] = &fileState{
		meta:     buildsdk.BuildFile{Path: path, FileSize: int64(len(content)), Hash: contentHash(content), LastModified: now()},
		content:  content,
		uploaded: true,
		pinned:   pinned,
	}
}

// Files returns the sorted paths a build holds
func (s *Server) Files(buildID int64) []string {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	b, ok := s.store.get(buildID)
	if !ok {
		return nil
	}
	return b.sortedPaths()
}

// FileContent returns the bytes stored for path
func (s *Server) FileContent(buildID int64, path string) ([]byte, bool) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	b, ok := s.store.get(buildID)
	if !ok {
		return nil, false
	}
	f, ok := b.files[path]
	if !ok || !f.uploaded {
		return nil, false
	}
	return f.content, true
}

// Versions returns the committed versions of a build, oldest first
func (s *Server) Versions(buildID int64) []*buildsdk.BuildVersion {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	b, ok := s.store.get(buildID)
	if !ok {
		return nil
	}
	out := append([]*buildsdk.BuildVersion(nil), b.versions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}

func (s *Server) Stats() Stats {
	return Stats{
		Builds:  s.builds.Load(),
		Slots:   s.slots.Load(),
		Uploads: s.uploads.Load(),
		Lists:   s.lists.Load(),
		Deletes: s.deletes.Load(),
		Commits: s.commits.Load(),
	}
}
