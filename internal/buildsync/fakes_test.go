package buildsync

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/buildsync/buildsync/internal/buildsdk"
)

// fakeStore is an in-process BuildStore with scripted answers
type fakeStore struct {
	mu sync.Mutex

	remote       []string        // paths the listing returns
	uploaded     map[string]bool // paths whose slot answers uploaded=true
	noSignedURL  bool
	listConflict bool
	listErr      error
	deleteErr    error
	commitErrs   []error // consumed one per commit call, then success

	slotCalls   []string
	listCalls   [][2]int // limit, offset
	deleteCalls []string
	commitCalls int
	commitReqs  []*buildsdk.CreateVersionRequest
}

func newFakeStore() *fakeStore {
	return &fakeStore{uploaded: map[string]bool{}}
}

func (f *fakeStore) CreateOrUpdateFile(_ context.Context, _ int64, path string) (*buildsdk.FileUploadSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slotCalls = append(f.slotCalls, path)

	if f.uploaded[path] {
		return &buildsdk.FileUploadSlot{Path: path, Uploaded: true}, nil
	}
	if f.noSignedURL {
		return &buildsdk.FileUploadSlot{Path: path}, nil
	}
	return &buildsdk.FileUploadSlot{Path: path, SignedURL: "https://signed.example/" + path}, nil
}

func (f *fakeStore) ListFiles(_ context.Context, _ int64, limit, offset int) (*buildsdk.FileList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, [2]int{limit, offset})

	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.listConflict {
		return nil, buildsdk.NewAPIError(http.StatusConflict, buildsdk.CodeBuildNotListable, "not listable")
	}

	paths := append([]string(nil), f.remote...)
	sort.Strings(paths)
	page := &buildsdk.FileList{Limit: limit, Offset: offset}
	for i := offset; i < len(paths) && i < offset+limit; i++ {
		page.Results = append(page.Results, &buildsdk.BuildFile{Path: paths[i], FileSize: 1})
	}
	return page, nil
}

func (f *fakeStore) DeleteFileByPath(_ context.Context, _ int64, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, path)
	return f.deleteErr
}

func (f *fakeStore) CreateVersion(_ context.Context, buildID int64, req *buildsdk.CreateVersionRequest) (*buildsdk.BuildVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commitCalls++
	f.commitReqs = append(f.commitReqs, req)

	if len(f.commitErrs) > 0 {
		err := f.commitErrs[0]
		f.commitErrs = f.commitErrs[1:]
		return nil, err
	}
	return &buildsdk.BuildVersion{BuildID: buildID, Name: req.Name, Created: time.Now()}, nil
}

func transientCommitErr() error {
	return fmt.Errorf("create build version: %w",
		buildsdk.NewAPIError(http.StatusBadRequest, buildsdk.CodeBuildNotConsistent, "not yet"))
}

// fakeSigned records PUTs
type fakeSigned struct {
	mu    sync.Mutex
	puts  []string
	err   error
	calls int
}

func (f *fakeSigned) UploadSigned(_ context.Context, signedURL, filePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.puts = append(f.puts, signedURL)
	return nil
}

// fakeTimeouts records ExtendTimeout calls
type fakeTimeouts struct {
	extended time.Duration
	restored bool
}

func (f *fakeTimeouts) ExtendTimeout(d time.Duration) func() {
	f.extended = d
	return func() { f.restored = true }
}

// writeTree creates files (slash separated relative paths) under a temp dir
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func relPaths(files []*LocalFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.RelPath)
	}
	return out
}

// fastCommitter swaps the real backoff for no waiting
func fastCommitter(c *VersionCommitter) *VersionCommitter {
	c.policy.Backoff = func(int) time.Duration { return 0 }
	return c
}
