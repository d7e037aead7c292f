package buildsync

import (
	"context"
	"time"

	"github.com/buildsync/buildsync/internal/buildsdk"
)

// BuildStore is the remote build-storage api the engine drives
type BuildStore interface {
	CreateOrUpdateFile(ctx context.Context, buildID int64, path string) (*buildsdk.FileUploadSlot, error)
	ListFiles(ctx context.Context, buildID int64, limit, offset int) (*buildsdk.FileList, error)
	DeleteFileByPath(ctx context.Context, buildID int64, path string) error
	CreateVersion(ctx context.Context, buildID int64, req *buildsdk.CreateVersionRequest) (*buildsdk.BuildVersion, error)
}

// SignedURLUploader PUTs a local file to a signed url
type SignedURLUploader interface {
	UploadSigned(ctx context.Context, signedURL string, filePath string) error
}

// TimeoutExtender raises the http timeout for the length of a session
type TimeoutExtender interface {
	ExtendTimeout(d time.Duration) (restore func())
}

var (
	_ BuildStore        = (*buildsdk.BuildsAPI)(nil)
	_ SignedURLUploader = (*buildsdk.PresignedUploader)(nil)
	_ TimeoutExtender   = (*buildsdk.BuildSDK)(nil)
)

// LocalFile is a file found under the sync root
type LocalFile struct {
	SystemPath string // absolute path on this machine
	RelPath    string // relative to the root, forward slashes, no leading slash
	Size       int64
}

// RemoteFileEntry is a file the backend holds for the build
type RemoteFileEntry struct {
	Path     string
	Metadata *buildsdk.BuildFile
}

// RemotePage is one page of a remote listing
type RemotePage struct {
	Entries    []*RemoteFileEntry
	Limit      int
	Offset     int
	NextOffset int
	Received   int // results in the reply, nil entries included
}

// SyncRequest describes one directory-to-build synchronization
type SyncRequest struct {
	BuildID     int64
	RootDir     string
	Prune       bool // delete remote files that are not present locally
	VersionName string

	// Reference is the content-delivery bucket the committed version points at
	Reference *buildsdk.CCDReference
}

// SyncResult reports what a session did. Counts are valid on failure too.
type SyncResult struct {
	FilesConsidered  int
	FilesUploaded    int // files that were given an upload slot
	FilesTransferred int // files whose bytes were actually sent
	FilesDeleted     int
	BytesTransferred int64
	Version          *buildsdk.BuildVersion
	Phase            Phase
	Duration         time.Duration
}
