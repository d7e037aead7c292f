package buildsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/buildsync/buildsync/internal/buildsdk"
)

// Options tune a SyncEngine. Zero values pick the defaults.
type Options struct {
	PageSize       int
	CommitAttempts int
	Exclude        []string

	// SyncTimeout is the http timeout for the length of a session
	SyncTimeout time.Duration
	Timeouts    TimeoutExtender
}

// SyncEngine uploads a directory into a build and commits a version of it
type SyncEngine struct {
	scanner     *LocalFileScanner
	lister      *RemoteFileLister
	uploader    *FileUploader
	reconciler  *StaleFileReconciler
	committer   *VersionCommitter
	timeouts    TimeoutExtender
	syncTimeout time.Duration
}

func NewSyncEngine(store BuildStore, signed SignedURLUploader, opts Options) (*SyncEngine, error) {
	scanner, err := NewLocalFileScanner(opts.Exclude...)
	if err != nil {
		return nil, err
	}

	syncTimeout := opts.SyncTimeout
	if syncTimeout <= 0 {
		syncTimeout = buildsdk.DefaultSyncTimeout
	}

	return &SyncEngine{
		scanner:     scanner,
		lister:      NewRemoteFileLister(store, opts.PageSize),
		uploader:    NewFileUploader(store, signed),
		reconciler:  NewStaleFileReconciler(store),
		committer:   NewVersionCommitter(store, opts.CommitAttempts),
		timeouts:    opts.Timeouts,
		syncTimeout: syncTimeout,
	}, nil
}

// NewSyncEngineWithSDK wires the engine to a BuildSDK
func NewSyncEngineWithSDK(sdk *buildsdk.BuildSDK, opts Options) (*SyncEngine, error) {
	if opts.Timeouts == nil {
		opts.Timeouts = sdk
	}
	if sdk.Uploader.Progress == nil {
		sdk.Uploader.Progress = logUploadProgress
	}
	return NewSyncEngine(sdk.Builds, sdk.Uploader, opts)
}

func validateRequest(req *SyncRequest) error {
	switch {
	case req == nil:
		return &MissingInputError{Key: "request"}
	case req.BuildID == 0:
		return &MissingInputError{Key: "build-id"}
	case req.RootDir == "":
		return &MissingInputError{Key: "directory"}
	case req.VersionName == "":
		return &MissingInputError{Key: "name"}
	}
	return nil
}

// Sync scans, uploads, optionally prunes, then commits.
// An empty scan finishes without a commit.
func (e *SyncEngine) Sync(ctx context.Context, req *SyncRequest) (*SyncResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if e.timeouts != nil {
		restore := e.timeouts.ExtendTimeout(e.syncTimeout)
		defer restore()
	}

	tStart := time.Now()
	sess := newSession(req)
	result := &SyncResult{}

	err := e.run(ctx, sess, req, result)

	result.FilesUploaded = sess.uploaded
	result.FilesTransferred = sess.transferred
	result.FilesDeleted = sess.deleted
	result.BytesTransferred = sess.bytes
	result.Duration = time.Since(tStart)

	if err != nil {
		sess.enter(PhaseFailed)
		result.Phase = sess.phase
		slog.Error("sync failed", "build", req.BuildID, "uploaded", sess.uploaded, "deleted", sess.deleted, "error", err)
		return result, err
	}

	result.Phase = sess.phase
	return result, nil
}

func (e *SyncEngine) run(ctx context.Context, sess *session, req *SyncRequest, result *SyncResult) error {
	sess.enter(PhaseScanning)
	files, err := e.scanner.Scan(sess.rootDir)
	if err != nil {
		return err
	}
	result.FilesConsidered = len(files)

	if len(files) == 0 {
		slog.Info("no files to upload", "directory", sess.rootDir)
		sess.enter(PhaseDone)
		return nil
	}
	slog.Info("files to upload", "count", len(files))

	sess.enter(PhaseUploading)
	stats, err := e.uploader.UploadAll(ctx, sess.buildID, files)
	sess.uploaded, sess.transferred, sess.bytes = stats.Uploaded, stats.Transferred, stats.Bytes
	if err != nil {
		return err
	}

	if sess.prune {
		sess.enter(PhaseReconciling)
		remote, err := e.lister.ListAll(ctx, sess.buildID)
		if err != nil {
			return err
		}
		sess.deleted, err = e.reconciler.Reconcile(ctx, sess.buildID, files, remote)
		if err != nil {
			return err
		}
	}

	sess.enter(PhaseCommitting)
	version, err := e.committer.Commit(ctx, sess.buildID, &buildsdk.CreateVersionRequest{
		Name: req.VersionName,
		CCD:  req.Reference,
	})
	if err != nil {
		return err
	}
	result.Version = version

	sess.enter(PhaseDone)
	slog.Info("build version created successfully",
		"build", sess.buildID,
		"version", version.Name,
		"filesToUpload", len(files),
		"filesUploaded", sess.uploaded,
		"filesTransferred", sess.transferred,
		"bytes", humanize.Bytes(uint64(sess.bytes)),
		"filesDeleted", sess.deleted,
	)
	return nil
}

// ListRemote returns every file the backend holds for the build
func (e *SyncEngine) ListRemote(ctx context.Context, buildID int64) ([]*RemoteFileEntry, error) {
	if buildID == 0 {
		return nil, &MissingInputError{Key: "build-id"}
	}
	return e.lister.ListAll(ctx, buildID)
}

func (r *SyncResult) String() string {
	return fmt.Sprintf("considered=%d uploaded=%d transferred=%d deleted=%d phase=%s",
		r.FilesConsidered, r.FilesUploaded, r.FilesTransferred, r.FilesDeleted, r.Phase)
}
