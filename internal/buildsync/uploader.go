package buildsync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
)

// UploadStats counts what FileUploader did
type UploadStats struct {
	Uploaded    int   // files given a slot
	Transferred int   // files PUT to a signed url
	Bytes       int64 // bytes PUT
}

// FileUploader offers local files to the backend one at a time
type FileUploader struct {
	store  BuildStore
	signed SignedURLUploader
}

func NewFileUploader(store BuildStore, signed SignedURLUploader) *FileUploader {
	return &FileUploader{store: store, signed: signed}
}

// UploadAll requests a slot for every file and PUTs the ones the backend asks
// for. It stops at the first failure; stats cover the work done until then.
func (u *FileUploader) UploadAll(ctx context.Context, buildID int64, files []*LocalFile) (UploadStats, error) {
	var stats UploadStats

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		transferred, err := u.Upload(ctx, buildID, f)
		if err != nil {
			return stats, err
		}

		stats.Uploaded++
		if transferred {
			stats.Transferred++
			stats.Bytes += f.Size
		}

		slog.Debug("upload progress", "done", i+1, "total", len(files))
	}

	return stats, nil
}

// Upload handles a single file and reports whether its bytes were sent
func (u *FileUploader) Upload(ctx context.Context, buildID int64, f *LocalFile) (bool, error) {
	slot, err := u.store.CreateOrUpdateFile(ctx, buildID, f.RelPath)
	if err != nil {
		return false, fmt.Errorf("request upload slot %q: %w", f.RelPath, err)
	}

	if slot.Uploaded {
		slog.Info("upload skipped, already uploaded", "path", f.RelPath)
		return false, nil
	}

	if slot.SignedURL == "" {
		return false, &InvalidResponseError{Path: f.RelPath}
	}

	slog.Info("upload", "path", f.RelPath, "size", humanize.Bytes(uint64(f.Size)))
	if err := u.signed.UploadSigned(ctx, slot.SignedURL, f.SystemPath); err != nil {
		return false, fmt.Errorf("upload %q: %w", f.RelPath, err)
	}

	return true, nil
}

// logUploadProgress reports how far a signed-url PUT has got
func logUploadProgress(path string, sent, total int64) {
	slog.Debug("upload progress", "path", path, "sent", humanize.Bytes(uint64(sent)), "total", humanize.Bytes(uint64(total)))
}
