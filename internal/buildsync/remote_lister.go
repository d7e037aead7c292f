package buildsync

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/buildsync/buildsync/internal/buildsdk"
)

const DefaultPageSize = 100

// RemoteFileLister pages through the files the backend holds for a build
type RemoteFileLister struct {
	store    BuildStore
	pageSize int
}

func NewRemoteFileLister(store BuildStore, pageSize int) *RemoteFileLister {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &RemoteFileLister{store: store, pageSize: pageSize}
}

// ListPage fetches one page. A 409 Conflict means the build has no listable
// files yet and is returned as an empty page.
func (l *RemoteFileLister) ListPage(ctx context.Context, buildID int64, limit, offset int) (*RemotePage, error) {
	resp, err := l.store.ListFiles(ctx, buildID, limit, offset)
	if err != nil {
		if buildsdk.IsStatus(err, http.StatusConflict) {
			slog.Debug("remote listing conflict, treating as empty", "build", buildID, "offset", offset)
			return &RemotePage{Limit: limit, Offset: offset, NextOffset: offset}, nil
		}
		return nil, err
	}

	page := &RemotePage{
		Limit:    limit,
		Offset:   resp.Offset,
		Received: len(resp.Results),
		Entries:  make([]*RemoteFileEntry, 0, len(resp.Results)),
	}
	for _, f := range resp.Results {
		if f == nil {
			continue
		}
		page.Entries = append(page.Entries, &RemoteFileEntry{Path: f.Path, Metadata: f})
	}
	page.NextOffset = resp.Offset + len(resp.Results)

	return page, nil
}

// ListAll reads pages until one comes back short
func (l *RemoteFileLister) ListAll(ctx context.Context, buildID int64) ([]*RemoteFileEntry, error) {
	var entries []*RemoteFileEntry
	offset := 0

	for {
		page, err := l.ListPage(ctx, buildID, l.pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("list remote files: %w", err)
		}
		entries = append(entries, page.Entries...)

		if page.Received < l.pageSize {
			break
		}
		if page.NextOffset <= offset {
			return nil, fmt.Errorf("list remote files: offset did not advance past %d", offset)
		}
		offset = page.NextOffset
	}

	slog.Debug("remote files listed", "build", buildID, "count", len(entries))
	return entries, nil
}
