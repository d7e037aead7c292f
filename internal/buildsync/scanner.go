package buildsync

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/buildsync/buildsync/internal/utils"
)

// LocalFileScanner walks a directory and lists the files to offer the backend
type LocalFileScanner struct {
	excludes []string
}

func NewLocalFileScanner(excludes ...string) (*LocalFileScanner, error) {
	if err := ValidateExcludes(excludes); err != nil {
		return nil, err
	}
	return &LocalFileScanner{excludes: excludes}, nil
}

// Scan returns every non-ignored regular file under root sorted by RelPath.
// A missing root is logged and yields no files. Every call walks the tree again.
func (s *LocalFileScanner) Scan(root string) ([]*LocalFile, error) {
	if !utils.DirExists(root) {
		slog.Error("directory does not exist", "directory", root)
		return []*LocalFile{}, nil
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	ignore := NewIgnoreList(root, s.excludes)
	ignore.Load()

	files := []*LocalFile{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("walk error: %w", walkErr)
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("walk rel path: %w", err)
		}
		rel = utils.ToSlashRel(rel)

		if d.IsDir() {
			if ignore.ShouldIgnore(rel + "/") {
				return fs.SkipDir
			}
			return nil
		}

		if ignore.ShouldIgnore(rel) {
			slog.Debug("scan ignored", "path", rel)
			return nil
		}

		// follow symlinks to regular files, skip everything else
		info, err := os.Stat(path)
		if err != nil {
			slog.Warn("scan skipped unreadable entry", "path", rel, "error", err)
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		files = append(files, &LocalFile{
			SystemPath: path,
			RelPath:    rel,
			Size:       info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("local scan failed: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}
