package buildsync

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/buildsync/buildsync/internal/utils"
)

// IgnoreFileName is read from the sync root, gitignore syntax
const IgnoreFileName = ".buildsyncignore"

var defaultIgnoreLines = []string{
	IgnoreFileName,
	// OS-specific
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
}

// IgnoreList decides which paths under a sync root are never synced
type IgnoreList struct {
	rootDir  string
	excludes []string
	ignore   *gitignore.GitIgnore
}

// ValidateExcludes checks that every pattern is a valid doublestar glob
func ValidateExcludes(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return nil
}

func NewIgnoreList(rootDir string, excludes []string) *IgnoreList {
	return &IgnoreList{rootDir: rootDir, excludes: excludes}
}

// Load compiles the default rules plus the root's ignore file, if any
func (l *IgnoreList) Load() {
	ignoreLines := append([]string(nil), defaultIgnoreLines...)

	ignorePath := filepath.Join(l.rootDir, IgnoreFileName)
	if utils.FileExists(ignorePath) {
		lines, err := readIgnoreFile(ignorePath)
		if err != nil {
			slog.Warn("ignore file unreadable", "path", ignorePath, "error", err)
		} else {
			slog.Debug("ignore file loaded", "path", ignorePath, "rules", len(lines))
			ignoreLines = append(ignoreLines, lines...)
		}
	}

	l.ignore = gitignore.CompileIgnoreLines(ignoreLines...)
}

func readIgnoreFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// ShouldIgnore takes a root-relative, slash separated path
func (l *IgnoreList) ShouldIgnore(relPath string) bool {
	if l.ignore != nil && l.ignore.MatchesPath(relPath) {
		return true
	}
	for _, pattern := range l.excludes {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}
