package buildsync

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan_SortedRelativePaths(t *testing.T) {
	root := writeTree(t, map[string]string{
		"game.exe":             "mz",
		"data/level1.pak":      "l1",
		"data/sub/level2.pak":  "l2",
		"Game Data/readme.txt": "hi",
		"data/.DS_Store":       "x",
		".DS_Store":            "x",
		"Thumbs.db":            "x",
		"data/sub/desktop.ini": "x",
	})

	s, err := NewLocalFileScanner()
	require.NoError(t, err)

	files, err := s.Scan(root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Game Data/readme.txt",
		"data/level1.pak",
		"data/sub/level2.pak",
		"game.exe",
	}, relPaths(files))

	for _, f := range files {
		assert.NotContains(t, f.RelPath, `\`)
		assert.False(t, strings.HasPrefix(f.RelPath, "/"))
		assert.True(t, filepath.IsAbs(f.SystemPath))
	}
	assert.Equal(t, int64(2), files[3].Size)
}

func TestScan_Idempotent(t *testing.T) {
	root := writeTree(t, map[string]string{"a/b.txt": "1", "c.txt": "2"})
	s, err := NewLocalFileScanner()
	require.NoError(t, err)

	first, err := s.Scan(root)
	require.NoError(t, err)
	second, err := s.Scan(root)
	require.NoError(t, err)

	assert.Equal(t, relPaths(first), relPaths(second))
}

func TestScan_PicksUpChangesBetweenCalls(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "1"})
	s, err := NewLocalFileScanner()
	require.NoError(t, err)

	files, err := s.Scan(root)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("2"), 0o644))
	files, err = s.Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, relPaths(files))
}

func TestScan_MissingRoot(t *testing.T) {
	s, err := NewLocalFileScanner()
	require.NoError(t, err)

	files, err := s.Scan(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestScan_RootIsFile(t *testing.T) {
	root := writeTree(t, map[string]string{"f.txt": "x"})
	s, err := NewLocalFileScanner()
	require.NoError(t, err)

	files, err := s.Scan(filepath.Join(root, "f.txt"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestScan_IgnoreFileAndExcludes(t *testing.T) {
	root := writeTree(t, map[string]string{
		IgnoreFileName:        "# build artifacts\n*.pdb\nlogs/\n",
		"bin/game.exe":        "mz",
		"bin/game.pdb":        "sym",
		"logs/run.log":        "log",
		"debug/trace.bin":     "t",
		"debug/keep/also.bin": "t",
		"keep.txt":            "k",
	})

	s, err := NewLocalFileScanner("debug/**")
	require.NoError(t, err)

	files, err := s.Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"bin/game.exe", "keep.txt"}, relPaths(files))
}

func TestScan_FollowsFileSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := writeTree(t, map[string]string{"real.txt": "r"})
	require.NoError(t, os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "dangling")))

	s, err := NewLocalFileScanner()
	require.NoError(t, err)

	files, err := s.Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"link.txt", "real.txt"}, relPaths(files))
}

func TestNewLocalFileScanner_InvalidPattern(t *testing.T) {
	_, err := NewLocalFileScanner("[unclosed")
	assert.Error(t, err)
}
