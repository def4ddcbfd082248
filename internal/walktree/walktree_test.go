package walktree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func TestWalkTree_RecognizesSourceFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "x = 1")
	writeFile(t, root, "pkg/b.go", "package pkg")
	writeFile(t, root, "README.md", "not source")

	tree := New(root)
	files, err := tree.WalkTree()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.py", "pkg/b.go"}, files)
}

func TestWalkTree_SkipsKnownDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "x = 1")
	writeFile(t, root, "node_modules/dep/index.js", "console.log(1)")
	writeFile(t, root, "vendor/lib/main.go", "package lib")
	writeFile(t, root, ".git/config", "ignored")
	writeFile(t, root, ".hidden/leftover.py", "x = 1")

	tree := New(root)
	files, err := tree.WalkTree()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, files)
}

func TestWalkTree_ReturnsSlashSeparatedRelativePaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/sub/deep.py", "x = 1")

	tree := New(root)
	files, err := tree.WalkTree()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "pkg/sub/deep.py", files[0])
}

func TestReadFile_RelativeToRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "hello")

	tree := New(root)
	content, err := tree.ReadFile("a.py")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
}

func TestReadFile_AbsolutePathBypassesRoot(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	abs := filepath.Join(other, "outside.py")
	require.NoError(t, os.WriteFile(abs, []byte("elsewhere"), 0644))

	tree := New(root)
	content, err := tree.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, "elsewhere", string(content))
}
