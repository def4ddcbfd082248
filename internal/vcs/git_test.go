package vcs

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initTestRepo creates a throwaway git repository under a temp directory,
// chdir's the test process into it, and restores the original working
// directory on cleanup.
func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(orig) })

	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}
	run("init", "-q")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	return dir
}

func writeAndCommit(t *testing.T, dir, path, content, message string) string {
	t.Helper()
	full := filepath.Join(dir, path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))

	cmd := exec.Command("git", "add", path)
	cmd.Dir = dir
	require.NoError(t, cmd.Run())

	cmd = exec.Command("git", "commit", "-q", "-m", message)
	cmd.Dir = dir
	require.NoError(t, cmd.Run())

	sha, err := CurrentCommitSHA()
	require.NoError(t, err)
	return sha
}

func TestDetectRepo(t *testing.T) {
	initTestRepo(t)
	assert.NoError(t, DetectRepo())
}

func TestDetectRepo_NotARepo(t *testing.T) {
	dir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(orig) })

	assert.Error(t, DetectRepo())
}

func TestCurrentCommitSHA(t *testing.T) {
	dir := initTestRepo(t)
	sha := writeAndCommit(t, dir, "a.py", "x = 1\n", "initial")
	assert.Len(t, sha, 40)
}

func TestChangedFiles_AgainstEmptyTree(t *testing.T) {
	dir := initTestRepo(t)
	sha := writeAndCommit(t, dir, "a.py", "x = 1\n", "initial")

	files, err := ChangedFiles("", sha)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, files)
}

func TestChangedFiles_BetweenTwoRevisions(t *testing.T) {
	dir := initTestRepo(t)
	first := writeAndCommit(t, dir, "a.py", "x = 1\n", "initial")
	second := writeAndCommit(t, dir, "b.py", "y = 2\n", "add b")

	files, err := ChangedFiles(first, second)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.py"}, files)
}

func TestChangedFiles_NoDifference(t *testing.T) {
	dir := initTestRepo(t)
	sha := writeAndCommit(t, dir, "a.py", "x = 1\n", "initial")

	files, err := ChangedFiles(sha, sha)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestReadFileAtRevision(t *testing.T) {
	dir := initTestRepo(t)
	sha := writeAndCommit(t, dir, "a.py", "x = 1\n", "initial")

	content, err := ReadFileAtRevision(sha, "a.py")
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(content))
}
