// Package vcs wraps the git subprocess calls the scan orchestrator needs to
// turn two revisions into a list of changed files. It is deliberately thin:
// the orchestrator, not this package, decides what those files mean for a
// scan plan.
package vcs

import (
	"fmt"
	"os/exec"
	"strings"
)

// DetectRepo verifies the current directory is inside a git working tree.
func DetectRepo() error {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("not a git repository: %w", err)
	}
	return nil
}

// CurrentCommitSHA returns the SHA of HEAD.
func CurrentCommitSHA() (string, error) {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// ChangedFiles returns the repo-relative paths of files textually modified
// between two revisions. lastRevision may be empty, meaning "diff against
// an empty tree" (every tracked file counts as changed) — the orchestrator
// uses this for the very first scan of a repository.
func ChangedFiles(lastRevision, currentRevision string) ([]string, error) {
	var cmd *exec.Cmd
	if lastRevision == "" {
		cmd = exec.Command("git", "diff", "--name-only", emptyTreeSHA, currentRevision)
	} else {
		cmd = exec.Command("git", "diff", "--name-only", lastRevision, currentRevision)
	}

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff %s..%s: %w", lastRevision, currentRevision, err)
	}

	var files []string
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// emptyTreeSHA is git's well-known hash of the empty tree object, usable as
// a diff base when there is no prior commit to compare against.
const emptyTreeSHA = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// ReadFileAtRevision returns the content of path as it exists at revision.
func ReadFileAtRevision(revision, path string) ([]byte, error) {
	cmd := exec.Command("git", "show", fmt.Sprintf("%s:%s", revision, path))
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("read %s at %s: %w", path, revision, err)
	}
	return output, nil
}
