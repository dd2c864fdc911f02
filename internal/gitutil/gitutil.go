// Package gitutil wraps the handful of git subprocess invocations the
// GitFilter stage needs: detecting a repository, listing modified/changed
// paths, and reading branch/commit metadata. It follows the same
// exec.Command-plus-bufio.Scanner idiom as discovery.GitTrackedFiles, with a
// bounded context timeout per spec.md §5 ("Per external subprocess (git,
// secret scanner): configurable; default 30s").
package gitutil

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout is the default per-subprocess timeout for git invocations.
const DefaultTimeout = 30 * time.Second

// IsRepository reports whether root is inside a Git working tree. Any
// failure (git missing, not a repo) returns false with no error, since
// GitFilter treats this as a no-op gate rather than a fatal condition.
func IsRepository(ctx context.Context, root string) bool {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(out)) == "true"
}

// ModifiedFiles returns the set of paths (relative to root) with index or
// worktree changes, per `git status --porcelain=v1`.
func ModifiedFiles(ctx context.Context, root string) (map[string]bool, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain=v1")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git status in %s: %w", root, err)
	}

	files := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		// Renames report as "old -> new"; keep the new path.
		if idx := strings.Index(path, " -> "); idx != -1 {
			path = path[idx+4:]
		}
		files[path] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parsing git status output: %w", err)
	}
	return files, nil
}

// StatusLetters returns a map from path to its single-letter git status
// code (M, A, D, R, ??, ...) per `git status --porcelain=v1`.
func StatusLetters(ctx context.Context, root string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain=v1")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git status in %s: %w", root, err)
	}

	statuses := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 4 {
			continue
		}
		code := strings.TrimSpace(line[:2])
		path := strings.TrimSpace(line[3:])
		if idx := strings.Index(path, " -> "); idx != -1 {
			path = path[idx+4:]
		}
		if code == "" {
			code = "??"
		}
		statuses[path] = code
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parsing git status output: %w", err)
	}
	return statuses, nil
}

// ChangedFiles returns the set of paths changed between rev and HEAD, per
// `git diff --name-only <rev>..HEAD`.
func ChangedFiles(ctx context.Context, root, rev string) (map[string]bool, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	spec := fmt.Sprintf("%s..HEAD", rev)
	cmd := exec.CommandContext(ctx, "git", "diff", "--name-only", spec)
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff %s in %s: %w", spec, root, err)
	}

	files := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			files[line] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parsing git diff output: %w", err)
	}
	return files, nil
}

// Metadata describes the current repository state: branch, last commit, and
// dirty flag.
type Metadata struct {
	Branch            string
	LastCommitHash    string
	LastCommitSubject string
	Dirty             bool
}

// ReadMetadata gathers branch name, last commit hash/subject, and dirty
// status for root. Any individual query failure leaves that field empty
// rather than aborting the whole call.
func ReadMetadata(ctx context.Context, root string) (Metadata, error) {
	var meta Metadata

	if branch, err := runGit(ctx, root, "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
		meta.Branch = strings.TrimSpace(branch)
	}

	if hash, err := runGit(ctx, root, "log", "-1", "--format=%H"); err == nil {
		meta.LastCommitHash = strings.TrimSpace(hash)
	}

	if subject, err := runGit(ctx, root, "log", "-1", "--format=%s"); err == nil {
		meta.LastCommitSubject = strings.TrimSpace(subject)
	}

	if status, err := runGit(ctx, root, "status", "--porcelain=v1"); err == nil {
		meta.Dirty = strings.TrimSpace(status) != ""
	}

	return meta, nil
}

func runGit(ctx context.Context, root string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s in %s: %w", strings.Join(args, " "), root, err)
	}
	return string(out), nil
}
