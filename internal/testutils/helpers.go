// Package testutils holds fixtures shared by tests across packages.
package testutils

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// TestContext creates a test context with timeout
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// PyProject returns a minimal pyproject.toml.
func PyProject(name, version string) string {
	return "[project]\nname = \"" + name + "\"\nversion = \"" + version + "\"\n"
}

// GitWorkspace creates a git repository in a temp dir holding files. With
// commit set, the files are committed on the default branch.
func GitWorkspace(t *testing.T, files map[string]string, commit bool) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		WriteFile(t, filepath.Join(dir, name), files[name])
	}
	if !commit {
		return dir, repo
	}

	wt, err := repo.Worktree()
	require.NoError(t, err)
	for _, name := range names {
		_, err := wt.Add(name)
		require.NoError(t, err)
	}
	_, err = wt.Commit("Initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir, repo
}
