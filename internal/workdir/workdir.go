// Package workdir resolves the host directory that is bind-mounted into the
// generator container.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	git "github.com/go-git/go-git/v5"

	rnerrors "railsnew/internal/errors"
)

// uncPrefix marks a Windows verbatim path, e.g. \\?\C:\src\app.
const uncPrefix = `\\?\`

// Resolve returns the canonical form of the current working directory.
func Resolve() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", rnerrors.NewPathResolutionError(err)
	}
	return Canonicalize(cwd)
}

// Canonicalize makes path absolute, resolves symlinks and rewrites Windows
// paths into the /C/dir form that works as both a bind-mount source and a
// path inside the container.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", rnerrors.NewPathResolutionError(err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", rnerrors.NewPathResolutionError(fmt.Errorf("failed to canonicalize %s: %w", abs, err))
	}

	if runtime.GOOS == "windows" && !strings.HasPrefix(resolved, uncPrefix) {
		return driveToSlash(resolved), nil
	}
	return Normalize(resolved), nil
}

// Normalize strips the \\?\ prefix from a verbatim path and rewrites the rest
// as /<drive>/<segments>. Any other path is returned unchanged.
func Normalize(path string) string {
	rest, ok := strings.CutPrefix(path, uncPrefix)
	if !ok {
		return path
	}
	return driveToSlash(rest)
}

func driveToSlash(path string) string {
	slashed := strings.ReplaceAll(path, `\`, "/")
	if len(slashed) < 2 || slashed[1] != ':' {
		return slashed
	}
	return "/" + slashed[:1] + "/" + strings.TrimLeft(slashed[2:], "/")
}

// EnclosingRepository reports the root of a git work tree containing dir.
func EnclosingRepository(dir string) (string, bool) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", false
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", false
	}

	return wt.Filesystem.Root(), true
}
