// Package platform selects the image definition and the host identity that
// the build passes into the image.
package platform

import (
	_ "embed"
	"os"
	"runtime"
)

//go:embed dockerfiles/Dockerfile.unix
var unixDockerfile []byte

//go:embed dockerfiles/Dockerfile.windows
var windowsDockerfile []byte

// Platform supplies the per-OS parts of a build.
type Platform interface {
	Name() string
	// Dockerfile returns the image definition streamed to the build.
	Dockerfile() []byte
	// Identity returns the host user and group ids, or ok=false when the
	// platform has no process-owner identity to map into the container.
	Identity() (uid, gid int, ok bool)
}

// Unix maps the caller's uid/gid into the image so generated files are owned
// by the caller.
type Unix struct {
	getuid func() int
	getgid func() int
}

func NewUnix() *Unix {
	return &Unix{getuid: os.Getuid, getgid: os.Getgid}
}

func (u *Unix) Name() string {
	return "unix"
}

func (u *Unix) Dockerfile() []byte {
	return unixDockerfile
}

func (u *Unix) Identity() (int, int, bool) {
	uid, gid := u.getuid(), u.getgid()
	if uid < 0 || gid < 0 {
		return 0, 0, false
	}
	return uid, gid, true
}

// Windows has no uid/gid; the container runs as its default user.
type Windows struct{}

func NewWindows() *Windows {
	return &Windows{}
}

func (w *Windows) Name() string {
	return "windows"
}

func (w *Windows) Dockerfile() []byte {
	return windowsDockerfile
}

func (w *Windows) Identity() (int, int, bool) {
	return 0, 0, false
}

// Detect returns the Platform for the running OS.
func Detect() Platform {
	return ForOS(runtime.GOOS)
}

// ForOS returns the Platform for a GOOS value.
func ForOS(goos string) Platform {
	if goos == "windows" {
		return NewWindows()
	}
	return NewUnix()
}
