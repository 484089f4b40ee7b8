package errors

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	logFileName    = "rails-new.log"
	logDirEnv      = "RAILS_NEW_LOG_DIR"
	maxLogFiles    = 5
	maxLogFileSize = 10 << 20
)

// logDir picks the per-user log location for goos.
func logDir(goos, home string, getenv func(string) string) string {
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Logs", "rails-new")
	case "windows":
		base := getenv("LOCALAPPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(base, "rails-new", "logs")
	case "linux", "freebsd", "openbsd", "netbsd":
		base := getenv("XDG_STATE_HOME")
		if base == "" {
			base = filepath.Join(home, ".local", "state")
		}
		return filepath.Join(base, "rails-new")
	}
	return filepath.Join(home, ".rails-new", "logs")
}

func defaultLogDir() (string, error) {
	if dir := os.Getenv(logDirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return logDir(runtime.GOOS, home, os.Getenv), nil
}

// ensureLogDir never falls back to the working directory: rails new writes
// the application there.
func ensureLogDir() (string, error) {
	dir, err := defaultLogDir()
	if err == nil {
		if err = os.MkdirAll(dir, 0o750); err == nil {
			return dir, nil
		}
	}

	tmp := filepath.Join(os.TempDir(), "rails-new")
	if mkErr := os.MkdirAll(tmp, 0o750); mkErr != nil {
		return "", fmt.Errorf("cannot create log directory %s: %w", tmp, mkErr)
	}
	fmt.Fprintf(os.Stderr, "Warning: cannot use log directory %s: %v. Logging to %s.\n", dir, err, tmp)
	return tmp, nil
}

func backupName(path string, n int) string {
	return fmt.Sprintf("%s.%d", path, n)
}

// rotate shifts path to path.1, path.1 to path.2 and so on. The backup
// numbered maxLogFiles is discarded.
func rotate(path string) error {
	if err := os.Remove(backupName(path, maxLogFiles)); err != nil && !os.IsNotExist(err) {
		return err
	}
	for n := maxLogFiles - 1; n >= 1; n-- {
		if err := os.Rename(backupName(path, n), backupName(path, n+1)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if err := os.Rename(path, backupName(path, 1)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func rotateIfLarge(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.Size() < maxLogFileSize {
		return nil
	}
	return rotate(path)
}

func openLogFile() (*os.File, error) {
	dir, err := ensureLogDir()
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, logFileName)
	if err := rotateIfLarge(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to rotate %s: %v\n", path, err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}
