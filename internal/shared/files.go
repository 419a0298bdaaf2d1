package shared

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultExportDir is used when no export directory has been configured.
const DefaultExportDir = "~/Downloads/PlaylistPulse"

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// ResolveDir expands ~, makes path absolute, creates it if missing, and verifies it is writable.
func ResolveDir(path string) (string, error) {
	if path == "" {
		return "", ErrNoExportDir
	}

	expanded, err := ExpandHome(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return "", fmt.Errorf("%w: cannot create %s: %v", ErrIO, abs, err)
	}

	probe, err := os.CreateTemp(abs, ".pulse-probe-*")
	if err != nil {
		return "", fmt.Errorf("%w: %s is not writable: %v", ErrIO, abs, err)
	}
	name := probe.Name()
	probe.Close()
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}

	return abs, nil
}
