//go:build windows

package netutil

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/windows"
)

// defaultHostsPaths returns the path to the hosts file on Windows.
func defaultHostsPaths() (paths []string, err error) {
	sysDir, err := windows.GetSystemDirectory()
	if err != nil {
		return nil, fmt.Errorf("getting system directory: %w", err)
	}

	return []string{filepath.Join(sysDir, "drivers", "etc", "hosts")}, nil
}
