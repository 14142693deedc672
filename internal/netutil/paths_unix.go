//go:build unix

package netutil

import (
	"fmt"

	"github.com/AdguardTeam/golibs/hostsfile"
)

// defaultHostsPaths returns the absolute paths to the hosts files on Unix.
func defaultHostsPaths() (paths []string, err error) {
	rel, err := hostsfile.DefaultHostsPaths()
	if err != nil {
		return nil, fmt.Errorf("getting hosts paths: %w", err)
	}

	paths = make([]string, 0, len(rel))
	for _, p := range rel {
		paths = append(paths, "/"+p)
	}

	return paths, nil
}
