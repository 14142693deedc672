package netutil

// DefaultHostsPaths returns the paths to the system hosts files.
func DefaultHostsPaths() (paths []string, err error) {
	return defaultHostsPaths()
}
