package netutil

import (
	"log/slog"
	"net"
)

// ListenConfig returns the default [net.ListenConfig] used by the plain-DNS
// servers in this module.  l must not be nil.
func ListenConfig(l *slog.Logger) (lc *net.ListenConfig) {
	return &net.ListenConfig{
		Control: listenControl{logger: l}.control,
	}
}

// listenControl sets the socket options of the listeners.
type listenControl struct {
	logger *slog.Logger
}
