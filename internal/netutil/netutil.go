// Package netutil contains network-related utilities common among adfilter
// packages.
package netutil

import (
	"net/netip"
	"slices"
)

// ListenAddrs returns the combinations of addrs and ports in the order of
// addrs.  Duplicates are removed.
func ListenAddrs(addrs []netip.Addr, ports []uint16) (addrPorts []netip.AddrPort) {
	for _, addr := range addrs {
		for _, port := range ports {
			ap := netip.AddrPortFrom(addr, port)
			if !slices.Contains(addrPorts, ap) {
				addrPorts = append(addrPorts, ap)
			}
		}
	}

	return addrPorts
}
