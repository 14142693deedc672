package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"slices"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/netutil"
	"github.com/c2h5oh/datasize"
	"github.com/fcchbjm/adfilter/filter"
	"github.com/fcchbjm/adfilter/filterlist"
	"github.com/fcchbjm/adfilter/rules"
	"github.com/miekg/dns"
)

// HostsConfig is the configuration of [Hosts].
type HostsConfig struct {
	// Logger is the logger.  It must not be nil.
	Logger *slog.Logger

	// Paths are the paths to the hosts files.
	Paths []string

	// MaxSize is the maximum size of a single hosts file.  If it's zero,
	// [filterlist.DefaultMaxListSize] is used.
	MaxSize datasize.ByteSize
}

// Hosts resolves names from the system hosts files.  Each file is a host rule
// list of its own engine, so the records never mix with the filtering rules.
// It's safe for concurrent use.
type Hosts struct {
	engine  *filter.DNSEngine
	storage *filterlist.RuleStorage

	// names maps the unmapped addresses to the hostnames for PTR requests.
	names map[netip.Addr][]string
}

// NewHosts loads the hosts files of c.  The files that can't be opened are
// skipped and reported in err, h is usable whenever it's not nil.
func NewHosts(ctx context.Context, c *HostsConfig) (h *Hosts, err error) {
	var errs []error
	var lists []filterlist.RuleList
	for i, path := range c.Paths {
		var l *filterlist.FileRuleList
		l, err = filterlist.NewFile(&filterlist.FileConfig{
			Config: filterlist.Config{
				Logger:    c.Logger,
				ID:        i,
				HostsOnly: true,
			},
			Path:    path,
			MaxSize: c.MaxSize,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("hosts file %q: %w", path, err))

			continue
		}

		lists = append(lists, l)
	}

	h, err = newHosts(ctx, c.Logger, lists)
	if err != nil {
		return nil, errors.Join(append(errs, err)...)
	}

	return h, errors.Join(errs...)
}

// newHosts builds the engine and the reverse index of lists.  lists are
// closed on error.
func newHosts(ctx context.Context, l *slog.Logger, lists []filterlist.RuleList) (h *Hosts, err error) {
	strg, err := filterlist.NewRuleStorage(&filterlist.StorageConfig{
		Logger: l,
		Lists:  lists,
	})
	if err != nil {
		for _, rl := range lists {
			err = errors.WithDeferred(err, rl.Close())
		}

		return nil, fmt.Errorf("creating hosts storage: %w", err)
	}

	defer func() {
		if err != nil {
			err = errors.WithDeferred(err, strg.Close())
		}
	}()

	engine, err := filter.NewDNSEngine(ctx, &filter.DNSEngineConfig{
		Logger:  l,
		Storage: strg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating hosts engine: %w", err)
	}

	h = &Hosts{
		engine:  engine,
		storage: strg,
		names:   map[netip.Addr][]string{},
	}

	sc := strg.NewScanner(filterlist.ScannerTypeHost)
	for sc.Scan(ctx) {
		r, _ := sc.Rule()
		if hr, ok := r.(*rules.HostRule); ok && !hr.Invalid() {
			h.addNames(hr)
		}
	}

	if err = sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning hosts: %w", err)
	}

	return h, nil
}

// addNames adds the hostnames of r to the reverse index.
func (h *Hosts) addNames(r *rules.HostRule) {
	ip := r.IP().Unmap()
	for _, name := range r.Hostnames() {
		if !slices.Contains(h.names[ip], name) {
			h.names[ip] = append(h.names[ip], name)
		}
	}
}

// RulesCount returns the number of the hosts records.
func (h *Hosts) RulesCount() (n int) {
	return h.engine.RulesCount()
}

// Close closes the hosts files.
func (h *Hosts) Close() (err error) {
	return h.storage.Close()
}

// addrs returns the addresses of name of the family of qtype.
func (h *Hosts) addrs(ctx context.Context, name string, qtype uint16) (ips []netip.Addr) {
	res, ok := h.engine.Match(ctx, name)
	if !ok {
		return nil
	}

	hostRules := res.HostRulesV4
	if qtype == dns.TypeAAAA {
		hostRules = res.HostRulesV6
	}

	for _, r := range hostRules {
		ip := r.IP().Unmap()
		if !slices.Contains(ips, ip) {
			ips = append(ips, ip)
		}
	}

	return ips
}

// resolveFromHosts resolves the A, AAAA, and PTR requests from the hosts
// files.  resp is nil if the hosts files have no records for req.
func (f *Filter) resolveFromHosts(ctx context.Context, req *dns.Msg) (resp *dns.Msg) {
	if f.hosts == nil {
		return nil
	}

	q := req.Question[0]
	name := strings.ToLower(strings.TrimSuffix(q.Name, "."))
	switch q.Qtype {
	case dns.TypeA, dns.TypeAAAA:
		if ips := f.hosts.addrs(ctx, name, q.Qtype); len(ips) > 0 {
			return f.messages.NewIPResponse(req, ips)
		}
	case dns.TypePTR:
		addr, err := netutil.IPFromReversedAddr(name)
		if err != nil {
			f.logger.DebugContext(ctx, "failed parsing ptr", slogutil.KeyError, err)

			return nil
		}

		if ptrs := f.hosts.names[addr.Unmap()]; len(ptrs) > 0 {
			return f.messages.NewPTRResponse(req, ptrs)
		}
	default:
		return nil
	}

	f.logger.DebugContext(ctx, "no hosts records found", "name", name, "qtype", q.Qtype)

	return nil
}
