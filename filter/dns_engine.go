package filter

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"sync/atomic"

	"github.com/fcchbjm/adfilter/filterlist"
	"github.com/fcchbjm/adfilter/rules"
)

// DNSRequest is a request to filter a DNS query.
type DNSRequest struct {
	// ClientIP is the IP address of the client, if known.
	ClientIP netip.Addr

	// Hostname is the queried hostname without the trailing dot.
	Hostname string

	// ClientName is the name of the client, if known.
	ClientName string

	// SortedClientTags are the tags of the client in ascending order.
	SortedClientTags []string

	// DNSType is the type of the question.
	DNSType uint16
}

// DNSResult is the result of matching a DNS request.
type DNSResult struct {
	// NetworkRule is the network rule that blocks or allows the request.
	NetworkRule *rules.NetworkRule

	// HostRulesV4 are the matching host rules with IPv4 addresses.
	HostRulesV4 []*rules.HostRule

	// HostRulesV6 are the matching host rules with IPv6 addresses.
	HostRulesV6 []*rules.HostRule

	// DNSRewriteRules are the matching $dnsrewrite rules, including the
	// allowlist ones.
	DNSRewriteRules []*rules.NetworkRule
}

// DNSRewrites returns the $dnsrewrite rules that should be applied.  An
// allowlist $dnsrewrite rule without a value disables all of them, one with a
// value disables the rules with the same value.
func (res *DNSResult) DNSRewrites() (rws []*rules.NetworkRule) {
	allowed := map[string]struct{}{}
	for _, r := range res.DNSRewriteRules {
		if !r.IsAllowlist() {
			continue
		}

		v := r.AdvancedModifierValue()
		if v == "" {
			return nil
		}

		allowed[v] = struct{}{}
	}

	for _, r := range res.DNSRewriteRules {
		if r.IsAllowlist() {
			continue
		}

		if _, ok := allowed[r.AdvancedModifierValue()]; !ok {
			rws = append(rws, r)
		}
	}

	return rws
}

// DNSEngineConfig is the configuration of a [DNSEngine].
type DNSEngineConfig struct {
	// Logger is used to log the reloads.  It must not be nil.
	Logger *slog.Logger

	// Storage is the storage with the rules.  It must not be nil.
	Storage *filterlist.RuleStorage
}

// DNSEngine finds the rules that apply to DNS queries.  The network rules
// always have a higher priority than the host rules.  It's safe for concurrent
// use.
type DNSEngine struct {
	logger   *slog.Logger
	snapshot atomic.Pointer[dnsSnapshot]
}

// dnsSnapshot is an immutable set of rules of a [DNSEngine].
type dnsSnapshot struct {
	storage *filterlist.RuleStorage
	network *NetworkEngine

	// hostRules maps the hashes of hostnames to the storage indexes of host
	// rules.
	hostRules map[uint32][]int64

	rulesCount int
}

// NewDNSEngine returns a new DNS engine with the host rules and the host-level
// network rules of c.Storage.
func NewDNSEngine(ctx context.Context, c *DNSEngineConfig) (e *DNSEngine, err error) {
	e = &DNSEngine{
		logger: c.Logger,
	}

	err = e.Reload(ctx, c.Storage)
	if err != nil {
		return nil, err
	}

	return e, nil
}

// Reload replaces the rules of the engine with the ones of s.  The matches
// that are already running finish with the previous rules.  The caller owns
// the previous storage and may close it once they're done.
func (e *DNSEngine) Reload(ctx context.Context, s *filterlist.RuleStorage) (err error) {
	snap, err := newDNSSnapshot(ctx, s)
	if err != nil {
		return fmt.Errorf("building dns engine: %w", err)
	}

	e.snapshot.Store(snap)
	e.logger.DebugContext(ctx, "dns rules loaded", "rules", snap.rulesCount)

	return nil
}

// newDNSSnapshot scans s and builds the lookup tables.
func newDNSSnapshot(ctx context.Context, s *filterlist.RuleStorage) (snap *dnsSnapshot, err error) {
	snap = &dnsSnapshot{
		storage:   s,
		network:   newNetworkEngine(s),
		hostRules: map[uint32][]int64{},
	}

	sc := s.NewScanner(filterlist.ScannerTypeNetwork | filterlist.ScannerTypeHost)
	for sc.Scan(ctx) {
		r, idx := sc.Rule()
		switch r := r.(type) {
		case *rules.HostRule:
			snap.addHostRule(r, idx)
		case *rules.NetworkRule:
			if r.IsHostLevelNetworkRule() {
				snap.network.addRule(r, idx)
			}
		}
	}

	if err = sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning rules: %w", err)
	}

	snap.rulesCount += snap.network.RulesCount()

	return snap, nil
}

// addHostRule adds r to the host rules table.
func (snap *dnsSnapshot) addHostRule(r *rules.HostRule, storageIdx int64) {
	if r.Invalid() {
		return
	}

	for _, h := range r.Hostnames() {
		hash := fastHash(h)
		snap.hostRules[hash] = append(snap.hostRules[hash], storageIdx)
	}

	snap.rulesCount++
}

// RulesCount returns the number of rules in the engine.
func (e *DNSEngine) RulesCount() (n int) {
	return e.snapshot.Load().rulesCount
}

// Match is a shorthand for [DNSEngine.MatchRequest] with only a hostname.
func (e *DNSEngine) Match(ctx context.Context, hostname string) (res *DNSResult, ok bool) {
	return e.MatchRequest(ctx, &DNSRequest{
		Hostname: hostname,
	})
}

// MatchRequest returns the rules matching dr.  ok is false if there are none.
func (e *DNSEngine) MatchRequest(ctx context.Context, dr *DNSRequest) (res *DNSResult, ok bool) {
	if dr.Hostname == "" {
		return nil, false
	}

	snap := e.snapshot.Load()

	req := rules.NewRequestForHostname(dr.Hostname)
	req.ClientIP = dr.ClientIP
	req.ClientName = dr.ClientName
	req.SortedClientTags = dr.SortedClientTags
	req.DNSType = dr.DNSType

	res = &DNSResult{}
	if matched := snap.network.MatchAll(ctx, req); len(matched) > 0 {
		mr := NewMatchingResult(matched, nil)
		res.DNSRewriteRules = mr.DNSRewriteRules

		if basic := mr.GetBasicResult(); basic != nil {
			res.NetworkRule = basic

			return res, true
		}
	}

	for _, idx := range snap.hostRules[fastHash(dr.Hostname)] {
		r := snap.storage.RetrieveHostRule(ctx, idx)
		if r == nil || !r.Match(dr.Hostname) {
			continue
		}

		if r.IP().Unmap().Is4() {
			res.HostRulesV4 = append(res.HostRulesV4, r)
		} else {
			res.HostRulesV6 = append(res.HostRulesV6, r)
		}
	}

	ok = len(res.DNSRewriteRules) > 0 || len(res.HostRulesV4) > 0 || len(res.HostRulesV6) > 0

	return res, ok
}
