// Package filter contains the engines that match requests against the rules
// of a [filterlist.RuleStorage].
package filter

import (
	"context"
	"fmt"

	"github.com/fcchbjm/adfilter/filterlist"
	"github.com/fcchbjm/adfilter/rules"
)

// NetworkEngine finds the network rules matching a request.  Most rules are
// kept in the storage and only their indexes are kept in the engine.
type NetworkEngine struct {
	// lookupTables are ordered from the fastest one.  A rule is added to the
	// first table that accepts it.
	lookupTables []lookupTable

	rulesCount int
}

// newNetworkEngine returns a new empty network engine for s.
func newNetworkEngine(s *filterlist.RuleStorage) (e *NetworkEngine) {
	return &NetworkEngine{
		lookupTables: []lookupTable{
			newShortcutsTable(s),
			newDomainsTable(s),
			&seqScanTable{},
		},
	}
}

// NewNetworkEngine scans s and returns a network engine with all the network
// rules it contains.
func NewNetworkEngine(ctx context.Context, s *filterlist.RuleStorage) (e *NetworkEngine, err error) {
	e = newNetworkEngine(s)

	sc := s.NewScanner(filterlist.ScannerTypeNetwork)
	for sc.Scan(ctx) {
		r, idx := sc.Rule()
		if nr, ok := r.(*rules.NetworkRule); ok {
			e.addRule(nr, idx)
		}
	}

	if err = sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning network rules: %w", err)
	}

	return e, nil
}

// addRule adds r to the first lookup table that accepts it.
func (e *NetworkEngine) addRule(r *rules.NetworkRule, storageIdx int64) {
	for _, t := range e.lookupTables {
		if t.tryAdd(r, storageIdx) {
			e.rulesCount++

			return
		}
	}
}

// RulesCount returns the number of rules in the engine.
func (e *NetworkEngine) RulesCount() (n int) {
	return e.rulesCount
}

// Match returns the rule that decides what to do with req, if any.
func (e *NetworkEngine) Match(ctx context.Context, req *rules.Request) (r *rules.NetworkRule, ok bool) {
	matched := e.MatchAll(ctx, req)
	if len(matched) == 0 {
		return nil, false
	}

	r = NewMatchingResult(matched, nil).GetBasicResult()

	return r, r != nil
}

// MatchAll returns all the rules that match req, both blocking and allowlist
// ones.  Each rule is returned once.
func (e *NetworkEngine) MatchAll(ctx context.Context, req *rules.Request) (matched []*rules.NetworkRule) {
	c := newCollector()
	for _, t := range e.lookupTables {
		t.matchAll(ctx, req, c.add)
	}

	return c.rules
}
