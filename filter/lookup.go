package filter

import (
	"context"
	"iter"
	"math"
	"strings"

	"github.com/AdguardTeam/golibs/container"
	"github.com/fcchbjm/adfilter/filterlist"
	"github.com/fcchbjm/adfilter/rules"
)

const (
	// shortcutLength is the length of the shortcut windows used as keys of
	// the shortcuts table.
	shortcutLength = 5

	// maxURLLength is the maximum number of bytes of a URL scanned for
	// shortcuts.  Some URLs are longer than a megabyte.
	maxURLLength = 4 * 1024
)

// lookupTable is a table of network rules that finds the candidate rules for
// a request quickly.
type lookupTable interface {
	// tryAdd adds the rule to the table if it's eligible for it.
	tryAdd(r *rules.NetworkRule, storageIdx int64) (ok bool)

	// matchAll calls add for each rule of the table that matches req.
	matchAll(ctx context.Context, req *rules.Request, add matchFunc)
}

// matchFunc accumulates the matching rules.  storageIdx is -1 for the rules
// that are kept in memory.
type matchFunc func(r *rules.NetworkRule, storageIdx int64)

// shortcutsTable keeps the rules by the hash of one of the windows of their
// shortcuts.
type shortcutsTable struct {
	storage *filterlist.RuleStorage

	// table maps the hashes of shortcut windows to the storage indexes.
	table map[uint32][]int64

	// histogram helps choosing the least used window for a rule.
	histogram map[uint32]int
}

// newShortcutsTable returns a new empty shortcuts table.
func newShortcutsTable(s *filterlist.RuleStorage) (t *shortcutsTable) {
	return &shortcutsTable{
		storage:   s,
		table:     map[uint32][]int64{},
		histogram: map[uint32]int{},
	}
}

// type check
var _ lookupTable = (*shortcutsTable)(nil)

// tryAdd implements the [lookupTable] interface for *shortcutsTable.
func (t *shortcutsTable) tryAdd(r *rules.NetworkRule, storageIdx int64) (ok bool) {
	shortcut := r.Shortcut()
	if len(shortcut) < shortcutLength || isAnyURLShortcut(shortcut) {
		return false
	}

	var hash uint32
	minCount := math.MaxInt
	for i := 0; i <= len(shortcut)-shortcutLength; i++ {
		h := fastHashBetween(shortcut, i, i+shortcutLength)
		if count := t.histogram[h]; count < minCount {
			minCount = count
			hash = h
		}
	}

	t.histogram[hash] = minCount + 1
	t.table[hash] = append(t.table[hash], storageIdx)

	return true
}

// matchAll implements the [lookupTable] interface for *shortcutsTable.
func (t *shortcutsTable) matchAll(ctx context.Context, req *rules.Request, add matchFunc) {
	u := req.URLLowerCase
	if len(u) > maxURLLength {
		u = u[:maxURLLength]
	}

	for i := 0; i <= len(u)-shortcutLength; i++ {
		for _, idx := range t.table[fastHashBetween(u, i, i+shortcutLength)] {
			r := t.storage.RetrieveNetworkRule(ctx, idx)
			if r != nil && r.Match(req, true) {
				add(r, idx)
			}
		}
	}
}

// isAnyURLShortcut returns true if the shortcut is a scheme with a few more
// characters, so that it matches too many URLs to be useful.
func isAnyURLShortcut(shortcut string) (ok bool) {
	switch {
	case len(shortcut) < len("ws:")+3 && strings.HasPrefix(shortcut, "ws:"),
		len(shortcut) < len("|ws")+4 && strings.HasPrefix(shortcut, "|ws"),
		len(shortcut) < len("http")+5 && strings.HasPrefix(shortcut, "http"),
		len(shortcut) < len("|http")+5 && strings.HasPrefix(shortcut, "|http"):
		return true
	default:
		return false
	}
}

// domainsTable keeps the rules limited to plain permitted domains by the hash
// of each of the domains.
type domainsTable struct {
	storage *filterlist.RuleStorage
	table   map[uint32][]int64
}

// newDomainsTable returns a new empty domains table.
func newDomainsTable(s *filterlist.RuleStorage) (t *domainsTable) {
	return &domainsTable{
		storage: s,
		table:   map[uint32][]int64{},
	}
}

// type check
var _ lookupTable = (*domainsTable)(nil)

// tryAdd implements the [lookupTable] interface for *domainsTable.  Rules with
// wildcard or regular expression domains aren't added.
func (t *domainsTable) tryAdd(r *rules.NetworkRule, storageIdx int64) (ok bool) {
	domains := r.PermittedDomains()
	if len(domains) == 0 {
		return false
	}

	for _, d := range domains {
		if strings.HasSuffix(d, ".*") || strings.HasPrefix(d, "/") {
			return false
		}
	}

	for _, d := range domains {
		h := fastHash(d)
		t.table[h] = append(t.table[h], storageIdx)
	}

	return true
}

// matchAll implements the [lookupTable] interface for *domainsTable.  It looks
// up the source hostname and, for documents, the request hostname itself.
func (t *domainsTable) matchAll(ctx context.Context, req *rules.Request, add matchFunc) {
	t.matchHostname(ctx, req, req.SourceHostname, add)
	if req.RequestType == rules.TypeDocument && req.Hostname != req.SourceHostname {
		t.matchHostname(ctx, req, req.Hostname, add)
	}
}

// matchHostname adds the matching rules for hostname and its parent domains.
func (t *domainsTable) matchHostname(
	ctx context.Context,
	req *rules.Request,
	hostname string,
	add matchFunc,
) {
	for d := range subdomains(hostname) {
		for _, idx := range t.table[fastHash(d)] {
			r := t.storage.RetrieveNetworkRule(ctx, idx)
			if r != nil && r.Match(req, true) {
				add(r, idx)
			}
		}
	}
}

// seqScanTable keeps the rules that cannot be put into any other table.  They
// are checked one by one.
type seqScanTable struct {
	rules []*rules.NetworkRule
}

// type check
var _ lookupTable = (*seqScanTable)(nil)

// tryAdd implements the [lookupTable] interface for *seqScanTable.
func (t *seqScanTable) tryAdd(r *rules.NetworkRule, _ int64) (ok bool) {
	t.rules = append(t.rules, r)

	return true
}

// matchAll implements the [lookupTable] interface for *seqScanTable.
func (t *seqScanTable) matchAll(_ context.Context, req *rules.Request, add matchFunc) {
	for _, r := range t.rules {
		if r.Match(req, true) {
			add(r, -1)
		}
	}
}

// collector accumulates the matching rules and drops the duplicates.
type collector struct {
	seen  *container.MapSet[int64]
	rules []*rules.NetworkRule
}

// newCollector returns a new empty collector.
func newCollector() (c *collector) {
	return &collector{
		seen: container.NewMapSet[int64](),
	}
}

// add is a [matchFunc] that adds r unless a rule with the same storage index
// has already been added.
func (c *collector) add(r *rules.NetworkRule, storageIdx int64) {
	if storageIdx >= 0 {
		if c.seen.Has(storageIdx) {
			return
		}

		c.seen.Add(storageIdx)
	}

	c.rules = append(c.rules, r)
}

// subdomains returns an iterator over hostname and its parent domains, from
// the hostname itself to the top-level domain.
func subdomains(hostname string) (seq iter.Seq[string]) {
	return func(yield func(d string) bool) {
		for d := hostname; d != ""; {
			if !yield(d) {
				return
			}

			i := strings.IndexByte(d, '.')
			if i == -1 {
				return
			}

			d = d[i+1:]
		}
	}
}

// fastHashBetween returns the djb2 hash of s[begin:end].
func fastHashBetween(s string, begin, end int) (h uint32) {
	h = 5381
	for i := begin; i < end; i++ {
		h = (h * 33) ^ uint32(s[i])
	}

	return h
}

// fastHash returns the djb2 hash of s.
func fastHash(s string) (h uint32) {
	if s == "" {
		return 0
	}

	return fastHashBetween(s, 0, len(s))
}
