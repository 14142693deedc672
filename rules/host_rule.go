package rules

import (
	"net/netip"
	"slices"
	"strings"
)

// HostRule is a rule in the /etc/hosts syntax: an IP address followed by one
// or more hostnames.  Lines with a single domain are network rules.
type HostRule struct {
	ruleID

	ip        netip.Addr
	hostnames []string
}

// NewHostRule parses text as a host rule of the filter list with the given ID.
// A rule without hostnames is not an error, it's marked invalid instead.
func NewHostRule(text string, listID int) (r *HostRule, err error) {
	return newHostRule(text, listID, 0)
}

// newHostRule is like [NewHostRule] but also sets the index of the rule.
func newHostRule(text string, listID, idx int) (r *HostRule, err error) {
	fields := hostRuleFields(text)
	if len(fields) == 0 {
		return nil, newRuleSyntaxError(text, ErrHostRuleSyntax)
	}

	ip, err := netip.ParseAddr(fields[0])
	if err != nil {
		return nil, newRuleSyntaxError(text, ErrHostRuleSyntax)
	}

	hostnames := fields[1:]
	for i, h := range hostnames {
		hostnames[i] = strings.ToLower(h)
	}

	return &HostRule{
		ruleID: ruleID{
			text:   text,
			listID: listID,
			index:  idx,
		},
		ip:        ip,
		hostnames: hostnames,
	}, nil
}

// hostRuleFields returns the whitespace-separated fields of text without the
// trailing comment.
func hostRuleFields(text string) (fields []string) {
	text, _, _ = strings.Cut(text, "#")

	return strings.Fields(text)
}

// isHostRuleText returns true if text starts with an IP address followed by
// something else, possibly a comment.
func isHostRuleText(text string) (ok bool) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return false
	}

	_, err := netip.ParseAddr(fields[0])

	return err == nil
}

// IP returns the IP address of the rule.
func (r *HostRule) IP() (ip netip.Addr) { return r.ip }

// Hostnames returns the hostnames of the rule.
func (r *HostRule) Hostnames() (hostnames []string) { return r.hostnames }

// Invalid returns true if the rule has no hostnames and never matches.
func (r *HostRule) Invalid() (ok bool) { return len(r.hostnames) == 0 }

// Match returns true if hostname is one of the rule hostnames.
func (r *HostRule) Match(hostname string) (ok bool) {
	return slices.Contains(r.hostnames, hostname)
}
