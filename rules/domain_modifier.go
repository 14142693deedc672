package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"golang.org/x/net/publicsuffix"
)

// Domain list separators.
const (
	// separatorPipe is used by the $domain modifier of network rules.
	separatorPipe = '|'

	// separatorComma is used by the domain lists of cosmetic rules.
	separatorComma = ','
)

// errNoDomains is returned for empty domain lists.
const errNoDomains errors.Error = "at least one domain must be specified"

// domainEntry is a single parsed domain of a domain list.
type domainEntry struct {
	// re is the compiled regular expression for /regexp/ entries.
	re *regexp.Regexp

	// name is the lower-cased domain, wildcard, or /regexp/.
	name string

	// wildcard is true for entries of the form "example.*".
	wildcard bool
}

// newDomainEntry parses a single domain.
func newDomainEntry(name string) (e domainEntry, err error) {
	e.name = strings.ToLower(name)

	if isRegexPattern(name) {
		e.re, err = regexp.Compile(name[1 : len(name)-1])
		if err != nil {
			return e, fmt.Errorf("invalid regular expression as domain pattern %q: %w", name, err)
		}

		return e, nil
	}

	switch n := strings.Count(name, "*"); {
	case n == 0:
		// Go on.
	case n == 1 && len(name) > len(".*") && strings.HasSuffix(name, ".*"):
		e.wildcard = true
	default:
		return e, fmt.Errorf("wildcards are only supported for top-level domains: %q", name)
	}

	return e, nil
}

// match returns true if domain is the entry itself, its subdomain, or matches
// the entry's wildcard or regular expression.
func (e domainEntry) match(domain string) (ok bool) {
	switch {
	case e.re != nil:
		return e.re.MatchString(domain)
	case e.wildcard:
		return matchAsWildcard(e.name, domain)
	default:
		return isDomainOrSubdomain(domain, e.name)
	}
}

// isDomainOrSubdomain returns true if domain is d or its subdomain.
func isDomainOrSubdomain(domain, d string) (ok bool) {
	return domain == d || (strings.HasSuffix(domain, d) && strings.HasSuffix(domain, "."+d))
}

// matchAsWildcard returns true if domain matches the TLD wildcard, for example
// "sub.example.co.uk" matches "example.*".
func matchAsWildcard(wildcard, domain string) (ok bool) {
	w := genTLDWildcard(domain)
	if w == "" {
		return false
	}

	return w == wildcard || (strings.HasSuffix(w, wildcard) && strings.HasSuffix(w, "."+wildcard))
}

// genTLDWildcard replaces the public suffix of domain with "*".  The private
// suffixes are respected, so that "example.com.ru" becomes "example.*".
func genTLDWildcard(domain string) (w string) {
	suffix, _ := publicsuffix.PublicSuffix(domain)
	if suffix == "" {
		return ""
	}

	i := strings.LastIndex(domain, "."+suffix)
	if i <= 0 {
		return ""
	}

	return domain[:i] + ".*"
}

// matchAnyDomain returns true if domain matches any of the entries.
func matchAnyDomain(domain string, entries []domainEntry) (ok bool) {
	for _, e := range entries {
		if e.match(domain) {
			return true
		}
	}

	return false
}

// entryNames returns the names of the entries.
func entryNames(entries []domainEntry) (names []string) {
	if len(entries) == 0 {
		return nil
	}

	names = make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.name)
	}

	return names
}

// splitDomainList splits a domain list by sep.  Separators inside /regexp/
// domains and escaped separators don't split the list.
func splitDomainList(list string, sep byte) (domains []string) {
	var cur strings.Builder
	inRegexp := false
	flush := func() {
		d := strings.TrimSpace(cur.String())
		if d != "" {
			domains = append(domains, d)
		}

		cur.Reset()
	}

	for i := 0; i < len(list); i++ {
		c := list[i]
		switch {
		case c == '\\' && !inRegexp && i+1 < len(list) && list[i+1] == sep:
			cur.WriteByte(sep)
			i++
		case c == '/':
			trimmed := strings.TrimPrefix(strings.TrimSpace(cur.String()), "~")
			if trimmed == "" {
				inRegexp = true
			} else if inRegexp && (i+1 == len(list) || list[i+1] == sep) {
				inRegexp = false
			}

			cur.WriteByte(c)
		case c == sep && !inRegexp:
			flush()
		default:
			cur.WriteByte(c)
		}
	}

	flush()

	return domains
}

// DomainModifier is the parsed $domain modifier of a network rule or the domain
// list of a cosmetic rule.
type DomainModifier struct {
	permitted  []domainEntry
	restricted []domainEntry
}

// NewDomainModifier parses a domain list separated by sep.  Domains prefixed
// with "~" are restricted.
func NewDomainModifier(list string, sep byte) (m *DomainModifier, err error) {
	domains := splitDomainList(strings.TrimSpace(list), sep)
	if len(domains) == 0 {
		return nil, errNoDomains
	}

	m = &DomainModifier{}
	for _, d := range domains {
		restricted := strings.HasPrefix(d, "~")
		if restricted {
			d = strings.TrimSpace(d[1:])
		}

		if d == "" {
			return nil, errNoDomains
		}

		var e domainEntry
		e, err = newDomainEntry(d)
		if err != nil {
			return nil, err
		}

		if restricted {
			m.restricted = append(m.restricted, e)
		} else {
			m.permitted = append(m.permitted, e)
		}
	}

	for _, p := range m.permitted {
		for _, r := range m.restricted {
			if p.name == r.name {
				return nil, fmt.Errorf("%w: %q", ErrConflictingValues, p.name)
			}
		}
	}

	return m, nil
}

// MatchDomain returns true if the rule applies to domain: it isn't restricted
// and, if there are permitted domains, it's among them.
func (m *DomainModifier) MatchDomain(domain string) (ok bool) {
	if matchAnyDomain(domain, m.restricted) {
		return false
	}

	return len(m.permitted) == 0 || matchAnyDomain(domain, m.permitted)
}

// HasPermittedDomains returns true if there are permitted domains.
func (m *DomainModifier) HasPermittedDomains() (ok bool) {
	return m != nil && len(m.permitted) > 0
}

// HasRestrictedDomains returns true if there are restricted domains.
func (m *DomainModifier) HasRestrictedDomains() (ok bool) {
	return m != nil && len(m.restricted) > 0
}

// PermittedDomains returns the permitted domains as written in the rule, in
// lower case.
func (m *DomainModifier) PermittedDomains() (domains []string) {
	if m == nil {
		return nil
	}

	return entryNames(m.permitted)
}

// RestrictedDomains returns the restricted domains as written in the rule, in
// lower case and without the "~".
func (m *DomainModifier) RestrictedDomains() (domains []string) {
	if m == nil {
		return nil
	}

	return entryNames(m.restricted)
}

// IsDomainOrSubdomainOfAny returns true if domain is any of domains or their
// subdomain.  Domains may contain TLD wildcards and regular expressions.
// Invalid entries are ignored.
func IsDomainOrSubdomainOfAny(domain string, domains []string) (ok bool) {
	for _, d := range domains {
		e, err := newDomainEntry(d)
		if err == nil && e.match(domain) {
			return true
		}
	}

	return false
}
