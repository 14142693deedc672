package rules

import (
	"fmt"
	"net/netip"
	"slices"
	"strconv"
	"strings"

	"github.com/AdguardTeam/golibs/netutil"
	"github.com/miekg/dns"
)

// ClientModifier is the $client modifier.  Values are client names, IP
// addresses, or CIDR subnets.
type ClientModifier struct {
	value             string
	permitted         []string
	restricted        []string
	permittedSubnets  []netip.Prefix
	restrictedSubnets []netip.Prefix
}

// NewClientModifier parses the value of the $client modifier.  Values may be
// quoted, backslashes are removed.
func NewClientModifier(value string) (m *ClientModifier, err error) {
	l, err := parseValuesList(value, "|")
	if err != nil {
		return nil, fmt.Errorf("$client: %w", err)
	}

	m = &ClientModifier{value: value}
	m.permitted, m.permittedSubnets = parseClients(l.permitted)
	m.restricted, m.restrictedSubnets = parseClients(l.restricted)

	return m, nil
}

// parseClients strips the values and extracts the subnets from them.
func parseClients(values []string) (clients []string, subnets []netip.Prefix) {
	for _, v := range values {
		if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
			v = v[1 : len(v)-1]
		}

		v = strings.ReplaceAll(v, `\`, "")
		clients = append(clients, v)

		if p, err := netip.ParsePrefix(v); err == nil {
			subnets = append(subnets, p.Masked())
		}
	}

	return clients, subnets
}

// Value implements the [AdvancedModifier] interface for *ClientModifier.
func (m *ClientModifier) Value() (v string) { return m.value }

// isAdvancedModifier implements the [AdvancedModifier] interface for
// *ClientModifier.
func (*ClientModifier) isAdvancedModifier() {}

// MatchAny returns true if the rule applies to the client with the given name
// or IP address.  Either of them may be empty.
func (m *ClientModifier) MatchAny(name string, ip netip.Addr) (ok bool) {
	if name == "" && !ip.IsValid() {
		return false
	}

	ipStr := ""
	if ip.IsValid() {
		ip = ip.Unmap()
		ipStr = ip.String()
	}

	if len(m.restricted) > 0 {
		return !matchClient(m.restricted, m.restrictedSubnets, name, ip, ipStr)
	}

	return matchClient(m.permitted, m.permittedSubnets, name, ip, ipStr)
}

// matchClient returns true if the client is among clients or in any of the
// subnets.
func matchClient(
	clients []string,
	subnets []netip.Prefix,
	name string,
	ip netip.Addr,
	ipStr string,
) (ok bool) {
	if name != "" && slices.Contains(clients, name) {
		return true
	}

	if !ip.IsValid() {
		return false
	}

	if slices.Contains(clients, ipStr) {
		return true
	}

	return slices.ContainsFunc(subnets, func(p netip.Prefix) (contains bool) {
		return p.Contains(ip)
	})
}

// DNSTypeModifier is the $dnstype modifier.
type DNSTypeModifier struct {
	value      string
	permitted  []uint16
	restricted []uint16
}

// NewDNSTypeModifier parses the value of the $dnstype modifier.  If any type is
// permitted, the restricted ones are ignored.
func NewDNSTypeModifier(value string) (m *DNSTypeModifier, err error) {
	l, err := parseValuesList(value, "|")
	if err != nil {
		return nil, fmt.Errorf("$dnstype: %w", err)
	}

	m = &DNSTypeModifier{value: value}
	m.permitted, err = parseDNSTypes(l.permitted)
	if err != nil {
		return nil, err
	}

	if len(m.permitted) == 0 {
		m.restricted, err = parseDNSTypes(l.restricted)
		if err != nil {
			return nil, err
		}
	}

	return m, nil
}

// parseDNSTypes converts the names of DNS record types into their values.
func parseDNSTypes(names []string) (types []uint16, err error) {
	for _, n := range names {
		t, ok := dns.StringToType[strings.ToUpper(n)]
		if !ok {
			return nil, fmt.Errorf("$dnstype: unknown dns type %q", n)
		}

		types = append(types, t)
	}

	return types, nil
}

// Value implements the [AdvancedModifier] interface for *DNSTypeModifier.
func (m *DNSTypeModifier) Value() (v string) { return m.value }

// isAdvancedModifier implements the [AdvancedModifier] interface for
// *DNSTypeModifier.
func (*DNSTypeModifier) isAdvancedModifier() {}

// Match returns true if the rule applies to the DNS record type qtype.
func (m *DNSTypeModifier) Match(qtype uint16) (ok bool) {
	if qtype == 0 {
		return false
	}

	if slices.Contains(m.restricted, qtype) {
		return false
	}

	return len(m.permitted) == 0 || slices.Contains(m.permitted, qtype)
}

// allowedCtags are the client tags allowed in the $ctag modifier.
var allowedCtags = []string{
	"device_audio",
	"device_camera",
	"device_gameconsole",
	"device_laptop",
	"device_nas",
	"device_pc",
	"device_phone",
	"device_printer",
	"device_securityalarm",
	"device_tablet",
	"device_tv",
	"device_other",
	"os_android",
	"os_ios",
	"os_linux",
	"os_macos",
	"os_windows",
	"os_other",
	"user_admin",
	"user_regular",
	"user_child",
}

// CtagModifier is the $ctag modifier.
type CtagModifier struct {
	valuesList

	value string
}

// NewCtagModifier parses the value of the $ctag modifier.  Only the known tags
// are allowed.
func NewCtagModifier(value string) (m *CtagModifier, err error) {
	l, err := parseValuesList(value, "|")
	if err != nil {
		return nil, fmt.Errorf("$ctag: %w", err)
	}

	for _, tag := range slices.Concat(l.permitted, l.restricted) {
		if !slices.Contains(allowedCtags, tag) {
			return nil, fmt.Errorf("invalid ctag %q", tag)
		}
	}

	return &CtagModifier{valuesList: l, value: value}, nil
}

// Value implements the [AdvancedModifier] interface for *CtagModifier.
func (m *CtagModifier) Value() (v string) { return m.value }

// isAdvancedModifier implements the [AdvancedModifier] interface for
// *CtagModifier.
func (*CtagModifier) isAdvancedModifier() {}

// MatchTags returns true if the rule applies to a client with the sorted tags.
// Every tag of the client must match.
func (m *CtagModifier) MatchTags(sortedTags []string) (ok bool) {
	if len(sortedTags) == 0 {
		return false
	}

	for _, t := range sortedTags {
		if !m.match(t) {
			return false
		}
	}

	return true
}

// DNSRewrite is the parsed result of the $dnsrewrite modifier.
type DNSRewrite struct {
	// Value is the value of the resource record: a [netip.Addr] for A and
	// AAAA, a string for PTR and TXT, or a *DNSMX for MX.
	Value any

	// NewCNAME is the canonical name the request is rewritten to, if any.
	NewCNAME string

	// RCode is the response code.
	RCode int

	// RRType is the type of the resource record.
	RRType uint16
}

// DNSMX is the value of an MX rewrite.
type DNSMX struct {
	Exchange   string
	Preference uint16
}

// DNSRewriteModifier is the $dnsrewrite modifier.
type DNSRewriteModifier struct {
	rewrite *DNSRewrite
	value   string
}

// NewDNSRewriteModifier parses the value of the $dnsrewrite modifier: either a
// short form, "1.2.3.4", "host.example", or "NXDOMAIN", or the full form
// "RCODE;RRTYPE;VALUE".  An empty value is only allowed in allowlist rules.
func NewDNSRewriteModifier(value string, isAllowlist bool) (m *DNSRewriteModifier, err error) {
	m = &DNSRewriteModifier{value: value}
	if value == "" {
		if !isAllowlist {
			return nil, fmt.Errorf("$dnsrewrite: %w", ErrEmptyValue)
		}

		return m, nil
	}

	parts := strings.Split(value, ";")
	switch len(parts) {
	case 1:
		m.rewrite, err = parseDNSRewriteShort(value)
	case 3:
		m.rewrite, err = parseDNSRewriteFull(parts[0], parts[1], parts[2])
	default:
		err = fmt.Errorf("expected zero or two delimiters in %q", value)
	}

	if err != nil {
		return nil, fmt.Errorf("$dnsrewrite: %w", err)
	}

	return m, nil
}

// parseDNSRewriteShort parses the short form of $dnsrewrite.
func parseDNSRewriteShort(s string) (rw *DNSRewrite, err error) {
	if rcode, ok := dns.StringToRcode[strings.ToUpper(s)]; ok {
		return &DNSRewrite{RCode: rcode}, nil
	}

	if ip, parseErr := netip.ParseAddr(s); parseErr == nil {
		rrType := dns.TypeA
		if ip.Is6() {
			rrType = dns.TypeAAAA
		}

		return &DNSRewrite{RCode: dns.RcodeSuccess, RRType: rrType, Value: ip}, nil
	}

	err = netutil.ValidateDomainName(s)
	if err != nil {
		return nil, err
	}

	return &DNSRewrite{RCode: dns.RcodeSuccess, RRType: dns.TypeCNAME, NewCNAME: s}, nil
}

// parseDNSRewriteFull parses the full form of $dnsrewrite.
func parseDNSRewriteFull(rcodeStr, rrTypeStr, valStr string) (rw *DNSRewrite, err error) {
	rcode, ok := dns.StringToRcode[strings.ToUpper(rcodeStr)]
	if !ok {
		return nil, fmt.Errorf("unknown rcode %q", rcodeStr)
	}

	rw = &DNSRewrite{RCode: rcode}
	if rcode != dns.RcodeSuccess {
		return rw, nil
	}

	rw.RRType, ok = dns.StringToType[strings.ToUpper(rrTypeStr)]
	if !ok {
		return nil, fmt.Errorf("unknown rr type %q", rrTypeStr)
	}

	switch rw.RRType {
	case dns.TypeA, dns.TypeAAAA:
		return rw, parseDNSRewriteIP(rw, valStr)
	case dns.TypeCNAME:
		rw.NewCNAME = valStr

		return rw, netutil.ValidateDomainName(valStr)
	case dns.TypeMX:
		return rw, parseDNSRewriteMX(rw, valStr)
	case dns.TypePTR, dns.TypeTXT:
		rw.Value = valStr

		return rw, nil
	default:
		if valStr != "" {
			return nil, fmt.Errorf("unsupported rr type %q with value", rrTypeStr)
		}

		return rw, nil
	}
}

// parseDNSRewriteIP sets the IP address value of an A or AAAA rewrite.  An
// empty value means an empty answer.
func parseDNSRewriteIP(rw *DNSRewrite, valStr string) (err error) {
	if valStr == "" {
		return nil
	}

	ip, err := netip.ParseAddr(valStr)
	if err != nil {
		return err
	}

	if ip.Is4() != (rw.RRType == dns.TypeA) {
		return fmt.Errorf("ip %s doesn't match rr type %s", ip, dns.TypeToString[rw.RRType])
	}

	rw.Value = ip

	return nil
}

// parseDNSRewriteMX sets the value of an MX rewrite, "preference exchange".
func parseDNSRewriteMX(rw *DNSRewrite, valStr string) (err error) {
	prefStr, exch, ok := strings.Cut(valStr, " ")
	if !ok {
		return fmt.Errorf("invalid mx value %q", valStr)
	}

	pref, err := strconv.ParseUint(prefStr, 10, 16)
	if err != nil {
		return fmt.Errorf("invalid mx preference: %w", err)
	}

	rw.Value = &DNSMX{Exchange: exch, Preference: uint16(pref)}

	return nil
}

// Value implements the [AdvancedModifier] interface for *DNSRewriteModifier.
func (m *DNSRewriteModifier) Value() (v string) { return m.value }

// isAdvancedModifier implements the [AdvancedModifier] interface for
// *DNSRewriteModifier.
func (*DNSRewriteModifier) isAdvancedModifier() {}

// Rewrite returns the parsed rewrite.  It's nil for an empty modifier.
func (m *DNSRewriteModifier) Rewrite() (rw *DNSRewrite) { return m.rewrite }
