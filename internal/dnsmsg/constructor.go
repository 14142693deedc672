// Package dnsmsg contains common constants, functions, and types for inspecting
// and constructing DNS messages.
package dnsmsg

import (
	"net/netip"
	"strings"

	"github.com/fcchbjm/adfilter/rules"
	"github.com/miekg/dns"
)

// DefaultTTL is the TTL of the resource records in the constructed responses,
// in seconds.
const DefaultTTL = 10

// MessageConstructor creates DNS messages.
type MessageConstructor interface {
	// NewMsgNXDOMAIN creates a new response message replying to req with the
	// NXDOMAIN code.
	NewMsgNXDOMAIN(req *dns.Msg) (resp *dns.Msg)

	// NewMsgSERVFAIL creates a new response message replying to req with the
	// SERVFAIL code.
	NewMsgSERVFAIL(req *dns.Msg) (resp *dns.Msg)

	// NewMsgREFUSED creates a new response message replying to req with the
	// REFUSED code.
	NewMsgREFUSED(req *dns.Msg) (resp *dns.Msg)

	// NewMsgNODATA creates a new empty response message replying to req with
	// the NOERROR code.
	//
	// See https://www.rfc-editor.org/rfc/rfc2308#section-2.2.
	NewMsgNODATA(req *dns.Msg) (resp *dns.Msg)

	// NewIPResponse creates a new A or AAAA response message for req with the
	// addresses of the question's family from ips.
	NewIPResponse(req *dns.Msg, ips []netip.Addr) (resp *dns.Msg)

	// NewPTRResponse creates a new PTR response message for req with the given
	// domain names.
	NewPTRResponse(req *dns.Msg, ptrs []string) (resp *dns.Msg)

	// NewBlockedResponse creates a new response message for a request blocked
	// by a filtering rule.
	NewBlockedResponse(req *dns.Msg, mode BlockingMode) (resp *dns.Msg)

	// NewRewriteResponse creates a new response message for req from the
	// $dnsrewrite results.  rws must not be empty.
	NewRewriteResponse(req *dns.Msg, rws []*rules.DNSRewrite) (resp *dns.Msg)
}

// DefaultMessageConstructor is a default implementation of
// [MessageConstructor].
type DefaultMessageConstructor struct{}

// type check
var _ MessageConstructor = DefaultMessageConstructor{}

// NewMsgNXDOMAIN implements the [MessageConstructor] interface for
// DefaultMessageConstructor.
func (DefaultMessageConstructor) NewMsgNXDOMAIN(req *dns.Msg) (resp *dns.Msg) {
	return reply(req, dns.RcodeNameError)
}

// NewMsgSERVFAIL implements the [MessageConstructor] interface for
// DefaultMessageConstructor.
func (DefaultMessageConstructor) NewMsgSERVFAIL(req *dns.Msg) (resp *dns.Msg) {
	return reply(req, dns.RcodeServerFailure)
}

// NewMsgREFUSED implements the [MessageConstructor] interface for
// DefaultMessageConstructor.
func (DefaultMessageConstructor) NewMsgREFUSED(req *dns.Msg) (resp *dns.Msg) {
	return reply(req, dns.RcodeRefused)
}

// NewMsgNODATA implements the [MessageConstructor] interface for
// DefaultMessageConstructor.
func (DefaultMessageConstructor) NewMsgNODATA(req *dns.Msg) (resp *dns.Msg) {
	resp = reply(req, dns.RcodeSuccess)
	resp.Ns = append(resp.Ns, newSOA(req.Question[0].Name))

	return resp
}

// newSOA returns the SOA record for negative caching of the answers in zone.
func newSOA(zone string) (soa *dns.SOA) {
	soa = &dns.SOA{
		// Values copied from verisign's nonexistent .com domain.
		//
		// Their exact values are not important in our use case because they are
		// used for domain transfers between primary/secondary DNS servers.
		Refresh: 1800,
		Retry:   60,
		Expire:  604800,
		Minttl:  86400,
		Ns:      "fake-for-negative-caching.adfilter.invalid.",
		Serial:  100500,
		Mbox:    "hostmaster.",
		Hdr:     hdr(zone, dns.TypeSOA),
	}

	if !strings.HasPrefix(zone, ".") {
		soa.Mbox += zone
	}

	return soa
}

// NewIPResponse implements the [MessageConstructor] interface for
// DefaultMessageConstructor.  Questions of other types get an empty answer.
func (DefaultMessageConstructor) NewIPResponse(req *dns.Msg, ips []netip.Addr) (resp *dns.Msg) {
	resp = reply(req, dns.RcodeSuccess)
	resp.Compress = true

	q := req.Question[0]
	for _, ip := range ips {
		switch {
		case q.Qtype == dns.TypeA && ip.Is4():
			resp.Answer = append(resp.Answer, newAnswerA(q.Name, ip))
		case q.Qtype == dns.TypeAAAA && ip.Is6():
			resp.Answer = append(resp.Answer, newAnswerAAAA(q.Name, ip))
		default:
			// Go on.
		}
	}

	return resp
}

// NewPTRResponse implements the [MessageConstructor] interface for
// DefaultMessageConstructor.
func (DefaultMessageConstructor) NewPTRResponse(req *dns.Msg, ptrs []string) (resp *dns.Msg) {
	resp = reply(req, dns.RcodeSuccess)
	resp.Compress = true

	name := req.Question[0].Name
	for _, ptr := range ptrs {
		resp.Answer = append(resp.Answer, &dns.PTR{
			Hdr: hdr(name, dns.TypePTR),
			Ptr: dns.Fqdn(ptr),
		})
	}

	return resp
}

// NewBlockedResponse implements the [MessageConstructor] interface for
// DefaultMessageConstructor.
func (c DefaultMessageConstructor) NewBlockedResponse(
	req *dns.Msg,
	mode BlockingMode,
) (resp *dns.Msg) {
	switch mode {
	case BlockingModeNullIP:
		switch req.Question[0].Qtype {
		case dns.TypeA:
			return c.NewIPResponse(req, []netip.Addr{netip.IPv4Unspecified()})
		case dns.TypeAAAA:
			return c.NewIPResponse(req, []netip.Addr{netip.IPv6Unspecified()})
		default:
			return c.NewMsgNODATA(req)
		}
	case BlockingModeRefused:
		return c.NewMsgREFUSED(req)
	default:
		return c.NewMsgNXDOMAIN(req)
	}
}

// NewRewriteResponse implements the [MessageConstructor] interface for
// DefaultMessageConstructor.  The response code of the first rewrite is used
// and, if it's NOERROR, the answer contains the records of the rewrites of the
// question's type together with the CNAME ones.
func (c DefaultMessageConstructor) NewRewriteResponse(
	req *dns.Msg,
	rws []*rules.DNSRewrite,
) (resp *dns.Msg) {
	rcode := rws[0].RCode
	if rcode != dns.RcodeSuccess {
		return reply(req, rcode)
	}

	resp = reply(req, dns.RcodeSuccess)
	resp.Compress = true

	q := req.Question[0]
	for _, rw := range rws {
		if rw.NewCNAME != "" {
			resp.Answer = append(resp.Answer, &dns.CNAME{
				Hdr:    hdr(q.Name, dns.TypeCNAME),
				Target: dns.Fqdn(rw.NewCNAME),
			})

			continue
		}

		if rw.RRType != q.Qtype {
			continue
		}

		if rr := newRewriteRR(q.Name, rw); rr != nil {
			resp.Answer = append(resp.Answer, rr)
		}
	}

	if len(resp.Answer) == 0 {
		return c.NewMsgNODATA(req)
	}

	return resp
}

// newRewriteRR returns the resource record for the value of rw or nil if rw
// has no value.
func newRewriteRR(name string, rw *rules.DNSRewrite) (rr dns.RR) {
	switch v := rw.Value.(type) {
	case netip.Addr:
		if v.Is4() {
			return newAnswerA(name, v)
		}

		return newAnswerAAAA(name, v)
	case *rules.DNSMX:
		return &dns.MX{
			Hdr:        hdr(name, dns.TypeMX),
			Preference: v.Preference,
			Mx:         dns.Fqdn(v.Exchange),
		}
	case string:
		if rw.RRType == dns.TypePTR {
			return &dns.PTR{
				Hdr: hdr(name, dns.TypePTR),
				Ptr: dns.Fqdn(v),
			}
		}

		return &dns.TXT{
			Hdr: hdr(name, dns.TypeTXT),
			Txt: []string{v},
		}
	default:
		return nil
	}
}

// hdr creates a new DNS header with the given name and RR type.
func hdr(name string, rrType uint16) (h dns.RR_Header) {
	return dns.RR_Header{
		Name:   name,
		Rrtype: rrType,
		Ttl:    DefaultTTL,
		Class:  dns.ClassINET,
	}
}

// newAnswerA creates a DNS A answer for name with the given IP address.
func newAnswerA(name string, ip netip.Addr) (ans *dns.A) {
	return &dns.A{
		Hdr: hdr(name, dns.TypeA),
		A:   ip.AsSlice(),
	}
}

// newAnswerAAAA creates a DNS AAAA answer for name with the given IP address.
func newAnswerAAAA(name string, ip netip.Addr) (ans *dns.AAAA) {
	return &dns.AAAA{
		Hdr:  hdr(name, dns.TypeAAAA),
		AAAA: ip.AsSlice(),
	}
}

// reply creates a new response message replying to req with the given code.
func reply(req *dns.Msg, code int) (resp *dns.Msg) {
	resp = (&dns.Msg{}).SetRcode(req, code)
	resp.RecursionAvailable = true

	return resp
}
