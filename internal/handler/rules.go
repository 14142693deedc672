package handler

import (
	"context"
	"net/netip"
	"strings"

	"github.com/fcchbjm/adfilter/filter"
	"github.com/fcchbjm/adfilter/rules"
	"github.com/miekg/dns"
)

// filterRequest matches req against the filtering rules and returns the
// response for the blocked, rewritten, or locally resolved requests.  The
// $dnsrewrite rules take precedence over the blocking ones.
func (f *Filter) filterRequest(
	ctx context.Context,
	req *dns.Msg,
	clientIP netip.Addr,
) (resp *dns.Msg) {
	q := req.Question[0]
	host := strings.ToLower(strings.TrimSuffix(q.Name, "."))

	res, ok := f.engine.MatchRequest(ctx, &filter.DNSRequest{
		ClientIP: clientIP,
		Hostname: host,
		DNSType:  q.Qtype,
	})
	if !ok {
		return nil
	}

	if rws := res.DNSRewrites(); len(rws) > 0 {
		return f.rewrite(ctx, req, rws)
	}

	if r := res.NetworkRule; r != nil {
		if r.IsAllowlist() {
			f.logger.DebugContext(ctx, "allowed", "host", host, "rule", r.Text(), "list", r.ListID())

			return nil
		}

		f.logger.DebugContext(ctx, "blocked", "host", host, "rule", r.Text(), "list", r.ListID())

		return f.messages.NewBlockedResponse(req, f.blockingMode)
	}

	return f.resolveFromHostRules(ctx, req, res)
}

// rewrite returns the response with the results of the $dnsrewrite rules.
func (f *Filter) rewrite(ctx context.Context, req *dns.Msg, rs []*rules.NetworkRule) (resp *dns.Msg) {
	rws := make([]*rules.DNSRewrite, 0, len(rs))
	for _, r := range rs {
		m, ok := r.AdvancedModifier().(*rules.DNSRewriteModifier)
		if !ok || m.Rewrite() == nil {
			continue
		}

		f.logger.DebugContext(ctx, "rewritten", "rule", r.Text(), "list", r.ListID())

		rws = append(rws, m.Rewrite())
	}

	if len(rws) == 0 {
		return nil
	}

	return f.messages.NewRewriteResponse(req, rws)
}

// resolveFromHostRules returns the response with the addresses of the matching
// host rules or nil if there are none.  The requests of other types than A and
// AAAA and the ones for the family without host rules get NODATA.
func (f *Filter) resolveFromHostRules(
	ctx context.Context,
	req *dns.Msg,
	res *filter.DNSResult,
) (resp *dns.Msg) {
	if len(res.HostRulesV4) == 0 && len(res.HostRulesV6) == 0 {
		return nil
	}

	var hostRules []*rules.HostRule
	switch req.Question[0].Qtype {
	case dns.TypeA:
		hostRules = res.HostRulesV4
	case dns.TypeAAAA:
		hostRules = res.HostRulesV6
	default:
		// Go on.
	}

	if len(hostRules) == 0 {
		return f.messages.NewMsgNODATA(req)
	}

	ips := make([]netip.Addr, 0, len(hostRules))
	for _, r := range hostRules {
		f.logger.DebugContext(ctx, "resolved from host rule", "rule", r.Text(), "list", r.ListID())

		ips = append(ips, r.IP().Unmap())
	}

	return f.messages.NewIPResponse(req, ips)
}
