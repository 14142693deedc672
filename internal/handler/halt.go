package handler

import (
	"context"

	"github.com/miekg/dns"
)

// haltA halts the processing of A requests if IPv4 is disabled.  req must not
// be nil.
func (f *Filter) haltA(ctx context.Context, req *dns.Msg) (resp *dns.Msg) {
	if f.isIPv4Halted && req.Question[0].Qtype == dns.TypeA {
		f.logger.DebugContext(
			ctx,
			"ipv4 is disabled; replying with empty response",
			"req", req.Question[0].Name,
		)

		return f.messages.NewMsgNODATA(req)
	}

	return nil
}

// haltAAAA halts the processing of AAAA requests if IPv6 is disabled.  req
// must not be nil.
func (f *Filter) haltAAAA(ctx context.Context, req *dns.Msg) (resp *dns.Msg) {
	if f.isIPv6Halted && req.Question[0].Qtype == dns.TypeAAAA {
		f.logger.DebugContext(
			ctx,
			"ipv6 is disabled; replying with empty response",
			"req", req.Question[0].Name,
		)

		return f.messages.NewMsgNODATA(req)
	}

	return nil
}
