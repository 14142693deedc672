// Package handler contains the DNS request handling logic that applies the
// filtering rules, the hosts files, and the IP family restrictions.
package handler

import (
	"context"
	"log/slog"
	"net/netip"

	"github.com/fcchbjm/adfilter/filter"
	"github.com/fcchbjm/adfilter/internal/dnsmsg"
	"github.com/miekg/dns"
)

// FilterConfig is the configuration for [Filter].
type FilterConfig struct {
	// Logger is the logger.  It must not be nil.
	Logger *slog.Logger

	// Messages constructs DNS messages.  It must not be nil.
	Messages dnsmsg.MessageConstructor

	// Engine is the DNS filtering engine.  It must not be nil.
	Engine *filter.DNSEngine

	// Hosts resolves the names from the system hosts files.  If it's nil,
	// the hosts files aren't used.
	Hosts *Hosts

	// BlockingMode defines the responses to the blocked requests.  It must be
	// valid.
	BlockingMode dnsmsg.BlockingMode

	// HaltIPv4 halts the processing of A requests and makes the handler reply
	// with NODATA to them.
	HaltIPv4 bool

	// HaltIPv6 halts the processing of AAAA requests and makes the handler
	// reply with NODATA to them.
	HaltIPv6 bool
}

// Filter answers the DNS requests that are blocked, rewritten, or resolved
// locally.  It's safe for concurrent use.
type Filter struct {
	messages     dnsmsg.MessageConstructor
	engine       *filter.DNSEngine
	hosts        *Hosts
	logger       *slog.Logger
	blockingMode dnsmsg.BlockingMode
	isIPv4Halted bool
	isIPv6Halted bool
}

// NewFilter creates a new [Filter].  c must not be nil.
func NewFilter(c *FilterConfig) (f *Filter) {
	return &Filter{
		messages:     c.Messages,
		engine:       c.Engine,
		hosts:        c.Hosts,
		logger:       c.Logger,
		blockingMode: c.BlockingMode,
		isIPv4Halted: c.HaltIPv4,
		isIPv6Halted: c.HaltIPv6,
	}
}

// HandleRequest returns the response to req from the client with the address
// clientIP.  resp is nil if the request should be forwarded to the upstream.
// req must have exactly one question.
func (f *Filter) HandleRequest(
	ctx context.Context,
	req *dns.Msg,
	clientIP netip.Addr,
) (resp *dns.Msg) {
	f.logger.DebugContext(ctx, "handling request", "req", &req.Question[0])

	if resp = f.haltA(ctx, req); resp != nil {
		return resp
	}

	if resp = f.haltAAAA(ctx, req); resp != nil {
		return resp
	}

	if resp = f.resolveFromHosts(ctx, req); resp != nil {
		return resp
	}

	return f.filterRequest(ctx, req, clientIP)
}
