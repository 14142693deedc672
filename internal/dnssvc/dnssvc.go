// Package dnssvc contains the plain DNS service that filters the requests with
// the rules and forwards the rest to the upstream server.
package dnssvc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/fcchbjm/adfilter/internal/dnsmsg"
	"github.com/fcchbjm/adfilter/internal/netutil"
	"github.com/fcchbjm/adfilter/internal/ratelimit"
	"github.com/miekg/dns"
)

// RequestHandler answers the DNS requests that shouldn't be forwarded.
type RequestHandler interface {
	// HandleRequest returns the response to req from clientIP or nil if req
	// should be forwarded to the upstream.
	HandleRequest(ctx context.Context, req *dns.Msg, clientIP netip.Addr) (resp *dns.Msg)
}

// Config is the configuration of a [Service].
type Config struct {
	// Logger is used for logging the service events.  It must not be nil.
	Logger *slog.Logger

	// Handler answers the filtered requests.  It must not be nil.
	Handler RequestHandler

	// Messages constructs the error responses.  It must not be nil.
	Messages dnsmsg.MessageConstructor

	// Limiter limits the UDP requests from the client subnets.  It must not be
	// nil.
	Limiter *ratelimit.Limiter

	// Upstream is the address of the plain DNS upstream server.
	Upstream netip.AddrPort

	// ListenAddrs are the addresses to serve UDP and TCP on.  It must not be
	// empty.
	ListenAddrs []netip.AddrPort

	// Timeout is the timeout of the upstream exchanges.  It must be positive.
	Timeout time.Duration

	// CacheSize is the size of the response cache in bytes.  0 disables
	// caching.
	CacheSize uint
}

// Service is the plain DNS service.
type Service struct {
	logger   *slog.Logger
	handler  RequestHandler
	messages dnsmsg.MessageConstructor
	limiter  *ratelimit.Limiter
	cache    *cache
	udp      *dns.Client
	tcp      *dns.Client

	// mu protects servers.
	mu      *sync.Mutex
	servers []*dns.Server

	upstream    string
	listenAddrs []netip.AddrPort
	timeout     time.Duration
}

// New returns a new properly initialized service.  c must be valid.
func New(c *Config) (svc *Service) {
	svc = &Service{
		logger:      c.Logger,
		handler:     c.Handler,
		messages:    c.Messages,
		limiter:     c.Limiter,
		udp:         &dns.Client{Net: "udp", Timeout: c.Timeout},
		tcp:         &dns.Client{Net: "tcp", Timeout: c.Timeout},
		mu:          &sync.Mutex{},
		upstream:    c.Upstream.String(),
		listenAddrs: c.ListenAddrs,
		timeout:     c.Timeout,
	}

	if c.CacheSize > 0 {
		svc.cache = newCache(c.CacheSize)
	}

	return svc
}

// Start starts serving on all the listen addresses.  It returns once all the
// listeners are bound.
func (svc *Service) Start(ctx context.Context) (err error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	lc := netutil.ListenConfig(svc.logger)
	for _, addr := range svc.listenAddrs {
		var pc net.PacketConn
		pc, err = lc.ListenPacket(ctx, "udp", addr.String())
		if err != nil {
			return fmt.Errorf("listening udp on %s: %w", addr, err)
		}

		err = svc.serve(ctx, &dns.Server{PacketConn: pc, Handler: svc})
		if err != nil {
			return fmt.Errorf("serving udp on %s: %w", addr, err)
		}

		var l net.Listener
		l, err = lc.Listen(ctx, "tcp", addr.String())
		if err != nil {
			return fmt.Errorf("listening tcp on %s: %w", addr, err)
		}

		err = svc.serve(ctx, &dns.Server{Listener: l, Handler: svc})
		if err != nil {
			return fmt.Errorf("serving tcp on %s: %w", addr, err)
		}

		svc.logger.InfoContext(ctx, "listening", "addr", addr)
	}

	return nil
}

// serve starts srv in a separate goroutine and waits until it's started.
// svc.mu must be locked.
func (svc *Service) serve(ctx context.Context, srv *dns.Server) (err error) {
	startCh := make(chan struct{})
	errCh := make(chan error, 1)
	srv.NotifyStartedFunc = func() { close(startCh) }

	go func() {
		defer slogutil.RecoverAndLog(ctx, svc.logger)

		errCh <- srv.ActivateAndServe()
	}()

	select {
	case <-startCh:
		svc.servers = append(svc.servers, srv)

		go svc.logServeErr(ctx, errCh)

		return nil
	case err = <-errCh:
		return fmt.Errorf("starting server: %w", err)
	}
}

// logServeErr logs the error from errCh if any.
func (svc *Service) logServeErr(ctx context.Context, errCh <-chan error) {
	defer slogutil.RecoverAndLog(ctx, svc.logger)

	if err := <-errCh; err != nil {
		svc.logger.ErrorContext(ctx, "serving", slogutil.KeyError, err)
	}
}

// Shutdown stops all the servers.
func (svc *Service) Shutdown(ctx context.Context) (err error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	var errs []error
	for _, srv := range svc.servers {
		errs = append(errs, srv.ShutdownContext(ctx))
	}

	svc.servers = nil

	return errors.Join(errs...)
}

// LocalAddrs returns the addresses the UDP servers are bound to.
func (svc *Service) LocalAddrs() (addrs []net.Addr) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	for _, srv := range svc.servers {
		if srv.PacketConn != nil {
			addrs = append(addrs, srv.PacketConn.LocalAddr())
		}
	}

	return addrs
}

// type check
var _ dns.Handler = (*Service)(nil)

// ServeDNS implements the [dns.Handler] interface for *Service.
func (svc *Service) ServeDNS(w dns.ResponseWriter, req *dns.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), svc.timeout)
	defer cancel()

	if len(req.Question) != 1 {
		svc.write(ctx, w, svc.messages.NewMsgREFUSED(req))

		return
	}

	clientIP, isUDP := clientAddr(w.RemoteAddr())
	if isUDP && svc.limiter.IsRateLimited(ctx, clientIP) {
		// Drop the request.
		return
	}

	resp := svc.handler.HandleRequest(ctx, req, clientIP)
	if resp == nil {
		resp = svc.resolve(ctx, req)
	}

	svc.write(ctx, w, resp)
}

// resolve returns the response to req from the cache or from the upstream.
func (svc *Service) resolve(ctx context.Context, req *dns.Msg) (resp *dns.Msg) {
	if svc.cache != nil {
		if resp = svc.cache.get(req, time.Now()); resp != nil {
			svc.logger.DebugContext(ctx, "cache hit", "req", &req.Question[0])

			return resp
		}
	}

	resp, err := svc.exchange(ctx, req)
	if err != nil {
		svc.logger.DebugContext(ctx, "exchanging with upstream", slogutil.KeyError, err)

		return svc.messages.NewMsgSERVFAIL(req)
	}

	if svc.cache != nil {
		svc.cache.set(resp, time.Now())
	}

	return resp
}

// exchange sends req to the upstream over UDP and retries over TCP if the
// response is truncated.
func (svc *Service) exchange(ctx context.Context, req *dns.Msg) (resp *dns.Msg, err error) {
	resp, _, err = svc.udp.ExchangeContext(ctx, req, svc.upstream)
	if err != nil {
		return nil, fmt.Errorf("udp: %w", err)
	}

	if !resp.Truncated {
		return resp, nil
	}

	resp, _, err = svc.tcp.ExchangeContext(ctx, req, svc.upstream)
	if err != nil {
		return nil, fmt.Errorf("tcp: %w", err)
	}

	return resp, nil
}

// write writes resp to w and logs the errors.
func (svc *Service) write(ctx context.Context, w dns.ResponseWriter, resp *dns.Msg) {
	err := w.WriteMsg(resp)
	if err != nil {
		svc.logger.DebugContext(ctx, "writing response", slogutil.KeyError, err)
	}
}

// clientAddr returns the IP address of the client and whether the request
// came over UDP.
func clientAddr(addr net.Addr) (ip netip.Addr, isUDP bool) {
	switch addr := addr.(type) {
	case *net.UDPAddr:
		return addr.AddrPort().Addr().Unmap(), true
	case *net.TCPAddr:
		return addr.AddrPort().Addr().Unmap(), false
	default:
		return netip.Addr{}, false
	}
}
