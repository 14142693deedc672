// Package ratelimit provides a rate limiting functionality.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"slices"
	"sync"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	rate "github.com/beefsack/go-rate"
	gocache "github.com/patrickmn/go-cache"
)

// bucketTTL is the time a rate limiter of a subnet is kept since it was last
// used.
const bucketTTL = 1 * time.Hour

// Config is the configuration for a [Limiter].
type Config struct {
	// Logger is used for logging in the limiter.  It must not be nil.
	Logger *slog.Logger

	// AllowlistAddrs is a list of IP addresses excluded from rate limiting.
	// It's sorted by [New].
	AllowlistAddrs []netip.Addr

	// Ratelimit is a maximum number of requests per second from a given
	// subnet, 0 disables rate limiting.
	Ratelimit int

	// SubnetLenIPv4 is a subnet length for IPv4 addresses used for rate
	// limiting requests.
	SubnetLenIPv4 int

	// SubnetLenIPv6 is a subnet length for IPv6 addresses used for rate
	// limiting requests.
	SubnetLenIPv6 int
}

// Limiter limits the number of requests from client subnets.  It's safe for
// concurrent use.
type Limiter struct {
	buckets *gocache.Cache
	logger  *slog.Logger

	// mu protects buckets from creating two limiters for the same subnet.
	mu *sync.Mutex

	allowlistAddrs []netip.Addr
	ratelimit      int
	subnetLenIPv4  int
	subnetLenIPv6  int
}

// New returns a new limiter.  c must be valid.
func New(c *Config) (l *Limiter) {
	allowlist := slices.Clone(c.AllowlistAddrs)
	slices.SortFunc(allowlist, netip.Addr.Compare)

	return &Limiter{
		buckets:        gocache.New(bucketTTL, bucketTTL),
		logger:         c.Logger,
		mu:             &sync.Mutex{},
		allowlistAddrs: allowlist,
		ratelimit:      c.Ratelimit,
		subnetLenIPv4:  c.SubnetLenIPv4,
		subnetLenIPv6:  c.SubnetLenIPv6,
	}
}

// limiterForSubnet returns a rate limiter for the specified subnet.
func (l *Limiter) limiterForSubnet(subnet string) (v any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, found := l.buckets.Get(subnet)
	if !found {
		v = rate.New(l.ratelimit, time.Second)
	}

	// Prolong the life of the limiter.
	l.buckets.Set(subnet, v, bucketTTL)

	return v
}

// IsRateLimited returns true if the request from addr should be dropped.
func (l *Limiter) IsRateLimited(ctx context.Context, addr netip.Addr) (ok bool) {
	if l.ratelimit <= 0 {
		return false
	}

	addr = addr.Unmap()
	_, ok = slices.BinarySearchFunc(l.allowlistAddrs, addr, netip.Addr.Compare)
	if ok {
		return false
	}

	var pref netip.Prefix
	if addr.Is4() {
		pref = netip.PrefixFrom(addr, l.subnetLenIPv4)
	} else {
		pref = netip.PrefixFrom(addr, l.subnetLenIPv6)
	}

	value := l.limiterForSubnet(pref.Masked().Addr().String())
	rl, ok := value.(*rate.RateLimiter)
	if !ok {
		l.logger.ErrorContext(
			ctx,
			"invalid value found in ratelimit cache",
			slogutil.KeyError,
			fmt.Errorf("bad type %T", value),
		)

		return false
	}

	allow, _ := rl.Try()
	if !allow {
		l.logger.DebugContext(ctx, "ratelimited", "addr", addr, "subnet", pref.Masked())
	}

	return !allow
}
