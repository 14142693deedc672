package dnssvc

import (
	"encoding/binary"
	"math"
	"strings"
	"time"

	glcache "github.com/AdguardTeam/golibs/cache"
	"github.com/miekg/dns"
)

// cache is the LRU cache of the upstream responses.  It's safe for concurrent
// use.
type cache struct {
	items glcache.Cache
}

// newCache returns a new cache of maxSize bytes.
func newCache(maxSize uint) (c *cache) {
	return &cache{
		items: glcache.New(glcache.Config{
			MaxSize:   maxSize,
			EnableLRU: true,
		}),
	}
}

// get returns the cached response for req with the TTLs decreased by the time
// spent in the cache.  resp is nil if there is no valid cached response.
func (c *cache) get(req *dns.Msg, now time.Time) (resp *dns.Msg) {
	k := cacheKey(req)
	data := c.items.Get(k)
	if len(data) < 4 {
		return nil
	}

	ttl := int64(binary.BigEndian.Uint32(data[:4])) - now.Unix()
	if ttl <= 0 {
		c.items.Del(k)

		return nil
	}

	resp = &dns.Msg{}
	if resp.Unpack(data[4:]) != nil {
		return nil
	}

	resp.Id = req.Id
	for _, rrs := range [][]dns.RR{resp.Answer, resp.Ns} {
		for _, rr := range rrs {
			rr.Header().Ttl = uint32(ttl)
		}
	}

	return resp
}

// set caches resp if it's cacheable.
func (c *cache) set(resp *dns.Msg, now time.Time) {
	ttl, ok := cacheTTL(resp)
	if !ok {
		return
	}

	packed, err := resp.Pack()
	if err != nil {
		return
	}

	data := make([]byte, 4+len(packed))
	binary.BigEndian.PutUint32(data, uint32(now.Unix())+ttl)
	copy(data[4:], packed)

	_ = c.items.Set(cacheKey(resp), data)
}

// cacheTTL returns the lowest TTL of the records of resp.  ok is false if resp
// shouldn't be cached.
func cacheTTL(resp *dns.Msg) (ttl uint32, ok bool) {
	switch {
	case
		resp.Truncated,
		len(resp.Question) != 1,
		resp.Rcode != dns.RcodeSuccess && resp.Rcode != dns.RcodeNameError:
		return 0, false
	}

	ttl = math.MaxUint32
	for _, rrs := range [][]dns.RR{resp.Answer, resp.Ns} {
		for _, rr := range rrs {
			ttl = min(ttl, rr.Header().Ttl)
		}
	}

	return ttl, ttl != math.MaxUint32 && ttl > 0
}

// cacheKey returns the key for the question of m.
func cacheKey(m *dns.Msg) (k []byte) {
	q := m.Question[0]
	k = make([]byte, 2+2+len(q.Name))

	binary.BigEndian.PutUint16(k, q.Qtype)
	binary.BigEndian.PutUint16(k[2:], q.Qclass)
	copy(k[4:], strings.ToLower(q.Name))

	return k
}
