package handler

import (
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/netutil"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/fcchbjm/adfilter/filter"
	"github.com/fcchbjm/adfilter/filterlist"
	"github.com/fcchbjm/adfilter/internal/dnsmsg"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// defaultTimeout is a default timeout for tests and contexts.
const defaultTimeout = 1 * time.Second

// testLogger is the common logger for tests.
var testLogger = slogutil.NewDiscardLogger()

// testRules are the filtering rules for tests.
const testRules = "||blocked.example^\n" +
	"@@||allowed.blocked.example^\n" +
	"||rewrite.example^$dnsrewrite=1.2.3.4\n" +
	"||rewrite.example^$dnsrewrite=NOERROR;MX;10 mail.example\n" +
	"||refused.example^$dnsrewrite=REFUSED\n" +
	"1.1.1.1 hosts.example\n" +
	"2001:db8::2 hosts.example\n" +
	"5.5.5.5 v4only.example\n"

// newTestEngine is a helper that returns a DNS engine with the rules of text.
func newTestEngine(tb testing.TB, text string) (e *filter.DNSEngine) {
	tb.Helper()

	l, err := filterlist.NewString(&filterlist.StringConfig{
		Config: filterlist.Config{
			Logger: testLogger,
			ID:     1,
		},
		Text: text,
	})
	require.NoError(tb, err)

	s, err := filterlist.NewRuleStorage(&filterlist.StorageConfig{
		Logger: testLogger,
		Lists:  []filterlist.RuleList{l},
	})
	require.NoError(tb, err)
	testutil.CleanupAndRequireSuccess(tb, s.Close)

	ctx := testutil.ContextWithTimeout(tb, defaultTimeout)
	e, err = filter.NewDNSEngine(ctx, &filter.DNSEngineConfig{
		Logger:  testLogger,
		Storage: s,
	})
	require.NoError(tb, err)

	return e
}

// newTestHosts is a helper that returns the hosts resolver for a hosts file
// with data.
func newTestHosts(tb testing.TB, data string) (h *Hosts) {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "hosts")
	err := os.WriteFile(path, []byte(data), 0o600)
	require.NoError(tb, err)

	ctx := testutil.ContextWithTimeout(tb, defaultTimeout)
	h, err = NewHosts(ctx, &HostsConfig{
		Logger: testLogger,
		Paths:  []string{path},
	})
	require.NoError(tb, err)
	testutil.CleanupAndRequireSuccess(tb, h.Close)

	return h
}

func TestNewHosts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "hosts")
	err := os.WriteFile(path, []byte("1.2.3.4 a.example b.example\n::1 a.example\n"), 0o600)
	require.NoError(t, err)

	ctx := testutil.ContextWithTimeout(t, defaultTimeout)
	h, err := NewHosts(ctx, &HostsConfig{
		Logger: testLogger,
		Paths:  []string{filepath.Join(dir, "missing"), path},
	})
	require.Error(t, err)
	require.NotNil(t, h)
	testutil.CleanupAndRequireSuccess(t, h.Close)

	assert.Equal(t, 2, h.RulesCount())
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("1.2.3.4")}, h.addrs(ctx, "b.example", dns.TypeA))
	assert.Equal(t, []netip.Addr{netip.IPv6Loopback()}, h.addrs(ctx, "a.example", dns.TypeAAAA))
	assert.Empty(t, h.addrs(ctx, "b.example", dns.TypeAAAA))
	assert.Equal(t, []string{"a.example", "b.example"}, h.names[netip.MustParseAddr("1.2.3.4")])
}

func TestFilter_haltAAAA(t *testing.T) {
	t.Parallel()

	reqA := (&dns.Msg{}).SetQuestion("domain.example.", dns.TypeA)
	reqAAAA := (&dns.Msg{}).SetQuestion("domain.example.", dns.TypeAAAA)

	engine := newTestEngine(t, "")

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		f := NewFilter(&FilterConfig{
			Logger:   testLogger,
			Messages: dnsmsg.DefaultMessageConstructor{},
			Engine:   engine,
			HaltIPv6: false,
		})

		ctx := testutil.ContextWithTimeout(t, defaultTimeout)

		assert.Nil(t, f.haltAAAA(ctx, reqA))
		assert.Nil(t, f.haltAAAA(ctx, reqAAAA))
	})

	t.Run("enabled", func(t *testing.T) {
		t.Parallel()

		f := NewFilter(&FilterConfig{
			Logger:   testLogger,
			Messages: dnsmsg.DefaultMessageConstructor{},
			Engine:   engine,
			HaltIPv6: true,
		})

		ctx := testutil.ContextWithTimeout(t, defaultTimeout)

		assert.Nil(t, f.haltAAAA(ctx, reqA))

		resp := f.haltAAAA(ctx, reqAAAA)
		require.NotNil(t, resp)

		assert.Equal(t, dns.RcodeSuccess, resp.Rcode)
		assert.Empty(t, resp.Answer)
		assert.Len(t, resp.Ns, 1)
	})
}

func TestFilter_haltA(t *testing.T) {
	t.Parallel()

	f := NewFilter(&FilterConfig{
		Logger:   testLogger,
		Messages: dnsmsg.DefaultMessageConstructor{},
		Engine:   newTestEngine(t, ""),
		HaltIPv4: true,
	})

	ctx := testutil.ContextWithTimeout(t, defaultTimeout)

	assert.NotNil(t, f.haltA(ctx, (&dns.Msg{}).SetQuestion("domain.example.", dns.TypeA)))
	assert.Nil(t, f.haltA(ctx, (&dns.Msg{}).SetQuestion("domain.example.", dns.TypeAAAA)))
}

func TestFilter_resolveFromHosts(t *testing.T) {
	t.Parallel()

	const hostsData = "# The system hosts file.\n" +
		"1.2.3.4 ipv4.domain.example # inline comment\n" +
		"1.2.3.4\n" +
		"||blocked.domain.example^\n" +
		"2001:db8::1 ipv6.domain.example\n"

	f := NewFilter(&FilterConfig{
		Logger:   testLogger,
		Messages: dnsmsg.DefaultMessageConstructor{},
		Engine:   newTestEngine(t, ""),
		Hosts:    newTestHosts(t, hostsData),
	})

	const (
		fqdnV4 = "ipv4.domain.example."
		fqdnV6 = "ipv6.domain.example."
	)

	var (
		addrV4 = netip.MustParseAddr("1.2.3.4")
		addrV6 = netip.MustParseAddr("2001:db8::1")

		reversedV4      = errors.Must(netutil.IPToReversedAddr(addrV4.AsSlice()))
		reversedV6      = errors.Must(netutil.IPToReversedAddr(addrV6.AsSlice()))
		unknownReversed = errors.Must(netutil.IPToReversedAddr(net.IP{4, 3, 2, 1}))
	)

	testCases := []struct {
		wantAns dns.RR
		req     *dns.Msg
		name    string
	}{{
		wantAns: &dns.A{
			Hdr: dns.RR_Header{
				Name:   fqdnV4,
				Rrtype: dns.TypeA,
				Class:  dns.ClassINET,
				Ttl:    dnsmsg.DefaultTTL,
			},
			A: addrV4.AsSlice(),
		},
		req:  (&dns.Msg{}).SetQuestion(fqdnV4, dns.TypeA),
		name: "success_a",
	}, {
		wantAns: &dns.AAAA{
			Hdr: dns.RR_Header{
				Name:   fqdnV6,
				Rrtype: dns.TypeAAAA,
				Class:  dns.ClassINET,
				Ttl:    dnsmsg.DefaultTTL,
			},
			AAAA: addrV6.AsSlice(),
		},
		req:  (&dns.Msg{}).SetQuestion(fqdnV6, dns.TypeAAAA),
		name: "success_aaaa",
	}, {
		wantAns: &dns.PTR{
			Hdr: dns.RR_Header{
				Name:   reversedV4,
				Rrtype: dns.TypePTR,
				Class:  dns.ClassINET,
				Ttl:    dnsmsg.DefaultTTL,
			},
			Ptr: fqdnV4,
		},
		req:  (&dns.Msg{}).SetQuestion(reversedV4, dns.TypePTR),
		name: "success_ptr_v4",
	}, {
		wantAns: &dns.PTR{
			Hdr: dns.RR_Header{
				Name:   reversedV6,
				Rrtype: dns.TypePTR,
				Class:  dns.ClassINET,
				Ttl:    dnsmsg.DefaultTTL,
			},
			Ptr: fqdnV6,
		},
		req:  (&dns.Msg{}).SetQuestion(reversedV6, dns.TypePTR),
		name: "success_ptr_v6",
	}, {
		wantAns: nil,
		req:     (&dns.Msg{}).SetQuestion("unknown.example.", dns.TypeA),
		name:    "not_found_a",
	}, {
		wantAns: nil,
		req:     (&dns.Msg{}).SetQuestion("unknown.example.", dns.TypeAAAA),
		name:    "not_found_aaaa",
	}, {
		wantAns: nil,
		req:     (&dns.Msg{}).SetQuestion(unknownReversed, dns.TypePTR),
		name:    "not_found_ptr",
	}, {
		wantAns: nil,
		req:     (&dns.Msg{}).SetQuestion("bad.ptr.", dns.TypePTR),
		name:    "bad_ptr",
	}, {
		wantAns: nil,
		req:     (&dns.Msg{}).SetQuestion(fqdnV4, dns.TypeAAAA),
		name:    "other_family",
	}, {
		wantAns: nil,
		req:     (&dns.Msg{}).SetQuestion("blocked.domain.example.", dns.TypeA),
		name:    "network_rule_ignored",
	}, {
		wantAns: nil,
		req:     (&dns.Msg{}).SetQuestion(fqdnV4, dns.TypeMX),
		name:    "other_type",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := testutil.ContextWithTimeout(t, defaultTimeout)
			resp := f.resolveFromHosts(ctx, tc.req)
			if tc.wantAns == nil {
				assert.Nil(t, resp)

				return
			}

			require.NotNil(t, resp)
			require.Len(t, resp.Answer, 1)
			assert.Equal(t, tc.wantAns, resp.Answer[0])
		})
	}
}

func TestFilter_HandleRequest(t *testing.T) {
	t.Parallel()

	f := NewFilter(&FilterConfig{
		Logger:       testLogger,
		Messages:     dnsmsg.DefaultMessageConstructor{},
		Engine:       newTestEngine(t, testRules),
		BlockingMode: dnsmsg.BlockingModeNXDOMAIN,
	})

	clientIP := netip.MustParseAddr("192.0.2.1")

	testCases := []struct {
		name      string
		host      string
		wantAns   []string
		qtype     uint16
		wantRcode int
		wantNil   bool
	}{{
		name:    "not_filtered",
		host:    "example.org.",
		qtype:   dns.TypeA,
		wantNil: true,
	}, {
		name:      "blocked",
		host:      "blocked.example.",
		qtype:     dns.TypeA,
		wantRcode: dns.RcodeNameError,
	}, {
		name:      "blocked_upper_case",
		host:      "WWW.Blocked.Example.",
		qtype:     dns.TypeA,
		wantRcode: dns.RcodeNameError,
	}, {
		name:    "allowed",
		host:    "allowed.blocked.example.",
		qtype:   dns.TypeA,
		wantNil: true,
	}, {
		name:      "rewrite_a",
		host:      "rewrite.example.",
		qtype:     dns.TypeA,
		wantAns:   []string{"1.2.3.4"},
		wantRcode: dns.RcodeSuccess,
	}, {
		name:      "rewrite_mx",
		host:      "rewrite.example.",
		qtype:     dns.TypeMX,
		wantAns:   []string{"mail.example."},
		wantRcode: dns.RcodeSuccess,
	}, {
		name:      "rewrite_rcode",
		host:      "refused.example.",
		qtype:     dns.TypeA,
		wantRcode: dns.RcodeRefused,
	}, {
		name:      "host_rule_a",
		host:      "hosts.example.",
		qtype:     dns.TypeA,
		wantAns:   []string{"1.1.1.1"},
		wantRcode: dns.RcodeSuccess,
	}, {
		name:      "host_rule_aaaa",
		host:      "hosts.example.",
		qtype:     dns.TypeAAAA,
		wantAns:   []string{"2001:db8::2"},
		wantRcode: dns.RcodeSuccess,
	}, {
		name:      "host_rule_other_family",
		host:      "v4only.example.",
		qtype:     dns.TypeAAAA,
		wantRcode: dns.RcodeSuccess,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := testutil.ContextWithTimeout(t, defaultTimeout)
			req := (&dns.Msg{}).SetQuestion(tc.host, tc.qtype)

			resp := f.HandleRequest(ctx, req, clientIP)
			if tc.wantNil {
				assert.Nil(t, resp)

				return
			}

			require.NotNil(t, resp)
			assert.Equal(t, tc.wantRcode, resp.Rcode)

			var ans []string
			for _, rr := range resp.Answer {
				switch rr := rr.(type) {
				case *dns.A:
					ans = append(ans, rr.A.String())
				case *dns.AAAA:
					ans = append(ans, rr.AAAA.String())
				case *dns.MX:
					ans = append(ans, rr.Mx)
				default:
					t.Fatalf("unexpected answer type %T", rr)
				}
			}

			assert.Equal(t, tc.wantAns, ans)
		})
	}
}
