package filter_test

import (
	"net/netip"
	"testing"

	"github.com/AdguardTeam/golibs/testutil"
	"github.com/fcchbjm/adfilter/filter"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDNSRules are the rules for the DNS engine tests.
const testDNSRules = "||blocked.example^\n" +
	"@@||allowed.blocked.example^\n" +
	"0.0.0.0 hosts.example\n" +
	"::1 hosts.example\n" +
	"127.0.0.1 both.example\n" +
	"||both.example^\n" +
	"||rewrite.example^$dnsrewrite=1.2.3.4\n" +
	"||rewrite.example^$dnsrewrite=5.6.7.8\n" +
	"@@||rewrite.example^$dnsrewrite=5.6.7.8\n" +
	"||aaaa.example^$dnstype=AAAA\n" +
	"||client.example^$client=192.168.0.1\n" +
	"||example.net^$domain=example.com\n" +
	"example.org##.ad\n"

// newDNSEngine is a helper that returns a DNS engine with the rules of text.
func newDNSEngine(tb testing.TB, text string) (e *filter.DNSEngine) {
	tb.Helper()

	ctx := testutil.ContextWithTimeout(tb, testTimeout)
	e, err := filter.NewDNSEngine(ctx, &filter.DNSEngineConfig{
		Logger:  testLogger,
		Storage: newStorage(tb, text),
	})
	require.NoError(tb, err)

	return e
}

func TestDNSEngine_MatchRequest(t *testing.T) {
	t.Parallel()

	e := newDNSEngine(t, testDNSRules)
	assert.Equal(t, 11, e.RulesCount())

	testCases := []struct {
		req         *filter.DNSRequest
		name        string
		wantNetwork string
		wantV4      []string
		wantV6      []string
		wantOK      bool
	}{{
		req:         &filter.DNSRequest{Hostname: "blocked.example"},
		name:        "blocked",
		wantNetwork: "||blocked.example^",
		wantOK:      true,
	}, {
		req:         &filter.DNSRequest{Hostname: "sub.blocked.example"},
		name:        "blocked_subdomain",
		wantNetwork: "||blocked.example^",
		wantOK:      true,
	}, {
		req:         &filter.DNSRequest{Hostname: "allowed.blocked.example"},
		name:        "allowed",
		wantNetwork: "@@||allowed.blocked.example^",
		wantOK:      true,
	}, {
		req:    &filter.DNSRequest{Hostname: "hosts.example"},
		name:   "hosts",
		wantV4: []string{"0.0.0.0 hosts.example"},
		wantV6: []string{"::1 hosts.example"},
		wantOK: true,
	}, {
		req:         &filter.DNSRequest{Hostname: "both.example"},
		name:        "network_over_hosts",
		wantNetwork: "||both.example^",
		wantOK:      true,
	}, {
		req:         &filter.DNSRequest{Hostname: "aaaa.example", DNSType: dns.TypeAAAA},
		name:        "dnstype_match",
		wantNetwork: "||aaaa.example^$dnstype=AAAA",
		wantOK:      true,
	}, {
		req:    &filter.DNSRequest{Hostname: "aaaa.example", DNSType: dns.TypeA},
		name:   "dnstype_no_match",
		wantOK: false,
	}, {
		req: &filter.DNSRequest{
			Hostname: "client.example",
			ClientIP: netip.MustParseAddr("192.168.0.1"),
		},
		name:        "client_match",
		wantNetwork: "||client.example^$client=192.168.0.1",
		wantOK:      true,
	}, {
		req: &filter.DNSRequest{
			Hostname: "client.example",
			ClientIP: netip.MustParseAddr("192.168.0.2"),
		},
		name:   "client_no_match",
		wantOK: false,
	}, {
		req:    &filter.DNSRequest{Hostname: "example.net"},
		name:   "not_host_level",
		wantOK: false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := testutil.ContextWithTimeout(t, testTimeout)
			res, ok := e.MatchRequest(ctx, tc.req)
			require.Equal(t, tc.wantOK, ok)
			require.NotNil(t, res)

			if tc.wantNetwork == "" {
				assert.Nil(t, res.NetworkRule)
			} else {
				require.NotNil(t, res.NetworkRule)
				assert.Equal(t, tc.wantNetwork, res.NetworkRule.Text())
			}

			var v4, v6 []string
			for _, r := range res.HostRulesV4 {
				v4 = append(v4, r.Text())
			}

			for _, r := range res.HostRulesV6 {
				v6 = append(v6, r.Text())
			}

			assert.Equal(t, tc.wantV4, v4)
			assert.Equal(t, tc.wantV6, v6)
		})
	}
}

func TestDNSEngine_dnsRewrite(t *testing.T) {
	t.Parallel()

	e := newDNSEngine(t, testDNSRules)
	ctx := testutil.ContextWithTimeout(t, testTimeout)

	res, ok := e.Match(ctx, "rewrite.example")
	require.True(t, ok)

	assert.Nil(t, res.NetworkRule)
	assert.Len(t, res.DNSRewriteRules, 3)

	rws := res.DNSRewrites()
	require.Len(t, rws, 1)

	assert.Equal(t, "||rewrite.example^$dnsrewrite=1.2.3.4", rws[0].Text())

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		all := newDNSEngine(t, "||rewrite.example^$dnsrewrite=1.2.3.4\n@@||rewrite.example^$dnsrewrite\n")

		allRes, allOK := all.Match(ctx, "rewrite.example")
		require.True(t, allOK)

		assert.Empty(t, allRes.DNSRewrites())
	})
}

func TestDNSEngine_emptyHostname(t *testing.T) {
	t.Parallel()

	e := newDNSEngine(t, testDNSRules)
	ctx := testutil.ContextWithTimeout(t, testTimeout)

	res, ok := e.Match(ctx, "")
	assert.False(t, ok)
	assert.Nil(t, res)
}

func TestDNSEngine_Reload(t *testing.T) {
	t.Parallel()

	e := newDNSEngine(t, "||blocked.example^\n")
	ctx := testutil.ContextWithTimeout(t, testTimeout)

	_, ok := e.Match(ctx, "blocked.example")
	require.True(t, ok)

	err := e.Reload(ctx, newStorage(t, "0.0.0.0 other.example\n"))
	require.NoError(t, err)

	_, ok = e.Match(ctx, "blocked.example")
	assert.False(t, ok)

	res, ok := e.Match(ctx, "other.example")
	require.True(t, ok)
	require.Len(t, res.HostRulesV4, 1)

	assert.Equal(t, netip.IPv4Unspecified(), res.HostRulesV4[0].IP())
	assert.Equal(t, 1, e.RulesCount())
}
