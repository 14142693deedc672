package rules_test

import (
	"net/netip"
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/testutil"
	"github.com/fcchbjm/adfilter/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTimeout is the common timeout for tests.
const testTimeout = 1 * time.Second

func TestNewNode(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		line string
		want rules.Category
	}{{
		name: "empty",
		line: "   ",
		want: rules.CategoryEmpty,
	}, {
		name: "comment",
		line: "! Title: Test",
		want: rules.CategoryComment,
	}, {
		name: "hash_comment",
		line: "# hosts comment",
		want: rules.CategoryComment,
	}, {
		name: "header",
		line: "[Adblock Plus 2.0]",
		want: rules.CategoryComment,
	}, {
		name: "cosmetic",
		line: "##.banner",
		want: rules.CategoryCosmetic,
	}, {
		name: "cosmetic_modifiers",
		line: "[$path=/page]example.org##.ad",
		want: rules.CategoryCosmetic,
	}, {
		name: "host",
		line: "127.0.0.1 example.org",
		want: rules.CategoryHost,
	}, {
		name: "host_ipv6",
		line: "::1\tlocalhost",
		want: rules.CategoryHost,
	}, {
		name: "network",
		line: "||example.org^",
		want: rules.CategoryNetwork,
	}, {
		name: "network_domain",
		line: " example.org ",
		want: rules.CategoryNetwork,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			n := rules.NewNode(tc.line)
			assert.Equal(t, tc.want, n.Category)
		})
	}
}

func TestNewHostRule(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		r, err := rules.NewHostRule("127.0.0.1 Example.org www.example.org # comment", testListID)
		require.NoError(t, err)

		assert.Equal(t, netip.MustParseAddr("127.0.0.1"), r.IP())
		assert.Equal(t, []string{"example.org", "www.example.org"}, r.Hostnames())
		assert.False(t, r.Invalid())
		assert.True(t, r.Match("www.example.org"))
		assert.False(t, r.Match("sub.example.org"))
	})

	t.Run("no_hostnames", func(t *testing.T) {
		t.Parallel()

		r, err := rules.NewHostRule("0.0.0.0 # only comment", testListID)
		require.NoError(t, err)

		assert.True(t, r.Invalid())
		assert.False(t, r.Match("0.0.0.0"))
	})

	t.Run("not_ip", func(t *testing.T) {
		t.Parallel()

		_, err := rules.NewHostRule("example.org", testListID)
		assert.ErrorIs(t, err, rules.ErrHostRuleSyntax)
	})
}

func TestRuleFactory_CreateRule(t *testing.T) {
	t.Parallel()

	silent := rules.NewRuleFactory(&rules.FactoryConfig{
		Logger: testLogger,
	})
	strict := rules.NewRuleFactory(&rules.FactoryConfig{
		Logger: testLogger,
		Strict: true,
	})
	noCosmetic := rules.NewRuleFactory(&rules.FactoryConfig{
		Logger:         testLogger,
		IgnoreCosmetic: true,
	})

	testCases := []struct {
		factory *rules.RuleFactory
		name    string
		line    string
		wantErr bool
		wantNil bool
	}{{
		factory: silent,
		name:    "network",
		line:    "||example.org^",
		wantErr: false,
		wantNil: false,
	}, {
		factory: silent,
		name:    "cosmetic",
		line:    "example.org##.ad",
		wantErr: false,
		wantNil: false,
	}, {
		factory: silent,
		name:    "host",
		line:    "0.0.0.0 example.org",
		wantErr: false,
		wantNil: false,
	}, {
		factory: silent,
		name:    "comment",
		line:    "! comment",
		wantErr: false,
		wantNil: true,
	}, {
		factory: silent,
		name:    "invalid_silent",
		line:    "||example.org^$unknown",
		wantErr: false,
		wantNil: true,
	}, {
		factory: strict,
		name:    "invalid_strict",
		line:    "||example.org^$unknown",
		wantErr: true,
		wantNil: true,
	}, {
		factory: noCosmetic,
		name:    "ignored_cosmetic",
		line:    "example.org##.ad",
		wantErr: false,
		wantNil: true,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := testutil.ContextWithTimeout(t, testTimeout)
			r, err := tc.factory.CreateRule(ctx, rules.NewNode(tc.line), testListID, 7)
			if tc.wantErr {
				assert.ErrorIs(t, err, rules.ErrUnknownModifier)
			} else {
				require.NoError(t, err)
			}

			if tc.wantNil {
				assert.Nil(t, r)

				return
			}

			require.NotNil(t, r)

			assert.Equal(t, tc.line, r.Text())
			assert.Equal(t, testListID, r.ListID())
			assert.Equal(t, 7, r.Index())
		})
	}
}

func TestRuleFactory_CreateAllowlistRule(t *testing.T) {
	t.Parallel()

	f := rules.NewRuleFactory(&rules.FactoryConfig{
		Logger: testLogger,
	})

	t.Run("domain", func(t *testing.T) {
		t.Parallel()

		r, err := f.CreateAllowlistRule("www.example.org", testListID)
		require.NoError(t, err)

		assert.Equal(t, `@@///(www\.)?example\.org/$document,important`, r.Text())
		assert.True(t, r.IsAllowlist())
		assert.True(t, r.IsDocumentLevelAllowlistRule())
		assert.True(t, r.IsOptionEnabled(rules.OptionImportant))

		for _, u := range []string{"https://example.org/", "https://www.example.org/page"} {
			req := rules.NewRequest(u, "", rules.TypeDocument)
			assert.True(t, r.Match(req, true), u)
		}

		req := rules.NewRequest("https://notexample.org/", "", rules.TypeDocument)
		assert.False(t, r.Match(req, true))
	})

	t.Run("short_domain", func(t *testing.T) {
		t.Parallel()

		r, err := f.CreateAllowlistRule("a.io", testListID)
		require.NoError(t, err)

		req := rules.NewRequest("https://a.io/", "", rules.TypeDocument)
		assert.True(t, r.Match(req, true))
	})

	t.Run("wildcard", func(t *testing.T) {
		t.Parallel()

		r, err := f.CreateAllowlistRule("*.example.org", testListID)
		require.NoError(t, err)

		assert.Equal(t, "@@||example.org$document,important", r.Text())

		req := rules.NewRequest("https://sub.example.org/", "", rules.TypeDocument)
		assert.True(t, r.Match(req, true))
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		_, err := f.CreateAllowlistRule("www.", testListID)
		assert.Error(t, err)
	})
}
