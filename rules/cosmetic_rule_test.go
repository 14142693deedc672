package rules_test

import (
	"testing"

	"github.com/fcchbjm/adfilter/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCosmeticConfig is the cosmetic rules configuration used in tests.
var testCosmeticConfig = &rules.CosmeticConfig{
	Logger: testLogger,
}

func TestNewCosmeticRule(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		text         string
		wantContent  string
		wantType     rules.CosmeticRuleType
		wantAllow    bool
		wantExtended bool
	}{{
		name:        "element_hiding",
		text:        "example.com##.ad",
		wantContent: ".ad",
		wantType:    rules.CosmeticElementHiding,
	}, {
		name:        "element_hiding_allowlist",
		text:        "example.org#@#.banner",
		wantContent: ".banner",
		wantType:    rules.CosmeticElementHiding,
		wantAllow:   true,
	}, {
		name:         "extended_marker",
		text:         "example.org#?#div:has(> .ad)",
		wantContent:  "div:has(> .ad)",
		wantType:     rules.CosmeticElementHiding,
		wantExtended: true,
	}, {
		name:         "extended_pseudo_class",
		text:         "example.org##div:contains(ad)",
		wantContent:  "div:contains(ad)",
		wantType:     rules.CosmeticElementHiding,
		wantExtended: true,
	}, {
		name:        "native_pseudo_class",
		text:        "example.org##div:not(.content) > a::before",
		wantContent: "div:not(.content) > a::before",
		wantType:    rules.CosmeticElementHiding,
	}, {
		name:        "css",
		text:        "example.org#$#.ad { display: none !important; }",
		wantContent: ".ad { display: none !important; }",
		wantType:    rules.CosmeticCSS,
	}, {
		name:         "css_remove",
		text:         "example.org#$#.ad { remove: true; }",
		wantContent:  ".ad { remove: true; }",
		wantType:     rules.CosmeticCSS,
		wantExtended: true,
	}, {
		name:        "js",
		text:        "example.org#%#window.x = 1;",
		wantContent: "window.x = 1;",
		wantType:    rules.CosmeticJS,
	}, {
		name:        "scriptlet",
		text:        "example.org#%#//scriptlet('set-constant', 'x', '1')",
		wantContent: "//scriptlet('set-constant', 'x', '1')",
		wantType:    rules.CosmeticScriptlet,
	}, {
		name:        "scriptlet_allowlist_all",
		text:        "example.org#@%#//scriptlet()",
		wantContent: "//scriptlet()",
		wantType:    rules.CosmeticScriptlet,
		wantAllow:   true,
	}, {
		name:        "html",
		text:        "example.org$$script[data-ad]",
		wantContent: "script[data-ad]",
		wantType:    rules.CosmeticHTML,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, err := rules.NewCosmeticRule(tc.text, testListID, testCosmeticConfig)
			require.NoError(t, err)
			require.NotNil(t, r)

			assert.Equal(t, tc.text, r.Text())
			assert.Equal(t, tc.wantContent, r.Content())
			assert.Equal(t, tc.wantType, r.Type())
			assert.Equal(t, tc.wantAllow, r.IsAllowlist())
			assert.Equal(t, tc.wantExtended, r.IsExtendedCSS())
		})
	}
}

func TestNewCosmeticRule_errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		text string
	}{{
		name: "unknown_pseudo_class",
		text: "example.org##div:unknown-pseudo",
	}, {
		name: "brackets_in_selector",
		text: "example.org##div { color: red }",
	}, {
		name: "comment_in_selector",
		text: "example.org##div /* ad */",
	}, {
		name: "css_url",
		text: "example.org#$#.ad { background: url(http://example.com/x.png) }",
	}, {
		name: "css_no_block",
		text: "example.org#$#.ad",
	}, {
		name: "unknown_scriptlet",
		text: "example.org#%#//scriptlet('no-such-scriptlet')",
	}, {
		name: "trusted_scriptlet",
		text: "example.org#%#//scriptlet('trusted-set-cookie', 'a', 'b')",
	}, {
		name: "empty_content",
		text: "example.org##",
	}, {
		name: "domain_modifier_with_domains",
		text: "[$domain=a.com]example.org##.ad",
	}, {
		name: "url_with_other_modifier",
		text: "[$url=||a.org,path=/x]##.ad",
	}, {
		name: "unknown_modifier",
		text: "[$foo=bar]##.ad",
	}, {
		name: "invalid_domain",
		text: "exa_mple!.org##.ad",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, err := rules.NewCosmeticRule(tc.text, testListID, testCosmeticConfig)
			assert.Nil(t, r)
			assert.Error(t, err)
		})
	}
}

func TestNewCosmeticRule_trustedScriptlets(t *testing.T) {
	t.Parallel()

	const text = "example.org#%#//scriptlet('trusted-set-cookie', 'a', 'b')"

	r, err := rules.NewCosmeticRule(text, testListID, &rules.CosmeticConfig{
		Logger:                 testLogger,
		AllowTrustedScriptlets: true,
	})
	require.NoError(t, err)

	p := r.Scriptlet()
	require.NotNil(t, p)

	assert.Equal(t, "trusted-set-cookie", p.Name)
	assert.Equal(t, []string{"a", "b"}, p.Args)
	assert.Equal(t, "//scriptlet('trusted-set-cookie', 'a', 'b')", p.String())
}

func TestCosmeticRule_Match(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		rule string
		url  string
		want bool
	}{{
		name: "domain",
		rule: "example.com##.ad",
		url:  "https://example.com/",
		want: true,
	}, {
		name: "subdomain",
		rule: "example.com##.ad",
		url:  "https://sub.example.com/page",
		want: true,
	}, {
		name: "other_domain",
		rule: "example.com##.ad",
		url:  "https://example.org/",
		want: false,
	}, {
		name: "generic",
		rule: "##.banner",
		url:  "https://any.example/",
		want: true,
	}, {
		name: "restricted_subdomain",
		rule: "example.org,~sub.example.org##.ad",
		url:  "https://sub.example.org/",
		want: false,
	}, {
		name: "wildcard_tld",
		rule: "example.*##.ad",
		url:  "https://www.example.co.uk/",
		want: true,
	}, {
		name: "path",
		rule: "[$path=/page]example.org##.ad",
		url:  "https://example.org/page",
		want: true,
	}, {
		name: "path_other",
		rule: "[$path=/page]example.org##.ad",
		url:  "https://example.org/other",
		want: false,
	}, {
		name: "domain_modifier",
		rule: "[$domain=example.org|example.com]##.ad",
		url:  "https://example.com/",
		want: true,
	}, {
		name: "url_modifier",
		rule: "[$url=||example.org/page]##.ad",
		url:  "https://example.org/page/1",
		want: true,
	}, {
		name: "url_modifier_other",
		rule: "[$url=||example.org/page]##.ad",
		url:  "https://example.com/page",
		want: false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, err := rules.NewCosmeticRule(tc.rule, testListID, testCosmeticConfig)
			require.NoError(t, err)

			req := rules.NewRequest(tc.url, "", rules.TypeDocument)
			assert.Equal(t, tc.want, r.Match(req))
		})
	}
}

func TestCosmeticRule_IsGeneric(t *testing.T) {
	t.Parallel()

	generic, err := rules.NewCosmeticRule("~example.org##.ad", testListID, testCosmeticConfig)
	require.NoError(t, err)

	assert.True(t, generic.IsGeneric())
	assert.Equal(t, []string{"example.org"}, generic.RestrictedDomains())

	specific, err := rules.NewCosmeticRule("example.org##.ad", testListID, testCosmeticConfig)
	require.NoError(t, err)

	assert.False(t, specific.IsGeneric())
	assert.Equal(t, []string{"example.org"}, specific.PermittedDomains())
}

func TestIsCosmeticRule(t *testing.T) {
	t.Parallel()

	assert.True(t, rules.IsCosmeticRule("##.ad"))
	assert.True(t, rules.IsCosmeticRule("example.org#@$?#.ad { display: none; }"))
	assert.True(t, rules.IsCosmeticRule("example.org$$div"))
	assert.False(t, rules.IsCosmeticRule("||example.org^"))
	assert.False(t, rules.IsCosmeticRule("||example.org^$domain=a.com"))
}
