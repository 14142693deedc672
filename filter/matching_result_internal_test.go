package filter

import (
	"testing"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/fcchbjm/adfilter/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRules is a helper that parses network rules.
func newRules(tb testing.TB, texts ...string) (rs []*rules.NetworkRule) {
	tb.Helper()

	l := slogutil.NewDiscardLogger()
	for _, text := range texts {
		r, err := rules.NewNetworkRule(text, 1, l)
		require.NoError(tb, err)

		rs = append(rs, r)
	}

	return rs
}

// ruleTexts returns the texts of rs.
func ruleTexts(rs []*rules.NetworkRule) (texts []string) {
	for _, r := range rs {
		texts = append(texts, r.Text())
	}

	return texts
}

func TestRemoveBadfilterRules(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		rules []string
		want  []string
	}{{
		name:  "none",
		rules: []string{"||a.example^", "||b.example^"},
		want:  []string{"||a.example^", "||b.example^"},
	}, {
		name: "several",
		rules: []string{
			"||a.example^",
			"||a.example^$badfilter",
			"||c.example^",
			"||c.example^$badfilter",
			"||e.example^",
		},
		want: []string{"||e.example^"},
	}, {
		name: "domains_intersect",
		rules: []string{
			"||x.example^$domain=a.com|b.com",
			"||x.example^$domain=a.com,badfilter",
		},
		want: nil,
	}, {
		name: "domains_differ",
		rules: []string{
			"||x.example^$domain=a.com|b.com",
			"||x.example^$domain=c.com,badfilter",
		},
		want: []string{"||x.example^$domain=a.com|b.com"},
	}, {
		name: "allowlist_differs",
		rules: []string{
			"@@||x.example^",
			"||x.example^$badfilter",
		},
		want: []string{"@@||x.example^"},
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := removeBadfilterRules(newRules(t, tc.rules...))
			assert.Equal(t, tc.want, ruleTexts(got))
		})
	}
}

func TestMatchingResult_GetBasicResult(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		want        string
		rules       []string
		sourceRules []string
	}{{
		name:  "empty",
		want:  "",
		rules: nil,
	}, {
		name:  "priority",
		want:  "@@||example.org^",
		rules: []string{"||example.org^", "@@||example.org^"},
	}, {
		name:  "same_priority",
		want:  "||example.org^$script",
		rules: []string{"||example.org^$script", "||example.org^$image"},
	}, {
		name:  "replace",
		want:  "",
		rules: []string{"||example.org^", "||example.org^$replace=/ad//"},
	}, {
		name:  "redirect",
		want:  "||example.org/ads.js$redirect=noopjs",
		rules: []string{"||example.org/ads.js$redirect=noopjs"},
	}, {
		name:  "redirect_rule_not_blocked",
		want:  "",
		rules: []string{"||example.org/ads.js$redirect-rule=noopjs"},
	}, {
		name: "redirect_rule_blocked",
		want: "||example.org/ads.js$redirect-rule=noopjs",
		rules: []string{
			"||example.org^",
			"||example.org/ads.js$redirect-rule=noopjs",
		},
	}, {
		name: "redirect_disabled",
		want: "||example.org^",
		rules: []string{
			"||example.org^",
			"||example.org/ads.js$redirect=noopjs",
			"@@||example.org/ads.js$redirect",
		},
	}, {
		name: "redirect_disabled_other_resource",
		want: "||example.org/ads.js$redirect=nooptext",
		rules: []string{
			"||example.org/ads.js$redirect=nooptext",
			"@@||example.org/ads.js$redirect=noopjs",
		},
	}, {
		name:        "urlblock",
		want:        "@@||page.example^$urlblock",
		rules:       []string{"||example.org^"},
		sourceRules: []string{"@@||page.example^$urlblock"},
	}, {
		name:        "genericblock_allows_specific",
		want:        "||example.org^$domain=page.example",
		rules:       []string{"||example.org^", "||example.org^$domain=page.example"},
		sourceRules: []string{"@@||page.example^$genericblock"},
	}, {
		name:        "document",
		want:        "@@||page.example^$document",
		rules:       []string{"||example.org^$important", "||example.org^$cookie=ads"},
		sourceRules: []string{"@@||page.example^$document"},
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			res := NewMatchingResult(newRules(t, tc.rules...), newRules(t, tc.sourceRules...))

			r := res.GetBasicResult()
			if tc.want == "" {
				assert.Nil(t, r)

				return
			}

			require.NotNil(t, r)
			assert.Equal(t, tc.want, r.Text())
		})
	}
}

func TestNewMatchingResult_sets(t *testing.T) {
	t.Parallel()

	res := NewMatchingResult(newRules(
		t,
		"||example.org^$cookie=ads",
		"||example.org^$csp=script-src 'none'",
		"||example.org^$removeparam=utm_source",
		"||example.org^$removeheader=refresh",
		"||example.org^$permissions=autoplay=()",
		"||example.org^$replace=/ad//",
		"@@||example.org^$stealth",
		"||example.org^$dnsrewrite=1.2.3.4",
	), nil)

	assert.Equal(t, []string{"||example.org^$cookie=ads"}, ruleTexts(res.CookieRules))
	assert.Equal(t, []string{"||example.org^$csp=script-src 'none'"}, ruleTexts(res.CSPRules))
	assert.Equal(t, []string{"||example.org^$removeparam=utm_source"}, ruleTexts(res.RemoveParamRules))
	assert.Equal(t, []string{"||example.org^$removeheader=refresh"}, ruleTexts(res.RemoveHeaderRules))
	assert.Equal(t, []string{"||example.org^$permissions=autoplay=()"}, ruleTexts(res.PermissionsRules))
	assert.Equal(t, []string{"||example.org^$replace=/ad//"}, ruleTexts(res.ReplaceRules))
	assert.Equal(t, []string{"||example.org^$dnsrewrite=1.2.3.4"}, ruleTexts(res.DNSRewriteRules))

	require.NotNil(t, res.StealthRule)
	assert.Equal(t, "@@||example.org^$stealth", res.StealthRule.Text())
	assert.Nil(t, res.BasicRule)
}

func TestMatchingResult_GetCosmeticOption(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		rule string
		want CosmeticOption
	}{{
		name: "no_rule",
		rule: "",
		want: CosmeticOptionAll,
	}, {
		name: "blocking",
		rule: "||example.org^",
		want: CosmeticOptionAll,
	}, {
		name: "allowlist",
		rule: "@@||example.org^",
		want: CosmeticOptionAll,
	}, {
		name: "elemhide",
		rule: "@@||example.org^$elemhide",
		want: CosmeticOptionJS | CosmeticOptionHTML,
	}, {
		name: "generichide",
		rule: "@@||example.org^$generichide",
		want: CosmeticOptionSpecificCSS | CosmeticOptionJS | CosmeticOptionHTML,
	}, {
		name: "specifichide",
		rule: "@@||example.org^$specifichide",
		want: CosmeticOptionGenericCSS | CosmeticOptionJS | CosmeticOptionHTML,
	}, {
		name: "jsinject",
		rule: "@@||example.org^$jsinject",
		want: CosmeticOptionGenericCSS | CosmeticOptionSpecificCSS | CosmeticOptionHTML,
	}, {
		name: "content",
		rule: "@@||example.org^$content",
		want: CosmeticOptionGenericCSS | CosmeticOptionSpecificCSS | CosmeticOptionJS,
	}, {
		name: "document",
		rule: "@@||example.org^$document",
		want: CosmeticOptionNone,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			res := &MatchingResult{}
			if tc.rule != "" {
				res = NewMatchingResult(newRules(t, tc.rule), nil)
			}

			assert.Equal(t, tc.want, res.GetCosmeticOption())
		})
	}
}

func TestCosmeticOption_values(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CosmeticOption(2), CosmeticOptionGenericCSS)
	assert.Equal(t, CosmeticOption(4), CosmeticOptionSpecificCSS)
	assert.Equal(t, CosmeticOption(8), CosmeticOptionJS)
	assert.Equal(t, CosmeticOption(16), CosmeticOptionHTML)
	assert.Equal(t, CosmeticOption(30), CosmeticOptionAll)
}
