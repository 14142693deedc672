package filter_test

import (
	"testing"

	"github.com/AdguardTeam/golibs/testutil"
	"github.com/fcchbjm/adfilter/filter"
	"github.com/fcchbjm/adfilter/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testNetworkRules are the network rules for the engine tests.
const testNetworkRules = "||example.org^\n" +
	"@@||example.org/allowed^\n" +
	"||ads.example^$third-party\n" +
	"@@||ads.example^$domain=good.example\n" +
	"||tracker.example^$important\n" +
	"@@||tracker.example^\n" +
	"||evil.example^\n" +
	"||evil.example^$badfilter\n" +
	"@@||trusted.example^$urlblock\n" +
	"@@||whole.example^$document\n" +
	"@@||generic.example^$genericblock\n" +
	"||cdn.example^\n" +
	"||cdn.example^$domain=generic.example\n" +
	"*$script,domain=shop.example\n" +
	"||cdn.example/ads.js$redirect-rule=noopjs\n"

func TestEngine_MatchRequest(t *testing.T) {
	t.Parallel()

	e := newEngine(t, testNetworkRules)

	testCases := []struct {
		name      string
		url       string
		sourceURL string
		wantRule  string
		reqType   rules.RequestType
	}{{
		name:      "blocked",
		url:       "https://example.org/banner.png",
		sourceURL: "",
		wantRule:  "||example.org^",
		reqType:   rules.TypeImage,
	}, {
		name:      "allowed_path",
		url:       "https://example.org/allowed/banner.png",
		sourceURL: "",
		wantRule:  "@@||example.org/allowed^",
		reqType:   rules.TypeImage,
	}, {
		name:      "third_party",
		url:       "https://ads.example/ad.js",
		sourceURL: "https://news.example/",
		wantRule:  "||ads.example^$third-party",
		reqType:   rules.TypeScript,
	}, {
		name:      "first_party",
		url:       "https://ads.example/ad.js",
		sourceURL: "https://ads.example/",
		wantRule:  "",
		reqType:   rules.TypeScript,
	}, {
		name:      "domain_allowlist",
		url:       "https://ads.example/ad.js",
		sourceURL: "https://good.example/",
		wantRule:  "@@||ads.example^$domain=good.example",
		reqType:   rules.TypeScript,
	}, {
		name:      "important",
		url:       "https://tracker.example/pixel",
		sourceURL: "",
		wantRule:  "||tracker.example^$important",
		reqType:   rules.TypeImage,
	}, {
		name:      "badfilter",
		url:       "https://evil.example/",
		sourceURL: "",
		wantRule:  "",
		reqType:   rules.TypeScript,
	}, {
		name:      "urlblock",
		url:       "https://example.org/banner.png",
		sourceURL: "https://trusted.example/",
		wantRule:  "@@||trusted.example^$urlblock",
		reqType:   rules.TypeImage,
	}, {
		name:      "document",
		url:       "https://tracker.example/pixel",
		sourceURL: "https://whole.example/",
		wantRule:  "@@||whole.example^$document",
		reqType:   rules.TypeImage,
	}, {
		name:      "genericblock",
		url:       "https://cdn.example/lib.js",
		sourceURL: "https://generic.example/",
		wantRule:  "||cdn.example^$domain=generic.example",
		reqType:   rules.TypeScript,
	}, {
		name:      "domains_table",
		url:       "https://static.example/app.js",
		sourceURL: "https://www.shop.example/",
		wantRule:  "*$script,domain=shop.example",
		reqType:   rules.TypeScript,
	}, {
		name:      "redirect_rule",
		url:       "https://cdn.example/ads.js",
		sourceURL: "",
		wantRule:  "||cdn.example/ads.js$redirect-rule=noopjs",
		reqType:   rules.TypeScript,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := testutil.ContextWithTimeout(t, testTimeout)
			res := e.MatchRequest(ctx, rules.NewRequest(tc.url, tc.sourceURL, tc.reqType))
			require.NotNil(t, res)

			r := res.GetBasicResult()
			if tc.wantRule == "" {
				assert.Nil(t, r)

				return
			}

			require.NotNil(t, r)
			assert.Equal(t, tc.wantRule, r.Text())
		})
	}
}

func TestEngine_GetCosmeticResult(t *testing.T) {
	t.Parallel()

	const text = "##.generic-ad\n" +
		"example.org##.specific-ad\n" +
		"~example.org##.not-on-example\n" +
		"example.org#@#.generic-ad\n" +
		"sub.example.org##.sub-ad\n" +
		"example.*##.wildcard-ad\n" +
		"example.org##div:contains(ad)\n" +
		"example.org#$#.banner { display: none; }\n" +
		"example.org#%#window.a = 1;\n" +
		"example.org#%#//scriptlet('set-constant', 'a', '1')\n" +
		"example.org#%#//scriptlet('abort-on-property-read', 'b')\n" +
		"example.org#@%#//scriptlet('abort-on-property-read')\n" +
		`example.org$$script[tag-content="ads"]` + "\n" +
		"@@||example.org^$generichide\n"

	e := newEngine(t, text)
	page := rules.NewRequest("https://sub.example.org/page", "", rules.TypeDocument)

	t.Run("all", func(t *testing.T) {
		t.Parallel()

		res := e.GetCosmeticResult(page, filter.CosmeticOptionAll)

		assert.Empty(t, res.ElementHiding.Generic)
		assert.Equal(t, []string{".sub-ad", ".specific-ad", ".wildcard-ad"}, res.ElementHiding.Specific)
		assert.Equal(t, []string{"div:contains(ad)"}, res.ElementHiding.SpecificExtCSS)
		assert.Equal(t, []string{".banner { display: none; }"}, res.CSS.Specific)
		assert.Equal(t, []string{"window.a = 1;"}, res.JS.Specific)
		assert.Equal(t, []string{"//scriptlet('set-constant', 'a', '1')"}, res.Scriptlets.Specific)
		assert.Equal(t, []string{`script[tag-content="ads"]`}, res.HTML.Specific)
	})

	t.Run("other_site", func(t *testing.T) {
		t.Parallel()

		req := rules.NewRequest("https://other.example/", "", rules.TypeDocument)
		res := e.GetCosmeticResult(req, filter.CosmeticOptionAll)

		assert.Equal(t, []string{".generic-ad", ".not-on-example"}, res.ElementHiding.Generic)
		assert.Empty(t, res.ElementHiding.Specific)
		assert.Empty(t, res.JS.Specific)
	})

	t.Run("generichide", func(t *testing.T) {
		t.Parallel()

		ctx := testutil.ContextWithTimeout(t, testTimeout)
		req := rules.NewRequest("https://example.org/", "", rules.TypeDocument)

		opt := e.MatchRequest(ctx, req).GetCosmeticOption()
		assert.Equal(t, filter.CosmeticOptionAll&^filter.CosmeticOptionGenericCSS, opt)

		res := e.GetCosmeticResult(req, opt)
		assert.Empty(t, res.ElementHiding.Generic)
		assert.Equal(t, []string{".specific-ad", ".wildcard-ad"}, res.ElementHiding.Specific)
	})

	t.Run("none", func(t *testing.T) {
		t.Parallel()

		res := e.GetCosmeticResult(page, filter.CosmeticOptionNone)
		assert.Equal(t, &filter.CosmeticResult{}, res)
	})
}

func TestEngine_Reload(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "||example.org^\n")
	ctx := testutil.ContextWithTimeout(t, testTimeout)
	req := rules.NewRequest("https://example.org/", "", rules.TypeDocument)

	r := e.MatchRequest(ctx, req).GetBasicResult()
	require.NotNil(t, r)

	assert.Equal(t, "||example.org^", r.Text())

	err := e.Reload(ctx, newStorage(t, "||example.com^\n"))
	require.NoError(t, err)

	assert.Nil(t, e.MatchRequest(ctx, req).GetBasicResult())
}
