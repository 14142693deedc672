package rules

import (
	"strings"
	"sync"
	"testing"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractShortcut(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		pattern string
		want    string
	}{{
		name:    "basic",
		pattern: "||Example.org^",
		want:    "example.org",
	}, {
		name:    "wildcards",
		pattern: "/ads/*/banner_long*",
		want:    "/banner_long",
	}, {
		name:    "regexp",
		pattern: `/example\.org\/ads/`,
		want:    "example.org/ads",
	}, {
		name:    "regexp_protocol",
		pattern: `/^https?:\/\/ads\.example\.org/`,
		want:    "ads.example.org",
	}, {
		name:    "regexp_alternative",
		pattern: `/(banner|advert)[0-9]+/`,
		want:    "",
	}, {
		name:    "regexp_optional_group",
		pattern: `/(www\.)?a\.io/`,
		want:    "a.io",
	}, {
		name:    "regexp_optional_char",
		pattern: `/colou?r-banner/`,
		want:    "banner",
	}, {
		name:    "regexp_negative_lookahead",
		pattern: `/(?!longer-excluded-text)ads/`,
		want:    "ads",
	}, {
		name:    "regexp_class",
		pattern: `/ad[sx]banner/`,
		want:    "banner",
	}, {
		name:    "regexp_too_short",
		pattern: "//",
		want:    "",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, extractShortcut(tc.pattern))
		})
	}
}

func TestPatternToRegexp(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		pattern string
		want    string
	}{{
		name:    "any",
		pattern: "*",
		want:    regexAnyChar,
	}, {
		name:    "start_url",
		pattern: "||example.org^",
		want:    regexStartURL + `example\.org` + regexSeparator,
	}, {
		name:    "pipes",
		pattern: "|https://a|b.com|",
		want:    `^https:\/\/a\|b\.com$`,
	}, {
		name:    "wildcard",
		pattern: "/ads/*.js",
		want:    `\/ads\/.*\.js`,
	}, {
		name:    "regexp",
		pattern: `/banner\d+/`,
		want:    `banner\d+`,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, patternToRegexp(tc.pattern))
		})
	}
}

// shortcutSoundnessPatterns are the patterns for which every URL they match
// must contain their shortcut.
var shortcutSoundnessPatterns = []string{
	"||example.org^",
	"/ads/*/banner",
	`/example\.org\/ads/`,
	`/(www\.)?a\.io/`,
	`/colou?r-banner/`,
	`/ad[sx]banner/`,
	`/^https?:\/\/ads\.example\.org/`,
}

// shortcutSoundnessURLs are matched against shortcutSoundnessPatterns.
var shortcutSoundnessURLs = []string{
	"https://example.org/",
	"https://sub.example.org/ads/1/banner",
	"https://example.org/ads/x",
	"https://a.io/",
	"https://www.a.io/",
	"https://x.example/color-banner",
	"https://x.example/colour-banner",
	"https://x.example/adxbanner",
	"http://ads.example.org/",
	"https://ads.example.org/",
}

func TestPattern_shortcutSoundness(t *testing.T) {
	t.Parallel()

	l := slogutil.NewDiscardLogger()
	for _, text := range shortcutSoundnessPatterns {
		p := NewPattern(text, false, l)
		for _, u := range shortcutSoundnessURLs {
			r := NewRequest(u, "", TypeOther)
			if p.Match(r, false) {
				assert.Truef(
					t,
					strings.Contains(r.URLLowerCase, p.Shortcut()),
					"pattern %q matches %q without shortcut %q",
					text,
					u,
					p.Shortcut(),
				)
			}
		}
	}
}

func TestPattern_Match(t *testing.T) {
	t.Parallel()

	l := slogutil.NewDiscardLogger()

	t.Run("shortcut_only", func(t *testing.T) {
		t.Parallel()

		p := NewPattern("ads-", false, l)
		assert.True(t, p.Match(NewRequest("https://example.org/ADS-1", "", TypeImage), false))
		assert.True(t, p.shortcutOnly)
	})

	t.Run("hostname", func(t *testing.T) {
		t.Parallel()

		p := NewPattern("||Example.org^", false, l)
		assert.True(t, p.Match(NewRequest("https://example.org/", "", TypeOther), false))
		assert.True(t, p.Match(NewRequestForHostname("a.example.org"), false))
		assert.False(t, p.Match(NewRequestForHostname("badexample.org"), false))
		assert.Equal(t, "example.org", p.hostname)
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()

		p := NewPattern("||example.org/ads*.js", false, l)
		r := NewRequest("https://example.org/ads/1.js", "", TypeScript)

		assert.True(t, p.Match(r, false))
		re := p.regex
		require.NotNil(t, re)

		assert.True(t, p.Match(r, false))
		assert.False(t, p.Match(NewRequest("https://example.org/img/1.png", "", TypeImage), false))

		assert.Same(t, re, p.regex)
		assert.False(t, p.shortcutOnly)
		assert.Empty(t, p.hostname)
		assert.False(t, p.regexInvalid)
	})

	t.Run("invalid_regexp", func(t *testing.T) {
		t.Parallel()

		p := NewPattern("/badregex(/", false, l)
		r := NewRequest("https://example.org/badregex(/", "", TypeScript)

		assert.False(t, p.Match(r, false))
		assert.True(t, p.regexInvalid)
		assert.False(t, p.Match(r, false))
	})

	t.Run("path", func(t *testing.T) {
		t.Parallel()

		assert.True(t, NewPattern("", false, l).MatchPath("/"))
		assert.False(t, NewPattern("", false, l).MatchPath("/page"))
		assert.True(t, NewPattern("/page", false, l).MatchPath("/page?x=1"))
		assert.True(t, NewPattern(`/\/sub\d\//`, false, l).MatchPath("/sub1/a"))
		assert.False(t, NewPattern(`/\/sub\d\//`, false, l).MatchPath("/suba/a"))
	})
}

func TestPattern_Match_concurrent(t *testing.T) {
	t.Parallel()

	const goroutinesNum = 16

	r, err := NewNetworkRule(`/banner\d+\.png$/`, 1, slogutil.NewDiscardLogger())
	require.NoError(t, err)

	matching := NewRequest("https://example.org/banner12.png", "", TypeImage)
	other := NewRequest("https://example.org/banner.png", "", TypeImage)

	var wg sync.WaitGroup
	results := make([][2]bool, goroutinesNum)
	for i := range goroutinesNum {
		wg.Add(1)
		go func() {
			defer wg.Done()

			results[i] = [2]bool{r.Match(matching, false), r.Match(other, false)}
		}()
	}

	wg.Wait()

	for i, res := range results {
		assert.Equalf(t, [2]bool{true, false}, res, "goroutine %d", i)
	}

	re := r.Pattern().regex
	require.NotNil(t, re)

	assert.True(t, r.Match(matching, false))
	assert.Same(t, re, r.Pattern().regex)
}

func TestSplitWithEscapeCharacter(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b,c", "d"}, splitWithEscapeCharacter(`a,b\,c,d`, ',', '\\', false))
	assert.Equal(t, []string{"a", "b"}, splitWithEscapeCharacter("a,,b", ',', '\\', false))
	assert.Equal(t, []string{"a", "", "b"}, splitWithEscapeCharacter("a,,b", ',', '\\', true))
	assert.Nil(t, splitWithEscapeCharacter("", ',', '\\', true))
}
