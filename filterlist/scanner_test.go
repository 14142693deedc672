package filterlist_test

import (
	"strings"
	"testing"

	"github.com/fcchbjm/adfilter/filterlist"
	"github.com/stretchr/testify/assert"
)

func TestRuleScanner_types(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		wantIdxs []int
		typ      filterlist.ScannerType
	}{{
		name:     "all",
		wantIdxs: []int{10, 25, 43, 67},
		typ:      filterlist.ScannerTypeAll,
	}, {
		name:     "network",
		wantIdxs: []int{10, 67},
		typ:      filterlist.ScannerTypeNetwork,
	}, {
		name:     "cosmetic",
		wantIdxs: []int{25},
		typ:      filterlist.ScannerTypeCosmetic,
	}, {
		name:     "host",
		wantIdxs: []int{43},
		typ:      filterlist.ScannerTypeHost,
	}, {
		name:     "network_and_host",
		wantIdxs: []int{10, 43, 67},
		typ:      filterlist.ScannerTypeNetwork | filterlist.ScannerTypeHost,
	}, {
		name:     "none",
		wantIdxs: nil,
		typ:      0,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := filterlist.NewRuleScanner(strings.NewReader(testRulesText), testListID, &filterlist.ScannerConfig{
				Logger: testLogger,
				Type:   tc.typ,
			})

			_, idxs := scanAll(t, s)
			assert.Equal(t, tc.wantIdxs, idxs)
			assert.Equal(t, testListID, s.ListID())
		})
	}
}

func TestRuleScanner_ignore(t *testing.T) {
	t.Parallel()

	const text = "example.org#%#window.a = 1;\n" +
		"example.org#%#//scriptlet('set-constant', 'a', '1')\n" +
		"example.org##.ad\n" +
		"||example.org^$redirect=nooptext\n" +
		"||example.org^$cookie=ads\n" +
		"||example.org^$invalid-modifier\n" +
		"||example.org^"

	testCases := []struct {
		conf *filterlist.ScannerConfig
		name string
		want []string
	}{{
		conf: &filterlist.ScannerConfig{
			Logger: testLogger,
			Type:   filterlist.ScannerTypeAll,
		},
		name: "none",
		want: []string{
			"example.org#%#window.a = 1;",
			"example.org#%#//scriptlet('set-constant', 'a', '1')",
			"example.org##.ad",
			"||example.org^$redirect=nooptext",
			"||example.org^$cookie=ads",
			"||example.org^",
		},
	}, {
		conf: &filterlist.ScannerConfig{
			Logger:         testLogger,
			Type:           filterlist.ScannerTypeAll,
			IgnoreCosmetic: true,
		},
		name: "cosmetic",
		want: []string{
			"||example.org^$redirect=nooptext",
			"||example.org^$cookie=ads",
			"||example.org^",
		},
	}, {
		conf: &filterlist.ScannerConfig{
			Logger:   testLogger,
			Type:     filterlist.ScannerTypeAll,
			IgnoreJS: true,
		},
		name: "js",
		want: []string{
			"example.org##.ad",
			"||example.org^$redirect=nooptext",
			"||example.org^$cookie=ads",
			"||example.org^",
		},
	}, {
		conf: &filterlist.ScannerConfig{
			Logger:       testLogger,
			Type:         filterlist.ScannerTypeAll,
			IgnoreUnsafe: true,
		},
		name: "unsafe",
		want: []string{
			"example.org#%#window.a = 1;",
			"example.org#%#//scriptlet('set-constant', 'a', '1')",
			"example.org##.ad",
			"||example.org^",
		},
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := filterlist.NewRuleScanner(strings.NewReader(text), testListID, tc.conf)
			texts, _ := scanAll(t, s)
			assert.Equal(t, tc.want, texts)
		})
	}
}
