package filter

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubdomains(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		hostname string
		want     []string
	}{{
		name:     "empty",
		hostname: "",
		want:     nil,
	}, {
		name:     "tld",
		hostname: "org",
		want:     []string{"org"},
	}, {
		name:     "several",
		hostname: "a.b.example.org",
		want:     []string{"a.b.example.org", "b.example.org", "example.org", "org"},
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			seq := subdomains(tc.hostname)
			assert.Equal(t, tc.want, slices.Collect(seq))

			// The iterator must be reusable.
			assert.Equal(t, tc.want, slices.Collect(seq))
		})
	}
}

func TestFastHash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(0), fastHash(""))
	assert.Equal(t, uint32(5381*33^'a'), fastHash("a"))
	assert.Equal(t, fastHash("ample"), fastHashBetween("example", 2, 7))
	assert.NotEqual(t, fastHash("ample"), fastHash("exampl"))
}

func TestIsAnyURLShortcut(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		shortcut string
		want     bool
	}{{
		shortcut: "ws://",
		want:     true,
	}, {
		shortcut: "ws://example",
		want:     false,
	}, {
		shortcut: "|wss:/",
		want:     true,
	}, {
		shortcut: "https://",
		want:     true,
	}, {
		shortcut: "https://example.org",
		want:     false,
	}, {
		shortcut: "|http://",
		want:     true,
	}, {
		shortcut: "example.org",
		want:     false,
	}}

	for _, tc := range testCases {
		t.Run(tc.shortcut, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, isAnyURLShortcut(tc.shortcut))
		})
	}
}

func TestNetworkEngine_tables(t *testing.T) {
	t.Parallel()

	e := newNetworkEngine(nil)

	testCases := []struct {
		name  string
		rule  string
		table int
	}{{
		name:  "shortcut",
		rule:  "||example.org^",
		table: 0,
	}, {
		name:  "domains",
		rule:  "*$script,domain=example.org|example.com",
		table: 1,
	}, {
		name:  "wildcard_domain",
		rule:  "*$script,domain=example.*",
		table: 2,
	}, {
		name:  "short",
		rule:  "/ad.",
		table: 2,
	}}

	for _, tc := range testCases {
		r := newRules(t, tc.rule)[0]
		for i, table := range e.lookupTables {
			ok := table.tryAdd(r, 0)
			if i == tc.table {
				assert.Truef(t, ok, "rule %q, table %d", tc.rule, i)

				break
			}

			assert.Falsef(t, ok, "rule %q, table %d", tc.rule, i)
		}
	}
}
