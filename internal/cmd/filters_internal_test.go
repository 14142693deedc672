package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/fcchbjm/adfilter/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTimeout is the common timeout for tests.
const testTimeout = 1 * time.Second

// testLogger is the common logger for tests.
var testLogger = slogutil.NewDiscardLogger()

// writeList is a helper that writes text to a temporary filter list file and
// returns its path.
func writeList(tb testing.TB, text string) (path string) {
	tb.Helper()

	path = filepath.Join(tb.TempDir(), "list.txt")
	err := os.WriteFile(path, []byte(text), 0o600)
	require.NoError(tb, err)

	return path
}

func TestNewStorage(t *testing.T) {
	t.Parallel()

	conf := newDefaultConfig()
	conf.Filters = []*filterConfig{{
		ID:   1,
		Text: "||text.example^\n! comment\n0.0.0.0 hosts.example\n",
	}}
	conf.FilterPaths = []string{writeList(t, "||file.example^\n")}

	ctx := testutil.ContextWithTimeout(t, testTimeout)
	s, err := newStorage(ctx, testLogger, conf)
	require.NoError(t, err)
	testutil.CleanupAndRequireSuccess(t, s.Close)

	e, err := filter.NewDNSEngine(ctx, &filter.DNSEngineConfig{
		Logger:  testLogger,
		Storage: s,
	})
	require.NoError(t, err)

	testCases := []struct {
		name      string
		host      string
		wantMatch bool
	}{{
		name:      "text",
		host:      "text.example",
		wantMatch: true,
	}, {
		name:      "file",
		host:      "file.example",
		wantMatch: true,
	}, {
		name:      "hosts",
		host:      "hosts.example",
		wantMatch: true,
	}, {
		name:      "none",
		host:      "other.example",
		wantMatch: false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, ok := e.Match(testutil.ContextWithTimeout(t, testTimeout), tc.host)
			assert.Equal(t, tc.wantMatch, ok)
		})
	}
}

func TestNewStorage_error(t *testing.T) {
	t.Parallel()

	conf := newDefaultConfig()
	conf.Filters = []*filterConfig{{
		ID:   1,
		Text: "||text.example^\n",
	}}
	conf.FilterPaths = []string{filepath.Join(t.TempDir(), "missing.txt")}

	ctx := testutil.ContextWithTimeout(t, testTimeout)
	s, err := newStorage(ctx, testLogger, conf)
	require.Error(t, err)

	assert.Nil(t, s)
}

func TestCheckFilters(t *testing.T) {
	t.Parallel()

	const listText = "! Title: test\n" +
		"||valid.example^\n" +
		"||invalid.example^$unknownoption\n" +
		"\n" +
		"example.org##.banner\n" +
		"@@||bad.example^$important,otherunknown\n"

	conf := newDefaultConfig()
	conf.CheckFilters = true
	conf.FilterPaths = []string{writeList(t, listText)}
	require.NoError(t, conf.validate())

	out := &bytes.Buffer{}
	ctx := testutil.ContextWithTimeout(t, testTimeout)
	n, err := checkFilters(ctx, testLogger, conf, out)
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Contains(t, out.String(), "filter 1: line 3:")
	assert.Contains(t, out.String(), "filter 1: line 6:")
	assert.NotContains(t, out.String(), "line 2:")
}

func TestCheckFilters_valid(t *testing.T) {
	t.Parallel()

	conf := newDefaultConfig()
	conf.Filters = []*filterConfig{{
		ID: 1,
		// The uBlock Origin syntax is converted before the check.
		Text: "||ads.example^$3p,xhr\nexample.org##.banner\n",
	}}

	out := &bytes.Buffer{}
	ctx := testutil.ContextWithTimeout(t, testTimeout)
	n, err := checkFilters(ctx, testLogger, conf, out)
	require.NoError(t, err)

	assert.Zero(t, n)
	assert.Empty(t, out.String())
}
