package filter_test

import (
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/fcchbjm/adfilter/filter"
	"github.com/fcchbjm/adfilter/filterlist"
	"github.com/stretchr/testify/require"
)

// testTimeout is the common timeout for tests.
const testTimeout = 1 * time.Second

// testLogger is the common logger for tests.
var testLogger = slogutil.NewDiscardLogger()

// newStorage is a helper that returns a storage with a single list of text.
func newStorage(tb testing.TB, text string) (s *filterlist.RuleStorage) {
	tb.Helper()

	l, err := filterlist.NewString(&filterlist.StringConfig{
		Config: filterlist.Config{
			Logger: testLogger,
			ID:     1,
		},
		Text: text,
	})
	require.NoError(tb, err)

	s, err = filterlist.NewRuleStorage(&filterlist.StorageConfig{
		Logger: testLogger,
		Lists:  []filterlist.RuleList{l},
	})
	require.NoError(tb, err)
	testutil.CleanupAndRequireSuccess(tb, s.Close)

	return s
}

// newEngine is a helper that returns an engine with the rules of text.
func newEngine(tb testing.TB, text string) (e *filter.Engine) {
	tb.Helper()

	ctx := testutil.ContextWithTimeout(tb, testTimeout)
	e, err := filter.NewEngine(ctx, &filter.EngineConfig{
		Logger:  testLogger,
		Storage: newStorage(tb, text),
	})
	require.NoError(tb, err)

	return e
}
