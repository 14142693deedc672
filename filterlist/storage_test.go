package filterlist_test

import (
	"testing"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/fcchbjm/adfilter/filterlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStorage is a helper that returns a storage with two lists.
func newTestStorage(tb testing.TB) (s *filterlist.RuleStorage) {
	tb.Helper()

	s, err := filterlist.NewRuleStorage(&filterlist.StorageConfig{
		Logger: testLogger,
		Lists: []filterlist.RuleList{
			newStringList(tb, 1, testRulesText),
			newStringList(tb, 2, "||ads.example^\n0.0.0.0 tracker.example\n"),
		},
		CacheSize: 2,
	})
	require.NoError(tb, err)
	testutil.CleanupAndRequireSuccess(tb, s.Close)

	return s
}

func TestStorageIndex(t *testing.T) {
	t.Parallel()

	idx := filterlist.StorageIndex(filterlist.MaxListID-1, 1<<31)
	listID, ruleIdx := filterlist.SplitStorageIndex(idx)

	assert.Equal(t, filterlist.MaxListID-1, listID)
	assert.Equal(t, 1<<31, ruleIdx)
}

func TestNewRuleStorage_duplicateID(t *testing.T) {
	t.Parallel()

	_, err := filterlist.NewRuleStorage(&filterlist.StorageConfig{
		Logger: testLogger,
		Lists: []filterlist.RuleList{
			newStringList(t, 1, ""),
			newStringList(t, 1, ""),
		},
	})
	assert.ErrorIs(t, err, filterlist.ErrDuplicateListID)
}

func TestRuleStorage(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := testutil.ContextWithTimeout(t, testTimeout)

	sc := s.NewScanner(filterlist.ScannerTypeNetwork | filterlist.ScannerTypeHost)

	var idxs []int64
	var texts []string
	for sc.Scan(ctx) {
		r, idx := sc.Rule()
		idxs = append(idxs, idx)
		texts = append(texts, r.Text())
	}

	require.NoError(t, sc.Err())

	assert.Equal(t, []string{
		"||example.org^",
		"127.0.0.1 local.example",
		"@@||example.org^$document",
		"||ads.example^",
		"0.0.0.0 tracker.example",
	}, texts)
	assert.Equal(t, []int64{
		filterlist.StorageIndex(1, 10),
		filterlist.StorageIndex(1, 43),
		filterlist.StorageIndex(1, 67),
		filterlist.StorageIndex(2, 0),
		filterlist.StorageIndex(2, 15),
	}, idxs)

	t.Run("retrieve", func(t *testing.T) {
		for i, idx := range idxs {
			r, err := s.RetrieveRule(ctx, idx)
			require.NoError(t, err)

			assert.Equal(t, texts[i], r.Text())
		}
	})

	t.Run("cached", func(t *testing.T) {
		idx := filterlist.StorageIndex(2, 0)

		first := s.RetrieveNetworkRule(ctx, idx)
		require.NotNil(t, first)

		assert.Same(t, first, s.RetrieveNetworkRule(ctx, idx))
	})

	t.Run("typed", func(t *testing.T) {
		assert.NotNil(t, s.RetrieveHostRule(ctx, filterlist.StorageIndex(2, 15)))
		assert.Nil(t, s.RetrieveHostRule(ctx, filterlist.StorageIndex(2, 0)))
		assert.Nil(t, s.RetrieveNetworkRule(ctx, filterlist.StorageIndex(1, 0)))
	})

	t.Run("no_list", func(t *testing.T) {
		_, err := s.RetrieveRule(ctx, filterlist.StorageIndex(3, 0))
		assert.ErrorIs(t, err, errors.ErrNoValue)
	})
}
