package filterlist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/bluele/gcache"
	"github.com/fcchbjm/adfilter/rules"
)

const (
	// ErrInvalidListID is returned for list IDs out of the allowed range.
	ErrInvalidListID errors.Error = "invalid list id"

	// ErrDuplicateListID is returned when a storage gets two lists with the
	// same ID.
	ErrDuplicateListID errors.Error = "duplicate list id"
)

// MaxListID is the exclusive upper bound of list IDs.
const MaxListID = 1_000_000

// DefaultCacheSize is the default number of retrieved rules a [RuleStorage]
// keeps.
const DefaultCacheSize = 10_000

// StorageIndex returns the index of the rule at ruleIdx of the list with the
// given ID within a storage.
func StorageIndex(listID, ruleIdx int) (idx int64) {
	return int64(listID)<<32 | int64(ruleIdx)&0xFFFF_FFFF
}

// SplitStorageIndex is the inverse of [StorageIndex].
func SplitStorageIndex(idx int64) (listID, ruleIdx int) {
	return int(idx >> 32), int(idx & 0xFFFF_FFFF)
}

// StorageConfig is the configuration of a [RuleStorage].
type StorageConfig struct {
	// Logger is used to report the rules that cannot be retrieved.  It must
	// not be nil.
	Logger *slog.Logger

	// Lists are the lists of the storage.  Their IDs must be unique.
	Lists []RuleList

	// CacheSize is the maximum number of the retrieved rules to keep in
	// memory.  If it's zero, [DefaultCacheSize] is used.
	CacheSize int
}

// RuleStorage combines several rule lists.  The rules are kept in the lists
// in their text form and only created when they are retrieved, so the engines
// keep the storage indexes of the rules instead of the rules.
//
// A storage index consists of two 32-bit values: the ID of the list and the
// index of the rule within it; see [StorageIndex].
type RuleStorage struct {
	logger *slog.Logger

	// cache contains the recently retrieved rules.  Keys are storage
	// indexes.
	cache gcache.Cache

	lists    []RuleList
	listsMap map[int]RuleList
}

// NewRuleStorage returns a new storage of c.Lists.  c must not be nil.
func NewRuleStorage(c *StorageConfig) (s *RuleStorage, err error) {
	listsMap := make(map[int]RuleList, len(c.Lists))
	for _, l := range c.Lists {
		id := l.ID()
		if err = validateListID(id); err != nil {
			return nil, err
		} else if _, ok := listsMap[id]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateListID, id)
		}

		listsMap[id] = l
	}

	size := c.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}

	return &RuleStorage{
		logger:   c.Logger,
		cache:    gcache.New(size).LRU().Build(),
		lists:    c.Lists,
		listsMap: listsMap,
	}, nil
}

// NewScanner returns a scanner of the rules of the given types from all the
// lists of the storage.
func (s *RuleStorage) NewScanner(t ScannerType) (sc *StorageScanner) {
	scanners := make([]*RuleScanner, 0, len(s.lists))
	for _, l := range s.lists {
		scanners = append(scanners, l.NewScanner(t))
	}

	return &StorageScanner{
		scanners: scanners,
	}
}

// RetrieveRule returns the rule with the given storage index.
func (s *RuleStorage) RetrieveRule(ctx context.Context, storageIdx int64) (r rules.Rule, err error) {
	v, err := s.cache.Get(storageIdx)
	if err == nil {
		return v.(rules.Rule), nil
	}

	listID, ruleIdx := SplitStorageIndex(storageIdx)
	l, ok := s.listsMap[listID]
	if !ok {
		return nil, fmt.Errorf("list %d: %w", listID, errors.ErrNoValue)
	}

	r, err = l.RetrieveRule(ctx, ruleIdx)
	if err != nil {
		return nil, err
	}

	err = s.cache.Set(storageIdx, r)
	if err != nil {
		// Don't wrap the error, because it's informational enough as is.
		return nil, err
	}

	return r, nil
}

// RetrieveNetworkRule returns the network rule with the given storage index.
// It returns nil if there is no such rule.
func (s *RuleStorage) RetrieveNetworkRule(ctx context.Context, idx int64) (r *rules.NetworkRule) {
	r, _ = s.retrieve(ctx, idx).(*rules.NetworkRule)

	return r
}

// RetrieveHostRule returns the host rule with the given storage index.  It
// returns nil if there is no such rule.
func (s *RuleStorage) RetrieveHostRule(ctx context.Context, idx int64) (r *rules.HostRule) {
	r, _ = s.retrieve(ctx, idx).(*rules.HostRule)

	return r
}

// retrieve returns the rule with the given storage index logging the errors.
func (s *RuleStorage) retrieve(ctx context.Context, idx int64) (r rules.Rule) {
	r, err := s.RetrieveRule(ctx, idx)
	if err != nil {
		s.logger.ErrorContext(ctx, "retrieving rule", "idx", idx, slogutil.KeyError, err)

		return nil
	}

	return r
}

// Close closes all the lists of the storage.
func (s *RuleStorage) Close() (err error) {
	var errs []error
	for _, l := range s.lists {
		err = l.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("closing list %d: %w", l.ID(), err))
		}
	}

	s.cache.Purge()

	return errors.Join(errs...)
}

// StorageScanner scans the rules of all the lists of a storage one by one.
type StorageScanner struct {
	rule     rules.Rule
	scanners []*RuleScanner
	errs     []error
	current  int
	idx      int64
}

// Scan advances the scanner to the next rule, which is then available through
// [StorageScanner.Rule].
func (s *StorageScanner) Scan(ctx context.Context) (ok bool) {
	for ; s.current < len(s.scanners); s.current++ {
		sc := s.scanners[s.current]
		if sc.Scan(ctx) {
			r, idx := sc.Rule()
			s.rule, s.idx = r, StorageIndex(sc.ListID(), idx)

			return true
		}

		if err := sc.Err(); err != nil {
			s.errs = append(s.errs, fmt.Errorf("scanning list %d: %w", sc.ListID(), err))
		}
	}

	s.rule = nil

	return false
}

// Rule returns the rule found by the most recent call to [StorageScanner.Scan]
// and its storage index.
func (s *StorageScanner) Rule() (r rules.Rule, storageIdx int64) {
	return s.rule, s.idx
}

// Err returns the read errors of all the scanned lists.
func (s *StorageScanner) Err() (err error) {
	return errors.Join(s.errs...)
}
