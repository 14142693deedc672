// Package filterlist contains the filter lists, the storage that combines them,
// and the tools that prepare the lists for the engine.
package filterlist

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/c2h5oh/datasize"
	"github.com/fcchbjm/adfilter/rules"
)

// ErrRuleRetrieval is returned when a list has no rule at the given index.
const ErrRuleRetrieval errors.Error = "cannot retrieve the rule"

// DefaultMaxListSize is the default maximum size of a file rule list.
const DefaultMaxListSize = 64 * datasize.MB

// readerBufferSize is the size of the buffer used to read a single rule from
// a file.  On Linux the size of the data block is usually 4 KiB.
const readerBufferSize = 4 * datasize.KB

// RuleList is a set of filtering rules.  The index of a rule is the offset of
// its line within the list.
type RuleList interface {
	// ID returns the identifier of the list.
	ID() (id int)

	// NewScanner returns a new scanner that reads the rules of the given
	// types from the beginning of the list.
	NewScanner(t ScannerType) (s *RuleScanner)

	// RetrieveRule returns the rule at idx.  err is [ErrRuleRetrieval] if
	// there is no rule at idx.
	RetrieveRule(ctx context.Context, idx int) (r rules.Rule, err error)

	io.Closer
}

// Config is the common configuration of rule lists.
type Config struct {
	// Logger is used to report the invalid rules.  It must not be nil.
	Logger *slog.Logger

	// ID is the identifier of the list.  It must be non-negative and less
	// than [MaxListID].
	ID int

	// IgnoreCosmetic makes the scanners skip cosmetic rules.
	IgnoreCosmetic bool

	// IgnoreJS makes the scanners skip JavaScript and scriptlet rules.
	IgnoreJS bool

	// IgnoreUnsafe makes the scanners skip network rules with advanced
	// modifiers, such as $redirect or $removeheader.
	IgnoreUnsafe bool

	// AllowTrustedScriptlets allows scriptlets with the "trusted-" prefix.
	AllowTrustedScriptlets bool

	// HostsOnly makes the scanners return only host rules, as for the system
	// hosts files.
	HostsOnly bool
}

// validateListID returns an error if id cannot be used as a list ID.
func validateListID(id int) (err error) {
	if id < 0 || id >= MaxListID {
		return fmt.Errorf("%w: %d: must be in range [0, %d)", ErrInvalidListID, id, MaxListID)
	}

	return nil
}

// baseList contains the parts common to all rule lists.
type baseList struct {
	logger *slog.Logger

	// retriever creates rules of all kinds and reports the errors.
	retriever *rules.RuleFactory

	id int

	ignoreCosmetic         bool
	ignoreJS               bool
	ignoreUnsafe           bool
	allowTrustedScriptlets bool
	hostsOnly              bool
}

// newBaseList returns a new baseList for c.  c must be valid.
func newBaseList(c *Config) (l baseList) {
	return baseList{
		logger: c.Logger,
		retriever: rules.NewRuleFactory(&rules.FactoryConfig{
			Logger:                 c.Logger,
			AllowTrustedScriptlets: c.AllowTrustedScriptlets,
			Strict:                 true,
		}),
		id:                     c.ID,
		ignoreCosmetic:         c.IgnoreCosmetic,
		ignoreJS:               c.IgnoreJS,
		ignoreUnsafe:           c.IgnoreUnsafe,
		allowTrustedScriptlets: c.AllowTrustedScriptlets,
		hostsOnly:              c.HostsOnly,
	}
}

// ID implements the [RuleList] interface for baseList.
func (l *baseList) ID() (id int) { return l.id }

// newScanner returns a scanner of r with the settings of the list.
func (l *baseList) newScanner(r io.Reader, t ScannerType) (s *RuleScanner) {
	if l.hostsOnly {
		t &= ScannerTypeHost
	}

	return NewRuleScanner(r, l.id, &ScannerConfig{
		Logger:                 l.logger,
		Type:                   t,
		IgnoreCosmetic:         l.ignoreCosmetic,
		IgnoreJS:               l.ignoreJS,
		IgnoreUnsafe:           l.ignoreUnsafe,
		AllowTrustedScriptlets: l.allowTrustedScriptlets,
	})
}

// ruleFromLine creates the rule from the line at idx.
func (l *baseList) ruleFromLine(ctx context.Context, line string, idx int) (r rules.Rule, err error) {
	r, err = l.retriever.CreateRule(ctx, rules.NewNode(line), l.id, idx)
	if err != nil {
		return nil, fmt.Errorf("list %d: rule at %d: %w", l.id, idx, err)
	} else if r == nil {
		return nil, ErrRuleRetrieval
	}

	return r, nil
}

// StringConfig is the configuration of a [StringRuleList].
type StringConfig struct {
	Config

	// SourceMap optionally maps the indexes of the rules to their offsets in
	// the raw list, see [Preprocessed].
	SourceMap map[int]int

	// Text is the text of the list with one rule per line.
	Text string
}

// StringRuleList is a rule list kept in memory.
type StringRuleList struct {
	baseList

	sourceMap map[int]int
	text      string
}

// type check
var _ RuleList = (*StringRuleList)(nil)

// NewString returns a new string rule list.  c must not be nil.
func NewString(c *StringConfig) (l *StringRuleList, err error) {
	err = validateListID(c.ID)
	if err != nil {
		return nil, err
	}

	return &StringRuleList{
		baseList:  newBaseList(&c.Config),
		sourceMap: c.SourceMap,
		text:      c.Text,
	}, nil
}

// NewScanner implements the [RuleList] interface for *StringRuleList.
func (l *StringRuleList) NewScanner(t ScannerType) (s *RuleScanner) {
	return l.newScanner(strings.NewReader(l.text), t)
}

// RetrieveRule implements the [RuleList] interface for *StringRuleList.
func (l *StringRuleList) RetrieveRule(ctx context.Context, idx int) (r rules.Rule, err error) {
	if idx < 0 || idx >= len(l.text) {
		return nil, ErrRuleRetrieval
	}

	line := l.text[idx:]
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	if strings.TrimSpace(line) == "" {
		return nil, ErrRuleRetrieval
	}

	return l.ruleFromLine(ctx, line, idx)
}

// SourceIndex returns the offset of the rule at idx in the raw list it was
// converted from.  ok is false if the list has no source map or the source map
// has no such rule.
func (l *StringRuleList) SourceIndex(idx int) (srcIdx int, ok bool) {
	srcIdx, ok = l.sourceMap[idx]

	return srcIdx, ok
}

// Close implements the [RuleList] interface for *StringRuleList.  It does
// nothing.
func (l *StringRuleList) Close() (err error) { return nil }

// FileConfig is the configuration of a [FileRuleList].
type FileConfig struct {
	Config

	// Path is the path to the file with the rules.
	Path string

	// MaxSize is the maximum size of the file.  If it's zero,
	// [DefaultMaxListSize] is used.
	MaxSize datasize.ByteSize
}

// FileRuleList is a rule list that reads the rules from a file on demand.
type FileRuleList struct {
	baseList

	file *os.File
	size int64
}

// type check
var _ RuleList = (*FileRuleList)(nil)

// NewFile opens the file rule list.  c must not be nil.
func NewFile(c *FileConfig) (l *FileRuleList, err error) {
	err = validateListID(c.ID)
	if err != nil {
		return nil, err
	}

	maxSize := c.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxListSize
	}

	// #nosec G304 -- Trust the paths from the configuration.
	f, err := os.Open(filepath.Clean(c.Path))
	if err != nil {
		return nil, fmt.Errorf("opening rule list: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, errors.WithDeferred(fmt.Errorf("getting rule list size: %w", err), f.Close())
	}

	if size := fi.Size(); uint64(size) > maxSize.Bytes() {
		err = fmt.Errorf("rule list %q is too large: %s, max %s", c.Path, datasize.ByteSize(size), maxSize)

		return nil, errors.WithDeferred(err, f.Close())
	}

	return &FileRuleList{
		baseList: newBaseList(&c.Config),
		file:     f,
		size:     fi.Size(),
	}, nil
}

// NewScanner implements the [RuleList] interface for *FileRuleList.  Scanners
// don't share the read offset, so they can be used concurrently with each
// other and with [FileRuleList.RetrieveRule].
func (l *FileRuleList) NewScanner(t ScannerType) (s *RuleScanner) {
	return l.newScanner(io.NewSectionReader(l.file, 0, l.size), t)
}

// RetrieveRule implements the [RuleList] interface for *FileRuleList.
func (l *FileRuleList) RetrieveRule(ctx context.Context, idx int) (r rules.Rule, err error) {
	if idx < 0 || int64(idx) >= l.size {
		return nil, ErrRuleRetrieval
	}

	sr := io.NewSectionReader(l.file, int64(idx), l.size-int64(idx))
	line, err := bufio.NewReaderSize(sr, int(readerBufferSize.Bytes())).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading rule at %d: %w", idx, err)
	}

	if strings.TrimSpace(line) == "" {
		return nil, ErrRuleRetrieval
	}

	return l.ruleFromLine(ctx, line, idx)
}

// Close implements the [RuleList] interface for *FileRuleList.
func (l *FileRuleList) Close() (err error) {
	return l.file.Close()
}
