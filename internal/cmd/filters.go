package cmd

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
	"github.com/fcchbjm/adfilter/filterlist"
	"github.com/fcchbjm/adfilter/rules"
)

// newStorage opens the filter lists of conf and returns the storage of them.
// The lists given as text are converted to the native syntax.  l must not be
// nil.
func newStorage(
	ctx context.Context,
	l *slog.Logger,
	conf *configuration,
) (s *filterlist.RuleStorage, err error) {
	var lists []filterlist.RuleList
	defer func() {
		if err == nil {
			return
		}

		for _, rl := range lists {
			err = errors.WithDeferred(err, rl.Close())
		}
	}()

	for _, f := range conf.filters() {
		var rl filterlist.RuleList
		rl, err = conf.newRuleList(ctx, l, f)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", f.ID, err)
		}

		lists = append(lists, rl)
	}

	return filterlist.NewRuleStorage(&filterlist.StorageConfig{
		Logger: l,
		Lists:  lists,
	})
}

// newRuleList returns the rule list for f.  f must be valid.
func (conf *configuration) newRuleList(
	ctx context.Context,
	l *slog.Logger,
	f *filterConfig,
) (rl filterlist.RuleList, err error) {
	listConf := filterlist.Config{
		Logger:                 l,
		ID:                     f.ID,
		IgnoreCosmetic:         conf.IgnoreCosmetic,
		IgnoreJS:               conf.IgnoreJS,
		IgnoreUnsafe:           conf.IgnoreUnsafe,
		AllowTrustedScriptlets: conf.AllowTrustedScriptlets,
	}

	if f.Path != "" {
		return filterlist.NewFile(&filterlist.FileConfig{
			Config:  listConf,
			Path:    f.Path,
			MaxSize: conf.MaxListSize,
		})
	}

	p := filterlist.Preprocess(ctx, &filterlist.PreprocessConfig{
		Logger:     l,
		ParseHosts: true,
	}, f.Text)

	return filterlist.NewString(&filterlist.StringConfig{
		Config:    listConf,
		SourceMap: p.SourceMap,
		Text:      p.Rules,
	})
}

// invalidRule is a rule that failed to parse.
type invalidRule struct {
	err    error
	text   string
	listID int
	line   int
}

// checkFilters writes the invalid rules of the filter lists of conf to w.  n
// is the number of the invalid rules.
func checkFilters(ctx context.Context, l *slog.Logger, conf *configuration, w io.Writer) (n int, err error) {
	factory := rules.NewRuleFactory(&rules.FactoryConfig{
		Logger:                 l,
		AllowTrustedScriptlets: conf.AllowTrustedScriptlets,
		Strict:                 true,
	})

	for _, f := range conf.filters() {
		var text string
		text, err = conf.filterText(f)
		if err != nil {
			return n, fmt.Errorf("filter %d: %w", f.ID, err)
		}

		for _, r := range findInvalid(ctx, factory, f.ID, text) {
			n++
			_, err = fmt.Fprintf(w, "filter %d: line %d: %q: %s\n", r.listID, r.line, r.text, r.err)
			if err != nil {
				return n, fmt.Errorf("writing result: %w", err)
			}
		}
	}

	return n, nil
}

// filterText returns the text of the filter list f.
func (conf *configuration) filterText(f *filterConfig) (text string, err error) {
	if f.Path == "" {
		return f.Text, nil
	}

	// #nosec G304 -- Trust the paths from the configuration.
	file, err := os.Open(filepath.Clean(f.Path))
	if err != nil {
		return "", fmt.Errorf("opening rule list: %w", err)
	}
	defer func() { err = errors.WithDeferred(err, file.Close()) }()

	maxSize := conf.MaxListSize
	if maxSize == 0 {
		maxSize = filterlist.DefaultMaxListSize
	}

	b, err := io.ReadAll(io.LimitReader(file, int64(maxSize.Bytes())+1))
	if err != nil {
		return "", fmt.Errorf("reading rule list: %w", err)
	}

	if uint64(len(b)) > maxSize.Bytes() {
		return "", fmt.Errorf("rule list %q is too large: more than %s", f.Path, maxSize)
	}

	return string(b), nil
}

// findInvalid returns the rules of text that fail to parse even after the
// conversion to the native syntax.  Line numbers start with 1.
func findInvalid(
	ctx context.Context,
	factory *rules.RuleFactory,
	listID int,
	text string,
) (invalid []*invalidRule) {
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(nil, int(maxRuleLen.Bytes()))

	for line := 1; sc.Scan(); line++ {
		orig := sc.Text()
		n := rules.NewNode(orig)
		if converted, ok := filterlist.ConvertRule(n.Text); ok {
			n = rules.NewNode(converted)
		}

		_, err := factory.CreateRule(ctx, n, listID, 0)
		if err != nil {
			invalid = append(invalid, &invalidRule{
				err:    err,
				text:   strings.TrimSpace(orig),
				listID: listID,
				line:   line,
			})
		}
	}

	if err := sc.Err(); err != nil {
		invalid = append(invalid, &invalidRule{
			err:    fmt.Errorf("scanning: %w", err),
			listID: listID,
		})
	}

	return invalid
}

// maxRuleLen is the maximum length of a line checked by [findInvalid].
const maxRuleLen = 64 * datasize.KB
