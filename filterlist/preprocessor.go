package filterlist

import (
	"context"
	"iter"
	"log/slog"
	"strings"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/fcchbjm/adfilter/rules"
)

// Preprocessed is a filter list prepared for the engine.
//
// The engine only needs Rules.  Raw, ConversionMap, and SourceMap allow
// finding the text of a rule as it was written in the original list.
type Preprocessed struct {
	// ConversionMap maps the offsets of the converted rules in Raw to their
	// original text.
	ConversionMap map[int]string

	// SourceMap maps the offsets of the rules in Rules to their offsets in
	// Raw.
	SourceMap map[int]int

	// Rules are the valid rules in the native syntax, one per line.
	Rules string

	// Raw is the converted list including comments, empty lines, and invalid
	// rules.
	Raw string
}

// PreprocessConfig is the configuration of [Preprocess].
type PreprocessConfig struct {
	// Logger is used to report the rules that failed to parse.  It must not
	// be nil.
	Logger *slog.Logger

	// ParseHosts makes the preprocessor keep host rules.  Otherwise they are
	// only kept in the raw list.
	ParseHosts bool
}

// preprocessor keeps the state of a single preprocessing run.
type preprocessor struct {
	logger    *slog.Logger
	validator *rules.RuleFactory

	res *Preprocessed

	rules *strings.Builder
	raw   *strings.Builder

	parseHosts bool
}

// newPreprocessor returns a new preprocessor.  c must not be nil.
func newPreprocessor(c *PreprocessConfig, conversionMap map[int]string) (p *preprocessor) {
	return &preprocessor{
		logger: c.Logger,
		validator: rules.NewRuleFactory(&rules.FactoryConfig{
			Logger:                 c.Logger,
			AllowTrustedScriptlets: true,
			Strict:                 true,
		}),
		res: &Preprocessed{
			ConversionMap: conversionMap,
			SourceMap:     map[int]int{},
		},
		rules:      &strings.Builder{},
		raw:        &strings.Builder{},
		parseHosts: c.ParseHosts,
	}
}

// Preprocess converts text to the native syntax and builds the list of the
// valid rules.  Lines that fail to parse are logged and kept only in the raw
// list.
func Preprocess(ctx context.Context, c *PreprocessConfig, text string) (p *Preprocessed) {
	pp := newPreprocessor(c, map[int]string{})
	for line, lineBreak := range lines(text) {
		pp.processLine(ctx, line, lineBreak, true)
	}

	return pp.finish()
}

// Rebuild restores the list of the valid rules and the source map from the raw
// list and the conversion map of an earlier [Preprocess] call.  No conversion
// is made.
func Rebuild(ctx context.Context, c *PreprocessConfig, raw string, conversionMap map[int]string) (p *Preprocessed) {
	pp := newPreprocessor(c, conversionMap)
	for line, lineBreak := range lines(raw) {
		pp.processLine(ctx, line, lineBreak, false)
	}

	return pp.finish()
}

// processLine adds a single line with its line break to the result.
func (pp *preprocessor) processLine(ctx context.Context, line, lineBreak string, convert bool) {
	rawOffset := pp.raw.Len()
	n := rules.NewNode(line)
	if convert {
		if converted, ok := ConvertRule(n.Text); ok {
			pp.res.ConversionMap[rawOffset] = line
			line = converted
			n = rules.NewNode(converted)
		}
	}

	pp.raw.WriteString(line)
	pp.raw.WriteString(lineBreak)

	switch n.Category {
	case rules.CategoryEmpty, rules.CategoryComment:
		return
	case rules.CategoryHost:
		if !pp.parseHosts {
			return
		}
	}

	_, err := pp.validator.CreateRule(ctx, n, 0, 0)
	if err != nil {
		pp.logger.InfoContext(ctx, "failed to process rule", "rule", line, slogutil.KeyError, err)

		return
	}

	pp.res.SourceMap[pp.rules.Len()] = rawOffset
	pp.rules.WriteString(n.Text)
	pp.rules.WriteByte('\n')
}

// finish returns the result of the run.
func (pp *preprocessor) finish() (p *Preprocessed) {
	pp.res.Rules = pp.rules.String()
	pp.res.Raw = pp.raw.String()

	return pp.res
}

// lines returns an iterator over the lines of text and their line breaks.  It
// recognizes "\n", "\r\n", and "\r" line breaks.
func lines(text string) (seq iter.Seq2[string, string]) {
	return func(yield func(line, lineBreak string) bool) {
		for text != "" {
			i := strings.IndexAny(text, "\r\n")
			if i == -1 {
				yield(text, "")

				return
			}

			n := 1
			if text[i] == '\r' && i+1 < len(text) && text[i+1] == '\n' {
				n = 2
			}

			if !yield(text[:i], text[i:i+n]) {
				return
			}

			text = text[i+n:]
		}
	}
}

// OriginalRule returns the original text of the rule at rawIdx of the raw
// list.
func (p *Preprocessed) OriginalRule(rawIdx int) (text string) {
	if orig, ok := p.ConversionMap[rawIdx]; ok {
		return orig
	}

	if rawIdx < 0 || rawIdx >= len(p.Raw) {
		return ""
	}

	text = p.Raw[rawIdx:]
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		text = text[:i]
	}

	return text
}

// originalLine returns the original text of line at offset of the raw list.
func (p *Preprocessed) originalLine(line string, offset int) (orig string) {
	if orig, ok := p.ConversionMap[offset]; ok {
		return orig
	}

	return line
}

// OriginalRules returns the lines of the original list.  If the list ends with
// a line break, the last element is an empty string.
func (p *Preprocessed) OriginalRules() (res []string) {
	res = []string{}
	offset, lastBreak := 0, ""
	for line, lineBreak := range lines(p.Raw) {
		res = append(res, p.originalLine(line, offset))
		offset += len(line) + len(lineBreak)
		lastBreak = lineBreak
	}

	if lastBreak != "" {
		res = append(res, "")
	}

	return res
}

// OriginalText returns the text of the original list.
func (p *Preprocessed) OriginalText() (text string) {
	sb := &strings.Builder{}
	offset := 0
	for line, lineBreak := range lines(p.Raw) {
		sb.WriteString(p.originalLine(line, offset))
		sb.WriteString(lineBreak)
		offset += len(line) + len(lineBreak)
	}

	return sb.String()
}
