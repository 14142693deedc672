package rules

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

// Pattern is the compiled URL pattern of a network rule.  The matching strategy
// is chosen lazily on the first match and never changes after that.
type Pattern struct {
	// logger is used to report invalid regular expressions.  It may be nil.
	logger *slog.Logger

	// regex is the compiled regular expression, if the pattern requires one.
	regex *regexp.Regexp

	// prepareOnce makes sure the strategy is chosen only once.
	prepareOnce *sync.Once

	// text is the original pattern text.
	text string

	// shortcut is the longest part of the pattern that a matching URL must
	// contain, in lower case.
	shortcut string

	// hostname is set for the patterns of the form ||hostname^.
	hostname string

	// matchCase means the regular expression is case-sensitive.
	matchCase bool

	// shortcutOnly means the pattern is fully described by the shortcut.
	shortcutOnly bool

	// regexInvalid means the regular expression failed to compile.
	regexInvalid bool
}

// NewPattern returns a new pattern for text.  l is used to report invalid
// regular expressions, it may be nil.
func NewPattern(text string, matchCase bool, l *slog.Logger) (p *Pattern) {
	return &Pattern{
		logger:      l,
		prepareOnce: &sync.Once{},
		text:        text,
		shortcut:    extractShortcut(text),
		matchCase:   matchCase,
	}
}

// Text returns the pattern text.
func (p *Pattern) Text() (text string) {
	return p.text
}

// Shortcut returns the lower-case shortcut of the pattern.
func (p *Pattern) Shortcut() (shortcut string) {
	return p.shortcut
}

// IsRegex returns true if the pattern is a /regexp/.
func (p *Pattern) IsRegex() (ok bool) {
	return isRegexPattern(p.text)
}

// IsDomainSpecific returns true if the pattern is anchored to a URL start,
// e.g. it starts with "||" or a scheme.
func (p *Pattern) IsDomainSpecific() (ok bool) {
	return strings.HasPrefix(p.text, maskStartURL) ||
		strings.HasPrefix(p.text, "http://") ||
		strings.HasPrefix(p.text, "https:/") ||
		strings.HasPrefix(p.text, "://")
}

// Match returns true if the pattern matches r.  shortcutMatched means the
// caller has already checked that the URL contains the shortcut.
func (p *Pattern) Match(r *Request, shortcutMatched bool) (ok bool) {
	p.prepareOnce.Do(p.prepare)

	if p.shortcutOnly {
		return shortcutMatched || strings.Contains(r.URLLowerCase, p.shortcut)
	}

	if p.hostname != "" {
		return r.Hostname == p.hostname || strings.HasSuffix(r.Hostname, "."+p.hostname)
	}

	if p.regexInvalid || p.regex == nil {
		return false
	}

	if r.IsHostnameRequest && !p.IsDomainSpecific() {
		return p.regex.MatchString(r.Hostname)
	}

	return p.regex.MatchString(r.URL)
}

// MatchPath returns true if the pattern, used as a $path value, matches path.
func (p *Pattern) MatchPath(path string) (ok bool) {
	p.prepareOnce.Do(p.prepare)

	if p.hostname != "" {
		return false
	}

	if p.text == "" {
		// An empty $path matches the root only.
		return path == "/"
	}

	if p.shortcutOnly {
		return strings.Contains(path, p.shortcut)
	}

	if p.regexInvalid || p.regex == nil {
		return false
	}

	return p.regex.MatchString(path)
}

// prepare chooses the matching strategy.  It must only be called once.
func (p *Pattern) prepare() {
	if p.text == p.shortcut && !p.matchCase {
		p.shortcutOnly = true

		return
	}

	// Rules like "/example/*" are common, match them by the shortcut too.
	if len(p.text) == len(p.shortcut)+1 &&
		strings.HasPrefix(p.text, p.shortcut) &&
		strings.HasSuffix(p.text, maskAnyChar) {
		p.shortcutOnly = true

		return
	}

	if strings.HasPrefix(p.text, maskStartURL) &&
		strings.HasSuffix(p.text, maskSeparator) &&
		!strings.ContainsAny(p.text, "*/") {
		p.hostname = strings.ToLower(p.text[len(maskStartURL) : len(p.text)-len(maskSeparator)])

		return
	}

	p.compileRegex()
}

// compileRegex compiles the regular expression of the pattern.  On failure the
// pattern is marked invalid and never matches.
func (p *Pattern) compileRegex() {
	reText := patternToRegexp(p.text)
	if !p.matchCase {
		reText = "(?i)" + reText
	}

	re, err := regexp.Compile(reText)
	if err != nil {
		p.regexInvalid = true
		if p.logger != nil {
			p.logger.WarnContext(
				context.Background(),
				"invalid regexp in pattern",
				"pattern", p.text,
				slogutil.KeyError, err,
			)
		}

		return
	}

	p.regex = re
}
