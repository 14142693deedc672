package rules

import (
	"strings"
)

// Pattern masks and their regular expression equivalents.
const (
	maskStartURL   = "||"
	regexStartURL  = `^(http|https|ws|wss)://([a-z0-9-_.]+\.)?`
	maskPipe       = "|"
	regexEndString = "$"
	regexStartStr  = "^"
	maskSeparator  = "^"
	regexSeparator = `([^ a-zA-Z0-9.%_-]|$)`
	maskAnyChar    = "*"
	regexAnyChar   = ".*"
	maskRegexRule  = "/"
	protocolMarker = `:\/\/`
	minGenericRule = 4
)

// regexpSpecials are the characters escaped when a basic pattern is converted
// to a regular expression.  "*", "|", and "^" have special meaning in the
// patterns and are handled separately.
const regexpSpecials = `.+?${}()[]/\`

// isRegexPattern returns true if str is a /regexp/.
func isRegexPattern(str string) (ok bool) {
	return len(str) >= 2 && str[0] == '/' && str[len(str)-1] == '/'
}

// extractShortcut returns the longest substring of pattern that any matching
// URL is guaranteed to contain, in lower case.
func extractShortcut(pattern string) (shortcut string) {
	if isRegexPattern(pattern) {
		return extractRegexpShortcut(pattern)
	}

	return extractBasicShortcut(pattern)
}

// extractBasicShortcut returns the longest part of pattern between special
// characters.
func extractBasicShortcut(pattern string) (shortcut string) {
	parts := strings.FieldsFunc(pattern, func(r rune) (ok bool) {
		return r == '*' || r == '^' || r == '|'
	})

	for _, p := range parts {
		if len(p) > len(shortcut) {
			shortcut = p
		}
	}

	return strings.ToLower(shortcut)
}

// regexpShortcutExtractor keeps the state of [extractRegexpShortcut].
type regexpShortcutExtractor struct {
	pattern      string
	current      strings.Builder
	longestGroup string
	longest      string
	i            int
	groupBalance int
}

// resetToken finishes the current token.
func (e *regexpShortcutExtractor) resetToken() {
	if e.current.Len() > len(e.longestGroup) {
		e.longestGroup = e.current.String()
	}

	e.current.Reset()
}

// resetGroup finishes the current group.
func (e *regexpShortcutExtractor) resetGroup() {
	if len(e.longestGroup) > len(e.longest) {
		e.longest = e.longestGroup
	}

	e.longestGroup = ""
}

// dropOptional removes the last character of the current token, which is
// made optional by a following quantifier.
func (e *regexpShortcutExtractor) dropOptional() {
	s := e.current.String()
	if s == "" {
		return
	}

	e.current.Reset()
	e.current.WriteString(s[:len(s)-1])
}

// skipGroup drops the tokens of the current group and moves past its end.
func (e *regexpShortcutExtractor) skipGroup() {
	e.current.Reset()
	e.longestGroup = ""

	start := e.groupBalance
	for ; e.i < len(e.pattern); e.i++ {
		c := e.pattern[e.i]
		escaped := e.i > 0 && e.pattern[e.i-1] == '\\'
		if c == '(' && !escaped {
			e.groupBalance++
		} else if c == ')' && !escaped {
			e.groupBalance--
			if e.groupBalance < start {
				return
			}
		}
	}
}

// nextUnescaped returns the index of the next unescaped c starting from start
// or the length of the pattern.
func (e *regexpShortcutExtractor) nextUnescaped(c byte, start int) (idx int) {
	for i := start; i < len(e.pattern); i++ {
		if e.pattern[i] == c && (i == 0 || e.pattern[i-1] != '\\') {
			return i
		}
	}

	return len(e.pattern)
}

// handleEscape processes an escape sequence starting at the backslash.
func (e *regexpShortcutExtractor) handleEscape() {
	e.i++
	if e.i >= len(e.pattern) {
		return
	}

	switch c := e.pattern[e.i]; c {
	case 'c':
		e.resetToken()
		e.i += 2
	case 'x':
		e.resetToken()
		e.i += 3
	case 'u':
		e.resetToken()
		e.i += 5
	case 'k':
		e.resetToken()
		e.i++
		if e.i < len(e.pattern) && e.pattern[e.i] == '<' {
			e.i = e.nextUnescaped('>', e.i) + 1
		}
	case '.', '/':
		e.current.WriteByte(c)
		e.i++
	default:
		// Character classes, control characters, and everything else.
		e.resetToken()
		e.i++
	}
}

// handleGroupOpen processes an opening parenthesis.
func (e *regexpShortcutExtractor) handleGroupOpen() {
	e.resetToken()
	e.resetGroup()
	e.groupBalance++
	e.i++

	rest := e.pattern[e.i:]
	if strings.HasPrefix(rest, "?!") || strings.HasPrefix(rest, "?<!") {
		// Negative lookarounds contain data absent from the matched strings.
		e.skipGroup()

		return
	}

	if strings.HasPrefix(rest, "?<") {
		e.i = e.nextUnescaped('>', e.i+2) + 1
	}
}

// extractRegexpShortcut returns the longest literal that is guaranteed to be a
// part of any string matched by a /regexp/ pattern.
func extractRegexpShortcut(pattern string) (shortcut string) {
	if len(pattern) < 3 || !isRegexPattern(pattern) {
		return ""
	}

	e := &regexpShortcutExtractor{pattern: pattern, i: 1}
	if idx := strings.Index(pattern, protocolMarker); idx != -1 {
		e.i = idx + len(protocolMarker)
	}

	for e.i < len(pattern) {
		c := pattern[e.i]
		switch {
		case c == '\\':
			e.handleEscape()
		case c == '[':
			e.resetToken()
			e.i = e.nextUnescaped(']', e.i) + 1
		case c == '|':
			// Alternatives aren't guaranteed to be present.
			e.skipGroup()
		case c == '{':
			e.dropOptional()
			e.resetToken()
			e.i = e.nextUnescaped('}', e.i) + 1
		case c == '(':
			e.handleGroupOpen()
		case c == ')':
			e.resetToken()
			if e.i+1 < len(pattern) && strings.IndexByte("?*{", pattern[e.i+1]) != -1 {
				// The group is optional.
				e.longestGroup = ""
			}

			e.resetGroup()
			e.groupBalance--
			e.i++
		case strings.IndexByte(".*+?^$/", c) != -1:
			if c == '?' || c == '*' {
				e.dropOptional()
			}

			e.resetToken()
			e.i++
		case isAlphaNumeric(c):
			e.current.WriteByte(c)
			e.i++
		default:
			e.resetToken()
			e.i++
		}
	}

	e.resetToken()
	e.resetGroup()

	return strings.ToLower(e.longest)
}

// isAlphaNumeric returns true if c is an ASCII letter or digit.
func isAlphaNumeric(c byte) (ok bool) {
	return (c >= '0' && c <= '9') || (c|0x20 >= 'a' && c|0x20 <= 'z')
}

// patternToRegexp converts a basic rule pattern to the text of a regular
// expression.  /regexp/ patterns are returned without the slashes.
func patternToRegexp(pattern string) (re string) {
	switch pattern {
	case maskStartURL, maskPipe, maskAnyChar, "":
		return regexAnyChar
	}

	if isRegexPattern(pattern) {
		return pattern[1 : len(pattern)-1]
	}

	sb := &strings.Builder{}
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if strings.IndexByte(regexpSpecials, c) != -1 {
			sb.WriteByte('\\')
		}

		sb.WriteByte(c)
	}

	re = sb.String()

	// Escape "|" everywhere except for the special places at the edges.
	prefixLen := len(maskPipe)
	if strings.HasPrefix(re, maskStartURL) {
		prefixLen = len(maskStartURL)
	}

	if len(re) > prefixLen+len(maskPipe) {
		middle := re[prefixLen : len(re)-len(maskPipe)]
		re = re[:prefixLen] + strings.ReplaceAll(middle, maskPipe, `\|`) + re[len(re)-len(maskPipe):]
	}

	re = strings.ReplaceAll(re, maskAnyChar, regexAnyChar)
	re = strings.ReplaceAll(re, maskSeparator, regexSeparator)

	if strings.HasPrefix(re, maskStartURL) {
		re = regexStartURL + re[len(maskStartURL):]
	} else if strings.HasPrefix(re, maskPipe) {
		re = regexStartStr + re[len(maskPipe):]
	}

	if strings.HasSuffix(re, maskPipe) {
		re = re[:len(re)-len(maskPipe)] + regexEndString
	}

	return re
}

// splitWithEscapeCharacter splits str by sep if sep is not escaped with esc.
// Escaped separators are unescaped.  Empty tokens are kept if
// preserveAllTokens is true.
func splitWithEscapeCharacter(str string, sep, esc byte, preserveAllTokens bool) (parts []string) {
	if str == "" {
		return nil
	}

	sb := &strings.Builder{}
	escaped := false
	for i := 0; i < len(str); i++ {
		c := str[i]
		switch {
		case c == esc && !escaped:
			escaped = true
		case c == sep && escaped:
			sb.WriteByte(c)
			escaped = false
		case c == sep:
			if preserveAllTokens || sb.Len() > 0 {
				parts = append(parts, sb.String())
				sb.Reset()
			}
		default:
			if escaped {
				sb.WriteByte(esc)
				escaped = false
			}

			sb.WriteByte(c)
		}
	}

	if escaped {
		sb.WriteByte(esc)
	}

	if preserveAllTokens || sb.Len() > 0 {
		parts = append(parts, sb.String())
	}

	return parts
}
