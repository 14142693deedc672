package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
)

// extCSSPseudoClasses are the pseudo-classes that require the Extended CSS
// library.
var extCSSPseudoClasses = []string{
	"-abp-contains",
	"-abp-has",
	"contains",
	"has",
	"has-text",
	"if",
	"if-not",
	"matches-attr",
	"matches-css",
	"matches-css-after",
	"matches-css-before",
	"matches-property",
	"nth-ancestor",
	"remove",
	"upward",
	"xpath",
}

// cssPseudoClasses are the native pseudo-classes allowed in selectors.
var cssPseudoClasses = []string{
	"active",
	"checked",
	"disabled",
	"empty",
	"enabled",
	"first-child",
	"first-of-type",
	"focus",
	"has",
	"hover",
	"in-range",
	"invalid",
	"is",
	"lang",
	"last-child",
	"last-of-type",
	"link",
	"not",
	"nth-child",
	"nth-last-child",
	"nth-last-of-type",
	"nth-of-type",
	"only-child",
	"only-of-type",
	"optional",
	"out-of-range",
	"read-only",
	"read-write",
	"required",
	"root",
	"target",
	"valid",
	"visited",
	"where",
}

// extCSSAttributePrefix is the prefix of the legacy Extended CSS attribute
// selectors.
const extCSSAttributePrefix = "-ext-"

// extCSSAttributes are the supported legacy Extended CSS attribute selectors.
var extCSSAttributes = []string{
	extCSSAttributePrefix + "has",
	extCSSAttributePrefix + "contains",
	extCSSAttributePrefix + "has-text",
	extCSSAttributePrefix + "matches-css",
	extCSSAttributePrefix + "matches-css-before",
	extCSSAttributePrefix + "matches-css-after",
}

// forbiddenCSSFunctions are the CSS functions that can load external
// resources.
var forbiddenCSSFunctions = []string{
	"-webkit-cross-fade",
	"-webkit-image-set",
	"cross-fade",
	"image",
	"image-set",
	"url",
}

// Errors of the CSS validation.
const (
	errCSSBrackets errors.Error = "curly brackets are not allowed in selector lists"
	errCSSComments errors.Error = "comments are not allowed in css"
	errCSSQuotes   errors.Error = "unbalanced quotes"
	errCSSParens   errors.Error = "unbalanced parentheses"
)

// isIdentChar returns true if c can be a part of a CSS identifier.
func isIdentChar(c byte) (ok bool) {
	return isAlphaNumeric(c) || c == '-' || c == '_' || c >= 0x80
}

// readIdent returns the identifier starting at s[i] and the index after it.
func readIdent(s string, i int) (ident string, end int) {
	end = i
	for end < len(s) && isIdentChar(s[end]) {
		end++
	}

	return s[i:end], end
}

// skipString returns the index after the quoted string starting at s[i].
func skipString(s string, i int) (end int, err error) {
	q := s[i]
	for end = i + 1; end < len(s); end++ {
		switch s[end] {
		case '\\':
			end++
		case q:
			return end + 1, nil
		}
	}

	return 0, errCSSQuotes
}

// skipParens returns the index after the parenthesized argument starting at
// s[i], which must be '('.
func skipParens(s string, i int) (end int, err error) {
	depth := 0
	for end = i; end < len(s); end++ {
		switch s[end] {
		case '\\':
			end++
		case '"', '\'':
			end, err = skipString(s, end)
			if err != nil {
				return 0, err
			}

			end--
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return end + 1, nil
			}
		}
	}

	return 0, errCSSParens
}

// validateSelectorList does a basic validation of a selector list.  It rejects
// curly brackets, comments, and unknown pseudo-classes, and reports whether
// the selector requires Extended CSS.
func validateSelectorList(sel string) (extended bool, err error) {
	if strings.TrimSpace(sel) == "" {
		return false, errors.Error("empty selector")
	}

	for i := 0; i < len(sel); i++ {
		switch c := sel[i]; c {
		case '\\':
			i++
		case '"', '\'':
			i, err = skipString(sel, i)
			if err != nil {
				return false, err
			}

			i--
		case '{', '}':
			return false, errCSSBrackets
		case '/':
			if strings.HasPrefix(sel[i:], "/*") {
				return false, errCSSComments
			}
		case '[':
			var ext bool
			ext, err = checkAttribute(sel, i+1)
			if err != nil {
				return false, err
			}

			extended = extended || ext
		case ':':
			if i+1 < len(sel) && sel[i+1] == ':' {
				// Skip the pseudo-element.
				i++

				continue
			}

			var ext bool
			ext, i, err = checkPseudoClass(sel, i+1)
			if err != nil {
				return false, err
			}

			extended = extended || ext
			i--
		}
	}

	return extended, nil
}

// checkAttribute checks the attribute selector name starting at sel[i].
func checkAttribute(sel string, i int) (extended bool, err error) {
	for i < len(sel) && sel[i] == ' ' {
		i++
	}

	name, _ := readIdent(sel, i)
	if !strings.HasPrefix(name, extCSSAttributePrefix) {
		return false, nil
	}

	if !slices.Contains(extCSSAttributes, name) {
		return false, fmt.Errorf("unsupported extended css attribute selector: %q", name)
	}

	return true, nil
}

// checkPseudoClass checks the pseudo-class name starting at sel[i] and returns
// the index to continue scanning from.  Arguments of the Extended CSS
// pseudo-classes are skipped since they may contain arbitrary text.
func checkPseudoClass(sel string, i int) (extended bool, end int, err error) {
	name, end := readIdent(sel, i)
	name = strings.ToLower(name)

	switch {
	case slices.Contains(extCSSPseudoClasses, name):
		if end < len(sel) && sel[end] == '(' {
			end, err = skipParens(sel, end)
		}

		return true, end, err
	case slices.Contains(cssPseudoClasses, name):
		return false, end, nil
	default:
		return false, 0, fmt.Errorf("unsupported pseudo-class: %q", ":"+name)
	}
}

// validateDeclarationList does a basic validation of a CSS declaration list.
// It rejects comments and functions that load resources, and reports whether
// the declarations require Extended CSS.
func validateDeclarationList(decl string) (extended bool, err error) {
	for i := 0; i < len(decl); i++ {
		c := decl[i]
		switch {
		case c == '\\':
			i++
		case c == '"' || c == '\'':
			i, err = skipString(decl, i)
			if err != nil {
				return false, err
			}

			i--
		case c == '/' && strings.HasPrefix(decl[i:], "/*"):
			return false, errCSSComments
		case isIdentChar(c):
			var ident string
			ident, i = readIdent(decl, i)
			if i < len(decl) && decl[i] == '(' {
				if slices.Contains(forbiddenCSSFunctions, strings.ToLower(ident)) {
					return false, fmt.Errorf("using '%s()' is not allowed", ident)
				}
			} else if ident == "remove" {
				extended = true
			}

			i--
		}
	}

	return extended, nil
}

// splitCSSRule splits the content of a CSS injection rule into the selector
// list and the declaration list.
func splitCSSRule(content string) (sel, decl string, err error) {
	if !strings.HasSuffix(content, "}") {
		return "", "", errors.Error("css rule must end with '}'")
	}

	open := strings.LastIndexByte(content, '{')
	if open <= 0 {
		return "", "", errors.Error("css rule must contain a declaration block")
	}

	sel = strings.TrimSpace(content[:open])
	decl = strings.TrimSpace(content[open+1 : len(content)-1])

	return sel, decl, nil
}
