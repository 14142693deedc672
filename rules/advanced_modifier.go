package rules

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
)

// AdvancedModifier is a modifier that changes what happens to a matched request
// instead of simply blocking or allowing it.  A network rule has at most one
// advanced modifier.  The set of implementations is closed.
type AdvancedModifier interface {
	// Value returns the modifier value as written in the rule.
	Value() (v string)

	// isAdvancedModifier is a marker method.
	isAdvancedModifier()
}

// type check
var (
	_ AdvancedModifier = (*CookieModifier)(nil)
	_ AdvancedModifier = (*CSPModifier)(nil)
	_ AdvancedModifier = (*ReplaceModifier)(nil)
	_ AdvancedModifier = (*RedirectModifier)(nil)
	_ AdvancedModifier = (*RemoveParamModifier)(nil)
	_ AdvancedModifier = (*RemoveHeaderModifier)(nil)
	_ AdvancedModifier = (*PermissionsModifier)(nil)
	_ AdvancedModifier = (*ClientModifier)(nil)
	_ AdvancedModifier = (*DNSRewriteModifier)(nil)
	_ AdvancedModifier = (*DNSTypeModifier)(nil)
	_ AdvancedModifier = (*CtagModifier)(nil)
)

// Cookie modifier option names.
const (
	cookieOptMaxAge   = "maxAge"
	cookieOptSameSite = "sameSite"
)

// CookieModifier is the $cookie modifier.
type CookieModifier struct {
	re        *regexp.Regexp
	value     string
	name      string
	sameSite  string
	maxAge    int
	hasMaxAge bool
}

// NewCookieModifier parses the value of the $cookie modifier:
// "name;maxAge=N;sameSite=V" where name may be a /regexp/ or empty.
func NewCookieModifier(value string) (m *CookieModifier, err error) {
	m = &CookieModifier{value: value}

	parts := strings.Split(value, ";")
	name := parts[0]
	if isRegexPattern(name) && len(name) > 1 {
		m.re, err = regexp.Compile(name[1 : len(name)-1])
		if err != nil {
			return nil, fmt.Errorf("$cookie: %w", err)
		}
	} else {
		m.name = name
	}

	for _, opt := range parts[1:] {
		optName, optValue, _ := strings.Cut(opt, "=")
		switch optName {
		case cookieOptMaxAge:
			m.maxAge, err = strconv.Atoi(optValue)
			if err != nil {
				return nil, fmt.Errorf("$cookie: bad %s: %w", cookieOptMaxAge, err)
			}

			m.hasMaxAge = true
		case cookieOptSameSite:
			m.sameSite = optValue
		default:
			return nil, fmt.Errorf("unknown $cookie option: %q", optName)
		}
	}

	return m, nil
}

// Value implements the [AdvancedModifier] interface for *CookieModifier.
func (m *CookieModifier) Value() (v string) { return m.value }

// isAdvancedModifier implements the [AdvancedModifier] interface for
// *CookieModifier.
func (*CookieModifier) isAdvancedModifier() {}

// Matches returns true if the cookie with the given name is affected.
func (m *CookieModifier) Matches(name string) (ok bool) {
	switch {
	case name == "":
		return false
	case m.re != nil:
		return m.re.MatchString(name)
	case m.name != "":
		return m.name == name
	default:
		return true
	}
}

// IsEmpty returns true if the modifier affects all cookies.
func (m *CookieModifier) IsEmpty() (ok bool) {
	return m.re == nil && m.name == ""
}

// CookieName returns the plain cookie name, if any.
func (m *CookieModifier) CookieName() (name string) { return m.name }

// MaxAge returns the maxAge option, ok is false if it's not set.
func (m *CookieModifier) MaxAge() (age int, ok bool) { return m.maxAge, m.hasMaxAge }

// SameSite returns the sameSite option, if any.
func (m *CookieModifier) SameSite() (v string) { return m.sameSite }

// CSPModifier is the $csp modifier.
type CSPModifier struct {
	directive string
}

// NewCSPModifier parses the value of the $csp modifier.  The value may only be
// empty in allowlist rules.
func NewCSPModifier(value string, isAllowlist bool) (m *CSPModifier, err error) {
	if value == "" && !isAllowlist {
		return nil, fmt.Errorf("$csp: %w", ErrEmptyValue)
	}

	if strings.Contains(strings.ToLower(value), "report-") {
		return nil, fmt.Errorf("forbidden csp directive: %q", value)
	}

	return &CSPModifier{directive: value}, nil
}

// Value implements the [AdvancedModifier] interface for *CSPModifier.
func (m *CSPModifier) Value() (v string) { return m.directive }

// isAdvancedModifier implements the [AdvancedModifier] interface for
// *CSPModifier.
func (*CSPModifier) isAdvancedModifier() {}

// escapeSequences are the escape sequences unescaped in $replace
// replacements.
var escapeSequences = strings.NewReplacer(
	`\n`, "\n",
	`\r`, "\r",
	`\t`, "\t",
	`\b`, "\b",
	`\f`, "\f",
	`\v`, "\v",
)

// ReplaceModifier is the $replace modifier.  Replacements are always global.
type ReplaceModifier struct {
	re          *regexp.Regexp
	value       string
	replacement string
}

// NewReplaceModifier parses the value of the $replace modifier:
// "/regexp/replacement/flags".  An empty value means no replacement.
func NewReplaceModifier(value string) (m *ReplaceModifier, err error) {
	m = &ReplaceModifier{value: value}
	if value == "" {
		return m, nil
	}

	parts := splitWithEscapeCharacter(strings.TrimPrefix(value, "/"), '/', '\\', true)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid $replace value: %q", value)
	}

	reText := parts[0]
	if len(parts) > 2 && strings.Contains(parts[2], "i") {
		reText = "(?i)" + reText
	}

	m.re, err = regexp.Compile(reText)
	if err != nil {
		return nil, fmt.Errorf("$replace: %w", err)
	}

	m.replacement = escapeSequences.Replace(strings.ReplaceAll(parts[1], `\$`, "$"))

	return m, nil
}

// Value implements the [AdvancedModifier] interface for *ReplaceModifier.
func (m *ReplaceModifier) Value() (v string) { return m.value }

// isAdvancedModifier implements the [AdvancedModifier] interface for
// *ReplaceModifier.
func (*ReplaceModifier) isAdvancedModifier() {}

// Apply returns input with all the matches replaced.
func (m *ReplaceModifier) Apply(input string) (output string) {
	if m.re == nil {
		return input
	}

	return m.re.ReplaceAllString(input, m.replacement)
}

// redirectResources are the names of the redirect resources besides the
// scriptlet-based ones.
var redirectResources = []string{
	"1x1-transparent.gif",
	"2x2-transparent.png",
	"3x2-transparent.png",
	"32x32-transparent.png",
	"click2load.html",
	"empty",
	"noopcss",
	"noopframe",
	"noopjs",
	"noopjson",
	"noopmp3-0.1s",
	"noopmp4-1s",
	"nooptext",
	"noopvast-2.0",
	"noopvast-3.0",
	"noopvast-4.0",
	"noopvmap-1.0",
}

// isKnownRedirect returns true if name is a known redirect resource.
func isKnownRedirect(name string) (ok bool) {
	return slices.Contains(redirectResources, name) || slices.Contains(redirectScriptletNames, name)
}

// RedirectModifier is the $redirect and $redirect-rule modifier.
type RedirectModifier struct {
	resource string

	// onlyBlocked is true for $redirect-rule: it only redirects requests
	// blocked by other rules.
	onlyBlocked bool
}

// NewRedirectModifier parses the value of the $redirect modifier.  The value
// may only be empty in allowlist rules.
func NewRedirectModifier(value string, isAllowlist, onlyBlocked bool) (m *RedirectModifier, err error) {
	if value == "" {
		if !isAllowlist {
			return nil, fmt.Errorf("$redirect: %w", ErrEmptyValue)
		}
	} else if !isKnownRedirect(value) {
		return nil, fmt.Errorf("unknown redirect resource: %q", value)
	}

	return &RedirectModifier{resource: value, onlyBlocked: onlyBlocked}, nil
}

// Value implements the [AdvancedModifier] interface for *RedirectModifier.
func (m *RedirectModifier) Value() (v string) { return m.resource }

// isAdvancedModifier implements the [AdvancedModifier] interface for
// *RedirectModifier.
func (*RedirectModifier) isAdvancedModifier() {}

// IsRedirectingOnlyBlocked returns true for $redirect-rule modifiers.
func (m *RedirectModifier) IsRedirectingOnlyBlocked() (ok bool) { return m.onlyBlocked }

// permissionsSeparators are replaced with commas in $permissions values.
var permissionsSeparators = strings.NewReplacer(`\,`, ",", "|", ",")

// PermissionsModifier is the $permissions modifier.
type PermissionsModifier struct {
	directive string
}

// NewPermissionsModifier parses the value of the $permissions modifier.  The
// value may only be empty in allowlist rules.
func NewPermissionsModifier(value string, isAllowlist bool) (m *PermissionsModifier, err error) {
	directive := permissionsSeparators.Replace(value)
	if directive == "" && !isAllowlist {
		return nil, fmt.Errorf("$permissions: %w", ErrEmptyValue)
	}

	return &PermissionsModifier{directive: directive}, nil
}

// Value implements the [AdvancedModifier] interface for *PermissionsModifier.
func (m *PermissionsModifier) Value() (v string) { return m.directive }

// isAdvancedModifier implements the [AdvancedModifier] interface for
// *PermissionsModifier.
func (*PermissionsModifier) isAdvancedModifier() {}

// errMultipleValues is returned when a single-value modifier has several.
const errMultipleValues errors.Error = "multiple values are not allowed"
