package rules

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// valuesList is a list of permitted and restricted values of a modifier like
// $app, $ctag, or $client.  Restricted values are prefixed with "~".
type valuesList struct {
	permitted  []string
	restricted []string
}

// parseValuesList parses a list of values separated by sep.
func parseValuesList(value string, sep string) (l valuesList, err error) {
	if value == "" {
		return l, ErrEmptyValue
	}

	for _, v := range strings.Split(value, sep) {
		v = strings.TrimSpace(v)
		restricted := strings.HasPrefix(v, "~")
		if restricted {
			v = strings.TrimSpace(v[1:])
		}

		if v == "" {
			return l, fmt.Errorf("empty value specified in %q", value)
		}

		if restricted {
			l.restricted = append(l.restricted, v)
		} else {
			l.permitted = append(l.permitted, v)
		}
	}

	for _, v := range l.permitted {
		if slices.Contains(l.restricted, v) {
			return valuesList{}, fmt.Errorf("%w: %q", ErrConflictingValues, v)
		}
	}

	return l, nil
}

// match returns true if v is not restricted and, if there are permitted
// values, is among them.
func (l valuesList) match(v string) (ok bool) {
	if slices.Contains(l.restricted, v) {
		return false
	}

	return len(l.permitted) == 0 || slices.Contains(l.permitted, v)
}

// AppModifier is the $app modifier.
type AppModifier struct {
	valuesList
}

// NewAppModifier parses the value of the $app modifier.
func NewAppModifier(value string) (m *AppModifier, err error) {
	l, err := parseValuesList(value, "|")
	if err != nil {
		return nil, fmt.Errorf("$app: %w", err)
	}

	return &AppModifier{valuesList: l}, nil
}

// PermittedApps returns the permitted application names.
func (m *AppModifier) PermittedApps() (apps []string) { return m.permitted }

// RestrictedApps returns the restricted application names.
func (m *AppModifier) RestrictedApps() (apps []string) { return m.restricted }

// MatchApp returns true if the rule applies to the application.
func (m *AppModifier) MatchApp(app string) (ok bool) { return m.match(app) }

// httpMethods are the methods allowed in the $method modifier.
var httpMethods = []string{
	"GET",
	"POST",
	"PUT",
	"DELETE",
	"PATCH",
	"HEAD",
	"OPTIONS",
	"CONNECT",
	"TRACE",
}

// MethodModifier is the $method modifier.
type MethodModifier struct {
	valuesList
}

// NewMethodModifier parses the value of the $method modifier.  Negated and
// non-negated methods cannot be mixed.
func NewMethodModifier(value string) (m *MethodModifier, err error) {
	l, err := parseValuesList(strings.ToUpper(value), "|")
	if err != nil {
		return nil, fmt.Errorf("$method: %w", err)
	}

	for _, v := range slices.Concat(l.permitted, l.restricted) {
		if !slices.Contains(httpMethods, v) {
			return nil, fmt.Errorf("invalid $method value: %q", v)
		}
	}

	if len(l.permitted) > 0 && len(l.restricted) > 0 {
		return nil, fmt.Errorf("negated values cannot be mixed with non-negated values: %q", value)
	}

	return &MethodModifier{valuesList: l}, nil
}

// PermittedMethods returns the permitted methods.
func (m *MethodModifier) PermittedMethods() (methods []string) { return m.permitted }

// RestrictedMethods returns the restricted methods.
func (m *MethodModifier) RestrictedMethods() (methods []string) { return m.restricted }

// MatchMethod returns true if the rule applies to the upper-case method.
// Unknown methods never match.
func (m *MethodModifier) MatchMethod(method string) (ok bool) {
	if !slices.Contains(httpMethods, method) {
		return false
	}

	if slices.Contains(m.permitted, method) {
		return true
	}

	return len(m.restricted) > 0 && !slices.Contains(m.restricted, method)
}

// ToModifier is the $to modifier.
type ToModifier struct {
	permitted  []domainEntry
	restricted []domainEntry
}

// NewToModifier parses the value of the $to modifier.
func NewToModifier(value string) (m *ToModifier, err error) {
	l, err := parseValuesList(strings.ToLower(value), "|")
	if err != nil {
		return nil, fmt.Errorf("$to: %w", err)
	}

	m = &ToModifier{}
	for _, pair := range []struct {
		dst *[]domainEntry
		src []string
	}{{
		dst: &m.permitted,
		src: l.permitted,
	}, {
		dst: &m.restricted,
		src: l.restricted,
	}} {
		for _, d := range pair.src {
			var e domainEntry
			e, err = newDomainEntry(d)
			if err != nil {
				return nil, fmt.Errorf("$to: %w", err)
			}

			*pair.dst = append(*pair.dst, e)
		}
	}

	return m, nil
}

// PermittedDomains returns the permitted target domains.
func (m *ToModifier) PermittedDomains() (domains []string) { return entryNames(m.permitted) }

// RestrictedDomains returns the restricted target domains.
func (m *ToModifier) RestrictedDomains() (domains []string) { return entryNames(m.restricted) }

// MatchHostname returns true if the rule applies to requests to hostname.
// The restricted domains take precedence.
func (m *ToModifier) MatchHostname(hostname string) (ok bool) {
	if len(m.restricted) > 0 {
		return !matchAnyDomain(hostname, m.restricted)
	}

	return matchAnyDomain(hostname, m.permitted)
}

// HeaderModifier is the $header modifier.  It matches the response headers.
type HeaderModifier struct {
	re     *regexp.Regexp
	header string
	value  string
}

// NewHeaderModifier parses the value of the $header modifier:
// "name", "name:value", or "name:/regexp/".
func NewHeaderModifier(value string) (m *HeaderModifier, err error) {
	if value == "" {
		return nil, fmt.Errorf("$header: %w", ErrEmptyValue)
	}

	name, raw, hasValue := strings.Cut(value, ":")
	m = &HeaderModifier{header: name}
	if !hasValue {
		return m, nil
	}

	if raw == "" {
		return nil, fmt.Errorf("invalid $header value: %q", value)
	}

	if isRegexPattern(raw) && len(raw) > 1 {
		m.re, err = regexp.Compile(raw[1 : len(raw)-1])
		if err != nil {
			return nil, fmt.Errorf("$header: %w", err)
		}
	} else {
		m.value = raw
	}

	return m, nil
}

// Header returns the header name.
func (m *HeaderModifier) Header() (name string) { return m.header }

// MatchHeaders returns true if headers contain the header and its value matches
// the modifier value, if there is one.  Header names are case-insensitive.
func (m *HeaderModifier) MatchHeaders(headers map[string]string) (ok bool) {
	for name, value := range headers {
		if !strings.EqualFold(name, m.header) {
			continue
		}

		switch {
		case m.re != nil:
			return m.re.MatchString(value)
		case m.value != "":
			return m.value == value
		default:
			return true
		}
	}

	return false
}
