package rules

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// RemoveParamModifier is the $removeparam modifier.
type RemoveParamModifier struct {
	re     *regexp.Regexp
	value  string
	invert bool
}

// NewRemoveParamModifier parses the value of the $removeparam modifier.  The
// value is either a parameter name, a /regexp/flags, or any of them prefixed
// with "~" to remove all parameters except the matching ones.  An empty value
// removes the whole query.
func NewRemoveParamModifier(value string) (m *RemoveParamModifier, err error) {
	m = &RemoveParamModifier{value: value}

	raw := value
	if strings.HasPrefix(raw, "~") {
		raw = raw[1:]
		m.invert = true
	}

	if strings.HasPrefix(raw, "/") {
		parts := splitWithEscapeCharacter(raw[1:], '/', '\\', true)
		reText := parts[0]
		if len(parts) > 1 && strings.Contains(parts[1], "i") {
			reText = "(?i)" + reText
		}

		m.re, err = regexp.Compile(reText)
		if err != nil {
			return nil, fmt.Errorf("$removeparam: %w", err)
		}

		return m, nil
	}

	if strings.Contains(raw, "|") {
		return nil, fmt.Errorf("$removeparam: %w", errMultipleValues)
	}

	m.re = regexp.MustCompile("^" + regexp.QuoteMeta(raw) + "=[^&#]*$")

	return m, nil
}

// Value implements the [AdvancedModifier] interface for *RemoveParamModifier.
func (m *RemoveParamModifier) Value() (v string) { return m.value }

// isAdvancedModifier implements the [AdvancedModifier] interface for
// *RemoveParamModifier.
func (*RemoveParamModifier) isAdvancedModifier() {}

// RemoveParameters returns rawURL with the matching query parameters removed.
func (m *RemoveParamModifier) RemoveParameters(rawURL string) (res string) {
	sep := strings.IndexByte(rawURL, '?')
	switch {
	case sep < 0:
		return rawURL
	case m.value == "":
		return rawURL[:sep]
	case sep == len(rawURL)-1:
		return rawURL
	default:
		return cleanURLParams(rawURL, m.re, m.invert)
	}
}

// cleanURLParams removes the query parameters matching re from rawURL or, if
// invert is true, all parameters but the matching ones.
func cleanURLParams(rawURL string, re *regexp.Regexp, invert bool) (res string) {
	path, query, hash := splitURL(rawURL)

	var kept []string
	for _, p := range strings.Split(query, "&") {
		if p == "" {
			if !invert {
				kept = append(kept, p)
			}

			continue
		}

		test := p
		if !invert && !strings.Contains(test, "=") {
			test += "="
		}

		if matchParam(re, test) == invert {
			kept = append(kept, p)
		}
	}

	modified := strings.Join(kept, "&")
	if modified == query {
		return rawURL
	}

	modified = normalizeQuery(modified)

	res = path
	if modified != "" {
		res += "?" + modified
	}

	return res + hash
}

// matchParam matches the query parameter p both as is and decoded.
func matchParam(re *regexp.Regexp, p string) (ok bool) {
	if re.MatchString(p) {
		return true
	}

	decoded, err := url.PathUnescape(p)

	return err == nil && re.MatchString(decoded)
}

// splitURL splits rawURL into the part before the query, the query without
// "?", and the fragment with "#".
func splitURL(rawURL string) (path, query, hash string) {
	path = rawURL
	if i := strings.IndexByte(path, '#'); i >= 0 {
		path, hash = path[:i], path[i:]
	}

	if i := strings.IndexByte(path, '?'); i >= 0 {
		path, query = path[:i], path[i+1:]
	}

	return path, query, hash
}

// normalizeQuery removes the empty parameters and the ones without a name.
func normalizeQuery(query string) (res string) {
	var kept []string
	for _, p := range strings.Split(query, "&") {
		if p != "" && !strings.HasPrefix(p, "=") {
			kept = append(kept, p)
		}
	}

	return strings.Join(kept, "&")
}
