package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
)

// Scriptlet syntax.
const (
	scriptletMask          = "//scriptlet("
	trustedScriptletPrefix = "trusted-"
)

// ScriptletParams are the parsed parameters of a scriptlet rule.
type ScriptletParams struct {
	// Name is the name of the scriptlet.  It's empty for allowlist rules that
	// disable all scriptlets.
	Name string

	// Args are the arguments of the scriptlet without quotes.
	Args []string
}

// String implements the [fmt.Stringer] interface for ScriptletParams.
func (p ScriptletParams) String() (s string) {
	b := &strings.Builder{}
	b.WriteString(scriptletMask)
	if p.Name != "" {
		for i, arg := range slices.Concat([]string{p.Name}, p.Args) {
			if i > 0 {
				b.WriteString(", ")
			}

			b.WriteByte('\'')
			b.WriteString(strings.ReplaceAll(arg, "'", `\'`))
			b.WriteByte('\'')
		}
	}

	b.WriteByte(')')

	return b.String()
}

// isScriptletContent returns true if content is a scriptlet call.
func isScriptletContent(content string) (ok bool) {
	return strings.HasPrefix(content, scriptletMask)
}

// parseScriptlet parses the content of a scriptlet rule of the form
// //scriptlet('name', 'arg1', ...).
func parseScriptlet(content string) (p ScriptletParams, err error) {
	if !isScriptletContent(content) || !strings.HasSuffix(content, ")") {
		return p, fmt.Errorf("invalid scriptlet call: %q", content)
	}

	args, err := splitScriptletArgs(content[len(scriptletMask) : len(content)-1])
	if err != nil {
		return p, fmt.Errorf("parsing scriptlet arguments: %w", err)
	}

	if len(args) == 0 {
		return p, nil
	}

	return ScriptletParams{
		Name: args[0],
		Args: args[1:],
	}, nil
}

// splitScriptletArgs splits the comma-separated scriptlet arguments, removing
// the quotes and unescaping them.
func splitScriptletArgs(s string) (args []string, err error) {
	s = strings.TrimSpace(s)
	for s != "" {
		var arg string
		arg, s, err = readScriptletArg(s)
		if err != nil {
			return nil, err
		}

		args = append(args, arg)

		s = strings.TrimSpace(s)
		if s == "" {
			break
		}

		if s[0] != ',' {
			return nil, fmt.Errorf("expected ',' at %q", s)
		}

		s = strings.TrimSpace(s[1:])
		if s == "" {
			return nil, errors.Error("trailing comma")
		}
	}

	return args, nil
}

// readScriptletArg reads a single argument from the beginning of s.
func readScriptletArg(s string) (arg, rest string, err error) {
	q := s[0]
	if q != '\'' && q != '"' {
		i := strings.IndexByte(s, ',')
		if i < 0 {
			return strings.TrimSpace(s), "", nil
		}

		return strings.TrimSpace(s[:i]), s[i:], nil
	}

	b := &strings.Builder{}
	for i := 1; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i+1 < len(s) && s[i+1] == q {
				b.WriteByte(q)
				i++
			} else {
				b.WriteByte(c)
			}
		case q:
			return b.String(), s[i+1:], nil
		default:
			b.WriteByte(c)
		}
	}

	return "", "", errors.Error("unbalanced quotes")
}

// validateScriptletName checks that name is a known scriptlet and that it's
// allowed to use trusted scriptlets if name is one of them.
func validateScriptletName(name string, allowTrusted bool) (err error) {
	if name == "" {
		return nil
	}

	if _, ok := slices.BinarySearch(scriptletNames, name); !ok {
		return fmt.Errorf("%q is not a known scriptlet name", name)
	}

	if strings.HasPrefix(name, trustedScriptletPrefix) && !allowTrusted {
		return fmt.Errorf("trusted scriptlet %q is not allowed in this filter list", name)
	}

	return nil
}
