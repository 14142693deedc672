package filterlist

import (
	"strings"

	"github.com/fcchbjm/adfilter/rules"
)

// Foreign cosmetic syntaxes.
const (
	uboScriptletMask = "+js("
	uboStyleMask     = ":style("
	uboHTMLMask      = "^"
	uboHasTextMask   = ":has-text("
	uboScriptletPref = "ubo-"
)

// optionAliases maps the modifier names of other blockers to the native
// ones.  Targets with "~" are negated.
var optionAliases = map[string]string{
	"1p":         "~third-party",
	"3p":         "third-party",
	"css":        "stylesheet",
	"doc":        "document",
	"ehide":      "elemhide",
	"frame":      "subdocument",
	"from":       "domain",
	"ghide":      "generichide",
	"queryprune": "removeparam",
	"shide":      "specifichide",
	"xhr":        "xmlhttprequest",
}

// ConvertRule converts a rule written in a syntax of another content blocker
// to the native syntax.  ok is false if text needs no conversion.
func ConvertRule(text string) (converted string, ok bool) {
	if rules.IsCosmeticRule(text) {
		return convertCosmetic(text)
	}

	return convertNetworkOptions(text)
}

// cutElemhideMarker splits an element hiding rule into the domains and the
// body.  ok is false if text uses another cosmetic marker.
func cutElemhideMarker(text string) (domains, body string, allowlist, ok bool) {
	i := strings.IndexByte(text, '#')
	for ; i >= 0 && i+1 < len(text); i = nextHash(text, i) {
		rest := text[i:]
		switch {
		case strings.HasPrefix(rest, "##"):
			return text[:i], rest[len("##"):], false, true
		case strings.HasPrefix(rest, "#@#"):
			return text[:i], rest[len("#@#"):], true, true
		case strings.IndexByte("$%?@", rest[1]) != -1:
			// A native marker.
			return "", "", false, false
		}
	}

	return "", "", false, false
}

// nextHash returns the index of the next '#' in text after i or -1.
func nextHash(text string, i int) (next int) {
	j := strings.IndexByte(text[i+1:], '#')
	if j == -1 {
		return -1
	}

	return i + 1 + j
}

// convertCosmetic converts the uBlock Origin scriptlet, style, and HTML
// filtering rules.
func convertCosmetic(text string) (converted string, ok bool) {
	domains, body, allowlist, ok := cutElemhideMarker(text)
	if !ok {
		return "", false
	}

	switch {
	case strings.HasPrefix(body, uboScriptletMask) && strings.HasSuffix(body, ")"):
		marker := "#%#"
		if allowlist {
			marker = "#@%#"
		}

		args := body[len(uboScriptletMask) : len(body)-1]

		return domains + marker + uboScriptlet(args).String(), true
	case strings.HasSuffix(body, ")") && strings.Contains(body, uboStyleMask):
		i := strings.LastIndex(body, uboStyleMask)
		marker := "#$#"
		if allowlist {
			marker = "#@$#"
		}

		sel := strings.TrimSpace(body[:i])
		decl := strings.TrimSpace(body[i+len(uboStyleMask) : len(body)-1])

		return domains + marker + sel + " { " + decl + " }", true
	case strings.HasPrefix(body, uboHTMLMask):
		marker := "$$"
		if allowlist {
			marker = "$@$"
		}

		return domains + marker + uboHTMLSelector(body[len(uboHTMLMask):]), true
	default:
		return "", false
	}
}

// uboScriptlet parses the comma-separated arguments of a uBlock Origin
// scriptlet call.
func uboScriptlet(args string) (p rules.ScriptletParams) {
	var parts []string
	sb := &strings.Builder{}
	for i := 0; i < len(args); i++ {
		c := args[i]
		switch {
		case c == '\\' && i+1 < len(args) && args[i+1] == ',':
			sb.WriteByte(',')
			i++
		case c == ',':
			parts = append(parts, strings.TrimSpace(sb.String()))
			sb.Reset()
		default:
			sb.WriteByte(c)
		}
	}

	if last := strings.TrimSpace(sb.String()); last != "" || len(parts) > 0 {
		parts = append(parts, last)
	}

	if len(parts) == 0 {
		return p
	}

	name := parts[0]
	if !strings.HasPrefix(name, uboScriptletPref) {
		name = uboScriptletPref + name
	}

	return rules.ScriptletParams{
		Name: name,
		Args: parts[1:],
	}
}

// uboHTMLSelector converts the :has-text() pseudo-class of a uBlock Origin
// HTML filter into the tag-content attribute.
func uboHTMLSelector(sel string) (converted string) {
	i := strings.Index(sel, uboHasTextMask)
	if i == -1 || !strings.HasSuffix(sel, ")") {
		return sel
	}

	text := sel[i+len(uboHasTextMask) : len(sel)-1]
	text = strings.ReplaceAll(text, `"`, `""`)

	return sel[:i] + `[tag-content="` + text + `"]`
}

// convertNetworkOptions replaces the aliases of the modifiers of a network
// rule.
func convertNetworkOptions(text string) (converted string, ok bool) {
	i := optionsIndex(text)
	if i == -1 {
		return "", false
	}

	opts := strings.Split(text[i+1:], ",")
	for j, opt := range opts {
		name, value, hasValue := strings.Cut(opt, "=")
		negated := strings.HasPrefix(name, "~")
		alias, found := optionAliases[strings.TrimPrefix(name, "~")]
		if !found {
			continue
		}

		ok = true
		if negated {
			alias = negateOption(alias)
		}

		if hasValue {
			alias += "=" + value
		}

		opts[j] = alias
	}

	if !ok {
		return "", false
	}

	return text[:i+1] + strings.Join(opts, ","), true
}

// negateOption toggles the "~" prefix of opt.
func negateOption(opt string) (negated string) {
	if s, ok := strings.CutPrefix(opt, "~"); ok {
		return s
	}

	return "~" + opt
}

// optionsIndex returns the index of the options delimiter of a network rule or
// -1.
func optionsIndex(text string) (idx int) {
	pattern := strings.TrimPrefix(text, "@@")
	if len(pattern) > 1 && pattern[0] == '/' && pattern[len(pattern)-1] == '/' {
		return -1
	}

	for i := len(text) - 2; i >= 0; i-- {
		if text[i] == '$' && (i == 0 || text[i-1] != '\\') {
			return i
		}
	}

	return -1
}
