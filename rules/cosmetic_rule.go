package rules

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/netutil"
)

// CosmeticRuleType is the type of a cosmetic rule.
type CosmeticRuleType uint8

// CosmeticRuleType values.
const (
	// CosmeticElementHiding hides elements: example.org##.banner.
	CosmeticElementHiding CosmeticRuleType = iota + 1

	// CosmeticCSS injects styles: example.org#$#.banner { display: none; }.
	CosmeticCSS

	// CosmeticJS injects scripts: example.org#%#window.x = 1;.
	CosmeticJS

	// CosmeticScriptlet runs a scriptlet:
	// example.org#%#//scriptlet('set-constant', 'x', '1').
	CosmeticScriptlet

	// CosmeticHTML removes elements from the HTML source:
	// example.org$$script[data-ad].
	CosmeticHTML
)

// String implements the [fmt.Stringer] interface for CosmeticRuleType.
func (t CosmeticRuleType) String() (s string) {
	switch t {
	case CosmeticElementHiding:
		return "elemhide"
	case CosmeticCSS:
		return "css"
	case CosmeticJS:
		return "js"
	case CosmeticScriptlet:
		return "scriptlet"
	case CosmeticHTML:
		return "html"
	default:
		return fmt.Sprintf("!bad_cosmetic_rule_type_%d", t)
	}
}

// cosmeticMarker is a separator of a cosmetic rule.
type cosmeticMarker struct {
	text      string
	ruleType  CosmeticRuleType
	allowlist bool
	extended  bool
}

// cosmeticMarkers are all the supported markers.  Longer markers go first so
// that they are found before their prefixes.
var cosmeticMarkers = []cosmeticMarker{
	{text: "#@$?#", ruleType: CosmeticCSS, allowlist: true, extended: true},
	{text: "#$?#", ruleType: CosmeticCSS, extended: true},
	{text: "#@$#", ruleType: CosmeticCSS, allowlist: true},
	{text: "#$#", ruleType: CosmeticCSS},
	{text: "#@?#", ruleType: CosmeticElementHiding, allowlist: true, extended: true},
	{text: "#?#", ruleType: CosmeticElementHiding, extended: true},
	{text: "#@%#", ruleType: CosmeticJS, allowlist: true},
	{text: "#%#", ruleType: CosmeticJS},
	{text: "#@#", ruleType: CosmeticElementHiding, allowlist: true},
	{text: "##", ruleType: CosmeticElementHiding},
	{text: "$@$", ruleType: CosmeticHTML, allowlist: true},
	{text: "$$", ruleType: CosmeticHTML},
}

// findCosmeticMarker returns the index of the first cosmetic marker in line
// and the marker itself.  idx is -1 if there is none.
func findCosmeticMarker(line string) (idx int, m cosmeticMarker) {
	for i := 0; i < len(line); i++ {
		if line[i] != '#' && line[i] != '$' {
			continue
		}

		for _, m = range cosmeticMarkers {
			if strings.HasPrefix(line[i:], m.text) {
				return i, m
			}
		}
	}

	return -1, cosmeticMarker{}
}

// IsCosmeticRule returns true if text looks like a cosmetic rule.
func IsCosmeticRule(text string) (ok bool) {
	_, rest := cutCosmeticModifiers(text)
	idx, _ := findCosmeticMarker(rest)

	return idx >= 0
}

// CosmeticConfig is the configuration of the cosmetic rules parsing.
type CosmeticConfig struct {
	// Logger is used to report invalid regular expressions of $path and $url.
	// It may be nil.
	Logger *slog.Logger

	// AllowTrustedScriptlets allows the scriptlets with the "trusted-" prefix.
	// It should only be set for the lists the user trusts.
	AllowTrustedScriptlets bool
}

// CosmeticRule is a rule that changes the content of a page.
//
// See https://adguard.com/kb/general/ad-filtering/create-own-filters/#cosmetic-rules.
type CosmeticRule struct {
	ruleID

	domainModifier *DomainModifier
	pathModifier   *Pattern
	urlModifier    *Pattern

	// scriptlet is set for [CosmeticScriptlet] rules.
	scriptlet *ScriptletParams

	content string

	ruleType CosmeticRuleType

	allowlist   bool
	extendedCSS bool
}

// NewCosmeticRule parses text as a cosmetic rule of the filter list with the
// given ID.  conf may be nil.
func NewCosmeticRule(text string, listID int, conf *CosmeticConfig) (r *CosmeticRule, err error) {
	return newCosmeticRule(text, listID, 0, conf)
}

// newCosmeticRule is like [NewCosmeticRule] but also sets the index of the
// rule.
func newCosmeticRule(text string, listID, idx int, conf *CosmeticConfig) (r *CosmeticRule, err error) {
	if conf == nil {
		conf = &CosmeticConfig{}
	}

	mods, rest := cutCosmeticModifiers(text)
	i, m := findCosmeticMarker(rest)
	if i < 0 {
		return nil, newRuleSyntaxErrorf(text, "not a cosmetic rule")
	}

	r = &CosmeticRule{
		ruleID: ruleID{
			text:   text,
			listID: listID,
			index:  idx,
		},
		content:     strings.TrimSpace(rest[i+len(m.text):]),
		ruleType:    m.ruleType,
		allowlist:   m.allowlist,
		extendedCSS: m.extended,
	}

	if r.content == "" {
		return nil, newRuleSyntaxError(text, errors.Error("empty rule content"))
	}

	err = r.validateContent(conf.AllowTrustedScriptlets)
	if err != nil {
		return nil, newRuleSyntaxError(text, err)
	}

	domains := strings.TrimSpace(rest[:i])
	err = r.loadModifiers(mods, domains != "", conf.Logger)
	if err != nil {
		return nil, newRuleSyntaxError(text, err)
	}

	err = r.loadDomains(domains)
	if err != nil {
		return nil, newRuleSyntaxError(text, err)
	}

	return r, nil
}

// validateContent checks the content of the rule depending on its type.
func (r *CosmeticRule) validateContent(allowTrusted bool) (err error) {
	var ext bool
	switch r.ruleType {
	case CosmeticElementHiding:
		ext, err = validateSelectorList(r.content)
	case CosmeticCSS:
		ext, err = validateCSSRule(r.content)
	case CosmeticJS:
		if !isScriptletContent(r.content) {
			return nil
		}

		r.ruleType = CosmeticScriptlet

		var p ScriptletParams
		p, err = parseScriptlet(r.content)
		if err != nil {
			return err
		}

		r.scriptlet = &p

		return validateScriptletName(p.Name, allowTrusted)
	default:
		// HTML rules aren't validated.
		return nil
	}

	if err != nil {
		return err
	}

	r.extendedCSS = r.extendedCSS || ext

	return nil
}

// validateCSSRule validates the selector and the declarations of a CSS
// injection rule.
func validateCSSRule(content string) (extended bool, err error) {
	sel, decl, err := splitCSSRule(content)
	if err != nil {
		return false, err
	}

	extended, err = validateSelectorList(sel)
	if err != nil {
		return false, err
	}

	declExt, err := validateDeclarationList(decl)
	if err != nil {
		return false, err
	}

	return extended || declExt, nil
}

// cutCosmeticModifiers returns the modifiers of the form [$mod1,mod2] at the
// beginning of text and the rest of the text.  mods is empty if there are no
// modifiers.
func cutCosmeticModifiers(text string) (mods, rest string) {
	if !strings.HasPrefix(text, "[$") {
		return "", text
	}

	for i := 2; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case ']':
			return text[2:i], text[i+1:]
		}
	}

	return "", text
}

// Cosmetic rule modifiers.
const (
	cosmeticModDomain = "domain"
	cosmeticModPath   = "path"
	cosmeticModURL    = "url"
)

// unescapeModifierValue removes the escaping of the special characters of the
// cosmetic modifiers values.
var unescapeModifierValue = strings.NewReplacer(`\]`, "]", `\[`, "[", `\,`, ",", `\\`, `\`)

// loadModifiers parses the cosmetic rule modifiers.  hasDomains is true if
// the rule has a domain list.
func (r *CosmeticRule) loadModifiers(mods string, hasDomains bool, l *slog.Logger) (err error) {
	if mods == "" {
		return nil
	}

	used := map[string]struct{}{}
	for _, mod := range splitWithEscapeCharacter(mods, ',', escapeCharacter, true) {
		name, value, _ := strings.Cut(strings.TrimSpace(mod), "=")
		if _, ok := used[name]; ok {
			return fmt.Errorf("duplicated modifier: %q", name)
		}

		used[name] = struct{}{}
		if value == "" && name != cosmeticModPath {
			return fmt.Errorf("$%s: %w", name, ErrEmptyValue)
		}

		value = unescapeModifierValue.Replace(value)
		switch name {
		case cosmeticModDomain:
			if hasDomains {
				return fmt.Errorf("$%s is not allowed in a domain-specific rule", name)
			}

			r.domainModifier, err = NewDomainModifier(value, separatorPipe)
			if err != nil {
				return fmt.Errorf("$domain: %w", err)
			}
		case cosmeticModPath:
			r.pathModifier = NewPattern(value, false, l)
		case cosmeticModURL:
			if hasDomains {
				return fmt.Errorf("$%s is not allowed in a domain-specific rule", name)
			}

			r.urlModifier = NewPattern(value, false, l)
		default:
			return fmt.Errorf("%w: %s", ErrUnknownModifier, name)
		}
	}

	if r.urlModifier != nil && len(used) > 1 {
		return fmt.Errorf("%w: $url cannot be used with other modifiers", ErrIncompatibleModifiers)
	}

	return nil
}

// loadDomains parses and validates the comma-separated domain list of the
// rule.  A "*" entry means any domain.
func (r *CosmeticRule) loadDomains(domains string) (err error) {
	domains = strings.Join(slices.DeleteFunc(
		splitDomainList(domains, separatorComma),
		func(d string) (ok bool) { return d == "*" },
	), string(separatorComma))
	if domains == "" {
		return nil
	}

	m, err := NewDomainModifier(domains, separatorComma)
	if err != nil {
		return err
	}

	for _, e := range slices.Concat(m.permitted, m.restricted) {
		if e.re != nil {
			continue
		}

		err = netutil.ValidateDomainName(strings.TrimSuffix(e.name, ".*"))
		if err != nil {
			return fmt.Errorf("%q is not a valid domain name: %w", e.name, err)
		}
	}

	r.domainModifier = m

	return nil
}

// Type returns the type of the rule.
func (r *CosmeticRule) Type() (t CosmeticRuleType) { return r.ruleType }

// Content returns the content of the rule: the selector, the style, the
// script, or the scriptlet call.
func (r *CosmeticRule) Content() (content string) { return r.content }

// IsAllowlist returns true if the rule disables other cosmetic rules.
func (r *CosmeticRule) IsAllowlist() (ok bool) { return r.allowlist }

// IsExtendedCSS returns true if the rule requires the Extended CSS library.
func (r *CosmeticRule) IsExtendedCSS() (ok bool) { return r.extendedCSS }

// Scriptlet returns the parameters of a scriptlet rule or nil for the rules of
// other types.
func (r *CosmeticRule) Scriptlet() (p *ScriptletParams) { return r.scriptlet }

// IsGeneric returns true if the rule isn't limited to specific domains.
func (r *CosmeticRule) IsGeneric() (ok bool) {
	return !r.domainModifier.HasPermittedDomains()
}

// PermittedDomains returns the domains the rule is limited to.
func (r *CosmeticRule) PermittedDomains() (domains []string) {
	return r.domainModifier.PermittedDomains()
}

// RestrictedDomains returns the domains the rule is disabled on.
func (r *CosmeticRule) RestrictedDomains() (domains []string) {
	return r.domainModifier.RestrictedDomains()
}

// Match returns true if the rule applies to the page of req.
func (r *CosmeticRule) Match(req *Request) (ok bool) {
	if r.urlModifier != nil {
		return r.urlModifier.Match(req, false)
	}

	if r.domainModifier != nil && !r.domainModifier.MatchDomain(req.Hostname) {
		return false
	}

	if r.pathModifier == nil {
		return true
	}

	path, ok := relativeURL(req.URLLowerCase)

	return ok && r.pathModifier.MatchPath(path)
}
