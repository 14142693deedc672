package rules

import (
	"log/slog"
	"strings"
)

// Syntax markers of network rules.
const (
	maskAllowlist    = "@@"
	optionsDelimiter = '$'
	escapeCharacter  = '\\'
)

// NetworkRule is a basic filtering rule that blocks, allows, or modifies
// network requests.
//
// See https://adguard.com/kb/general/ad-filtering/create-own-filters/#basic-rules.
type NetworkRule struct {
	ruleID

	pattern *Pattern

	advancedModifier AdvancedModifier
	domainModifier   *DomainModifier
	methodModifier   *MethodModifier
	headerModifier   *HeaderModifier
	toModifier       *ToModifier
	appModifier      *AppModifier
	stealthModifier  *StealthModifier

	// denyAllowDomains are the domains from $denyallow.  The rule doesn't
	// apply to requests to them.
	denyAllowDomains []string

	enabledOptions  NetworkRuleOption
	disabledOptions NetworkRuleOption

	permittedRequestTypes  RequestType
	restrictedRequestTypes RequestType

	priorityWeight int

	allowlist bool
}

// NewNetworkRule parses text as a network rule of the filter list with the
// given ID.  Invalid regular expressions in the pattern are reported to l,
// which may be nil.
func NewNetworkRule(text string, listID int, l *slog.Logger) (r *NetworkRule, err error) {
	return newNetworkRule(text, listID, 0, l)
}

// newNetworkRule is like [NewNetworkRule] but also sets the index of the rule.
func newNetworkRule(text string, listID, idx int, l *slog.Logger) (r *NetworkRule, err error) {
	pattern, options, allowlist, err := parseRuleText(text)
	if err != nil {
		return nil, err
	}

	if strings.ContainsAny(pattern, " \t") {
		return nil, newRuleSyntaxErrorf(text, "rule has spaces, seems to be a host rule")
	}

	r = &NetworkRule{
		ruleID: ruleID{
			text:   text,
			listID: listID,
			index:  idx,
		},
		allowlist:      allowlist,
		priorityWeight: 1,
	}

	err = r.loadOptions(options)
	if err != nil {
		return nil, newRuleSyntaxError(text, err)
	}

	if options == "" && len(pattern) < minGenericRule {
		return nil, newRuleSyntaxError(text, ErrTooWideRule)
	}

	r.calculatePriorityWeight()
	r.pattern = NewPattern(pattern, r.IsOptionEnabled(OptionMatchCase), l)

	return r, nil
}

// parseRuleText splits the rule text into the pattern and the options.  The
// options delimiter may be escaped in the pattern.
func parseRuleText(text string) (pattern, options string, allowlist bool, err error) {
	start := 0
	if strings.HasPrefix(text, maskAllowlist) {
		allowlist = true
		start = len(maskAllowlist)
	}

	if len(text) <= start {
		return "", "", false, newRuleSyntaxErrorf(text, "the rule is too short")
	}

	pattern = text[start:]

	// Don't look for options inside a regular expression unless it's a
	// $replace rule, which always has a slash-delimited value.
	if isRegexPattern(pattern) && !strings.Contains(pattern, modReplace+"=") {
		return pattern, "", allowlist, nil
	}

	foundEscaped := false
	for i := len(text) - 2; i >= start; i-- {
		if text[i] != optionsDelimiter {
			continue
		}

		if i > start && text[i-1] == escapeCharacter {
			foundEscaped = true

			continue
		}

		pattern, options = text[start:i], text[i+1:]
		if foundEscaped {
			options = strings.ReplaceAll(options, `\$`, "$")
		}

		break
	}

	return pattern, options, allowlist, nil
}

// IsAllowlist returns true if the rule is an allowlist rule, e.g. starts with
// "@@".
func (r *NetworkRule) IsAllowlist() (ok bool) { return r.allowlist }

// Pattern returns the compiled pattern of the rule.
func (r *NetworkRule) Pattern() (p *Pattern) { return r.pattern }

// Shortcut returns the shortcut of the rule pattern.
func (r *NetworkRule) Shortcut() (s string) { return r.pattern.Shortcut() }

// IsRegexRule returns true if the pattern of the rule is a regular expression.
func (r *NetworkRule) IsRegexRule() (ok bool) { return r.pattern.IsRegex() }

// PriorityWeight returns the priority weight of the rule.  It's always
// positive.
func (r *NetworkRule) PriorityWeight() (w int) { return r.priorityWeight }

// AdvancedModifier returns the advanced modifier of the rule or nil.
func (r *NetworkRule) AdvancedModifier() (m AdvancedModifier) { return r.advancedModifier }

// AdvancedModifierValue returns the value of the advanced modifier of the rule
// or an empty string.
func (r *NetworkRule) AdvancedModifierValue() (v string) {
	if r.advancedModifier == nil {
		return ""
	}

	return r.advancedModifier.Value()
}

// StealthModifier returns the $stealth modifier of the rule or nil.
func (r *NetworkRule) StealthModifier() (m *StealthModifier) { return r.stealthModifier }

// HeaderModifier returns the $header modifier of the rule or nil.
func (r *NetworkRule) HeaderModifier() (m *HeaderModifier) { return r.headerModifier }

// DomainModifier returns the $domain modifier of the rule or nil.
func (r *NetworkRule) DomainModifier() (m *DomainModifier) { return r.domainModifier }

// PermittedDomains returns the permitted domains of $domain.
func (r *NetworkRule) PermittedDomains() (domains []string) {
	return r.domainModifier.PermittedDomains()
}

// RestrictedDomains returns the restricted domains of $domain.
func (r *NetworkRule) RestrictedDomains() (domains []string) {
	return r.domainModifier.RestrictedDomains()
}

// DenyAllowDomains returns the domains of $denyallow.
func (r *NetworkRule) DenyAllowDomains() (domains []string) { return r.denyAllowDomains }

// PermittedApps returns the permitted applications of $app.
func (r *NetworkRule) PermittedApps() (apps []string) {
	if r.appModifier == nil {
		return nil
	}

	return r.appModifier.PermittedApps()
}

// RestrictedApps returns the restricted applications of $app.
func (r *NetworkRule) RestrictedApps() (apps []string) {
	if r.appModifier == nil {
		return nil
	}

	return r.appModifier.RestrictedApps()
}

// PermittedRequestTypes returns the permitted request types.  [TypeNotSet]
// means all types are permitted.
func (r *NetworkRule) PermittedRequestTypes() (t RequestType) { return r.permittedRequestTypes }

// RestrictedRequestTypes returns the restricted request types.
func (r *NetworkRule) RestrictedRequestTypes() (t RequestType) { return r.restrictedRequestTypes }

// IsOptionEnabled returns true if all of opt are enabled.
func (r *NetworkRule) IsOptionEnabled(opt NetworkRuleOption) (ok bool) {
	return r.enabledOptions&opt == opt
}

// IsOptionDisabled returns true if all of opt are disabled, e.g. negated.
func (r *NetworkRule) IsOptionDisabled(opt NetworkRuleOption) (ok bool) {
	return r.disabledOptions&opt == opt
}

// IsSingleOptionEnabled returns true if opt is the only enabled option.
func (r *NetworkRule) IsSingleOptionEnabled(opt NetworkRuleOption) (ok bool) {
	return r.enabledOptions == opt
}

// HasCosmeticOption returns true if the rule has any option that affects the
// cosmetic filtering.
func (r *NetworkRule) HasCosmeticOption() (ok bool) {
	return r.enabledOptions&OptionCosmetic != 0
}

// IsDocumentLevelAllowlistRule returns true if the rule disables the URL
// blocking on whole pages.
func (r *NetworkRule) IsDocumentLevelAllowlistRule() (ok bool) {
	if !r.allowlist {
		return false
	}

	return r.IsOptionEnabled(OptionUrlblock) ||
		r.IsOptionEnabled(OptionGenericblock) ||
		r.IsOptionEnabled(OptionContent)
}

// IsFilteringDisabled returns true if the rule disables all filtering on the
// matching pages.
func (r *NetworkRule) IsFilteringDisabled() (ok bool) {
	return r.allowlist && r.IsOptionEnabled(OptionElemhide|OptionContent|OptionUrlblock|OptionJsinject)
}

// IsGeneric returns true if the rule isn't limited to specific domains.  It
// may still be disabled on some of them.
func (r *NetworkRule) IsGeneric() (ok bool) {
	return !r.domainModifier.HasPermittedDomains()
}

// IsHigherPriority returns true if r has a higher priority than other.
func (r *NetworkRule) IsHigherPriority(other *NetworkRule) (ok bool) {
	return r.priorityWeight > other.priorityWeight
}

// Match returns true if the rule matches req.  useShortcut should be false
// when the caller has already checked that the request URL contains the
// shortcut of the rule.
func (r *NetworkRule) Match(req *Request, useShortcut bool) (ok bool) {
	switch {
	case useShortcut && !strings.Contains(req.URLLowerCase, r.pattern.Shortcut()),
		r.IsOptionEnabled(OptionMethod) && !r.methodModifier.MatchMethod(req.Method),
		r.IsOptionEnabled(OptionThirdParty) && !req.ThirdParty,
		r.IsOptionDisabled(OptionThirdParty) && req.ThirdParty,
		!r.matchRequestType(req.RequestType),
		!r.matchDomainModifier(req),
		r.needsExplicitType() && !r.matchRequestTypeExplicit(req.RequestType),
		!r.matchDenyAllowDomains(req.Hostname),
		r.IsOptionEnabled(OptionTo) && !r.toModifier.MatchHostname(req.Hostname),
		!r.matchDNSType(req.DNSType),
		!r.matchClientTags(req.SortedClientTags),
		!r.matchClient(req):
		return false
	default:
		return r.pattern.Match(req, true)
	}
}

// needsExplicitType returns true if the rule only applies to subresources
// with an explicit content type modifier.
func (r *NetworkRule) needsExplicitType() (ok bool) {
	return r.IsOptionEnabled(OptionRemoveParam) || r.IsOptionEnabled(OptionPermissions)
}

// matchRequestType returns true if t isn't excluded by the content type
// modifiers.
func (r *NetworkRule) matchRequestType(t RequestType) (ok bool) {
	if r.permittedRequestTypes != TypeNotSet && r.permittedRequestTypes&t != t {
		return false
	}

	return r.restrictedRequestTypes == TypeNotSet || r.restrictedRequestTypes&t != t
}

// matchRequestTypeExplicit is like [NetworkRule.matchRequestType] but rejects
// subresources when the rule has no content type modifiers.
func (r *NetworkRule) matchRequestTypeExplicit(t RequestType) (ok bool) {
	if r.permittedRequestTypes == TypeNotSet &&
		r.restrictedRequestTypes == TypeNotSet &&
		t != TypeDocument &&
		t != TypeSubdocument {
		return false
	}

	return r.matchRequestType(t)
}

// matchDomainModifier checks $domain against the source of the request.  For
// document requests it may also check the request hostname itself: when the
// modifier only has restricted domains, or when the pattern neither is a
// regular expression nor targets specific domains.
func (r *NetworkRule) matchDomainModifier(req *Request) (ok bool) {
	m := r.domainModifier
	if m == nil {
		return true
	}

	onlyRestricted := !m.HasPermittedDomains() && m.HasRestrictedDomains()
	matchesTarget := !r.pattern.IsRegex() && !r.pattern.IsDomainSpecific()
	if req.RequestType == TypeDocument && (onlyRestricted || matchesTarget) {
		return (req.SourceHostname != "" && m.MatchDomain(req.SourceHostname)) ||
			m.MatchDomain(req.Hostname)
	}

	return m.MatchDomain(req.SourceHostname)
}

// matchDenyAllowDomains returns true if hostname isn't excluded by
// $denyallow.
func (r *NetworkRule) matchDenyAllowDomains(hostname string) (ok bool) {
	return len(r.denyAllowDomains) == 0 ||
		!IsDomainOrSubdomainOfAny(hostname, r.denyAllowDomains)
}

// matchDNSType returns true if the rule has no $dnstype or it matches qtype.
func (r *NetworkRule) matchDNSType(qtype uint16) (ok bool) {
	m, isDNSType := r.advancedModifier.(*DNSTypeModifier)
	if !isDNSType {
		return true
	}

	return qtype != 0 && m.Match(qtype)
}

// matchClientTags returns true if the rule has no $ctag or all the tags match
// it.
func (r *NetworkRule) matchClientTags(sortedTags []string) (ok bool) {
	m, isCtag := r.advancedModifier.(*CtagModifier)

	return !isCtag || m.MatchTags(sortedTags)
}

// matchClient returns true if the rule has no $client or it matches the
// client of req.
func (r *NetworkRule) matchClient(req *Request) (ok bool) {
	m, isClient := r.advancedModifier.(*ClientModifier)

	return !isClient || m.MatchAny(req.ClientName, req.ClientIP)
}

// MatchResponseHeaders returns true if the rule has a $header modifier that
// matches the response headers.
func (r *NetworkRule) MatchResponseHeaders(headers map[string]string) (ok bool) {
	if len(headers) == 0 || r.headerModifier == nil {
		return false
	}

	return r.headerModifier.MatchHeaders(headers)
}

// MatchApp returns true if the rule applies to the application with the given
// name.  Rules without $app apply to all applications.
func (r *NetworkRule) MatchApp(app string) (ok bool) {
	return r.appModifier == nil || r.appModifier.MatchApp(app)
}
