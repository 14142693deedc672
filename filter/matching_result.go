package filter

import (
	"slices"

	"github.com/fcchbjm/adfilter/rules"
)

// CosmeticOption is a set of flags that define which cosmetic rules are
// applied to a page.
type CosmeticOption uint32

// CosmeticOption values.
const (
	// CosmeticOptionGenericCSS enables the generic element hiding and CSS
	// rules.  $generichide disables it.
	CosmeticOptionGenericCSS CosmeticOption = 1 << (iota + 1)

	// CosmeticOptionSpecificCSS enables the domain-specific element hiding and
	// CSS rules.  $specifichide disables it.
	CosmeticOptionSpecificCSS

	// CosmeticOptionJS enables the JS rules and the scriptlets.  $jsinject
	// disables it.
	CosmeticOptionJS

	// CosmeticOptionHTML enables the HTML filtering rules.  $content disables
	// it.
	CosmeticOptionHTML

	// CosmeticOptionNone disables all cosmetic rules.
	CosmeticOptionNone CosmeticOption = 0

	// CosmeticOptionAll enables all cosmetic rules.
	CosmeticOptionAll = CosmeticOptionGenericCSS | CosmeticOptionSpecificCSS |
		CosmeticOptionJS | CosmeticOptionHTML
)

// MatchingResult contains all the rules matching a request and decides how the
// request is processed.
type MatchingResult struct {
	// BasicRule is the rule that blocks or allows the request.  It's nil if
	// no such rule matches.
	BasicRule *rules.NetworkRule

	// DocumentRule is the document-level allowlist rule matching the page that
	// initiated the request, for example one with $urlblock, $genericblock, or
	// $content.
	DocumentRule *rules.NetworkRule

	// StealthRule is the allowlist rule with $stealth matching the request or
	// its page.
	StealthRule *rules.NetworkRule

	// CSPRules modify the Content-Security-Policy of the response.
	CSPRules []*rules.NetworkRule

	// CookieRules modify the cookies of the request and the response.
	CookieRules []*rules.NetworkRule

	// ReplaceRules modify the response body.
	ReplaceRules []*rules.NetworkRule

	// RemoveParamRules remove query parameters from the request URL.
	RemoveParamRules []*rules.NetworkRule

	// RemoveHeaderRules remove headers from the request or the response.
	RemoveHeaderRules []*rules.NetworkRule

	// PermissionsRules modify the Permissions-Policy of the response.
	PermissionsRules []*rules.NetworkRule

	// RedirectRules redirect the request to a local resource.
	RedirectRules []*rules.NetworkRule

	// DNSRewriteRules rewrite the response to a DNS request.
	DNSRewriteRules []*rules.NetworkRule
}

// NewMatchingResult returns the result for the rules matching the request and
// the rules matching the page that initiated it.  The $badfilter rules and the
// rules they disable are removed first.
func NewMatchingResult(matched, sourceRules []*rules.NetworkRule) (m *MatchingResult) {
	matched = removeBadfilterRules(matched)
	sourceRules = removeBadfilterRules(sourceRules)

	m = &MatchingResult{}
	for _, r := range sourceRules {
		if r.IsDocumentLevelAllowlistRule() && higherPriority(r, m.DocumentRule) {
			m.DocumentRule = r
		}

		if r.IsOptionEnabled(rules.OptionStealth) && higherPriority(r, m.StealthRule) {
			m.StealthRule = r
		}
	}

	if m.DocumentRule != nil && m.DocumentRule.IsFilteringDisabled() {
		// Nothing is filtered on this page.
		m.BasicRule = m.DocumentRule

		return m
	}

	basicAllowed, genericAllowed := true, true
	if m.DocumentRule != nil {
		switch {
		case m.DocumentRule.IsOptionEnabled(rules.OptionUrlblock):
			basicAllowed = false
		case m.DocumentRule.IsOptionEnabled(rules.OptionGenericblock):
			genericAllowed = false
		}
	}

	for _, r := range matched {
		if !r.IsAllowlist() && (!basicAllowed || (!genericAllowed && r.IsGeneric())) {
			continue
		}

		m.add(r)
	}

	return m
}

// add puts r into the corresponding set of rules.
func (m *MatchingResult) add(r *rules.NetworkRule) {
	switch {
	case r.IsOptionEnabled(rules.OptionCookie):
		m.CookieRules = append(m.CookieRules, r)
	case r.IsOptionEnabled(rules.OptionReplace):
		m.ReplaceRules = append(m.ReplaceRules, r)
	case r.IsOptionEnabled(rules.OptionCSP):
		m.CSPRules = append(m.CSPRules, r)
	case r.IsOptionEnabled(rules.OptionRemoveParam):
		m.RemoveParamRules = append(m.RemoveParamRules, r)
	case r.IsOptionEnabled(rules.OptionRemoveHeader):
		m.RemoveHeaderRules = append(m.RemoveHeaderRules, r)
	case r.IsOptionEnabled(rules.OptionPermissions):
		m.PermissionsRules = append(m.PermissionsRules, r)
	case r.IsOptionEnabled(rules.OptionRedirect):
		m.RedirectRules = append(m.RedirectRules, r)
	case r.IsOptionEnabled(rules.OptionDNSRewrite):
		m.DNSRewriteRules = append(m.DNSRewriteRules, r)
	case r.IsOptionEnabled(rules.OptionStealth):
		if higherPriority(r, m.StealthRule) {
			m.StealthRule = r
		}
	default:
		if higherPriority(r, m.BasicRule) {
			m.BasicRule = r
		}
	}
}

// higherPriority returns true if cur is nil or r has a higher priority than
// it.  Of two rules with the same priority the first one wins.
func higherPriority(r, cur *rules.NetworkRule) (ok bool) {
	return cur == nil || r.IsHigherPriority(cur)
}

// GetBasicResult returns the rule that should be applied to the request:
//
//   - nil means the request isn't filtered;
//   - an allowlist rule means the request is allowed;
//   - a blocking rule means the request is blocked, or redirected if it has
//     $redirect.
//
// $replace rules take precedence over all other basic rules, so the request is
// passed through and its response is modified instead.
func (m *MatchingResult) GetBasicResult() (r *rules.NetworkRule) {
	if len(m.ReplaceRules) > 0 {
		return nil
	}

	if r = m.GetRedirectRule(); r != nil {
		return r
	}

	if m.BasicRule == nil {
		return m.DocumentRule
	}

	return m.BasicRule
}

// GetRedirectRule returns the $redirect rule to apply to the request, if any.
// $redirect-rule rules only apply when the request is blocked by another rule.
// An allowlist $redirect rule disables the redirects to the same resource, or
// all redirects if it has no value.
func (m *MatchingResult) GetRedirectRule() (r *rules.NetworkRule) {
	basic := m.BasicRule
	blocked := basic != nil && !basic.IsAllowlist()

	var allowed []string
	for _, rr := range m.RedirectRules {
		if !rr.IsAllowlist() {
			continue
		}

		v := rr.AdvancedModifierValue()
		if v == "" {
			return nil
		}

		allowed = append(allowed, v)
	}

	for _, rr := range m.RedirectRules {
		mod, isRedirect := rr.AdvancedModifier().(*rules.RedirectModifier)
		switch {
		case
			!isRedirect,
			rr.IsAllowlist(),
			slices.Contains(allowed, mod.Value()),
			mod.IsRedirectingOnlyBlocked() && !blocked,
			basic != nil && basic.IsAllowlist() && !rr.IsHigherPriority(basic):
			continue
		}

		if higherPriority(rr, r) {
			r = rr
		}
	}

	return r
}

// GetCosmeticOption returns the cosmetic rules that should be applied to the
// page of the request.
func (m *MatchingResult) GetCosmeticOption() (opt CosmeticOption) {
	r := m.BasicRule
	if r == nil || !r.IsAllowlist() {
		return CosmeticOptionAll
	}

	opt = CosmeticOptionAll
	if r.IsOptionEnabled(rules.OptionElemhide) {
		opt &^= CosmeticOptionGenericCSS | CosmeticOptionSpecificCSS
	}

	if r.IsOptionEnabled(rules.OptionGenerichide) {
		opt &^= CosmeticOptionGenericCSS
	}

	if r.IsOptionEnabled(rules.OptionSpecifichide) {
		opt &^= CosmeticOptionSpecificCSS
	}

	if r.IsOptionEnabled(rules.OptionJsinject) {
		opt &^= CosmeticOptionJS
	}

	if r.IsOptionEnabled(rules.OptionContent) {
		opt &^= CosmeticOptionHTML
	}

	return opt
}

// removeBadfilterRules returns matched without the $badfilter rules and the
// rules they disable.  matched isn't modified.
func removeBadfilterRules(matched []*rules.NetworkRule) (res []*rules.NetworkRule) {
	var badfilters []*rules.NetworkRule
	for _, r := range matched {
		if r.IsOptionEnabled(rules.OptionBadfilter) {
			badfilters = append(badfilters, r)
		}
	}

	if len(badfilters) == 0 {
		return matched
	}

	res = make([]*rules.NetworkRule, 0, len(matched)-len(badfilters))
	for _, r := range matched {
		if r.IsOptionEnabled(rules.OptionBadfilter) {
			continue
		}

		negated := slices.ContainsFunc(badfilters, func(b *rules.NetworkRule) (ok bool) {
			return b.NegatesBadfilter(r)
		})
		if !negated {
			res = append(res, r)
		}
	}

	return res
}
