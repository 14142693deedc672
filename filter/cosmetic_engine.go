package filter

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/fcchbjm/adfilter/filterlist"
	"github.com/fcchbjm/adfilter/rules"
)

// CosmeticEngine combines the cosmetic rules and finds the ones that apply to
// a page.
type CosmeticEngine struct {
	elementHiding *cosmeticLookupTable
	css           *cosmeticLookupTable
	js            *cosmeticLookupTable
	scriptlets    *cosmeticLookupTable
	html          *cosmeticLookupTable

	rulesCount int
}

// NewCosmeticEngine scans s and returns a cosmetic engine with all the
// cosmetic rules it contains.
func NewCosmeticEngine(ctx context.Context, s *filterlist.RuleStorage) (e *CosmeticEngine, err error) {
	e = &CosmeticEngine{
		elementHiding: newCosmeticLookupTable(),
		css:           newCosmeticLookupTable(),
		js:            newCosmeticLookupTable(),
		scriptlets:    newCosmeticLookupTable(),
		html:          newCosmeticLookupTable(),
	}

	sc := s.NewScanner(filterlist.ScannerTypeCosmetic)
	for sc.Scan(ctx) {
		r, _ := sc.Rule()
		if cr, ok := r.(*rules.CosmeticRule); ok {
			e.addRule(cr)
		}
	}

	if err = sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning cosmetic rules: %w", err)
	}

	return e, nil
}

// addRule adds r to the lookup table of its type.
func (e *CosmeticEngine) addRule(r *rules.CosmeticRule) {
	switch r.Type() {
	case rules.CosmeticElementHiding:
		e.elementHiding.addRule(r)
	case rules.CosmeticCSS:
		e.css.addRule(r)
	case rules.CosmeticJS:
		e.js.addRule(r)
	case rules.CosmeticScriptlet:
		e.scriptlets.addRule(r)
	case rules.CosmeticHTML:
		e.html.addRule(r)
	default:
		return
	}

	e.rulesCount++
}

// RulesCount returns the number of rules in the engine.
func (e *CosmeticEngine) RulesCount() (n int) {
	return e.rulesCount
}

// StylesResult contains the selectors of element hiding rules or the style
// blocks of CSS rules.
type StylesResult struct {
	Generic        []string `json:"generic"`
	Specific       []string `json:"specific"`
	GenericExtCSS  []string `json:"genericExtCss"`
	SpecificExtCSS []string `json:"specificExtCss"`
}

// appendRule adds the content of r to the corresponding list.
func (s *StylesResult) appendRule(r *rules.CosmeticRule) {
	switch generic, ext := r.IsGeneric(), r.IsExtendedCSS(); {
	case generic && ext:
		s.GenericExtCSS = append(s.GenericExtCSS, r.Content())
	case generic:
		s.Generic = append(s.Generic, r.Content())
	case ext:
		s.SpecificExtCSS = append(s.SpecificExtCSS, r.Content())
	default:
		s.Specific = append(s.Specific, r.Content())
	}
}

// ContentResult contains the contents of JS, scriptlet, or HTML filtering
// rules.
type ContentResult struct {
	Generic  []string `json:"generic"`
	Specific []string `json:"specific"`
}

// appendRule adds the content of r to the corresponding list.
func (c *ContentResult) appendRule(r *rules.CosmeticRule) {
	if r.IsGeneric() {
		c.Generic = append(c.Generic, r.Content())
	} else {
		c.Specific = append(c.Specific, r.Content())
	}
}

// CosmeticResult contains everything that should be applied to a page.
type CosmeticResult struct {
	ElementHiding StylesResult  `json:"elementHiding"`
	CSS           StylesResult  `json:"css"`
	JS            ContentResult `json:"js"`
	Scriptlets    ContentResult `json:"scriptlets"`
	HTML          ContentResult `json:"html"`
}

// Match returns the cosmetic rules that apply to the page of req and are
// enabled by opt.
func (e *CosmeticEngine) Match(req *rules.Request, opt CosmeticOption) (res *CosmeticResult) {
	res = &CosmeticResult{}

	generic := opt&CosmeticOptionGenericCSS != 0
	specific := opt&CosmeticOptionSpecificCSS != 0
	e.elementHiding.match(req, generic, specific, res.ElementHiding.appendRule)
	e.css.match(req, generic, specific, res.CSS.appendRule)

	if opt&CosmeticOptionJS != 0 {
		e.js.match(req, true, true, res.JS.appendRule)
		e.scriptlets.match(req, true, true, res.Scriptlets.appendRule)
	}

	if opt&CosmeticOptionHTML != 0 {
		e.html.match(req, true, true, res.HTML.appendRule)
	}

	return res
}

// cosmeticLookupTable keeps the cosmetic rules of a single type.
type cosmeticLookupTable struct {
	// byHostname are the specific rules by each of their permitted domains.
	byHostname map[string][]*rules.CosmeticRule

	// allowlist are the allowlist rules by the key of the rules they disable.
	allowlist map[string][]*rules.CosmeticRule

	// generic are the rules without permitted domains.
	generic []*rules.CosmeticRule

	// other are the specific rules with wildcard or regular expression
	// domains.
	other []*rules.CosmeticRule
}

// newCosmeticLookupTable returns a new empty lookup table.
func newCosmeticLookupTable() (t *cosmeticLookupTable) {
	return &cosmeticLookupTable{
		byHostname: map[string][]*rules.CosmeticRule{},
		allowlist:  map[string][]*rules.CosmeticRule{},
	}
}

// allowlistKey returns the key of r in the allowlist.  Scriptlets are
// disabled by name regardless of their arguments.
func allowlistKey(r *rules.CosmeticRule) (key string) {
	if p := r.Scriptlet(); p != nil {
		return p.Name
	}

	return r.Content()
}

// addRule adds r to the table.
func (t *cosmeticLookupTable) addRule(r *rules.CosmeticRule) {
	if r.IsAllowlist() {
		key := allowlistKey(r)
		t.allowlist[key] = append(t.allowlist[key], r)

		return
	}

	if r.IsGeneric() {
		t.generic = append(t.generic, r)

		return
	}

	domains := r.PermittedDomains()
	for _, d := range domains {
		if strings.HasSuffix(d, ".*") || strings.HasPrefix(d, "/") {
			t.other = append(t.other, r)

			return
		}
	}

	for _, d := range domains {
		t.byHostname[d] = append(t.byHostname[d], r)
	}
}

// match calls add for each matching rule which isn't disabled by an allowlist
// rule.
func (t *cosmeticLookupTable) match(
	req *rules.Request,
	generic bool,
	specific bool,
	add func(r *rules.CosmeticRule),
) {
	if generic {
		for _, r := range t.generic {
			if r.Match(req) && !t.isAllowlisted(req, r) {
				add(r)
			}
		}
	}

	if !specific {
		return
	}

	var seen []*rules.CosmeticRule
	for d := range subdomains(req.Hostname) {
		for _, r := range t.byHostname[d] {
			if slices.Contains(seen, r) {
				continue
			}

			seen = append(seen, r)
			if r.Match(req) && !t.isAllowlisted(req, r) {
				add(r)
			}
		}
	}

	for _, r := range t.other {
		if r.Match(req) && !t.isAllowlisted(req, r) {
			add(r)
		}
	}
}

// isAllowlisted returns true if r is disabled on the page of req.  An
// allowlist scriptlet rule without a name disables all scriptlets.
func (t *cosmeticLookupTable) isAllowlisted(req *rules.Request, r *rules.CosmeticRule) (ok bool) {
	keys := []string{allowlistKey(r)}
	if r.Scriptlet() != nil {
		keys = append(keys, "")
	}

	for _, key := range keys {
		for _, a := range t.allowlist[key] {
			if a.Match(req) {
				return true
			}
		}
	}

	return false
}
