package rules

import (
	"math/bits"
	"strings"
)

// NetworkRuleOption is a bit flag of a network rule option.  Rules keep the
// enabled and the disabled options in two separate sets.
type NetworkRuleOption uint64

// NetworkRuleOption values.
const (
	OptionThirdParty NetworkRuleOption = 1 << iota
	OptionMatchCase
	OptionImportant

	// Allowlist-only options, each of them disables a part of the filtering.

	OptionElemhide
	OptionGenerichide
	OptionSpecifichide
	OptionGenericblock
	OptionJsinject
	OptionUrlblock
	OptionContent
	OptionExtension
	OptionStealth

	OptionPopup
	OptionCSP
	OptionReplace
	OptionCookie
	OptionRedirect
	OptionBadfilter
	OptionRemoveParam
	OptionRemoveHeader
	OptionJSONPrune
	OptionHLS
	OptionNetwork

	// DNS filtering options.

	OptionClient
	OptionDNSRewrite
	OptionDNSType
	OptionCtag

	OptionMethod
	OptionTo
	OptionPermissions
	OptionHeader
)

// Option groups.
const (
	// OptionAllowlistOnly are the options that can only be used in allowlist
	// rules.
	OptionAllowlistOnly = OptionElemhide | OptionGenerichide | OptionSpecifichide |
		OptionGenericblock | OptionJsinject | OptionUrlblock | OptionContent |
		OptionExtension | OptionStealth

	// OptionHostLevelRules are the options supported by the host-level network
	// rules that the DNS filtering uses.
	OptionHostLevelRules = OptionImportant | OptionBadfilter | OptionClient |
		OptionDNSRewrite | OptionDNSType | OptionCtag

	// OptionCosmetic are the options that affect the cosmetic filtering.
	OptionCosmetic = OptionElemhide | OptionGenerichide | OptionSpecifichide |
		OptionJsinject | OptionContent

	// optionRemoveParamCompatible are the options compatible with $removeparam.
	optionRemoveParamCompatible = OptionRemoveParam | OptionBadfilter |
		OptionImportant | OptionMatchCase | OptionThirdParty

	// optionRemoveHeaderCompatible are the options compatible with
	// $removeheader.
	optionRemoveHeaderCompatible = OptionRemoveHeader | OptionBadfilter |
		OptionImportant | OptionMatchCase | OptionThirdParty | OptionHeader

	// optionPermissionsCompatible are the options compatible with
	// $permissions.
	optionPermissionsCompatible = OptionPermissions | OptionBadfilter | OptionImportant

	// optionHeaderCompatible are the options compatible with $header.
	optionHeaderCompatible = OptionHeader | OptionRemoveHeader | OptionBadfilter |
		OptionCSP | OptionImportant | OptionMatchCase | OptionThirdParty

	// optionPriorityCategoryOne are the options that add to the first
	// priority category whether enabled or disabled.
	optionPriorityCategoryOne = OptionThirdParty | OptionMatchCase | OptionDNSRewrite

	// optionSpecificExclusions are the options that add to the fifth priority
	// category.
	optionSpecificExclusions = OptionElemhide | OptionGenerichide |
		OptionSpecifichide | OptionContent | OptionUrlblock | OptionGenericblock |
		OptionJsinject | OptionExtension
)

// Count returns the number of options set in o.
func (o NetworkRuleOption) Count() (n int) {
	return bits.OnesCount64(uint64(o))
}

// optionNames are the names of single options used in error messages.
var optionNames = map[NetworkRuleOption]string{
	OptionThirdParty:   "third-party",
	OptionMatchCase:    "match-case",
	OptionImportant:    "important",
	OptionElemhide:     "elemhide",
	OptionGenerichide:  "generichide",
	OptionSpecifichide: "specifichide",
	OptionGenericblock: "genericblock",
	OptionJsinject:     "jsinject",
	OptionUrlblock:     "urlblock",
	OptionContent:      "content",
	OptionExtension:    "extension",
	OptionStealth:      "stealth",
	OptionPopup:        "popup",
	OptionCSP:          "csp",
	OptionReplace:      "replace",
	OptionCookie:       "cookie",
	OptionRedirect:     "redirect",
	OptionBadfilter:    "badfilter",
	OptionRemoveParam:  "removeparam",
	OptionRemoveHeader: "removeheader",
	OptionJSONPrune:    "jsonprune",
	OptionHLS:          "hls",
	OptionNetwork:      "network",
	OptionClient:       "client",
	OptionDNSRewrite:   "dnsrewrite",
	OptionDNSType:      "dnstype",
	OptionCtag:         "ctag",
	OptionMethod:       "method",
	OptionTo:           "to",
	OptionPermissions:  "permissions",
	OptionHeader:       "header",
}

// String implements the [fmt.Stringer] interface for NetworkRuleOption.
func (o NetworkRuleOption) String() (s string) {
	if name, ok := optionNames[o]; ok {
		return name
	}

	var names []string
	for opt := NetworkRuleOption(1); opt != 0 && opt <= o; opt <<= 1 {
		if o&opt != 0 {
			names = append(names, optionNames[opt])
		}
	}

	return strings.Join(names, "|")
}

// Modifier names.
const (
	modFirstParty     = "first-party"
	modThirdParty     = "third-party"
	modMatchCase      = "match-case"
	modImportant      = "important"
	modDomain         = "domain"
	modDenyallow      = "denyallow"
	modMethod         = "method"
	modHeader         = "header"
	modTo             = "to"
	modElemhide       = "elemhide"
	modGenerichide    = "generichide"
	modSpecifichide   = "specifichide"
	modGenericblock   = "genericblock"
	modJsinject       = "jsinject"
	modUrlblock       = "urlblock"
	modContent        = "content"
	modDocument       = "document"
	modDoc            = "doc"
	modStealth        = "stealth"
	modPopup          = "popup"
	modBadfilter      = "badfilter"
	modCSP            = "csp"
	modReplace        = "replace"
	modCookie         = "cookie"
	modRedirect       = "redirect"
	modRedirectRule   = "redirect-rule"
	modRemoveParam    = "removeparam"
	modRemoveHeader   = "removeheader"
	modPermissions    = "permissions"
	modJSONPrune      = "jsonprune"
	modHLS            = "hls"
	modReferrerPolicy = "referrerpolicy"
	modClient         = "client"
	modDNSRewrite     = "dnsrewrite"
	modDNSType        = "dnstype"
	modCtag           = "ctag"
	modApp            = "app"
	modNetwork        = "network"
	modExtension      = "extension"
	modAll            = "all"
	modEmpty          = "empty"
	modMP4            = "mp4"
	modNoop           = "_"
)

// negatableModifiers are the modifiers that can be negated with "~".
var negatableModifiers = map[string]struct{}{
	modFirstParty:    {},
	modThirdParty:    {},
	modMatchCase:     {},
	modDocument:      {},
	modDoc:           {},
	"script":         {},
	"stylesheet":     {},
	"subdocument":    {},
	"object":         {},
	"image":          {},
	"xmlhttprequest": {},
	"media":          {},
	"font":           {},
	"websocket":      {},
	"other":          {},
	"ping":           {},
	modExtension:     {},
}

// advancedModifierNames are the names of the modifiers that set an advanced
// modifier.  Rules with them are considered unsafe by the scanner.
var advancedModifierNames = map[string]struct{}{
	modCSP:          {},
	modReplace:      {},
	modCookie:       {},
	modRedirect:     {},
	modRedirectRule: {},
	modRemoveParam:  {},
	modRemoveHeader: {},
	modPermissions:  {},
	modClient:       {},
	modDNSRewrite:   {},
	modDNSType:      {},
	modCtag:         {},
}

// IsAdvancedModifierName returns true if name is a modifier that carries an
// advanced modifier.
func IsAdvancedModifierName(name string) (ok bool) {
	_, ok = advancedModifierNames[name]

	return ok
}
