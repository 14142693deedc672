package rules

import (
	"fmt"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
)

// loadOptions parses the comma-separated options of the rule and validates
// the resulting combination.
func (r *NetworkRule) loadOptions(options string) (err error) {
	if options == "" {
		return nil
	}

	for _, opt := range splitWithEscapeCharacter(options, ',', escapeCharacter, false) {
		name, value := opt, ""
		if i := strings.IndexByte(opt, '='); i > 0 {
			name, value = opt[:i], opt[i+1:]
		}

		negated := strings.HasPrefix(name, "~")
		if negated {
			name = name[1:]
		}

		err = r.loadOption(name, value, negated)
		if err != nil {
			return err
		}
	}

	return r.validateOptions()
}

// isNoopModifier returns true if name only consists of underscores.
func isNoopModifier(name string) (ok bool) {
	return name != "" && strings.Trim(name, modNoop) == ""
}

// loadOption loads a single option.  negated is true if the option is prefixed
// with "~".
//
//nolint:gocyclo // A flat switch over all the modifiers is easier to read.
func (r *NetworkRule) loadOption(name, value string, negated bool) (err error) {
	if isNoopModifier(name) {
		return nil
	}

	if negated {
		if _, ok := negatableModifiers[name]; !ok {
			return fmt.Errorf("%w: %q", ErrNegatedModifier, name)
		}
	}

	if t, ok := requestTypeOptions[name]; ok {
		r.setRequestType(t, !negated)

		return nil
	}

	switch name {
	case modFirstParty:
		return r.setOptionEnabled(OptionThirdParty, negated, false)
	case modThirdParty:
		return r.setOptionEnabled(OptionThirdParty, !negated, false)
	case modMatchCase:
		return r.setOptionEnabled(OptionMatchCase, !negated, false)
	case modImportant:
		return r.setOptionEnabled(OptionImportant, true, false)
	case modBadfilter:
		return r.setOptionEnabled(OptionBadfilter, true, false)
	case modPopup:
		return r.setOptionEnabled(OptionPopup, true, false)
	case modNetwork:
		return r.setOptionEnabled(OptionNetwork, true, false)
	case modExtension:
		return r.setOptionEnabled(OptionExtension, !negated, false)
	case modJSONPrune:
		return r.setOptionEnabled(OptionJSONPrune, true, false)
	case modHLS:
		return r.setOptionEnabled(OptionHLS, true, false)
	case modReferrerPolicy, modEmpty, modMP4:
		// Accepted for compatibility, the engine does nothing with them.
		return nil
	case modDomain:
		r.domainModifier, err = NewDomainModifier(value, separatorPipe)
		if err != nil {
			return fmt.Errorf("$domain: %w", err)
		}

		return nil
	case modDenyallow:
		return r.setDenyAllowDomains(value)
	case modApp:
		r.appModifier, err = NewAppModifier(value)

		return err
	case modMethod:
		r.methodModifier, err = NewMethodModifier(value)
		if err != nil {
			return err
		}

		return r.setOptionEnabled(OptionMethod, true, false)
	case modHeader:
		r.headerModifier, err = NewHeaderModifier(value)
		if err != nil {
			return err
		}

		return r.setOptionEnabled(OptionHeader, true, false)
	case modTo:
		r.toModifier, err = NewToModifier(value)
		if err != nil {
			return err
		}

		return r.setOptionEnabled(OptionTo, true, false)
	case modStealth:
		r.stealthModifier, err = NewStealthModifier(value)
		if err != nil {
			return err
		}

		return r.setOptionEnabled(OptionStealth, true, false)
	case modDocument, modDoc:
		return r.loadDocument(negated)
	case modAll:
		if r.allowlist {
			return fmt.Errorf("%w: $all cannot be used in allowlist rules", ErrBlockingOnlyModifier)
		}

		r.setRequestType(typeAll, true)

		return r.setOptionEnabled(OptionPopup, true, false)
	default:
		return r.loadSpecificOption(name, value)
	}
}

// loadSpecificOption loads the options that disable parts of the filtering
// and the ones that set an advanced modifier.
func (r *NetworkRule) loadSpecificOption(name, value string) (err error) {
	if opt, ok := documentLevelOptions[name]; ok {
		r.setRequestType(TypeDocument|TypeSubdocument, true)

		return r.setOptionEnabled(opt, true, false)
	}

	var m AdvancedModifier
	var opt NetworkRuleOption
	switch name {
	case modCSP:
		opt = OptionCSP
		m, err = NewCSPModifier(value, r.allowlist)
	case modReplace:
		opt = OptionReplace
		m, err = NewReplaceModifier(value)
	case modCookie:
		opt = OptionCookie
		m, err = NewCookieModifier(value)
	case modRedirect, modRedirectRule:
		opt = OptionRedirect
		m, err = NewRedirectModifier(value, r.allowlist, name == modRedirectRule)
	case modRemoveParam:
		opt = OptionRemoveParam
		m, err = NewRemoveParamModifier(value)
	case modRemoveHeader:
		opt = OptionRemoveHeader
		m, err = NewRemoveHeaderModifier(value, r.allowlist)
	case modPermissions:
		opt = OptionPermissions
		m, err = NewPermissionsModifier(value, r.allowlist)
	case modClient:
		opt = OptionClient
		m, err = NewClientModifier(value)
	case modDNSRewrite:
		opt = OptionDNSRewrite
		m, err = NewDNSRewriteModifier(value, r.allowlist)
	case modDNSType:
		opt = OptionDNSType
		m, err = NewDNSTypeModifier(value)
	case modCtag:
		opt = OptionCtag
		m, err = NewCtagModifier(value)
	default:
		if value != "" {
			return fmt.Errorf("%w: %s=%s", ErrUnknownModifier, name, value)
		}

		return fmt.Errorf("%w: %s", ErrUnknownModifier, name)
	}

	if err != nil {
		return err
	}

	return r.setAdvancedModifier(opt, m)
}

// documentLevelOptions are the allowlist-only options that also limit the
// rule to documents.
var documentLevelOptions = map[string]NetworkRuleOption{
	modElemhide:     OptionElemhide,
	modGenerichide:  OptionGenerichide,
	modSpecifichide: OptionSpecifichide,
	modGenericblock: OptionGenericblock,
	modJsinject:     OptionJsinject,
	modUrlblock:     OptionUrlblock,
	modContent:      OptionContent,
}

// loadDocument loads $document.  In allowlist rules it also implies $content,
// $elemhide, $jsinject, and $urlblock.
func (r *NetworkRule) loadDocument(negated bool) (err error) {
	if negated {
		r.setRequestType(TypeDocument, false)

		return nil
	}

	r.setRequestType(TypeDocument, true)
	if r.allowlist {
		return r.setOptionEnabled(OptionElemhide|OptionJsinject|OptionUrlblock|OptionContent, true, true)
	}

	return nil
}

// setAdvancedModifier sets the advanced modifier of the rule and enables opt.
// A rule can have only one advanced modifier.
func (r *NetworkRule) setAdvancedModifier(opt NetworkRuleOption, m AdvancedModifier) (err error) {
	if r.advancedModifier != nil {
		return fmt.Errorf(
			"%w: $%s cannot be combined with another modifier of its kind",
			ErrIncompatibleModifiers,
			opt,
		)
	}

	r.advancedModifier = m

	return r.setOptionEnabled(opt, true, false)
}

// setOptionEnabled enables or disables opt.  Allowlist-only options cannot be
// set on blocking rules unless skipRestrictions is true.
func (r *NetworkRule) setOptionEnabled(opt NetworkRuleOption, enabled, skipRestrictions bool) (err error) {
	if !skipRestrictions && !r.allowlist && opt&OptionAllowlistOnly == opt {
		return fmt.Errorf("%w: $%s cannot be used in blocking rules", ErrBlockingOnlyModifier, opt)
	}

	if enabled {
		r.enabledOptions |= opt
	} else {
		r.disabledOptions |= opt
	}

	return nil
}

// setRequestType permits or restricts t.
func (r *NetworkRule) setRequestType(t RequestType, permitted bool) {
	if permitted {
		r.permittedRequestTypes |= t
	} else {
		r.restrictedRequestTypes |= t
	}
}

// setDenyAllowDomains parses the value of $denyallow.  The domains cannot be
// negated, wildcards, or regular expressions.
func (r *NetworkRule) setDenyAllowDomains(value string) (err error) {
	m, err := NewDomainModifier(value, separatorPipe)
	if err != nil {
		return fmt.Errorf("$denyallow: %w", err)
	}

	if m.HasRestrictedDomains() {
		return errors.Error("$denyallow domains cannot be negated")
	}

	for _, e := range m.permitted {
		if e.wildcard || e.re != nil {
			return errors.Error("$denyallow does not support wildcards and regex domains")
		}
	}

	r.denyAllowDomains = m.PermittedDomains()

	return nil
}

// validateOptions checks the combination of the loaded options.  All checks
// run after the options are loaded, so their order in the rule doesn't matter.
func (r *NetworkRule) validateOptions() (err error) {
	var errs []error

	for _, c := range []struct {
		name       string
		opt        NetworkRuleOption
		compatible NetworkRuleOption
	}{{
		name:       modRemoveParam,
		opt:        OptionRemoveParam,
		compatible: optionRemoveParamCompatible,
	}, {
		name:       modRemoveHeader,
		opt:        OptionRemoveHeader,
		compatible: optionRemoveHeaderCompatible,
	}, {
		name:       modPermissions,
		opt:        OptionPermissions,
		compatible: optionPermissionsCompatible,
	}, {
		name:       modHeader,
		opt:        OptionHeader,
		compatible: optionHeaderCompatible,
	}} {
		if r.IsOptionEnabled(c.opt) && r.enabledOptions|c.compatible != c.compatible {
			errs = append(errs, fmt.Errorf(
				"%w: $%s rules are not compatible with some other modifiers",
				ErrIncompatibleModifiers,
				c.name,
			))
		}
	}

	if r.IsOptionEnabled(OptionHeader | OptionRemoveHeader) {
		v := r.AdvancedModifierValue()
		if v == "" || strings.Contains(v, removeHeaderRequestPrefix) {
			errs = append(errs, fmt.Errorf(
				"%w: $header rules are only compatible with response headers removal of $removeheader",
				ErrIncompatibleModifiers,
			))
		}
	}

	if both := r.enabledOptions & r.disabledOptions; both != 0 {
		errs = append(errs, fmt.Errorf(
			"%w: $%s is both enabled and disabled",
			ErrIncompatibleModifiers,
			both,
		))
	}

	// $all may be narrowed with negated request types.
	if r.permittedRequestTypes != typeAll && r.permittedRequestTypes&r.restrictedRequestTypes != 0 {
		errs = append(errs, fmt.Errorf(
			"%w: a request type is both permitted and restricted",
			ErrIncompatibleModifiers,
		))
	}

	if r.toModifier != nil && r.denyAllowDomains != nil {
		errs = append(errs, fmt.Errorf(
			"%w: $to is not compatible with $denyallow",
			ErrIncompatibleModifiers,
		))
	}

	return errors.Join(errs...)
}
