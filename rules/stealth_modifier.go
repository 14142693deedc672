package rules

import (
	"fmt"
	"slices"
	"strings"
)

// StealthOption is a bit flag of a $stealth option supported by the engine.
type StealthOption uint8

// StealthOption values.
const (
	StealthHideSearchQueries StealthOption = 1 << iota
	StealthDoNotTrack
	StealthHideReferrer
	StealthXClientData
	StealthFirstPartyCookies
	StealthThirdPartyCookies
)

// stealthOptions maps the supported option names to their flags.
var stealthOptions = map[string]StealthOption{
	"searchqueries": StealthHideSearchQueries,
	"donottrack":    StealthDoNotTrack,
	"referrer":      StealthHideReferrer,
	"xclientdata":   StealthXClientData,
	"1p-cookie":     StealthFirstPartyCookies,
	"3p-cookie":     StealthThirdPartyCookies,
}

// universalStealthOptions are all valid option names, including the ones not
// supported by the engine.
var universalStealthOptions = []string{
	"searchqueries",
	"donottrack",
	"3p-cookie",
	"1p-cookie",
	"3p-cache",
	"3p-auth",
	"webrtc",
	"push",
	"location",
	"flash",
	"java",
	"referrer",
	"useragent",
	"ip",
	"xclientdata",
	"dpi",
}

// StealthModifier is the $stealth modifier.  An empty modifier applies to all
// stealth options.
type StealthModifier struct {
	options StealthOption
}

// NewStealthModifier parses the value of the $stealth modifier.  Valid options
// that the engine doesn't support are ignored.
func NewStealthModifier(value string) (m *StealthModifier, err error) {
	m = &StealthModifier{}
	if strings.TrimSpace(value) == "" {
		return m, nil
	}

	if strings.Contains(value, ",") {
		return nil, fmt.Errorf("invalid separator of stealth options: %q", value)
	}

	for _, name := range strings.Split(value, "|") {
		name = strings.TrimSpace(name)
		switch {
		case name == "":
			continue
		case strings.HasPrefix(name, "~"):
			return nil, fmt.Errorf("inverted $stealth values are not allowed: %q", value)
		case !slices.Contains(universalStealthOptions, name):
			return nil, fmt.Errorf("invalid $stealth option %q in %q", name, value)
		}

		m.options |= stealthOptions[name]
	}

	return m, nil
}

// HasValues returns true if the modifier has any supported options.
func (m *StealthModifier) HasValues() (ok bool) { return m.options != 0 }

// HasStealthOption returns true if the modifier has opt.
func (m *StealthModifier) HasStealthOption(opt StealthOption) (ok bool) {
	return m.options&opt != 0
}
