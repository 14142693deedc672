package rules

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

// FactoryConfig is the configuration of a [RuleFactory].
type FactoryConfig struct {
	// Logger is used to report the rules that failed to parse.  It must not be
	// nil.
	Logger *slog.Logger

	// IgnoreNetwork makes the factory skip network rules.
	IgnoreNetwork bool

	// IgnoreCosmetic makes the factory skip cosmetic rules.
	IgnoreCosmetic bool

	// IgnoreHost makes the factory skip host rules.
	IgnoreHost bool

	// AllowTrustedScriptlets allows scriptlets with the "trusted-" prefix.
	AllowTrustedScriptlets bool

	// Strict makes the factory return the errors instead of logging them.
	Strict bool
}

// RuleFactory creates typed rules from classified filter list lines.
type RuleFactory struct {
	logger   *slog.Logger
	cosmetic *CosmeticConfig

	ignoreNetwork  bool
	ignoreCosmetic bool
	ignoreHost     bool
	strict         bool
}

// NewRuleFactory returns a new properly initialized *RuleFactory.  c must not
// be nil.
func NewRuleFactory(c *FactoryConfig) (f *RuleFactory) {
	return &RuleFactory{
		logger: c.Logger,
		cosmetic: &CosmeticConfig{
			Logger:                 c.Logger,
			AllowTrustedScriptlets: c.AllowTrustedScriptlets,
		},
		ignoreNetwork:  c.IgnoreNetwork,
		ignoreCosmetic: c.IgnoreCosmetic,
		ignoreHost:     c.IgnoreHost,
		strict:         c.Strict,
	}
}

// CreateRule creates a rule from n.  r is nil if n isn't a rule, if the rules
// of its kind are ignored, or if the rule is invalid and the factory isn't
// strict.
func (f *RuleFactory) CreateRule(ctx context.Context, n Node, listID, idx int) (r Rule, err error) {
	switch n.Category {
	case CategoryNetwork:
		if f.ignoreNetwork {
			return nil, nil
		}

		var nr *NetworkRule
		nr, err = newNetworkRule(n.Text, listID, idx, f.logger)
		if err == nil {
			return nr, nil
		}
	case CategoryCosmetic:
		if f.ignoreCosmetic {
			return nil, nil
		}

		var cr *CosmeticRule
		cr, err = newCosmeticRule(n.Text, listID, idx, f.cosmetic)
		if err == nil {
			return cr, nil
		}
	case CategoryHost:
		if f.ignoreHost {
			return nil, nil
		}

		var hr *HostRule
		hr, err = newHostRule(n.Text, listID, idx)
		if err == nil {
			return hr, nil
		}
	default:
		return nil, nil
	}

	if f.strict {
		return nil, fmt.Errorf("creating %s rule: %w", n.Category, err)
	}

	f.logger.DebugContext(
		ctx,
		"skipping invalid rule",
		"list_id", listID,
		"idx", idx,
		slogutil.KeyError, err,
	)

	return nil, nil
}

// CreateAllowlistRule returns an important document-level allowlist rule for
// domain and its "www." subdomain.  A domain of the form "*.example.org"
// allows example.org and all its subdomains.
func (f *RuleFactory) CreateAllowlistRule(domain string, listID int) (r *NetworkRule, err error) {
	domain = strings.TrimPrefix(domain, "www.")
	if domain == "" {
		return nil, fmt.Errorf("allowlist domain: %w", errNoDomains)
	}

	const options = "$document,important"

	var text string
	if rest, ok := strings.CutPrefix(domain, "*."); ok {
		text = maskAllowlist + maskStartURL + rest + options
	} else {
		re := strings.NewReplacer("*", ".*", ".", `\.`).Replace(domain)
		text = maskAllowlist + `///(www\.)?` + re + "/" + options
	}

	return newNetworkRule(text, listID, 0, f.logger)
}
