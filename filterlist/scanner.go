package filterlist

import (
	"bufio"
	"context"
	"io"
	"log/slog"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/fcchbjm/adfilter/rules"
)

// ScannerType is a set of the kinds of rules a scanner returns.
type ScannerType uint8

// ScannerType values.
const (
	ScannerTypeNetwork ScannerType = 1 << iota
	ScannerTypeCosmetic
	ScannerTypeHost

	ScannerTypeAll = ScannerTypeNetwork | ScannerTypeCosmetic | ScannerTypeHost
)

// ScannerConfig is the configuration of a [RuleScanner].
type ScannerConfig struct {
	// Logger is used to report the invalid rules.  It must not be nil.
	Logger *slog.Logger

	// Type are the kinds of rules to return.
	Type ScannerType

	// IgnoreCosmetic makes the scanner skip cosmetic rules regardless of
	// Type.
	IgnoreCosmetic bool

	// IgnoreJS makes the scanner skip JavaScript and scriptlet rules.
	IgnoreJS bool

	// IgnoreUnsafe makes the scanner skip network rules with advanced
	// modifiers.
	IgnoreUnsafe bool

	// AllowTrustedScriptlets allows scriptlets with the "trusted-" prefix.
	AllowTrustedScriptlets bool
}

// RuleScanner reads the rules of a list one by one.  The index of a rule is the
// offset of its line in the read data.
type RuleScanner struct {
	reader  *bufio.Reader
	factory *rules.RuleFactory
	rule    rules.Rule
	err     error

	listID  int
	pos     int
	ruleIdx int

	ignoreJS     bool
	ignoreUnsafe bool
	done         bool
}

// NewRuleScanner returns a new scanner of the rules read from r.  c must not be
// nil.
func NewRuleScanner(r io.Reader, listID int, c *ScannerConfig) (s *RuleScanner) {
	return &RuleScanner{
		reader: bufio.NewReader(r),
		factory: rules.NewRuleFactory(&rules.FactoryConfig{
			Logger:                 c.Logger,
			IgnoreNetwork:          c.Type&ScannerTypeNetwork == 0,
			IgnoreCosmetic:         c.IgnoreCosmetic || c.Type&ScannerTypeCosmetic == 0,
			IgnoreHost:             c.Type&ScannerTypeHost == 0,
			AllowTrustedScriptlets: c.AllowTrustedScriptlets,
		}),
		listID:       listID,
		ignoreJS:     c.IgnoreJS,
		ignoreUnsafe: c.IgnoreUnsafe,
	}
}

// Scan advances the scanner to the next rule, which is then available through
// [RuleScanner.Rule].  It returns false when there are no more rules or on a
// read error, see [RuleScanner.Err].
func (s *RuleScanner) Scan(ctx context.Context) (ok bool) {
	for !s.done {
		idx := s.pos
		line, err := s.reader.ReadString('\n')
		s.pos += len(line)
		if err != nil {
			s.done = true
			if !errors.Is(err, io.EOF) {
				s.err = err

				break
			}
		}

		r, _ := s.factory.CreateRule(ctx, rules.NewNode(line), s.listID, idx)
		if r != nil && !s.isIgnored(r) {
			s.rule, s.ruleIdx = r, idx

			return true
		}
	}

	s.rule = nil

	return false
}

// isIgnored returns true if r must be skipped according to the ignore
// policies.
func (s *RuleScanner) isIgnored(r rules.Rule) (ok bool) {
	switch r := r.(type) {
	case *rules.CosmeticRule:
		t := r.Type()

		return s.ignoreJS && (t == rules.CosmeticJS || t == rules.CosmeticScriptlet)
	case *rules.NetworkRule:
		return s.ignoreUnsafe && r.AdvancedModifier() != nil
	default:
		return false
	}
}

// Rule returns the rule found by the most recent call to [RuleScanner.Scan]
// and its index.  r is nil if there is no such rule.
func (s *RuleScanner) Rule() (r rules.Rule, idx int) {
	return s.rule, s.ruleIdx
}

// ListID returns the identifier of the scanned list.
func (s *RuleScanner) ListID() (id int) { return s.listID }

// Err returns the first read error encountered by the scanner.
func (s *RuleScanner) Err() (err error) { return s.err }
