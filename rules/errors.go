package rules

import (
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
)

const (
	// ErrTooWideRule is returned when a network rule has neither modifiers nor
	// a pattern long enough to be safe.
	ErrTooWideRule errors.Error = "the rule is too wide, add domain restriction or make the pattern more specific"

	// ErrUnknownModifier is returned for modifiers the engine doesn't know.
	ErrUnknownModifier errors.Error = "unknown modifier"

	// ErrNegatedModifier is returned when a non-negatable modifier is negated.
	ErrNegatedModifier errors.Error = "modifier cannot be negated"

	// ErrIncompatibleModifiers is returned when a rule combines modifiers that
	// cannot be used together.
	ErrIncompatibleModifiers errors.Error = "incompatible modifiers"

	// ErrEmptyValue is returned when a modifier that requires a value has an
	// empty one.
	ErrEmptyValue errors.Error = "modifier value cannot be empty"

	// ErrConflictingValues is returned when a value list of a modifier both
	// permits and restricts the same value.
	ErrConflictingValues errors.Error = "value is both permitted and restricted"

	// ErrBlockingOnlyModifier is returned when a rule uses a modifier that is
	// only allowed in allowlist rules or vice versa.
	ErrBlockingOnlyModifier errors.Error = "modifier cannot be used in this kind of rule"

	// ErrHostRuleSyntax is returned when a line cannot be parsed as a host rule.
	ErrHostRuleSyntax errors.Error = "not a host rule"

	// ErrUnsupportedRule is returned by the factory for lines that are neither
	// network, cosmetic, nor host rules.
	ErrUnsupportedRule errors.Error = "unsupported rule"
)

// RuleSyntaxError represents an error while parsing a filtering rule.
type RuleSyntaxError struct {
	// err is the optional underlying sentinel.
	err error

	// Msg is the human-readable description of the problem.
	Msg string

	// RuleText is the text of the rule that caused the error.
	RuleText string
}

// type check
var _ errors.Wrapper = (*RuleSyntaxError)(nil)

// Error implements the [error] interface for *RuleSyntaxError.
func (e *RuleSyntaxError) Error() (msg string) {
	return fmt.Sprintf("syntax error: %s, rule: %s", e.Msg, e.RuleText)
}

// Unwrap implements the [errors.Wrapper] interface for *RuleSyntaxError.
func (e *RuleSyntaxError) Unwrap() (unwrapped error) {
	return e.err
}

// newRuleSyntaxError returns a new syntax error for ruleText.  err is wrapped
// if it's not nil.
func newRuleSyntaxError(ruleText string, err error) (e *RuleSyntaxError) {
	return &RuleSyntaxError{
		err:      err,
		Msg:      err.Error(),
		RuleText: ruleText,
	}
}

// newRuleSyntaxErrorf is like [newRuleSyntaxError] but formats the message.
func newRuleSyntaxErrorf(ruleText, format string, args ...any) (e *RuleSyntaxError) {
	return newRuleSyntaxError(ruleText, fmt.Errorf(format, args...))
}
