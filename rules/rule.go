// Package rules contains the filtering rules of the adblock syntax and the
// primitives they are built from.
package rules

// Rule is a filtering rule.  It's implemented by [*NetworkRule],
// [*CosmeticRule], and [*HostRule].
type Rule interface {
	// Text returns the original text of the rule.
	Text() (text string)

	// ListID returns the ID of the filter list the rule belongs to.
	ListID() (id int)

	// Index returns the index of the rule within its filter list.
	Index() (idx int)
}

// type check
var (
	_ Rule = (*NetworkRule)(nil)
	_ Rule = (*CosmeticRule)(nil)
	_ Rule = (*HostRule)(nil)
)

// ruleID is the identity of a rule shared by all rule types.
type ruleID struct {
	text   string
	listID int
	index  int
}

// Text implements the [Rule] interface for ruleID.
func (id ruleID) Text() (text string) { return id.text }

// ListID implements the [Rule] interface for ruleID.
func (id ruleID) ListID() (listID int) { return id.listID }

// Index implements the [Rule] interface for ruleID.
func (id ruleID) Index() (idx int) { return id.index }
