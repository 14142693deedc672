package rules

import (
	"fmt"
	"strings"
)

// Category is the kind of a filter list line.
type Category uint8

// Category values.
const (
	CategoryEmpty Category = iota
	CategoryComment
	CategoryNetwork
	CategoryCosmetic
	CategoryHost
)

// String implements the [fmt.Stringer] interface for Category.
func (c Category) String() (s string) {
	switch c {
	case CategoryEmpty:
		return "empty"
	case CategoryComment:
		return "comment"
	case CategoryNetwork:
		return "network"
	case CategoryCosmetic:
		return "cosmetic"
	case CategoryHost:
		return "host"
	default:
		return fmt.Sprintf("!bad_category_%d", c)
	}
}

// Node is a classified line of a filter list.
type Node struct {
	// Text is the line without the surrounding whitespace.
	Text string

	// Category is the kind of the line.
	Category Category
}

// NewNode classifies line.
func NewNode(line string) (n Node) {
	text := strings.TrimSpace(line)

	return Node{
		Text:     text,
		Category: classify(text),
	}
}

// classify returns the category of a trimmed line.
func classify(text string) (c Category) {
	switch {
	case text == "":
		return CategoryEmpty
	case isComment(text):
		return CategoryComment
	case IsCosmeticRule(text):
		return CategoryCosmetic
	case isHostRuleText(text):
		return CategoryHost
	default:
		return CategoryNetwork
	}
}

// isComment returns true if text is a comment, a directive, or a list header.
func isComment(text string) (ok bool) {
	switch text[0] {
	case '!':
		return true
	case '#':
		idx, _ := findCosmeticMarker(text)

		return idx != 0
	case '[':
		return !strings.HasPrefix(text, "[$") && strings.HasSuffix(text, "]")
	default:
		return false
	}
}
