package rules

import (
	"math"
	"slices"
)

// Priority weights of the rule categories.  Each category outweighs all
// possible combinations of the lower ones.
//
// See https://adguard.com/kb/general/ad-filtering/create-own-filters/#priority-counting.
const (
	categoryTwoWeight   = 50
	categoryThreeWeight = 100
	categoryFourWeight  = 1_000
	categoryFiveWeight  = 10_000
	categorySixWeight   = 100_000
	categorySevenWeight = 1_000_000
)

// calculatePriorityWeight sets the priority weight of the rule based on its
// modifiers.  The fractional weight is rounded up.
func (r *NetworkRule) calculatePriorityWeight() {
	w := float64(r.priorityWeight)

	// Category 1: basic modifiers and the presence of negated lists.
	w += float64((r.enabledOptions & optionPriorityCategoryOne).Count())
	w += float64((r.disabledOptions & optionPriorityCategoryOne).Count())

	for _, present := range []bool{
		len(r.denyAllowDomains) > 0,
		r.domainModifier.HasRestrictedDomains(),
		r.methodModifier != nil && len(r.methodModifier.RestrictedMethods()) > 0,
		r.appModifier != nil && len(r.appModifier.RestrictedApps()) > 0,
		r.restrictedRequestTypes != TypeNotSet,
		r.toModifier != nil,
	} {
		if present {
			w++
		}
	}

	// Category 2: permitted request types and methods, $header.
	if n := r.permittedRequestTypes.Count(); n > 0 {
		w += categoryTwoWeight + categoryTwoWeight/float64(n)
	}

	if r.methodModifier != nil {
		if n := len(r.methodModifier.PermittedMethods()); n > 0 {
			w += categoryTwoWeight + categoryTwoWeight/float64(n)
		}
	}

	if r.headerModifier != nil {
		w += categoryTwoWeight
	}

	// Category 3: permitted domains and applications.
	if n := len(r.domainModifier.PermittedDomains()); n > 0 {
		w += categoryThreeWeight + categoryThreeWeight/float64(n)
	}

	if n := len(r.PermittedApps()); n > 0 {
		w += categoryThreeWeight + categoryThreeWeight/float64(n)
	}

	if r.IsOptionEnabled(OptionRedirect) {
		w += categoryFourWeight
	}

	w += float64(categoryFiveWeight * (r.enabledOptions & optionSpecificExclusions).Count())

	if r.allowlist {
		w += categorySixWeight
	}

	if r.IsOptionEnabled(OptionImportant) {
		w += categorySevenWeight
	}

	r.priorityWeight = int(math.Ceil(w))
}

// NegatesBadfilter returns true if r is a $badfilter rule that disables other.
// The rules must be equal except for $badfilter itself, and their permitted
// domains must intersect.
func (r *NetworkRule) NegatesBadfilter(other *NetworkRule) (ok bool) {
	switch {
	case
		!r.IsOptionEnabled(OptionBadfilter),
		r.allowlist != other.allowlist,
		r.pattern.Text() != other.pattern.Text(),
		r.permittedRequestTypes != other.permittedRequestTypes,
		r.restrictedRequestTypes != other.restrictedRequestTypes,
		r.enabledOptions^OptionBadfilter != other.enabledOptions,
		r.disabledOptions != other.disabledOptions,
		!slices.Equal(r.RestrictedDomains(), other.RestrictedDomains()):
		return false
	default:
		return stringsIntersect(r.PermittedDomains(), other.PermittedDomains())
	}
}

// stringsIntersect returns true if a and b have a common element or any of
// them is empty.
func stringsIntersect(a, b []string) (ok bool) {
	if len(a) == 0 || len(b) == 0 {
		return true
	}

	for _, s := range a {
		if slices.Contains(b, s) {
			return true
		}
	}

	return false
}

// IsHostLevelNetworkRule returns true if the rule can be used to filter DNS
// requests: it has no domain restrictions and only the options the DNS
// filtering supports.
func (r *NetworkRule) IsHostLevelNetworkRule() (ok bool) {
	if r.domainModifier.HasPermittedDomains() || r.domainModifier.HasRestrictedDomains() {
		return false
	}

	if r.permittedRequestTypes != TypeNotSet && r.restrictedRequestTypes != TypeNotSet {
		return false
	}

	if r.disabledOptions != 0 {
		return false
	}

	return r.enabledOptions&^OptionHostLevelRules == 0
}
