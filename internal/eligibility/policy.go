package eligibility

import (
	"fmt"
	"sort"
	"strings"
)

// CGPAPolicy buckets a CGPA into allowed tiers.
type CGPAPolicy func(cgpa float64) TierSet

// MatchPolicy buckets a skill match percent into allowed tiers.
type MatchPolicy func(pct int) TierSet

// LevelsForCGPA: 8.0 and above sees every tier, 6.5 up to 8.0 loses High,
// below 6.5 only Low and Startup remain.
func LevelsForCGPA(cgpa float64) TierSet {
	switch {
	case cgpa >= 8.0:
		return NewTierSet(TierHigh, TierMid, TierLow, TierStartup)
	case cgpa >= 6.5:
		return NewTierSet(TierMid, TierLow, TierStartup)
	default:
		return NewTierSet(TierLow, TierStartup)
	}
}

// LevelsForCGPAStrict is LevelsForCGPA except that below 6.5 only Startup
// remains.
func LevelsForCGPAStrict(cgpa float64) TierSet {
	if cgpa < 6.5 {
		return NewTierSet(TierStartup)
	}
	return LevelsForCGPA(cgpa)
}

// LevelsForMatch uses the 70/40 bands.
func LevelsForMatch(pct int) TierSet {
	switch {
	case pct >= 70:
		return NewTierSet(TierHigh, TierMid)
	case pct >= 40:
		return NewTierSet(TierMid, TierLow)
	default:
		return NewTierSet(TierLow, TierStartup)
	}
}

// LevelsForMatchGraded uses the 80/60/40 bands.
func LevelsForMatchGraded(pct int) TierSet {
	switch {
	case pct >= 80:
		return NewTierSet(TierHigh, TierMid)
	case pct >= 60:
		return NewTierSet(TierMid)
	case pct >= 40:
		return NewTierSet(TierLow)
	default:
		return NewTierSet(TierStartup, TierLow)
	}
}

var cgpaPolicies = map[string]CGPAPolicy{
	"standard": LevelsForCGPA,
	"strict":   LevelsForCGPAStrict,
}

var matchPolicies = map[string]MatchPolicy{
	"banded": LevelsForMatch,
	"graded": LevelsForMatchGraded,
}

// CGPAPolicyNames lists the registered CGPA policies.
func CGPAPolicyNames() []string { return sortedKeys(cgpaPolicies) }

// MatchPolicyNames lists the registered match policies.
func MatchPolicyNames() []string { return sortedKeys(matchPolicies) }

func LookupCGPAPolicy(name string) (CGPAPolicy, error) {
	p, ok := cgpaPolicies[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown CGPA policy %q (available: %s)", name, strings.Join(CGPAPolicyNames(), ", "))
	}
	return p, nil
}

func LookupMatchPolicy(name string) (MatchPolicy, error) {
	p, ok := matchPolicies[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown match policy %q (available: %s)", name, strings.Join(MatchPolicyNames(), ", "))
	}
	return p, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
