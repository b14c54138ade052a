package skills

// MatchResult is the readiness of one skill set against a requirement set.
type MatchResult struct {
	Percent int      `json:"matchPercent"`
	Matched []string `json:"matched"`
	Missing []string `json:"missing"`
}

// Score is floor(100 * |user ∩ required| / |required|), and 0 whenever
// either set is empty.
func Score(user, required Set) int {
	if user.Empty() || required.Empty() {
		return 0
	}
	hits := user.Intersect(required).Len()
	return hits * 100 / required.Len()
}

// Missing returns required − user.
func Missing(user, required Set) Set {
	return required.Difference(user)
}

// Matched returns required ∩ user.
func Matched(user, required Set) Set {
	return required.Intersect(user)
}

// Evaluate bundles Score, Matched and Missing with sorted token lists.
func Evaluate(user, required Set) MatchResult {
	return MatchResult{
		Percent: Score(user, required),
		Matched: Matched(user, required).Sorted(),
		Missing: Missing(user, required).Sorted(),
	}
}
