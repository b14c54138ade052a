// Package eligibility maps a student's CGPA and skill readiness onto the
// company tiers they should be shown.
package eligibility

import (
	"strings"
)

// Tier is a company level. Lower rank sorts first.
type Tier int

const (
	TierUnknown Tier = iota
	TierHigh
	TierMid
	TierLow
	TierStartup
)

var tierNames = map[Tier]string{
	TierHigh:    "High",
	TierMid:     "Mid",
	TierLow:     "Low",
	TierStartup: "Startup",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Rank orders tiers High < Mid < Low < Startup < Unknown.
func (t Tier) Rank() int {
	if t == TierUnknown {
		return int(TierStartup) + 1
	}
	return int(t)
}

// ParseTier reads a company_level cell case-insensitively. Anything outside
// the four known levels is TierUnknown.
func ParseTier(s string) Tier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return TierHigh
	case "mid":
		return TierMid
	case "low":
		return TierLow
	case "startup":
		return TierStartup
	default:
		return TierUnknown
	}
}

// AllTiers lists the known tiers in rank order.
var AllTiers = []Tier{TierHigh, TierMid, TierLow, TierStartup}

// TierSet is a small bitset of tiers.
type TierSet uint8

func NewTierSet(tiers ...Tier) TierSet {
	var s TierSet
	for _, t := range tiers {
		if t != TierUnknown {
			s |= 1 << uint(t)
		}
	}
	return s
}

func (s TierSet) Contains(t Tier) bool {
	return t != TierUnknown && s&(1<<uint(t)) != 0
}

func (s TierSet) Intersect(o TierSet) TierSet { return s & o }
func (s TierSet) Union(o TierSet) TierSet     { return s | o }
func (s TierSet) Empty() bool                 { return s == 0 }

// Tiers returns the members in rank order.
func (s TierSet) Tiers() []Tier {
	out := make([]Tier, 0, len(AllTiers))
	for _, t := range AllTiers {
		if s.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}

// Names returns the member names in rank order.
func (s TierSet) Names() []string {
	tiers := s.Tiers()
	out := make([]string, len(tiers))
	for i, t := range tiers {
		out[i] = t.String()
	}
	return out
}

func (s TierSet) String() string {
	return "{" + strings.Join(s.Names(), ", ") + "}"
}
