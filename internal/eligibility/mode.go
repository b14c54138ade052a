package eligibility

import (
	"fmt"
	"strings"
)

// Mode selects how the CGPA and match policies are combined.
type Mode string

const (
	ModeCGPA      Mode = "cgpa"
	ModeMatch     Mode = "match"
	ModeIntersect Mode = "intersect"
	ModeUnion     Mode = "union"
	// ModePerRow buckets each row by its own match percent and keeps the
	// row only when its own level falls inside that bucket.
	ModePerRow Mode = "per-row"
)

var modes = []Mode{ModeCGPA, ModeMatch, ModeIntersect, ModeUnion, ModePerRow}

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m == "perrow" || m == "per_row" {
		m = ModePerRow
	}
	for _, known := range modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown eligibility mode %q", s)
}

// ModeNames lists the supported combination modes.
func ModeNames() []string {
	out := make([]string, len(modes))
	for i, m := range modes {
		out[i] = string(m)
	}
	return out
}

// NeedsResume reports whether the mode consults a match percent.
func (m Mode) NeedsResume() bool {
	return m != ModeCGPA
}

// NeedsCGPA reports whether the mode cannot work without a CGPA.
func (m Mode) NeedsCGPA() bool {
	return m == ModeCGPA || m == ModeIntersect || m == ModeUnion
}

// Input carries what the bucketer may consult for one request.
type Input struct {
	CGPA      float64
	HasCGPA   bool
	Aggregate int
}

// Decision is the outcome for one request.
type Decision struct {
	Mode    Mode    `json:"mode"`
	Allowed TierSet `json:"-"`
	// PerRow means Allowed is only a ceiling; each row is also checked
	// against its own match percent.
	PerRow bool `json:"perRow"`
}

// AllowsRow reports whether a row with the given level and match percent
// survives this decision.
func (d Decision) AllowsRow(level Tier, pct int, match MatchPolicy) bool {
	if !d.Allowed.Contains(level) {
		return false
	}
	if d.PerRow {
		return match(pct).Contains(level)
	}
	return true
}

// Bucketer applies a named CGPA policy and match policy under a mode.
type Bucketer struct {
	mode      Mode
	cgpaName  string
	matchName string
	cgpa      CGPAPolicy
	match     MatchPolicy
}

func NewBucketer(mode Mode, cgpaPolicy, matchPolicy string) (*Bucketer, error) {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}
	cp, err := LookupCGPAPolicy(cgpaPolicy)
	if err != nil {
		return nil, err
	}
	mp, err := LookupMatchPolicy(matchPolicy)
	if err != nil {
		return nil, err
	}
	return &Bucketer{
		mode:      mode,
		cgpaName:  strings.ToLower(cgpaPolicy),
		matchName: strings.ToLower(matchPolicy),
		cgpa:      cp,
		match:     mp,
	}, nil
}

func (b *Bucketer) Mode() Mode               { return b.mode }
func (b *Bucketer) CGPAPolicyName() string   { return b.cgpaName }
func (b *Bucketer) MatchPolicyName() string  { return b.matchName }
func (b *Bucketer) MatchPolicy() MatchPolicy { return b.match }
func (b *Bucketer) CGPAPolicy() CGPAPolicy   { return b.cgpa }

// Decide computes the allowed tiers for a request. Callers validate that
// required inputs are present before calling; absent inputs are treated as
// "no constraint" here.
func (b *Bucketer) Decide(in Input) Decision {
	all := NewTierSet(AllTiers...)
	cgpaSet := all
	if in.HasCGPA {
		cgpaSet = b.cgpa(in.CGPA)
	}

	switch b.mode {
	case ModeCGPA:
		return Decision{Mode: b.mode, Allowed: cgpaSet}
	case ModeMatch:
		return Decision{Mode: b.mode, Allowed: b.match(in.Aggregate)}
	case ModeUnion:
		return Decision{Mode: b.mode, Allowed: cgpaSet.Union(b.match(in.Aggregate))}
	case ModePerRow:
		return Decision{Mode: b.mode, Allowed: cgpaSet, PerRow: true}
	default:
		return Decision{Mode: ModeIntersect, Allowed: cgpaSet.Intersect(b.match(in.Aggregate))}
	}
}

// AllowsRow is Decision.AllowsRow using this bucketer's match policy.
func (b *Bucketer) AllowsRow(d Decision, level Tier, pct int) bool {
	return d.AllowsRow(level, pct, b.match)
}
