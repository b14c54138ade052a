package recommend

import (
	"fmt"
	"sort"
	"strings"

	"careermatch/internal/dataset"
	"careermatch/internal/skills"
)

// Status distinguishes a populated result from a valid empty one.
type Status string

const (
	StatusOK        Status = "ok"
	StatusNoResults Status = "no_results"
)

// DedupMode controls duplicate suppression within each result group.
type DedupMode string

const (
	DedupNone DedupMode = "none"
	// DedupExact drops rows with the same company, role, level and location.
	DedupExact DedupMode = "exact"
	// DedupCompany keeps only the best-ranked row per company.
	DedupCompany DedupMode = "company"
)

func ParseDedupMode(s string) (DedupMode, error) {
	switch DedupMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", DedupExact:
		return DedupExact, nil
	case DedupNone:
		return DedupNone, nil
	case DedupCompany:
		return DedupCompany, nil
	default:
		return "", fmt.Errorf("unknown dedup mode %q", s)
	}
}

// ScoredRow is an eligible company row with its readiness against the
// student's skills.
type ScoredRow struct {
	Company dataset.CompanyRecord `json:"company"`
	Match   skills.MatchResult    `json:"match"`
}

// AssembleOptions configures Assemble.
type AssembleOptions struct {
	// ExcludeZeroMatch drops rows whose match percent is exactly 0.
	ExcludeZeroMatch bool
	Dedup            DedupMode
}

// Assembly is the partitioned, ranked output.
type Assembly struct {
	Status       Status      `json:"status"`
	BestMatch    []ScoredRow `json:"bestMatch"`
	Alternate    []ScoredRow `json:"alternate"`
	ZeroExcluded int         `json:"zeroMatchExcluded"`
	Duplicates   int         `json:"duplicatesRemoved"`
}

// Assemble splits rows into the selected role's matches and alternates,
// each ordered High, Mid, Low, Startup with ties in input order.
func Assemble(rows []ScoredRow, role string, opts AssembleOptions) Assembly {
	var out Assembly
	best := make([]ScoredRow, 0)
	alt := make([]ScoredRow, 0)

	role = strings.TrimSpace(role)
	for _, r := range rows {
		if opts.ExcludeZeroMatch && r.Match.Percent == 0 {
			out.ZeroExcluded++
			continue
		}
		if role != "" && strings.EqualFold(strings.TrimSpace(r.Company.JobRole), role) {
			best = append(best, r)
		} else {
			alt = append(alt, r)
		}
	}

	sortByTier(best)
	sortByTier(alt)

	var dropped int
	best, dropped = dedup(best, opts.Dedup)
	out.Duplicates += dropped
	alt, dropped = dedup(alt, opts.Dedup)
	out.Duplicates += dropped

	out.BestMatch = best
	out.Alternate = alt
	out.Status = StatusOK
	if len(best) == 0 && len(alt) == 0 {
		out.Status = StatusNoResults
	}
	return out
}

func sortByTier(rows []ScoredRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Company.Level.Rank() < rows[j].Company.Level.Rank()
	})
}

func dedup(rows []ScoredRow, mode DedupMode) ([]ScoredRow, int) {
	if mode == DedupNone || mode == "" {
		return rows, 0
	}
	seen := make(map[string]struct{}, len(rows))
	kept := rows[:0]
	for _, r := range rows {
		key := dedupKey(r.Company, mode)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, r)
	}
	return kept, len(rows) - len(kept)
}

func dedupKey(c dataset.CompanyRecord, mode DedupMode) string {
	name := strings.ToLower(strings.TrimSpace(c.CompanyName))
	if mode == DedupCompany {
		return name
	}
	return strings.Join([]string{
		name,
		strings.ToLower(c.JobRole),
		c.Level.String(),
		strings.ToLower(c.Location),
	}, "\x00")
}
