// Package dataset loads the company table that recommendations are drawn
// from and answers the cascading stream/course/department/role questions.
package dataset

import (
	"sort"
	"strings"
	"sync"
	"time"

	"careermatch/internal/eligibility"
	"careermatch/internal/skills"
)

// CompanyRecord is one row of the company table.
type CompanyRecord struct {
	Row            int              `json:"row"`
	Stream         string           `json:"stream"`
	Course         string           `json:"course,omitempty"`
	Department     string           `json:"department"`
	JobRole        string           `json:"jobRole"`
	CompanyName    string           `json:"companyName"`
	Level          eligibility.Tier `json:"-"`
	LevelRaw       string           `json:"companyLevel"`
	Location       string           `json:"location,omitempty"`
	RequiredSkill  string           `json:"requiredSkill"`
	RequiredSkills skills.Set       `json:"-"`
}

// Scorable reports whether the row has at least one required skill. Rows
// without one still feed the option lists but never reach the scorer.
func (r CompanyRecord) Scorable() bool {
	return !r.RequiredSkills.Empty()
}

// LoadReport summarizes what the loader kept and dropped.
type LoadReport struct {
	Rows       int    `json:"rows"`
	Skipped    int    `json:"skipped"`
	Unscorable int    `json:"unscorable"`
	Truncated  bool   `json:"truncated"`
	Encoding   string `json:"encoding"`
	HasCourse  bool   `json:"hasCourse"`
	HasSkills  bool   `json:"hasSkills"`
}

// Snapshot is an immutable loaded dataset. It is safe to share between
// goroutines.
type Snapshot struct {
	Path     string
	LoadedAt time.Time
	Records  []CompanyRecord
	Report   LoadReport

	vocabOnce sync.Once
	vocab     skills.Vocabulary
}

// Vocabulary is the dataset-derived skill vocabulary, computed once.
func (s *Snapshot) Vocabulary() skills.Vocabulary {
	s.vocabOnce.Do(func() {
		values := make([]string, 0, len(s.Records))
		for _, r := range s.Records {
			values = append(values, r.RequiredSkill)
		}
		s.vocab = skills.FromRequiredSkills(values)
	})
	return s.vocab
}

// HasCourse reports whether the table carried a course column with values.
func (s *Snapshot) HasCourse() bool {
	return s.Report.HasCourse
}

// Streams lists distinct stream values.
func (s *Snapshot) Streams() []string {
	return distinct(s.Records, func(r CompanyRecord) string { return r.Stream })
}

// Courses lists courses offered under a stream.
func (s *Snapshot) Courses(stream string) []string {
	rows := Apply(s.Records, Query{Stream: stream})
	return distinct(rows, func(r CompanyRecord) string { return r.Course })
}

// Departments lists departments under a stream and course. An empty course
// is not a constraint.
func (s *Snapshot) Departments(stream, course string) []string {
	rows := Apply(s.Records, Query{Stream: stream, Course: course})
	return distinct(rows, func(r CompanyRecord) string { return r.Department })
}

// JobRoles lists roles under a stream, course and department.
func (s *Snapshot) JobRoles(stream, course, department string) []string {
	rows := Apply(s.Records, Query{Stream: stream, Course: course, Department: department})
	return distinct(rows, func(r CompanyRecord) string { return r.JobRole })
}

func distinct(rows []CompanyRecord, field func(CompanyRecord) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range rows {
		v := field(r)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}
