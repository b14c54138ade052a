package dataset

import (
	"strings"

	"careermatch/internal/errors"
)

// Query is the student's academic selection. Empty fields do not constrain.
type Query struct {
	Stream     string `json:"stream"`
	Course     string `json:"course,omitempty"`
	Department string `json:"department"`
	JobRole    string `json:"jobRole,omitempty"`
}

// Filter is one equality step of the cascade.
type Filter interface {
	Name() string
	IsEnabled() bool
	Apply(rows []CompanyRecord) ([]CompanyRecord, Step)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Name    string `json:"name"`
	Initial int    `json:"initial"`
	Dropped int    `json:"dropped"`
	Left    int    `json:"left"`
}

type fieldFilter struct {
	name  string
	want  string
	field func(CompanyRecord) string
}

func (f *fieldFilter) Name() string    { return f.name }
func (f *fieldFilter) IsEnabled() bool { return strings.TrimSpace(f.want) != "" }

func (f *fieldFilter) Apply(rows []CompanyRecord) ([]CompanyRecord, Step) {
	want := strings.TrimSpace(f.want)
	kept := make([]CompanyRecord, 0, len(rows))
	for _, r := range rows {
		if strings.EqualFold(f.field(r), want) {
			kept = append(kept, r)
		}
	}
	return kept, Step{Name: f.name, Initial: len(rows), Dropped: len(rows) - len(kept), Left: len(kept)}
}

// Steps builds the stream → course → department cascade for a query. The
// job role is not a filter; it only splits best matches from alternates.
func Steps(q Query) []Filter {
	return []Filter{
		&fieldFilter{name: "stream", want: q.Stream, field: func(r CompanyRecord) string { return r.Stream }},
		&fieldFilter{name: "course", want: q.Course, field: func(r CompanyRecord) string { return r.Course }},
		&fieldFilter{name: "department", want: q.Department, field: func(r CompanyRecord) string { return r.Department }},
	}
}

// Run executes the supplied filters sequentially. Disabled steps are
// skipped and not reported.
func Run(logger *errors.Logger, steps []Filter, rows []CompanyRecord) ([]CompanyRecord, []Step) {
	var report []Step
	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		next, info := step.Apply(rows)
		if logger != nil {
			logger.Debug("filter step",
				"name", step.Name(),
				"initial", info.Initial,
				"dropped", info.Dropped,
				"left", info.Left,
			)
		}
		report = append(report, info)
		rows = next
	}
	return rows, report
}

// Apply runs the cascade for q without logging.
func Apply(rows []CompanyRecord, q Query) []CompanyRecord {
	out, _ := Run(nil, Steps(q), rows)
	return out
}
