package recommend

import (
	"careermatch/internal/dataset"
)

// OptionSet lists the choices available at each level of the cascade
// given the selections made so far.
type OptionSet struct {
	Streams     []string `json:"streams"`
	Courses     []string `json:"courses,omitempty"`
	Departments []string `json:"departments,omitempty"`
	JobRoles    []string `json:"jobRoles,omitempty"`
	HasCourse   bool     `json:"hasCourse"`
}

// ListOptions answers the cascading dropdown questions for q. Lower levels
// are only listed once the level above is chosen.
func ListOptions(snap *dataset.Snapshot, q dataset.Query) OptionSet {
	opts := OptionSet{
		Streams:   snap.Streams(),
		HasCourse: snap.HasCourse(),
	}
	if q.Stream == "" {
		return opts
	}
	if opts.HasCourse {
		opts.Courses = snap.Courses(q.Stream)
		if q.Course == "" {
			return opts
		}
	}
	opts.Departments = snap.Departments(q.Stream, q.Course)
	if q.Department == "" {
		return opts
	}
	opts.JobRoles = snap.JobRoles(q.Stream, q.Course, q.Department)
	return opts
}
