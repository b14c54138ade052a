// Package wizard walks a student through the stream, course, department
// and role selections. Each step needs an explicit confirmation before the
// next one opens, and choices are validated against what the dataset
// offers under the earlier confirmed choices.
package wizard

import (
	"fmt"
	"strings"

	"careermatch/internal/dataset"
	"careermatch/internal/errors"
)

type State int

const (
	SelectingStream State = iota
	SelectingCourse
	SelectingDepartment
	SelectingRole
	Ready
)

func (s State) String() string {
	switch s {
	case SelectingStream:
		return "stream"
	case SelectingCourse:
		return "course"
	case SelectingDepartment:
		return "department"
	case SelectingRole:
		return "job role"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// OptionSource answers the cascading option questions. *dataset.Snapshot
// implements it.
type OptionSource interface {
	Streams() []string
	Courses(stream string) []string
	Departments(stream, course string) []string
	JobRoles(stream, course, department string) []string
	HasCourse() bool
}

var _ OptionSource = (*dataset.Snapshot)(nil)

type Wizard struct {
	src     OptionSource
	state   State
	query   dataset.Query
	pending string
}

func New(src OptionSource) *Wizard {
	return &Wizard{src: src}
}

func (w *Wizard) State() State { return w.state }

// Query returns the confirmed selections so far.
func (w *Wizard) Query() dataset.Query { return w.query }

func (w *Wizard) Done() bool { return w.state == Ready }

// Pending returns the unconfirmed choice for the current step.
func (w *Wizard) Pending() (string, bool) {
	return w.pending, w.pending != ""
}

// Options lists the valid choices for the current step.
func (w *Wizard) Options() []string {
	q := w.query
	switch w.state {
	case SelectingStream:
		return w.src.Streams()
	case SelectingCourse:
		return w.src.Courses(q.Stream)
	case SelectingDepartment:
		return w.src.Departments(q.Stream, q.Course)
	case SelectingRole:
		return w.src.JobRoles(q.Stream, q.Course, q.Department)
	default:
		return nil
	}
}

// Choose records a pending value for the current step. The value must be
// one of Options, compared case-insensitively; the dataset's spelling is
// kept.
func (w *Wizard) Choose(value string) error {
	if w.state == Ready {
		return errors.NewValidationError(errors.ErrCodeInvalidSelection, "all selections are already confirmed", nil)
	}
	value = strings.TrimSpace(value)
	for _, opt := range w.Options() {
		if strings.EqualFold(opt, value) {
			w.pending = opt
			return nil
		}
	}
	return errors.NewValidationError(errors.ErrCodeInvalidSelection,
		fmt.Sprintf("%q is not an available %s", value, w.state), nil).
		WithContext("step", w.state.String())
}

// Confirm commits the pending value and opens the next step.
func (w *Wizard) Confirm() error {
	if w.state == Ready {
		return nil
	}
	if w.pending == "" {
		return errors.NewMissingInputError(errors.ErrCodeInvalidSelection,
			fmt.Sprintf("choose a %s before confirming", w.state))
	}

	switch w.state {
	case SelectingStream:
		w.query.Stream = w.pending
		w.state = SelectingDepartment
		if w.src.HasCourse() && len(w.src.Courses(w.query.Stream)) > 0 {
			w.state = SelectingCourse
		}
	case SelectingCourse:
		w.query.Course = w.pending
		w.state = SelectingDepartment
	case SelectingDepartment:
		w.query.Department = w.pending
		w.state = SelectingRole
	case SelectingRole:
		w.query.JobRole = w.pending
		w.state = Ready
	}
	w.pending = ""
	return nil
}

// Back reopens the previous step and clears it and every later choice.
func (w *Wizard) Back() {
	w.pending = ""
	switch w.state {
	case SelectingStream:
		return
	case SelectingCourse:
		w.state = SelectingStream
	case SelectingDepartment:
		if w.query.Course != "" {
			w.state = SelectingCourse
		} else {
			w.state = SelectingStream
		}
	case SelectingRole:
		w.state = SelectingDepartment
	case Ready:
		w.state = SelectingRole
	}
	w.clearFrom(w.state)
}

// Reset returns to the first step with nothing selected.
func (w *Wizard) Reset() {
	w.state = SelectingStream
	w.query = dataset.Query{}
	w.pending = ""
}

func (w *Wizard) clearFrom(s State) {
	if s <= SelectingRole {
		w.query.JobRole = ""
	}
	if s <= SelectingDepartment {
		w.query.Department = ""
	}
	if s <= SelectingCourse {
		w.query.Course = ""
	}
	if s <= SelectingStream {
		w.query.Stream = ""
	}
}
