package recommend

import (
	"context"
	"strings"

	"careermatch/internal/dataset"
	"careermatch/internal/errors"
	"careermatch/internal/skills"
)

// ScoreRequest asks how ready a resume is for a role, or for an explicit
// requirement list when RequiredSkills is set.
type ScoreRequest struct {
	Query          dataset.Query `json:"query"`
	RequiredSkills string        `json:"requiredSkills,omitempty"`
	Resume         *Resume       `json:"resume"`
}

// ScoreResult is the skill gap report for one role.
type ScoreResult struct {
	JobRole   string             `json:"jobRole,omitempty"`
	Required  []string           `json:"required"`
	Detected  []string           `json:"detectedSkills"`
	Detector  string             `json:"detector"`
	Match     skills.MatchResult `json:"match"`
	Companies int                `json:"companies"`
	Warnings  []string           `json:"warnings,omitempty"`
}

// ScoreRole scores a resume against the required skills of a role.
func (e *Engine) ScoreRole(ctx context.Context, snap *dataset.Snapshot, req ScoreRequest) (*ScoreResult, error) {
	if req.Resume == nil {
		return nil, errors.NewMissingInputError(errors.ErrCodeMissingResume, "a resume is required to compute a skill score")
	}

	res := &ScoreResult{JobRole: req.Query.JobRole}

	var required skills.Set
	if strings.TrimSpace(req.RequiredSkills) != "" {
		required = skills.ParseList(req.RequiredSkills)
	} else {
		if snap == nil {
			return nil, errors.NewDataLoadError(errors.ErrCodeDatasetEmpty, "no dataset loaded", nil)
		}
		if strings.TrimSpace(req.Query.JobRole) == "" {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
				"either a job role or a required skill list must be given", nil)
		}
		rows := dataset.Apply(snap.Records, req.Query)
		var roleRows []dataset.CompanyRecord
		for _, r := range rows {
			if r.Scorable() && strings.EqualFold(strings.TrimSpace(r.JobRole), strings.TrimSpace(req.Query.JobRole)) {
				roleRows = append(roleRows, r)
			}
		}
		res.Companies = len(roleRows)
		required = aggregateRequired(roleRows, req.Query.JobRole)
	}

	// Explicit requirements may name skills the vocabulary lacks; they must
	// still be detectable.
	tokens := required
	if snap != nil || e.opts.Vocabulary == skills.SourceCurated {
		tokens = tokens.Union(e.vocabulary(snap).Tokens())
	}
	vocab := skills.Curated(tokens.Sorted())

	detected, name, warning := e.detect(ctx, req.Resume, vocab)
	res.Detector = name
	if warning != "" {
		res.Warnings = append(res.Warnings, warning)
	}
	res.Detected = detected.Sorted()
	res.Required = required.Sorted()
	res.Match = skills.Evaluate(detected, required)
	return res, nil
}
