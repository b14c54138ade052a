// Package recommend runs the end-to-end pipeline: filter the company table,
// detect the student's skills, score every row, bucket eligibility and
// assemble ranked results.
package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"careermatch/internal/dataset"
	"careermatch/internal/eligibility"
	"careermatch/internal/errors"
	"careermatch/internal/skills"
)

// SkillDetector finds vocabulary skills in resume text.
type SkillDetector interface {
	Name() string
	DetectSkills(ctx context.Context, text string, vocab skills.Vocabulary) (skills.Set, error)
}

// SubstringDetector adapts skills.Detector to SkillDetector.
type SubstringDetector struct {
	*skills.Detector
}

func NewSubstringDetector(mode skills.MatchMode) SubstringDetector {
	return SubstringDetector{Detector: skills.NewDetector(mode)}
}

func (d SubstringDetector) Name() string {
	return string(d.Mode())
}

func (d SubstringDetector) DetectSkills(_ context.Context, text string, vocab skills.Vocabulary) (skills.Set, error) {
	return d.Detect(text, vocab), nil
}

// Options configures an Engine.
type Options struct {
	Mode        eligibility.Mode
	CGPAPolicy  string
	MatchPolicy string

	// HonestyMode hides companies the student scored 0% against. It only
	// applies when a resume was supplied.
	HonestyMode bool
	Dedup       DedupMode

	// Vocabulary is "dataset" or "curated". Curated must be set for the
	// latter.
	Vocabulary string
	Curated    skills.Vocabulary

	MatchMode skills.MatchMode
	Detector  SkillDetector
}

// Engine is safe for concurrent use; it holds no per-request state.
type Engine struct {
	opts     Options
	bucketer *eligibility.Bucketer
	detector SkillDetector
	fallback SubstringDetector
	logger   *errors.Logger
}

func NewEngine(opts Options, logger *errors.Logger) (*Engine, error) {
	if opts.Mode == "" {
		opts.Mode = eligibility.ModeIntersect
	}
	if opts.CGPAPolicy == "" {
		opts.CGPAPolicy = "standard"
	}
	if opts.MatchPolicy == "" {
		opts.MatchPolicy = "banded"
	}
	if opts.Dedup == "" {
		opts.Dedup = DedupExact
	}
	if opts.Vocabulary == "" {
		opts.Vocabulary = skills.SourceDataset
	}

	bucketer, err := eligibility.NewBucketer(opts.Mode, opts.CGPAPolicy, opts.MatchPolicy)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid eligibility configuration", err)
	}
	switch opts.Vocabulary {
	case skills.SourceDataset:
	case skills.SourceCurated:
		if opts.Curated == nil {
			opts.Curated = skills.Curated(skills.DefaultCuratedTokens)
		}
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unknown vocabulary source %q", opts.Vocabulary), nil)
	}

	fallback := NewSubstringDetector(opts.MatchMode)
	detector := opts.Detector
	if detector == nil {
		detector = fallback
	}

	return &Engine{
		opts:     opts,
		bucketer: bucketer,
		detector: detector,
		fallback: fallback,
		logger:   logger,
	}, nil
}

func (e *Engine) Options() Options {
	return e.opts
}

// DetectorName names the configured skill detector.
func (e *Engine) DetectorName() string {
	return e.detector.Name()
}

// Detect reports the vocabulary skills found in resume, along with the
// detector that produced them and an optional warning.
func (e *Engine) Detect(ctx context.Context, snap *dataset.Snapshot, resume *Resume) (skills.Set, string, string) {
	return e.detect(ctx, resume, e.vocabulary(snap))
}

// Resume is resume text as supplied by the caller. A non-nil Resume with
// empty Text means a resume was given but yielded nothing readable.
type Resume struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// Request is one recommendation query.
type Request struct {
	Query  dataset.Query `json:"query"`
	CGPA   *float64      `json:"cgpa,omitempty"`
	Resume *Resume       `json:"resume,omitempty"`
}

// Stats reports how many rows each stage kept.
type Stats struct {
	Steps        []dataset.Step `json:"steps"`
	Filtered     int            `json:"filtered"`
	Unscorable   int            `json:"unscorable"`
	Eligible     int            `json:"eligible"`
	ZeroExcluded int            `json:"zeroMatchExcluded"`
	Duplicates   int            `json:"duplicatesRemoved"`
}

// Result is the outcome of Recommend.
type Result struct {
	RunID        string             `json:"runId"`
	Status       Status             `json:"status"`
	Query        dataset.Query      `json:"query"`
	CGPA         *float64           `json:"cgpa,omitempty"`
	Mode         eligibility.Mode   `json:"mode"`
	CGPAPolicy   string             `json:"cgpaPolicy"`
	MatchPolicy  string             `json:"matchPolicy"`
	AllowedTiers []string           `json:"allowedTiers"`
	Vocabulary   string             `json:"vocabulary"`
	Detector     string             `json:"detector"`
	Detected     []string           `json:"detectedSkills"`
	Aggregate    skills.MatchResult `json:"aggregate"`
	BestMatch    []ScoredRow        `json:"bestMatch"`
	Alternate    []ScoredRow        `json:"alternate"`
	Stats        Stats              `json:"stats"`
	Warnings     []string           `json:"warnings,omitempty"`
}

// Recommend runs the full pipeline over snap.
func (e *Engine) Recommend(ctx context.Context, snap *dataset.Snapshot, req Request) (*Result, error) {
	if snap == nil {
		return nil, errors.NewDataLoadError(errors.ErrCodeDatasetEmpty, "no dataset loaded", nil)
	}
	if err := e.validate(req); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:       uuid.New().String(),
		Query:       req.Query,
		CGPA:        req.CGPA,
		Mode:        e.bucketer.Mode(),
		CGPAPolicy:  e.bucketer.CGPAPolicyName(),
		MatchPolicy: e.bucketer.MatchPolicyName(),
		Vocabulary:  e.opts.Vocabulary,
	}

	rows, steps := dataset.Run(e.logger, dataset.Steps(req.Query), snap.Records)
	res.Stats.Steps = steps
	res.Stats.Filtered = len(rows)

	scorable := make([]dataset.CompanyRecord, 0, len(rows))
	for _, r := range rows {
		if r.Scorable() {
			scorable = append(scorable, r)
		} else {
			res.Stats.Unscorable++
		}
	}

	detected, detectorName, warning := e.detect(ctx, req.Resume, e.vocabulary(snap))
	res.Detector = detectorName
	res.Detected = detected.Sorted()
	if warning != "" {
		res.Warnings = append(res.Warnings, warning)
	}

	res.Aggregate = skills.Evaluate(detected, aggregateRequired(scorable, req.Query.JobRole))

	in := eligibility.Input{Aggregate: res.Aggregate.Percent}
	if req.CGPA != nil {
		in.CGPA, in.HasCGPA = *req.CGPA, true
	}
	decision := e.bucketer.Decide(in)
	res.AllowedTiers = decision.Allowed.Names()

	eligible := make([]ScoredRow, 0, len(scorable))
	for _, r := range scorable {
		match := skills.Evaluate(detected, r.RequiredSkills)
		if !e.bucketer.AllowsRow(decision, r.Level, match.Percent) {
			continue
		}
		eligible = append(eligible, ScoredRow{Company: r, Match: match})
	}
	res.Stats.Eligible = len(eligible)

	asm := Assemble(eligible, req.Query.JobRole, AssembleOptions{
		ExcludeZeroMatch: e.opts.HonestyMode && req.Resume != nil,
		Dedup:            e.opts.Dedup,
	})
	res.Status = asm.Status
	res.BestMatch = asm.BestMatch
	res.Alternate = asm.Alternate
	res.Stats.ZeroExcluded = asm.ZeroExcluded
	res.Stats.Duplicates = asm.Duplicates

	if e.logger != nil {
		e.logger.Debug("Recommendation assembled",
			"run_id", res.RunID,
			"status", res.Status,
			"mode", res.Mode,
			"aggregate", res.Aggregate.Percent,
			"allowed_tiers", res.AllowedTiers,
			"best_match", len(res.BestMatch),
			"alternate", len(res.Alternate))
	}
	return res, nil
}

func (e *Engine) validate(req Request) error {
	mode := e.bucketer.Mode()
	if mode.NeedsResume() && req.Resume == nil {
		return errors.NewMissingInputError(errors.ErrCodeMissingResume,
			fmt.Sprintf("a resume is required in %s eligibility mode", mode))
	}
	if mode.NeedsCGPA() && req.CGPA == nil {
		return errors.NewMissingInputError(errors.ErrCodeMissingCGPA,
			fmt.Sprintf("a CGPA is required in %s eligibility mode", mode))
	}
	if req.CGPA != nil && (*req.CGPA < 0 || *req.CGPA > 10) {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "CGPA must be between 0 and 10", nil).
			WithContext("cgpa", *req.CGPA)
	}
	return nil
}

func (e *Engine) vocabulary(snap *dataset.Snapshot) skills.Vocabulary {
	if e.opts.Vocabulary == skills.SourceCurated {
		return e.opts.Curated
	}
	return snap.Vocabulary()
}

// detect runs the configured detector and falls back to substring matching
// if it fails. The result is clamped to the vocabulary.
func (e *Engine) detect(ctx context.Context, resume *Resume, vocab skills.Vocabulary) (skills.Set, string, string) {
	if resume == nil {
		return skills.Set{}, e.detector.Name(), ""
	}
	var warning string
	if strings.TrimSpace(resume.Text) == "" {
		warning = "resume contained no readable text"
	}

	found, err := e.detector.DetectSkills(ctx, resume.Text, vocab)
	name := e.detector.Name()
	if err != nil {
		if e.logger != nil {
			e.logger.LogError(err, "Skill detection failed, falling back to substring matching", "detector", name)
		}
		found, _ = e.fallback.DetectSkills(ctx, resume.Text, vocab)
		name = e.fallback.Name()
		warning = "skill detector unavailable, used keyword matching"
	}
	return found.Intersect(vocab.Tokens()), name, warning
}

// aggregateRequired is the union of required skills for the selected role,
// or for every row when no role is selected or the role has no rows.
func aggregateRequired(rows []dataset.CompanyRecord, role string) skills.Set {
	role = strings.TrimSpace(role)
	union := skills.Set{}
	if role != "" {
		for _, r := range rows {
			if strings.EqualFold(strings.TrimSpace(r.JobRole), role) {
				union = union.Union(r.RequiredSkills)
			}
		}
		if !union.Empty() {
			return union
		}
	}
	for _, r := range rows {
		union = union.Union(r.RequiredSkills)
	}
	return union
}
