package common

import (
	"context"
	"strings"

	"careermatch/internal/ai"
	"careermatch/internal/config"
	"careermatch/internal/dataset"
	"careermatch/internal/eligibility"
	"careermatch/internal/errors"
	"careermatch/internal/history"
	"careermatch/internal/recommend"
	"careermatch/internal/resume"
	"careermatch/internal/skills"
)

// Services bundles everything a command or request handler needs. AI and
// History are nil when disabled.
type Services struct {
	Config  *config.Config
	Logger  *errors.Logger
	Dataset *dataset.Store
	Engine  *recommend.Engine
	Resumes *resume.Extractor
	AI      *ai.Service
	History *history.Store
}

// ServiceOptions tweaks NewServices for the calling surface.
type ServiceOptions struct {
	// OpenHistory opens the history store when history.enabled is set.
	OpenHistory bool
	Recorder    ai.UsageRecorder
}

// NewServices loads the dataset and builds the engine from cfg.
func NewServices(ctx context.Context, cfg *config.Config, logger *errors.Logger, opts ServiceOptions) (*Services, error) {
	loaderOpts := cfg.LoaderOptions()
	loaderOpts.Logger = logger
	store, err := dataset.Open(cfg.Dataset.Path, loaderOpts)
	if err != nil {
		return nil, err
	}

	s := &Services{
		Config:  cfg,
		Logger:  logger,
		Dataset: store,
		Resumes: resume.NewExtractor(cfg.App.MaxFileSize, logger),
	}

	engineOpts, err := s.engineOptions(ctx, opts)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.Engine, err = recommend.NewEngine(engineOpts, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	if opts.OpenHistory && cfg.History.Enabled {
		s.History, err = history.Open(ctx, cfg.History.Driver, cfg.History.DSN, logger)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Services) engineOptions(ctx context.Context, opts ServiceOptions) (recommend.Options, error) {
	cfg := s.Config
	matchMode, err := skills.ParseMatchMode(cfg.Skills.MatchMode)
	if err != nil {
		return recommend.Options{}, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid skills.matchMode", err)
	}
	dedup, err := recommend.ParseDedupMode(cfg.Recommend.Dedup)
	if err != nil {
		return recommend.Options{}, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid recommend.dedup", err)
	}

	engineOpts := recommend.Options{
		Mode:        eligibility.Mode(cfg.Eligibility.Mode),
		CGPAPolicy:  cfg.Eligibility.CGPAPolicy,
		MatchPolicy: cfg.Eligibility.MatchPolicy,
		HonestyMode: cfg.Recommend.HonestyMode,
		Dedup:       dedup,
		Vocabulary:  cfg.Skills.Vocabulary,
		MatchMode:   matchMode,
	}

	if cfg.Skills.Vocabulary == skills.SourceCurated && cfg.Skills.CuratedFile != "" {
		vocab, err := skills.LoadCurated(cfg.Skills.CuratedFile)
		if err != nil {
			return recommend.Options{}, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to load curated vocabulary", err)
		}
		engineOpts.Curated = vocab
	}

	if cfg.Skills.Detector == "ai" {
		extractCfg := cfg.GetExtractConfig()
		svc, err := ai.NewService(ctx, &extractCfg, s.Logger)
		if err != nil {
			return recommend.Options{}, err
		}
		if opts.Recorder != nil {
			svc.WithRecorder(opts.Recorder)
		}
		s.AI = svc
		engineOpts.Detector = svc
	}
	return engineOpts, nil
}

// Snapshot returns the live dataset snapshot.
func (s *Services) Snapshot() *dataset.Snapshot {
	return s.Dataset.Current()
}

// ResolveResume turns a file path or inline text into a resume. With
// neither, it returns nil and the engine treats the resume as absent.
func (s *Services) ResolveResume(path, text string) (*recommend.Resume, string, error) {
	if path != "" {
		doc, err := s.Resumes.ExtractFile(path)
		if err != nil {
			return nil, "", err
		}
		return &recommend.Resume{Text: doc.Text, Source: doc.Name}, doc.Warning, nil
	}
	if strings.TrimSpace(text) != "" {
		return &recommend.Resume{Text: strings.ToLower(strings.TrimSpace(text)), Source: "inline"}, "", nil
	}
	return nil, "", nil
}

// Recommend runs the engine and records the run when history is open.
// A failed history write is logged, never returned.
func (s *Services) Recommend(ctx context.Context, req recommend.Request, source string) (*recommend.Result, error) {
	res, err := s.Engine.Recommend(ctx, s.Snapshot(), req)
	if err != nil {
		return nil, err
	}
	if s.History != nil {
		if herr := s.History.Record(ctx, history.FromResult(res, source)); herr != nil {
			s.Logger.LogError(herr, "Failed to record run", "run_id", res.RunID)
		}
	}
	return res, nil
}

func (s *Services) Score(ctx context.Context, req recommend.ScoreRequest) (*recommend.ScoreResult, error) {
	return s.Engine.ScoreRole(ctx, s.Snapshot(), req)
}

func (s *Services) Options(q dataset.Query) recommend.OptionSet {
	return recommend.ListOptions(s.Snapshot(), q)
}

// Close releases the dataset watcher, the AI client and the history store.
func (s *Services) Close() error {
	var firstErr error
	if s.History != nil {
		if err := s.History.Close(); err != nil {
			firstErr = err
		}
	}
	if s.AI != nil {
		if err := s.AI.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.Dataset.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
