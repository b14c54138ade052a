package ai

import (
	"context"
	"fmt"
	"time"

	"careermatch/internal/config"
	"careermatch/internal/errors"
	"careermatch/internal/skills"
)

// UsageRecorder receives one call per model round trip. The observability
// layer implements it; a nil recorder is skipped.
type UsageRecorder interface {
	RecordAIOperation(ctx context.Context, operation string, duration time.Duration, inputTokens, outputTokens int64, err error)
}

// Service handles AI operations for resume processing
type Service struct {
	Provider AIProvider
	config   *config.OperationAIConfig
	logger   *errors.Logger
	recorder UsageRecorder
}

// NewService creates the AI service for the extraction operation
func NewService(ctx context.Context, cfg *config.OperationAIConfig, logger *errors.Logger) (*Service, error) {
	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries,
		"use_system_prompts", *cfg.UseSystemPrompts)

	var provider AIProvider
	switch cfg.Provider {
	case "gemini", "":
		p, err := NewGeminiProvider(ctx, cfg, "extract", logger)
		if err != nil {
			return nil, err
		}
		provider = p
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}

	return NewServiceWithProvider(provider, cfg, logger), nil
}

// NewServiceWithProvider wraps an existing provider.
func NewServiceWithProvider(provider AIProvider, cfg *config.OperationAIConfig, logger *errors.Logger) *Service {
	return &Service{Provider: provider, config: cfg, logger: logger}
}

// WithRecorder attaches a usage recorder and returns s.
func (s *Service) WithRecorder(r UsageRecorder) *Service {
	s.recorder = r
	return s
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// BreakerStats returns breaker snapshots when the provider keeps them.
func (s *Service) BreakerStats() map[string]BreakerStats {
	if p, ok := s.Provider.(interface{ BreakerStats() map[string]BreakerStats }); ok {
		return p.BreakerStats()
	}
	return nil
}

func (s *Service) Close() error {
	return s.Provider.Close()
}

// Name identifies the detector in results and logs.
func (s *Service) Name() string {
	return "ai"
}

// DetectSkills asks the model for the vocabulary skills the resume shows.
// Tokens the model returns outside the vocabulary are discarded.
func (s *Service) DetectSkills(ctx context.Context, text string, vocab skills.Vocabulary) (skills.Set, error) {
	tokens := vocab.Tokens()
	if tokens.Empty() {
		return skills.Set{}, nil
	}

	start := time.Now()
	out, usage, err := s.Provider.ExtractSkills(ctx, ExtractInput{
		ResumeText: text,
		Vocabulary: tokens.Sorted(),
	})
	s.record(ctx, time.Since(start), usage, err)
	if err != nil {
		return nil, err
	}

	found := skills.NewSet(out.Skills...).Intersect(tokens)
	if dropped := len(out.Skills) - found.Len(); dropped > 0 {
		s.logger.Debug("Discarded skills outside the vocabulary", "count", dropped)
	}
	return found, nil
}

func (s *Service) record(ctx context.Context, d time.Duration, usage *TokenUsage, err error) {
	if s.recorder == nil {
		return
	}
	var in, out int64
	if usage != nil {
		in, out = usage.InputTokens, usage.OutputTokens
	}
	s.recorder.RecordAIOperation(ctx, "extract_skills", d, in, out, err)
}
