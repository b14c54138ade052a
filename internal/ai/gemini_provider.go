package ai

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"careermatch/internal/config"
	cmerrors "careermatch/internal/errors"
	"careermatch/internal/skills"
)

const modelCheckTimeout = 10 * time.Second

// GeminiProvider implements AIProvider for Google Gemini
type GeminiProvider struct {
	models         modelsAPI
	config         *config.OperationAIConfig
	circuitBreaker *Breaker[*genai.GenerateContentResponse]
	modelBreaker   *Breaker[*genai.Model]
	logger         *cmerrors.Logger
	retryBase      time.Duration
}

var _ AIProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a provider for one operation. cfg must have
// been resolved through config.GetExtractConfig so its pointers are set.
func NewGeminiProvider(ctx context.Context, cfg *config.OperationAIConfig, operation string, logger *cmerrors.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, cmerrors.NewAIError(cmerrors.ErrCodeAIServiceFailed, "Failed to create Gemini client", err)
	}
	return newGeminiProvider(client.Models, cfg, operation, logger), nil
}

func newGeminiProvider(models modelsAPI, cfg *config.OperationAIConfig, operation string, logger *cmerrors.Logger) *GeminiProvider {
	return &GeminiProvider{
		models:         models,
		config:         cfg,
		circuitBreaker: NewGenerateBreaker(operation, cfg, logger),
		modelBreaker:   NewModelBreaker(operation, cfg, logger),
		logger:         logger,
		retryBase:      time.Second,
	}
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo checks that the configured model is reachable
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Name: g.config.Model}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed", "model", g.config.Model, "error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version
	return info
}

// executeWithRetry retries fn with exponential backoff and jitter while
// the error is retryable
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	maxRetries := *g.config.MaxRetries
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(g.backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry", "operation", operation, "attempts", attempt+1)
			}
			return result, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts", "operation", operation, "error", err.Error())
			break
		}
	}

	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, maxRetries, lastErr)
}

// backoff doubles from retryBase, adds up to 10% jitter and caps at 30s
func (g *GeminiProvider) backoff(attempt int) time.Duration {
	base := time.Duration(math.Pow(2, float64(attempt-1))) * g.retryBase
	var jitter time.Duration
	if limit := int64(float64(base) * 0.1); limit > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(limit)); err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return min(base+jitter, 30*time.Second)
}

// isRetryableError reports network failures and transient HTTP statuses
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}
	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return genaiErr.Code == http.StatusTooManyRequests || genaiErr.Code >= 500
	}
	return false
}

// ExtractSkills asks the model which vocabulary skills the resume shows
func (g *GeminiProvider) ExtractSkills(ctx context.Context, input ExtractInput) (ExtractOutput, *TokenUsage, error) {
	tracer := otel.Tracer("careermatch.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini.extract_skills")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Int("input.resume_length", len(input.ResumeText)),
		attribute.Int("input.vocabulary_size", len(input.Vocabulary)),
	)

	genaiConfig := g.buildExtractSchema()
	if g.config.UseSystemPrompts == nil || *g.config.UseSystemPrompts {
		genaiConfig.SystemInstruction = genai.NewContentFromText(
			resolvePrompt(g.config.SystemPrompt, DefaultExtractSystemPrompt), genai.RoleUser)
	}
	userPrompt := buildExtractPrompt(input)

	if g.config.Timeout != nil && *g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *g.config.Timeout)
		defer cancel()
	}

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, "extract_skills", func() (*genai.GenerateContentResponse, error) {
			return g.models.GenerateContent(ctx, g.config.Model, genai.Text(userPrompt), genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return ExtractOutput{}, nil, cmerrors.NewAIError(cmerrors.ErrCodeAIServiceFailed, "Failed to extract skills", err)
	}

	found, err := parseSkills(result.Text())
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return ExtractOutput{}, nil, cmerrors.NewAIError("AI_RESPONSE_PARSE_FAILED", "Failed to parse skill extraction response", err)
	}

	usage := extractTokenUsage(result)
	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Bool("success", true), attribute.Int("output.skills", len(found)))
	return ExtractOutput{Skills: found}, usage, nil
}

// parseSkills reads the "skills" array out of the model's JSON. Models
// sometimes wrap JSON in a markdown fence; that is stripped first.
func parseSkills(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("response is not valid JSON")
	}
	list := gjson.Get(raw, "skills")
	if !list.Exists() {
		return nil, fmt.Errorf("response has no 'skills' field")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("'skills' is %s, not an array", list.Type)
	}

	seen := skills.Set{}
	var out []string
	for _, item := range list.Array() {
		token := skills.Normalize(item.String())
		if token == "" || seen.Has(token) {
			continue
		}
		seen.Add(token)
		out = append(out, token)
	}
	return out, nil
}

func (g *GeminiProvider) buildExtractSchema() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"skills": {
					Type:        genai.TypeArray,
					Items:       &genai.Schema{Type: genai.TypeString},
					Description: "Vocabulary skills evidenced by the resume",
				},
			},
			Required: []string{"skills"},
		},
	}
	if g.config.Temperature != nil {
		cfg.Temperature = g.config.Temperature
	}
	return cfg
}

// BreakerStats reports both breakers for /stats.
func (g *GeminiProvider) BreakerStats() map[string]BreakerStats {
	return map[string]BreakerStats{
		"generate": g.circuitBreaker.Stats(),
		"model":    g.modelBreaker.Stats(),
	}
}

// Close implements AIProvider. The genai client holds no resources for
// unary calls.
func (g *GeminiProvider) Close() error {
	return nil
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}
	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
