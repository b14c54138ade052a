package ai

import (
	"context"

	"google.golang.org/genai"
)

// ExtractInput is what the model sees for one resume.
type ExtractInput struct {
	ResumeText string
	Vocabulary []string
}

// ExtractOutput is the model's answer, already normalised.
type ExtractOutput struct {
	Skills []string `json:"skills"`
}

// AIProvider extracts skills from resume text. Token usage may be nil.
type AIProvider interface {
	ExtractSkills(ctx context.Context, input ExtractInput) (ExtractOutput, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// modelsAPI is the subset of *genai.Models the Gemini provider calls.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}
