package ai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"careermatch/internal/config"
	"careermatch/internal/errors"
)

type fakeModels struct {
	responses []fakeResponse
	calls     int
	lastCfg   *genai.GenerateContentConfig
	lastText  string
	model     *genai.Model
	modelErr  error
}

type fakeResponse struct {
	text  string
	err   error
	usage *genai.GenerateContentResponseUsageMetadata
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.lastCfg = cfg
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.lastText = contents[0].Parts[0].Text
	}
	r := f.responses[min(f.calls, len(f.responses)-1)]
	f.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: r.text}}, Role: genai.RoleModel},
		}},
		UsageMetadata: r.usage,
	}, nil
}

func (f *fakeModels) Get(context.Context, string, *genai.GetModelConfig) (*genai.Model, error) {
	return f.model, f.modelErr
}

func testOperationConfig() *config.OperationAIConfig {
	timeout := 5 * time.Second
	retries := 2
	temp := float32(0.1)
	useSystem := true
	return &config.OperationAIConfig{
		Provider:         "gemini",
		Model:            "gemini-2.0-flash",
		Timeout:          &timeout,
		MaxRetries:       &retries,
		Temperature:      &temp,
		UseSystemPrompts: &useSystem,
	}
}

func testLogger() *errors.Logger {
	return errors.NewLoggerTo(io.Discard, slog.LevelDebug)
}

func newTestProvider(models modelsAPI) *GeminiProvider {
	p := newGeminiProvider(models, testOperationConfig(), "extract", testLogger())
	p.retryBase = time.Millisecond
	return p
}

func TestExtractSkills(t *testing.T) {
	models := &fakeModels{responses: []fakeResponse{{
		text:  `{"skills": ["Python", "sql", "python", " "]}`,
		usage: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 120, CandidatesTokenCount: 8, TotalTokenCount: 128},
	}}}
	p := newTestProvider(models)

	out, usage, err := p.ExtractSkills(context.Background(), ExtractInput{
		ResumeText: "Built ETL pipelines in Python and SQL",
		Vocabulary: []string{"python", "sql", "excel"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"python", "sql"}, out.Skills)
	require.NotNil(t, usage)
	assert.Equal(t, int64(128), usage.TotalTokens)

	assert.Equal(t, 1, models.calls)
	assert.Equal(t, "application/json", models.lastCfg.ResponseMIMEType)
	require.NotNil(t, models.lastCfg.SystemInstruction)
	assert.Contains(t, models.lastText, "excel")
	assert.Contains(t, models.lastText, "Built ETL pipelines")
}

func TestExtractSkillsRetries(t *testing.T) {
	tests := []struct {
		name      string
		responses []fakeResponse
		wantCalls int
		wantErr   bool
	}{
		{
			name: "transient 503 then success",
			responses: []fakeResponse{
				{err: &googleapi.Error{Code: http.StatusServiceUnavailable}},
				{text: `{"skills": ["go"]}`},
			},
			wantCalls: 2,
		},
		{
			name: "rate limited until retries run out",
			responses: []fakeResponse{
				{err: &googleapi.Error{Code: http.StatusTooManyRequests}},
			},
			wantCalls: 3,
			wantErr:   true,
		},
		{
			name: "bad request is not retried",
			responses: []fakeResponse{
				{err: &googleapi.Error{Code: http.StatusBadRequest}},
			},
			wantCalls: 1,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models := &fakeModels{responses: tt.responses}
			p := newTestProvider(models)

			_, _, err := p.ExtractSkills(context.Background(), ExtractInput{ResumeText: "go", Vocabulary: []string{"go"}})
			assert.Equal(t, tt.wantCalls, models.calls)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrorTypeAI))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestParseSkills(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr string
	}{
		{name: "plain", raw: `{"skills":["Excel","Tableau"]}`, want: []string{"excel", "tableau"}},
		{name: "fenced", raw: "```json\n{\"skills\": [\"C++\"]}\n```", want: []string{"c++"}},
		{name: "empty list", raw: `{"skills": []}`, want: nil},
		{name: "not json", raw: "I found python", wantErr: "not valid JSON"},
		{name: "missing field", raw: `{"found": ["python"]}`, wantErr: "no 'skills' field"},
		{name: "wrong type", raw: `{"skills": "python"}`, wantErr: "not an array"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSkills(tt.raw)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(fmt.Errorf("plain")))
	assert.True(t, isRetryableError(fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusBadGateway})))
	assert.True(t, isRetryableError(genai.APIError{Code: http.StatusInternalServerError}))
	assert.False(t, isRetryableError(genai.APIError{Code: http.StatusForbidden}))
}

func TestBackoffIsCapped(t *testing.T) {
	p := newTestProvider(&fakeModels{})
	p.retryBase = time.Second

	assert.GreaterOrEqual(t, p.backoff(1), time.Second)
	assert.Less(t, p.backoff(1), 1100*time.Millisecond)
	assert.Equal(t, 30*time.Second, p.backoff(10))
}

func TestGetModelInfo(t *testing.T) {
	p := newTestProvider(&fakeModels{model: &genai.Model{DisplayName: "Gemini Flash", Version: "001"}})
	info := p.GetModelInfo(context.Background())
	assert.True(t, info.Available)
	assert.Equal(t, "Gemini Flash", info.DisplayName)

	p = newTestProvider(&fakeModels{modelErr: fmt.Errorf("not found")})
	info = p.GetModelInfo(context.Background())
	assert.False(t, info.Available)
	assert.Contains(t, info.Error, "not found")
}
