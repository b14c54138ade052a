package ai

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careermatch/internal/skills"
)

type stubProvider struct {
	out   ExtractOutput
	usage *TokenUsage
	err   error
	input ExtractInput
	calls int
}

func (s *stubProvider) ExtractSkills(_ context.Context, in ExtractInput) (ExtractOutput, *TokenUsage, error) {
	s.calls++
	s.input = in
	return s.out, s.usage, s.err
}

func (s *stubProvider) GetModelInfo(context.Context) *ModelInfo {
	return &ModelInfo{Name: "stub", Available: true}
}

func (s *stubProvider) Close() error { return nil }

type recordedCall struct {
	operation string
	in, out   int64
	err       error
}

type captureRecorder struct{ calls []recordedCall }

func (c *captureRecorder) RecordAIOperation(_ context.Context, op string, _ time.Duration, in, out int64, err error) {
	c.calls = append(c.calls, recordedCall{operation: op, in: in, out: out, err: err})
}

func TestServiceDetectSkills(t *testing.T) {
	provider := &stubProvider{
		out:   ExtractOutput{Skills: []string{"python", "kubernetes", "sql"}},
		usage: &TokenUsage{InputTokens: 40, OutputTokens: 6, TotalTokens: 46},
	}
	rec := &captureRecorder{}
	svc := NewServiceWithProvider(provider, testOperationConfig(), testLogger()).WithRecorder(rec)

	vocab := skills.Curated([]string{"Python", "SQL", "Excel"})
	found, err := svc.DetectSkills(context.Background(), "resume text", vocab)
	require.NoError(t, err)

	assert.Equal(t, []string{"python", "sql"}, found.Sorted())
	assert.Equal(t, []string{"excel", "python", "sql"}, provider.input.Vocabulary)
	assert.Equal(t, "ai", svc.Name())

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "extract_skills", rec.calls[0].operation)
	assert.Equal(t, int64(40), rec.calls[0].in)
}

func TestServiceDetectSkillsError(t *testing.T) {
	provider := &stubProvider{err: fmt.Errorf("quota exceeded")}
	rec := &captureRecorder{}
	svc := NewServiceWithProvider(provider, testOperationConfig(), testLogger()).WithRecorder(rec)

	_, err := svc.DetectSkills(context.Background(), "resume", skills.Curated([]string{"go"}))
	require.Error(t, err)
	require.Len(t, rec.calls, 1)
	assert.Error(t, rec.calls[0].err)
}

func TestServiceSkipsEmptyVocabulary(t *testing.T) {
	provider := &stubProvider{}
	svc := NewServiceWithProvider(provider, testOperationConfig(), testLogger())

	found, err := svc.DetectSkills(context.Background(), "resume", skills.Curated(nil))
	require.NoError(t, err)
	assert.True(t, found.Empty())
	assert.Zero(t, provider.calls)
}

func TestServiceBreakerStats(t *testing.T) {
	svc := NewServiceWithProvider(&stubProvider{}, testOperationConfig(), testLogger())
	assert.Nil(t, svc.BreakerStats())

	gemini := newTestProvider(&fakeModels{})
	svc = NewServiceWithProvider(gemini, testOperationConfig(), testLogger())
	stats := svc.BreakerStats()
	require.Contains(t, stats, "generate")
	assert.False(t, stats["generate"].Enabled)
}
