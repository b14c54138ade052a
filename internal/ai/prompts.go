package ai

import (
	"fmt"
	"strings"
)

// DefaultExtractSystemPrompt is used when ai.extract.systemPrompt is unset.
const DefaultExtractSystemPrompt = `You are a careful technical recruiter reading a student's resume.

Rules:
- Report only skills that the resume text actually shows: listed skills, tools used in projects, coursework, certifications.
- Only report skills from the provided vocabulary, spelled exactly as they appear there.
- Never infer a skill from a job title or degree name alone.
- If nothing matches, return an empty list.`

// extractUserPrompt has two placeholders: the vocabulary and the resume.
const extractUserPrompt = `Vocabulary (one skill per line):
%s

Resume:
"""
%s
"""

Return the vocabulary skills this resume demonstrates.`

// maxPromptResumeChars keeps very long resumes inside the model's context.
const maxPromptResumeChars = 24000

func buildExtractPrompt(input ExtractInput) string {
	text := input.ResumeText
	if len(text) > maxPromptResumeChars {
		text = strings.ToValidUTF8(text[:maxPromptResumeChars], "")
	}
	return fmt.Sprintf(extractUserPrompt, strings.Join(input.Vocabulary, "\n"), text)
}

func resolvePrompt(fromConfig, fromDefault string) string {
	if strings.TrimSpace(fromConfig) != "" {
		return fromConfig
	}
	return fromDefault
}
