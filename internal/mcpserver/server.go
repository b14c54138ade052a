// Package mcpserver exposes the recommendation engine as Model Context
// Protocol tools over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"careermatch/internal/common"
	"careermatch/internal/dataset"
	"careermatch/internal/recommend"
	"careermatch/internal/types"
)

// RecommendInput is the input of recommend_companies.
type RecommendInput struct {
	Stream     string   `json:"stream" jsonschema:"Academic stream, e.g. Engineering"`
	Course     string   `json:"course,omitempty" jsonschema:"Course, when the dataset has one, e.g. B.Tech"`
	Department string   `json:"department" jsonschema:"Department, e.g. Computer Science"`
	JobRole    string   `json:"jobRole,omitempty" jsonschema:"Target job role; other roles are listed as alternates"`
	CGPA       *float64 `json:"cgpa,omitempty" jsonschema:"CGPA on a 0-10 scale"`
	ResumeText string   `json:"resumeText,omitempty" jsonschema:"Plain resume text used for skill detection"`
}

// ScoreInput is the input of score_resume.
type ScoreInput struct {
	ResumeText     string `json:"resumeText" jsonschema:"Plain resume text"`
	JobRole        string `json:"jobRole,omitempty" jsonschema:"Job role whose required skills are scored"`
	Stream         string `json:"stream,omitempty" jsonschema:"Optional stream to narrow the role lookup"`
	Department     string `json:"department,omitempty" jsonschema:"Optional department to narrow the role lookup"`
	RequiredSkills string `json:"requiredSkills,omitempty" jsonschema:"Comma-separated skills to score against instead of a role"`
}

// OptionsInput is the input of list_options.
type OptionsInput struct {
	Stream     string `json:"stream,omitempty" jsonschema:"Selected stream"`
	Course     string `json:"course,omitempty" jsonschema:"Selected course"`
	Department string `json:"department,omitempty" jsonschema:"Selected department"`
}

// NewServer builds an MCP server with all tools registered.
func NewServer(svc *common.Services, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "careermatch",
		Version: version,
	}, nil)
	RegisterTools(server, svc)
	return server
}

// RegisterTools adds recommend_companies, score_resume and list_options.
func RegisterTools(server *mcp.Server, svc *common.Services) {
	registerRecommend(server, svc)
	registerScore(server, svc)
	registerOptions(server, svc)
}

// Run serves on stdin/stdout until ctx is cancelled or the client leaves.
func Run(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func registerRecommend(server *mcp.Server, svc *common.Services) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "recommend_companies",
		Description: "Recommend companies for a student from the company dataset. Filters by stream, course, department and role, detects skills in the resume text, and returns best-match and alternate companies with match percent, matched and missing skills.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input RecommendInput) (*mcp.CallToolResult, *recommend.Result, error) {
		if strings.TrimSpace(input.Stream) == "" || strings.TrimSpace(input.Department) == "" {
			return nil, nil, fmt.Errorf("stream and department are required")
		}
		req := types.RecommendRequest{
			Stream: input.Stream, Course: input.Course, Department: input.Department,
			JobRole: input.JobRole, CGPA: input.CGPA, ResumeText: input.ResumeText,
		}
		resume, _, err := svc.ResolveResume("", req.ResumeText)
		if err != nil {
			return nil, nil, err
		}
		res, err := svc.Recommend(ctx, recommend.Request{Query: req.Query(), CGPA: req.CGPA, Resume: resume}, "mcp")
		if err != nil {
			return nil, nil, err
		}
		return nil, res, nil
	})
}

func registerScore(server *mcp.Server, svc *common.Services) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "score_resume",
		Description: "Score how ready a resume is for a job role, or for an explicit comma-separated skill list. Returns the readiness percent with matched and missing skills.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ScoreInput) (*mcp.CallToolResult, *recommend.ScoreResult, error) {
		resume, _, err := svc.ResolveResume("", input.ResumeText)
		if err != nil {
			return nil, nil, err
		}
		res, err := svc.Score(ctx, recommend.ScoreRequest{
			Query:          dataset.Query{Stream: input.Stream, Department: input.Department, JobRole: input.JobRole},
			RequiredSkills: input.RequiredSkills,
			Resume:         resume,
		})
		if err != nil {
			return nil, nil, err
		}
		return nil, res, nil
	})
}

func registerOptions(server *mcp.Server, svc *common.Services) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_options",
		Description: "List the choices available in the company dataset. With no input returns streams; pass stream (and course when present) for departments, and department for job roles.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(_ context.Context, _ *mcp.CallToolRequest, input OptionsInput) (*mcp.CallToolResult, *recommend.OptionSet, error) {
		opts := svc.Options(dataset.Query{Stream: input.Stream, Course: input.Course, Department: input.Department})
		return nil, &opts, nil
	})
}
