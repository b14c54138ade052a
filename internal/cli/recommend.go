package cli

import (
	"strings"

	"careermatch/internal/common"
	"careermatch/internal/errors"
	"careermatch/internal/recommend"
	"careermatch/internal/types"

	"github.com/spf13/cobra"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend companies for a stream, department and role",
	Long: `Recommend companies from the dataset for the selected stream, course,
department and job role.

The resume (a file or inline text) is matched against the skill vocabulary.
Companies are bucketed by tier according to the configured eligibility mode
(cgpa, match, intersect, union or per-row), then split into best-match rows
for the selected role and alternate rows for other roles.`,
	Example: `  careermatch recommend --stream Engineering --department CSE --role "Data Analyst" \
      --cgpa 8.2 --resume resume.pdf
  careermatch recommend --stream Commerce --department Finance --resume-text "excel, accounting" --format json`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveOutput(cmd, &recommendOutput)
	},
	RunE: runRecommend,
}

// selectionFlags holds the recommend flag values.
type selectionFlags struct {
	req        types.RecommendRequest
	cgpa       float64
	resumeFile string
}

var (
	recommendFlags  selectionFlags
	recommendOutput common.CommandConfig
)

func init() {
	f := recommendCmd.Flags()
	f.StringVar(&recommendFlags.req.Stream, "stream", "", "Academic stream (required)")
	f.StringVar(&recommendFlags.req.Course, "course", "", "Course, when the dataset has one")
	f.StringVar(&recommendFlags.req.Department, "department", "", "Department (required)")
	f.StringVar(&recommendFlags.req.JobRole, "role", "", "Target job role; other roles become alternates")
	f.Float64Var(&recommendFlags.cgpa, "cgpa", 0, "CGPA on a 0-10 scale")
	f.StringVar(&recommendFlags.resumeFile, "resume", "", "Resume file (.txt, .md, .pdf, .docx, .html)")
	f.StringVar(&recommendFlags.req.ResumeText, "resume-text", "", "Resume as inline text")
	recommendCmd.MarkFlagsMutuallyExclusive("resume", "resume-text")
	addOutputFlags(recommendCmd, &recommendOutput)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	req := recommendFlags.req
	if strings.TrimSpace(req.Stream) == "" || strings.TrimSpace(req.Department) == "" {
		return errors.NewMissingInputError(errors.ErrCodeInvalidSelection, "--stream and --department are required")
	}
	if cmd.Flags().Changed("cgpa") {
		cgpa := recommendFlags.cgpa
		req.CGPA = &cgpa
	}

	rt, err := newRuntime(cmd, common.ServiceOptions{OpenHistory: true})
	if err != nil {
		return err
	}
	defer rt.Close(cmd.Context())

	res, err := rt.recommend(cmd, req, recommendFlags.resumeFile, "cli")
	if err != nil {
		return err
	}
	return common.NewOutputHandlerTo(cmd.OutOrStdout(), rt.logger).HandleOutput(res, recommendOutput)
}

// recommend resolves the resume, runs the engine and records metrics.
func (rt *runtime) recommend(cmd *cobra.Command, req types.RecommendRequest, resumeFile, source string) (*recommend.Result, error) {
	ctx := cmd.Context()
	resume, warning, err := rt.svc.ResolveResume(resumeFile, req.ResumeText)
	if err != nil {
		return nil, err
	}
	if warning != "" {
		rt.logger.Warn("Resume extraction was incomplete", "file", resumeFile, "warning", warning)
	}

	rt.logger.Info("Starting recommendation",
		"stream", req.Stream,
		"course", req.Course,
		"department", req.Department,
		"job_role", req.JobRole,
		"has_cgpa", req.CGPA != nil,
		"has_resume", resume != nil)

	res, err := rt.svc.Recommend(ctx, recommend.Request{Query: req.Query(), CGPA: req.CGPA, Resume: resume}, source)
	if err != nil {
		return nil, err
	}
	if warning != "" {
		res.Warnings = append(res.Warnings, warning)
	}
	rt.om.RecordRecommendation(ctx, res, source)

	rt.logger.Info("Recommendation completed",
		"run_id", res.RunID,
		"status", res.Status,
		"aggregate", res.Aggregate.Percent,
		"best_match", len(res.BestMatch),
		"alternate", len(res.Alternate))
	return res, nil
}
