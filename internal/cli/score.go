package cli

import (
	"careermatch/internal/common"
	"careermatch/internal/recommend"
	"careermatch/internal/types"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a resume against a job role's required skills",
	Long: `Score how ready a resume is for a job role. The required skills are the
union of the role's rows in the dataset, optionally narrowed by stream,
course and department. Use --skills to score against an explicit
comma-separated list instead.`,
	Example: `  careermatch score --role "Web Developer" --resume resume.docx
  careermatch score --skills "python, sql, excel" --resume-text "I build dashboards in python"`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveOutput(cmd, &scoreOutput)
	},
	RunE: runScore,
}

var (
	scoreFlags struct {
		req        types.ScoreRequest
		resumeFile string
	}
	scoreOutput common.CommandConfig
)

func init() {
	f := scoreCmd.Flags()
	f.StringVar(&scoreFlags.req.JobRole, "role", "", "Job role whose required skills are scored")
	f.StringVar(&scoreFlags.req.Stream, "stream", "", "Narrow the role lookup to a stream")
	f.StringVar(&scoreFlags.req.Course, "course", "", "Narrow the role lookup to a course")
	f.StringVar(&scoreFlags.req.Department, "department", "", "Narrow the role lookup to a department")
	f.StringVar(&scoreFlags.req.RequiredSkills, "skills", "", "Comma-separated required skills instead of a role")
	f.StringVar(&scoreFlags.resumeFile, "resume", "", "Resume file (.txt, .md, .pdf, .docx, .html)")
	f.StringVar(&scoreFlags.req.ResumeText, "resume-text", "", "Resume as inline text")
	scoreCmd.MarkFlagsMutuallyExclusive("resume", "resume-text")
	scoreCmd.MarkFlagsOneRequired("role", "skills")
	addOutputFlags(scoreCmd, &scoreOutput)
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(cmd, common.ServiceOptions{})
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	req := scoreFlags.req
	resume, warning, err := rt.svc.ResolveResume(scoreFlags.resumeFile, req.ResumeText)
	if err != nil {
		return err
	}

	res, err := rt.svc.Score(ctx, recommend.ScoreRequest{
		Query:          req.Query(),
		RequiredSkills: req.RequiredSkills,
		Resume:         resume,
	})
	if err != nil {
		return err
	}
	if warning != "" {
		res.Warnings = append(res.Warnings, warning)
	}
	rt.om.RecordScore(ctx, res, "cli")

	rt.logger.Info("Resume scored",
		"job_role", res.JobRole,
		"percent", res.Match.Percent,
		"required", len(res.Required),
		"detector", res.Detector)
	return common.NewOutputHandlerTo(cmd.OutOrStdout(), rt.logger).HandleOutput(res, scoreOutput)
}
