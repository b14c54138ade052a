package cli

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"careermatch/internal/common"
	"careermatch/internal/errors"
	"careermatch/internal/types"
	"careermatch/internal/wizard"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

const wizardBack = "<< Back"

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Choose stream, course, department and role interactively",
	Long: `Walk through the dataset's selections one step at a time. Each choice is
confirmed before the next step opens, and only choices available under the
earlier ones are offered. The wizard then asks for a CGPA and a resume
file and prints the recommendation.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveOutput(cmd, &wizardOutput)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWizard(cmd, promptUI{})
	},
}

var wizardOutput common.CommandConfig

func init() {
	addOutputFlags(wizardCmd, &wizardOutput)
}

// prompter asks the user questions. promptUI is the terminal version.
type prompter interface {
	Select(label string, items []string) (string, error)
	Confirm(label string) (bool, error)
	Input(label string, validate func(string) error) (string, error)
}

type promptUI struct{}

func (promptUI) Select(label string, items []string) (string, error) {
	p := promptui.Select{
		Label: label,
		Items: items,
		Size:  10,
		Searcher: func(input string, index int) bool {
			return strings.Contains(strings.ToLower(items[index]), strings.ToLower(input))
		},
	}
	_, choice, err := p.Run()
	return choice, err
}

func (promptUI) Confirm(label string) (bool, error) {
	p := promptui.Prompt{Label: label, IsConfirm: true, Default: "y"}
	if _, err := p.Run(); err != nil {
		if stderrors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (promptUI) Input(label string, validate func(string) error) (string, error) {
	p := promptui.Prompt{Label: label, Validate: validate}
	return p.Run()
}

func runWizard(cmd *cobra.Command, p prompter) error {
	rt, err := newRuntime(cmd, common.ServiceOptions{OpenHistory: true})
	if err != nil {
		return err
	}
	defer rt.Close(cmd.Context())

	w := wizard.New(rt.svc.Snapshot())
	if err := walkSelections(w, p); err != nil {
		return err
	}

	req, resumeFile, err := askCandidate(p, rt.cfg.App.MaxFileSize)
	if err != nil {
		return err
	}
	q := w.Query()
	req.Stream, req.Course, req.Department, req.JobRole = q.Stream, q.Course, q.Department, q.JobRole

	res, err := rt.recommend(cmd, req, resumeFile, "cli")
	if err != nil {
		return err
	}
	return common.NewOutputHandlerTo(cmd.OutOrStdout(), rt.logger).HandleOutput(res, wizardOutput)
}

// walkSelections drives w until every step is confirmed.
func walkSelections(w *wizard.Wizard, p prompter) error {
	for !w.Done() {
		options := w.Options()
		if len(options) == 0 {
			return errors.NewEmptyResultError(fmt.Sprintf("the dataset has no %s options for this selection", w.State()))
		}
		items := options
		if w.State() != wizard.SelectingStream {
			items = append(append([]string{}, options...), wizardBack)
		}

		choice, err := p.Select(fmt.Sprintf("Select %s", w.State()), items)
		if err != nil {
			return err
		}
		if choice == wizardBack {
			w.Back()
			continue
		}
		if err := w.Choose(choice); err != nil {
			return err
		}

		ok, err := p.Confirm(fmt.Sprintf("Use %s %q", w.State(), choice))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := w.Confirm(); err != nil {
			return err
		}
	}
	return nil
}

// askCandidate asks for the optional CGPA and resume file.
func askCandidate(p prompter, maxSize int64) (types.RecommendRequest, string, error) {
	var req types.RecommendRequest

	raw, err := p.Input("CGPA (0-10, blank to skip)", validateCGPA)
	if err != nil {
		return req, "", err
	}
	if cgpa, ok, _ := parseCGPA(raw); ok {
		req.CGPA = &cgpa
	}

	resumeFile, err := p.Input("Resume file (blank to skip)", resumePathValidator(maxSize))
	if err != nil {
		return req, "", err
	}
	return req, strings.TrimSpace(resumeFile), nil
}

// parseCGPA reads a CGPA on the 0-10 scale. Blank input is not an error.
func parseCGPA(raw string) (float64, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%q is not a number", raw)
	}
	if v < 0 || v > 10 {
		return 0, false, fmt.Errorf("CGPA must be between 0 and 10")
	}
	return v, true, nil
}

func validateCGPA(raw string) error {
	_, _, err := parseCGPA(raw)
	return err
}

func resumePathValidator(maxSize int64) func(string) error {
	files := common.NewFileProcessor(maxSize, nil)
	return func(raw string) error {
		return files.ValidateResumeFile(strings.TrimSpace(raw))
	}
}
