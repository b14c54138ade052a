package cli

import (
	"careermatch/internal/common"
	"careermatch/internal/dataset"

	"github.com/spf13/cobra"
)

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List the streams, courses, departments and roles in the dataset",
	Long: `List the choices available at each level of the selection cascade.
Lower levels are listed once the level above is given: courses and
departments after --stream, roles after --department.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveOutput(cmd, &optionsOutput)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd, common.ServiceOptions{})
		if err != nil {
			return err
		}
		defer rt.Close(cmd.Context())

		opts := rt.svc.Options(optionsQuery)
		return common.NewOutputHandlerTo(cmd.OutOrStdout(), rt.logger).HandleOutput(opts, optionsOutput)
	},
}

var (
	optionsQuery  dataset.Query
	optionsOutput common.CommandConfig
)

func init() {
	optionsCmd.Flags().StringVar(&optionsQuery.Stream, "stream", "", "Selected stream")
	optionsCmd.Flags().StringVar(&optionsQuery.Course, "course", "", "Selected course")
	optionsCmd.Flags().StringVar(&optionsQuery.Department, "department", "", "Selected department")
	addOutputFlags(optionsCmd, &optionsOutput)
}
