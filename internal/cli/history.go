package cli

import (
	"fmt"

	"careermatch/internal/common"
	"careermatch/internal/errors"
	"careermatch/internal/history"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded recommendation runs",
	Long: `List the newest recommendation runs recorded in the history store, or
show a single run by id. Requires history.enabled in the configuration.`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if !getConfigFromContext(cmd.Context()).History.Enabled {
			return errors.NewConfigError(errors.ErrCodeHistoryFailed,
				"run history is disabled; set history.enabled to true", nil)
		}
		return resolveOutput(cmd, &historyOutput)
	},
	RunE: runHistory,
}

var (
	historyLimit  int
	historyOutput common.CommandConfig
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Number of runs to list (default from history.limit)")
	addOutputFlags(historyCmd, &historyOutput)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(cmd, common.ServiceOptions{OpenHistory: true})
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	var runs []history.Run
	if len(args) == 1 {
		run, err := rt.svc.History.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if run == nil {
			return errors.NewEmptyResultError(fmt.Sprintf("run %s not found", args[0]))
		}
		runs = []history.Run{*run}
	} else {
		limit := historyLimit
		if limit <= 0 {
			limit = rt.cfg.History.Limit
		}
		if runs, err = rt.svc.History.List(ctx, limit); err != nil {
			return err
		}
	}
	return common.NewOutputHandlerTo(cmd.OutOrStdout(), rt.logger).HandleOutput(runs, historyOutput)
}
