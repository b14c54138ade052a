package cli

import (
	"careermatch/internal/common"
	"careermatch/internal/mcpserver"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the engine as MCP tools over stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout exposing the tools
recommend_companies, score_resume and list_options. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := newRuntime(cmd, common.ServiceOptions{OpenHistory: true})
		if err != nil {
			return err
		}
		defer rt.Close(ctx)

		rt.logger.Info("Starting MCP server on stdio", "version", Version)
		if err := mcpserver.Run(ctx, mcpserver.NewServer(rt.svc, Version)); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}
