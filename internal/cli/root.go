package cli

import (
	"context"
	"fmt"

	"careermatch/internal/common"
	"careermatch/internal/config"
	"careermatch/internal/errors"
	"careermatch/internal/observability"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "careermatch",
	Short: "Recommend companies from a placement dataset by skill readiness",
	Long: `Careermatch reads a company dataset (stream, course, department, job role,
company tier and required skills), detects the skills a resume shows, and
recommends companies the student is ready for.

It can also score a resume against a role, list the dataset's cascading
options, walk through the selections interactively, and serve the same
engine over HTTP or as MCP tools.`,
	SilenceUsage: true,
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

// runtime is what a command holds once the dataset is loaded.
type runtime struct {
	cfg    *config.Config
	logger *errors.Logger
	svc    *common.Services
	om     *observability.ObservabilityManager
}

// newRuntime starts observability and loads the services for cmd. Callers
// must Close the result.
func newRuntime(cmd *cobra.Command, opts common.ServiceOptions) (*runtime, error) {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	opts.Recorder = om

	svc, err := common.NewServices(ctx, cfg, logger, opts)
	if err != nil {
		_ = om.Shutdown(ctx)
		return nil, err
	}
	if snap := svc.Snapshot(); snap != nil {
		om.RecordDatasetRows(ctx, len(snap.Records))
		logger.Debug("Dataset ready",
			"path", snap.Path,
			"rows", len(snap.Records),
			"skipped", snap.Report.Skipped)
	}
	return &runtime{cfg: cfg, logger: logger, svc: svc, om: om}, nil
}

func (rt *runtime) Close(ctx context.Context) {
	if err := rt.svc.Close(); err != nil {
		rt.logger.LogError(err, "Failed to close services")
	}
	if err := rt.om.Shutdown(context.WithoutCancel(ctx)); err != nil {
		rt.logger.LogError(err, "Failed to shut down observability")
	}
}

// addOutputFlags registers -o/--output and --format on cmd.
func addOutputFlags(cmd *cobra.Command, out *common.CommandConfig) {
	cmd.Flags().StringVarP(&out.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&out.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return common.NewOutputHandler(nil).GetSupportedFormats(), cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveOutput applies the configured default format and validates it.
func resolveOutput(cmd *cobra.Command, out *common.CommandConfig) error {
	cfg := getConfigFromContext(cmd.Context())
	format, err := common.ResolveOutputFormat(out.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
	if err != nil {
		return err
	}
	out.OutputFormat = format
	return nil
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(optionsCmd)
	rootCmd.AddCommand(wizardCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
}
