package cli

import (
	"fmt"

	"careermatch/internal/common"
	"careermatch/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start an HTTP server that exposes the recommendation engine.

Available endpoints:
- GET  /health: Health check endpoint
- GET  /stats: Server statistics, dataset reloads and rate limiting info
- GET  /options: Cascading stream, course, department and role options
- POST /recommend: Recommend companies for a selection, CGPA and resume
- POST /score: Score a resume against a role's required skills
- POST /resume/extract: Extract text and skills from an uploaded resume
- GET  /history, GET /history/{id}: Recorded runs (when history is enabled)

The dataset file is watched and reloaded while the server runs when
dataset.watch is set.

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveFlags struct {
	port     string
	host     string
	tlsMode  string
	certFile string
	keyFile  string
	caFile   string
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.port, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.host, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.tlsMode, "tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.certFile, "cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.keyFile, "key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.caFile, "ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
}

// applyServeOverrides copies explicitly set flags over the loaded config.
func applyServeOverrides(cmd *cobra.Command) {
	cfg := getConfigFromContext(cmd.Context())
	override := func(flag string, dst *string, value string) {
		if cmd.Flags().Changed(flag) {
			*dst = value
		}
	}
	override("port", &cfg.Server.Port, serveFlags.port)
	override("host", &cfg.Server.Host, serveFlags.host)
	override("tls-mode", &cfg.Server.TLS.Mode, serveFlags.tlsMode)
	override("cert-file", &cfg.Server.TLS.CertFile, serveFlags.certFile)
	override("key-file", &cfg.Server.TLS.KeyFile, serveFlags.keyFile)
	override("ca-file", &cfg.Server.TLS.CAFile, serveFlags.caFile)
}

func runServe(cmd *cobra.Command, args []string) error {
	applyServeOverrides(cmd)
	cfg := getConfigFromContext(cmd.Context())

	// Validate TLS configuration after applying overrides
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	rt, err := newRuntime(cmd, common.ServiceOptions{OpenHistory: true})
	if err != nil {
		return err
	}
	defer rt.Close(cmd.Context())

	srv := server.NewServer(cfg, rt.svc, rt.om, server.ServerConfigFrom(cfg, Version), rt.logger)
	return srv.Start(cmd.Context())
}
