package cli

import (
	"fmt"

	"resumatch/internal/common"
	"resumatch/internal/config"
	"resumatch/internal/embedding"
	"resumatch/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP matching server",
	Long: `Start an HTTP server that scores resumes against job descriptions.

Available endpoints:
- POST /api/v1/match: Score every resume against every job description
- POST /api/v1/tokenize: Show the tokens the matcher sees in a text
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
}

// applyServeOverrides copies every flag the user set onto the server config
func applyServeOverrides(cmd *cobra.Command, cfg *config.Config) {
	overrides := []struct {
		flag   string
		target *string
	}{
		{"port", &cfg.Server.Port},
		{"host", &cfg.Server.Host},
		{"tls-mode", &cfg.Server.TLS.Mode},
		{"cert-file", &cfg.Server.TLS.CertFile},
		{"key-file", &cfg.Server.TLS.KeyFile},
		{"ca-file", &cfg.Server.TLS.CAFile},
	}
	for _, o := range overrides {
		if !cmd.Flags().Changed(o.flag) {
			continue
		}
		if v, err := cmd.Flags().GetString(o.flag); err == nil {
			*o.target = v
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	local := *cfg
	applyServeOverrides(cmd, &local)

	// Validate TLS configuration after applying overrides
	if err := local.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	svc, err := embedding.NewService(cmd.Context(), &local, logger)
	if err != nil {
		return fmt.Errorf("failed to create embedding service: %w", err)
	}
	runner := common.NewMatchRunner(svc, local.Matching, logger)

	srv := server.NewServer(&local, server.ServerConfigFrom(&local, Version), runner, svc, logger.With("component", "server"))
	return srv.Run(cmd.Context())
}
