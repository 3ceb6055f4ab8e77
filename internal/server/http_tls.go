package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"resumatch/internal/common"
)

// configureTLS sets up TLS configuration based on the mode. Certificates
// loaded from files are reloaded on change until ctx is cancelled.
func (s *Server) configureTLS(ctx context.Context, httpServer *http.Server) error {
	switch s.TLSConfig.Mode {
	case "", "disabled":
		s.Logger.Info("TLS disabled, serving plain HTTP", "address", httpServer.Addr)
		return nil
	case "server", "mutual":
		cm := NewCertificateManager(s.TLSConfig, s.Logger.With("component", "certificates"))
		if err := cm.Load(); err != nil {
			return fmt.Errorf("failed to set up TLS (%s mode): %w", s.TLSConfig.Mode, err)
		}
		s.certManager = cm
		httpServer.TLSConfig = cm.TLSConfig()

		go func() {
			if err := cm.Watch(ctx, common.DefaultDebounce); err != nil {
				s.Logger.LogError(err, "Certificate watcher stopped")
			}
		}()

		s.Logger.Info("TLS enabled",
			"mode", s.TLSConfig.Mode,
			"address", httpServer.Addr,
			"min_version", s.TLSConfig.MinVersion)
		return nil
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}
}

func tlsMinVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func clientAuthPolicy(policy string) tls.ClientAuthType {
	switch policy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}
