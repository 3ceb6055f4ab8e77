package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"resumatch/internal/common"
	"resumatch/internal/config"
	"resumatch/internal/errors"
)

// CertificateManager holds the serving certificate and client CA pool and
// swaps them in place when the files on disk change. Handshakes read the
// current pair through GetCertificate and GetConfigForClient.
type CertificateManager struct {
	mu sync.RWMutex

	serverCert       *tls.Certificate
	caCertPool       *x509.CertPool
	serverCertExpiry time.Time

	config config.TLSConfig
	base   *tls.Config
	logger *errors.Logger

	reloadCount        int64
	reloadFailureCount int64
	lastReloadTime     time.Time
	lastReloadError    string
}

// CertificateStats reports certificate reload activity
type CertificateStats struct {
	ReloadCount        int64     `json:"reload_count"`
	ReloadFailureCount int64     `json:"reload_failure_count"`
	LastReloadTime     time.Time `json:"last_reload_time"`
	LastReloadError    string    `json:"last_reload_error,omitempty"`
	ServerCertExpiry   time.Time `json:"server_cert_expiry"`
}

// NewCertificateManager creates a certificate manager for tlsConfig
func NewCertificateManager(tlsConfig config.TLSConfig, logger *errors.Logger) *CertificateManager {
	cm := &CertificateManager{
		config: tlsConfig,
		logger: logger,
	}
	cm.base = &tls.Config{
		MinVersion:     tlsMinVersion(tlsConfig.MinVersion),
		ClientAuth:     tls.NoClientCert,
		GetCertificate: cm.GetCertificate,
		NextProtos:     []string{"h2", "http/1.1"},
	}
	if tlsConfig.Mode == "mutual" {
		cm.base.ClientAuth = clientAuthPolicy(tlsConfig.ClientAuthPolicy)
		cm.base.GetConfigForClient = cm.GetConfigForClient
	}
	return cm
}

// TLSConfig returns the server side configuration backed by the manager
func (cm *CertificateManager) TLSConfig() *tls.Config {
	return cm.base
}

// GetCertificate returns the current server certificate
func (cm *CertificateManager) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.serverCert == nil {
		return nil, fmt.Errorf("no server certificate available")
	}
	return cm.serverCert, nil
}

// GetConfigForClient returns a per-handshake configuration carrying the
// current client CA pool
func (cm *CertificateManager) GetConfigForClient(*tls.ClientHelloInfo) (*tls.Config, error) {
	cm.mu.RLock()
	pool := cm.caCertPool
	cm.mu.RUnlock()

	cfg := cm.base.Clone()
	cfg.GetConfigForClient = nil
	cfg.ClientCAs = pool
	return cfg, nil
}

// Load reads the certificate, key and CA. On failure the previously loaded
// set stays in use.
func (cm *CertificateManager) Load() error {
	cert, pool, expiry, err := cm.readCertificates()

	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.reloadCount++
	cm.lastReloadTime = time.Now()
	if err != nil {
		cm.reloadFailureCount++
		cm.lastReloadError = err.Error()
		return err
	}
	cm.serverCert = &cert
	cm.caCertPool = pool
	cm.serverCertExpiry = expiry
	cm.lastReloadError = ""
	return nil
}

func (cm *CertificateManager) readCertificates() (tls.Certificate, *x509.CertPool, time.Time, error) {
	cert, err := cm.loadServerCertificate()
	if err != nil {
		return tls.Certificate{}, nil, time.Time{}, err
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return tls.Certificate{}, nil, time.Time{}, fmt.Errorf("failed to parse server certificate: %w", err)
	}

	var pool *x509.CertPool
	if cm.config.Mode == "mutual" {
		if pool, err = cm.loadCACertificatePool(); err != nil {
			return tls.Certificate{}, nil, time.Time{}, err
		}
	}
	return cert, pool, leaf.NotAfter, nil
}

// Stats returns a snapshot of the reload counters
func (cm *CertificateManager) Stats() CertificateStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return CertificateStats{
		ReloadCount:        cm.reloadCount,
		ReloadFailureCount: cm.reloadFailureCount,
		LastReloadTime:     cm.lastReloadTime,
		LastReloadError:    cm.lastReloadError,
		ServerCertExpiry:   cm.serverCertExpiry,
	}
}

// watchedFiles lists the certificate files on disk. Content from Vault is
// not watched.
func (cm *CertificateManager) watchedFiles() []string {
	var files []string
	if cm.config.CertContent == "" && cm.config.CertFile != "" {
		files = append(files, cm.config.CertFile)
	}
	if cm.config.KeyContent == "" && cm.config.KeyFile != "" {
		files = append(files, cm.config.KeyFile)
	}
	if cm.config.Mode == "mutual" && cm.config.CAContent == "" && cm.config.CAFile != "" {
		files = append(files, cm.config.CAFile)
	}
	return files
}

// Watch reloads the certificates after each debounced change to their files
// until ctx is cancelled
func (cm *CertificateManager) Watch(ctx context.Context, debounce time.Duration) error {
	files := cm.watchedFiles()
	if len(files) == 0 {
		return nil
	}

	watcher, err := common.NewInputWatcher(files, debounce, cm.logger)
	if err != nil {
		return fmt.Errorf("failed to create certificate watcher: %w", err)
	}
	cm.logger.Info("Certificate file watcher started", "files", files)

	return watcher.Run(ctx, func(context.Context) {
		if err := cm.Load(); err != nil {
			cm.logger.LogError(err, "Failed to reload certificates, keeping the current set")
			return
		}
		cm.logger.Info("Certificates reloaded", "server_cert_expiry", cm.Stats().ServerCertExpiry)
	})
}

// loadServerCertificate loads the server certificate from content or files.
// Content is set when certificates come from Vault.
func (cm *CertificateManager) loadServerCertificate() (tls.Certificate, error) {
	t := cm.config
	if t.CertContent != "" && t.KeyContent != "" {
		cert, err := tls.X509KeyPair([]byte(t.CertContent), []byte(t.KeyContent))
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load server cert/key from content: %w", err)
		}
		return cert, nil
	}

	if t.CertFile != "" && t.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load server cert/key from files: %w", err)
		}
		return cert, nil
	}

	return tls.Certificate{}, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
}

// loadCACertificatePool loads the CA pool used to verify client certificates
func (cm *CertificateManager) loadCACertificatePool() (*x509.CertPool, error) {
	var caCert []byte
	switch {
	case cm.config.CAContent != "":
		caCert = []byte(cm.config.CAContent)
	case cm.config.CAFile != "":
		data, err := os.ReadFile(cm.config.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		caCert = data
	default:
		return nil, fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to append CA cert")
	}
	return pool, nil
}
