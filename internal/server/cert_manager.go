package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"careermatch/internal/config"
	"careermatch/internal/errors"
	"careermatch/internal/observability"
	"careermatch/internal/watch"
)

// CertificateManager serves the current server certificate and client CA
// pool, reloading file-based material when it changes on disk.
type CertificateManager struct {
	config *config.TLSConfig

	serverCert atomic.Pointer[tls.Certificate]
	caPool     atomic.Pointer[x509.CertPool]

	watcher *watch.FileWatcher
	om      *observability.ObservabilityManager
	logger  *errors.Logger

	mu      sync.RWMutex
	metrics CertificateMetrics
}

// CertificateMetrics holds metrics about certificate reloads
type CertificateMetrics struct {
	ReloadCount        int64     `json:"reloadCount"`
	ReloadSuccessCount int64     `json:"reloadSuccessCount"`
	ReloadFailureCount int64     `json:"reloadFailureCount"`
	LastReloadTime     time.Time `json:"lastReloadTime"`
	LastReloadSuccess  bool      `json:"lastReloadSuccess"`
	LastReloadError    string    `json:"lastReloadError,omitempty"`
}

// NewCertificateManager loads the initial certificates. It fails if the
// configured material cannot be loaded.
func NewCertificateManager(tlsConfig *config.TLSConfig, om *observability.ObservabilityManager, logger *errors.Logger) (*CertificateManager, error) {
	cm := &CertificateManager{config: tlsConfig, om: om, logger: logger}
	if err := cm.load(); err != nil {
		return nil, fmt.Errorf("failed to load initial certificates: %w", err)
	}
	return cm, nil
}

// Start watches the certificate files when auto-reload is enabled.
// Certificates supplied as content have nothing to watch.
func (cm *CertificateManager) Start() error {
	if !cm.config.AutoReload.Enabled || !cm.fileBased() {
		return nil
	}
	files := []string{cm.config.CertFile, cm.config.KeyFile}
	if cm.config.Mode == "mutual" {
		files = append(files, cm.config.CAFile)
	}
	cm.watcher = watch.New("tls", files, cm.config.AutoReload.DebounceDelay, func() { _ = cm.Reload() }, cm.logger)
	if err := cm.watcher.Start(); err != nil {
		return fmt.Errorf("failed to start certificate watcher: %w", err)
	}
	return nil
}

// Stop stops the file watcher
func (cm *CertificateManager) Stop() error {
	if cm.watcher == nil {
		return nil
	}
	return cm.watcher.Stop()
}

func (cm *CertificateManager) fileBased() bool {
	return cm.config.CertContent == "" && cm.config.CertFile != ""
}

// Reload re-reads the certificates. On failure the previous ones stay in
// use.
func (cm *CertificateManager) Reload() error {
	err := cm.load()

	cm.mu.Lock()
	cm.metrics.ReloadCount++
	cm.metrics.LastReloadTime = time.Now()
	cm.metrics.LastReloadSuccess = err == nil
	if err != nil {
		cm.metrics.ReloadFailureCount++
		cm.metrics.LastReloadError = err.Error()
	} else {
		cm.metrics.ReloadSuccessCount++
		cm.metrics.LastReloadError = ""
	}
	cm.mu.Unlock()

	cm.om.RecordCertReload(context.Background(), err)
	if cm.logger != nil {
		if err != nil {
			cm.logger.LogError(err, "Failed to reload TLS certificates, keeping previous ones")
		} else {
			cm.logger.Info("TLS certificates reloaded")
		}
	}
	return err
}

func (cm *CertificateManager) load() error {
	cert, err := loadServerCertificate(cm.config)
	if err != nil {
		return err
	}
	if cert.Leaf == nil {
		if cert.Leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return fmt.Errorf("failed to parse server certificate: %w", err)
		}
	}

	var pool *x509.CertPool
	if cm.config.Mode == "mutual" {
		if pool, err = loadCACertificatePool(cm.config); err != nil {
			return err
		}
	}

	cm.serverCert.Store(&cert)
	if pool != nil {
		cm.caPool.Store(pool)
	}
	return nil
}

// GetCertificate implements tls.Config.GetCertificate
func (cm *CertificateManager) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cert := cm.serverCert.Load()
	if cert == nil {
		return nil, fmt.Errorf("no server certificate loaded")
	}
	return cert, nil
}

// ClientCAs returns the current client CA pool, nil outside mutual mode.
func (cm *CertificateManager) ClientCAs() *x509.CertPool {
	return cm.caPool.Load()
}

// CheckExpiry returns the time left before the server certificate expires.
func (cm *CertificateManager) CheckExpiry() (time.Duration, error) {
	cert := cm.serverCert.Load()
	if cert == nil || cert.Leaf == nil {
		return 0, fmt.Errorf("no server certificate loaded")
	}
	return time.Until(cert.Leaf.NotAfter), nil
}

// GetMetrics returns a copy of the reload counters
func (cm *CertificateManager) GetMetrics() CertificateMetrics {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.metrics
}

// Health summarises certificate state for /health. Certificates expiring
// within a day are unhealthy; within a week they carry a warning.
func (cm *CertificateManager) Health() map[string]any {
	status := map[string]any{}

	timeToExpiry, err := cm.CheckExpiry()
	if err != nil {
		status["healthy"] = false
		status["error"] = err.Error()
		return status
	}

	status["timeToExpiryHours"] = int(timeToExpiry.Hours())
	switch {
	case timeToExpiry <= 0:
		status["healthy"], status["status"] = false, "expired"
	case timeToExpiry <= 24*time.Hour:
		status["healthy"], status["status"] = false, "critical"
	case timeToExpiry <= 7*24*time.Hour:
		status["healthy"], status["status"] = true, "warning"
	default:
		status["healthy"], status["status"] = true, "ok"
	}

	reload := map[string]any{"enabled": cm.watcher != nil}
	if cm.watcher != nil {
		reload["running"] = cm.watcher.IsRunning()
		reload["files"] = cm.watcher.Files()
	}
	status["autoReload"] = reload
	status["metrics"] = cm.GetMetrics()
	return status
}

// loadServerCertificate loads the server certificate from content or files
func loadServerCertificate(cfg *config.TLSConfig) (tls.Certificate, error) {
	if cfg.CertContent != "" && cfg.KeyContent != "" {
		cert, err := tls.X509KeyPair([]byte(cfg.CertContent), []byte(cfg.KeyContent))
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load server cert/key from content: %w", err)
		}
		return cert, nil
	}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load server cert/key from files: %w", err)
		}
		return cert, nil
	}

	return tls.Certificate{}, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
}

// loadCACertificatePool loads the CA pool used to verify client certificates
func loadCACertificatePool(cfg *config.TLSConfig) (*x509.CertPool, error) {
	var pem []byte
	switch {
	case cfg.CAContent != "":
		pem = []byte(cfg.CAContent)
	case cfg.CAFile != "":
		raw, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pem = raw
	default:
		return nil, fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("failed to append CA cert")
	}
	return pool, nil
}
