// Package server exposes the recommendation engine over HTTP.
package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"careermatch/internal/common"
	"careermatch/internal/config"
	"careermatch/internal/dataset"
	"careermatch/internal/errors"
	"careermatch/internal/observability"
	"careermatch/internal/types"
)

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	AppConfig     *config.Config
	Services      *common.Services
	Observability *observability.ObservabilityManager

	TLSConfig          config.TLSConfig
	CertificateManager *CertificateManager

	// API Authentication
	APIKeys map[string]bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Logger *errors.Logger

	reloads reloadTracker
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// ServerConfigFrom copies the server section of the application config.
func ServerConfigFrom(appCfg *config.Config, version string) ServerConfig {
	sc := appCfg.Server
	rl := sc.RateLimit
	return ServerConfig{
		Host:           sc.Host,
		Port:           sc.Port,
		Version:        version,
		TLSConfig:      sc.TLS,
		APIKeys:        sc.APIKeys,
		ReadTimeout:    sc.ReadTimeout,
		WriteTimeout:   sc.WriteTimeout,
		IdleTimeout:    sc.IdleTimeout,
		MaxRequestSize: sc.MaxRequestSize,
		RateLimit:      &rl,
	}
}

// NewServer creates a server over svc. om may be nil.
func NewServer(appCfg *config.Config, svc *common.Services, om *observability.ObservabilityManager, cfg ServerConfig, logger *errors.Logger) *Server {
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.Window, cfg.RateLimit.BurstCapacity, logger)
	}

	s := &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		Services:       svc,
		Observability:  om,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Logger:         logger,
	}

	svc.Dataset.OnReload(func(snap *dataset.Snapshot, err error) {
		s.reloads.record(err)
		rows := 0
		if snap != nil {
			rows = snap.Report.Rows
		}
		om.RecordReload(context.Background(), rows, err)
	})
	return s
}

// reloadTracker counts dataset reloads for /stats.
type reloadTracker struct {
	succeeded atomic.Int64
	failed    atomic.Int64

	mu      sync.Mutex
	lastErr string
}

func (t *reloadTracker) record(err error) {
	if err == nil {
		t.succeeded.Add(1)
		return
	}
	t.failed.Add(1)
	t.mu.Lock()
	t.lastErr = err.Error()
	t.mu.Unlock()
}

func (t *reloadTracker) stats() types.ReloadStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return types.ReloadStats{
		Succeeded: t.succeeded.Load(),
		Failed:    t.failed.Load(),
		LastError: t.lastErr,
	}
}
