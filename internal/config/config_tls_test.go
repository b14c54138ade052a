package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateTLSMode(t *testing.T) {
	tests := []struct {
		name        string
		tls         TLSConfig
		expectError bool
		errorMsg    string
	}{
		{
			name: "disabled mode",
			tls:  TLSConfig{Mode: "disabled"},
		},
		{
			name: "server mode with files",
			tls:  TLSConfig{Mode: "server", CertFile: "/certs/server.pem", KeyFile: "/certs/server.key"},
		},
		{
			name: "server mode with content",
			tls:  TLSConfig{Mode: "server", CertContent: "cert", KeyContent: "key"},
		},
		{
			name: "server mode mixed sources",
			tls:  TLSConfig{Mode: "server", CertFile: "/certs/server.pem", KeyContent: "key"},
		},
		{
			name:        "server mode missing key",
			tls:         TLSConfig{Mode: "server", CertFile: "/certs/server.pem"},
			expectError: true,
			errorMsg:    "TLS key is required for server mode",
		},
		{
			name:        "server mode duplicate cert",
			tls:         TLSConfig{Mode: "server", CertFile: "/certs/server.pem", CertContent: "cert", KeyFile: "/certs/server.key"},
			expectError: true,
			errorMsg:    "cannot specify both certFile and certContent",
		},
		{
			name: "mutual mode valid",
			tls: TLSConfig{
				Mode: "mutual", CertFile: "/certs/server.pem", KeyFile: "/certs/server.key",
				CAFile: "/certs/ca.pem", ClientAuthPolicy: "verify",
			},
		},
		{
			name:        "mutual mode missing CA",
			tls:         TLSConfig{Mode: "mutual", CertFile: "/certs/server.pem", KeyFile: "/certs/server.key"},
			expectError: true,
			errorMsg:    "TLS ca is required for mutual mode",
		},
		{
			name: "mutual mode duplicate CA",
			tls: TLSConfig{
				Mode: "mutual", CertFile: "/certs/server.pem", KeyFile: "/certs/server.key",
				CAFile: "/certs/ca.pem", CAContent: "ca",
			},
			expectError: true,
			errorMsg:    "cannot specify both caFile and caContent",
		},
		{
			name: "mutual mode bad client auth policy",
			tls: TLSConfig{
				Mode: "mutual", CertContent: "cert", KeyContent: "key", CAContent: "ca",
				ClientAuthPolicy: "sometimes",
			},
			expectError: true,
			errorMsg:    "invalid clientAuthPolicy: sometimes",
		},
		{
			name:        "unknown mode",
			tls:         TLSConfig{Mode: "invalid"},
			expectError: true,
			errorMsg:    "invalid TLS mode: invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTLSMode(tt.tls)
			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTLSVersion(t *testing.T) {
	for _, v := range []string{"", "1.2", "1.3"} {
		assert.NoError(t, validateTLSVersion(v), v)
	}
	for _, v := range []string{"1.0", "1.1", "tls13"} {
		err := validateTLSVersion(v)
		assert.Error(t, err, v)
		assert.Contains(t, err.Error(), "must be '1.2' or '1.3'")
	}
}

func TestValidateTLSConfig(t *testing.T) {
	cfg := Config{Server: ServerConfig{TLS: TLSConfig{
		Mode:       "server",
		CertFile:   "/certs/server.pem",
		KeyFile:    "/certs/server.key",
		MinVersion: "1.3",
		AutoReload: AutoReloadConfig{Enabled: true, DebounceDelay: 100 * time.Millisecond},
	}}}
	assert.NoError(t, cfg.ValidateTLSConfig())

	cfg.Server.TLS.AutoReload.DebounceDelay = -time.Second
	assert.ErrorContains(t, cfg.ValidateTLSConfig(), "debounceDelay")

	cfg.Server.TLS.AutoReload.DebounceDelay = 0
	cfg.Server.TLS.MinVersion = "1.0"
	assert.ErrorContains(t, cfg.ValidateTLSConfig(), "invalid TLS minVersion: 1.0")
}
