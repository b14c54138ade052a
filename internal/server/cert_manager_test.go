package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careermatch/internal/config"
	"careermatch/internal/errors"
)

// writeSelfSigned writes a self-signed certificate valid for validFor and
// returns the cert and key paths.
func writeSelfSigned(t *testing.T, dir string, validFor time.Duration) (string, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: "localhost"},
		DNSNames:              []string{"localhost"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(validFor),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		IsCA:                  true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPath := filepath.Join(dir, "server.crt")
	keyPath := filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certPath, keyPath
}

func quietLogger() *errors.Logger {
	return errors.NewLoggerTo(io.Discard, slog.LevelError)
}

func TestCertificateManagerLoadsAndReloads(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeSelfSigned(t, dir, 30*24*time.Hour)
	cfg := &config.TLSConfig{Mode: "server", CertFile: certPath, KeyFile: keyPath}

	cm, err := NewCertificateManager(cfg, nil, quietLogger())
	require.NoError(t, err)

	cert, err := cm.GetCertificate(nil)
	require.NoError(t, err)
	require.NotNil(t, cert)

	health := cm.Health()
	assert.Equal(t, true, health["healthy"])
	assert.Equal(t, "ok", health["status"])

	writeSelfSigned(t, dir, 12*time.Hour)
	require.NoError(t, cm.Reload())
	health = cm.Health()
	assert.Equal(t, false, health["healthy"])
	assert.Equal(t, "critical", health["status"])

	require.NoError(t, os.WriteFile(certPath, []byte("not a certificate"), 0o600))
	require.Error(t, cm.Reload())
	kept, err := cm.GetCertificate(nil)
	require.NoError(t, err)
	assert.Equal(t, "critical", cm.Health()["status"], "failed reload keeps the previous certificate")
	assert.NotNil(t, kept)

	m := cm.GetMetrics()
	assert.Equal(t, int64(2), m.ReloadCount)
	assert.Equal(t, int64(1), m.ReloadSuccessCount)
	assert.Equal(t, int64(1), m.ReloadFailureCount)
	assert.False(t, m.LastReloadSuccess)
}

func TestCertificateManagerRequiresMaterial(t *testing.T) {
	_, err := NewCertificateManager(&config.TLSConfig{Mode: "server"}, nil, quietLogger())
	assert.Error(t, err)
}

func TestCertificateManagerContentAndMutual(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeSelfSigned(t, dir, 30*24*time.Hour)
	certPEM, err := os.ReadFile(certPath)
	require.NoError(t, err)
	keyPEM, err := os.ReadFile(keyPath)
	require.NoError(t, err)

	cfg := &config.TLSConfig{
		Mode:        "mutual",
		CertContent: string(certPEM),
		KeyContent:  string(keyPEM),
		CAContent:   string(certPEM),
		AutoReload:  config.AutoReloadConfig{Enabled: true},
	}
	cm, err := NewCertificateManager(cfg, nil, quietLogger())
	require.NoError(t, err)
	require.NoError(t, cm.Start())
	assert.Nil(t, cm.watcher, "content-based certificates are not watched")
	assert.NotNil(t, cm.ClientCAs())

	s := &Server{TLSConfig: *cfg, CertificateManager: cm}
	tlsCfg := s.buildTLSConfig()
	assert.Equal(t, tls.RequireAndVerifyClientCert, tlsCfg.ClientAuth)
	assert.Equal(t, uint16(tls.VersionTLS12), tlsCfg.MinVersion)

	perConn, err := tlsCfg.GetConfigForClient(nil)
	require.NoError(t, err)
	assert.NotNil(t, perConn.ClientCAs)
}

func TestCertificateManagerWatchesFiles(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeSelfSigned(t, dir, 30*24*time.Hour)
	cfg := &config.TLSConfig{
		Mode:       "server",
		CertFile:   certPath,
		KeyFile:    keyPath,
		AutoReload: config.AutoReloadConfig{Enabled: true, DebounceDelay: 10 * time.Millisecond},
	}

	cm, err := NewCertificateManager(cfg, nil, quietLogger())
	require.NoError(t, err)
	require.NoError(t, cm.Start())
	t.Cleanup(func() { _ = cm.Stop() })

	assert.True(t, cm.watcher.IsRunning())
	assert.ElementsMatch(t, []string{certPath, keyPath}, cm.watcher.Files())
}

func TestTLSHelpers(t *testing.T) {
	assert.Equal(t, uint16(tls.VersionTLS13), tlsVersion("1.3"))
	assert.Equal(t, uint16(tls.VersionTLS12), tlsVersion(""))
	assert.Equal(t, []uint16{tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256},
		cipherSuites([]string{"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256", "NOT_A_SUITE"}))
	assert.Nil(t, cipherSuites(nil))
	assert.Equal(t, tls.VerifyClientCertIfGiven, clientAuthPolicy("verify"))
	assert.Equal(t, tls.RequireAndVerifyClientCert, clientAuthPolicy(""))
}
