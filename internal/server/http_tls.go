package server

import (
	"crypto/tls"
	"fmt"
	"net/http"
)

// configureTLS sets up TLS configuration based on the mode
func (s *Server) configureTLS(httpServer *http.Server) error {
	switch s.TLSConfig.Mode {
	case "", "disabled":
		s.Logger.Info("TLS disabled, serving plain HTTP", "address", httpServer.Addr)
		return nil
	case "server", "mutual":
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}

	cm, err := NewCertificateManager(&s.TLSConfig, s.Observability, s.Logger)
	if err != nil {
		return err
	}
	if err := cm.Start(); err != nil {
		return err
	}
	s.CertificateManager = cm

	httpServer.TLSConfig = s.buildTLSConfig()
	s.Logger.Info("TLS enabled",
		"mode", s.TLSConfig.Mode,
		"address", httpServer.Addr,
		"auto_reload", s.TLSConfig.AutoReload.Enabled)
	return nil
}

// buildTLSConfig creates the TLS configuration. Certificates and client CAs
// are read from the certificate manager on every handshake so reloads take
// effect without a restart.
func (s *Server) buildTLSConfig() *tls.Config {
	cm := s.CertificateManager
	tlsConfig := &tls.Config{
		MinVersion:     tlsVersion(s.TLSConfig.MinVersion),
		CipherSuites:   cipherSuites(s.TLSConfig.CipherSuites),
		GetCertificate: cm.GetCertificate,
		ClientAuth:     tls.NoClientCert,
	}

	if s.TLSConfig.Mode == "mutual" {
		tlsConfig.ClientAuth = clientAuthPolicy(s.TLSConfig.ClientAuthPolicy)
		tlsConfig.ClientCAs = cm.ClientCAs()
		tlsConfig.GetConfigForClient = func(*tls.ClientHelloInfo) (*tls.Config, error) {
			perConn := tlsConfig.Clone()
			perConn.ClientCAs = cm.ClientCAs()
			return perConn, nil
		}
	}
	return tlsConfig
}

func tlsVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

// cipherSuites maps configured suite names to IDs, skipping unknown names
func cipherSuites(names []string) []uint16 {
	if len(names) == 0 {
		return nil
	}
	known := map[string]uint16{}
	for _, suite := range tls.CipherSuites() {
		known[suite.Name] = suite.ID
	}
	ids := make([]uint16, 0, len(names))
	for _, name := range names {
		if id, ok := known[name]; ok {
			ids = append(ids, id)
		}
	}
	return ids
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
