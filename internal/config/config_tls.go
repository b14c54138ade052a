package config

import "fmt"

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	tls := c.Server.TLS

	if err := validateTLSMode(tls); err != nil {
		return err
	}
	if err := validateTLSVersion(tls.MinVersion); err != nil {
		return err
	}
	return validateAutoReload(tls)
}

func validateTLSMode(tls TLSConfig) error {
	switch tls.Mode {
	case "disabled":
		return nil
	case "server":
		return validateCertificateSources(tls, false)
	case "mutual":
		if err := validateCertificateSources(tls, true); err != nil {
			return err
		}
		return validateClientAuthPolicy(tls.ClientAuthPolicy)
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", tls.Mode)
	}
}

// pemSource is one piece of TLS material that may come from a file or
// from inline content.
type pemSource struct {
	name     string
	file     string
	content  string
	required bool
}

func (p pemSource) check(mode string) error {
	if p.file != "" && p.content != "" {
		return fmt.Errorf("cannot specify both %sFile and %sContent - choose one", p.name, p.name)
	}
	if p.required && p.file == "" && p.content == "" {
		return fmt.Errorf("TLS %s is required for %s mode (provide %sFile or %sContent)", p.name, mode, p.name, p.name)
	}
	return nil
}

func validateCertificateSources(tls TLSConfig, mutual bool) error {
	mode := "server"
	if mutual {
		mode = "mutual"
	}
	sources := []pemSource{
		{name: "cert", file: tls.CertFile, content: tls.CertContent, required: true},
		{name: "key", file: tls.KeyFile, content: tls.KeyContent, required: true},
		{name: "ca", file: tls.CAFile, content: tls.CAContent, required: mutual},
	}
	for _, src := range sources {
		if err := src.check(mode); err != nil {
			return err
		}
	}
	return nil
}

func validateClientAuthPolicy(policy string) error {
	switch policy {
	case "require", "request", "verify", "":
		return nil
	default:
		return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", policy)
	}
}

func validateTLSVersion(version string) error {
	switch version {
	case "", "1.2", "1.3":
		return nil
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", version)
	}
}

// validateAutoReload rejects a negative debounce. Reload only applies to
// file-based material; inline content is fixed for the life of the process.
func validateAutoReload(tls TLSConfig) error {
	if tls.Mode == "disabled" || !tls.AutoReload.Enabled {
		return nil
	}
	if tls.AutoReload.DebounceDelay < 0 {
		return fmt.Errorf("server.tls.autoReload.debounceDelay must not be negative")
	}
	return nil
}
