package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/vault/api"
	"github.com/mitchellh/mapstructure"

	"careermatch/internal/errors"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets holds KVv2 paths. An empty path skips that secret.
type VaultSecrets struct {
	APIKeys   string `mapstructure:"apiKeys"`   // {"keys": "k1,k2"}
	GeminiKey string `mapstructure:"geminiKey"` // {"api_key": "..."}
	TLSCerts  string `mapstructure:"tlsCerts"`  // {"cert": PEM, "key": PEM, "ca": PEM}
	History   string `mapstructure:"history"`   // {"driver": "pgx", "dsn": "..."}
}

type apiKeysSecret struct {
	Keys string `mapstructure:"keys"`
}

type geminiSecret struct {
	APIKey string `mapstructure:"api_key"`
}

type tlsSecret struct {
	Cert string `mapstructure:"cert"`
	Key  string `mapstructure:"key"`
	CA   string `mapstructure:"ca"`

	// file paths are not accepted from Vault; decoded only to reject them
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
	CAFile   string `mapstructure:"ca_file"`
}

type historySecret struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// secretReader is the part of *api.Logical the client uses.
type secretReader interface {
	Read(path string) (*api.Secret, error)
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	logical secretReader
	logger  *errors.Logger
}

// NewVaultClient creates a client and verifies the connection. It returns
// nil without error when Vault is disabled.
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !config.Enabled {
		if logger != nil {
			logger.Debug("Vault integration disabled")
		}
		return nil, nil
	}

	vaultConfig := api.DefaultConfig()
	if config.Address != "" {
		vaultConfig.Address = config.Address
	}
	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		if logger != nil {
			logger.LogError(err, "Failed to connect to Vault", "address", vaultConfig.Address)
		}
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	if logger != nil {
		logger.Info("Connected to Vault",
			"address", vaultConfig.Address,
			"version", health.Version,
			"sealed", health.Sealed)
	}

	return &VaultClient{logical: client.Logical(), logger: logger}, nil
}

// resolveVaultToken returns the configured token, reading tokenFile when
// no inline token is set
func resolveVaultToken(config VaultConfig) (string, error) {
	token := config.Token
	if token == "" && config.TokenFile != "" {
		raw, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// VaultSecret is a KVv2 secret payload and its version.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// GetSecretV2 reads a KVv2 secret.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	secret, err := vc.logical.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	metadata, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	version, err := parseVersionValue(metadata["version"], path)
	if err != nil {
		return nil, err
	}

	return &VaultSecret{Data: data, Version: version}, nil
}

func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	case nil:
		return 0, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

// decodeSecret reads path and decodes its payload into out. Keys the
// target does not know are logged and ignored.
func (vc *VaultClient) decodeSecret(path string, out any) error {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return err
	}
	unused, err := decodeSecretData(secret.Data, out)
	if err != nil {
		return err
	}
	if len(unused) > 0 && vc.logger != nil {
		vc.logger.Warn("Ignoring unknown fields in Vault secret", "path", path, "fields", unused, "version", secret.Version)
	}
	return nil
}

func decodeSecretData(data map[string]any, out any) ([]string, error) {
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		Metadata:         &md,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("failed to decode secret: %w", err)
	}
	return md.Unused, nil
}

// ApplyVaultSecrets loads the configured secrets and applies them to config
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		if logger != nil {
			logger.Debug("Vault integration disabled, skipping secret loading")
		}
		return nil
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	return applySecrets(client, config, logger)
}

func applySecrets(client *VaultClient, config *Config, logger *errors.Logger) error {
	paths := config.Vault.Secrets
	loaders := []struct {
		name string
		path string
		load func(*VaultClient, string, *Config) error
	}{
		{"api keys", paths.APIKeys, loadAPIKeys},
		{"gemini key", paths.GeminiKey, loadGeminiKey},
		{"tls certificates", paths.TLSCerts, loadTLSCerts},
		{"history", paths.History, loadHistory},
	}

	for _, l := range loaders {
		if l.path == "" {
			continue
		}
		if err := l.load(client, l.path, config); err != nil {
			if logger != nil {
				logger.LogError(err, "Failed to load secret from Vault", "secret", l.name, "path", l.path)
			}
			return fmt.Errorf("failed to load %s from vault: %w", l.name, err)
		}
		if logger != nil {
			logger.Info("Secret loaded from Vault", "secret", l.name, "path", l.path)
		}
	}
	return nil
}

func loadAPIKeys(client *VaultClient, path string, config *Config) error {
	var s apiKeysSecret
	if err := client.decodeSecret(path, &s); err != nil {
		return err
	}
	if keys := splitKeys(s.Keys); len(keys) > 0 {
		config.Server.APIKeys = keys
	}
	return nil
}

func loadGeminiKey(client *VaultClient, path string, config *Config) error {
	var s geminiSecret
	if err := client.decodeSecret(path, &s); err != nil {
		return err
	}
	if s.APIKey == "" {
		return fmt.Errorf("secret %s has an empty 'api_key'", path)
	}
	config.AI.APIKey = s.APIKey
	if config.AI.Extract.APIKey == "" {
		config.AI.Extract.APIKey = s.APIKey
	}
	return nil
}

func loadTLSCerts(client *VaultClient, path string, config *Config) error {
	var s tlsSecret
	if err := client.decodeSecret(path, &s); err != nil {
		return err
	}
	return applyTLSSecret(s, &config.Server.TLS)
}

func applyTLSSecret(s tlsSecret, tls *TLSConfig) error {
	deprecated := []struct{ field, value string }{
		{"cert_file", s.CertFile},
		{"key_file", s.KeyFile},
		{"ca_file", s.CAFile},
	}
	for _, d := range deprecated {
		if d.value != "" {
			return fmt.Errorf("'%s' is not supported in Vault; store PEM content in '%s' instead",
				d.field, strings.TrimSuffix(d.field, "_file"))
		}
	}
	if s.Cert != "" {
		tls.CertContent, tls.CertFile = s.Cert, ""
	}
	if s.Key != "" {
		tls.KeyContent, tls.KeyFile = s.Key, ""
	}
	if s.CA != "" {
		tls.CAContent, tls.CAFile = s.CA, ""
	}
	return nil
}

func loadHistory(client *VaultClient, path string, config *Config) error {
	var s historySecret
	if err := client.decodeSecret(path, &s); err != nil {
		return err
	}
	if s.Driver != "" {
		config.History.Driver = s.Driver
	}
	if s.DSN != "" {
		config.History.DSN = s.DSN
	}
	return nil
}
