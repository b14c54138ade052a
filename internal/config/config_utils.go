package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// applyFallbacks fills values that depend on other values or on legacy
// environment variables
func (c *Config) applyFallbacks() {
	c.applyServerAPIKeyFallbacks()
	c.applyAIKeyFallback()
	c.applyHistoryDefaults()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
}

// applyServerAPIKeyFallbacks normalises the key list, which arrives from the
// environment as one comma-separated string
func (c *Config) applyServerAPIKeyFallbacks() {
	c.Server.APIKeys = splitKeys(strings.Join(c.Server.APIKeys, ","))
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("CAREERMATCH_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitKeys(apiKeysEnv)
		}
	}
}

func splitKeys(raw string) []string {
	var keys []string
	for _, key := range strings.Split(raw, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// applyAIKeyFallback honours the GEMINI_API_KEY variable used by the
// genai tooling
func (c *Config) applyAIKeyFallback() {
	if c.AI.APIKey == "" {
		c.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

// applyHistoryDefaults places the sqlite database under the user's home
// directory when no DSN is given
func (c *Config) applyHistoryDefaults() {
	if c.History.DSN != "" || c.History.Driver != "sqlite" {
		return
	}
	if home, err := os.UserHomeDir(); err == nil {
		c.History.DSN = filepath.Join(home, ".careermatch", "history.db")
	} else {
		c.History.DSN = "careermatch-history.db"
	}
}

func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"CAREERMATCH_DATASET_PATH",
		"CAREERMATCH_ELIGIBILITY_MODE",
		"CAREERMATCH_SKILLS_DETECTOR",
		"CAREERMATCH_AI_APIKEY",
		"CAREERMATCH_AI_MODEL",
		"CAREERMATCH_SERVER_PORT",
		"CAREERMATCH_SERVER_HOST",
		"CAREERMATCH_APP_LOGLEVEL",
		"CAREERMATCH_HISTORY_DSN",
		"CAREERMATCH_VAULT_ENABLED",
		"GEMINI_API_KEY",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			lower := strings.ToLower(envVar)
			if strings.Contains(lower, "key") || strings.Contains(lower, "dsn") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] Dataset: %s (maxRows=%d, watch=%t)", c.Dataset.Path, c.Dataset.MaxRows, c.Dataset.Watch)
	log.Printf("[CONFIG] Eligibility: mode=%s cgpaPolicy=%s matchPolicy=%s",
		c.Eligibility.Mode, c.Eligibility.CGPAPolicy, c.Eligibility.MatchPolicy)
	log.Printf("[CONFIG] Skills: vocabulary=%s matchMode=%s detector=%s",
		c.Skills.Vocabulary, c.Skills.MatchMode, c.Skills.Detector)
	log.Printf("[CONFIG] Recommend: honestyMode=%t dedup=%s", c.Recommend.HonestyMode, c.Recommend.Dedup)
	if c.Skills.Detector == "ai" {
		log.Printf("[CONFIG] AI Provider: %s, Model: %s", c.AI.Provider, c.AI.Model)
		if c.AI.APIKey != "" {
			log.Println("[CONFIG] AI API Key: ***CONFIGURED***")
		} else {
			log.Println("[CONFIG] AI API Key: ***NOT SET***")
		}
	}
	log.Printf("[CONFIG] History: enabled=%t driver=%s", c.History.Enabled, c.History.Driver)
	log.Printf("[CONFIG] Server: %s:%s (TLS %s)", c.Server.Host, c.Server.Port, c.Server.TLS.Mode)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}
