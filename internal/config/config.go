package config

import (
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"careermatch/internal/dataset"
	"careermatch/internal/eligibility"
	"careermatch/internal/recommend"
	"careermatch/internal/skills"
)

// Config represents the application configuration
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Dataset       DatasetConfig       `mapstructure:"dataset"`
	Skills        SkillsConfig        `mapstructure:"skills"`
	Eligibility   EligibilityConfig   `mapstructure:"eligibility"`
	Recommend     RecommendConfig     `mapstructure:"recommend"`
	AI            AIConfig            `mapstructure:"ai"`
	History       HistoryConfig       `mapstructure:"history"`
	Server        ServerConfig        `mapstructure:"server"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"` // resume upload limit in bytes
}

// DatasetConfig points at the company CSV and controls hot reload
type DatasetConfig struct {
	Path     string        `mapstructure:"path"`
	MaxRows  int           `mapstructure:"maxRows"`
	Watch    bool          `mapstructure:"watch"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// SkillsConfig selects the vocabulary and the resume skill detector
type SkillsConfig struct {
	Vocabulary  string `mapstructure:"vocabulary"`  // "dataset" or "curated"
	CuratedFile string `mapstructure:"curatedFile"` // one skill per line; empty uses the built-in list
	MatchMode   string `mapstructure:"matchMode"`   // "substring" or "word"
	Detector    string `mapstructure:"detector"`    // "substring" or "ai"
}

type EligibilityConfig struct {
	Mode        string `mapstructure:"mode"`
	CGPAPolicy  string `mapstructure:"cgpaPolicy"`
	MatchPolicy string `mapstructure:"matchPolicy"`
}

type RecommendConfig struct {
	HonestyMode bool   `mapstructure:"honestyMode"`
	Dedup       string `mapstructure:"dedup"`
}

// AIConfig holds the global AI settings and the skill extraction override
type AIConfig struct {
	Provider         string        `mapstructure:"provider"`
	Model            string        `mapstructure:"model"`
	Timeout          time.Duration `mapstructure:"timeout"`
	APIKey           string        `mapstructure:"apiKey"`
	MaxRetries       int           `mapstructure:"maxRetries"`
	Temperature      float32       `mapstructure:"temperature"`
	UseSystemPrompts bool          `mapstructure:"useSystemPrompts"`

	Extract OperationAIConfig `mapstructure:"extract"`
}

// CircuitBreakerConfig holds circuit breaker settings for AI operations
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // allowed while half-open
	Interval         time.Duration `mapstructure:"interval"`         // cyclic period that clears counts
	Timeout          time.Duration `mapstructure:"timeout"`          // open state duration
	MinRequests      uint32        `mapstructure:"minRequests"`      // requests before the ratio is considered
	FailureThreshold float64       `mapstructure:"failureThreshold"` // 0.0-1.0
}

// OperationAIConfig overrides the global AI settings for one operation.
// Pointer fields stay nil until GetExtractConfig fills them from AIConfig.
type OperationAIConfig struct {
	Provider         string               `mapstructure:"provider"`
	Model            string               `mapstructure:"model"`
	Timeout          *time.Duration       `mapstructure:"timeout"`
	APIKey           string               `mapstructure:"apiKey"`
	MaxRetries       *int                 `mapstructure:"maxRetries"`
	Temperature      *float32             `mapstructure:"temperature"`
	UseSystemPrompts *bool                `mapstructure:"useSystemPrompts"`
	SystemPrompt     string               `mapstructure:"systemPrompt"`
	SystemPromptFile string               `mapstructure:"systemPromptFile"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// HistoryConfig controls the run history store
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"` // "sqlite" or "pgx"
	DSN     string `mapstructure:"dsn"`
	Limit   int    `mapstructure:"limit"` // default page size for listings
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	MaxRequestSize int64 `mapstructure:"maxRequestSize"` // bytes; 0 disables the limit

	TLS       TLSConfig       `mapstructure:"tls"`
	APIKeys   []string        `mapstructure:"apiKeys"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS configuration. Material comes either from files or
// from PEM content (usually supplied by Vault), never both.
type TLSConfig struct {
	Mode     string `mapstructure:"mode"` // "disabled", "server", "mutual"
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"`

	CertContent string `mapstructure:"certContent"`
	KeyContent  string `mapstructure:"keyContent"`
	CAContent   string `mapstructure:"caContent"`

	MinVersion       string   `mapstructure:"minVersion"` // "1.2" or "1.3"
	CipherSuites     []string `mapstructure:"cipherSuites"`
	ClientAuthPolicy string   `mapstructure:"clientAuthPolicy"` // "require", "request", "verify"

	AutoReload AutoReloadConfig `mapstructure:"autoReload"`
}

// AutoReloadConfig reloads file-based certificates when they change on disk
type AutoReloadConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RequestsPerMin int           `mapstructure:"requestsPerMin"`
	BurstCapacity  int           `mapstructure:"burstCapacity"`
	ByIP           bool          `mapstructure:"byIP"`
	ByAPIKey       bool          `mapstructure:"byAPIKey"`
	Window         time.Duration `mapstructure:"window"` // idle limiters older than this are dropped
}

// ObservabilityConfig holds OpenTelemetry configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
}

type MetricsConfig struct {
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

type ConsoleConfig struct {
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig toggles the application metric groups
type CustomMetricsConfig struct {
	AIOperations   AIOperationsMetricsConfig   `mapstructure:"aiOperations"`
	Business       BusinessMetricsConfig       `mapstructure:"business"`
	Infrastructure InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

type AIOperationsMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackTokenUsage bool `mapstructure:"trackTokenUsage"`
}

type BusinessMetricsConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	TrackMatchScores bool `mapstructure:"trackMatchScores"`
}

type InfrastructureMetricsConfig struct {
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
	TrackReloads    bool `mapstructure:"trackReloads"`
}

type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from a .env file, environment variables
// and an optional config.yaml
func LoadConfig() (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	if err := godotenv.Load(); err == nil {
		log.Println("[CONFIG] Loaded environment overrides from .env")
	}

	v := viper.New()
	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	v.SetEnvPrefix("CAREERMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Println("[CONFIG] Configured environment variable handling with prefix 'CAREERMATCH'")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/careermatch/")
	v.AddConfigPath("$HOME/.careermatch")
	v.AddConfigPath(".")

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	return decode(v, configFileUsed)
}

func decode(v *viper.Viper, configFileUsed string) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.loadPromptOverride(); err != nil {
		return nil, fmt.Errorf("failed to load extraction prompt: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Dataset.Path == "" {
		return fmt.Errorf("dataset.path is required")
	}
	if c.Dataset.MaxRows < 0 {
		return fmt.Errorf("dataset.maxRows must not be negative")
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateFormats(); err != nil {
		return err
	}
	if c.Skills.Detector == "ai" && c.GetExtractConfig().APIKey == "" {
		return fmt.Errorf("ai.apiKey is required when skills.detector is 'ai'")
	}
	if c.History.Enabled {
		switch c.History.Driver {
		case "sqlite", "pgx":
		default:
			return fmt.Errorf("invalid history.driver: %s (must be 'sqlite' or 'pgx')", c.History.Driver)
		}
	}
	if c.AI.Extract.CircuitBreaker.Enabled {
		if ft := c.AI.Extract.CircuitBreaker.FailureThreshold; ft <= 0 || ft > 1 {
			return fmt.Errorf("ai.extract.circuitBreaker.failureThreshold must be in (0, 1], got %v", ft)
		}
	}
	return c.ValidateTLSConfig()
}

func (c *Config) validateEngine() error {
	if _, err := eligibility.NewBucketer(eligibility.Mode(c.Eligibility.Mode), c.Eligibility.CGPAPolicy, c.Eligibility.MatchPolicy); err != nil {
		return err
	}
	if _, err := skills.ParseMatchMode(c.Skills.MatchMode); err != nil {
		return err
	}
	if _, err := recommend.ParseDedupMode(c.Recommend.Dedup); err != nil {
		return err
	}
	switch c.Skills.Vocabulary {
	case skills.SourceDataset, skills.SourceCurated:
	default:
		return fmt.Errorf("invalid skills.vocabulary: %s (must be '%s' or '%s')",
			c.Skills.Vocabulary, skills.SourceDataset, skills.SourceCurated)
	}
	switch c.Skills.Detector {
	case "substring", "ai":
	default:
		return fmt.Errorf("invalid skills.detector: %s (must be 'substring' or 'ai')", c.Skills.Detector)
	}
	return nil
}

func (c *Config) validateFormats() error {
	if len(c.App.SupportedFormats) == 0 {
		return fmt.Errorf("app.supportedFormats must not be empty")
	}
	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("app.defaultFormat %q is not one of %v", c.App.DefaultFormat, c.App.SupportedFormats)
	}
	return nil
}

// LoaderOptions builds dataset loader options from the configuration
func (c *Config) LoaderOptions() dataset.LoaderOptions {
	return dataset.LoaderOptions{MaxRows: c.Dataset.MaxRows}
}
