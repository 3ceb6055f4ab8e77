package config

import (
	"fmt"
	"log"
	"regexp"
	"slices"
	"strings"
	"time"

	"resumatch/internal/matching"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// Secret precedence order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (RESUMATCH_EMBEDDING_APIKEY, then OPENAI_API_KEY or GEMINI_API_KEY)
// 4. Default values - Lowest priority
type Config struct {
	Matching      MatchingConfig      `mapstructure:"matching"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// MatchingConfig holds scoring defaults applied when a request does not override them
type MatchingConfig struct {
	EmbeddingWeight float64 `mapstructure:"embeddingWeight"` // Share of the score taken by embedding similarity (0.0-1.0)
	UseEmbeddings   bool    `mapstructure:"useEmbeddings"`   // Fetch embeddings when a provider is configured
	Workers         int     `mapstructure:"workers"`         // Concurrent pair scorers, 0 or 1 means sequential
	TieBreak        string  `mapstructure:"tieBreak"`        // "first" or "jd-id"
}

// EmbeddingConfig holds embedding provider configuration
type EmbeddingConfig struct {
	Provider       string               `mapstructure:"provider"` // openai, gemini, ollama
	Model          string               `mapstructure:"model"`
	BaseURL        string               `mapstructure:"baseURL"`
	APIKey         string               `mapstructure:"apiKey"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	MaxRetries     int                  `mapstructure:"maxRetries"`
	MaxInputChars  int                  `mapstructure:"maxInputChars"` // Texts are truncated to this many characters
	Dimensions     int                  `mapstructure:"dimensions"`    // Requested output size, 0 keeps the model default
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
	Cache          CacheConfig          `mapstructure:"cache"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// CacheConfig holds embedding cache configuration
type CacheConfig struct {
	Backend   string         `mapstructure:"backend"` // none, memory, redis, postgres
	TTL       time.Duration  `mapstructure:"ttl"`
	KeyPrefix string         `mapstructure:"keyPrefix"`
	Redis     RedisConfig    `mapstructure:"redis"`
	Postgres  PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig holds Redis connection settings for the embedding cache
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PostgresConfig holds pgvector settings for the embedding cache
type PostgresConfig struct {
	DSN        string `mapstructure:"dsn"`
	Table      string `mapstructure:"table"`
	Dimensions int    `mapstructure:"dimensions"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	TLS TLSConfig `mapstructure:"tls"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"` // Valid API keys for authentication

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS/mTLS configuration
type TLSConfig struct {
	Mode     string `mapstructure:"mode"` // disabled, server, mutual
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"`

	// PEM content, set when certificates come from Vault
	CertContent string `mapstructure:"certContent"`
	KeyContent  string `mapstructure:"keyContent"`
	CAContent   string `mapstructure:"caContent"`

	MinVersion       string `mapstructure:"minVersion"`       // "1.2" or "1.3"
	ClientAuthPolicy string `mapstructure:"clientAuthPolicy"` // require, request, verify
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RequestsPerMin int           `mapstructure:"requestsPerMin"`
	BurstCapacity  int           `mapstructure:"burstCapacity"`
	ByIP           bool          `mapstructure:"byIP"`
	ByAPIKey       bool          `mapstructure:"byAPIKey"`
	Window         time.Duration `mapstructure:"window"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
	MaxRequestSize   int64    `mapstructure:"maxRequestSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// CustomMetricsConfig selects which application metrics are recorded
type CustomMetricsConfig struct {
	Matching       MatchingMetricsConfig       `mapstructure:"matching"`
	Embedding      EmbeddingMetricsConfig      `mapstructure:"embedding"`
	Infrastructure InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

// MatchingMetricsConfig holds match batch metrics configuration
type MatchingMetricsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	TrackDuration bool `mapstructure:"trackDuration"`
	TrackScores   bool `mapstructure:"trackScores"`
}

// EmbeddingMetricsConfig holds embedding request metrics configuration
type EmbeddingMetricsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	TrackDuration bool `mapstructure:"trackDuration"`
	TrackCache    bool `mapstructure:"trackCache"`
}

// InfrastructureMetricsConfig holds infrastructure metrics configuration
type InfrastructureMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/resumatch/")
	v.AddConfigPath("$HOME/.resumatch")
	v.AddConfigPath(".")
	log.Println("[CONFIG] Configured config file search paths: /etc/resumatch/, $HOME/.resumatch, .")

	return loadFromViper(v, true)
}

// LoadConfigFile loads configuration from an explicit file path
func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return loadFromViper(v, false)
}

func loadFromViper(v *viper.Viper, optionalFile bool) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("RESUMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// MATCH_USE_EMBEDDINGS is honoured after the prefixed name
	if err := v.BindEnv("matching.useEmbeddings", "RESUMATCH_MATCHING_USEEMBEDDINGS", "MATCH_USE_EMBEDDINGS"); err != nil {
		return nil, fmt.Errorf("failed to bind environment variables: %w", err)
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || !optionalFile {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

var (
	supportedProviders     = []string{"openai", "gemini", "ollama"}
	supportedCacheBackends = []string{"none", "memory", "redis", "postgres"}
	sqlIdentifier          = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.validateMatching(); err != nil {
		return err
	}

	if err := c.validateEmbedding(); err != nil {
		return err
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if c.App.MaxFileSize <= 0 || c.App.MaxRequestSize <= 0 {
		return fmt.Errorf("maxFileSize and maxRequestSize must be positive")
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

func (c *Config) validateMatching() error {
	if !matching.ValidWeight(c.Matching.EmbeddingWeight) {
		return fmt.Errorf("matching.embeddingWeight must be between 0 and 1, got %v", c.Matching.EmbeddingWeight)
	}
	if c.Matching.Workers < 0 {
		return fmt.Errorf("matching.workers must not be negative")
	}
	if _, err := matching.ParseTieBreak(c.Matching.TieBreak); err != nil {
		return fmt.Errorf("matching.tieBreak: %w", err)
	}
	return nil
}

func (c *Config) validateEmbedding() error {
	e := c.Embedding
	if !slices.Contains(supportedProviders, e.Provider) {
		return fmt.Errorf("unsupported embedding provider: %s (must be one of %s)", e.Provider, strings.Join(supportedProviders, ", "))
	}
	if e.Timeout <= 0 {
		return fmt.Errorf("embedding timeout must be positive")
	}
	if e.MaxRetries < 0 {
		return fmt.Errorf("embedding maxRetries must not be negative")
	}
	if e.MaxInputChars <= 0 {
		return fmt.Errorf("embedding maxInputChars must be positive")
	}
	if e.CircuitBreaker.Enabled && (e.CircuitBreaker.FailureThreshold <= 0 || e.CircuitBreaker.FailureThreshold > 1) {
		return fmt.Errorf("circuit breaker failureThreshold must be in (0, 1]")
	}
	return e.Cache.validate()
}

func (cc CacheConfig) validate() error {
	if !slices.Contains(supportedCacheBackends, cc.Backend) {
		return fmt.Errorf("unsupported cache backend: %s (must be one of %s)", cc.Backend, strings.Join(supportedCacheBackends, ", "))
	}
	switch cc.Backend {
	case "redis":
		if cc.Redis.Addr == "" {
			return fmt.Errorf("redis cache requires embedding.cache.redis.addr")
		}
	case "postgres":
		if cc.Postgres.DSN == "" {
			return fmt.Errorf("postgres cache requires embedding.cache.postgres.dsn")
		}
		if !sqlIdentifier.MatchString(cc.Postgres.Table) {
			return fmt.Errorf("invalid postgres cache table name: %q", cc.Postgres.Table)
		}
		if cc.Postgres.Dimensions <= 0 {
			return fmt.Errorf("postgres cache requires positive dimensions")
		}
	}
	return nil
}

// EmbeddingsConfigured reports whether the embedding provider has what it
// needs to be called. Ollama runs locally and needs no key.
func (c *Config) EmbeddingsConfigured() bool {
	if c.Embedding.Provider == "ollama" {
		return c.Embedding.BaseURL != ""
	}
	return c.Embedding.APIKey != ""
}
