package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOllamaBaseURL = "http://localhost:11434"
)

// defaultModels holds the embedding model used when none is configured
var defaultModels = map[string]string{
	"openai": "text-embedding-3-small",
	"gemini": "text-embedding-004",
	"ollama": "nomic-embed-text",
}

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyEmbeddingDefaults()
	c.applyServerAPIKeyFallbacks()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
}

// applyEmbeddingDefaults fills provider specific values left empty, reading the
// provider's conventional environment variables
func (c *Config) applyEmbeddingDefaults() {
	e := &c.Embedding
	e.Provider = strings.ToLower(strings.TrimSpace(e.Provider))

	switch e.Provider {
	case "openai":
		if e.APIKey == "" {
			e.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if e.BaseURL == "" {
			e.BaseURL = firstNonEmpty(os.Getenv("OPENAI_BASE_URL"), defaultOpenAIBaseURL)
		}
		if e.Model == "" {
			e.Model = os.Getenv("OPENAI_EMBEDDING_MODEL")
		}
	case "gemini":
		if e.APIKey == "" {
			e.APIKey = firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
		}
	case "ollama":
		if e.BaseURL == "" {
			e.BaseURL = firstNonEmpty(os.Getenv("OLLAMA_HOST"), defaultOllamaBaseURL)
		}
	}

	if e.Model == "" {
		e.Model = defaultModels[e.Provider]
	}
	e.BaseURL = strings.TrimRight(e.BaseURL, "/")
	e.Cache.Backend = strings.ToLower(e.Cache.Backend)
	if e.Cache.Backend == "" {
		e.Cache.Backend = "none"
	}
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables.
// Keys are always trimmed: viper splits a comma separated env value but keeps
// the surrounding spaces.
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		c.Server.APIKeys = splitAndTrim(os.Getenv("RESUMATCH_SERVER_APIKEYS"))
		return
	}
	c.Server.APIKeys = splitAndTrim(strings.Join(c.Server.APIKeys, ","))
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "" {
		c.Server.TLS.Mode = "disabled"
	}
	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// splitAndTrim splits a comma separated list, dropping empty entries
func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// MaskSecret keeps the first and last four characters of long secrets
func MaskSecret(s string) string {
	switch {
	case len(s) > 8:
		return s[:4] + "****" + s[len(s)-4:]
	case s != "":
		return "****"
	default:
		return ""
	}
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
		"RESUMATCH_EMBEDDING_PROVIDER",
		"RESUMATCH_EMBEDDING_MODEL",
		"RESUMATCH_EMBEDDING_APIKEY",
		"RESUMATCH_MATCHING_EMBEDDINGWEIGHT",
		"RESUMATCH_SERVER_PORT",
		"RESUMATCH_SERVER_HOST",
		"RESUMATCH_APP_LOGLEVEL",
		"RESUMATCH_VAULT_ENABLED",
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"OPENAI_EMBEDDING_MODEL",
		"MATCH_USE_EMBEDDINGS",
		"GEMINI_API_KEY",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if strings.Contains(strings.ToLower(envVar), "key") {
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
	log.Printf("[CONFIG] Embedding Provider: %s", c.Embedding.Provider)
	log.Printf("[CONFIG] Embedding Model: %s", c.Embedding.Model)
	if c.Embedding.APIKey != "" {
		log.Println("[CONFIG] Embedding API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] Embedding API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Embeddings Enabled: %t", c.Matching.UseEmbeddings)
	log.Printf("[CONFIG] Embedding Weight: %.2f", c.Matching.EmbeddingWeight)
	log.Printf("[CONFIG] Embedding Cache: %s", c.Embedding.Cache.Backend)
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] TLS Mode: %s", c.Server.TLS.Mode)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}
