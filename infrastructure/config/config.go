// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion      string
	DynamoDBTable  string
	EventIndexName string // GSI2 - outbox events by status
	EventBusName   string

	// Ontology intent mappings. Empty values leave the intent unmapped and
	// the dependent cascade step is skipped.
	EntityHasImageIRI        string
	ArtifactContainsImageIRI string

	// Outbox relay
	RelayBatchSize  int
	RelayIntervalMS int
	RelayMaxRetries int

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Feature flags
	EnableMetrics bool
	EnableCORS    bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable:  getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "sandgraph")),
		EventIndexName: getEnv("EVENT_INDEX_NAME", "EventStatusIndex"),
		EventBusName:   getEnv("EVENT_BUS_NAME", "sandgraph-events"),

		EntityHasImageIRI:        getEnv("ENTITY_HAS_IMAGE_IRI", ""),
		ArtifactContainsImageIRI: getEnv("ARTIFACT_CONTAINS_IMAGE_IRI", ""),

		RelayBatchSize:  getEnvInt("RELAY_BATCH_SIZE", 25),
		RelayIntervalMS: getEnvInt("RELAY_INTERVAL_MS", 1000),
		RelayMaxRetries: getEnvInt("RELAY_MAX_RETRIES", 5),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "sandgraph"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", false),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required")
		}
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required")
		}
	}
	if c.RelayBatchSize <= 0 {
		return fmt.Errorf("RELAY_BATCH_SIZE must be positive")
	}
	return nil
}

// OntologyIntents returns the configured intent to IRI mapping
func (c *Config) OntologyIntents() map[string]string {
	return map[string]string{
		"entityHasImage":                c.EntityHasImageIRI,
		"artifactContainsImageOfEntity": c.ArtifactContainsImageIRI,
	}
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
