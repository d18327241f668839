package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// App
	Env string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// Embedding service (optional; semantic similarity is disabled when unset)
	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	EmbeddingModel   string

	// Engine tuning
	FuzzyMatchThreshold float64 // minimum similarity for a fuzzy candidate
	MergeThreshold      float64 // minimum combined score for a confident merge
	HalfLifeDays        float64 // edge strength half-life
	StaleStrengthFloor  float64 // edges below this strength are considered stale
	DecayConcurrency    int     // parallel edge updates during a decay pass

	// Maintenance
	MaintenanceCron string // cron spec for the decay/prune schedule
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Env:              getEnv("ENV", "development"),
		Neo4jURI:         getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:        getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:    getEnv("NEO4J_PASSWORD", "password"),
		EmbeddingBaseURL: getEnv("EMBEDDING_BASE_URL", ""),
		EmbeddingAPIKey:  getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),

		FuzzyMatchThreshold: getEnvFloat("FUZZY_MATCH_THRESHOLD", 0.60),
		MergeThreshold:      getEnvFloat("MERGE_THRESHOLD", 0.75),
		HalfLifeDays:        getEnvFloat("HALF_LIFE_DAYS", 30),
		StaleStrengthFloor:  getEnvFloat("STALE_STRENGTH_FLOOR", 0.1),
		DecayConcurrency:    getEnvInt("DECAY_CONCURRENCY", 8),

		MaintenanceCron: getEnv("MAINTENANCE_CRON", "0 3 * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and sane
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return fmt.Errorf("NEO4J_URI is required")
	}
	if c.Neo4jUser == "" {
		return fmt.Errorf("NEO4J_USER is required")
	}
	if c.Neo4jPassword == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required")
	}
	if c.FuzzyMatchThreshold <= 0 || c.FuzzyMatchThreshold > 1 {
		return fmt.Errorf("FUZZY_MATCH_THRESHOLD must be in (0, 1]")
	}
	if c.MergeThreshold < c.FuzzyMatchThreshold || c.MergeThreshold > 1 {
		return fmt.Errorf("MERGE_THRESHOLD must be in [FUZZY_MATCH_THRESHOLD, 1]")
	}
	if c.HalfLifeDays <= 0 {
		return fmt.Errorf("HALF_LIFE_DAYS must be positive")
	}
	// Embedding settings are optional; the engine falls back to string similarity
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
