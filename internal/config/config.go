// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Regeneration policies for premium users re-requesting an answer.
const (
	RegenReplace = "replace"
	RegenAppend  = "append"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string

	JWTSecret string
	TokenTTL  time.Duration

	OCRURL       string
	AIBaseURL    string
	AIModel      string
	ImageHostURL string

	RegenPolicy      string
	SolverSessionTTL time.Duration

	PaymentQRCodeURL string
	PaymentPrice     float64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/studypal.db"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  30 * 24 * time.Hour,

		OCRURL:       getEnv("OCR_URL", ""),
		AIBaseURL:    getEnv("AI_BASE_URL", ""),
		AIModel:      getEnv("AI_MODEL", "gpt-4o-mini"),
		ImageHostURL: getEnv("IMAGE_HOST_URL", ""),

		RegenPolicy:      getEnv("SOLVER_REGEN_POLICY", RegenReplace),
		SolverSessionTTL: getEnvDuration("SOLVER_SESSION_TTL", 60*time.Minute),

		PaymentQRCodeURL: getEnv("PAYMENT_QR_CODE_URL", ""),
		PaymentPrice:     getEnvFloat("PAYMENT_PRICE", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if c.OCRURL == "" {
		return fmt.Errorf("OCR_URL cannot be empty")
	}
	if c.AIBaseURL == "" {
		return fmt.Errorf("AI_BASE_URL cannot be empty")
	}
	if c.RegenPolicy != RegenReplace && c.RegenPolicy != RegenAppend {
		return fmt.Errorf("SOLVER_REGEN_POLICY must be %q or %q", RegenReplace, RegenAppend)
	}
	if c.SolverSessionTTL <= 0 {
		return fmt.Errorf("SOLVER_SESSION_TTL must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
