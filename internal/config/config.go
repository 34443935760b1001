// Package config provides process-wide configuration for the compliance engine.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all process-wide settings. The API key and model identifier
// are required for every code path that reaches the generation service, so
// both are validated at startup rather than mid-pipeline.
type Config struct {
	// GeminiAPIKey authenticates every call to the generation/retrieval service.
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY" required:"true"`
	// ModelID is the generation model used for extraction and verification.
	ModelID string `envconfig:"MODEL_ID" default:"gemini-2.5-flash"`
	// StandardRulesPath points at the default policy document used to seed
	// the shared admin store when it is empty. Optional; standard-mode runs
	// fail with a configuration error if seeding is needed and this is unset.
	StandardRulesPath string `envconfig:"STANDARD_RULES_PATH"`
	// Port is the HTTP listen port for serve mode.
	Port int `envconfig:"PORT" default:"8080"`
	// Verbose enables debug-level logging.
	Verbose bool `envconfig:"VERBOSE" default:"false"`
}

// Load reads configuration from the environment. Missing required values
// fail here, at startup.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return &cfg, nil
}
