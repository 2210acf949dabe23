// Package config loads engine configuration from YAML and environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the assistant engine.
// Configuration can come from a YAML file (config.yaml) or environment
// variables; environment variables override YAML values. Secrets (database
// password, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// Registry database (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Text generation endpoint
	AI AIConfig `yaml:"ai"`

	// Request pipeline tuning
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Chart rendering output
	Charts ChartsConfig `yaml:"charts"`

	// Static public knowledge file
	KnowledgePath string `yaml:"knowledge_path" env:"KNOWLEDGE_PATH" env-default:"data/public_data.json"`
}

// DatabaseConfig holds PostgreSQL connection configuration for the registry.
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User     string `yaml:"user" env:"PGUSER" env-default:"coopassist"`
	Password string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"PGDATABASE" env-default:"coop_registry"`
	SSLMode  string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`

	// RunMigrations controls whether embedded schema migrations run at startup.
	RunMigrations bool `yaml:"run_migrations" env:"PGRUN_MIGRATIONS" env-default:"true"`
}

// URL builds the connection string for the registry database.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User), url.QueryEscape(d.Password),
		d.Host, d.Port, d.Database, d.SSLMode)
}

// AIConfig holds text-generation endpoint configuration.
// Provider selects the client implementation: "openai" for any
// OpenAI-compatible endpoint (including local vLLM/Ollama), "anthropic"
// for the Anthropic messages API.
type AIConfig struct {
	Provider    string  `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`
	Endpoint    string  `yaml:"endpoint" env:"AI_ENDPOINT" env-default:"http://localhost:11434/v1"`
	Model       string  `yaml:"model" env:"AI_MODEL" env-default:"qwen2.5-coder"`
	APIKey      string  `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML
	Temperature float64 `yaml:"temperature" env:"AI_TEMPERATURE" env-default:"0"`
}

// PipelineConfig tunes request-pipeline behavior.
type PipelineConfig struct {
	// PlannerMaxAttempts bounds the generate-validate-execute loop.
	PlannerMaxAttempts int `yaml:"planner_max_attempts" env:"PLANNER_MAX_ATTEMPTS" env-default:"3"`

	// AnswerMaxChars is the character ceiling applied to synthesized answers.
	AnswerMaxChars int `yaml:"answer_max_chars" env:"ANSWER_MAX_CHARS" env-default:"280"`
}

// ChartsConfig controls where rendered charts are written and how they are served.
type ChartsConfig struct {
	// Dir is the directory rendered chart files are written into.
	Dir string `yaml:"dir" env:"CHARTS_DIR" env-default:"static/graphs"`

	// URLPrefix is the path prefix charts are served under.
	URLPrefix string `yaml:"url_prefix" env:"CHARTS_URL_PREFIX" env-default:"/static/graphs"`
}

// Load reads configuration from config.yaml (if present) and the environment.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AI.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("ai provider must be openai or anthropic, got %q", c.AI.Provider)
	}
	if c.Pipeline.PlannerMaxAttempts < 1 {
		return fmt.Errorf("planner_max_attempts must be at least 1, got %d", c.Pipeline.PlannerMaxAttempts)
	}
	if c.Pipeline.AnswerMaxChars < 1 {
		return fmt.Errorf("answer_max_chars must be at least 1, got %d", c.Pipeline.AnswerMaxChars)
	}
	return nil
}
