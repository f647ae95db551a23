package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the YAML file checked when ORQUESTRA_CONFIG is unset.
const DefaultConfigFile = "orquestra.yaml"

// Config holds all configuration for the orchestrator control plane.
type Config struct {
	Port      int             `yaml:"port"`
	Version   string          `yaml:"version"`
	LogLevel  string          `yaml:"log_level"`
	Store     StoreConfig     `yaml:"store"`
	Pacing    PacingConfig    `yaml:"pacing"`
	Terminal  TerminalConfig  `yaml:"terminal"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Auth      AuthConfig      `yaml:"auth"`
}

type StoreConfig struct {
	// Kind is "memory" (JSON snapshot), "sqlite" or "postgres".
	Kind    string `yaml:"kind"`
	DataDir string `yaml:"data_dir"`
	// PostgresURL is the connection URL used by the postgres kind.
	PostgresURL string `yaml:"postgres_url"`
}

type PacingConfig struct {
	// Mode is "real" (UI pacing delays) or "none".
	Mode      string        `yaml:"mode"`
	ToolDelay time.Duration `yaml:"tool_delay"`
	StepDelay time.Duration `yaml:"step_delay"`
}

type TerminalConfig struct {
	MaxLines int `yaml:"max_lines"`
}

type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

type AuthConfig struct {
	// APIKeys is a comma-separated list; empty disables auth.
	APIKeys string `yaml:"api_keys"`
}

// Keys splits APIKeys into individual keys, dropping blanks.
func (a AuthConfig) Keys() []string {
	var keys []string
	for _, k := range strings.Split(a.APIKeys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		Port:     8080,
		Version:  "0.1.0",
		LogLevel: "info",
		Store: StoreConfig{
			Kind: "memory",
		},
		Pacing: PacingConfig{
			Mode:      "real",
			ToolDelay: 500 * time.Millisecond,
			StepDelay: 300 * time.Millisecond,
		},
		Terminal: TerminalConfig{MaxLines: 500},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "orquestra-control-plane",
		},
	}
}

// Load reads configuration using the hierarchy defaults < YAML < env.
func Load() (*Config, error) {
	return LoadFrom(envStr("ORQUESTRA_CONFIG", DefaultConfigFile))
}

// LoadFrom is Load with an explicit YAML path. A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, path); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}
	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}
	return &cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func loadEnv(cfg *Config) {
	cfg.Port = envInt("ORQUESTRA_PORT", cfg.Port)
	cfg.Version = envStr("ORQUESTRA_VERSION", cfg.Version)
	cfg.LogLevel = envStr("ORQUESTRA_LOG_LEVEL", cfg.LogLevel)
	cfg.Store.Kind = envStr("ORQUESTRA_STORE", cfg.Store.Kind)
	cfg.Store.DataDir = envStr("ORQUESTRA_DATA_DIR", cfg.Store.DataDir)
	cfg.Store.PostgresURL = envStr("DATABASE_URL", cfg.Store.PostgresURL)
	cfg.Pacing.Mode = envStr("ORQUESTRA_PACING", cfg.Pacing.Mode)
	cfg.Pacing.ToolDelay = envDuration("ORQUESTRA_TOOL_DELAY", cfg.Pacing.ToolDelay)
	cfg.Pacing.StepDelay = envDuration("ORQUESTRA_STEP_DELAY", cfg.Pacing.StepDelay)
	cfg.Terminal.MaxLines = envInt("ORQUESTRA_TERMINAL_LINES", cfg.Terminal.MaxLines)
	cfg.Telemetry.Enabled = envBool("OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.OTLPEndpoint = envStr("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
	cfg.Telemetry.ServiceName = envStr("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
	cfg.Auth.APIKeys = envStr("ORQUESTRA_API_KEYS", cfg.Auth.APIKeys)
}

func validate(cfg *Config) error {
	switch cfg.Store.Kind {
	case "memory", "sqlite":
	case "postgres":
		if cfg.Store.PostgresURL == "" {
			return errors.New("postgres store requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
	}
	switch cfg.Pacing.Mode {
	case "real", "none":
	default:
		return fmt.Errorf("unknown pacing mode %q", cfg.Pacing.Mode)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.Terminal.MaxLines <= 0 {
		cfg.Terminal.MaxLines = Defaults().Terminal.MaxLines
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
