package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	DatabaseURL string `mapstructure:"database_url"`
	Port        string `mapstructure:"port"`
	Env         string `mapstructure:"go_env"`

	// Model artifacts: a local directory, or a bucket when MODELS_BUCKET is set
	ModelsDir      string `mapstructure:"models_dir"`
	ModelsBucket   string `mapstructure:"models_bucket"`
	ModelsPrefix   string `mapstructure:"models_prefix"`
	MinioEndpoint  string `mapstructure:"minio_endpoint"`
	MinioAccessKey string `mapstructure:"minio_access_key"`
	MinioSecretKey string `mapstructure:"minio_secret_key"`
	MinioUseSSL    bool   `mapstructure:"minio_use_ssl"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	// Tracing
	OTelExporter string `mapstructure:"otel_exporter"`
	OTelEndpoint string `mapstructure:"otel_endpoint"`

	// Dashboard windows
	RiskWindow       int           `mapstructure:"risk_window"`
	ProductionWindow int           `mapstructure:"production_window"`
	SupplierWindow   int           `mapstructure:"supplier_window"`
	StaleAfter       time.Duration `mapstructure:"stale_after"`

	// Simulator
	MachineInterval  time.Duration `mapstructure:"machine_interval"`
	SupplierInterval time.Duration `mapstructure:"supplier_interval"`
}

var defaults = map[string]any{
	"database_url":      "",
	"port":              "8080",
	"go_env":            "development",
	"models_dir":        "./models",
	"models_bucket":     "",
	"models_prefix":     "",
	"minio_endpoint":    "",
	"minio_access_key":  "",
	"minio_secret_key":  "",
	"minio_use_ssl":     false,
	"log_level":         "info",
	"log_file":          "",
	"otel_exporter":     "none",
	"otel_endpoint":     "",
	"risk_window":       5,
	"production_window": 1000,
	"supplier_window":   50,
	"stale_after":       2 * time.Minute,
	"machine_interval":  3 * time.Second,
	"supplier_interval": 5 * time.Second,
}

// Load reads .env, then an optional config.yaml from dir, then the environment.
// Environment variables win over the file. A missing file is not an error.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using system environment")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
		// AutomaticEnv only reaches keys viper knows about; binding makes
		// upper-case variables like DATABASE_URL visible to Unmarshal.
		if err := v.BindEnv(k, strings.ToUpper(k)); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", k, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unable to decode into struct: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.RiskWindow <= 0 || c.ProductionWindow <= 0 || c.SupplierWindow <= 0 {
		return fmt.Errorf("config: windows must be positive")
	}
	if c.MachineInterval <= 0 || c.SupplierInterval <= 0 {
		return fmt.Errorf("config: simulator intervals must be positive")
	}
	return nil
}

// UseBucket reports whether model artifacts come from object storage
func (c *Config) UseBucket() bool {
	return c.ModelsBucket != ""
}

// SlogLevel converts LogLevel to slog.Level
func (c *Config) SlogLevel() slog.Level {
	return ParseLogLevel(c.LogLevel)
}

// ConfigDir returns MILLOPS_CONFIG_DIR or the working directory
func ConfigDir() string {
	if dir := os.Getenv("MILLOPS_CONFIG_DIR"); dir != "" {
		return dir
	}
	return "."
}
