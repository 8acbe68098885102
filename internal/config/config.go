// Package config loads application configuration from environment variables
// (IPU_ prefix) merged over an optional YAML file, with struct-tag defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/ipucli.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	// MatrixFile is the predial matrix spreadsheet (sheet "MATRIZ").
	MatrixFile string `yaml:"matrix_file" envconfig:"MATRIX_FILE" default:"data/MATRIZ PREDIAL_resumida.xlsx"`
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"reports"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("IPU", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := getConfigFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeConfigs resolves precedence per field: an explicitly set environment
// variable wins, then the file value, then the envconfig default already in
// env. Booleans keep their env/default value since an unset YAML bool is
// indistinguishable from false.
func mergeConfigs(file, env Config) Config {
	merged := env

	merged.Server.Port = pickInt("IPU_SERVER_PORT", env.Server.Port, file.Server.Port)
	merged.Server.ReadTimeout = pickDuration("IPU_SERVER_READ_TIMEOUT", env.Server.ReadTimeout, file.Server.ReadTimeout)
	merged.Server.WriteTimeout = pickDuration("IPU_SERVER_WRITE_TIMEOUT", env.Server.WriteTimeout, file.Server.WriteTimeout)
	merged.Server.IdleTimeout = pickDuration("IPU_SERVER_IDLE_TIMEOUT", env.Server.IdleTimeout, file.Server.IdleTimeout)
	merged.Server.ShutdownTimeout = pickDuration("IPU_SERVER_SHUTDOWN_TIMEOUT", env.Server.ShutdownTimeout, file.Server.ShutdownTimeout)

	if _, set := os.LookupEnv("IPU_SECURITY_ALLOWED_ORIGINS"); !set && len(file.Security.AllowedOrigins) > 0 {
		merged.Security.AllowedOrigins = file.Security.AllowedOrigins
	}
	merged.Security.RateLimit.RPS = pickFloat("IPU_SECURITY_RATE_LIMIT_RPS", env.Security.RateLimit.RPS, file.Security.RateLimit.RPS)
	merged.Security.RateLimit.Burst = pickInt("IPU_SECURITY_RATE_LIMIT_BURST", env.Security.RateLimit.Burst, file.Security.RateLimit.Burst)

	merged.Logging.Level = pickString("IPU_LOGGING_LEVEL", env.Logging.Level, file.Logging.Level)
	merged.Logging.Output = pickString("IPU_LOGGING_OUTPUT", env.Logging.Output, file.Logging.Output)
	merged.Logging.FilePath = pickString("IPU_LOGGING_FILE_PATH", env.Logging.FilePath, file.Logging.FilePath)

	merged.Paths.MatrixFile = pickString("IPU_PATHS_MATRIX_FILE", env.Paths.MatrixFile, file.Paths.MatrixFile)
	merged.Paths.DataDir = pickString("IPU_PATHS_DATA_DIR", env.Paths.DataDir, file.Paths.DataDir)
	merged.Paths.ReportsDir = pickString("IPU_PATHS_REPORTS_DIR", env.Paths.ReportsDir, file.Paths.ReportsDir)
	merged.Paths.LogsDir = pickString("IPU_PATHS_LOGS_DIR", env.Paths.LogsDir, file.Paths.LogsDir)

	return merged
}

func pickString(envKey, envVal, fileVal string) string {
	if _, set := os.LookupEnv(envKey); set {
		return envVal
	}
	if fileVal != "" {
		return fileVal
	}
	return envVal
}

func pickInt(envKey string, envVal, fileVal int) int {
	if _, set := os.LookupEnv(envKey); set {
		return envVal
	}
	if fileVal != 0 {
		return fileVal
	}
	return envVal
}

func pickFloat(envKey string, envVal, fileVal float64) float64 {
	if _, set := os.LookupEnv(envKey); set {
		return envVal
	}
	if fileVal != 0 {
		return fileVal
	}
	return envVal
}

func pickDuration(envKey string, envVal, fileVal time.Duration) time.Duration {
	if _, set := os.LookupEnv(envKey); set {
		return envVal
	}
	if fileVal != 0 {
		return fileVal
	}
	return envVal
}

// getConfigFilePath returns the config file location. IPU_CONFIG_FILE
// overrides the default config.yaml next to the working directory.
func getConfigFilePath() string {
	if path := os.Getenv("IPU_CONFIG_FILE"); path != "" {
		return path
	}
	return "config.yaml"
}

// resolvePaths makes all configured paths absolute relative to the working
// directory.
func (c *Config) resolvePaths() error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}

	abs := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(wd, p)
	}

	c.Paths.MatrixFile = abs(c.Paths.MatrixFile)
	c.Paths.DataDir = abs(c.Paths.DataDir)
	c.Paths.ReportsDir = abs(c.Paths.ReportsDir)
	c.Paths.LogsDir = abs(c.Paths.LogsDir)
	if !filepath.IsAbs(c.Logging.FilePath) {
		c.Logging.FilePath = filepath.Join(wd, c.Logging.FilePath)
	}

	return nil
}

// validate checks configuration invariants
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Paths.MatrixFile == "" {
		return fmt.Errorf("matrix file path must not be empty")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	return nil
}

// EnsureDirectories creates the writable directories if missing
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ReportsDir, c.Paths.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether path exists and is a regular file
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
