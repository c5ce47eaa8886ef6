// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "forecast-narrator/internal/common/errors"
)

const (
	DefaultPort    = 3001
	DefaultModel   = "gpt-3.5-turbo"
	DefaultBaseURL = "https://api.openai.com/v1"
)

// Load reads configuration from (in increasing precedence) built-in defaults,
// configs/config.yaml, configs/config.<APP_ENVIRONMENT>.yaml and the environment.
// A .env file is loaded first when one can be found.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, apperrors.NewConfigurationError(fmt.Sprintf("error reading base config: %v", err))
		}
	}

	env := v.GetString("app.environment")
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path. Environment
// variables still override file values.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("failed to read config file %s: %v", path, err))
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	// PROVIDER_MODEL, LOGGING_LEVEL, RATE_LIMIT_REDIS_ADDRESS, ...
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Conventional names that do not follow the key layout.
	_ = v.BindEnv("provider.api_key", "OPENAI_API_KEY", "PROVIDER_API_KEY")
	_ = v.BindEnv("server.port", "PORT", "SERVER_PORT")
	_ = v.BindEnv("app.environment", "APP_ENVIRONMENT")
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "forecast-narrator")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.body_limit", 16*1024)
	v.SetDefault("server.shutdown_timeout", 30000)

	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.base_url", DefaultBaseURL)
	v.SetDefault("provider.model", DefaultModel)
	v.SetDefault("provider.temperature", 0.8)
	v.SetDefault("provider.max_tokens", 1024)
	v.SetDefault("provider.json_mode", true)
	v.SetDefault("provider.timeout", 30000)
	v.SetDefault("provider.max_retries", 2)
	v.SetDefault("provider.retry_delay", 200)
	v.SetDefault("provider.requests_per_second", 0)
	v.SetDefault("provider.burst", 1)

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests_per_minute", 30)
	v.SetDefault("rate_limit.redis.address", "localhost:6379")
	v.SetDefault("rate_limit.redis.password", "")
	v.SetDefault("rate_limit.redis.db", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("failed to unmarshal config: %v", err))
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFile loads the first .env found in the working directory, its parents
// or the module root. Existing environment variables are never overwritten.
func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values from config files.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// applyDefaults repairs values that were explicitly set to something unusable.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = DefaultBaseURL
	}
	cfg.Provider.BaseURL = strings.TrimRight(cfg.Provider.BaseURL, "/")
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = DefaultModel
	}
	if cfg.Provider.Timeout <= 0 {
		cfg.Provider.Timeout = 30000
	}
	if cfg.Provider.MaxRetries < 0 {
		cfg.Provider.MaxRetries = 0
	}
	if cfg.Provider.Burst <= 0 {
		cfg.Provider.Burst = 1
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 30000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.Provider.APIKey) == "" {
		return apperrors.NewConfigurationError("OPENAI_API_KEY is not defined")
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return apperrors.NewConfigurationError(fmt.Sprintf("server.port %d is out of range", cfg.Server.Port))
	}
	if cfg.Provider.Temperature < 0 || cfg.Provider.Temperature > 2 {
		return apperrors.NewConfigurationError(fmt.Sprintf("provider.temperature %.2f must be within [0, 2]", cfg.Provider.Temperature))
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Redis.Address == "" {
			return apperrors.NewConfigurationError("rate_limit.redis.address is required when rate_limit.enabled is set")
		}
		if cfg.RateLimit.RequestsPerMinute <= 0 {
			return apperrors.NewConfigurationError("rate_limit.requests_per_minute must be positive")
		}
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
