// internal/provider/config.go
package provider

import (
	"time"

	"forecast-narrator/internal/common/config"
)

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	JSONMode    bool
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration

	RequestsPerSecond float64
	Burst             int
}

// LoadConfig converts the provider section of the application config.
func LoadConfig(p config.ProviderConfig) *Config {
	return &Config{
		APIKey:            p.APIKey,
		BaseURL:           p.BaseURL,
		Model:             p.Model,
		Temperature:       p.Temperature,
		MaxTokens:         p.MaxTokens,
		JSONMode:          p.JSONMode,
		Timeout:           config.GetDuration(p.Timeout),
		MaxRetries:        p.MaxRetries,
		RetryDelay:        config.GetDuration(p.RetryDelay),
		RequestsPerSecond: p.RequestsPerSecond,
		Burst:             p.Burst,
	}
}
