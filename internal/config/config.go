// Package config loads playwright-lab settings from .env, an optional YAML
// file and PWLAB_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendLocal  = "local"
	BackendDocker = "docker"
)

// Config holds all runtime settings.
type Config struct {
	ListenAddr     string `mapstructure:"listen_addr"`
	PlaygroundAddr string `mapstructure:"playground_addr"`
	StateDir       string `mapstructure:"state_dir"`
	ArtifactsDir   string `mapstructure:"artifacts_dir"`
	LogLevel       string `mapstructure:"log_level"`

	Browser BrowserConfig `mapstructure:"browser"`

	SessionConcurrency int           `mapstructure:"session_concurrency"`
	SessionRetention   time.Duration `mapstructure:"session_retention"`
	RateLimitPerHour   int `mapstructure:"rate_limit_per_hour"`
	RateLimitBurst     int `mapstructure:"rate_limit_burst"`
}

// BrowserConfig controls how browsers are launched.
type BrowserConfig struct {
	Engine          string        `mapstructure:"engine"`
	Backend         string        `mapstructure:"backend"`
	DockerImage     string        `mapstructure:"docker_image"`
	Headless        bool          `mapstructure:"headless"`
	SlowMo          time.Duration `mapstructure:"slow_mo"`
	InstallBrowsers bool          `mapstructure:"install_browsers"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// ValidationError lists every invalid setting at once.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("playground_addr", ":8090")
	v.SetDefault("state_dir", "./storage/states")
	v.SetDefault("artifacts_dir", "./test-results")
	v.SetDefault("log_level", "info")

	v.SetDefault("browser.engine", "chromium")
	v.SetDefault("browser.backend", BackendLocal)
	v.SetDefault("browser.docker_image", "browserless/chrome:latest")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.slow_mo", "0s")
	v.SetDefault("browser.install_browsers", false)
	v.SetDefault("browser.timeout", "5s")

	v.SetDefault("session_concurrency", 10)
	v.SetDefault("session_retention", "1h")
	v.SetDefault("rate_limit_per_hour", 100)
	v.SetDefault("rate_limit_burst", 10)
}

// Load reads configuration. configFile may be empty; a missing .env is not
// an error.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("PWLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var problems []string

	switch c.Browser.Engine {
	case "chromium", "firefox", "webkit":
	default:
		problems = append(problems, fmt.Sprintf("browser.engine must be chromium, firefox or webkit, got %q", c.Browser.Engine))
	}
	switch c.Browser.Backend {
	case BackendLocal, BackendDocker:
	default:
		problems = append(problems, fmt.Sprintf("browser.backend must be local or docker, got %q", c.Browser.Backend))
	}
	if c.Browser.Backend == BackendDocker && c.Browser.DockerImage == "" {
		problems = append(problems, "browser.docker_image is required for the docker backend")
	}
	if c.Browser.SlowMo < 0 {
		problems = append(problems, "browser.slow_mo must not be negative")
	}
	if c.Browser.Timeout <= 0 {
		problems = append(problems, "browser.timeout must be positive")
	}
	if c.SessionConcurrency < 1 {
		problems = append(problems, "session_concurrency must be at least 1")
	}
	if c.SessionRetention <= 0 {
		problems = append(problems, "session_retention must be positive")
	}
	if c.RateLimitPerHour < 1 {
		problems = append(problems, "rate_limit_per_hour must be at least 1")
	}
	if c.RateLimitBurst < 1 {
		problems = append(problems, "rate_limit_burst must be at least 1")
	}
	if c.StateDir == "" {
		problems = append(problems, "state_dir is required")
	}

	if len(problems) > 0 {
		return &ValidationError{Errors: problems}
	}
	return nil
}

// IsValidationError reports whether err came from Validate.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
