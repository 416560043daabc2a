// Package config loads and validates the wizard automation core's
// configuration surface (spec.md §6).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Environment represents the deployment environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Engine selects the browser engine the driver launches.
type Engine string

const (
	EngineChromium Engine = "chromium"
	EngineWebKit   Engine = "webkit"
	EngineFirefox  Engine = "firefox"
)

func (e Engine) IsValid() bool {
	switch e {
	case EngineChromium, EngineWebKit, EngineFirefox:
		return true
	}
	return false
}

// Config holds all application configuration.
type Config struct {
	Env      Environment `envconfig:"ENV" default:"development"`
	LogLevel string      `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool        `envconfig:"DEBUG" default:"false"`

	App        AppConfig
	Browser    BrowserConfig
	Timeouts   TimeoutConfig
	Screenshot ScreenshotConfig
	Storage    StorageConfig
	Session    SessionConfig
	RateLimit  RateLimitConfig
}

// AppConfig holds application metadata.
type AppConfig struct {
	Name    string `envconfig:"APP_NAME" default:"wizard-automation"`
	Version string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// BrowserConfig configures the C1 browser driver (spec.md §4.1).
type BrowserConfig struct {
	Engine    Engine `envconfig:"BROWSER_ENGINE" default:"chromium"`
	Headless  bool   `envconfig:"BROWSER_HEADLESS" default:"true"`
	SlowMoMs  int    `envconfig:"BROWSER_SLOW_MO_MS" default:"0"`
	ViewportW int    `envconfig:"BROWSER_VIEWPORT_W" default:"1280"`
	ViewportH int    `envconfig:"BROWSER_VIEWPORT_H" default:"800"`
}

// TimeoutConfig is the four-layer timeout hierarchy (spec.md §4.1, §8 S6).
type TimeoutConfig struct {
	NavigationMs int `envconfig:"NAVIGATION_TIMEOUT_MS" default:"120000"` // L1 default and L2 value
	ExecutionSec int `envconfig:"EXECUTION_TIMEOUT_S" default:"180"`      // L3
	RequestSec   int `envconfig:"REQUEST_TIMEOUT_S" default:"240"`        // L4
}

// L1 returns the page-default (element operation) timeout.
func (t TimeoutConfig) L1() time.Duration { return time.Duration(t.NavigationMs) * time.Millisecond }

// L2 returns the navigation timeout.
func (t TimeoutConfig) L2() time.Duration { return time.Duration(t.NavigationMs) * time.Millisecond }

// L3 returns the whole-replay execution timeout.
func (t TimeoutConfig) L3() time.Duration { return time.Duration(t.ExecutionSec) * time.Second }

// L4 returns the enclosing request timeout.
func (t TimeoutConfig) L4() time.Duration { return time.Duration(t.RequestSec) * time.Second }

// ValidateHierarchy enforces spec.md's strict L1 ≤ L2 < L3 < L4 chain.
// A violation must be rejected at configuration time; no partial run may begin.
func (t TimeoutConfig) ValidateHierarchy() error {
	l1, l2, l3, l4 := t.L1(), t.L2(), t.L3(), t.L4()
	if l1 > l2 {
		return fmt.Errorf("timeout hierarchy violation: L1 (%s) > L2 (%s)", l1, l2)
	}
	if l2 >= l3 {
		return fmt.Errorf("timeout hierarchy violation: L2 (%s) >= L3 (%s)", l2, l3)
	}
	if l3 >= l4 {
		return fmt.Errorf("timeout hierarchy violation: L3 (%s) >= L4 (%s)", l3, l4)
	}
	return nil
}

// ScreenshotConfig configures screenshot capture and optimization (spec.md §4.1).
type ScreenshotConfig struct {
	Quality  int `envconfig:"SCREENSHOT_QUALITY" default:"60"`
	MaxBytes int `envconfig:"SCREENSHOT_MAX_BYTES" default:"51200"` // ~50KB
}

// StorageConfig configures the on-disk layout (spec.md §6).
type StorageConfig struct {
	WizardsDir string `envconfig:"WIZARDS_DIR" default:"wizards"`
}

// ResolvedWizardsDir returns the effective wizards directory, honoring
// the documented environment override precedence: <AGENT>_WIZARDS_DIR
// (here WIZARD_AGENT_WIZARDS_DIR) beats the configured/default value.
func (s StorageConfig) ResolvedWizardsDir() string {
	if v := os.Getenv("WIZARD_AGENT_WIZARDS_DIR"); v != "" {
		return v
	}
	return s.WizardsDir
}

// SessionConfig configures the discovery session store (spec.md §4.4).
type SessionConfig struct {
	IdleTimeoutSec  int `envconfig:"IDLE_SESSION_TIMEOUT_S" default:"1800"`
	ReapIntervalSec int `envconfig:"SESSION_REAP_INTERVAL_S" default:"60"`
}

func (s SessionConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSec) * time.Second
}

func (s SessionConfig) ReapInterval() time.Duration {
	return time.Duration(s.ReapIntervalSec) * time.Second
}

// RateLimitConfig bounds how fast the execution service may launch new
// browser processes (spec.md §5 "parallelism exists across requests").
type RateLimitConfig struct {
	LaunchesPerSecond float64 `envconfig:"BROWSER_LAUNCH_RATE" default:"2"`
	Burst             int     `envconfig:"BROWSER_LAUNCH_BURST" default:"4"`
}

// Load loads configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration, including the mandatory
// timeout hierarchy check (spec.md §8 testable property S6).
func (c *Config) Validate() error {
	var errs []string

	if !c.Browser.Engine.IsValid() {
		errs = append(errs, fmt.Sprintf("invalid browser engine: %s", c.Browser.Engine))
	}

	if c.Screenshot.Quality < 1 || c.Screenshot.Quality > 100 {
		errs = append(errs, fmt.Sprintf("screenshot quality out of range [1,100]: %d", c.Screenshot.Quality))
	}

	if err := c.Timeouts.ValidateHierarchy(); err != nil {
		errs = append(errs, err.Error())
	}

	if c.RateLimit.LaunchesPerSecond <= 0 {
		errs = append(errs, fmt.Sprintf("browser launch rate must be positive: %v", c.RateLimit.LaunchesPerSecond))
	}
	if c.RateLimit.Burst < 1 {
		errs = append(errs, fmt.Sprintf("browser launch burst must be at least 1: %d", c.RateLimit.Burst))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (c *Config) IsDevelopment() bool { return c.Env == EnvDevelopment }
func (c *Config) IsProduction() bool  { return c.Env == EnvProduction }

// GetLogLevel returns the effective zap log level name.
func (c *Config) GetLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}
