// Package config defines the process settings of the gateway and how they are
// read from command-line flags and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

// Flag names.
const (
	BindFlag           = "bind"
	ValidatorsFlag     = "validators"
	RequestTimeoutFlag = "request-timeout"
	RateLimitFlag      = "rate-limit"
	RateBurstFlag      = "rate-burst"
	MetricsFlag        = "metrics"
	LogLevelFlag       = "log-level"
	LogDevFlag         = "log-dev"
	LogFileFlag        = "log-file"
)

// ErrMissingValidators is returned when the validators source does not exist.
var ErrMissingValidators = errors.New("validators csv file not found")

// Settings holds everything the process needs to start serving.
type Settings struct {
	BindAddress    string
	ValidatorsPath string
	LogLevel       string
	LogFile        string
	RequestTimeout time.Duration
	RateLimit      float64
	RateBurst      int
	MetricsEnabled bool
	LogDevelopment bool
}

// Flags returns the CLI flags backing Settings. Every flag can also be set
// through the environment variable listed in its EnvVars.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    BindFlag,
			Usage:   "address the gateway listens on",
			Value:   "0.0.0.0:80",
			EnvVars: []string{"BIND_ADDRESS"},
		},
		&cli.StringFlag{
			Name:    ValidatorsFlag,
			Usage:   "path to the validators CSV (or .yaml) file",
			Value:   "config/validators.csv",
			EnvVars: []string{"VALIDATORS_CSV"},
		},
		&cli.DurationFlag{
			Name:    RequestTimeoutFlag,
			Usage:   "round-trip timeout for a forwarded request",
			Value:   15 * time.Second,
			EnvVars: []string{"REQUEST_TIMEOUT"},
		},
		&cli.Float64Flag{
			Name:    RateLimitFlag,
			Usage:   "proxied requests per second across all callers, 0 disables limiting",
			Value:   0,
			EnvVars: []string{"RATE_LIMIT"},
		},
		&cli.IntFlag{
			Name:    RateBurstFlag,
			Usage:   "burst size of the rate limiter",
			Value:   20,
			EnvVars: []string{"RATE_BURST"},
		},
		&cli.BoolFlag{
			Name:    MetricsFlag,
			Usage:   "expose Prometheus metrics on /metrics",
			Value:   true,
			EnvVars: []string{"METRICS_ENABLED"},
		},
		&cli.StringFlag{
			Name:    LogLevelFlag,
			Usage:   "log level (debug, info, warn, error)",
			Value:   "info",
			EnvVars: []string{"LOG_LEVEL"},
		},
		&cli.BoolFlag{
			Name:    LogDevFlag,
			Usage:   "human readable console logs",
			EnvVars: []string{"LOG_DEV"},
		},
		&cli.StringFlag{
			Name:    LogFileFlag,
			Usage:   "write logs to this file with rotation instead of stderr",
			EnvVars: []string{"LOG_FILE"},
		},
	}
}

// FromContext reads and validates Settings from parsed flags.
func FromContext(c *cli.Context) (Settings, error) {
	s := Settings{
		BindAddress:    c.String(BindFlag),
		ValidatorsPath: c.String(ValidatorsFlag),
		RequestTimeout: c.Duration(RequestTimeoutFlag),
		RateLimit:      c.Float64(RateLimitFlag),
		RateBurst:      c.Int(RateBurstFlag),
		MetricsEnabled: c.Bool(MetricsFlag),
		LogLevel:       c.String(LogLevelFlag),
		LogDevelopment: c.Bool(LogDevFlag),
		LogFile:        c.String(LogFileFlag),
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the settings and that the validators source exists.
func (s Settings) Validate() error {
	if s.BindAddress == "" {
		return errors.New("bind address must not be empty")
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", s.RequestTimeout)
	}
	if s.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %v", s.RateLimit)
	}
	if s.RateLimit > 0 && s.RateBurst < 1 {
		return fmt.Errorf("rate burst must be at least 1, got %d", s.RateBurst)
	}
	info, err := os.Stat(s.ValidatorsPath)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w at %s", ErrMissingValidators, s.ValidatorsPath)
	}
	return nil
}
