package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every runtime setting, e.g. COPYTRADER_MIRROR_POLL_INTERVAL.
const EnvPrefix = "COPYTRADER"

// Settings are the runtime knobs that are not account credentials.
type Settings struct {
	Terminal struct {
		URL     string        `envconfig:"URL" default:"http://127.0.0.1:8228"`
		Timeout time.Duration `envconfig:"TIMEOUT" default:"30s"`
	} `envconfig:"TERMINAL"`

	Mirror struct {
		PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"1s"`
		RetryBackoff time.Duration `envconfig:"RETRY_BACKOFF" default:"2s"`
		Deviation    int           `envconfig:"DEVIATION" default:"20"`
		Magic        int64         `envconfig:"MAGIC" default:"0"`
		FollowCloses bool          `envconfig:"FOLLOW_CLOSES" default:"false"`
	} `envconfig:"MIRROR"`

	Log struct {
		Level      string `envconfig:"LEVEL" default:"info"`
		File       string `envconfig:"FILE"`
		MaxSizeMB  int    `envconfig:"MAX_SIZE" default:"50"`
		MaxBackups int    `envconfig:"MAX_BACKUPS" default:"5"`
	} `envconfig:"LOG"`

	Journal struct {
		Type string `envconfig:"TYPE" default:"sqlite"`
		Path string `envconfig:"PATH" default:"./copytrader.sqlite"`
	} `envconfig:"JOURNAL"`
}

// LoadSettings reads an optional .env file and then the environment.
func LoadSettings(envFiles ...string) (*Settings, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var s Settings
	if err := envconfig.Process(EnvPrefix, &s); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return &s, nil
}

// Validate checks the runtime settings.
func (s *Settings) Validate() error {
	if s.Mirror.PollInterval <= 0 {
		return fmt.Errorf("MIRROR_POLL_INTERVAL must be positive")
	}
	if s.Mirror.RetryBackoff <= 0 {
		return fmt.Errorf("MIRROR_RETRY_BACKOFF must be positive")
	}
	if s.Mirror.Deviation < 0 {
		return fmt.Errorf("MIRROR_DEVIATION must not be negative")
	}
	switch s.Journal.Type {
	case "sqlite", "csv", "none":
	default:
		return fmt.Errorf("JOURNAL_TYPE must be 'sqlite', 'csv' or 'none'")
	}
	if s.Journal.Type != "none" && s.Journal.Path == "" {
		return fmt.Errorf("JOURNAL_PATH required for %s journal", s.Journal.Type)
	}
	return nil
}
