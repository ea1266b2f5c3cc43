package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the settings that can be supplied through the
// environment. Empty values leave the file setting untouched.
type envOverrides struct {
	Database      string `env:"BIRDWATCHER_DATABASE"`
	HistoryFile   string `env:"BIRDWATCHER_HISTORY_FILE"`
	LogLevel      string `env:"BIRDWATCHER_LOG_LEVEL"`
	Threads       int    `env:"BIRDWATCHER_THREADS"`
	SocialBaseURL string `env:"BIRDWATCHER_SOCIAL_BASE_URL"`
	SocialToken   string `env:"BIRDWATCHER_SOCIAL_TOKEN"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (s *Settings) applyEnv() error {
	var overrides envOverrides
	if err := ParseEnv(&overrides); err != nil {
		return err
	}
	if overrides.Database != "" {
		s.Database = overrides.Database
	}
	if overrides.HistoryFile != "" {
		s.HistoryFile = overrides.HistoryFile
	}
	if overrides.LogLevel != "" {
		s.LogLevel = overrides.LogLevel
	}
	if overrides.Threads != 0 {
		s.Threads = overrides.Threads
	}
	if overrides.SocialBaseURL != "" {
		s.Social.BaseURL = overrides.SocialBaseURL
	}
	if overrides.SocialToken != "" {
		s.Social.BearerToken = overrides.SocialToken
	}
	return nil
}
