package config

import (
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	return c.validateBehavior()
}

func (c *Config) validateTMDB() error {
	if c.TMDB.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/spool/config.toml"
		}
		return fmt.Errorf("tmdb.api_key is required. Set TMDB_API_KEY env var or edit %s (create with 'spool config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateTranscode() error {
	if c.Transcode.Workers <= 0 {
		return fmt.Errorf("transcode.workers must be positive")
	}
	return nil
}

func (c *Config) validateBehavior() error {
	switch c.Behavior.UnmatchedPolicy {
	case PolicyFallback, PolicyReview:
		return nil
	default:
		return fmt.Errorf("behavior.unmatched_policy must be %q or %q, got %q", PolicyFallback, PolicyReview, c.Behavior.UnmatchedPolicy)
	}
}
