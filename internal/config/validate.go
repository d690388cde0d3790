package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRateLimit(); err != nil {
		return err
	}
	if err := c.validateImport(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.TMDB.MaxHTTPRetries < 0 {
		return errors.New("tmdb.max_http_retries must be zero or positive")
	}
	return nil
}

// ValidateCatalog reports whether catalog lookups can be issued. Commands that
// only read stored jobs skip this check.
func (c *Config) ValidateCatalog() error {
	if c.TMDB.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("tmdb.api_key is required. Set TMDB_API_KEY env var or edit %s (create with 'watchlist config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateRateLimit() error {
	if c.RateLimit.MaxRequests <= 0 {
		return errors.New("rate_limit.max_requests must be positive")
	}
	if c.RateLimit.WindowMS <= 0 {
		return errors.New("rate_limit.window_ms must be positive")
	}
	switch c.RateLimit.Backend {
	case RateBackendMemory:
	case RateBackendRedis:
		if c.RateLimit.RedisURL == "" {
			return errors.New("rate_limit.redis_url must be set when rate_limit.backend is \"redis\"")
		}
	default:
		return fmt.Errorf("rate_limit.backend: unsupported value %q (want memory or redis)", c.RateLimit.Backend)
	}
	return nil
}

func (c *Config) validateImport() error {
	switch c.Import.ConflictStrategy {
	case conflictSkip, conflictOverwrite, conflictKeepHigherRating:
	default:
		return fmt.Errorf("import.conflict_strategy: unsupported value %q (want skip, overwrite, or keep_higher_rating)", c.Import.ConflictStrategy)
	}
	if c.Import.MinMatchScore < 0 || c.Import.MinMatchScore > 100 {
		return errors.New("import.min_match_score must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
