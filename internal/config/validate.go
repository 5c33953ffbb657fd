package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTransform(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.LibraryDir == "" {
		return errors.New("paths.library_dir must be set")
	}
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateTransform() error {
	if c.Transform.Quality < 1 || c.Transform.Quality > 100 {
		return fmt.Errorf("transform.quality must be between 1 and 100, got %d", c.Transform.Quality)
	}
	if c.Transform.ThumbnailQuality < 1 || c.Transform.ThumbnailQuality > 100 {
		return fmt.Errorf("transform.thumbnail_quality must be between 1 and 100, got %d", c.Transform.ThumbnailQuality)
	}
	if c.Transform.ThumbnailWidth > c.Transform.MaxWidth {
		return errors.New("transform.thumbnail_width exceeds transform.max_width")
	}
	if c.Transform.ThumbnailHeight > c.Transform.MaxHeight {
		return errors.New("transform.thumbnail_height exceeds transform.max_height")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
