package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeImageCache()
	c.normalizeTransform()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeImageCache() {
	if strings.TrimSpace(c.ImageCache.Dir) == "" {
		c.ImageCache.Dir = defaultCacheDir
	}
	if expanded, err := expandPath(c.ImageCache.Dir); err == nil {
		c.ImageCache.Dir = expanded
	}
	if c.ImageCache.MaxGiB <= 0 {
		c.ImageCache.MaxGiB = defaultCacheMaxGiB
	}
}

func (c *Config) normalizeTransform() {
	if c.Transform.Quality <= 0 {
		c.Transform.Quality = defaultQuality
	}
	if c.Transform.ThumbnailQuality <= 0 {
		c.Transform.ThumbnailQuality = defaultThumbnailQuality
	}
	if c.Transform.ThumbnailWidth <= 0 {
		c.Transform.ThumbnailWidth = defaultThumbnailWidth
	}
	if c.Transform.ThumbnailHeight <= 0 {
		c.Transform.ThumbnailHeight = defaultThumbnailHeight
	}
	if c.Transform.MaxWidth <= 0 {
		c.Transform.MaxWidth = defaultMaxWidth
	}
	if c.Transform.MaxHeight <= 0 {
		c.Transform.MaxHeight = defaultMaxHeight
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
