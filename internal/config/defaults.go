package config

const (
	defaultLibraryDir       = "~/manga"
	defaultDataDir          = "~/.local/share/tosho"
	defaultLogDir           = "~/.local/share/tosho/logs"
	defaultCacheDir         = "~/.cache/tosho/images"
	defaultAPIBind          = "127.0.0.1:7850"
	defaultCacheMaxGiB      = 4
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultQuality          = 85
	defaultThumbnailQuality = 75
	defaultThumbnailWidth   = 300
	defaultThumbnailHeight  = 400
	defaultMaxWidth         = 1920
	defaultMaxHeight        = 2560
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		ImageCache: ImageCache{
			Dir:    defaultCacheDir,
			MaxGiB: defaultCacheMaxGiB,
		},
		Transform: Transform{
			Quality:          defaultQuality,
			ThumbnailQuality: defaultThumbnailQuality,
			ThumbnailWidth:   defaultThumbnailWidth,
			ThumbnailHeight:  defaultThumbnailHeight,
			MaxWidth:         defaultMaxWidth,
			MaxHeight:        defaultMaxHeight,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
