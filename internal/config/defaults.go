package config

const (
	defaultConfigPath       = "~/.config/mediacache/config.toml"
	defaultDataDir          = "~/.local/share/mediacache"
	defaultLockDir          = "~/.local/share/mediacache/lock"
	defaultLogDir           = "~/.local/share/mediacache/logs"
	defaultTemplatesFile    = "~/.config/mediacache/templates.toml"
	defaultStorageDir       = "~/.local/share/mediacache/storage"
	defaultStorageName      = "default"
	defaultStorageType      = "filesystem"
	defaultItemTimeout      = 1800
	defaultBatchSize        = 100
	defaultStaleAfterHours  = 24
	defaultHTTPBind         = "127.0.0.1:7488"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
	defaultNtfyTimeout      = 10
)

// KnownWorkers lists the worker names accepted in processor.workers.
var KnownWorkers = []string{"video", "audio", "image", "pdf", "original"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:       defaultDataDir,
			LockDir:       defaultLockDir,
			TempDir:       defaultTempDir(),
			LogDir:        defaultLogDir,
			TemplatesFile: defaultTemplatesFile,
		},
		Tools: Tools{
			FFmpeg:   "ffmpeg",
			FFprobe:  "ffprobe",
			Soffice:  "soffice",
			Pdftoppm: "pdftoppm",
		},
		Processor: Processor{
			Workers:         append([]string(nil), KnownWorkers...),
			ItemTimeout:     defaultItemTimeout,
			BatchSize:       defaultBatchSize,
			StaleAfterHours: defaultStaleAfterHours,
		},
		Storages: []Storage{
			{Name: defaultStorageName, Type: defaultStorageType, Dir: defaultStorageDir},
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		HTTP: HTTP{
			Bind: defaultHTTPBind,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
	}
}
