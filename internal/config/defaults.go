package config

// Detector modes accepted by file_service.mode.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

const (
	defaultDataDir            = "~/.local/share/pictor"
	defaultWatchDir           = "~/pictures/generated"
	defaultTemplatesDir       = "~/.config/pictor/templates"
	defaultLogDir             = "~/.local/share/pictor/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30
	defaultPollInterval       = 5
	defaultDebounceMillis     = 500
	defaultStabilizeMillis    = 200
	defaultStabilizeMaxChecks = 10
	defaultRedisURL           = "redis://127.0.0.1:6379/0"
	defaultRedisChannel       = "systems.events"
	defaultReconnectDelay     = 5
	defaultPageSize           = 100
	defaultSubscriberBuffer   = 16
)

func defaultExtensions() []string {
	return []string{"png", "jpg", "jpeg", "webp", "gif"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			WatchDir:     defaultWatchDir,
			TemplatesDir: defaultTemplatesDir,
			LogDir:       defaultLogDir,
		},
		FileService: FileService{
			Mode:                ModeLocal,
			PollIntervalSeconds: defaultPollInterval,
			DebounceMillis:      defaultDebounceMillis,
			StabilizeMillis:     defaultStabilizeMillis,
			StabilizeMaxChecks:  defaultStabilizeMaxChecks,
			Extensions:          defaultExtensions(),
		},
		Redis: Redis{
			URL:                   defaultRedisURL,
			Channel:               defaultRedisChannel,
			ReconnectDelaySeconds: defaultReconnectDelay,
		},
		State: State{
			PageSize:         defaultPageSize,
			SubscriberBuffer: defaultSubscriberBuffer,
		},
		Workflow: Workflow{
			ScanOnStartup:    true,
			CleanupOnStartup: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
