package config

const (
	defaultStagingDir      = "~/.local/share/bindery/staging"
	defaultLogDir          = "~/.local/share/bindery/logs"
	defaultCatalogPath     = "~/.local/share/bindery/catalog.db"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultStaleAfterHours = 24
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir:  defaultStagingDir,
			LogDir:      defaultLogDir,
			CatalogPath: defaultCatalogPath,
		},
		Staging: Staging{
			StaleAfterHours: defaultStaleAfterHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
