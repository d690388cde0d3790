package config

const (
	defaultConfigPath        = "~/.config/watchlist/config.toml"
	defaultDataDir           = "~/.local/share/watchlist"
	defaultLogDir            = "~/.local/share/watchlist/logs"
	defaultTMDBLanguage      = "en-US"
	defaultTMDBBaseURL       = "https://api.themoviedb.org/3"
	defaultTMDBTimeout       = 10
	defaultMaxHTTPRetries    = 3
	defaultRateMaxRequests   = 35
	defaultRateWindowMS      = 10_000
	defaultRateBackend       = RateBackendMemory
	defaultRedisKey          = "watchlist:catalog:window"
	defaultBatchSize         = 10
	defaultMinMatchScore     = 30
	defaultConflictStrategy  = "skip"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	conflictSkip             = "skip"
	conflictOverwrite        = "overwrite"
	conflictKeepHigherRating = "keep_higher_rating"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		TMDB: TMDB{
			BaseURL:        defaultTMDBBaseURL,
			Language:       defaultTMDBLanguage,
			RequestTimeout: defaultTMDBTimeout,
			MaxHTTPRetries: defaultMaxHTTPRetries,
		},
		RateLimit: RateLimit{
			MaxRequests: defaultRateMaxRequests,
			WindowMS:    defaultRateWindowMS,
			Backend:     defaultRateBackend,
			RedisKey:    defaultRedisKey,
		},
		Import: Import{
			BatchSize:        defaultBatchSize,
			MinMatchScore:    defaultMinMatchScore,
			ConflictStrategy: defaultConflictStrategy,
			ImportRatings:    true,
			ImportWatchlist:  true,
			ImportWatched:    true,
			MarkRewatchAsTag: false,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
