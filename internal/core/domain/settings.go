package domain

import "time"

const (
	// DefaultTool is the build tool invoked for every run.
	DefaultTool = "cargo"
	// DefaultConcurrency is the number of freshness checks allowed in flight.
	DefaultConcurrency = 5
	// DefaultLookupTimeout bounds a single registry lookup.
	DefaultLookupTimeout = 5 * time.Second
	// DefaultCheckTimeout bounds all lookups of one queue item.
	DefaultCheckTimeout = 30 * time.Second
	// DefaultRegistryURL is the crates.io API base.
	DefaultRegistryURL = "https://crates.io/api/v1"
)

// Settings is the resolved runtime configuration.
type Settings struct {
	Tool             string
	Concurrency      int
	CacheTTL         time.Duration
	LookupTimeout    time.Duration
	CheckTimeout     time.Duration
	RegistryURL      string
	CacheDir         string
	PTY              bool
	BackgroundChecks bool
	Watch            bool
}

// DefaultSettings returns the settings used when no config file exists.
func DefaultSettings() Settings {
	return Settings{
		Tool:             DefaultTool,
		Concurrency:      DefaultConcurrency,
		CacheTTL:         DefaultCacheTTL,
		LookupTimeout:    DefaultLookupTimeout,
		CheckTimeout:     DefaultCheckTimeout,
		RegistryURL:      DefaultRegistryURL,
		CacheDir:         DefaultCachePath(),
		BackgroundChecks: true,
		Watch:            true,
	}
}
