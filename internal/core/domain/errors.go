package domain

import "go.trai.ch/zerr"

var (
	// ErrEmptyCommand is returned when a command token has no fields.
	ErrEmptyCommand = zerr.New("empty command")

	// ErrUnknownCommand is returned when a command token matches nothing in the command list.
	ErrUnknownCommand = zerr.New("unknown command")

	// ErrNoTargets is returned when a run request resolves to no projects.
	ErrNoTargets = zerr.New("no target projects")

	// ErrProjectNotFound is returned when a project identifier is not in the project set.
	ErrProjectNotFound = zerr.New("project not found")

	// ErrNoProjectsFound is returned when discovery finds no cargo projects under the root.
	ErrNoProjectsFound = zerr.New("no cargo projects found")

	// ErrRunFailed is returned when at least one project run did not succeed.
	ErrRunFailed = zerr.New("run failed")

	// ErrProcessStartFailed is returned when the build tool cannot be spawned.
	ErrProcessStartFailed = zerr.New("failed to start process")

	// ErrCacheReadFailed is returned when a cache file cannot be read.
	ErrCacheReadFailed = zerr.New("failed to read cache file")

	// ErrCacheDecodeFailed is returned when a cache file is not valid JSON.
	ErrCacheDecodeFailed = zerr.New("failed to decode cache file")

	// ErrCacheEncodeFailed is returned when a cache entry cannot be serialized.
	ErrCacheEncodeFailed = zerr.New("failed to encode cache entry")

	// ErrCacheWriteFailed is returned when a cache file cannot be written.
	ErrCacheWriteFailed = zerr.New("failed to write cache file")

	// ErrCacheDirFailed is returned when the cache directory cannot be created.
	ErrCacheDirFailed = zerr.New("failed to create cache directory")

	// ErrFingerprintFailed is returned when a lockfile cannot be hashed.
	ErrFingerprintFailed = zerr.New("failed to fingerprint lockfile")

	// ErrLookupFailed is returned when a registry lookup fails.
	ErrLookupFailed = zerr.New("registry lookup failed")

	// ErrCrateNotFound is returned when the registry does not know a crate.
	ErrCrateNotFound = zerr.New("crate not found in registry")

	// ErrManifestParseFailed is returned when a Cargo.toml cannot be parsed.
	ErrManifestParseFailed = zerr.New("failed to parse manifest")

	// ErrLockfileParseFailed is returned when a Cargo.lock cannot be parsed.
	ErrLockfileParseFailed = zerr.New("failed to parse lockfile")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file is not valid YAML.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigInvalid is returned when a config value is out of range.
	ErrConfigInvalid = zerr.New("invalid configuration")

	// ErrInvariantViolated is returned when the state synchronizer receives an event
	// that contradicts its bookkeeping. It is fatal.
	ErrInvariantViolated = zerr.New("state invariant violated")

	// ErrSynchronizerStopped is returned when waiting on a synchronizer that is no longer running.
	ErrSynchronizerStopped = zerr.New("state synchronizer stopped")

	// ErrChecksFailed is returned when a check finished with failed lookups.
	ErrChecksFailed = zerr.New("dependency checks failed")
)
