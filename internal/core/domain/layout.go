package domain

import (
	"os"
	"path/filepath"
)

const (
	// AppName is the per-user directory name for wash data.
	AppName = "wash"

	// ManifestFileName is the name of a cargo manifest.
	ManifestFileName = "Cargo.toml"

	// LockfileName is the name of a cargo lockfile.
	LockfileName = "Cargo.lock"

	// TargetDirName is the name of the cargo build output directory.
	TargetDirName = "target"

	// ConfigFileName is the name of the wash configuration file.
	ConfigFileName = "wash.yaml"

	// CacheFilePrefix prefixes every per-project cache file.
	CacheFilePrefix = "project_"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultCachePath returns the per-user cache directory for wash.
// It falls back to a directory under the system temp dir when no cache dir is known.
func DefaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppName)
	}
	return filepath.Join(dir, AppName)
}

// DefaultConfigPath returns the per-user configuration file path.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, AppName, ConfigFileName)
}
