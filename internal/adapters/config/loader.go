// Package config loads wash settings from wash.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

const (
	minCacheTTL    = time.Minute
	maxConcurrency = 64
)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
	// Cwd is where the search for wash.yaml starts. Empty means the process working directory.
	Cwd string
	// UserConfig is the fallback file. Empty means the per-user config directory.
	UserConfig string
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load resolves the settings. An explicit path must exist. Without one, the
// first wash.yaml found walking up from Cwd wins, then the per-user file.
// When no file is found the defaults are returned.
func (l *Loader) Load(path string) (domain.Settings, error) {
	if path == "" {
		found, err := l.findConfiguration()
		if err != nil {
			return domain.Settings{}, err
		}
		if found == "" {
			return domain.DefaultSettings(), nil
		}
		path = found
	}

	file, err := readFile(path)
	if err != nil {
		return domain.Settings{}, err
	}
	return l.resolve(file, filepath.Dir(path))
}

func (l *Loader) findConfiguration() (string, error) {
	currentDir := l.Cwd
	if currentDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
		}
		currentDir = wd
	}

	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	userConfig := l.UserConfig
	if userConfig == "" {
		userConfig = domain.DefaultConfigPath()
	}
	if userConfig != "" {
		if _, err := os.Stat(userConfig); err == nil {
			return userConfig, nil
		}
	}
	return "", nil
}

func readFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, err.Error()), "path", path)
	}

	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigParseFailed, err.Error()), "path", path)
	}
	return &file, nil
}

// resolve applies file on top of the defaults. Relative paths are resolved against base.
func (l *Loader) resolve(file *File, base string) (domain.Settings, error) {
	s := domain.DefaultSettings()

	if file.Tool != nil {
		tool := strings.TrimSpace(*file.Tool)
		if tool == "" {
			return s, invalid("tool", "must not be empty")
		}
		s.Tool = tool
	}

	if file.Concurrency != nil {
		n := *file.Concurrency
		if n < 1 || n > maxConcurrency {
			return s, invalid("concurrency", fmt.Sprintf("must be between 1 and %d", maxConcurrency))
		}
		s.Concurrency = n
	}

	if file.CacheTTL != nil {
		ttl, err := parseDuration("cache_ttl", *file.CacheTTL)
		if err != nil {
			return s, err
		}
		switch {
		case ttl == 0:
		case ttl < minCacheTTL:
			l.Logger.Warn(fmt.Sprintf("cache_ttl %s is below the minimum, using %s", ttl, minCacheTTL))
			s.CacheTTL = minCacheTTL
		default:
			s.CacheTTL = ttl
		}
	}

	for _, target := range []struct {
		key string
		raw *string
		dst *time.Duration
	}{
		{"lookup_timeout", file.LookupTimeout, &s.LookupTimeout},
		{"check_timeout", file.CheckTimeout, &s.CheckTimeout},
	} {
		if target.raw == nil {
			continue
		}
		d, err := parseDuration(target.key, *target.raw)
		if err != nil {
			return s, err
		}
		if d == 0 {
			return s, invalid(target.key, "must be positive")
		}
		*target.dst = d
	}

	if file.RegistryURL != nil {
		u, err := url.Parse(*file.RegistryURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return s, invalid("registry_url", "must be an http or https URL")
		}
		s.RegistryURL = strings.TrimRight(u.String(), "/")
	}

	if file.CacheDir != nil && *file.CacheDir != "" {
		s.CacheDir = expandPath(*file.CacheDir, base)
	}

	if file.PTY != nil {
		s.PTY = *file.PTY
	}
	if file.BackgroundChecks != nil {
		s.BackgroundChecks = *file.BackgroundChecks
	}
	if file.Watch != nil {
		s.Watch = *file.Watch
	}

	return s, nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, invalid(key, "not a duration: "+raw)
	}
	if d < 0 {
		return 0, invalid(key, "must not be negative")
	}
	return d, nil
}

func invalid(key, reason string) error {
	return zerr.With(zerr.Wrap(domain.ErrConfigInvalid, reason), "key", key)
}

// expandPath resolves ~ and relative paths.
func expandPath(p, base string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	return filepath.Clean(p)
}
