package config

// File is the structure of wash.yaml. Unset keys keep their defaults.
type File struct {
	Tool             *string `yaml:"tool"`
	Concurrency      *int    `yaml:"concurrency"`
	CacheTTL         *string `yaml:"cache_ttl"`
	LookupTimeout    *string `yaml:"lookup_timeout"`
	CheckTimeout     *string `yaml:"check_timeout"`
	RegistryURL      *string `yaml:"registry_url"`
	CacheDir         *string `yaml:"cache_dir"`
	PTY              *bool   `yaml:"pty"`
	BackgroundChecks *bool   `yaml:"background_checks"`
	Watch            *bool   `yaml:"watch"`
}
