package ports

import "go.trai.ch/wash/internal/core/domain"

//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks

// ConfigLoader resolves runtime settings.
type ConfigLoader interface {
	// Load reads the settings file at path. An empty path searches the default locations.
	Load(path string) (domain.Settings, error)
}
