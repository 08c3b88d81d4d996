package ports

import "context"

//go:generate mockgen -source=registry.go -destination=mocks/mock_registry.go -package=mocks

// Registry looks up the latest published version of a crate.
type Registry interface {
	LatestVersion(ctx context.Context, name string) (string, error)
}
