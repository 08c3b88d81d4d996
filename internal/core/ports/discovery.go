package ports

import (
	"context"

	"go.trai.ch/wash/internal/core/domain"
)

//go:generate mockgen -source=discovery.go -destination=mocks/mock_discovery.go -package=mocks

// ProjectSource discovers cargo projects under a root directory.
type ProjectSource interface {
	Discover(ctx context.Context, root string) ([]domain.Project, error)
}
