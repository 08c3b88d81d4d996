package ports

import "context"

//go:generate mockgen -source=sizer.go -destination=mocks/mock_sizer.go -package=mocks

// ArtifactSizer measures the on-disk size of a build output directory.
type ArtifactSizer interface {
	ArtifactSize(ctx context.Context, dir string) (int64, error)
}
