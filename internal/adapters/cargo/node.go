package cargo

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/wash/internal/adapters/fs"
	"go.trai.ch/wash/internal/adapters/logger"
	"go.trai.ch/wash/internal/core/ports"
)

// NodeID is the unique identifier for the project discovery Graft node.
const NodeID graft.ID = "adapter.cargo"

func init() {
	graft.Register(graft.Node[ports.ProjectSource]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.WalkerNodeID, logger.PortNodeID},
		Run: func(ctx context.Context) (ports.ProjectSource, error) {
			walker, err := graft.Dep[*fs.Walker](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewDiscoverer(walker, log), nil
		},
	})
}
