package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/wash/internal/adapters/cargo"     //nolint:depguard // Wired in app layer
	"go.trai.ch/wash/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/wash/internal/adapters/fs"        //nolint:depguard // Wired in app layer
	"go.trai.ch/wash/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/wash/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/wash/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			cargo.NodeID,
			fs.HasherNodeID,
			fs.SizerNodeID,
			telemetry.TracerNodeID,
			logger.PortNodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	source, err := graft.Dep[ports.ProjectSource](ctx)
	if err != nil {
		return nil, err
	}

	fingerprinter, err := graft.Dep[ports.Fingerprinter](ctx)
	if err != nil {
		return nil, err
	}

	sizer, err := graft.Dep[ports.ArtifactSizer](ctx)
	if err != nil {
		return nil, err
	}

	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, source, fingerprinter, sizer, tracer, log), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	app, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[*logger.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return &Components{
		App:    app,
		Logger: log,
	}, nil
}
