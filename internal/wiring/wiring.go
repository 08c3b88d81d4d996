// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/wash/internal/adapters/cargo"
	_ "go.trai.ch/wash/internal/adapters/config"
	_ "go.trai.ch/wash/internal/adapters/fs"
	_ "go.trai.ch/wash/internal/adapters/logger"
	_ "go.trai.ch/wash/internal/adapters/telemetry"
	// Register app nodes.
	_ "go.trai.ch/wash/internal/app"
)
