package app

import (
	"context"

	"go.trai.ch/wash/internal/adapters/cas"
	"go.trai.ch/zerr"
)

// CacheOptions configuration for the CleanCache method.
type CacheOptions = Options

// CleanCache removes every cached registry lookup.
func (a *App) CleanCache(_ context.Context, opts CacheOptions) error {
	settings, err := a.configLoader.Load(opts.Config)
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	store := cas.NewStore(settings.CacheDir)
	if err := store.Purge(); err != nil {
		return err
	}
	a.logger.Info("removed cached lookups from " + store.Dir())
	return nil
}
