package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/janekbaraniewski/routerspend/internal/cache"
	"github.com/janekbaraniewski/routerspend/internal/config"
	"github.com/janekbaraniewski/routerspend/internal/fetch"
	"github.com/janekbaraniewski/routerspend/internal/report"
	"github.com/janekbaraniewski/routerspend/internal/session"
)

// app bundles the wired pipeline: cache, fetcher and aggregation service all
// share one injected Config.
type app struct {
	cfg   config.Config
	log   *logrus.Logger
	store *cache.Store
	svc   *report.Service
}

func newApp(cfg config.Config, log *logrus.Logger) (*app, error) {
	store, err := cache.Open(cachePath(), cfg, log)
	if err != nil {
		return nil, err
	}
	store.Maintain(context.Background())

	client := fetch.New(cfg, store, session.NewBrowserSource(log), log)
	return &app{
		cfg:   cfg,
		log:   log,
		store: store,
		svc:   report.NewService(client, log),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("closing cache store")
	}
}
