package pipeline

import (
	"context"
	"io"

	"voice-features-go/internal/blobstore"
	"voice-features-go/internal/config"
	"voice-features-go/internal/dataset"
	"voice-features-go/internal/extractor"
	"voice-features-go/internal/graph"
	"voice-features-go/internal/journal"
	"voice-features-go/internal/logger"
	"voice-features-go/internal/processor"
)

// Service bundles the orchestrator with the resources it owns.
type Service struct {
	*Orchestrator
	Journal *journal.Journal

	closers []io.Closer
}

func (s *Service) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// FromConfig connects the production collaborators. cfg must already be valid.
func FromConfig(ctx context.Context, cfg config.Config, log *logger.Logger) (*Service, error) {
	gc := graph.New(graph.Options{
		Endpoint:   cfg.Graph.Endpoint,
		APIKey:     cfg.Graph.APIKey,
		Timeout:    cfg.Graph.Timeout,
		MaxRetries: cfg.Graph.MaxRetries,
		Log:        log.Component("graph"),
	})
	repo := dataset.NewRepository(gc, log.Component("dataset"))

	store, err := blobstore.Shared(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	resolver := blobstore.NewResolver(store, cfg.Storage.ListLimit, log.Component("resolver"))
	fetcher := blobstore.NewFetcher(store, resolver, cfg.Storage.Bucket, cfg.Storage.ListLimit, log.Component("fetcher"))
	proc := processor.New(fetcher, repo, log.Component("processor"))

	exLog := log.Component("extractor")
	factory := func(apiKey string) extractor.Extractor {
		return extractor.ForKey(cfg.Engine, apiKey, exLog)
	}

	svc := &Service{Orchestrator: New(repo, proc, factory, log.Component("pipeline"))}
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return nil, err
		}
		svc.Journal = j
		svc.closers = append(svc.closers, j)
		svc.WithRecorder(j)
	}
	return svc, nil
}
