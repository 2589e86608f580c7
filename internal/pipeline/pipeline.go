// Package pipeline runs one extraction batch end to end.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"voice-features-go/internal/actionable"
	"voice-features-go/internal/aggregator"
	"voice-features-go/internal/errs"
	"voice-features-go/internal/extractor"
	"voice-features-go/internal/logger"
	"voice-features-go/internal/types"
)

// Repository loads the schema and the parent records for a batch.
type Repository interface {
	LoadSchema(ctx context.Context, templateID string) ([]types.FeatureDefinition, error)
	LoadRecords(ctx context.Context, ids []string) ([]types.ParentRecord, error)
}

// RecordProcessor is satisfied by *processor.Processor.
type RecordProcessor interface {
	ProcessRecord(ctx context.Context, rec types.ParentRecord, features []types.FeatureDefinition, ex extractor.Extractor) types.RecordReport
}

// ExtractorFactory builds the extractor for the engine credential of one request.
type ExtractorFactory func(apiKey string) extractor.Extractor

// Recorder stores finished batches. Optional.
type Recorder interface {
	Save(ctx context.Context, resp *types.BatchResponse) error
}

type Orchestrator struct {
	repo      Repository
	proc      RecordProcessor
	extractor ExtractorFactory
	recorder  Recorder
	log       *logrus.Entry
	now       func() time.Time
}

func New(repo Repository, proc RecordProcessor, ex ExtractorFactory, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{
		repo:      repo,
		proc:      proc,
		extractor: ex,
		log:       logger.OrDiscard(log),
		now:       time.Now,
	}
}

// WithRecorder enables journaling of completed batches.
func (o *Orchestrator) WithRecorder(r Recorder) *Orchestrator {
	o.recorder = r
	return o
}

// Run loads the schema and records, then processes every record in order.
// Only schema and record loading failures abort the batch; everything after
// that is reported per record.
func (o *Orchestrator) Run(ctx context.Context, req types.BatchRequest) (*types.BatchResponse, error) {
	if req.TemplateID == "" {
		return nil, errs.New(errs.Validation, "templateId is required")
	}
	if req.EngineAPIKey == "" {
		return nil, errs.New(errs.Validation, "engineApiKey is required")
	}

	start := o.now()
	resp := &types.BatchResponse{
		BatchID:    uuid.NewString(),
		TemplateID: req.TemplateID,
		StartedAt:  start,
		Results:    []types.RecordReport{},
	}
	log := o.log.WithFields(logrus.Fields{"batch_id": resp.BatchID, "template_id": req.TemplateID})

	features, err := o.repo.LoadSchema(ctx, req.TemplateID)
	if err != nil {
		log.WithError(err).Error("load schema failed")
		return nil, err
	}
	records, err := o.repo.LoadRecords(ctx, req.ParentRecordIDs)
	if err != nil {
		log.WithError(err).Error("load records failed")
		return nil, err
	}
	log.WithFields(logrus.Fields{"features": len(features), "trees": len(records)}).Info("batch started")

	if len(records) > 0 {
		ex := o.extractor(req.EngineAPIKey)
		for _, rec := range records {
			rep := o.proc.ProcessRecord(ctx, rec, features, ex)
			resp.Results = append(resp.Results, rep)
		}
	}

	resp.Summary = aggregator.Summarize(resp.Results)
	resp.Message = actionable.Message(resp.Summary)
	resp.Success = true
	resp.DurationMs = o.now().Sub(start).Milliseconds()

	log.WithFields(logrus.Fields{
		"files":       resp.Summary.FilesProcessed,
		"features":    resp.Summary.FeaturesExtracted,
		"errors":      resp.Summary.TotalErrors,
		"duration_ms": resp.DurationMs,
		"failed":      aggregator.FailedRecords(resp.Results),
	}).Info("batch completed")

	if o.recorder != nil {
		if err := o.recorder.Save(ctx, resp); err != nil {
			log.WithError(err).Warn("journal write failed")
		}
	}
	return resp, nil
}
