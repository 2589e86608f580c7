// Package processor runs fetch, extract and materialize for the audio
// attachments of one parent record.
package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"voice-features-go/internal/blobstore"
	"voice-features-go/internal/dataset"
	"voice-features-go/internal/extractor"
	"voice-features-go/internal/logger"
	"voice-features-go/internal/types"
)

// Fetcher is satisfied by *blobstore.Fetcher. Locate decides which
// attachments are audio, so classification and fetching agree.
type Fetcher interface {
	Locate(raw string) (blobstore.Locator, error)
	Fetch(ctx context.Context, locatorURL, knownParentID string) ([]byte, error)
}

type Processor struct {
	fetcher Fetcher
	mat     *Materializer
	log     *logrus.Entry
}

func New(f Fetcher, w Writer, log *logrus.Entry) *Processor {
	log = logger.OrDiscard(log)
	return &Processor{fetcher: f, mat: NewMaterializer(w, log), log: log}
}

// ProcessRecord handles every audio attachment of rec in order. Item failures
// are recorded on the returned report and never stop the loop.
func (p *Processor) ProcessRecord(ctx context.Context, rec types.ParentRecord, features []types.FeatureDefinition, ex extractor.Extractor) types.RecordReport {
	audio := dataset.AudioAttachments(rec, p.fetcher.Locate)
	rep := types.RecordReport{
		RecordID:        rec.ID,
		RecordName:      rec.Name,
		AudioFilesFound: len(audio),
		Errors:          []string{},
	}
	log := p.log.WithFields(logrus.Fields{"tree_id": rec.ID, "audio": len(audio)})
	if len(audio) == 0 {
		log.Debug("no audio attachments")
		return rep
	}

	for _, a := range audio {
		start := time.Now()
		n, failures, err := p.processAttachment(ctx, rec.ID, a, features, ex)
		alog := log.WithFields(logrus.Fields{"attachment_id": a.ID, "duration_ms": time.Since(start).Milliseconds()})
		if err != nil {
			alog.WithError(err).Warn("attachment failed")
			rep.Errors = append(rep.Errors, fmt.Sprintf("attachment %s: %v", a.ID, err))
			continue
		}
		rep.AudioFilesProcessed++
		rep.FeaturesExtracted += n
		rep.Errors = append(rep.Errors, failures...)
		alog.WithField("features", n).Info("attachment processed")
	}
	return rep
}

func (p *Processor) processAttachment(ctx context.Context, parentID string, a types.RawAttachment, features []types.FeatureDefinition, ex extractor.Extractor) (int, []string, error) {
	locator := *a.ValueString
	data, err := p.fetcher.Fetch(ctx, locator, parentID)
	if err != nil {
		return 0, nil, fmt.Errorf("fetch: %w", err)
	}
	var name string
	if loc, err := p.fetcher.Locate(locator); err == nil {
		name = loc.Filename()
	}
	result, err := ex.Extract(ctx, extractor.Audio{Data: data, Name: name}, features)
	if err != nil {
		return 0, nil, fmt.Errorf("extract: %w", err)
	}
	n, failures := p.mat.Materialize(ctx, parentID, features, result)
	return n, failures, nil
}
