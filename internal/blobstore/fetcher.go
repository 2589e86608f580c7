package blobstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"voice-features-go/internal/logger"
)

// Fetcher reads the audio payload behind a locator URL, falling back to the
// Resolver when the recorded key does not exist.
type Fetcher struct {
	store         Store
	resolver      *Resolver
	defaultBucket string
	listLimit     int
	log           *logrus.Entry
}

func NewFetcher(store Store, resolver *Resolver, defaultBucket string, listLimit int, log *logrus.Entry) *Fetcher {
	if listLimit <= 0 {
		listLimit = 1000
	}
	return &Fetcher{
		store:         store,
		resolver:      resolver,
		defaultBucket: defaultBucket,
		listLimit:     listLimit,
		log:           logger.OrDiscard(log),
	}
}

// Locate parses a locator URL. A bare key ("protected/x/audio/a.mp3") is
// accepted and addressed to the default bucket. Keys naming a folder
// (empty or ending in "/") are rejected.
func (f *Fetcher) Locate(raw string) (Locator, error) {
	l, err := ParseLocator(raw)
	if err != nil {
		l, err = f.bareKey(raw, err)
	}
	if err != nil {
		return Locator{}, err
	}
	if l.Key == "" || strings.HasSuffix(l.Key, "/") {
		return Locator{}, fmt.Errorf("%w: %q names a folder, not an object", ErrInvalidLocator, raw)
	}
	return l, nil
}

func (f *Fetcher) bareKey(raw string, parseErr error) (Locator, error) {
	v := strings.TrimSpace(raw)
	if f.defaultBucket == "" || v == "" || strings.Contains(v, "://") || strings.ContainsAny(v, " \t\n") {
		return Locator{}, parseErr
	}
	key := strings.TrimPrefix(v, "/")
	return Locator{Scheme: "s3", Host: f.defaultBucket, Bucket: f.defaultBucket, Key: key, Style: S3URI}, nil
}

// Fetch returns the object bytes for locatorURL. Only a not-found outcome
// triggers key resolution; every other error is returned as is.
func (f *Fetcher) Fetch(ctx context.Context, locatorURL, knownParentID string) ([]byte, error) {
	loc, err := f.Locate(locatorURL)
	if err != nil {
		return nil, err
	}
	log := f.log.WithFields(logrus.Fields{"bucket": loc.Bucket, "key": loc.Key})

	data, err := f.store.Get(ctx, loc.Bucket, loc.Key)
	if err == nil {
		log.WithField("size", humanize.Bytes(uint64(len(data)))).Debug("fetched audio")
		return data, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("fetch %s: %w", locatorURL, err)
	}

	log.Info("recorded key missing, resolving")
	resolved, rerr := f.resolver.Resolve(ctx, loc.Bucket, loc.Key, knownParentID)
	if rerr == nil {
		data, err = f.store.Get(ctx, loc.Bucket, resolved)
		if err != nil {
			return nil, fmt.Errorf("fetch resolved key %s for %s: %w", resolved, locatorURL, err)
		}
		log.WithFields(logrus.Fields{
			"resolved": resolved,
			"size":     humanize.Bytes(uint64(len(data))),
		}).Info("fetched audio from resolved key")
		return data, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if data, key, ok := f.lastChance(ctx, loc); ok {
		log.WithField("resolved", key).Info("fetched audio by filename search")
		return data, nil
	}
	return nil, fmt.Errorf("audio file not found for %s (bucket %s, key %s): %w", locatorURL, loc.Bucket, loc.Key, ErrNotFound)
}

// lastChance lists the bucket once and reads the first key with the same filename.
func (f *Fetcher) lastChance(ctx context.Context, loc Locator) ([]byte, string, bool) {
	keys, err := f.store.List(ctx, loc.Bucket, "", f.listLimit)
	if err != nil && len(keys) == 0 {
		f.log.WithError(err).Warn("filename search listing failed")
		return nil, "", false
	}
	name := normName(loc.Filename())
	for _, k := range keys {
		if !strings.HasSuffix(normName(k), "/"+name) && normName(k) != name {
			continue
		}
		data, err := f.store.Get(ctx, loc.Bucket, k)
		if err != nil {
			continue
		}
		return data, k, true
	}
	return nil, "", false
}
