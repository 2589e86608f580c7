package blobstore

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"voice-features-go/internal/logger"
)

const (
	protectedPrefix = "protected/"
	publicPrefix    = "public/"
	audioSegment    = "audio"
	audioInfix      = "/audio/"
)

// leadingToken matches filenames that start with a numeric or timestamp token,
// e.g. "1699900000-recording.mp3" or "20240301_take.mp3".
var leadingToken = regexp.MustCompile(`^\d+[-_.]`)

// Resolver finds the stored key for a nominal key whose prefix may have been
// rewritten by the storage access-control convention.
type Resolver struct {
	store     Store
	listLimit int
	log       *logrus.Entry
}

func NewResolver(store Store, listLimit int, log *logrus.Entry) *Resolver {
	if listLimit <= 0 {
		listLimit = 1000
	}
	return &Resolver{store: store, listLimit: listLimit, log: logger.OrDiscard(log)}
}

// nominalKey is the decomposed form of the key recorded on an attachment.
type nominalKey struct {
	key      string
	dir      string
	segments []string
	filename string
	ext      string
	parentID string
	category string
}

func parseNominal(key, parentID string) nominalKey {
	key = strings.TrimPrefix(key, "/")
	segs := strings.Split(key, "/")
	n := nominalKey{
		key:      key,
		filename: normName(segs[len(segs)-1]),
		segments: segs[:len(segs)-1],
		parentID: parentID,
	}
	n.ext = strings.ToLower(path.Ext(n.filename))
	if len(n.segments) > 0 {
		n.dir = strings.Join(n.segments, "/") + "/"
	}

	idIdx := -1
	if n.parentID != "" {
		for i, s := range n.segments {
			if s == n.parentID {
				idIdx = i
				break
			}
		}
	} else {
		for i, s := range n.segments {
			if s == audioSegment && i+1 < len(n.segments) {
				idIdx = i + 1
				n.parentID = n.segments[idIdx]
				break
			}
		}
	}
	if idIdx >= 0 && idIdx+1 < len(n.segments) {
		n.category = n.segments[idIdx+1]
	}
	return n
}

// tokens returns directory segments longer than minLen, ignoring the
// access-control prefixes and the "audio" folder.
func (n nominalKey) tokens(minLen int) []string {
	var out []string
	for _, s := range n.segments {
		switch s {
		case "", audioSegment, "protected", "public":
			continue
		}
		if len(s) > minLen {
			out = append(out, s)
		}
	}
	return out
}

func (n nominalKey) endsWithName(k string) bool {
	return strings.HasSuffix(normName(k), n.filename)
}

func (n nominalKey) exactName(k string) bool {
	return normName(path.Base(k)) == n.filename
}

func normName(s string) string { return norm.NFC.String(s) }

func hasSegment(k, seg string) bool {
	return strings.Contains("/"+k+"/", "/"+seg+"/")
}

// prefixedCandidates are the stage-2 probes for the conventional prefixes.
func (n nominalKey) prefixedCandidates() []string {
	var out []string
	for _, p := range []string{protectedPrefix, publicPrefix} {
		if !strings.HasPrefix(n.key, p) {
			out = append(out, p+n.key)
		}
	}
	return out
}

// Resolve returns the stored key for nominalKey, or ErrKeyNotFound.
func (r *Resolver) Resolve(ctx context.Context, bucket, nominalKey, knownParentID string) (string, error) {
	key, _, err := r.resolve(ctx, bucket, nominalKey, knownParentID)
	return key, err
}

func (r *Resolver) resolve(ctx context.Context, bucket, key, parentID string) (string, int, error) {
	n := parseNominal(key, parentID)
	log := r.log.WithFields(logrus.Fields{
		"bucket":    bucket,
		"key":       n.key,
		"parent_id": n.parentID,
	})
	// every stage matches on the filename; without one any key would do
	if n.filename == "" {
		log.Warn("nominal key has no filename")
		return "", 0, fmt.Errorf("%w: s3://%s/%s has no filename", ErrKeyNotFound, bucket, n.key)
	}

	stages := []func(context.Context, string, nominalKey) (string, bool){
		r.exact,
		r.prefixed,
		r.audioFolder,
		r.sameDirectory,
		r.protectedTokens,
		r.publicTokens,
		r.directRead,
		r.global,
	}
	for i, stage := range stages {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		if found, ok := stage(ctx, bucket, n); ok {
			log.WithFields(logrus.Fields{"stage": i + 1, "resolved": found}).Info("resolved object key")
			return found, i + 1, nil
		}
	}
	log.Warn("object key not resolved")
	return "", 0, fmt.Errorf("%w: s3://%s/%s", ErrKeyNotFound, bucket, n.key)
}

func (r *Resolver) exists(ctx context.Context, bucket, key string) bool {
	ok, err := r.store.Exists(ctx, bucket, key)
	if err != nil {
		r.log.WithError(err).WithField("key", key).Debug("existence probe failed")
		return false
	}
	return ok
}

func (r *Resolver) list(ctx context.Context, bucket, prefix string) []string {
	keys, err := r.store.List(ctx, bucket, prefix, r.listLimit)
	if err != nil {
		r.log.WithError(err).WithField("prefix", prefix).Warn("listing failed")
	}
	return keys
}

// stage 1
func (r *Resolver) exact(ctx context.Context, bucket string, n nominalKey) (string, bool) {
	return n.key, r.exists(ctx, bucket, n.key)
}

// stage 2
func (r *Resolver) prefixed(ctx context.Context, bucket string, n nominalKey) (string, bool) {
	for _, k := range n.prefixedCandidates() {
		if r.exists(ctx, bucket, k) {
			return k, true
		}
	}
	return "", false
}

// stage 3: audio folders under protected/ for a known or derived parent id.
func (r *Resolver) audioFolder(ctx context.Context, bucket string, n nominalKey) (string, bool) {
	if n.parentID == "" {
		return "", false
	}
	var candidates []string
	for _, k := range r.list(ctx, bucket, protectedPrefix) {
		if !strings.Contains(k, audioInfix) {
			continue
		}
		base := normName(path.Base(k))
		sameName := n.endsWithName(k)
		stamped := strings.ToLower(path.Ext(base)) == n.ext && leadingToken.MatchString(base)
		if !sameName && !stamped {
			continue
		}
		if n.category != "" && !hasSegment(k, n.category) {
			continue
		}
		candidates = append(candidates, k)
	}
	if len(candidates) == 0 {
		return "", false
	}
	for _, k := range candidates {
		if n.exactName(k) {
			return k, true
		}
	}
	for _, k := range candidates {
		if hasSegment(k, n.parentID) {
			return k, true
		}
	}
	if n.category != "" {
		for _, k := range candidates {
			if hasSegment(k, n.category) {
				return k, true
			}
		}
	}
	return candidates[0], true
}

// stage 4
func (r *Resolver) sameDirectory(ctx context.Context, bucket string, n nominalKey) (string, bool) {
	if n.dir == "" {
		return "", false
	}
	for _, k := range r.list(ctx, bucket, n.dir) {
		if n.endsWithName(k) {
			return k, true
		}
	}
	return "", false
}

// stage 5
func (r *Resolver) protectedTokens(ctx context.Context, bucket string, n nominalKey) (string, bool) {
	tokens := n.tokens(3)
	if len(tokens) == 0 {
		return "", false
	}
	for _, k := range r.list(ctx, bucket, protectedPrefix) {
		if !n.endsWithName(k) || !strings.Contains(k, audioInfix) {
			continue
		}
		if n.parentID != "" && !strings.Contains(k, n.parentID) {
			continue
		}
		if containsAny(k, tokens) {
			return k, true
		}
	}
	return "", false
}

// stage 6
func (r *Resolver) publicTokens(ctx context.Context, bucket string, n nominalKey) (string, bool) {
	tokens := n.tokens(0)
	for _, k := range r.list(ctx, bucket, publicPrefix) {
		if n.endsWithName(k) && containsAll(k, tokens) {
			return k, true
		}
	}
	return "", false
}

// stage 7: some policies refuse HEAD but allow GET.
func (r *Resolver) directRead(ctx context.Context, bucket string, n nominalKey) (string, bool) {
	for _, k := range n.prefixedCandidates() {
		if _, err := r.store.Get(ctx, bucket, k); err == nil {
			return k, true
		}
	}
	return "", false
}

// stage 8
func (r *Resolver) global(ctx context.Context, bucket string, n nominalKey) (string, bool) {
	return firstNamed(r.list(ctx, bucket, ""), n, n.tokens(5))
}

// firstNamed returns the first key ending with the nominal filename,
// preferring one that contains any of preferred.
func firstNamed(keys []string, n nominalKey, preferred []string) (string, bool) {
	first := ""
	for _, k := range keys {
		if !n.endsWithName(k) {
			continue
		}
		if containsAny(k, preferred) {
			return k, true
		}
		if first == "" {
			first = k
		}
	}
	return first, first != ""
}

func containsAny(k string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(k, t) {
			return true
		}
	}
	return false
}

func containsAll(k string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(k, t) {
			return false
		}
	}
	return true
}
