// Package extractor turns an audio payload plus a feature schema into a flat
// map of extracted values, trying model variants in order.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"

	"voice-features-go/internal/logger"
	"voice-features-go/internal/types"
)

// Audio is one fetched recording. Name is the object filename and is only
// used as a hint when content sniffing is inconclusive.
type Audio struct {
	Data []byte
	Name string
}

// Request is a single call against one model variant.
type Request struct {
	Model     string
	Prompt    string
	AudioPath string
	MIMEType  string
}

// Engine is the generative backend. Generate returns the raw reply text.
type Engine interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Extractor is what the processing stage depends on.
type Extractor interface {
	Extract(ctx context.Context, audio Audio, features []types.FeatureDefinition) (types.ExtractionResult, error)
}

type Options struct {
	Models     []string
	StagingDir string
	Timeout    time.Duration
	Log        *logrus.Entry
}

// Adapter implements Extractor on top of an Engine with ordered model fallback.
type Adapter struct {
	engine     Engine
	models     []string
	stagingDir string
	timeout    time.Duration
	log        *logrus.Entry
}

func NewAdapter(engine Engine, opts Options) *Adapter {
	return &Adapter{
		engine:     engine,
		models:     append([]string(nil), opts.Models...),
		stagingDir: opts.StagingDir,
		timeout:    opts.Timeout,
		log:        logger.OrDiscard(opts.Log),
	}
}

// Extract stages the audio to a temporary file, then asks each model variant
// in turn until one returns a parseable object. The staged file is removed on
// every path out of this function.
func (a *Adapter) Extract(ctx context.Context, audio Audio, features []types.FeatureDefinition) (types.ExtractionResult, error) {
	if len(a.models) == 0 {
		return nil, errors.New("no model variants configured")
	}
	if len(audio.Data) == 0 {
		return nil, errors.New("empty audio payload")
	}

	mime := DetectMIME(audio.Data, audio.Name)
	staged, err := a.stage(audio.Data, mime)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := os.Remove(staged); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			a.log.WithError(rerr).WithField("path", staged).Warn("failed to remove staged audio")
		}
	}()

	prompt := BuildPrompt(features)
	var lastErr error
	tried := 0
	for _, model := range a.models {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		tried++
		log := a.log.WithFields(logrus.Fields{"model": model, "attempt": tried})

		text, err := a.call(ctx, Request{Model: model, Prompt: prompt, AudioPath: staged, MIMEType: mime})
		if err != nil {
			log.WithError(err).Warn("model variant failed")
			lastErr = fmt.Errorf("%s: %w", model, err)
			continue
		}
		result, err := ParseResult(text)
		if err != nil {
			log.WithError(err).Warn("model variant returned unusable output")
			lastErr = fmt.Errorf("%s: %w", model, err)
			continue
		}
		log.WithField("fields", len(result)).Info("extraction succeeded")
		return result, nil
	}
	return nil, fmt.Errorf("extraction failed after trying %d model variant(s): %w", tried, lastErr)
}

func (a *Adapter) call(ctx context.Context, req Request) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	return a.engine.Generate(ctx, req)
}

func (a *Adapter) stage(data []byte, mime string) (string, error) {
	f, err := os.CreateTemp(a.stagingDir, "audio-*"+extensionFor(mime))
	if err != nil {
		return "", fmt.Errorf("stage audio: %w", err)
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("stage audio: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("stage audio: %w", err)
	}
	return name, nil
}

var extMIME = map[string]string{
	".mp3":  "audio/mp3",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".flac": "audio/flac",
}

// DetectMIME sniffs the payload and falls back to the filename extension,
// then to audio/mp3.
func DetectMIME(data []byte, name string) string {
	m := mimetype.Detect(data).String()
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	switch m {
	case "audio/mpeg":
		return "audio/mp3"
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return "audio/wav"
	case "audio/x-flac", "audio/flac":
		return "audio/flac"
	case "audio/x-m4a", "audio/mp4", "video/mp4":
		return "audio/mp4"
	case "audio/aac", "audio/ogg":
		return m
	}
	if strings.HasPrefix(m, "audio/") {
		return m
	}
	if v, ok := extMIME[strings.ToLower(path.Ext(name))]; ok {
		return v
	}
	return "audio/mp3"
}

func extensionFor(mime string) string {
	for ext, m := range extMIME {
		if m == mime {
			return ext
		}
	}
	return ".bin"
}
