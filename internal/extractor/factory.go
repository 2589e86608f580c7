package extractor

import (
	"github.com/sirupsen/logrus"

	"voice-features-go/internal/config"
)

// ForKey builds the extractor for one batch. The engine credential arrives
// with each request rather than from process configuration.
func ForKey(cfg config.EngineConfig, apiKey string, log *logrus.Entry) Extractor {
	if cfg.UseMock {
		return Mock{}
	}
	engine := NewGemini(GeminiOptions{BaseURL: cfg.BaseURL, APIKey: apiKey})
	return NewAdapter(engine, Options{
		Models:     cfg.Models,
		StagingDir: cfg.StagingDir,
		Timeout:    cfg.Timeout,
		Log:        log,
	})
}
