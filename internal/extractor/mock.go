package extractor

import (
	"context"

	"voice-features-go/internal/types"
)

// Mock returns deterministic values without touching any network. Enabled
// with USE_MOCK_ENGINE=true for offline demos.
type Mock struct{}

func (Mock) Extract(ctx context.Context, audio Audio, features []types.FeatureDefinition) (types.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(types.ExtractionResult, len(features))
	for i, f := range features {
		if f.IsNumeric {
			out[f.Name] = float64(i + 1)
		} else {
			out[f.Name] = "mock " + f.Name
		}
	}
	return out, nil
}
