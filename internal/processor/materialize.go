package processor

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"voice-features-go/internal/logger"
	"voice-features-go/internal/types"
)

// Writer persists one derived record.
type Writer interface {
	CreateDerived(ctx context.Context, d types.DerivedRawRecord) error
}

// Materializer turns an extraction result into derived records.
type Materializer struct {
	writer Writer
	log    *logrus.Entry
}

func NewMaterializer(w Writer, log *logrus.Entry) *Materializer {
	return &Materializer{writer: w, log: logger.OrDiscard(log)}
}

// Derive maps result onto features in schema order. Absent and null values
// produce nothing. A numeric feature whose value does not coerce is kept as text.
func Derive(parentID string, features []types.FeatureDefinition, result types.ExtractionResult) []types.DerivedRawRecord {
	var out []types.DerivedRawRecord
	for _, f := range features {
		raw, ok := result[f.Name]
		if !ok || raw == nil {
			continue
		}
		d := types.DerivedRawRecord{ParentID: parentID, FeatureID: f.ID}
		if f.IsNumeric {
			if n, ok := asNumber(raw); ok {
				d.ValueNumber = types.FloatPtr(n)
				out = append(out, d)
				continue
			}
		}
		d.ValueString = types.StringPtr(asText(raw))
		out = append(out, d)
	}
	return out
}

// Materialize writes every derived record independently and returns how many
// were written plus one error string per failed write.
func (m *Materializer) Materialize(ctx context.Context, parentID string, features []types.FeatureDefinition, result types.ExtractionResult) (int, []string) {
	names := make(map[string]string, len(features))
	for _, f := range features {
		names[f.ID] = f.Name
	}

	written := 0
	var failures []string
	for _, d := range Derive(parentID, features, result) {
		if err := m.writer.CreateDerived(ctx, d); err != nil {
			m.log.WithError(err).WithFields(logrus.Fields{"tree_id": parentID, "feature_id": d.FeatureID}).Warn("derived record write failed")
			failures = append(failures, fmt.Sprintf("feature %q: write failed: %v", names[d.FeatureID], err))
			continue
		}
		written++
	}
	return written, failures
}
