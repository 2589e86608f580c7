package extractor

import (
	"fmt"
	"strings"

	"voice-features-go/internal/types"
)

// BuildPrompt renders the single instruction sent with every audio payload.
func BuildPrompt(features []types.FeatureDefinition) string {
	var b strings.Builder
	b.WriteString(`You are a field data extraction engine.

Listen to the attached audio recording and extract a value for each feature below.

FEATURES:
`)
	for _, f := range features {
		kind := "text"
		if f.IsNumeric {
			kind = "number"
		}
		fmt.Fprintf(&b, "- %q (%s)", f.Name, kind)
		if d := strings.TrimSpace(f.Description); d != "" {
			fmt.Fprintf(&b, ": %s", d)
		}
		b.WriteByte('\n')
	}
	b.WriteString(`
RULES:
1. Return ONLY a flat JSON object whose keys are exactly the feature names above.
2. Number features must be JSON numbers without units.
3. Text features must be JSON strings.
4. If a value is not mentioned or you are unsure, use null. Do not guess.
5. Do not wrap the JSON in markdown or add commentary.
`)
	return b.String()
}
