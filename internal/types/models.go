package types

// FeatureDefinition is one named, typed slot the extraction fills per audio file.
type FeatureDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsNumeric   bool   `json:"isNumeric"`
}

// ParentRecord owns the raw attachments (e.g. a surveyed tree).
type ParentRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Attachments []RawAttachment `json:"attachments"`
}

type RawAttachment struct {
	ID          string   `json:"id"`
	ValueString *string  `json:"valueString,omitempty"`
	ValueNumber *float64 `json:"valueNumber,omitempty"`
	ParentID    string   `json:"parentId"`
	FeatureID   string   `json:"featureId,omitempty"`
}

// ExtractionResult maps feature name to the raw value returned by the engine.
// Values are string, float64, bool, nil or decoded JSON composites.
type ExtractionResult map[string]any

// DerivedRawRecord is written once per non-null extracted field.
// Exactly one of ValueNumber and ValueString is set.
type DerivedRawRecord struct {
	ParentID    string   `json:"treeId"`
	FeatureID   string   `json:"featureId"`
	ValueNumber *float64 `json:"valueNumber,omitempty"`
	ValueString *string  `json:"valueString,omitempty"`
}

func StringPtr(s string) *string { return &s }

func FloatPtr(f float64) *float64 { return &f }
