package types

import "time"

// --------------------------------------------
// Top-level request for the batch endpoint
// --------------------------------------------
type BatchRequest struct {
	ParentRecordIDs []string `json:"parentRecordIds,omitempty" validate:"omitempty,dive,required"`
	TemplateID      string   `json:"templateId" validate:"required"`
	EngineAPIKey    string   `json:"engineApiKey" validate:"required"`
}

// --------------------------------------------
// Per parent record outcome
// --------------------------------------------
type RecordReport struct {
	RecordID            string   `json:"treeId"`
	RecordName          string   `json:"treeName"`
	AudioFilesFound     int      `json:"audioFilesFound"`
	AudioFilesProcessed int      `json:"audioFilesProcessed"`
	FeaturesExtracted   int      `json:"featuresExtracted"`
	Errors              []string `json:"errors"`
}

// --------------------------------------------
// Batch-wide totals
// --------------------------------------------
type BatchSummary struct {
	TreesProcessed    int `json:"treesProcessed"`
	AudioFilesFound   int `json:"audioFilesFound"`
	FilesProcessed    int `json:"filesProcessed"`
	TotalErrors       int `json:"totalErrors"`
	FeaturesExtracted int `json:"featuresExtracted"`
}

// --------------------------------------------
// FINAL output returned to the caller
// --------------------------------------------
type BatchResponse struct {
	Success    bool           `json:"success"`
	Message    string         `json:"message"`
	Results    []RecordReport `json:"results"`
	Summary    BatchSummary   `json:"summary"`
	BatchID    string         `json:"batchId"`
	TemplateID string         `json:"templateId"`
	StartedAt  time.Time      `json:"startedAt"`
	DurationMs int64          `json:"durationMs"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}
