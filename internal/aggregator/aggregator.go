package aggregator

import "voice-features-go/internal/types"

// Summarize folds record reports into batch totals.
func Summarize(reports []types.RecordReport) types.BatchSummary {
	var s types.BatchSummary
	for _, r := range reports {
		s.TreesProcessed++
		s.AudioFilesFound += r.AudioFilesFound
		s.FilesProcessed += r.AudioFilesProcessed
		s.FeaturesExtracted += r.FeaturesExtracted
		s.TotalErrors += len(r.Errors)
	}
	return s
}

// FailedRecords returns the ids of records that found audio but processed none of it.
func FailedRecords(reports []types.RecordReport) []string {
	var out []string
	for _, r := range reports {
		if r.AudioFilesFound > 0 && r.AudioFilesProcessed == 0 {
			out = append(out, r.RecordID)
		}
	}
	return out
}
