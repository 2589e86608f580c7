package actionable

import (
	"fmt"

	"voice-features-go/internal/types"
)

// NothingToProcess is the message for a batch whose record set came back empty.
const NothingToProcess = "No trees found to process"

// Message describes a finished batch in one line.
func Message(s types.BatchSummary) string {
	switch {
	case s.TreesProcessed == 0:
		return NothingToProcess
	case s.AudioFilesFound == 0:
		return fmt.Sprintf("Processed %d tree(s); no audio files found", s.TreesProcessed)
	case s.TotalErrors == 0:
		return fmt.Sprintf("Processed %d tree(s): %d/%d audio files, %d features extracted",
			s.TreesProcessed, s.FilesProcessed, s.AudioFilesFound, s.FeaturesExtracted)
	default:
		return fmt.Sprintf("Processed %d tree(s): %d/%d audio files, %d features extracted, %d error(s)",
			s.TreesProcessed, s.FilesProcessed, s.AudioFilesFound, s.FeaturesExtracted, s.TotalErrors)
	}
}
