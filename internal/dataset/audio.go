package dataset

import (
	"voice-features-go/internal/blobstore"
	"voice-features-go/internal/types"
)

// LocateFunc turns an attachment value into a blob locator. The fetcher's
// Locate is the production one; it also accepts bare keys.
type LocateFunc func(raw string) (blobstore.Locator, error)

// IsAudioAttachment reports whether the attachment's string value is a blob
// locator pointing at audio content. A nil locate parses full locators only.
func IsAudioAttachment(a types.RawAttachment, locate LocateFunc) bool {
	if a.ValueString == nil {
		return false
	}
	if locate == nil {
		locate = blobstore.ParseLocator
	}
	loc, err := locate(*a.ValueString)
	if err != nil {
		return false
	}
	return blobstore.IsAudioKey(loc.Key)
}

// AudioAttachments filters rec's attachments down to audio ones, keeping order.
func AudioAttachments(rec types.ParentRecord, locate LocateFunc) []types.RawAttachment {
	var out []types.RawAttachment
	for _, a := range rec.Attachments {
		if IsAudioAttachment(a, locate) {
			out = append(out, a)
		}
	}
	return out
}
