package storage

import "strings"

// Flags persisted on records. Fetch failures that are expected to recur get
// recorded here instead of raised, so future runs skip the work.
const (
	// Only fetch videos that are collabs with other channels; the channel's
	// own video list is never refreshed.
	FlagMentionsOnly = "mentions-only"

	// Don't refresh Holodex info.
	FlagHolodexPreserve = "holodex-preserve"

	// Don't refresh YouTube info.
	FlagYoutubePreserve = "youtube-preserve"
	// Content is accessible only by the channel owner.
	FlagYoutubePrivate = "youtube-private"
	// Content has been deleted, or it never existed in the first place.
	FlagYoutubeUnavailable = "youtube-unavailable"
	// Content is accessible only by channel members.
	FlagYoutubeMembership = "youtube-membership"
	// Content is accessible only by signed-in accounts with confirmed age.
	FlagYoutubeAgeRestricted = "youtube-age-restricted"

	// Flags of subtitle items.
	FlagSubtitleTranscription = "transcription"
	FlagSubtitleTranslation   = "translation"
)

// ClassifyFetchError maps a YouTube fetch error message to the flag that
// should be persisted on the video, or "" when the failure is not one of the
// known access-restriction cases and must be re-raised to the caller.
func ClassifyFetchError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()

	switch {
	case strings.Contains(msg, "members-only"),
		strings.Contains(msg, "This video is available to this channel's members"):
		return FlagYoutubeMembership
	case strings.Contains(msg, "Private video"),
		strings.Contains(msg, "This video is private"):
		return FlagYoutubePrivate
	case strings.Contains(msg, "Video unavailable"):
		return FlagYoutubeUnavailable
	case strings.Contains(msg, "Sign in to confirm your age"):
		return FlagYoutubeAgeRestricted
	}

	return ""
}
