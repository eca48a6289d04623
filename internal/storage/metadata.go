package storage

import "strings"

// VideoMetadata is the declarative metadata attached to an object at upload
// time. Every field is optional; absent entries stay empty rather than
// failing the ingest.
type VideoMetadata struct {
	OrgID            string
	ProjectID        string
	UserID           string
	VideoTitle       string
	VideoDescription string
	ThumbnailKey     string
	ContentType      string
}

// ParseVideoMetadata maps raw user-metadata entries into the typed struct.
// Stat responses canonicalize header keys, so matching is case-insensitive.
func ParseVideoMetadata(raw map[string]string) VideoMetadata {
	lower := make(map[string]string, len(raw))
	for k, v := range raw {
		lower[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return VideoMetadata{
		OrgID:            lower["orgid"],
		ProjectID:        lower["projectid"],
		UserID:           lower["userid"],
		VideoTitle:       lower["videotitle"],
		VideoDescription: lower["videodescription"],
		ThumbnailKey:     lower["thumbnailkey"],
		ContentType:      lower["contenttype"],
	}
}

// IsVideo reports whether the attached content-type classification marks
// the object as a video. Uploaders set either the bare "video" tag or a
// full MIME type like "video/mp4".
func (m VideoMetadata) IsVideo() bool {
	return strings.HasPrefix(strings.ToLower(m.ContentType), "video")
}
