package jobs

import (
	"fmt"
	"strings"
)

// Record keys follow the ORG#<org>#PROJECT#<project> / VIDEO#<objectKey>
// convention so every record for one project shares a partition key and
// video records sort together under it.
const (
	orgPrefix     = "ORG#"
	projectMarker = "#PROJECT#"
	videoPrefix   = "VIDEO#"
)

// OwnerKey builds the partition key for an (organization, project) pair.
func OwnerKey(orgID, projectID string) string {
	return fmt.Sprintf("%s%s%s%s", orgPrefix, orgID, projectMarker, projectID)
}

// VideoKey builds the sort key for an uploaded object.
func VideoKey(objectKey string) string {
	return videoPrefix + objectKey
}

// ObjectKeyFromVideoKey strips the video prefix, recovering the storage
// object key the record was created from.
func ObjectKeyFromVideoKey(videoKey string) string {
	return strings.TrimPrefix(videoKey, videoPrefix)
}

// IsVideoKey reports whether a sort key refers to a video record.
func IsVideoKey(sk string) bool {
	return strings.HasPrefix(sk, videoPrefix)
}
