package storage

import "testing"

func TestParseVideoMetadata(t *testing.T) {
	// Stat responses canonicalize header keys, so matching must not
	// depend on case.
	raw := map[string]string{
		"Orgid":            "o1",
		"Projectid":        "p1",
		"Userid":           "u1",
		"Videotitle":       "Demo",
		"Videodescription": "A demo video",
		"Thumbnailkey":     "thumbs/demo.png",
		"Contenttype":      "video",
	}
	m := ParseVideoMetadata(raw)
	if m.OrgID != "o1" || m.ProjectID != "p1" || m.UserID != "u1" {
		t.Fatalf("unexpected identifiers: %+v", m)
	}
	if m.VideoTitle != "Demo" || m.VideoDescription != "A demo video" || m.ThumbnailKey != "thumbs/demo.png" {
		t.Fatalf("unexpected descriptive fields: %+v", m)
	}
	if !m.IsVideo() {
		t.Fatal("expected video classification")
	}
}

func TestParseVideoMetadataMissingFieldsDegrade(t *testing.T) {
	m := ParseVideoMetadata(map[string]string{"contenttype": "video/mp4"})
	if m.OrgID != "" || m.VideoTitle != "" || m.ThumbnailKey != "" {
		t.Fatalf("expected empty fields, got %+v", m)
	}
	if !m.IsVideo() {
		t.Fatal("expected video classification for video/mp4")
	}
}

func TestIsVideo(t *testing.T) {
	cases := []struct {
		contentType string
		want        bool
	}{
		{"video", true},
		{"video/mp4", true},
		{"VIDEO/quicktime", true},
		{"image/png", false},
		{"", false},
		{"audio/mpeg", false},
	}
	for _, tc := range cases {
		m := VideoMetadata{ContentType: tc.contentType}
		if got := m.IsVideo(); got != tc.want {
			t.Errorf("IsVideo(%q) = %v, want %v", tc.contentType, got, tc.want)
		}
	}
}
