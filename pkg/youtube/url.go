package youtube

import (
	"regexp"
	"strings"
)

// urlRe accepts watch, embed, v/ and youtu.be links. Anchored at the start
// only: trailing query parameters are allowed.
var urlRe = regexp.MustCompile(
	`^(https?://)?(www\.)?(youtube|youtu|youtube-nocookie)\.(com|be)/` +
		`(watch\?v=|embed/|v/|.+\?v=)?([^&=%\?]{11})`)

const shortsMarker = "/shorts/"

// IsYouTubeURL reports whether raw looks like a YouTube video link.
func IsYouTubeURL(raw string) bool {
	return urlRe.MatchString(strings.TrimSpace(raw))
}

// IsShorts reports whether raw points at a YouTube Shorts clip.
func IsShorts(raw string) bool {
	return strings.Contains(raw, shortsMarker)
}

// Normalize trims raw and prefixes it with https:// when it does not already
// start with that scheme.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

// VideoID extracts the 11 character video ID, or "" if raw is not a
// YouTube link.
func VideoID(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, shortsMarker); i >= 0 {
		id := raw[i+len(shortsMarker):]
		if j := strings.IndexAny(id, "?&/#"); j >= 0 {
			id = id[:j]
		}
		if len(id) != 11 {
			return ""
		}
		return id
	}
	m := urlRe.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return m[6]
}
