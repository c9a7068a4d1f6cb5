package ytref

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	canonicalPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	looseParamPattern = regexp.MustCompile(`(?:^|[?&#;\s])v=([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`)
)

// videoHosts lists the hosts that serve watch, embed and shorts pages. Hosts
// are compared after lower-casing and stripping a leading "www.".
var videoHosts = map[string]struct{}{
	"youtube.com":          {},
	"m.youtube.com":        {},
	"music.youtube.com":    {},
	"youtube-nocookie.com": {},
}

const shortHost = "youtu.be"

// IsCanonical reports whether value already has the identifier shape.
func IsCanonical(value string) bool {
	return canonicalPattern.MatchString(value)
}

// Normalize extracts a canonical video identifier from input, falling back to
// the trimmed input when nothing matches.
func Normalize(input string) string {
	trimmed := strings.TrimSpace(input)
	if IsCanonical(trimmed) {
		return trimmed
	}

	if id, ok := fromURL(trimmed); ok {
		return id
	}

	if match := looseParamPattern.FindStringSubmatch(trimmed); len(match) == 2 {
		return match[1]
	}

	return trimmed
}

func fromURL(value string) (string, bool) {
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	segments := pathSegments(parsed.Path)

	if host == shortHost {
		if len(segments) > 0 && IsCanonical(segments[0]) {
			return segments[0], true
		}
		return "", false
	}

	if _, ok := videoHosts[host]; !ok {
		return "", false
	}
	if v := parsed.Query().Get("v"); IsCanonical(v) {
		return v, true
	}
	// embed/<id>, shorts/<id>, v/<id>, live/<id>
	if len(segments) > 0 {
		last := segments[len(segments)-1]
		if IsCanonical(last) {
			return last, true
		}
	}
	return "", false
}

func pathSegments(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// WatchURL returns the watch page for a canonical identifier.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
}

// ThumbnailURL returns the medium-quality thumbnail for a canonical identifier.
func ThumbnailURL(id string) string {
	return "https://img.youtube.com/vi/" + url.PathEscape(id) + "/mqdefault.jpg"
}
