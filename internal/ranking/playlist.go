package ranking

import (
	"math/rand/v2"
	"net/url"
	"slices"
	"strings"
)

// DefaultPlaylistSize is the number of videos YouTube accepts in one
// watch_videos link.
const DefaultPlaylistSize = 50

const playlistBase = "https://www.youtube.com/watch_videos?video_ids="

// PlaylistURL builds an anonymous YouTube playlist link for the first n
// entries that carry a video id. n <= 0 uses DefaultPlaylistSize. The result
// is empty when no entry has a video id.
func PlaylistURL(entries []Entry, n int) string {
	if n <= 0 {
		n = DefaultPlaylistSize
	}
	ids := make([]string, 0, min(n, len(entries)))
	for _, entry := range entries {
		if len(ids) == n {
			break
		}
		if id := strings.TrimSpace(entry.VideoID); id != "" {
			ids = append(ids, url.QueryEscape(id))
		}
	}
	if len(ids) == 0 {
		return ""
	}
	return playlistBase + strings.Join(ids, ",")
}

// Shuffle picks min(n, len(entries)) entries at random and returns them in
// their original list order. n <= 0 uses DefaultPlaylistSize.
func Shuffle(entries []Entry, n int, rnd *rand.Rand) []Entry {
	if n <= 0 {
		n = DefaultPlaylistSize
	}
	count := min(n, len(entries))
	if count == 0 {
		return nil
	}

	indexes := make([]int, len(entries))
	for i := range indexes {
		indexes[i] = i
	}
	for i := len(indexes) - 1; i > 0; i-- {
		j := rnd.IntN(i + 1)
		indexes[i], indexes[j] = indexes[j], indexes[i]
	}
	picked := indexes[:count]
	slices.Sort(picked)

	out := make([]Entry, count)
	for i, index := range picked {
		out[i] = entries[index]
	}
	return out
}
