package tabular

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"songrank/internal/ranking"
)

// Filename is the fixed name of exported files.
const Filename = "songs.csv"

// Header is the column row written first and required on import.
var Header = []string{"rank", "yt_id", "Artist", "Title", "Album", "released", "discovered", "comment"}

// Encode renders entries in input order. Free-text columns are always quoted;
// rank, yt_id and released are written bare. discovered is bare unless it
// holds a delimiter, a quote or a line break.
func Encode(entries []ranking.Entry) []byte {
	var buf bytes.Buffer
	_ = Write(&buf, entries)
	return buf.Bytes()
}

// Write streams the encoded form of entries to w.
func Write(w io.Writer, entries []ranking.Entry) error {
	if _, err := io.WriteString(w, strings.Join(Header, ",")+"\n"); err != nil {
		return err
	}
	var line strings.Builder
	for _, entry := range entries {
		line.Reset()
		line.WriteString(strconv.Itoa(entry.Rank))
		line.WriteByte(',')
		line.WriteString(entry.VideoID)
		line.WriteByte(',')
		line.WriteString(quote(ranking.Value(entry.Artist)))
		line.WriteByte(',')
		line.WriteString(quote(entry.Title))
		line.WriteByte(',')
		line.WriteString(quote(ranking.Value(entry.Album)))
		line.WriteByte(',')
		if entry.Released != nil {
			line.WriteString(strconv.Itoa(*entry.Released))
		}
		line.WriteByte(',')
		line.WriteString(quoteIfNeeded(ranking.Value(entry.Discovered)))
		line.WriteByte(',')
		line.WriteString(quote(ranking.Value(entry.Comment)))
		line.WriteByte('\n')
		if _, err := io.WriteString(w, line.String()); err != nil {
			return err
		}
	}
	return nil
}

func quote(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteIfNeeded(value string) string {
	if strings.ContainsAny(value, ",\"\r\n") {
		return quote(value)
	}
	return value
}
