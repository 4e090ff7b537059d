package export

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeptore/exportify/spotify/types"
)

// Header is the fixed export column order. Audio feature columns come last.
var Header = []string{
	"Track URI",
	"Track Name",
	"Album Name",
	"Artist Name(s)",
	"Release Date",
	"Duration (ms)",
	"Popularity",
	"Explicit",
	"Added By",
	"Added At",
	"Genres",
	"Record Label",
	"Danceability",
	"Energy",
	"Key",
	"Loudness",
	"Mode",
	"Speechiness",
	"Acousticness",
	"Instrumentalness",
	"Liveness",
	"Valence",
	"Tempo",
	"Time Signature",
}

// Serialize renders the joined rows into a single CSV blob, header first.
// Free-text fields are quoted as needed so embedded commas, quotes, and
// newlines survive a conforming reader. Absent values become empty fields.
func Serialize(rows []types.Row) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(Header); nil != err {
		return "", fmt.Errorf("failed to write header row: %v", err)
	}
	for i, row := range rows {
		if err := w.Write(record(row)); nil != err {
			return "", fmt.Errorf("failed to write row %d: %v", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); nil != err {
		return "", fmt.Errorf("failed to flush rows: %v", err)
	}

	return sb.String(), nil
}

func record(r types.Row) []string {
	return []string{
		r.TrackURI,
		r.TrackName,
		r.AlbumName,
		r.ArtistNames,
		r.ReleaseDate,
		formatInt(r.DurationMS),
		formatInt(r.Popularity),
		formatBool(r.Explicit),
		r.AddedBy,
		r.AddedAt,
		r.Genres,
		r.RecordLabel,
		formatFloat(r.Features.Danceability),
		formatFloat(r.Features.Energy),
		formatInt(r.Features.Key),
		formatFloat(r.Features.Loudness),
		formatInt(r.Features.Mode),
		formatFloat(r.Features.Speechiness),
		formatFloat(r.Features.Acousticness),
		formatFloat(r.Features.Instrumentalness),
		formatFloat(r.Features.Liveness),
		formatFloat(r.Features.Valence),
		formatFloat(r.Features.Tempo),
		formatInt(r.Features.TimeSignature),
	}
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}

	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}

	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func formatBool(v *bool) string {
	if v == nil {
		return ""
	}

	return strconv.FormatBool(*v)
}
