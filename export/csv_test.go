package export

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/exportify/spotify/types"
)

func TestSerializeEmpty(t *testing.T) {
	t.Parallel()

	blob, err := Serialize(nil)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(blob)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1, "header only")
	assert.Exactly(t, Header, records[0])
}

func TestSerializeRoundTrip(t *testing.T) {
	t.Parallel()

	rows := []types.Row{
		//nolint:exhaustruct
		{
			TrackURI:    "spotify:track:t1",
			TrackName:   `A "quoted" name`,
			AlbumName:   "Songs, Vol. 2",
			ArtistNames: "First Artist,Second Artist",
			ReleaseDate: "1999-01-01",
			DurationMS:  lo.ToPtr(183000),
			Popularity:  lo.ToPtr(44),
			Explicit:    lo.ToPtr(true),
			AddedBy:     "u1",
			AddedAt:     "2024-03-01T10:00:00Z",
			Genres:      "rock,indie",
			RecordLabel: "Sub Pop",
			Features: types.AudioFeatures{ //nolint:exhaustruct
				Danceability: lo.ToPtr(0.53),
				Tempo:        lo.ToPtr(120.5),
				Key:          lo.ToPtr(0),
			},
		},
		//nolint:exhaustruct
		{
			TrackURI:  "spotify:track:t2",
			TrackName: "Multi\nline",
		},
	}

	blob, err := Serialize(rows)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(blob)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, rec := range records {
		require.Len(t, rec, len(Header))
	}

	first := records[1]
	assert.Equal(t, `A "quoted" name`, first[1])
	assert.Equal(t, "Songs, Vol. 2", first[2])
	assert.Equal(t, "First Artist,Second Artist", first[3])
	assert.Equal(t, "183000", first[5])
	assert.Equal(t, "true", first[7])
	assert.Equal(t, "rock,indie", first[10])
	assert.Equal(t, "0.53", first[12])
	assert.Equal(t, "0", first[14], "a present zero value is not blank")
	assert.Equal(t, "120.5", first[22])

	second := records[2]
	assert.Equal(t, "Multi\nline", second[1])
	for _, col := range []int{5, 6, 7, 12, 13, 14, 22, 23} {
		assert.Empty(t, second[col], "absent values must be empty, never a null literal")
	}
}

func TestSerializeDeterministic(t *testing.T) {
	t.Parallel()

	//nolint:exhaustruct
	rows := []types.Row{{TrackURI: "spotify:track:t1", TrackName: "Song"}}

	a, err := Serialize(rows)
	require.NoError(t, err)
	b, err := Serialize(rows)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		expected string
	}{
		{in: "My Mix!", expected: "my_mix"},
		{in: "Olds but Golds", expected: "olds_but_golds"},
		{in: "lo-fi beats", expected: "lo-fi_beats"},
		{in: "Déjà Vu #1", expected: "dj_vu_1"},
		{in: "***", expected: ""},
		{in: "UPPER lower", expected: "upper_lower"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, FileName(tt.in))
		})
	}
}
