package types

type User struct {
	ID string
}

// TracksRef is a playlist's track-collection locator: the declared item total
// plus the endpoint URL its pages are fetched from.
type TracksRef struct {
	Total int
	Href  string
}

type Playlist struct {
	ID            string
	Name          string
	OwnerID       string
	Tracks        TracksRef
	Public        bool
	Collaborative bool
	// Liked marks the synthetic playlist wrapping the user's saved-tracks
	// library. It has no identity of its own beyond the current user, and its
	// track pages are capped at 50 items instead of 100.
	Liked bool
}

type ArtistRef struct {
	ID   string
	Name string
}

type AlbumRef struct {
	ID          string
	Name        string
	ReleaseDate string
}

type Track struct {
	ID         string
	URI        string
	Name       string
	DurationMS int
	Popularity int
	Explicit   bool
	Album      *AlbumRef
	Artists    []ArtistRef
	AddedBy    string
	AddedAt    string
}

// AudioFeatures are per-track numeric descriptors. Every field is optional:
// the catalog may have no data at all for a track, or an entry with null
// fields, and both serialize as blank columns.
type AudioFeatures struct {
	Danceability     *float64
	Energy           *float64
	Key              *int
	Loudness         *float64
	Mode             *int
	Speechiness      *float64
	Acousticness     *float64
	Instrumentalness *float64
	Liveness         *float64
	Valence          *float64
	Tempo            *float64
	TimeSignature    *int
}

// Row is the fully joined, denormalized export record, one per playlist item.
// Pointer fields are absent when the item's track object was missing.
type Row struct {
	TrackURI    string
	TrackName   string
	AlbumName   string
	ArtistNames string
	ReleaseDate string
	DurationMS  *int
	Popularity  *int
	Explicit    *bool
	AddedBy     string
	AddedAt     string
	Genres      string
	RecordLabel string
	Features    AudioFeatures
}
