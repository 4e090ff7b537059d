package spotify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/xeptore/exportify/iterutil"
	"github.com/xeptore/exportify/ratelimit"
	"github.com/xeptore/exportify/result"
	"github.com/xeptore/exportify/spotify/types"
)

// AggregatePlaylist turns one playlist into its denormalized export rows. It
// retrieves every track page, derives the deduplicated artist/album/track
// identifier sets, resolves genres, record labels and audio features in
// capped batches, and joins everything keyed by identifier, preserving the
// original track order.
//
// Track retrieval failures abort the playlist; enrichment failures only blank
// out the affected columns. Auth expiry aborts unconditionally.
func (c *Client) AggregatePlaylist(ctx context.Context, logger zerolog.Logger, pl types.Playlist) ([]types.Row, error) {
	logger = logger.With().Str("playlist", pl.Name).Logger()

	tracks, err := c.playlistTracks(ctx, logger, pl)
	if nil != err {
		return nil, fmt.Errorf("failed to list playlist tracks: %w", err)
	}

	// The identifier sets are folded here as a pure step, only after the
	// whole retrieval stage has settled.
	var artistIDs, albumIDs, trackIDs []string
	for _, t := range tracks {
		if t == nil {
			continue
		}
		for _, a := range t.Artists {
			if a.ID != "" {
				artistIDs = append(artistIDs, a.ID)
			}
		}
		if t.Album != nil && t.Album.ID != "" {
			albumIDs = append(albumIDs, t.Album.ID)
		}
		if t.ID != "" {
			trackIDs = append(trackIDs, t.ID)
		}
	}
	artistIDs = lo.Uniq(artistIDs)
	albumIDs = lo.Uniq(albumIDs)
	trackIDs = lo.Uniq(trackIDs)

	// Each wave is sequenced after the previous one has settled, spreading
	// the request volleys over time on top of their internal staggering.
	genres, err := c.artistGenres(ctx, logger, artistIDs)
	if nil != err {
		return nil, fmt.Errorf("failed to resolve artist genres: %w", err)
	}

	labels, err := c.albumLabels(ctx, logger, albumIDs)
	if nil != err {
		return nil, fmt.Errorf("failed to resolve album labels: %w", err)
	}

	feats, err := c.audioFeatures(ctx, logger, trackIDs)
	if nil != err {
		return nil, fmt.Errorf("failed to resolve audio features: %w", err)
	}

	return joinRows(tracks, genres, labels, feats), nil
}

type tracksPage struct {
	Items []struct {
		AddedBy *struct {
			ID string `json:"id"`
		} `json:"added_by"`
		AddedAt string `json:"added_at"`
		Track   *struct {
			ID         string `json:"id"`
			URI        string `json:"uri"`
			Name       string `json:"name"`
			DurationMS int    `json:"duration_ms"`
			Popularity int    `json:"popularity"`
			Explicit   bool   `json:"explicit"`
			Album      *struct {
				ID          string `json:"id"`
				Name        string `json:"name"`
				ReleaseDate string `json:"release_date"`
			} `json:"album"`
			Artists []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"track"`
	} `json:"items"`
}

// tracks maps page items to the data model, one entry per item. An item whose
// track object is missing maps to nil so it still occupies its row slot.
func (p *tracksPage) tracks() []*types.Track {
	items := make([]*types.Track, len(p.Items))
	for i, v := range p.Items {
		if v.Track == nil {
			continue
		}

		t := &types.Track{ //nolint:exhaustruct
			ID:         v.Track.ID,
			URI:        v.Track.URI,
			Name:       v.Track.Name,
			DurationMS: v.Track.DurationMS,
			Popularity: v.Track.Popularity,
			Explicit:   v.Track.Explicit,
			AddedAt:    v.AddedAt,
		}
		if v.AddedBy != nil {
			t.AddedBy = v.AddedBy.ID
		}
		if v.Track.Album != nil {
			t.Album = &types.AlbumRef{
				ID:          v.Track.Album.ID,
				Name:        v.Track.Album.Name,
				ReleaseDate: v.Track.Album.ReleaseDate,
			}
		}
		t.Artists = make([]types.ArtistRef, len(v.Track.Artists))
		for j, a := range v.Track.Artists {
			t.Artists[j] = types.ArtistRef{ID: a.ID, Name: a.Name}
		}
		items[i] = t
	}

	return items
}

// playlistTracks retrieves every page of the playlist's track collection as a
// single staggered volley and concatenates them in order.
func (c *Client) playlistTracks(ctx context.Context, logger zerolog.Logger, pl types.Playlist) ([]*types.Track, error) {
	pageSize := lo.Ternary(pl.Liked, savedTracksPageSize, playlistTracksPageSize)
	windows := Windows(pl.Tracks.Total, pageSize)

	pages := make([][]*types.Track, len(windows))
	wg, wgCtx := errgroup.WithContext(ctx)
	for i, w := range windows {
		wg.Go(func() error {
			var page tracksPage
			reqURL := fmt.Sprintf("%s?offset=%d&limit=%d", pl.Tracks.Href, w.Offset, w.Limit)
			delay := ratelimit.Stagger(i, ratelimit.TrackPageStagger)
			if err := c.FetchJSON(wgCtx, logger, reqURL, delay, &page); nil != err {
				return fmt.Errorf("failed to get tracks page at offset %d: %w", w.Offset, err)
			}
			pages[i] = page.tracks()

			return nil
		})
	}
	if err := wg.Wait(); nil != err {
		return nil, fmt.Errorf("failed to wait for tracks page workers: %w", err)
	}

	return lo.Flatten(pages), nil
}

type chunkReq struct {
	url   string
	delay time.Duration
}

func chunkReqs(baseURL, endpoint string, ids []string, size int, stagger time.Duration) []chunkReq {
	return iterutil.Map(lo.Chunk(ids, size), func(i int, chunk []string) chunkReq {
		return chunkReq{
			url:   baseURL + "/" + endpoint + "?ids=" + strings.Join(chunk, ","),
			delay: ratelimit.Stagger(i, stagger),
		}
	})
}

// fetchChunks issues one staggered request per chunk and settles every slot.
// Auth expiry cancels the whole volley; any other failure is absorbed into
// its slot so sibling chunks still resolve.
func fetchChunks[T any](ctx context.Context, c *Client, logger zerolog.Logger, reqs []chunkReq) ([]result.Of[T], error) {
	results := make([]result.Of[T], len(reqs))
	wg, wgCtx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		wg.Go(func() error {
			var resp T
			if err := c.FetchJSON(wgCtx, logger, req.url, req.delay, &resp); nil != err {
				if errors.Is(err, ErrAuthExpired) {
					return err
				}

				logger.Warn().Err(err).Str("url", req.url).Msg("Enrichment chunk failed. Its fields will be left blank")
				results[i] = result.Err[T](err)

				return nil
			}
			results[i] = result.Ok(&resp)

			return nil
		})
	}
	if err := wg.Wait(); nil != err {
		return nil, fmt.Errorf("failed to wait for chunk workers: %w", err)
	}

	return results, nil
}

type artistsChunk struct {
	Artists []*struct {
		ID     string   `json:"id"`
		Genres []string `json:"genres"`
	} `json:"artists"`
}

// artistGenres maps every resolvable artist identifier to its genre tags.
// Artists the catalog does not know stay absent from the mapping.
func (c *Client) artistGenres(ctx context.Context, logger zerolog.Logger, ids []string) (map[string][]string, error) {
	reqs := chunkReqs(c.conf.BaseURL, "artists", ids, artistsChunkSize, ratelimit.ArtistChunkStagger)
	results, err := fetchChunks[artistsChunk](ctx, c, logger, reqs)
	if nil != err {
		return nil, err
	}

	genres := make(map[string][]string, len(ids))
	for _, r := range results {
		if nil != r.Err() {
			continue
		}
		for _, a := range r.Unwrap().Artists {
			if a != nil && a.ID != "" {
				genres[a.ID] = a.Genres
			}
		}
	}

	return genres, nil
}

type albumsChunk struct {
	Albums []*struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	} `json:"albums"`
}

func (c *Client) albumLabels(ctx context.Context, logger zerolog.Logger, ids []string) (map[string]string, error) {
	reqs := chunkReqs(c.conf.BaseURL, "albums", ids, albumsChunkSize, ratelimit.AlbumChunkStagger)
	results, err := fetchChunks[albumsChunk](ctx, c, logger, reqs)
	if nil != err {
		return nil, err
	}

	labels := make(map[string]string, len(ids))
	for _, r := range results {
		if nil != r.Err() {
			continue
		}
		for _, a := range r.Unwrap().Albums {
			if a != nil && a.ID != "" {
				labels[a.ID] = a.Label
			}
		}
	}

	return labels, nil
}

type featuresChunk struct {
	AudioFeatures []*struct {
		ID               string   `json:"id"`
		Danceability     *float64 `json:"danceability"`
		Energy           *float64 `json:"energy"`
		Key              *int     `json:"key"`
		Loudness         *float64 `json:"loudness"`
		Mode             *int     `json:"mode"`
		Speechiness      *float64 `json:"speechiness"`
		Acousticness     *float64 `json:"acousticness"`
		Instrumentalness *float64 `json:"instrumentalness"`
		Liveness         *float64 `json:"liveness"`
		Valence          *float64 `json:"valence"`
		Tempo            *float64 `json:"tempo"`
		TimeSignature    *int     `json:"time_signature"`
	} `json:"audio_features"`
}

// audioFeatures maps track identifiers to their audio feature descriptors.
// Entries are keyed by the identifier the response itself carries, never by
// request position: the response array is not trusted to align with the
// request when some identifier turned out invalid.
func (c *Client) audioFeatures(ctx context.Context, logger zerolog.Logger, ids []string) (map[string]types.AudioFeatures, error) {
	reqs := chunkReqs(c.conf.BaseURL, "audio-features", ids, featuresChunkSize, ratelimit.FeatureChunkStagger)
	results, err := fetchChunks[featuresChunk](ctx, c, logger, reqs)
	if nil != err {
		return nil, err
	}

	feats := make(map[string]types.AudioFeatures, len(ids))
	for _, r := range results {
		if nil != r.Err() {
			continue
		}
		for _, f := range r.Unwrap().AudioFeatures {
			if f == nil || f.ID == "" {
				continue
			}
			feats[f.ID] = types.AudioFeatures{
				Danceability:     f.Danceability,
				Energy:           f.Energy,
				Key:              f.Key,
				Loudness:         f.Loudness,
				Mode:             f.Mode,
				Speechiness:      f.Speechiness,
				Acousticness:     f.Acousticness,
				Instrumentalness: f.Instrumentalness,
				Liveness:         f.Liveness,
				Valence:          f.Valence,
				Tempo:            f.Tempo,
				TimeSignature:    f.TimeSignature,
			}
		}
	}

	return feats, nil
}

func joinRows(
	tracks []*types.Track,
	genres map[string][]string,
	labels map[string]string,
	feats map[string]types.AudioFeatures,
) []types.Row {
	rows := make([]types.Row, len(tracks))
	for i, t := range tracks {
		if t == nil {
			continue
		}

		var gs []string
		for _, a := range t.Artists {
			gs = append(gs, genres[a.ID]...)
		}
		gs = lo.Filter(lo.Uniq(gs), func(g string, _ int) bool { return g != "" })

		row := types.Row{ //nolint:exhaustruct
			TrackURI:  t.URI,
			TrackName: t.Name,
			ArtistNames: strings.Join(
				lo.Map(t.Artists, func(a types.ArtistRef, _ int) string { return a.Name }),
				",",
			),
			DurationMS: &t.DurationMS,
			Popularity: &t.Popularity,
			Explicit:   &t.Explicit,
			AddedBy:    t.AddedBy,
			AddedAt:    t.AddedAt,
			Genres:     strings.Join(gs, ","),
			Features:   feats[t.ID],
		}
		if t.Album != nil {
			row.AlbumName = t.Album.Name
			row.ReleaseDate = t.Album.ReleaseDate
			row.RecordLabel = labels[t.Album.ID]
		}
		rows[i] = row
	}

	return rows
}
