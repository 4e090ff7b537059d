package spotify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/xeptore/exportify/ratelimit"
	"github.com/xeptore/exportify/result"
	"github.com/xeptore/exportify/spotify/types"
)

// LikedSongsName is the display name of the synthetic playlist wrapping the
// user's saved-tracks library.
const LikedSongsName = "Liked Songs"

func (c *Client) CurrentUser(ctx context.Context, logger zerolog.Logger) (*types.User, error) {
	var respBody struct {
		ID string `json:"id"`
	}
	if err := c.FetchJSON(ctx, logger, c.conf.BaseURL+"/me", 0, &respBody); nil != err {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	if respBody.ID == "" {
		return nil, errors.New("current user response carries no id")
	}

	return &types.User{ID: respBody.ID}, nil
}

func (c *Client) likedSongs(ctx context.Context, logger zerolog.Logger, user *types.User) (*types.Playlist, error) {
	var respBody struct {
		Total int `json:"total"`
	}
	savedTracksURL := c.conf.BaseURL + "/me/tracks"
	if err := c.FetchJSON(ctx, logger, savedTracksURL+"?offset=0&limit=1", 0, &respBody); nil != err {
		return nil, fmt.Errorf("failed to get saved tracks total: %w", err)
	}

	return &types.Playlist{ //nolint:exhaustruct
		Name:    LikedSongsName,
		OwnerID: user.ID,
		Liked:   true,
		Tracks:  types.TracksRef{Total: respBody.Total, Href: savedTracksURL},
	}, nil
}

type playlistsPage struct {
	Total int `json:"total"`
	Items []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Owner struct {
			ID string `json:"id"`
		} `json:"owner"`
		Public        bool `json:"public"`
		Collaborative bool `json:"collaborative"`
		Tracks        struct {
			Total int    `json:"total"`
			Href  string `json:"href"`
		} `json:"tracks"`
	} `json:"items"`
}

func (p *playlistsPage) playlists() []types.Playlist {
	items := make([]types.Playlist, len(p.Items))
	for i, v := range p.Items {
		items[i] = types.Playlist{
			ID:            v.ID,
			Name:          v.Name,
			OwnerID:       v.Owner.ID,
			Public:        v.Public,
			Collaborative: v.Collaborative,
			Liked:         false,
			Tracks:        types.TracksRef{Total: v.Tracks.Total, Href: v.Tracks.Href},
		}
	}

	return items
}

// ListPlaylists enumerates all of the user's playlists, the synthetic Liked
// Songs entry first, preserving server-returned order. Page-level failures
// other than auth expiry degrade the result: the successfully fetched pages
// are returned together with a joined error describing the holes.
func (c *Client) ListPlaylists(ctx context.Context, logger zerolog.Logger) ([]types.Playlist, error) {
	user, err := c.CurrentUser(ctx, logger)
	if nil != err {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}

	liked, err := c.likedSongs(ctx, logger, user)
	if nil != err {
		return nil, fmt.Errorf("failed to build liked songs playlist: %w", err)
	}

	var first playlistsPage
	if err := c.FetchJSON(ctx, logger, c.playlistsPageURL(0, playlistListPageSize), 0, &first); nil != err {
		return nil, fmt.Errorf("failed to get first playlists page: %w", err)
	}

	playlists := append([]types.Playlist{*liked}, first.playlists()...)

	windows := Windows(first.Total, playlistListPageSize)
	if len(windows) > 0 {
		windows = windows[1:]
	}

	results := make([]result.Of[[]types.Playlist], len(windows))
	wg, wgCtx := errgroup.WithContext(ctx)
	for i, w := range windows {
		wg.Go(func() error {
			var page playlistsPage
			delay := ratelimit.Stagger(i+1, ratelimit.PlaylistPageStagger)
			if err := c.FetchJSON(wgCtx, logger, c.playlistsPageURL(w.Offset, w.Limit), delay, &page); nil != err {
				if errors.Is(err, ErrAuthExpired) {
					return err
				}

				results[i] = result.Err[[]types.Playlist](err)

				return nil
			}

			items := page.playlists()
			results[i] = result.Ok(&items)

			return nil
		})
	}
	if err := wg.Wait(); nil != err {
		return nil, fmt.Errorf("failed to wait for playlists page workers: %w", err)
	}

	var errs []error
	for i, r := range results {
		if err := r.Err(); nil != err {
			errs = append(errs, fmt.Errorf("failed to get playlists page at offset %d: %w", windows[i].Offset, err))
			continue
		}

		playlists = append(playlists, *r.Unwrap()...)
	}

	return playlists, errors.Join(errs...)
}

func (c *Client) playlistsPageURL(offset, limit int) string {
	return fmt.Sprintf("%s/me/playlists?offset=%d&limit=%d", c.conf.BaseURL, offset, limit)
}
