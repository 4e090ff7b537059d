package export

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/xeptore/exportify/config"
	"github.com/xeptore/exportify/spotify"
	"github.com/xeptore/exportify/spotify/types"
)

// utf8BOM prefixes every emitted CSV so spreadsheet applications pick up the
// encoding.
const utf8BOM = "\uFEFF"

// Aggregator produces the joined export rows for one playlist.
type Aggregator interface {
	AggregatePlaylist(ctx context.Context, logger zerolog.Logger, pl types.Playlist) ([]types.Row, error)
}

type Exporter struct {
	agg      Aggregator
	reporter Reporter
	conf     config.Export
}

func New(agg Aggregator, reporter Reporter, conf config.Export) *Exporter {
	return &Exporter{
		agg:      agg,
		reporter: reporter,
		conf:     conf,
	}
}

// ExportOne aggregates and serializes a single playlist into its own CSV file
// under the configured output directory, and returns the written path.
func (e *Exporter) ExportOne(ctx context.Context, logger zerolog.Logger, pl types.Playlist) (string, error) {
	blob, err := e.playlistCSV(ctx, logger, pl)
	if nil != err {
		e.reporter.Report(pl.Name, err)
		return "", fmt.Errorf("failed to export playlist %q: %w", pl.Name, err)
	}

	if err := os.MkdirAll(e.conf.OutputDir, 0o0755); nil != err {
		return "", fmt.Errorf("failed to create output directory: %v", err)
	}

	path := filepath.Join(e.conf.OutputDir, FileName(pl.Name)+".csv")
	if err := os.WriteFile(path, []byte(utf8BOM+blob), 0o0644); nil != err {
		return "", fmt.Errorf("failed to write csv file: %v", err)
	}

	return path, nil
}

// ExportAll exports every playlist into one zip archive, sequentially. A
// playlist's failure is reported and skipped; the archive still carries every
// playlist that succeeded. Only auth expiry halts the batch, since no further
// request can succeed without a fresh credential; it comes back to the caller
// together with the partial archive path.
func (e *Exporter) ExportAll(ctx context.Context, logger zerolog.Logger, playlists []types.Playlist) (p string, err error) {
	if err := os.MkdirAll(e.conf.OutputDir, 0o0755); nil != err {
		return "", fmt.Errorf("failed to create output directory: %v", err)
	}

	path := filepath.Join(e.conf.OutputDir, e.conf.ArchiveName)
	f, err := os.Create(path)
	if nil != err {
		return "", fmt.Errorf("failed to create archive file: %v", err)
	}
	defer func() {
		if closeErr := f.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("failed to close archive file: %v", closeErr))
		}
	}()

	zw := zip.NewWriter(f)
	taken := make(map[string]struct{}, len(playlists))
	var authErr error
	for _, pl := range playlists {
		blob, csvErr := e.playlistCSV(ctx, logger, pl)
		if nil != csvErr {
			e.reporter.Report(pl.Name, csvErr)
			logger.Error().Err(csvErr).Str("playlist", pl.Name).Msg("Failed to export playlist. The others are still being zipped")

			if errors.Is(csvErr, spotify.ErrAuthExpired) {
				authErr = csvErr
				break
			}

			continue
		}

		// Duplicate names grow trailing underscores so playlists with the
		// same normalized name don't overwrite each other in the archive.
		name := FileName(pl.Name)
		for {
			if _, dup := taken[name]; !dup {
				break
			}
			name += "_"
		}
		taken[name] = struct{}{}

		w, err := zw.Create(name + ".csv")
		if nil != err {
			return "", fmt.Errorf("failed to create archive entry for playlist %q: %v", pl.Name, err)
		}
		if _, err := w.Write([]byte(utf8BOM + blob)); nil != err {
			return "", fmt.Errorf("failed to write archive entry for playlist %q: %v", pl.Name, err)
		}

		logger.Info().Str("playlist", pl.Name).Int("tracks", pl.Tracks.Total).Msg("Playlist exported")
	}

	if err := zw.Close(); nil != err {
		return "", fmt.Errorf("failed to close archive writer: %v", err)
	}

	if nil != authErr {
		return path, fmt.Errorf("failed to export remaining playlists: %w", authErr)
	}

	return path, nil
}

func (e *Exporter) playlistCSV(ctx context.Context, logger zerolog.Logger, pl types.Playlist) (string, error) {
	rows, err := e.agg.AggregatePlaylist(ctx, logger, pl)
	if nil != err {
		return "", fmt.Errorf("failed to aggregate playlist: %w", err)
	}

	blob, err := Serialize(rows)
	if nil != err {
		return "", fmt.Errorf("failed to serialize rows: %w", err)
	}

	return blob, nil
}

var fileNameStrip = regexp.MustCompile(`[^a-zA-Z0-9\- ]`)

// FileName derives an export file name from a playlist name: non-alphanumeric
// characters other than hyphens and spaces are stripped, spaces become
// underscores, and the result is lowercased.
func FileName(playlistName string) string {
	s := fileNameStrip.ReplaceAllString(playlistName, "")
	s = strings.ReplaceAll(s, " ", "_")

	return strings.ToLower(s)
}
