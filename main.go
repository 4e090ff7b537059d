package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"

	"github.com/xeptore/exportify/config"
	"github.com/xeptore/exportify/constants"
	"github.com/xeptore/exportify/export"
	"github.com/xeptore/exportify/log"
	"github.com/xeptore/exportify/spotify"
	"github.com/xeptore/exportify/spotify/auth"
	"github.com/xeptore/exportify/spotify/types"
)

func main() {
	logger := log.NewDefault()

	//nolint:exhaustruct
	app := &cli.Command{
		Name:    "exportify",
		Version: constants.Version,
		Metadata: map[string]any{
			"compiled_at": constants.CompileTime,
		},
		Suggest:                    true,
		Usage:                      "Export Spotify playlists to CSV",
		EnableShellCompletion:      true,
		ShellCompletionCommandName: "shell-completion",
		AllowExtFlags:              false,
		Flags: []cli.Flag{
			//nolint:exhaustruct
			&cli.StringFlag{
				Name:     "config",
				Usage:    "Config file path",
				Required: false,
			},
		},
		Commands: []*cli.Command{
			//nolint:exhaustruct
			{
				Name:   "login",
				Usage:  "Authorize access to your Spotify library",
				Action: login,
			},
			//nolint:exhaustruct
			{
				Name:   "logout",
				Usage:  "Forget the stored Spotify credential",
				Action: logout,
			},
			//nolint:exhaustruct
			{
				Name:   "playlists",
				Usage:  "List your playlists",
				Action: listPlaylists,
			},
			//nolint:exhaustruct
			{
				Name:  "export",
				Usage: "Export one playlist to CSV, or all of them to a zip archive",
				Flags: []cli.Flag{
					//nolint:exhaustruct
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Export every playlist into a zip archive",
					},
					//nolint:exhaustruct
					&cli.StringFlag{
						Name:  "playlist",
						Usage: "Name of the playlist to export",
					},
				},
				Action: exportPlaylists,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); nil != err {
		if errors.Is(err, context.Canceled) {
			logger.Trace().Msg("Application was canceled")
			os.Exit(1)
		}

		var exitCode exitCodeError
		if errors.As(err, &exitCode) {
			os.Exit(int(exitCode))
		}

		logger.Error().Err(err).Msg("Application exited with error")
		os.Exit(10)
	}
}

type exitCodeError int

func (e exitCodeError) Error() string {
	return "error with exit code: " + strconv.Itoa(int(e))
}

func setup(cmd *cli.Command) (zerolog.Logger, *config.Config, error) {
	logger := log.NewDefault()

	if err := godotenv.Load(); nil != err {
		if !errors.Is(err, os.ErrNotExist) {
			return logger, nil, fmt.Errorf("load .env file: %v", err)
		}
		logger.Debug().Msg(".env file was not found")
	} else {
		logger.Debug().Msg(".env file was loaded")
	}

	conf, err := config.Load(cmd.String("config"))
	if nil != err {
		return logger, nil, fmt.Errorf("load config: %v", err)
	}

	logger = log.FromConfig(conf.Log)

	logger.Debug().Dict("config", conf.ToDict()).Msg("Config loaded")

	return logger, conf, nil
}

func login(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, conf, err := setup(cmd)
	if nil != err {
		return err
	}

	a, err := auth.New(logger, conf.Spotify.CredsDir)
	if nil != err {
		return fmt.Errorf("create auth: %v", err)
	}

	if err := a.Login(ctx, logger, conf.Spotify); nil != err {
		if errors.Is(err, syscall.ENOTTY) {
			logger.Error().Msg("No TTY detected. Please run the login command from an interactive terminal.")
			return exitCodeError(1)
		}

		return fmt.Errorf("login to spotify: %w", err)
	}

	logger.Info().Msg("Logged in successfully")

	return nil
}

func logout(ctx context.Context, cmd *cli.Command) error {
	_, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, conf, err := setup(cmd)
	if nil != err {
		return err
	}

	a, err := auth.New(logger, conf.Spotify.CredsDir)
	if nil != err {
		return fmt.Errorf("create auth: %v", err)
	}

	if err := a.Logout(); nil != err {
		if errors.Is(err, auth.ErrLoginRequired) {
			logger.Info().Msg("No stored credential to forget")
			return nil
		}

		return fmt.Errorf("logout from spotify: %w", err)
	}

	logger.Info().Msg("Stored credential removed")

	return nil
}

func listPlaylists(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, conf, err := setup(cmd)
	if nil != err {
		return err
	}

	client, err := newClient(logger, conf)
	if nil != err {
		return err
	}

	playlists, err := client.ListPlaylists(ctx, logger)
	if nil != err {
		if len(playlists) == 0 {
			return fmt.Errorf("list playlists: %w", err)
		}

		logger.Error().Err(err).Msg("Some playlist pages could not be fetched. Showing a partial list")
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Name", "Owner", "Tracks"})
	for i, pl := range playlists {
		t.AppendRow(table.Row{i + 1, pl.Name, pl.OwnerID, pl.Tracks.Total})
	}
	t.Render()

	return nil
}

func exportPlaylists(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, conf, err := setup(cmd)
	if nil != err {
		return err
	}

	client, err := newClient(logger, conf)
	if nil != err {
		return err
	}

	playlists, err := client.ListPlaylists(ctx, logger)
	if nil != err {
		if errors.Is(err, spotify.ErrAuthExpired) {
			logger.Error().Msg("Credential rejected. Run the login command to reauthorize.")
			return exitCodeError(2)
		}

		if len(playlists) == 0 {
			return fmt.Errorf("list playlists: %w", err)
		}

		logger.Error().Err(err).Msg("Some playlist pages could not be fetched. Exporting what was found")
	}

	sink := export.NewSink()
	exporter := export.New(client, sink, conf.Export)

	if cmd.Bool("all") {
		path, err := exporter.ExportAll(ctx, logger, playlists)
		surface(logger, sink)
		if nil != err {
			if errors.Is(err, spotify.ErrAuthExpired) {
				if path != "" {
					logger.Info().Str("path", path).Msg("Partial archive written")
				}
				logger.Error().Msg("Credential rejected. Run the login command to reauthorize.")
				return exitCodeError(2)
			}

			return fmt.Errorf("export all playlists: %w", err)
		}
		logger.Info().Str("path", path).Msg("Archive written")

		return nil
	}

	pl, err := pickPlaylist(cmd.String("playlist"), playlists)
	if nil != err {
		return err
	}

	path, err := exporter.ExportOne(ctx, logger, *pl)
	surface(logger, sink)
	if nil != err {
		if errors.Is(err, spotify.ErrAuthExpired) {
			logger.Error().Msg("Credential rejected. Run the login command to reauthorize.")
			return exitCodeError(2)
		}

		return fmt.Errorf("export playlist: %w", err)
	}
	logger.Info().Str("path", path).Msg("Playlist exported")

	return nil
}

func pickPlaylist(name string, playlists []types.Playlist) (*types.Playlist, error) {
	if name != "" {
		pl, found := lo.Find(playlists, func(pl types.Playlist) bool { return pl.Name == name })
		if !found {
			return nil, fmt.Errorf("no playlist named %q", name)
		}

		return &pl, nil
	}

	options := lo.Map(playlists, func(pl types.Playlist, _ int) string {
		return fmt.Sprintf("%s (%d tracks)", pl.Name, pl.Tracks.Total)
	})

	var idx int
	prompt := &survey.Select{ //nolint:exhaustruct
		Message:  "Pick a playlist to export:",
		Options:  options,
		PageSize: 15,
	}
	if err := survey.AskOne(prompt, &idx); nil != err {
		return nil, fmt.Errorf("ask for playlist: %v", err)
	}

	return &playlists[idx], nil
}

func surface(logger zerolog.Logger, sink *export.Sink) {
	for _, entry := range sink.Entries() {
		logger.Error().Err(entry.Err).Str("playlist", entry.Playlist).Msg("Export failed")
	}
}

func newClient(logger zerolog.Logger, conf *config.Config) (*spotify.Client, error) {
	a, err := auth.New(logger, conf.Spotify.CredsDir)
	if nil != err {
		return nil, fmt.Errorf("create auth: %v", err)
	}

	if a.Stale() {
		logger.Warn().Msg("Stored credential is missing or past its nominal lifetime. The API will reject it if it has expired; run the login command to reauthorize.")
	}

	return spotify.NewClient(a, conf.Spotify), nil
}
