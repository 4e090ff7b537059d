package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log     Log     `yaml:"log"`
	Spotify Spotify `yaml:"spotify"`
	Export  Export  `yaml:"export"`
}

func (c *Config) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Dict("log", c.Log.ToDict()).
		Dict("spotify", c.Spotify.ToDict()).
		Dict("export", c.Export.ToDict())
}

func (c *Config) setDefaults() {
	c.Log.setDefaults()
	c.Spotify.setDefaults()
	c.Export.setDefaults()
}

func (c *Config) validate() error {
	if err := c.Log.validate(); nil != err {
		return fmt.Errorf("log config validation failed: %v", err)
	}

	if err := c.Spotify.validate(); nil != err {
		return fmt.Errorf("spotify config validation failed: %v", err)
	}

	if err := c.Export.validate(); nil != err {
		return fmt.Errorf("export config validation failed: %v", err)
	}

	return nil
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Log) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("level", c.Level).
		Str("format", c.Format)
}

func (c *Log) setDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}

	if c.Format == "" {
		c.Format = "pretty"
	}
}

func (c *Log) validate() error {
	if !slices.Contains([]string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}, c.Level) {
		return fmt.Errorf(
			"level must be one of: trace, debug, info, warn, error, fatal, panic, got: %s",
			c.Level,
		)
	}

	if !slices.Contains([]string{"json", "pretty"}, c.Format) {
		return fmt.Errorf("format must be 'json' or 'pretty', got: %s", c.Format)
	}

	return nil
}

type Spotify struct {
	// ClientID can also be set via the SPOTIFY_CLIENT_ID environment variable,
	// which takes precedence over the config file.
	ClientID     string          `yaml:"client_id"`
	RedirectPort int             `yaml:"redirect_port"`
	CredsDir     string          `yaml:"creds_dir"`
	BaseURL      string          `yaml:"base_url"`
	AccountsURL  string          `yaml:"accounts_url"`
	Timeouts     SpotifyTimeouts `yaml:"timeouts"`
	Retry        SpotifyRetry    `yaml:"retry"`
}

func (c *Spotify) ToDict() *zerolog.Event {
	return zerolog.
		Dict().
		Str("client_id", c.ClientID).
		Int("redirect_port", c.RedirectPort).
		Str("creds_dir", c.CredsDir).
		Str("base_url", c.BaseURL).
		Str("accounts_url", c.AccountsURL).
		Dict("timeouts", c.Timeouts.ToDict()).
		Dict("retry", c.Retry.ToDict())
}

func (c *Spotify) setDefaults() {
	if c.ClientID == "" {
		c.ClientID = "d99b082b01d74d61a100c9a0e056380b"
	}

	if c.RedirectPort == 0 {
		c.RedirectPort = 8080
	}

	if c.CredsDir == "" {
		c.CredsDir = "./creds"
	}

	if c.BaseURL == "" {
		c.BaseURL = "https://api.spotify.com/v1"
	}

	if c.AccountsURL == "" {
		c.AccountsURL = "https://accounts.spotify.com"
	}

	c.Timeouts.setDefaults()
	c.Retry.setDefaults()
}

func (c *Spotify) validate() error {
	if c.RedirectPort < 1 || c.RedirectPort > 65535 {
		return fmt.Errorf("redirect_port must be a valid port number, got: %d", c.RedirectPort)
	}

	if c.CredsDir == "" {
		return errors.New("creds_dir is required")
	}

	if err := c.Timeouts.validate(); nil != err {
		return fmt.Errorf("timeouts config validation failed: %v", err)
	}

	if err := c.Retry.validate(); nil != err {
		return fmt.Errorf("retry config validation failed: %v", err)
	}

	return nil
}

type SpotifyTimeouts struct {
	Request       int `yaml:"request"`
	TokenExchange int `yaml:"token_exchange"`
}

func (c *SpotifyTimeouts) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Int("request", c.Request).
		Int("token_exchange", c.TokenExchange)
}

func (c *SpotifyTimeouts) setDefaults() {
	if c.Request == 0 {
		c.Request = 30
	}

	if c.TokenExchange == 0 {
		c.TokenExchange = 10
	}
}

func (c *SpotifyTimeouts) validate() error {
	if c.Request < 0 {
		return errors.New("request must be greater than 0")
	}

	if c.TokenExchange < 0 {
		return errors.New("token_exchange must be greater than 0")
	}

	return nil
}

type SpotifyRetry struct {
	// MaxAttempts caps re-issues of a rate-limited request before its error
	// surfaces to the caller.
	MaxAttempts int `yaml:"max_attempts"`
	// MaxSendRetries caps transport-level retries of a request that never got
	// an HTTP response.
	MaxSendRetries int `yaml:"max_send_retries"`
}

func (c *SpotifyRetry) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Int("max_attempts", c.MaxAttempts).
		Int("max_send_retries", c.MaxSendRetries)
}

func (c *SpotifyRetry) setDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}

	if c.MaxSendRetries == 0 {
		c.MaxSendRetries = 3
	}
}

func (c *SpotifyRetry) validate() error {
	if c.MaxAttempts < 0 {
		return errors.New("max_attempts must be greater than 0")
	}

	if c.MaxSendRetries < 0 {
		return errors.New("max_send_retries must be greater than 0")
	}

	return nil
}

type Export struct {
	OutputDir   string `yaml:"output_dir"`
	ArchiveName string `yaml:"archive_name"`
}

func (c *Export) ToDict() *zerolog.Event {
	return zerolog.
		Dict().
		Str("output_dir", c.OutputDir).
		Str("archive_name", c.ArchiveName)
}

func (c *Export) setDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "."
	}

	if c.ArchiveName == "" {
		c.ArchiveName = "spotify_playlists.zip"
	}
}

func (c *Export) validate() error {
	if c.ArchiveName == "" {
		return errors.New("archive_name is required")
	}

	return nil
}

func Load(filename string) (*Config, error) {
	var conf Config

	data, err := os.ReadFile(lo.Ternary(len(filename) > 0, filename, "config.yaml"))
	if nil != err {
		if !errors.Is(err, os.ErrNotExist) || filename != "" {
			return nil, fmt.Errorf("failed to read config file %s: %v", filename, err)
		}
		// Missing default config file is fine. Everything has a default.
	} else if err := yaml.Unmarshal(data, &conf); nil != err {
		return nil, fmt.Errorf("failed to parse config file %s: %v", filename, err)
	}

	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		conf.Spotify.ClientID = v
	}
	conf.setDefaults()

	if err := conf.validate(); nil != err {
		return nil, fmt.Errorf("configuration validation failed: %v", err)
	}

	return &conf, nil
}
