package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const appName = "nowscrobble"

// Environment overrides, also read from a .env file in the working directory.
const (
	EnvLastfmAPIKey    = "NOWSCROBBLE_LASTFM_API_KEY"
	EnvLastfmSecret    = "NOWSCROBBLE_LASTFM_SECRET"
	EnvDiscordClientID = "NOWSCROBBLE_DISCORD_CLIENT_ID"
)

// Player source backends.
const (
	BackendMPRIS     = "mpris"
	BackendPlayerctl = "playerctl"
)

// Credential backends.
const (
	CredentialsFile  = "file"
	CredentialsState = "state"
)

type Config struct {
	// Last.fm application credentials and the persisted session key
	Lastfm LastfmConfig `koanf:"lastfm"`

	Discord     DiscordConfig     `koanf:"discord"`
	Player      PlayerConfig      `koanf:"player"`
	Presence    PresenceConfig    `koanf:"presence"`
	Credentials CredentialsConfig `koanf:"credentials"`
	Notify      NotifyConfig      `koanf:"notify"`
	Log         LogConfig         `koanf:"log"`

	// Path is the config file the session key is written back to.
	Path string `koanf:"-"`
}

// LastfmConfig is the credential record: only session_key changes at runtime.
type LastfmConfig struct {
	APIKey       string `koanf:"api_key"`
	Secret       string `koanf:"secret"`
	SessionKey   string `koanf:"session_key"`
	Endpoint     string `koanf:"endpoint"`      // API root (default: https://ws.audioscrobbler.com/2.0/)
	AuthCallback *bool  `koanf:"auth_callback"` // receive the token on a local callback server (default: true)
}

// DiscordConfig holds the Discord application used for Rich Presence.
type DiscordConfig struct {
	ClientID string `koanf:"client_id"`
}

// PlayerConfig selects how the media player is queried.
type PlayerConfig struct {
	Backend      string        `koanf:"backend"`       // "mpris" or "playerctl" (default: "mpris")
	Name         string        `koanf:"name"`          // MPRIS player name (default: "spotify")
	PollInterval time.Duration `koanf:"poll_interval"` // default: 10s
}

// PresenceConfig customizes the activity shown in Discord.
type PresenceConfig struct {
	SmallImageKey    string `koanf:"small_image_key"`    // default: "spotify"
	SmallImageText   string `koanf:"small_image_text"`   // default: "Spotify"
	ButtonLabel      string `koanf:"button_label"`       // default: "Listen on Spotify"
	FallbackImageKey string `koanf:"fallback_image_key"` // default: "spotify"
}

// CredentialsConfig selects where the session key is persisted.
type CredentialsConfig struct {
	Backend string `koanf:"backend"` // "file" or "state" (default: "file")
}

// NotifyConfig toggles desktop notifications.
type NotifyConfig struct {
	Enabled *bool `koanf:"enabled"` // default: true
}

// LogConfig configures the logger.
type LogConfig struct {
	Level      string `koanf:"level"`        // debug, info, warn, error (default: info)
	File       string `koanf:"file"`         // optional rotating log file
	MaxSizeMB  int    `koanf:"max_size_mb"`  // default: 10
	MaxBackups int    `koanf:"max_backups"`  // default: 3
	MaxAgeDays int    `koanf:"max_age_days"` // default: 28
}

// Load reads configuration. When explicit is set only that file is read and
// it must exist; otherwise the XDG config file and ./config.toml are merged.
func Load(explicit string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	paths := getConfigPaths()
	if explicit != "" {
		paths = []string{expandPath(explicit)}
		if _, err := os.Stat(paths[0]); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}

	writePath, err := loadFiles(k, paths)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	cfg.Path = writePath

	cfg.applyEnv()
	cfg.applyDefaults()

	return cfg, nil
}

// loadFiles merges every existing file of paths into k, later files taking
// precedence, and returns the file the session key belongs to: the last one
// holding lastfm.session_key, else the last one holding lastfm.api_key, else
// the last one read, else the first candidate.
func loadFiles(k *koanf.Koanf, paths []string) (string, error) {
	var withKey, withApp, last string
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		fk := koanf.New(".")
		if err := fk.Load(file.Provider(path), toml.Parser()); err != nil {
			return "", fmt.Errorf("parse %s: %w", path, err)
		}
		if err := k.Merge(fk); err != nil {
			return "", fmt.Errorf("merge %s: %w", path, err)
		}
		last = path
		if fk.Exists(sessionKeyPath) {
			withKey = path
		}
		if fk.Exists(apiKeyPath) {
			withApp = path
		}
	}

	for _, p := range []string{withKey, withApp, last} {
		if p != "" {
			return p, nil
		}
	}
	return paths[0], nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLastfmAPIKey); v != "" {
		c.Lastfm.APIKey = v
	}
	if v := os.Getenv(EnvLastfmSecret); v != "" {
		c.Lastfm.Secret = v
	}
	if v := os.Getenv(EnvDiscordClientID); v != "" {
		c.Discord.ClientID = v
	}
}

func (c *Config) applyDefaults() {
	if c.Player.Backend == "" {
		c.Player.Backend = BackendMPRIS
	}
	if c.Player.Name == "" {
		c.Player.Name = "spotify"
	}
	if c.Player.PollInterval <= 0 {
		c.Player.PollInterval = 10 * time.Second
	}

	if c.Presence.SmallImageKey == "" {
		c.Presence.SmallImageKey = "spotify"
	}
	if c.Presence.SmallImageText == "" {
		c.Presence.SmallImageText = "Spotify"
	}
	if c.Presence.ButtonLabel == "" {
		c.Presence.ButtonLabel = "Listen on Spotify"
	}
	if c.Presence.FallbackImageKey == "" {
		c.Presence.FallbackImageKey = "spotify"
	}

	if c.Credentials.Backend == "" {
		c.Credentials.Backend = CredentialsFile
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File != "" {
		c.Log.File = expandPath(c.Log.File)
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 28
	}
}

// Validate reports missing or unknown settings needed to start.
func (c *Config) Validate() error {
	var errs []error
	if !c.HasLastfmConfig() {
		errs = append(errs, errors.New("lastfm.api_key and lastfm.secret are required"))
	}
	if c.Discord.ClientID == "" {
		errs = append(errs, errors.New("discord.client_id is required"))
	}
	switch c.Player.Backend {
	case BackendMPRIS, BackendPlayerctl:
	default:
		errs = append(errs, fmt.Errorf("unknown player.backend %q", c.Player.Backend))
	}
	switch c.Credentials.Backend {
	case CredentialsFile, CredentialsState:
	default:
		errs = append(errs, fmt.Errorf("unknown credentials.backend %q", c.Credentials.Backend))
	}
	return errors.Join(errs...)
}

// HasLastfmConfig returns true if the Last.fm application is configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.Secret != ""
}

// UseAuthCallback reports whether the local callback server is used.
func (c *Config) UseAuthCallback() bool {
	return c.Lastfm.AuthCallback == nil || *c.Lastfm.AuthCallback
}

// NotificationsEnabled reports whether desktop notifications are sent.
func (c *Config) NotificationsEnabled() bool {
	return c.Notify.Enabled == nil || *c.Notify.Enabled
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/nowscrobble/config.toml
		filepath.Join(xdg.ConfigHome, appName, "config.toml"),
		// 2. ./config.toml (pwd, highest priority)
		"config.toml",
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
