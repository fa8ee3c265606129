// Package config implements TOML configuration loading and validation for
// the verbale backend. Secrets never live in the TOML file: they come from
// the environment (optionally seeded from a .env file) and override whatever
// the file says.
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	OneDrive   OneDriveConfig   `toml:"onedrive"`
	Store      StoreConfig      `toml:"store"`
	Transcribe TranscribeConfig `toml:"transcribe"`
	Summarize  SummarizeConfig  `toml:"summarize"`
	Watch      WatchConfig      `toml:"watch"`
	Logging    LoggingConfig    `toml:"logging"`
}

// ServerConfig controls the HTTP listener and session handling.
type ServerConfig struct {
	ListenAddr      string `toml:"listen_addr"`
	FrontendURL     string `toml:"frontend_url"`
	ShutdownTimeout string `toml:"shutdown_timeout"`

	// SessionSecret signs session tokens. Environment-only (VERBALE_SESSION_SECRET).
	SessionSecret string `toml:"-"`
	SessionTTL    string `toml:"session_ttl"`
}

// OneDriveConfig holds the Azure AD app registration and Graph API settings.
type OneDriveConfig struct {
	ClientID    string   `toml:"client_id"`
	Tenant      string   `toml:"tenant"`
	RedirectURL string   `toml:"redirect_url"`
	Scopes      []string `toml:"scopes"`
	BaseURL     string   `toml:"base_url"`
	HTTPTimeout string   `toml:"http_timeout"`

	// ClientSecret is environment-only (VERBALE_ONEDRIVE_CLIENT_SECRET).
	ClientSecret string `toml:"-"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `toml:"path"`
}

// TranscribeConfig controls the speech-to-text stage.
type TranscribeConfig struct {
	Model         string `toml:"model"`
	MaxAudioBytes int64  `toml:"max_audio_bytes"`

	// APIKey is environment-only (VERBALE_GEMINI_API_KEY), shared with Summarize.
	APIKey string `toml:"-"`
}

// SummarizeConfig controls the minutes-summarization stage.
type SummarizeConfig struct {
	Model string `toml:"model"`
}

// WatchConfig controls the audio inbox directory watcher.
type WatchConfig struct {
	Enabled  bool   `toml:"enabled"`
	InboxDir string `toml:"inbox_dir"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Defaults.
const (
	defaultListenAddr      = "127.0.0.1:8000"
	defaultFrontendURL     = "http://localhost:5173"
	defaultShutdownTimeout = "10s"
	defaultSessionTTL      = "24h"
	defaultTenant          = "common"
	defaultGraphBaseURL    = "https://graph.microsoft.com/v1.0"
	defaultHTTPTimeout     = "30s"
	defaultStorePath       = "verbale.db"
	defaultTranscribeModel = "gemini-2.5-flash"
	defaultSummarizeModel  = "gemini-2.5-flash"
	defaultMaxAudioBytes   = 25 * 1024 * 1024
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      defaultListenAddr,
			FrontendURL:     defaultFrontendURL,
			ShutdownTimeout: defaultShutdownTimeout,
			SessionTTL:      defaultSessionTTL,
		},
		OneDrive: OneDriveConfig{
			Tenant:      defaultTenant,
			BaseURL:     defaultGraphBaseURL,
			HTTPTimeout: defaultHTTPTimeout,
		},
		Store: StoreConfig{
			Path: defaultStorePath,
		},
		Transcribe: TranscribeConfig{
			Model:         defaultTranscribeModel,
			MaxAudioBytes: defaultMaxAudioBytes,
		},
		Summarize: SummarizeConfig{
			Model: defaultSummarizeModel,
		},
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}

// Duration parses one of the string duration fields. Validation has already
// guaranteed the value parses, so errors here indicate a missed validation.
func Duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}
