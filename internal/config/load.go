package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variable names. Secrets are environment-only so a shared
// config file never carries them.
const (
	EnvConfigPath    = "VERBALE_CONFIG"
	EnvSessionSecret = "VERBALE_SESSION_SECRET"
	EnvClientSecret  = "VERBALE_ONEDRIVE_CLIENT_SECRET"
	EnvClientID      = "VERBALE_ONEDRIVE_CLIENT_ID"
	EnvGeminiAPIKey  = "VERBALE_GEMINI_API_KEY"
	EnvListenAddr    = "VERBALE_LISTEN_ADDR"
	EnvStorePath     = "VERBALE_STORE_PATH"
)

// Load reads and parses a TOML config file, applies environment overrides,
// and validates the result. Unknown keys in the file are fatal — silently
// ignoring a typo leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise starts from
// defaults. Either way environment overrides apply and the result is
// validated, so a missing file with a complete environment still works.
func LoadOrDefault(path string) (*Config, error) {
	// Best-effort .env load for local development; absence is not an error.
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	if path == "" {
		path = "verbale.toml"
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		applyEnv(cfg)

		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}

// applyEnv overlays environment variables onto the config. Secrets only come
// from here; the non-secret overrides exist for container deployments where
// editing a file is awkward.
func applyEnv(cfg *Config) {
	cfg.Server.SessionSecret = os.Getenv(EnvSessionSecret)
	cfg.OneDrive.ClientSecret = os.Getenv(EnvClientSecret)
	cfg.Transcribe.APIKey = os.Getenv(EnvGeminiAPIKey)

	if v := os.Getenv(EnvClientID); v != "" {
		cfg.OneDrive.ClientID = v
	}

	if v := os.Getenv(EnvListenAddr); v != "" {
		cfg.Server.ListenAddr = v
	}

	if v := os.Getenv(EnvStorePath); v != "" {
		cfg.Store.Path = v
	}
}

// checkUnknownKeys rejects keys the decoder did not map to any struct field.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	keys := make([]string, len(undecoded))
	for i, key := range undecoded {
		keys[i] = key.String()
	}

	return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
}
