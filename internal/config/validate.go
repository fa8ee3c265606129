package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// minSessionSecretBytes is the shortest session secret accepted; anything
// shorter makes forged session tokens practical.
const minSessionSecretBytes = 32

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateOneDrive(&cfg.OneDrive)...)
	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateTranscribe(&cfg.Transcribe)...)
	errs = append(errs, validateWatch(&cfg.Watch)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

func validateServer(s *ServerConfig) []error {
	var errs []error

	if s.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr must not be empty"))
	}

	if s.SessionSecret == "" {
		errs = append(errs, fmt.Errorf("%s must be set", EnvSessionSecret))
	} else if len(s.SessionSecret) < minSessionSecretBytes {
		errs = append(errs, fmt.Errorf("%s must be at least %d bytes", EnvSessionSecret, minSessionSecretBytes))
	}

	errs = append(errs, validateDuration("server.shutdown_timeout", s.ShutdownTimeout)...)
	errs = append(errs, validateDuration("server.session_ttl", s.SessionTTL)...)

	if s.FrontendURL != "" {
		if _, err := url.Parse(s.FrontendURL); err != nil {
			errs = append(errs, fmt.Errorf("server.frontend_url: %w", err))
		}
	}

	return errs
}

func validateOneDrive(o *OneDriveConfig) []error {
	var errs []error

	if o.ClientID == "" {
		errs = append(errs, errors.New("onedrive.client_id must be set"))
	}

	if o.ClientSecret == "" {
		errs = append(errs, fmt.Errorf("%s must be set", EnvClientSecret))
	}

	if o.Tenant == "" {
		errs = append(errs, errors.New("onedrive.tenant must not be empty"))
	}

	if o.RedirectURL == "" {
		errs = append(errs, errors.New("onedrive.redirect_url must be set to the registered callback URL"))
	} else if u, err := url.Parse(o.RedirectURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("onedrive.redirect_url %q is not an absolute URL", o.RedirectURL))
	}

	if o.BaseURL == "" {
		errs = append(errs, errors.New("onedrive.base_url must not be empty"))
	}

	errs = append(errs, validateDuration("onedrive.http_timeout", o.HTTPTimeout)...)

	return errs
}

func validateStore(s *StoreConfig) []error {
	if s.Path == "" {
		return []error{errors.New("store.path must not be empty")}
	}

	return nil
}

func validateTranscribe(tc *TranscribeConfig) []error {
	var errs []error

	if tc.Model == "" {
		errs = append(errs, errors.New("transcribe.model must not be empty"))
	}

	if tc.MaxAudioBytes <= 0 {
		errs = append(errs, errors.New("transcribe.max_audio_bytes must be positive"))
	}

	return errs
}

func validateWatch(w *WatchConfig) []error {
	if w.Enabled && w.InboxDir == "" {
		return []error{errors.New("watch.inbox_dir must be set when watch.enabled is true")}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q must be one of debug, info, warn, error", l.Level))
	}

	switch l.Format {
	case "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be one of auto, text, json", l.Format))
	}

	return errs
}

func validateDuration(field, value string) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s %q is not a valid duration", field, value)}
	}

	if d <= 0 {
		return []error{fmt.Errorf("%s must be positive", field)}
	}

	return nil
}
