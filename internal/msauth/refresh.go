package msauth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/verbale-app/verbale/internal/credstore"
)

// refreshThreshold is the minimum remaining validity below which a token is
// refreshed ahead of use. Five minutes keeps a token from expiring mid-upload.
const refreshThreshold = 300 * time.Second

// ValidToken returns a currently-valid access token for the user, silently
// refreshing when the cached one is within refreshThreshold of expiry.
//
// Outcomes:
//   - fresh cached token: returned as-is, no network call
//   - stale with refresh token: refresh grant, record atomically replaced
//   - no refresh token, or the grant is definitively rejected: record
//     evicted, ErrNotAuthenticated
//   - network error or 5xx from the token endpoint: record preserved,
//     RefreshTransientError
//
// Calls for the same user are serialized so concurrent requests cannot race
// two refresh grants against one refresh token.
func (a *Authenticator) ValidToken(ctx context.Context, userID string) (string, error) {
	unlock := a.store.Lock(userID)
	defer unlock()

	rec, ok := a.store.Get(userID)
	if !ok {
		return "", ErrNotAuthenticated
	}

	if rec.ExpiresAt.Sub(a.now()) >= refreshThreshold {
		return rec.AccessToken, nil
	}

	if rec.RefreshToken == "" {
		a.logger.Warn("token expiring with no refresh token, evicting",
			slog.String("user_id", userID),
		)
		a.store.Delete(userID)

		return "", ErrNotAuthenticated
	}

	return a.refresh(ctx, userID, rec)
}

// refresh runs a refresh-token grant and updates the store. Called with the
// user's lock held.
func (a *Authenticator) refresh(ctx context.Context, userID string, rec credstore.Record) (string, error) {
	a.logger.Info("refreshing access token", slog.String("user_id", userID))

	// A token carrying only the refresh token forces TokenSource to run the
	// refresh grant instead of reusing the (stale) access token.
	src := a.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: rec.RefreshToken})

	tok, err := src.Token()
	if err != nil {
		return "", a.classifyRefreshError(userID, err)
	}

	if tok.AccessToken == "" {
		a.logger.Error("refresh response missing access token, evicting",
			slog.String("user_id", userID),
		)
		a.store.Delete(userID)

		return "", ErrNotAuthenticated
	}

	next := credstore.Record{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	// Some refresh responses omit the refresh token; the old one stays valid.
	if next.RefreshToken == "" {
		next.RefreshToken = rec.RefreshToken
	}

	a.store.Put(userID, next)

	a.logger.Info("access token refreshed",
		slog.String("user_id", userID),
		slog.Time("expires_at", next.ExpiresAt),
	)

	return next.AccessToken, nil
}

// classifyRefreshError separates definitive rejections (4xx from the token
// endpoint: revoked consent, expired refresh token) from transient trouble
// (network errors, 5xx). Only definitive rejections evict the record —
// evicting on a flaky network would force a pointless re-login.
func (a *Authenticator) classifyRefreshError(userID string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
		retrieveErr.Response.StatusCode < http.StatusInternalServerError {
		a.logger.Warn("refresh token rejected, evicting",
			slog.String("user_id", userID),
			slog.Int("status", retrieveErr.Response.StatusCode),
			slog.String("error", err.Error()),
		)
		a.store.Delete(userID)

		return ErrNotAuthenticated
	}

	a.logger.Warn("transient refresh failure, keeping record",
		slog.String("user_id", userID),
		slog.String("error", err.Error()),
	)

	return &RefreshTransientError{Err: err}
}
