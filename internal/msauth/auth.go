package msauth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/verbale-app/verbale/internal/credstore"
)

// Scopes requested on every consent flow. "openid" makes the token endpoint
// return an id_token (the only place the user identifier comes from) and
// "offline_access" makes it return a refresh token.
var defaultScopes = []string{
	"openid",
	"offline_access",
	"Files.ReadWrite",
	"User.Read",
}

// Options configures an Authenticator.
type Options struct {
	ClientID     string
	ClientSecret string
	Tenant       string
	RedirectURL  string

	// Scopes overrides defaultScopes when non-empty.
	Scopes []string

	// Endpoint overrides the Microsoft endpoint derived from Tenant.
	// Tests point it at a local server.
	Endpoint oauth2.Endpoint
}

// Authenticator owns the OAuth2 authorization-code lifecycle: building
// consent URLs, exchanging callback codes for credential records, and
// keeping stored tokens fresh.
type Authenticator struct {
	cfg     *oauth2.Config
	store   *credstore.Store
	states  *stateStore
	profile AccountProfile
	logger  *slog.Logger

	// now is time.Now outside of tests.
	now func() time.Time
}

// New creates an Authenticator backed by the given credential store.
func New(opts Options, store *credstore.Store, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}

	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}

	endpoint := opts.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = microsoft.AzureADEndpoint(opts.Tenant)
	}

	return &Authenticator{
		cfg: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		store:   store,
		states:  newStateStore(),
		profile: AccountProfile{Tenant: opts.Tenant},
		logger:  logger,
		now:     time.Now,
	}
}

// Profile returns the account profile derived from the configured tenant.
func (a *Authenticator) Profile() AccountProfile {
	return a.profile
}

// AuthURL builds the Microsoft consent URL with a fresh single-use state.
func (a *Authenticator) AuthURL() (string, error) {
	state, err := a.states.Issue()
	if err != nil {
		return "", fmt.Errorf("msauth: generating state: %w", err)
	}

	a.logger.Info("issued authorization URL", slog.String("tenant", a.profile.Tenant))

	return a.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Exchange redeems an authorization callback: verifies the state, trades the
// code for tokens, extracts the user identifier from the id_token, and
// writes the credential record. Returns the user identifier.
func (a *Authenticator) Exchange(ctx context.Context, code, state string) (string, error) {
	if !a.states.Consume(state) {
		a.logger.Warn("authorization callback with unknown or reused state")
		return "", ErrStateMismatch
	}

	tok, err := a.cfg.Exchange(ctx, code)
	if err != nil {
		a.logger.Error("token exchange failed", slog.String("error", err.Error()))
		return "", &ExchangeError{Reason: "code grant rejected", Err: err}
	}

	if tok.AccessToken == "" {
		return "", &ExchangeError{Reason: "token response missing access_token"}
	}

	rawIDToken, _ := tok.Extra("id_token").(string)
	if rawIDToken == "" {
		return "", &ExchangeError{Reason: "token response missing id_token"}
	}

	userID, err := a.extractUserID(rawIDToken)
	if err != nil {
		return "", err
	}

	a.store.Put(userID, credstore.Record{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	})

	a.logger.Info("user authenticated",
		slog.String("user_id", userID),
		slog.Time("expires_at", tok.Expiry),
	)

	return userID, nil
}

// extractUserID pulls the identity claim out of the id_token. The token's
// signature is not verified: it arrived over TLS directly from the token
// endpoint, so the transport already authenticates the issuer. A missing
// claim is a hard failure — falling back to another claim would let two
// claims name the same user differently across logins.
func (a *Authenticator) extractUserID(rawIDToken string) (string, error) {
	claims := jwt.MapClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(rawIDToken, claims); err != nil {
		return "", &ExchangeError{Reason: "malformed id_token", Err: err}
	}

	claim := a.profile.IdentityClaim()

	userID, _ := claims[claim].(string)
	if userID == "" {
		return "", &ExchangeError{Reason: "id_token missing " + claim + " claim"}
	}

	return userID, nil
}

// IsAuthenticated reports whether a credential record exists for the user.
// It does not touch the network; the record may still need a refresh.
func (a *Authenticator) IsAuthenticated(userID string) bool {
	_, ok := a.store.Get(userID)
	return ok
}

// Logout discards the user's credential record. Idempotent.
func (a *Authenticator) Logout(userID string) {
	a.store.Delete(userID)
	a.logger.Info("user logged out", slog.String("user_id", userID))
}
