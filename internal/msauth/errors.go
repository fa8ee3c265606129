package msauth

import (
	"errors"
	"fmt"
)

// Sentinel errors for the authentication lifecycle. Handlers map these to
// HTTP statuses and redirect reason codes.
var (
	// ErrNotAuthenticated means no usable credential exists for the user:
	// never logged in, logged out, or evicted after a definitive refresh
	// failure. The caller must send the user back through the consent flow.
	ErrNotAuthenticated = errors.New("msauth: not authenticated")

	// ErrStateMismatch means the callback carried a state value that was
	// never issued or has already been consumed.
	ErrStateMismatch = errors.New("msauth: state mismatch")
)

// ExchangeError wraps a failure to turn an authorization code into a token
// record: the token endpoint rejected the grant, the response omitted the
// id_token, or the identity claim was absent.
type ExchangeError struct {
	Reason string
	Err    error
}

func (e *ExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("msauth: token exchange failed: %s: %v", e.Reason, e.Err)
	}

	return fmt.Sprintf("msauth: token exchange failed: %s", e.Reason)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// RefreshTransientError means the refresh attempt failed for a reason that
// does not condemn the stored refresh token (network error, 5xx, throttling).
// The credential record is preserved; the caller may retry later.
type RefreshTransientError struct {
	Err error
}

func (e *RefreshTransientError) Error() string {
	return fmt.Sprintf("msauth: transient refresh failure: %v", e.Err)
}

func (e *RefreshTransientError) Unwrap() error {
	return e.Err
}
