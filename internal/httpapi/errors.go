package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/verbale-app/verbale/internal/drive"
	"github.com/verbale-app/verbale/internal/graph"
	"github.com/verbale-app/verbale/internal/msauth"
	"github.com/verbale-app/verbale/internal/store"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // headers already sent
}

// writeError maps a domain error onto an HTTP status and error code.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	} else {
		s.logger.Info("request rejected",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("code", code),
		)
	}

	writeJSON(w, status, errorBody{Error: code, Message: err.Error()})
}

// classifyError translates the typed errors of the inner packages. Order
// matters: the most specific types come first.
func classifyError(err error) (int, string) {
	var (
		transientErr   *msauth.RefreshTransientError
		exchangeErr    *msauth.ExchangeError
		unsupportedErr *drive.UnsupportedAccountError
		ensureErr      *drive.FolderEnsureError
		apiErr         *graph.APIError
	)

	switch {
	case errors.Is(err, msauth.ErrNotAuthenticated):
		return http.StatusUnauthorized, "authentication_required"
	case errors.Is(err, msauth.ErrStateMismatch):
		return http.StatusBadRequest, "state_mismatch"
	case errors.As(err, &transientErr):
		return http.StatusServiceUnavailable, "refresh_unavailable"
	case errors.As(err, &exchangeErr):
		return http.StatusBadGateway, "auth_exchange_failed"
	case errors.As(err, &unsupportedErr):
		return http.StatusForbidden, "unsupported_account"
	case errors.Is(err, drive.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case errors.As(err, &ensureErr):
		return http.StatusBadGateway, "folder_ensure_failed"
	case errors.Is(err, graph.ErrNetwork):
		return http.StatusGatewayTimeout, "upstream_network_error"
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, "upstream_api_error"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
