package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/verbale-app/verbale/internal/docgen"
	"github.com/verbale-app/verbale/internal/notify"
)

// handleAuthStart redirects the browser to the Microsoft consent page.
func (s *Server) handleAuthStart(w http.ResponseWriter, r *http.Request) {
	authURL, err := s.auth.AuthURL()
	if err != nil {
		s.logger.Error("building auth URL", slog.String("error", err.Error()))
		s.redirectAuthError(w, r, "configuration")

		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleAuthCallback finishes the consent flow. Browsers land here from
// Microsoft, so every outcome is a redirect back to the frontend with an
// onedrive_auth query parameter it can inspect.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		s.logger.Warn("authorization denied by provider",
			slog.String("error", errParam),
			slog.String("description", q.Get("error_description")),
		)
		s.redirectAuthError(w, r, "provider_denied")

		return
	}

	userID, err := s.auth.Exchange(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		s.logger.Warn("token exchange failed", slog.String("error", err.Error()))

		reason := "exchange_failed"
		if _, code := classifyError(err); code == "state_mismatch" {
			reason = "state_mismatch"
		}

		s.redirectAuthError(w, r, reason)

		return
	}

	session, err := s.sessions.Issue(userID)
	if err != nil {
		s.logger.Error("issuing session token", slog.String("error", err.Error()))
		s.redirectAuthError(w, r, "session_failed")

		return
	}

	setSessionHeaders(w, userID)

	target := fmt.Sprintf("%s?onedrive_auth=success&user_id=%s&session=%s",
		s.frontendURL, url.QueryEscape(userID), url.QueryEscape(session))
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) redirectAuthError(w http.ResponseWriter, r *http.Request, reason string) {
	target := fmt.Sprintf("%s?onedrive_auth=error&reason=%s", s.frontendURL, url.QueryEscape(reason))
	http.Redirect(w, r, target, http.StatusFound)
}

// handleAuthStatus reports whether a credential record exists for the
// caller. No network traffic: the record may still need a refresh on first
// use, but that is the upload pipeline's problem.
func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	userID := s.sessions.UserID(r)
	if userID == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": false,
			"reason":        "no_session",
		})

		return
	}

	authenticated := s.auth.IsAuthenticated(userID)

	resp := map[string]any{"authenticated": authenticated}
	if authenticated {
		resp["user_id"] = userID
		setSessionHeaders(w, userID)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleLogout drops the credential record and blanks the session headers.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if userID := s.sessions.UserID(r); userID != "" {
		s.auth.Logout(userID)
	}

	clearSessionHeaders(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleTestConnection probes the caller's drive end to end.
func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	info, err := s.uploader.TestConnection(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"drive_info": map[string]any{
			"name":        info.Name,
			"owner":       info.Owner,
			"total_bytes": info.TotalBytes,
			"used_bytes":  info.UsedBytes,
		},
	})
}

// handleUploadTranscript renders the transcript as docx and exports it.
func (s *Server) handleUploadTranscript(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	tr, err := s.store.GetTranscript(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	title := tr.Title
	if title == "" {
		title = fmt.Sprintf("Transcript %d", tr.ID)
	}

	doc, err := docgen.Render(title, tr.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.uploader.UploadTranscript(r.Context(), userID, tr.ID, doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.broadcast(r.Context(), notify.Event{Type: notify.EventUploadDone, Payload: result})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "file": result})
}

// handleUploadSummary renders the summary as docx and exports it.
func (s *Server) handleUploadSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	sum, err := s.store.GetSummary(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	doc, err := docgen.Render(fmt.Sprintf("Meeting minutes %d", sum.ID), sum.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.uploader.UploadSummary(r.Context(), userID, sum.ID, doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.broadcast(r.Context(), notify.Event{Type: notify.EventUploadDone, Payload: result})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "file": result})
}

// handleUploadAudio exports the original recording.
func (s *Server) handleUploadAudio(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	af, err := s.store.GetAudioFile(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data, err := os.ReadFile(af.Path)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("reading audio file: %w", err))
		return
	}

	result, err := s.uploader.UploadAudio(r.Context(), userID, af.FileName, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.broadcast(r.Context(), notify.Event{Type: notify.EventUploadDone, Payload: result})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "file": result})
}

// requireUser resolves the caller's identity or answers 401.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := s.sessions.UserID(r)
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{
			Error:   "authentication_required",
			Message: "OneDrive authentication required",
		})

		return "", false
	}

	return userID, true
}

// pathID parses a numeric path parameter or answers 400.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "invalid_id",
			Message: "path parameter " + name + " must be a positive integer",
		})

		return 0, false
	}

	return id, true
}
