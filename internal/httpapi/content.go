package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/verbale-app/verbale/internal/docgen"
	"github.com/verbale-app/verbale/internal/notify"
	"github.com/verbale-app/verbale/internal/store"
	"github.com/verbale-app/verbale/internal/transcribe"
)

// jobTimeout bounds one background transcription or summarization run.
const jobTimeout = 10 * time.Minute

func (s *Server) handleListAudio(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.ListAudioFiles(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"audio_files": files})
}

func (s *Server) handleListTranscripts(w http.ResponseWriter, r *http.Request) {
	transcripts, err := s.store.ListTranscripts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"transcriptions": transcripts})
}

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	tr, err := s.store.GetTranscript(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tr)
}

// updateContentRequest is the body for transcript and summary edits.
type updateContentRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleUpdateTranscript(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	var req updateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_body", Message: err.Error()})
		return
	}

	if err := s.store.UpdateTranscriptContent(r.Context(), id, req.Content); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleTranscribe starts a background speech-to-text run for a recording.
// Answers 202 immediately; completion is announced over the WebSocket hub.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "audioID")
	if !ok {
		return
	}

	af, err := s.store.GetAudioFile(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	mimeType, supported := transcribe.MIMETypeFor(af.FileName)
	if !supported {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "unsupported_format",
			Message: "unsupported audio format: " + af.FileName,
		})

		return
	}

	if err := s.store.SetAudioStatus(r.Context(), af.ID, store.StatusProcessing); err != nil {
		s.writeError(w, r, err)
		return
	}

	go s.runTranscription(af, mimeType)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":        store.StatusProcessing,
		"audio_file_id": af.ID,
	})
}

// runTranscription is the detached worker behind handleTranscribe.
func (s *Server) runTranscription(af *store.AudioFile, mimeType string) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	audio, err := os.ReadFile(af.Path)
	if err != nil {
		s.failAudio(ctx, af.ID, fmt.Errorf("reading audio file: %w", err))
		return
	}

	text, err := s.transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil {
		s.failAudio(ctx, af.ID, err)
		return
	}

	tr, err := s.store.InsertTranscript(ctx, &af.ID, af.FileName, text, "")
	if err != nil {
		s.failAudio(ctx, af.ID, err)
		return
	}

	if err := s.store.SetAudioStatus(ctx, af.ID, store.StatusCompleted); err != nil {
		s.logger.Error("marking audio completed", slog.String("error", err.Error()))
	}

	s.broadcast(ctx, notify.Event{Type: notify.EventTranscriptDone, Payload: tr})
}

func (s *Server) failAudio(ctx context.Context, audioID int64, err error) {
	s.logger.Error("transcription failed",
		slog.Int64("audio_file_id", audioID),
		slog.String("error", err.Error()),
	)

	if statusErr := s.store.SetAudioStatus(ctx, audioID, store.StatusFailed); statusErr != nil {
		s.logger.Error("marking audio failed", slog.String("error", statusErr.Error()))
	}

	s.broadcast(ctx, notify.Event{
		Type:    notify.EventJobFailed,
		Payload: map[string]any{"audio_file_id": audioID, "error": err.Error()},
	})
}

// handleStartSummary starts a background summarization run for a transcript.
func (s *Server) handleStartSummary(w http.ResponseWriter, r *http.Request) {
	transcriptID, ok := s.pathID(w, r, "transcriptID")
	if !ok {
		return
	}

	tr, err := s.store.GetTranscript(r.Context(), transcriptID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sum, err := s.store.InsertSummary(r.Context(), tr.ID, store.StatusProcessing)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	go s.runSummarization(sum.ID, tr.Content)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":     store.StatusProcessing,
		"summary_id": sum.ID,
	})
}

// runSummarization is the detached worker behind handleStartSummary.
func (s *Server) runSummarization(summaryID int64, transcript string) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	text, err := s.summarizer.Summarize(ctx, transcript)
	if err != nil {
		s.failSummary(ctx, summaryID, err)
		return
	}

	if err := s.store.UpdateSummaryContent(ctx, summaryID, text); err != nil {
		s.failSummary(ctx, summaryID, err)
		return
	}

	if err := s.store.SetSummaryStatus(ctx, summaryID, store.StatusCompleted); err != nil {
		s.logger.Error("marking summary completed", slog.String("error", err.Error()))
	}

	s.broadcast(ctx, notify.Event{
		Type:    notify.EventSummaryDone,
		Payload: map[string]any{"summary_id": summaryID},
	})
}

func (s *Server) failSummary(ctx context.Context, summaryID int64, err error) {
	s.logger.Error("summarization failed",
		slog.Int64("summary_id", summaryID),
		slog.String("error", err.Error()),
	)

	if statusErr := s.store.SetSummaryStatus(ctx, summaryID, store.StatusFailed); statusErr != nil {
		s.logger.Error("marking summary failed", slog.String("error", statusErr.Error()))
	}

	s.broadcast(ctx, notify.Event{
		Type:    notify.EventJobFailed,
		Payload: map[string]any{"summary_id": summaryID, "error": err.Error()},
	})
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	sum, err := s.store.GetSummary(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleUpdateSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	var req updateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_body", Message: err.Error()})
		return
	}

	if err := s.store.UpdateSummaryContent(r.Context(), id, req.Content); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleDownloadSummary serves the summary as a docx attachment.
func (s *Server) handleDownloadSummary(w http.ResponseWriter, r *http.Request) {
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

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("summary_%d.docx", sum.ID)))
	_, _ = w.Write(doc) //nolint:errcheck // headers already sent
}
