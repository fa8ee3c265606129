// Package httpapi exposes the web backend: OneDrive auth and export,
// transcript and summary management, and WebSocket notifications.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/verbale-app/verbale/internal/drive"
	"github.com/verbale-app/verbale/internal/msauth"
	"github.com/verbale-app/verbale/internal/notify"
	"github.com/verbale-app/verbale/internal/store"
)

// SummaryGenerator produces minutes from a transcript. *summarize.Summarizer
// satisfies this.
type SummaryGenerator interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// SpeechTranscriber converts audio to text. *transcribe.Transcriber
// satisfies this.
type SpeechTranscriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Server wires the handlers to their dependencies.
type Server struct {
	auth        *msauth.Authenticator
	uploader    *drive.Uploader
	store       *store.Store
	hub         *notify.Hub
	summarizer  SummaryGenerator
	transcriber SpeechTranscriber
	sessions    *Sessions
	frontendURL string
	logger      *slog.Logger
}

// Options collects the Server dependencies.
type Options struct {
	Auth        *msauth.Authenticator
	Uploader    *drive.Uploader
	Store       *store.Store
	Hub         *notify.Hub
	Summarizer  SummaryGenerator
	Transcriber SpeechTranscriber
	Sessions    *Sessions
	FrontendURL string
	Logger      *slog.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		auth:        opts.Auth,
		uploader:    opts.Uploader,
		store:       opts.Store,
		hub:         opts.Hub,
		summarizer:  opts.Summarizer,
		transcriber: opts.Transcriber,
		sessions:    opts.Sessions,
		frontendURL: opts.FrontendURL,
		logger:      logger,
	}
}

// Handler builds the routing table with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /onedrive/auth", s.handleAuthStart)
	mux.HandleFunc("GET /onedrive/auth/callback", s.handleAuthCallback)
	mux.HandleFunc("GET /onedrive/auth/status", s.handleAuthStatus)
	mux.HandleFunc("POST /onedrive/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /onedrive/test/connection", s.handleTestConnection)
	mux.HandleFunc("POST /onedrive/upload/transcription/{id}", s.handleUploadTranscript)
	mux.HandleFunc("POST /onedrive/upload/summary/{id}", s.handleUploadSummary)
	mux.HandleFunc("POST /onedrive/upload/audio/{id}", s.handleUploadAudio)

	mux.HandleFunc("GET /audio", s.handleListAudio)
	mux.HandleFunc("GET /transcriptions", s.handleListTranscripts)
	mux.HandleFunc("GET /transcriptions/{id}", s.handleGetTranscript)
	mux.HandleFunc("PUT /transcriptions/{id}", s.handleUpdateTranscript)
	mux.HandleFunc("POST /transcriptions/transcribe/{audioID}", s.handleTranscribe)

	mux.HandleFunc("POST /summary/start/{transcriptID}", s.handleStartSummary)
	mux.HandleFunc("GET /summary/{id}", s.handleGetSummary)
	mux.HandleFunc("PUT /summary/{id}", s.handleUpdateSummary)
	mux.HandleFunc("GET /summary/{id}/download", s.handleDownloadSummary)

	if s.hub != nil {
		mux.Handle("GET /ws", s.hub)
	}

	return s.withRecover(s.withLogging(s.withCORS(mux)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// broadcast pushes an event when a hub is attached.
func (s *Server) broadcast(ctx context.Context, ev notify.Event) {
	if s.hub != nil {
		s.hub.Broadcast(ctx, ev)
	}
}
