// Package transcribe converts meeting recordings to text using the Gemini
// API's audio understanding.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"google.golang.org/genai"
)

const transcribePrompt = `Transcribe this meeting recording verbatim. Preserve the spoken language. Mark distinct speakers as "Speaker 1:", "Speaker 2:" and so on when they can be told apart. Output plain text only, no timestamps, no commentary.`

// ErrAudioTooLarge rejects recordings above the configured ceiling before
// any network traffic.
var ErrAudioTooLarge = errors.New("transcribe: audio exceeds size limit")

// ErrEmptyResponse means the model returned no usable transcript.
var ErrEmptyResponse = errors.New("transcribe: empty response from model")

// mimeByExt maps audio file extensions to MIME types the API accepts.
var mimeByExt = map[string]string{
	".mp3":  "audio/mp3",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

// Transcriber converts audio bytes into transcript text.
type Transcriber struct {
	client   *genai.Client
	model    string
	maxBytes int64
	logger   *slog.Logger
}

// New creates a Transcriber bound to the Gemini API.
func New(ctx context.Context, apiKey, model string, maxBytes int64, logger *slog.Logger) (*Transcriber, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("transcribe: creating client: %w", err)
	}

	return &Transcriber{client: client, model: model, maxBytes: maxBytes, logger: logger}, nil
}

// MIMETypeFor resolves the audio MIME type from a file name. Returns false
// for unsupported formats.
func MIMETypeFor(fileName string) (string, bool) {
	mime, ok := mimeByExt[strings.ToLower(filepath.Ext(fileName))]
	return mime, ok
}

// Transcribe sends the recording inline with the prompt and returns the
// transcript text.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if int64(len(audio)) > t.maxBytes {
		return "", fmt.Errorf("%w: %d bytes (limit %d)", ErrAudioTooLarge, len(audio), t.maxBytes)
	}

	if len(audio) == 0 {
		return "", errors.New("transcribe: audio is empty")
	}

	t.logger.Info("transcribing audio",
		slog.String("model", t.model),
		slog.String("mime_type", mimeType),
		slog.Int("size", len(audio)),
	)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(transcribePrompt),
			genai.NewPartFromBytes(audio, mimeType),
		}, genai.RoleUser),
	}

	result, err := t.client.Models.GenerateContent(ctx, t.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("transcribe: generate content: %w", err)
	}

	text := extractText(result)
	if text == "" {
		return "", ErrEmptyResponse
	}

	t.logger.Info("transcription complete", slog.Int("transcript_chars", len(text)))

	return text, nil
}

func extractText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder

	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	return strings.TrimSpace(sb.String())
}
