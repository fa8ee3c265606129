// Package summarize turns meeting transcripts into structured minutes using
// the Gemini API.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

const minutesPrompt = `You are an expert minute-taker for corporate oversight meetings. Based on the transcript below, write DETAILED meeting minutes in the same language as the transcript.

Requirements:
- Start with a one-sentence title describing the meeting topic
- List ALL agenda items and decisions in the order they appear
- For each item, capture who spoke, what was decided, and any assigned follow-ups
- Keep legal and compliance terminology exactly as spoken
- Use markdown: headings, bullet points, bold for names and deadlines
- End with an "Action items" section when any follow-ups were assigned

Transcript:
---
%s
---`

// ErrEmptyResponse means the model returned no usable candidates.
var ErrEmptyResponse = errors.New("summarize: empty response from model")

// Summarizer generates minutes from transcripts.
type Summarizer struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// New creates a Summarizer bound to the Gemini API.
func New(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Summarizer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("summarize: creating client: %w", err)
	}

	return &Summarizer{client: client, model: model, logger: logger}, nil
}

// Summarize produces minutes for the given transcript text.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", errors.New("summarize: transcript is empty")
	}

	s.logger.Info("generating summary",
		slog.String("model", s.model),
		slog.Int("transcript_chars", len(transcript)),
	)

	result, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(buildPrompt(transcript)), nil)
	if err != nil {
		return "", fmt.Errorf("summarize: generate content: %w", err)
	}

	text := extractText(result)
	if text == "" {
		return "", ErrEmptyResponse
	}

	s.logger.Info("summary generated", slog.Int("summary_chars", len(text)))

	return text, nil
}

func buildPrompt(transcript string) string {
	return fmt.Sprintf(minutesPrompt, transcript)
}

// extractText concatenates the text parts of the first candidate.
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
