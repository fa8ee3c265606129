package summarize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"google.golang.org/genai"
)

func TestBuildPrompt_EmbedsTranscript(t *testing.T) {
	prompt := buildPrompt("the quarterly review opened at 9am")

	assert.Contains(t, prompt, "the quarterly review opened at 9am")
	assert.Contains(t, prompt, "Action items")
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name   string
		result *genai.GenerateContentResponse
		want   string
	}{
		{"nil response", nil, ""},
		{"no candidates", &genai.GenerateContentResponse{}, ""},
		{
			"joins parts",
			&genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content: &genai.Content{Parts: []*genai.Part{
						{Text: "first "},
						{Text: "second"},
					}},
				}},
			},
			"first second",
		},
		{
			"trims whitespace",
			&genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content: &genai.Content{Parts: []*genai.Part{{Text: "  minutes \n"}}},
				}},
			},
			"minutes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractText(tt.result))
		})
	}
}
