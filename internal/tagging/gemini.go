package tagging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Result is one classification returned by the model. Index is 1-based and
// refers to the record's position within its batch prompt.
type Result struct {
	Index int    `json:"index"`
	L1    string `json:"l1"`
	L2    string `json:"l2"`
}

// Tagger classifies batch prompts through Gemini.
type Tagger struct {
	client *genai.Client
	model  string
}

// NewTagger creates a Gemini-backed tagger. Credentials come from the
// environment, same as the rest of the Google Cloud clients.
func NewTagger(ctx context.Context, model string) (*Tagger, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewTagger: create genai client: %w", err)
	}
	return &Tagger{client: client, model: model}, nil
}

// TagBatch sends one batch prompt and parses the JSON array it returns.
func (t *Tagger) TagBatch(ctx context.Context, prompt string) ([]Result, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := t.client.Models.GenerateContent(ctx, t.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("TagBatch: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("TagBatch: empty response from model")
	}

	clean := cleanModelJSON(rawText)

	var results []Result
	if err := json.Unmarshal([]byte(clean), &results); err != nil {
		return nil, fmt.Errorf("TagBatch: unmarshal JSON: %w\nraw response: %s", err, rawText)
	}
	return results, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk the model
// sometimes wraps its output in despite instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// If there's still junk around the JSON array, keep only from the
	// first '[' to the last ']'.
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
