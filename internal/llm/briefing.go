// Package llm generates an optional operator briefing from a finished
// verification report. The briefing is produced AFTER the report and never
// feeds back into counts, statuses, or recommendations; any failure here is
// a warning, not a run failure.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/mtnops/snowprobe/internal/model"
)

const briefingTimeout = 30 * time.Second

// Summarizer wraps the chat-completion client.
type Summarizer struct {
	client *openai.Client
	model  string
}

// NewSummarizer builds a summarizer from the LLM config.
func NewSummarizer(cfg model.LLMConfig) (*Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	m := cfg.Model
	if m == "" {
		m = openai.GPT4oMini
	}

	return &Summarizer{
		client: openai.NewClientWithConfig(clientConfig),
		model:  m,
	}, nil
}

// Briefing turns the report into a short narrative for the on-call channel.
func (s *Summarizer) Briefing(ctx context.Context, r *model.Report) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, briefingTimeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You summarize data-pipeline health reports for ski-conditions operators. " +
					"Only restate facts from the report; do not speculate about causes that are not in it.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(r),
			},
		},
		MaxTokens:   600,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildPrompt flattens the report into the facts the model may use.
func BuildPrompt(r *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Verification run at %s checked %d sources: %d healthy, %d degraded, %d failing.\n\n",
		r.GeneratedAt.Format(time.RFC3339), r.Total, r.Success, r.Warnings, r.Errors)

	b.WriteString("Error categories with failures:\n")
	for _, c := range model.AllErrorCategories() {
		if n := r.Histogram[c]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", c, n)
		}
	}

	b.WriteString("\nRecommendations:\n")
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "- [%s] %s (%d affected): %s\n", rec.Priority, rec.Category, len(rec.Affected), rec.Suggestion)
	}

	b.WriteString("\nWrite a briefing of at most three short paragraphs: overall pipeline health, what broke and why it matters to end users, and what to do first.")
	return b.String()
}
