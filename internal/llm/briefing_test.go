package llm

import (
	"strings"
	"testing"
	"time"

	"github.com/mtnops/snowprobe/internal/model"
)

func TestNewSummarizer_RequiresKey(t *testing.T) {
	if _, err := NewSummarizer(model.LLMConfig{}); err == nil {
		t.Fatal("expected error without API key")
	}
	if _, err := NewSummarizer(model.LLMConfig{APIKey: "sk-test"}); err != nil {
		t.Fatalf("NewSummarizer: %v", err)
	}
}

func TestBuildPrompt(t *testing.T) {
	r := &model.Report{
		GeneratedAt: time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
		Total:       10, Success: 7, Warnings: 1, Errors: 2,
		Histogram: map[model.ErrorCategory]int{
			model.CategoryBotProtection: 2,
			model.CategoryStaleData:     1,
		},
		Recommendations: []model.Recommendation{
			{Category: model.CategoryBotProtection, Priority: model.PriorityHigh,
				Affected: []string{"scraper:homewood", "scraper:kirkwood"}, Suggestion: "Rotate user agents."},
		},
	}

	prompt := BuildPrompt(r)
	for _, want := range []string{
		"checked 10 sources",
		"bot_protection: 2",
		"stale_data: 1",
		"[high] bot_protection (2 affected)",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
