package analysis

import (
	"strings"
	"testing"

	"github.com/solvency-io/solvency/internal/models"
)

func TestBuildDetailedPrompt(t *testing.T) {
	b := NewPromptBuilder(0.1, "claude-sonnet-4-20250514")
	req := b.Build([]string{"Apple Inc", "Tesla"}, models.ModeDetailed, 12345)

	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("expected single user message, got %+v", req.Messages)
	}
	prompt := req.Messages[0].Content

	for _, want := range []string{"Apple Inc", "Tesla", "Reproducibility seed: 12345", "altman_z_score", "financial_timeline", "portfolio_summary", "2.99", "1.8"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("detailed prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "quick_metrics") {
		t.Error("detailed prompt should not request quick_metrics")
	}
	if req.SystemInstruction == "" {
		t.Error("system instruction should be set")
	}
	if req.Temperature != 0.1 {
		t.Errorf("temperature = %v, want 0.1", req.Temperature)
	}
}

func TestBuildQuickPrompt(t *testing.T) {
	b := NewPromptBuilder(0.1, "")
	req := b.Build([]string{"Microsoft"}, models.ModeQuick, 99)

	prompt := req.Messages[0].Content
	for _, want := range []string{"Microsoft", "Reproducibility seed: 99", "quick_metrics", "risk_score", "confidence"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("quick prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "financial_timeline") {
		t.Error("quick prompt should not request the detailed timeline")
	}
}

func TestBuildDeterministicForSameSeed(t *testing.T) {
	b := NewPromptBuilder(0.1, "")
	a := b.Build([]string{"Apple Inc"}, models.ModeQuick, 7).Messages[0].Content
	c := b.Build([]string{"Apple Inc"}, models.ModeQuick, 7).Messages[0].Content
	if a != c {
		t.Error("identical requests should render identical prompts")
	}
}

func TestTemperatureDefault(t *testing.T) {
	b := NewPromptBuilder(0, "")
	if b.Temperature() != 0.1 {
		t.Errorf("default temperature = %v, want 0.1", b.Temperature())
	}
}
