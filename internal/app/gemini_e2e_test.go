//go:build gemini_e2e

package app_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shpitdev/multi-sender-outreach/internal/app"
	"github.com/shpitdev/multi-sender-outreach/internal/config"
)

func TestPreview_RealGemini_EndToEnd(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Fatalf("GEMINI_API_KEY is required for gemini_e2e tests")
	}
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		t.Fatalf("GEMINI_MODEL is required for gemini_e2e tests")
	}

	dir := t.TempDir()
	if artifactDir := os.Getenv("GEMINI_E2E_ARTIFACT_DIR"); artifactDir != "" {
		if err := os.MkdirAll(artifactDir, 0755); err != nil {
			t.Fatalf("create GEMINI_E2E_ARTIFACT_DIR: %v", err)
		}
		dir = artifactDir
	}

	// Synthetic recipients only; nothing is sent.
	in := "School,Email,Administrator Name,County,Entity Type,Website\n" +
		"Example Elementary,principal@example.com,Pat Doe,Example County,Public School,https://example.com\n" +
		"Sample Academy,office@example.org,,Sample County,Charter School,\n"
	inputPath := filepath.Join(dir, "recipients.csv")
	if err := os.WriteFile(inputPath, []byte(in), 0644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.RecipientsPath = inputPath
	cfg.LedgerPath = filepath.Join(dir, "sent_log.csv")
	cfg.Strategy = config.StrategyGemini
	cfg.GeminiAPIKey = apiKey
	cfg.GeminiModel = model
	cfg.GeminiBaseURL = os.Getenv("GEMINI_BASE_URL")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	var out bytes.Buffer
	n, err := app.Preview(context.Background(), cfg, &out, 2)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 previews, got %d", n)
	}
	text := out.String()
	if !strings.Contains(text, "Hi Pat Doe,") {
		t.Fatalf("expected personalized greeting, got:\n%s", text)
	}
	if !strings.Contains(text, "Best,") {
		t.Fatalf("expected sign-off, got:\n%s", text)
	}
	_ = os.WriteFile(filepath.Join(dir, "preview.txt"), out.Bytes(), 0644)
}
