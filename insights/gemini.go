// Package insights writes the prose part of weekly reports with Gemini.
package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"marketpulse/config"
	"marketpulse/models"
)

// ErrNoContent is returned when the model answers without usable text.
var ErrNoContent = errors.New("no content received from AI")

type generateFunc func(ctx context.Context, prompt string) (string, error)

// GeminiNarrator turns a finished WeeklyReport into a short summary and a
// few recommendations.
type GeminiNarrator struct {
	generate generateFunc
	timeout  time.Duration
	logger   *slog.Logger
	closer   func() error
}

// NewGeminiNarrator connects to Gemini with the configured API key.
func NewGeminiNarrator(ctx context.Context, cfg config.GeminiConfig, logger *slog.Logger) (*GeminiNarrator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
	}

	gen := func(ctx context.Context, prompt string) (string, error) {
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", fmt.Errorf("gemini request failed: %w", err)
		}
		return responseText(resp)
	}

	n := newNarrator(gen, cfg.Timeout, logger)
	n.closer = client.Close
	return n, nil
}

func newNarrator(gen generateFunc, timeout time.Duration, logger *slog.Logger) *GeminiNarrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiNarrator{
		generate: gen,
		timeout:  timeout,
		logger:   logger.With("component", "insights"),
	}
}

// Close releases the Gemini client.
func (n *GeminiNarrator) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer()
}

// Narrate asks the model for a summary of report.
func (n *GeminiNarrator) Narrate(ctx context.Context, report *models.WeeklyReport) (*models.Narrative, error) {
	if report == nil {
		return nil, errors.New("report is nil")
	}
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	text, err := n.generate(ctx, buildReportPrompt(report))
	if err != nil {
		return nil, err
	}

	narrative, err := parseNarrative(text)
	if err != nil {
		n.logger.Warn("could not parse narrative", "merchant_id", report.MerchantID, "error", err)
		return nil, err
	}
	return narrative, nil
}

func buildReportPrompt(report *models.WeeklyReport) string {
	var b strings.Builder
	writeSection := func(title string, items []models.ProductPerformance) {
		fmt.Fprintf(&b, "%s:\n", title)
		if len(items) == 0 {
			b.WriteString("- none\n")
			return
		}
		for _, p := range items {
			fmt.Fprintf(&b, "- %s: %.0f units, momentum %s (%.3f), burst %s (z %.2f)\n",
				p.ProductName, p.TotalQuantity, p.Momentum.Status, p.Momentum.Combined, p.Burst.Severity, p.Burst.Score)
		}
	}
	writeSection("Top performers", report.TopPerformers)
	writeSection("Needs attention", report.NeedsAttention)
	writeSection("Bursting", report.Trending)

	if report.Insights != nil {
		h := report.Insights.PortfolioHealth
		fmt.Fprintf(&b, "Portfolio health: %.1f (%s)\n", h.Score, h.Status)
	}

	jsonFormat := `{"summary":"string","recommendations":["string",...]}`

	return fmt.Sprintf(`
        You are an expert retail data analyst. Write a short weekly performance summary for a shop owner and up to three concrete recommendations.

        **Report date:** %s

        **Catalog signals:**
        %s
        **Required Output:**
        You must provide a single, minified JSON object with the following exact structure. Do not include any markdown formatting, backticks, or explanatory text before or after the JSON object.

        %s
    `, report.GeneratedAt.Format(models.DateLayout), b.String(), jsonFormat)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrNoContent
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	if text.Len() == 0 {
		return "", ErrNoContent
	}
	return text.String(), nil
}

func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return raw[start : end+1]
}

func parseNarrative(text string) (*models.Narrative, error) {
	jsonStr := extractJSON(text)
	if jsonStr == "" {
		return nil, fmt.Errorf("failed to parse AI response format")
	}
	var narrative models.Narrative
	if err := json.Unmarshal([]byte(jsonStr), &narrative); err != nil {
		return nil, fmt.Errorf("failed to parse AI narrative: %w", err)
	}
	narrative.Summary = strings.TrimSpace(narrative.Summary)
	if narrative.Summary == "" && len(narrative.Recommendations) == 0 {
		return nil, ErrNoContent
	}
	return &narrative, nil
}
