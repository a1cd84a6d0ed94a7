// Package gemini provides a client for the Google Gemini API
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/bobmcallan/magma/internal/common"
	"github.com/bobmcallan/magma/internal/interfaces"
	"github.com/bobmcallan/magma/internal/models"
)

const (
	DefaultModel = "gemini-3-flash-preview"
)

// Client narrates recommendations with Gemini. Narration is strictly
// presentational: the prompt carries the already-decided action and
// reasons, and the model only restates them as prose.
type Client struct {
	client *genai.Client
	model  string
	logger *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		client: genaiClient,
		model:  DefaultModel,
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// GenerateContent generates text from a prompt
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug().Str("model", c.model).Msg("Generating content")

	contents := genai.Text(prompt)
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(result)
}

// Narrate produces a short prose narrative for one recommendation
func (c *Client) Narrate(ctx context.Context, rec *models.Recommendation, score *models.Score) (string, error) {
	prompt := buildNarrationPrompt(rec, score)

	text, err := c.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(text), nil
}

// buildNarrationPrompt creates a prompt restating the structured decision
func buildNarrationPrompt(rec *models.Recommendation, score *models.Score) string {
	var sb strings.Builder
	sb.WriteString("You are writing a one-paragraph plain-English note for a retail investor.\n")
	sb.WriteString("Restate the following recommendation without changing or second-guessing it.\n")
	sb.WriteString("Do not invent numbers or facts beyond what is given.\n\n")

	fmt.Fprintf(&sb, "Ticker: %s\n", rec.Ticker)
	fmt.Fprintf(&sb, "Action: %s\n", rec.Action)
	fmt.Fprintf(&sb, "Dominant factor: %s\n", rec.Tag)
	fmt.Fprintf(&sb, "Reason: %s\n", rec.Reason)
	fmt.Fprintf(&sb, "Confidence: %.2f\n", rec.Confidence)

	if score != nil {
		fmt.Fprintf(&sb, "Risk score (0 to 1, relative to batch): %.2f\n", score.Risk)
		fmt.Fprintf(&sb, "Potential score (0 to 1, relative to batch): %.2f\n", score.Potential)
	}

	sb.WriteString("\nWrite two to three sentences. No headers, no bullet points.")

	return sb.String()
}

// extractTextFromResponse extracts text from a generate content response
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	text := ""
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}

	return text, nil
}

// Ensure Client implements Narrator
var _ interfaces.Narrator = (*Client)(nil)
