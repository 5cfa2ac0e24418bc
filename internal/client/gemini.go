package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bolao/palpites/internal/metrics"
	"bolao/palpites/internal/standings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ErrNotConfigured is returned when the extractor has no API key
var ErrNotConfigured = errors.New("vision extractor not configured")

// GeminiClient reads handwritten or printed guess sheets from photos using
// the Gemini generateContent API.
type GeminiClient struct {
	api     *genai.Client
	model   string
	limiter chan struct{}
}

// NewGeminiClient creates a Gemini vision client. An empty apiKey yields a
// client whose Extract returns ErrNotConfigured; an empty baseURL uses the
// public endpoint.
func NewGeminiClient(ctx context.Context, baseURL, apiKey, model string, timeout time.Duration) (*GeminiClient, error) {
	c := &GeminiClient{
		model:   model,
		limiter: make(chan struct{}, 4),
	}
	if apiKey == "" {
		return c, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: timeout},
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	c.api = client
	return c, nil
}

// Extract returns the scores it could read for the expected match labels.
// Labels it could not read are absent from the map.
func (c *GeminiClient) Extract(ctx context.Context, image []byte, mimeType string, expected []string) (map[string]string, error) {
	if c.api == nil {
		return nil, ErrNotConfigured
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("empty image")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case c.limiter <- struct{}{}:
	}
	defer func() { <-c.limiter }()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(buildPrompt(expected)),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	}

	start := time.Now()
	resp, err := c.api.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		metrics.RecordAPICall("gemini_generate", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to call gemini: %w", err)
	}
	metrics.RecordAPICall("gemini_generate", "success", time.Since(start).Seconds())

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini returned no text")
	}

	guesses, err := parseExtraction(text, expected)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("model", c.model).
		Int("expected", len(expected)).
		Int("read", len(guesses)).
		Msg("Guess sheet extracted")

	return guesses, nil
}

func buildPrompt(expected []string) string {
	var b strings.Builder
	b.WriteString("A imagem é uma folha de palpites de uma rodada do Brasileirão. ")
	b.WriteString("Leia o placar previsto para cada um destes jogos:\n")
	for _, label := range expected {
		b.WriteString("- ")
		b.WriteString(label)
		b.WriteString("\n")
	}
	b.WriteString("Responda apenas com um objeto JSON cujas chaves são exatamente os jogos acima ")
	b.WriteString(`e os valores são placares no formato "2x1". Omita jogos sem palpite legível.`)
	return b.String()
}

// parseExtraction maps model output onto the expected labels. Keys are
// matched case-insensitively; unknown keys and unreadable scores are dropped.
func parseExtraction(text string, expected []string) (map[string]string, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse extraction output: %w", err)
	}

	canonical := make(map[string]string, len(expected))
	for _, label := range expected {
		canonical[foldLabel(label)] = label
	}

	guesses := make(map[string]string, len(raw))
	for key, value := range raw {
		label, ok := canonical[foldLabel(key)]
		if !ok {
			continue
		}
		score, ok := value.(string)
		if !ok {
			continue
		}
		if normalized, ok := standings.NormalizeScoreLabel(score); ok {
			guesses[label] = normalized
		}
	}
	return guesses, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	// Drop the language tag line, e.g. ```json
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func foldLabel(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}
