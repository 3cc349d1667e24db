// Package advisor generates short financial advice lines with a hosted
// language model.
package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opensource-finance/finsight/internal/domain"
	"google.golang.org/genai"
)

const systemInstruction = "You are a concise personal finance advisor. " +
	"Answer with short, practical lines, one recommendation per line, without preamble."

// contentGenerator is the part of the genai client used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini implements domain.TextGenerator with the Gemini API.
type Gemini struct {
	models contentGenerator
	cfg    domain.AdvisorConfig
}

// NewGemini creates a Gemini generator. Without an API key the generator is
// returned unavailable rather than failing.
func NewGemini(ctx context.Context, cfg domain.AdvisorConfig) (*Gemini, error) {
	g := &Gemini{cfg: cfg}
	if cfg.APIKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	g.models = client.Models
	return g, nil
}

// Available reports whether an API key was configured.
func (g *Gemini) Available() bool {
	return g.models != nil
}

// Generate asks the model for at most maxLines lines of advice.
func (g *Gemini) Generate(ctx context.Context, prompt string, maxLines int) ([]string, error) {
	if !g.Available() {
		return nil, domain.ErrTextGenUnavailable
	}

	if g.cfg.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(g.cfg.TimeoutSecs)*time.Second)
		defer cancel()
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.models.GenerateContent(ctx, g.cfg.Model, contents, g.config())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTextGenUnavailable, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty response from model", domain.ErrTextGenUnavailable)
	}
	return ParseLines(text, maxLines), nil
}

func (g *Gemini) config() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
	}
	if g.cfg.Temperature > 0 {
		cfg.Temperature = genai.Ptr(g.cfg.Temperature)
	}
	if g.cfg.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(g.cfg.MaxOutputTokens)
	}
	return cfg
}

// ParseLines splits model output into non-empty lines with list markers
// removed, keeping at most maxLines. maxLines <= 0 keeps every line.
func ParseLines(text string, maxLines int) []string {
	lines := make([]string, 0)
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		line = strings.TrimLeft(line, "-*•")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if maxLines > 0 && len(lines) == maxLines {
			break
		}
	}
	return lines
}

var _ domain.TextGenerator = (*Gemini)(nil)
