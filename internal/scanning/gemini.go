package scanning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements the Scanner interface using Google Gemini
type Gemini struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

// NewGemini creates a new Gemini Scanner instance
func NewGemini(ctx context.Context, apiKey string, modelName string, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client:    client,
		modelName: modelName,
		logger:    logger,
	}, nil
}

// ScanReceipt sends the receipt image to Gemini and returns its text answer
func (g *Gemini) ScanReceipt(ctx context.Context, imageData []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pngData, err := toPNG(imageData, contentType)
	if err != nil {
		return "", err
	}

	text, err := g.generate(ctx, pngData, true)
	if temperatureRejected(err) {
		g.logger.Warn("Gemini rejected temperature, retrying without it", "model", g.modelName, "error", err)
		text, err = g.generate(ctx, pngData, false)
	}
	return text, err
}

func (g *Gemini) generate(ctx context.Context, pngData []byte, lowTemperature bool) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	if lowTemperature {
		model.SetTemperature(preferredTemperature)
	}

	// genai.ImageData takes the format suffix, not the MIME type
	resp, err := model.GenerateContent(ctx,
		genai.Text(systemPrompt),
		genai.ImageData("png", pngData),
		genai.Text(receiptExtractPrompt),
	)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from gemini")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	return out.String(), nil
}

// Engine names the provider and model
func (g *Gemini) Engine() string {
	return "gemini:" + g.modelName
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
