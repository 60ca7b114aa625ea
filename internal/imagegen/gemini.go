// Package imagegen produces historical illustrations with the Gemini image
// model, either from a text description or by restyling an existing image.
package imagegen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"historymaker/internal/model"
)

const imageModel = "gemini-2.5-flash-image"

// Style prefixes prepended to the scene description.
var stylePrompts = map[string]string{
	"photorealistic":       "Photorealistic, historically accurate photograph-quality image.",
	"18th_century_painting": "Oil painting in 18th century European style, with rich colors, dramatic chiaroscuro lighting, and visible brushwork.",
	"20th_century_modern":  "20th century documentary photography style, black and white or muted period-accurate color.",
	"map":                  "Detailed historical map illustration with aged parchment texture, period-appropriate cartographic conventions, and hand-lettered labels.",
	"document":             "Aged historical document or manuscript, with period-appropriate handwriting, paper texture, and wear.",
}

const defaultStyle = "photorealistic"

type GenerateRequest struct {
	Description string
	Style       string
	AspectRatio string
}

type Generator struct {
	client *genai.Client
}

// NewGenerator creates a Gemini-backed image generator. An empty API key
// yields a generator whose calls fail with ErrNotConfigured.
func NewGenerator(ctx context.Context, apiKey string) (*Generator, error) {
	if apiKey == "" {
		slog.Warn("gemini api key not set, image generation disabled")
		return &Generator{}, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Generator{client: client}, nil
}

// Generate renders an image for the description and returns its bytes with
// the MIME type reported by the model.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) ([]byte, string, error) {
	if g.client == nil {
		return nil, "", fmt.Errorf("%w: gemini api key not set", model.ErrNotConfigured)
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, "", fmt.Errorf("%w: description is required", model.ErrInvalid)
	}

	prompt := buildPrompt(req)
	slog.Debug("generating image", "style", req.Style, "aspect_ratio", req.AspectRatio)

	gm := g.client.GenerativeModel(imageModel)
	resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, "", fmt.Errorf("generate image: %w", err)
	}
	return extractImage(resp)
}

// Restyle reprocesses an existing image into a photorealistic rendition while
// preserving its composition and aspect ratio.
func (g *Generator) Restyle(ctx context.Context, imageData []byte, mimeType string) ([]byte, string, error) {
	if g.client == nil {
		return nil, "", fmt.Errorf("%w: gemini api key not set", model.ErrNotConfigured)
	}
	if len(imageData) == 0 {
		return nil, "", fmt.Errorf("%w: image data is required", model.ErrInvalid)
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	prompt := "Recreate this image as a photorealistic, historically accurate photograph. " +
		"Preserve the exact composition, subjects, and aspect ratio of the original. " +
		"Do not add or remove elements, only change the rendering style."

	gm := g.client.GenerativeModel(imageModel)
	resp, err := gm.GenerateContent(ctx,
		genai.ImageData(subtype(mimeType), imageData),
		genai.Text(prompt),
	)
	if err != nil {
		return nil, "", fmt.Errorf("restyle image: %w", err)
	}
	return extractImage(resp)
}

func buildPrompt(req GenerateRequest) string {
	style := req.Style
	if _, ok := stylePrompts[style]; !ok {
		style = defaultStyle
	}

	var b strings.Builder
	b.WriteString(stylePrompts[style])
	b.WriteString(" ")
	b.WriteString(strings.TrimSpace(req.Description))
	if req.AspectRatio != "" {
		fmt.Fprintf(&b, " The image must have a %s aspect ratio.", req.AspectRatio)
	}
	return b.String()
}

func extractImage(resp *genai.GenerateContentResponse) ([]byte, string, error) {
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
				mime := blob.MIMEType
				if mime == "" {
					mime = "image/png"
				}
				return blob.Data, mime, nil
			}
		}
	}
	return nil, "", fmt.Errorf("no image data in response")
}

// genai.ImageData wants the bare subtype, not the full MIME type.
func subtype(mimeType string) string {
	if idx := strings.Index(mimeType, "/"); idx >= 0 {
		return mimeType[idx+1:]
	}
	return mimeType
}
