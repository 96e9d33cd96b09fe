package ocr

import (
	"context"
	"fmt"

	"github.com/mgpai22/vobsub2srt/internal/bitmap"
	"google.golang.org/genai"
)

// implements Recognizer using Google Gemini vision models
type GeminiRecognizer struct {
	client  *genai.Client
	model   string
	prompt  string
	options Options
}

func NewGeminiRecognizer(ctx context.Context, opts Options) (*GeminiRecognizer, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is required", ErrUnavailable)
	}
	opts = opts.withDefaults()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: opts.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiRecognizer{
		client:  client,
		model:   model,
		prompt:  BuildPrompt(opts),
		options: opts,
	}, nil
}

func (r *GeminiRecognizer) Recognize(ctx context.Context, bm *bitmap.Bitmap) Result {
	img, err := visionImage(bm, r.options)
	if err != nil {
		return Failure(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, r.options.Timeout)
	defer cancel()

	parts := []*genai.Part{
		genai.NewPartFromText(r.prompt),
		genai.NewPartFromBytes(img, pngMIME),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := r.client.Models.GenerateContent(ctx, r.model, contents, nil)
	if err != nil {
		return Failuref("gemini recognition failed: %v", err)
	}
	return geminiResult(result)
}

// maps a response to a recognition result using the first candidate with text
func geminiResult(result *genai.GenerateContentResponse) Result {
	if result == nil || len(result.Candidates) == 0 {
		return Failure("empty response from Gemini")
	}
	return parseVisionResponse("Gemini", geminiText(result))
}

func geminiText(result *genai.GenerateContentResponse) string {
	if result == nil {
		return ""
	}
	var responseText string
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				responseText += part.Text
			}
		}
		if responseText != "" {
			break
		}
	}
	return responseText
}

func (r *GeminiRecognizer) Name() string { return string(ProviderGemini) }

func (r *GeminiRecognizer) Close() error { return nil }
