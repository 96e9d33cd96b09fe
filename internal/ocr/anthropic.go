package ocr

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/mgpai22/vobsub2srt/internal/bitmap"
)

// implements Recognizer using Anthropic Claude with image input
type AnthropicRecognizer struct {
	client  anthropic.Client
	model   anthropic.Model
	prompt  string
	options Options
}

func NewAnthropicRecognizer(ctx context.Context, opts Options) (*AnthropicRecognizer, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key is required", ErrUnavailable)
	}
	opts = opts.withDefaults()

	client := anthropic.NewClient(option.WithAPIKey(opts.APIKey))

	model := anthropic.Model(opts.Model)
	if opts.Model == "" {
		model = anthropic.ModelClaudeHaiku4_5
	}

	return &AnthropicRecognizer{
		client:  client,
		model:   model,
		prompt:  BuildPrompt(opts),
		options: opts,
	}, nil
}

func (r *AnthropicRecognizer) Recognize(ctx context.Context, bm *bitmap.Bitmap) Result {
	img, err := visionImage(bm, r.options)
	if err != nil {
		return Failure(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, r.options.Timeout)
	defer cancel()

	message, err := r.client.Messages.New(
		ctx,
		anthropic.MessageNewParams{
			Model:     r.model,
			MaxTokens: 1024,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewImageBlockBase64(pngMIME, base64PNG(img)),
					anthropic.NewTextBlock(r.prompt),
				),
			},
		},
	)
	if err != nil {
		return Failuref("anthropic recognition failed: %v", err)
	}
	return anthropicResult(message)
}

// maps a message to a recognition result; only text blocks count
func anthropicResult(message *anthropic.Message) Result {
	if message == nil || len(message.Content) == 0 {
		return Failure("empty response from Anthropic")
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText += block.Text
		}
	}
	return parseVisionResponse("Anthropic", responseText)
}

func (r *AnthropicRecognizer) Name() string { return string(ProviderAnthropic) }

func (r *AnthropicRecognizer) Close() error { return nil }
