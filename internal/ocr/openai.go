package ocr

import (
	"context"
	"fmt"

	"github.com/mgpai22/vobsub2srt/internal/bitmap"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// implements Recognizer using OpenAI Chat Completions with image input
type OpenAIRecognizer struct {
	client  openai.Client
	model   string
	prompt  string
	options Options
}

func NewOpenAIRecognizer(ctx context.Context, opts Options) (*OpenAIRecognizer, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key is required", ErrUnavailable)
	}
	opts = opts.withDefaults()

	client := openai.NewClient(option.WithAPIKey(opts.APIKey))

	model := opts.Model
	if model == "" {
		model = "gpt-5-mini"
	}

	return &OpenAIRecognizer{
		client:  client,
		model:   model,
		prompt:  BuildPrompt(opts),
		options: opts,
	}, nil
}

func (r *OpenAIRecognizer) Recognize(ctx context.Context, bm *bitmap.Bitmap) Result {
	img, err := visionImage(bm, r.options)
	if err != nil {
		return Failure(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, r.options.Timeout)
	defer cancel()

	dataURL := "data:" + pngMIME + ";base64," + base64PNG(img)
	completion, err := r.client.Chat.Completions.New(
		ctx,
		openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
					openai.TextContentPart(r.prompt),
					openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL: dataURL,
					}),
				}),
			},
			Model: r.model,
		},
	)
	if err != nil {
		return Failuref("openai recognition failed: %v", err)
	}
	return openAIResult(completion)
}

// maps a chat completion to a recognition result
func openAIResult(completion *openai.ChatCompletion) Result {
	if completion == nil || len(completion.Choices) == 0 {
		return Failure("empty response from OpenAI")
	}
	msg := completion.Choices[0].Message
	if msg.Content == "" && msg.Refusal != "" {
		return Failuref("OpenAI refused: %s", truncateString(msg.Refusal, 200))
	}
	return parseVisionResponse("OpenAI", msg.Content)
}

func (r *OpenAIRecognizer) Name() string { return string(ProviderOpenAI) }

func (r *OpenAIRecognizer) Close() error { return nil }
