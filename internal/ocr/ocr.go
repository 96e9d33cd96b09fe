// Package ocr recognizes the text of subtitle bitmaps.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mgpai22/vobsub2srt/internal/bitmap"
)

// ErrUnavailable reports an engine, model or language data that cannot be used.
var ErrUnavailable = errors.New("ocr engine unavailable")

// interface for subtitle text recognition
type Recognizer interface {
	// Recognize reads the whole bitmap. Engine failures are reported in the
	// result, never as a Go error.
	Recognize(ctx context.Context, bm *bitmap.Bitmap) Result
	Name() string
	Close() error
}

// recognition service provider
type Provider string

const (
	ProviderTesseract   Provider = "tesseract"
	ProviderGemini      Provider = "gemini"
	ProviderOpenAI      Provider = "openai"
	ProviderAnthropic   Provider = "anthropic"
	ProviderPlaceholder Provider = "placeholder"
)

func Providers() []Provider {
	return []Provider{
		ProviderTesseract,
		ProviderGemini,
		ProviderOpenAI,
		ProviderAnthropic,
		ProviderPlaceholder,
	}
}

// recognition options
type Options struct {
	Language      string // tesseract language code, e.g. "eng"
	TessdataDir   string
	TesseractPath string
	PageSegMode   int // zero selects DefaultPageSegMode
	Model         string
	APIKey        string
	Prompt        string // extra instructions for vision models
	Timeout       time.Duration
	Preprocess    PreprocessOptions
}

const (
	DefaultLanguage    = "eng"
	DefaultPageSegMode = 6
	DefaultTimeout     = 60 * time.Second
)

// creates recognizer based on provider
func Factory(ctx context.Context, provider Provider, opts Options) (Recognizer, error) {
	switch provider {
	case ProviderTesseract, "":
		return NewTesseractRecognizer(ctx, opts)
	case ProviderGemini:
		return NewGeminiRecognizer(ctx, opts)
	case ProviderOpenAI:
		return NewOpenAIRecognizer(ctx, opts)
	case ProviderAnthropic:
		return NewAnthropicRecognizer(ctx, opts)
	case ProviderPlaceholder:
		return NewPlaceholderRecognizer(), nil
	default:
		return nil, fmt.Errorf("unsupported ocr provider: %s", provider)
	}
}

func (o Options) withDefaults() Options {
	if o.Language == "" {
		o.Language = DefaultLanguage
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.PageSegMode == 0 {
		o.PageSegMode = DefaultPageSegMode
	}
	if o.Preprocess == (PreprocessOptions{}) {
		o.Preprocess = DefaultPreprocessOptions()
	}
	return o
}
