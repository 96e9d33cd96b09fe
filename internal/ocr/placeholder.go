package ocr

import (
	"context"
	"fmt"

	"github.com/mgpai22/vobsub2srt/internal/bitmap"
)

// PlaceholderRecognizer produces "[subtitle WxH]" for every bitmap. It keeps
// the timing of a stream without an OCR engine.
type PlaceholderRecognizer struct{}

func NewPlaceholderRecognizer() *PlaceholderRecognizer {
	return &PlaceholderRecognizer{}
}

func (p *PlaceholderRecognizer) Recognize(ctx context.Context, bm *bitmap.Bitmap) Result {
	if bm.Empty() {
		return Failure("empty bitmap")
	}
	return Success(fmt.Sprintf("[subtitle %dx%d]", bm.Width, bm.Height))
}

func (p *PlaceholderRecognizer) Name() string { return string(ProviderPlaceholder) }

func (p *PlaceholderRecognizer) Close() error { return nil }
