package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/mgpai22/vobsub2srt/internal/bitmap"
)

// PreprocessOptions prepares subtitle bitmaps for recognition. Subtitles are
// light text on a transparent (black) background; engines read dark text on
// white best.
type PreprocessOptions struct {
	Invert  bool
	Scale   int
	Padding int
}

func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{Invert: true, Scale: 2, Padding: 10}
}

// Preprocess copies the visible area of bm into a new image, inverted,
// scaled by an integer factor with nearest neighbour sampling, and framed
// with a padding border of background.
func Preprocess(bm *bitmap.Bitmap, opts PreprocessOptions) *image.Gray {
	scale := max(opts.Scale, 1)
	pad := max(opts.Padding, 0)

	var background byte
	if opts.Invert {
		background = 0xff
	}

	w := bm.Width*scale + 2*pad
	h := bm.Height*scale + 2*pad
	out := image.NewGray(image.Rect(0, 0, w, h))
	for i := range out.Pix {
		out.Pix[i] = background
	}

	for y := 0; y < bm.Height; y++ {
		row := bm.Row(y)
		for sy := 0; sy < scale; sy++ {
			dst := out.Pix[(pad+y*scale+sy)*out.Stride+pad:]
			for x, v := range row {
				if opts.Invert {
					v = 0xff - v
				}
				for sx := 0; sx < scale; sx++ {
					dst[x*scale+sx] = v
				}
			}
		}
	}
	return out
}

// EncodePNG preprocesses bm and encodes the result as PNG.
func EncodePNG(bm *bitmap.Bitmap, opts PreprocessOptions) ([]byte, error) {
	if err := bm.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bitmap: %w", err)
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, Preprocess(bm, opts)); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
