// Package bitmap holds the decoded subtitle raster shared by the track reader,
// the recognizers and the image dump.
package bitmap

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
)

// Bitmap is an 8-bit grayscale raster. Rows are Stride bytes apart; only the
// first Width bytes of each row are image data.
type Bitmap struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// New allocates a zeroed bitmap with the stride padded to a multiple of 8.
func New(width, height int) *Bitmap {
	stride := (width + 7) &^ 7
	return &Bitmap{
		Width:  width,
		Height: height,
		Stride: stride,
		Pix:    make([]byte, stride*height),
	}
}

// Size is the pixel buffer size in bytes.
func (b *Bitmap) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Pix)
}

func (b *Bitmap) Empty() bool {
	return b == nil || b.Width <= 0 || b.Height <= 0
}

// Validate checks that the buffer covers Stride*Height bytes.
func (b *Bitmap) Validate() error {
	if b == nil {
		return fmt.Errorf("bitmap is nil")
	}
	if b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("invalid bitmap dimensions %dx%d", b.Width, b.Height)
	}
	if b.Stride < b.Width {
		return fmt.Errorf("stride %d smaller than width %d", b.Stride, b.Width)
	}
	if len(b.Pix) < b.Stride*b.Height {
		return fmt.Errorf(
			"pixel buffer too small: %d bytes for %dx%d stride %d",
			len(b.Pix), b.Width, b.Height, b.Stride,
		)
	}
	return nil
}

func (b *Bitmap) Row(y int) []byte {
	off := y * b.Stride
	return b.Pix[off : off+b.Width]
}

// FromImage converts img to grayscale, reusing dst's buffer when it is large
// enough. Transparent pixels become black.
func FromImage(dst *Bitmap, img image.Image) *Bitmap {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	stride := (w + 7) &^ 7
	if dst == nil || cap(dst.Pix) < stride*h {
		dst = New(w, h)
	} else {
		dst.Width, dst.Height, dst.Stride = w, h, stride
		dst.Pix = dst.Pix[:stride*h]
		clear(dst.Pix)
	}

	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < h; y++ {
			off := gray.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(dst.Row(y), gray.Pix[off:off+w])
		}
		return dst
	}
	for y := 0; y < h; y++ {
		row := dst.Row(y)
		for x := range row {
			c := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y))
			row[x] = c.(color.Gray).Y
		}
	}
	return dst
}

// Hash identifies the visible pixels; stride padding does not contribute.
func (b *Bitmap) Hash() string {
	h := sha256.New()
	var dims [8]byte
	binary.BigEndian.PutUint32(dims[:4], uint32(b.Width))
	binary.BigEndian.PutUint32(dims[4:], uint32(b.Height))
	h.Write(dims[:])
	for y := 0; y < b.Height; y++ {
		h.Write(b.Row(y))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// WritePGM writes the bitmap as a binary Netpbm graymap (P5).
func (b *Bitmap) WritePGM(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "P5\n%d %d %d\n", b.Width, b.Height, 255); err != nil {
		return err
	}
	for y := 0; y < b.Height; y++ {
		if _, err := bw.Write(b.Row(y)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DumpPGM writes the bitmap to <prefix>-<counter>.pgm and returns the path.
func DumpPGM(prefix string, counter int, b *Bitmap) (string, error) {
	path := fmt.Sprintf("%s-%d.pgm", prefix, counter)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create image dump: %w", err)
	}
	if err := b.WritePGM(f); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write image dump: %w", err)
	}
	return path, f.Close()
}
