package vobsub

import (
	"bytes"
	"fmt"
	"io"
)

const ifoBlockSize = 0x800

// palette and frame size read from a video title set IFO
type IFOInfo struct {
	Width   int
	Height  int
	Palette Palette
}

// ParseIFO reads the frame geometry from the VTS header and the palette of the
// first program chain. A missing program chain leaves the palette invalid.
func ParseIFO(r io.ReaderAt) (*IFOInfo, error) {
	block := make([]byte, ifoBlockSize)
	if _, err := r.ReadAt(block, 0); err != nil {
		return nil, fmt.Errorf("failed to read IFO header: %w", err)
	}
	if !bytes.Equal(block[:12], []byte("DVDVIDEO-VTS")) {
		return nil, ErrNotIFO
	}

	info := &IFOInfo{Height: 480}
	pgciSector := int64(be32(block[0xcc:]))
	if (block[0x200]&0x30)>>4 != 0 {
		info.Height = 576
	}
	switch (block[0x201] & 0x0c) >> 2 {
	case 0:
		info.Width = 720
	case 1:
		info.Width = 704
	case 2:
		info.Width = 352
	case 3:
		info.Width = 352
		info.Height /= 2
	}

	if _, err := r.ReadAt(block, pgciSector*ifoBlockSize); err != nil {
		return info, nil
	}
	pgcOffset := int(be32(block[0x0c:]))
	start := pgcOffset + 0xa4
	if pgcOffset < 0 || start+16*4 > len(block) {
		return info, nil
	}
	for i := 0; i < 16; i++ {
		// entries are 0, Y, Cr, Cb
		info.Palette.Luma[i] = block[start+4*i+1]
	}
	info.Palette.Valid = true

	return info, nil
}
