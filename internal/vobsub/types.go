package vobsub

import (
	"errors"

	"github.com/mgpai22/vobsub2srt/internal/bitmap"
	"github.com/mgpai22/vobsub2srt/internal/pts"
)

var (
	ErrMalformedPacket = errors.New("vobsub: malformed subpicture packet")
	ErrMalformedStream = errors.New("vobsub: malformed program stream")
	ErrMalformedIndex  = errors.New("vobsub: malformed index file")
	ErrNotIFO          = errors.New("vobsub: not a DVD VTS IFO file")
	ErrNoStream        = errors.New("vobsub: subtitle stream not found")
)

// one packet of the selected subtitle track
type Packet struct {
	Data   []byte
	PTS    pts.Ticks
	HasPTS bool
	// ordinal of the subtitle within the track
	Pos int64
}

// decoded subtitle ready for display
type Image struct {
	Bitmap   *bitmap.Bitmap
	Interval pts.Interval
	// X and Y locate the bitmap within the video frame
	X, Y int
}

// Palette holds the luma of the 16 DVD palette entries.
type Palette struct {
	Luma  [16]uint8
	Valid bool
}

// PaletteFromRGB converts 0xRRGGBB entries using BT.601 weights.
func PaletteFromRGB(rgb [16]uint32) Palette {
	var p Palette
	for i, c := range rgb {
		r := (c >> 16) & 0xff
		g := (c >> 8) & 0xff
		b := c & 0xff
		p.Luma[i] = uint8((299*r + 587*g + 114*b) / 1000)
	}
	p.Valid = true
	return p
}

func be16(b []byte) int {
	return int(b[0])<<8 | int(b[1])
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
