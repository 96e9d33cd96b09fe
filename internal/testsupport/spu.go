// Package testsupport builds VobSub test fixtures: subpicture units, program
// streams and .idx/.sub file pairs.
package testsupport

import (
	"testing"
)

// SPU describes a subpicture unit to encode. Pixels holds 2-bit RLE values
// (0 background, 1 pattern, 2 and 3 emphasis), one row per entry; EncodeSPU
// fills it with a Width x Height block of pattern pixels.
type SPU struct {
	X, Y          int
	Width, Height int
	Pixels        [][]byte
	// control sequence dates in units of 1024 ticks
	StartDate int
	StopDate  int
	// palette indexes and alpha for emphasis2, emphasis1, pattern, background
	Colors [4]byte
	Alpha  [4]byte
}

// SPUOption mutates an SPU before encoding.
type SPUOption func(*SPU)

func WithSize(w, h int) SPUOption {
	return func(s *SPU) { s.Width, s.Height = w, h }
}

// EncodeSPU returns the bytes of a subpicture unit. Defaults: 16x4 at (10,20),
// start date 0, stop date 100, colors {3,2,1,0}, alpha {15,15,15,0}.
func EncodeSPU(t testing.TB, opts ...SPUOption) []byte {
	t.Helper()

	s := SPU{
		X: 10, Y: 20,
		Width: 16, Height: 4,
		StopDate: 100,
		Colors:   [4]byte{3, 2, 1, 0},
		Alpha:    [4]byte{15, 15, 15, 0},
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.Width <= 0 || s.Height <= 0 {
		t.Fatalf("testsupport: invalid SPU size %dx%d", s.Width, s.Height)
	}
	s.Pixels = make([][]byte, s.Height)
	for y := range s.Pixels {
		row := make([]byte, s.Width)
		for x := range row {
			row[x] = 1
		}
		s.Pixels[y] = row
	}

	var fields [2]nibbleWriter
	for y, row := range s.Pixels {
		if len(row) != s.Width {
			t.Fatalf("testsupport: row %d has %d pixels, want %d", y, len(row), s.Width)
		}
		encodeRow(&fields[y&1], row)
	}

	field0 := 4
	field1 := field0 + len(fields[0].buf)
	ctrl := field1 + len(fields[1].buf)

	out := make([]byte, 4, ctrl+64)
	out = append(out, fields[0].buf...)
	out = append(out, fields[1].buf...)

	first := []byte{0x01}
	x2 := s.X + s.Width - 1
	y2 := s.Y + s.Height - 1
	first = append(first,
		0x03, s.Colors[0]<<4|s.Colors[1], s.Colors[2]<<4|s.Colors[3],
		0x04, s.Alpha[0]<<4|s.Alpha[1], s.Alpha[2]<<4|s.Alpha[3],
		0x05,
		byte(s.X>>4), byte(s.X&0x0f)<<4|byte(x2>>8), byte(x2),
		byte(s.Y>>4), byte(s.Y&0x0f)<<4|byte(y2>>8), byte(y2),
		0x06, byte(field0>>8), byte(field0), byte(field1>>8), byte(field1),
		0xff,
	)

	next := ctrl + 4 + len(first)
	out = append(out, byte(s.StartDate>>8), byte(s.StartDate), byte(next>>8), byte(next))
	out = append(out, first...)
	out = append(out, byte(s.StopDate>>8), byte(s.StopDate), byte(next>>8), byte(next), 0x02, 0xff)

	out[0], out[1] = byte(len(out)>>8), byte(len(out))
	out[2], out[3] = byte(ctrl>>8), byte(ctrl)
	return out
}

// Split cuts data into fragments of at most n bytes.
func Split(data []byte, n int) [][]byte {
	var parts [][]byte
	for len(data) > n {
		parts = append(parts, data[:n])
		data = data[n:]
	}
	return append(parts, data)
}

type nibbleWriter struct {
	buf  []byte
	half bool
}

func (w *nibbleWriter) put(v byte) {
	if w.half {
		w.buf[len(w.buf)-1] |= v & 0x0f
	} else {
		w.buf = append(w.buf, v<<4)
	}
	w.half = !w.half
}

func (w *nibbleWriter) align() {
	w.half = false
}

func encodeRow(w *nibbleWriter, row []byte) {
	x := 0
	for x < len(row) {
		c := row[x] & 3
		n := 1
		for x+n < len(row) && row[x+n]&3 == c {
			n++
		}
		if x+n == len(row) && n > 1 {
			// run to end of line
			w.put(0)
			w.put(0)
			w.put(0)
			w.put(c)
			x += n
			continue
		}
		for left := n; left > 0; {
			chunk := min(left, 255)
			encodeRun(w, chunk, c)
			left -= chunk
		}
		x += n
	}
	w.align()
}

func encodeRun(w *nibbleWriter, n int, c byte) {
	v := n<<2 | int(c)
	switch {
	case n < 4:
		w.put(byte(v))
	case n < 16:
		w.put(byte(v >> 4))
		w.put(byte(v))
	case n < 64:
		w.put(0)
		w.put(byte(v >> 4))
		w.put(byte(v))
	default:
		w.put(0)
		w.put(byte(v >> 8))
		w.put(byte(v >> 4))
		w.put(byte(v))
	}
}
