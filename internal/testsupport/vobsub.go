package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mgpai22/vobsub2srt/internal/pts"
)

// PESPacket is one private stream 1 packet wrapped in its own pack.
type PESPacket struct {
	SubID   byte
	PTS     pts.Ticks
	HasPTS  bool
	Payload []byte
}

// BuildPS returns an MPEG-2 program stream holding packets and the file
// offset of each packet's pack header.
func BuildPS(packets []PESPacket) ([]byte, []int64) {
	var out []byte
	positions := make([]int64, 0, len(packets))
	for _, p := range packets {
		positions = append(positions, int64(len(out)))
		out = append(out,
			0x00, 0x00, 0x01, 0xba,
			0x44, 0x00, 0x04, 0x00, 0x04, 0x01,
			0x01, 0x89, 0xc3,
			0xf8,
		)

		header := []byte{0x81, 0x00, 0x00}
		if p.HasPTS {
			header[1] = 0x80
			header[2] = 5
			header = append(header, encodePTS(p.PTS)...)
		}
		length := len(header) + 1 + len(p.Payload)
		out = append(out, 0x00, 0x00, 0x01, 0xbd, byte(length>>8), byte(length))
		out = append(out, header...)
		out = append(out, p.SubID)
		out = append(out, p.Payload...)
	}
	out = append(out, 0x00, 0x00, 0x01, 0xb9)
	return out, positions
}

func encodePTS(t pts.Ticks) []byte {
	v := uint64(t)
	return []byte{
		0x21 | byte(v>>30&0x07)<<1,
		byte(v >> 22),
		byte(v>>15&0x7f)<<1 | 1,
		byte(v >> 7),
		byte(v&0x7f)<<1 | 1,
	}
}

// Cue is one subtitle of a generated VobSub pair.
type Cue struct {
	Start pts.Ticks
	SPU   []byte
	// fragment size when splitting the unit over several packets; 0 keeps one packet
	Fragment int
}

type VobSubOptions struct {
	Lang    string
	Track   int
	Width   int
	Height  int
	Palette [16]uint32
	Delay   string
}

// DefaultPalette is a 16 entry palette with a white pattern color at index 1.
var DefaultPalette = [16]uint32{
	0x000000, 0xffffff, 0x808080, 0x404040,
	0xff0000, 0x00ff00, 0x0000ff, 0xffff00,
	0xff00ff, 0x00ffff, 0xc0c0c0, 0x202020,
	0x606060, 0xa0a0a0, 0xe0e0e0, 0x101010,
}

// WriteVobSub writes <dir>/<name>.idx and .sub for cues and returns the base
// path without extension. The first fragment of each cue carries a PES
// timestamp; later fragments carry none.
func WriteVobSub(t testing.TB, dir, name string, cues []Cue, opts VobSubOptions) string {
	t.Helper()

	if opts.Lang == "" {
		opts.Lang = "en"
	}
	if opts.Width == 0 {
		opts.Width, opts.Height = 720, 480
	}
	if opts.Palette == [16]uint32{} {
		opts.Palette = DefaultPalette
	}

	var packets []PESPacket
	var first []int
	for _, cue := range cues {
		parts := [][]byte{cue.SPU}
		if cue.Fragment > 0 {
			parts = Split(cue.SPU, cue.Fragment)
		}
		first = append(first, len(packets))
		for i, part := range parts {
			packets = append(packets, PESPacket{
				SubID:   byte(0x20 + opts.Track),
				PTS:     cue.Start,
				HasPTS:  i == 0,
				Payload: part,
			})
		}
	}
	data, positions := BuildPS(packets)

	var idx strings.Builder
	idx.WriteString("# VobSub index file, v7 (do not modify this line!)\n")
	fmt.Fprintf(&idx, "size: %dx%d\n", opts.Width, opts.Height)
	entries := make([]string, len(opts.Palette))
	for i, c := range opts.Palette {
		entries[i] = fmt.Sprintf("%06x", c)
	}
	fmt.Fprintf(&idx, "palette: %s\n", strings.Join(entries, ", "))
	fmt.Fprintf(&idx, "langidx: %d\n", opts.Track)
	fmt.Fprintf(&idx, "id: %s, index: %d\n", opts.Lang, opts.Track)
	if opts.Delay != "" {
		fmt.Fprintf(&idx, "delay: %s\n", opts.Delay)
	}
	for i, cue := range cues {
		fmt.Fprintf(&idx, "timestamp: %s, filepos: %09x\n",
			IndexTime(cue.Start), positions[first[i]])
	}

	base := filepath.Join(dir, name)
	if err := os.WriteFile(base+".idx", []byte(idx.String()), 0o644); err != nil {
		t.Fatalf("write idx: %v", err)
	}
	if err := os.WriteFile(base+".sub", data, 0o644); err != nil {
		t.Fatalf("write sub: %v", err)
	}
	return base
}

// IndexTime formats ticks as an .idx timestamp, HH:MM:SS:mmm.
func IndexTime(t pts.Ticks) string {
	ms := t.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d:%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}
