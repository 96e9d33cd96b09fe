package vobsub

import (
	"errors"
	"strings"
	"testing"

	"github.com/mgpai22/vobsub2srt/internal/pts"
)

const sampleIndex = `# VobSub index file, v7 (do not modify this line!)
#
size: 720x576
org: 0, 0
scale: 100%, 100%
alpha: 100%
smooth: OFF
fadein/out: 50, 50
align: OFF at LEFT TOP
time offset: 0
forced subs: OFF
palette: 000000, ffffff, 808080, 404040, ff0000, 00ff00, 0000ff, ffff00, ff00ff, 00ffff, c0c0c0, 202020, 606060, a0a0a0, e0e0e0, 101010
custom colors: OFF, tridx: 0000, colors: 000000, 000000, 000000, 000000
langidx: 1

# English
id: en, index: 0
timestamp: 00:00:01:000, filepos: 000000000
timestamp: 00:01:02:345, filepos: 000000800

# French
id: fr, index: 1
delay: 00:00:02:000
timestamp: 00:00:00:500, filepos: 000001000
`

func TestParseIndex(t *testing.T) {
	idx, err := ParseIndex(strings.NewReader(sampleIndex))
	if err != nil {
		t.Fatalf("ParseIndex() error = %v", err)
	}

	if idx.Width != 720 || idx.Height != 576 {
		t.Errorf("size = %dx%d, want 720x576", idx.Width, idx.Height)
	}
	if idx.LangIdx != 1 {
		t.Errorf("LangIdx = %d, want 1", idx.LangIdx)
	}
	if !idx.Palette.Valid {
		t.Fatal("palette not marked valid")
	}
	if idx.Palette.Luma[0] != 0 || idx.Palette.Luma[1] != 255 || idx.Palette.Luma[2] != 128 {
		t.Errorf("palette luma = %v", idx.Palette.Luma[:3])
	}
	if len(idx.Streams) != 2 {
		t.Fatalf("streams = %d, want 2", len(idx.Streams))
	}

	en, ok := idx.Stream(0)
	if !ok {
		t.Fatal("stream 0 missing")
	}
	if en.Lang != "en" || len(en.Entries) != 2 {
		t.Fatalf("stream 0 = %+v", en)
	}
	if en.Entries[1].Timestamp != pts.FromMillis(62345) {
		t.Errorf("timestamp = %d, want %d", en.Entries[1].Timestamp, pts.FromMillis(62345))
	}
	if en.Entries[1].FilePos != 0x800 {
		t.Errorf("filepos = %#x, want 0x800", en.Entries[1].FilePos)
	}

	fr, ok := idx.Stream(1)
	if !ok {
		t.Fatal("stream 1 missing")
	}
	if got, want := fr.Entries[0].Timestamp, pts.FromMillis(2500); got != want {
		t.Errorf("delayed timestamp = %d, want %d", got, want)
	}

	if _, ok := idx.Stream(5); ok {
		t.Error("Stream(5) should not exist")
	}
}

func TestParseIndexNegativeDelayClamps(t *testing.T) {
	input := "id: en, index: 0\ndelay: -00:00:05:000\ntimestamp: 00:00:01:000, filepos: 000000000\n"
	idx, err := ParseIndex(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseIndex() error = %v", err)
	}
	if got := idx.Streams[0].Entries[0].Timestamp; got != 0 {
		t.Errorf("timestamp = %d, want 0", got)
	}
}

func TestParseIndexErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad size", "size: 720by576\n"},
		{"short palette", "palette: 000000, ffffff\n"},
		{"bad palette entry", "palette: " + strings.Repeat("zzzzzz, ", 15) + "000000\n"},
		{"timestamp before id", "timestamp: 00:00:01:000, filepos: 0\n"},
		{"bad timestamp", "id: en, index: 0\ntimestamp: 00:01:000, filepos: 0\n"},
		{"missing filepos", "id: en, index: 0\ntimestamp: 00:00:01:000\n"},
		{"bad filepos", "id: en, index: 0\ntimestamp: 00:00:01:000, filepos: xyz\n"},
		{"index out of range", "id: en, index: 40\n"},
		{"bad langidx", "langidx: one\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIndex(strings.NewReader(tt.input))
			if !errors.Is(err, ErrMalformedIndex) {
				t.Errorf("error = %v, want ErrMalformedIndex", err)
			}
		})
	}
}

func TestPaletteFromRGB(t *testing.T) {
	var rgb [16]uint32
	rgb[0] = 0xff0000
	rgb[1] = 0x00ff00
	rgb[2] = 0x0000ff
	p := PaletteFromRGB(rgb)

	want := []uint8{76, 149, 29}
	for i, w := range want {
		if p.Luma[i] != w {
			t.Errorf("Luma[%d] = %d, want %d", i, p.Luma[i], w)
		}
	}
}
