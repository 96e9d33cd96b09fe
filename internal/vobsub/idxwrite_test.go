package vobsub

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mgpai22/vobsub2srt/internal/pts"
)

func TestWriteIndexReadsBack(t *testing.T) {
	var luma [16]uint8
	for i := range luma {
		luma[i] = uint8(i * 16)
	}
	in := &Index{
		Width:   720,
		Height:  576,
		Palette: Palette{Luma: luma, Valid: true},
		Streams: []IndexStream{{
			Lang:  "en",
			Index: 0,
			Entries: []IndexEntry{
				{Timestamp: pts.FromMillis(1234), FilePos: 0},
				{Timestamp: pts.FromMillis(3723004), FilePos: 0x1800},
			},
		}},
	}

	var buf bytes.Buffer
	if err := WriteIndex(&buf, in); err != nil {
		t.Fatalf("WriteIndex() error = %v", err)
	}
	if !strings.Contains(buf.String(), "timestamp: 01:02:03:004, filepos: 000001800") {
		t.Errorf("unexpected timestamp line in:\n%s", buf.String())
	}

	out, err := ParseIndex(&buf)
	if err != nil {
		t.Fatalf("ParseIndex() error = %v", err)
	}
	if out.Width != 720 || out.Height != 576 {
		t.Errorf("size = %dx%d", out.Width, out.Height)
	}
	if out.Palette != in.Palette {
		t.Errorf("palette = %+v, want %+v", out.Palette, in.Palette)
	}
	stream, ok := out.Stream(0)
	if !ok || len(stream.Entries) != 2 {
		t.Fatalf("stream = %+v", stream)
	}
	if stream.Entries[1] != in.Streams[0].Entries[1] {
		t.Errorf("entry = %+v", stream.Entries[1])
	}
}

func TestWriteIndexOmitsUnknownFields(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteIndex(&buf, &Index{Streams: []IndexStream{{Index: 1}}}); err != nil {
		t.Fatal(err)
	}
	text := buf.String()
	if strings.Contains(text, "size:") || strings.Contains(text, "palette:") {
		t.Errorf("unexpected fields in:\n%s", text)
	}
	if !strings.Contains(text, "id: --, index: 1") {
		t.Errorf("missing id line in:\n%s", text)
	}
}
