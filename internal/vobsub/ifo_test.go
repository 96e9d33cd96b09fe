package vobsub

import (
	"bytes"
	"errors"
	"testing"
)

func buildIFO(standard, resolution byte, luma [16]byte) []byte {
	data := make([]byte, 2*ifoBlockSize)
	copy(data, "DVDVIDEO-VTS")
	// PGCI table in sector 1
	data[0xcf] = 1
	data[0x200] = standard << 4
	data[0x201] = resolution << 2

	pgci := data[ifoBlockSize:]
	pgcOffset := 0x10
	pgci[0x0f] = byte(pgcOffset)
	for i, y := range luma {
		entry := pgci[pgcOffset+0xa4+4*i:]
		entry[1] = y
		entry[2] = 0x80
		entry[3] = 0x80
	}
	return data
}

func TestParseIFO(t *testing.T) {
	var luma [16]byte
	for i := range luma {
		luma[i] = byte(i * 16)
	}

	tests := []struct {
		name       string
		standard   byte
		resolution byte
		wantW      int
		wantH      int
	}{
		{"ntsc full", 0, 0, 720, 480},
		{"pal full", 1, 0, 720, 576},
		{"pal 704", 1, 1, 704, 576},
		{"ntsc half", 0, 2, 352, 480},
		{"pal quarter", 1, 3, 352, 288},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseIFO(bytes.NewReader(buildIFO(tt.standard, tt.resolution, luma)))
			if err != nil {
				t.Fatalf("ParseIFO() error = %v", err)
			}
			if info.Width != tt.wantW || info.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", info.Width, info.Height, tt.wantW, tt.wantH)
			}
			if !info.Palette.Valid {
				t.Fatal("palette not valid")
			}
			if info.Palette.Luma != luma {
				t.Errorf("palette = %v, want %v", info.Palette.Luma, luma)
			}
		})
	}
}

func TestParseIFONotVTS(t *testing.T) {
	data := make([]byte, ifoBlockSize)
	copy(data, "DVDVIDEO-VMG")
	if _, err := ParseIFO(bytes.NewReader(data)); !errors.Is(err, ErrNotIFO) {
		t.Errorf("error = %v, want ErrNotIFO", err)
	}
}

func TestParseIFOMissingProgramChain(t *testing.T) {
	data := buildIFO(0, 0, [16]byte{})[:ifoBlockSize]
	info, err := ParseIFO(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ParseIFO() error = %v", err)
	}
	if info.Palette.Valid {
		t.Error("palette should be invalid without a program chain")
	}
	if info.Width != 720 {
		t.Errorf("width = %d, want 720", info.Width)
	}
}
