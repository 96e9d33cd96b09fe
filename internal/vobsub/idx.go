package vobsub

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mgpai22/vobsub2srt/internal/pts"
)

// parsed .idx file
type Index struct {
	Width   int
	Height  int
	Palette Palette
	LangIdx int
	Streams []IndexStream
}

// one "id:" section of the index
type IndexStream struct {
	Lang    string
	Index   int
	Entries []IndexEntry
}

type IndexEntry struct {
	Timestamp pts.Ticks
	FilePos   int64
}

// Stream returns the section declared with the given track index.
func (x *Index) Stream(index int) (*IndexStream, bool) {
	for i := range x.Streams {
		if x.Streams[i].Index == index {
			return &x.Streams[i], true
		}
	}
	return nil, false
}

// ParseIndex reads a VobSub index. Unknown keys are ignored; a delay line
// shifts every later timestamp of the current track.
func ParseIndex(r io.Reader) (*Index, error) {
	idx := &Index{}
	scanner := bufio.NewScanner(r)

	var (
		current *IndexStream
		delayMS int64
		lineNum int
	)

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "size":
			w, h, ok := strings.Cut(value, "x")
			if !ok {
				return nil, fmt.Errorf("%w: line %d: invalid size %q", ErrMalformedIndex, lineNum, value)
			}
			width, errW := strconv.Atoi(strings.TrimSpace(w))
			height, errH := strconv.Atoi(strings.TrimSpace(h))
			if errW != nil || errH != nil {
				return nil, fmt.Errorf("%w: line %d: invalid size %q", ErrMalformedIndex, lineNum, value)
			}
			idx.Width, idx.Height = width, height

		case "palette":
			palette, err := parsePalette(value)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedIndex, lineNum, err)
			}
			idx.Palette = palette

		case "langidx":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: invalid langidx %q", ErrMalformedIndex, lineNum, value)
			}
			idx.LangIdx = n

		case "id":
			stream, err := parseStreamID(value)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedIndex, lineNum, err)
			}
			idx.Streams = append(idx.Streams, stream)
			current = &idx.Streams[len(idx.Streams)-1]
			delayMS = 0

		case "delay":
			ms, err := parseIndexTime(value)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedIndex, lineNum, err)
			}
			delayMS = ms

		case "timestamp":
			if current == nil {
				return nil, fmt.Errorf("%w: line %d: timestamp before id line", ErrMalformedIndex, lineNum)
			}
			entry, err := parseTimestampLine(value, delayMS)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedIndex, lineNum, err)
			}
			current.Entries = append(current.Entries, entry)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading index: %w", err)
	}

	return idx, nil
}

func parsePalette(value string) (Palette, error) {
	fields := strings.Split(value, ",")
	if len(fields) != 16 {
		return Palette{}, fmt.Errorf("palette has %d entries, want 16", len(fields))
	}
	var rgb [16]uint32
	for i, f := range fields {
		c, err := strconv.ParseUint(strings.TrimSpace(f), 16, 32)
		if err != nil {
			return Palette{}, fmt.Errorf("invalid palette entry %q", f)
		}
		rgb[i] = uint32(c)
	}
	return PaletteFromRGB(rgb), nil
}

// "en, index: 0"
func parseStreamID(value string) (IndexStream, error) {
	lang, rest, _ := strings.Cut(value, ",")
	stream := IndexStream{Lang: strings.TrimSpace(lang)}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return stream, nil
	}
	key, n, ok := strings.Cut(rest, ":")
	if !ok || strings.TrimSpace(key) != "index" {
		return IndexStream{}, fmt.Errorf("invalid id line %q", value)
	}
	index, err := strconv.Atoi(strings.TrimSpace(n))
	if err != nil || index < 0 || index > 31 {
		return IndexStream{}, fmt.Errorf("invalid stream index %q", n)
	}
	stream.Index = index
	return stream, nil
}

// "00:00:01:234, filepos: 00000a800"
func parseTimestampLine(value string, delayMS int64) (IndexEntry, error) {
	ts, rest, ok := strings.Cut(value, ",")
	if !ok {
		return IndexEntry{}, fmt.Errorf("missing filepos in %q", value)
	}
	ms, err := parseIndexTime(ts)
	if err != nil {
		return IndexEntry{}, err
	}

	key, pos, ok := strings.Cut(strings.TrimSpace(rest), ":")
	if !ok || strings.TrimSpace(key) != "filepos" {
		return IndexEntry{}, fmt.Errorf("missing filepos in %q", value)
	}
	filePos, err := strconv.ParseInt(strings.TrimSpace(pos), 16, 64)
	if err != nil {
		return IndexEntry{}, fmt.Errorf("invalid filepos %q", pos)
	}

	return IndexEntry{
		Timestamp: pts.FromMillis(ms + delayMS),
		FilePos:   filePos,
	}, nil
}

// parses [-]HH:MM:SS:mmm into signed milliseconds
func parseIndexTime(value string) (int64, error) {
	value = strings.TrimSpace(value)
	sign := int64(1)
	if strings.HasPrefix(value, "-") {
		sign = -1
		value = value[1:]
	}
	parts := strings.Split(value, ":")
	if len(parts) != 4 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	var n [4]int64
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid time %q", value)
		}
		n[i] = v
	}
	ms := n[0]*3600000 + n[1]*60000 + n[2]*1000 + n[3]
	return sign * ms, nil
}
