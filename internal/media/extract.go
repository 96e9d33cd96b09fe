package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"golang.org/x/text/language"

	"github.com/mgpai22/vobsub2srt/internal/binaries"
	"github.com/mgpai22/vobsub2srt/internal/vobsub"
)

var ErrNoSubtitleStream = errors.New("no DVD subtitle stream")

const privateStream1 = 0xbd

// options for ExtractSubtitles
type ExtractOptions struct {
	// base path of the generated pair; defaults to the input without extension
	OutputBase string
	// position among the input's DVD subtitle streams
	Stream      int
	FFmpegPath  string
	FFprobePath string
	// written into the index when valid, e.g. from an IFO file
	Palette vobsub.Palette
}

type ExtractResult struct {
	SubPath  string
	IdxPath  string
	Language string
	Entries  int
}

// ExtractSubtitles remuxes one DVD subtitle stream of input into
// <base>.sub and writes a matching <base>.idx.
func ExtractSubtitles(ctx context.Context, input string, opts ExtractOptions) (*ExtractResult, error) {
	if _, err := os.Stat(input); err != nil {
		return nil, fmt.Errorf("video file not found: %s", input)
	}

	ffprobePath, err := binaries.Resolve(binaries.FFprobe, opts.FFprobePath)
	if err != nil {
		return nil, err
	}
	ffmpegPath, err := binaries.Resolve(binaries.FFmpeg, opts.FFmpegPath)
	if err != nil {
		return nil, err
	}

	probe, err := Probe(ctx, ffprobePath, input)
	if err != nil {
		return nil, err
	}
	streams := probe.SubtitleStreams()
	if opts.Stream < 0 || opts.Stream >= len(streams) {
		return nil, fmt.Errorf("%w: stream %d of %d in %s", ErrNoSubtitleStream, opts.Stream, len(streams), input)
	}
	stream := streams[opts.Stream]

	base := opts.OutputBase
	if base == "" {
		base = strings.TrimSuffix(input, filepath.Ext(input))
	}
	if err := os.MkdirAll(filepath.Dir(base), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	result := &ExtractResult{
		SubPath:  base + ".sub",
		IdxPath:  base + ".idx",
		Language: indexLanguage(stream.Language()),
	}

	if err := remux(ctx, ffmpegPath, input, stream.Index, result.SubPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(result.SubPath)
	if err != nil {
		return nil, fmt.Errorf("read remuxed stream: %w", err)
	}
	entries, err := IndexEntries(data)
	if err != nil {
		return nil, err
	}
	result.Entries = len(entries)

	width, height := stream.Width, stream.Height
	if width == 0 || height == 0 {
		width, height = probe.FrameSize()
	}
	idx := &vobsub.Index{
		Width:   width,
		Height:  height,
		Palette: opts.Palette,
		Streams: []vobsub.IndexStream{{Lang: result.Language, Index: 0, Entries: entries}},
	}

	f, err := os.Create(result.IdxPath)
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	if err := vobsub.WriteIndex(f, idx); err != nil {
		f.Close()
		return nil, fmt.Errorf("write index: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("write index: %w", err)
	}
	return result, nil
}

func remux(ctx context.Context, ffmpegPath, input string, streamIndex int, output string) error {
	args := ffmpeg.Input(input).
		Output(output, ffmpeg.KwArgs{
			"map": fmt.Sprintf("0:%d", streamIndex),
			"c:s": "copy",
			"f":   "vob",
		}).
		OverWriteOutput().
		GetArgs()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg extraction failed: %w: %s", err, lastLine(stderr.String()))
	}
	return nil
}

// IndexEntries scans a program stream holding a single subtitle track and
// returns one entry per packet that starts a subpicture unit.
func IndexEntries(data []byte) ([]vobsub.IndexEntry, error) {
	reader := vobsub.NewPSReader(data)
	var entries []vobsub.IndexEntry
	for {
		pes, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("index remuxed stream: %w", err)
		}
		if pes.StreamID != privateStream1 || pes.SubID&0xe0 != 0x20 || !pes.HasPTS {
			continue
		}
		if n := len(entries); n > 0 && entries[n-1].FilePos == pes.PackPos {
			continue
		}
		entries = append(entries, vobsub.IndexEntry{Timestamp: pes.PTS, FilePos: pes.PackPos})
	}
}

// two-letter code used by .idx id lines
func indexLanguage(tag string) string {
	if tag == "" || tag == "und" {
		return ""
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return ""
	}
	base, confidence := parsed.Base()
	if confidence == language.No {
		return ""
	}
	return base.String()
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
