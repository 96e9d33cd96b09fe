package vobsub

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	govobsub "github.com/hekmon/go-vobsub"

	"github.com/mgpai22/vobsub2srt/internal/bitmap"
	"github.com/mgpai22/vobsub2srt/internal/pts"
)

// DefaultDuration is the display time given to a subtitle without a stop time.
const DefaultDuration pts.Ticks = 5 * pts.TicksPerSecond

type OpenOptions struct {
	// optional VTS IFO file supplying palette and frame size
	IFOPath string
	// track to read; negative selects the index's langidx
	StreamIndex int
	// display time for subtitles without a stop time; zero uses DefaultDuration
	DefaultDuration pts.Ticks
}

type subtitle struct {
	interval pts.Interval
	img      image.Image
}

// Track is one subtitle stream of a VobSub pair, decoded with go-vobsub.
//
// A Track hands out one timed packet per subtitle and assembles it back into
// that subtitle's image, so it serves as both the packet source and the
// assembler of an extractor. The returned bitmap is reused between images.
type Track struct {
	track   int
	lang    string
	palette Palette
	width   int
	height  int

	subs    []subtitle
	next    int
	staged  int
	clock   pts.Ticks
	flushed bool
	canvas  *bitmap.Bitmap
	dropped int
}

// Open decodes the selected track of <name>.idx and <name>.sub.
func Open(name string, opts OpenOptions) (*Track, error) {
	idxFile, err := os.Open(name + ".idx")
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	index, err := ParseIndex(idxFile)
	idxFile.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s.idx: %w", name, err)
	}
	if _, err := os.Stat(name + ".sub"); err != nil {
		return nil, fmt.Errorf("failed to read subtitle data: %w", err)
	}

	t := &Track{
		track:   index.LangIdx,
		palette: index.Palette,
		width:   index.Width,
		height:  index.Height,
		staged:  -1,
	}
	if opts.StreamIndex >= 0 {
		t.track = opts.StreamIndex
	}
	if t.track < 0 || t.track > 31 {
		return nil, fmt.Errorf("%w: invalid stream index %d", ErrNoStream, t.track)
	}
	if opts.IFOPath != "" {
		if err := t.applyIFO(opts.IFOPath); err != nil {
			return nil, err
		}
	}

	stream, ok := index.Stream(t.track)
	if !ok {
		return nil, fmt.Errorf("%w: index %d not declared in %s.idx", ErrNoStream, t.track, name)
	}
	t.lang = stream.Lang

	duration := opts.DefaultDuration
	if duration <= 0 {
		duration = DefaultDuration
	}
	if err := t.decode(name+".sub", t.selected(stream), duration); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Track) applyIFO(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open IFO file: %w", err)
	}
	defer f.Close()

	info, err := ParseIFO(f)
	if err != nil {
		return fmt.Errorf("failed to parse IFO file %s: %w", path, err)
	}
	if !t.palette.Valid {
		t.palette = info.Palette
	}
	if t.width == 0 || t.height == 0 {
		t.width, t.height = info.Width, info.Height
	}
	return nil
}

// selected is the index go-vobsub decodes: the chosen track alone, carrying
// the palette and frame size resolved from the index and IFO.
func (t *Track) selected(stream *IndexStream) *Index {
	return &Index{
		Width:   t.width,
		Height:  t.height,
		Palette: t.palette,
		LangIdx: stream.Index,
		Streams: []IndexStream{*stream},
	}
}

// decode stages index next to the subtitle data in a scratch directory and
// decodes the pair.
func (t *Track) decode(subPath string, index *Index, duration pts.Ticks) error {
	dir, err := os.MkdirTemp("", "vobsub2srt-")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	idxPath := filepath.Join(dir, "track.idx")
	f, err := os.Create(idxPath)
	if err != nil {
		return fmt.Errorf("failed to stage index: %w", err)
	}
	if err := WriteIndex(f, index); err != nil {
		f.Close()
		return fmt.Errorf("failed to stage index: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to stage index: %w", err)
	}
	if err := linkOrCopy(subPath, filepath.Join(dir, "track.sub")); err != nil {
		return fmt.Errorf("failed to stage subtitle data: %w", err)
	}

	subs, _, err := govobsub.Decode(idxPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedStream, err)
	}

	t.subs = make([]subtitle, 0, len(subs))
	for _, sub := range subs {
		start := pts.FromDuration(sub.Start)
		end := pts.FromDuration(sub.Stop)
		if end <= start {
			end = start + duration
		}
		t.subs = append(t.subs, subtitle{
			interval: pts.Interval{Start: start, End: end},
			img:      sub.Image,
		})
	}
	return nil
}

func linkOrCopy(src, dst string) error {
	abs, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	if err := os.Symlink(abs, dst); err == nil {
		return nil
	}

	in, err := os.Open(abs)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// NextPacket returns the next subtitle as a timed packet, or io.EOF.
func (t *Track) NextPacket() (Packet, error) {
	if t.next >= len(t.subs) {
		return Packet{}, io.EOF
	}
	sub := t.subs[t.next]
	pkt := Packet{PTS: sub.interval.Start, HasPTS: true, Pos: int64(t.next)}
	t.next++
	return pkt, nil
}

// Assemble stages the subtitle of the packet last returned by NextPacket.
func (t *Track) Assemble(_ []byte, _ pts.Ticks) error {
	if t.next == 0 {
		return fmt.Errorf("%w: no packet read", ErrMalformedPacket)
	}
	t.staged = t.next - 1
	return nil
}

func (t *Track) Heartbeat(ts pts.Ticks) {
	if ts > t.clock {
		t.clock = ts
	}
}

func (t *Track) Flush() { t.flushed = true }

// Fetch returns the staged subtitle once the clock reaches its start time.
// Subtitles with an empty image are dropped.
func (t *Track) Fetch() (Image, bool, error) {
	if t.staged < 0 {
		return Image{}, false, nil
	}
	sub := t.subs[t.staged]
	if !t.flushed && sub.interval.Start > t.clock {
		return Image{}, false, nil
	}
	t.staged = -1

	if sub.img == nil {
		return Image{}, false, fmt.Errorf("%w: subtitle at %s has no image", ErrMalformedPacket, sub.interval.Start)
	}
	bounds := sub.img.Bounds()
	if bounds.Empty() {
		t.dropped++
		return Image{}, false, nil
	}
	t.canvas = bitmap.FromImage(t.canvas, sub.img)
	return Image{
		Bitmap:   t.canvas,
		Interval: sub.interval,
		X:        bounds.Min.X,
		Y:        bounds.Min.Y,
	}, true, nil
}

// Len is the number of decoded subtitles.
func (t *Track) Len() int { return len(t.subs) }

// Dropped counts subtitles discarded for having an empty image.
func (t *Track) Dropped() int { return t.dropped }

func (t *Track) Palette() Palette { return t.palette }

// Size returns the frame size declared by the index or IFO, zero when unknown.
func (t *Track) Size() (int, int) { return t.width, t.height }

func (t *Track) Track() int { return t.track }

func (t *Track) Lang() string { return t.lang }

func (t *Track) Close() error {
	t.subs = nil
	t.canvas = nil
	return nil
}
