package extract

import (
	"errors"
	"io"
	"testing"

	"github.com/mgpai22/vobsub2srt/internal/bitmap"
	"github.com/mgpai22/vobsub2srt/internal/pts"
	"github.com/mgpai22/vobsub2srt/internal/testsupport"
	"github.com/mgpai22/vobsub2srt/internal/vobsub"
)

type fakeSource struct {
	packets []vobsub.Packet
	err     error
	calls   int
}

func (f *fakeSource) NextPacket() (vobsub.Packet, error) {
	f.calls++
	if len(f.packets) == 0 {
		if f.err != nil {
			return vobsub.Packet{}, f.err
		}
		return vobsub.Packet{}, io.EOF
	}
	p := f.packets[0]
	f.packets = f.packets[1:]
	return p, nil
}

// fakeAssembler turns every packet whose first byte is 'I' into an image due
// at its timestamp.
type fakeAssembler struct {
	clock     pts.Ticks
	flushed   bool
	queue     []pts.Ticks
	assembled []pts.Ticks
	failOn    byte
}

func (f *fakeAssembler) Assemble(data []byte, ts pts.Ticks) error {
	f.assembled = append(f.assembled, ts)
	if len(data) > 0 && f.failOn != 0 && data[0] == f.failOn {
		return vobsub.ErrMalformedPacket
	}
	if len(data) > 0 && data[0] == 'I' {
		f.queue = append(f.queue, ts)
	}
	return nil
}

func (f *fakeAssembler) Heartbeat(ts pts.Ticks) { f.clock = ts }

func (f *fakeAssembler) Flush() { f.flushed = true }

func (f *fakeAssembler) Fetch() (vobsub.Image, bool, error) {
	if len(f.queue) == 0 || (!f.flushed && f.queue[0] > f.clock) {
		return vobsub.Image{}, false, nil
	}
	start := f.queue[0]
	f.queue = f.queue[1:]
	return vobsub.Image{
		Bitmap:   bitmap.New(2, 2),
		Interval: pts.Interval{Start: start, End: start + 10},
	}, true, nil
}

func timed(ts pts.Ticks, data string) vobsub.Packet {
	return vobsub.Packet{Data: []byte(data), PTS: ts, HasPTS: true}
}

func untimed(data string) vobsub.Packet {
	return vobsub.Packet{Data: []byte(data)}
}

func collectKinds(t *testing.T, e *Extractor, n int) []Kind {
	t.Helper()
	var kinds []Kind
	for i := 0; i < n; i++ {
		ev, err := e.Next()
		if err != nil {
			t.Fatalf("Next() call %d error = %v", i, err)
		}
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func TestExtractorEventSequence(t *testing.T) {
	src := &fakeSource{packets: []vobsub.Packet{
		timed(100, "I"),
		untimed("x"),
		timed(200, "x"),
		timed(300, "I"),
	}}
	asm := &fakeAssembler{}
	e := New(src, asm)

	got := collectKinds(t, e, 6)
	want := []Kind{KindImage, KindNoTiming, KindIncomplete, KindImage, KindEndOfStream, KindEndOfStream}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
	if e.Packets() != 4 || e.Untimed() != 1 {
		t.Errorf("packets = %d untimed = %d", e.Packets(), e.Untimed())
	}
}

func TestExtractorUntimedUsesClock(t *testing.T) {
	src := &fakeSource{packets: []vobsub.Packet{
		timed(500, "x"),
		untimed("x"),
	}}
	asm := &fakeAssembler{}
	e := New(src, asm)
	collectKinds(t, e, 2)

	if len(asm.assembled) != 2 || asm.assembled[1] != 500 {
		t.Errorf("assembled timestamps = %v, want untimed packet at clock 500", asm.assembled)
	}
}

func TestExtractorDeliversDueImageBeforeReading(t *testing.T) {
	src := &fakeSource{packets: []vobsub.Packet{
		untimed("I"),
		untimed("I"),
		untimed("I"),
	}}
	e := New(src, &fakeAssembler{})

	got := collectKinds(t, e, 7)
	want := []Kind{
		KindNoTiming, KindImage,
		KindNoTiming, KindImage,
		KindNoTiming, KindImage,
		KindEndOfStream,
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestExtractorFlushReleasesPendingImages(t *testing.T) {
	src := &fakeSource{}
	asm := &fakeAssembler{queue: []pts.Ticks{1000, 2000}}
	e := New(src, asm)

	got := collectKinds(t, e, 4)
	want := []Kind{KindImage, KindImage, KindEndOfStream, KindEndOfStream}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
	if !asm.flushed {
		t.Error("assembler was not flushed at end of stream")
	}
	if src.calls != 1 {
		t.Errorf("source called %d times after EOF, want 1", src.calls)
	}
}

func TestExtractorDecodeErrors(t *testing.T) {
	t.Run("assembler", func(t *testing.T) {
		src := &fakeSource{packets: []vobsub.Packet{timed(0, "x"), timed(10, "!")}}
		e := New(src, &fakeAssembler{failOn: '!'})

		if _, err := e.Next(); err != nil {
			t.Fatal(err)
		}
		_, err := e.Next()
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("error = %v, want *DecodeError", err)
		}
		if de.Packet != 2 {
			t.Errorf("Packet = %d, want 2", de.Packet)
		}
		if !errors.Is(err, vobsub.ErrMalformedPacket) {
			t.Error("DecodeError should unwrap to the decoder error")
		}
	})

	t.Run("source", func(t *testing.T) {
		src := &fakeSource{err: vobsub.ErrMalformedStream}
		_, err := New(src, &fakeAssembler{}).Next()
		var de *DecodeError
		if !errors.As(err, &de) || de.Packet != 0 {
			t.Fatalf("error = %v, want stream DecodeError", err)
		}
		if !errors.Is(err, vobsub.ErrMalformedStream) {
			t.Error("DecodeError should unwrap to the stream error")
		}
	})
}

func TestExtractorIndependentInstances(t *testing.T) {
	a := New(&fakeSource{packets: []vobsub.Packet{timed(1, "I")}}, &fakeAssembler{})
	b := New(&fakeSource{}, &fakeAssembler{})

	if ev, _ := b.Next(); ev.Kind != KindEndOfStream {
		t.Errorf("b first event = %v", ev.Kind)
	}
	if ev, _ := a.Next(); ev.Kind != KindImage {
		t.Errorf("a first event = %v, state leaked between extractors", ev.Kind)
	}
}

func TestExtractorWithTrack(t *testing.T) {
	dir := t.TempDir()
	spu := testsupport.EncodeSPU(t, testsupport.WithSize(24, 6))
	cues := []testsupport.Cue{
		{Start: 0, SPU: spu},
		{Start: 90000, SPU: spu, Fragment: 16},
		{Start: 180000, SPU: spu},
	}
	base := testsupport.WriteVobSub(t, dir, "movie", cues, testsupport.VobSubOptions{})

	track, err := vobsub.Open(base, vobsub.OpenOptions{StreamIndex: -1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer track.Close()

	e := New(track, track)

	var starts []pts.Ticks
	for i := 0; i < 50; i++ {
		ev, err := e.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if ev.Kind == KindEndOfStream {
			break
		}
		if ev.Kind != KindImage {
			t.Fatalf("event = %v, want one image per step", ev.Kind)
		}
		if ev.Bitmap.Empty() || ev.Bitmap.Validate() != nil {
			t.Errorf("bitmap = %dx%d", ev.Bitmap.Width, ev.Bitmap.Height)
		}
		starts = append(starts, ev.Interval.Start)
	}

	want := []pts.Ticks{0, 90000, 180000}
	if len(starts) != len(want) {
		t.Fatalf("starts = %v, want %v", starts, want)
	}
	for i := range want {
		if starts[i] != want[i] {
			t.Errorf("start %d = %d, want %d", i, starts[i], want[i])
		}
	}
}

func TestKindString(t *testing.T) {
	if KindImage.String() != "image" || Kind(42).String() != "kind(42)" {
		t.Error("unexpected Kind strings")
	}
}
