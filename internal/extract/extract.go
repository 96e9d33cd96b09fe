// Package extract turns a stream of subtitle packets into timed subtitle
// images, one event per call.
package extract

import (
	"errors"
	"fmt"
	"io"

	"github.com/mgpai22/vobsub2srt/internal/bitmap"
	"github.com/mgpai22/vobsub2srt/internal/pts"
	"github.com/mgpai22/vobsub2srt/internal/vobsub"
)

type Kind int

const (
	// a subtitle image is ready
	KindImage Kind = iota
	// an untimed packet was consumed
	KindNoTiming
	// a timed packet was consumed but no image is due yet
	KindIncomplete
	// the stream is exhausted and every image has been delivered
	KindEndOfStream
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindNoTiming:
		return "no-timing"
	case KindIncomplete:
		return "incomplete"
	case KindEndOfStream:
		return "end-of-stream"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is the outcome of one extraction step. Bitmap and Interval are set
// only for KindImage; the bitmap is valid until the next call to Next.
type Event struct {
	Kind     Kind
	Bitmap   *bitmap.Bitmap
	Interval pts.Interval
}

// DecodeError reports a packet that could not be read or decoded.
type DecodeError struct {
	// packet ordinal, 1-based; 0 when the failure happened reading the stream
	Packet int
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Packet == 0 {
		return fmt.Sprintf("failed to read subtitle stream: %v", e.Err)
	}
	return fmt.Sprintf("failed to decode subtitle packet %d: %v", e.Packet, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// source of raw subtitle packets; io.EOF marks the end
type PacketSource interface {
	NextPacket() (vobsub.Packet, error)
}

// Assembler is the subpicture decoder state.
type Assembler interface {
	Assemble(data []byte, ts pts.Ticks) error
	Heartbeat(ts pts.Ticks)
	Flush()
	Fetch() (vobsub.Image, bool, error)
}

type Extractor struct {
	src     PacketSource
	asm     Assembler
	clock   pts.Ticks
	packets int
	untimed int
	eof     bool
}

func New(src PacketSource, asm Assembler) *Extractor {
	return &Extractor{src: src, asm: asm}
}

// Next performs one extraction step. After the source is exhausted the
// assembler is flushed, remaining images are returned one per call, and then
// KindEndOfStream is returned on every call.
func (e *Extractor) Next() (Event, error) {
	if ev, ok, err := e.fetch(); err != nil || ok {
		return ev, err
	}
	if e.eof {
		return Event{Kind: KindEndOfStream}, nil
	}

	pkt, err := e.src.NextPacket()
	if errors.Is(err, io.EOF) {
		e.eof = true
		e.asm.Flush()
		if ev, ok, err := e.fetch(); err != nil || ok {
			return ev, err
		}
		return Event{Kind: KindEndOfStream}, nil
	}
	if err != nil {
		return Event{}, &DecodeError{Err: err}
	}
	e.packets++

	if !pkt.HasPTS {
		e.untimed++
		if err := e.asm.Assemble(pkt.Data, e.clock); err != nil {
			return Event{}, &DecodeError{Packet: e.packets, Err: err}
		}
		return Event{Kind: KindNoTiming}, nil
	}

	if err := e.asm.Assemble(pkt.Data, pkt.PTS); err != nil {
		return Event{}, &DecodeError{Packet: e.packets, Err: err}
	}
	e.clock = pkt.PTS
	e.asm.Heartbeat(pkt.PTS)

	if ev, ok, err := e.fetch(); err != nil || ok {
		return ev, err
	}
	return Event{Kind: KindIncomplete}, nil
}

func (e *Extractor) fetch() (Event, bool, error) {
	img, ok, err := e.asm.Fetch()
	if err != nil {
		return Event{}, false, &DecodeError{Packet: e.packets, Err: err}
	}
	if !ok {
		return Event{}, false, nil
	}
	return Event{
		Kind:     KindImage,
		Bitmap:   img.Bitmap,
		Interval: img.Interval,
	}, true, nil
}

// Packets returns how many packets have been consumed.
func (e *Extractor) Packets() int { return e.packets }

// Untimed returns how many consumed packets carried no timestamp.
func (e *Extractor) Untimed() int { return e.untimed }
