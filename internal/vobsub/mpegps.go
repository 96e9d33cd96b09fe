package vobsub

import (
	"fmt"
	"io"

	"github.com/mgpai22/vobsub2srt/internal/pts"
)

const (
	codePack         = 0xba
	codeEnd          = 0xb9
	codePrivStream1  = 0xbd
	subIDVobSubFirst = 0x20
)

// PES is a packet of the program stream. SubID and Payload are only set for
// private stream 1, where Payload excludes the sub-stream byte.
type PES struct {
	PackPos  int64
	StreamID byte
	SubID    byte
	PTS      pts.Ticks
	HasPTS   bool
	Payload  []byte
}

// PSReader walks the packs of an MPEG-1 or MPEG-2 program stream held in
// memory. Payloads alias the underlying buffer.
type PSReader struct {
	data    []byte
	pos     int
	packPos int64
}

func NewPSReader(data []byte) *PSReader {
	return &PSReader{data: data, packPos: -1}
}

// Next returns the next PES packet, skipping anything that is not one.
// Garbage between start codes is skipped; a packet cut short by the end of
// the data is reported as ErrMalformedStream.
func (r *PSReader) Next() (PES, error) {
	for {
		start, ok := r.findStartCode()
		if !ok {
			r.pos = len(r.data)
			return PES{}, io.EOF
		}
		r.pos = start
		if start+4 > len(r.data) {
			r.pos = len(r.data)
			return PES{}, io.EOF
		}

		code := r.data[start+3]
		switch {
		case code == codePack:
			if err := r.skipPackHeader(); err != nil {
				return PES{}, err
			}
		case code == codeEnd:
			r.pos += 4
		case code > codeEnd:
			pes, err := r.readPES(code)
			if err != nil {
				return PES{}, err
			}
			if pes.StreamID == 0 {
				continue
			}
			return pes, nil
		default:
			// not a system start code, resync one byte later
			r.pos++
		}
	}
}

func (r *PSReader) findStartCode() (int, bool) {
	d := r.data
	for i := r.pos; i+2 < len(d); i++ {
		if d[i] == 0 && d[i+1] == 0 && d[i+2] == 1 {
			return i, true
		}
	}
	return 0, false
}

func (r *PSReader) skipPackHeader() error {
	start := r.pos
	if start+5 > len(r.data) {
		return fmt.Errorf("%w: truncated pack header at 0x%x", ErrMalformedStream, start)
	}
	switch {
	case r.data[start+4]&0xc0 == 0x40:
		if start+14 > len(r.data) {
			return fmt.Errorf("%w: truncated pack header at 0x%x", ErrMalformedStream, start)
		}
		stuffing := int(r.data[start+13] & 0x07)
		r.pos = start + 14 + stuffing
	case r.data[start+4]&0xf0 == 0x20:
		r.pos = start + 12
	default:
		r.pos = start + 4
		return nil
	}
	r.packPos = int64(start)
	return nil
}

// readPES consumes one packet. A zero StreamID in the result means the packet
// was skipped.
func (r *PSReader) readPES(code byte) (PES, error) {
	start := r.pos
	if start+6 > len(r.data) {
		return PES{}, fmt.Errorf("%w: truncated packet header at 0x%x", ErrMalformedStream, start)
	}
	length := be16(r.data[start+4:])
	end := start + 6 + length
	if end > len(r.data) {
		return PES{}, fmt.Errorf("%w: packet at 0x%x overruns stream", ErrMalformedStream, start)
	}
	r.pos = end

	if code != codePrivStream1 {
		return PES{}, nil
	}

	pes := PES{PackPos: r.packPos, StreamID: code}
	body := r.data[start+6 : end]

	var off int
	if len(body) > 0 && body[0]&0xc0 == 0x80 {
		// MPEG-2 PES header
		if len(body) < 3 {
			return PES{}, fmt.Errorf("%w: short PES header at 0x%x", ErrMalformedStream, start)
		}
		flags := body[1]
		headerLen := int(body[2])
		if 3+headerLen > len(body) {
			return PES{}, fmt.Errorf("%w: PES header at 0x%x overruns packet", ErrMalformedStream, start)
		}
		if flags&0x80 != 0 && headerLen >= 5 {
			pes.PTS = parsePTS(body[3:8])
			pes.HasPTS = true
		}
		off = 3 + headerLen
	} else {
		var err error
		off, err = skipMPEG1Header(body, &pes)
		if err != nil {
			return PES{}, fmt.Errorf("%w: packet at 0x%x: %v", ErrMalformedStream, start, err)
		}
	}

	if off >= len(body) {
		return PES{}, fmt.Errorf("%w: packet at 0x%x has no sub-stream id", ErrMalformedStream, start)
	}
	pes.SubID = body[off]
	pes.Payload = body[off+1:]
	return pes, nil
}

func skipMPEG1Header(body []byte, pes *PES) (int, error) {
	off := 0
	for off < len(body) && body[off] == 0xff {
		off++
	}
	if off < len(body) && body[off]&0xc0 == 0x40 {
		off += 2
	}
	if off >= len(body) {
		return 0, fmt.Errorf("truncated MPEG-1 header")
	}
	switch body[off] & 0xf0 {
	case 0x20:
		if off+5 > len(body) {
			return 0, fmt.Errorf("truncated PTS")
		}
		pes.PTS = parsePTS(body[off : off+5])
		pes.HasPTS = true
		off += 5
	case 0x30:
		if off+10 > len(body) {
			return 0, fmt.Errorf("truncated PTS/DTS")
		}
		pes.PTS = parsePTS(body[off : off+5])
		pes.HasPTS = true
		off += 10
	default:
		off++
	}
	return off, nil
}

func parsePTS(b []byte) pts.Ticks {
	v := uint64(b[0]>>1&0x07)<<30 |
		uint64(b[1])<<22 |
		uint64(b[2]>>1)<<15 |
		uint64(b[3])<<7 |
		uint64(b[4]>>1)
	return pts.Ticks(v)
}
