package subtitle

import (
	"fmt"
	"io"

	"github.com/mgpai22/vobsub2srt/internal/pts"
)

// WriteError reports a record that could not be written. The emitter that
// returned it refuses further records.
type WriteError struct {
	Index int
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write subtitle record %d: %v", e.Index, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Emitter appends numbered records to a document, one write per record.
type Emitter struct {
	w     io.Writer
	count int
	err   *WriteError
}

func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit writes the next record. Index numbering only advances on a complete
// write; an end before start is clamped to start.
func (e *Emitter) Emit(start, end pts.Ticks, text string) (Record, error) {
	if e.err != nil {
		return Record{}, e.err
	}
	if end < start {
		end = start
	}

	rec := Record{
		Index: e.count + 1,
		Start: start,
		End:   end,
		Text:  CleanText(text),
	}
	data := []byte(rec.String())

	n, err := e.w.Write(data)
	if err == nil && n != len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		e.err = &WriteError{Index: rec.Index, Err: err}
		return Record{}, e.err
	}

	e.count++
	return rec, nil
}

// Count returns how many records have been written.
func (e *Emitter) Count() int { return e.count }
