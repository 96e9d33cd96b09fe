// Package pipeline drives extraction, recognition and emission for one
// subtitle stream.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/mgpai22/vobsub2srt/internal/bitmap"
	"github.com/mgpai22/vobsub2srt/internal/extract"
	"github.com/mgpai22/vobsub2srt/internal/logging"
	"github.com/mgpai22/vobsub2srt/internal/ocr"
	"github.com/mgpai22/vobsub2srt/internal/pts"
	"github.com/mgpai22/vobsub2srt/internal/subtitle"
)

type State int

const (
	StateAwaitPacket State = iota
	StateHaveImage
	StateRecognizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitPacket:
		return "await-packet"
	case StateHaveImage:
		return "have-image"
	case StateRecognizing:
		return "recognizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Source yields extraction events; *extract.Extractor implements it.
type Source interface {
	Next() (extract.Event, error)
	Packets() int
	Untimed() int
}

// Sink numbers and writes records; *subtitle.Emitter implements it.
type Sink interface {
	Emit(start, end pts.Ticks, text string) (subtitle.Record, error)
	Count() int
}

type DriverOptions struct {
	// when set, every image is written to <DumpPrefix>-<n>.pgm
	DumpPrefix string
	Logger     *logging.Logger
}

// counters reported after a run
type Summary struct {
	RunID     string
	Output    string
	Packets   int
	Untimed   int
	Images    int
	Records   int
	Failures  int
	CacheHits int
	Elapsed   time.Duration
}

// Driver runs the extract, recognize, emit loop on a single goroutine.
type Driver struct {
	src    Source
	rec    ocr.Recognizer
	sink   Sink
	opts   DriverOptions
	logger *logging.Logger

	state    State
	images   int
	failures int
}

func NewDriver(src Source, rec ocr.Recognizer, sink Sink, opts DriverOptions) *Driver {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Driver{
		src:    src,
		rec:    rec,
		sink:   sink,
		opts:   opts,
		logger: logger,
		state:  StateAwaitPacket,
	}
}

func (d *Driver) State() State { return d.state }

// Run consumes the source until it is exhausted. A failed recognition skips
// the image; decode errors, write errors and cancellation end the run with
// every record written so far left intact.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	started := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return d.fail(started, err)
		}

		ev, err := d.src.Next()
		if err != nil {
			return d.fail(started, err)
		}

		switch ev.Kind {
		case extract.KindImage:
			d.state = StateHaveImage
			if err := d.handleImage(ctx, ev); err != nil {
				return d.fail(started, err)
			}
			d.state = StateAwaitPacket
		case extract.KindEndOfStream:
			d.state = StateDone
			return d.summary(started), nil
		default:
			// untimed or incomplete packets produce nothing yet
		}
	}
}

func (d *Driver) handleImage(ctx context.Context, ev extract.Event) error {
	d.images++
	bm := ev.Bitmap

	d.logger.Debugw("Subtitle image",
		"image", d.images,
		"start", pts.FormatSRT(ev.Interval.Start),
		"end", pts.FormatSRT(ev.Interval.End),
		"width", bm.Width,
		"height", bm.Height,
	)

	if d.opts.DumpPrefix != "" {
		d.dump(bm)
	}

	d.state = StateRecognizing
	result := d.rec.Recognize(ctx, bm)
	if err := ctx.Err(); err != nil {
		return err
	}
	if !result.OK() {
		d.failures++
		d.logger.Warnw("Failed to recognize subtitle image",
			"image", d.images,
			"start", pts.FormatSRT(ev.Interval.Start),
			"reason", result.Reason(),
		)
		return nil
	}

	rec, err := d.sink.Emit(ev.Interval.Start, ev.Interval.End, result.Text())
	if err != nil {
		return err
	}
	d.logger.Debugw("Subtitle record",
		"index", rec.Index,
		"text", rec.Text,
	)
	return nil
}

func (d *Driver) dump(bm *bitmap.Bitmap) {
	path, err := bitmap.DumpPGM(d.opts.DumpPrefix, d.images, bm)
	if err != nil {
		d.logger.Warnw("Failed to dump subtitle image", "image", d.images, "error", err)
		return
	}
	d.logger.Debugw("Dumped subtitle image", "path", path)
}

func (d *Driver) fail(started time.Time, err error) (Summary, error) {
	d.state = StateFailed
	return d.summary(started), err
}

func (d *Driver) summary(started time.Time) Summary {
	return Summary{
		Packets:  d.src.Packets(),
		Untimed:  d.src.Untimed(),
		Images:   d.images,
		Records:  d.sink.Count(),
		Failures: d.failures,
		Elapsed:  time.Since(started),
	}
}
