package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/mgpai22/vobsub2srt/internal/extract"
	"github.com/mgpai22/vobsub2srt/internal/logging"
	"github.com/mgpai22/vobsub2srt/internal/ocr"
	"github.com/mgpai22/vobsub2srt/internal/ocrcache"
	"github.com/mgpai22/vobsub2srt/internal/pts"
	"github.com/mgpai22/vobsub2srt/internal/subtitle"
	"github.com/mgpai22/vobsub2srt/internal/vobsub"
)

var ErrOutputLocked = errors.New("output file is locked by another conversion")

// Job describes one conversion of a VobSub pair.
type Job struct {
	// subtitle name without the .idx/.sub extension
	Base    string
	IFOPath string
	// negative selects the index's langidx
	StreamIndex int
	// defaults to <Base>.srt
	OutputPath string

	Provider ocr.Provider
	OCR      ocr.Options
	// used instead of Provider when set; the caller keeps ownership
	Recognizer ocr.Recognizer
	// enables the recognition cache when set
	CachePath string

	DefaultDuration pts.Ticks
	DumpImages      bool
	Logger          *logging.Logger

	// opens the output file; tests replace it
	create func(path string) (io.WriteCloser, error)
}

// Convert writes the SubRip document for job. Resources are acquired in the
// order engine, stream, output and released in reverse.
func Convert(ctx context.Context, job Job) (result Summary, err error) {
	runID := uuid.NewString()
	started := time.Now()
	logger := job.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With("run_id", runID)

	output := job.OutputPath
	if output == "" {
		output = subtitle.OutputPath(job.Base)
	}
	summary := Summary{RunID: runID, Output: output}

	rec, closeRec, err := openRecognizer(ctx, job, logger)
	if err != nil {
		return summary, err
	}
	defer closeRec()

	track, err := vobsub.Open(job.Base, vobsub.OpenOptions{
		IFOPath:         job.IFOPath,
		StreamIndex:     job.StreamIndex,
		DefaultDuration: job.DefaultDuration,
	})
	if err != nil {
		return summary, fmt.Errorf("failed to open subtitles: %w", err)
	}
	defer track.Close()

	width, height := track.Size()
	logger.Infow("Opened subtitle stream",
		"input", job.Base,
		"track", track.Track(),
		"lang", track.Lang(),
		"subtitles", track.Len(),
		"size", fmt.Sprintf("%dx%d", width, height),
		"palette", track.Palette().Valid,
	)

	create := job.create
	if create == nil {
		create = createFile
	}
	out, release, err := createOutput(output, create)
	if err != nil {
		return summary, err
	}
	defer func() {
		if closeErr := release(); closeErr != nil && err == nil {
			logger.Errorw("Failed to close output", "output", output, "error", closeErr)
			err = fmt.Errorf("failed to close output: %w", closeErr)
		}
	}()

	opts := DriverOptions{Logger: logger}
	if job.DumpImages {
		opts.DumpPrefix = job.Base
	}
	driver := NewDriver(extract.New(track, track), rec, subtitle.NewEmitter(out), opts)

	logger.Infow("Starting conversion", "output", output, "ocr", rec.Name())
	result, runErr := driver.Run(ctx)
	result.RunID = runID
	result.Output = output
	result.Elapsed = time.Since(started)
	if cached, ok := rec.(*ocr.CachedRecognizer); ok {
		result.CacheHits, _, _ = cached.Stats()
	}

	if runErr != nil {
		logger.Errorw("Conversion aborted",
			"records", result.Records,
			"error", runErr,
		)
		return result, fmt.Errorf("conversion failed: %w", runErr)
	}

	if dropped := track.Dropped(); dropped > 0 {
		logger.Warnw("Dropped empty subtitle images", "count", dropped)
	}
	logger.Infow("Conversion complete",
		"records", result.Records,
		"images", result.Images,
		"failures", result.Failures,
		"packets", result.Packets,
		"elapsed", result.Elapsed.Round(time.Millisecond).String(),
	)
	return result, nil
}

func openRecognizer(ctx context.Context, job Job, logger *logging.Logger) (ocr.Recognizer, func(), error) {
	rec := job.Recognizer
	closeInner := func() {}
	if rec == nil {
		created, err := ocr.Factory(ctx, job.Provider, job.OCR)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize OCR: %w", err)
		}
		rec = created
		closeInner = func() {
			if err := created.Close(); err != nil {
				logger.Warnw("Failed to close OCR engine", "error", err)
			}
		}
	}

	if job.CachePath == "" {
		return rec, closeInner, nil
	}

	store, err := ocrcache.Open(job.CachePath)
	if err != nil {
		closeInner()
		return nil, nil, fmt.Errorf("failed to open OCR cache: %w", err)
	}
	cached := ocr.NewCachedRecognizer(rec, store, job.OCR)
	return cached, func() {
		hits, misses, storeErrs := cached.Stats()
		logger.Debugw("OCR cache", "path", store.Path(), "hits", hits, "misses", misses, "store_errors", storeErrs)
		if err := store.Close(); err != nil {
			logger.Warnw("Failed to close OCR cache", "error", err)
		}
		closeInner()
	}, nil
}

func createFile(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// createOutput truncates path under an advisory lock on <path>.lock. The
// release func reports the error from closing the file.
func createOutput(path string, create func(string) (io.WriteCloser, error)) (io.Writer, func() error, error) {
	lockPath := path + ".lock"
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrOutputLocked, path)
	}

	f, err := create(path)
	if err != nil {
		_ = lock.Unlock()
		_ = os.Remove(lockPath)
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return f, func() error {
		closeErr := f.Close()
		_ = lock.Unlock()
		_ = os.Remove(lockPath)
		return closeErr
	}, nil
}
