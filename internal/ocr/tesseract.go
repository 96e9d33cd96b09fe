package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mgpai22/vobsub2srt/internal/binaries"
	"github.com/mgpai22/vobsub2srt/internal/bitmap"
)

// implements Recognizer by running the tesseract command line tool, with
// the image on stdin and the text on stdout
type TesseractRecognizer struct {
	path    string
	options Options
}

func NewTesseractRecognizer(ctx context.Context, opts Options) (*TesseractRecognizer, error) {
	path, err := binaries.Resolve(binaries.Tesseract, opts.TesseractPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	opts = opts.withDefaults()

	r := &TesseractRecognizer{path: path, options: opts}
	if err := r.checkLanguage(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// checkLanguage fails when the language data for the configured language
// cannot be found.
func (r *TesseractRecognizer) checkLanguage(ctx context.Context) error {
	lang := r.options.Language
	if dir := r.options.TessdataDir; dir != "" {
		data := filepath.Join(dir, lang+".traineddata")
		if _, err := os.Stat(data); err != nil {
			return fmt.Errorf("%w: language data %s not found", ErrUnavailable, data)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.options.Timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, r.path, "--list-langs").CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: failed to list tesseract languages: %v", ErrUnavailable, err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == lang {
			return nil
		}
	}
	return fmt.Errorf("%w: tesseract has no language data for %q", ErrUnavailable, lang)
}

func (r *TesseractRecognizer) args() []string {
	var args []string
	if r.options.TessdataDir != "" {
		args = append(args, "--tessdata-dir", r.options.TessdataDir)
	}
	return append(args,
		"stdin", "stdout",
		"-l", r.options.Language,
		"--psm", strconv.Itoa(r.options.PageSegMode),
	)
}

func (r *TesseractRecognizer) Recognize(ctx context.Context, bm *bitmap.Bitmap) Result {
	if bm.Empty() {
		return Failure("empty bitmap")
	}
	img, err := EncodePNG(bm, r.options.Preprocess)
	if err != nil {
		return Failure(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, r.options.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.path, r.args()...)
	cmd.Stdin = bytes.NewReader(img)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return Failuref("tesseract failed: %v: %s", err, truncateString(detail, 200))
		}
		return Failuref("tesseract failed: %v", err)
	}

	return Success(NormalizeText(stdout.String()))
}

func (r *TesseractRecognizer) Name() string { return string(ProviderTesseract) }

func (r *TesseractRecognizer) Close() error { return nil }
