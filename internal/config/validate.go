package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mgpai22/vobsub2srt/internal/ocr"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOCR(); err != nil {
		return err
	}
	if err := c.validateStream(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateOCR() error {
	if !slices.Contains(ocr.Providers(), ocr.Provider(c.OCR.Provider)) {
		return fmt.Errorf("ocr.provider: unsupported value %q", c.OCR.Provider)
	}
	if c.OCR.Language == "" {
		return fmt.Errorf("ocr.language must be set")
	}
	if strings.ContainsAny(c.OCR.Language, "+, ") {
		return fmt.Errorf("ocr.language: exactly one language code is supported, got %q", c.OCR.Language)
	}
	// mode 0 only detects orientation and script and never yields text
	if c.OCR.PageSegMode < 1 || c.OCR.PageSegMode > 13 {
		return fmt.Errorf("ocr.page_seg_mode must be between 1 and 13, got %d", c.OCR.PageSegMode)
	}
	if c.OCR.Scale < 1 || c.OCR.Scale > 8 {
		return fmt.Errorf("ocr.scale must be between 1 and 8")
	}
	if c.OCR.Padding < 0 || c.OCR.Padding > 200 {
		return fmt.Errorf("ocr.padding must be between 0 and 200")
	}
	if c.OCR.TimeoutSeconds <= 0 {
		return fmt.Errorf("ocr.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateStream() error {
	if c.Stream.Index < -1 || c.Stream.Index > 31 {
		return fmt.Errorf("stream.index must be -1 or between 0 and 31")
	}
	if c.Stream.DefaultDurationMS <= 0 {
		return fmt.Errorf("stream.default_duration_ms must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json", "auto":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
