package subtitle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/mgpai22/vobsub2srt/internal/pts"
)

var timestampRegex = regexp.MustCompile(
	`^(\d{2,}):(\d{2}):(\d{2}),(\d{3})\s*-->\s*(\d{2,}):(\d{2}):(\d{2}),(\d{3})`,
)

func ParseSRTFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SRT file: %w", err)
	}
	defer file.Close()
	return ParseSRT(file)
}

// ParseSRT reads SubRip records. A record ends at the first blank line after
// its timing line; records with an empty body are kept.
func ParseSRT(r io.Reader) (*Document, error) {
	var records []Record
	scanner := bufio.NewScanner(r)

	var (
		current   *Record
		timed     bool
		textLines []string
		lineNum   int
	)

	finish := func() {
		if current != nil && timed {
			current.Text = strings.Join(textLines, "\n")
			records = append(records, *current)
		}
		current = nil
		timed = false
		textLines = nil
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		lineNum++

		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}

		if strings.TrimSpace(line) == "" {
			if timed {
				finish()
			}
			continue
		}

		if current == nil {
			index, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil {
				return nil, fmt.Errorf("expected record index at line %d, got %q", lineNum, line)
			}
			current = &Record{Index: index}
			continue
		}

		if !timed {
			matches := timestampRegex.FindStringSubmatch(line)
			if len(matches) != 9 {
				return nil, fmt.Errorf("invalid timing line %d: %q", lineNum, line)
			}
			start, err := parseSRTTimestamp(matches[1], matches[2], matches[3], matches[4])
			if err != nil {
				return nil, fmt.Errorf("invalid start timestamp at line %d: %w", lineNum, err)
			}
			end, err := parseSRTTimestamp(matches[5], matches[6], matches[7], matches[8])
			if err != nil {
				return nil, fmt.Errorf("invalid end timestamp at line %d: %w", lineNum, err)
			}
			current.Start = start
			current.End = end
			timed = true
			continue
		}

		textLines = append(textLines, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading SRT file: %w", err)
	}
	if current != nil && !timed {
		return nil, fmt.Errorf("record %d has no timing line", current.Index)
	}
	finish()

	return &Document{Records: records}, nil
}

func parseSRTTimestamp(hours, minutes, seconds, millis string) (pts.Ticks, error) {
	h, err := strconv.ParseUint(hours, 10, 64)
	if err != nil {
		return 0, err
	}
	m, err := strconv.ParseUint(minutes, 10, 64)
	if err != nil {
		return 0, err
	}
	s, err := strconv.ParseUint(seconds, 10, 64)
	if err != nil {
		return 0, err
	}
	ms, err := strconv.ParseUint(millis, 10, 64)
	if err != nil {
		return 0, err
	}
	if m > 59 || s > 59 {
		return 0, fmt.Errorf("minutes or seconds out of range")
	}

	total := h*3600000 + m*60000 + s*1000 + ms
	return pts.Ticks(total) * pts.TicksPerMillisecond, nil
}

// Verify checks that records are numbered 1..n without gaps and that no
// record ends before it starts.
func (d *Document) Verify() error {
	var errs []error
	for i, rec := range d.Records {
		if rec.Index != i+1 {
			errs = append(errs, fmt.Errorf("record %d: index %d, want %d", i+1, rec.Index, i+1))
		}
		if rec.End < rec.Start {
			errs = append(errs, fmt.Errorf("record %d: ends at %s before start %s",
				rec.Index, pts.FormatSRT(rec.End), pts.FormatSRT(rec.Start)))
		}
	}
	return errors.Join(errs...)
}
