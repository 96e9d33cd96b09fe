// Package subtitle writes and reads SubRip documents.
package subtitle

import (
	"fmt"
	"strings"

	"github.com/mgpai22/vobsub2srt/internal/pts"
)

// represents single SubRip record
type Record struct {
	Index int
	Start pts.Ticks
	End   pts.Ticks
	Text  string
}

// String renders the record exactly as it is written to the document,
// including the blank separator line.
func (r Record) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d\n", r.Index)
	fmt.Fprintf(&sb, "%s --> %s\n", pts.FormatSRT(r.Start), pts.FormatSRT(r.End))
	sb.WriteString(r.Text)
	sb.WriteString("\n\n")
	return sb.String()
}

// represents parsed SubRip document
type Document struct {
	Records []Record
}

// OutputPath is the SubRip file written for a subtitle base name.
func OutputPath(base string) string {
	return base + ".srt"
}

// CleanText drops blank lines and trailing whitespace so the text cannot end
// a record early.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
