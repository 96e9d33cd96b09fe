package vobsub

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mgpai22/vobsub2srt/internal/pts"
)

// WriteIndex renders idx in the VobSub index format read by ParseIndex.
// Palette entries are written as gray levels.
func WriteIndex(w io.Writer, idx *Index) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "# VobSub index file, v7 (do not modify this line!)")
	fmt.Fprintln(bw, "#")
	if idx.Width > 0 && idx.Height > 0 {
		fmt.Fprintf(bw, "size: %dx%d\n", idx.Width, idx.Height)
	}
	if idx.Palette.Valid {
		entries := make([]string, len(idx.Palette.Luma))
		for i, y := range idx.Palette.Luma {
			entries[i] = fmt.Sprintf("%02x%02x%02x", y, y, y)
		}
		fmt.Fprintf(bw, "palette: %s\n", strings.Join(entries, ", "))
	}
	fmt.Fprintf(bw, "langidx: %d\n", idx.LangIdx)

	for _, stream := range idx.Streams {
		lang := stream.Lang
		if lang == "" {
			lang = "--"
		}
		fmt.Fprintf(bw, "\nid: %s, index: %d\n", lang, stream.Index)
		for _, entry := range stream.Entries {
			fmt.Fprintf(bw, "timestamp: %s, filepos: %09x\n", formatIndexTime(entry.Timestamp), entry.FilePos)
		}
	}

	return bw.Flush()
}

// HH:MM:SS:mmm
func formatIndexTime(t pts.Ticks) string {
	ms := t.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d:%03d",
		ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}
