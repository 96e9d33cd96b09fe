// Package binaries locates the external tools used for recognition and
// extraction and reports their availability.
package binaries

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

const (
	Tesseract = "tesseract"
	FFmpeg    = "ffmpeg"
	FFprobe   = "ffprobe"
)

var ErrNotFound = errors.New("binary not found")

// EnvVar names the environment override for a tool, e.g.
// VOBSUB2SRT_TESSERACT_PATH.
func EnvVar(name string) string {
	return "VOBSUB2SRT_" + strings.ToUpper(name) + "_PATH"
}

// Resolve finds a tool. An explicit path or command wins, then the
// environment override, then PATH.
func Resolve(name, explicit string) (string, error) {
	for _, candidate := range []string{strings.TrimSpace(explicit), os.Getenv(EnvVar(name))} {
		if candidate == "" {
			continue
		}
		path, err := lookup(candidate)
		if err != nil {
			return "", fmt.Errorf("%w: %s (%s): %v", ErrNotFound, name, candidate, err)
		}
		return path, nil
	}

	path, err := exec.LookPath(name + executableSuffix())
	if err != nil {
		return "", fmt.Errorf("%w: %s not in PATH", ErrNotFound, name)
	}
	return path, nil
}

func lookup(candidate string) (string, error) {
	if strings.ContainsRune(candidate, os.PathSeparator) || strings.Contains(candidate, "/") {
		if !fileExists(candidate) {
			return "", fmt.Errorf("no executable at %s", candidate)
		}
		return candidate, nil
	}
	return exec.LookPath(candidate)
}

type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:        req.Name,
			Command:     strings.TrimSpace(req.Command),
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if status.Command == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := Resolve(status.Command, "")
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", status.Command)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = path
		results = append(results, status)
	}
	return results
}

// Requirements lists the tools the converter can use. tesseract is optional
// when another recognition provider is configured.
func Requirements(provider string) []Requirement {
	return []Requirement{
		{
			Name:        "Tesseract",
			Command:     Tesseract,
			Description: "OCR engine for the tesseract provider",
			Optional:    provider != "" && provider != Tesseract,
		},
		{
			Name:        "FFmpeg",
			Command:     FFmpeg,
			Description: "Extracts DVD subtitle tracks from video files",
			Optional:    true,
		},
		{
			Name:        "FFprobe",
			Command:     FFprobe,
			Description: "Lists subtitle tracks in video files",
			Optional:    true,
		},
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

func executableSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
