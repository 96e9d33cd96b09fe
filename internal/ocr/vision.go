package ocr

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/mgpai22/vobsub2srt/internal/bitmap"
)

const pngMIME = "image/png"

// marker a vision model returns for images without legible text
const noTextMarker = "<<EMPTY>>"

// BuildPrompt creates the transcription prompt for vision model providers
func BuildPrompt(opts Options) string {
	var sb strings.Builder

	sb.WriteString("This image is a single DVD subtitle rendered as dark text on a light background.\n")
	if opts.Language != "" {
		sb.WriteString(fmt.Sprintf("The subtitle language code is %q.\n", opts.Language))
	}
	sb.WriteString("\nIMPORTANT INSTRUCTIONS:\n")
	sb.WriteString("1. Transcribe the text exactly as shown, keeping punctuation and capitalization.\n")
	sb.WriteString("2. Keep the original line breaks.\n")
	sb.WriteString("3. Do not translate, correct or describe the image.\n")
	sb.WriteString("4. Do not add any explanation or markdown formatting.\n")
	sb.WriteString(fmt.Sprintf("5. If there is no legible text, answer %s.\n", noTextMarker))

	if opts.Prompt != "" {
		sb.WriteString(fmt.Sprintf("\nAdditional instructions: %s\n", opts.Prompt))
	}

	return sb.String()
}

// encodes a bitmap for upload with the shared preprocessing
func visionImage(bm *bitmap.Bitmap, opts Options) ([]byte, error) {
	if bm.Empty() {
		return nil, fmt.Errorf("empty bitmap")
	}
	return EncodePNG(bm, opts.Preprocess)
}

func base64PNG(img []byte) string {
	return base64.StdEncoding.EncodeToString(img)
}

var codeFenceRegex = regexp.MustCompile("```[a-zA-Z]*\\s*")

// interprets a vision model answer
func parseVisionResponse(provider, text string) Result {
	text = strings.TrimSpace(text)
	text = codeFenceRegex.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	if text == noTextMarker {
		return Success("")
	}
	if text == "" {
		return Failuref("no text in %s response", provider)
	}
	return Success(NormalizeText(text))
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
