package ocr

import "fmt"

// Result is either recognized text or the reason recognition failed.
// Success("") is a successful, empty recognition.
type Result struct {
	text   string
	reason string
	ok     bool
}

func Success(text string) Result {
	return Result{text: text, ok: true}
}

func Failure(reason string) Result {
	if reason == "" {
		reason = "no text recognized"
	}
	return Result{reason: reason}
}

func Failuref(format string, args ...any) Result {
	return Failure(fmt.Sprintf(format, args...))
}

func (r Result) OK() bool { return r.ok }

// Text is empty for failures.
func (r Result) Text() string { return r.text }

// Reason is empty for successes.
func (r Result) Reason() string { return r.reason }

func (r Result) String() string {
	if r.ok {
		return fmt.Sprintf("success(%q)", r.text)
	}
	return fmt.Sprintf("failure(%s)", r.reason)
}
