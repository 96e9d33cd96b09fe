package pts

import (
	"fmt"
	"time"
)

// presentation timestamps run at 90kHz
const (
	TicksPerSecond      = 90000
	TicksPerMillisecond = TicksPerSecond / 1000
)

// presentation timestamp in 90kHz ticks
type Ticks uint64

// display window of one subtitle event
type Interval struct {
	Start Ticks
	End   Ticks
}

// length of the interval; zero when End precedes Start
func (i Interval) Duration() time.Duration {
	if i.End <= i.Start {
		return 0
	}
	return (i.End - i.Start).Duration()
}

func (t Ticks) Duration() time.Duration {
	whole := time.Duration(t/TicksPerSecond) * time.Second
	return whole + time.Duration(t%TicksPerSecond)*time.Second/TicksPerSecond
}

// Milliseconds truncates to whole milliseconds.
func (t Ticks) Milliseconds() uint64 {
	return uint64(t) / TicksPerMillisecond
}

func (t Ticks) String() string {
	return FormatSRT(t)
}

// FromDuration converts d to ticks. Negative durations clamp to zero.
func FromDuration(d time.Duration) Ticks {
	if d <= 0 {
		return 0
	}
	whole := Ticks(d/time.Second) * TicksPerSecond
	return whole + Ticks((d%time.Second)*TicksPerSecond/time.Second)
}

func FromMillis(ms int64) Ticks {
	if ms <= 0 {
		return 0
	}
	return Ticks(ms) * TicksPerMillisecond
}

// FormatSRT renders t as HH:MM:SS,mmm. The hour field widens past two digits
// instead of wrapping, so every tick value has a representation.
func FormatSRT(t Ticks) string {
	ms := t.Milliseconds()
	hours := ms / 3600000
	ms -= hours * 3600000
	minutes := ms / 60000
	ms -= minutes * 60000
	seconds := ms / 1000
	ms %= 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, ms)
}
