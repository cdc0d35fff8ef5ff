package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// FloodWaitError reports rate-limit pushback from the platform. RetryAfter
// is the mandatory pause before the operation may be retried.
type FloodWaitError struct {
	RetryAfter time.Duration
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("FLOOD_WAIT: retry in %ds", int(e.RetryAfter.Seconds()))
}

// defaultFloodWait is assumed when an untyped flood error carries no
// parseable wait hint.
const defaultFloodWait = 60 * time.Second

// AsFloodWait reports whether err is rate-limit pushback and the wait it
// demands. The typed FloodWaitError is checked first; untyped errors fall
// back to a textual scan ("flood" substring, first integer as seconds) for
// errors that cross the client boundary as plain strings.
func AsFloodWait(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	var fw *FloodWaitError
	if errors.As(err, &fw) {
		return fw.RetryAfter, true
	}
	msg := err.Error()
	if !strings.Contains(strings.ToLower(msg), "flood") {
		return 0, false
	}
	if secs, ok := firstInt(msg); ok {
		return time.Duration(secs) * time.Second, true
	}
	return defaultFloodWait, true
}

// firstInt extracts the first decimal integer embedded in s.
func firstInt(s string) (int, bool) {
	start := -1
	for i, r := range s {
		if unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, err := strconv.Atoi(s[start:i])
			return n, err == nil
		}
	}
	if start >= 0 {
		n, err := strconv.Atoi(s[start:])
		return n, err == nil
	}
	return 0, false
}
