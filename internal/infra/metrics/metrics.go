package metrics

import (
	"strings"
	"time"
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// outcome maps an error onto the bounded "ok"/"error" label.
func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func since(start time.Time) float64 { return time.Since(start).Seconds() }
