package services

import (
	"strconv"
	"strings"
)

const (
	DefaultDurationDays = 30
	CompleteProgress    = 100.0

	// Float sums of 100/n can land a hair under 100 on the n-th day.
	completionTolerance = 1e-9
)

// DurationDays reads the day count from a duration label such as "30 Days".
// Only the first whitespace separated token counts.
func DurationDays(duration string) int {
	fields := strings.Fields(duration)
	if len(fields) == 0 {
		return DefaultDurationDays
	}
	days, err := strconv.Atoi(fields[0])
	if err != nil {
		return DefaultDurationDays
	}
	if days <= 0 {
		return 1
	}
	return days
}

func DailyIncrement(duration string) float64 {
	return CompleteProgress / float64(DurationDays(duration))
}

// AdvanceProgress returns the progress after one more marked day and whether it completes the challenge.
func AdvanceProgress(current float64, duration string) (float64, bool) {
	next := current + DailyIncrement(duration)
	if next > CompleteProgress-completionTolerance {
		next = CompleteProgress
	}
	return next, next >= CompleteProgress
}
