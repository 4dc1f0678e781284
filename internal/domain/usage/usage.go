// Package usage describes generation token spend over a budget period.
package usage

import (
	"fmt"
	"time"
)

// Period is the aggregation granularity.
type Period string

// Budget periods.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod accepts "day" and "month". An empty string means day.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodMonth:
		return PeriodMonth, nil
	}
	return "", fmt.Errorf("unknown usage period %q", s)
}

// Bounds returns the UTC period containing t as [start, end).
func (p Period) Bounds(t time.Time) (start, end time.Time) {
	t = t.UTC()
	if p == PeriodMonth {
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// Report is token usage for one period. A zero Limit means unlimited.
type Report struct {
	Period      Period
	PeriodStart time.Time
	PeriodEnd   time.Time
	Tokens      int64
	Limit       int64
}

// Remaining returns tokens left in the period, -1 when unlimited.
func (r Report) Remaining() int64 {
	if r.Limit <= 0 {
		return -1
	}
	return max(r.Limit-r.Tokens, 0)
}

// Exhausted reports whether a limited period is spent.
func (r Report) Exhausted() bool {
	return r.Limit > 0 && r.Tokens >= r.Limit
}
