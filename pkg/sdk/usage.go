package quizdex

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/quizdex/internal/domain/usage"
)

// UsagePeriod is the window a usage report covers, in UTC.
type UsagePeriod string

// UsagePeriod values.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
)

// UsageReport is the generation token spend for the current window.
// Limit is 0 and Remaining is -1 when the window is unmetered.
type UsageReport struct {
	Period      UsagePeriod
	PeriodStart time.Time
	PeriodEnd   time.Time
	Tokens      int64
	Limit       int64
	Remaining   int64
	Exhausted   bool
}

// Usage reports generation tokens spent in the current day or month.
// An unknown period fails with ErrInvalidRequest.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) (rep UsageReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, err) }()

	r, err := c.usageSvc.GetReport(ctx, string(period))
	if err != nil {
		return UsageReport{}, err //nolint:wrapcheck // sentinel passes through to callers
	}
	return UsageReport{
		Period:      UsagePeriod(r.Period),
		PeriodStart: r.PeriodStart,
		PeriodEnd:   r.PeriodEnd,
		Tokens:      r.Tokens,
		Limit:       r.Limit,
		Remaining:   r.Remaining(),
		Exhausted:   r.Exhausted(),
	}, nil
}

type usageUseCase interface {
	GetReport(ctx context.Context, period string) (domusage.Report, error)
}
