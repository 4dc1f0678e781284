package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/quizdex/internal/domain"
	domusage "github.com/kailas-cloud/quizdex/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil when generation is disabled.
func New(br BudgetReader) *Service {
	return &Service{br: br, now: time.Now}
}

// GetReport builds a usage report. period is "day", "month" or empty for day.
func (s *Service) GetReport(_ context.Context, period string) (domusage.Report, error) {
	p, err := domusage.ParsePeriod(period)
	if err != nil {
		return domusage.Report{}, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	if s.br != nil {
		return s.br.Report(p), nil
	}
	start, end := p.Bounds(s.now())
	return domusage.Report{Period: p, PeriodStart: start, PeriodEnd: end}, nil
}
